package interp_test

import (
	"testing"

	"kirin/internal/testkit"
	"kirin/interp"
	"kirin/ir"
	"kirin/pipeline"
)

type (
	lang = testkit.Stmt[testkit.Int]
	ty   = testkit.Type
)

// loopPipeline assembles a pipeline with one stage hosting the counter loop.
func loopPipeline(t *testing.T, bound int64) (*pipeline.Pipeline, ir.CompileStage, testkit.CounterLoop) {
	t.Helper()
	st := ir.NewStageInfo[lang, ty]("main")
	pl := pipeline.New()
	id := pl.AddStage(st)
	loop := testkit.BuildCounterLoop[testkit.Int](st, bound)
	return pl, id, loop
}

func TestCounterLoopRunsToCompletion(t *testing.T) {
	pl, id, loop := loopPipeline(t, 100)
	m := interp.New[testkit.Int](pl, id).WithFuel(10_000)

	got, err := m.Call(loop.Fn, id, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got != 100 {
		t.Fatalf("loop returned %d, want 100", got)
	}
	if m.Depth() != 0 {
		t.Fatalf("frame stack depth %d after root return", m.Depth())
	}

	// Fuel consumption is deterministic: a fresh run burns the same amount.
	remaining := m.Fuel()
	m2 := interp.New[testkit.Int](pl, id).WithFuel(10_000)
	if _, err := m2.Call(loop.Fn, id, nil); err != nil {
		t.Fatal(err)
	}
	if m2.Fuel() != remaining {
		t.Fatalf("fuel nondeterministic: %d vs %d", m2.Fuel(), remaining)
	}
}

func TestFuelExhaustionLeavesCursorOnBranch(t *testing.T) {
	pl, id, loop := loopPipeline(t, 100)
	// Step budget: entry takes 2 steps; iteration k executes the header's
	// const at step 5k-2 and its branch at 5k-1. Fuel 48 runs through the
	// header const of iteration 10 and dies with the cursor on the branch.
	m := interp.New[testkit.Int](pl, id).WithFuel(48)

	_, err := m.Call(loop.Fn, id, nil)
	if !interp.IsKind(err, interp.KindExhausted) {
		t.Fatalf("err = %v, want Exhausted", err)
	}
	frame, err := m.CurrentFrame()
	if err != nil {
		t.Fatal(err)
	}
	if frame.Cursor != loop.Branch {
		t.Fatalf("cursor = %d, want the branch statement %d", frame.Cursor, loop.Branch)
	}
	// State is inspectable at the suspension point: the counter has
	// advanced through nine completed iterations.
	x, ok := frame.Read(loop.X)
	if !ok {
		t.Fatal("counter unbound at suspension")
	}
	if x != 9 {
		t.Fatalf("counter = %d at exhaustion, want 9", x)
	}
}

func TestRunUntilBreakStopsAtBreakpoint(t *testing.T) {
	pl, id, loop := loopPipeline(t, 100)
	m := interp.New[testkit.Int](pl, id)
	bp := m.Breakpoints().Add(id, loop.Branch)

	if err := m.PushCall(loop.Fn, id, nil, ir.NoSSAValue); err != nil {
		t.Fatal(err)
	}
	c, err := m.RunUntilBreak()
	if err != nil {
		t.Fatal(err)
	}
	if c.Kind != interp.KBreak {
		t.Fatalf("continuation = %v, want break", c.Kind)
	}
	frame, _ := m.CurrentFrame()
	if frame.Cursor != loop.Branch {
		t.Fatalf("stopped at %d, want breakpoint %d", frame.Cursor, loop.Branch)
	}
	if x, _ := frame.Read(loop.X); x != 0 {
		t.Fatalf("counter = %d at first breakpoint hit, want 0", x)
	}

	// Deleting the breakpoint lets the run finish; Run ignores them anyway.
	if !m.Breakpoints().Delete(bp.ID) {
		t.Fatal("breakpoint delete failed")
	}
	got, err := m.Run()
	if err != nil {
		t.Fatal(err)
	}
	if got != 100 {
		t.Fatalf("resumed run returned %d, want 100", got)
	}
}

func TestDialectBreakSuspends(t *testing.T) {
	st := ir.NewStageInfo[lang, ty]("main")
	pl := pipeline.New()
	id := pl.AddStage(st)

	region := st.NewRegion(ir.NoStatement)
	blk, _, err := st.AppendBlock(region)
	if err != nil {
		t.Fatal(err)
	}
	pause, _, err := st.NewStatement(lang(testkit.NewPause[testkit.Int]()))
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Append(blk, pause); err != nil {
		t.Fatal(err)
	}
	c := testkit.MustStmt(st, blk, lang(testkit.NewConst[testkit.Int](7)), testkit.TInt)
	testkit.MustStmt(st, blk, lang(testkit.NewRet[testkit.Int](c[0])))
	staged, err := st.NewStagedFunction("pausing", ir.Sig(testkit.TInt))
	if err != nil {
		t.Fatal(err)
	}
	fn, err := st.Specialize(staged, ir.Sig(testkit.TInt), region)
	if err != nil {
		t.Fatal(err)
	}

	m := interp.New[testkit.Int](pl, id)
	if err := m.PushCall(fn, id, nil, ir.NoSSAValue); err != nil {
		t.Fatal(err)
	}
	cont, err := m.RunUntilBreak()
	if err != nil {
		t.Fatal(err)
	}
	if cont.Kind != interp.KBreak {
		t.Fatalf("continuation = %v, want break", cont.Kind)
	}
	frame, _ := m.CurrentFrame()
	if frame.Cursor != pause {
		t.Fatalf("suspended at %d, want the pause statement %d", frame.Cursor, pause)
	}

	// Run treats the dialect break as a plain step.
	got, err := m.Run()
	if err != nil {
		t.Fatal(err)
	}
	if got != 7 {
		t.Fatalf("run returned %d, want 7", got)
	}
}

func TestHaltTerminatesSession(t *testing.T) {
	st := ir.NewStageInfo[lang, ty]("main")
	pl := pipeline.New()
	id := pl.AddStage(st)

	region := st.NewRegion(ir.NoStatement)
	blk, _, err := st.AppendBlock(region)
	if err != nil {
		t.Fatal(err)
	}
	testkit.MustStmt(st, blk, lang(testkit.NewStop[testkit.Int]()))
	staged, err := st.NewStagedFunction("halting", ir.Sig(testkit.TInt))
	if err != nil {
		t.Fatal(err)
	}
	fn, err := st.Specialize(staged, ir.Sig(testkit.TInt), region)
	if err != nil {
		t.Fatal(err)
	}

	m := interp.New[testkit.Int](pl, id)
	if _, err := m.Call(fn, id, nil); err != nil {
		t.Fatal(err)
	}
	if !m.Halted() {
		t.Fatal("machine not halted after Halt")
	}
}

// selfRecursive builds f() { r = f(); ret r } — max depth fodder.
func selfRecursive(t *testing.T, st *ir.StageInfo[lang, ty], stage ir.CompileStage) ir.SpecializedFunction {
	t.Helper()
	staged, err := st.NewStagedFunction("forever", ir.Sig(testkit.TInt))
	if err != nil {
		t.Fatal(err)
	}
	self := ir.SpecializedFunction{Staged: staged, Index: 0}
	region := st.NewRegion(ir.NoStatement)
	blk, _, err := st.AppendBlock(region)
	if err != nil {
		t.Fatal(err)
	}
	r := testkit.MustStmt(st, blk, lang(testkit.NewCall[testkit.Int](self, stage)), testkit.TInt)
	testkit.MustStmt(st, blk, lang(testkit.NewRet[testkit.Int](r[0])))
	fn, err := st.Specialize(staged, ir.Sig(testkit.TInt), region)
	if err != nil {
		t.Fatal(err)
	}
	if fn != self {
		t.Fatalf("specialization landed at %v, expected %v", fn, self)
	}
	return fn
}

func TestMaxDepthExceeded(t *testing.T) {
	st := ir.NewStageInfo[lang, ty]("main")
	pl := pipeline.New()
	id := pl.AddStage(st)
	fn := selfRecursive(t, st, id)

	m := interp.New[testkit.Int](pl, id).WithMaxDepth(8)
	_, err := m.Call(fn, id, nil)
	if !interp.IsKind(err, interp.KindMaxDepth) {
		t.Fatalf("err = %v, want MaxDepth", err)
	}
	if m.Depth() != 8 {
		t.Fatalf("depth = %d at failure, want 8", m.Depth())
	}
}

func TestForkIsBadStateInConcreteExecution(t *testing.T) {
	pl, id, loop := loopPipeline(t, 100)
	m := interp.New[testkit.Int](pl, id)
	if err := m.PushCall(loop.Fn, id, nil, ir.NoSSAValue); err != nil {
		t.Fatal(err)
	}
	err := m.Advance(interp.Fork[testkit.Int](interp.Edge[testkit.Int]{Target: loop.Body}))
	if !interp.IsKind(err, interp.KindBadState) {
		t.Fatalf("Advance(fork) = %v, want BadState", err)
	}
}

func TestErrorRecoveryAtCursor(t *testing.T) {
	st := ir.NewStageInfo[lang, ty]("main")
	pl := pipeline.New()
	id := pl.AddStage(st)

	region := st.NewRegion(ir.NoStatement)
	blk, params, err := st.AppendBlock(region, testkit.TInt)
	if err != nil {
		t.Fatal(err)
	}
	sum := testkit.MustStmt(st, blk, lang(testkit.NewAdd[testkit.Int](params[0], params[0])), testkit.TInt)
	testkit.MustStmt(st, blk, lang(testkit.NewRet[testkit.Int](sum[0])))
	staged, err := st.NewStagedFunction("dbl", ir.Sig(testkit.TInt, testkit.TInt))
	if err != nil {
		t.Fatal(err)
	}
	fn, err := st.Specialize(staged, ir.Sig(testkit.TInt, testkit.TInt), region)
	if err != nil {
		t.Fatal(err)
	}

	m := interp.New[testkit.Int](pl, id)
	if err := m.PushCall(fn, id, []testkit.Int{21}, ir.NoSSAValue); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Read(ir.SSAValue(9999)); !interp.IsKind(err, interp.KindUnbound) {
		t.Fatalf("unbound read = %v, want Unbound", err)
	}
	// The failed read left the machine valid at the cursor; execution
	// proceeds normally.
	got, err := m.Run()
	if err != nil {
		t.Fatal(err)
	}
	if got != 42 {
		t.Fatalf("run after recovery returned %d, want 42", got)
	}
}

func TestStepAdvanceManualDrive(t *testing.T) {
	pl, id, loop := loopPipeline(t, 1)
	m := interp.New[testkit.Int](pl, id)
	if err := m.PushCall(loop.Fn, id, nil, ir.NoSSAValue); err != nil {
		t.Fatal(err)
	}
	for {
		c, err := m.Step()
		if err != nil {
			t.Fatal(err)
		}
		if c.Kind == interp.KReturn && m.Depth() == 1 {
			if err := m.Advance(c); err != nil {
				t.Fatal(err)
			}
			if c.Ret != 1 {
				t.Fatalf("manual drive returned %d, want 1", c.Ret)
			}
			return
		}
		if err := m.Advance(c); err != nil {
			t.Fatal(err)
		}
	}
}
