package interp_test

import (
	"testing"

	"kirin/internal/testkit"
	"kirin/interp"
	"kirin/ir"
	"kirin/pipeline"
)

// buildForwarder defines name(n) { r = callee(n); ret r } in st.
func buildForwarder[Tag any](
	t *testing.T,
	st *ir.StageInfo[testkit.Wrapped[testkit.Int, Tag], ty],
	name string,
	callee ir.SpecializedFunction,
	calleeStage ir.CompileStage,
) ir.SpecializedFunction {
	t.Helper()
	wrap := testkit.Wrap[testkit.Int, Tag]
	staged, err := st.NewStagedFunction(name, ir.Sig(testkit.TInt, testkit.TInt))
	if err != nil {
		t.Fatal(err)
	}
	region := st.NewRegion(ir.NoStatement)
	blk, params, err := st.AppendBlock(region, testkit.TInt)
	if err != nil {
		t.Fatal(err)
	}
	r := testkit.MustStmt(st, blk, wrap(testkit.NewCall[testkit.Int](callee, calleeStage, params[0])), testkit.TInt)
	testkit.MustStmt(st, blk, wrap(testkit.NewRet[testkit.Int](r[0])))
	fn, err := st.Specialize(staged, ir.Sig(testkit.TInt, testkit.TInt), region)
	if err != nil {
		t.Fatal(err)
	}
	return fn
}

// buildCountdown defines f(n) in stage A: the base case returns n when
// n < 1; otherwise it calls the next stage's forwarder with n-1.
func buildCountdown(
	t *testing.T,
	st *ir.StageInfo[testkit.LangA, ty],
	callee ir.SpecializedFunction,
	calleeStage ir.CompileStage,
) ir.SpecializedFunction {
	t.Helper()
	wrap := testkit.Wrap[testkit.Int, testkit.TagA]
	staged, err := st.NewStagedFunction("f", ir.Sig(testkit.TInt, testkit.TInt))
	if err != nil {
		t.Fatal(err)
	}
	region := st.NewRegion(ir.NoStatement)
	entry, eParams, err := st.AppendBlock(region, testkit.TInt)
	if err != nil {
		t.Fatal(err)
	}
	base, bParams, err := st.AppendBlock(region, testkit.TInt)
	if err != nil {
		t.Fatal(err)
	}
	rec, rParams, err := st.AppendBlock(region, testkit.TInt)
	if err != nil {
		t.Fatal(err)
	}
	n := eParams[0]

	one := testkit.MustStmt(st, entry, wrap(testkit.NewConst[testkit.Int](1)), testkit.TInt)
	branch, _, err := st.NewStatement(wrap(testkit.NewBrLt[testkit.Int](
		n, one[0],
		base, []ir.SSAValue{n},
		rec, []ir.SSAValue{n},
	)))
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Append(entry, branch); err != nil {
		t.Fatal(err)
	}

	testkit.MustStmt(st, base, wrap(testkit.NewRet[testkit.Int](bParams[0])))

	minusOne := testkit.MustStmt(st, rec, wrap(testkit.NewConst[testkit.Int](-1)), testkit.TInt)
	dec := testkit.MustStmt(st, rec, wrap(testkit.NewAdd[testkit.Int](rParams[0], minusOne[0])), testkit.TInt)
	r := testkit.MustStmt(st, rec, wrap(testkit.NewCall[testkit.Int](callee, calleeStage, dec[0])), testkit.TInt)
	testkit.MustStmt(st, rec, wrap(testkit.NewRet[testkit.Int](r[0])))

	fn, err := st.Specialize(staged, ir.Sig(testkit.TInt, testkit.TInt), region)
	if err != nil {
		t.Fatal(err)
	}
	return fn
}

// mixedPipeline wires f@A -> g@C -> h@B -> f@A. Staged functions are each
// stage's first allocation, so the cyclic references are known up front.
func mixedPipeline(t *testing.T) (*pipeline.Pipeline, ir.CompileStage, ir.SpecializedFunction) {
	t.Helper()
	stA := ir.NewStageInfo[testkit.LangA, ty]("A")
	stB := ir.NewStageInfo[testkit.LangB, ty]("B")
	stC := ir.NewStageInfo[testkit.LangC, ty]("C")
	pl := pipeline.New()
	idA := pl.AddStage(stA)
	idB := pl.AddStage(stB)
	idC := pl.AddStage(stC)

	first := ir.SpecializedFunction{Staged: 1, Index: 0}
	fA := buildCountdown(t, stA, first, idC)
	gC := buildForwarder(t, stC, "g", first, idB)
	hB := buildForwarder(t, stB, "h", first, idA)
	if fA != first || gC != first || hB != first {
		t.Fatalf("specializations landed at %v/%v/%v, want %v", fA, gC, hB, first)
	}
	return pl, idA, fA
}

func TestMixedStageRecursionDynamicDriver(t *testing.T) {
	pl, idA, fA := mixedPipeline(t)
	m := interp.New[testkit.Int](pl, idA).WithFuel(10_000)

	got, err := m.Call(fA, idA, []testkit.Int{3})
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Fatalf("countdown returned %d, want 0", got)
	}
	if m.Depth() != 0 {
		t.Fatalf("frame stack depth %d after completion", m.Depth())
	}
}

func TestMixedStageTypedDriverRejectsCrossStage(t *testing.T) {
	pl, idA, fA := mixedPipeline(t)
	m := interp.New[testkit.Int](pl, idA)
	d := interp.NewTyped[testkit.LangA, ty, testkit.Int](m)

	_, err := d.Call(fA, idA, []testkit.Int{3})
	if !interp.IsKind(err, interp.KindStageMismatch) {
		t.Fatalf("typed run = %v, want StageMismatch", err)
	}
	// The mismatch fires on the first frame that lives on a foreign stage;
	// that frame is still current and inspectable.
	frame, ferr := m.CurrentFrame()
	if ferr != nil {
		t.Fatal(ferr)
	}
	if frame.Stage == idA {
		t.Fatal("typed driver failed before crossing stages")
	}

	// The base case never crosses stages, so the typed driver handles it.
	m2 := interp.New[testkit.Int](pl, idA)
	d2 := interp.NewTyped[testkit.LangA, ty, testkit.Int](m2)
	got, err := d2.Call(fA, idA, []testkit.Int{0})
	if err != nil {
		t.Fatal(err)
	}
	if got != 0 {
		t.Fatalf("typed base case returned %d, want 0", got)
	}
}
