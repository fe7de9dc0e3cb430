package interp

import (
	"kirin/ir"
	"kirin/pipeline"
)

// Machine is the concrete stack interpreter: a frame stack over a pipeline,
// optional fuel and depth limits, a breakpoint set, and optional global
// state. All dispatch is dynamic — each frame carries its stage tag, so
// mixed-stage call chains keep per-frame stage fidelity. The Typed driver
// wraps a Machine when one dialect should be pinned.
type Machine[V any] struct {
	pl     *pipeline.Pipeline
	active ir.CompileStage
	frames []*Frame[V]

	fueled   bool
	fuel     uint64
	maxDepth int
	bps      *Breakpoints
	global   any
	halted   bool
}

// New creates a machine over pl with the given active stage. Fuel and depth
// are unbounded until configured.
func New[V any](pl *pipeline.Pipeline, active ir.CompileStage) *Machine[V] {
	return &Machine[V]{pl: pl, active: active, bps: NewBreakpoints()}
}

// WithFuel caps the number of steps the machine may execute.
func (m *Machine[V]) WithFuel(fuel uint64) *Machine[V] {
	m.fueled = true
	m.fuel = fuel
	return m
}

// WithMaxDepth caps the frame stack depth.
func (m *Machine[V]) WithMaxDepth(depth int) *Machine[V] {
	m.maxDepth = depth
	return m
}

// WithGlobal attaches mutable global state reachable from effectful
// semantics via the HasGlobal assertion.
func (m *Machine[V]) WithGlobal(g any) *Machine[V] {
	m.global = g
	return m
}

// Fuel reports the remaining fuel. Meaningful only after WithFuel.
func (m *Machine[V]) Fuel() uint64 { return m.fuel }

// Halted reports whether a Halt continuation ended the session.
func (m *Machine[V]) Halted() bool { return m.halted }

// Breakpoints returns the machine's breakpoint registry.
func (m *Machine[V]) Breakpoints() *Breakpoints { return m.bps }

// Pipeline implements HasPipeline.
func (m *Machine[V]) Pipeline() *pipeline.Pipeline { return m.pl }

// ActiveStage implements HasPipeline.
func (m *Machine[V]) ActiveStage() ir.CompileStage { return m.active }

// Global implements HasGlobal.
func (m *Machine[V]) Global() any { return m.global }

// SetGlobal implements HasGlobal.
func (m *Machine[V]) SetGlobal(v any) { m.global = v }

// --- frame management -------------------------------------------------------

// Depth reports the current frame stack depth.
func (m *Machine[V]) Depth() int { return len(m.frames) }

// CurrentFrame returns the top frame.
func (m *Machine[V]) CurrentFrame() (*Frame[V], error) {
	if len(m.frames) == 0 {
		return nil, NoFrame()
	}
	return m.frames[len(m.frames)-1], nil
}

// PushCall creates a frame for callee on stageID, binds args to the entry
// block's parameters, records the caller's result slot, and pushes it.
func (m *Machine[V]) PushCall(callee ir.SpecializedFunction, stageID ir.CompileStage, args []V, result ir.SSAValue) error {
	if m.maxDepth > 0 && len(m.frames) >= m.maxDepth {
		return MaxDepth()
	}
	stage, err := m.pl.Stage(stageID)
	if err != nil {
		return err
	}
	entry, err := stage.EntryBlock(callee)
	if err != nil {
		return err
	}
	params, err := stage.ParamsOf(entry)
	if err != nil {
		return err
	}
	if len(params) != len(args) {
		return ArityMismatch(len(params), len(args))
	}
	frame := NewFrame[V](callee, stageID)
	frame.Result = result
	for i, p := range params {
		frame.Write(p, args[i])
	}
	first, err := stage.FirstStmt(entry)
	if err != nil {
		return err
	}
	frame.Cursor = first
	m.frames = append(m.frames, frame)
	return nil
}

func (m *Machine[V]) popFrame() (*Frame[V], error) {
	if len(m.frames) == 0 {
		return nil, NoFrame()
	}
	top := m.frames[len(m.frames)-1]
	m.frames = m.frames[:len(m.frames)-1]
	return top, nil
}

// --- Interp contract --------------------------------------------------------

// ReadRef implements Interp on the current frame.
func (m *Machine[V]) ReadRef(v ir.SSAValue) (*V, error) {
	frame, err := m.CurrentFrame()
	if err != nil {
		return nil, err
	}
	ref := frame.ReadRef(v)
	if ref == nil {
		return nil, UnboundValue(v)
	}
	return ref, nil
}

// Read implements Interp on the current frame.
func (m *Machine[V]) Read(v ir.SSAValue) (V, error) {
	ref, err := m.ReadRef(v)
	if err != nil {
		var zero V
		return zero, err
	}
	return *ref, nil
}

// Write implements Interp on the current frame.
func (m *Machine[V]) Write(result ir.SSAValue, value V) error {
	frame, err := m.CurrentFrame()
	if err != nil {
		return err
	}
	frame.Write(result, value)
	return nil
}

// --- execution engine -------------------------------------------------------

// Step executes the current statement's dialect semantics and returns the
// raw continuation without applying any cursor mutation. Fuel is charged per
// step; running dry fails with Exhausted and leaves the cursor in place.
func (m *Machine[V]) Step() (Continuation[V], error) {
	var none Continuation[V]
	if m.fueled {
		if m.fuel == 0 {
			return none, Exhausted()
		}
		m.fuel--
	}
	frame, err := m.CurrentFrame()
	if err != nil {
		return none, err
	}
	if !frame.Cursor.IsValid() {
		return none, BadState("no statement at cursor")
	}
	stage, err := m.pl.Stage(frame.Stage)
	if err != nil {
		return none, err
	}
	def, err := stage.DefOf(frame.Cursor)
	if err != nil {
		return none, err
	}
	sem, ok := def.(Interpretable[V])
	if !ok {
		return none, BadState("statement definition is not interpretable for this value domain")
	}
	return sem.Interpret(m)
}

// Advance applies the cursor mutations for a continuation. It must be called
// with exactly the continuation the immediately preceding Step returned;
// mixing stale values is a programmer error the types do not defend against.
// On error the machine is left valid at the current cursor for inspection,
// repair, and retry.
func (m *Machine[V]) Advance(c Continuation[V]) error {
	switch c.Kind {
	case KContinue:
		return m.advanceCursor()
	case KJump:
		return m.jump(c.Jump)
	case KFork:
		return BadState("fork in concrete execution")
	case KCall:
		return m.PushCall(c.Call.Callee, c.Call.Stage, c.Call.Args, c.Call.Result)
	case KReturn:
		popped, err := m.popFrame()
		if err != nil {
			return err
		}
		if len(m.frames) == 0 {
			return nil // root return: the session is complete
		}
		if popped.Result.IsValid() {
			if err := m.Write(popped.Result, c.Ret); err != nil {
				return err
			}
		}
		// The caller suspended on its call statement; move past it.
		return m.advanceCursor()
	case KBreak:
		return nil
	case KHalt:
		m.halted = true
		return nil
	}
	return BadState("unknown continuation")
}

func (m *Machine[V]) advanceCursor() error {
	frame, err := m.CurrentFrame()
	if err != nil {
		return err
	}
	stage, err := m.pl.Stage(frame.Stage)
	if err != nil {
		return err
	}
	next, err := stage.NextOf(frame.Cursor)
	if err != nil {
		return err
	}
	if next.IsValid() {
		frame.Cursor = next
		return nil
	}
	def, err := stage.DefOf(frame.Cursor)
	if err != nil {
		return err
	}
	if !def.IsTerminator() {
		return BadState("end of block without terminator")
	}
	frame.Cursor = ir.NoStatement
	return nil
}

func (m *Machine[V]) jump(edge Edge[V]) error {
	frame, err := m.CurrentFrame()
	if err != nil {
		return err
	}
	stage, err := m.pl.Stage(frame.Stage)
	if err != nil {
		return err
	}
	params, err := stage.ParamsOf(edge.Target)
	if err != nil {
		return err
	}
	if len(params) != len(edge.Args) {
		return ArityMismatch(len(params), len(edge.Args))
	}
	for i, p := range params {
		frame.Write(p, edge.Args[i])
	}
	first, err := stage.FirstStmt(edge.Target)
	if err != nil {
		return err
	}
	if !first.IsValid() {
		return BadState("jump into empty block")
	}
	frame.Cursor = first
	return nil
}

// Run loops step/advance until the root call returns or the session halts.
// Breakpoints and dialect-emitted Break are ignored.
func (m *Machine[V]) Run() (V, error) {
	var zero V
	for {
		c, err := m.Step()
		if err != nil {
			return zero, err
		}
		switch c.Kind {
		case KReturn:
			root := len(m.frames) == 1
			if err := m.Advance(c); err != nil {
				return zero, err
			}
			if root {
				return c.Ret, nil
			}
		case KHalt:
			if err := m.Advance(c); err != nil {
				return zero, err
			}
			return zero, nil
		case KBreak:
			if err := m.Advance(Continue[V]()); err != nil {
				return zero, err
			}
		default:
			if err := m.Advance(c); err != nil {
				return zero, err
			}
		}
	}
}

// RunUntilBreak is Run with suspension: it stops before a statement carrying
// a breakpoint and when dialect semantics emit Break, returning the
// continuation that stopped execution with all state left valid.
func (m *Machine[V]) RunUntilBreak() (Continuation[V], error) {
	var none Continuation[V]
	for {
		frame, err := m.CurrentFrame()
		if err != nil {
			return none, err
		}
		if m.bps.Has(frame.Stage, frame.Cursor) {
			return Break[V](), nil
		}
		c, err := m.Step()
		if err != nil {
			return none, err
		}
		switch c.Kind {
		case KBreak:
			return c, nil
		case KReturn:
			root := len(m.frames) == 1
			if err := m.Advance(c); err != nil {
				return none, err
			}
			if root {
				return c, nil
			}
		case KHalt:
			if err := m.Advance(c); err != nil {
				return none, err
			}
			return c, nil
		default:
			if err := m.Advance(c); err != nil {
				return none, err
			}
		}
	}
}

// Call pushes a root frame for callee on stageID, runs to completion, and
// returns the root return value. Resolving callee for the argument types is
// the caller's responsibility (see ir.Resolve).
func (m *Machine[V]) Call(callee ir.SpecializedFunction, stageID ir.CompileStage, args []V) (V, error) {
	var zero V
	if err := m.PushCall(callee, stageID, args, ir.NoSSAValue); err != nil {
		return zero, err
	}
	return m.Run()
}
