package testkit

import (
	"kirin/interp"
	"kirin/ir"
)

// Stmt is the test language: an arithmetic control-flow dialect generic over
// its value domain, so the same IR runs concretely (V = Int) and abstractly
// (V = Iv).
type Stmt[V Num[V]] interface {
	ir.Definition
	interp.Interpretable[V]
}

// Const materializes an integer constant.
type Const[V Num[V]] struct {
	Value int64
	out   [1]ir.SSAValue
}

// NewConst builds a constant definition.
func NewConst[V Num[V]](value int64) *Const[V] {
	return &Const[V]{Value: value}
}

func (c *Const[V]) Operands() []ir.SSAValue { return nil }
func (c *Const[V]) Results() []ir.SSAValue  { return c.out[:] }
func (c *Const[V]) Successors() []ir.Block  { return nil }
func (c *Const[V]) Regions() []ir.Region    { return nil }
func (c *Const[V]) IsPure() bool            { return true }
func (c *Const[V]) IsSpeculatable() bool    { return true }
func (c *Const[V]) IsTerminator() bool      { return false }
func (c *Const[V]) IsConstant() bool        { return true }

func (c *Const[V]) Interpret(in interp.Interp[V]) (interp.Continuation[V], error) {
	var zero V
	if err := in.Write(c.out[0], zero.FromInt(c.Value)); err != nil {
		return interp.Continuation[V]{}, err
	}
	return interp.Continue[V](), nil
}

// Add sums two values.
type Add[V Num[V]] struct {
	in  [2]ir.SSAValue
	out [1]ir.SSAValue
}

// NewAdd builds an addition over a and b.
func NewAdd[V Num[V]](a, b ir.SSAValue) *Add[V] {
	return &Add[V]{in: [2]ir.SSAValue{a, b}}
}

func (a *Add[V]) Operands() []ir.SSAValue { return a.in[:] }
func (a *Add[V]) Results() []ir.SSAValue  { return a.out[:] }
func (a *Add[V]) Successors() []ir.Block  { return nil }
func (a *Add[V]) Regions() []ir.Region    { return nil }
func (a *Add[V]) IsPure() bool            { return true }
func (a *Add[V]) IsSpeculatable() bool    { return true }
func (a *Add[V]) IsTerminator() bool      { return false }
func (a *Add[V]) IsConstant() bool        { return false }

func (a *Add[V]) Interpret(in interp.Interp[V]) (interp.Continuation[V], error) {
	var none interp.Continuation[V]
	lhs, err := in.Read(a.in[0])
	if err != nil {
		return none, err
	}
	rhs, err := in.Read(a.in[1])
	if err != nil {
		return none, err
	}
	if err := in.Write(a.out[0], lhs.Add(rhs)); err != nil {
		return none, err
	}
	return interp.Continue[V](), nil
}

// Lt compares two values, producing the boolean abstraction 0/1.
type Lt[V Num[V]] struct {
	in  [2]ir.SSAValue
	out [1]ir.SSAValue
}

// NewLt builds a less-than comparison of a and b.
func NewLt[V Num[V]](a, b ir.SSAValue) *Lt[V] {
	return &Lt[V]{in: [2]ir.SSAValue{a, b}}
}

func (l *Lt[V]) Operands() []ir.SSAValue { return l.in[:] }
func (l *Lt[V]) Results() []ir.SSAValue  { return l.out[:] }
func (l *Lt[V]) Successors() []ir.Block  { return nil }
func (l *Lt[V]) Regions() []ir.Region    { return nil }
func (l *Lt[V]) IsPure() bool            { return true }
func (l *Lt[V]) IsSpeculatable() bool    { return true }
func (l *Lt[V]) IsTerminator() bool      { return false }
func (l *Lt[V]) IsConstant() bool        { return false }

func (l *Lt[V]) Interpret(in interp.Interp[V]) (interp.Continuation[V], error) {
	var none interp.Continuation[V]
	lhs, err := in.Read(l.in[0])
	if err != nil {
		return none, err
	}
	rhs, err := in.Read(l.in[1])
	if err != nil {
		return none, err
	}
	if err := in.Write(l.out[0], lhs.Lt(rhs)); err != nil {
		return none, err
	}
	return interp.Continue[V](), nil
}

// Jump transfers unconditionally, passing args to the target's parameters.
type Jump[V Num[V]] struct {
	args []ir.SSAValue
	succ [1]ir.Block
}

// NewJump builds an unconditional branch to target.
func NewJump[V Num[V]](target ir.Block, args ...ir.SSAValue) *Jump[V] {
	return &Jump[V]{args: args, succ: [1]ir.Block{target}}
}

func (j *Jump[V]) Operands() []ir.SSAValue { return j.args }
func (j *Jump[V]) Results() []ir.SSAValue  { return nil }
func (j *Jump[V]) Successors() []ir.Block  { return j.succ[:] }
func (j *Jump[V]) Regions() []ir.Region    { return nil }
func (j *Jump[V]) IsPure() bool            { return false }
func (j *Jump[V]) IsSpeculatable() bool    { return false }
func (j *Jump[V]) IsTerminator() bool      { return true }
func (j *Jump[V]) IsConstant() bool        { return false }

func (j *Jump[V]) Interpret(in interp.Interp[V]) (interp.Continuation[V], error) {
	var none interp.Continuation[V]
	vals := make([]V, len(j.args))
	for i, arg := range j.args {
		v, err := in.Read(arg)
		if err != nil {
			return none, err
		}
		vals[i] = v
	}
	return interp.Jump(j.succ[0], vals...), nil
}

// BrLt branches on lhs < rhs: the then edge when certainly true, the else
// edge when certainly false. An undecidable comparison forks both edges,
// refining forwarded occurrences of lhs by the guard on each side.
type BrLt[V Num[V]] struct {
	// ops is [lhs, rhs, then-args..., else-args...].
	ops   []ir.SSAValue
	nThen int
	succ  [2]ir.Block
}

// NewBrLt builds a fused compare-and-branch on lhs < rhs.
func NewBrLt[V Num[V]](lhs, rhs ir.SSAValue, then ir.Block, thenArgs []ir.SSAValue, els ir.Block, elseArgs []ir.SSAValue) *BrLt[V] {
	ops := make([]ir.SSAValue, 0, 2+len(thenArgs)+len(elseArgs))
	ops = append(ops, lhs, rhs)
	ops = append(ops, thenArgs...)
	ops = append(ops, elseArgs...)
	return &BrLt[V]{ops: ops, nThen: len(thenArgs), succ: [2]ir.Block{then, els}}
}

func (b *BrLt[V]) Operands() []ir.SSAValue { return b.ops }
func (b *BrLt[V]) Results() []ir.SSAValue  { return nil }
func (b *BrLt[V]) Successors() []ir.Block  { return b.succ[:] }
func (b *BrLt[V]) Regions() []ir.Region    { return nil }
func (b *BrLt[V]) IsPure() bool            { return false }
func (b *BrLt[V]) IsSpeculatable() bool    { return false }
func (b *BrLt[V]) IsTerminator() bool      { return true }
func (b *BrLt[V]) IsConstant() bool        { return false }

func (b *BrLt[V]) Interpret(in interp.Interp[V]) (interp.Continuation[V], error) {
	var none interp.Continuation[V]
	lhs, err := in.Read(b.ops[0])
	if err != nil {
		return none, err
	}
	rhs, err := in.Read(b.ops[1])
	if err != nil {
		return none, err
	}
	readArgs := func(ids []ir.SSAValue, refined V, refine bool) ([]V, error) {
		vals := make([]V, len(ids))
		for i, id := range ids {
			if refine && id == b.ops[0] {
				vals[i] = refined
				continue
			}
			v, err := in.Read(id)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return vals, nil
	}
	thenIDs := b.ops[2 : 2+b.nThen]
	elseIDs := b.ops[2+b.nThen:]

	if isTrue, decidable := lhs.Lt(rhs).Truth(); decidable {
		var zero V
		if isTrue {
			vals, err := readArgs(thenIDs, zero, false)
			if err != nil {
				return none, err
			}
			return interp.Jump(b.succ[0], vals...), nil
		}
		vals, err := readArgs(elseIDs, zero, false)
		if err != nil {
			return none, err
		}
		return interp.Jump(b.succ[1], vals...), nil
	}

	ifTrue, ifFalse := lhs.SplitLt(rhs)
	thenVals, err := readArgs(thenIDs, ifTrue, true)
	if err != nil {
		return none, err
	}
	elseVals, err := readArgs(elseIDs, ifFalse, true)
	if err != nil {
		return none, err
	}
	return interp.Fork(
		interp.Edge[V]{Target: b.succ[0], Args: thenVals},
		interp.Edge[V]{Target: b.succ[1], Args: elseVals},
	), nil
}

// Ret returns a value from the current function.
type Ret[V Num[V]] struct {
	in [1]ir.SSAValue
}

// NewRet builds a return of v.
func NewRet[V Num[V]](v ir.SSAValue) *Ret[V] {
	return &Ret[V]{in: [1]ir.SSAValue{v}}
}

func (r *Ret[V]) Operands() []ir.SSAValue { return r.in[:] }
func (r *Ret[V]) Results() []ir.SSAValue  { return nil }
func (r *Ret[V]) Successors() []ir.Block  { return nil }
func (r *Ret[V]) Regions() []ir.Region    { return nil }
func (r *Ret[V]) IsPure() bool            { return false }
func (r *Ret[V]) IsSpeculatable() bool    { return false }
func (r *Ret[V]) IsTerminator() bool      { return true }
func (r *Ret[V]) IsConstant() bool        { return false }

func (r *Ret[V]) Interpret(in interp.Interp[V]) (interp.Continuation[V], error) {
	v, err := in.Read(r.in[0])
	if err != nil {
		return interp.Continuation[V]{}, err
	}
	return interp.Return(v), nil
}

// CallOp invokes a resolved specialization, possibly on another stage.
type CallOp[V Num[V]] struct {
	args        []ir.SSAValue
	out         [1]ir.SSAValue
	Callee      ir.SpecializedFunction
	CalleeStage ir.CompileStage
}

// NewCall builds a call of callee hosted on stage.
func NewCall[V Num[V]](callee ir.SpecializedFunction, stage ir.CompileStage, args ...ir.SSAValue) *CallOp[V] {
	return &CallOp[V]{args: args, Callee: callee, CalleeStage: stage}
}

func (c *CallOp[V]) Operands() []ir.SSAValue { return c.args }
func (c *CallOp[V]) Results() []ir.SSAValue  { return c.out[:] }
func (c *CallOp[V]) Successors() []ir.Block  { return nil }
func (c *CallOp[V]) Regions() []ir.Region    { return nil }
func (c *CallOp[V]) IsPure() bool            { return false }
func (c *CallOp[V]) IsSpeculatable() bool    { return false }
func (c *CallOp[V]) IsTerminator() bool      { return false }
func (c *CallOp[V]) IsConstant() bool        { return false }

// CallTarget implements ir.CallLike.
func (c *CallOp[V]) CallTarget() (ir.SpecializedFunction, ir.CompileStage, bool) {
	return c.Callee, c.CalleeStage, c.Callee.IsValid()
}

// RemapAfterCompaction implements ir.Remappable for the payload-held callee.
func (c *CallOp[V]) RemapAfterCompaction(m *ir.StageRemap) {
	m.Staged.Apply(&c.Callee.Staged)
}

func (c *CallOp[V]) Interpret(in interp.Interp[V]) (interp.Continuation[V], error) {
	var none interp.Continuation[V]
	vals := make([]V, len(c.args))
	for i, arg := range c.args {
		v, err := in.Read(arg)
		if err != nil {
			return none, err
		}
		vals[i] = v
	}
	return interp.Call(c.Callee, c.CalleeStage, c.out[0], vals...), nil
}

// Pause suspends execution at itself, for debugger tests.
type Pause[V Num[V]] struct{}

// NewPause builds a pause point.
func NewPause[V Num[V]]() *Pause[V] { return &Pause[V]{} }

func (p *Pause[V]) Operands() []ir.SSAValue { return nil }
func (p *Pause[V]) Results() []ir.SSAValue  { return nil }
func (p *Pause[V]) Successors() []ir.Block  { return nil }
func (p *Pause[V]) Regions() []ir.Region    { return nil }
func (p *Pause[V]) IsPure() bool            { return false }
func (p *Pause[V]) IsSpeculatable() bool    { return false }
func (p *Pause[V]) IsTerminator() bool      { return false }
func (p *Pause[V]) IsConstant() bool        { return false }

func (p *Pause[V]) Interpret(interp.Interp[V]) (interp.Continuation[V], error) {
	return interp.Break[V](), nil
}

// Stop terminates the session.
type Stop[V Num[V]] struct{}

// NewStop builds a halt terminator.
func NewStop[V Num[V]]() *Stop[V] { return &Stop[V]{} }

func (s *Stop[V]) Operands() []ir.SSAValue { return nil }
func (s *Stop[V]) Results() []ir.SSAValue  { return nil }
func (s *Stop[V]) Successors() []ir.Block  { return nil }
func (s *Stop[V]) Regions() []ir.Region    { return nil }
func (s *Stop[V]) IsPure() bool            { return false }
func (s *Stop[V]) IsSpeculatable() bool    { return false }
func (s *Stop[V]) IsTerminator() bool      { return true }
func (s *Stop[V]) IsConstant() bool        { return false }

func (s *Stop[V]) Interpret(interp.Interp[V]) (interp.Continuation[V], error) {
	return interp.Halt[V](), nil
}
