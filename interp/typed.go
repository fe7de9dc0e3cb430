package interp

import (
	"kirin/ir"
	"kirin/pipeline"
)

// Typed is a driver pinned to one dialect. Every operation first checks that
// the current frame's stage hosts StageInfo[L, T]; a frame on a foreign
// stage fails with StageMismatch. Use the Machine directly when mixed-stage
// recursion must keep running.
type Typed[L ir.Definition, T comparable, V any] struct {
	M *Machine[V]
}

// NewTyped wraps a machine in a typed driver.
func NewTyped[L ir.Definition, T comparable, V any](m *Machine[V]) Typed[L, T, V] {
	return Typed[L, T, V]{M: m}
}

// StageInfo returns the current frame's storage typed to L.
func (d Typed[L, T, V]) StageInfo() (*ir.StageInfo[L, T], error) {
	frame, err := d.M.CurrentFrame()
	if err != nil {
		return nil, err
	}
	st, err := pipeline.StageOf[L, T](d.M.Pipeline(), frame.Stage)
	if err != nil {
		return nil, StageMismatch(err.Error())
	}
	return st, nil
}

func (d Typed[L, T, V]) check() error {
	_, err := d.StageInfo()
	return err
}

// Step is Machine.Step with the stage check.
func (d Typed[L, T, V]) Step() (Continuation[V], error) {
	if err := d.check(); err != nil {
		return Continuation[V]{}, err
	}
	return d.M.Step()
}

// Advance is Machine.Advance with the stage check.
func (d Typed[L, T, V]) Advance(c Continuation[V]) error {
	if err := d.check(); err != nil {
		return err
	}
	return d.M.Advance(c)
}

// Run loops step/advance like Machine.Run, failing with StageMismatch on
// the first transition into a frame whose stage hosts another dialect.
func (d Typed[L, T, V]) Run() (V, error) {
	var zero V
	for {
		c, err := d.Step()
		if err != nil {
			return zero, err
		}
		switch c.Kind {
		case KReturn:
			root := d.M.Depth() == 1
			if err := d.M.Advance(c); err != nil {
				return zero, err
			}
			if root {
				return c.Ret, nil
			}
		case KHalt:
			if err := d.M.Advance(c); err != nil {
				return zero, err
			}
			return zero, nil
		case KBreak:
			if err := d.M.Advance(Continue[V]()); err != nil {
				return zero, err
			}
		default:
			if err := d.M.Advance(c); err != nil {
				return zero, err
			}
		}
	}
}

// Call pushes a root frame and runs to completion under the stage check.
func (d Typed[L, T, V]) Call(callee ir.SpecializedFunction, stageID ir.CompileStage, args []V) (V, error) {
	var zero V
	if err := d.M.PushCall(callee, stageID, args, ir.NoSSAValue); err != nil {
		return zero, err
	}
	return d.Run()
}
