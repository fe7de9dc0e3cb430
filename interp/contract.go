package interp

import (
	"kirin/ir"
	"kirin/pipeline"
)

// Interp is the state contract dialect semantics program against. It is
// intentionally tiny: frame management, fuel, and execution strategy belong
// to the concrete drivers, because different strategies need different
// state.
//
// Semantics that need more than values — the pipeline, the active stage, a
// global side-effect sink — type-assert the Interp to the richer optional
// interfaces a driver provides (HasPipeline, HasGlobal). Pure transfer
// functions that stick to the contract run unchanged under both the stack
// machine and the abstract fixpoint driver.
type Interp[V any] interface {
	// ReadRef returns the binding of v in the current frame for inspection.
	ReadRef(v ir.SSAValue) (*V, error)
	// Read returns a copy of the binding of v.
	Read(v ir.SSAValue) (V, error)
	// Write binds result to value in the current frame.
	Write(result ir.SSAValue, value V) error
}

// Interpretable is the per-statement semantics hook. The driver retrieves
// the statement's dialect payload from the frame's stage storage and
// dispatches through this interface.
type Interpretable[V any] interface {
	Interpret(in Interp[V]) (Continuation[V], error)
}

// HasPipeline is the optional driver interface for semantics that resolve
// functions or inspect foreign stages — calling dialects use it to run
// specialization dispatch at the desired stage.
type HasPipeline interface {
	Pipeline() *pipeline.Pipeline
	ActiveStage() ir.CompileStage
}

// HasGlobal is the optional driver interface for effectful semantics that
// read or mutate the session's global state.
type HasGlobal interface {
	Global() any
	SetGlobal(v any)
}
