// Package absint implements the abstract interpreter: a worklist-driven
// fixpoint over block entry states with configurable widening, an optional
// narrowing phase, and a context-sensitive summary cache for calls.
package absint

import (
	"kirin/ir"
	"kirin/lattice"
)

// Strategy selects where widening applies during the ascending phase.
type Strategy uint8

const (
	// AllJoins widens at every join point. Terminates eagerly at the cost
	// of precision.
	AllJoins Strategy = iota
	// LoopHeaders widens only at designated loop-header blocks. Header
	// identification is an input: supply it from a structural pre-pass or
	// externally via Widening.Headers.
	LoopHeaders
	// DelayedN widens a block only after Widening.Delay ascending revisits,
	// joining until then.
	DelayedN
)

func (s Strategy) String() string {
	switch s {
	case AllJoins:
		return "all-joins"
	case LoopHeaders:
		return "loop-headers"
	case DelayedN:
		return "delayed"
	}
	return "unknown"
}

// Widening configures the ascending phase.
type Widening struct {
	Strategy Strategy
	// Delay is the revisit count before DelayedN starts widening.
	Delay int
	// Headers marks the loop headers LoopHeaders widens at.
	Headers map[ir.Block]bool
}

// merge combines a block's prior entry value with an incoming one, applying
// the configured widening when the strategy says this target and visit
// warrant it, and a plain join otherwise.
func merge[V lattice.AbstractValue[V]](w Widening, prior, next V, target ir.Block, visits int) V {
	switch w.Strategy {
	case AllJoins:
		return prior.Widen(prior.Join(next))
	case LoopHeaders:
		if w.Headers[target] {
			return prior.Widen(prior.Join(next))
		}
		return prior.Join(next)
	case DelayedN:
		if visits > w.Delay {
			return prior.Widen(prior.Join(next))
		}
		return prior.Join(next)
	}
	return prior.Join(next)
}
