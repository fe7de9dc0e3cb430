package testkit

import "kirin/ir"

// Stage tags distinguish otherwise-identical dialect instantiations so the
// typed drivers can tell stages apart at the type level.
type (
	// TagA marks stage A's language.
	TagA struct{}
	// TagB marks stage B's language.
	TagB struct{}
	// TagC marks stage C's language.
	TagC struct{}
)

// Wrapped composes the base dialect into a tagged language: all structural
// views, predicates, and semantics forward through the embedded definition,
// and Unwrap exposes the capability interfaces (ir.CallLike, ir.Remappable)
// the wrapper's method set hides.
type Wrapped[V Num[V], Tag any] struct {
	Stmt[V]
}

// Wrap lifts a base definition into the tagged language.
func Wrap[V Num[V], Tag any](s Stmt[V]) Wrapped[V, Tag] {
	return Wrapped[V, Tag]{Stmt: s}
}

// Unwrap implements ir.Wrapper.
func (w Wrapped[V, Tag]) Unwrap() ir.Definition { return w.Stmt }

// LangA, LangB, and LangC are the three tagged languages used by the
// mixed-stage tests.
type (
	LangA = Wrapped[Int, TagA]
	LangB = Wrapped[Int, TagB]
	LangC = Wrapped[Int, TagC]
)
