package ir

import (
	"slices"

	"kirin/lattice"
)

// Signature is a function signature over the type attribute T. Constraint
// contexts, when a semantics policy needs them, ride in the policy's
// environment type rather than on the signature itself.
type Signature[T comparable] struct {
	Params []T
	Ret    T
}

// Sig builds a signature from parameter types and a return type.
func Sig[T comparable](ret T, params ...T) Signature[T] {
	return Signature[T]{Params: params, Ret: ret}
}

// Equal reports component-wise equality.
func (s Signature[T]) Equal(o Signature[T]) bool {
	return s.Ret == o.Ret && slices.Equal(s.Params, o.Params)
}

// Clone returns a signature with its own parameter storage.
func (s Signature[T]) Clone() Signature[T] {
	return Signature[T]{Params: slices.Clone(s.Params), Ret: s.Ret}
}

// SignatureCmp is the result of comparing two applicable candidates.
type SignatureCmp uint8

const (
	// CmpIncomparable means neither candidate is more specific.
	CmpIncomparable SignatureCmp = iota
	// CmpMore means the left candidate is strictly more specific.
	CmpMore
	// CmpLess means the left candidate is strictly less specific.
	CmpLess
	// CmpEqual means the candidates are equally specific.
	CmpEqual
)

func (c SignatureCmp) String() string {
	switch c {
	case CmpMore:
		return "more"
	case CmpLess:
		return "less"
	case CmpEqual:
		return "equal"
	case CmpIncomparable:
		return "incomparable"
	}
	return "unknown"
}

// Semantics decides which specialization candidates can serve a call and how
// applicable candidates rank against each other. E is the environment an
// applicability check produces (solved bindings); policies without bindings
// use struct{}.
//
// All stages of one pipeline should share a single policy so signatures stay
// aligned across compilation stages.
type Semantics[T comparable, E any] interface {
	// Applicable reports whether cand can serve call, returning the solved
	// environment when it can.
	Applicable(call, cand Signature[T]) (E, bool)
	// CmpCandidate ranks two candidates, both already found applicable.
	CmpCandidate(a Signature[T], aEnv E, b Signature[T], bEnv E) SignatureCmp
}

// ExactSemantics accepts a candidate only when the signatures are equal
// component-wise. Candidates never dominate one another.
type ExactSemantics[T comparable] struct{}

// Applicable implements Semantics.
func (ExactSemantics[T]) Applicable(call, cand Signature[T]) (struct{}, bool) {
	return struct{}{}, call.Equal(cand)
}

// CmpCandidate implements Semantics.
func (ExactSemantics[T]) CmpCandidate(a Signature[T], _ struct{}, b Signature[T], _ struct{}) SignatureCmp {
	if a.Equal(b) {
		return CmpEqual
	}
	return CmpIncomparable
}

// OrderedType is the constraint for type attributes that form a lattice.
type OrderedType[T any] interface {
	comparable
	lattice.Lattice[T]
}

// LatticeSemantics accepts a candidate when every call parameter is a
// subtype of the candidate's parameter and the call return is a subtype of
// the candidate's return. Candidates rank by pointwise subtyping, so a
// narrower specialization dominates a wider one.
type LatticeSemantics[T OrderedType[T]] struct{}

// Applicable implements Semantics.
func (LatticeSemantics[T]) Applicable(call, cand Signature[T]) (struct{}, bool) {
	if len(call.Params) != len(cand.Params) {
		return struct{}{}, false
	}
	for i, p := range call.Params {
		if !p.IsSubsetEq(cand.Params[i]) {
			return struct{}{}, false
		}
	}
	if !call.Ret.IsSubsetEq(cand.Ret) {
		return struct{}{}, false
	}
	return struct{}{}, true
}

// CmpCandidate implements Semantics.
func (LatticeSemantics[T]) CmpCandidate(a Signature[T], _ struct{}, b Signature[T], _ struct{}) SignatureCmp {
	if len(a.Params) != len(b.Params) {
		return CmpIncomparable
	}
	aSubB, bSubA := true, true
	for i := range a.Params {
		if !a.Params[i].IsSubsetEq(b.Params[i]) {
			aSubB = false
		}
		if !b.Params[i].IsSubsetEq(a.Params[i]) {
			bSubA = false
		}
	}
	switch {
	case aSubB && bSubA:
		return CmpEqual
	case aSubB:
		return CmpMore
	case bSubA:
		return CmpLess
	default:
		return CmpIncomparable
	}
}
