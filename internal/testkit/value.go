package testkit

import "kirin/lattice/interval"

// Num is the value algebra the arithmetic dialect needs from its domain.
// The concrete domain implements it with machine integers, the abstract one
// with intervals; the dialect's transfer functions are written once against
// this interface.
type Num[V any] interface {
	// FromInt injects a constant. The receiver is ignored.
	FromInt(n int64) V
	// Add returns the sum abstraction.
	Add(other V) V
	// Lt returns the boolean abstraction of the comparison.
	Lt(other V) V
	// Truth decides truthiness. decidable=false means the value spans both
	// outcomes and the branch must fork.
	Truth() (isTrue, decidable bool)
	// SplitLt refines the receiver under the guard receiver < other, for
	// the true and false edges respectively.
	SplitLt(other V) (ifTrue, ifFalse V)
}

// Int is the concrete value domain: a plain machine integer. Truth is
// always decidable, so concrete execution never forks.
type Int int64

// FromInt implements Num.
func (Int) FromInt(n int64) Int { return Int(n) }

// Add implements Num.
func (v Int) Add(other Int) Int { return v + other }

// Lt implements Num.
func (v Int) Lt(other Int) Int {
	if v < other {
		return 1
	}
	return 0
}

// Truth implements Num.
func (v Int) Truth() (bool, bool) { return v != 0, true }

// SplitLt implements Num. Concrete values need no refinement.
func (v Int) SplitLt(Int) (Int, Int) { return v, v }

// Iv is the abstract value domain: an integer interval. It satisfies both
// Num and lattice.AbstractValue, so the same dialect runs under the stack
// machine and the fixpoint analyzer.
type Iv struct {
	I interval.Interval
}

// IvRange builds the interval [lo, hi].
func IvRange(lo, hi int64) Iv { return Iv{I: interval.Range(lo, hi)} }

// IvConst builds the singleton interval.
func IvConst(n int64) Iv { return Iv{I: interval.Const(n)} }

func (v Iv) String() string { return v.I.String() }

// FromInt implements Num.
func (Iv) FromInt(n int64) Iv { return IvConst(n) }

// Add implements Num.
func (v Iv) Add(other Iv) Iv { return Iv{I: v.I.Add(other.I)} }

// Lt implements Num.
func (v Iv) Lt(other Iv) Iv { return Iv{I: v.I.Lt(other.I)} }

// Truth implements Num.
func (v Iv) Truth() (bool, bool) {
	if v.I.IsEmpty() {
		return false, true
	}
	lo, hi := v.I.Bounds()
	switch {
	case lo > 0 || hi < 0:
		return true, true
	case lo == 0 && hi == 0:
		return false, true
	default:
		return false, false
	}
}

// SplitLt implements Num.
func (v Iv) SplitLt(other Iv) (Iv, Iv) {
	t, f := v.I.SplitLt(other.I)
	return Iv{I: t}, Iv{I: f}
}

// Join implements lattice.AbstractValue.
func (v Iv) Join(other Iv) Iv { return Iv{I: v.I.Join(other.I)} }

// Meet implements lattice.AbstractValue.
func (v Iv) Meet(other Iv) Iv { return Iv{I: v.I.Meet(other.I)} }

// IsSubsetEq implements lattice.AbstractValue.
func (v Iv) IsSubsetEq(other Iv) bool { return v.I.IsSubsetEq(other.I) }

// Top implements lattice.AbstractValue.
func (Iv) Top() Iv { return Iv{I: interval.Full()} }

// Bottom implements lattice.AbstractValue.
func (Iv) Bottom() Iv { return Iv{} }

// Widen implements lattice.AbstractValue.
func (v Iv) Widen(next Iv) Iv { return Iv{I: v.I.Widen(next.I)} }

// Narrow implements lattice.AbstractValue.
func (v Iv) Narrow(next Iv) Iv { return Iv{I: v.I.Narrow(next.I)} }
