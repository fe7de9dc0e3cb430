// Package interval implements a bounded integer interval domain for abstract
// interpretation.
//
// An interval is either empty (the domain bottom) or a pair of bounds
// [Lo, Hi] where Lo may be NegInf and Hi may be PosInf. The full line
// [NegInf, PosInf] is the domain top.
package interval

import (
	"fmt"
	"math"
)

// NegInf and PosInf are the bound sentinels. Finite interval endpoints must
// stay strictly inside them; the arithmetic helpers saturate to them.
const (
	NegInf = math.MinInt64
	PosInf = math.MaxInt64
)

// Interval is an integer interval. The zero value is the empty interval.
type Interval struct {
	nonEmpty bool
	lo, hi   int64
}

// Range returns the interval [lo, hi], or the empty interval when lo > hi.
func Range(lo, hi int64) Interval {
	if lo > hi {
		return Interval{}
	}
	return Interval{nonEmpty: true, lo: lo, hi: hi}
}

// Const returns the singleton interval [v, v].
func Const(v int64) Interval {
	return Range(v, v)
}

// Full returns the interval [NegInf, PosInf].
func Full() Interval {
	return Range(NegInf, PosInf)
}

// IsEmpty reports whether the interval is the empty set.
func (iv Interval) IsEmpty() bool { return !iv.nonEmpty }

// Bounds returns the endpoints. Only meaningful for non-empty intervals.
func (iv Interval) Bounds() (lo, hi int64) { return iv.lo, iv.hi }

// AsConst returns the single inhabitant of a singleton interval.
func (iv Interval) AsConst() (int64, bool) {
	if iv.nonEmpty && iv.lo == iv.hi {
		return iv.lo, true
	}
	return 0, false
}

func (iv Interval) String() string {
	if iv.IsEmpty() {
		return "⊥"
	}
	lo, hi := "-inf", "+inf"
	if iv.lo != NegInf {
		lo = fmt.Sprintf("%d", iv.lo)
	}
	if iv.hi != PosInf {
		hi = fmt.Sprintf("%d", iv.hi)
	}
	return fmt.Sprintf("[%s, %s]", lo, hi)
}

// Top returns the full line. The receiver is ignored.
func (Interval) Top() Interval { return Full() }

// Bottom returns the empty interval. The receiver is ignored.
func (Interval) Bottom() Interval { return Interval{} }

// Join returns the smallest interval containing both operands.
func (iv Interval) Join(other Interval) Interval {
	if iv.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return iv
	}
	return Range(min(iv.lo, other.lo), max(iv.hi, other.hi))
}

// Meet returns the intersection of the operands.
func (iv Interval) Meet(other Interval) Interval {
	if iv.IsEmpty() || other.IsEmpty() {
		return Interval{}
	}
	return Range(max(iv.lo, other.lo), min(iv.hi, other.hi))
}

// IsSubsetEq reports whether iv is contained in other.
func (iv Interval) IsSubsetEq(other Interval) bool {
	if iv.IsEmpty() {
		return true
	}
	if other.IsEmpty() {
		return false
	}
	return other.lo <= iv.lo && iv.hi <= other.hi
}

// Widen extrapolates unstable bounds to infinity: a bound that moved outward
// since the previous iterate jumps straight to its sentinel, so any ascending
// chain stabilizes after at most two widenings.
func (iv Interval) Widen(next Interval) Interval {
	if iv.IsEmpty() {
		return next
	}
	if next.IsEmpty() {
		return iv
	}
	lo, hi := iv.lo, iv.hi
	if next.lo < lo {
		lo = NegInf
	}
	if next.hi > hi {
		hi = PosInf
	}
	return Range(lo, hi)
}

// Narrow refines infinite bounds using the recomputed iterate while keeping
// finite bounds, descending toward the greatest fixpoint.
func (iv Interval) Narrow(next Interval) Interval {
	if iv.IsEmpty() || next.IsEmpty() {
		return Interval{}
	}
	lo, hi := iv.lo, iv.hi
	if lo == NegInf {
		lo = next.lo
	}
	if hi == PosInf {
		hi = next.hi
	}
	return Range(lo, hi).Meet(iv)
}

// Add returns the interval sum with saturating endpoint arithmetic.
func (iv Interval) Add(other Interval) Interval {
	if iv.IsEmpty() || other.IsEmpty() {
		return Interval{}
	}
	return Range(addSat(iv.lo, other.lo), addSat(iv.hi, other.hi))
}

// Lt returns the boolean abstraction of the pointwise comparison iv < other:
// [1,1] when certainly true, [0,0] when certainly false, [0,1] otherwise.
func (iv Interval) Lt(other Interval) Interval {
	if iv.IsEmpty() || other.IsEmpty() {
		return Interval{}
	}
	if iv.hi < other.lo {
		return Const(1)
	}
	if iv.lo >= other.hi {
		return Const(0)
	}
	return Range(0, 1)
}

// SplitLt splits iv against the guard iv < other, returning the restriction
// of iv on the true edge and on the false edge.
func (iv Interval) SplitLt(other Interval) (ifTrue, ifFalse Interval) {
	if iv.IsEmpty() || other.IsEmpty() {
		return Interval{}, Interval{}
	}
	ifTrue = iv.Meet(Range(NegInf, subSat(other.hi, 1)))
	ifFalse = iv.Meet(Range(other.lo, PosInf))
	return ifTrue, ifFalse
}

func addSat(a, b int64) int64 {
	if a == NegInf || b == NegInf {
		return NegInf
	}
	if a == PosInf || b == PosInf {
		return PosInf
	}
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		if b > 0 {
			return PosInf
		}
		return NegInf
	}
	return sum
}

func subSat(a, b int64) int64 {
	if a == PosInf || a == NegInf {
		return a
	}
	return addSat(a, -b)
}
