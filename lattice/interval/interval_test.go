package interval_test

import (
	"testing"

	"kirin/lattice/interval"
	"kirin/lattice/lattest"
)

func representative() []interval.Interval {
	return []interval.Interval{
		{},
		interval.Full(),
		interval.Const(0),
		interval.Const(42),
		interval.Const(-10),
		interval.Range(0, 100),
		interval.Range(-50, 50),
		interval.Range(1, 1),
		interval.Range(0, interval.PosInf),
		interval.Range(interval.NegInf, 100),
		interval.Range(-1000, 1000),
	}
}

func TestLatticeLaws(t *testing.T) {
	if err := lattest.CheckAbstract(representative(), lattest.EqComparable, 4); err != nil {
		t.Fatal(err)
	}
}

func TestJoinMeet(t *testing.T) {
	a := interval.Range(0, 10)
	b := interval.Range(5, 20)
	if got := a.Join(b); got != interval.Range(0, 20) {
		t.Fatalf("Join = %v", got)
	}
	if got := a.Meet(b); got != interval.Range(5, 10) {
		t.Fatalf("Meet = %v", got)
	}
	if !interval.Range(2, 8).IsSubsetEq(a) {
		t.Fatal("containment missed")
	}
	if b.IsSubsetEq(a) {
		t.Fatal("non-containment missed")
	}
	if got := a.Meet(interval.Range(20, 30)); !got.IsEmpty() {
		t.Fatalf("disjoint Meet = %v, want empty", got)
	}
}

func TestWiden(t *testing.T) {
	a := interval.Range(0, 5)
	if got := a.Widen(interval.Range(0, 10)); got != interval.Range(0, interval.PosInf) {
		t.Fatalf("Widen grew hi: %v", got)
	}
	if got := a.Widen(interval.Range(-5, 5)); got != interval.Range(interval.NegInf, 5) {
		t.Fatalf("Widen grew lo: %v", got)
	}
	if got := a.Widen(interval.Range(1, 4)); got != a {
		t.Fatalf("Widen of a contained next must be stable: %v", got)
	}
}

func TestNarrow(t *testing.T) {
	wide := interval.Range(0, interval.PosInf)
	if got := wide.Narrow(interval.Range(0, 100)); got != interval.Range(0, 100) {
		t.Fatalf("Narrow = %v", got)
	}
	if got := interval.Full().Narrow(interval.Range(-50, 50)); got != interval.Range(-50, 50) {
		t.Fatalf("Narrow from full = %v", got)
	}
	// Finite bounds are kept.
	if got := interval.Range(0, 10).Narrow(interval.Range(2, 8)); got != interval.Range(0, 10) {
		t.Fatalf("Narrow must keep finite bounds: %v", got)
	}
}

func TestArithmetic(t *testing.T) {
	a := interval.Range(1, 5)
	b := interval.Range(10, 20)
	if got := a.Add(b); got != interval.Range(11, 25) {
		t.Fatalf("Add = %v", got)
	}
	half := interval.Range(0, interval.PosInf)
	sum := half.Add(interval.Const(1))
	if lo, hi := sum.Bounds(); lo != 1 || hi != interval.PosInf {
		t.Fatalf("Add with infinity = %v", sum)
	}
}

func TestLtAndSplit(t *testing.T) {
	tests := []struct {
		name string
		lhs  interval.Interval
		rhs  interval.Interval
		want interval.Interval
	}{
		{"certainly true", interval.Range(0, 5), interval.Range(10, 10), interval.Const(1)},
		{"certainly false", interval.Range(10, 20), interval.Range(5, 10), interval.Const(0)},
		{"undecidable", interval.Range(0, 100), interval.Const(50), interval.Range(0, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.lhs.Lt(tt.rhs); got != tt.want {
				t.Fatalf("Lt = %v, want %v", got, tt.want)
			}
		})
	}

	ifTrue, ifFalse := interval.Range(0, interval.PosInf).SplitLt(interval.Const(100))
	if ifTrue != interval.Range(0, 99) {
		t.Fatalf("SplitLt true edge = %v", ifTrue)
	}
	if ifFalse != interval.Range(100, interval.PosInf) {
		t.Fatalf("SplitLt false edge = %v", ifFalse)
	}
}

func TestAsConst(t *testing.T) {
	if v, ok := interval.Const(7).AsConst(); !ok || v != 7 {
		t.Fatalf("AsConst = (%d, %v)", v, ok)
	}
	if _, ok := interval.Range(1, 2).AsConst(); ok {
		t.Fatal("AsConst on a non-singleton must fail")
	}
}
