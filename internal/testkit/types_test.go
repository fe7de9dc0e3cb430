package testkit_test

import (
	"testing"

	"kirin/internal/testkit"
	"kirin/lattice/lattest"
)

func TestTypeLatticeLaws(t *testing.T) {
	samples := []testkit.Type{
		testkit.TNever,
		testkit.TPosInt,
		testkit.TInt,
		testkit.TFloat,
		testkit.TNumber,
		testkit.TAny,
	}
	if err := lattest.CheckBounded(samples, lattest.EqComparable); err != nil {
		t.Fatal(err)
	}
}

func TestTypeOrder(t *testing.T) {
	tests := []struct {
		a, b testkit.Type
		want bool
	}{
		{testkit.TPosInt, testkit.TInt, true},
		{testkit.TInt, testkit.TNumber, true},
		{testkit.TPosInt, testkit.TNumber, true},
		{testkit.TFloat, testkit.TNumber, true},
		{testkit.TInt, testkit.TPosInt, false},
		{testkit.TFloat, testkit.TInt, false},
		{testkit.TInt, testkit.TFloat, false},
	}
	for _, tt := range tests {
		if got := tt.a.IsSubsetEq(tt.b); got != tt.want {
			t.Errorf("%v ⊑ %v = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
	if got := testkit.TInt.Join(testkit.TFloat); got != testkit.TNumber {
		t.Errorf("Join(int, float) = %v", got)
	}
	if got := testkit.TInt.Meet(testkit.TFloat); got != testkit.TNever {
		t.Errorf("Meet(int, float) = %v", got)
	}
}
