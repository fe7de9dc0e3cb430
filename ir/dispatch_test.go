package ir_test

import (
	"errors"
	"slices"
	"testing"

	"kirin/internal/testkit"
	"kirin/ir"
)

func callSig(params ...ty) ir.Signature[ty] {
	// A call's return slot is the bottom type: it accepts any candidate
	// return under subtyping.
	return ir.Sig(testkit.TNever, params...)
}

func TestLatticeDispatch(t *testing.T) {
	st := newStage(t)
	staged, _ := testkit.BuildAddFunc[testkit.Int](st, "add",
		ir.Sig(testkit.TNumber, testkit.TNumber, testkit.TNumber),
		ir.Sig(testkit.TInt, testkit.TInt, testkit.TInt),
	)
	posSpec, err := testkit.SpecializeAdd(st, staged, ir.Sig(testkit.TPosInt, testkit.TPosInt, testkit.TPosInt))
	if err != nil {
		t.Fatal(err)
	}
	intSpec := ir.SpecializedFunction{Staged: staged, Index: 0}
	sem := ir.LatticeSemantics[ty]{}

	tests := []struct {
		name    string
		call    ir.Signature[ty]
		want    ir.SpecializedFunction
		wantErr error
	}{
		{"narrowest wins", callSig(testkit.TPosInt, testkit.TPosInt), posSpec, nil},
		{"mixed falls back", callSig(testkit.TInt, testkit.TPosInt), intSpec, nil},
		{"int exact", callSig(testkit.TInt, testkit.TInt), intSpec, nil},
		{"float has no home", callSig(testkit.TFloat, testkit.TFloat), ir.SpecializedFunction{}, ir.ErrNoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ir.Resolve(st, staged, tt.call, sem)
			if err != nil {
				t.Fatal(err)
			}
			got, err := res.Unique()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Unique = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Fatalf("resolved %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDispatchAmbiguitySurfaced(t *testing.T) {
	sem := ir.LatticeSemantics[ty]{}
	sigA := ir.Sig(testkit.TNumber, testkit.TInt, testkit.TNumber)
	sigB := ir.Sig(testkit.TNumber, testkit.TNumber, testkit.TInt)

	// Build the same specialization set in both insertion orders; the
	// surviving candidate set must match as a set.
	resolve := func(first, second ir.Signature[ty]) []uint32 {
		st := newStage(t)
		staged, _ := testkit.BuildAddFunc[testkit.Int](st, "amb",
			ir.Sig(testkit.TNumber, testkit.TNumber, testkit.TNumber), first)
		if _, err := testkit.SpecializeAdd(st, staged, second); err != nil {
			t.Fatal(err)
		}
		res, err := ir.Resolve(st, staged, callSig(testkit.TInt, testkit.TInt), sem)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := res.Unique(); !errors.Is(err, ir.ErrAmbiguous) {
			t.Fatalf("Unique = %v, want ErrAmbiguous", err)
		}
		var sigs []uint32
		for _, c := range res.Candidates {
			info, err := st.Spec(c)
			if err != nil {
				t.Fatal(err)
			}
			// Identify candidates by signature shape, not index, so the
			// two orders are comparable.
			if info.Sig.Equal(sigA) {
				sigs = append(sigs, 0)
			} else {
				sigs = append(sigs, 1)
			}
		}
		slices.Sort(sigs)
		return sigs
	}

	ab := resolve(sigA, sigB)
	ba := resolve(sigB, sigA)
	if !slices.Equal(ab, ba) {
		t.Fatalf("ambiguous candidate sets depend on insertion order: %v vs %v", ab, ba)
	}
	if len(ab) != 2 {
		t.Fatalf("ambiguity has %d candidates, want 2", len(ab))
	}
}

func TestExactSemantics(t *testing.T) {
	st := newStage(t)
	sig := ir.Sig(testkit.TInt, testkit.TInt, testkit.TInt)
	staged, spec := testkit.BuildAddFunc[testkit.Int](st, "exact",
		ir.Sig(testkit.TNumber, testkit.TNumber, testkit.TNumber), sig)

	sem := ir.ExactSemantics[ty]{}
	res, err := ir.Resolve(st, staged, sig, sem)
	if err != nil {
		t.Fatal(err)
	}
	got, err := res.Unique()
	if err != nil {
		t.Fatal(err)
	}
	if got != spec {
		t.Fatalf("resolved %v, want %v", got, spec)
	}

	res, err = ir.Resolve(st, staged, ir.Sig(testkit.TInt, testkit.TPosInt, testkit.TInt), sem)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := res.Unique(); !errors.Is(err, ir.ErrNoMatch) {
		t.Fatalf("exact semantics accepted a subtype: %v", err)
	}
}

func TestInvalidatedSpecsExcludedFromDispatch(t *testing.T) {
	st := newStage(t)
	sig := ir.Sig(testkit.TInt, testkit.TInt, testkit.TInt)
	staged, spec := testkit.BuildAddFunc[testkit.Int](st, "inv",
		ir.Sig(testkit.TNumber, testkit.TNumber, testkit.TNumber), sig)

	info, err := st.Spec(spec)
	if err != nil {
		t.Fatal(err)
	}
	info.Invalidated = true

	res, err := ir.Resolve(st, staged, callSig(testkit.TInt, testkit.TInt), ir.LatticeSemantics[ty]{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := res.Unique(); !errors.Is(err, ir.ErrNoMatch) {
		t.Fatalf("invalidated specialization still resolvable: %v", err)
	}
}
