package ir_test

import (
	"math/rand"
	"testing"

	"kirin/internal/testkit"
	"kirin/ir"
)

// TestRandomChurnKeepsInvariants grows a straight-line block, then applies a
// random mix of erasures, use rewrites, and compactions, validating after
// every mutation. The seed is fixed so failures reproduce.
func TestRandomChurnKeepsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	st := newStage(t)

	region := st.NewRegion(ir.NoStatement)
	blk, _, err := st.AppendBlock(region)
	if err != nil {
		t.Fatal(err)
	}

	// A pool of constants feeding a pool of adds; the return pins one
	// value so the block stays well formed.
	var values []ir.SSAValue
	for i := range 8 {
		values = append(values, testkit.MustStmt(st, blk,
			lang(testkit.NewConst[testkit.Int](int64(i))), testkit.TInt)[0])
	}
	var adds []ir.Statement
	for range 12 {
		a := values[rng.Intn(len(values))]
		b := values[rng.Intn(len(values))]
		def := testkit.NewAdd[testkit.Int](a, b)
		s, results, err := st.NewStatement(lang(def), testkit.TInt)
		if err != nil {
			t.Fatal(err)
		}
		if err := st.Append(blk, s); err != nil {
			t.Fatal(err)
		}
		adds = append(adds, s)
		values = append(values, results[0])
	}
	anchor := testkit.MustStmt(st, blk, lang(testkit.NewConst[testkit.Int](0)), testkit.TInt)[0]
	testkit.MustStmt(st, blk, lang(testkit.NewRet[testkit.Int](anchor)))

	for round := range 40 {
		switch rng.Intn(3) {
		case 0:
			// Erase a random surviving add whose result has no uses left
			// inside the block tail; rewrite its uses away first.
			if len(adds) == 0 {
				continue
			}
			i := rng.Intn(len(adds))
			s := adds[i]
			if !st.IsLiveStmt(s) {
				continue
			}
			info, err := st.Stmt(s)
			if err != nil {
				t.Fatalf("round %d: %v", round, err)
			}
			res := info.Def.Results()[0]
			if err := st.ReplaceAllUsesWith(res, anchor); err != nil {
				t.Fatalf("round %d: %v", round, err)
			}
			if err := st.EraseStatement(s); err != nil {
				t.Fatalf("round %d: %v", round, err)
			}
			if st.IsLiveStmt(s) {
				t.Fatalf("round %d: erased statement still live", round)
			}
			adds = append(adds[:i], adds[i+1:]...)
		case 1:
			// Rewrite one random operand of a surviving add.
			if len(adds) == 0 {
				continue
			}
			s := adds[rng.Intn(len(adds))]
			if !st.IsLiveStmt(s) {
				continue
			}
			if err := st.SetOperand(s, rng.Intn(2), anchor); err != nil {
				t.Fatalf("round %d: %v", round, err)
			}
		case 2:
			m := st.Compact()
			remap := func(list []ir.Statement) []ir.Statement {
				out := list[:0]
				for _, s := range list {
					if now, ok := m.Stmts.Lookup(s); ok {
						out = append(out, now)
					}
				}
				return out
			}
			adds = remap(adds)
			m.Values.Apply(&anchor)
			if !anchor.IsValid() {
				t.Fatalf("round %d: anchor lost in compaction", round)
			}
		}
		if err := st.Validate(); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
	}
}
