package ir

import (
	"fmt"
	"slices"
)

// StagedFunctionInfo is one compile-stage view of a function: the staged
// signature in this stage's type system, the ordered specialization list,
// the callers recorded against it, and the invalidation flag.
//
// A staged function with zero specializations is extern: signature only.
// Invalidation never deletes — an invalidated entry stays addressable so its
// backedges identify exactly the callers that need recompilation.
type StagedFunctionInfo[L Definition, T comparable] struct {
	// Name is the stage-local symbol this staged function is registered
	// under.
	Name Name
	// Sig is the staged signature.
	Sig Signature[T]
	// Specs is the ordered specialization list. Indices are stable; entries
	// are invalidated in place, never removed.
	Specs []SpecializedFunctionInfo[T]
	// Backedges are call sites that resolved to this staged function as a
	// whole (extern calls).
	Backedges map[CallSite]struct{}
	// Invalidated marks an entry superseded by a redefinition.
	Invalidated bool
}

// Name pairs a stage-local symbol with the string it interns, so error
// rendering does not need a table lookup.
type Name struct {
	Sym Symbol
	Str string
}

// SpecializedFunctionInfo is one concrete implementation of a staged
// function: a signature accepted by the staged signature under the
// configured semantics, and a body region.
type SpecializedFunctionInfo[T comparable] struct {
	// Sig is the specialized signature.
	Sig Signature[T]
	// Body is the implementation region; its head block is the entry.
	Body Region
	// Backedges are the inbound call sites.
	Backedges map[CallSite]struct{}
	// Invalidated marks an entry superseded by a redefinition.
	Invalidated bool
}

// Resolution is the outcome of specialization dispatch.
type Resolution struct {
	// Candidates are the surviving candidates after dominance reduction:
	// empty for no match, a single element for a unique match, several for
	// an ambiguity. Order follows specialization indices, so the set is
	// insertion-order independent in content.
	Candidates []SpecializedFunction
}

// Unique returns the single surviving candidate, or ErrNoMatch /
// ErrAmbiguous. Ambiguity is surfaced, never silently tie-broken.
func (r Resolution) Unique() (SpecializedFunction, error) {
	switch len(r.Candidates) {
	case 0:
		return SpecializedFunction{}, fmt.Errorf("resolve: %w", ErrNoMatch)
	case 1:
		return r.Candidates[0], nil
	default:
		return SpecializedFunction{}, fmt.Errorf("resolve: %d candidates: %w", len(r.Candidates), ErrAmbiguous)
	}
}

// Resolve runs specialization dispatch for a call signature against a staged
// function's live specializations under the semantics policy sem.
//
// Candidates are first filtered by applicability, then reduced to the ones no
// other applicable candidate strictly dominates.
func Resolve[L Definition, T comparable, E any](
	st *StageInfo[L, T],
	fn StagedFunction,
	call Signature[T],
	sem Semantics[T, E],
) (Resolution, error) {
	info, err := st.StagedFunc(fn)
	if err != nil {
		return Resolution{}, err
	}

	type candidate struct {
		ref SpecializedFunction
		sig Signature[T]
		env E
	}
	var applicable []candidate
	for i := range info.Specs {
		spec := &info.Specs[i]
		if spec.Invalidated {
			continue
		}
		env, ok := sem.Applicable(call, spec.Sig)
		if !ok {
			continue
		}
		applicable = append(applicable, candidate{
			ref: SpecializedFunction{Staged: fn, Index: uint32(i)},
			sig: spec.Sig,
			env: env,
		})
	}

	var survivors []SpecializedFunction
	for _, c := range applicable {
		dominated := false
		for _, other := range applicable {
			if other.ref == c.ref {
				continue
			}
			if sem.CmpCandidate(other.sig, other.env, c.sig, c.env) == CmpMore {
				dominated = true
				break
			}
		}
		if !dominated {
			survivors = append(survivors, c.ref)
		}
	}
	return Resolution{Candidates: survivors}, nil
}

// liveSpecWithSig returns the index of a non-invalidated specialization with
// an equal signature, if any.
func (f *StagedFunctionInfo[L, T]) liveSpecWithSig(sig Signature[T]) (int, bool) {
	for i := range f.Specs {
		if !f.Specs[i].Invalidated && f.Specs[i].Sig.Equal(sig) {
			return i, true
		}
	}
	return 0, false
}

// LiveSpecs returns the indices of non-invalidated specializations.
func (f *StagedFunctionInfo[L, T]) LiveSpecs() []uint32 {
	var live []uint32
	for i := range f.Specs {
		if !f.Specs[i].Invalidated {
			live = append(live, uint32(i))
		}
	}
	return live
}

// BackedgeSites returns the specialization's inbound call sites in a
// deterministic order.
func (f *SpecializedFunctionInfo[T]) BackedgeSites() []CallSite {
	sites := make([]CallSite, 0, len(f.Backedges))
	for site := range f.Backedges {
		sites = append(sites, site)
	}
	slices.SortFunc(sites, func(a, b CallSite) int {
		if a.Stage != b.Stage {
			return int(a.Stage) - int(b.Stage)
		}
		return int(a.Stmt) - int(b.Stmt)
	})
	return sites
}
