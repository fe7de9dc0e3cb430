package ir

import (
	"fmt"

	"kirin/arena"
	"kirin/intern"
)

// StageInfo is the storage bundle for one compile stage hosting the dialect
// L with type attribute T: arenas for statements, blocks, regions, SSA
// values, and staged functions, plus the stage-local symbol table.
//
// Every Statement, Block, Region, SSAValue, and StagedFunction ID is
// relative to exactly one StageInfo. Tokens must never cross stages.
type StageInfo[L Definition, T comparable] struct {
	id   CompileStage
	name string

	stmts   *arena.Arena[Statement, StatementInfo[L]]
	blocks  *arena.Arena[Block, BlockInfo]
	regions *arena.Arena[Region, RegionInfo]
	ssas    *arena.Arena[SSAValue, SSAInfo[T]]
	staged  *arena.Arena[StagedFunction, StagedFunctionInfo[L, T]]

	symbols *intern.Table[string, Symbol]
	funcs   map[Symbol]StagedFunction

	// backedges routes call-site registration. A pipeline installs a hook
	// that reaches across stages; standalone stages register locally.
	backedges BackedgeRegistry
}

// NewStageInfo creates an empty stage with a display name.
func NewStageInfo[L Definition, T comparable](name string) *StageInfo[L, T] {
	st := &StageInfo[L, T]{
		name:    name,
		stmts:   arena.New[Statement, StatementInfo[L]](64),
		blocks:  arena.New[Block, BlockInfo](16),
		regions: arena.New[Region, RegionInfo](8),
		ssas:    arena.New[SSAValue, SSAInfo[T]](64),
		staged:  arena.New[StagedFunction, StagedFunctionInfo[L, T]](8),
		symbols: intern.NewTable[string, Symbol](),
		funcs:   make(map[Symbol]StagedFunction),
	}
	st.backedges = st
	return st
}

// ID returns the stage identity assigned by the owning pipeline, or
// NoCompileStage for a standalone stage.
func (st *StageInfo[L, T]) ID() CompileStage { return st.id }

// Bind assigns the stage identity and backedge registry. Called by the
// pipeline when the stage is added; user code has no reason to call it.
func (st *StageInfo[L, T]) Bind(id CompileStage, reg BackedgeRegistry) {
	st.id = id
	if reg != nil {
		st.backedges = reg
	}
}

// DisplayName returns the stage's human-readable name.
func (st *StageInfo[L, T]) DisplayName() string { return st.name }

// Intern interns a stage-local symbol.
func (st *StageInfo[L, T]) Intern(name string) Symbol { return st.symbols.Intern(name) }

// SymbolName resolves a stage-local symbol back to its string.
func (st *StageInfo[L, T]) SymbolName(sym Symbol) (string, bool) { return st.symbols.Lookup(sym) }

// Stmt returns the statement record for s.
func (st *StageInfo[L, T]) Stmt(s Statement) (*StatementInfo[L], error) { return st.stmts.Get(s) }

// BlockInfo returns the block record for b.
func (st *StageInfo[L, T]) BlockInfo(b Block) (*BlockInfo, error) { return st.blocks.Get(b) }

// RegionInfo returns the region record for r.
func (st *StageInfo[L, T]) RegionInfo(r Region) (*RegionInfo, error) { return st.regions.Get(r) }

// Value returns the SSA value record for v.
func (st *StageInfo[L, T]) Value(v SSAValue) (*SSAInfo[T], error) { return st.ssas.Get(v) }

// StagedFunc returns the staged function record for f.
func (st *StageInfo[L, T]) StagedFunc(f StagedFunction) (*StagedFunctionInfo[L, T], error) {
	return st.staged.Get(f)
}

// Spec returns the specialization record for f.
func (st *StageInfo[L, T]) Spec(f SpecializedFunction) (*SpecializedFunctionInfo[T], error) {
	info, err := st.staged.Get(f.Staged)
	if err != nil {
		return nil, err
	}
	if int(f.Index) >= len(info.Specs) {
		return nil, &arena.Error{Kind: arena.OutOfBounds, ID: f.Index}
	}
	return &info.Specs[f.Index], nil
}

// Definition returns the dialect payload of s.
func (st *StageInfo[L, T]) Definition(s Statement) (L, error) {
	info, err := st.stmts.Get(s)
	if err != nil {
		var zero L
		return zero, err
	}
	return info.Def, nil
}

// IsLiveStmt reports whether s refers to a live statement.
func (st *StageInfo[L, T]) IsLiveStmt(s Statement) bool { return st.stmts.IsLive(s) }

// IsLiveValue reports whether v refers to a live SSA value.
func (st *StageInfo[L, T]) IsLiveValue(v SSAValue) bool { return st.ssas.IsLive(v) }

// StagedFuncsInOrder returns the live staged function IDs in allocation
// order.
func (st *StageInfo[L, T]) StagedFuncsInOrder() []StagedFunction {
	out := make([]StagedFunction, 0, st.staged.Len())
	for id := range st.staged.IterLive() {
		out = append(out, id)
	}
	return out
}

// --- staged function lifecycle ---------------------------------------------

// StagedFunctionByName resolves a function name at this stage.
func (st *StageInfo[L, T]) StagedFunctionByName(name string) (StagedFunction, error) {
	sym, ok := st.symbols.Resolve(name)
	if !ok {
		return NoStagedFunction, fmt.Errorf("function %q: %w", name, ErrUnknownSymbol)
	}
	fn, ok := st.funcs[sym]
	if !ok {
		return NoStagedFunction, fmt.Errorf("function %q: %w", name, ErrUnknownSymbol)
	}
	return fn, nil
}

// NewStagedFunction attaches a staged entry for name at this stage. A second
// attempt with an equal signature returns the existing entry; a conflicting
// signature returns a StagedConflict carrying both, which the caller may
// convert into RedefineStagedFunction.
//
// Two staged entries under one name must describe the same abstract
// operation; this is why a different signature is rejected rather than
// overloaded.
func (st *StageInfo[L, T]) NewStagedFunction(name string, sig Signature[T]) (StagedFunction, error) {
	sym := st.symbols.Intern(name)
	if old, ok := st.funcs[sym]; ok {
		info := st.staged.MustGet(old)
		if !info.Invalidated {
			if info.Sig.Equal(sig) {
				return old, nil
			}
			return NoStagedFunction, &StagedConflict[T]{
				Name:   name,
				Old:    old,
				OldSig: info.Sig.Clone(),
				NewSig: sig.Clone(),
			}
		}
	}
	return st.attachStaged(sym, name, sig), nil
}

// RedefineStagedFunction resolves a StagedConflict: the old entry is marked
// invalidated but stays addressable, and a fresh entry is attached under the
// same name.
func (st *StageInfo[L, T]) RedefineStagedFunction(conflict *StagedConflict[T]) (StagedFunction, error) {
	old, err := st.staged.Get(conflict.Old)
	if err != nil {
		return NoStagedFunction, err
	}
	old.Invalidated = true
	sym := st.symbols.Intern(conflict.Name)
	return st.attachStaged(sym, conflict.Name, conflict.NewSig), nil
}

func (st *StageInfo[L, T]) attachStaged(sym Symbol, name string, sig Signature[T]) StagedFunction {
	fn := st.staged.Alloc(StagedFunctionInfo[L, T]{
		Name:      Name{Sym: sym, Str: name},
		Sig:       sig.Clone(),
		Backedges: make(map[CallSite]struct{}),
	})
	st.funcs[sym] = fn
	return fn
}

// Specialize appends a specialization to fn. A duplicate live signature
// returns a SpecializeConflict, convertible to RedefineSpecialization.
// The body's head block is the entry; its parameter arity must match the
// signature.
func (st *StageInfo[L, T]) Specialize(fn StagedFunction, sig Signature[T], body Region) (SpecializedFunction, error) {
	info, err := st.staged.Get(fn)
	if err != nil {
		return SpecializedFunction{}, err
	}
	if i, ok := info.liveSpecWithSig(sig); ok {
		return SpecializedFunction{}, &SpecializeConflict[T]{
			Staged: fn,
			Old:    SpecializedFunction{Staged: fn, Index: uint32(i)},
			Sig:    sig.Clone(),
		}
	}
	if err := st.checkSpecBody(sig, body); err != nil {
		return SpecializedFunction{}, err
	}
	info.Specs = append(info.Specs, SpecializedFunctionInfo[T]{
		Sig:       sig.Clone(),
		Body:      body,
		Backedges: make(map[CallSite]struct{}),
	})
	return SpecializedFunction{Staged: fn, Index: uint32(len(info.Specs) - 1)}, nil
}

// RedefineSpecialization resolves a SpecializeConflict: the prior entry is
// invalidated in place and the new one appended. The invalidated entry's
// backedges keep identifying the call sites that resolved to it.
func (st *StageInfo[L, T]) RedefineSpecialization(conflict *SpecializeConflict[T], body Region) (SpecializedFunction, error) {
	old, err := st.Spec(conflict.Old)
	if err != nil {
		return SpecializedFunction{}, err
	}
	old.Invalidated = true
	info := st.staged.MustGet(conflict.Staged)
	if err := st.checkSpecBody(conflict.Sig, body); err != nil {
		return SpecializedFunction{}, err
	}
	info.Specs = append(info.Specs, SpecializedFunctionInfo[T]{
		Sig:       conflict.Sig.Clone(),
		Body:      body,
		Backedges: make(map[CallSite]struct{}),
	})
	return SpecializedFunction{Staged: conflict.Staged, Index: uint32(len(info.Specs) - 1)}, nil
}

func (st *StageInfo[L, T]) checkSpecBody(sig Signature[T], body Region) error {
	region, err := st.regions.Get(body)
	if err != nil {
		return err
	}
	if !region.Head.IsValid() {
		return fmt.Errorf("specialization body has no entry block: %w", ErrInvalidTerminator)
	}
	entry := st.blocks.MustGet(region.Head)
	if len(entry.Params) != len(sig.Params) {
		return fmt.Errorf("entry block has %d parameters, signature has %d: %w",
			len(entry.Params), len(sig.Params), ErrArityMismatch)
	}
	return nil
}

// EntryBlock returns the entry block of a specialization's body.
func (st *StageInfo[L, T]) EntryBlock(fn SpecializedFunction) (Block, error) {
	spec, err := st.Spec(fn)
	if err != nil {
		return NoBlock, err
	}
	region, err := st.regions.Get(spec.Body)
	if err != nil {
		return NoBlock, err
	}
	return region.Head, nil
}

// --- backedges --------------------------------------------------------------

// BackedgeRegistry records and clears inbound call sites against callees.
// StageInfo registers its own calls when standalone; a pipeline installs an
// implementation that routes registration across stages.
type BackedgeRegistry interface {
	RegisterCall(callee SpecializedFunction, calleeStage CompileStage, site CallSite)
	UnregisterCall(callee SpecializedFunction, calleeStage CompileStage, site CallSite)
}

// RegisterCall implements BackedgeRegistry for the standalone case: calls
// into other stages are unreachable without a pipeline and are dropped.
func (st *StageInfo[L, T]) RegisterCall(callee SpecializedFunction, calleeStage CompileStage, site CallSite) {
	if calleeStage != st.id {
		return
	}
	st.AddBackedge(callee, site)
}

// UnregisterCall implements BackedgeRegistry for the standalone case.
func (st *StageInfo[L, T]) UnregisterCall(callee SpecializedFunction, calleeStage CompileStage, site CallSite) {
	if calleeStage != st.id {
		return
	}
	st.RemoveBackedge(callee, site)
}

// AddBackedge records an inbound call site on a specialization of this
// stage. Invalid references are ignored; backedge maintenance is best-effort
// bookkeeping, not validation.
func (st *StageInfo[L, T]) AddBackedge(callee SpecializedFunction, site CallSite) {
	if spec, err := st.Spec(callee); err == nil {
		spec.Backedges[site] = struct{}{}
	}
}

// RemoveBackedge clears an inbound call site.
func (st *StageInfo[L, T]) RemoveBackedge(callee SpecializedFunction, site CallSite) {
	if spec, err := st.Spec(callee); err == nil {
		delete(spec.Backedges, site)
	}
}

func (st *StageInfo[L, T]) notifyCall(s Statement, def L, add bool) {
	call, ok := As[CallLike](def)
	if !ok {
		return
	}
	callee, calleeStage, resolved := call.CallTarget()
	if !resolved {
		return
	}
	site := CallSite{Stage: st.id, Stmt: s}
	if add {
		st.backedges.RegisterCall(callee, calleeStage, site)
	} else {
		st.backedges.UnregisterCall(callee, calleeStage, site)
	}
}
