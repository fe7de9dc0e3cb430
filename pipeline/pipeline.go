// Package pipeline ties compile stages together: it owns the stage set and
// its identity mapping, the pipeline-wide symbol table, the abstract function
// registry with its per-stage map, and the informational lowering graph
// between stages.
package pipeline

import (
	"errors"
	"fmt"

	"kirin/arena"
	"kirin/intern"
	"kirin/ir"
)

// ErrStageMismatch reports a stage lookup whose storage does not host the
// requested dialect, or a function with no staged entry at the requested
// stage.
var ErrStageMismatch = errors.New("stage mismatch")

// ErrUnknownStage reports a stage ID the pipeline never issued.
var ErrUnknownStage = errors.New("unknown stage")

// Function identifies an abstract named callable in the pipeline's function
// registry.
type Function uint32

// NoFunction marks the absence of a function reference.
const NoFunction Function = 0

// IsValid reports whether the ID refers to a registered function.
func (f Function) IsValid() bool { return f != NoFunction }

// stagedEntry is one (stage, staged function) pair of a FunctionInfo, kept
// in attachment order.
type stagedEntry struct {
	Stage ir.CompileStage
	Fn    ir.StagedFunction
}

// FunctionInfo is a named abstract callable: a global symbol plus the
// insertion-ordered mapping from compile stage to staged function. All
// staged entries describe the same operation viewed through different type
// systems.
type FunctionInfo struct {
	Name    ir.GlobalSymbol
	entries []stagedEntry
	index   map[ir.CompileStage]int
}

// Pipeline holds the stages, the global symbol table, and the function
// registry. Stages are added once and never removed; their IDs are dense
// from 1.
type Pipeline struct {
	stages  []ir.Stage
	byName  map[string]ir.CompileStage
	globals *intern.Table[string, ir.GlobalSymbol]
	funcs   *arena.Arena[Function, FunctionInfo]
	fnIndex map[ir.GlobalSymbol]Function
	// lowering edges are purely informational: stage A lowers into stage B.
	lowering map[ir.CompileStage][]ir.CompileStage
}

// New creates an empty pipeline.
func New() *Pipeline {
	return &Pipeline{
		byName:   make(map[string]ir.CompileStage),
		globals:  intern.NewTable[string, ir.GlobalSymbol](),
		funcs:    arena.New[Function, FunctionInfo](8),
		fnIndex:  make(map[ir.GlobalSymbol]Function),
		lowering: make(map[ir.CompileStage][]ir.CompileStage),
	}
}

// AddStage registers a stage and assigns its identity. The stage's display
// name is interned globally and becomes addressable via StageByName. The
// pipeline installs itself as the stage's backedge registry so call sites
// reach callees across stages.
func (p *Pipeline) AddStage(st ir.Stage) ir.CompileStage {
	id := ir.CompileStage(len(p.stages) + 1)
	st.Bind(id, p)
	p.stages = append(p.stages, st)
	name := st.DisplayName()
	if name != "" {
		p.globals.Intern(name)
		p.byName[name] = id
	}
	return id
}

// Stage returns the stage registered under id.
func (p *Pipeline) Stage(id ir.CompileStage) (ir.Stage, error) {
	if !id.IsValid() || int(id) > len(p.stages) {
		return nil, fmt.Errorf("stage %d: %w", id, ErrUnknownStage)
	}
	return p.stages[id-1], nil
}

// StageByName resolves a stage by its display name.
func (p *Pipeline) StageByName(name string) (ir.CompileStage, error) {
	id, ok := p.byName[name]
	if !ok {
		return ir.NoCompileStage, fmt.Errorf("stage %q: %w", name, ir.ErrUnknownSymbol)
	}
	return id, nil
}

// Stages returns the number of registered stages.
func (p *Pipeline) Stages() int { return len(p.stages) }

// AddLoweringEdge records that from lowers into to. The graph carries no
// behavior; tools read it for display and scheduling.
func (p *Pipeline) AddLoweringEdge(from, to ir.CompileStage) {
	p.lowering[from] = append(p.lowering[from], to)
}

// LoweringTargets returns the stages from lowers into, in insertion order.
func (p *Pipeline) LoweringTargets(from ir.CompileStage) []ir.CompileStage {
	return p.lowering[from]
}

// StageOf returns the stage's storage typed to the dialect L with type
// attribute T. A stage hosting a different dialect fails with
// ErrStageMismatch.
func StageOf[L ir.Definition, T comparable](p *Pipeline, id ir.CompileStage) (*ir.StageInfo[L, T], error) {
	st, err := p.Stage(id)
	if err != nil {
		return nil, err
	}
	typed, ok := st.(*ir.StageInfo[L, T])
	if !ok {
		return nil, fmt.Errorf("stage %q does not host the requested dialect: %w", st.DisplayName(), ErrStageMismatch)
	}
	return typed, nil
}

// --- function registry ------------------------------------------------------

// Intern interns a pipeline-wide symbol.
func (p *Pipeline) Intern(name string) ir.GlobalSymbol { return p.globals.Intern(name) }

// SymbolName resolves a global symbol back to its string.
func (p *Pipeline) SymbolName(sym ir.GlobalSymbol) (string, bool) { return p.globals.Lookup(sym) }

// Function creates or returns the abstract function registered under name.
func (p *Pipeline) Function(name string) Function {
	sym := p.globals.Intern(name)
	if fn, ok := p.fnIndex[sym]; ok {
		return fn
	}
	fn := p.funcs.Alloc(FunctionInfo{
		Name:  sym,
		index: make(map[ir.CompileStage]int),
	})
	p.fnIndex[sym] = fn
	return fn
}

// FunctionByName resolves a function without creating it.
func (p *Pipeline) FunctionByName(name string) (Function, error) {
	sym, ok := p.globals.Resolve(name)
	if !ok {
		return NoFunction, fmt.Errorf("function %q: %w", name, ir.ErrUnknownSymbol)
	}
	fn, ok := p.fnIndex[sym]
	if !ok {
		return NoFunction, fmt.Errorf("function %q: %w", name, ir.ErrUnknownSymbol)
	}
	return fn, nil
}

// FunctionInfo returns the registry record for fn.
func (p *Pipeline) FunctionInfo(fn Function) (*FunctionInfo, error) {
	return p.funcs.Get(fn)
}

// Link attaches a staged function to fn at the given stage. A later Link for
// the same stage replaces the mapping (the staged entry itself records
// invalidation).
func (p *Pipeline) Link(fn Function, stage ir.CompileStage, sf ir.StagedFunction) error {
	info, err := p.funcs.Get(fn)
	if err != nil {
		return err
	}
	if i, ok := info.index[stage]; ok {
		info.entries[i].Fn = sf
		return nil
	}
	info.index[stage] = len(info.entries)
	info.entries = append(info.entries, stagedEntry{Stage: stage, Fn: sf})
	return nil
}

// StagedAt returns the staged function attached to fn at stage.
func (p *Pipeline) StagedAt(fn Function, stage ir.CompileStage) (ir.StagedFunction, error) {
	info, err := p.funcs.Get(fn)
	if err != nil {
		return ir.NoStagedFunction, err
	}
	i, ok := info.index[stage]
	if !ok {
		return ir.NoStagedFunction, fmt.Errorf("function has no entry at stage %d: %w", stage, ErrStageMismatch)
	}
	return info.entries[i].Fn, nil
}

// StagedEntries calls visit for each staged entry in attachment order.
func (p *Pipeline) StagedEntries(fn Function, visit func(ir.CompileStage, ir.StagedFunction) bool) error {
	info, err := p.funcs.Get(fn)
	if err != nil {
		return err
	}
	for _, e := range info.entries {
		if !visit(e.Stage, e.Fn) {
			return nil
		}
	}
	return nil
}

// --- backedge routing -------------------------------------------------------

// RegisterCall implements ir.BackedgeRegistry across stages.
func (p *Pipeline) RegisterCall(callee ir.SpecializedFunction, calleeStage ir.CompileStage, site ir.CallSite) {
	if st, err := p.Stage(calleeStage); err == nil {
		st.AddBackedge(callee, site)
	}
}

// UnregisterCall implements ir.BackedgeRegistry across stages.
func (p *Pipeline) UnregisterCall(callee ir.SpecializedFunction, calleeStage ir.CompileStage, site ir.CallSite) {
	if st, err := p.Stage(calleeStage); err == nil {
		st.RemoveBackedge(callee, site)
	}
}
