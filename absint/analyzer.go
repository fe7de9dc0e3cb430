package absint

import (
	"kirin/interp"
	"kirin/ir"
	"kirin/lattice"
	"kirin/pipeline"
)

// summaryKey identifies one analyzed callee: summaries are keyed by the
// callee and its owning stage; the argument abstraction selects among a
// cache's entries.
type summaryKey struct {
	Stage  ir.CompileStage
	Callee ir.SpecializedFunction
}

// aframe is one analysis activation: the flat value map shared by all paths
// through the function, plus the per-function fixpoint state.
type aframe[V any] struct {
	callee ir.SpecializedFunction
	stage  ir.CompileStage
	values map[ir.SSAValue]V

	worklist []ir.Block
	inList   map[ir.Block]struct{}
	// blockArgs records each visited block's parameter SSA values; key
	// presence doubles as the visited marker.
	blockArgs map[ir.Block][]ir.SSAValue
	// visits counts ascending revisits per block for DelayedN.
	visits map[ir.Block]int
}

func newAFrame[V any](callee ir.SpecializedFunction, stage ir.CompileStage) *aframe[V] {
	return &aframe[V]{
		callee:    callee,
		stage:     stage,
		values:    make(map[ir.SSAValue]V),
		inList:    make(map[ir.Block]struct{}),
		blockArgs: make(map[ir.Block][]ir.SSAValue),
		visits:    make(map[ir.Block]int),
	}
}

func (f *aframe[V]) enqueue(b ir.Block) {
	if _, ok := f.inList[b]; ok {
		return
	}
	f.inList[b] = struct{}{}
	f.worklist = append(f.worklist, b)
}

func (f *aframe[V]) dequeue() (ir.Block, bool) {
	if len(f.worklist) == 0 {
		return ir.NoBlock, false
	}
	b := f.worklist[0]
	f.worklist = f.worklist[1:]
	delete(f.inList, b)
	return b, true
}

// Analyzer computes, per reachable block entry, an over-approximation of the
// values each SSA value may take, widening to a post-fixpoint and optionally
// narrowing back down. Unlike the stack machine it explores all paths,
// merging states at block entries.
type Analyzer[V lattice.AbstractValue[V]] struct {
	pl     *pipeline.Pipeline
	active ir.CompileStage
	frames []*aframe[V]

	widening             Widening
	maxIterations        int
	narrowingIterations  int
	maxSummaryIterations int
	summaries            map[summaryKey]*SummaryCache[V]
	global               any
	// cursor tracks the statement being evaluated, for error reporting.
	cursor ir.Statement
}

// NewAnalyzer creates an analyzer over pl with the given active stage and
// the default configuration: widen at every join, 1000 worklist pops, 3
// narrowing sweeps, 100 summary iterations.
func NewAnalyzer[V lattice.AbstractValue[V]](pl *pipeline.Pipeline, active ir.CompileStage) *Analyzer[V] {
	return &Analyzer[V]{
		pl:                   pl,
		active:               active,
		widening:             Widening{Strategy: AllJoins},
		maxIterations:        1000,
		narrowingIterations:  3,
		maxSummaryIterations: 100,
		summaries:            make(map[summaryKey]*SummaryCache[V]),
	}
}

// WithWidening selects the widening strategy.
func (a *Analyzer[V]) WithWidening(w Widening) *Analyzer[V] {
	a.widening = w
	return a
}

// WithMaxIterations caps worklist pops per function analysis.
func (a *Analyzer[V]) WithMaxIterations(n int) *Analyzer[V] {
	a.maxIterations = n
	return a
}

// WithNarrowingIterations bounds the descending phase; zero disables it.
func (a *Analyzer[V]) WithNarrowingIterations(n int) *Analyzer[V] {
	a.narrowingIterations = n
	return a
}

// WithMaxSummaryIterations caps outer iterations for recursive summaries.
func (a *Analyzer[V]) WithMaxSummaryIterations(n int) *Analyzer[V] {
	a.maxSummaryIterations = n
	return a
}

// WithGlobal attaches global state reachable via the HasGlobal assertion.
func (a *Analyzer[V]) WithGlobal(g any) *Analyzer[V] {
	a.global = g
	return a
}

// Pipeline implements interp.HasPipeline.
func (a *Analyzer[V]) Pipeline() *pipeline.Pipeline { return a.pl }

// ActiveStage implements interp.HasPipeline.
func (a *Analyzer[V]) ActiveStage() ir.CompileStage { return a.active }

// Global implements interp.HasGlobal.
func (a *Analyzer[V]) Global() any { return a.global }

// SetGlobal implements interp.HasGlobal.
func (a *Analyzer[V]) SetGlobal(v any) { a.global = v }

// Cursor returns the statement whose semantics ran last, for error
// reporting when an evaluation fails mid-block.
func (a *Analyzer[V]) Cursor() ir.Statement { return a.cursor }

func (a *Analyzer[V]) currentFrame() (*aframe[V], error) {
	if len(a.frames) == 0 {
		return nil, interp.NoFrame()
	}
	return a.frames[len(a.frames)-1], nil
}

// ReadRef implements interp.Interp on the current analysis frame.
func (a *Analyzer[V]) ReadRef(v ir.SSAValue) (*V, error) {
	frame, err := a.currentFrame()
	if err != nil {
		return nil, err
	}
	if val, ok := frame.values[v]; ok {
		return &val, nil
	}
	return nil, interp.UnboundValue(v)
}

// Read implements interp.Interp.
func (a *Analyzer[V]) Read(v ir.SSAValue) (V, error) {
	ref, err := a.ReadRef(v)
	if err != nil {
		var zero V
		return zero, err
	}
	return *ref, nil
}

// Write implements interp.Interp.
func (a *Analyzer[V]) Write(result ir.SSAValue, value V) error {
	frame, err := a.currentFrame()
	if err != nil {
		return err
	}
	frame.values[result] = value
	return nil
}

// --- summary management -----------------------------------------------------

func (a *Analyzer[V]) cache(key summaryKey) *SummaryCache[V] {
	c, ok := a.summaries[key]
	if !ok {
		c = &SummaryCache[V]{}
		a.summaries[key] = c
	}
	return c
}

// InsertFixedSummary installs a summary the analysis will always return for
// callee at stage and never recompute. Use it to model externs.
func (a *Analyzer[V]) InsertFixedSummary(callee ir.SpecializedFunction, stage ir.CompileStage, result *Result[V]) {
	a.cache(summaryKey{Stage: stage, Callee: callee}).SetFixed(result)
}

// SeedSummary installs a refinable entry the analysis may improve upon.
func (a *Analyzer[V]) SeedSummary(callee ir.SpecializedFunction, stage ir.CompileStage, args []V, result *Result[V]) {
	a.cache(summaryKey{Stage: stage, Callee: callee}).PushEntry(args, result)
}

// Summary looks up the best cached result for callee at stage given args.
func (a *Analyzer[V]) Summary(callee ir.SpecializedFunction, stage ir.CompileStage, args []V) *Result[V] {
	c, ok := a.summaries[summaryKey{Stage: stage, Callee: callee}]
	if !ok {
		return nil
	}
	return c.Lookup(args)
}

// InvalidateSummary marks all computed entries for callee at stage
// invalidated so the next Analyze recomputes. Fixed summaries are not
// affected. Returns the number invalidated.
func (a *Analyzer[V]) InvalidateSummary(callee ir.SpecializedFunction, stage ir.CompileStage) int {
	c, ok := a.summaries[summaryKey{Stage: stage, Callee: callee}]
	if !ok {
		return 0
	}
	return c.Invalidate()
}

// GCSummaries drops invalidated entries across all callees.
func (a *Analyzer[V]) GCSummaries() {
	for key, c := range a.summaries {
		if c.GC() {
			delete(a.summaries, key)
		}
	}
}
