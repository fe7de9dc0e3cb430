package absint

import "kirin/lattice"

// SummaryEntry is one context-sensitive cache entry: the argument
// abstraction it was computed for and the result.
type SummaryEntry[V any] struct {
	Args   []V
	Result *Result[V]
	// Invalidated entries are skipped during lookup but retained until
	// garbage-collected, mirroring the function model's invalidation
	// policy.
	Invalidated bool
}

// SummaryCache caches analysis results for one (callee, stage) pair across
// call contexts:
//
//   - an optional fixed summary, user-supplied and never overwritten;
//   - computed entries, one per analyzed argument abstraction, looked up by
//     tightest subsuming match;
//   - at most one tentative entry carrying the in-progress result during a
//     recursive fixpoint.
type SummaryCache[V lattice.AbstractValue[V]] struct {
	fixed     *Result[V]
	entries   []SummaryEntry[V]
	tentative *SummaryEntry[V]
}

// SetFixed installs a summary the analysis returns unconditionally and never
// recomputes.
func (c *SummaryCache[V]) SetFixed(result *Result[V]) {
	c.fixed = result
}

// Fixed returns the fixed summary, if any.
func (c *SummaryCache[V]) Fixed() *Result[V] { return c.fixed }

// PushEntry appends a computed or seed entry.
func (c *SummaryCache[V]) PushEntry(args []V, result *Result[V]) {
	c.entries = append(c.entries, SummaryEntry[V]{Args: args, Result: result})
}

// SetTentative installs the in-progress entry for a recursive fixpoint.
func (c *SummaryCache[V]) SetTentative(args []V, result *Result[V]) {
	c.tentative = &SummaryEntry[V]{Args: args, Result: result}
}

// TentativeResult returns the in-progress result, if any.
func (c *SummaryCache[V]) TentativeResult() *Result[V] {
	if c.tentative == nil {
		return nil
	}
	return c.tentative.Result
}

// PromoteTentative commits the in-progress entry as a computed one.
func (c *SummaryCache[V]) PromoteTentative(args []V, result *Result[V]) {
	c.tentative = nil
	c.PushEntry(args, result)
}

// Invalidate marks every computed entry invalidated and drops the tentative
// one. The fixed summary is untouched. Returns the number invalidated.
func (c *SummaryCache[V]) Invalidate() int {
	n := 0
	for i := range c.entries {
		if !c.entries[i].Invalidated {
			c.entries[i].Invalidated = true
			n++
		}
	}
	c.tentative = nil
	return n
}

// GC removes invalidated entries. Reports whether the cache is now empty.
func (c *SummaryCache[V]) GC() bool {
	live := c.entries[:0]
	for _, e := range c.entries {
		if !e.Invalidated {
			live = append(live, e)
		}
	}
	c.entries = live
	return c.IsEmpty()
}

// IsEmpty reports whether the cache holds nothing at all.
func (c *SummaryCache[V]) IsEmpty() bool {
	return c.fixed == nil && len(c.entries) == 0 && c.tentative == nil
}

// findBestMatch returns the tightest live entry whose cached arguments
// subsume query pointwise: among all subsuming entries, the one every other
// match subsumes in turn.
func (c *SummaryCache[V]) findBestMatch(query []V) *SummaryEntry[V] {
	var best *SummaryEntry[V]
	for i := range c.entries {
		e := &c.entries[i]
		if e.Invalidated || len(e.Args) != len(query) {
			continue
		}
		subsumes := true
		for j, q := range query {
			if !q.IsSubsetEq(e.Args[j]) {
				subsumes = false
				break
			}
		}
		if !subsumes {
			continue
		}
		if best == nil {
			best = e
			continue
		}
		tighter := true
		for j := range e.Args {
			if !e.Args[j].IsSubsetEq(best.Args[j]) {
				tighter = false
				break
			}
		}
		if tighter {
			best = e
		}
	}
	return best
}

// Lookup returns the fixed summary when present, otherwise the best
// subsuming computed entry.
func (c *SummaryCache[V]) Lookup(query []V) *Result[V] {
	if c.fixed != nil {
		return c.fixed
	}
	if e := c.findBestMatch(query); e != nil {
		return e.Result
	}
	return nil
}
