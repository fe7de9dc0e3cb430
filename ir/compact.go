package ir

import "kirin/arena"

// StageRemap is the bundle of ID translations produced by one Compact run.
// All references held outside the stage (pipeline function maps, interpreter
// frames, saved snapshots) must be pushed through it by their owners.
type StageRemap struct {
	Stmts   arena.IDMap[Statement]
	Blocks  arena.IDMap[Block]
	Regions arena.IDMap[Region]
	Values  arena.IDMap[SSAValue]
	Staged  arena.IDMap[StagedFunction]
}

// Remappable is implemented by dialect definitions whose payload stores IR
// references beyond the structural views — a call's resolved callee, a
// payload-held block label. Compact calls it on every live definition after
// the views have been rewritten.
type Remappable interface {
	RemapAfterCompaction(m *StageRemap)
}

// Compact drops every tombstoned slot in the stage's arenas, renumbers the
// survivors, and rewrites all intra-stage references. The returned remap
// covers external references; applying it is the caller's responsibility.
func (st *StageInfo[L, T]) Compact() *StageRemap {
	m := &StageRemap{
		Stmts:   st.stmts.Compact(),
		Blocks:  st.blocks.Compact(),
		Regions: st.regions.Compact(),
		Values:  st.ssas.Compact(),
		Staged:  st.staged.Compact(),
	}

	for _, stmt := range st.stmts.IterLive() {
		m.Blocks.Apply(&stmt.Parent)
		m.Stmts.Apply(&stmt.Prev)
		m.Stmts.Apply(&stmt.Next)
		operands := stmt.Def.Operands()
		for i := range operands {
			m.Values.Apply(&operands[i])
		}
		results := stmt.Def.Results()
		for i := range results {
			m.Values.Apply(&results[i])
		}
		succs := stmt.Def.Successors()
		for i := range succs {
			m.Blocks.Apply(&succs[i])
		}
		regions := stmt.Def.Regions()
		for i := range regions {
			m.Regions.Apply(&regions[i])
		}
		if r, ok := As[Remappable](stmt.Def); ok {
			r.RemapAfterCompaction(m)
		}
	}

	for _, block := range st.blocks.IterLive() {
		m.Regions.Apply(&block.Parent)
		m.Blocks.Apply(&block.Prev)
		m.Blocks.Apply(&block.Next)
		m.Stmts.Apply(&block.Head)
		m.Stmts.Apply(&block.Tail)
		for i := range block.Params {
			m.Values.Apply(&block.Params[i])
		}
	}

	for _, region := range st.regions.IterLive() {
		m.Stmts.Apply(&region.Owner)
		m.Blocks.Apply(&region.Head)
		m.Blocks.Apply(&region.Tail)
	}

	for _, info := range st.ssas.IterLive() {
		m.Stmts.Apply(&info.OwnerStmt)
		m.Blocks.Apply(&info.OwnerBlock)
		if len(info.uses) == 0 {
			continue
		}
		uses := make(map[Use]struct{}, len(info.uses))
		for use := range info.uses {
			m.Stmts.Apply(&use.Stmt)
			if use.Stmt.IsValid() {
				uses[use] = struct{}{}
			}
		}
		info.uses = uses
	}

	for _, fn := range st.staged.IterLive() {
		st.remapBackedges(fn.Backedges, m)
		for i := range fn.Specs {
			m.Regions.Apply(&fn.Specs[i].Body)
			st.remapBackedges(fn.Specs[i].Backedges, m)
		}
	}

	for sym, fn := range st.funcs {
		m.Staged.Apply(&fn)
		st.funcs[sym] = fn
	}

	return m
}

// remapBackedges rewrites the statement component of local call sites.
// Sites recorded from other stages are untouched; their statement IDs belong
// to those stages.
func (st *StageInfo[L, T]) remapBackedges(set map[CallSite]struct{}, m *StageRemap) {
	changed := false
	for site := range set {
		if site.Stage == st.id {
			changed = true
			break
		}
	}
	if !changed {
		return
	}
	next := make(map[CallSite]struct{}, len(set))
	for site := range set {
		if site.Stage == st.id {
			m.Stmts.Apply(&site.Stmt)
			if !site.Stmt.IsValid() {
				continue
			}
		}
		next[site] = struct{}{}
	}
	clear(set)
	for site := range next {
		set[site] = struct{}{}
	}
}
