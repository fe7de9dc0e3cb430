package ir

import "fmt"

// Rewrite primitives. These are the mutations specialization and
// invalidation need; everything else composes from them.

// ReplaceAllUsesWith rewrites every use of old to now. For each recorded
// use (s, i), operand i of s becomes now; the use token moves from old's use
// list to now's. Both sides update together, so the use-list invariant holds
// at every return.
func (st *StageInfo[L, T]) ReplaceAllUsesWith(old, now SSAValue) error {
	if old == now {
		return nil
	}
	oldInfo, err := st.ssas.Get(old)
	if err != nil {
		return err
	}
	nowInfo, err := st.ssas.Get(now)
	if err != nil {
		return err
	}
	for use := range oldInfo.uses {
		stmt := st.stmts.MustGet(use.Stmt)
		stmt.Def.Operands()[use.Operand] = now
		nowInfo.addUse(use)
	}
	oldInfo.uses = nil
	return nil
}

// ReplaceStatement swaps a placed statement for a detached one: now takes
// old's position in the block, every use of old's results is rewritten to
// now's results, and old is erased. Result arities must match; the check
// runs before any mutation, so a mismatch leaves the IR untouched.
func (st *StageInfo[L, T]) ReplaceStatement(old, now Statement) error {
	oldStmt, err := st.stmts.Get(old)
	if err != nil {
		return err
	}
	if !oldStmt.Parent.IsValid() {
		return fmt.Errorf("replace target is detached: %w", ErrOrphanStatement)
	}
	nowStmt, err := st.stmts.Get(now)
	if err != nil {
		return err
	}
	if nowStmt.Parent.IsValid() {
		return fmt.Errorf("replacement already placed: %w", ErrOrphanStatement)
	}
	oldResults := oldStmt.Def.Results()
	nowResults := nowStmt.Def.Results()
	if len(oldResults) != len(nowResults) {
		return fmt.Errorf("replacement has %d results, old has %d: %w",
			len(nowResults), len(oldResults), ErrArityMismatch)
	}
	if oldStmt.Def.IsTerminator() != nowStmt.Def.IsTerminator() {
		return fmt.Errorf("replacement changes terminator-ness: %w", ErrInvalidTerminator)
	}

	// Splice now into old's position.
	block := st.blocks.MustGet(oldStmt.Parent)
	nowStmt.Parent = oldStmt.Parent
	nowStmt.Prev = oldStmt.Prev
	nowStmt.Next = oldStmt.Next
	if oldStmt.Prev.IsValid() {
		st.stmts.MustGet(oldStmt.Prev).Next = now
	} else {
		block.Head = now
	}
	if oldStmt.Next.IsValid() {
		st.stmts.MustGet(oldStmt.Next).Prev = now
	} else {
		block.Tail = now
	}
	oldStmt.Parent, oldStmt.Prev, oldStmt.Next = NoBlock, NoStatement, NoStatement

	for i := range oldResults {
		if err := st.ReplaceAllUsesWith(oldResults[i], nowResults[i]); err != nil {
			return err
		}
	}

	st.notifyCall(old, oldStmt.Def, false)
	st.notifyCall(now, nowStmt.Def, true)
	return st.eraseDetached(old)
}

// EraseStatement unlinks s from its block (if placed), drops its operand
// uses, destroys its result values, recursively erases its regions, and
// tombstones it in the arena. Erasing a call statement clears the callee's
// backedge.
func (st *StageInfo[L, T]) EraseStatement(s Statement) error {
	stmt, err := st.stmts.Get(s)
	if err != nil {
		return err
	}
	if stmt.Parent.IsValid() {
		if err := st.Remove(s); err != nil {
			return err
		}
	}
	return st.eraseDetached(s)
}

func (st *StageInfo[L, T]) eraseDetached(s Statement) error {
	stmt := st.stmts.MustGet(s)
	for i, op := range stmt.Def.Operands() {
		if info, err := st.ssas.Get(op); err == nil {
			info.removeUse(Use{Stmt: s, Operand: i})
		}
	}
	for _, res := range stmt.Def.Results() {
		st.ssas.MarkDeleted(res)
	}
	for _, r := range stmt.Def.Regions() {
		if err := st.EraseRegion(r); err != nil {
			return err
		}
	}
	st.stmts.MarkDeleted(s)
	return nil
}

// EraseBlock erases every statement in b, destroys its parameters, unlinks
// it from its region (if placed), and tombstones it.
func (st *StageInfo[L, T]) EraseBlock(b Block) error {
	block, err := st.blocks.Get(b)
	if err != nil {
		return err
	}
	for block.Head.IsValid() {
		if err := st.EraseStatement(block.Head); err != nil {
			return err
		}
	}
	for _, p := range block.Params {
		st.ssas.MarkDeleted(p)
	}
	if block.Parent.IsValid() {
		if err := st.RemoveBlock(b); err != nil {
			return err
		}
	}
	st.blocks.MarkDeleted(b)
	return nil
}

// EraseRegion erases every block in r and tombstones the region.
func (st *StageInfo[L, T]) EraseRegion(r Region) error {
	region, err := st.regions.Get(r)
	if err != nil {
		return err
	}
	for region.Head.IsValid() {
		if err := st.EraseBlock(region.Head); err != nil {
			return err
		}
	}
	st.regions.MarkDeleted(r)
	return nil
}
