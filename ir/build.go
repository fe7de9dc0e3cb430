package ir

import "fmt"

// Construction API. External parsers and builders drive these entry points
// with flat data: block labels, parameter types, operand lists, and dialect
// payloads. Statements are created detached and then placed into a block.

// NewRegion allocates a region. owner is the containing statement, or
// NoStatement for a top-level function body.
func (st *StageInfo[L, T]) NewRegion(owner Statement) Region {
	return st.regions.Alloc(RegionInfo{Owner: owner})
}

// AppendBlock allocates a block at the tail of r, creating one block
// parameter per entry of paramTypes. The parameter values are returned in
// order.
func (st *StageInfo[L, T]) AppendBlock(r Region, paramTypes ...T) (Block, []SSAValue, error) {
	region, err := st.regions.Get(r)
	if err != nil {
		return NoBlock, nil, err
	}
	b := st.blocks.Alloc(BlockInfo{Parent: r, Prev: region.Tail})
	params := make([]SSAValue, len(paramTypes))
	for i, ty := range paramTypes {
		params[i] = st.ssas.Alloc(SSAInfo[T]{
			Kind:       SSABlockParam,
			OwnerBlock: b,
			Index:      i,
			Type:       ty,
		})
	}
	st.blocks.MustGet(b).Params = params

	if region.Tail.IsValid() {
		st.blocks.MustGet(region.Tail).Next = b
	} else {
		region.Head = b
	}
	region.Tail = b
	region.Count++
	return b, params, nil
}

// RemoveBlock unlinks b from its region. The block and its contents stay
// allocated and can be erased with EraseBlock; no entry point places an
// existing block back into a region.
func (st *StageInfo[L, T]) RemoveBlock(b Block) error {
	block, err := st.blocks.Get(b)
	if err != nil {
		return err
	}
	if !block.Parent.IsValid() {
		return fmt.Errorf("block %v is not in a region: %w", b, ErrOrphanStatement)
	}
	region := st.regions.MustGet(block.Parent)
	if block.Prev.IsValid() {
		st.blocks.MustGet(block.Prev).Next = block.Next
	} else {
		region.Head = block.Next
	}
	if block.Next.IsValid() {
		st.blocks.MustGet(block.Next).Prev = block.Prev
	} else {
		region.Tail = block.Prev
	}
	block.Parent, block.Prev, block.Next = NoRegion, NoBlock, NoBlock
	region.Count--
	return nil
}

// SetBlockName attaches an interned label to b for display and symbolic
// reference by parsers.
func (st *StageInfo[L, T]) SetBlockName(b Block, name string) error {
	block, err := st.blocks.Get(b)
	if err != nil {
		return err
	}
	block.Name = st.symbols.Intern(name)
	return nil
}

// NewStatement allocates a detached statement for def, creating one result
// SSA value per entry of resultTypes and writing it into the definition's
// result view. The definition must have allocated its result slice at the
// final length. Operand uses are recorded immediately, so rewrites reach
// detached statements too.
func (st *StageInfo[L, T]) NewStatement(def L, resultTypes ...T) (Statement, []SSAValue, error) {
	results := def.Results()
	if len(results) != len(resultTypes) {
		return NoStatement, nil, fmt.Errorf(
			"definition has %d result slots, %d types given: %w",
			len(results), len(resultTypes), ErrArityMismatch)
	}
	for _, op := range def.Operands() {
		if !st.ssas.IsLive(op) {
			return NoStatement, nil, fmt.Errorf("operand %v is not a live value: %w", op, ErrUnknownSymbol)
		}
	}
	s := st.stmts.Alloc(StatementInfo[L]{Def: def})
	for i, ty := range resultTypes {
		results[i] = st.ssas.Alloc(SSAInfo[T]{
			Kind:      SSAResult,
			OwnerStmt: s,
			Index:     i,
			Type:      ty,
		})
	}
	for i, op := range def.Operands() {
		st.ssas.MustGet(op).addUse(Use{Stmt: s, Operand: i})
	}
	return s, results, nil
}

// SetValueName attaches an interned debug name to an SSA value.
func (st *StageInfo[L, T]) SetValueName(v SSAValue, name string) error {
	info, err := st.ssas.Get(v)
	if err != nil {
		return err
	}
	info.Name = st.symbols.Intern(name)
	return nil
}

// Append places a detached statement at the tail of b.
func (st *StageInfo[L, T]) Append(b Block, s Statement) error {
	block, err := st.blocks.Get(b)
	if err != nil {
		return err
	}
	stmt, err := st.stmts.Get(s)
	if err != nil {
		return err
	}
	if stmt.Parent.IsValid() {
		return fmt.Errorf("statement already placed in %v: %w", stmt.Parent, ErrOrphanStatement)
	}
	if block.Tail.IsValid() && st.stmts.MustGet(block.Tail).Def.IsTerminator() {
		return fmt.Errorf("block %v already terminated: %w", b, ErrInvalidTerminator)
	}
	if err := st.checkSuccessors(b, stmt.Def); err != nil {
		return err
	}
	stmt.Parent = b
	stmt.Prev = block.Tail
	stmt.Next = NoStatement
	if block.Tail.IsValid() {
		st.stmts.MustGet(block.Tail).Next = s
	} else {
		block.Head = s
	}
	block.Tail = s
	block.Count++
	st.notifyCall(s, stmt.Def, true)
	return nil
}

// InsertBefore places a detached statement immediately before cursor, which
// must itself be placed. Terminators cannot be inserted before the tail.
func (st *StageInfo[L, T]) InsertBefore(cursor, s Statement) error {
	cur, err := st.stmts.Get(cursor)
	if err != nil {
		return err
	}
	if !cur.Parent.IsValid() {
		return fmt.Errorf("cursor is detached: %w", ErrOrphanStatement)
	}
	stmt, err := st.stmts.Get(s)
	if err != nil {
		return err
	}
	if stmt.Parent.IsValid() {
		return fmt.Errorf("statement already placed in %v: %w", stmt.Parent, ErrOrphanStatement)
	}
	if stmt.Def.IsTerminator() {
		return fmt.Errorf("terminator must be the block tail: %w", ErrInvalidTerminator)
	}
	if err := st.checkSuccessors(cur.Parent, stmt.Def); err != nil {
		return err
	}
	block := st.blocks.MustGet(cur.Parent)
	stmt.Parent = cur.Parent
	stmt.Prev = cur.Prev
	stmt.Next = cursor
	if cur.Prev.IsValid() {
		st.stmts.MustGet(cur.Prev).Next = s
	} else {
		block.Head = s
	}
	cur.Prev = s
	block.Count++
	st.notifyCall(s, stmt.Def, true)
	return nil
}

// InsertAfter places a detached statement immediately after cursor, which
// must itself be placed and must not be a terminator.
func (st *StageInfo[L, T]) InsertAfter(cursor, s Statement) error {
	cur, err := st.stmts.Get(cursor)
	if err != nil {
		return err
	}
	if !cur.Parent.IsValid() {
		return fmt.Errorf("cursor is detached: %w", ErrOrphanStatement)
	}
	if cur.Def.IsTerminator() {
		return fmt.Errorf("cannot insert after a terminator: %w", ErrInvalidTerminator)
	}
	if !cur.Next.IsValid() {
		return st.Append(cur.Parent, s)
	}
	return st.InsertBefore(cur.Next, s)
}

// Remove unlinks a placed statement from its block. The statement stays
// allocated and detached; use EraseStatement to destroy it.
func (st *StageInfo[L, T]) Remove(s Statement) error {
	stmt, err := st.stmts.Get(s)
	if err != nil {
		return err
	}
	if !stmt.Parent.IsValid() {
		return fmt.Errorf("statement is detached: %w", ErrOrphanStatement)
	}
	block := st.blocks.MustGet(stmt.Parent)
	if stmt.Prev.IsValid() {
		st.stmts.MustGet(stmt.Prev).Next = stmt.Next
	} else {
		block.Head = stmt.Next
	}
	if stmt.Next.IsValid() {
		st.stmts.MustGet(stmt.Next).Prev = stmt.Prev
	} else {
		block.Tail = stmt.Prev
	}
	stmt.Parent, stmt.Prev, stmt.Next = NoBlock, NoStatement, NoStatement
	block.Count--
	st.notifyCall(s, stmt.Def, false)
	return nil
}

// checkSuccessors verifies that a terminator's successors live in the same
// region as the block it is being placed into. Detached successors are
// tolerated; Validate catches them later.
func (st *StageInfo[L, T]) checkSuccessors(b Block, def L) error {
	succs := def.Successors()
	if len(succs) == 0 {
		return nil
	}
	region := st.blocks.MustGet(b).Parent
	if !region.IsValid() {
		return nil
	}
	for _, succ := range succs {
		target, err := st.blocks.Get(succ)
		if err != nil {
			return err
		}
		if target.Parent.IsValid() && target.Parent != region {
			return fmt.Errorf("successor %v is in another region: %w", succ, ErrCrossRegionSuccessor)
		}
	}
	return nil
}

// SetOperand rewrites operand i of s to v, keeping both use lists in sync.
func (st *StageInfo[L, T]) SetOperand(s Statement, i int, v SSAValue) error {
	stmt, err := st.stmts.Get(s)
	if err != nil {
		return err
	}
	operands := stmt.Def.Operands()
	if i < 0 || i >= len(operands) {
		return fmt.Errorf("operand index %d out of %d: %w", i, len(operands), ErrArityMismatch)
	}
	next, err := st.ssas.Get(v)
	if err != nil {
		return err
	}
	if prev, err := st.ssas.Get(operands[i]); err == nil {
		prev.removeUse(Use{Stmt: s, Operand: i})
	}
	operands[i] = v
	next.addUse(Use{Stmt: s, Operand: i})
	return nil
}
