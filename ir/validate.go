package ir

import (
	"errors"
	"fmt"
)

// Validate checks the structural invariants over the whole stage.
// Returns the joined list of violations, or nil.
func (st *StageInfo[L, T]) Validate() error {
	var errs []error
	errs = append(errs, st.validateUses()...)
	errs = append(errs, st.validateBlocks()...)
	errs = append(errs, st.validateRegions()...)
	return errors.Join(errs...)
}

// validateUses checks both directions of the use-list invariant.
func (st *StageInfo[L, T]) validateUses() []error {
	var errs []error
	for v, info := range st.ssas.IterLive() {
		for use := range info.uses {
			stmt, err := st.stmts.Get(use.Stmt)
			if err != nil {
				errs = append(errs, fmt.Errorf("value %v used by dead statement %d: %w", v, use.Stmt, err))
				continue
			}
			operands := stmt.Def.Operands()
			if use.Operand >= len(operands) || operands[use.Operand] != v {
				errs = append(errs, fmt.Errorf(
					"use list of %v claims operand %d of statement %d: %w",
					v, use.Operand, use.Stmt, ErrArityMismatch))
			}
		}
	}
	for s, stmt := range st.stmts.IterLive() {
		for i, op := range stmt.Def.Operands() {
			info, err := st.ssas.Get(op)
			if err != nil {
				errs = append(errs, fmt.Errorf("statement %d operand %d reads dead value %v: %w", s, i, op, err))
				continue
			}
			if _, ok := info.uses[Use{Stmt: s, Operand: i}]; !ok {
				errs = append(errs, fmt.Errorf(
					"operand %d of statement %d missing from use list of %v: %w",
					i, s, op, ErrArityMismatch))
			}
		}
	}
	return errs
}

// validateBlocks checks the terminator discipline and successor scoping.
func (st *StageInfo[L, T]) validateBlocks() []error {
	var errs []error
	for b, block := range st.blocks.IterLive() {
		if !block.Parent.IsValid() {
			continue // detached blocks are staging material
		}
		if !block.Tail.IsValid() {
			errs = append(errs, fmt.Errorf("block %v is empty: %w", b, ErrInvalidTerminator))
			continue
		}
		for s := block.Head; s.IsValid(); {
			stmt := st.stmts.MustGet(s)
			if stmt.Def.IsTerminator() != (s == block.Tail) {
				if s == block.Tail {
					errs = append(errs, fmt.Errorf("block %v does not end with a terminator: %w", b, ErrInvalidTerminator))
				} else {
					errs = append(errs, fmt.Errorf("terminator before the tail of block %v: %w", b, ErrInvalidTerminator))
				}
			}
			if stmt.Parent != b {
				errs = append(errs, fmt.Errorf("statement %d in list of %v claims parent %v: %w",
					s, b, stmt.Parent, ErrOrphanStatement))
			}
			for _, succ := range stmt.Def.Successors() {
				target, err := st.blocks.Get(succ)
				if err != nil {
					errs = append(errs, fmt.Errorf("block %v successor %v: %w", b, succ, err))
					continue
				}
				if target.Parent != block.Parent {
					errs = append(errs, fmt.Errorf("block %v successor %v: %w", b, succ, ErrCrossRegionSuccessor))
				}
			}
			s = stmt.Next
		}
	}
	return errs
}

// validateRegions checks that every placed block is reachable from its
// region's entry via successor edges.
func (st *StageInfo[L, T]) validateRegions() []error {
	var errs []error
	for r, region := range st.regions.IterLive() {
		if !region.Head.IsValid() {
			continue
		}
		reached := make(map[Block]bool, region.Count)
		stack := []Block{region.Head}
		for len(stack) > 0 {
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if reached[b] {
				continue
			}
			reached[b] = true
			block, err := st.blocks.Get(b)
			if err != nil || !block.Tail.IsValid() {
				continue
			}
			for _, succ := range st.stmts.MustGet(block.Tail).Def.Successors() {
				stack = append(stack, succ)
			}
		}
		for b := region.Head; b.IsValid(); b = st.blocks.MustGet(b).Next {
			if !reached[b] {
				errs = append(errs, fmt.Errorf("region %d: block %v unreachable from entry", r, b))
			}
		}
	}
	return errs
}
