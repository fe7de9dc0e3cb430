package ir

// WalkAction directs a traversal after each visited statement.
type WalkAction uint8

const (
	// WalkContinue proceeds depth-first into the statement's regions.
	WalkContinue WalkAction = iota
	// WalkSkip proceeds to the next sibling without entering regions.
	WalkSkip
	// WalkStop short-circuits the whole traversal.
	WalkStop
)

// Walk visits every statement in r depth-first: blocks in region order,
// statements in list order, nested regions immediately after their owner.
// Reports whether the traversal ran to completion (was not stopped).
func (st *StageInfo[L, T]) Walk(r Region, visit func(Statement, L) WalkAction) (bool, error) {
	region, err := st.regions.Get(r)
	if err != nil {
		return false, err
	}
	for b := region.Head; b.IsValid(); {
		block, err := st.blocks.Get(b)
		if err != nil {
			return false, err
		}
		for s := block.Head; s.IsValid(); {
			stmt, err := st.stmts.Get(s)
			if err != nil {
				return false, err
			}
			next := stmt.Next
			switch visit(s, stmt.Def) {
			case WalkStop:
				return false, nil
			case WalkContinue:
				for _, nested := range stmt.Def.Regions() {
					done, err := st.Walk(nested, visit)
					if err != nil {
						return false, err
					}
					if !done {
						return false, nil
					}
				}
			case WalkSkip:
			}
			s = next
		}
		b = block.Next
	}
	return true, nil
}
