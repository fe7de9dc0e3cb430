package ir

// StatementInfo is the per-statement record: the intrusive sibling links
// inside the owning block, and the dialect definition that carries the
// statement's operands, results, successors, regions, and properties.
type StatementInfo[L Definition] struct {
	// Parent is the owning block, or NoBlock while detached.
	Parent Block
	// Prev and Next are the sibling links in the parent's statement list.
	Prev, Next Statement
	// Def is the dialect payload.
	Def L
}

// BlockInfo is the per-block record: region membership, sibling links,
// ordered block parameters, and the intrusive statement list.
//
// A well-formed block ends with exactly one terminator; Validate enforces
// it, and the placement APIs refuse edits that would break it.
type BlockInfo struct {
	// Parent is the owning region, or NoRegion while detached.
	Parent Region
	// Prev and Next are the sibling links in the parent's block list.
	Prev, Next Block
	// Params are the block parameters, in order. Each is an SSABlockParam
	// value in the stage's value arena.
	Params []SSAValue
	// Head and Tail delimit the statement list; Count is its length.
	Head, Tail Statement
	Count      int
	// Name is an optional interned label.
	Name Symbol
}

// RegionInfo is the per-region record: the owning statement and the ordered
// block list. The entry block is the head.
type RegionInfo struct {
	// Owner is the statement that contains this region, or NoStatement for
	// a top-level function body.
	Owner Statement
	// Head and Tail delimit the block list; Count is its length.
	Head, Tail Block
	Count      int
}
