package ir

// Stage is the type-erased view of a StageInfo. The pipeline stores stages
// behind this interface, and the dynamic interpreter APIs drive execution
// through it so mixed-stage call chains work without knowing each stage's
// dialect. Typed code recovers the concrete *StageInfo[L, T] by type
// assertion (see pipeline.StageOf).
type Stage interface {
	ID() CompileStage
	Bind(id CompileStage, reg BackedgeRegistry)
	DisplayName() string
	Validate() error

	DefOf(s Statement) (Definition, error)
	NextOf(s Statement) (Statement, error)
	ParentOf(s Statement) (Block, error)
	FirstStmt(b Block) (Statement, error)
	ParamsOf(b Block) ([]SSAValue, error)

	StagedFunctionByName(name string) (StagedFunction, error)
	EntryBlock(fn SpecializedFunction) (Block, error)
	AddBackedge(callee SpecializedFunction, site CallSite)
	RemoveBackedge(callee SpecializedFunction, site CallSite)
}

// DefOf returns the dialect payload of s boxed as a Definition.
func (st *StageInfo[L, T]) DefOf(s Statement) (Definition, error) {
	info, err := st.stmts.Get(s)
	if err != nil {
		return nil, err
	}
	return info.Def, nil
}

// NextOf returns the statement after s in its block, or NoStatement at the
// tail.
func (st *StageInfo[L, T]) NextOf(s Statement) (Statement, error) {
	info, err := st.stmts.Get(s)
	if err != nil {
		return NoStatement, err
	}
	return info.Next, nil
}

// ParentOf returns the block holding s, or NoBlock while detached.
func (st *StageInfo[L, T]) ParentOf(s Statement) (Block, error) {
	info, err := st.stmts.Get(s)
	if err != nil {
		return NoBlock, err
	}
	return info.Parent, nil
}

// FirstStmt returns the head statement of b, or NoStatement for an empty
// block.
func (st *StageInfo[L, T]) FirstStmt(b Block) (Statement, error) {
	info, err := st.blocks.Get(b)
	if err != nil {
		return NoStatement, err
	}
	return info.Head, nil
}

// ParamsOf returns the block's parameter values in order.
func (st *StageInfo[L, T]) ParamsOf(b Block) ([]SSAValue, error) {
	info, err := st.blocks.Get(b)
	if err != nil {
		return nil, err
	}
	return info.Params, nil
}

var _ Stage = (*StageInfo[Leaf, struct{}])(nil)
