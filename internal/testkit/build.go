package testkit

import (
	"fmt"

	"kirin/ir"
)

// MustStmt allocates a statement for def and appends it to block, failing
// the build on any error. Result types are given in order.
func MustStmt[L ir.Definition, T comparable](st *ir.StageInfo[L, T], block ir.Block, def L, types ...T) []ir.SSAValue {
	s, results, err := st.NewStatement(def, types...)
	if err != nil {
		panic(fmt.Errorf("testkit: new statement: %w", err))
	}
	if err := st.Append(block, s); err != nil {
		panic(fmt.Errorf("testkit: append: %w", err))
	}
	return results
}

// CounterLoop is the standard loop fixture:
//
//	entry:      c0 = const 0; jump header(c0)
//	header(x):  cN = const bound; brlt x, cN -> body(x) else exit(x)
//	body(xb):   c1 = const 1; s = add xb, c1; jump header(s)
//	exit(xe):   ret xe
//
// The increment lives in the body so the branch guard refines the value
// flowing around the back edge.
type CounterLoop struct {
	Fn     ir.SpecializedFunction
	Staged ir.StagedFunction
	Entry  ir.Block
	Header ir.Block
	Body   ir.Block
	Exit   ir.Block
	// Branch is the header's brlt statement.
	Branch ir.Statement
	// X is the header's block parameter carrying the counter.
	X ir.SSAValue
}

// BuildCounterLoop constructs the counter loop in st with the given bound,
// registering it as the function "count" with an extern-free specialization
// () -> int.
func BuildCounterLoop[V Num[V]](st *ir.StageInfo[Stmt[V], Type], bound int64) CounterLoop {
	region := st.NewRegion(ir.NoStatement)
	entry, _, err := st.AppendBlock(region)
	if err != nil {
		panic(err)
	}
	header, hParams, err := st.AppendBlock(region, TInt)
	if err != nil {
		panic(err)
	}
	body, bParams, err := st.AppendBlock(region, TInt)
	if err != nil {
		panic(err)
	}
	exit, eParams, err := st.AppendBlock(region, TInt)
	if err != nil {
		panic(err)
	}
	x, xb, xe := hParams[0], bParams[0], eParams[0]

	c0 := MustStmt(st, entry, Stmt[V](NewConst[V](0)), TInt)
	MustStmt(st, entry, Stmt[V](NewJump[V](header, c0[0])))

	cN := MustStmt(st, header, Stmt[V](NewConst[V](bound)), TInt)
	branch, _, err := st.NewStatement(Stmt[V](NewBrLt[V](
		x, cN[0],
		body, []ir.SSAValue{x},
		exit, []ir.SSAValue{x},
	)))
	if err != nil {
		panic(err)
	}
	if err := st.Append(header, branch); err != nil {
		panic(err)
	}

	c1 := MustStmt(st, body, Stmt[V](NewConst[V](1)), TInt)
	sum := MustStmt(st, body, Stmt[V](NewAdd[V](xb, c1[0])), TInt)
	MustStmt(st, body, Stmt[V](NewJump[V](header, sum[0])))

	MustStmt(st, exit, Stmt[V](NewRet[V](xe)))

	staged, err := st.NewStagedFunction("count", ir.Sig(TInt))
	if err != nil {
		panic(err)
	}
	fn, err := st.Specialize(staged, ir.Sig(TInt), region)
	if err != nil {
		panic(err)
	}
	return CounterLoop{
		Fn:     fn,
		Staged: staged,
		Entry:  entry,
		Header: header,
		Body:   body,
		Exit:   exit,
		Branch: branch,
		X:      x,
	}
}

// BuildAddFunc registers (or reuses) the staged function name with the given
// staged signature and appends a specialization whose body adds its two
// parameters. Returns the staged function and the new specialization.
func BuildAddFunc[V Num[V]](
	st *ir.StageInfo[Stmt[V], Type],
	name string,
	stagedSig, specSig ir.Signature[Type],
) (ir.StagedFunction, ir.SpecializedFunction) {
	staged, err := st.NewStagedFunction(name, stagedSig)
	if err != nil {
		panic(err)
	}
	fn, err := SpecializeAdd(st, staged, specSig)
	if err != nil {
		panic(err)
	}
	return staged, fn
}

// SpecializeAdd appends an add-two-parameters specialization to staged.
func SpecializeAdd[V Num[V]](
	st *ir.StageInfo[Stmt[V], Type],
	staged ir.StagedFunction,
	specSig ir.Signature[Type],
) (ir.SpecializedFunction, error) {
	region := st.NewRegion(ir.NoStatement)
	entry, params, err := st.AppendBlock(region, specSig.Params...)
	if err != nil {
		return ir.SpecializedFunction{}, err
	}
	sum := MustStmt(st, entry, Stmt[V](NewAdd[V](params[0], params[1])), specSig.Ret)
	MustStmt(st, entry, Stmt[V](NewRet[V](sum[0])))
	return st.Specialize(staged, specSig, region)
}
