// Package serial snapshots one stage's functions to msgpack and rebuilds
// them through the public construction API, so a snapshot is a strict
// reverse of construction. SSA identities and intern handles are not
// preserved — only structure is, which is all the round-trip contract
// promises.
//
// Dialect payloads ride through a user-supplied Codec. The flat statement
// form covers operands, successors, result types, and an opaque payload;
// dialects whose statements own regions need a richer codec of their own.
package serial

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"kirin/ir"
)

// Codec translates between a dialect's definitions and the flat snapshot
// form.
type Codec[L ir.Definition, T comparable] interface {
	// Encode returns the definition's variant tag and opaque payload. The
	// structural views are captured by the snapshotter itself.
	Encode(def L) (tag string, payload []byte, err error)
	// Decode rebuilds a definition from its tag, payload, and structural
	// data already resolved into the destination stage. The returned
	// definition must have nResults result slots.
	Decode(tag string, payload []byte, operands []ir.SSAValue, successors []ir.Block, nResults int) (L, error)
}

// Snapshot is the serialized form of a stage's function set.
type Snapshot[T comparable] struct {
	Name      string            `msgpack:"name"`
	Functions []FuncSnapshot[T] `msgpack:"functions"`
}

// FuncSnapshot is one staged function.
type FuncSnapshot[T comparable] struct {
	Name        string            `msgpack:"name"`
	Sig         SigSnapshot[T]    `msgpack:"sig"`
	Invalidated bool              `msgpack:"invalidated"`
	Specs       []SpecSnapshot[T] `msgpack:"specs"`
}

// SigSnapshot is a signature.
type SigSnapshot[T comparable] struct {
	Params []T `msgpack:"params"`
	Ret    T   `msgpack:"ret"`
}

// SpecSnapshot is one specialization with its body.
type SpecSnapshot[T comparable] struct {
	Sig         SigSnapshot[T]     `msgpack:"sig"`
	Invalidated bool               `msgpack:"invalidated"`
	Blocks      []BlockSnapshot[T] `msgpack:"blocks"`
}

// BlockSnapshot is one block: parameter types plus statements in order.
type BlockSnapshot[T comparable] struct {
	ParamTypes []T               `msgpack:"params"`
	Stmts      []StmtSnapshot[T] `msgpack:"stmts"`
}

// StmtSnapshot is the flat statement form. Operands refer to the region's
// deterministic value numbering: all block parameters first (block order,
// parameter order), then statement results in (block, statement, result)
// order. Successors are block indices within the region.
type StmtSnapshot[T comparable] struct {
	Tag         string   `msgpack:"tag"`
	Payload     []byte   `msgpack:"payload"`
	Operands    []uint32 `msgpack:"operands"`
	ResultTypes []T      `msgpack:"results"`
	Successors  []uint32 `msgpack:"successors"`
}

// EncodeStage snapshots every staged function of st.
func EncodeStage[L ir.Definition, T comparable](st *ir.StageInfo[L, T], codec Codec[L, T]) ([]byte, error) {
	snap := Snapshot[T]{Name: st.DisplayName()}
	for _, fn := range st.StagedFuncsInOrder() {
		info, err := st.StagedFunc(fn)
		if err != nil {
			return nil, err
		}
		fs := FuncSnapshot[T]{
			Name:        info.Name.Str,
			Sig:         SigSnapshot[T]{Params: info.Sig.Params, Ret: info.Sig.Ret},
			Invalidated: info.Invalidated,
		}
		for i := range info.Specs {
			spec := &info.Specs[i]
			body, err := encodeRegion(st, codec, spec.Body)
			if err != nil {
				return nil, fmt.Errorf("serial: function %q: %w", info.Name.Str, err)
			}
			fs.Specs = append(fs.Specs, SpecSnapshot[T]{
				Sig:         SigSnapshot[T]{Params: spec.Sig.Params, Ret: spec.Sig.Ret},
				Invalidated: spec.Invalidated,
				Blocks:      body,
			})
		}
		snap.Functions = append(snap.Functions, fs)
	}
	return msgpack.Marshal(&snap)
}

func encodeRegion[L ir.Definition, T comparable](st *ir.StageInfo[L, T], codec Codec[L, T], r ir.Region) ([]BlockSnapshot[T], error) {
	blocks, err := regionBlocks(st, r)
	if err != nil {
		return nil, err
	}
	number := make(map[ir.SSAValue]uint32)
	blockIndex := make(map[ir.Block]uint32)
	next := uint32(0)
	for i, b := range blocks {
		blockIndex[b] = uint32(i)
		params, err := st.ParamsOf(b)
		if err != nil {
			return nil, err
		}
		for _, p := range params {
			number[p] = next
			next++
		}
	}
	for _, b := range blocks {
		if err := eachStmt(st, b, func(_ ir.Statement, def L) error {
			for _, res := range def.Results() {
				number[res] = next
				next++
			}
			return nil
		}); err != nil {
			return nil, err
		}
	}

	var out []BlockSnapshot[T]
	for _, b := range blocks {
		params, err := st.ParamsOf(b)
		if err != nil {
			return nil, err
		}
		bs := BlockSnapshot[T]{}
		for _, p := range params {
			info, err := st.Value(p)
			if err != nil {
				return nil, err
			}
			bs.ParamTypes = append(bs.ParamTypes, info.Type)
		}
		if err := eachStmt(st, b, func(_ ir.Statement, def L) error {
			tag, payload, err := codec.Encode(def)
			if err != nil {
				return err
			}
			ss := StmtSnapshot[T]{Tag: tag, Payload: payload}
			for _, op := range def.Operands() {
				n, ok := number[op]
				if !ok {
					return fmt.Errorf("operand %v defined outside the region", op)
				}
				ss.Operands = append(ss.Operands, n)
			}
			for _, res := range def.Results() {
				info, err := st.Value(res)
				if err != nil {
					return err
				}
				ss.ResultTypes = append(ss.ResultTypes, info.Type)
			}
			for _, succ := range def.Successors() {
				idx, ok := blockIndex[succ]
				if !ok {
					return fmt.Errorf("successor %v outside the region", succ)
				}
				ss.Successors = append(ss.Successors, idx)
			}
			bs.Stmts = append(bs.Stmts, ss)
			return nil
		}); err != nil {
			return nil, err
		}
		out = append(out, bs)
	}
	return out, nil
}

// DecodeStage rebuilds a snapshot into a fresh stage via the construction
// API. The snapshot's flat order must place every value definition before
// its first use, which holds for snapshots EncodeStage produced from IR
// whose blocks are listed in dominance-compatible order.
func DecodeStage[L ir.Definition, T comparable](data []byte, codec Codec[L, T]) (*ir.StageInfo[L, T], error) {
	var snap Snapshot[T]
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("serial: %w", err)
	}
	st := ir.NewStageInfo[L, T](snap.Name)
	for _, fs := range snap.Functions {
		staged, err := st.NewStagedFunction(fs.Name, ir.Signature[T]{Params: fs.Sig.Params, Ret: fs.Sig.Ret})
		if err != nil {
			return nil, fmt.Errorf("serial: function %q: %w", fs.Name, err)
		}
		for _, spec := range fs.Specs {
			region, err := decodeRegion(st, codec, spec.Blocks)
			if err != nil {
				return nil, fmt.Errorf("serial: function %q: %w", fs.Name, err)
			}
			ref, err := st.Specialize(staged, ir.Signature[T]{Params: spec.Sig.Params, Ret: spec.Sig.Ret}, region)
			if err != nil {
				return nil, fmt.Errorf("serial: function %q: %w", fs.Name, err)
			}
			if spec.Invalidated {
				info, err := st.Spec(ref)
				if err != nil {
					return nil, err
				}
				info.Invalidated = true
			}
		}
		if fs.Invalidated {
			info, err := st.StagedFunc(staged)
			if err != nil {
				return nil, err
			}
			info.Invalidated = true
		}
	}
	return st, nil
}

func decodeRegion[L ir.Definition, T comparable](st *ir.StageInfo[L, T], codec Codec[L, T], blocks []BlockSnapshot[T]) (ir.Region, error) {
	region := st.NewRegion(ir.NoStatement)
	ids := make([]ir.Block, len(blocks))
	var values []ir.SSAValue
	for i, bs := range blocks {
		b, params, err := st.AppendBlock(region, bs.ParamTypes...)
		if err != nil {
			return ir.NoRegion, err
		}
		ids[i] = b
		values = append(values, params...)
	}
	for i, bs := range blocks {
		for _, ss := range bs.Stmts {
			operands := make([]ir.SSAValue, len(ss.Operands))
			for j, n := range ss.Operands {
				if int(n) >= len(values) {
					return ir.NoRegion, fmt.Errorf("operand %d forward-references value %d", j, n)
				}
				operands[j] = values[n]
			}
			succs := make([]ir.Block, len(ss.Successors))
			for j, n := range ss.Successors {
				succs[j] = ids[n]
			}
			def, err := codec.Decode(ss.Tag, ss.Payload, operands, succs, len(ss.ResultTypes))
			if err != nil {
				return ir.NoRegion, err
			}
			s, results, err := st.NewStatement(def, ss.ResultTypes...)
			if err != nil {
				return ir.NoRegion, err
			}
			values = append(values, results...)
			if err := st.Append(ids[i], s); err != nil {
				return ir.NoRegion, err
			}
		}
	}
	return region, nil
}

// regionBlocks lists a region's blocks in list order.
func regionBlocks[L ir.Definition, T comparable](st *ir.StageInfo[L, T], r ir.Region) ([]ir.Block, error) {
	region, err := st.RegionInfo(r)
	if err != nil {
		return nil, err
	}
	var blocks []ir.Block
	for b := region.Head; b.IsValid(); {
		blocks = append(blocks, b)
		info, err := st.BlockInfo(b)
		if err != nil {
			return nil, err
		}
		b = info.Next
	}
	return blocks, nil
}

// eachStmt visits a block's statements in list order.
func eachStmt[L ir.Definition, T comparable](st *ir.StageInfo[L, T], b ir.Block, visit func(ir.Statement, L) error) error {
	info, err := st.BlockInfo(b)
	if err != nil {
		return err
	}
	for s := info.Head; s.IsValid(); {
		stmt, err := st.Stmt(s)
		if err != nil {
			return err
		}
		if err := visit(s, stmt.Def); err != nil {
			return err
		}
		s = stmt.Next
	}
	return nil
}
