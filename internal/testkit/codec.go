package testkit

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"kirin/ir"
)

// DialectCodec implements serial.Codec for the test dialect. Tags are the
// statement kind names; payloads carry only what the structural views do
// not: constant values, the branch split point, and call targets.
type DialectCodec[V Num[V]] struct{}

type brPayload struct {
	NThen int `msgpack:"nthen"`
}

type callPayload struct {
	Staged uint32 `msgpack:"staged"`
	Index  uint32 `msgpack:"index"`
	Stage  uint32 `msgpack:"stage"`
}

// Encode implements serial.Codec.
func (DialectCodec[V]) Encode(def Stmt[V]) (string, []byte, error) {
	switch d := def.(type) {
	case *Const[V]:
		payload, err := msgpack.Marshal(d.Value)
		return "const", payload, err
	case *Add[V]:
		return "add", nil, nil
	case *Lt[V]:
		return "lt", nil, nil
	case *Jump[V]:
		return "jump", nil, nil
	case *BrLt[V]:
		payload, err := msgpack.Marshal(brPayload{NThen: d.nThen})
		return "brlt", payload, err
	case *Ret[V]:
		return "ret", nil, nil
	case *CallOp[V]:
		payload, err := msgpack.Marshal(callPayload{
			Staged: uint32(d.Callee.Staged),
			Index:  d.Callee.Index,
			Stage:  uint32(d.CalleeStage),
		})
		return "call", payload, err
	case *Pause[V]:
		return "pause", nil, nil
	case *Stop[V]:
		return "stop", nil, nil
	}
	return "", nil, fmt.Errorf("testkit: unknown definition %T", def)
}

// Decode implements serial.Codec.
func (DialectCodec[V]) Decode(tag string, payload []byte, operands []ir.SSAValue, successors []ir.Block, nResults int) (Stmt[V], error) {
	switch tag {
	case "const":
		var value int64
		if err := msgpack.Unmarshal(payload, &value); err != nil {
			return nil, err
		}
		return NewConst[V](value), nil
	case "add":
		return NewAdd[V](operands[0], operands[1]), nil
	case "lt":
		return NewLt[V](operands[0], operands[1]), nil
	case "jump":
		return NewJump[V](successors[0], operands...), nil
	case "brlt":
		var p brPayload
		if err := msgpack.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		args := operands[2:]
		return NewBrLt[V](operands[0], operands[1],
			successors[0], args[:p.NThen],
			successors[1], args[p.NThen:],
		), nil
	case "ret":
		return NewRet[V](operands[0]), nil
	case "call":
		var p callPayload
		if err := msgpack.Unmarshal(payload, &p); err != nil {
			return nil, err
		}
		return NewCall[V](
			ir.SpecializedFunction{Staged: ir.StagedFunction(p.Staged), Index: p.Index},
			ir.CompileStage(p.Stage),
			operands...,
		), nil
	case "pause":
		return NewPause[V](), nil
	case "stop":
		return NewStop[V](), nil
	}
	return nil, fmt.Errorf("testkit: unknown tag %q", tag)
}
