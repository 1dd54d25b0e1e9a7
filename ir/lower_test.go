package ir

import (
	"errors"
	"testing"

	"github.com/gogpu/wasmspv/wasmsrc"
)

func fn(params []wasmsrc.ValueType, results []wasmsrc.ValueType, locals []wasmsrc.ValueType, body ...wasmsrc.Instr) wasmsrc.Fun {
	return wasmsrc.Fun{
		Sig:    wasmsrc.FunctionSig{Params: params, Results: results},
		Locals: locals,
		Body:   body,
	}
}

func idx(op wasmsrc.Op, i uint32) wasmsrc.Instr {
	return wasmsrc.Instr{Op: op, Imm: wasmsrc.Immediate{Index: i}}
}

func constI32(v int32) wasmsrc.Instr {
	return wasmsrc.Instr{Op: wasmsrc.OpI32Const, Imm: wasmsrc.Immediate{I32: v}}
}

func plain(op wasmsrc.Op) wasmsrc.Instr {
	return wasmsrc.Instr{Op: op}
}

func TestLowerSimpleAdd(t *testing.T) {
	f := fn(
		[]wasmsrc.ValueType{wasmsrc.I32, wasmsrc.I32},
		[]wasmsrc.ValueType{wasmsrc.I32},
		nil,
		idx(wasmsrc.OpLocalGet, 0),
		idx(wasmsrc.OpLocalGet, 1),
		plain(wasmsrc.OpI32Add),
	)

	out, err := Lower(f, 0)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if out.Ty == nil || *out.Ty != I32 {
		t.Fatalf("result type = %v, want I32", out.Ty)
	}
	add, ok := out.Body.(INumOpNode)
	if !ok {
		t.Fatalf("body = %T, want INumOpNode", out.Body)
	}
	if add.Op != Add || add.Width != W32 {
		t.Errorf("op = %v width = %v", add.Op, add.Width)
	}
	if _, ok := add.LHS.(GetLocalNode); !ok {
		t.Errorf("lhs = %T, want GetLocalNode", add.LHS)
	}
}

func TestLowerStore(t *testing.T) {
	f := fn(
		[]wasmsrc.ValueType{wasmsrc.I32},
		nil,
		nil,
		idx(wasmsrc.OpLocalGet, 0),
		constI32(42),
		plain(wasmsrc.OpI32Store),
	)

	out, err := Lower(f, 0)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	store, ok := out.Body.(StoreNode)
	if !ok {
		t.Fatalf("body = %T, want StoreNode", out.Body)
	}
	if store.Ty != I32 {
		t.Errorf("store type = %v", store.Ty)
	}
	cn, ok := store.Value.(ConstNode)
	if !ok || cn.Value.I32 != 42 {
		t.Errorf("store value = %+v", store.Value)
	}
}

func TestLowerSetLocal(t *testing.T) {
	f := fn(
		[]wasmsrc.ValueType{wasmsrc.I32},
		nil,
		[]wasmsrc.ValueType{wasmsrc.I32},
		idx(wasmsrc.OpLocalGet, 0),
		idx(wasmsrc.OpLocalSet, 1),
	)

	out, err := Lower(f, 0)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	set, ok := out.Body.(SetLocalNode)
	if !ok {
		t.Fatalf("body = %T, want SetLocalNode", out.Body)
	}
	if set.Local.Idx != 1 || set.Local.Ty != I32 {
		t.Errorf("local = %+v", set.Local)
	}
}

func TestLowerLoopWithBreak(t *testing.T) {
	// block { loop { local.get 0; br_if 1; br 0 } }
	f := fn(
		[]wasmsrc.ValueType{wasmsrc.I32},
		nil,
		nil,
		wasmsrc.Instr{Op: wasmsrc.OpBlock, Imm: wasmsrc.Immediate{Block: wasmsrc.BlockType{Empty: true}}},
		wasmsrc.Instr{Op: wasmsrc.OpLoop, Imm: wasmsrc.Immediate{Block: wasmsrc.BlockType{Empty: true}}},
		idx(wasmsrc.OpLocalGet, 0),
		idx(wasmsrc.OpBrIf, 1),
		idx(wasmsrc.OpBr, 0),
		plain(wasmsrc.OpEnd), // end loop
		plain(wasmsrc.OpEnd), // end block
	)

	out, err := Lower(f, 0)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	loopNode, ok := out.Body.(LoopNode)
	if !ok {
		t.Fatalf("body = %T, want LoopNode", out.Body)
	}
	seq, ok := loopNode.Body.(SeqNode)
	if !ok {
		t.Fatalf("loop body = %T, want SeqNode", loopNode.Body)
	}
	ifNode, ok := seq.A.(IfNode)
	if !ok {
		t.Fatalf("first stmt = %T, want IfNode", seq.A)
	}
	if _, ok := ifNode.Then.(BreakNode); !ok {
		t.Errorf("then = %T, want BreakNode", ifNode.Then)
	}
}

func TestLowerBlockInLoopBranchRejected(t *testing.T) {
	// loop { block { local.get 0; br_if 0 }; local.get 0 }
	// A br_if 0 here must skip only to the end of the inner block and then
	// still run the trailing local.get — not exit the whole loop — so this
	// shape is rejected rather than silently folded into BreakNode.
	f := fn(
		[]wasmsrc.ValueType{wasmsrc.I32},
		nil,
		nil,
		plain(wasmsrc.OpLoop),
		plain(wasmsrc.OpBlock),
		idx(wasmsrc.OpLocalGet, 0),
		idx(wasmsrc.OpBrIf, 0),
		plain(wasmsrc.OpEnd), // end block
		idx(wasmsrc.OpLocalGet, 0),
		plain(wasmsrc.OpEnd), // end loop
	)

	_, err := Lower(f, 0)
	if !errors.Is(err, ErrMultiLevelBranch) {
		t.Fatalf("err = %v, want ErrMultiLevelBranch", err)
	}
}

func TestLowerMultiLevelBranchRejected(t *testing.T) {
	f := fn(nil, nil, nil,
		plain(wasmsrc.OpBlock),
		plain(wasmsrc.OpBlock),
		idx(wasmsrc.OpBr, 1),
		plain(wasmsrc.OpEnd),
		plain(wasmsrc.OpEnd),
	)

	_, err := Lower(f, 0)
	if !errors.Is(err, ErrMultiLevelBranch) {
		t.Fatalf("err = %v, want ErrMultiLevelBranch", err)
	}
}

func TestLowerIfElse(t *testing.T) {
	f := fn(
		[]wasmsrc.ValueType{wasmsrc.I32},
		[]wasmsrc.ValueType{wasmsrc.I32},
		nil,
		idx(wasmsrc.OpLocalGet, 0),
		wasmsrc.Instr{Op: wasmsrc.OpIf, Imm: wasmsrc.Immediate{Block: wasmsrc.BlockType{Ty: wasmsrc.I32}}},
		constI32(1),
		plain(wasmsrc.OpElse),
		constI32(0),
		plain(wasmsrc.OpEnd),
	)

	out, err := Lower(f, 0)
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	ifNode, ok := out.Body.(IfNode)
	if !ok {
		t.Fatalf("body = %T, want IfNode", out.Body)
	}
	then, ok := ifNode.Then.(ConstNode)
	if !ok || then.Value.I32 != 1 {
		t.Errorf("then = %+v", ifNode.Then)
	}
	els, ok := ifNode.Else.(ConstNode)
	if !ok || els.Value.I32 != 0 {
		t.Errorf("else = %+v", ifNode.Else)
	}
}
