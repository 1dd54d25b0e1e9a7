package spirv

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gogpu/wasmspv/ir"
)

// decodeWords turns an assembled module's bytes (including the 5-word
// header, which countOpcode skips) into a flat []uint32 stream, for cheap
// structural assertions without a full disassembler.
func decodeWords(t *testing.T, data []byte) []uint32 {
	t.Helper()
	if len(data)%4 != 0 {
		t.Fatalf("module length %d not a multiple of 4", len(data))
	}
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4 : i*4+4])
	}
	return words
}

func countOpcode(words []uint32, op OpCode) int {
	count := 0
	i := 5 // skip header
	for i < len(words) {
		wordCount := words[i] >> 16
		opcode := OpCode(words[i] & 0xffff)
		if opcode == op {
			count++
		}
		i += int(wordCount)
	}
	return count
}

func i32Ty() ir.ValueType { return ir.I32 }

func TestEmitFunctionSimpleArithmetic(t *testing.T) {
	// (i32.add (local.get 0) (local.get 1))
	body := ir.INumOpNode{
		Width: ir.W32,
		Op:    ir.Add,
		LHS:   ir.GetLocalNode{Local: ir.Local{Idx: 0, Ty: ir.I32}},
		RHS:   ir.GetLocalNode{Local: ir.Local{Idx: 1, Ty: ir.I32}},
	}
	resultTy := i32Ty()
	fn := &ir.Fun{Params: []ir.ValueType{ir.I32, ir.I32}, Ty: &resultTy, Body: body}

	ctx := NewContext(DefaultOptions())
	funcID, err := EmitFunction(ctx, fn, "main")
	if err != nil {
		t.Fatalf("EmitFunction: %v", err)
	}
	ctx.DeclareEntryPoint(funcID, "main", [3]uint32{64, 1, 1})

	words := decodeWords(t, ctx.Finish())
	if n := countOpcode(words, OpIAdd); n != 1 {
		t.Fatalf("expected 1 OpIAdd, got %d", n)
	}
	if n := countOpcode(words, OpReturnValue); n != 1 {
		t.Fatalf("expected 1 OpReturnValue, got %d", n)
	}
}

func TestEmitFunctionLoadStoreRoundtrip(t *testing.T) {
	// store to addr 4, then load from addr 0, return it
	store := ir.StoreNode{
		Ty:    ir.I32,
		Addr:  ir.ConstNode{Value: ir.ConstI32(4)},
		Value: ir.ConstNode{Value: ir.ConstI32(7)},
	}
	load := ir.LoadNode{Ty: ir.I32, Addr: ir.ConstNode{Value: ir.ConstI32(0)}}
	body := ir.SeqNode{A: store, B: ir.ReturnNode{Value: load}}
	resultTy := i32Ty()
	fn := &ir.Fun{Ty: &resultTy, Body: body}

	ctx := NewContext(DefaultOptions())
	if _, err := EmitFunction(ctx, fn, "main"); err != nil {
		t.Fatalf("EmitFunction: %v", err)
	}

	words := decodeWords(t, ctx.Finish())
	if n := countOpcode(words, OpStore); n != 1 {
		t.Fatalf("expected 1 OpStore, got %d", n)
	}
	if n := countOpcode(words, OpLoad); n != 1 {
		t.Fatalf("expected 1 OpLoad, got %d", n)
	}
	if n := countOpcode(words, OpAccessChain); n != 2 {
		t.Fatalf("expected 2 OpAccessChain, got %d", n)
	}
}

func TestEmitFunctionFloatBitcast(t *testing.T) {
	store := ir.StoreNode{
		Ty:    ir.F32,
		Addr:  ir.ConstNode{Value: ir.ConstI32(0)},
		Value: ir.ConstNode{Value: ir.ConstF32(1.5)},
	}
	fn := &ir.Fun{Body: store}

	ctx := NewContext(DefaultOptions())
	if _, err := EmitFunction(ctx, fn, "main"); err != nil {
		t.Fatalf("EmitFunction: %v", err)
	}

	words := decodeWords(t, ctx.Finish())
	if n := countOpcode(words, OpBitcast); n != 1 {
		t.Fatalf("expected 1 OpBitcast, got %d", n)
	}
}

func TestEmitFunctionIfElse(t *testing.T) {
	body := ir.IfNode{
		Cond: ir.GetLocalNode{Local: ir.Local{Idx: 0, Ty: ir.I32}},
		Then: ir.ReturnNode{Value: ir.ConstNode{Value: ir.ConstI32(1)}},
		Else: ir.ReturnNode{Value: ir.ConstNode{Value: ir.ConstI32(0)}},
	}
	resultTy := i32Ty()
	fn := &ir.Fun{Params: []ir.ValueType{ir.I32}, Ty: &resultTy, Body: body}

	ctx := NewContext(DefaultOptions())
	if _, err := EmitFunction(ctx, fn, "main"); err != nil {
		t.Fatalf("EmitFunction: %v", err)
	}

	words := decodeWords(t, ctx.Finish())
	if n := countOpcode(words, OpSelectionMerge); n != 1 {
		t.Fatalf("expected 1 OpSelectionMerge, got %d", n)
	}
	if n := countOpcode(words, OpBranchConditional); n != 1 {
		t.Fatalf("expected 1 OpBranchConditional, got %d", n)
	}
	if n := countOpcode(words, OpReturnValue); n != 2 {
		t.Fatalf("expected 2 OpReturnValue (one per arm), got %d", n)
	}
}

func TestEmitFunctionLoopWithBreak(t *testing.T) {
	// loop { if (local.get 0) { break } }
	loop := ir.LoopNode{
		Body: ir.IfNode{
			Cond: ir.GetLocalNode{Local: ir.Local{Idx: 0, Ty: ir.I32}},
			Then: ir.BreakNode{},
			Else: ir.NopNode{},
		},
	}
	fn := &ir.Fun{Params: []ir.ValueType{ir.I32}, Body: loop}

	ctx := NewContext(DefaultOptions())
	if _, err := EmitFunction(ctx, fn, "main"); err != nil {
		t.Fatalf("EmitFunction: %v", err)
	}

	words := decodeWords(t, ctx.Finish())
	if n := countOpcode(words, OpLoopMerge); n != 1 {
		t.Fatalf("expected 1 OpLoopMerge, got %d", n)
	}
	// One branch opens the loop, one leaves the header for the body, one
	// is the break to the loop merge, one closes the if's (dead) true arm
	// to the selection merge, one closes the if's false (Nop) arm, one is
	// the loop body's natural fallthrough to the loop merge, and one is the
	// continue label branching back to the header — seven total; the
	// assertion only checks a lower bound.
	if n := countOpcode(words, OpBranch); n < 4 {
		t.Fatalf("expected at least 4 OpBranch, got %d", n)
	}
}

func TestEmitFunctionBreakOutsideLoopRejected(t *testing.T) {
	fn := &ir.Fun{Body: ir.BreakNode{}}
	ctx := NewContext(DefaultOptions())
	_, err := EmitFunction(ctx, fn, "main")
	if !errors.Is(err, ErrBreakOutsideLoop) {
		t.Fatalf("expected ErrBreakOutsideLoop, got %v", err)
	}
}

func TestEmitFunctionCallRejected(t *testing.T) {
	fn := &ir.Fun{Body: ir.CallNode{FuncIdx: 0}}
	ctx := NewContext(DefaultOptions())
	_, err := EmitFunction(ctx, fn, "main")
	if !errors.Is(err, ErrUnsupportedInstruction) {
		t.Fatalf("expected ErrUnsupportedInstruction, got %v", err)
	}
}

func TestEmitFunctionThreadID(t *testing.T) {
	body := ir.ReturnNode{Value: ir.GetGlobalNode{Global: ir.ThreadID}}
	resultTy := i32Ty()
	fn := &ir.Fun{Ty: &resultTy, Body: body}

	ctx := NewContext(DefaultOptions())
	if _, err := EmitFunction(ctx, fn, "main"); err != nil {
		t.Fatalf("EmitFunction: %v", err)
	}

	words := decodeWords(t, ctx.Finish())
	if n := countOpcode(words, OpAccessChain); n != 1 {
		t.Fatalf("expected 1 OpAccessChain (GlobalInvocationId.x), got %d", n)
	}
	if n := countOpcode(words, OpLoad); n != 1 {
		t.Fatalf("expected 1 OpLoad (GlobalInvocationId.x), got %d", n)
	}
}

// TestEmitFunctionThreadIDCachedAcrossUses asserts GlobalInvocationId is
// loaded once per function even when referenced more than once, rather than
// recomputed at every GetGlobalNode.
func TestEmitFunctionThreadIDCachedAcrossUses(t *testing.T) {
	tid := ir.GetGlobalNode{Global: ir.ThreadID}
	body := ir.ReturnNode{Value: ir.INumOpNode{Width: ir.W32, Op: ir.Add, LHS: tid, RHS: tid}}
	resultTy := i32Ty()
	fn := &ir.Fun{Ty: &resultTy, Body: body}

	ctx := NewContext(DefaultOptions())
	if _, err := EmitFunction(ctx, fn, "main"); err != nil {
		t.Fatalf("EmitFunction: %v", err)
	}

	words := decodeWords(t, ctx.Finish())
	if n := countOpcode(words, OpAccessChain); n != 1 {
		t.Fatalf("expected GlobalInvocationId load cached (1 OpAccessChain), got %d", n)
	}
}

func TestEmitFunctionNoThreadIDWhenUnused(t *testing.T) {
	fn := &ir.Fun{Body: ir.NopNode{}}

	ctx := NewContext(DefaultOptions())
	if _, err := EmitFunction(ctx, fn, "main"); err != nil {
		t.Fatalf("EmitFunction: %v", err)
	}

	words := decodeWords(t, ctx.Finish())
	if n := countOpcode(words, OpAccessChain); n != 0 {
		t.Fatalf("expected no GlobalInvocationId load for a function that never reads it, got %d OpAccessChain", n)
	}
}

func TestNewContextImportsGLSLStd450(t *testing.T) {
	ctx := NewContext(DefaultOptions())
	words := decodeWords(t, ctx.Finish())
	if n := countOpcode(words, OpExtInstImport); n != 1 {
		t.Fatalf("expected 1 OpExtInstImport(GLSL.std.450), got %d", n)
	}
}
