package spirv

import (
	"fmt"

	"github.com/gogpu/wasmspv/ir"
)

// loopFrame records the branch targets of one enclosing LoopNode: continue
// resumes at continueLabel (which itself branches back to the loop
// header), break jumps straight to mergeLabel.
type loopFrame struct {
	continueLabel uint32
	mergeLabel    uint32
}

// funcEmitter lowers one ir.Fun's body into the instruction stream of a
// single SPIR-V function already opened by EmitFunction.
type funcEmitter struct {
	ctx      *Context
	locals   map[uint32]localSlot
	loops    []loopFrame
	result   *ir.ValueType
	threadID uint32 // cached GlobalInvocationId.x load, 0 if the body never references ir.ThreadID
}

type localSlot struct {
	ptr uint32
	ty  ir.ValueType
}

// EmitFunction lowers fn into a complete SPIR-V function: a Function
// wrapping one OpVariable per local actually referenced, followed by the
// lowered body and a terminating OpReturn/OpReturnValue (or OpUnreachable
// when a non-void body ends after its own explicit return).
func EmitFunction(ctx *Context, fn *ir.Fun, name string) (uint32, error) {
	var returnType uint32
	if fn.Ty != nil {
		t, err := ctx.ScalarType(*fn.Ty)
		if err != nil {
			return 0, err
		}
		returnType = t
	} else {
		returnType = ctx.voidType
	}

	funcType := ctx.module.AddTypeFunction(returnType)
	funcID := ctx.module.AddFunction(funcType, returnType, FunctionControlNone)
	bodyStart := len(ctx.module.functions)
	if ctx.opts.EmitDebugNames && name != "" {
		ctx.module.AddName(funcID, name)
	}

	entryLabel := ctx.module.AllocID()
	ctx.module.AddLabel(entryLabel)

	used := ir.LocalsUsed(fn.Body)
	fe := &funcEmitter{ctx: ctx, locals: make(map[uint32]localSlot, len(used)), result: fn.Ty}

	// Parameters and locals share one index space (spec.md's Local); every
	// used index gets a Function-storage backing variable regardless of
	// which half of that space it falls in. Parameter-indexed variables
	// have no real initial value to load from — compute entry points take
	// no SPIR-V function arguments — so they are zero-initialised. This is
	// a known restriction: kernels that rely on a nonzero incoming
	// parameter value are out of scope.
	nParams := uint32(len(fn.Params))
	for idx, ty := range used {
		ptrType, err := ctx.FunctionPointerType(ty)
		if err != nil {
			return 0, err
		}
		ptr := ctx.module.AddVariable(ptrType, StorageClassFunction)
		fe.locals[idx] = localSlot{ptr: ptr, ty: ty}
		if idx < nParams {
			zero, err := fe.zeroValue(ty)
			if err != nil {
				return 0, err
			}
			ctx.module.AddStore(ptr, zero)
		}
	}

	// GlobalInvocationId is loaded at most once per function and cached for
	// every later reference, rather than reloaded at each GetGlobalNode.
	if usesThreadID(fn.Body) {
		fe.threadID = ctx.LoadThreadID()
	}

	value, err := fe.emit(fn.Body)
	if err != nil {
		return 0, err
	}

	if fn.Ty != nil {
		returned := false
		for _, inst := range ctx.module.functions[bodyStart:] {
			returned = returned || inst.Opcode == OpReturnValue
		}
		switch {
		case value != 0:
			ctx.module.AddReturnValue(value)
		case returned:
			// No trailing value, but the body returns explicitly: the block
			// left open after its last return is dead and only needs a
			// terminator.
			ctx.module.functions = append(ctx.module.functions, NewInstructionBuilder().Build(OpUnreachable))
		default:
			return 0, fmt.Errorf("%w: function declares a result but its body produced none", ErrUnsupportedInstruction)
		}
	} else {
		ctx.module.AddReturn()
	}
	ctx.module.AddFunctionEnd()

	return funcID, nil
}

// usesThreadID reports whether body reads ir.ThreadID anywhere, so
// EmitFunction only pays for the GlobalInvocationId load when a function
// actually needs it.
func usesThreadID(n ir.Base) bool {
	switch v := n.(type) {
	case ir.GetGlobalNode:
		return v.Global == ir.ThreadID
	case ir.CallNode:
		for _, a := range v.Args {
			if usesThreadID(a) {
				return true
			}
		}
		return false
	case ir.NopNode, ir.ConstNode, ir.ContinueNode, ir.BreakNode, ir.GetLocalNode:
		return false
	case ir.ReturnNode:
		return v.Value != nil && usesThreadID(v.Value)
	case ir.INumOpNode:
		return usesThreadID(v.LHS) || usesThreadID(v.RHS)
	case ir.ICompOpNode:
		return usesThreadID(v.LHS) || usesThreadID(v.RHS)
	case ir.SeqNode:
		return usesThreadID(v.A) || usesThreadID(v.B)
	case ir.SetLocalNode:
		return usesThreadID(v.Value)
	case ir.LoadNode:
		return usesThreadID(v.Addr)
	case ir.StoreNode:
		return usesThreadID(v.Addr) || usesThreadID(v.Value)
	case ir.IfNode:
		return usesThreadID(v.Cond) || usesThreadID(v.Then) || usesThreadID(v.Else)
	case ir.LoopNode:
		return usesThreadID(v.Body)
	default:
		return false
	}
}

func (fe *funcEmitter) zeroValue(ty ir.ValueType) (uint32, error) {
	switch ty {
	case ir.I32:
		return fe.ctx.ConstUint(0), nil
	case ir.F32:
		return fe.ctx.module.AddConstantFloat32(fe.ctx.floatType, 0), nil
	default:
		return 0, ErrUnsupportedInstruction
	}
}

// emit lowers one IR node, returning the SPIR-V id of its value (0 for
// nodes with no useful value: statements, control transfers, Nop).
func (fe *funcEmitter) emit(n ir.Base) (uint32, error) {
	switch v := n.(type) {
	case ir.NopNode:
		return 0, nil

	case ir.SeqNode:
		if _, err := fe.emit(v.A); err != nil {
			return 0, err
		}
		return fe.emit(v.B)

	case ir.ConstNode:
		return fe.emitConst(v.Value)

	case ir.GetLocalNode:
		slot, ok := fe.locals[v.Local.Idx]
		if !ok {
			return 0, fmt.Errorf("ir: local %d read with no recorded use", v.Local.Idx)
		}
		ty, err := fe.ctx.ScalarType(slot.ty)
		if err != nil {
			return 0, err
		}
		return fe.ctx.module.AddLoad(ty, slot.ptr), nil

	case ir.SetLocalNode:
		val, err := fe.emit(v.Value)
		if err != nil {
			return 0, err
		}
		slot, ok := fe.locals[v.Local.Idx]
		if !ok {
			return 0, fmt.Errorf("ir: local %d set with no recorded use", v.Local.Idx)
		}
		fe.ctx.module.AddStore(slot.ptr, val)
		return 0, nil

	case ir.GetGlobalNode:
		if v.Global != ir.ThreadID {
			return 0, ErrUnsupportedGlobal
		}
		return fe.threadID, nil

	case ir.INumOpNode:
		return fe.emitNumOp(v)

	case ir.ICompOpNode:
		return fe.emitCompOp(v)

	case ir.LoadNode:
		return fe.emitLoad(v)

	case ir.StoreNode:
		return 0, fe.emitStore(v)

	case ir.IfNode:
		return 0, fe.emitIf(v)

	case ir.LoopNode:
		return 0, fe.emitLoop(v)

	case ir.BreakNode:
		if len(fe.loops) == 0 {
			return 0, ErrBreakOutsideLoop
		}
		target := fe.loops[len(fe.loops)-1].mergeLabel
		fe.ctx.module.AddBranch(target)
		fe.openUnreachableBlock()
		return 0, nil

	case ir.ContinueNode:
		if len(fe.loops) == 0 {
			return 0, ErrBreakOutsideLoop
		}
		target := fe.loops[len(fe.loops)-1].continueLabel
		fe.ctx.module.AddBranch(target)
		fe.openUnreachableBlock()
		return 0, nil

	case ir.ReturnNode:
		if v.Value != nil {
			val, err := fe.emit(v.Value)
			if err != nil {
				return 0, err
			}
			fe.ctx.module.AddReturnValue(val)
		} else {
			fe.ctx.module.AddReturn()
		}
		fe.openUnreachableBlock()
		return 0, nil

	case ir.CallNode:
		// Calls are not lowered: every CallNode is rejected, even though
		// the driver emits every function of the module.
		return 0, fmt.Errorf("%w: call", ErrUnsupportedInstruction)

	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupportedInstruction, n)
	}
}

// openUnreachableBlock opens a fresh label after an instruction that
// terminates the current block (return, break, continue), so that
// whatever the tree emits next — dead code WASM validation guarantees is
// never reached — still lands in a well-formed block.
func (fe *funcEmitter) openUnreachableBlock() {
	id := fe.ctx.module.AllocID()
	fe.ctx.module.AddLabel(id)
}

func (fe *funcEmitter) emitConst(c ir.Const) (uint32, error) {
	switch c.Ty {
	case ir.I32:
		return fe.ctx.ConstUint(uint32(c.I32)), nil
	case ir.F32:
		return fe.ctx.module.AddConstantFloat32(fe.ctx.floatType, c.F32), nil
	default:
		return 0, fmt.Errorf("%w: 64-bit constant", ErrUnsupportedInstruction)
	}
}

func (fe *funcEmitter) emitNumOp(v ir.INumOpNode) (uint32, error) {
	if v.Width != ir.W32 {
		return 0, fmt.Errorf("%w: 64-bit arithmetic", ErrUnsupportedInstruction)
	}
	lhs, err := fe.emit(v.LHS)
	if err != nil {
		return 0, err
	}
	rhs, err := fe.emit(v.RHS)
	if err != nil {
		return 0, err
	}
	opcode, err := numOpcode(v.Op)
	if err != nil {
		return 0, err
	}
	return fe.ctx.module.AddBinaryOp(opcode, fe.ctx.uintType, lhs, rhs), nil
}

func numOpcode(op ir.INumOp) (OpCode, error) {
	switch op {
	case ir.Add:
		return OpIAdd, nil
	case ir.Sub:
		return OpISub, nil
	case ir.Mul:
		return OpIMul, nil
	case ir.DivU:
		return OpUDiv, nil
	case ir.DivS:
		return OpSDiv, nil
	case ir.Shl:
		return OpShiftLeftLogical, nil
	case ir.ShrU:
		return OpShiftRightLogical, nil
	case ir.ShrS:
		return OpShiftRightArithmetic, nil
	default:
		return 0, fmt.Errorf("%w: numeric op %d", ErrUnsupportedInstruction, op)
	}
}

func (fe *funcEmitter) emitCompOp(v ir.ICompOpNode) (uint32, error) {
	if v.Width != ir.W32 {
		return 0, fmt.Errorf("%w: 64-bit comparison", ErrUnsupportedInstruction)
	}
	lhs, err := fe.emit(v.LHS)
	if err != nil {
		return 0, err
	}
	rhs, err := fe.emit(v.RHS)
	if err != nil {
		return 0, err
	}
	opcode, err := compOpcode(v.Op)
	if err != nil {
		return 0, err
	}
	boolResult := fe.ctx.module.AddBinaryOp(opcode, fe.ctx.boolType, lhs, rhs)
	// WASM comparisons yield a 0/1 integer, not a genuine boolean.
	return fe.ctx.module.AddSelect(fe.ctx.uintType, boolResult, fe.ctx.ConstUint(1), fe.ctx.ConstUint(0)), nil
}

func compOpcode(op ir.ICompOp) (OpCode, error) {
	switch op {
	case ir.Eq:
		return OpIEqual, nil
	case ir.NEq:
		return OpINotEqual, nil
	case ir.LeU:
		return OpULessThanEqual, nil
	case ir.GeU:
		return OpUGreaterThanEqual, nil
	case ir.LtU:
		return OpULessThan, nil
	case ir.GtU:
		return OpUGreaterThan, nil
	case ir.LeS:
		return OpSLessThanEqual, nil
	case ir.GeS:
		return OpSGreaterThanEqual, nil
	case ir.LtS:
		return OpSLessThan, nil
	case ir.GtS:
		return OpSGreaterThan, nil
	default:
		return 0, fmt.Errorf("%w: comparison op %d", ErrUnsupportedInstruction, op)
	}
}

// wordAddress lowers an IR address expression (a byte offset) into the
// storage buffer's word index, dividing by 4 unconditionally — every value
// this system moves through memory occupies exactly one buffer word,
// regardless of its WASM type.
func (fe *funcEmitter) wordAddress(addr ir.Base) (uint32, error) {
	byteAddr, err := fe.emit(addr)
	if err != nil {
		return 0, err
	}
	return fe.ctx.module.AddBinaryOp(OpUDiv, fe.ctx.uintType, byteAddr, fe.ctx.ConstUint(bufferArrayStride)), nil
}

func (fe *funcEmitter) emitLoad(v ir.LoadNode) (uint32, error) {
	wordIdx, err := fe.wordAddress(v.Addr)
	if err != nil {
		return 0, err
	}
	ptr := fe.ctx.BufferElementPointer(wordIdx)

	switch v.Ty {
	case ir.I32:
		return fe.ctx.module.AddLoad(fe.ctx.uintType, ptr), nil
	case ir.F32:
		raw := fe.ctx.module.AddLoad(fe.ctx.uintType, ptr)
		return fe.ctx.module.AddBitcast(fe.ctx.floatType, raw), nil
	default:
		return 0, fmt.Errorf("%w: load of %v", ErrUnsupportedInstruction, v.Ty)
	}
}

func (fe *funcEmitter) emitStore(v ir.StoreNode) error {
	wordIdx, err := fe.wordAddress(v.Addr)
	if err != nil {
		return err
	}
	val, err := fe.emit(v.Value)
	if err != nil {
		return err
	}
	ptr := fe.ctx.BufferElementPointer(wordIdx)

	switch v.Ty {
	case ir.I32:
		fe.ctx.module.AddStore(ptr, val)
		return nil
	case ir.F32:
		raw := fe.ctx.module.AddBitcast(fe.ctx.uintType, val)
		fe.ctx.module.AddStore(ptr, raw)
		return nil
	default:
		return fmt.Errorf("%w: store of %v", ErrUnsupportedInstruction, v.Ty)
	}
}

// emitIf lowers a structured conditional. Its value, if any, is discarded:
// this package only supports if used as a statement (WASM value-yielding
// if/else expressions are out of scope — select is the construct WASM
// itself provides for that, and this system's decoder does not surface
// it either).
func (fe *funcEmitter) emitIf(v ir.IfNode) error {
	cond, err := fe.emit(v.Cond)
	if err != nil {
		return err
	}
	condBool := fe.ctx.module.AddBinaryOp(OpINotEqual, fe.ctx.boolType, cond, fe.ctx.ConstUint(0))

	mergeLabel := fe.ctx.module.AllocID()
	trueLabel := fe.ctx.module.AllocID()
	falseLabel := fe.ctx.module.AllocID()

	fe.ctx.module.AddSelectionMerge(mergeLabel, SelectionControlNone)
	fe.ctx.module.AddBranchConditional(condBool, trueLabel, falseLabel)

	fe.ctx.module.AddLabel(trueLabel)
	if _, err := fe.emit(v.Then); err != nil {
		return err
	}
	fe.ctx.module.AddBranch(mergeLabel)

	fe.ctx.module.AddLabel(falseLabel)
	if _, err := fe.emit(v.Else); err != nil {
		return err
	}
	fe.ctx.module.AddBranch(mergeLabel)

	fe.ctx.module.AddLabel(mergeLabel)
	return nil
}

// emitLoop lowers a structured loop. WASM `loop` falls through to the end
// of the loop body on natural completion rather than restarting it, so the
// body's own fallthrough branches to the merge block; only an explicit
// Continue branches back to the header (via the continue target).
func (fe *funcEmitter) emitLoop(v ir.LoopNode) error {
	headerLabel := fe.ctx.module.AllocID()
	bodyLabel := fe.ctx.module.AllocID()
	continueLabel := fe.ctx.module.AllocID()
	mergeLabel := fe.ctx.module.AllocID()

	fe.ctx.module.AddBranch(headerLabel)
	fe.ctx.module.AddLabel(headerLabel)
	fe.ctx.module.AddLoopMerge(mergeLabel, continueLabel, LoopControlNone)
	fe.ctx.module.AddBranch(bodyLabel)
	fe.ctx.module.AddLabel(bodyLabel)

	fe.loops = append(fe.loops, loopFrame{continueLabel: continueLabel, mergeLabel: mergeLabel})
	_, err := fe.emit(v.Body)
	fe.loops = fe.loops[:len(fe.loops)-1]
	if err != nil {
		return err
	}

	fe.ctx.module.AddBranch(mergeLabel)
	fe.ctx.module.AddLabel(continueLabel)
	fe.ctx.module.AddBranch(headerLabel)
	fe.ctx.module.AddLabel(mergeLabel)
	return nil
}
