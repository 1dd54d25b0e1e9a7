package spirv

import (
	"encoding/binary"
	"testing"
)

func TestModuleBuilderMinimalModule(t *testing.T) {
	b := NewModuleBuilder(Version1_0)
	b.AddCapability(CapabilityShader)
	b.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)

	voidType := b.AddTypeVoid()
	funcType := b.AddTypeFunction(voidType)
	funcID := b.AddFunction(funcType, voidType, FunctionControlNone)
	b.AddLabel(b.AllocID())
	b.AddReturn()
	b.AddFunctionEnd()
	b.AddEntryPoint(ExecutionModelGLCompute, funcID, "main", nil)
	b.AddExecutionMode(funcID, ExecutionModeLocalSize, 1, 1, 1)

	data := b.Build()
	if len(data) < 20 {
		t.Fatalf("module too short: %d bytes", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != MagicNumber {
		t.Fatalf("bad magic: %#x", magic)
	}
	if version := binary.LittleEndian.Uint32(data[4:8]); version != versionToWord(Version1_0) {
		t.Fatalf("bad version word: %#x", version)
	}
}

func TestModuleBuilderTypeAndConstant(t *testing.T) {
	b := NewModuleBuilder(Version1_0)
	uintType := b.AddTypeInt(32)
	floatType := b.AddTypeFloat(32)
	vecType := b.AddTypeVector(uintType, 3)
	if uintType == floatType || uintType == vecType || floatType == vecType {
		t.Fatal("expected distinct type ids")
	}

	c1 := b.AddConstant(uintType, 42)
	c2 := b.AddConstant(uintType, 42)
	if c1 == c2 {
		t.Fatal("AddConstant is not expected to deduplicate on its own — that is Context.ConstUint's job")
	}
}

func TestModuleBuilderAccessChainAndLoadStore(t *testing.T) {
	b := NewModuleBuilder(Version1_0)
	uintType := b.AddTypeInt(32)
	arrayType := b.AddTypeRuntimeArray(uintType)
	b.AddDecorate(arrayType, DecorationArrayStride, 4)
	structType := b.AddTypeStruct(arrayType)
	b.AddDecorate(structType, DecorationBufferBlock)
	b.AddMemberDecorate(structType, 0, DecorationOffset, 0)

	ptrType := b.AddTypePointer(StorageClassUniform, structType)
	elemPtrType := b.AddTypePointer(StorageClassUniform, uintType)
	bufferVar := b.AddVariable(ptrType, StorageClassUniform)

	zero := b.AddConstant(uintType, 0)
	idx := b.AddConstant(uintType, 2)
	elemPtr := b.AddAccessChain(elemPtrType, bufferVar, zero, idx)
	val := b.AddLoad(uintType, elemPtr)
	b.AddStore(elemPtr, val)

	data := b.Build()
	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(data[i*4 : i*4+4])
	}
	if !containsOpcode(words, OpAccessChain) {
		t.Fatal("expected OpAccessChain in the assembled module")
	}
	if !containsOpcode(words, OpStore) {
		t.Fatal("expected OpStore in the assembled module")
	}
}

func containsOpcode(words []uint32, op OpCode) bool {
	i := 5
	for i < len(words) {
		wordCount := words[i] >> 16
		if OpCode(words[i]&0xffff) == op {
			return true
		}
		i += int(wordCount)
	}
	return false
}

func TestInstructionBuilderString(t *testing.T) {
	b := NewInstructionBuilder()
	b.AddWord(7)
	b.AddString("main")
	inst := b.Build(OpEntryPoint)
	if len(inst.Words) < 2 {
		t.Fatalf("expected at least 2 words, got %d", len(inst.Words))
	}
}
