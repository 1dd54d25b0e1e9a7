package spirv

import "github.com/gogpu/wasmspv/ir"

// bufferArrayStride is the stride, in bytes, of the storage buffer's
// element array. Every value this system moves through memory is a 32-bit
// word (Load/Store always divide byte addresses by 4), so the stride is
// fixed at 4 regardless of the value's declared type.
const bufferArrayStride = 4

// Context holds the SPIR-V ids and plumbing shared by every function this
// package emits: the module builder, the base scalar/vector types, the
// storage buffer, and the GlobalInvocationId input. One Context emits
// exactly one module, matching this system's one-kernel-per-module scope.
type Context struct {
	module *ModuleBuilder
	opts   Options

	voidType  uint32
	boolType  uint32
	uintType  uint32 // also used for I32 — SPIR-V ops choose signed/unsigned
	floatType uint32

	uintPtrFunction uint32
	uintPtrUniform  uint32 // pointer to the buffer struct (for the OpVariable itself)
	uintPtrElem     uint32 // pointer to a uint member (for OpAccessChain results)
	uintPtrInput    uint32 // pointer to a uint component of an Input vec3 (GlobalInvocationId)

	bufferVar      uint32
	bufferStructID uint32
	globalInvocID  uint32 // the %gl_GlobalInvocationID variable (Input, uvec3)
	vec3UintType   uint32

	entryPointID uint32
	glslStd450   uint32 // id of the imported GLSL.std.450 extended instruction set

	uintConsts map[uint32]uint32
}

// NewContext allocates the fixed scaffolding every compiled kernel shares:
// capability, memory model, the scalar types, one storage buffer bound at
// set 0 binding 0, and the GlobalInvocationId input variable.
func NewContext(opts Options) *Context {
	m := NewModuleBuilder(opts.Version)
	m.AddCapability(CapabilityShader)
	m.SetMemoryModel(AddressingModelLogical, MemoryModelGLSL450)
	glslStd450 := m.AddExtInstImport("GLSL.std.450")

	c := &Context{module: m, opts: opts, glslStd450: glslStd450, uintConsts: make(map[uint32]uint32)}

	c.voidType = m.AddTypeVoid()
	c.boolType = m.AddTypeBool()
	c.uintType = m.AddTypeInt(32)
	c.floatType = m.AddTypeFloat(32)
	c.vec3UintType = m.AddTypeVector(c.uintType, 3)

	c.uintPtrFunction = m.AddTypePointer(StorageClassFunction, c.uintType)

	// GlobalInvocationId: an Input vec3<uint> built-in.
	inputPtr := m.AddTypePointer(StorageClassInput, c.vec3UintType)
	c.globalInvocID = m.AddVariable(inputPtr, StorageClassInput)
	m.AddDecorate(c.globalInvocID, DecorationBuiltIn, uint32(BuiltInGlobalInvocationID))
	c.uintPtrInput = m.AddTypePointer(StorageClassInput, c.uintType)

	// The single storage buffer: a runtime array of uint wrapped in a
	// BufferBlock-decorated struct, bound at set 0 binding 0. Every Load
	// and Store this system emits addresses into this one buffer.
	arrayType := m.AddTypeRuntimeArray(c.uintType)
	m.AddDecorate(arrayType, DecorationArrayStride, bufferArrayStride)
	c.bufferStructID = m.AddTypeStruct(arrayType)
	m.AddDecorate(c.bufferStructID, DecorationBufferBlock)
	m.AddMemberDecorate(c.bufferStructID, 0, DecorationOffset, 0)

	c.uintPtrUniform = m.AddTypePointer(StorageClassUniform, c.bufferStructID)
	c.bufferVar = m.AddVariable(c.uintPtrUniform, StorageClassUniform)
	m.AddDecorate(c.bufferVar, DecorationDescriptorSet, 0)
	m.AddDecorate(c.bufferVar, DecorationBinding, 0)
	c.uintPtrElem = m.AddTypePointer(StorageClassUniform, c.uintType)

	if opts.EmitDebugNames {
		m.AddName(c.globalInvocID, "gl_GlobalInvocationID")
		m.AddName(c.bufferVar, "data")
	}

	return c
}

// ScalarType returns the SPIR-V type id for a WASM-derived value type.
// I64 and F64 have no representation: this package declares no Int64 or
// Float64 capability, matching the original compiler's refusal to emit
// 64-bit constants.
func (c *Context) ScalarType(ty ir.ValueType) (uint32, error) {
	switch ty {
	case ir.I32:
		return c.uintType, nil
	case ir.F32:
		return c.floatType, nil
	default:
		return 0, ErrUnsupportedInstruction
	}
}

// FunctionPointerType returns a Function-storage-class pointer to ty,
// needed for every OpVariable backing a local.
func (c *Context) FunctionPointerType(ty ir.ValueType) (uint32, error) {
	base, err := c.ScalarType(ty)
	if err != nil {
		return 0, err
	}
	if base == c.uintType {
		return c.uintPtrFunction, nil
	}
	return c.module.AddTypePointer(StorageClassFunction, base), nil
}

// DeclareEntryPoint finishes the module once the entry function has been
// emitted: it wires the OpEntryPoint/OpExecutionMode and finalises the
// interface variable list.
func (c *Context) DeclareEntryPoint(funcID uint32, name string, workgroupSize [3]uint32) {
	c.entryPointID = funcID
	c.module.AddEntryPoint(ExecutionModelGLCompute, funcID, name, []uint32{c.globalInvocID})
	c.module.AddExecutionMode(funcID, ExecutionModeLocalSize, workgroupSize[0], workgroupSize[1], workgroupSize[2])
}

// Finish assembles the final SPIR-V binary.
func (c *Context) Finish() []byte {
	return c.module.Build()
}

// ConstUint returns the id of a uint constant, reusing a previous
// declaration of the same value within this module.
func (c *Context) ConstUint(v uint32) uint32 {
	if id, ok := c.uintConsts[v]; ok {
		return id
	}
	id := c.module.AddConstant(c.uintType, v)
	c.uintConsts[v] = id
	return id
}

// BufferElementPointer returns a pointer to the buffer's wordIndex-th
// uint element, via an access chain through the wrapping struct's single
// member.
func (c *Context) BufferElementPointer(wordIndex uint32) uint32 {
	return c.module.AddAccessChain(c.uintPtrElem, c.bufferVar, c.ConstUint(0), wordIndex)
}

// LoadThreadID loads the x component of GlobalInvocationId as a uint, this
// system's sole recognised global (ir.ThreadID), via an access chain into
// index 0 of the input vec3 followed by a scalar load.
func (c *Context) LoadThreadID() uint32 {
	ptr := c.module.AddAccessChain(c.uintPtrInput, c.globalInvocID, c.ConstUint(0))
	return c.module.AddLoad(c.uintType, ptr)
}
