// Package spirv emits a SPIR-V binary module from a lowered IR function tree.
//
// SPIR-V is the standard intermediate language for GPU shaders, used by
// Vulkan, OpenCL, and other APIs. This package targets exactly the subset
// a compute kernel needs: one GLCompute entry point, a single storage
// buffer, and the workgroup thread id.
package spirv

// Version represents a SPIR-V version.
type Version struct {
	Major uint8
	Minor uint8
}

// Version1_0 is the only target version: the Uniform+BufferBlock encoding
// this package emits is meant for Vulkan 1.0 compatibility.
var Version1_0 = Version{1, 0}

// Options configures SPIR-V generation.
type Options struct {
	// Version is the SPIR-V version word written into the module header.
	Version Version

	// WorkgroupSize overrides the LocalSize execution mode. The zero value
	// means "unset", in which case DefaultOptions' (64, 1, 1) is used.
	WorkgroupSize [3]uint32

	// EmitDebugNames controls whether OpName instructions are emitted for
	// each function, the storage buffer, and the GlobalInvocationId input.
	EmitDebugNames bool
}

// DefaultOptions returns the options this package was designed around:
// SPIR-V 1.0, workgroup size (64, 1, 1), no debug names.
func DefaultOptions() Options {
	return Options{
		Version:        Version1_0,
		WorkgroupSize:  [3]uint32{64, 1, 1},
		EmitDebugNames: false,
	}
}

// SPIR-V magic number and constants.
const (
	MagicNumber = 0x07230203
	GeneratorID = 0x00000000 // Unregistered generator
)

// OpCode represents a SPIR-V opcode.
type OpCode uint16

// Opcodes used while emitting a compute kernel module.
const (
	OpSource            OpCode = 3
	OpName              OpCode = 5
	OpMemberName        OpCode = 6
	OpString            OpCode = 7
	OpExtension         OpCode = 10
	OpExtInstImport     OpCode = 11
	OpExtInst           OpCode = 12
	OpMemoryModel       OpCode = 14
	OpEntryPoint        OpCode = 15
	OpExecutionMode     OpCode = 16
	OpCapability        OpCode = 17
	OpTypeVoid          OpCode = 19
	OpTypeBool          OpCode = 20
	OpTypeInt           OpCode = 21
	OpTypeFloat         OpCode = 22
	OpTypeVector        OpCode = 23
	OpTypeArray         OpCode = 28
	OpTypeRuntimeArray  OpCode = 29
	OpTypeStruct        OpCode = 30
	OpTypePointer       OpCode = 32
	OpTypeFunction      OpCode = 33
	OpConstant          OpCode = 43
	OpConstantComposite OpCode = 44
	OpFunction          OpCode = 54
	OpFunctionParameter OpCode = 55
	OpFunctionEnd       OpCode = 56
	OpFunctionCall      OpCode = 57
	OpVariable          OpCode = 59
	OpLoad              OpCode = 61
	OpStore             OpCode = 62
	OpAccessChain       OpCode = 65
	OpDecorate          OpCode = 71
	OpMemberDecorate    OpCode = 72
	OpCompositeExtract  OpCode = 81
	OpBitcast           OpCode = 124
	OpIAdd              OpCode = 128
	OpISub              OpCode = 130
	OpIMul              OpCode = 132
	OpUDiv              OpCode = 134
	OpSDiv              OpCode = 135
	OpIEqual            OpCode = 170
	OpINotEqual         OpCode = 171
	OpUGreaterThan      OpCode = 172
	OpSGreaterThan      OpCode = 173
	OpUGreaterThanEqual OpCode = 174
	OpSGreaterThanEqual OpCode = 175
	OpULessThan         OpCode = 176
	OpSLessThan         OpCode = 177
	OpULessThanEqual    OpCode = 178
	OpSLessThanEqual    OpCode = 179
	OpSelect            OpCode = 169
	OpShiftRightLogical    OpCode = 194
	OpShiftRightArithmetic OpCode = 195
	OpShiftLeftLogical     OpCode = 196
	OpLoopMerge         OpCode = 246
	OpSelectionMerge    OpCode = 247
	OpLabel             OpCode = 248
	OpBranch            OpCode = 249
	OpBranchConditional OpCode = 250
	OpReturn            OpCode = 253
	OpReturnValue       OpCode = 254
	OpUnreachable       OpCode = 255
)

// Decoration represents a SPIR-V decoration.
type Decoration uint32

const (
	DecorationBlock         Decoration = 2
	DecorationBufferBlock   Decoration = 3
	DecorationArrayStride   Decoration = 6
	DecorationBuiltIn       Decoration = 11
	DecorationBinding       Decoration = 33
	DecorationDescriptorSet Decoration = 34
	DecorationOffset        Decoration = 35
)

// BuiltIn represents a SPIR-V built-in decoration value.
type BuiltIn uint32

// BuiltInGlobalInvocationID is the only built-in this package wires: the
// 3D index of the current compute invocation within the dispatch.
const BuiltInGlobalInvocationID BuiltIn = 28

// ExecutionModel represents a SPIR-V execution model.
type ExecutionModel uint32

// ExecutionModelGLCompute is the only execution model this package emits.
const ExecutionModelGLCompute ExecutionModel = 5

// ExecutionMode represents a SPIR-V execution mode.
type ExecutionMode uint32

// ExecutionModeLocalSize is the only execution mode this package emits.
const ExecutionModeLocalSize ExecutionMode = 17

// StorageClass represents a SPIR-V storage class.
type StorageClass uint32

const (
	StorageClassInput    StorageClass = 1
	StorageClassUniform  StorageClass = 2
	StorageClassFunction StorageClass = 7
)

// AddressingModel represents a SPIR-V addressing model.
type AddressingModel uint32

// AddressingModelLogical is the only addressing model this package emits.
const AddressingModelLogical AddressingModel = 0

// MemoryModel represents a SPIR-V memory model.
type MemoryModel uint32

// MemoryModelGLSL450 is the only memory model this package emits.
const MemoryModelGLSL450 MemoryModel = 1

// FunctionControl represents a SPIR-V function control mask.
type FunctionControl uint32

// FunctionControlNone is the only function control value this package emits.
const FunctionControlNone FunctionControl = 0x0

// Capability represents a SPIR-V capability.
type Capability uint32

// CapabilityShader is the only capability this package declares.
const CapabilityShader Capability = 1

// SelectionControl flags for OpSelectionMerge.
type SelectionControl uint32

// SelectionControlNone is the only selection control value this package emits.
const SelectionControlNone SelectionControl = 0x0

// LoopControl flags for OpLoopMerge.
type LoopControl uint32

// LoopControlNone is the only loop control value this package emits.
const LoopControlNone LoopControl = 0x0
