package wasmsrc

// ValueType is a WASM value type, decoded from its binary encoding byte.
type ValueType uint8

const (
	I32 ValueType = iota
	I64
	F32
	F64
)

// Op is a raw WASM opcode byte.
type Op uint8

// Opcodes this system's decoder understands. Anything else decodes to an
// Instr whose Op is the raw byte and whose Imm is zero; ir.Lower reports
// ErrUnhandledOpcode for any Op it has no IR node for.
const (
	OpUnreachable Op = 0x00
	OpNop         Op = 0x01
	OpBlock       Op = 0x02
	OpLoop        Op = 0x03
	OpIf          Op = 0x04
	OpElse        Op = 0x05
	OpEnd         Op = 0x0B
	OpBr          Op = 0x0C
	OpBrIf        Op = 0x0D
	OpReturn      Op = 0x0F
	OpCall        Op = 0x10
	OpLocalGet    Op = 0x20
	OpLocalSet    Op = 0x21
	OpLocalTee    Op = 0x22
	OpGlobalGet   Op = 0x23
	OpGlobalSet   Op = 0x24
	OpI32Load     Op = 0x28
	OpI64Load     Op = 0x29
	OpF32Load     Op = 0x2A
	OpF64Load     Op = 0x2B
	OpI32Store    Op = 0x36
	OpI64Store    Op = 0x37
	OpF32Store    Op = 0x38
	OpF64Store    Op = 0x39
	OpI32Const    Op = 0x41
	OpI64Const    Op = 0x42
	OpF32Const    Op = 0x43
	OpF64Const    Op = 0x44

	// Integer arithmetic (i32 range; i64 range mirrors it at +0x12 per the
	// WASM encoding, handled uniformly by width in the decoder).
	OpI32Add    Op = 0x6A
	OpI32Sub    Op = 0x6B
	OpI32Mul    Op = 0x6C
	OpI32DivS   Op = 0x6D
	OpI32DivU   Op = 0x6E
	OpI32Shl    Op = 0x74
	OpI32ShrS   Op = 0x75
	OpI32ShrU   Op = 0x76

	OpI64Add  Op = 0x7C
	OpI64Sub  Op = 0x7D
	OpI64Mul  Op = 0x7E
	OpI64DivS Op = 0x7F
	OpI64DivU Op = 0x80
	OpI64Shl  Op = 0x86
	OpI64ShrS Op = 0x87
	OpI64ShrU Op = 0x88

	// Integer comparisons (i32 range). i32.eqz (0x45) has no entry here: it
	// is equivalent to comparing against a zero constant and is out of
	// scope until a caller needs it, so the decoder leaves it unrecognised.
	OpI32Eq  Op = 0x46
	OpI32Ne  Op = 0x47
	OpI32LtS Op = 0x48
	OpI32LtU Op = 0x49
	OpI32GtS Op = 0x4A
	OpI32GtU Op = 0x4B
	OpI32LeS Op = 0x4C
	OpI32LeU Op = 0x4D
	OpI32GeS Op = 0x4E
	OpI32GeU Op = 0x4F

	OpI64Eq  Op = 0x51
	OpI64Ne  Op = 0x52
	OpI64LtS Op = 0x53
	OpI64LtU Op = 0x54
	OpI64GtS Op = 0x55
	OpI64GtU Op = 0x56
	OpI64LeS Op = 0x57
	OpI64LeU Op = 0x58
	OpI64GeS Op = 0x59
	OpI64GeU Op = 0x5A
)

// BlockType is the immediate of block/loop/if: either the empty type or a
// single WASM value type. Multi-value block types are out of scope.
type BlockType struct {
	Empty bool
	Ty    ValueType
}

// Immediate is the decoded operand of one instruction. Only the field
// matching Instr.Op is meaningful.
type Immediate struct {
	I32   int32
	I64   int64
	F32   float32
	F64   float64
	Index uint32 // local/global/function index, or branch depth
	Block BlockType
}

// Instr is one decoded WASM instruction: an opcode plus its immediate.
type Instr struct {
	Op  Op
	Imm Immediate
}

// FunctionSig is a function's parameter and result types. At most one
// result is supported (WASM multi-value is out of scope).
type FunctionSig struct {
	Params  []ValueType
	Results []ValueType
}

// Fun is one function: its signature, its declared locals (beyond the
// parameters, which are locals 0..len(Params)-1), and its body decoded as a
// flat instruction stream.
type Fun struct {
	Sig    FunctionSig
	Locals []ValueType
	Body   []Instr
}

// Global is a module-scope global. This system recognises exactly one:
// an immutable I32 at index 0, the workgroup thread-id proxy.
type Global struct {
	Idx     uint32
	Ty      ValueType
	Mutable bool
}

// Module is the decoded WASM module: its functions and globals, and the
// index of the function designated as the compute entry point.
type Module struct {
	Funcs   []Fun
	Globals []Global
	Entry   int
}
