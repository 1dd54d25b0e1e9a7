package ir

// ValueType is a WASM value type. Width is implicit in the type itself.
type ValueType uint8

const (
	I32 ValueType = iota
	I64
	F32
	F64
)

func (t ValueType) String() string {
	switch t {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return "invalid"
	}
}

// Width distinguishes 32-bit from 64-bit integer operations. Integer
// arithmetic and comparison nodes are width-polymorphic; everything else
// carries a concrete ValueType instead.
type Width uint8

const (
	W32 Width = iota
	W64
)

// Local identifies a function parameter or local variable. Parameters
// occupy indices 0..N-1, ahead of any declared locals.
type Local struct {
	Idx uint32
	Ty  ValueType
}

// Global identifies a WASM global. Only the immutable I32 global at index 0
// is recognised by this system — it denotes the x component of the GPU
// global invocation id. Any other global is a hard error at emission time.
type Global struct {
	Idx     uint32
	Ty      ValueType
	Mutable bool
}

// ThreadID is the one recognised global: an immutable I32 at index 0.
var ThreadID = Global{Idx: 0, Ty: I32, Mutable: false}

// Const is a tagged constant value. The 64-bit variants are accepted here —
// the IR does not reject them — but the SPIR-V lowering pass in package
// spirv rejects them with ErrUnsupportedInstruction, since this system
// declares no SPIR-V Int64/Float64 capability.
type Const struct {
	Ty  ValueType
	I32 int32
	I64 int64
	F32 float32
	F64 float64
}

// ConstI32 builds an I32 constant.
func ConstI32(v int32) Const { return Const{Ty: I32, I32: v} }

// ConstI64 builds an I64 constant.
func ConstI64(v int64) Const { return Const{Ty: I64, I64: v} }

// ConstF32 builds an F32 constant.
func ConstF32(v float32) Const { return Const{Ty: F32, F32: v} }

// ConstF64 builds an F64 constant.
func ConstF64(v float64) Const { return Const{Ty: F64, F64: v} }

// INumOp is a width-polymorphic integer arithmetic operator.
type INumOp uint8

const (
	Mul INumOp = iota
	Add
	Sub
	Shl
	ShrS
	ShrU
	DivU
	DivS
)

// ICompOp is a width-polymorphic integer comparison operator. Results are
// converted to a 0/1 integer of the operand width, mirroring WASM's
// comparison semantics (SPIR-V has a genuine boolean type; WASM does not).
type ICompOp uint8

const (
	Eq ICompOp = iota
	NEq
	LeU
	GeU
	LtU
	GtU
	LeS
	GeS
	LtS
	GtS
)
