package ir

import (
	"errors"
	"fmt"
)

// ErrMultiLevelBranch is returned when a WASM branch targets a label other
// than the innermost enclosing loop, except for a depth-1 branch to a block
// that directly wraps that loop, which lowers to a break (see
// resolveBranch). Multi-level branches require either a
// pre-pass that flattens nested loops into single-level form, or a
// CFG-to-structured pass with merge/continue insertion; this system
// implements neither.
var ErrMultiLevelBranch = errors.New("ir: branch depth other than the innermost loop is not supported")

// ErrOperandStackUnderflow is returned when an instruction consumes more
// operands than the compile-time stack holds — a malformed WASM body.
var ErrOperandStackUnderflow = errors.New("ir: operand stack underflow")

// ErrOperandStackNotEmpty is returned when a function body leaves values on
// the operand stack with no consumer — a malformed WASM body.
var ErrOperandStackNotEmpty = errors.New("ir: operand stack not empty at end of body")

// ErrUnhandledOpcode is returned for a WASM opcode this system's IR has no
// node for at all (table operations, SIMD, multi-memory, global.set,
// floating-point comparisons). This is distinct from spirv.ErrUnsupportedInstruction,
// which rejects IR nodes the IR can represent but the emitter cannot lower.
var ErrUnhandledOpcode = errors.New("ir: opcode has no IR representation in this system")

// LowerError reports a failure while lowering one function's body, with
// enough context to locate the offending instruction.
type LowerError struct {
	FuncIdx  int
	InstrIdx int
	Err      error
}

func (e *LowerError) Error() string {
	return fmt.Sprintf("ir: function %d, instruction %d: %v", e.FuncIdx, e.InstrIdx, e.Err)
}

func (e *LowerError) Unwrap() error {
	return e.Err
}
