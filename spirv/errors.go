package spirv

import "errors"

// ErrUnsupportedInstruction is returned when an IR node cannot be lowered
// to SPIR-V by this package — 64-bit arithmetic, comparisons, or constants
// (no Int64 capability is declared), or any Call.
var ErrUnsupportedInstruction = errors.New("spirv: instruction cannot be lowered")

// ErrUnsupportedGlobal is returned when an IR GetGlobalNode references
// anything other than ir.ThreadID, the one global this package wires.
var ErrUnsupportedGlobal = errors.New("spirv: only the thread-id global is supported")

// ErrBreakOutsideLoop is returned when a BreakNode or ContinueNode appears
// with no enclosing LoopNode — malformed IR that ir.Lower should never
// itself produce, but the emitter checks again since it walks the tree
// independently.
var ErrBreakOutsideLoop = errors.New("spirv: break or continue outside a loop")
