// Package wasmsrc decodes a WASM binary module into the minimal model the
// ir package's lowering pass consumes: function signatures, locals, a flat
// instruction stream per function body, and the single recognised global.
//
// Section decoding (types, functions, globals, exports, code bodies) is
// delegated to github.com/go-interpreter/wagon/wasm; this package owns only
// the instruction-stream decoder, since wagon's own disassembler targets
// its bytecode interpreter rather than a structured-IR consumer. Nothing
// outside this package imports wagon directly — ir.Lower only ever sees
// wasmsrc's own Instr stream.
package wasmsrc
