// Package ir lowers a linear WASM instruction stream into a tree-structured
// intermediate representation suitable for direct SPIR-V emission.
//
// The lowering is a single-pass stack-to-tree translation: Lower walks a
// function's instructions left to right, maintaining a compile-time operand
// stack, and produces a Base tree whose shape makes operand evaluation order
// explicit. There is no second pass and no phi-node reconstruction — WASM's
// structured blocks map directly onto the tree's If/Loop/Break/Continue
// nodes, so the SPIR-V emitter in package spirv can walk the tree exactly
// once.
package ir
