// Package wasmspv compiles a single-function WASM binary module into a
// SPIR-V compute shader.
//
// The compiled module is expected to export exactly one function — the
// compute kernel's entry point — which reads and writes a single linear
// memory (at most one `memory` section) through i32/f32 loads and stores.
// The pipeline is:
//
//	wasmsrc.Load   — decode the WASM binary into Funcs/Globals/Entry
//	ir.Lower       — lower each function's instruction stream to a tree
//	spirv.Context  — emit the tree as a GLCompute SPIR-V module
//
// Example usage:
//
//	data, _ := os.ReadFile("kernel.wasm")
//	spirvBytes, err := wasmspv.Compile(data, wasmspv.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
package wasmspv

import (
	"fmt"
	"os"

	"github.com/gogpu/wasmspv/ir"
	"github.com/gogpu/wasmspv/spirv"
	"github.com/gogpu/wasmspv/wasmsrc"
)

// CompileOptions configures compilation.
type CompileOptions struct {
	// SPIRV is forwarded to spirv.NewContext: target version, workgroup
	// size, and debug-name emission.
	SPIRV spirv.Options

	// Verbose causes Compile to print one progress line per lowered
	// function, and CompileFile a summary line, to os.Stderr.
	Verbose bool
}

// DefaultOptions returns the options this package was designed around:
// spirv.DefaultOptions(), not verbose.
func DefaultOptions() CompileOptions {
	return CompileOptions{SPIRV: spirv.DefaultOptions()}
}

// Compile decodes a WASM binary module and emits its entry function as a
// SPIR-V compute shader.
//
// Every function in the module's function-index space is emitted, in
// index order; calls between them are not lowered (spirv.EmitFunction
// rejects every CallNode). The module's designated entry export is wired
// up with OpEntryPoint/OpExecutionMode.
func Compile(data []byte, opts CompileOptions) ([]byte, error) {
	mod, err := wasmsrc.Load(data)
	if err != nil {
		return nil, fmt.Errorf("wasmspv: %w", err)
	}

	ctx := spirv.NewContext(opts.SPIRV)

	funcIDs := make([]uint32, len(mod.Funcs))
	for i, fn := range mod.Funcs {
		lowered, err := ir.Lower(fn, i)
		if err != nil {
			return nil, fmt.Errorf("wasmspv: %w", err)
		}
		if opts.Verbose {
			fmt.Fprintf(os.Stderr, "wasmspv: lowered function %d (%d params)\n", i, len(fn.Sig.Params))
		}
		name := fmt.Sprintf("func_%d", i)
		id, err := spirv.EmitFunction(ctx, lowered, name)
		if err != nil {
			return nil, fmt.Errorf("wasmspv: function %d: %w", i, err)
		}
		funcIDs[i] = id
	}

	if mod.Entry < 0 || mod.Entry >= len(funcIDs) {
		return nil, fmt.Errorf("wasmspv: entry function index %d out of range", mod.Entry)
	}
	workgroupSize := opts.SPIRV.WorkgroupSize
	if workgroupSize == ([3]uint32{}) {
		workgroupSize = spirv.DefaultOptions().WorkgroupSize
	}
	ctx.DeclareEntryPoint(funcIDs[mod.Entry], "main", workgroupSize)

	return ctx.Finish(), nil
}

// CompileFile reads inputPath, compiles it, and writes the resulting
// SPIR-V binary to outputPath. It is the thin file-I/O wrapper
// cmd/wasmspvc uses; Compile itself reads and writes no files.
func CompileFile(inputPath, outputPath string, opts CompileOptions) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("wasmspv: reading %s: %w", inputPath, err)
	}

	spirvBytes, err := Compile(data, opts)
	if err != nil {
		return err
	}

	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "wasmspv: compiled %s (%d bytes of SPIR-V)\n", inputPath, len(spirvBytes))
	}

	if err := os.WriteFile(outputPath, spirvBytes, 0o644); err != nil {
		return fmt.Errorf("wasmspv: writing %s: %w", outputPath, err)
	}
	return nil
}
