// Command wasmspvc compiles a single-function WASM binary module into a
// SPIR-V compute shader.
//
// Usage:
//
//	wasmspvc <input.wasm> [output.spv]
//
// Examples:
//
//	wasmspvc kernel.wasm                 # writes out.spv
//	wasmspvc kernel.wasm kernel.spv       # writes kernel.spv
//	wasmspvc -v kernel.wasm kernel.spv    # prints per-function progress
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gogpu/wasmspv"
)

var verbose bool

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "wasmspvc <input.wasm> [output.spv]",
		Short:         "Compile a single-function WASM module to a SPIR-V compute shader",
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          run,
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print per-function compilation progress")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	inputPath := args[0]
	outputPath := "out.spv"
	if len(args) == 2 {
		outputPath = args[1]
	}

	opts := wasmspv.DefaultOptions()
	opts.Verbose = verbose

	if err := wasmspv.CompileFile(inputPath, outputPath, opts); err != nil {
		return fmt.Errorf("wasmspvc: %w", err)
	}
	return nil
}
