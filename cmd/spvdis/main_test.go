package main

import (
	"io"
	"os"
	"testing"

	"github.com/gogpu/wasmspv/spirv"
)

// captureStdout redirects os.Stdout for the duration of fn and returns
// whatever it wrote.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	fn()
	w.Close()
	os.Stdout = orig

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("reading pipe: %v", err)
	}
	return string(out)
}

func TestDisassembleEmptyModule(t *testing.T) {
	ctx := spirv.NewContext(spirv.DefaultOptions())
	data := ctx.Finish()

	var err error
	out := captureStdout(t, func() {
		err = disassemble(data)
	})
	if err != nil {
		t.Fatalf("disassemble: %v", err)
	}
	if out == "" {
		t.Fatal("expected non-empty disassembly output")
	}
}

func TestDisassembleRejectsBadMagic(t *testing.T) {
	err := disassemble([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0})
	if err == nil {
		t.Fatal("expected an error for a bad magic number")
	}
}

func TestDisassembleRejectsShortInput(t *testing.T) {
	err := disassemble([]byte{1, 2, 3})
	if err == nil {
		t.Fatal("expected an error for a too-short input")
	}
}
