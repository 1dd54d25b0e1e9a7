package wasmspv

import (
	"encoding/binary"
	"testing"
)

// buildAddKernel assembles the raw bytes of a minimal WASM binary module
// exporting a single function `main() -> i32` that computes
// (i32.add (i32.load 0) (i32.load 4)) — a stand-in for a two-operand
// compute kernel, hand-encoded since this repository has no WASM text
// assembler of its own.
func buildAddKernel(t *testing.T) []byte {
	t.Helper()

	var buf []byte
	buf = append(buf, 0x00, 0x61, 0x73, 0x6d) // magic
	buf = append(buf, 0x01, 0x00, 0x00, 0x00) // version 1

	// Type section: type 0 = () -> i32
	typeSec := []byte{0x01, 0x60, 0x00, 0x01, 0x7f}
	buf = appendSection(buf, 0x01, typeSec)

	// Function section: function 0 uses type 0
	funcSec := []byte{0x01, 0x00}
	buf = appendSection(buf, 0x03, funcSec)

	// Memory section: one memory, min 1 page
	memSec := []byte{0x01, 0x00, 0x01}
	buf = appendSection(buf, 0x05, memSec)

	// Export section: export function 0 as "main"
	exportSec := []byte{0x01, 0x04, 'm', 'a', 'i', 'n', 0x00, 0x00}
	buf = appendSection(buf, 0x07, exportSec)

	// Code section: one function body, no locals,
	// i32.const 0; i32.load; i32.const 4; i32.load; i32.add; end
	body := []byte{
		0x41, 0x00, // i32.const 0
		0x28, 0x02, 0x00, // i32.load align=2 offset=0
		0x41, 0x04, // i32.const 4
		0x28, 0x02, 0x00, // i32.load align=2 offset=0
		0x6a, // i32.add
		0x0b, // end
	}
	fullBody := append([]byte{0x00}, body...) // 0 local-entries
	codeSec := append([]byte{0x01, byte(len(fullBody))}, fullBody...)
	buf = appendSection(buf, 0x0a, codeSec)

	return buf
}

func appendSection(buf []byte, id byte, payload []byte) []byte {
	buf = append(buf, id)
	buf = append(buf, encodeVaruint32(uint32(len(payload)))...)
	return append(buf, payload...)
}

func encodeVaruint32(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			break
		}
	}
	return out
}

func TestCompileAddKernel(t *testing.T) {
	data := buildAddKernel(t)

	spirvBytes, err := Compile(data, DefaultOptions())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}

	if len(spirvBytes) < 20 {
		t.Fatalf("module too short: %d bytes", len(spirvBytes))
	}
	magic := binary.LittleEndian.Uint32(spirvBytes[0:4])
	if magic != 0x07230203 {
		t.Fatalf("bad magic number: %#x", magic)
	}
}

func TestCompileRejectsMultiLevelBranch(t *testing.T) {
	data := buildMultiLevelBranchKernel(t)
	_, err := Compile(data, DefaultOptions())
	if err == nil {
		t.Fatal("expected an error for a multi-level branch")
	}
}

// buildMultiLevelBranchKernel is like buildAddKernel but its body is
// `block { block { br 1 } }`, which targets neither the innermost loop nor
// the recognised block-wrapping-a-loop shape.
func buildMultiLevelBranchKernel(t *testing.T) []byte {
	t.Helper()

	var buf []byte
	buf = append(buf, 0x00, 0x61, 0x73, 0x6d)
	buf = append(buf, 0x01, 0x00, 0x00, 0x00)

	typeSec := []byte{0x01, 0x60, 0x00, 0x00} // () -> ()
	buf = appendSection(buf, 0x01, typeSec)

	funcSec := []byte{0x01, 0x00}
	buf = appendSection(buf, 0x03, funcSec)

	exportSec := []byte{0x01, 0x04, 'm', 'a', 'i', 'n', 0x00, 0x00}
	buf = appendSection(buf, 0x07, exportSec)

	body := []byte{
		0x02, 0x40, // block (empty type)
		0x02, 0x40, // block (empty type)
		0x0c, 0x01, // br 1
		0x0b, // end (inner block)
		0x0b, // end (outer block)
		0x0b, // end (function)
	}
	fullBody := append([]byte{0x00}, body...)
	codeSec := append([]byte{0x01, byte(len(fullBody))}, fullBody...)
	buf = appendSection(buf, 0x0a, codeSec)

	return buf
}
