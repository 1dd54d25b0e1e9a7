package wasmsrc

import "testing"

func TestDecodeBodySimpleArithmetic(t *testing.T) {
	// local.get 0, local.get 1, i32.add, end
	code := []byte{byte(OpLocalGet), 0x00, byte(OpLocalGet), 0x01, byte(OpI32Add), byte(OpEnd)}

	instrs, err := decodeBody(code)
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}
	if len(instrs) != 4 {
		t.Fatalf("got %d instructions, want 4", len(instrs))
	}
	if instrs[0].Op != OpLocalGet || instrs[0].Imm.Index != 0 {
		t.Errorf("instr 0 = %+v", instrs[0])
	}
	if instrs[1].Op != OpLocalGet || instrs[1].Imm.Index != 1 {
		t.Errorf("instr 1 = %+v", instrs[1])
	}
	if instrs[2].Op != OpI32Add {
		t.Errorf("instr 2 = %+v", instrs[2])
	}
	if instrs[3].Op != OpEnd {
		t.Errorf("instr 3 = %+v", instrs[3])
	}
}

func TestDecodeBodyI32ConstSigned(t *testing.T) {
	// i32.const -1 is encoded as the single LEB128 byte 0x7f
	code := []byte{byte(OpI32Const), 0x7f, byte(OpEnd)}

	instrs, err := decodeBody(code)
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}
	if instrs[0].Imm.I32 != -1 {
		t.Errorf("const = %d, want -1", instrs[0].Imm.I32)
	}
}

func TestDecodeBodyI32ConstLarge(t *testing.T) {
	// i32.const 300 = 0xAC 0x02 in LEB128
	code := []byte{byte(OpI32Const), 0xAC, 0x02, byte(OpEnd)}

	instrs, err := decodeBody(code)
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}
	if instrs[0].Imm.I32 != 300 {
		t.Errorf("const = %d, want 300", instrs[0].Imm.I32)
	}
}

func TestDecodeBodyLoadStoreOffset(t *testing.T) {
	// local.get 0, i32.load offset=8 align=2, end
	code := []byte{byte(OpLocalGet), 0x00, byte(OpI32Load), 0x02, 0x08, byte(OpEnd)}

	instrs, err := decodeBody(code)
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}
	if instrs[1].Op != OpI32Load || instrs[1].Imm.Index != 8 {
		t.Errorf("load instr = %+v", instrs[1])
	}
}

func TestDecodeBodyBlockType(t *testing.T) {
	// block (result i32) ... end end
	code := []byte{byte(OpBlock), 0x7f, byte(OpI32Const), 0x00, byte(OpEnd), byte(OpEnd)}

	instrs, err := decodeBody(code)
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}
	if instrs[0].Imm.Block.Empty || instrs[0].Imm.Block.Ty != I32 {
		t.Errorf("block type = %+v", instrs[0].Imm.Block)
	}
}

func TestDecodeBodyEmptyBlockType(t *testing.T) {
	code := []byte{byte(OpLoop), 0x40, byte(OpEnd), byte(OpEnd)}

	instrs, err := decodeBody(code)
	if err != nil {
		t.Fatalf("decodeBody: %v", err)
	}
	if !instrs[0].Imm.Block.Empty {
		t.Errorf("block type = %+v, want empty", instrs[0].Imm.Block)
	}
}

func TestDecodeBodyTruncatedInstruction(t *testing.T) {
	code := []byte{byte(OpLocalGet)} // missing index operand

	if _, err := decodeBody(code); err == nil {
		t.Fatal("expected error decoding truncated instruction")
	}
}
