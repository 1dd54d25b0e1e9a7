package wasmsrc

import (
	"encoding/binary"
	"fmt"
	"math"
)

// byteReader is a cursor over a function body's raw code bytes.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) done() bool {
	return r.pos >= len(r.data)
}

func (r *byteReader) readByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, fmt.Errorf("wasmsrc: unexpected end of code at offset %d", r.pos)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// readVarUint32 decodes an unsigned LEB128 value.
func (r *byteReader) readVarUint32() (uint32, error) {
	var result uint32
	var shift uint
	for {
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		result |= uint32(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 35 {
			return 0, fmt.Errorf("wasmsrc: varuint32 too long at offset %d", r.pos)
		}
	}
}

// readVarInt32 decodes a signed LEB128 value into an int32.
func (r *byteReader) readVarInt32() (int32, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.readByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 35 {
			return 0, fmt.Errorf("wasmsrc: varint32 too long at offset %d", r.pos)
		}
	}
	if shift < 32 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return int32(result), nil
}

// readVarInt64 decodes a signed LEB128 value into an int64.
func (r *byteReader) readVarInt64() (int64, error) {
	var result int64
	var shift uint
	var b byte
	var err error
	for {
		b, err = r.readByte()
		if err != nil {
			return 0, err
		}
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
		if shift >= 70 {
			return 0, fmt.Errorf("wasmsrc: varint64 too long at offset %d", r.pos)
		}
	}
	if shift < 64 && b&0x40 != 0 {
		result |= -1 << shift
	}
	return result, nil
}

func (r *byteReader) readFloat32() (float32, error) {
	if r.pos+4 > len(r.data) {
		return 0, fmt.Errorf("wasmsrc: unexpected end of code reading f32 at offset %d", r.pos)
	}
	bits := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return math.Float32frombits(bits), nil
}

func (r *byteReader) readFloat64() (float64, error) {
	if r.pos+8 > len(r.data) {
		return 0, fmt.Errorf("wasmsrc: unexpected end of code reading f64 at offset %d", r.pos)
	}
	bits := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return math.Float64frombits(bits), nil
}

func (r *byteReader) readBlockType() (BlockType, error) {
	b, err := r.readByte()
	if err != nil {
		return BlockType{}, err
	}
	switch b {
	case 0x40: // empty block type
		return BlockType{Empty: true}, nil
	case 0x7f:
		return BlockType{Ty: I32}, nil
	case 0x7e:
		return BlockType{Ty: I64}, nil
	case 0x7d:
		return BlockType{Ty: F32}, nil
	case 0x7c:
		return BlockType{Ty: F64}, nil
	default:
		return BlockType{}, fmt.Errorf("wasmsrc: multi-value block types are not supported (byte 0x%x)", b)
	}
}

// decodeBody turns one function's raw code bytes into a flat instruction
// stream. Every opcode byte becomes an Instr, including ones ir.Lower has
// no tree node for (table ops, SIMD, multi-memory); immediates are decoded
// only for the opcodes listed below, so the operand bytes of any other
// opcode are read as the instructions that follow it.
func decodeBody(code []byte) ([]Instr, error) {
	r := &byteReader{data: code}
	var instrs []Instr

	for !r.done() {
		opByte, err := r.readByte()
		if err != nil {
			return nil, err
		}
		op := Op(opByte)
		instr := Instr{Op: op}

		switch op {
		case OpBlock, OpLoop, OpIf:
			bt, err := r.readBlockType()
			if err != nil {
				return nil, err
			}
			instr.Imm.Block = bt

		case OpElse, OpEnd, OpUnreachable, OpNop, OpReturn:
			// no immediate

		case OpBr, OpBrIf, OpCall, OpLocalGet, OpLocalSet, OpLocalTee,
			OpGlobalGet, OpGlobalSet:
			idx, err := r.readVarUint32()
			if err != nil {
				return nil, err
			}
			instr.Imm.Index = idx

		case OpI32Load, OpI64Load, OpF32Load, OpF64Load,
			OpI32Store, OpI64Store, OpF32Store, OpF64Store:
			// align, then offset — both varuint32; offset is the part this
			// system's IR cares about (folded into the Addr expression by
			// the caller), align is discarded.
			if _, err := r.readVarUint32(); err != nil {
				return nil, err
			}
			offset, err := r.readVarUint32()
			if err != nil {
				return nil, err
			}
			instr.Imm.Index = offset

		case OpI32Const:
			v, err := r.readVarInt32()
			if err != nil {
				return nil, err
			}
			instr.Imm.I32 = v

		case OpI64Const:
			v, err := r.readVarInt64()
			if err != nil {
				return nil, err
			}
			instr.Imm.I64 = v

		case OpF32Const:
			v, err := r.readFloat32()
			if err != nil {
				return nil, err
			}
			instr.Imm.F32 = v

		case OpF64Const:
			v, err := r.readFloat64()
			if err != nil {
				return nil, err
			}
			instr.Imm.F64 = v

		case OpI32Eq, OpI32Ne, OpI32LtS, OpI32LtU, OpI32GtS, OpI32GtU,
			OpI32LeS, OpI32LeU, OpI32GeS, OpI32GeU,
			OpI64Eq, OpI64Ne, OpI64LtS, OpI64LtU, OpI64GtS, OpI64GtU,
			OpI64LeS, OpI64LeU, OpI64GeS, OpI64GeU,
			OpI32Add, OpI32Sub, OpI32Mul, OpI32DivS, OpI32DivU,
			OpI32Shl, OpI32ShrS, OpI32ShrU,
			OpI64Add, OpI64Sub, OpI64Mul, OpI64DivS, OpI64DivU,
			OpI64Shl, OpI64ShrS, OpI64ShrU:
			// no immediate

		default:
			// Unknown/unhandled opcode. Recorded with no immediate; any
			// operands it carries in the real binary would desynchronise
			// the cursor, but such opcodes (SIMD prefix 0xFD, table ops,
			// multi-memory 0xFC) are out of scope for the kernels this
			// system accepts, and ir.Lower rejects them with
			// ErrUnhandledOpcode before they would matter.
		}

		instrs = append(instrs, instr)
	}

	return instrs, nil
}
