// Package decode turns a stream of opcode bytes into instr.Instruction
// values, one instruction at a time (spec §4.1). Adapted from
// paavohuhtala/RGBEmu's emulation/instruction_decoder.rs: the same
// bit-pattern match against the first (and, for 0xCB, second) opcode byte,
// translated from Rust tuple patterns into Go bit masks and a switch over
// masked/shifted fields.
package decode

import "github.com/FabianRolfMatthiasNoll/lr35902core/internal/instr"

// ByteStream is the minimal read interface the decoder needs: one byte at a
// time plus the address it was read from, for Unknown-opcode reporting.
type ByteStream interface {
	ReadNextByte() byte
	Position() uint16
}

// ReadNext16 reads a little-endian 16-bit immediate, low byte first.
func ReadNext16(s ByteStream) uint16 {
	low := s.ReadNextByte()
	high := s.ReadNextByte()
	return uint16(high)<<8 | uint16(low)
}

// Decode consumes one instruction's worth of bytes from s and returns the
// decoded instr.Instruction. An opcode outside the documented LR35902 table
// (spec §4.1's undefined-opcode list, or a malformed 0xCB second byte)
// decodes to instr.Unknown with Opcode set to the offending byte (or
// 0xCB00|byte for a bad CB second byte); it is the interpreter's job to
// treat that as fatal (coreerr.UnknownOpcode).
func Decode(s ByteStream) instr.Instruction {
	pc := s.Position()
	b := s.ReadNextByte()

	if b == 0xCB {
		return decodeCB(s, pc)
	}

	bit := func(n uint) byte { return (b >> n) & 1 }
	bits := func(hi, lo uint) byte {
		width := hi - lo + 1
		return (b >> lo) & ((1 << width) - 1)
	}

	switch {
	case b == 0x00:
		return instr.Instruction{Kind: instr.Nop, Opcode: uint16(b)}
	case b == 0x76:
		return instr.Instruction{Kind: instr.Halt, Opcode: uint16(b)}
	case b == 0x10:
		s.ReadNextByte() // STOP's second byte is conventionally 0x00 and discarded
		return instr.Instruction{Kind: instr.Stop, Opcode: uint16(b)}

	// 01dddsss: LD r,r' (register-to-register move, including (HL))
	case bit(7) == 0 && bit(6) == 1:
		to := instr.DecodeOperand8(bits(5, 3))
		from := instr.DecodeOperand8(bits(2, 0))
		return instr.Instruction{Kind: instr.MoveOperand8, Op8: to, Op8b: from, Opcode: uint16(b)}

	// 00ddd110: LD r,n
	case bit(7) == 0 && bit(6) == 0 && bits(2, 0) == 0b110:
		to := instr.DecodeOperand8(bits(5, 3))
		imm := s.ReadNextByte()
		return instr.Instruction{Kind: instr.MoveImmediate8, Op8: to, Imm8: imm, Opcode: uint16(b)}

	// 00rr0001: LD rr,nn
	case bit(7) == 0 && bit(6) == 0 && bits(3, 0) == 0b0001:
		to := instr.DecodeOperand16(bits(5, 4))
		imm := ReadNext16(s)
		return instr.Instruction{Kind: instr.MoveImmediate16, Op16: to, Imm16: imm, Opcode: uint16(b)}

	case b == 0xFA:
		return instr.Instruction{Kind: instr.LoadA, Imm16: ReadNext16(s), Opcode: uint16(b)}
	case b == 0xEA:
		return instr.Instruction{Kind: instr.StoreA, Imm16: ReadNext16(s), Opcode: uint16(b)}
	case b == 0x2A:
		return instr.Instruction{Kind: instr.LoadAIndirectHLIncrement, Opcode: uint16(b)}
	case b == 0x22:
		return instr.Instruction{Kind: instr.StoreAIndirectHLIncrement, Opcode: uint16(b)}
	case b == 0x3A:
		return instr.Instruction{Kind: instr.LoadAIndirectHLDecrement, Opcode: uint16(b)}
	case b == 0x32:
		return instr.Instruction{Kind: instr.StoreAIndirectHLDecrement, Opcode: uint16(b)}

	// 00rr1010 / 00rr0010: LD A,(rr) / LD (rr),A for rr in {BC,DE} only
	case bit(7) == 0 && bit(6) == 0 && bits(3, 0) == 0b1010 && bits(5, 4) != 0b10 && bits(5, 4) != 0b11:
		return instr.Instruction{Kind: instr.LoadAIndirect, Op16: instr.DecodeOperand16(bits(5, 4)), Opcode: uint16(b)}
	case bit(7) == 0 && bit(6) == 0 && bits(3, 0) == 0b0010 && bits(5, 4) != 0b10 && bits(5, 4) != 0b11:
		return instr.Instruction{Kind: instr.StoreAIndirect, Op16: instr.DecodeOperand16(bits(5, 4)), Opcode: uint16(b)}

	case b == 0xF0:
		return instr.Instruction{Kind: instr.LoadAHigh, Imm8: s.ReadNextByte(), Opcode: uint16(b)}
	case b == 0xE0:
		return instr.Instruction{Kind: instr.StoreAHigh, Imm8: s.ReadNextByte(), Opcode: uint16(b)}
	case b == 0xE2:
		return instr.Instruction{Kind: instr.StoreAHighC, Opcode: uint16(b)}

	case b == 0xF8:
		simm := int8(s.ReadNextByte())
		return instr.Instruction{Kind: instr.MoveSPOffsetToHL, SImm8: simm, Opcode: uint16(b)}
	case b == 0xF9:
		return instr.Instruction{Kind: instr.MoveHLToSP, Opcode: uint16(b)}
	case b == 0x08:
		return instr.Instruction{Kind: instr.StoreSP, Imm16: ReadNext16(s), Opcode: uint16(b)}
	case b == 0xE8:
		simm := int8(s.ReadNextByte())
		return instr.Instruction{Kind: instr.AddSignedImmediateToSP, SImm8: simm, Opcode: uint16(b)}

	// 10000sss / 10001sss: ADD/ADC A,r
	case bits(7, 5) == 0b100 && bit(4) == 0:
		op := instr.DecodeOperand8(bits(2, 0))
		if bit(3) == 1 {
			return instr.Instruction{Kind: instr.AddOperandToACarry, Op8: op, Opcode: uint16(b)}
		}
		return instr.Instruction{Kind: instr.AddOperandToA, Op8: op, Opcode: uint16(b)}
	case b == 0xC6:
		return instr.Instruction{Kind: instr.AddOperandToA, Op8: instr.ImmediateOperand8(s.ReadNextByte()), Opcode: uint16(b)}
	case b == 0xCE:
		return instr.Instruction{Kind: instr.AddOperandToACarry, Op8: instr.ImmediateOperand8(s.ReadNextByte()), Opcode: uint16(b)}

	// 10010sss / 10011sss: SUB/SBC A,r
	case bits(7, 5) == 0b100 && bit(4) == 1:
		op := instr.DecodeOperand8(bits(2, 0))
		if bit(3) == 1 {
			return instr.Instruction{Kind: instr.SubtractOperandFromABorrow, Op8: op, Opcode: uint16(b)}
		}
		return instr.Instruction{Kind: instr.SubtractOperandFromA, Op8: op, Opcode: uint16(b)}
	case b == 0xD6:
		return instr.Instruction{Kind: instr.SubtractOperandFromA, Op8: instr.ImmediateOperand8(s.ReadNextByte()), Opcode: uint16(b)}
	case b == 0xDE:
		return instr.Instruction{Kind: instr.SubtractOperandFromABorrow, Op8: instr.ImmediateOperand8(s.ReadNextByte()), Opcode: uint16(b)}

	// 00ddd10d: INC/DEC r
	case bit(7) == 0 && bit(6) == 0 && bits(2, 1) == 0b10:
		op := instr.DecodeOperand8(bits(5, 3))
		if bit(0) == 1 {
			return instr.Instruction{Kind: instr.DecrementOperand8, Op8: op, Opcode: uint16(b)}
		}
		return instr.Instruction{Kind: instr.IncrementOperand8, Op8: op, Opcode: uint16(b)}

	// 00rr?011: INC/DEC rr
	case bit(7) == 0 && bit(6) == 0 && bits(2, 0) == 0b011:
		rr := instr.DecodeOperand16(bits(5, 4))
		if bit(3) == 1 {
			return instr.Instruction{Kind: instr.DecrementOperand16, Op16: rr, Opcode: uint16(b)}
		}
		return instr.Instruction{Kind: instr.IncrementOperand16, Op16: rr, Opcode: uint16(b)}

	case bit(7) == 0 && bit(6) == 0 && bits(3, 0) == 0b1001:
		return instr.Instruction{Kind: instr.AddOperandToHL, Op16: instr.DecodeOperand16(bits(5, 4)), Opcode: uint16(b)}

	case b == 0x27:
		return instr.Instruction{Kind: instr.BCDCorrectA, Opcode: uint16(b)}

	case bits(7, 5) == 0b101 && bit(4) == 0 && bit(3) == 0:
		return instr.Instruction{Kind: instr.AndOperandWithA, Op8: instr.DecodeOperand8(bits(2, 0)), Opcode: uint16(b)}
	case b == 0xE6:
		return instr.Instruction{Kind: instr.AndOperandWithA, Op8: instr.ImmediateOperand8(s.ReadNextByte()), Opcode: uint16(b)}
	case bits(7, 5) == 0b101 && bit(4) == 1 && bit(3) == 0:
		return instr.Instruction{Kind: instr.OrOperandWithA, Op8: instr.DecodeOperand8(bits(2, 0)), Opcode: uint16(b)}
	case b == 0xF6:
		return instr.Instruction{Kind: instr.OrOperandWithA, Op8: instr.ImmediateOperand8(s.ReadNextByte()), Opcode: uint16(b)}
	case bits(7, 5) == 0b101 && bit(4) == 0 && bit(3) == 1:
		return instr.Instruction{Kind: instr.XorOperandWithA, Op8: instr.DecodeOperand8(bits(2, 0)), Opcode: uint16(b)}
	case b == 0xEE:
		return instr.Instruction{Kind: instr.XorOperandWithA, Op8: instr.ImmediateOperand8(s.ReadNextByte()), Opcode: uint16(b)}
	case bits(7, 5) == 0b101 && bit(4) == 1 && bit(3) == 1:
		return instr.Instruction{Kind: instr.CompareOperandWithA, Op8: instr.DecodeOperand8(bits(2, 0)), Opcode: uint16(b)}
	case b == 0xFE:
		return instr.Instruction{Kind: instr.CompareOperandWithA, Op8: instr.ImmediateOperand8(s.ReadNextByte()), Opcode: uint16(b)}

	case b == 0x07: // RLCA: rotate A left, circular (bit7 -> carry and bit0)
		return instr.Instruction{Kind: instr.RotateLeftA, Opcode: uint16(b)}
	case b == 0x0F: // RRCA: rotate A right, circular
		return instr.Instruction{Kind: instr.RotateRightA, Opcode: uint16(b)}
	case b == 0x17: // RLA: rotate A left through the carry flag
		return instr.Instruction{Kind: instr.RotateLeftCarryA, Opcode: uint16(b)}
	case b == 0x1F: // RRA: rotate A right through the carry flag
		return instr.Instruction{Kind: instr.RotateRightCarryA, Opcode: uint16(b)}

	case b == 0x2F:
		return instr.Instruction{Kind: instr.ComplementA, Opcode: uint16(b)}
	case b == 0x3F:
		return instr.Instruction{Kind: instr.ComplementCarry, Opcode: uint16(b)}
	case b == 0x37:
		return instr.Instruction{Kind: instr.SetCarry, Opcode: uint16(b)}

	case b == 0xC3:
		return instr.Instruction{Kind: instr.Jump, Imm16: ReadNext16(s), Opcode: uint16(b)}
	case b == 0xE9:
		return instr.Instruction{Kind: instr.JumpToHL, Opcode: uint16(b)}
	case bits(7, 5) == 0b110 && bits(2, 0) == 0b010:
		cond := instr.DecodeCondition(bits(4, 3))
		return instr.Instruction{Kind: instr.ConditionalJump, Cond: cond, Imm16: ReadNext16(s), Opcode: uint16(b)}
	case b == 0x18:
		return instr.Instruction{Kind: instr.RelativeJump, SImm8: int8(s.ReadNextByte()), Opcode: uint16(b)}
	case bit(7) == 0 && bit(6) == 0 && bit(5) == 1 && bit(2) == 0 && bit(1) == 0 && bit(0) == 0:
		cond := instr.DecodeCondition(bits(4, 3))
		return instr.Instruction{Kind: instr.ConditionalRelativeJump, Cond: cond, SImm8: int8(s.ReadNextByte()), Opcode: uint16(b)}

	case b == 0xCD:
		return instr.Instruction{Kind: instr.Call, Imm16: ReadNext16(s), Opcode: uint16(b)}
	case bits(7, 5) == 0b110 && bits(2, 0) == 0b100:
		cond := instr.DecodeCondition(bits(4, 3))
		return instr.Instruction{Kind: instr.ConditionalCall, Cond: cond, Imm16: ReadNext16(s), Opcode: uint16(b)}

	case b == 0xC9:
		return instr.Instruction{Kind: instr.Return, Opcode: uint16(b)}
	case b == 0xD9:
		return instr.Instruction{Kind: instr.ReturnFromInterrupt, Opcode: uint16(b)}
	case bits(7, 5) == 0b110 && bits(2, 0) == 0b000:
		cond := instr.DecodeCondition(bits(4, 3))
		return instr.Instruction{Kind: instr.ConditionalReturn, Cond: cond, Opcode: uint16(b)}

	case bits(7, 6) == 0b11 && bits(2, 0) == 0b111:
		return instr.Instruction{Kind: instr.Restart, Bit: bits(5, 3), Opcode: uint16(b)}

	case bit(7) == 1 && bit(6) == 1 && bits(3, 0) == 0b0101:
		return instr.Instruction{Kind: instr.Push, Op16: instr.DecodeOperand16Stack(bits(5, 4)), Opcode: uint16(b)}
	case bit(7) == 1 && bit(6) == 1 && bits(3, 0) == 0b0001:
		return instr.Instruction{Kind: instr.Pop, Op16: instr.DecodeOperand16Stack(bits(5, 4)), Opcode: uint16(b)}

	case b == 0xF3:
		return instr.Instruction{Kind: instr.DisableInterrupts, Opcode: uint16(b)}
	case b == 0xFB:
		return instr.Instruction{Kind: instr.EnableInterrupts, Opcode: uint16(b)}

	default:
		return instr.Instruction{Kind: instr.Unknown, Opcode: uint16(b)}
	}
}

func decodeCB(s ByteStream, pc uint16) instr.Instruction {
	b := s.ReadNextByte()
	bit := func(n uint) byte { return (b >> n) & 1 }
	bits := func(hi, lo uint) byte {
		width := hi - lo + 1
		return (b >> lo) & ((1 << width) - 1)
	}
	op := instr.DecodeOperand8(bits(2, 0))

	switch {
	case bits(7, 3) == 0b00000: // RLC r: rotate left, circular
		return instr.Instruction{Kind: instr.RotateLeft, Op8: op, Opcode: 0xCB00 | uint16(b)}
	case bits(7, 3) == 0b00001: // RRC r: rotate right, circular
		return instr.Instruction{Kind: instr.RotateRight, Op8: op, Opcode: 0xCB00 | uint16(b)}
	case bits(7, 3) == 0b00010: // RL r: rotate left through the carry flag
		return instr.Instruction{Kind: instr.RotateLeftCarry, Op8: op, Opcode: 0xCB00 | uint16(b)}
	case bits(7, 3) == 0b00011: // RR r: rotate right through the carry flag
		return instr.Instruction{Kind: instr.RotateRightCarry, Op8: op, Opcode: 0xCB00 | uint16(b)}
	case bits(7, 3) == 0b00100:
		return instr.Instruction{Kind: instr.ShiftLeftArithmetic, Op8: op, Opcode: 0xCB00 | uint16(b)}
	case bits(7, 3) == 0b00101:
		return instr.Instruction{Kind: instr.ShiftRightArithmetic, Op8: op, Opcode: 0xCB00 | uint16(b)}
	case bits(7, 3) == 0b00110:
		return instr.Instruction{Kind: instr.Swap, Op8: op, Opcode: 0xCB00 | uint16(b)}
	case bits(7, 3) == 0b00111:
		return instr.Instruction{Kind: instr.ShiftRightLogical, Op8: op, Opcode: 0xCB00 | uint16(b)}
	case bit(7) == 0 && bit(6) == 1:
		return instr.Instruction{Kind: instr.TestBit, Bit: bits(5, 3), Op8: op, Opcode: 0xCB00 | uint16(b)}
	case bit(7) == 1 && bit(6) == 0:
		return instr.Instruction{Kind: instr.ClearBit, Bit: bits(5, 3), Op8: op, Opcode: 0xCB00 | uint16(b)}
	case bit(7) == 1 && bit(6) == 1:
		return instr.Instruction{Kind: instr.SetBit, Bit: bits(5, 3), Op8: op, Opcode: 0xCB00 | uint16(b)}
	default:
		_ = pc
		return instr.Instruction{Kind: instr.Unknown, Opcode: 0xCB00 | uint16(b)}
	}
}
