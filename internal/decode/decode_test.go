// Package decode tests: spec §8 property #1 ("for all bytes b, encoding then
// decoding b yields the expected Instruction variant") exercised as an
// explicit per-opcode table rather than a generative/fuzz property, since the
// LR35902 opcode space is small and fully enumerable. This is what caught
// the RST decode-guard regression in the first place.
package decode

import (
	"testing"

	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/instr"
)

// fakeStream feeds a fixed byte slice to Decode, recording how far it read.
type fakeStream struct {
	b   []byte
	pos int
}

func (s *fakeStream) ReadNextByte() byte {
	v := s.b[s.pos]
	s.pos++
	return v
}

func (s *fakeStream) Position() uint16 { return uint16(s.pos) }

// operandBytes pads an opcode's immediate/displacement bytes so Decode never
// reads past the end of the fake stream, regardless of instruction length.
func operandBytes(opcode byte) []byte {
	return []byte{opcode, 0x00, 0x00, 0x00}
}

var primaryOpcodeKinds = map[byte]instr.Kind{
	0x00: instr.Nop,
	0x01: instr.MoveImmediate16,
	0x02: instr.StoreAIndirect,
	0x03: instr.IncrementOperand16,
	0x04: instr.IncrementOperand8,
	0x05: instr.DecrementOperand8,
	0x06: instr.MoveImmediate8,
	0x07: instr.RotateLeftA,
	0x08: instr.StoreSP,
	0x09: instr.AddOperandToHL,
	0x0A: instr.LoadAIndirect,
	0x0B: instr.DecrementOperand16,
	0x0C: instr.IncrementOperand8,
	0x0D: instr.DecrementOperand8,
	0x0E: instr.MoveImmediate8,
	0x0F: instr.RotateRightA,
	0x10: instr.Stop,
	0x11: instr.MoveImmediate16,
	0x12: instr.StoreAIndirect,
	0x13: instr.IncrementOperand16,
	0x14: instr.IncrementOperand8,
	0x15: instr.DecrementOperand8,
	0x16: instr.MoveImmediate8,
	0x17: instr.RotateLeftCarryA,
	0x18: instr.RelativeJump,
	0x19: instr.AddOperandToHL,
	0x1A: instr.LoadAIndirect,
	0x1B: instr.DecrementOperand16,
	0x1C: instr.IncrementOperand8,
	0x1D: instr.DecrementOperand8,
	0x1E: instr.MoveImmediate8,
	0x1F: instr.RotateRightCarryA,
	0x20: instr.ConditionalRelativeJump,
	0x21: instr.MoveImmediate16,
	0x22: instr.StoreAIndirectHLIncrement,
	0x23: instr.IncrementOperand16,
	0x24: instr.IncrementOperand8,
	0x25: instr.DecrementOperand8,
	0x26: instr.MoveImmediate8,
	0x27: instr.BCDCorrectA,
	0x28: instr.ConditionalRelativeJump,
	0x29: instr.AddOperandToHL,
	0x2A: instr.LoadAIndirectHLIncrement,
	0x2B: instr.DecrementOperand16,
	0x2C: instr.IncrementOperand8,
	0x2D: instr.DecrementOperand8,
	0x2E: instr.MoveImmediate8,
	0x2F: instr.ComplementA,
	0x30: instr.ConditionalRelativeJump,
	0x31: instr.MoveImmediate16,
	0x32: instr.StoreAIndirectHLDecrement,
	0x33: instr.IncrementOperand16,
	0x34: instr.IncrementOperand8,
	0x35: instr.DecrementOperand8,
	0x36: instr.MoveImmediate8,
	0x37: instr.SetCarry,
	0x38: instr.ConditionalRelativeJump,
	0x39: instr.AddOperandToHL,
	0x3A: instr.LoadAIndirectHLDecrement,
	0x3B: instr.DecrementOperand16,
	0x3C: instr.IncrementOperand8,
	0x3D: instr.DecrementOperand8,
	0x3E: instr.MoveImmediate8,
	0x3F: instr.ComplementCarry,
	0x40: instr.MoveOperand8,
	0x41: instr.MoveOperand8,
	0x42: instr.MoveOperand8,
	0x43: instr.MoveOperand8,
	0x44: instr.MoveOperand8,
	0x45: instr.MoveOperand8,
	0x46: instr.MoveOperand8,
	0x47: instr.MoveOperand8,
	0x48: instr.MoveOperand8,
	0x49: instr.MoveOperand8,
	0x4A: instr.MoveOperand8,
	0x4B: instr.MoveOperand8,
	0x4C: instr.MoveOperand8,
	0x4D: instr.MoveOperand8,
	0x4E: instr.MoveOperand8,
	0x4F: instr.MoveOperand8,
	0x50: instr.MoveOperand8,
	0x51: instr.MoveOperand8,
	0x52: instr.MoveOperand8,
	0x53: instr.MoveOperand8,
	0x54: instr.MoveOperand8,
	0x55: instr.MoveOperand8,
	0x56: instr.MoveOperand8,
	0x57: instr.MoveOperand8,
	0x58: instr.MoveOperand8,
	0x59: instr.MoveOperand8,
	0x5A: instr.MoveOperand8,
	0x5B: instr.MoveOperand8,
	0x5C: instr.MoveOperand8,
	0x5D: instr.MoveOperand8,
	0x5E: instr.MoveOperand8,
	0x5F: instr.MoveOperand8,
	0x60: instr.MoveOperand8,
	0x61: instr.MoveOperand8,
	0x62: instr.MoveOperand8,
	0x63: instr.MoveOperand8,
	0x64: instr.MoveOperand8,
	0x65: instr.MoveOperand8,
	0x66: instr.MoveOperand8,
	0x67: instr.MoveOperand8,
	0x68: instr.MoveOperand8,
	0x69: instr.MoveOperand8,
	0x6A: instr.MoveOperand8,
	0x6B: instr.MoveOperand8,
	0x6C: instr.MoveOperand8,
	0x6D: instr.MoveOperand8,
	0x6E: instr.MoveOperand8,
	0x6F: instr.MoveOperand8,
	0x70: instr.MoveOperand8,
	0x71: instr.MoveOperand8,
	0x72: instr.MoveOperand8,
	0x73: instr.MoveOperand8,
	0x74: instr.MoveOperand8,
	0x75: instr.MoveOperand8,
	0x76: instr.Halt,
	0x77: instr.MoveOperand8,
	0x78: instr.MoveOperand8,
	0x79: instr.MoveOperand8,
	0x7A: instr.MoveOperand8,
	0x7B: instr.MoveOperand8,
	0x7C: instr.MoveOperand8,
	0x7D: instr.MoveOperand8,
	0x7E: instr.MoveOperand8,
	0x7F: instr.MoveOperand8,
	0x80: instr.AddOperandToA,
	0x81: instr.AddOperandToA,
	0x82: instr.AddOperandToA,
	0x83: instr.AddOperandToA,
	0x84: instr.AddOperandToA,
	0x85: instr.AddOperandToA,
	0x86: instr.AddOperandToA,
	0x87: instr.AddOperandToA,
	0x88: instr.AddOperandToACarry,
	0x89: instr.AddOperandToACarry,
	0x8A: instr.AddOperandToACarry,
	0x8B: instr.AddOperandToACarry,
	0x8C: instr.AddOperandToACarry,
	0x8D: instr.AddOperandToACarry,
	0x8E: instr.AddOperandToACarry,
	0x8F: instr.AddOperandToACarry,
	0x90: instr.SubtractOperandFromA,
	0x91: instr.SubtractOperandFromA,
	0x92: instr.SubtractOperandFromA,
	0x93: instr.SubtractOperandFromA,
	0x94: instr.SubtractOperandFromA,
	0x95: instr.SubtractOperandFromA,
	0x96: instr.SubtractOperandFromA,
	0x97: instr.SubtractOperandFromA,
	0x98: instr.SubtractOperandFromABorrow,
	0x99: instr.SubtractOperandFromABorrow,
	0x9A: instr.SubtractOperandFromABorrow,
	0x9B: instr.SubtractOperandFromABorrow,
	0x9C: instr.SubtractOperandFromABorrow,
	0x9D: instr.SubtractOperandFromABorrow,
	0x9E: instr.SubtractOperandFromABorrow,
	0x9F: instr.SubtractOperandFromABorrow,
	0xA0: instr.AndOperandWithA,
	0xA1: instr.AndOperandWithA,
	0xA2: instr.AndOperandWithA,
	0xA3: instr.AndOperandWithA,
	0xA4: instr.AndOperandWithA,
	0xA5: instr.AndOperandWithA,
	0xA6: instr.AndOperandWithA,
	0xA7: instr.AndOperandWithA,
	0xA8: instr.XorOperandWithA,
	0xA9: instr.XorOperandWithA,
	0xAA: instr.XorOperandWithA,
	0xAB: instr.XorOperandWithA,
	0xAC: instr.XorOperandWithA,
	0xAD: instr.XorOperandWithA,
	0xAE: instr.XorOperandWithA,
	0xAF: instr.XorOperandWithA,
	0xB0: instr.OrOperandWithA,
	0xB1: instr.OrOperandWithA,
	0xB2: instr.OrOperandWithA,
	0xB3: instr.OrOperandWithA,
	0xB4: instr.OrOperandWithA,
	0xB5: instr.OrOperandWithA,
	0xB6: instr.OrOperandWithA,
	0xB7: instr.OrOperandWithA,
	0xB8: instr.CompareOperandWithA,
	0xB9: instr.CompareOperandWithA,
	0xBA: instr.CompareOperandWithA,
	0xBB: instr.CompareOperandWithA,
	0xBC: instr.CompareOperandWithA,
	0xBD: instr.CompareOperandWithA,
	0xBE: instr.CompareOperandWithA,
	0xBF: instr.CompareOperandWithA,
	0xC0: instr.ConditionalReturn,
	0xC1: instr.Pop,
	0xC2: instr.ConditionalJump,
	0xC3: instr.Jump,
	0xC4: instr.ConditionalCall,
	0xC5: instr.Push,
	0xC6: instr.AddOperandToA,
	0xC7: instr.Restart,
	0xC8: instr.ConditionalReturn,
	0xC9: instr.Return,
	0xCA: instr.ConditionalJump,
	0xCC: instr.ConditionalCall,
	0xCD: instr.Call,
	0xCE: instr.AddOperandToACarry,
	0xCF: instr.Restart,
	0xD0: instr.ConditionalReturn,
	0xD1: instr.Pop,
	0xD2: instr.ConditionalJump,
	0xD3: instr.Unknown,
	0xD4: instr.ConditionalCall,
	0xD5: instr.Push,
	0xD6: instr.SubtractOperandFromA,
	0xD7: instr.Restart,
	0xD8: instr.ConditionalReturn,
	0xD9: instr.ReturnFromInterrupt,
	0xDA: instr.ConditionalJump,
	0xDB: instr.Unknown,
	0xDC: instr.ConditionalCall,
	0xDD: instr.Unknown,
	0xDE: instr.SubtractOperandFromABorrow,
	0xDF: instr.Restart,
	0xE0: instr.StoreAHigh,
	0xE1: instr.Pop,
	0xE2: instr.StoreAHighC,
	0xE3: instr.Unknown,
	0xE4: instr.Unknown,
	0xE5: instr.Push,
	0xE6: instr.AndOperandWithA,
	0xE7: instr.Restart,
	0xE8: instr.AddSignedImmediateToSP,
	0xE9: instr.JumpToHL,
	0xEA: instr.StoreA,
	0xEB: instr.Unknown,
	0xEC: instr.Unknown,
	0xED: instr.Unknown,
	0xEE: instr.XorOperandWithA,
	0xEF: instr.Restart,
	0xF0: instr.LoadAHigh,
	0xF1: instr.Pop,
	0xF2: instr.Unknown,
	0xF3: instr.DisableInterrupts,
	0xF4: instr.Unknown,
	0xF5: instr.Push,
	0xF6: instr.OrOperandWithA,
	0xF7: instr.Restart,
	0xF8: instr.MoveSPOffsetToHL,
	0xF9: instr.MoveHLToSP,
	0xFA: instr.LoadA,
	0xFB: instr.EnableInterrupts,
	0xFC: instr.Unknown,
	0xFD: instr.Unknown,
	0xFE: instr.CompareOperandWithA,
	0xFF: instr.Restart,
}

var cbOpcodeKinds = map[byte]instr.Kind{
	0x00: instr.RotateLeft,
	0x01: instr.RotateLeft,
	0x02: instr.RotateLeft,
	0x03: instr.RotateLeft,
	0x04: instr.RotateLeft,
	0x05: instr.RotateLeft,
	0x06: instr.RotateLeft,
	0x07: instr.RotateLeft,
	0x08: instr.RotateRight,
	0x09: instr.RotateRight,
	0x0A: instr.RotateRight,
	0x0B: instr.RotateRight,
	0x0C: instr.RotateRight,
	0x0D: instr.RotateRight,
	0x0E: instr.RotateRight,
	0x0F: instr.RotateRight,
	0x10: instr.RotateLeftCarry,
	0x11: instr.RotateLeftCarry,
	0x12: instr.RotateLeftCarry,
	0x13: instr.RotateLeftCarry,
	0x14: instr.RotateLeftCarry,
	0x15: instr.RotateLeftCarry,
	0x16: instr.RotateLeftCarry,
	0x17: instr.RotateLeftCarry,
	0x18: instr.RotateRightCarry,
	0x19: instr.RotateRightCarry,
	0x1A: instr.RotateRightCarry,
	0x1B: instr.RotateRightCarry,
	0x1C: instr.RotateRightCarry,
	0x1D: instr.RotateRightCarry,
	0x1E: instr.RotateRightCarry,
	0x1F: instr.RotateRightCarry,
	0x20: instr.ShiftLeftArithmetic,
	0x21: instr.ShiftLeftArithmetic,
	0x22: instr.ShiftLeftArithmetic,
	0x23: instr.ShiftLeftArithmetic,
	0x24: instr.ShiftLeftArithmetic,
	0x25: instr.ShiftLeftArithmetic,
	0x26: instr.ShiftLeftArithmetic,
	0x27: instr.ShiftLeftArithmetic,
	0x28: instr.ShiftRightArithmetic,
	0x29: instr.ShiftRightArithmetic,
	0x2A: instr.ShiftRightArithmetic,
	0x2B: instr.ShiftRightArithmetic,
	0x2C: instr.ShiftRightArithmetic,
	0x2D: instr.ShiftRightArithmetic,
	0x2E: instr.ShiftRightArithmetic,
	0x2F: instr.ShiftRightArithmetic,
	0x30: instr.Swap,
	0x31: instr.Swap,
	0x32: instr.Swap,
	0x33: instr.Swap,
	0x34: instr.Swap,
	0x35: instr.Swap,
	0x36: instr.Swap,
	0x37: instr.Swap,
	0x38: instr.ShiftRightLogical,
	0x39: instr.ShiftRightLogical,
	0x3A: instr.ShiftRightLogical,
	0x3B: instr.ShiftRightLogical,
	0x3C: instr.ShiftRightLogical,
	0x3D: instr.ShiftRightLogical,
	0x3E: instr.ShiftRightLogical,
	0x3F: instr.ShiftRightLogical,
	0x40: instr.TestBit,
	0x41: instr.TestBit,
	0x42: instr.TestBit,
	0x43: instr.TestBit,
	0x44: instr.TestBit,
	0x45: instr.TestBit,
	0x46: instr.TestBit,
	0x47: instr.TestBit,
	0x48: instr.TestBit,
	0x49: instr.TestBit,
	0x4A: instr.TestBit,
	0x4B: instr.TestBit,
	0x4C: instr.TestBit,
	0x4D: instr.TestBit,
	0x4E: instr.TestBit,
	0x4F: instr.TestBit,
	0x50: instr.TestBit,
	0x51: instr.TestBit,
	0x52: instr.TestBit,
	0x53: instr.TestBit,
	0x54: instr.TestBit,
	0x55: instr.TestBit,
	0x56: instr.TestBit,
	0x57: instr.TestBit,
	0x58: instr.TestBit,
	0x59: instr.TestBit,
	0x5A: instr.TestBit,
	0x5B: instr.TestBit,
	0x5C: instr.TestBit,
	0x5D: instr.TestBit,
	0x5E: instr.TestBit,
	0x5F: instr.TestBit,
	0x60: instr.TestBit,
	0x61: instr.TestBit,
	0x62: instr.TestBit,
	0x63: instr.TestBit,
	0x64: instr.TestBit,
	0x65: instr.TestBit,
	0x66: instr.TestBit,
	0x67: instr.TestBit,
	0x68: instr.TestBit,
	0x69: instr.TestBit,
	0x6A: instr.TestBit,
	0x6B: instr.TestBit,
	0x6C: instr.TestBit,
	0x6D: instr.TestBit,
	0x6E: instr.TestBit,
	0x6F: instr.TestBit,
	0x70: instr.TestBit,
	0x71: instr.TestBit,
	0x72: instr.TestBit,
	0x73: instr.TestBit,
	0x74: instr.TestBit,
	0x75: instr.TestBit,
	0x76: instr.TestBit,
	0x77: instr.TestBit,
	0x78: instr.TestBit,
	0x79: instr.TestBit,
	0x7A: instr.TestBit,
	0x7B: instr.TestBit,
	0x7C: instr.TestBit,
	0x7D: instr.TestBit,
	0x7E: instr.TestBit,
	0x7F: instr.TestBit,
	0x80: instr.ClearBit,
	0x81: instr.ClearBit,
	0x82: instr.ClearBit,
	0x83: instr.ClearBit,
	0x84: instr.ClearBit,
	0x85: instr.ClearBit,
	0x86: instr.ClearBit,
	0x87: instr.ClearBit,
	0x88: instr.ClearBit,
	0x89: instr.ClearBit,
	0x8A: instr.ClearBit,
	0x8B: instr.ClearBit,
	0x8C: instr.ClearBit,
	0x8D: instr.ClearBit,
	0x8E: instr.ClearBit,
	0x8F: instr.ClearBit,
	0x90: instr.ClearBit,
	0x91: instr.ClearBit,
	0x92: instr.ClearBit,
	0x93: instr.ClearBit,
	0x94: instr.ClearBit,
	0x95: instr.ClearBit,
	0x96: instr.ClearBit,
	0x97: instr.ClearBit,
	0x98: instr.ClearBit,
	0x99: instr.ClearBit,
	0x9A: instr.ClearBit,
	0x9B: instr.ClearBit,
	0x9C: instr.ClearBit,
	0x9D: instr.ClearBit,
	0x9E: instr.ClearBit,
	0x9F: instr.ClearBit,
	0xA0: instr.ClearBit,
	0xA1: instr.ClearBit,
	0xA2: instr.ClearBit,
	0xA3: instr.ClearBit,
	0xA4: instr.ClearBit,
	0xA5: instr.ClearBit,
	0xA6: instr.ClearBit,
	0xA7: instr.ClearBit,
	0xA8: instr.ClearBit,
	0xA9: instr.ClearBit,
	0xAA: instr.ClearBit,
	0xAB: instr.ClearBit,
	0xAC: instr.ClearBit,
	0xAD: instr.ClearBit,
	0xAE: instr.ClearBit,
	0xAF: instr.ClearBit,
	0xB0: instr.ClearBit,
	0xB1: instr.ClearBit,
	0xB2: instr.ClearBit,
	0xB3: instr.ClearBit,
	0xB4: instr.ClearBit,
	0xB5: instr.ClearBit,
	0xB6: instr.ClearBit,
	0xB7: instr.ClearBit,
	0xB8: instr.ClearBit,
	0xB9: instr.ClearBit,
	0xBA: instr.ClearBit,
	0xBB: instr.ClearBit,
	0xBC: instr.ClearBit,
	0xBD: instr.ClearBit,
	0xBE: instr.ClearBit,
	0xBF: instr.ClearBit,
	0xC0: instr.SetBit,
	0xC1: instr.SetBit,
	0xC2: instr.SetBit,
	0xC3: instr.SetBit,
	0xC4: instr.SetBit,
	0xC5: instr.SetBit,
	0xC6: instr.SetBit,
	0xC7: instr.SetBit,
	0xC8: instr.SetBit,
	0xC9: instr.SetBit,
	0xCA: instr.SetBit,
	0xCB: instr.SetBit,
	0xCC: instr.SetBit,
	0xCD: instr.SetBit,
	0xCE: instr.SetBit,
	0xCF: instr.SetBit,
	0xD0: instr.SetBit,
	0xD1: instr.SetBit,
	0xD2: instr.SetBit,
	0xD3: instr.SetBit,
	0xD4: instr.SetBit,
	0xD5: instr.SetBit,
	0xD6: instr.SetBit,
	0xD7: instr.SetBit,
	0xD8: instr.SetBit,
	0xD9: instr.SetBit,
	0xDA: instr.SetBit,
	0xDB: instr.SetBit,
	0xDC: instr.SetBit,
	0xDD: instr.SetBit,
	0xDE: instr.SetBit,
	0xDF: instr.SetBit,
	0xE0: instr.SetBit,
	0xE1: instr.SetBit,
	0xE2: instr.SetBit,
	0xE3: instr.SetBit,
	0xE4: instr.SetBit,
	0xE5: instr.SetBit,
	0xE6: instr.SetBit,
	0xE7: instr.SetBit,
	0xE8: instr.SetBit,
	0xE9: instr.SetBit,
	0xEA: instr.SetBit,
	0xEB: instr.SetBit,
	0xEC: instr.SetBit,
	0xED: instr.SetBit,
	0xEE: instr.SetBit,
	0xEF: instr.SetBit,
	0xF0: instr.SetBit,
	0xF1: instr.SetBit,
	0xF2: instr.SetBit,
	0xF3: instr.SetBit,
	0xF4: instr.SetBit,
	0xF5: instr.SetBit,
	0xF6: instr.SetBit,
	0xF7: instr.SetBit,
	0xF8: instr.SetBit,
	0xF9: instr.SetBit,
	0xFA: instr.SetBit,
	0xFB: instr.SetBit,
	0xFC: instr.SetBit,
	0xFD: instr.SetBit,
	0xFE: instr.SetBit,
	0xFF: instr.SetBit,
}

func TestDecodeAllPrimaryOpcodes(t *testing.T) {
	for opcode, want := range primaryOpcodeKinds {
		s := &fakeStream{b: operandBytes(opcode)}
		got := Decode(s)
		if got.Kind != want {
			t.Errorf("opcode 0x%02X: Kind = %v, want %v", opcode, got.Kind, want)
		}
		if got.Opcode != uint16(opcode) {
			t.Errorf("opcode 0x%02X: Opcode field = 0x%02X, want 0x%02X", opcode, got.Opcode, opcode)
		}
	}
}

func TestDecodeAllCBOpcodes(t *testing.T) {
	for opcode, want := range cbOpcodeKinds {
		s := &fakeStream{b: []byte{0xCB, opcode}}
		got := Decode(s)
		if got.Kind != want {
			t.Errorf("CB opcode 0x%02X: Kind = %v, want %v", opcode, got.Kind, want)
		}
		if got.Opcode != 0xCB00|uint16(opcode) {
			t.Errorf("CB opcode 0x%02X: Opcode field = 0x%04X, want 0x%04X", opcode, got.Opcode, 0xCB00|uint16(opcode))
		}
	}
}

// TestDecodeRestartVectors pins down all eight RST vectors explicitly: this
// is the exact regression the opcode-table test above exists to catch.
func TestDecodeRestartVectors(t *testing.T) {
	vectors := map[byte]byte{
		0xC7: 0, 0xCF: 1, 0xD7: 2, 0xDF: 3,
		0xE7: 4, 0xEF: 5, 0xF7: 6, 0xFF: 7,
	}
	for opcode, wantBit := range vectors {
		s := &fakeStream{b: operandBytes(opcode)}
		got := Decode(s)
		if got.Kind != instr.Restart {
			t.Fatalf("opcode 0x%02X: Kind = %v, want Restart", opcode, got.Kind)
		}
		if got.Bit != wantBit {
			t.Errorf("opcode 0x%02X: Bit = %d, want %d", opcode, got.Bit, wantBit)
		}
	}
}

// TestDecodeF2Undefined pins 0xF2 as Unknown: the spec and original source
// define only 0xE2 (StoreAHighC) in this slot, not a LD A,(C) counterpart.
func TestDecodeF2Undefined(t *testing.T) {
	s := &fakeStream{b: operandBytes(0xF2)}
	got := Decode(s)
	if got.Kind != instr.Unknown {
		t.Fatalf("opcode 0xF2: Kind = %v, want Unknown", got.Kind)
	}
}
