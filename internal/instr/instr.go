// Package instr defines the decoded instruction model: the tagged
// Instruction union plus its operand and condition-code kinds. Adapted from
// paavohuhtala/RGBEmu's emulation/instruction.rs, translated from a Rust enum
// into a Go "kind + payload" struct since Go has no sum types.
package instr

// Operand8 is an 8-bit operand kind: a register, the (HL) indirection, or an
// immediate byte already consumed by the decoder.
type Operand8 struct {
	Kind Operand8Kind
	Imm  byte // valid when Kind == Op8Immediate
}

type Operand8Kind byte

const (
	Op8A Operand8Kind = iota
	Op8B
	Op8C
	Op8D
	Op8E
	Op8H
	Op8L
	Op8IndirectHL
	Op8Immediate
)

// DecodeOperand8 maps a 3-bit register code (spec's `ddd`/`sss`) to an
// operand. Code 0b110 denotes (HL).
func DecodeOperand8(code byte) Operand8 {
	switch code & 7 {
	case 0b111:
		return Operand8{Kind: Op8A}
	case 0b000:
		return Operand8{Kind: Op8B}
	case 0b001:
		return Operand8{Kind: Op8C}
	case 0b010:
		return Operand8{Kind: Op8D}
	case 0b011:
		return Operand8{Kind: Op8E}
	case 0b100:
		return Operand8{Kind: Op8H}
	case 0b101:
		return Operand8{Kind: Op8L}
	default: // 0b110
		return Operand8{Kind: Op8IndirectHL}
	}
}

func ImmediateOperand8(v byte) Operand8 { return Operand8{Kind: Op8Immediate, Imm: v} }

// Operand16Kind is a 16-bit register operand. Note PUSH/POP use AF in place
// of SP for the `11` encoding slot (handled by the decoder, not here).
type Operand16Kind byte

const (
	Op16BC Operand16Kind = iota
	Op16DE
	Op16HL
	Op16SP
	Op16AF
)

// DecodeOperand16 maps the 2-bit `rr` code to a 16-bit operand (SP variant,
// used by most instructions).
func DecodeOperand16(code byte) Operand16Kind {
	switch code & 3 {
	case 0b00:
		return Op16BC
	case 0b01:
		return Op16DE
	case 0b10:
		return Op16HL
	default:
		return Op16SP
	}
}

// DecodeOperand16Stack is DecodeOperand16 but for PUSH/POP, where code 0b11
// means AF instead of SP.
func DecodeOperand16Stack(code byte) Operand16Kind {
	if code&3 == 0b11 {
		return Op16AF
	}
	return DecodeOperand16(code)
}

// ConditionKind distinguishes a zero-flag test from a carry-flag test.
type ConditionKind byte

const (
	CondZero ConditionKind = iota
	CondCarry
)

// Condition is a branch condition: test the named flag against Want.
type Condition struct {
	Kind ConditionKind
	Want bool
}

// DecodeCondition maps the 2-bit `cc` code (as used by JP/CALL/RET cc) to a
// Condition.
func DecodeCondition(code byte) Condition {
	switch code & 3 {
	case 0b00:
		return Condition{Kind: CondZero, Want: false}
	case 0b01:
		return Condition{Kind: CondZero, Want: true}
	case 0b10:
		return Condition{Kind: CondCarry, Want: false}
	default:
		return Condition{Kind: CondCarry, Want: true}
	}
}

// Kind enumerates every decoded instruction shape in the LR35902 ISA plus an
// Unknown sentinel for undefined opcodes.
type Kind int

const (
	Unknown Kind = iota
	Nop
	Halt
	Stop

	MoveOperand8     // To, From
	MoveImmediate8   // To, Imm
	MoveImmediate16  // To16, Imm16
	LoadA            // Imm16: A <- (addr)
	StoreA           // Imm16: (addr) <- A
	LoadAIndirectHLIncrement
	StoreAIndirectHLIncrement
	LoadAIndirectHLDecrement
	StoreAIndirectHLDecrement
	LoadAIndirect  // To16 (BC or DE): A <- (rr)
	StoreAIndirect // To16 (BC or DE): (rr) <- A
	LoadAHigh      // Imm: A <- (0xFF00+imm)
	StoreAHigh     // Imm: (0xFF00+imm) <- A
	StoreAHighC    // (0xFF00+C) <- A
	MoveSPOffsetToHL // Offset
	MoveHLToSP
	StoreSP // Imm16: (addr),(addr+1) <- SP

	AddOperandToA
	AddOperandToACarry
	SubtractOperandFromA
	SubtractOperandFromABorrow
	AndOperandWithA
	OrOperandWithA
	XorOperandWithA
	CompareOperandWithA

	IncrementOperand8
	DecrementOperand8
	IncrementOperand16
	DecrementOperand16
	AddOperandToHL

	BCDCorrectA
	ComplementA
	ComplementCarry
	SetCarry

	RotateLeftA
	RotateRightA
	RotateLeftCarryA
	RotateRightCarryA

	Jump
	ConditionalJump
	JumpToHL
	RelativeJump
	ConditionalRelativeJump
	Call
	ConditionalCall
	Return
	ReturnFromInterrupt
	ConditionalReturn
	Restart

	Push
	Pop

	EnableInterrupts
	DisableInterrupts

	AddSignedImmediateToSP

	// CB-prefixed register-width ops
	RotateLeft
	RotateRight
	RotateLeftCarry
	RotateRightCarry
	ShiftLeftArithmetic
	ShiftRightArithmetic
	Swap
	ShiftRightLogical
	TestBit
	SetBit
	ClearBit
)

// Instruction is the fully-decoded, tagged instruction returned by the
// decoder: every operand has already been resolved, including any immediate
// bytes already consumed from the stream.
type Instruction struct {
	Kind Kind

	// Operand payloads; only the fields relevant to Kind are meaningful.
	Op8, Op8b Operand8
	Op16      Operand16Kind
	Cond      Condition
	Imm8      byte
	SImm8     int8
	Imm16     uint16
	Bit       byte

	// Opcode carries the raw byte for Unknown/fatal reporting.
	Opcode uint16
}
