// Package cpu implements the instruction interpreter (spec §4.2): it decodes
// one instruction per Step via internal/decode, executes it against a
// register.File and a memory interface, and reports the cycle cost and any
// bus message produced along the way. Adapted from
// github.com/FabianRolfMatthiasNoll/GameBoyEmulator's internal/cpu.CPU — the
// ALU helper shapes (add8/sub8/... returning result+flags) and the DAA/CPL/
// SCF/CCF flag algorithms are carried over nearly verbatim, but dispatch is
// rebuilt around the tagged instr.Instruction from decode.Decode instead of
// a 256-case raw-opcode switch, so CB-prefixed and unprefixed register ops
// share one operand-resolution path.
package cpu

import (
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/bitutil"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/coreerr"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/decode"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/instr"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/message"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/register"
)

// Memory is the interface the CPU needs to fetch instructions and resolve
// operands; bus.Bus implements it. Write returns a message for the device
// loop to route (OAM DMA completion, serial interrupt).
type Memory interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte) message.Message
}

// CPU is the interpreter: a register file plus the memory it executes
// against. It carries no PPU/timer/interrupt state of its own — Step
// reports cycles and any bus message back to the device loop, which decides
// when to service interrupts (spec §5).
type CPU struct {
	Reg register.File
	mem Memory

	IME       bool
	Halted    bool
	eiPending bool

	// haltBugPending models the documented hardware quirk: HALT executed with
	// IME=0 and an interrupt already pending fails to increment PC on the
	// following fetch, so the next opcode is read twice.
	haltBugPending bool
}

// New constructs a CPU bound to the given memory, with registers zeroed;
// callers call Reg.ResetPostBoot() or seed PC/SP via a boot ROM before
// stepping.
func New(mem Memory) *CPU {
	return &CPU{mem: mem}
}

func (c *CPU) Bus() Memory { return c.mem }

type byteStream struct {
	mem Memory
	pc  *uint16
}

func (s byteStream) ReadNextByte() byte {
	v := s.mem.Read(*s.pc)
	*s.pc++
	return v
}

func (s byteStream) Position() uint16 { return *s.pc }

// Fetch decodes the instruction at the current PC, advancing PC past it,
// without executing it. Exposed for tracing/debugging tools.
func (c *CPU) Fetch() (instr.Instruction, uint16) {
	startPC := c.Reg.PC
	ins := decode.Decode(byteStream{mem: c.mem, pc: &c.Reg.PC})
	return ins, startPC
}

// Step executes one instruction (or services HALT) and returns the number
// of cycles it took and any bus message produced by a memory write it made
// along the way (at most one such message is meaningful per step: OAM DMA
// and serial-complete writes are themselves single instructions).
func (c *CPU) Step() (cycles int, msg message.Message) {
	if c.eiPending {
		c.IME = true
		c.eiPending = false
	}

	if c.Halted {
		return 4, message.NoneMsg
	}

	startPC := c.Reg.PC
	ins := decode.Decode(byteStream{mem: c.mem, pc: &c.Reg.PC})
	if ins.Kind == instr.Unknown {
		panic(&coreerr.UnknownOpcode{Opcode: ins.Opcode, PC: startPC})
	}
	return c.execute(ins)
}

// WakeFromHalt clears Halted; called by the device loop when it observes a
// newly pending interrupt while the CPU is halted, per spec §4.2's HALT
// wake condition (independent of IME).
func (c *CPU) WakeFromHalt() { c.Halted = false }

// enterHalt is invoked by the HALT instruction's execution and additionally
// arms the halt-bug double-fetch if IME is clear and an interrupt is
// already pending (the caller computes that from IE & IF).
func (c *CPU) enterHalt(interruptAlreadyPending bool) {
	c.Halted = true
	if !c.IME && interruptAlreadyPending {
		c.haltBugPending = true
	}
}

// ConsumeHaltBug reports and clears the pending halt-bug double-fetch flag.
// device.Tick does not call it, so the double fetch is never applied there.
func (c *CPU) ConsumeHaltBug() bool {
	v := c.haltBugPending
	c.haltBugPending = false
	return v
}

// ServiceInterrupt pushes PC and jumps to the handler for the given
// interrupt, disabling IME. Called by the device loop once it has picked
// the highest-priority pending interrupt via interrupt.Controller.Next().
func (c *CPU) ServiceInterrupt(addr uint16) {
	c.Halted = false
	c.IME = false
	c.push16(c.Reg.PC)
	c.Reg.PC = addr
}

// --- memory helpers ---

func (c *CPU) read8(addr uint16) byte  { return c.mem.Read(addr) }
func (c *CPU) write8(addr uint16, v byte) message.Message { return c.mem.Write(addr, v) }

func (c *CPU) read16(addr uint16) uint16 {
	lo := uint16(c.read8(addr))
	hi := uint16(c.read8(addr + 1))
	return lo | hi<<8
}

func (c *CPU) write16(addr uint16, v uint16) {
	c.write8(addr, byte(v))
	c.write8(addr+1, byte(v>>8))
}

func (c *CPU) push16(v uint16) {
	c.Reg.SP -= 2
	c.write16(c.Reg.SP, v)
}

func (c *CPU) pop16() uint16 {
	v := c.read16(c.Reg.SP)
	c.Reg.SP += 2
	return v
}

// --- operand resolution ---

func (c *CPU) getOperand8(op instr.Operand8) byte {
	switch op.Kind {
	case instr.Op8A:
		return c.Reg.A
	case instr.Op8B:
		return c.Reg.B
	case instr.Op8C:
		return c.Reg.C
	case instr.Op8D:
		return c.Reg.D
	case instr.Op8E:
		return c.Reg.E
	case instr.Op8H:
		return c.Reg.H
	case instr.Op8L:
		return c.Reg.L
	case instr.Op8IndirectHL:
		return c.read8(c.Reg.HL())
	default: // Op8Immediate
		return op.Imm
	}
}

func (c *CPU) setOperand8(op instr.Operand8, v byte) message.Message {
	switch op.Kind {
	case instr.Op8A:
		c.Reg.A = v
	case instr.Op8B:
		c.Reg.B = v
	case instr.Op8C:
		c.Reg.C = v
	case instr.Op8D:
		c.Reg.D = v
	case instr.Op8E:
		c.Reg.E = v
	case instr.Op8H:
		c.Reg.H = v
	case instr.Op8L:
		c.Reg.L = v
	case instr.Op8IndirectHL:
		return c.write8(c.Reg.HL(), v)
	}
	return message.NoneMsg
}

func (c *CPU) getOperand16(op instr.Operand16Kind) uint16 {
	switch op {
	case instr.Op16BC:
		return c.Reg.BC()
	case instr.Op16DE:
		return c.Reg.DE()
	case instr.Op16HL:
		return c.Reg.HL()
	case instr.Op16SP:
		return c.Reg.SP
	default: // Op16AF
		return c.Reg.AF()
	}
}

func (c *CPU) setOperand16(op instr.Operand16Kind, v uint16) {
	switch op {
	case instr.Op16BC:
		c.Reg.SetBC(v)
	case instr.Op16DE:
		c.Reg.SetDE(v)
	case instr.Op16HL:
		c.Reg.SetHL(v)
	case instr.Op16SP:
		c.Reg.SP = v
	default: // Op16AF
		c.Reg.SetAF(v)
	}
}

func (c *CPU) checkCondition(cond instr.Condition) bool {
	switch cond.Kind {
	case instr.CondZero:
		return c.Reg.Flag(register.FlagZ) == cond.Want
	default: // CondCarry
		return c.Reg.Flag(register.FlagC) == cond.Want
	}
}

// operandIsIndirectHL reports whether op is the (HL) indirection, which the
// cycle-cost paths use to charge an (HL)-indirect operand more than a plain
// register operand.
func operandIsIndirectHL(op instr.Operand8) bool { return op.Kind == instr.Op8IndirectHL }

// --- execution ---

func (c *CPU) execute(ins instr.Instruction) (cycles int, msg message.Message) {
	msg = message.NoneMsg
	switch ins.Kind {
	case instr.Nop:
		return 4, msg

	case instr.Halt:
		ie := c.mem.Read(0xFFFF)
		ifr := c.mem.Read(0xFF0F) & 0x1F
		c.enterHalt((ie & ifr & 0x1F) != 0)
		return 4, msg

	case instr.Stop:
		c.Halted = true
		return 4, msg

	case instr.MoveOperand8:
		v := c.getOperand8(ins.Op8b)
		msg = c.setOperand8(ins.Op8, v)
		if operandIsIndirectHL(ins.Op8) || operandIsIndirectHL(ins.Op8b) {
			return 8, msg
		}
		return 4, msg

	case instr.MoveImmediate8:
		msg = c.setOperand8(ins.Op8, ins.Imm8)
		if operandIsIndirectHL(ins.Op8) {
			return 12, msg
		}
		return 8, msg

	case instr.MoveImmediate16:
		c.setOperand16(ins.Op16, ins.Imm16)
		return 12, msg

	case instr.LoadA:
		c.Reg.A = c.read8(ins.Imm16)
		return 16, msg
	case instr.StoreA:
		msg = c.write8(ins.Imm16, c.Reg.A)
		return 16, msg

	case instr.LoadAIndirectHLIncrement:
		hl := c.Reg.HL()
		c.Reg.A = c.read8(hl)
		c.Reg.SetHL(hl + 1)
		return 8, msg
	case instr.StoreAIndirectHLIncrement:
		hl := c.Reg.HL()
		msg = c.write8(hl, c.Reg.A)
		c.Reg.SetHL(hl + 1)
		return 8, msg
	case instr.LoadAIndirectHLDecrement:
		hl := c.Reg.HL()
		c.Reg.A = c.read8(hl)
		c.Reg.SetHL(hl - 1)
		return 8, msg
	case instr.StoreAIndirectHLDecrement:
		hl := c.Reg.HL()
		msg = c.write8(hl, c.Reg.A)
		c.Reg.SetHL(hl - 1)
		return 8, msg

	case instr.LoadAIndirect:
		c.Reg.A = c.read8(c.getOperand16(ins.Op16))
		return 8, msg
	case instr.StoreAIndirect:
		msg = c.write8(c.getOperand16(ins.Op16), c.Reg.A)
		return 8, msg

	case instr.LoadAHigh:
		c.Reg.A = c.read8(0xFF00 + uint16(ins.Imm8))
		return 12, msg
	case instr.StoreAHigh:
		msg = c.write8(0xFF00+uint16(ins.Imm8), c.Reg.A)
		return 12, msg
	case instr.StoreAHighC:
		msg = c.write8(0xFF00+uint16(c.Reg.C), c.Reg.A)
		return 8, msg

	case instr.MoveSPOffsetToHL:
		v, h, cy := bitutil.AddSignedToSP(c.Reg.SP, ins.SImm8)
		c.Reg.SetHL(v)
		c.Reg.SetFlags(false, false, h, cy)
		return 12, msg
	case instr.MoveHLToSP:
		c.Reg.SP = c.Reg.HL()
		return 8, msg
	case instr.StoreSP:
		c.write16(ins.Imm16, c.Reg.SP)
		return 20, msg
	case instr.AddSignedImmediateToSP:
		v, h, cy := bitutil.AddSignedToSP(c.Reg.SP, ins.SImm8)
		c.Reg.SP = v
		c.Reg.SetFlags(false, false, h, cy)
		return 16, msg

	case instr.AddOperandToA:
		v := c.getOperand8(ins.Op8)
		res, h, cy := bitutil.Add8(c.Reg.A, v, false)
		c.Reg.A = res
		c.Reg.SetFlags(res == 0, false, h, cy)
		return aluCycles(ins.Op8), msg
	case instr.AddOperandToACarry:
		v := c.getOperand8(ins.Op8)
		res, h, cy := bitutil.Add8(c.Reg.A, v, c.Reg.Flag(register.FlagC))
		c.Reg.A = res
		c.Reg.SetFlags(res == 0, false, h, cy)
		return aluCycles(ins.Op8), msg
	case instr.SubtractOperandFromA:
		v := c.getOperand8(ins.Op8)
		res, h, cy := bitutil.Sub8(c.Reg.A, v, false)
		c.Reg.A = res
		c.Reg.SetFlags(res == 0, true, h, cy)
		return aluCycles(ins.Op8), msg
	case instr.SubtractOperandFromABorrow:
		v := c.getOperand8(ins.Op8)
		res, h, cy := bitutil.Sub8(c.Reg.A, v, c.Reg.Flag(register.FlagC))
		c.Reg.A = res
		c.Reg.SetFlags(res == 0, true, h, cy)
		return aluCycles(ins.Op8), msg
	case instr.AndOperandWithA:
		c.Reg.A &= c.getOperand8(ins.Op8)
		c.Reg.SetFlags(c.Reg.A == 0, false, true, false)
		return aluCycles(ins.Op8), msg
	case instr.OrOperandWithA:
		c.Reg.A |= c.getOperand8(ins.Op8)
		c.Reg.SetFlags(c.Reg.A == 0, false, false, false)
		return aluCycles(ins.Op8), msg
	case instr.XorOperandWithA:
		c.Reg.A ^= c.getOperand8(ins.Op8)
		c.Reg.SetFlags(c.Reg.A == 0, false, false, false)
		return aluCycles(ins.Op8), msg
	case instr.CompareOperandWithA:
		v := c.getOperand8(ins.Op8)
		res, h, cy := bitutil.Sub8(c.Reg.A, v, false)
		c.Reg.SetFlags(res == 0, true, h, cy)
		return aluCycles(ins.Op8), msg

	case instr.IncrementOperand8:
		v := c.getOperand8(ins.Op8)
		res, h, _ := bitutil.Add8(v, 1, false)
		msg = c.setOperand8(ins.Op8, res)
		c.Reg.SetFlagBit(register.FlagZ, res == 0)
		c.Reg.SetFlagBit(register.FlagN, false)
		c.Reg.SetFlagBit(register.FlagH, h)
		if operandIsIndirectHL(ins.Op8) {
			return 12, msg
		}
		return 4, msg
	case instr.DecrementOperand8:
		v := c.getOperand8(ins.Op8)
		res, h, _ := bitutil.Sub8(v, 1, false)
		msg = c.setOperand8(ins.Op8, res)
		c.Reg.SetFlagBit(register.FlagZ, res == 0)
		c.Reg.SetFlagBit(register.FlagN, true)
		c.Reg.SetFlagBit(register.FlagH, h)
		if operandIsIndirectHL(ins.Op8) {
			return 12, msg
		}
		return 4, msg
	case instr.IncrementOperand16:
		c.setOperand16(ins.Op16, c.getOperand16(ins.Op16)+1)
		return 8, msg
	case instr.DecrementOperand16:
		c.setOperand16(ins.Op16, c.getOperand16(ins.Op16)-1)
		return 8, msg
	case instr.AddOperandToHL:
		res, h, cy := bitutil.Add16(c.Reg.HL(), c.getOperand16(ins.Op16))
		c.Reg.SetHL(res)
		c.Reg.SetFlagBit(register.FlagN, false)
		c.Reg.SetFlagBit(register.FlagH, h)
		c.Reg.SetFlagBit(register.FlagC, cy)
		return 8, msg

	case instr.BCDCorrectA:
		c.daa()
		return 4, msg
	case instr.ComplementA:
		c.Reg.A = ^c.Reg.A
		c.Reg.SetFlagBit(register.FlagN, true)
		c.Reg.SetFlagBit(register.FlagH, true)
		return 4, msg
	case instr.ComplementCarry:
		c.Reg.SetFlagBit(register.FlagC, !c.Reg.Flag(register.FlagC))
		c.Reg.SetFlagBit(register.FlagN, false)
		c.Reg.SetFlagBit(register.FlagH, false)
		return 4, msg
	case instr.SetCarry:
		c.Reg.SetFlagBit(register.FlagC, true)
		c.Reg.SetFlagBit(register.FlagN, false)
		c.Reg.SetFlagBit(register.FlagH, false)
		return 4, msg

	case instr.RotateLeftA:
		c.Reg.A = c.rotateLeftCircular(c.Reg.A, false)
		return 4, msg
	case instr.RotateRightA:
		c.Reg.A = c.rotateRightCircular(c.Reg.A, false)
		return 4, msg
	case instr.RotateLeftCarryA:
		c.Reg.A = c.rotateLeftThroughCarry(c.Reg.A, false)
		return 4, msg
	case instr.RotateRightCarryA:
		c.Reg.A = c.rotateRightThroughCarry(c.Reg.A, false)
		return 4, msg

	case instr.Jump:
		c.Reg.PC = ins.Imm16
		return 16, msg
	case instr.ConditionalJump:
		if c.checkCondition(ins.Cond) {
			c.Reg.PC = ins.Imm16
			return 16, msg
		}
		return 12, msg
	case instr.JumpToHL:
		c.Reg.PC = c.Reg.HL()
		return 4, msg
	case instr.RelativeJump:
		c.Reg.PC = uint16(int32(c.Reg.PC) + int32(ins.SImm8))
		return 12, msg
	case instr.ConditionalRelativeJump:
		if c.checkCondition(ins.Cond) {
			c.Reg.PC = uint16(int32(c.Reg.PC) + int32(ins.SImm8))
			return 12, msg
		}
		return 8, msg

	case instr.Call:
		c.push16(c.Reg.PC)
		c.Reg.PC = ins.Imm16
		return 24, msg
	case instr.ConditionalCall:
		if c.checkCondition(ins.Cond) {
			c.push16(c.Reg.PC)
			c.Reg.PC = ins.Imm16
			return 24, msg
		}
		return 12, msg

	case instr.Return:
		c.Reg.PC = c.pop16()
		return 16, msg
	case instr.ReturnFromInterrupt:
		c.Reg.PC = c.pop16()
		c.IME = true
		return 16, msg
	case instr.ConditionalReturn:
		if c.checkCondition(ins.Cond) {
			c.Reg.PC = c.pop16()
			return 20, msg
		}
		return 8, msg
	case instr.Restart:
		c.push16(c.Reg.PC)
		c.Reg.PC = uint16(ins.Bit) * 8
		return 16, msg

	case instr.Push:
		c.push16(c.getOperand16(ins.Op16))
		return 16, msg
	case instr.Pop:
		c.setOperand16(ins.Op16, c.pop16())
		return 12, msg

	case instr.EnableInterrupts:
		c.eiPending = true
		return 4, msg
	case instr.DisableInterrupts:
		c.IME = false
		c.eiPending = false
		return 4, msg

	// CB-prefixed, register-width ops.
	case instr.RotateLeft:
		v := c.getOperand8(ins.Op8)
		msg = c.setOperand8(ins.Op8, c.rotateLeftCircular(v, true))
		return cbCycles(ins.Op8), msg
	case instr.RotateRight:
		v := c.getOperand8(ins.Op8)
		msg = c.setOperand8(ins.Op8, c.rotateRightCircular(v, true))
		return cbCycles(ins.Op8), msg
	case instr.RotateLeftCarry:
		v := c.getOperand8(ins.Op8)
		msg = c.setOperand8(ins.Op8, c.rotateLeftThroughCarry(v, true))
		return cbCycles(ins.Op8), msg
	case instr.RotateRightCarry:
		v := c.getOperand8(ins.Op8)
		msg = c.setOperand8(ins.Op8, c.rotateRightThroughCarry(v, true))
		return cbCycles(ins.Op8), msg
	case instr.ShiftLeftArithmetic:
		v := c.getOperand8(ins.Op8)
		cy := bitutil.Bit(v, 7)
		res := v << 1
		msg = c.setOperand8(ins.Op8, res)
		c.Reg.SetFlags(res == 0, false, false, cy)
		return cbCycles(ins.Op8), msg
	case instr.ShiftRightArithmetic:
		v := c.getOperand8(ins.Op8)
		cy := bitutil.Bit(v, 0)
		res := (v >> 1) | (v & 0x80)
		msg = c.setOperand8(ins.Op8, res)
		c.Reg.SetFlags(res == 0, false, false, cy)
		return cbCycles(ins.Op8), msg
	case instr.Swap:
		v := c.getOperand8(ins.Op8)
		res := v<<4 | v>>4
		msg = c.setOperand8(ins.Op8, res)
		c.Reg.SetFlags(res == 0, false, false, false)
		return cbCycles(ins.Op8), msg
	case instr.ShiftRightLogical:
		v := c.getOperand8(ins.Op8)
		cy := bitutil.Bit(v, 0)
		res := v >> 1
		msg = c.setOperand8(ins.Op8, res)
		c.Reg.SetFlags(res == 0, false, false, cy)
		return cbCycles(ins.Op8), msg
	case instr.TestBit:
		v := c.getOperand8(ins.Op8)
		c.Reg.SetFlagBit(register.FlagZ, !bitutil.Bit(v, uint(ins.Bit)))
		c.Reg.SetFlagBit(register.FlagN, false)
		c.Reg.SetFlagBit(register.FlagH, true)
		if operandIsIndirectHL(ins.Op8) {
			return 12, msg
		}
		return 8, msg
	case instr.SetBit:
		v := c.getOperand8(ins.Op8)
		msg = c.setOperand8(ins.Op8, bitutil.SetBit(v, uint(ins.Bit)))
		return cbCycles(ins.Op8), msg
	case instr.ClearBit:
		v := c.getOperand8(ins.Op8)
		msg = c.setOperand8(ins.Op8, bitutil.ClearBit(v, uint(ins.Bit)))
		return cbCycles(ins.Op8), msg
	}
	panic(&coreerr.UnknownOpcode{Opcode: ins.Opcode, PC: c.Reg.PC})
}

func aluCycles(op instr.Operand8) int {
	if operandIsIndirectHL(op) || op.Kind == instr.Op8Immediate {
		return 8
	}
	return 4
}

func cbCycles(op instr.Operand8) int {
	if operandIsIndirectHL(op) {
		return 16
	}
	return 8
}

// rotateLeftCircular rotates v left, bit7 wraps into bit0 and into the carry
// flag. setsZ distinguishes plain-register RLC (sets Z) from RLCA (always
// clears Z), per the naming convention: Kind names without "Carry" are
// circular rotates.
func (c *CPU) rotateLeftCircular(v byte, setsZ bool) byte {
	cy := bitutil.Bit(v, 7)
	res := v<<1 | boolBit(cy)
	c.Reg.SetFlags(setsZ && res == 0, false, false, cy)
	return res
}

func (c *CPU) rotateRightCircular(v byte, setsZ bool) byte {
	cy := bitutil.Bit(v, 0)
	res := v>>1 | boolBit(cy)<<7
	c.Reg.SetFlags(setsZ && res == 0, false, false, cy)
	return res
}

// rotateLeftThroughCarry rotates v left with the carry flag as the 9th bit.
func (c *CPU) rotateLeftThroughCarry(v byte, setsZ bool) byte {
	oldCarry := c.Reg.Flag(register.FlagC)
	newCarry := bitutil.Bit(v, 7)
	res := v<<1 | boolBit(oldCarry)
	c.Reg.SetFlags(setsZ && res == 0, false, false, newCarry)
	return res
}

func (c *CPU) rotateRightThroughCarry(v byte, setsZ bool) byte {
	oldCarry := c.Reg.Flag(register.FlagC)
	newCarry := bitutil.Bit(v, 0)
	res := v>>1 | boolBit(oldCarry)<<7
	c.Reg.SetFlags(setsZ && res == 0, false, false, newCarry)
	return res
}

func boolBit(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// daa implements the decimal-adjust algorithm following a prior ADD/ADC/
// SUB/SBC, per spec's DAA table. Adapted from the teacher's 0x27 case.
func (c *CPU) daa() {
	a := c.Reg.A
	cf := c.Reg.Flag(register.FlagC)
	if !c.Reg.Flag(register.FlagN) {
		if cf || a > 0x99 {
			a += 0x60
			cf = true
		}
		if c.Reg.Flag(register.FlagH) || (a&0x0F) > 9 {
			a += 0x06
		}
	} else {
		if cf {
			a -= 0x60
		}
		if c.Reg.Flag(register.FlagH) {
			a -= 0x06
		}
	}
	c.Reg.A = a
	c.Reg.SetFlagBit(register.FlagZ, a == 0)
	c.Reg.SetFlagBit(register.FlagH, false)
	c.Reg.SetFlagBit(register.FlagC, cf)
}
