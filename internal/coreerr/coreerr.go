// Package coreerr defines the small fatal-error taxonomy described in
// spec.md §7: conditions that stop the core rather than returning a defined
// sentinel value. Recoverable conditions (disabled cartridge RAM reads,
// ignored writes) are intentionally NOT represented here — they never
// unwind, per the propagation policy.
package coreerr

import "fmt"

// UnknownOpcode is fatal: the decoder produced instr.Unknown for a byte
// outside the documented LR35902 opcode map (spec §4.1's undefined-opcode
// list) and the interpreter was asked to execute it anyway.
type UnknownOpcode struct {
	Opcode uint16
	PC     uint16
}

func (e *UnknownOpcode) Error() string {
	return fmt.Sprintf("unknown opcode 0x%04X at PC=0x%04X", e.Opcode, e.PC)
}

// BadAddress is fatal: the bus was asked to resolve an address tag that
// isn't covered by any region in the memory map — a decoder/bus bug, not a
// hardware condition.
type BadAddress struct {
	Addr uint16
	Op   string // "read" or "write"
}

func (e *BadAddress) Error() string {
	return fmt.Sprintf("bus %s of unmapped address 0x%04X", e.Op, e.Addr)
}

// UnsupportedMapper is reported at cartridge construction time, not at
// read/write time, when the header's cartridge-type code names a mapper
// this core doesn't implement (spec's Non-goals: MBC3/MBC5/MBC7, RTC carts).
type UnsupportedMapper struct {
	CartType byte
}

func (e *UnsupportedMapper) Error() string {
	return fmt.Sprintf("unsupported cartridge mapper type 0x%02X", e.CartType)
}
