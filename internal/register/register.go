// Package register models the LR35902 register file: eight 8-bit registers,
// SP/PC, and the F flag byte with its Z/N/H/C accessors. Adapted from the
// register fields of github.com/FabianRolfMatthiasNoll/GameBoyEmulator's
// internal/cpu.CPU and paavohuhtala/RGBEmu's emulation/registers.rs.
package register

import "github.com/FabianRolfMatthiasNoll/lr35902core/internal/bitutil"

// Flag bit positions within F, per spec: Z=7, N=6, H=5, C=4. The low nibble
// of F is always zero.
const (
	FlagZ byte = 1 << 7
	FlagN byte = 1 << 6
	FlagH byte = 1 << 5
	FlagC byte = 1 << 4
)

// File is the full CPU register file.
type File struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte
	SP   uint16
	PC   uint16
}

// ResetPostBoot sets the registers to the documented post-boot-ROM state
// (spec §3), used when the Device simulates skipping the boot ROM.
func (r *File) ResetPostBoot() {
	r.A, r.F = 0x01, 0xB0
	r.B, r.C = 0x00, 0x13
	r.D, r.E = 0x00, 0xD8
	r.H, r.L = 0x01, 0x4D
	r.SP = 0xFFFE
	r.PC = 0x0100
}

func (r *File) AF() uint16 { return bitutil.Join16(r.A, r.F&0xF0) }
func (r *File) BC() uint16 { return bitutil.Join16(r.B, r.C) }
func (r *File) DE() uint16 { return bitutil.Join16(r.D, r.E) }
func (r *File) HL() uint16 { return bitutil.Join16(r.H, r.L) }

func (r *File) SetAF(v uint16) {
	p := bitutil.Split16(v)
	r.A, r.F = p.High, p.Low&0xF0
}
func (r *File) SetBC(v uint16) { p := bitutil.Split16(v); r.B, r.C = p.High, p.Low }
func (r *File) SetDE(v uint16) { p := bitutil.Split16(v); r.D, r.E = p.High, p.Low }
func (r *File) SetHL(v uint16) { p := bitutil.Split16(v); r.H, r.L = p.High, p.Low }

// Flag returns whether the given flag bit is set in F.
func (r *File) Flag(mask byte) bool { return r.F&mask != 0 }

// SetFlags rewrites F's upper nibble from four booleans; the low nibble is
// always zero.
func (r *File) SetFlags(z, n, h, c bool) {
	var f byte
	if z {
		f |= FlagZ
	}
	if n {
		f |= FlagN
	}
	if h {
		f |= FlagH
	}
	if c {
		f |= FlagC
	}
	r.F = f
}

// SetFlagBit sets or clears an individual flag while leaving the others as
// they are.
func (r *File) SetFlagBit(mask byte, set bool) {
	if set {
		r.F |= mask
	} else {
		r.F &^= mask
	}
	r.F &= 0xF0
}
