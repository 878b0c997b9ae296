// Package audio models the audio controller as a flat register file with no
// sample synthesis (spec §1 Non-goals, §2: "passive register file"). Adapted
// from github.com/FabianRolfMatthiasNoll/GameBoyEmulator's internal/apu.APU,
// trimmed down to the register-storage surface it shares with any real DMG
// implementation; the mixing/synthesis machinery there has no home in this
// core.
package audio

// Registers spans 0xFF10-0xFF3F: channel 1-4 control regs, NR50/51/52, and
// the wave-pattern RAM at 0xFF30-0xFF3F.
type Registers struct {
	regs [0x30]byte // 0xFF10-0xFF3F
}

// ResetPostBoot seeds the documented DMG post-boot NRxx values (from
// paavohuhtala/RGBEmu's device.rs::simulate_bootrom), used when no boot ROM
// is supplied.
func (r *Registers) ResetPostBoot() {
	set := func(addr uint16, v byte) { r.Write(addr, v) }
	set(0xFF10, 0x80)
	set(0xFF11, 0xBF)
	set(0xFF12, 0xF3)
	set(0xFF14, 0xBF)
	set(0xFF16, 0x3F)
	set(0xFF17, 0x00)
	set(0xFF19, 0xBF)
	set(0xFF1A, 0x7F)
	set(0xFF1B, 0xFF)
	set(0xFF1C, 0x9F)
	set(0xFF1E, 0xBF)
	set(0xFF20, 0xFF)
	set(0xFF21, 0x00)
	set(0xFF22, 0x00)
	set(0xFF23, 0xBF)
	set(0xFF24, 0x77)
	set(0xFF25, 0xF3)
	set(0xFF26, 0xF1)
}

// Read returns the stored byte for any address in 0xFF10-0xFF3F.
func (r *Registers) Read(addr uint16) byte {
	if addr < 0xFF10 || addr > 0xFF3F {
		return 0xFF
	}
	return r.regs[addr-0xFF10]
}

// Write stores the byte for any address in 0xFF10-0xFF3F. No side effects:
// this core never synthesizes samples from these registers.
func (r *Registers) Write(addr uint16, v byte) {
	if addr < 0xFF10 || addr > 0xFF3F {
		return
	}
	r.regs[addr-0xFF10] = v
}

func (r *Registers) SaveState() []byte {
	out := make([]byte, len(r.regs))
	copy(out, r.regs[:])
	return out
}

func (r *Registers) LoadState(data []byte) {
	if len(data) != len(r.regs) {
		return
	}
	copy(r.regs[:], data)
}
