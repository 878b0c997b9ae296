package cart

import (
	"bytes"
	"encoding/gob"
)

// MBC2 implements the MBC2 mapper: up to 256KB ROM (16 banks), no external
// RAM pins, but 512x4-bit built-in RAM addressed at 0xA000-0xA1FF (and
// mirrored through 0xBFFF). Bank/RAM-enable control writes are
// distinguished by address bit 8 rather than by address range, unlike
// MBC1. Adapted from this package's MBC1 in shape, generalized per spec
// §4.8's MBC2 semantics.
type MBC2 struct {
	rom []byte
	ram [512]byte // only the low nibble of each byte is meaningful

	romBank    byte
	ramEnabled bool
}

func NewMBC2(rom []byte) *MBC2 {
	return &MBC2{rom: rom, romBank: 1}
}

func (m *MBC2) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
		return 0xFF
	case addr < 0x8000:
		off := int(m.romBank)*0x4000 + int(addr-0x4000)
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0xFF
		}
		return 0xF0 | (m.ram[int(addr-0xA000)%512] & 0x0F)
	default:
		return 0xFF
	}
}

func (m *MBC2) Write(addr uint16, value byte) {
	switch {
	case addr < 0x4000:
		// Bit 8 of the address (not the data) selects RAM-enable vs ROM-bank.
		if addr&0x0100 == 0 {
			m.ramEnabled = value&0x0F == 0x0A
		} else {
			bank := value & 0x0F
			if bank == 0 {
				bank = 1
			}
			m.romBank = bank
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.ramEnabled {
			m.ram[int(addr-0xA000)%512] = value & 0x0F
		}
	}
}

func (m *MBC2) SaveRAM() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram[:])
	return out
}

func (m *MBC2) LoadRAM(data []byte) {
	copy(m.ram[:], data)
}

type mbc2State struct {
	RAM        [512]byte
	ROMBank    byte
	RAMEnabled bool
}

func (m *MBC2) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc2State{RAM: m.ram, ROMBank: m.romBank, RAMEnabled: m.ramEnabled})
	return buf.Bytes()
}

func (m *MBC2) LoadState(data []byte) {
	var s mbc2State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	m.ram, m.romBank, m.ramEnabled = s.RAM, s.ROMBank, s.RAMEnabled
}
