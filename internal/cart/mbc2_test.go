package cart

import "testing"

func TestMBC2_ROMBankSelectUsesAddressBit8(t *testing.T) {
	rom := make([]byte, 256*1024)
	for bank := 0; bank < 16; bank++ {
		rom[bank*0x4000] = byte(bank)
	}
	m := NewMBC2(rom)

	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("default bank got %02X want 01", got)
	}

	m.Write(0x2100, 0x05) // bit8 set -> ROM bank select
	if got := m.Read(0x4000); got != 0x05 {
		t.Fatalf("bank5 read got %02X want 05", got)
	}

	m.Write(0x2100, 0x00) // bank 0 remaps to 1
	if got := m.Read(0x4000); got != 0x01 {
		t.Fatalf("bank0->1 remap failed: got %02X", got)
	}
}

func TestMBC2_RAMEnableGatedOnAddressBit8AndNibble(t *testing.T) {
	rom := make([]byte, 256*1024)
	m := NewMBC2(rom)

	// addr bit8 set -> this is a ROM-bank-select write, not RAM-enable.
	m.Write(0x2100, 0x0A)
	m.Write(0xA000, 0x05)
	if got := m.Read(0xA000); got != 0xFF {
		t.Fatalf("expected RAM disabled read 0xFF, got %02X", got)
	}

	// addr bit8 clear with low nibble 0x0A enables RAM.
	m.Write(0x2000, 0x0A)
	m.Write(0xA000, 0x05)
	if got := m.Read(0xA000); got != 0xF5 {
		t.Fatalf("expected high nibble forced to F, got %02X", got)
	}
}

func TestMBC2_RAMMirrorsEveryFiveHundredTwelveBytes(t *testing.T) {
	rom := make([]byte, 256*1024)
	m := NewMBC2(rom)
	m.Write(0x2000, 0x0A)
	m.Write(0xA000, 0x03)
	if got := m.Read(0xA200); got != 0xF3 {
		t.Fatalf("expected mirrored RAM read 0xF3, got %02X", got)
	}
}
