// Package cart parses the cartridge header and dispatches to one of the
// supported mapper implementations (spec §4.8: ROM-only, MBC1, MBC2).
// Adapted from github.com/FabianRolfMatthiasNoll/GameBoyEmulator's
// internal/cart package; the dispatch itself is grounded on
// paavohuhtala/RGBEmu's cartridge construction in emulation/mappers.rs,
// which also treats an unrecognized cartridge-type byte as a construction
// time failure rather than a silent ROM-only fallback.
package cart

import "github.com/FabianRolfMatthiasNoll/lr35902core/internal/coreerr"

// Cartridge is the minimal interface the bus needs for ROM/RAM banking.
// Addresses are CPU addresses.
type Cartridge interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	SaveState() []byte
	LoadState(data []byte)
}

// BatteryBacked is implemented by mappers with persistable external RAM.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// NewCartridge parses rom's header and constructs the matching mapper. It
// returns coreerr.UnsupportedMapper for any cartridge-type byte this core
// doesn't implement (MBC3, MBC5, MBC7, RTC carts, and any multicart or
// unlisted type are explicit Non-goals) rather than silently substituting a
// ROM-only mapper, so a bad ROM fails loudly at load time instead of
// producing puzzling runtime behavior.
func NewCartridge(rom []byte) (Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}
	switch h.CartType {
	case 0x00:
		return NewROMOnly(rom), nil
	case 0x01, 0x02, 0x03:
		return NewMBC1(rom, h.RAMSizeBytes), nil
	case 0x05, 0x06:
		return NewMBC2(rom), nil
	default:
		return nil, &coreerr.UnsupportedMapper{CartType: h.CartType}
	}
}
