// Package ppu implements the picture-processing unit state machine (spec
// §4.6): VRAM/OAM storage, the LCDC/STAT/SCY/SCX/LY/LYC/BGP/OBP0/OBP1/WY/WX
// register file, and the OAM-scan/pixel-transfer/HBlank/VBlank mode
// scheduler driven by consumed CPU cycles. Adapted from
// github.com/FabianRolfMatthiasNoll/GameBoyEmulator's internal/ppu.PPU,
// reworked to report side effects through the message protocol instead of a
// direct interrupt-request callback, matching
// paavohuhtala/RGBEmu's emulation/video/controller.rs update() signature.
package ppu

import (
	"bytes"
	"encoding/gob"

	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/message"
)

// Mode is the PPU's current scanline phase, stored in STAT bits 0-1.
type Mode byte

const (
	ModeHBlank Mode = iota
	ModeVBlank
	ModeOAMScan
	ModePixelTransfer
)

// Durations in dots (CPU cycles), per spec §4.6's table: OAM-scan 80,
// pixel-transfer 172, HBlank 204, one scanline 456, VBlank ten scanlines.
const (
	oamScanDots       = 80
	pixelTransferDots = 172
	hblankDots        = 204
	lineDots          = oamScanDots + pixelTransferDots + hblankDots
	vblankFirstLine   = 144
	lastLine          = 153
)

// Sprite is one 4-byte OAM entry.
type Sprite struct {
	Y, X, Tile, Flags byte
}

// PPU owns VRAM, OAM, and the video register file.
type PPU struct {
	vram [2][0x2000]byte // 0x8000-0x9FFF, bank 1 only addressable in color mode
	oam  [0xA0]byte      // 0xFE00-0xFE9F, 40 sprites x 4 bytes
	vbk  byte            // 0xFF4F, bit0 selects the active VRAM bank (color mode only)

	colorMode bool

	lcdc byte
	stat byte
	scy  byte
	scx  byte
	ly   byte
	lyc  byte
	bgp  byte
	obp0 byte
	obp1 byte
	wy   byte
	wx   byte

	dot int
}

// New returns a PPU in its power-on state (LCD off, mode HBlank, LY=0).
func New() *PPU { return &PPU{} }

// SetColorMode enables the second VRAM bank and the VBK select register,
// the full extent of CGB support this core recognizes (spec §1 Non-goal:
// "CGB features beyond the mode bit").
func (p *PPU) SetColorMode(enabled bool) { p.colorMode = enabled }

func (p *PPU) vramBank() int {
	if p.colorMode && p.vbk&0x01 != 0 {
		return 1
	}
	return 0
}

// ResetPostBoot seeds the documented DMG post-boot video registers.
func (p *PPU) ResetPostBoot() {
	p.lcdc = 0x91
	p.scy, p.scx = 0x00, 0x00
	p.lyc = 0x00
	p.bgp = 0xFC
	p.obp0, p.obp1 = 0xFF, 0xFF
	p.wy, p.wx = 0x00, 0x00
	p.updateCoincidence()
}

func (p *PPU) Mode() Mode { return Mode(p.stat & 0x03) }
func (p *PPU) LY() byte   { return p.ly }

// IsLCDOn reports LCDC bit 7, the master LCD-on switch.
func (p *PPU) IsLCDOn() bool { return p.lcdc&0x80 != 0 }

// CPURead serves VRAM, OAM, and the video IO register range. VRAM reads
// during pixel-transfer and OAM reads during OAM-scan/pixel-transfer return
// 0xFF, matching the CPU-visibility gating real hardware applies.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.Mode() == ModePixelTransfer {
			return 0xFF
		}
		return p.vram[p.vramBank()][addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if m := p.Mode(); m == ModeOAMScan || m == ModePixelTransfer {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | p.stat
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	case addr == 0xFF4F:
		if p.colorMode {
			return 0xFE | p.vbk
		}
		return 0xFF
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and the video IO register range.
func (p *PPU) CPUWrite(addr uint16, v byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if p.Mode() != ModePixelTransfer {
			p.vram[p.vramBank()][addr-0x8000] = v
		}
	case addr >= 0xFE00 && addr <= 0xFE9F:
		if m := p.Mode(); m != ModeOAMScan && m != ModePixelTransfer {
			p.oam[addr-0xFE00] = v
		}
	case addr == 0xFF40:
		prevOn := p.lcdc&0x80 != 0
		p.lcdc = v
		if prevOn && p.lcdc&0x80 == 0 {
			p.ly, p.dot = 0, 0
			p.setMode(ModeHBlank)
			p.updateCoincidence()
		} else if !prevOn && p.lcdc&0x80 != 0 {
			p.ly, p.dot = 0, 0
			p.setMode(ModeOAMScan)
			p.updateCoincidence()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (v & 0x78)
	case addr == 0xFF42:
		p.scy = v
	case addr == 0xFF43:
		p.scx = v
	case addr == 0xFF45:
		p.lyc = v
		p.updateCoincidence()
	case addr == 0xFF47:
		p.bgp = v
	case addr == 0xFF48:
		p.obp0 = v
	case addr == 0xFF49:
		p.obp1 = v
	case addr == 0xFF4A:
		p.wy = v
	case addr == 0xFF4B:
		p.wx = v
	case addr == 0xFF4F:
		if p.colorMode {
			p.vbk = v & 0x01
		}
	}
}

func (p *PPU) setMode(m Mode) { p.stat = (p.stat &^ 0x03) | byte(m) }

// updateCoincidence refreshes STAT bit 2 (LY==LYC) for programs that poll
// the register directly. Per spec §9 Open Question (c), STAT-mode and
// LY==LYC interrupts are not wired in the source; only the flag bit itself
// is maintained.
func (p *PPU) updateCoincidence() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
	} else {
		p.stat &^= 1 << 2
	}
}

// OAMWriteRaw writes a byte directly into OAM, bypassing the STAT-mode
// access gating CPUWrite applies; used by OAM DMA, which this core models
// as instantaneous and bus-owned rather than cycle-stretched (spec §9 Open
// Question b).
func (p *PPU) OAMWriteRaw(offset int, v byte) { p.oam[offset] = v }

// Sprites returns the 40 OAM entries for scanline composition.
func (p *PPU) Sprites() [40]Sprite {
	var out [40]Sprite
	for i := 0; i < 40; i++ {
		base := i * 4
		out[i] = Sprite{Y: p.oam[base], X: p.oam[base+1], Tile: p.oam[base+2], Flags: p.oam[base+3]}
	}
	return out
}

func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }

// BGEnabled, SpritesEnabled, SpriteHeight, and the tile-map/pattern-table
// base selectors expose LCDC bits 0-6 for a renderer.
func (p *PPU) BGEnabled() bool      { return p.lcdc&0x01 != 0 }
func (p *PPU) SpritesEnabled() bool { return p.lcdc&0x02 != 0 }
func (p *PPU) SpriteHeight() int {
	if p.lcdc&0x04 != 0 {
		return 16
	}
	return 8
}
func (p *PPU) BGTileMapBase() uint16 {
	if p.lcdc&0x08 != 0 {
		return 0x9C00
	}
	return 0x9800
}
func (p *PPU) TileDataIs8000() bool { return p.lcdc&0x10 != 0 }
func (p *PPU) WindowEnabled() bool  { return p.lcdc&0x20 != 0 }
func (p *PPU) WindowTileMapBase() uint16 {
	if p.lcdc&0x40 != 0 {
		return 0x9C00
	}
	return 0x9800
}

// Read implements the VRAMReader interface the scanline/fetcher helpers in
// this package expect.
func (p *PPU) Read(addr uint16) byte { return p.CPURead(addr) }

type ppuState struct {
	VRAM [2][0x2000]byte
	OAM  [0xA0]byte
	VBK  byte
	LCDC, STAT, SCY, SCX, LY, LYC, BGP, OBP0, OBP1, WY, WX byte
	Dot int
}

// SaveState serializes VRAM (both banks), OAM, and every video register.
func (p *PPU) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(ppuState{
		VRAM: p.vram, OAM: p.oam, VBK: p.vbk,
		LCDC: p.lcdc, STAT: p.stat, SCY: p.scy, SCX: p.scx, LY: p.ly, LYC: p.lyc,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1, WY: p.wy, WX: p.wx, Dot: p.dot,
	})
	return buf.Bytes()
}

func (p *PPU) LoadState(data []byte) {
	var s ppuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	p.vram, p.oam, p.vbk = s.VRAM, s.OAM, s.VBK
	p.lcdc, p.stat, p.scy, p.scx, p.ly, p.lyc = s.LCDC, s.STAT, s.SCY, s.SCX, s.LY, s.LYC
	p.bgp, p.obp0, p.obp1, p.wy, p.wx, p.dot = s.BGP, s.OBP0, s.OBP1, s.WY, s.WX, s.Dot
}

// renderScanline composes the 160 BG/window color indices for the current
// LY via the isolated fetcher (scanline.go), blending in the window layer
// when LCDC enables it and WX places it on-screen. Sprite compositing is
// left to the renderer consuming the message (spec §1: out of scope here).
func (p *PPU) renderScanline() [160]byte {
	if !p.BGEnabled() {
		var blank [160]byte
		return blank
	}
	out := RenderBGScanlineUsingFetcher(p, p.BGTileMapBase(), p.TileDataIs8000(), p.scx, p.scy, p.ly)
	if p.WindowEnabled() && p.ly >= p.wy {
		wxStart := int(p.wx) - 7
		winLine := p.ly - p.wy
		win := RenderWindowScanlineUsingFetcher(p, p.WindowTileMapBase(), p.TileDataIs8000(), wxStart, winLine)
		start := wxStart
		if start < 0 {
			start = 0
		}
		for x := start; x < 160; x++ {
			out[x] = win[x]
		}
	}
	return out
}

// Tick advances the PPU by the given number of dots (CPU cycles), consumed
// all at once rather than dot-by-dot, and returns at most one message: a
// completed-scanline render notification carrying the composed pixel row, a
// frame-boundary marker, or a TriggerInterrupt on entering VBlank. Callers
// only invoke Tick when the LCD is on.
func (p *PPU) Tick(cycles int) message.Message {
	if cycles <= 0 {
		return message.NoneMsg
	}
	p.dot += cycles

	switch p.Mode() {
	case ModeOAMScan:
		if p.dot >= oamScanDots {
			p.dot -= oamScanDots
			p.setMode(ModePixelTransfer)
		}
	case ModePixelTransfer:
		if p.dot >= pixelTransferDots {
			p.dot -= pixelTransferDots
			p.setMode(ModeHBlank)
			return message.RenderLine(p.ly, p.renderScanline())
		}
	case ModeHBlank:
		if p.dot >= hblankDots {
			p.dot -= hblankDots
			p.ly++
			p.updateCoincidence()
			if p.ly == vblankFirstLine {
				p.setMode(ModeVBlank)
				return message.Interruption(message.VBlank)
			}
			p.setMode(ModeOAMScan)
		}
	case ModeVBlank:
		if p.dot >= lineDots {
			p.dot -= lineDots
			p.ly++
			if p.ly > lastLine {
				p.ly = 0
				p.setMode(ModeOAMScan)
				p.updateCoincidence()
				return message.FramePrepare()
			}
			p.updateCoincidence()
		}
	}
	return message.NoneMsg
}
