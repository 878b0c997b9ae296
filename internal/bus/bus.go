// Package bus implements the system bus (spec §4.3): CPU-visible address
// decoding across cartridge ROM/RAM, VRAM, WRAM, OAM, IO registers, HRAM,
// and IE, plus echo-RAM mirroring and the boot-ROM overlay. Ticking the
// timer, PPU, and interrupt controller is the device package's job (spec
// §5's tick ordering); the bus only decodes addresses and, for writes that
// have an immediate side effect (OAM DMA, serial transfer), reports it
// through the message protocol. Adapted from
// github.com/FabianRolfMatthiasNoll/GameBoyEmulator's internal/bus.Bus,
// restructured around the sub-packages this core split the teacher's
// monolithic Bus into (interrupt, timer, input, audio, cart, ppu).
package bus

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/audio"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/cart"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/input"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/interrupt"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/message"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/ppu"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/timer"
)

// Bus wires the CPU-visible address space to the cartridge and every
// memory-mapped subsystem.
type Bus struct {
	cart cart.Cartridge
	ppu  *ppu.PPU
	intr *interrupt.Controller
	tmr  *timer.Timer
	joyp *input.Joypad
	snd  *audio.Registers

	wram0 [0x1000]byte    // 0xC000-0xCFFF, fixed
	wramX [7][0x1000]byte // 0xD000-0xDFFF switchable banks 1-7 (color mode only)
	svbk  byte            // 0xFF70, bits 0-2 select the active wramX bank
	hram  [0x7F]byte      // 0xFF80-0xFFFE

	colorMode bool

	sb byte      // FF01 serial data
	sc byte      // FF02 serial control
	sw io.Writer // optional sink for bytes shifted out over serial

	bootROM     []byte
	bootEnabled bool
}

// New constructs a Bus around the given cartridge and fresh PPU, interrupt,
// timer, joypad, and audio-register subsystems.
func New(c cart.Cartridge) *Bus {
	return &Bus{
		cart: c,
		ppu:  ppu.New(),
		intr: &interrupt.Controller{},
		tmr:  &timer.Timer{},
		joyp: input.NewJoypad(),
		snd:  &audio.Registers{},
	}
}

func (b *Bus) PPU() *ppu.PPU                   { return b.ppu }
func (b *Bus) Cart() cart.Cartridge            { return b.cart }
func (b *Bus) Interrupts() *interrupt.Controller { return b.intr }
func (b *Bus) Timer() *timer.Timer             { return b.tmr }
func (b *Bus) Joypad() *input.Joypad           { return b.joyp }
func (b *Bus) Audio() *audio.Registers         { return b.snd }

// SetColorMode enables the second VRAM bank and the WRAM/VRAM bank-select
// registers, the full extent of CGB support this core recognizes (spec §1
// Non-goal: "CGB features beyond the mode bit"). A DMG-mode bus stays
// locked to VRAM bank 0 and WRAM bank 1, matching real hardware.
func (b *Bus) SetColorMode(enabled bool) {
	b.colorMode = enabled
	b.ppu.SetColorMode(enabled)
}

func (b *Bus) wramBank() int {
	if !b.colorMode {
		return 0
	}
	bank := b.svbk & 0x07
	if bank == 0 {
		bank = 1
	}
	return int(bank - 1)
}

func (b *Bus) wramRead(offset uint16) byte {
	if offset < 0x1000 {
		return b.wram0[offset]
	}
	return b.wramX[b.wramBank()][offset-0x1000]
}

func (b *Bus) wramWrite(offset uint16, v byte) {
	if offset < 0x1000 {
		b.wram0[offset] = v
		return
	}
	b.wramX[b.wramBank()][offset-0x1000] = v
}

// SetSerialWriter sets a sink that receives bytes shifted out over the
// serial port. With no link-cable partner modeled (spec Non-goal), a write
// that starts a transfer completes it immediately against this sink, if
// any, then raises a Serial interrupt.
func (b *Bus) SetSerialWriter(w io.Writer) { b.sw = w }

// SetBootROM loads a 256-byte DMG boot ROM to overlay 0x0000-0x00FF until a
// non-zero write to 0xFF50 unmaps it. Passing fewer than 256 bytes leaves
// the overlay disabled.
func (b *Bus) SetBootROM(data []byte) {
	b.bootROM = nil
	b.bootEnabled = false
	if len(data) >= 0x100 {
		b.bootROM = make([]byte, 0x100)
		copy(b.bootROM, data[:0x100])
		b.bootEnabled = true
	}
}

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if b.bootEnabled && addr < 0x0100 {
			return b.bootROM[addr]
		}
		return b.cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xDFFF:
		return b.wramRead(addr - 0xC000)
	case addr >= 0xE000 && addr <= 0xFDFF:
		return b.wramRead(addr - 0xE000)
	case addr >= 0xFE00 && addr <= 0xFE9F:
		return b.ppu.CPURead(addr)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr == 0xFF00:
		return b.joyp.Read()
	case addr == 0xFF01:
		return b.sb
	case addr == 0xFF02:
		return 0x7E | (b.sc & 0x81)
	case addr == 0xFF04:
		return b.tmr.DIV()
	case addr == 0xFF05:
		return b.tmr.TIMA()
	case addr == 0xFF06:
		return b.tmr.TMA()
	case addr == 0xFF07:
		return b.tmr.TAC()
	case addr == 0xFF0F:
		return 0xE0 | b.intr.Request()
	case addr >= 0xFF10 && addr <= 0xFF3F:
		return b.snd.Read(addr)
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		return b.ppu.CPURead(addr)
	case addr == 0xFF46:
		return 0xFF // OAM DMA register is write-only in effect; last source isn't tracked for reads
	case addr == 0xFF4F:
		return b.ppu.CPURead(addr)
	case addr == 0xFF50:
		return 0xFF
	case addr == 0xFF70:
		if b.colorMode {
			return 0xF8 | b.svbk
		}
		return 0xFF
	case addr == 0xFFFF:
		return b.intr.Enable()
	default:
		return 0xFF
	}
}

// Write decodes a CPU write and returns a message reporting any side effect
// that the device's tick loop must route: an OAM DMA completion, or a
// Serial interrupt from the loopback write. Every other write returns
// message.NoneMsg.
func (b *Bus) Write(addr uint16, value byte) message.Message {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr >= 0x8000 && addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xA000 && addr <= 0xBFFF:
		b.cart.Write(addr, value)
	case addr >= 0xC000 && addr <= 0xDFFF:
		b.wramWrite(addr-0xC000, value)
	case addr >= 0xE000 && addr <= 0xFDFF:
		b.wramWrite(addr-0xE000, value)
	case addr >= 0xFE00 && addr <= 0xFE9F:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	case addr == 0xFF00:
		b.joyp.Write(value)
	case addr == 0xFF01:
		b.sb = value
	case addr == 0xFF02:
		b.sc = value & 0x81
		if b.sc&0x80 != 0 {
			if b.sw != nil {
				_, _ = b.sw.Write([]byte{b.sb})
			}
			b.sc &^= 0x80
			return message.Interruption(message.Serial)
		}
	case addr == 0xFF04:
		b.tmr.WriteDIV()
	case addr == 0xFF05:
		b.tmr.WriteTIMA(value)
	case addr == 0xFF06:
		b.tmr.WriteTMA(value)
	case addr == 0xFF07:
		b.tmr.WriteTAC(value)
	case addr == 0xFF0F:
		b.intr.SetRequest(value)
	case addr >= 0xFF10 && addr <= 0xFF3F:
		b.snd.Write(addr, value)
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		b.ppu.CPUWrite(addr, value)
	case addr == 0xFF46:
		b.runOAMDMA(value)
		return message.DMA(uint16(value) << 8)
	case addr == 0xFF4F:
		b.ppu.CPUWrite(addr, value)
	case addr == 0xFF50:
		if value != 0x00 {
			b.bootEnabled = false
		}
	case addr == 0xFF70:
		if b.colorMode {
			b.svbk = value & 0x07
		}
	case addr == 0xFFFF:
		b.intr.SetEnable(value)
	}
	return message.NoneMsg
}

// runOAMDMA copies the 160-byte source window starting at value*0x100 into
// OAM. Modeled as instantaneous within the triggering write rather than
// cycle-stretched over 160 M-cycles with bus-locking: this core has no
// cycle-by-cycle external bus contention to model, so the two are
// observationally equivalent for any program that waits for DMA via its
// documented completion timing.
func (b *Bus) runOAMDMA(srcHigh byte) {
	src := uint16(srcHigh) << 8
	for i := 0; i < 0xA0; i++ {
		b.ppu.OAMWriteRaw(i, b.Read(src+uint16(i)))
	}
}

type busState struct {
	WRAM0       [0x1000]byte
	WRAMX       [7][0x1000]byte
	SVBK        byte
	HRAM        [0x7F]byte
	SB, SC      byte
	BootEnabled bool
}

// SaveState serializes WRAM (both the fixed bank and the switchable CGB
// banks), HRAM, serial registers, and boot-ROM mapping state, followed by
// the PPU's, cartridge's, interrupt controller's, timer's, joypad's, and
// audio registers' own encodings.
func (b *Bus) SaveState() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	_ = enc.Encode(busState{
		WRAM0: b.wram0, WRAMX: b.wramX, SVBK: b.svbk,
		HRAM: b.hram, SB: b.sb, SC: b.sc, BootEnabled: b.bootEnabled,
	})
	_ = enc.Encode(b.ppu.SaveState())
	_ = enc.Encode(b.cart.SaveState())
	_ = enc.Encode(b.intr.SaveState())
	_ = enc.Encode(b.tmr.SaveState())
	_ = enc.Encode(b.joyp.SaveState())
	_ = enc.Encode(b.snd.SaveState())
	return buf.Bytes()
}

func (b *Bus) LoadState(data []byte) {
	dec := gob.NewDecoder(bytes.NewReader(data))
	var s busState
	if err := dec.Decode(&s); err != nil {
		return
	}
	b.wram0, b.wramX, b.svbk = s.WRAM0, s.WRAMX, s.SVBK
	b.hram, b.sb, b.sc, b.bootEnabled = s.HRAM, s.SB, s.SC, s.BootEnabled

	var chunk []byte
	if err := dec.Decode(&chunk); err == nil {
		b.ppu.LoadState(chunk)
	}
	if err := dec.Decode(&chunk); err == nil {
		b.cart.LoadState(chunk)
	}
	if err := dec.Decode(&chunk); err == nil {
		b.intr.LoadState(chunk)
	}
	if err := dec.Decode(&chunk); err == nil {
		b.tmr.LoadState(chunk)
	}
	if err := dec.Decode(&chunk); err == nil {
		b.joyp.LoadState(chunk)
	}
	if err := dec.Decode(&chunk); err == nil {
		b.snd.LoadState(chunk)
	}
}
