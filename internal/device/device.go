// Package device implements the outer Device aggregate (spec §5): the
// single owner of the Bus (and, through it, the PPU, Timer, interrupt
// controller, and cartridge), running the tick loop that sequences CPU
// execution, peripheral advancement, and interrupt service, and routing the
// internal message protocol (spec §4.7) between them. Adapted from
// github.com/FabianRolfMatthiasNoll/GameBoyEmulator's internal/emu.Machine
// scaffold and paavohuhtala/RGBEmu's device.rs, which this core follows for
// the tick ordering, simulated-boot register seeding, and breakpoint/
// debug-state hooks that the teacher's Machine stub never got around to
// implementing.
package device

import (
	"io"
	"log"

	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/bus"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/cart"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/cpu"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/input"
	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/message"
)

// Type distinguishes the two device personalities this core recognizes.
// Beyond selecting VRAM and WRAM bank counts, Color carries no behavior difference —
// no double-speed mode, no palette-swap logic (spec §1 Non-goals: "CGB
// features beyond the mode bit").
type Type int

const (
	GameBoy Type = iota
	GameBoyColor
)

// DebugState tracks whether the tick loop is mid-breakpoint-handling, so a
// host driving the loop one tick at a time can tell a fresh stop from one
// it has already reported.
type DebugState int

const (
	DebugDefault DebugState = iota
	DebugHandlingBreakpoint
)

// Config holds settings that affect how a Device runs, extending the
// teacher's internal/emu.Config with the fields this core's tick loop and
// CLI runner need.
type Config struct {
	Trace    bool // log PC and cycle count after each tick via Logger
	DeviceType Type
}

// Device is the sole owner of the Bus, CPU, and the renderer/debug state
// the host observes between ticks. All cross-component effects flow as
// message.Message values returned up through Bus.Write and PPU.Tick/
// Timer.Tick/Joypad.SetState; Device is the only code that interprets them.
type Device struct {
	cfg Config
	bus *bus.Bus
	cpu *cpu.CPU

	rendererQueue []message.RendererMessage
	breakpoints   map[uint16]struct{}
	debugState    DebugState

	logger *log.Logger
}

// New constructs a Device around a freshly parsed cartridge. ROM must be a
// full cartridge image; an unsupported mapper type is reported immediately
// via coreerr.UnsupportedMapper, matching spec §7's construction-time
// mapper-dispatch failure.
func New(rom []byte, cfg Config) (*Device, error) {
	c, err := cart.NewCartridge(rom)
	if err != nil {
		return nil, err
	}
	b := bus.New(c)
	b.SetColorMode(cfg.DeviceType == GameBoyColor)
	d := &Device{
		cfg:         cfg,
		bus:         b,
		cpu:         cpu.New(b),
		breakpoints: make(map[uint16]struct{}),
		logger:      log.New(io.Discard, "", 0),
	}
	return d, nil
}

// SetLogger installs a logger for per-tick tracing (when Config.Trace is
// set); nothing else is logged. The default discards all output, mirroring
// the teacher's GB_DEBUG_TIMER-gated log.Printf pattern.
func (d *Device) SetLogger(l *log.Logger) { d.logger = l }

// SetBootROM installs a boot ROM to run from 0x0000 until 0xFF50 unmaps it.
// Without one, call ResetSimulatedBoot to seed post-boot register state
// directly.
func (d *Device) SetBootROM(data []byte) { d.bus.SetBootROM(data) }

// SetSerialWriter routes bytes shifted out over the serial port (spec's
// Non-goal on modeling a link-cable partner makes this purely a diagnostic
// sink, as blargg-style test ROMs use it for pass/fail reporting).
func (d *Device) SetSerialWriter(w io.Writer) { d.bus.SetSerialWriter(w) }

// Bus exposes the underlying bus for tools/tests that need direct address
// access (e.g. a headless runner computing a framebuffer checksum from
// VRAM).
func (d *Device) Bus() *bus.Bus { return d.bus }

// CPU exposes the interpreter for tools/tests that want to inspect
// registers directly.
func (d *Device) CPU() *cpu.CPU { return d.cpu }

// ResetSimulatedBoot seeds CPU registers and the full post-boot I/O
// register file to documented DMG power-on values, for running a ROM with
// no boot ROM supplied. Grounded on device.rs::simulate_bootrom, which sets
// more than just the CPU registers spec.md §3 names: TIMA/TMA/TAC, the
// NRxx audio registers, and LCDC/SCY/SCX/LYC/BGP/OBP0/OBP1/WY/WX, so a ROM
// that reads these before writing them observes real hardware defaults.
func (d *Device) ResetSimulatedBoot() {
	d.cpu.Reg.ResetPostBoot()
	d.bus.PPU().ResetPostBoot()
	d.bus.Audio().ResetPostBoot()
	d.bus.Timer().WriteTIMA(0x00)
	d.bus.Timer().WriteTAC(0x00)
	d.bus.Timer().WriteTMA(0x00)
}

// SetInputState pushes a new button snapshot to the joypad, raising a
// Joypad interrupt on any active-low falling edge (spec §6).
func (d *Device) SetInputState(s input.State) {
	d.handleMessage(d.bus.Joypad().SetState(s))
}

// AddBreakpoint arms a PC-address breakpoint; Tick reports it via
// AtBreakpoint without otherwise altering execution (spec's breakpoint hook
// is pure bookkeeping unless the host acts on it).
func (d *Device) AddBreakpoint(pc uint16) { d.breakpoints[pc] = struct{}{} }
func (d *Device) RemoveBreakpoint(pc uint16) { delete(d.breakpoints, pc) }

func (d *Device) atBreakpoint() bool {
	_, ok := d.breakpoints[d.cpu.Reg.PC]
	return ok
}

// Tick runs exactly one iteration of the outer loop (spec §5): decode and
// execute one instruction (unless Halted), advance the PPU by the consumed
// cycles if the LCD is on, advance the Timer cycle-by-cycle, and service at
// most one pending interrupt if the master-enable latch is set. It returns
// whether the current PC was (or still is) an armed breakpoint.
func (d *Device) Tick() (atBreakpoint bool) {
	if d.atBreakpoint() && d.debugState == DebugDefault {
		d.debugState = DebugHandlingBreakpoint
		return true
	}
	d.debugState = DebugDefault

	cycles, msg := d.cpu.Step()
	if d.cfg.Trace {
		d.logger.Printf("PC=%#04x cycles=%d", d.cpu.Reg.PC, cycles)
	}
	d.handleMessage(msg)

	if d.bus.PPU().IsLCDOn() {
		d.handleMessage(d.bus.PPU().Tick(cycles))
	}
	for i := 0; i < cycles; i++ {
		d.handleMessage(d.bus.Timer().Tick())
	}

	if d.cpu.IME {
		d.serviceInterrupt()
	} else if d.cpu.Halted && d.bus.Interrupts().Pending() {
		// HALT wakes independent of IME (spec §4.2).
		d.cpu.WakeFromHalt()
	}

	return false
}

func (d *Device) serviceInterrupt() {
	src, ok := d.bus.Interrupts().Next()
	if !ok {
		if d.cpu.Halted && d.bus.Interrupts().Pending() {
			d.cpu.WakeFromHalt()
		}
		return
	}
	d.cpu.ServiceInterrupt(src.HandlerAddress())
}

// handleMessage routes one message.Message per spec §4.7: raising the
// corresponding IF bit for an interrupt (and, for VBlank, also enqueuing a
// PresentFrame renderer message), or pushing a renderer message to the drain
// queue. A DMATransfer message needs no routing: the bus write that produced
// it has already copied OAM.
func (d *Device) handleMessage(msg message.Message) {
	switch msg.Kind {
	case message.None:
		return
	case message.TriggerInterrupt:
		d.bus.Interrupts().Raise(msg.Interrupt)
		if msg.Interrupt == message.VBlank {
			d.rendererQueue = append(d.rendererQueue, message.RendererMessage{Kind: message.PresentFrame})
		}
	case message.DMATransfer:
		// The bus write that triggered this already performed the copy
		// instantaneously (spec §5's "no cycle stealing" resolution of
		// Open Question (b)); nothing further to route here.
	case message.Renderer:
		d.rendererQueue = append(d.rendererQueue, msg.Renderer)
	}
}

// DrainRendererMessages returns and clears all renderer messages queued
// since the last drain, for the host to consume between ticks (spec §6).
func (d *Device) DrainRendererMessages() []message.RendererMessage {
	q := d.rendererQueue
	d.rendererQueue = nil
	return q
}

// RunUntilHalt ticks the device until the CPU enters HALT, or maxTicks is
// reached (0 disables the limit). Used by the end-to-end scenarios in
// spec.md §8 and the headless CLI's test-ROM harness.
func (d *Device) RunUntilHalt(maxTicks int) {
	for i := 0; maxTicks == 0 || i < maxTicks; i++ {
		d.Tick()
		if d.cpu.Halted {
			return
		}
	}
}

// SaveState serializes the CPU registers/IME/Halted state followed by the
// Bus's own nested SaveState (which in turn covers PPU, cartridge,
// interrupt controller, timer, joypad, and audio registers).
func (d *Device) SaveState() []byte {
	busState := d.bus.SaveState()
	out := make([]byte, 0, len(busState)+10)
	out = append(out, boolByte(d.cpu.IME), boolByte(d.cpu.Halted))
	out = append(out, d.cpu.Reg.A, d.cpu.Reg.F, d.cpu.Reg.B, d.cpu.Reg.C,
		d.cpu.Reg.D, d.cpu.Reg.E, d.cpu.Reg.H, d.cpu.Reg.L)
	out = append(out, byte(d.cpu.Reg.SP>>8), byte(d.cpu.Reg.SP))
	out = append(out, byte(d.cpu.Reg.PC>>8), byte(d.cpu.Reg.PC))
	out = append(out, busState...)
	return out
}

func (d *Device) LoadState(data []byte) {
	if len(data) < 14 {
		return
	}
	d.cpu.IME = data[0] != 0
	d.cpu.Halted = data[1] != 0
	d.cpu.Reg.A, d.cpu.Reg.F = data[2], data[3]
	d.cpu.Reg.B, d.cpu.Reg.C = data[4], data[5]
	d.cpu.Reg.D, d.cpu.Reg.E = data[6], data[7]
	d.cpu.Reg.H, d.cpu.Reg.L = data[8], data[9]
	d.cpu.Reg.SP = uint16(data[10])<<8 | uint16(data[11])
	d.cpu.Reg.PC = uint16(data[12])<<8 | uint16(data[13])
	d.bus.LoadState(data[14:])
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
