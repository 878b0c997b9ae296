// Package input models the joypad register: eight button states and the
// active-selection bits that gate which nibble the CPU observes. Adapted
// from github.com/FabianRolfMatthiasNoll/GameBoyEmulator's internal/bus
// JOYP handling and paavohuhtala/RGBEmu's emulation/input.rs.
package input

import "github.com/FabianRolfMatthiasNoll/lr35902core/internal/message"

// State is the host-facing snapshot of which buttons are currently held.
type State struct {
	Left, Right, Up, Down bool
	A, B, Select, Start   bool
}

// Joypad owns the selection bits (written to 0xFF00) and the current button
// state, and computes the CPU-visible register byte.
type Joypad struct {
	selectDirections bool // P14 low: direction set selected
	selectActions    bool // P15 low: action set selected
	state            State
	lastLowNibble    byte // for edge detection on the joypad interrupt
}

// NewJoypad returns a Joypad with neither set selected, as on power-on.
func NewJoypad() *Joypad {
	return &Joypad{lastLowNibble: 0x0F}
}

// Read returns the JOYP byte: bits 7-6 always 1, bits 5-4 reflect the last
// write's selection, bits 3-0 are active-low pressed state for whichever
// set(s) are selected.
func (j *Joypad) Read() byte {
	res := byte(0xC0)
	if !j.selectDirections {
		res |= 0x10
	}
	if !j.selectActions {
		res |= 0x20
	}
	res |= j.lowNibble()
	return res
}

func (j *Joypad) lowNibble() byte {
	low := byte(0x0F)
	if j.selectDirections {
		if j.state.Right {
			low &^= 0x01
		}
		if j.state.Left {
			low &^= 0x02
		}
		if j.state.Up {
			low &^= 0x04
		}
		if j.state.Down {
			low &^= 0x08
		}
	}
	if j.selectActions {
		if j.state.A {
			low &^= 0x01
		}
		if j.state.B {
			low &^= 0x02
		}
		if j.state.Select {
			low &^= 0x04
		}
		if j.state.Start {
			low &^= 0x08
		}
	}
	return low
}

// Write handles a write to 0xFF00: bit4 low selects the direction set, bit5
// low selects the action set; any other pattern deselects both.
func (j *Joypad) Write(v byte) {
	j.selectDirections = v&0x10 == 0
	j.selectActions = v&0x20 == 0
}

// SaveState serializes selection state, button state, and the edge-detect
// nibble. Encoded as plain bytes rather than gob since the struct is tiny
// and entirely fixed-width.
func (j *Joypad) SaveState() []byte {
	var sel byte
	if j.selectDirections {
		sel |= 0x01
	}
	if j.selectActions {
		sel |= 0x02
	}
	var st byte
	for i, pressed := range []bool{j.state.Left, j.state.Right, j.state.Up, j.state.Down, j.state.A, j.state.B, j.state.Select, j.state.Start} {
		if pressed {
			st |= 1 << uint(i)
		}
	}
	return []byte{sel, st, j.lastLowNibble}
}

func (j *Joypad) LoadState(data []byte) {
	if len(data) != 3 {
		return
	}
	sel, st, low := data[0], data[1], data[2]
	j.selectDirections = sel&0x01 != 0
	j.selectActions = sel&0x02 != 0
	j.state = State{
		Left: st&(1<<0) != 0, Right: st&(1<<1) != 0, Up: st&(1<<2) != 0, Down: st&(1<<3) != 0,
		A: st&(1<<4) != 0, B: st&(1<<5) != 0, Select: st&(1<<6) != 0, Start: st&(1<<7) != 0,
	}
	j.lastLowNibble = low
}

// SetState replaces the pressed-button snapshot and reports a Joypad
// interrupt message if any selected, previously-unset line just went active
// (a 1->0 transition on the active-low nibble).
func (j *Joypad) SetState(s State) message.Message {
	j.state = s
	newLow := j.lowNibble()
	fell := j.lastLowNibble &^ newLow
	j.lastLowNibble = newLow
	if fell != 0 {
		return message.Interruption(message.Joypad)
	}
	return message.NoneMsg
}
