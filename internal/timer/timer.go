// Package timer implements the DIV/TIMA/TMA/TAC programmable timer (spec
// §4.5). The falling-edge model (advance a 16-bit internal divider every
// cycle, increment TIMA when the TAC-selected divider bit falls from 1 to 0)
// is adapted from
// github.com/FabianRolfMatthiasNoll/GameBoyEmulator's internal/bus.Bus.Tick,
// generalized from paavohuhtala/RGBEmu's simpler emulation/timers.rs
// countdown model to match real hardware edge-triggering.
package timer

import (
	"bytes"
	"encoding/gob"

	"github.com/FabianRolfMatthiasNoll/lr35902core/internal/message"
)

// inputBit maps TAC's low 2 bits to the divider bit that gates TIMA.
var inputBit = [4]uint{9, 3, 5, 7}

// Timer owns DIV (exposed via the internal divider's high byte), TIMA, TMA,
// and TAC.
type Timer struct {
	divider uint16 // internal 16-bit free-running counter; DIV = divider>>8
	tima    byte
	tma     byte
	tac     byte // low 3 bits used: bit2 enable, bits1-0 period select

	reloadDelay int // cycles remaining until a pending TIMA overflow reloads from TMA
}

func (t *Timer) DIV() byte  { return byte(t.divider >> 8) }
func (t *Timer) TIMA() byte { return t.tima }
func (t *Timer) TMA() byte  { return t.tma }
func (t *Timer) TAC() byte  { return 0xF8 | (t.tac & 0x07) }

// WriteDIV resets the internal divider to zero; per hardware, this can
// itself cause a TIMA increment if the reset produces a falling edge on the
// currently-selected input bit.
func (t *Timer) WriteDIV() {
	before := t.timerInput()
	t.divider = 0
	if before && !t.timerInput() {
		t.bump()
	}
}

// WriteTIMA sets TIMA directly; if a reload from TMA was pending (this cycle
// follows an overflow), the write cancels the reload.
func (t *Timer) WriteTIMA(v byte) {
	t.tima = v
	t.reloadDelay = 0
}

func (t *Timer) WriteTMA(v byte) { t.tma = v }

// WriteTAC sets TAC; changing the enable bit or the period can itself cause
// a falling edge and thus a TIMA increment, same as a DIV write.
func (t *Timer) WriteTAC(v byte) {
	before := t.timerInput()
	t.tac = v & 0x07
	if before && !t.timerInput() {
		t.bump()
	}
}

func (t *Timer) timerInput() bool {
	if t.tac&0x04 == 0 {
		return false
	}
	return (t.divider>>inputBit[t.tac&0x03])&1 != 0
}

// Tick advances the timer by one CPU cycle and returns the message produced
// (a TimerOverflow interrupt request on TIMA wraparound, else None).
func (t *Timer) Tick() message.Message {
	before := t.timerInput()
	t.divider++
	falling := before && !t.timerInput()

	msg := message.NoneMsg
	if t.reloadDelay > 0 {
		t.reloadDelay--
		if t.reloadDelay == 0 {
			t.tima = t.tma
			msg = message.Interruption(message.TimerOverflow)
		}
	}
	if falling {
		t.bump()
	}
	return msg
}

// bump increments TIMA, scheduling the delayed TMA reload on overflow. The
// actual reload (and the interrupt message) happens on a later Tick, via
// reloadDelay — matching real hardware's 4-cycle reload delay and the
// teacher's WriteTIMA-during-delay cancellation semantics.
func (t *Timer) bump() {
	if t.reloadDelay > 0 {
		return
	}
	if t.tima == 0xFF {
		t.tima = 0x00
		t.reloadDelay = 4
		return
	}
	t.tima++
}

type timerState struct {
	Divider              uint16
	TIMA, TMA, TAC        byte
	ReloadDelay           int
}

func (t *Timer) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(timerState{t.divider, t.tima, t.tma, t.tac, t.reloadDelay})
	return buf.Bytes()
}

func (t *Timer) LoadState(data []byte) {
	var s timerState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	t.divider, t.tima, t.tma, t.tac, t.reloadDelay = s.Divider, s.TIMA, s.TMA, s.TAC, s.ReloadDelay
}
