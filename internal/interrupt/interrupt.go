// Package interrupt implements the IE/IF interrupt controller: a 5-bit
// enable mask, a 5-bit request mask, and priority-ordered dispatch. Adapted
// from paavohuhtala/RGBEmu's emulation/interrupt.rs, translated from its
// bitflags-based InterruptRegisters into a plain byte-mask Go struct.
package interrupt

import "github.com/FabianRolfMatthiasNoll/lr35902core/internal/message"

// order lists the five sources from highest to lowest priority, matching
// their IE/IF bit positions.
var order = [5]message.Interrupt{
	message.VBlank,
	message.LCDStat,
	message.TimerOverflow,
	message.Serial,
	message.Joypad,
}

// Controller owns the IE (enable) and IF (request) registers.
type Controller struct {
	enable  byte // IE, 0xFFFF
	request byte // IF, 0xFF0F
}

func (c *Controller) Enable() byte  { return c.enable }
func (c *Controller) Request() byte { return c.request }

func (c *Controller) SetEnable(v byte)  { c.enable = v & 0x1F }
func (c *Controller) SetRequest(v byte) { c.request = v & 0x1F }

// Raise sets the IF bit for the given source.
func (c *Controller) Raise(i message.Interrupt) {
	c.request |= 1 << uint(i)
}

// Pending reports whether any enabled interrupt is currently requested.
func (c *Controller) Pending() bool {
	return c.enable&c.request&0x1F != 0
}

// Next picks the highest-priority enabled-and-requested interrupt, clears
// its IF bit, and returns it. Returns ok=false if none is pending.
func (c *Controller) Next() (i message.Interrupt, ok bool) {
	pending := c.enable & c.request & 0x1F
	if pending == 0 {
		return 0, false
	}
	for _, src := range order {
		bit := byte(1) << uint(src)
		if pending&bit != 0 {
			c.request &^= bit
			return src, true
		}
	}
	return 0, false
}

// SaveState serializes IE and IF.
func (c *Controller) SaveState() []byte { return []byte{c.enable, c.request} }

func (c *Controller) LoadState(data []byte) {
	if len(data) != 2 {
		return
	}
	c.enable, c.request = data[0]&0x1F, data[1]&0x1F
}
