// Package message defines the internal message protocol (spec §4.7) through
// which the Bus reports deferred side effects of a write back to the Device,
// which is the sole authority that routes them. Adapted from
// paavohuhtala/RGBEmu's emulation/internal_message.rs.
package message

// Kind tags which variant of Message is populated.
type Kind int

const (
	None Kind = iota
	TriggerInterrupt
	DMATransfer
	Renderer
)

// Interrupt identifies one of the five interrupt sources, in dispatch
// priority order (lowest value = highest priority), matching the bit
// positions of IE/IF.
type Interrupt int

const (
	VBlank Interrupt = iota
	LCDStat
	TimerOverflow
	Serial
	Joypad
)

// HandlerAddress returns the fixed ISR entry point for this interrupt.
func (i Interrupt) HandlerAddress() uint16 {
	switch i {
	case VBlank:
		return 0x0040
	case LCDStat:
		return 0x0048
	case TimerOverflow:
		return 0x0050
	case Serial:
		return 0x0058
	case Joypad:
		return 0x0060
	default:
		return 0x0000
	}
}

// RendererKind tags the payload of a Renderer message.
type RendererKind int

const (
	RenderScanline RendererKind = iota
	PrepareNextFrame
	PresentFrame
)

// RendererMessage is a message destined for the host's output queue (spec
// §4.7, §6): a completed scanline, or a frame boundary marker.
type RendererMessage struct {
	Kind   RendererKind
	Line   byte      // valid when Kind == RenderScanline, in [0,143]
	Pixels [160]byte // valid when Kind == RenderScanline: BG/window color indices 0-3
}

// Message is the tagged union a Bus write returns; Kind selects which
// payload field is meaningful.
type Message struct {
	Kind      Kind
	Interrupt Interrupt
	DMAFrom   uint16
	Renderer  RendererMessage
}

// NoneMsg is the zero-effect message most writes return.
var NoneMsg = Message{Kind: None}

func Interruption(i Interrupt) Message {
	return Message{Kind: TriggerInterrupt, Interrupt: i}
}

func DMA(from uint16) Message {
	return Message{Kind: DMATransfer, DMAFrom: from}
}

func RenderLine(line byte, pixels [160]byte) Message {
	return Message{Kind: Renderer, Renderer: RendererMessage{Kind: RenderScanline, Line: line, Pixels: pixels}}
}

func FramePrepare() Message {
	return Message{Kind: Renderer, Renderer: RendererMessage{Kind: PrepareNextFrame}}
}

func FramePresent() Message {
	return Message{Kind: Renderer, Renderer: RendererMessage{Kind: PresentFrame}}
}
