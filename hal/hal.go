package hal

import (
	"time"

	"github.com/ardnew/usbuart/cdc"
)

// ErrorKind classifies a UART receive error.
type ErrorKind uint8

// UART receive error kinds.
const (
	ErrorFraming ErrorKind = iota // Stop bit not detected
	ErrorParity                   // Parity mismatch
	ErrorOverrun                  // Receive register overwritten
	ErrorNoise                    // Noise detected on the line
)

// String returns a human-readable error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorFraming:
		return "framing"
	case ErrorParity:
		return "parity"
	case ErrorOverrun:
		return "overrun"
	case ErrorNoise:
		return "noise"
	default:
		return "unknown"
	}
}

// UART configures and drives the physical UART channels.
//
// Every method is called from handler context and must return without
// blocking on the line itself.
type UART interface {
	// Configure applies a line coding to the channel's hardware.
	Configure(ch cdc.Channel, lc cdc.LineCoding) error

	// SetControlLines drives the channel's DTR and RTS outputs.
	SetControlLines(ch cdc.Channel, dtr, rts bool) error

	// SetBreak asserts or releases a break on the channel's TX line.
	SetBreak(ch cdc.Channel, on bool) error

	// KickTx tells the channel that its TX ring has data. The UART pulls
	// bytes by calling [UARTHandler.UartTxReady] until it returns 0.
	KickTx(ch cdc.Channel)
}

// UARTHandler receives UART events. The bridge implements it; UART backends
// deliver interrupts to it.
type UARTHandler interface {
	// UartReceive delivers bytes received on ch.
	UartReceive(ch cdc.Channel, data []byte)

	// UartError reports a discarded byte.
	UartError(ch cdc.Channel, kind ErrorKind)

	// UartBreak reports a break condition of duration d detected on ch.
	UartBreak(ch cdc.Channel, d time.Duration)

	// UartTxReady fills p with bytes to transmit on ch and returns the count.
	UartTxReady(ch cdc.Channel, p []byte) int
}

// Transport is the bulk side of the USB device stack.
type Transport interface {
	// SubmitIn starts an IN transfer of data on endpoint ep. The buffer is
	// owned by the transport until [USBHandler.BulkInComplete] is delivered
	// for ep.
	SubmitIn(ep uint8, data []byte) error

	// PrepareOut arms endpoint ep to accept one OUT packet. Until it is
	// called again after [USBHandler.BulkOutComplete], the endpoint NAKs.
	PrepareOut(ep uint8) error
}

// USBHandler receives bulk transfer completions from a [Transport].
type USBHandler interface {
	BulkInComplete(ep uint8) error
	BulkOutComplete(ep uint8, data []byte) error
}

// Stopper cancels a scheduled callback.
type Stopper interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was stopped.
	Stop() bool
}

// Timer schedules a callback in handler context.
type Timer interface {
	AfterFunc(d time.Duration, f func()) Stopper
}

// DisplayReason identifies why a display event was raised.
type DisplayReason uint8

// Display event reasons.
const (
	ReasonRequest DisplayReason = iota // SHOW_STATUS from the host
	ReasonSwitch                       // Completed channel switch
)

// String returns the reason name.
func (r DisplayReason) String() string {
	if r == ReasonSwitch {
		return "switch"
	}
	return "request"
}

// DisplayEvent is a status snapshot handed to a [Display].
type DisplayEvent struct {
	Reason    DisplayReason
	Status    cdc.Status
	Discarded uint32 // Bytes flushed by the switch that raised the event
}

// Display renders status snapshots. Show is called from handler context
// and must not block.
type Display interface {
	Show(ev DisplayEvent)
}

// Raiser delivers a function to run in handler context. Backends that read
// hardware on their own goroutines raise their events through it;
// [github.com/ardnew/usbuart/irq.Controller] implements it.
type Raiser interface {
	Raise(f func()) bool
}
