// Package bridge implements the control and data core of a USB CDC-ACM to
// dual-UART bridge.
//
// A [Bridge] presents one virtual serial port to the host and relays bytes
// between the USB bulk endpoints and whichever of two UART channels is
// active. The host negotiates the line coding and control lines with the
// standard ACM requests, and uses three vendor requests to show status on
// the device display, select the active channel and read the telemetry
// counters.
//
// # Data Path
//
// Each channel owns an RX and a TX [ring.Buffer]. UART receive handlers
// fill the RX ring and USB IN completions drain it one packet at a time; USB
// OUT completions fill the TX ring and UART transmit-ready handlers drain
// it. Full rings drop the newest bytes and count them as UART errors.
//
// Exactly one IN transfer is ever in flight. When the RX ring is empty at
// IN completion the bridge parks instead of submitting an empty packet, and
// the next receive handler resumes it:
//
//	BulkInComplete ──► ring empty? ──yes──► park (data pending)
//	      │                                     │
//	      no                          UartReceive takes it
//	      ▼                                     ▼
//	  SubmitIn ◄────────────────────────────────┘
//
// # Channel Switching
//
// SELECT_UART (or a long break on the active line when break toggling is
// enabled) only registers a pending switch. The switch is applied when no IN
// transfer is in flight: under [SwitchFlush] immediately, discarding what the
// old channel still buffers; under [SwitchDrain] once both of its rings are
// empty or the drain timeout expires. After a switch no byte of the old
// channel reaches the host and the status counters read zero.
//
// # Usage
//
//	b, err := bridge.New(bridge.DefaultConfig(), uart, usb, timer, display)
//	if err != nil {
//		return err
//	}
//	if err := b.Init(); err != nil {
//		return err
//	}
//	// Deliver stack and UART events to b's handler methods.
package bridge
