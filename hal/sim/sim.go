// Package sim provides in-memory [hal] collaborators. Each records what the
// bridge asked of it and exposes helpers that play the hardware's part, so
// tests can drive the bridge event by event.
package sim

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/hal"
	"github.com/ardnew/usbuart/pkg"
)

// Lines is the recorded DTR/RTS state of one channel.
type Lines struct {
	DTR, RTS bool
}

// UART records configuration, control line, break and kick calls.
type UART struct {
	mutex sync.Mutex

	coding [cdc.NumChannels]cdc.LineCoding
	config [cdc.NumChannels]int
	lines  [cdc.NumChannels]Lines
	brk    [cdc.NumChannels]bool
	kicks  [cdc.NumChannels]int
	breaks []bool

	// ConfigureErr, when set, is returned by Configure.
	ConfigureErr error
}

// NewUART creates a simulated dual UART.
func NewUART() *UART {
	return &UART{}
}

// Configure implements [hal.UART].
func (u *UART) Configure(ch cdc.Channel, lc cdc.LineCoding) error {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	if !ch.Valid() {
		return pkg.ErrInvalidChannel
	}
	if u.ConfigureErr != nil {
		return u.ConfigureErr
	}
	u.coding[ch] = lc
	u.config[ch]++
	return nil
}

// SetControlLines implements [hal.UART].
func (u *UART) SetControlLines(ch cdc.Channel, dtr, rts bool) error {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	if !ch.Valid() {
		return pkg.ErrInvalidChannel
	}
	u.lines[ch] = Lines{DTR: dtr, RTS: rts}
	return nil
}

// SetBreak implements [hal.UART].
func (u *UART) SetBreak(ch cdc.Channel, on bool) error {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	if !ch.Valid() {
		return pkg.ErrInvalidChannel
	}
	u.brk[ch] = on
	u.breaks = append(u.breaks, on)
	return nil
}

// KickTx implements [hal.UART].
func (u *UART) KickTx(ch cdc.Channel) {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	if ch.Valid() {
		u.kicks[ch]++
	}
}

// Coding returns the last line coding applied to ch and how many times
// Configure succeeded for it.
func (u *UART) Coding(ch cdc.Channel) (cdc.LineCoding, int) {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.coding[ch], u.config[ch]
}

// Lines returns the control line state of ch.
func (u *UART) Lines(ch cdc.Channel) Lines {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.lines[ch]
}

// Break reports whether a break is asserted on ch.
func (u *UART) Break(ch cdc.Channel) bool {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.brk[ch]
}

// BreakHistory returns every SetBreak value in call order.
func (u *UART) BreakHistory() []bool {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return slices.Clone(u.breaks)
}

// Kicks returns the number of KickTx calls for ch.
func (u *UART) Kicks(ch cdc.Channel) int {
	u.mutex.Lock()
	defer u.mutex.Unlock()
	return u.kicks[ch]
}

// Transmit plays the TX interrupt: it pulls bytes from h until it has none
// left for ch and returns them.
func (u *UART) Transmit(h hal.UARTHandler, ch cdc.Channel) []byte {
	var (
		out []byte
		buf [16]byte
	)
	for {
		n := h.UartTxReady(ch, buf[:])
		if n == 0 {
			return out
		}
		out = append(out, buf[:n]...)
	}
}

// Transport records bulk transfers and plays the host's side of them.
type Transport struct {
	mutex sync.Mutex

	in    map[uint8][]byte // in-flight IN transfer per endpoint
	armed map[uint8]bool
	sent  [][]byte

	// SubmitErr, when set, is returned by SubmitIn.
	SubmitErr error
}

// NewTransport creates a simulated bulk transport.
func NewTransport() *Transport {
	return &Transport{
		in:    make(map[uint8][]byte),
		armed: make(map[uint8]bool),
	}
}

// SubmitIn implements [hal.Transport].
func (t *Transport) SubmitIn(ep uint8, data []byte) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	if t.SubmitErr != nil {
		return t.SubmitErr
	}
	if _, busy := t.in[ep]; busy {
		return fmt.Errorf("%w: endpoint 0x%02X", pkg.ErrTransferBusy, ep)
	}
	t.in[ep] = slices.Clone(data)
	return nil
}

// PrepareOut implements [hal.Transport].
func (t *Transport) PrepareOut(ep uint8) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.armed[ep] = true
	return nil
}

// InFlight returns the pending IN payload on ep, if any.
func (t *Transport) InFlight(ep uint8) ([]byte, bool) {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	data, ok := t.in[ep]
	return data, ok
}

// Armed reports whether ep accepts an OUT packet.
func (t *Transport) Armed(ep uint8) bool {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.armed[ep]
}

// CompleteIn finishes the in-flight IN transfer on ep, notifies h, and
// returns the payload the host received.
func (t *Transport) CompleteIn(h hal.USBHandler, ep uint8) ([]byte, error) {
	t.mutex.Lock()
	data, ok := t.in[ep]
	if !ok {
		t.mutex.Unlock()
		return nil, fmt.Errorf("no IN transfer on endpoint 0x%02X", ep)
	}
	delete(t.in, ep)
	t.sent = append(t.sent, data)
	t.mutex.Unlock()
	return data, h.BulkInComplete(ep)
}

// DrainIn completes IN transfers on ep until none is in flight and returns
// the concatenated payloads.
func (t *Transport) DrainIn(h hal.USBHandler, ep uint8) ([]byte, error) {
	var out []byte
	for {
		if _, ok := t.InFlight(ep); !ok {
			return out, nil
		}
		data, err := t.CompleteIn(h, ep)
		out = append(out, data...)
		if err != nil {
			return out, err
		}
	}
}

// SendOut delivers an OUT packet on ep to h. It returns
// [pkg.ErrTransferBusy] if the endpoint is not armed, as a NAK would.
func (t *Transport) SendOut(h hal.USBHandler, ep uint8, data []byte) error {
	t.mutex.Lock()
	if !t.armed[ep] {
		t.mutex.Unlock()
		return fmt.Errorf("%w: endpoint 0x%02X not armed", pkg.ErrTransferBusy, ep)
	}
	t.armed[ep] = false
	t.mutex.Unlock()
	return h.BulkOutComplete(ep, data)
}

// Sent returns every IN payload completed so far.
func (t *Transport) Sent() [][]byte {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return slices.Clone(t.sent)
}

// Timer is a manual clock. Callbacks run only from [Timer.Advance].
type Timer struct {
	mutex   sync.Mutex
	now     time.Duration
	seq     int
	pending []*timerEntry
}

type timerEntry struct {
	t   *Timer
	at  time.Duration
	seq int
	f   func()
}

// NewTimer creates a manual clock at time zero.
func NewTimer() *Timer {
	return &Timer{}
}

// AfterFunc implements [hal.Timer].
func (t *Timer) AfterFunc(d time.Duration, f func()) hal.Stopper {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	t.seq++
	e := &timerEntry{t: t, at: t.now + d, seq: t.seq, f: f}
	t.pending = append(t.pending, e)
	return e
}

// Stop implements [hal.Stopper].
func (e *timerEntry) Stop() bool {
	e.t.mutex.Lock()
	defer e.t.mutex.Unlock()
	for i, p := range e.t.pending {
		if p == e {
			e.t.pending = append(e.t.pending[:i], e.t.pending[i+1:]...)
			return true
		}
	}
	return false
}

// Pending returns the number of scheduled callbacks.
func (t *Timer) Pending() int {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return len(t.pending)
}

// Advance moves the clock forward by d and runs every callback that came
// due, in deadline order.
func (t *Timer) Advance(d time.Duration) {
	t.mutex.Lock()
	t.now += d
	now := t.now
	t.mutex.Unlock()

	for {
		t.mutex.Lock()
		sort.Slice(t.pending, func(i, j int) bool {
			if t.pending[i].at == t.pending[j].at {
				return t.pending[i].seq < t.pending[j].seq
			}
			return t.pending[i].at < t.pending[j].at
		})
		if len(t.pending) == 0 || t.pending[0].at > now {
			t.mutex.Unlock()
			return
		}
		e := t.pending[0]
		t.pending = t.pending[1:]
		t.mutex.Unlock()
		e.f()
	}
}

// Display records every event it is shown.
type Display struct {
	mutex  sync.Mutex
	events []hal.DisplayEvent
}

// NewDisplay creates a recording display.
func NewDisplay() *Display {
	return &Display{}
}

// Show implements [hal.Display].
func (d *Display) Show(ev hal.DisplayEvent) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.events = append(d.events, ev)
}

// Events returns the recorded events.
func (d *Display) Events() []hal.DisplayEvent {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return slices.Clone(d.events)
}

// Last returns the most recent event.
func (d *Display) Last() (hal.DisplayEvent, bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if len(d.events) == 0 {
		return hal.DisplayEvent{}, false
	}
	return d.events[len(d.events)-1], true
}

var (
	_ hal.UART      = (*UART)(nil)
	_ hal.Transport = (*Transport)(nil)
	_ hal.Timer     = (*Timer)(nil)
	_ hal.Display   = (*Display)(nil)
)
