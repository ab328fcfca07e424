package bridge

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/atomic"

	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/hal"
	"github.com/ardnew/usbuart/pkg"
	"github.com/ardnew/usbuart/ring"
)

// Default bulk endpoint configuration, matching a full-speed ACM data
// interface.
const (
	DefaultPacketSize  = 64
	DefaultInEndpoint  = 0x81
	DefaultOutEndpoint = 0x01
)

// DefaultDrainTimeout bounds how long the drain policy waits before it
// flushes.
const DefaultDrainTimeout = 250 * time.Millisecond

// DefaultBreakMinDuration is the shortest UART break that toggles the
// active channel.
const DefaultBreakMinDuration = 100 * time.Millisecond

// SwitchPolicy selects how a pending channel switch reaches a quiescent
// point.
type SwitchPolicy uint8

// Switch policies.
const (
	// SwitchFlush switches as soon as no IN transfer is in flight. Bytes
	// still buffered for the old channel are discarded and counted as errors.
	SwitchFlush SwitchPolicy = iota

	// SwitchDrain waits for both rings of the old channel to drain, then
	// flushes whatever remains once the drain timeout expires.
	SwitchDrain
)

// String returns the policy name.
func (p SwitchPolicy) String() string {
	if p == SwitchDrain {
		return "drain"
	}
	return "flush"
}

// ParseSwitchPolicy converts "flush" or "drain" to a [SwitchPolicy].
func ParseSwitchPolicy(s string) (SwitchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "flush":
		return SwitchFlush, nil
	case "drain":
		return SwitchDrain, nil
	}
	return SwitchFlush, fmt.Errorf("%w: switch policy %q", pkg.ErrInvalidParameter, s)
}

// Config holds the bridge parameters that the descriptor tables and build
// options would fix on a microcontroller.
type Config struct {
	PacketSize  int   // Bulk IN packet size
	InEndpoint  uint8 // Bulk IN endpoint address
	OutEndpoint uint8 // Bulk OUT endpoint address

	SwitchPolicy SwitchPolicy
	DrainTimeout time.Duration

	// BreakToggle enables switching to the other channel when a break of at
	// least BreakMinDuration is detected on the active UART.
	BreakToggle      bool
	BreakMinDuration time.Duration

	InitialChannel cdc.Channel
	LineCoding     cdc.LineCoding // Line coding applied at Init
}

// DefaultConfig returns the configuration of a stock bridge: 64-byte
// packets on endpoints 0x81/0x01, flush switching, channel A at 115200 8N1.
func DefaultConfig() Config {
	return Config{
		PacketSize:       DefaultPacketSize,
		InEndpoint:       DefaultInEndpoint,
		OutEndpoint:      DefaultOutEndpoint,
		SwitchPolicy:     SwitchFlush,
		DrainTimeout:     DefaultDrainTimeout,
		BreakMinDuration: DefaultBreakMinDuration,
		InitialChannel:   cdc.ChannelA,
		LineCoding:       cdc.DefaultLineCoding,
	}
}

// Validate checks the configuration for values the bridge cannot run with.
func (c *Config) Validate() error {
	if c.PacketSize <= 0 || c.PacketSize > ring.Capacity {
		return fmt.Errorf("%w: packet size %d", pkg.ErrInvalidParameter, c.PacketSize)
	}
	if c.InEndpoint&0x80 == 0 || c.InEndpoint&0x0F == 0 {
		return fmt.Errorf("%w: IN endpoint 0x%02X", pkg.ErrInvalidEndpoint, c.InEndpoint)
	}
	if c.OutEndpoint&0x80 != 0 || c.OutEndpoint&0x0F == 0 {
		return fmt.Errorf("%w: OUT endpoint 0x%02X", pkg.ErrInvalidEndpoint, c.OutEndpoint)
	}
	if c.SwitchPolicy > SwitchDrain {
		return fmt.Errorf("%w: switch policy %d", pkg.ErrInvalidParameter, c.SwitchPolicy)
	}
	if c.SwitchPolicy == SwitchDrain && c.DrainTimeout <= 0 {
		return fmt.Errorf("%w: drain timeout %s", pkg.ErrInvalidParameter, c.DrainTimeout)
	}
	if !c.InitialChannel.Valid() {
		return fmt.Errorf("%w: %d", pkg.ErrInvalidChannel, c.InitialChannel)
	}
	return c.LineCoding.Validate()
}

// noSwitch marks an empty pending-switch slot.
const noSwitch = -1

// port is the pair of rings serving one UART channel.
type port struct {
	rx ring.Buffer // UART → host
	tx ring.Buffer // host → UART
}

// Bridge is the device context of a USB CDC-ACM to dual-UART bridge.
//
// The USB device stack drives it through [Bridge.Init], [Bridge.Deinit],
// [Bridge.ClassRequest], [Bridge.ControlDataReceived],
// [Bridge.BulkInComplete] and [Bridge.BulkOutComplete]. UART hardware drives
// it through the [hal.UARTHandler] methods. Every method is a short handler
// that never blocks; handlers are not reentered concurrently, as on a
// single-core interrupt controller (see package irq).
type Bridge struct {
	cfg Config

	uart    hal.UART
	usb     hal.Transport
	timer   hal.Timer
	display hal.Display

	ports [cdc.NumChannels]port

	configured atomic.Bool
	active     atomic.Uint32 // cdc.Channel
	coding     atomic.Pointer[cdc.LineCoding]
	lines      atomic.Uint32 // DTR/RTS bits as last set by the host

	// IN path. The IN "token" is held either by an in-flight transfer or
	// parked in dataPending; whoever takes it from dataPending may submit.
	// A transfer submitted before Deinit that completes after the next Init
	// is stale: its completion returns the token but is not counted.
	inBuf       []byte
	inLen       int
	dataPending atomic.Bool
	inFlight    atomic.Bool
	staleIn     atomic.Bool

	// Channel selector.
	pending      atomic.Int32 // target channel, or noSwitch
	switching    atomic.Bool
	drainExpired atomic.Bool
	switchGen    atomic.Uint32

	// Break state.
	breakOn   atomic.Bool
	breakGen  atomic.Uint32
	breakStop hal.Stopper

	// Control context.
	pendingCmd uint8
	ctrlBuf    [cdc.StatusSize]byte

	stats counters
}

// New creates a bridge. display may be nil. The bridge is inert until Init.
func New(cfg Config, uart hal.UART, usb hal.Transport, timer hal.Timer, display hal.Display) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if uart == nil || usb == nil || timer == nil {
		return nil, fmt.Errorf("%w: uart, transport and timer are required", pkg.ErrInvalidParameter)
	}
	b := &Bridge{
		cfg:        cfg,
		uart:       uart,
		usb:        usb,
		timer:      timer,
		display:    display,
		inBuf:      make([]byte, cfg.PacketSize),
		pendingCmd: cdc.RequestNone,
	}
	b.pending.Store(noSwitch)
	lc := cfg.LineCoding
	b.coding.Store(&lc)
	b.active.Store(uint32(cfg.InitialChannel))
	return b, nil
}

// Config returns the configuration the bridge was created with.
func (b *Bridge) Config() Config {
	return b.cfg
}

// Init resets the device context to its power-on state: the configured
// initial channel and line coding, empty rings, zero counters, lines
// released. It applies the line coding to the UART and arms the OUT
// endpoint.
func (b *Bridge) Init() error {
	if b.configured.Load() {
		return pkg.ErrAlreadyRunning
	}

	lc := b.cfg.LineCoding
	ch := b.cfg.InitialChannel
	b.coding.Store(&lc)
	b.active.Store(uint32(ch))
	b.lines.Store(0)
	b.pending.Store(noSwitch)
	b.drainExpired.Store(false)
	b.switchGen.Inc()
	b.breakGen.Inc()
	b.breakOn.Store(false)
	b.pendingCmd = cdc.RequestNone
	for i := range b.ports {
		b.ports[i].rx.Discard()
		b.ports[i].tx.Discard()
	}
	b.resetStats("init")
	b.inLen = 0

	if err := b.uart.Configure(ch, lc); err != nil {
		return fmt.Errorf("configure uart %s: %w", ch, err)
	}

	// The token is still held by a transfer left over from the previous
	// session; its completion hands it back.
	idle := !b.inFlight.Load()
	if idle {
		b.dataPending.Store(true)
	} else {
		b.staleIn.Store(true)
	}
	b.configured.Store(true)

	if err := b.usb.PrepareOut(b.cfg.OutEndpoint); err != nil {
		b.configured.Store(false)
		if idle {
			b.dataPending.Store(false)
		}
		return fmt.Errorf("prepare OUT endpoint: %w", err)
	}

	pkg.LogInfo(pkg.ComponentBridge, "bridge initialized",
		"channel", ch,
		"lineCoding", lc,
		"policy", b.cfg.SwitchPolicy)
	return nil
}

// Deinit stops the bridge. The active channel's break and control lines
// are released and any pending switch or command is abandoned.
func (b *Bridge) Deinit() error {
	if !b.configured.Swap(false) {
		return pkg.ErrNotConfigured
	}

	ch := b.Active()
	if b.breakStop != nil {
		b.breakStop.Stop()
		b.breakStop = nil
	}
	b.breakGen.Inc()
	if b.breakOn.Swap(false) {
		b.uart.SetBreak(ch, false)
	}
	b.uart.SetControlLines(ch, false, false)
	b.pending.Store(noSwitch)
	b.switchGen.Inc()
	b.dataPending.Store(false)
	b.pendingCmd = cdc.RequestNone

	pkg.LogInfo(pkg.ComponentBridge, "bridge deinitialized", "channel", ch)
	return nil
}

// Configured reports whether Init has completed and Deinit has not been
// called since.
func (b *Bridge) Configured() bool {
	return b.configured.Load()
}

// Active returns the channel currently bridged to the host.
func (b *Bridge) Active() cdc.Channel {
	return cdc.Channel(b.active.Load())
}

// LineCoding returns the current line coding.
func (b *Bridge) LineCoding() cdc.LineCoding {
	return *b.coding.Load()
}

// ControlLines returns the DTR and RTS state last set by the host.
func (b *Bridge) ControlLines() (dtr, rts bool) {
	v := b.lines.Load()
	return v&cdc.ControlLineDTR != 0, v&cdc.ControlLineRTS != 0
}

var (
	_ hal.UARTHandler = (*Bridge)(nil)
	_ hal.USBHandler  = (*Bridge)(nil)
)
