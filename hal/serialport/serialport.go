package serialport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/atomic"

	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/hal"
	"github.com/ardnew/usbuart/pkg"
)

// Read and break timing.
const (
	readTimeout = 100 * time.Millisecond // Read poll interval for cancellation
	breakSlice  = 50 * time.Millisecond  // Break is held in slices of this length
	bufferSize  = 256
)

// portHandle is the subset of [serial.Port] the backend uses.
type portHandle interface {
	SetMode(mode *serial.Mode) error
	SetReadTimeout(t time.Duration) error
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
	Break(d time.Duration) error
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// openPort is replaced in tests.
var openPort = func(name string, mode *serial.Mode) (portHandle, error) {
	return serial.Open(name, mode)
}

// Mode converts a line coding to a serial port mode.
func Mode(lc cdc.LineCoding) *serial.Mode {
	m := &serial.Mode{
		BaudRate: int(lc.DTERate),
		DataBits: int(lc.DataBits),
	}
	switch lc.CharFormat {
	case cdc.StopBits1_5:
		m.StopBits = serial.OnePointFiveStopBits
	case cdc.StopBits2:
		m.StopBits = serial.TwoStopBits
	default:
		m.StopBits = serial.OneStopBit
	}
	switch lc.ParityType {
	case cdc.ParityOdd:
		m.Parity = serial.OddParity
	case cdc.ParityEven:
		m.Parity = serial.EvenParity
	case cdc.ParityMark:
		m.Parity = serial.MarkParity
	case cdc.ParitySpace:
		m.Parity = serial.SpaceParity
	default:
		m.Parity = serial.NoParity
	}
	return m
}

type channel struct {
	id   cdc.Channel
	name string
	port portHandle

	kick    chan struct{}
	brk     chan struct{}
	breakOn atomic.Bool

	rxBytes atomic.Uint64
	txBytes atomic.Uint64
}

// UART implements [hal.UART] with one host serial port per channel. A
// channel without a port behaves like an unconnected UART: it accepts
// configuration and never receives or transmits.
//
// UART break and line error conditions are not reported; the serial
// driver interface does not expose them.
type UART struct {
	ch      [cdc.NumChannels]*channel
	raiser  hal.Raiser
	handler hal.UARTHandler

	running atomic.Bool
	wg      sync.WaitGroup
}

// Open opens the serial port named for each channel with line coding lc.
// An empty name leaves that channel unconnected.
func Open(names [cdc.NumChannels]string, lc cdc.LineCoding, raiser hal.Raiser) (*UART, error) {
	u := &UART{raiser: raiser}
	for i, name := range names {
		if name == "" {
			continue
		}
		id := cdc.Channel(i)
		port, err := openPort(name, Mode(lc))
		if err != nil {
			u.Close()
			return nil, fmt.Errorf("open channel %s (%s): %w", id, name, err)
		}
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			u.Close()
			return nil, fmt.Errorf("channel %s read timeout: %w", id, err)
		}
		u.ch[i] = &channel{
			id:   id,
			name: name,
			port: port,
			kick: make(chan struct{}, 1),
			brk:  make(chan struct{}, 1),
		}
		pkg.LogInfo(pkg.ComponentUART, "serial port opened", "channel", id, "port", name, "lineCoding", lc)
	}
	return u, nil
}

// Attach sets the handler that receives UART events. It must be called
// before Run.
func (u *UART) Attach(h hal.UARTHandler) {
	u.handler = h
}

// Name returns the port name of ch, or "" if ch is unconnected.
func (u *UART) Name(ch cdc.Channel) string {
	if c := u.channel(ch); c != nil {
		return c.name
	}
	return ""
}

// Stats returns the bytes received and transmitted on ch.
func (u *UART) Stats(ch cdc.Channel) (rx, tx uint64) {
	if c := u.channel(ch); c != nil {
		return c.rxBytes.Load(), c.txBytes.Load()
	}
	return 0, 0
}

func (u *UART) channel(ch cdc.Channel) *channel {
	if !ch.Valid() {
		return nil
	}
	return u.ch[ch]
}

// Configure implements [hal.UART].
func (u *UART) Configure(ch cdc.Channel, lc cdc.LineCoding) error {
	if !ch.Valid() {
		return pkg.ErrInvalidChannel
	}
	c := u.ch[ch]
	if c == nil {
		return nil
	}
	if err := c.port.SetMode(Mode(lc)); err != nil {
		return fmt.Errorf("set mode %s: %w", lc, err)
	}
	pkg.LogDebug(pkg.ComponentUART, "mode set", "channel", ch, "lineCoding", lc)
	return nil
}

// SetControlLines implements [hal.UART].
func (u *UART) SetControlLines(ch cdc.Channel, dtr, rts bool) error {
	if !ch.Valid() {
		return pkg.ErrInvalidChannel
	}
	c := u.ch[ch]
	if c == nil {
		return nil
	}
	if err := c.port.SetDTR(dtr); err != nil {
		return fmt.Errorf("set DTR: %w", err)
	}
	if err := c.port.SetRTS(rts); err != nil {
		return fmt.Errorf("set RTS: %w", err)
	}
	return nil
}

// SetBreak implements [hal.UART]. The break is held by a background
// goroutine until released.
func (u *UART) SetBreak(ch cdc.Channel, on bool) error {
	if !ch.Valid() {
		return pkg.ErrInvalidChannel
	}
	c := u.ch[ch]
	if c == nil {
		return nil
	}
	c.breakOn.Store(on)
	if on {
		select {
		case c.brk <- struct{}{}:
		default:
		}
	}
	return nil
}

// KickTx implements [hal.UART].
func (u *UART) KickTx(ch cdc.Channel) {
	c := u.channel(ch)
	if c == nil {
		return
	}
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Run services every connected channel until ctx is cancelled or a port
// fails.
func (u *UART) Run(ctx context.Context) error {
	if u.handler == nil {
		return pkg.ErrNotConfigured
	}
	if !u.running.CompareAndSwap(false, true) {
		return pkg.ErrAlreadyRunning
	}
	defer u.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 3*cdc.NumChannels)
	for _, c := range u.ch {
		if c == nil {
			continue
		}
		for _, loop := range []func(context.Context, *channel) error{u.readLoop, u.writeLoop, u.breakLoop} {
			u.wg.Add(1)
			go func() {
				defer u.wg.Done()
				if err := loop(ctx, c); err != nil {
					errCh <- err
					cancel()
				}
			}()
		}
	}
	u.wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// call runs f in handler context and waits for it.
func (u *UART) call(ctx context.Context, f func()) bool {
	done := make(chan struct{})
	if !u.raiser.Raise(func() {
		f()
		close(done)
	}) {
		return false
	}
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

func (u *UART) readLoop(ctx context.Context, c *channel) error {
	buf := make([]byte, bufferSize)
	for ctx.Err() == nil {
		n, err := c.port.Read(buf)
		if err != nil {
			var perr *serial.PortError
			if errors.As(err, &perr) && perr.Code() == serial.PortClosed {
				return nil
			}
			return fmt.Errorf("read channel %s: %w", c.id, err)
		}
		if n == 0 {
			continue
		}
		c.rxBytes.Add(uint64(n))
		if !u.call(ctx, func() { u.handler.UartReceive(c.id, buf[:n]) }) {
			return nil
		}
	}
	return nil
}

func (u *UART) writeLoop(ctx context.Context, c *channel) error {
	buf := make([]byte, bufferSize)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.kick:
		}
		for {
			var n int
			if !u.call(ctx, func() { n = u.handler.UartTxReady(c.id, buf) }) {
				return nil
			}
			if n == 0 {
				break
			}
			if _, err := c.port.Write(buf[:n]); err != nil {
				return fmt.Errorf("write channel %s: %w", c.id, err)
			}
			c.txBytes.Add(uint64(n))
		}
	}
}

func (u *UART) breakLoop(ctx context.Context, c *channel) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.brk:
		}
		for c.breakOn.Load() && ctx.Err() == nil {
			if err := c.port.Break(breakSlice); err != nil {
				c.breakOn.Store(false)
				pkg.LogWarn(pkg.ComponentUART, "break failed", "channel", c.id, "error", err)
			}
		}
	}
}

// Close closes every open port.
func (u *UART) Close() error {
	var errs []error
	for i, c := range u.ch {
		if c == nil {
			continue
		}
		if err := c.port.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel %s: %w", c.id, err))
		}
		u.ch[i] = nil
	}
	return errors.Join(errs...)
}

var _ hal.UART = (*UART)(nil)
