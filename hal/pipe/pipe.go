package pipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/ardnew/usbuart/hal"
	"github.com/ardnew/usbuart/pkg"
)

// DefaultPacketSize is the OUT packet size used when none is configured.
const DefaultPacketSize = 64

// pollInterval bounds how long a deadline-capable reader blocks before the
// read loop checks for cancellation.
const pollInterval = 100 * time.Millisecond

type inRequest struct {
	ep   uint8
	data []byte
}

// Transport implements [hal.Transport] over a byte stream pair. IN packets
// are written to w in submission order; OUT packets are read from r, at
// most one packet per PrepareOut, so an unarmed endpoint applies
// backpressure to the writer on the other end.
type Transport struct {
	r      io.Reader
	w      io.Writer
	raiser hal.Raiser
	size   int

	handler hal.USBHandler
	inReq   chan inRequest
	armCh   chan uint8
	running atomic.Bool

	inBytes  atomic.Uint64
	outBytes atomic.Uint64

	mutex  sync.Mutex
	closer []io.Closer
}

// New creates a transport that reads OUT packets of up to packetSize bytes
// from r and writes IN packets to w. Completions are raised through raiser.
func New(r io.Reader, w io.Writer, raiser hal.Raiser, packetSize int) *Transport {
	if packetSize <= 0 {
		packetSize = DefaultPacketSize
	}
	return &Transport{
		r:      r,
		w:      w,
		raiser: raiser,
		size:   packetSize,
		inReq:  make(chan inRequest, 1),
		armCh:  make(chan uint8, 1),
	}
}

// Attach sets the handler that receives completions. It must be called
// before Run.
func (t *Transport) Attach(h hal.USBHandler) {
	t.handler = h
}

// SubmitIn implements [hal.Transport]. It returns [pkg.ErrTransferBusy] if an
// IN transfer is already queued.
func (t *Transport) SubmitIn(ep uint8, data []byte) error {
	select {
	case t.inReq <- inRequest{ep: ep, data: data}:
		return nil
	default:
		return fmt.Errorf("%w: endpoint 0x%02X", pkg.ErrTransferBusy, ep)
	}
}

// PrepareOut implements [hal.Transport]. Arming an armed endpoint is a no-op.
func (t *Transport) PrepareOut(ep uint8) error {
	select {
	case t.armCh <- ep:
	default:
	}
	return nil
}

// Stats returns the bytes written as IN packets and read as OUT packets.
func (t *Transport) Stats() (in, out uint64) {
	return t.inBytes.Load(), t.outBytes.Load()
}

// Run moves packets until ctx is cancelled or either stream fails. The
// error of the failing stream is returned; io.EOF from r ends Run cleanly.
func (t *Transport) Run(ctx context.Context) error {
	if t.handler == nil {
		return pkg.ErrNotConfigured
	}
	if !t.running.CompareAndSwap(false, true) {
		return pkg.ErrAlreadyRunning
	}
	defer t.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- t.writeLoop(ctx) }()
	go func() { errCh <- t.readLoop(ctx) }()

	err := <-errCh
	cancel()
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (t *Transport) writeLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-t.inReq:
			if _, err := t.w.Write(req.data); err != nil {
				return fmt.Errorf("write IN packet: %w", err)
			}
			t.inBytes.Add(uint64(len(req.data)))
			ep := req.ep
			if !t.raiser.Raise(func() {
				if err := t.handler.BulkInComplete(ep); err != nil {
					pkg.LogWarn(pkg.ComponentUSB, "IN completion rejected", "endpoint", ep, "error", err)
				}
			}) {
				return context.Canceled
			}
		}
	}
}

func (t *Transport) readLoop(ctx context.Context) error {
	buf := make([]byte, t.size)
	for {
		var ep uint8
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ep = <-t.armCh:
		}

		n, err := t.read(ctx, buf)
		if err != nil {
			return err
		}
		t.outBytes.Add(uint64(n))
		data := buf[:n]
		if !t.raiser.Raise(func() {
			if err := t.handler.BulkOutComplete(ep, data); err != nil {
				pkg.LogWarn(pkg.ComponentUSB, "OUT completion rejected", "endpoint", ep, "error", err)
			}
		}) {
			return context.Canceled
		}
	}
}

type deadlineReader interface {
	SetReadDeadline(t time.Time) error
}

// read returns at least one byte, polling with deadlines when r supports
// them so that cancellation is noticed.
func (t *Transport) read(ctx context.Context, buf []byte) (int, error) {
	dr, canPoll := t.r.(deadlineReader)
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if canPoll {
			dr.SetReadDeadline(time.Now().Add(pollInterval))
		}
		n, err := t.r.Read(buf)
		if n > 0 {
			return n, nil
		}
		if err != nil {
			if canPoll && os.IsTimeout(err) {
				continue
			}
			return 0, err
		}
	}
}

// Close closes any streams the transport opened itself.
func (t *Transport) Close() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	var errs []error
	for i := len(t.closer) - 1; i >= 0; i-- {
		if err := t.closer[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	t.closer = nil
	return errors.Join(errs...)
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

var _ hal.Transport = (*Transport)(nil)
