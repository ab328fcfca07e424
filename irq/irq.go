// Package irq serializes handler invocations the way a single-core interrupt
// controller does: every raised handler runs to completion on one goroutine
// before the next begins.
//
// Goroutines that stand in for hardware (serial readers, USB pipe readers,
// timers) call [Controller.Raise] instead of invoking bridge handlers
// directly, so the bridge observes the same non-reentrant execution it would
// on a microcontroller.
package irq

import (
	"context"
	"time"

	"go.uber.org/atomic"

	"github.com/ardnew/usbuart/hal"
	"github.com/ardnew/usbuart/pkg"
)

// DefaultDepth is the pending-handler queue depth used by [New] when depth
// is not positive.
const DefaultDepth = 64

// Controller queues handlers and runs them one at a time.
type Controller struct {
	queue   chan func()
	done    chan struct{}
	running atomic.Bool
	served  atomic.Uint64
}

// New creates a controller whose queue holds depth pending handlers.
func New(depth int) *Controller {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Controller{
		queue: make(chan func(), depth),
		done:  make(chan struct{}),
	}
}

// Raise queues f. It blocks while the queue is full and returns false once
// the controller has stopped. Raise must not be called from a handler.
func (c *Controller) Raise(f func()) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.queue <- f:
		return true
	case <-c.done:
		return false
	}
}

// Call raises f and waits for it to finish. It returns false if the
// controller stopped before f ran.
func (c *Controller) Call(f func()) bool {
	ran := make(chan struct{})
	if !c.Raise(func() {
		f()
		close(ran)
	}) {
		return false
	}
	select {
	case <-ran:
		return true
	case <-c.done:
		return false
	}
}

// Run executes queued handlers until ctx is cancelled. It returns
// [pkg.ErrAlreadyRunning] if called twice.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return pkg.ErrAlreadyRunning
	}
	defer close(c.done)

	pkg.LogDebug(pkg.ComponentBridge, "interrupt controller started")
	for {
		select {
		case <-ctx.Done():
			pkg.LogDebug(pkg.ComponentBridge, "interrupt controller stopped",
				"served", c.served.Load())
			return ctx.Err()
		case f := <-c.queue:
			f()
			c.served.Inc()
		}
	}
}

// Done is closed when Run returns.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Served returns the number of handlers executed.
func (c *Controller) Served() uint64 {
	return c.served.Load()
}

// AfterFunc schedules f to be raised after d. It implements [hal.Timer].
func (c *Controller) AfterFunc(d time.Duration, f func()) hal.Stopper {
	return time.AfterFunc(d, func() { c.Raise(f) })
}

var _ hal.Timer = (*Controller)(nil)
