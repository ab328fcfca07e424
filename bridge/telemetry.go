package bridge

import (
	"go.uber.org/atomic"

	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/pkg"
)

// counters are the session's status counters. Each is a single word
// updated atomically, so a snapshot never observes a torn value.
type counters struct {
	fromHost   atomic.Uint32
	toHost     atomic.Uint32
	uartErrors atomic.Uint32
}

func (c *counters) reset() {
	c.fromHost.Store(0)
	c.toHost.Store(0)
	c.uartErrors.Store(0)
}

// Snapshot returns the status counters, the active channel and the line
// coding. Increments that race with the snapshot are either reflected or
// not; no field is ever out of range.
func (b *Bridge) Snapshot() cdc.Status {
	return cdc.Status{
		BytesFromHost: b.stats.fromHost.Load(),
		BytesToHost:   b.stats.toHost.Load(),
		UARTErrors:    b.stats.uartErrors.Load(),
		Channel:       b.Active(),
		LineCoding:    b.LineCoding(),
	}
}

// resetStats restarts the status counters, logging the values they held.
func (b *Bridge) resetStats(reason string) {
	pkg.LogDebug(pkg.ComponentTelemetry, "counters reset",
		"reason", reason,
		"fromHost", b.stats.fromHost.Load(),
		"toHost", b.stats.toHost.Load(),
		"errors", b.stats.uartErrors.Load())
	b.stats.reset()
}

func (b *Bridge) countErrors(n int) {
	if n > 0 {
		b.stats.uartErrors.Add(uint32(n))
	}
}
