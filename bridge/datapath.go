package bridge

import (
	"fmt"
	"time"

	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/hal"
	"github.com/ardnew/usbuart/pkg"
)

// BulkInComplete handles completion of the IN transfer on ep. The
// delivered bytes are counted unless the transfer was submitted before the
// last Init, a pending switch is applied if the channel
// is now quiescent, and the next packet is submitted if the active RX ring
// has data. Otherwise the data-pending flag is armed and the next
// UartReceive submits.
func (b *Bridge) BulkInComplete(ep uint8) error {
	if ep != b.cfg.InEndpoint {
		return fmt.Errorf("%w: IN complete on 0x%02X", pkg.ErrInvalidEndpoint, ep)
	}
	stale := b.staleIn.Swap(false)
	b.inFlight.Store(false)
	if !b.configured.Load() {
		b.inLen = 0
		return pkg.ErrNotConfigured
	}

	if stale {
		pkg.LogDebug(pkg.ComponentUSB, "stale IN transfer completed",
			"bytes", b.inLen)
	} else {
		b.stats.toHost.Add(uint32(b.inLen))
	}
	b.inLen = 0
	b.service()
	return nil
}

// BulkOutComplete appends a packet from the host to the active channel's TX
// ring and re-arms ep. Bytes that do not fit are dropped and counted as
// errors.
func (b *Bridge) BulkOutComplete(ep uint8, data []byte) error {
	if ep != b.cfg.OutEndpoint {
		return fmt.Errorf("%w: OUT complete on 0x%02X", pkg.ErrInvalidEndpoint, ep)
	}
	if !b.configured.Load() {
		return pkg.ErrNotConfigured
	}

	ch := b.Active()
	n := b.ports[ch].tx.Write(data)
	b.stats.fromHost.Add(uint32(n))
	if dropped := len(data) - n; dropped > 0 {
		b.countErrors(dropped)
		pkg.LogWarn(pkg.ComponentRing, "TX ring full, dropped host bytes",
			"channel", ch, "dropped", dropped)
	}
	if n > 0 {
		b.uart.KickTx(ch)
	}

	if err := b.usb.PrepareOut(ep); err != nil {
		return fmt.Errorf("re-arm OUT endpoint: %w", err)
	}
	return nil
}

// UartReceive buffers bytes received on ch. Bytes for the inactive channel
// are not bridged and are dropped uncounted. If the IN path is parked, it
// is woken to submit.
func (b *Bridge) UartReceive(ch cdc.Channel, data []byte) {
	if !b.configured.Load() || len(data) == 0 {
		return
	}
	if ch != b.Active() {
		pkg.LogDebug(pkg.ComponentUART, "dropped bytes on inactive channel",
			"channel", ch, "count", len(data))
		return
	}

	n := b.ports[ch].rx.Write(data)
	if dropped := len(data) - n; dropped > 0 {
		b.countErrors(dropped)
		pkg.LogWarn(pkg.ComponentRing, "RX ring full, dropped UART bytes",
			"channel", ch, "dropped", dropped)
	}
	if n > 0 && b.dataPending.CompareAndSwap(true, false) {
		b.service()
	}
}

// UartError counts a byte the UART discarded on the active channel.
func (b *Bridge) UartError(ch cdc.Channel, kind hal.ErrorKind) {
	if !b.configured.Load() || ch != b.Active() {
		return
	}
	b.countErrors(1)
	pkg.LogDebug(pkg.ComponentUART, "receive error", "channel", ch, "kind", kind)
}

// UartTxReady moves up to len(p) bytes from ch's TX ring into p for
// transmission and returns the count. Only the active channel transmits.
func (b *Bridge) UartTxReady(ch cdc.Channel, p []byte) int {
	if !b.configured.Load() || ch != b.Active() {
		return 0
	}
	tx := &b.ports[ch].tx
	n := tx.Read(p)
	if tx.Empty() && b.pending.Load() != noSwitch && b.dataPending.CompareAndSwap(true, false) {
		b.service()
	}
	return n
}

// UartBreak handles a break detected on ch. With break toggling enabled, a
// break on the active channel lasting at least the configured minimum
// requests a switch to the other channel. A break arriving while a switch
// is already pending is ignored.
func (b *Bridge) UartBreak(ch cdc.Channel, d time.Duration) {
	if !b.configured.Load() || !b.cfg.BreakToggle || ch != b.Active() {
		return
	}
	if d < b.cfg.BreakMinDuration {
		pkg.LogDebug(pkg.ComponentSelector, "break too short to toggle",
			"channel", ch, "duration", d)
		return
	}
	if b.pending.Load() != noSwitch {
		return
	}
	pkg.LogInfo(pkg.ComponentSelector, "break toggles channel",
		"channel", ch, "duration", d)
	b.requestSwitch(ch.Other())
}

// service runs with the IN token held. It applies a switch that is ready,
// then submits the next packet or parks the token.
func (b *Bridge) service() {
	if target, ok := b.switchReady(); ok {
		b.switchTo(target)
	}
	b.submitIn()
}

// submitIn runs with the IN token held.
func (b *Bridge) submitIn() {
	ch := b.Active()
	rx := &b.ports[ch].rx
	for {
		n := rx.Read(b.inBuf)
		if n > 0 {
			b.inLen = n
			b.inFlight.Store(true)
			if err := b.usb.SubmitIn(b.cfg.InEndpoint, b.inBuf[:n]); err != nil {
				b.inFlight.Store(false)
				b.inLen = 0
				b.countErrors(n)
				pkg.LogError(pkg.ComponentUSB, "submit IN failed",
					"channel", ch, "bytes", n, "error", err)
				b.dataPending.Store(true)
			}
			return
		}

		// Park, then look again: a byte pushed between the empty read and
		// the store would otherwise wait for the next RX event.
		b.dataPending.Store(true)
		if rx.Empty() || !b.dataPending.CompareAndSwap(true, false) {
			return
		}
	}
}
