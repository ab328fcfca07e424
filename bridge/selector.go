package bridge

import (
	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/hal"
	"github.com/ardnew/usbuart/pkg"
)

// PendingSwitch returns the channel a registered switch will select, or
// false if no switch is pending.
func (b *Bridge) PendingSwitch() (cdc.Channel, bool) {
	v := b.pending.Load()
	if v == noSwitch {
		return 0, false
	}
	return cdc.Channel(v), true
}

// requestSwitch registers a switch to ch. A later request replaces an
// earlier one that has not been applied, along with its drain deadline. If the IN path is parked the
// switch is attempted immediately.
func (b *Bridge) requestSwitch(ch cdc.Channel) {
	if ch == b.Active() && b.pending.Load() == noSwitch {
		pkg.LogDebug(pkg.ComponentSelector, "channel already active", "channel", ch)
		return
	}

	b.pending.Store(int32(ch))
	pkg.LogDebug(pkg.ComponentSelector, "switch requested",
		"from", b.Active(), "to", ch, "policy", b.cfg.SwitchPolicy)

	if b.cfg.SwitchPolicy == SwitchDrain {
		// Each request restarts the drain window.
		gen := b.switchGen.Inc()
		b.drainExpired.Store(false)
		b.timer.AfterFunc(b.cfg.DrainTimeout, func() {
			if b.switchGen.Load() != gen || b.pending.Load() == noSwitch {
				return
			}
			pkg.LogDebug(pkg.ComponentSelector, "drain timeout, forcing switch")
			b.drainExpired.Store(true)
			if b.dataPending.CompareAndSwap(true, false) {
				b.service()
			}
		})
	}

	if b.dataPending.CompareAndSwap(true, false) {
		b.service()
	}
}

// switchReady reports whether a pending switch may be applied now. The
// caller holds the IN token, so no IN transfer is in flight.
func (b *Bridge) switchReady() (cdc.Channel, bool) {
	v := b.pending.Load()
	if v == noSwitch {
		return 0, false
	}
	if b.cfg.SwitchPolicy == SwitchDrain && !b.drainExpired.Load() {
		p := &b.ports[b.Active()]
		if !p.rx.Empty() || !p.tx.Empty() {
			return 0, false
		}
	}
	return cdc.Channel(v), true
}

// switchTo applies a switch at a quiescent point. The old channel's rings
// are flushed, its break and control lines are released, and the new
// channel is flushed, configured with the current line coding and given the
// host's DTR/RTS. The status counters restart from zero.
func (b *Bridge) switchTo(target cdc.Channel) {
	if !b.switching.CompareAndSwap(false, true) {
		return
	}
	defer b.switching.Store(false)

	if !b.pending.CompareAndSwap(int32(target), noSwitch) {
		return
	}
	b.switchGen.Inc()
	b.drainExpired.Store(false)

	old := b.Active()
	if target == old {
		return
	}

	discarded := b.ports[old].rx.Discard() + b.ports[old].tx.Discard()
	b.countErrors(discarded)

	b.breakGen.Inc()
	if b.breakOn.Swap(false) {
		if err := b.uart.SetBreak(old, false); err != nil {
			pkg.LogWarn(pkg.ComponentSelector, "release break failed", "channel", old, "error", err)
		}
	}
	if err := b.uart.SetControlLines(old, false, false); err != nil {
		pkg.LogWarn(pkg.ComponentSelector, "release control lines failed", "channel", old, "error", err)
	}

	b.ports[target].rx.Discard()
	b.ports[target].tx.Discard()
	b.active.Store(uint32(target))

	lc := b.LineCoding()
	if err := b.uart.Configure(target, lc); err != nil {
		pkg.LogError(pkg.ComponentSelector, "configure new channel failed",
			"channel", target, "lineCoding", lc, "error", err)
	}
	dtr, rts := b.ControlLines()
	if err := b.uart.SetControlLines(target, dtr, rts); err != nil {
		pkg.LogWarn(pkg.ComponentSelector, "apply control lines failed", "channel", target, "error", err)
	}

	pkg.LogInfo(pkg.ComponentSelector, "channel switched",
		"from", old,
		"to", target,
		"discarded", discarded,
		"errors", b.stats.uartErrors.Load())
	b.resetStats("switch")
	b.show(hal.ReasonSwitch, uint32(discarded))
}

// show hands a snapshot to the display, if one is attached.
func (b *Bridge) show(reason hal.DisplayReason, discarded uint32) {
	if b.display == nil {
		return
	}
	b.display.Show(hal.DisplayEvent{
		Reason:    reason,
		Status:    b.Snapshot(),
		Discarded: discarded,
	})
}
