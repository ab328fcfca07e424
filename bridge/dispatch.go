package bridge

import (
	"fmt"
	"time"

	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/hal"
	"github.com/ardnew/usbuart/pkg"
)

// ClassRequest handles the SETUP stage of a class or vendor control
// request. For device-to-host requests it returns the data stage payload,
// truncated to wLength. SET_LINE_CODING returns no payload and awaits
// [Bridge.ControlDataReceived]. The payload aliases a buffer that the next
// request overwrites.
//
// A non-nil error means the stack must stall the transfer. Such errors wrap
// one of the request sentinels in pkg (see [pkg.IsRequestError]); none of
// them affects the device state.
func (b *Bridge) ClassRequest(setup *cdc.SetupPacket) ([]byte, error) {
	if !b.configured.Load() {
		return nil, pkg.ErrNotConfigured
	}
	b.pendingCmd = cdc.RequestNone

	if !setup.IsClass() && !setup.IsVendor() {
		return nil, fmt.Errorf("%w: %s", pkg.ErrInvalidRequest, setup)
	}

	pkg.LogDebug(pkg.ComponentDispatch, "class request",
		"request", cdc.RequestName(setup.Request),
		"value", setup.Value,
		"length", setup.Length)

	if !requestTypeMatches(setup) {
		return nil, fmt.Errorf("%w: %s (0x%02X) as %s", pkg.ErrUnsupportedRequest,
			cdc.RequestName(setup.Request), setup.Request, setup)
	}

	switch setup.Request {
	case cdc.RequestSetLineCoding:
		if setup.IsDeviceToHost() || setup.Length < cdc.LineCodingSize {
			return nil, fmt.Errorf("%w: %s", pkg.ErrInvalidRequest, setup)
		}
		b.pendingCmd = cdc.RequestSetLineCoding
		return nil, nil

	case cdc.RequestGetLineCoding:
		if !setup.IsDeviceToHost() {
			return nil, fmt.Errorf("%w: %s", pkg.ErrInvalidRequest, setup)
		}
		lc := b.LineCoding()
		n := lc.MarshalTo(b.ctrlBuf[:])
		return truncate(b.ctrlBuf[:n], setup.Length), nil

	case cdc.RequestSetControlLineState:
		return nil, b.setControlLines(setup.Value)

	case cdc.RequestSendBreak:
		return nil, b.sendBreak(setup.Value)

	case cdc.RequestShowStatus:
		b.show(hal.ReasonRequest, 0)
		return nil, nil

	case cdc.RequestSelectUART:
		ch := cdc.Channel(setup.Value)
		if setup.Value > 0xFF || !ch.Valid() {
			return nil, fmt.Errorf("%w: %d", pkg.ErrInvalidChannel, setup.Value)
		}
		b.requestSwitch(ch)
		return nil, nil

	case cdc.RequestGetStatus:
		if !setup.IsDeviceToHost() {
			return nil, fmt.Errorf("%w: %s", pkg.ErrInvalidRequest, setup)
		}
		st := b.Snapshot()
		n := st.MarshalTo(b.ctrlBuf[:])
		return truncate(b.ctrlBuf[:n], setup.Length), nil
	}

	return nil, fmt.Errorf("%w: %s (0x%02X)", pkg.ErrUnsupportedRequest,
		cdc.RequestName(setup.Request), setup.Request)
}

// requestTypeMatches reports whether the request code is defined for the
// packet's request type: CDC codes are class requests, the bridge's own
// codes are vendor requests.
func requestTypeMatches(setup *cdc.SetupPacket) bool {
	switch setup.Request {
	case cdc.RequestSetLineCoding, cdc.RequestGetLineCoding,
		cdc.RequestSetControlLineState, cdc.RequestSendBreak:
		return setup.IsClass()
	case cdc.RequestShowStatus, cdc.RequestSelectUART, cdc.RequestGetStatus:
		return setup.IsVendor()
	}
	return true
}

// ControlDataReceived handles the OUT data stage of the request registered
// by the preceding ClassRequest. An invalid line coding is rejected and the
// previous coding kept.
func (b *Bridge) ControlDataReceived(data []byte) error {
	if !b.configured.Load() {
		return pkg.ErrNotConfigured
	}
	cmd := b.pendingCmd
	b.pendingCmd = cdc.RequestNone
	if cmd != cdc.RequestSetLineCoding {
		return pkg.ErrNoPendingCommand
	}

	var lc cdc.LineCoding
	if err := cdc.ParseLineCoding(data, &lc); err != nil {
		return fmt.Errorf("%w: %w", pkg.ErrInvalidRequest, err)
	}
	if err := lc.Validate(); err != nil {
		pkg.LogDebug(pkg.ComponentDispatch, "line coding rejected", "error", err)
		return err
	}

	ch := b.Active()
	if err := b.uart.Configure(ch, lc); err != nil {
		return fmt.Errorf("%w: configure uart %s: %w", pkg.ErrStall, ch, err)
	}
	b.coding.Store(&lc)
	pkg.LogInfo(pkg.ComponentDispatch, "line coding changed", "channel", ch, "lineCoding", lc)
	return nil
}

func (b *Bridge) setControlLines(value uint16) error {
	b.lines.Store(uint32(value & (cdc.ControlLineDTR | cdc.ControlLineRTS)))
	dtr, rts := b.ControlLines()
	ch := b.Active()
	if err := b.uart.SetControlLines(ch, dtr, rts); err != nil {
		return fmt.Errorf("%w: control lines on %s: %w", pkg.ErrStall, ch, err)
	}
	pkg.LogDebug(pkg.ComponentDispatch, "control lines", "channel", ch, "dtr", dtr, "rts", rts)
	return nil
}

// sendBreak asserts or releases a break on the active channel. A timed
// break is released by the timer unless a later SEND_BREAK superseded it.
func (b *Bridge) sendBreak(millis uint16) error {
	if b.breakStop != nil {
		b.breakStop.Stop()
		b.breakStop = nil
	}
	gen := b.breakGen.Inc()
	ch := b.Active()
	on := millis != cdc.BreakOff

	if err := b.uart.SetBreak(ch, on); err != nil {
		return fmt.Errorf("%w: break on %s: %w", pkg.ErrStall, ch, err)
	}
	b.breakOn.Store(on)
	pkg.LogDebug(pkg.ComponentDispatch, "break", "channel", ch, "millis", millis)

	if on && millis != cdc.BreakIndefinite {
		b.breakStop = b.timer.AfterFunc(time.Duration(millis)*time.Millisecond, func() {
			if b.breakGen.Load() != gen || !b.breakOn.CompareAndSwap(true, false) {
				return
			}
			if err := b.uart.SetBreak(ch, false); err != nil {
				pkg.LogWarn(pkg.ComponentDispatch, "release break failed", "channel", ch, "error", err)
			}
		})
	}
	return nil
}

func truncate(p []byte, length uint16) []byte {
	if int(length) < len(p) {
		return p[:length]
	}
	return p
}
