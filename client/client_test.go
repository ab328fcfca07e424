package client

import (
	"errors"
	"testing"

	"github.com/google/gousb"

	"github.com/ardnew/usbuart/bridge"
	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/hal/sim"
	"github.com/ardnew/usbuart/pkg"
)

// loopback delivers control transfers straight to a bridge, stalling the
// way a device stack does when a handler rejects the request.
type loopback struct {
	b    *bridge.Bridge
	last cdc.SetupPacket
}

func (l *loopback) Control(rType, request uint8, val, idx uint16, data []byte) (int, error) {
	l.last = cdc.SetupPacket{
		RequestType: rType,
		Request:     request,
		Value:       val,
		Index:       idx,
		Length:      uint16(len(data)),
	}
	resp, err := l.b.ClassRequest(&l.last)
	if err != nil {
		return 0, gousb.ErrorPipe
	}
	if rType&cdc.RequestDirectionDeviceToHost != 0 {
		return copy(data, resp), nil
	}
	if len(data) > 0 {
		if err := l.b.ControlDataReceived(data); err != nil {
			return 0, gousb.ErrorPipe
		}
	}
	return len(data), nil
}

type fixture struct {
	c       *Client
	lb      *loopback
	b       *bridge.Bridge
	uart    *sim.UART
	display *sim.Display
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{uart: sim.NewUART(), display: sim.NewDisplay()}
	b, err := bridge.New(bridge.DefaultConfig(), f.uart, sim.NewTransport(), sim.NewTimer(), f.display)
	if err != nil {
		t.Fatalf("bridge.New() error = %v", err)
	}
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	f.b = b
	f.lb = &loopback{b: b}
	f.c = newClient(f.lb, 0)
	return f
}

func TestStatus(t *testing.T) {
	f := newFixture(t)
	if err := f.b.BulkOutComplete(bridge.DefaultOutEndpoint, []byte("hello")); err != nil {
		t.Fatalf("BulkOutComplete() error = %v", err)
	}

	st, err := f.c.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if st.BytesFromHost != 5 {
		t.Errorf("Status().BytesFromHost = %d, want 5", st.BytesFromHost)
	}
	if st.Channel != cdc.ChannelA {
		t.Errorf("Status().Channel = %v, want A", st.Channel)
	}
	if st.LineCoding != cdc.DefaultLineCoding {
		t.Errorf("Status().LineCoding = %v, want %v", st.LineCoding, cdc.DefaultLineCoding)
	}
	if f.lb.last.Request != cdc.RequestGetStatus || f.lb.last.Length != cdc.StatusSize {
		t.Errorf("last setup = %s, want GET_STATUS of %d bytes", f.lb.last.String(), cdc.StatusSize)
	}
}

func TestSelect(t *testing.T) {
	f := newFixture(t)
	if err := f.c.Select(cdc.ChannelB); err != nil {
		t.Fatalf("Select(B) error = %v", err)
	}
	if got := f.b.Active(); got != cdc.ChannelB {
		t.Errorf("Active() = %v, want B", got)
	}

	if err := f.c.Select(cdc.Channel(2)); !errors.Is(err, pkg.ErrInvalidChannel) {
		t.Errorf("Select(2) error = %v, want ErrInvalidChannel", err)
	}
}

func TestShow(t *testing.T) {
	f := newFixture(t)
	if err := f.c.Show(); err != nil {
		t.Fatalf("Show() error = %v", err)
	}
	if got := len(f.display.Events()); got != 1 {
		t.Errorf("len(Events()) = %d, want 1", got)
	}
}

func TestLineCoding(t *testing.T) {
	f := newFixture(t)
	want := cdc.LineCoding{DTERate: 57600, CharFormat: cdc.StopBits1_5, ParityType: cdc.ParityEven, DataBits: 5}
	if err := f.c.SetLineCoding(want); err != nil {
		t.Fatalf("SetLineCoding() error = %v", err)
	}
	got, err := f.c.LineCoding()
	if err != nil {
		t.Fatalf("LineCoding() error = %v", err)
	}
	if got != want {
		t.Errorf("LineCoding() = %v, want %v", got, want)
	}
	if lc, _ := f.uart.Coding(cdc.ChannelA); lc != want {
		t.Errorf("uart coding = %v, want %v", lc, want)
	}

	bad := want
	bad.DataBits = 9
	if err := f.c.SetLineCoding(bad); !errors.Is(err, pkg.ErrInvalidLineCoding) {
		t.Errorf("SetLineCoding(9 bits) error = %v, want ErrInvalidLineCoding", err)
	}
}

func TestSetLines(t *testing.T) {
	f := newFixture(t)
	if err := f.c.SetLines(true, false); err != nil {
		t.Fatalf("SetLines() error = %v", err)
	}
	dtr, rts := f.b.ControlLines()
	if !dtr || rts {
		t.Errorf("ControlLines() = %v, %v, want true, false", dtr, rts)
	}
	if got := f.uart.Lines(cdc.ChannelA); !got.DTR || got.RTS {
		t.Errorf("uart lines = %+v, want DTR only", got)
	}
}

func TestBreak(t *testing.T) {
	f := newFixture(t)
	if err := f.c.Break(cdc.BreakIndefinite); err != nil {
		t.Fatalf("Break(indefinite) error = %v", err)
	}
	if !f.uart.Break(cdc.ChannelA) {
		t.Error("Break(A) = false, want true")
	}
	if err := f.c.Break(cdc.BreakOff); err != nil {
		t.Fatalf("Break(off) error = %v", err)
	}
	if f.uart.Break(cdc.ChannelA) {
		t.Error("Break(A) = true, want false")
	}
}

type stallingController struct{}

func (stallingController) Control(uint8, uint8, uint16, uint16, []byte) (int, error) {
	return 0, gousb.ErrorPipe
}

type shortController struct{}

func (shortController) Control(_, _ uint8, _, _ uint16, data []byte) (int, error) {
	return len(data) / 2, nil
}

func TestErrors(t *testing.T) {
	c := newClient(stallingController{}, 0)
	if err := c.Show(); !errors.Is(err, pkg.ErrStall) {
		t.Errorf("Show() error = %v, want ErrStall", err)
	}

	c = newClient(shortController{}, 0)
	if _, err := c.Status(); !errors.Is(err, pkg.ErrShortResponse) {
		t.Errorf("Status() error = %v, want ErrShortResponse", err)
	}
	if _, err := c.LineCoding(); !errors.Is(err, pkg.ErrShortResponse) {
		t.Errorf("LineCoding() error = %v, want ErrShortResponse", err)
	}
}

func TestCloseWithoutDevice(t *testing.T) {
	c := newClient(stallingController{}, 0)
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}
