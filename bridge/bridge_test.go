package bridge

import (
	"errors"
	"testing"
	"time"

	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/hal/sim"
	"github.com/ardnew/usbuart/pkg"
)

// fixture is a bridge wired to simulated collaborators.
type fixture struct {
	b       *Bridge
	uart    *sim.UART
	usb     *sim.Transport
	timer   *sim.Timer
	display *sim.Display
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	f := &fixture{
		uart:    sim.NewUART(),
		usb:     sim.NewTransport(),
		timer:   sim.NewTimer(),
		display: sim.NewDisplay(),
	}
	b, err := New(cfg, f.uart, f.usb, f.timer, f.display)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	f.b = b
	return f
}

// request runs the SETUP stage built by build.
func (f *fixture) request(build func(*cdc.SetupPacket)) ([]byte, error) {
	var s cdc.SetupPacket
	build(&s)
	return f.b.ClassRequest(&s)
}

func (f *fixture) lineCoding(t *testing.T) cdc.LineCoding {
	t.Helper()
	data, err := f.request(func(s *cdc.SetupPacket) { cdc.GetLineCodingSetup(s, 0) })
	if err != nil {
		t.Fatalf("GET_LINE_CODING error = %v", err)
	}
	var lc cdc.LineCoding
	if err := cdc.ParseLineCoding(data, &lc); err != nil {
		t.Fatalf("ParseLineCoding() error = %v", err)
	}
	return lc
}

func (f *fixture) setLineCoding(lc cdc.LineCoding) error {
	if _, err := f.request(func(s *cdc.SetupPacket) { cdc.SetLineCodingSetup(s, 0) }); err != nil {
		return err
	}
	var buf [cdc.LineCodingSize]byte
	lc.MarshalTo(buf[:])
	return f.b.ControlDataReceived(buf[:])
}

func (f *fixture) selectUART(t *testing.T, ch cdc.Channel) {
	t.Helper()
	if _, err := f.request(func(s *cdc.SetupPacket) { cdc.SelectUARTSetup(s, 0, ch) }); err != nil {
		t.Fatalf("SELECT_UART(%s) error = %v", ch, err)
	}
}

func (f *fixture) drainIn(t *testing.T) []byte {
	t.Helper()
	data, err := f.usb.DrainIn(f.b, DefaultInEndpoint)
	if err != nil {
		t.Fatalf("DrainIn() error = %v", err)
	}
	return data
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"default", func(*Config) {}, nil},
		{"zero packet", func(c *Config) { c.PacketSize = 0 }, pkg.ErrInvalidParameter},
		{"IN endpoint without direction bit", func(c *Config) { c.InEndpoint = 0x01 }, pkg.ErrInvalidEndpoint},
		{"OUT endpoint zero", func(c *Config) { c.OutEndpoint = 0x00 }, pkg.ErrInvalidEndpoint},
		{"drain without timeout", func(c *Config) { c.SwitchPolicy, c.DrainTimeout = SwitchDrain, 0 }, pkg.ErrInvalidParameter},
		{"channel C", func(c *Config) { c.InitialChannel = 2 }, pkg.ErrInvalidChannel},
		{"bad coding", func(c *Config) { c.LineCoding.DataBits = 9 }, pkg.ErrInvalidLineCoding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, sim.NewUART(), sim.NewTransport(), sim.NewTimer(), nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := New(DefaultConfig(), nil, sim.NewTransport(), sim.NewTimer(), nil); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("New(nil uart) error = %v, want %v", err, pkg.ErrInvalidParameter)
	}
}

func TestParseSwitchPolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    SwitchPolicy
		wantErr bool
	}{
		{"", SwitchFlush, false},
		{"flush", SwitchFlush, false},
		{"Drain", SwitchDrain, false},
		{"wait", SwitchFlush, true},
	}
	for _, tt := range tests {
		got, err := ParseSwitchPolicy(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseSwitchPolicy(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestInitDefaults(t *testing.T) {
	f := newFixture(t, nil)

	if got := f.lineCoding(t); got != cdc.DefaultLineCoding {
		t.Errorf("GET_LINE_CODING = %v, want %v", got, cdc.DefaultLineCoding)
	}
	lc, n := f.uart.Coding(cdc.ChannelA)
	if lc != cdc.DefaultLineCoding || n != 1 {
		t.Errorf("UART A coding = %v (%d configures), want %v (1)", lc, n, cdc.DefaultLineCoding)
	}
	if !f.usb.Armed(DefaultOutEndpoint) {
		t.Error("OUT endpoint not armed after Init")
	}
	if got := f.b.Active(); got != cdc.ChannelA {
		t.Errorf("Active() = %v, want %v", got, cdc.ChannelA)
	}
	want := cdc.Status{Channel: cdc.ChannelA, LineCoding: cdc.DefaultLineCoding}
	if got := f.b.Snapshot(); got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
	if err := f.b.Init(); !errors.Is(err, pkg.ErrAlreadyRunning) {
		t.Errorf("Init() twice error = %v, want %v", err, pkg.ErrAlreadyRunning)
	}
}

func TestDeinit(t *testing.T) {
	f := newFixture(t, nil)
	f.b.UartReceive(cdc.ChannelA, []byte("abc"))
	f.drainIn(t)
	if _, err := f.request(func(s *cdc.SetupPacket) { cdc.SetControlLineStateSetup(s, 0, true, true) }); err != nil {
		t.Fatalf("SET_CONTROL_LINE_STATE error = %v", err)
	}

	if err := f.b.Deinit(); err != nil {
		t.Fatalf("Deinit() error = %v", err)
	}
	if f.b.Configured() {
		t.Error("Configured() = true after Deinit")
	}
	if got := f.uart.Lines(cdc.ChannelA); got != (sim.Lines{}) {
		t.Errorf("lines after Deinit = %+v, want released", got)
	}
	if err := f.b.Deinit(); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("Deinit() twice error = %v, want %v", err, pkg.ErrNotConfigured)
	}
	if _, err := f.request(func(s *cdc.SetupPacket) { cdc.GetStatusSetup(s, 0) }); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("ClassRequest() after Deinit error = %v, want %v", err, pkg.ErrNotConfigured)
	}
	if err := f.b.BulkInComplete(DefaultInEndpoint); !errors.Is(err, pkg.ErrNotConfigured) {
		t.Errorf("BulkInComplete() after Deinit error = %v, want %v", err, pkg.ErrNotConfigured)
	}

	if err := f.b.Init(); err != nil {
		t.Fatalf("Init() after Deinit error = %v", err)
	}
	if got := f.b.Snapshot(); got.BytesToHost != 0 || got.BytesFromHost != 0 || got.UARTErrors != 0 {
		t.Errorf("Snapshot() after re-Init = %+v, want zero counters", got)
	}
}

func TestWrongEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.b.BulkInComplete(0x82); !errors.Is(err, pkg.ErrInvalidEndpoint) {
		t.Errorf("BulkInComplete(0x82) error = %v, want %v", err, pkg.ErrInvalidEndpoint)
	}
	if err := f.b.BulkOutComplete(0x02, []byte{1}); !errors.Is(err, pkg.ErrInvalidEndpoint) {
		t.Errorf("BulkOutComplete(0x02) error = %v, want %v", err, pkg.ErrInvalidEndpoint)
	}
}

func TestUartErrorCounting(t *testing.T) {
	f := newFixture(t, nil)
	f.b.UartError(cdc.ChannelA, 0)
	f.b.UartError(cdc.ChannelA, 2)
	f.b.UartError(cdc.ChannelB, 1)
	if got := f.b.Snapshot().UARTErrors; got != 2 {
		t.Errorf("UARTErrors = %d, want 2", got)
	}
}

func TestBreakToggle(t *testing.T) {
	tests := []struct {
		name       string
		enabled    bool
		ch         cdc.Channel
		duration   time.Duration
		wantActive cdc.Channel
	}{
		{"disabled", false, cdc.ChannelA, time.Second, cdc.ChannelA},
		{"too short", true, cdc.ChannelA, 50 * time.Millisecond, cdc.ChannelA},
		{"inactive channel", true, cdc.ChannelB, time.Second, cdc.ChannelA},
		{"toggles", true, cdc.ChannelA, 100 * time.Millisecond, cdc.ChannelB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(c *Config) { c.BreakToggle = tt.enabled })
			f.b.UartBreak(tt.ch, tt.duration)
			if got := f.b.Active(); got != tt.wantActive {
				t.Errorf("Active() = %v, want %v", got, tt.wantActive)
			}
		})
	}
}

func TestBreakToggleSaturates(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.BreakToggle = true })

	// Hold the IN path so the switch stays pending.
	f.b.UartReceive(cdc.ChannelA, []byte("x"))
	f.b.UartBreak(cdc.ChannelA, time.Second)
	f.b.UartBreak(cdc.ChannelA, time.Second)

	target, ok := f.b.PendingSwitch()
	if !ok || target != cdc.ChannelB {
		t.Fatalf("PendingSwitch() = %v, %v, want %v, true", target, ok, cdc.ChannelB)
	}
	f.drainIn(t)
	if got := f.b.Active(); got != cdc.ChannelB {
		t.Errorf("Active() = %v, want %v", got, cdc.ChannelB)
	}
	if _, ok := f.b.PendingSwitch(); ok {
		t.Error("PendingSwitch() still set after switch")
	}
}
