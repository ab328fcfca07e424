package display

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/atomic"

	"github.com/ardnew/usbuart/hal"
	"github.com/ardnew/usbuart/pkg"
)

// Mode selects a display implementation.
type Mode uint8

// Display modes.
const (
	ModeOff   Mode = iota // No display
	ModeLog               // Structured log records
	ModePanel             // Framed panel written to a terminal
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeLog:
		return "log"
	case ModePanel:
		return "panel"
	default:
		return "off"
	}
}

// ParseMode converts "off", "log" or "panel" to a [Mode].
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off", "none", "":
		return ModeOff, nil
	case "log":
		return ModeLog, nil
	case "panel":
		return ModePanel, nil
	}
	return ModeOff, fmt.Errorf("%w: display mode %q", pkg.ErrInvalidParameter, s)
}

// Log renders events as info-level log records.
type Log struct{}

// Show implements [hal.Display].
func (Log) Show(ev hal.DisplayEvent) {
	st := ev.Status
	pkg.LogInfo(pkg.ComponentDisplay, "status",
		"reason", ev.Reason,
		"channel", st.Channel,
		"lineCoding", st.LineCoding,
		"fromHost", st.BytesFromHost,
		"toHost", st.BytesToHost,
		"errors", st.UARTErrors,
		"discarded", ev.Discarded)
}

// Panel writes a rendered panel for each event to a writer. Show only
// queues the event; Run does the writing, so a slow terminal never stalls
// the bridge. Events that arrive while the queue is full are dropped.
type Panel struct {
	w       io.Writer
	events  chan hal.DisplayEvent
	dropped atomic.Uint32
	render  func(hal.DisplayEvent) string
}

// PanelDepth is the number of events a Panel buffers.
const PanelDepth = 8

// NewPanel creates a panel writing to w.
func NewPanel(w io.Writer) *Panel {
	return &Panel{
		w:      w,
		events: make(chan hal.DisplayEvent, PanelDepth),
		render: Render,
	}
}

// NewLinePanel creates a panel that writes one plain line per event.
func NewLinePanel(w io.Writer) *Panel {
	p := NewPanel(w)
	p.render = Line
	return p
}

// Show implements [hal.Display].
func (p *Panel) Show(ev hal.DisplayEvent) {
	select {
	case p.events <- ev:
	default:
		p.dropped.Inc()
	}
}

// Dropped returns the number of events discarded because the queue was
// full.
func (p *Panel) Dropped() uint32 {
	return p.dropped.Load()
}

// Run writes queued events until ctx is cancelled.
func (p *Panel) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-p.events:
			if _, err := fmt.Fprintln(p.w, p.render(ev)); err != nil {
				return fmt.Errorf("write panel: %w", err)
			}
		}
	}
}

// New returns the display for mode writing to w, or nil for [ModeOff].
// A [*Panel] must be run by the caller.
func New(mode Mode, w io.Writer) hal.Display {
	switch mode {
	case ModeLog:
		return Log{}
	case ModePanel:
		return NewPanel(w)
	default:
		return nil
	}
}

var (
	_ hal.Display = Log{}
	_ hal.Display = (*Panel)(nil)
)
