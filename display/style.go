package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/hal"
)

// Catppuccin Mocha colors used by the panel.
var (
	colorSurface = lipgloss.Color("#45475a")
	colorText    = lipgloss.Color("#cdd6f4")
	colorSubtext = lipgloss.Color("#a6adc8")
	colorMauve   = lipgloss.Color("#cba6f7")
	colorGreen   = lipgloss.Color("#a6e3a1")
	colorPeach   = lipgloss.Color("#fab387")
	colorRed     = lipgloss.Color("#f38ba8")
)

var (
	// TitleStyle renders the panel heading.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorMauve)

	// ChannelStyle renders the active channel letter.
	ChannelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen)

	// LabelStyle renders field names.
	LabelStyle = lipgloss.NewStyle().
			Foreground(colorSubtext).
			Width(10)

	// ValueStyle renders field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(colorText)

	// ErrorValueStyle renders a non-zero error count.
	ErrorValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)

	// NoteStyle renders the switch annotation.
	NoteStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(colorPeach)

	// PanelStyle frames the whole panel.
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface).
			Padding(0, 1)
)

// Render formats a display event as a framed status panel.
func Render(ev hal.DisplayEvent) string {
	st := ev.Status
	title := TitleStyle.Render("usbuart") + "  " + ChannelStyle.Render(ChannelLabel(st.Channel))

	errStyle := ValueStyle
	if st.UARTErrors > 0 {
		errStyle = ErrorValueStyle
	}

	rows := []string{
		title,
		row("coding", ValueStyle.Render(st.LineCoding.String())),
		row("host→", ValueStyle.Render(fmt.Sprintf("%d B", st.BytesFromHost))),
		row("→host", ValueStyle.Render(fmt.Sprintf("%d B", st.BytesToHost))),
		row("errors", errStyle.Render(fmt.Sprintf("%d", st.UARTErrors))),
	}
	if ev.Reason == hal.ReasonSwitch {
		rows = append(rows, NoteStyle.Render(fmt.Sprintf("switched, %d B discarded", ev.Discarded)))
	}
	return PanelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), value)
}

// Line formats a display event as a single plain line.
func Line(ev hal.DisplayEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] UART %s %s  host→ %d  →host %d  errors %d",
		ev.Reason, ev.Status.Channel, ev.Status.LineCoding,
		ev.Status.BytesFromHost, ev.Status.BytesToHost, ev.Status.UARTErrors)
	if ev.Reason == hal.ReasonSwitch {
		fmt.Fprintf(&b, "  discarded %d", ev.Discarded)
	}
	return b.String()
}

// ChannelLabel returns "UART A" or "UART B".
func ChannelLabel(ch cdc.Channel) string {
	return "UART " + ch.String()
}
