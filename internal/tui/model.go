package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/usbuart/cdc"
	"github.com/ardnew/usbuart/display"
	"github.com/ardnew/usbuart/hal"
)

// Bridge is the control surface the monitor drives, satisfied by
// *client.Client.
type Bridge interface {
	Status() (cdc.Status, error)
	Select(ch cdc.Channel) error
	Show() error
	SetLines(dtr, rts bool) error
	Break(millis uint16) error
}

// BreakMillis is the duration of a break sent from the monitor.
const BreakMillis = 250

// MaxRows bounds the sample history.
const MaxRows = 256

type tickMsg time.Time

type statusMsg struct {
	at     time.Time
	status cdc.Status
	err    error
}

type actionMsg struct {
	what string
	err  error
}

// Model is a bubbletea model polling a bridge for status.
type Model struct {
	bridge   Bridge
	interval time.Duration
	keys     KeyMap
	help     help.Model
	table    table.Model

	last     cdc.Status
	lastAt   time.Time
	haveLast bool
	dtr, rts bool
	note     string
	err      error
	width    int
}

// New returns a monitor polling b every interval.
func New(b Bridge, interval time.Duration) Model {
	t := table.New(
		table.WithColumns(columns()),
		table.WithFocused(false),
		table.WithHeight(10),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		Bold(true)
	t.SetStyles(s)

	return Model{
		bridge:   b,
		interval: interval,
		keys:     NewKeyMap(),
		help:     help.New(),
		table:    t,
	}
}

func columns() []table.Column {
	return []table.Column{
		{Title: "Time", Width: 12},
		{Title: "UART", Width: 4},
		{Title: "Coding", Width: 14},
		{Title: "host→", Width: 10},
		{Title: "→host", Width: 10},
		{Title: "Errors", Width: 8},
		{Title: "B/s in", Width: 9},
		{Title: "B/s out", Width: 9},
	}
}

func (m Model) Init() tea.Cmd {
	return m.poll()
}

func (m Model) poll() tea.Cmd {
	return func() tea.Msg {
		st, err := m.bridge.Status()
		return statusMsg{at: time.Now(), status: st, err: err}
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) action(what string, f func() error) tea.Cmd {
	return func() tea.Msg {
		return actionMsg{what: what, err: f()}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		if h := msg.Height - 12; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case tickMsg:
		return m, m.poll()

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.record(msg.at, msg.status)
		}
		return m, m.tick()

	case actionMsg:
		m.err = msg.err
		if msg.err == nil {
			m.note = msg.what
		}
		return m, m.poll()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.SelectA):
		return m, m.selectCmd(cdc.ChannelA)
	case key.Matches(msg, m.keys.SelectB):
		return m, m.selectCmd(cdc.ChannelB)
	case key.Matches(msg, m.keys.Toggle):
		return m, m.selectCmd(m.last.Channel.Other())
	case key.Matches(msg, m.keys.Show):
		return m, m.action("status shown", m.bridge.Show)
	case key.Matches(msg, m.keys.DTR):
		m.dtr = !m.dtr
		return m, m.linesCmd()
	case key.Matches(msg, m.keys.RTS):
		m.rts = !m.rts
		return m, m.linesCmd()
	case key.Matches(msg, m.keys.Break):
		return m, m.action(fmt.Sprintf("break %d ms", BreakMillis), func() error {
			return m.bridge.Break(BreakMillis)
		})
	case key.Matches(msg, m.keys.Clear):
		m.table.SetRows(nil)
		return m, nil
	}
	return m, nil
}

func (m Model) selectCmd(ch cdc.Channel) tea.Cmd {
	return m.action("selected "+display.ChannelLabel(ch), func() error {
		return m.bridge.Select(ch)
	})
}

func (m Model) linesCmd() tea.Cmd {
	dtr, rts := m.dtr, m.rts
	return m.action(fmt.Sprintf("DTR=%t RTS=%t", dtr, rts), func() error {
		return m.bridge.SetLines(dtr, rts)
	})
}

// record appends a sample row. Rates are computed against the previous
// sample and left blank across a counter reset, which a switch causes.
func (m *Model) record(at time.Time, st cdc.Status) {
	rateIn, rateOut := "", ""
	if m.haveLast && st.Channel == m.last.Channel &&
		st.BytesFromHost >= m.last.BytesFromHost && st.BytesToHost >= m.last.BytesToHost {
		if dt := at.Sub(m.lastAt).Seconds(); dt > 0 {
			rateIn = fmt.Sprintf("%.0f", float64(st.BytesFromHost-m.last.BytesFromHost)/dt)
			rateOut = fmt.Sprintf("%.0f", float64(st.BytesToHost-m.last.BytesToHost)/dt)
		}
	}
	m.last, m.lastAt, m.haveLast = st, at, true

	rows := append(m.table.Rows(), table.Row{
		at.Format("15:04:05.00"),
		st.Channel.String(),
		st.LineCoding.String(),
		fmt.Sprint(st.BytesFromHost),
		fmt.Sprint(st.BytesToHost),
		fmt.Sprint(st.UARTErrors),
		rateIn,
		rateOut,
	})
	if len(rows) > MaxRows {
		rows = rows[len(rows)-MaxRows:]
	}
	m.table.SetRows(rows)
	m.table.GotoBottom()
}

func (m Model) View() string {
	var header string
	if m.haveLast {
		header = display.Render(hal.DisplayEvent{Reason: hal.ReasonRequest, Status: m.last})
	} else {
		header = display.TitleStyle.Render("usbuart") + "  waiting for status…"
	}

	lines := display.NoteStyle.Render(fmt.Sprintf("DTR=%t RTS=%t", m.dtr, m.rts))
	var status string
	switch {
	case m.err != nil:
		status = display.ErrorValueStyle.Render("error: " + m.err.Error())
	case m.note != "":
		status = display.ValueStyle.Render(m.note)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lines,
		m.table.View(),
		status,
		m.help.View(m.keys),
	)
}

// Run starts the monitor on the terminal and blocks until it quits.
func Run(b Bridge, interval time.Duration) error {
	p := tea.NewProgram(New(b, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
