package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the monitor key bindings.
type KeyMap struct {
	Quit    key.Binding
	Help    key.Binding
	SelectA key.Binding
	SelectB key.Binding
	Toggle  key.Binding
	Show    key.Binding
	DTR     key.Binding
	RTS     key.Binding
	Break   key.Binding
	Clear   key.Binding
}

func NewKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q", "Q", "ctrl+c"),
			key.WithHelp("q/ctrl+c", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		SelectA: key.NewBinding(
			key.WithKeys("a", "A"),
			key.WithHelp("a", "select UART A"),
		),
		SelectB: key.NewBinding(
			key.WithKeys("b", "B"),
			key.WithHelp("b", "select UART B"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "select other UART"),
		),
		Show: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "show on display"),
		),
		DTR: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "toggle DTR"),
		),
		RTS: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "toggle RTS"),
		),
		Break: key.NewBinding(
			key.WithKeys("k"),
			key.WithHelp("k", "send break"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "clear history"),
		),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Toggle, k.Show, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.SelectA, k.SelectB, k.Toggle, k.Show},
		{k.DTR, k.RTS, k.Break, k.Clear},
		{k.Help, k.Quit},
	}
}
