package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Run             key.Binding
	ToggleAlgorithm key.Binding
	TogglePolicy    key.Binding
	Clear           key.Binding
	Help            key.Binding
	Quit            key.Binding
	ScrollUp        key.Binding
	ScrollDown      key.Binding
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Run, k.ToggleAlgorithm, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Run, k.ToggleAlgorithm, k.TogglePolicy, k.Clear},
		{k.ScrollUp, k.ScrollDown, k.Help, k.Quit},
	}
}

var keys = keyMap{
	Run: key.NewBinding(
		key.WithKeys("ctrl+r", "f5"),
		key.WithHelp("ctrl+r", "run schedule"),
	),
	ToggleAlgorithm: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch 2PL/OCC"),
	),
	TogglePolicy: key.NewBinding(
		key.WithKeys("ctrl+p"),
		key.WithHelp("ctrl+p", "omit/flag aborted"),
	),
	Clear: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear editor"),
	),
	Help: key.NewBinding(
		key.WithKeys("ctrl+h"),
		key.WithHelp("ctrl+h", "toggle help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "ctrl+q"),
		key.WithHelp("ctrl+c", "quit"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous row"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next row"),
	),
}
