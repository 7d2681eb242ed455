package ui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Open    key.Binding
	Close   key.Binding
	Camera  key.Binding
	Refresh key.Binding
	Quit    key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Open: key.NewBinding(
			key.WithKeys("enter", "s"),
			key.WithHelp("enter", "scan"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
		Camera: key.NewBinding(
			key.WithKeys("tab", "c"),
			key.WithHelp("tab", "next camera"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh cameras"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown in the footer
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Close, k.Camera, k.Refresh, k.Quit}
}
