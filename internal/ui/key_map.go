package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the overlay.
type keyMap struct {
	earlier key.Binding
	later   key.Binding
	reset   key.Binding
	dock    key.Binding
	help    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		earlier: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "lyrics earlier")),
		later:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "lyrics later")),
		reset:   key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset offset")),
		dock:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "move")),
		help:    key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.earlier, k.later, k.reset},
		{k.dock, k.help, k.quit},
	}
}
