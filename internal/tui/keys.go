package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Work   key.Binding
	Break  key.Binding
	Pause  key.Binding
	Stop   key.Binding
	Extend key.Binding
	Reduce key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Work:   key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "work")),
		Break:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "break")),
		Pause:  key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause/resume")),
		Stop:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Extend: key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "+1 min")),
		Reduce: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "-1 min")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Work, k.Break, k.Pause, k.Stop, k.Extend, k.Reduce, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
