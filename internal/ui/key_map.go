package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	add    key.Binding
	run    key.Binding
	remove key.Binding
	cancel key.Binding
	retry  key.Binding
	focus  key.Binding
	up     key.Binding
	down   key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		add:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "add link")),
		run:    key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "run queue")),
		remove: key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "remove")),
		cancel: key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "cancel")),
		retry:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "retry")),
		focus:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch focus")),
		up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		quit:   key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.add, k.run, k.focus, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.add, k.run, k.focus},
		{k.up, k.down, k.remove},
		{k.cancel, k.retry, k.quit},
	}
}
