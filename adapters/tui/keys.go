package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Send     key.Binding
	Voice    key.Binding
	Speak    key.Binding
	Theme    key.Binding
	Warmer   key.Binding
	Cooler   key.Binding
	Quit     key.Binding
	ScrollUp key.Binding
	ScrollDn key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Voice: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("C-r", "voice"),
		),
		Speak: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("C-s", "speak"),
		),
		Theme: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("C-t", "theme"),
		),
		Warmer: key.NewBinding(
			key.WithKeys("ctrl+up"),
			key.WithHelp("C-↑", "creativity +"),
		),
		Cooler: key.NewBinding(
			key.WithKeys("ctrl+down"),
			key.WithHelp("C-↓", "creativity -"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "scroll up"),
		),
		ScrollDn: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "scroll down"),
		),
	}
}

// help lists the bindings shown in the footer. Speak is shown only when it is usable.
func (k keyMap) help(canSpeak bool) []key.Binding {
	bindings := []key.Binding{k.Send, k.Voice}
	if canSpeak {
		bindings = append(bindings, k.Speak)
	}
	return append(bindings, k.Warmer, k.Cooler, k.Theme, k.Quit)
}
