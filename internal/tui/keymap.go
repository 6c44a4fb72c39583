package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the generation UI.
//
// The prompt input owns printable keys while it is focused (idle and
// recording), so commands in those phases use control chords. Once a
// request is in flight or finished the input is blurred and plain keys
// take over.
type KeyMap struct {
	Submit       key.Binding
	Record       key.Binding
	Conditioning key.Binding
	Cancel       key.Binding
	Play         key.Binding
	Acknowledge  key.Binding
	Quit         key.Binding
	ForceQuit    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "generate"),
		),
		Record: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "start/stop recording"),
		),
		Conditioning: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "toggle conditioning"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "cancel"),
		),
		Play: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "play/stop result"),
		),
		Acknowledge: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "acknowledge"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp returns the short help bindings.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.Record, k.Cancel, k.Quit}
}

// FullHelp returns the full help bindings.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Submit, k.Record, k.Conditioning},
		{k.Cancel, k.Play, k.Acknowledge, k.Quit},
	}
}
