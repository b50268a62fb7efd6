package viewer

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the viewer key bindings.
type KeyMap struct {
	ScrubLeft    key.Binding
	ScrubRight   key.Binding
	PlayPause    key.Binding
	NextAnchor   key.Binding
	PrevAnchor   key.Binding
	StepForward  key.Binding
	StepBack     key.Binding
	Marked       key.Binding
	PivotEdges   key.Binding
	Dimming      key.Binding
	Monophyletic key.Binding
	Trails       key.Binding
	Camera       key.Binding
	Alignment    key.Binding
	SpeedUp      key.Binding
	SpeedDown    key.Binding
	Help         key.Binding
	Quit         key.Binding
}

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		ScrubLeft:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "scrub back")),
		ScrubRight:   key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "scrub forward")),
		PlayPause:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		NextAnchor:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next anchor")),
		PrevAnchor:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous anchor")),
		StepForward:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "step forward")),
		StepBack:     key.NewBinding(key.WithKeys("["), key.WithHelp("[", "step back")),
		Marked:       key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "marked subtrees")),
		PivotEdges:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "pivot edges")),
		Dimming:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "dimming")),
		Monophyletic: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "monophyletic colors")),
		Trails:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "movement trails")),
		Camera:       key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "orthographic camera")),
		Alignment:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "alignment overlay")),
		SpeedUp:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		SpeedDown:    key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "slower")),
		Help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:         key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
