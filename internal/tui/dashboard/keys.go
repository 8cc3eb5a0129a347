package dashboard

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines dashboard keybindings
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	Expand      key.Binding
	Collapse    key.Binding
	Focus       key.Binding
	Remove      key.Binding
	PurgeAll    key.Binding
	PurgeOne    key.Binding
	Pause       key.Binding
	System      key.Binding
	Filter      key.Binding
	Refresh     key.Binding
	Connect     key.Binding
	Acknowledge key.Binding
	Confirm     key.Binding
	Cancel      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap is the built-in binding set.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Expand:      key.NewBinding(key.WithKeys("enter", "right", "l", " "), key.WithHelp("enter", "expand")),
		Collapse:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse")),
		Focus:       key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch pane")),
		Remove:      key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "remove message")),
		PurgeAll:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "purge queue")),
		PurgeOne:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "purge top message")),
		Pause:       key.NewBinding(key.WithKeys("P"), key.WithHelp("P", "pause/resume refresh")),
		System:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "toggle system queues")),
		Filter:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter queues")),
		Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh headers")),
		Connect:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "connect/disconnect")),
		Acknowledge: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear change marks")),
		Confirm:     key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
		Cancel:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Focus, k.Expand, k.Filter, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Expand, k.Collapse, k.Focus},
		{k.Remove, k.PurgeAll, k.PurgeOne, k.Acknowledge},
		{k.Refresh, k.Pause, k.System, k.Filter},
		{k.Connect, k.Help, k.Quit},
	}
}
