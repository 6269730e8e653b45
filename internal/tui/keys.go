package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the incident console.
type KeyMap struct {
	Up   key.Binding
	Down key.Binding

	// Search.
	SearchActivate key.Binding
	SearchField    key.Binding // Cycle the field the search matches against.
	SearchClear    key.Binding

	// Mutations.
	Create  key.Binding
	Edit    key.Binding
	Delete  key.Binding
	Refresh key.Binding

	// Dialogs.
	NextField key.Binding
	PrevField key.Binding
	Increase  key.Binding // Next option of a select field.
	Decrease  key.Binding // Previous option of a select field.
	Submit    key.Binding
	Cancel    key.Binding

	// Delete confirmation.
	Confirm key.Binding
	Decline key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (j/k) alongside the arrow keys.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("k", "up"),
		key.WithHelp("k/↑", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("j", "down"),
		key.WithHelp("j/↓", "down"),
	),
	SearchActivate: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	SearchField: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "search field"),
	),
	SearchClear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear search"),
	),
	Create: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "new"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e", "enter"),
		key.WithHelp("e", "edit"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	NextField: key.NewBinding(
		key.WithKeys("tab", "down"),
		key.WithHelp("tab", "next field"),
	),
	PrevField: key.NewBinding(
		key.WithKeys("shift+tab", "up"),
		key.WithHelp("shift+tab", "previous field"),
	),
	Increase: key.NewBinding(
		key.WithKeys("right"),
		key.WithHelp("→", "next option"),
	),
	Decrease: key.NewBinding(
		key.WithKeys("left"),
		key.WithHelp("←", "previous option"),
	),
	Submit: key.NewBinding(
		key.WithKeys("ctrl+s", "enter"),
		key.WithHelp("enter", "save"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "cancel"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y", "yes"),
	),
	Decline: key.NewBinding(
		key.WithKeys("n", "N", "esc"),
		key.WithHelp("n", "no"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
