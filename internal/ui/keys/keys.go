package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the key bindings shared by the views
type KeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Enter  key.Binding
	Back   key.Binding
	Tab    key.Binding
	Quit   key.Binding
	New    key.Binding
	Edit   key.Binding
	Delete key.Binding
	Search key.Binding

	// Task list
	StatusFilter   key.Binding
	AssigneeFilter key.Binding
	ClearFilters   key.Binding
	MarkTodo       key.Binding
	MarkDoing      key.Binding
	MarkDone       key.Binding
	Users          key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("↵", "select"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		StatusFilter: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "status filter"),
		),
		AssigneeFilter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "assignee filter"),
		),
		ClearFilters: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "clear filters"),
		),
		MarkTodo: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "todo"),
		),
		MarkDoing: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "doing"),
		),
		MarkDone: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "done"),
		),
		Users: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "users"),
		),
	}
}
