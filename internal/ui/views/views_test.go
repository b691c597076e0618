package views

import (
	"path/filepath"
	"testing"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/tgienger/taskflow/internal/db"
)

func newTestStore(t *testing.T) (*db.DB, func()) {
	t.Helper()
	store, err := db.Open(db.Options{
		Path:   filepath.Join(t.TempDir(), "taskflow.db"),
		Driver: db.DriverPure,
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return store, func() {
		_ = store.Close()
	}
}

var specialKeys = map[string]tea.KeyType{
	"esc":    tea.KeyEsc,
	"enter":  tea.KeyEnter,
	"tab":    tea.KeyTab,
	"ctrl+s": tea.KeyCtrlS,
	"right":  tea.KeyRight,
	"left":   tea.KeyLeft,
	"down":   tea.KeyDown,
	"up":     tea.KeyUp,
}

func keyMsg(k string) tea.KeyMsg {
	if typ, ok := specialKeys[k]; ok {
		return tea.KeyMsg{Type: typ}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// settle runs cmd and feeds the view's own messages back into it until
// nothing is left. Anything else (blinks, quit, view switches) is collected.
func settle(t *testing.T, m tea.Model, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	var other []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case tasksLoadedMsg, assigneesLoadedMsg, usersLoadedMsg, errMsg:
			_, c := m.Update(msg)
			queue = append(queue, c)
		default:
			other = append(other, msg)
		}
	}
	return other
}

// press sends each key in turn and settles the resulting commands
func press(t *testing.T, m tea.Model, keys ...string) []tea.Msg {
	t.Helper()
	var other []tea.Msg
	for _, k := range keys {
		_, cmd := m.Update(keyMsg(k))
		other = append(other, settle(t, m, cmd)...)
	}
	return other
}

func start(t *testing.T, m tea.Model) {
	t.Helper()
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	settle(t, m, m.Init())
}

func hasMsg[T any](msgs []tea.Msg) bool {
	for _, msg := range msgs {
		if _, ok := msg.(T); ok {
			return true
		}
	}
	return false
}

// staticCursors stops the text cursors from scheduling blink ticks
func staticCursors(cursors ...*cursor.Model) {
	for _, c := range cursors {
		c.SetMode(cursor.CursorStatic)
	}
}

func newTestTaskView(t *testing.T, store *db.DB) *TaskListView {
	t.Helper()
	v := NewTaskListView(store)
	staticCursors(&v.searchInput.Cursor, &v.editTitle.Cursor, &v.editDesc.Cursor)
	start(t, v)
	return v
}

func newTestUserView(t *testing.T, store *db.DB) *UserListView {
	t.Helper()
	v := NewUserListView(store)
	staticCursors(&v.newName.Cursor)
	start(t, v)
	return v
}
