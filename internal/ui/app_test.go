package ui

import (
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/tgienger/taskflow/internal/db"
	"github.com/tgienger/taskflow/internal/ui/views"
)

func newTestApp(t *testing.T) (*App, func()) {
	t.Helper()
	store, err := db.Open(db.Options{
		Path:   filepath.Join(t.TempDir(), "taskflow.db"),
		Driver: db.DriverPure,
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	return NewApp(store, zerolog.Nop()), func() {
		_ = store.Close()
	}
}

func TestAppSwitchesViews(t *testing.T) {
	app, cleanup := newTestApp(t)
	defer cleanup()

	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	if app.currentView != ViewTasks {
		t.Fatalf("expected to start on the task board")
	}

	_, cmd := app.Update(views.ShowUsers{})
	if app.currentView != ViewUsers {
		t.Fatalf("expected users view after ShowUsers")
	}
	if cmd == nil {
		t.Fatalf("expected the users view to reload")
	}

	_, cmd = app.Update(views.ShowTasks{})
	if app.currentView != ViewTasks {
		t.Fatalf("expected task board after ShowTasks")
	}
	if cmd == nil {
		t.Fatalf("expected the task board to reload")
	}
}

func TestAppRendersActiveView(t *testing.T) {
	app, cleanup := newTestApp(t)
	defer cleanup()

	app.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	if out := app.View(); !strings.Contains(out, "Tasks") {
		t.Fatalf("expected the task board, got %q", out)
	}

	app.Update(views.ShowUsers{})
	if out := app.View(); strings.Contains(out, "Search titles") {
		t.Fatalf("expected the users view, got %q", out)
	}
}
