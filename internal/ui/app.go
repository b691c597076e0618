package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/tgienger/taskflow/internal/db"
	"github.com/tgienger/taskflow/internal/ui/views"
)

// Currently active view
type View int

const (
	ViewTasks View = iota
	ViewUsers
)

type App struct {
	db          *db.DB
	log         zerolog.Logger
	currentView View
	taskList    *views.TaskListView
	userList    *views.UserListView
	width       int
	height      int
}

// Creates a new application
func NewApp(database *db.DB, log zerolog.Logger) *App {
	return &App{
		db:          database,
		log:         log.With().Str("component", "ui").Logger(),
		currentView: ViewTasks,
		taskList:    views.NewTaskListView(database),
		userList:    views.NewUserListView(database),
	}
}

// Run starts the form UI on the alternate screen and blocks until it exits
func Run(database *db.DB, log zerolog.Logger) error {
	app := NewApp(database, log)
	app.log.Info().Str("db", database.Path()).Msg("starting form UI")

	_, err := tea.NewProgram(app, tea.WithAltScreen()).Run()
	return err
}

func (a *App) Init() tea.Cmd {
	return a.taskList.Init()
}

// switchTo activates a view and reloads it, since the other view may have
// changed users or tasks
func (a *App) switchTo(view View) tea.Cmd {
	a.currentView = view
	a.log.Debug().Int("view", int(view)).Msg("switching view")

	var cmd tea.Cmd
	switch view {
	case ViewUsers:
		cmd = a.userList.Init()
	default:
		cmd = a.taskList.Init()
	}
	return tea.Batch(
		cmd,
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: a.width, Height: a.height}
		},
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Both views keep their state across switches, so both track the size
		a.taskList.Update(msg)
		a.userList.Update(msg)
		return a, nil

	case views.ShowUsers:
		return a, a.switchTo(ViewUsers)

	case views.ShowTasks:
		return a, a.switchTo(ViewTasks)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewTasks:
		_, cmd = a.taskList.Update(msg)
	case ViewUsers:
		_, cmd = a.userList.Update(msg)
	}
	return a, cmd
}

func (a *App) View() string {
	if a.currentView == ViewUsers {
		return a.userList.View()
	}
	return a.taskList.View()
}
