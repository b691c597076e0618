// Package cli implements the taskflow subcommands on top of the db layer.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	goerrors "github.com/go-errors/errors"
	"github.com/rs/zerolog"

	"github.com/tgienger/taskflow/internal/db"
	"github.com/tgienger/taskflow/internal/models"
)

const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Store is the part of the persistence layer the commands use
type Store interface {
	Path() string
	CreateUser(name string) (*models.User, error)
	GetUser(id int64) (*models.User, error)
	ListUsers() ([]models.User, error)
	DeleteUser(id int64) (bool, error)
	CreateTask(title, description string, assigneeID *int64) (*models.Task, error)
	GetTask(id int64) (*models.Task, error)
	ListTasks(filter models.TaskFilter) ([]models.Task, error)
	ListTasksByStatuses(statuses []string) ([]models.Task, error)
	UpdateTaskStatus(id int64, status string) (bool, error)
	UpdateTask(id int64, title, description string, assigneeID *int64) (bool, error)
	UpdateTaskAssignee(id int64, assigneeID *int64) (bool, error)
	DeleteTask(id int64) (bool, error)
}

var _ Store = (*db.DB)(nil)

// App carries the collaborators of a single CLI invocation
type App struct {
	Store Store
	Out   io.Writer
	Err   io.Writer
	Log   zerolog.Logger
}

type command struct {
	usage   string
	summary string
	run     func(a *App, args []string) error
}

var commands = map[string]command{
	"init-db":            {"init-db", "create the database and tables", (*App).initDB},
	"add-user":           {"add-user NAME", "add a user", (*App).addUser},
	"list-users":         {"list-users", "list users", (*App).listUsers},
	"delete-user":        {"delete-user ID", "delete a user and unassign their tasks", (*App).deleteUser},
	"add-task":           {"add-task TITLE [-d DESCRIPTION] [-a USER_ID]", "add a task", (*App).addTask},
	"list-tasks":         {"list-tasks [-s STATUS[,STATUS...]] [-a USER_ID] [-q TEXT]", "list tasks", (*App).listTasks},
	"show-task":          {"show-task ID", "show one task", (*App).showTask},
	"update-task-status": {"update-task-status ID STATUS", "set a task status (todo, doing, done)", (*App).updateTaskStatus},
	"update-task":        {"update-task ID [-t TITLE] [-d DESCRIPTION] [-a USER_ID] [-unassign]", "edit a task", (*App).updateTask},
	"assign-task":        {"assign-task ID USER_ID|none", "assign or unassign a task", (*App).assignTask},
	"delete-task":        {"delete-task ID", "delete a task", (*App).deleteTask},
}

// UsageError reports a malformed invocation
type UsageError struct {
	Usage   string
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

func usageErrorf(usage, format string, args ...any) error {
	return &UsageError{Usage: usage, Message: fmt.Sprintf(format, args...)}
}

// Known reports whether name is a CLI subcommand
func Known(name string) bool {
	_, ok := commands[name]
	return ok
}

// Run executes one subcommand and returns the process exit code
func (a *App) Run(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		a.PrintUsage(a.Out)
		return ExitSuccess
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(a.Err, "Error: unknown command %q\n\n", args[0])
		a.PrintUsage(a.Err)
		return ExitUsage
	}

	err := cmd.run(a, args[1:])
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(a.Err, "Error: %s\nUsage: taskflow %s\n", usageErr.Message, usageErr.Usage)
		return ExitUsage
	}

	if !isDomainError(err) {
		wrapped := goerrors.Wrap(err, 1)
		a.Log.Debug().Str("command", args[0]).Str("stack", wrapped.ErrorStack()).Msg("command failed")
	}
	fmt.Fprintf(a.Err, "Error: %v\n", err)
	return ExitFailure
}

// PrintUsage writes the command summary
func (a *App) PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: taskflow [--db PATH] [--driver sqlite3|sqlite] <command> [arguments]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintf(w, "  %-20s %s\n", "menu", "open the interactive task board (default)")
	for _, name := range names {
		fmt.Fprintf(w, "  %-20s %s\n", name, commands[name].summary)
	}
}

// messageError replaces the text of a domain error while keeping it matchable
type messageError struct {
	msg string
	err error
}

func (e *messageError) Error() string { return e.msg }
func (e *messageError) Unwrap() error { return e.err }

func withMessage(err error, format string, args ...any) error {
	return &messageError{msg: fmt.Sprintf(format, args...), err: err}
}

// isDomainError reports whether err is an expected validation or lookup failure
func isDomainError(err error) bool {
	for _, target := range []error{
		db.ErrEmptyName,
		db.ErrEmptyTitle,
		db.ErrInvalidAssignee,
		db.ErrUserExists,
		db.ErrTaskNotFound,
		db.ErrUserNotFound,
		models.ErrInvalidStatus,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed
	return fs
}

// parseInterspersed parses flags that may appear before, between or after
// positional arguments, and returns the positional ones in order.
func parseInterspersed(fs *flag.FlagSet, usage string, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, usageErrorf(usage, "%v", err)
		}
		args = fs.Args()
		if len(args) == 0 {
			return positional, nil
		}
		positional = append(positional, args[0])
		args = args[1:]
	}
}

func expectArgs(usage string, args []string, n int) error {
	if len(args) != n {
		return usageErrorf(usage, "expected %d argument(s), got %d", n, len(args))
	}
	return nil
}

func parseID(usage, what, value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, usageErrorf(usage, "invalid %s id %q", what, value)
	}
	return id, nil
}
