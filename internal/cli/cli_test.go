package cli_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tgienger/taskflow/internal/cli"
	"github.com/tgienger/taskflow/internal/db"
)

func newTestApp(t *testing.T) (*cli.App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	store, err := db.Open(db.Options{
		Path:   filepath.Join(t.TempDir(), "taskflow.db"),
		Driver: db.DriverPure,
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	var out, errOut bytes.Buffer
	return &cli.App{Store: store, Out: &out, Err: &errOut, Log: zerolog.Nop()}, &out, &errOut
}

// run executes one command and returns its exit code and output, resetting
// the buffers so each call is checked on its own
func run(app *cli.App, out, errOut *bytes.Buffer, args ...string) (int, string, string) {
	out.Reset()
	errOut.Reset()
	code := app.Run(args)
	return code, out.String(), errOut.String()
}

func mustRun(t *testing.T, app *cli.App, out, errOut *bytes.Buffer, args ...string) string {
	t.Helper()
	code, stdout, stderr := run(app, out, errOut, args...)
	if code != cli.ExitSuccess {
		t.Fatalf("%v: exit %d, stderr %q", args, code, stderr)
	}
	return stdout
}

func TestAssignAndCompleteFlow(t *testing.T) {
	app, out, errOut := newTestApp(t)

	if got := mustRun(t, app, out, errOut, "add-user", "Alice"); got != "User 'Alice' added with id 1.\n" {
		t.Fatalf("unexpected add-user output %q", got)
	}
	if got := mustRun(t, app, out, errOut, "add-task", "Fix bug", "-a", "1"); got != "Task 'Fix bug' added with id 1.\n" {
		t.Fatalf("unexpected add-task output %q", got)
	}
	if got := mustRun(t, app, out, errOut, "update-task-status", "1", "done"); got != "Task 1 status set to done.\n" {
		t.Fatalf("unexpected update-task-status output %q", got)
	}

	got := mustRun(t, app, out, errOut, "list-tasks", "-s", "done")
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 task line, got %q", got)
	}
	if !strings.HasPrefix(lines[0], "#1 [done] Fix bug (Alice #1) ") {
		t.Fatalf("unexpected task line %q", lines[0])
	}
}

func TestAddUserDuplicate(t *testing.T) {
	app, out, errOut := newTestApp(t)
	mustRun(t, app, out, errOut, "add-user", "Alice")

	code, _, stderr := run(app, out, errOut, "add-user", "Alice")
	if code != cli.ExitFailure {
		t.Fatalf("expected exit %d, got %d", cli.ExitFailure, code)
	}
	if stderr != "Error: user 'Alice' already exists\n" {
		t.Fatalf("unexpected stderr %q", stderr)
	}

	got := mustRun(t, app, out, errOut, "list-users")
	if got != "1: Alice\n" {
		t.Fatalf("expected table to be unchanged, got %q", got)
	}
}

func TestAddUserJoinsWords(t *testing.T) {
	app, out, errOut := newTestApp(t)

	if got := mustRun(t, app, out, errOut, "add-user", "Mary", "Ann"); got != "User 'Mary Ann' added with id 1.\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEmptyListings(t *testing.T) {
	app, out, errOut := newTestApp(t)

	if got := mustRun(t, app, out, errOut, "list-users"); got != "No users found.\n" {
		t.Fatalf("unexpected output %q", got)
	}
	if got := mustRun(t, app, out, errOut, "list-tasks"); got != "No tasks found.\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestUsageErrors(t *testing.T) {
	app, out, errOut := newTestApp(t)

	tests := []struct {
		name  string
		args  []string
		usage string
	}{
		{"add-user without name", []string{"add-user"}, "add-user NAME"},
		{"add-task without title", []string{"add-task", "-d", "text"}, "add-task TITLE"},
		{"status missing argument", []string{"update-task-status", "1"}, "update-task-status ID STATUS"},
		{"non-numeric id", []string{"show-task", "abc"}, "show-task ID"},
		{"unknown flag", []string{"list-tasks", "-z"}, "list-tasks"},
		{"nothing to update", []string{"update-task", "1"}, "update-task ID"},
		{"bad assignee flag", []string{"add-task", "Title", "-a", "bob"}, "add-task TITLE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := run(app, out, errOut, tt.args...)
			if code != cli.ExitUsage {
				t.Fatalf("expected exit %d, got %d (%q)", cli.ExitUsage, code, stderr)
			}
			if !strings.HasPrefix(stderr, "Error: ") || !strings.Contains(stderr, "Usage: taskflow "+tt.usage) {
				t.Fatalf("unexpected stderr %q", stderr)
			}
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	app := &cli.App{Out: &out, Err: &errOut, Log: zerolog.Nop()}

	if code := app.Run([]string{"frobnicate"}); code != cli.ExitUsage {
		t.Fatalf("expected exit %d, got %d", cli.ExitUsage, code)
	}
	if !strings.Contains(errOut.String(), `unknown command "frobnicate"`) {
		t.Fatalf("unexpected stderr %q", errOut.String())
	}
	if cli.Known("frobnicate") || !cli.Known("add-task") {
		t.Fatalf("Known reports the wrong commands")
	}
}

func TestHelp(t *testing.T) {
	var out, errOut bytes.Buffer
	app := &cli.App{Out: &out, Err: &errOut, Log: zerolog.Nop()}

	if code := app.Run([]string{"help"}); code != cli.ExitSuccess {
		t.Fatalf("expected exit 0, got %d", code)
	}
	for _, want := range []string{"Commands:", "menu", "add-user", "update-task-status"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("help output missing %q: %q", want, out.String())
		}
	}
}

func TestInvalidStatus(t *testing.T) {
	app, out, errOut := newTestApp(t)
	mustRun(t, app, out, errOut, "add-task", "Something")

	code, _, stderr := run(app, out, errOut, "update-task-status", "1", "blocked")
	if code != cli.ExitFailure {
		t.Fatalf("expected exit %d, got %d", cli.ExitFailure, code)
	}
	if stderr != "Error: status must be one of: todo, doing, done\n" {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}

func TestNotFound(t *testing.T) {
	app, out, errOut := newTestApp(t)

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"delete-task", "9"}, "Error: no task with id 9 (0 rows deleted)\n"},
		{[]string{"update-task-status", "9", "done"}, "Error: no task with id 9 (0 rows updated)\n"},
		{[]string{"delete-user", "4"}, "Error: no user with id 4 (0 rows deleted)\n"},
		{[]string{"show-task", "2"}, "Error: no task with id 2\n"},
		{[]string{"assign-task", "3", "none"}, "Error: no task with id 3 (0 rows updated)\n"},
	}
	for _, tt := range tests {
		code, _, stderr := run(app, out, errOut, tt.args...)
		if code != cli.ExitFailure {
			t.Fatalf("%v: expected exit %d, got %d", tt.args, cli.ExitFailure, code)
		}
		if stderr != tt.want {
			t.Fatalf("%v: expected %q, got %q", tt.args, tt.want, stderr)
		}
	}
}

func TestAddTaskFlagsAnywhere(t *testing.T) {
	app, out, errOut := newTestApp(t)
	mustRun(t, app, out, errOut, "add-user", "Bob")

	if got := mustRun(t, app, out, errOut, "add-task", "-d", "see wiki", "Write", "docs", "-a", "1"); got != "Task 'Write docs' added with id 1.\n" {
		t.Fatalf("unexpected output %q", got)
	}

	got := mustRun(t, app, out, errOut, "show-task", "1")
	for _, want := range []string{"Title:       Write docs", "Description: see wiki", "Status:      todo", "Assignee:    Bob #1", "Updated:     never"} {
		if !strings.Contains(got, want) {
			t.Fatalf("show-task missing %q: %q", want, got)
		}
	}
}

func TestMissingAssigneeWarnsOnStderr(t *testing.T) {
	app, out, errOut := newTestApp(t)
	// Only errors reach the log, so the warning has to come from the command.
	app.Log = zerolog.New(errOut).Level(zerolog.ErrorLevel)
	const warning = "Warning: no user with id 5; storing assignee as NULL\n"

	code, stdout, stderr := run(app, out, errOut, "add-task", "Orphan", "-a", "5")
	if code != cli.ExitSuccess {
		t.Fatalf("expected exit 0, got %d (%q)", code, stderr)
	}
	if stdout != "Task 'Orphan' added with id 1.\n" {
		t.Fatalf("unexpected stdout %q", stdout)
	}
	if stderr != warning {
		t.Fatalf("expected warning on stderr, got %q", stderr)
	}

	got := mustRun(t, app, out, errOut, "list-tasks")
	if !strings.Contains(got, "(unassigned)") {
		t.Fatalf("expected task to be unassigned, got %q", got)
	}

	code, stdout, stderr = run(app, out, errOut, "update-task", "1", "-a", "5")
	if code != cli.ExitSuccess || stdout != "Task 1 updated.\n" {
		t.Fatalf("update-task: exit %d, stdout %q", code, stdout)
	}
	if stderr != warning {
		t.Fatalf("update-task: expected warning on stderr, got %q", stderr)
	}

	code, stdout, stderr = run(app, out, errOut, "assign-task", "1", "5")
	if code != cli.ExitSuccess || stdout != "Task 1 unassigned.\n" {
		t.Fatalf("assign-task: exit %d, stdout %q", code, stdout)
	}
	if stderr != warning {
		t.Fatalf("assign-task: expected warning on stderr, got %q", stderr)
	}
}

func TestExistingAssigneeHasNoWarning(t *testing.T) {
	app, out, errOut := newTestApp(t)
	mustRun(t, app, out, errOut, "add-user", "Alice")

	for _, args := range [][]string{
		{"add-task", "Owned", "-a", "1"},
		{"update-task", "1", "-t", "Still owned"},
		{"assign-task", "1", "1"},
	} {
		if _, _, stderr := run(app, out, errOut, args...); stderr != "" {
			t.Fatalf("%v: expected empty stderr, got %q", args, stderr)
		}
	}
}

func TestListTasksFilters(t *testing.T) {
	app, out, errOut := newTestApp(t)
	mustRun(t, app, out, errOut, "add-user", "Alice")
	mustRun(t, app, out, errOut, "add-task", "Write report", "-a", "1")
	mustRun(t, app, out, errOut, "add-task", "Deploy")
	mustRun(t, app, out, errOut, "update-task-status", "2", "doing")

	got := mustRun(t, app, out, errOut, "list-tasks", "-a", "1")
	if !strings.Contains(got, "Write report") || strings.Contains(got, "Deploy") {
		t.Fatalf("assignee filter: %q", got)
	}
	got = mustRun(t, app, out, errOut, "list-tasks", "-s", "doing")
	if !strings.Contains(got, "#2 [doing] Deploy (unassigned)") {
		t.Fatalf("status filter: %q", got)
	}
	got = mustRun(t, app, out, errOut, "list-tasks", "-q", "REPORT")
	if !strings.Contains(got, "Write report") || strings.Contains(got, "Deploy") {
		t.Fatalf("query filter: %q", got)
	}
}

func TestListTasksStatusList(t *testing.T) {
	app, out, errOut := newTestApp(t)
	mustRun(t, app, out, errOut, "add-task", "Plan")
	mustRun(t, app, out, errOut, "add-task", "Build")
	mustRun(t, app, out, errOut, "add-task", "Ship")
	mustRun(t, app, out, errOut, "update-task-status", "2", "doing")
	mustRun(t, app, out, errOut, "update-task-status", "3", "done")

	got := mustRun(t, app, out, errOut, "list-tasks", "-s", "done, doing")
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "#2 [doing] Build") || !strings.HasPrefix(lines[1], "#3 [done] Ship") {
		t.Fatalf("unexpected status list output %q", got)
	}

	code, _, stderr := run(app, out, errOut, "list-tasks", "-s", "todo,later")
	if code != cli.ExitFailure || stderr != "Error: status must be one of: todo, doing, done\n" {
		t.Fatalf("invalid status in list: exit %d, stderr %q", code, stderr)
	}

	code, _, stderr = run(app, out, errOut, "list-tasks", "-s", "todo,done", "-q", "Plan")
	if code != cli.ExitUsage || !strings.Contains(stderr, "cannot be combined") {
		t.Fatalf("status list with -q: exit %d, stderr %q", code, stderr)
	}
}

func TestUpdateTaskIsPartial(t *testing.T) {
	app, out, errOut := newTestApp(t)
	mustRun(t, app, out, errOut, "add-user", "Alice")
	mustRun(t, app, out, errOut, "add-task", "Draft", "-d", "keep me", "-a", "1")

	if got := mustRun(t, app, out, errOut, "update-task", "1", "-t", "Final"); got != "Task 1 updated.\n" {
		t.Fatalf("unexpected output %q", got)
	}
	got := mustRun(t, app, out, errOut, "show-task", "1")
	for _, want := range []string{"Title:       Final", "Description: keep me", "Assignee:    Alice #1"} {
		if !strings.Contains(got, want) {
			t.Fatalf("show-task missing %q: %q", want, got)
		}
	}
	if strings.Contains(got, "Updated:     never") {
		t.Fatalf("expected updated timestamp, got %q", got)
	}

	mustRun(t, app, out, errOut, "update-task", "1", "-d", "", "-unassign")
	got = mustRun(t, app, out, errOut, "show-task", "1")
	if !strings.Contains(got, "Description: -") || !strings.Contains(got, "Assignee:    unassigned") {
		t.Fatalf("expected cleared description and assignee: %q", got)
	}

	code, _, _ := run(app, out, errOut, "update-task", "1", "-a", "1", "-unassign")
	if code != cli.ExitUsage {
		t.Fatalf("expected -a with -unassign to be a usage error, got %d", code)
	}
}

func TestAssignTask(t *testing.T) {
	app, out, errOut := newTestApp(t)
	mustRun(t, app, out, errOut, "add-user", "Alice")
	mustRun(t, app, out, errOut, "add-task", "Pair up")

	if got := mustRun(t, app, out, errOut, "assign-task", "1", "1"); got != "Task 1 assigned to Alice.\n" {
		t.Fatalf("unexpected output %q", got)
	}
	if got := mustRun(t, app, out, errOut, "assign-task", "1", "none"); got != "Task 1 unassigned.\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestDeleteUserUnassignsTasks(t *testing.T) {
	app, out, errOut := newTestApp(t)
	mustRun(t, app, out, errOut, "add-user", "Alice")
	mustRun(t, app, out, errOut, "add-task", "Keep me", "-a", "1")

	if got := mustRun(t, app, out, errOut, "delete-user", "1"); got != "User 1 deleted.\n" {
		t.Fatalf("unexpected output %q", got)
	}
	got := mustRun(t, app, out, errOut, "list-tasks")
	if !strings.Contains(got, "#1 [todo] Keep me (unassigned)") {
		t.Fatalf("expected task to survive unassigned, got %q", got)
	}
}

func TestDeleteTask(t *testing.T) {
	app, out, errOut := newTestApp(t)
	mustRun(t, app, out, errOut, "add-task", "Throwaway")

	if got := mustRun(t, app, out, errOut, "delete-task", "1"); got != "Task 1 deleted.\n" {
		t.Fatalf("unexpected output %q", got)
	}
	if got := mustRun(t, app, out, errOut, "list-tasks"); got != "No tasks found.\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestInitDB(t *testing.T) {
	app, out, errOut := newTestApp(t)

	got := mustRun(t, app, out, errOut, "init-db")
	if !strings.HasPrefix(got, "Database initialized at ") || !strings.HasSuffix(got, "taskflow.db\n") {
		t.Fatalf("unexpected output %q", got)
	}
}
