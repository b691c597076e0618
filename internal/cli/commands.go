package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/tgienger/taskflow/internal/db"
	"github.com/tgienger/taskflow/internal/models"
)

func (a *App) initDB(args []string) error {
	const usage = "init-db"
	if err := expectArgs(usage, args, 0); err != nil {
		return err
	}
	// Opening the store already applied the schema.
	fmt.Fprintf(a.Out, "Database initialized at %s\n", a.Store.Path())
	return nil
}

func (a *App) addUser(args []string) error {
	const usage = "add-user NAME"
	if len(args) == 0 {
		return usageErrorf(usage, "add-user requires a name")
	}
	name := strings.Join(args, " ")

	user, err := a.Store.CreateUser(name)
	if errors.Is(err, db.ErrUserExists) {
		return withMessage(err, "user '%s' already exists", strings.TrimSpace(name))
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.Out, "User '%s' added with id %d.\n", user.Name, user.ID)
	return nil
}

func (a *App) listUsers(args []string) error {
	if err := expectArgs("list-users", args, 0); err != nil {
		return err
	}

	users, err := a.Store.ListUsers()
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(a.Out, "No users found.")
		return nil
	}
	for _, u := range users {
		fmt.Fprintf(a.Out, "%d: %s\n", u.ID, u.Name)
	}
	return nil
}

func (a *App) deleteUser(args []string) error {
	const usage = "delete-user ID"
	if err := expectArgs(usage, args, 1); err != nil {
		return err
	}
	id, err := parseID(usage, "user", args[0])
	if err != nil {
		return err
	}

	deleted, err := a.Store.DeleteUser(id)
	if err != nil {
		return err
	}
	if !deleted {
		return withMessage(db.ErrUserNotFound, "no user with id %d (0 rows deleted)", id)
	}
	fmt.Fprintf(a.Out, "User %d deleted.\n", id)
	return nil
}

func (a *App) addTask(args []string) error {
	const usage = "add-task TITLE [-d DESCRIPTION] [-a USER_ID]"
	fs := newFlagSet("add-task")
	description := fs.String("d", "", "task description")
	assignee := fs.String("a", "", "assignee user id")

	positional, err := parseInterspersed(fs, usage, args)
	if err != nil {
		return err
	}
	if len(positional) == 0 {
		return usageErrorf(usage, "add-task requires a title")
	}

	assigneeID, err := optionalID(usage, *assignee)
	if err != nil {
		return err
	}

	task, err := a.Store.CreateTask(strings.Join(positional, " "), *description, assigneeID)
	if err != nil {
		return err
	}

	if assigneeID != nil && task.AssigneeID == nil {
		a.warnMissingAssignee(*assigneeID)
	}
	fmt.Fprintf(a.Out, "Task '%s' added with id %d.\n", task.Title, task.ID)
	return nil
}

func (a *App) listTasks(args []string) error {
	const usage = "list-tasks [-s STATUS[,STATUS...]] [-a USER_ID] [-q TEXT]"
	fs := newFlagSet("list-tasks")
	status := fs.String("s", "", "filter by status, or a comma separated list of statuses")
	assignee := fs.String("a", "", "filter by assignee user id")
	query := fs.String("q", "", "filter by title substring")

	positional, err := parseInterspersed(fs, usage, args)
	if err != nil {
		return err
	}
	if err := expectArgs(usage, positional, 0); err != nil {
		return err
	}

	assigneeID, err := optionalID(usage, *assignee)
	if err != nil {
		return err
	}

	var tasks []models.Task
	if statuses := splitList(*status); len(statuses) > 1 {
		if assigneeID != nil || *query != "" {
			return usageErrorf(usage, "a status list cannot be combined with -a or -q")
		}
		tasks, err = a.Store.ListTasksByStatuses(statuses)
	} else {
		tasks, err = a.Store.ListTasks(models.TaskFilter{Status: *status, AssigneeID: assigneeID, Query: *query})
	}
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(a.Out, "No tasks found.")
		return nil
	}
	for _, t := range tasks {
		fmt.Fprintln(a.Out, FormatTaskLine(t))
	}
	return nil
}

func (a *App) showTask(args []string) error {
	const usage = "show-task ID"
	if err := expectArgs(usage, args, 1); err != nil {
		return err
	}
	id, err := parseID(usage, "task", args[0])
	if err != nil {
		return err
	}

	task, err := a.Store.GetTask(id)
	if errors.Is(err, db.ErrTaskNotFound) {
		return withMessage(db.ErrTaskNotFound, "no task with id %d", id)
	}
	if err != nil {
		return err
	}

	description := task.Description
	if description == "" {
		description = "-"
	}
	updated := "never"
	if task.UpdatedAt != nil {
		updated = task.UpdatedAt.Format(time.DateTime)
	}

	fmt.Fprintf(a.Out, "Task #%d\n", task.ID)
	fmt.Fprintf(a.Out, "  Title:       %s\n", task.Title)
	fmt.Fprintf(a.Out, "  Description: %s\n", description)
	fmt.Fprintf(a.Out, "  Status:      %s\n", task.Status)
	fmt.Fprintf(a.Out, "  Assignee:    %s\n", assigneeLabel(*task))
	fmt.Fprintf(a.Out, "  Created:     %s\n", task.CreatedAt.Format(time.DateTime))
	fmt.Fprintf(a.Out, "  Updated:     %s\n", updated)
	return nil
}

func (a *App) updateTaskStatus(args []string) error {
	const usage = "update-task-status ID STATUS"
	if err := expectArgs(usage, args, 2); err != nil {
		return err
	}
	id, err := parseID(usage, "task", args[0])
	if err != nil {
		return err
	}

	updated, err := a.Store.UpdateTaskStatus(id, args[1])
	if err != nil {
		return err
	}
	if !updated {
		return withMessage(db.ErrTaskNotFound, "no task with id %d (0 rows updated)", id)
	}
	status, _ := models.ParseStatus(args[1])
	fmt.Fprintf(a.Out, "Task %d status set to %s.\n", id, status)
	return nil
}

func (a *App) updateTask(args []string) error {
	const usage = "update-task ID [-t TITLE] [-d DESCRIPTION] [-a USER_ID] [-unassign]"
	fs := newFlagSet("update-task")
	title := fs.String("t", "", "new title")
	description := fs.String("d", "", "new description (empty clears it)")
	assignee := fs.String("a", "", "new assignee user id")
	unassign := fs.Bool("unassign", false, "remove the assignee")

	positional, err := parseInterspersed(fs, usage, args)
	if err != nil {
		return err
	}
	if err := expectArgs(usage, positional, 1); err != nil {
		return err
	}
	id, err := parseID(usage, "task", positional[0])
	if err != nil {
		return err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if len(set) == 0 {
		return usageErrorf(usage, "nothing to update")
	}
	if set["a"] && *unassign {
		return usageErrorf(usage, "-a and -unassign cannot be combined")
	}

	task, err := a.Store.GetTask(id)
	if errors.Is(err, db.ErrTaskNotFound) {
		return withMessage(db.ErrTaskNotFound, "no task with id %d (0 rows updated)", id)
	}
	if err != nil {
		return err
	}

	newTitle, newDescription, newAssignee := task.Title, task.Description, task.AssigneeID
	if set["t"] {
		newTitle = *title
	}
	if set["d"] {
		newDescription = *description
	}
	if set["a"] {
		newAssignee, err = optionalID(usage, *assignee)
		if err != nil {
			return err
		}
	}
	if *unassign {
		newAssignee = nil
	}

	updated, err := a.Store.UpdateTask(id, newTitle, newDescription, newAssignee)
	if err != nil {
		return err
	}
	if !updated {
		return withMessage(db.ErrTaskNotFound, "no task with id %d (0 rows updated)", id)
	}
	if newAssignee != nil {
		stored, err := a.Store.GetTask(id)
		if err != nil {
			return err
		}
		if stored.AssigneeID == nil {
			a.warnMissingAssignee(*newAssignee)
		}
	}
	fmt.Fprintf(a.Out, "Task %d updated.\n", id)
	return nil
}

func (a *App) assignTask(args []string) error {
	const usage = "assign-task ID USER_ID|none"
	if err := expectArgs(usage, args, 2); err != nil {
		return err
	}
	id, err := parseID(usage, "task", args[0])
	if err != nil {
		return err
	}

	var assigneeID *int64
	if !strings.EqualFold(args[1], "none") {
		assigneeID, err = optionalID(usage, args[1])
		if err != nil {
			return err
		}
	}

	updated, err := a.Store.UpdateTaskAssignee(id, assigneeID)
	if err != nil {
		return err
	}
	if !updated {
		return withMessage(db.ErrTaskNotFound, "no task with id %d (0 rows updated)", id)
	}

	if assigneeID == nil {
		fmt.Fprintf(a.Out, "Task %d unassigned.\n", id)
		return nil
	}

	user, err := a.Store.GetUser(*assigneeID)
	if errors.Is(err, db.ErrUserNotFound) {
		// The store kept the task but dropped the unknown assignee.
		a.warnMissingAssignee(*assigneeID)
		fmt.Fprintf(a.Out, "Task %d unassigned.\n", id)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Out, "Task %d assigned to %s.\n", id, user.Name)
	return nil
}

func (a *App) deleteTask(args []string) error {
	const usage = "delete-task ID"
	if err := expectArgs(usage, args, 1); err != nil {
		return err
	}
	id, err := parseID(usage, "task", args[0])
	if err != nil {
		return err
	}

	deleted, err := a.Store.DeleteTask(id)
	if err != nil {
		return err
	}
	if !deleted {
		return withMessage(db.ErrTaskNotFound, "no task with id %d (0 rows deleted)", id)
	}
	fmt.Fprintf(a.Out, "Task %d deleted.\n", id)
	return nil
}

// warnMissingAssignee tells the user an assignee id was stored as NULL. It goes
// to stderr directly so the log level cannot hide it.
func (a *App) warnMissingAssignee(id int64) {
	fmt.Fprintf(a.Err, "Warning: no user with id %d; storing assignee as NULL\n", id)
}

// splitList splits a comma separated flag value, dropping empty items
func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// optionalID parses an id flag value; empty means "not given"
func optionalID(usage, value string) (*int64, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	id, err := parseID(usage, "user", value)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// FormatTaskLine renders a task as a single list line
func FormatTaskLine(t models.Task) string {
	return fmt.Sprintf("#%d [%s] %s (%s) %s", t.ID, t.Status, t.Title, assigneeLabel(t), t.CreatedAt.Format(time.DateTime))
}

func assigneeLabel(t models.Task) string {
	if t.AssigneeID == nil {
		return "unassigned"
	}
	return fmt.Sprintf("%s #%d", t.AssigneeName, *t.AssigneeID)
}
