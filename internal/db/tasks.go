package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tgienger/taskflow/internal/models"
)

const selectTask = `
	SELECT t.id, t.title, t.description, t.status, t.assignee_id, u.name, t.created_at, t.updated_at
	FROM tasks t
	LEFT JOIN users u ON t.assignee_id = u.id
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (models.Task, error) {
	var (
		t            models.Task
		description  sql.NullString
		assigneeName sql.NullString
		updatedAt    sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Title, &description, &t.Status, &t.AssigneeID, &assigneeName, &t.CreatedAt, &updatedAt)
	if err != nil {
		return models.Task{}, err
	}
	t.Description = description.String
	t.AssigneeName = assigneeName.String
	if updatedAt.Valid {
		t.UpdatedAt = &updatedAt.Time
	}
	return t, nil
}

// CreateTask creates a new task in the todo state. An assignee that does not
// exist is stored as NULL and a warning is logged.
func (db *DB) CreateTask(title, description string, assigneeID *int64) (*models.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	assigneeID, err := db.resolveAssignee(assigneeID)
	if err != nil {
		return nil, err
	}

	result, err := db.Exec(`
		INSERT INTO tasks (title, description, assignee_id) VALUES (?, ?, ?)
	`, title, nullableText(description), nullableID(assigneeID))
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	db.log.Debug().Int64("task_id", id).Msg("created task")
	return db.GetTask(id)
}

// GetTask retrieves a task by ID with its assignee name
func (db *DB) GetTask(id int64) (*models.Task, error) {
	t, err := scanTask(db.QueryRow(selectTask+" WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTasks returns tasks matching the filter, oldest first
func (db *DB) ListTasks(filter models.TaskFilter) ([]models.Task, error) {
	var (
		where []string
		args  []any
	)

	if strings.TrimSpace(filter.Status) != "" {
		status, err := models.ParseStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		where = append(where, "t.status = ?")
		args = append(args, string(status))
	}

	if filter.AssigneeID != nil {
		if *filter.AssigneeID < 1 {
			return nil, ErrInvalidAssignee
		}
		where = append(where, "t.assignee_id = ?")
		args = append(args, *filter.AssigneeID)
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		where = append(where, `t.title LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(q)+"%")
	}

	query := selectTask
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY t.created_at, t.id"

	return db.queryTasks(query, args...)
}

// ListTasksByStatuses returns tasks in any of the given states with a single query
func (db *DB) ListTasksByStatuses(statuses []string) ([]models.Task, error) {
	if len(statuses) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(statuses))
	for _, value := range statuses {
		status, err := models.ParseStatus(value)
		if err != nil {
			return nil, err
		}
		args = append(args, string(status))
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	query := selectTask + " WHERE t.status IN (" + placeholders + ") ORDER BY t.created_at, t.id"
	return db.queryTasks(query, args...)
}

func (db *DB) queryTasks(query string, args ...any) ([]models.Task, error) {
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTaskStatus sets the status of a task. Returns false if no task has that ID.
func (db *DB) UpdateTaskStatus(id int64, status string) (bool, error) {
	s, err := models.ParseStatus(status)
	if err != nil {
		return false, err
	}

	result, err := db.Exec(`
		UPDATE tasks SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, string(s), id)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// UpdateTask replaces the title, description and assignee of a task
func (db *DB) UpdateTask(id int64, title, description string, assigneeID *int64) (bool, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return false, ErrEmptyTitle
	}

	assigneeID, err := db.resolveAssignee(assigneeID)
	if err != nil {
		return false, err
	}

	result, err := db.Exec(`
		UPDATE tasks
		SET title = ?, description = ?, assignee_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, title, nullableText(description), nullableID(assigneeID), id)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// UpdateTaskAssignee assigns a task to a user, or unassigns it when assigneeID is nil
func (db *DB) UpdateTaskAssignee(id int64, assigneeID *int64) (bool, error) {
	assigneeID, err := db.resolveAssignee(assigneeID)
	if err != nil {
		return false, err
	}

	result, err := db.Exec(`
		UPDATE tasks SET assignee_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, nullableID(assigneeID), id)
	if err != nil {
		return false, err
	}
	return affected(result)
}

// DeleteTask deletes a task
func (db *DB) DeleteTask(id int64) (bool, error) {
	result, err := db.Exec("DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	found, err := affected(result)
	if found {
		db.log.Debug().Int64("task_id", id).Msg("deleted task")
	}
	return found, err
}

// resolveAssignee validates an assignee ID against the live user set.
// Unknown users resolve to nil so the task is stored unassigned.
func (db *DB) resolveAssignee(assigneeID *int64) (*int64, error) {
	if assigneeID == nil {
		return nil, nil
	}
	if *assigneeID < 1 {
		return nil, ErrInvalidAssignee
	}

	exists, err := db.UserExists(*assigneeID)
	if err != nil {
		return nil, fmt.Errorf("check assignee: %w", err)
	}
	if !exists {
		db.log.Warn().Int64("assignee_id", *assigneeID).Msg("no user with this id; storing assignee as NULL")
		return nil, nil
	}
	id := *assigneeID
	return &id, nil
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// nullableText trims s and maps the empty string to NULL
func nullableText(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
