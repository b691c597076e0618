package models

import (
	"errors"
	"strings"
	"time"
)

// Status is the workflow state of a task
type Status string

const (
	StatusTodo  Status = "todo"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

// ErrInvalidStatus is returned for any status outside todo, doing, done
var ErrInvalidStatus = errors.New("status must be one of: todo, doing, done")

// Statuses returns every valid status in workflow order
func Statuses() []Status {
	return []Status{StatusTodo, StatusDoing, StatusDone}
}

// ParseStatus normalizes user input (trim, lower-case) and validates it
func ParseStatus(value string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(value)))
	switch s {
	case StatusTodo, StatusDoing, StatusDone:
		return s, nil
	}
	return "", ErrInvalidStatus
}

func (s Status) String() string {
	return string(s)
}

// User is a named actor that tasks can be assigned to
type User struct {
	ID   int64
	Name string
}

// Task represents a single unit of work
type Task struct {
	ID           int64
	Title        string
	Description  string // empty when NULL
	Status       Status
	AssigneeID   *int64 // nil if unassigned
	AssigneeName string // populated by joined queries
	CreatedAt    time.Time
	UpdatedAt    *time.Time // nil until the first update
}

// Assigned reports whether the task has an assignee
func (t Task) Assigned() bool {
	return t.AssigneeID != nil
}

// TaskFilter narrows ListTasks. Zero values mean "no filter".
type TaskFilter struct {
	Status     string
	AssigneeID *int64
	Query      string
}
