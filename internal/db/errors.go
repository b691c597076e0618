package db

import (
	"errors"

	sqlite3 "github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

var (
	ErrEmptyName       = errors.New("name cannot be empty")
	ErrEmptyTitle      = errors.New("title cannot be empty")
	ErrInvalidAssignee = errors.New("assignee id must be a positive number")
	ErrUserExists      = errors.New("user already exists")
	ErrTaskNotFound    = errors.New("task not found")
	ErrUserNotFound    = errors.New("user not found")
)

// isUniqueViolation reports whether err is a UNIQUE constraint failure from either driver
func isUniqueViolation(err error) bool {
	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return cgoErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pureErr *sqlite.Error
	if errors.As(err, &pureErr) {
		return pureErr.Code() == sqlitelib.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
