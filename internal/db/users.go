package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tgienger/taskflow/internal/models"
)

// CreateUser creates a new user. Names are trimmed and must be unique (case-sensitive).
func (db *DB) CreateUser(name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	result, err := db.Exec("INSERT INTO users (name) VALUES (?)", name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, name)
		}
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	db.log.Debug().Int64("user_id", id).Str("name", name).Msg("created user")
	return &models.User{ID: id, Name: name}, nil
}

// GetUser retrieves a user by ID
func (db *DB) GetUser(id int64) (*models.User, error) {
	u := &models.User{}
	err := db.QueryRow("SELECT id, name FROM users WHERE id = ?", id).Scan(&u.ID, &u.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// ListUsers returns all users ordered by ID
func (db *DB) ListUsers() ([]models.User, error) {
	rows, err := db.Query("SELECT id, name FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Name); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserExists reports whether a user with the given ID is present
func (db *DB) UserExists(id int64) (bool, error) {
	var exists bool
	err := db.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", id).Scan(&exists)
	return exists, err
}

// DeleteUser deletes a user. Their tasks are kept and become unassigned.
func (db *DB) DeleteUser(id int64) (bool, error) {
	result, err := db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		db.log.Debug().Int64("user_id", id).Msg("deleted user")
	}
	return n > 0, nil
}
