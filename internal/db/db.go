package db

import (
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

// Driver names registered by the two SQLite drivers
const (
	DriverCGO  = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPure = "sqlite"  // modernc.org/sqlite
)

// Options configures Open. Path is required.
type Options struct {
	Path   string
	Driver string // defaults to DriverCGO
	Logger zerolog.Logger
}

// DB wraps the database connection
type DB struct {
	*sql.DB
	path string
	log  zerolog.Logger
}

// Open creates the parent directory, opens the database file and applies the schema
func Open(opts Options) (*DB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("db path is required")
	}
	driver := opts.Driver
	if driver == "" {
		driver = DriverCGO
	}

	dsn, err := dataSourceName(driver, opts.Path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	// One connection for the whole process; foreign keys are a per-connection setting.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{DB: sqlDB, path: opts.Path, log: opts.Logger.With().Str("component", "db").Logger()}
	if err := db.InitSchema(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	db.log.Debug().Str("path", opts.Path).Str("driver", driver).Msg("opened database")
	return db, nil
}

// dataSourceName builds a file: URI that enables foreign keys for the given
// driver. The path is escaped so '?' or '#' in a directory name stays part of
// the filename.
func dataSourceName(driver, path string) (string, error) {
	var query string
	switch driver {
	case DriverCGO:
		query = "_foreign_keys=on"
	case DriverPure:
		query = "_pragma=foreign_keys(1)"
	default:
		return "", fmt.Errorf("unknown sqlite driver %q", driver)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve db path: %w", err)
	}
	// Windows drive paths need a leading slash to form file:///C:/...
	uriPath := filepath.ToSlash(abs)
	if !strings.HasPrefix(uriPath, "/") {
		uriPath = "/" + uriPath
	}

	u := url.URL{Scheme: "file", Path: uriPath, RawQuery: query}
	return u.String(), nil
}

// InitSchema creates the users and tasks tables. Safe to call repeatedly.
func (db *DB) InitSchema() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Path returns the database file location
func (db *DB) Path() string {
	return db.path
}
