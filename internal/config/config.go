package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
)

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

const (
	appDirName = "taskflow"
	dbFileName = "taskflow.db"
	logFile    = "taskflow.log"
)

type Config struct {
	Env      string `env:"TASKFLOW_ENV" env-default:"prod"`
	DataDir  string `env:"TASKFLOW_DATA_DIR"`
	DBPath   string `env:"TASKFLOW_DB_PATH"`
	DBDriver string `env:"TASKFLOW_DB_DRIVER" env-default:"sqlite3"`
	LogLevel string `env:"TASKFLOW_LOG_LEVEL"`
}

// LogPath is where the form UI writes its log, next to the database
func (c Config) LogPath() string {
	return filepath.Join(filepath.Dir(c.DBPath), logFile)
}

// DefaultDataDir returns the platform data directory for the application
func DefaultDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		base := os.Getenv("LOCALAPPDATA")
		if base == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			base = filepath.Join(home, "AppData", "Local")
		}
		return filepath.Join(base, "TaskFlow"), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "TaskFlow"), nil
	}

	// XDG data directory or fallback to home directory
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, appDirName), nil
}

// Resolve fills DataDir and DBPath and makes sure the data directory exists.
// A configured directory that cannot be created for permission reasons falls
// back to the platform default.
func (c *Config) Resolve() error {
	defaultDir, err := DefaultDataDir()
	if err != nil {
		return err
	}
	if c.DataDir == "" {
		c.DataDir = defaultDir
	}

	if c.DBPath == "" {
		if err := EnsureDir(c.DataDir); err != nil {
			if !errors.Is(err, fs.ErrPermission) || c.DataDir == defaultDir {
				return err
			}
			c.DataDir = defaultDir
			if err := EnsureDir(c.DataDir); err != nil {
				return err
			}
		}
		c.DBPath = filepath.Join(c.DataDir, dbFileName)
		return nil
	}

	return EnsureDir(filepath.Dir(c.DBPath))
}

func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
