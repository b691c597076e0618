package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/tgienger/taskflow/internal/config"
)

func init() {
	zerolog.TimestampFieldName = "timestamp"
}

// Level picks the log level: an explicit TASKFLOW_LOG_LEVEL wins, otherwise
// it follows the environment.
func Level(cfg config.Config) (zerolog.Level, error) {
	if cfg.LogLevel != "" {
		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return zerolog.NoLevel, fmt.Errorf("parse log level: %w", err)
		}
		return level, nil
	}

	switch cfg.Env {
	case config.EnvLocal:
		return zerolog.TraceLevel, nil
	case config.EnvDev:
		return zerolog.DebugLevel, nil
	case config.EnvProd:
		return zerolog.WarnLevel, nil
	}
	return zerolog.NoLevel, fmt.Errorf("unknown env: %s", cfg.Env)
}

// NewConsole builds the logger used by CLI commands: human-readable output on w
func NewConsole(cfg config.Config, w io.Writer) (zerolog.Logger, error) {
	level, err := Level(cfg)
	if err != nil {
		return zerolog.Nop(), err
	}

	consoleWriter := zerolog.NewConsoleWriter()
	consoleWriter.TimeFormat = time.DateTime
	consoleWriter.Out = w

	return zerolog.New(consoleWriter).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

// NewFile builds the logger used while the form UI owns the terminal.
// It appends JSON lines to path; the returned closer releases the file.
func NewFile(cfg config.Config, path string) (zerolog.Logger, io.Closer, error) {
	level, err := Level(cfg)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	log := zerolog.New(f).
		Level(level).
		With().
		Timestamp().
		Int("pid", os.Getpid()).
		Logger()
	return log, f, nil
}
