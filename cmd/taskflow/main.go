package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/tgienger/taskflow/internal/cli"
	"github.com/tgienger/taskflow/internal/config"
	"github.com/tgienger/taskflow/internal/db"
	"github.com/tgienger/taskflow/internal/logger"
	"github.com/tgienger/taskflow/internal/ui"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:], config.NewEnvReader(".env")))
}

// run parses the global flags, loads the configuration from reader and
// dispatches to the CLI or the form UI
func run(args []string, reader config.Reader) int {
	fs := flag.NewFlagSet("taskflow", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dbPath := fs.String("db", "", "database file (overrides TASKFLOW_DB_PATH)")
	driver := fs.String("driver", "", "sqlite driver: sqlite3 or sqlite (overrides TASKFLOW_DB_DRIVER)")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.BoolVar(showVersion, "v", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			(&cli.App{}).PrintUsage(os.Stdout)
			return cli.ExitSuccess
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		(&cli.App{}).PrintUsage(os.Stderr)
		return cli.ExitUsage
	}
	if *showVersion {
		fmt.Printf("taskflow %s (commit: %s, built: %s)\n", version, commit, date)
		return cli.ExitSuccess
	}

	cfg, err := reader.Read()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading configuration: %v\n", err)
		return cli.ExitFailure
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *driver != "" {
		cfg.DBDriver = *driver
	}
	if err := cfg.Resolve(); err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving data directory: %v\n", err)
		return cli.ExitFailure
	}

	rest := fs.Args()
	if len(rest) == 0 || rest[0] == "menu" {
		return runUI(*cfg)
	}
	return runCLI(*cfg, rest)
}

func runCLI(cfg config.Config, args []string) int {
	log, err := logger.NewConsole(cfg, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return cli.ExitFailure
	}

	app := &cli.App{Out: os.Stdout, Err: os.Stderr, Log: log}

	// Usage problems are reported without touching the database file.
	if !cli.Known(args[0]) {
		return app.Run(args)
	}

	database, err := openDB(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing database: %v\n", err)
		return cli.ExitFailure
	}
	defer database.Close()

	app.Store = database
	return app.Run(args)
}

func runUI(cfg config.Config) int {
	log, closer, err := logger.NewFile(cfg, cfg.LogPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		return cli.ExitFailure
	}
	defer closer.Close()

	database, err := openDB(cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing database: %v\n", err)
		return cli.ExitFailure
	}
	defer database.Close()

	if err := ui.Run(database, log); err != nil {
		log.Error().Err(err).Msg("form UI exited with error")
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		return cli.ExitFailure
	}
	return cli.ExitSuccess
}

func openDB(cfg config.Config, log zerolog.Logger) (*db.DB, error) {
	return db.Open(db.Options{
		Path:   cfg.DBPath,
		Driver: cfg.DBDriver,
		Logger: log,
	})
}
