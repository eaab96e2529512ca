// companies-tui is a terminal UI for browsing companies, filtering them by
// category and editing each company's notes and assigned salesperson.
package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/pdxmph/companies-tui/internal/config"
	"github.com/pdxmph/companies-tui/internal/db"
	"github.com/pdxmph/companies-tui/internal/logging"
	"github.com/pdxmph/companies-tui/internal/notes"
	"github.com/pdxmph/companies-tui/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath, dbPath, backend, endpoint, fixturesPath string
	var initDB bool

	flagSet := pflag.NewFlagSet("companies-tui", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to config file (default: ~/.config/companies-tui/config.toml)")
	flagSet.StringVar(&dbPath, "db", "", "path to the companies database (overrides config)")
	flagSet.StringVar(&backend, "backend", "", "notes backend: http, local or noop (default: first usable)")
	flagSet.StringVar(&endpoint, "endpoint", "", "base URL of the notes endpoint, e.g. http://localhost:8080")
	flagSet.BoolVar(&initDB, "init", false, "create an empty database and exit")
	flagSet.StringVar(&fixturesPath, "fixtures", "", "create a database with sample companies at this path and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	if fixturesPath != "" {
		if err := db.CreateFixturesDatabase(fixturesPath); err != nil {
			return fmt.Errorf("creating fixtures: %w", err)
		}
		fmt.Printf("Created fixtures database at %s\n", fixturesPath)
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if backend != "" {
		cfg.Notes.Backend = backend
	}
	if endpoint != "" {
		cfg.Notes.Endpoint = endpoint
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if initDB {
		if err := db.Initialize(cfg.Database.Path); err != nil {
			return err
		}
		fmt.Printf("Created database at %s\n", cfg.Database.Path)
		return nil
	}

	// The screen owns stdout, so logs go to a file or nowhere
	logger, closeLog, err := logging.New(cfg.Log, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	database, err := db.Open(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer database.Close()

	manager, err := notes.NewManager(cfg.Notes.Backend, notes.Options{
		Endpoint: cfg.Notes.Endpoint,
		Timeout:  cfg.Notes.Timeout.Duration,
		Store:    database,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	logger.Info("starting companies-tui", "database", cfg.Database.Path, "notes_backend", manager.Name())

	model, err := tui.New(database, tui.Options{
		Saver:                manager,
		Logger:               logger,
		NotificationDuration: cfg.UI.NotificationDuration.Duration,
	})
	if err != nil {
		return err
	}

	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = program.Run()
	return err
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `companies-tui: browse companies and edit their notes.

Notes are saved through the configured backend: "http" posts to a
companies-server, "local" writes straight into the database.

Usage:
  companies-tui [flags]

Flags:
%s
Keys:
  j/k     move            /   filter by name
  f       categories      e   edit notes
  r       reload          q   quit
`, flagSet.FlagUsages())
}
