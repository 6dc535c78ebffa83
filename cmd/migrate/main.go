package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cafe/backend/internal/infrastructure/config"
	"github.com/cafe/backend/internal/infrastructure/logger"
	"github.com/cafe/backend/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	var (
		migrationsPath string
		logLevel       string
	)
	flag.StringVar(&migrationsPath, "path", "migrations", "Path to the migrations directory")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}
	command := args[0]

	log := logger.New(&logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	defer func() {
		_ = log.Sync()
	}()

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		log.Fatal("invalid migrations path", zap.Error(err))
	}

	if command == "list" {
		versions, err := migration.ListVersions(absPath)
		if err != nil {
			log.Fatal("failed to read migrations", zap.Error(err))
		}
		for _, v := range versions {
			fmt.Println(v)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatal("failed to ping database", zap.Error(err))
	}

	m, err := migration.New(db, absPath, log)
	if err != nil {
		log.Fatal("failed to create migrator", zap.Error(err))
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("failed to close migrator", zap.Error(err))
		}
	}()

	if err := run(m, command, args[1:], log); err != nil {
		log.Fatal("migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func run(m *migration.Migrator, command string, args []string, log *zap.Logger) error {
	switch command {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "steps":
		n, err := intArg(args, "steps <n>")
		if err != nil {
			return err
		}
		return m.Steps(n)
	case "version":
		status, err := m.Status()
		if err != nil {
			return err
		}
		if !status.Applied {
			log.Info("no migrations applied")
			return nil
		}
		log.Info("current schema version", zap.Uint("version", status.Version), zap.Bool("dirty", status.Dirty))
		return nil
	case "force":
		v, err := intArg(args, "force <version>")
		if err != nil {
			return err
		}
		return m.Force(v)
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func intArg(args []string, usage string) (int, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("missing argument, usage: migrate %s", usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", args[0], err)
	}
	return n, nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Cafe schema migration tool

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                 Apply all pending migrations
  down               Revert all migrations
  steps <n>          Apply n migrations (negative reverts)
  version            Show the current schema version
  force <version>    Record version without running SQL (clears a dirty state)
  list               List migration versions found on disk

Flags:
  -path string       Migrations directory (default: migrations)
  -log-level string  debug, info, warn, error (default: info)

Database settings come from config.toml and CAFE_DATABASE_* variables.`)
}
