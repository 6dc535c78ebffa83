// Package migration applies the SQL files under migrations/ with golang-migrate.
package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator runs schema migrations against one database
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// Status is the schema version recorded in schema_migrations
type Status struct {
	Version uint
	Dirty   bool
	// Applied is false on a database that never ran a migration
	Applied bool
}

// New creates a Migrator on an open postgres connection
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL(migrationsPath), "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return &Migrator{migrate: m, logger: logger}, nil
}

func sourceURL(migrationsPath string) string {
	return "file://" + migrationsPath
}

// Up applies every pending migration
func (m *Migrator) Up() error {
	m.logger.Info("applying migrations")
	if err := m.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("schema is up to date")
			return nil
		}
		return fmt.Errorf("migrate up: %w", err)
	}
	return m.logCurrent("migrations applied")
}

// Down reverts every applied migration
func (m *Migrator) Down() error {
	m.logger.Warn("reverting all migrations")
	if err := m.migrate.Down(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("nothing to revert")
			return nil
		}
		return fmt.Errorf("migrate down: %w", err)
	}
	m.logger.Info("all migrations reverted")
	return nil
}

// Steps applies n migrations, reverting when n is negative
func (m *Migrator) Steps(n int) error {
	if n == 0 {
		return nil
	}
	m.logger.Info("running migration steps", zap.Int("steps", n))
	if err := m.migrate.Steps(n); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			m.logger.Info("schema is up to date")
			return nil
		}
		return fmt.Errorf("migrate %d steps: %w", n, err)
	}
	return m.logCurrent("migration steps applied")
}

// Status returns the current schema version
func (m *Migrator) Status() (Status, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return Status{}, nil
		}
		return Status{}, fmt.Errorf("read schema version: %w", err)
	}
	return Status{Version: version, Dirty: dirty, Applied: true}, nil
}

// Force records version without running any SQL. It clears the dirty flag
// left by a migration that failed halfway.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("forcing schema version", zap.Int("version", version))
	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and the database driver
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	return errors.Join(sourceErr, dbErr)
}

func (m *Migrator) logCurrent(msg string) error {
	status, err := m.Status()
	if err != nil {
		return err
	}
	m.logger.Info(msg, zap.Uint("version", status.Version), zap.Bool("dirty", status.Dirty))
	return nil
}
