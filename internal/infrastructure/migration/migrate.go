// Package migration manages the billing schema (customers, quotes, invoices,
// payments) with golang-migrate, and stamps out new migration file pairs.
package migration

import (
	"database/sql"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrator wraps golang-migrate with logging and ErrNoChange handling, so
// "already up to date" is a log line rather than an error.
type Migrator struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// New builds a Migrator over an open postgres connection.
func New(db *sql.DB, migrationsPath string, logger *zap.Logger) (*Migrator, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{migrate: m, logger: logger}, nil
}

// run executes a golang-migrate operation, treating ErrNoChange as a
// no-op. Returns whether anything was applied.
func (m *Migrator) run(action string, fn func() error) (bool, error) {
	m.logger.Info("Running schema migration", zap.String("action", action))

	switch err := fn(); err {
	case nil:
		return true, nil
	case migrate.ErrNoChange:
		m.logger.Info("Schema already up to date", zap.String("action", action))
		return false, nil
	default:
		return false, fmt.Errorf("migration %s failed: %w", action, err)
	}
}

func (m *Migrator) logVersion(message string) {
	version, dirty, err := m.migrate.Version()
	if err != nil && err != migrate.ErrNilVersion {
		m.logger.Warn("Could not read schema version", zap.Error(err))
		return
	}
	m.logger.Info(message, zap.Uint("version", version), zap.Bool("dirty", dirty))
}

// Up applies every pending migration.
func (m *Migrator) Up() error {
	applied, err := m.run("up", m.migrate.Up)
	if err != nil {
		return err
	}
	if applied {
		m.logVersion("Migrations applied")
	}
	return nil
}

// Down rolls back every migration.
func (m *Migrator) Down() error {
	applied, err := m.run("down", m.migrate.Down)
	if err != nil {
		return err
	}
	if applied {
		m.logger.Info("All migrations rolled back")
	}
	return nil
}

// Steps applies n migrations; negative n rolls back.
func (m *Migrator) Steps(n int) error {
	applied, err := m.run(fmt.Sprintf("step %d", n), func() error {
		return m.migrate.Steps(n)
	})
	if err != nil {
		return err
	}
	if applied {
		m.logVersion("Migration steps applied")
	}
	return nil
}

// GoTo migrates up or down to the given version.
func (m *Migrator) GoTo(version uint) error {
	applied, err := m.run(fmt.Sprintf("goto %d", version), func() error {
		return m.migrate.Migrate(version)
	})
	if err != nil {
		return err
	}
	if applied {
		m.logger.Info("Migrated to version", zap.Uint("version", version))
	}
	return nil
}

// Version reports the current schema version. A database with no applied
// migrations reports version 0 rather than an error.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if err != nil {
		if err == migrate.ErrNilVersion {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// Force overwrites the recorded version without running SQL. Only for
// recovering a dirty schema after a failed migration.
func (m *Migrator) Force(version int) error {
	m.logger.Warn("Forcing migration version", zap.Int("version", version))

	if err := m.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}

	m.logger.Info("Migration version forced", zap.Int("version", version))
	return nil
}

// Drop destroys every object in the database, ledger included. The CLI
// requires an explicit confirmation flag before calling this.
func (m *Migrator) Drop() error {
	m.logger.Warn("Dropping database - all data will be lost")

	if err := m.migrate.Drop(); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}

	m.logger.Info("Database dropped")
	return nil
}

// Close releases the source and database handles.
func (m *Migrator) Close() error {
	sourceErr, dbErr := m.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close database: %w", dbErr)
	}
	return nil
}
