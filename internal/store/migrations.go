package store

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationRunner applies the PostgreSQL schema migrations embedded in the
// binary.
type MigrationRunner struct {
	migrate *migrate.Migrate
	log     *logrus.Logger
}

// NewMigrationRunner creates a runner for the database at databaseURL
// (postgres:// scheme).
func NewMigrationRunner(databaseURL string, logger *logrus.Logger) (*MigrationRunner, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("creating migration instance: %w", err)
	}
	return &MigrationRunner{migrate: m, log: logger}, nil
}

// Up runs all pending migrations
func (mr *MigrationRunner) Up() error {
	if err := mr.migrate.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			mr.log.Debug("Run store schema is up to date")
			return nil
		}
		return fmt.Errorf("running migrations up: %w", err)
	}
	mr.logVersion("Run store schema migrated")
	return nil
}

// Down rolls back one migration
func (mr *MigrationRunner) Down() error {
	if err := mr.migrate.Steps(-1); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return nil
		}
		return fmt.Errorf("rolling back migration: %w", err)
	}
	mr.logVersion("Run store migration rolled back")
	return nil
}

// Version returns the current migration version
func (mr *MigrationRunner) Version() (uint, bool, error) {
	return mr.migrate.Version()
}

func (mr *MigrationRunner) logVersion(msg string) {
	version, dirty, err := mr.migrate.Version()
	if err != nil {
		mr.log.WithError(err).Debug(msg)
		return
	}
	mr.log.WithFields(logrus.Fields{"version": version, "dirty": dirty}).Info(msg)
}

// Close closes the migration runner
func (mr *MigrationRunner) Close() error {
	sourceErr, dbErr := mr.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("closing migration source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("closing migration database: %w", dbErr)
	}
	return nil
}

// MigratePostgres brings the schema at databaseURL up to date.
func MigratePostgres(databaseURL string, logger *logrus.Logger) error {
	mr, err := NewMigrationRunner(databaseURL, logger)
	if err != nil {
		return err
	}
	defer mr.Close()
	return mr.Up()
}
