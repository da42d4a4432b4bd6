package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open PostgreSQL connection.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL opens a PostgreSQL run store from a connection URL
// using the named database/sql driver ("postgres" for lib/pq, "pgx" for pgx).
// The schema is expected to be migrated already.
func NewPostgresStoreFromURL(driverName, databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open(driverName, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Save stores a run, replacing any run with the same ID.
func (s *PostgresStore) Save(ctx context.Context, run *Run) error {
	report, summary, err := encodeRun(run)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			created_at = EXCLUDED.created_at,
			ruleset_version = EXCLUDED.ruleset_version,
			database_version = EXCLUDED.database_version,
			samples = EXCLUDED.samples,
			matched = EXCLUDED.matched,
			unmatched = EXCLUDED.unmatched,
			report = EXCLUDED.report,
			summary = EXCLUDED.summary
	`
	_, err = s.db.ExecContext(ctx, query,
		run.ID, run.CreatedAt, run.RulesetVersion, run.DatabaseVersion,
		run.Samples, run.Matched, run.Unmatched, string(report), string(summary),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *PostgresStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = $1`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// List returns runs newest first.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Run, error) {
	query := `
		SELECT ` + runColumns + `
		FROM runs
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var result []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, run)
	}
	return result, rows.Err()
}

// Count returns the total number of stored runs.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// Delete removes a run by ID.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = $1", id); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// ExportJSON writes every stored run to writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	return writeExport(writer, all)
}

// ImportJSON stores the exported runs not already present.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return importRuns(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
