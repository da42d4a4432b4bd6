package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const runColumns = `id, created_at, ruleset_version, database_version,
	samples, matched, unmatched, report, summary`

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens the run database at dbPath, creating the file and
// schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite store requires a database path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL lets the API read runs while the CLI writes them.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		ruleset_version TEXT NOT NULL DEFAULT '',
		database_version TEXT NOT NULL DEFAULT '',
		samples INTEGER NOT NULL DEFAULT 0,
		matched INTEGER NOT NULL DEFAULT 0,
		unmatched INTEGER NOT NULL DEFAULT 0,
		report TEXT NOT NULL,
		summary TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Save stores a run, replacing any run with the same ID.
func (s *SQLiteStore) Save(ctx context.Context, run *Run) error {
	report, summary, err := encodeRun(run)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			created_at = excluded.created_at,
			ruleset_version = excluded.ruleset_version,
			database_version = excluded.database_version,
			samples = excluded.samples,
			matched = excluded.matched,
			unmatched = excluded.unmatched,
			report = excluded.report,
			summary = excluded.summary
	`,
		run.ID, run.CreatedAt, run.RulesetVersion, run.DatabaseVersion,
		run.Samples, run.Matched, run.Unmatched, string(report), string(summary),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// Get retrieves a run by ID.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return run, nil
}

// List returns runs newest first.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM runs
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&count)
	return count, err
}

// Delete removes a run by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	return err
}

// ExportJSON writes every stored run to writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	return writeExport(writer, all)
}

// ImportJSON stores the exported runs not already present.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (int, int, error) {
	return importRuns(ctx, s, reader)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
