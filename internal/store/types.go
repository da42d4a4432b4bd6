// Package store persists interpretation runs so that reports and summaries
// can be listed and exported after the fact.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/amrrules-interpreter/internal/domain"
)

// ErrRunNotFound is returned by Get when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// ErrUnknownDriver is returned by Open for unsupported drivers.
var ErrUnknownDriver = errors.New("unknown store driver")

// Run is one persisted interpretation run.
type Run struct {
	ID              string                `json:"id"`
	CreatedAt       time.Time             `json:"created_at"`
	RulesetVersion  string                `json:"ruleset_version"`
	DatabaseVersion string                `json:"database_version"`
	Samples         int                   `json:"samples"`
	Matched         int                   `json:"matched"`
	Unmatched       int                   `json:"unmatched"`
	Report          domain.RunReport      `json:"report"`
	Summary         []domain.SummaryEntry `json:"summary"`
}

// NewRun builds a Run from a finished run report and its summary entries.
// The report's run ID is reused when present.
func NewRun(report domain.RunReport, summary []domain.SummaryEntry) *Run {
	id := report.RunID
	if id == "" {
		id = uuid.NewString()
	}
	created := report.FinishedAt
	if created.IsZero() {
		created = time.Now()
	}
	return &Run{
		ID:              id,
		CreatedAt:       created.UTC(),
		RulesetVersion:  report.RulesetVersion,
		DatabaseVersion: report.DatabaseVersion,
		Samples:         report.Samples,
		Matched:         report.Matched,
		Unmatched:       report.Unmatched,
		Report:          report,
		Summary:         summary,
	}
}

// Store defines the interface for run storage operations.
type Store interface {
	// Save stores a run. A run with the same ID is replaced.
	Save(ctx context.Context, run *Run) error

	// Get retrieves a run by ID, or ErrRunNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns runs newest first with pagination.
	List(ctx context.Context, limit, offset int) ([]*Run, error)

	// Count returns the total number of stored runs.
	Count(ctx context.Context) (int64, error)

	// Delete removes a run by ID.
	Delete(ctx context.Context, id string) error

	// ExportJSON writes every stored run to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads an export and stores the runs not already present.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)

	// Close closes the store and releases resources.
	Close() error
}

// RunExport is the JSON export format.
type RunExport struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Runs       []*Run    `json:"runs"`
}

const (
	exportVersion  = "1.0"
	maxExportLimit = 1000000
)

// Open creates the store selected by cfg.Driver. PostgreSQL schemas are
// migrated before the store is returned.
func Open(cfg domain.StoreConfig, logger *logrus.Logger) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "sqlite", "sqlite3":
		return NewSQLiteStore(cfg.DSN)
	case "postgres", "postgresql", "pgx":
		if err := MigratePostgres(cfg.DSN, logger); err != nil {
			return nil, err
		}
		driverName := "postgres"
		if strings.EqualFold(cfg.Driver, "pgx") {
			driverName = "pgx"
		}
		return NewPostgresStoreFromURL(driverName, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	var report, summary []byte
	err := s.Scan(
		&run.ID, &run.CreatedAt, &run.RulesetVersion, &run.DatabaseVersion,
		&run.Samples, &run.Matched, &run.Unmatched, &report, &summary,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(report, &run.Report); err != nil {
		return nil, fmt.Errorf("failed to decode report of run %s: %w", run.ID, err)
	}
	if err := json.Unmarshal(summary, &run.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode summary of run %s: %w", run.ID, err)
	}
	return run, nil
}

func encodeRun(run *Run) (report, summary []byte, err error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	if report, err = json.Marshal(run.Report); err != nil {
		return nil, nil, fmt.Errorf("failed to encode report: %w", err)
	}
	entries := run.Summary
	if entries == nil {
		entries = []domain.SummaryEntry{}
	}
	if summary, err = json.Marshal(entries); err != nil {
		return nil, nil, fmt.Errorf("failed to encode summary: %w", err)
	}
	return report, summary, nil
}

func writeExport(writer io.Writer, runs []*Run) error {
	export := &RunExport{
		Version:    exportVersion,
		ExportedAt: time.Now(),
		Count:      len(runs),
		Runs:       runs,
	}
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// importRuns saves the exported runs that s does not already hold.
func importRuns(ctx context.Context, s Store, reader io.Reader) (imported int, skipped int, err error) {
	var export RunExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, run := range export.Runs {
		_, err := s.Get(ctx, run.ID)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, ErrRunNotFound) {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if err := s.Save(ctx, run); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}
	return imported, skipped, nil
}
