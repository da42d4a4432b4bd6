package store

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/amrrules-interpreter/internal/domain"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("amrrules"),
		postgres.WithUsername("amrrules"),
		postgres.WithPassword("amrrules"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Skipf("PostgreSQL container unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate PostgreSQL container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresIntegration_MigrationsAndRoundTrip(t *testing.T) {
	dsn := startPostgres(t)
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	runner, err := NewMigrationRunner(dsn, logger)
	require.NoError(t, err)
	require.NoError(t, runner.Up())
	require.NoError(t, runner.Up())
	version, dirty, err := runner.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, runner.Close())

	for _, driver := range []string{"postgres", "pgx"} {
		t.Run(driver, func(t *testing.T) {
			s, err := Open(domain.StoreConfig{Driver: driver, DSN: dsn}, logger)
			require.NoError(t, err)
			defer s.Close()

			ctx := context.Background()
			at := time.Date(2024, 8, 1, 10, 0, 0, 0, time.UTC)
			run := testRun("run-"+driver, at)
			require.NoError(t, s.Save(ctx, run))

			got, err := s.Get(ctx, run.ID)
			require.NoError(t, err)
			assert.True(t, at.Equal(got.CreatedAt))
			assert.Equal(t, run.Summary, got.Summary)
			assert.Equal(t, run.Report.Skipped, got.Report.Skipped)

			require.NoError(t, s.Delete(ctx, run.ID))
			_, err = s.Get(ctx, run.ID)
			assert.ErrorIs(t, err, ErrRunNotFound)
		})
	}

	runner, err = NewMigrationRunner(dsn, logger)
	require.NoError(t, err)
	defer runner.Close()
	require.NoError(t, runner.Down())
}
