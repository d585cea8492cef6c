// Package dbtest starts a migrated Postgres for repository integration tests.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"vehicle_inspection_backend/migrations"
	"vehicle_inspection_backend/platform/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const startupTimeout = 2 * time.Minute

// NewPool returns a pool on a freshly migrated database. Tests are skipped
// unless INTEGRATION_TESTS=1 or TEST_DATABASE_URL is set. With
// TEST_DATABASE_URL the given database is reused and its tables truncated.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" && os.Getenv("INTEGRATION_TESTS") != "1" {
		t.Skip("set INTEGRATION_TESTS=1 or TEST_DATABASE_URL to run Postgres integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	if dsn == "" {
		container, err := postgres.Run(ctx,
			"postgres:16",
			postgres.WithDatabase("inspections_test"),
			postgres.WithUsername("testuser"),
			postgres.WithPassword("testpass"),
			postgres.BasicWaitStrategies(),
		)
		if err != nil {
			t.Fatalf("start postgres container: %v", err)
		}
		t.Cleanup(func() { _ = container.Terminate(context.Background()) })

		dsn, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			t.Fatalf("connection string: %v", err)
		}
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := db.RunMigrations(ctx, pool, migrations.FS); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE accounts, appointments, payments, inspections,
		notification_outbox, notifications, file_uploads, audit_log`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}
