//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const schema = `
CREATE TABLE IF NOT EXISTS assets (
	id                UUID PRIMARY KEY,
	serial_number     TEXT NOT NULL,
	model             TEXT NOT NULL,
	status            INTEGER NOT NULL,
	owner             TEXT NOT NULL DEFAULT '',
	sanitization_hash TEXT,
	carbon_credits    BIGINT NOT NULL DEFAULT 0,
	registration_time TIMESTAMPTZ NOT NULL,
	sanitization_time TIMESTAMPTZ,
	recycling_time    TIMESTAMPTZ,
	ledger_tx_ref     TEXT,
	ledger_asset_ref  TEXT,
	version           BIGINT NOT NULL DEFAULT 1,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS assets_serial_number_lower_idx
	ON assets (lower(serial_number));

CREATE TABLE IF NOT EXISTS audit_events (
	id          UUID PRIMARY KEY,
	timestamp   TIMESTAMPTZ NOT NULL,
	actor       TEXT NOT NULL,
	action      TEXT NOT NULL,
	resource_id TEXT NOT NULL,
	old_status  TEXT,
	new_status  TEXT,
	result      TEXT NOT NULL,
	detail      TEXT
);

CREATE INDEX IF NOT EXISTS audit_events_resource_idx
	ON audit_events (resource_id, timestamp);

CREATE TABLE IF NOT EXISTS outbox (
	id             UUID PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        JSONB NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL,
	published_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS outbox_unpublished_idx
	ON outbox (created_at) WHERE published_at IS NULL;
`

// PostgresContainer wraps a testcontainers Postgres instance with the
// project schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("ecotrace_test"),
		tcpostgres.WithUsername("ecotrace"),
		tcpostgres.WithPassword("ecotrace"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open postgres connection: %v", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to ping postgres: %v", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}
}

// TruncateTables empties the given tables. Use between tests for isolation.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	_, err := p.DB.ExecContext(ctx,
		fmt.Sprintf("TRUNCATE TABLE %s CASCADE", strings.Join(tables, ", ")))
	return err
}
