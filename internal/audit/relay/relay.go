// Package relay drains the audit outbox into Kafka. The outbox insert commits
// with the business write; this worker makes delivery eventually consistent
// without putting Kafka on the request path.
package relay

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Producer publishes one audit payload. The Kafka implementation lives in
// kafka.go; tests use an in-memory fake.
type Producer interface {
	Produce(ctx context.Context, key string, payload []byte) error
}

// Worker polls the outbox table and publishes unpublished entries in insert
// order. Rows are locked with SKIP LOCKED so multiple replicas can share the
// drain without double-publishing.
type Worker struct {
	db           *sql.DB
	producer     Producer
	logger       *slog.Logger
	pollInterval time.Duration
	batchSize    int
}

func NewWorker(db *sql.DB, producer Producer, logger *slog.Logger) *Worker {
	return &Worker{
		db:           db,
		producer:     producer,
		logger:       logger,
		pollInterval: 2 * time.Second,
		batchSize:    100,
	}
}

// Run drains until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.DrainOnce(ctx); err != nil {
				w.logger.WarnContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

// DrainOnce publishes up to one batch of pending outbox entries.
func (w *Worker) DrainOnce(ctx context.Context) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outbox tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, aggregate_id, payload
		FROM outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, w.batchSize)
	if err != nil {
		return fmt.Errorf("select outbox entries: %w", err)
	}

	type entry struct {
		id          uuid.UUID
		aggregateID string
		payload     []byte
	}
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.aggregateID, &e.payload); err != nil {
			rows.Close()
			return fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, e := range entries {
		// Keyed by aggregate so per-asset ordering survives partitioning.
		if err := w.producer.Produce(ctx, e.aggregateID, e.payload); err != nil {
			return fmt.Errorf("produce outbox entry %s: %w", e.id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE outbox SET published_at = $2 WHERE id = $1`,
			e.id, time.Now(),
		); err != nil {
			return fmt.Errorf("mark outbox entry %s published: %w", e.id, err)
		}
	}

	return tx.Commit()
}
