package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PostgresStore implements Store using the transactional outbox pattern.
// Events are written to the outbox table and published to Kafka by the relay
// worker; the audit_events table materializes them for querying.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append writes an audit event to the outbox table for Kafka publishing and
// materializes it into audit_events in the same statement batch.
func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin audit tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		uuid.New(),
		"asset",
		event.ResourceID,
		string(event.Action),
		payload,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, timestamp, actor, action, resource_id, old_status, new_status, result, detail
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`,
		event.ID,
		event.Timestamp,
		event.Actor,
		string(event.Action),
		event.ResourceID,
		event.OldStatus,
		event.NewStatus,
		string(event.Result),
		event.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	return tx.Commit()
}

func (s *PostgresStore) ListByResource(ctx context.Context, resourceID string) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, actor, action, resource_id, old_status, new_status, result, detail
		FROM audit_events
		WHERE resource_id = $1
		ORDER BY timestamp
	`, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event  Event
			action string
			result string
		)
		if err := rows.Scan(
			&event.ID, &event.Timestamp, &event.Actor, &action, &event.ResourceID,
			&event.OldStatus, &event.NewStatus, &result, &event.Detail,
		); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = Action(action)
		event.Result = Result(result)
		events = append(events, event)
	}
	return events, rows.Err()
}
