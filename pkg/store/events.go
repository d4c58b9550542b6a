package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/agentcore/guardcore/pkg/metricevent"
)

// EventStore persists metric events in batch. The writer (§4.3) is the
// only caller; a single failed BatchInsert call drops the whole batch
// rather than retrying, since the events have already left the ring
// buffer and re-queueing risks unbounded growth.
type EventStore interface {
	BatchInsert(ctx context.Context, events []metricevent.MetricEvent) error
	LoadByID(ctx context.Context, eventID string) (metricevent.MetricEvent, error)
}

// eventStore is the PostgreSQL-backed EventStore. Each event is stored as
// a JSONB payload keyed by its Kind discriminator; this keeps the schema
// stable as new event variants are added, at the cost of querying
// variant-specific fields through JSONB operators rather than columns.
type eventStore struct {
	db *sql.DB
}

// NewEventStore returns an EventStore backed by client's connection pool.
func NewEventStore(client *Client) EventStore {
	return &eventStore{db: client.db}
}

func (s *eventStore) BatchInsert(ctx context.Context, events []metricevent.MetricEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op if Commit succeeded

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metric_events (event_id, tenant_id, kind, event_timestamp, payload, estimated_cost_usd)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (event_id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, event := range events {
		meta := event.EventMeta()
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", meta.EventID, err)
		}

		// NUMERIC columns accept a decimal's string form directly; a nil
		// *string (rather than a nil *decimal.Decimal) avoids a nil-pointer
		// dereference when database/sql probes the value for driver.Valuer.
		var cost *string
		if tokenEvent, ok := event.(metricevent.TokenUsageEvent); ok {
			s := tokenEvent.EstimatedCostUsd.String()
			cost = &s
		}

		if _, err := stmt.ExecContext(ctx, meta.EventID, meta.TenantID, string(event.Kind()), meta.Timestamp, payload, cost); err != nil {
			return fmt.Errorf("insert event %s: %w", meta.EventID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LoadByID reads back one persisted event as its concrete MetricEvent
// variant, used to verify round-trip fidelity (§8).
func (s *eventStore) LoadByID(ctx context.Context, eventID string) (metricevent.MetricEvent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT kind, payload FROM metric_events WHERE event_id = $1
	`, eventID)

	var kind string
	var payload []byte
	if err := row.Scan(&kind, &payload); err != nil {
		return nil, fmt.Errorf("load event %s: %w", eventID, err)
	}

	return metricevent.Decode(metricevent.EventKind(kind), payload)
}
