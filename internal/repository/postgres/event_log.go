package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/messaging"
	"github.com/google/uuid"
)

// EventLog appends every published order event to the order_events table,
// numbering events per order.
type EventLog struct {
	db  *sql.DB
	now entity.Clock
}

var _ messaging.Publisher = (*EventLog)(nil)

// NewEventLog creates an EventLog backed by db.
func NewEventLog(db *sql.DB) *EventLog {
	return &EventLog{db: db, now: time.Now}
}

// EventRecord is one stored row of the log.
type EventRecord struct {
	ID        string
	OrderID   string
	Version   int
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

func (l *EventLog) PublishEvent(ctx context.Context, topic string, event entity.Event) error {
	payload, err := messaging.Encode(event)
	if err != nil {
		return err
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Serializes writers of one order until commit, so MAX(version)+1 is unique.
	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", event.AggregateID()); err != nil {
		return fmt.Errorf("failed to lock event stream: %w", err)
	}

	var current int
	err = tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM order_events WHERE order_id = $1", event.AggregateID()).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to get current event version: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO order_events (id, order_id, version, event_type, payload, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		uuid.NewString(), event.AggregateID(), current+1, event.EventType(), string(payload), l.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event %s: %w", event.EventType(), mapError(err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// LoadEvents returns the events of one order, oldest first.
func (l *EventLog) LoadEvents(ctx context.Context, orderID string) ([]EventRecord, error) {
	rows, err := l.db.QueryContext(ctx, "SELECT id, order_id, version, event_type, payload, created_at FROM order_events WHERE order_id = $1 ORDER BY version ASC", orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load events for order %s: %w", orderID, err)
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var record EventRecord
		if err := rows.Scan(&record.ID, &record.OrderID, &record.Version, &record.EventType, &record.Payload, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event record: %w", err)
		}
		events = append(events, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return events, nil
}
