// Package changefeed publishes committed entity changes. Mutations append an
// event to the outbox table inside their unit of work; a Relay later ships
// pending rows to Kafka and marks them published.
package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tranquility/internal/storage"
	dErrors "tranquility/pkg/domain-errors"
)

// Operation names the mutation that produced an event.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Event describes one committed entity change.
type Event struct {
	EventID       string    `json:"eventId"`
	EntityID      int64     `json:"entityId"`
	EntityType    string    `json:"entityType"`
	Subtype       string    `json:"subtype,omitempty"`
	Operation     Operation `json:"operation"`
	TransactionID int64     `json:"transactionId"`
	Version       int64     `json:"version"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Pending is an unpublished outbox row.
type Pending struct {
	ID          int64
	EventID     string
	Topic       string
	AggregateID int64
	Payload     []byte
}

// Outbox reads and writes the outbox table.
type Outbox struct {
	exec  storage.Executor
	topic string
}

// NewOutbox creates an Outbox that tags new events with topic.
func NewOutbox(exec storage.Executor, topic string) *Outbox {
	return &Outbox{exec: exec, topic: topic}
}

// Append writes ev to the outbox. Call it inside the mutation's unit of work.
func (o *Outbox) Append(ctx context.Context, ev Event) error {
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode change event: %w", err)
	}
	if _, err := o.exec.Insert(ctx,
		`INSERT INTO outbox (event_id, topic, aggregate_id, payload, created_at) VALUES ($1, $2, $3, $4, $5)`,
		ev.EventID, o.topic, ev.EntityID, string(payload), ev.OccurredAt); err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "append outbox event")
	}
	return nil
}

// Pending lists up to limit unpublished rows in insertion order.
func (o *Outbox) Pending(ctx context.Context, limit int) ([]Pending, error) {
	rows, err := o.exec.Select(ctx,
		`SELECT id, event_id, topic, aggregate_id, payload FROM outbox WHERE published_at IS NULL ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list outbox")
	}
	out := make([]Pending, 0, len(rows))
	for _, r := range rows {
		id, _ := r["id"].(int64)
		agg, _ := r["aggregate_id"].(int64)
		eventID, _ := r["event_id"].(string)
		topic, _ := r["topic"].(string)
		payload, _ := r["payload"].(string)
		out = append(out, Pending{ID: id, EventID: eventID, Topic: topic, AggregateID: agg, Payload: []byte(payload)})
	}
	return out, nil
}

// MarkPublished stamps rows as delivered.
func (o *Outbox) MarkPublished(ctx context.Context, ids []int64, at time.Time) error {
	for _, id := range ids {
		if _, err := o.exec.Update(ctx, `UPDATE outbox SET published_at = $1 WHERE id = $2`, at, id); err != nil {
			return dErrors.Wrap(err, dErrors.CodePersistence, "mark outbox published")
		}
	}
	return nil
}
