package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"example.com/signup/internal/events"
)

// Execer is the slice of pgxpool.Pool the handler needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const insertRosterEvent = `INSERT INTO roster_event_log
    (event_id, event_type, activity, email, roster_size, occurred_at, schema_id, schema_subject, topic, partition, record_offset, payload, received_at, actor)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
    ON CONFLICT (event_id) DO NOTHING`

// PersistenceHandler appends consumed roster events to the Postgres audit log.
// Redelivered events are ignored by event_id.
type PersistenceHandler struct {
	db Execer
}

// NewPersistenceHandler constructs a handler backed by the provided pool.
func NewPersistenceHandler(db Execer) *PersistenceHandler {
	return &PersistenceHandler{db: db}
}

// Handle stores the event in roster_event_log.
func (h *PersistenceHandler) Handle(ctx context.Context, msg Message) error {
	var event events.RosterEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return fmt.Errorf("decode roster event: %w", err)
	}
	if event.EventID == "" {
		event.EventID = msg.EventID
	}
	if event.EventID == "" {
		return fmt.Errorf("roster event at %s/%d/%d has no event_id", msg.Topic, msg.Partition, msg.Offset)
	}

	_, err := h.db.Exec(ctx, insertRosterEvent,
		event.EventID,
		msg.EventType,
		event.Activity,
		event.Email,
		event.RosterSize,
		event.OccurredAt,
		msg.SchemaID,
		msg.SchemaSubject,
		msg.Topic,
		msg.Partition,
		msg.Offset,
		[]byte(msg.Payload),
		msg.Timestamp,
		event.Actor,
	)
	if err != nil {
		return fmt.Errorf("insert roster event %s: %w", event.EventID, err)
	}
	return nil
}
