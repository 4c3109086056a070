package domain

import "time"

// Assignment event types
const (
	EventQueueGenerated   = "queue_generated"
	EventQueueRegenerated = "queue_regenerated"
	EventQueueExhausted   = "queue_exhausted"
	EventQueueFailed      = "queue_failed"
)

// AssignmentEvent is an append-only audit record of a queue lifecycle
// transition. Events are never updated or deleted by the engine; the
// audit insert commits in the same transaction as the state change it
// documents.
type AssignmentEvent struct {
	ID         string     `db:"id"`
	TargetType TargetType `db:"target_type"`
	TargetID   string     `db:"target_id"`
	ActorID    *string    `db:"actor_id"` // nil means the system acted
	EventType  string     `db:"event_type"`
	Payload    Metadata   `db:"payload"`
	CreatedAt  time.Time  `db:"created_at"`
}
