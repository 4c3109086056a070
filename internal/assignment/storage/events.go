package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/gigdesk/assignq/internal/assignment/domain"
)

// insertEvent appends an assignment event inside an open transaction.
// Events are append-only; nothing in this package updates or deletes
// them.
func insertEvent(ctx context.Context, tx *sqlx.Tx, event domain.AssignmentEvent) error {
	query := `
		INSERT INTO assignment_events (
			id, target_type, target_id, actor_id, event_type, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := tx.ExecContext(ctx, query,
		event.ID, event.TargetType, event.TargetID, event.ActorID,
		event.EventType, event.Payload, event.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert assignment event: %w", err)
	}

	return nil
}

// RecordEvent appends a standalone assignment event outside any queue
// mutation, used for queue_failed where the failure left nothing else
// to write.
func (s *Storage) RecordEvent(ctx context.Context, event domain.AssignmentEvent) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		return insertEvent(ctx, tx, event)
	})
}

// ListEvents returns the target's most recent assignment events,
// newest first.
func (s *Storage) ListEvents(ctx context.Context, ref domain.TargetRef, limit int) ([]domain.AssignmentEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, target_type, target_id, actor_id, event_type, payload, created_at
		FROM assignment_events
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	var events []domain.AssignmentEvent
	if err := s.db.SelectContext(ctx, &events, query, ref.Type, ref.ID, limit); err != nil {
		return nil, fmt.Errorf("failed to list assignment events: %w", err)
	}

	return events, nil
}
