package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/gigdesk/assignq/internal/assignment/domain"
)

// ReplaceQueue installs a new generation for the target in one
// transaction: bump the generation counter, supersede every live entry
// of older generations, insert the new entries, and append the audit
// event. A reader never observes entries of two generations live at
// once.
func (s *Storage) ReplaceQueue(ctx context.Context, ref domain.TargetRef, entries []domain.QueueEntry, event domain.AssignmentEvent) (int64, bool, error) {
	var generation int64
	var regenerated bool

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		now := event.CreatedAt

		query := `
			INSERT INTO assignment_generations (target_type, target_id, generation, exhausted, updated_at)
			VALUES ($1, $2, 1, $3, $4)
			ON CONFLICT (target_type, target_id) DO UPDATE
			SET generation = assignment_generations.generation + 1,
			    exhausted = $3,
			    updated_at = $4
			RETURNING generation
		`
		exhausted := len(entries) == 0
		if err := tx.QueryRowContext(ctx, query, ref.Type, ref.ID, exhausted, now).Scan(&generation); err != nil {
			return fmt.Errorf("failed to advance generation: %w", err)
		}
		regenerated = generation > 1

		supersede := `
			UPDATE assignment_queue_entries
			SET status = $1,
			    resolved_at = $2,
			    metadata = metadata || jsonb_build_object('outcome', 'superseded'),
			    updated_at = $2
			WHERE target_type = $3
			  AND target_id = $4
			  AND generation < $5
			  AND status IN ($6, $7)
		`
		if _, err := tx.ExecContext(ctx, supersede,
			domain.EntryStatusExpired, now, ref.Type, ref.ID, generation,
			domain.EntryStatusPending, domain.EntryStatusNotified,
		); err != nil {
			return fmt.Errorf("failed to supersede prior generation: %w", err)
		}

		insert := `
			INSERT INTO assignment_queue_entries (` + entryColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`
		for i := range entries {
			e := &entries[i]
			e.Generation = generation
			if _, err := tx.ExecContext(ctx, insert,
				e.ID, e.TargetType, e.TargetID, e.FreelancerID, e.Generation,
				e.Score, e.PriorityBucket, e.Status,
				e.NotifiedAt, e.ExpiresAt, e.ResolvedAt,
				e.ProjectValue, e.Currency, e.Metadata,
				e.CreatedAt, e.UpdatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert queue entry: %w", err)
			}
		}

		if event.EventType == "" {
			event.EventType = domain.EventQueueGenerated
			if regenerated {
				event.EventType = domain.EventQueueRegenerated
			}
		}

		return insertEvent(ctx, tx, event)
	})
	if err != nil {
		return 0, false, err
	}

	s.logger.Info("Queue generation installed",
		slog.String("target", ref.String()),
		slog.Int64("generation", generation),
		slog.Int("entries", len(entries)),
	)

	return generation, regenerated, nil
}

// GetEntry retrieves a queue entry by its ID
func (s *Storage) GetEntry(ctx context.Context, entryID string) (*domain.QueueEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM assignment_queue_entries
		WHERE id = $1
	`

	var entry domain.QueueEntry
	if err := s.db.GetContext(ctx, &entry, query, entryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}

	return &entry, nil
}

// ListQueue returns the target's entries for the current generation,
// ordered by priority bucket. Entries of stale generations are ignored
// by construction of the join.
func (s *Storage) ListQueue(ctx context.Context, ref domain.TargetRef) ([]domain.QueueEntry, error) {
	query := `
		SELECT e.id, e.target_type, e.target_id, e.freelancer_id, e.generation, e.score,
		       e.priority_bucket, e.status, e.notified_at, e.expires_at, e.resolved_at,
		       e.project_value, e.currency, e.metadata, e.created_at, e.updated_at
		FROM assignment_queue_entries e
		JOIN assignment_generations g
		  ON g.target_type = e.target_type
		 AND g.target_id = e.target_id
		 AND g.generation = e.generation
		WHERE e.target_type = $1 AND e.target_id = $2
		ORDER BY e.priority_bucket ASC
	`

	var entries []domain.QueueEntry
	if err := s.db.SelectContext(ctx, &entries, query, ref.Type, ref.ID); err != nil {
		return nil, fmt.Errorf("failed to list queue: %w", err)
	}

	return entries, nil
}

// ResolveEntry records the response and advances the entry in one
// transaction. The update is guarded by status = notified: of two
// concurrent resolutions exactly one sees a row, the other gets
// ErrStaleOffer. Accepting supersedes every live sibling so the target
// ends with a single assignee.
func (s *Storage) ResolveEntry(ctx context.Context, entryID string, response domain.Response, status string, now time.Time) (*domain.QueueEntry, error) {
	var entry domain.QueueEntry

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		resolve := `
			UPDATE assignment_queue_entries
			SET status = $1, resolved_at = $2, updated_at = $2
			WHERE id = $3 AND status = $4
			RETURNING ` + entryColumns + `
		`
		err := tx.QueryRowxContext(ctx, resolve, status, now, entryID, domain.EntryStatusNotified).StructScan(&entry)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrStaleOffer
			}
			return fmt.Errorf("failed to resolve queue entry: %w", err)
		}

		insert := `
			INSERT INTO assignment_responses (
				id, queue_entry_id, freelancer_id, status, responded_by,
				reason_code, reason_label, response_notes, metadata, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`
		if _, err := tx.ExecContext(ctx, insert,
			response.ID, response.QueueEntryID, response.FreelancerID, response.Status,
			response.RespondedBy, response.ReasonCode, response.ReasonLabel, response.Notes,
			response.Metadata, response.CreatedAt, response.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert response: %w", err)
		}

		if status != domain.ResponseStatusAccepted {
			return nil
		}

		supersede := `
			UPDATE assignment_queue_entries
			SET status = $1,
			    resolved_at = $2,
			    metadata = metadata || jsonb_build_object('outcome', 'superseded', 'superseded_by', $3::text),
			    updated_at = $2
			WHERE target_type = $4
			  AND target_id = $5
			  AND id <> $3
			  AND status IN ($6, $7)
		`
		if _, err := tx.ExecContext(ctx, supersede,
			domain.EntryStatusExpired, now, entry.ID, entry.TargetType, entry.TargetID,
			domain.EntryStatusPending, domain.EntryStatusNotified,
		); err != nil {
			return fmt.Errorf("failed to supersede sibling entries: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// PromoteNextPending moves the lowest-bucket pending entry of the
// generation to notified with a fresh expiry. Returns nil when the
// generation has no pending entries left. The guard on status makes
// concurrent promotions pick distinct entries or no-op.
func (s *Storage) PromoteNextPending(ctx context.Context, ref domain.TargetRef, generation int64, now time.Time, expiresIn time.Duration) (*domain.QueueEntry, error) {
	query := `
		UPDATE assignment_queue_entries
		SET status = $1, notified_at = $2, expires_at = $3, updated_at = $2
		WHERE id = (
			SELECT id FROM assignment_queue_entries
			WHERE target_type = $4 AND target_id = $5 AND generation = $6 AND status = $7
			ORDER BY priority_bucket ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		) AND status = $7
		RETURNING ` + entryColumns + `
	`

	var entry domain.QueueEntry
	err := s.db.QueryRowxContext(ctx, query,
		domain.EntryStatusNotified, now, now.Add(expiresIn),
		ref.Type, ref.ID, generation, domain.EntryStatusPending,
	).StructScan(&entry)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to promote pending entry: %w", err)
	}

	return &entry, nil
}

// ExpireDue transitions every overdue notified entry to expired and
// returns them. The status guard keeps a concurrent response or sweep
// from double-transitioning an entry.
func (s *Storage) ExpireDue(ctx context.Context, now time.Time) ([]domain.QueueEntry, error) {
	query := `
		UPDATE assignment_queue_entries
		SET status = $1, resolved_at = $2, updated_at = $2
		WHERE status = $3 AND expires_at IS NOT NULL AND expires_at <= $2
		RETURNING ` + entryColumns + `
	`

	rows, err := s.db.QueryxContext(ctx, query, domain.EntryStatusExpired, now, domain.EntryStatusNotified)
	if err != nil {
		return nil, fmt.Errorf("failed to expire due entries: %w", err)
	}
	defer rows.Close()

	var expired []domain.QueueEntry
	for rows.Next() {
		var entry domain.QueueEntry
		if err := rows.StructScan(&entry); err != nil {
			return nil, fmt.Errorf("failed to scan expired entry: %w", err)
		}
		expired = append(expired, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read expired entries: %w", err)
	}

	return expired, nil
}

// MarkExhausted flags the generation exhausted and appends the audit
// event in one transaction. The flag guard makes it once-only, so two
// concurrent sweeps produce a single queue_exhausted event.
func (s *Storage) MarkExhausted(ctx context.Context, ref domain.TargetRef, generation int64, event domain.AssignmentEvent) (bool, error) {
	marked := false

	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			UPDATE assignment_generations
			SET exhausted = TRUE, updated_at = $1
			WHERE target_type = $2 AND target_id = $3 AND generation = $4 AND exhausted = FALSE
		`
		result, err := tx.ExecContext(ctx, query, event.CreatedAt, ref.Type, ref.ID, generation)
		if err != nil {
			return fmt.Errorf("failed to mark generation exhausted: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return nil
		}

		marked = true
		return insertEvent(ctx, tx, event)
	})
	if err != nil {
		return false, err
	}

	return marked, nil
}
