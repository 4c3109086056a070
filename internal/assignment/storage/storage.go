// Package storage persists queue entries, responses, and assignment
// events in PostgreSQL. Every multi-step mutation is a single
// transaction so the audit event commits with the state change it
// documents, and every status transition is a conditional update
// guarded by the current status.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/gigdesk/assignq/internal/assignment/domain"
)

// entryColumns is the full column list of assignment_queue_entries in
// struct-scan order.
const entryColumns = `id, target_type, target_id, freelancer_id, generation, score, priority_bucket,
		status, notified_at, expires_at, resolved_at, project_value, currency, metadata,
		created_at, updated_at`

// Storage handles all database operations for the assignment engine
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Storage) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("Failed to roll back transaction",
				slog.Any("error", rbErr),
			)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapConflict(err))
	}

	return nil
}

// mapConflict translates serialization and deadlock failures into
// ErrConflict so callers know to re-fetch and retry.
func mapConflict(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
	}
	return err
}
