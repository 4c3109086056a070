package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/gigdesk/assignq/internal/assignment/domain"
)

// Directory reads candidate stats from the marketplace's
// assignment_candidate_stats view, maintained by the talent service.
type Directory struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewDirectory creates a Directory over the shared marketplace database
func NewDirectory(db *sqlx.DB, logger *slog.Logger) *Directory {
	return &Directory{
		db:     db,
		logger: logger,
	}
}

// CandidateStats returns one row per freelancer eligible for the
// target. Optional signals come back as NULLs and stay nil so the
// scorer can exclude them.
func (d *Directory) CandidateStats(ctx context.Context, ref domain.TargetRef) ([]domain.CandidateStats, error) {
	query := `
		SELECT freelancer_id, recency_score, rating, completion_recency_days,
		       completion_quality, earnings_balance, recent_assignment_count, is_newcomer
		FROM assignment_candidate_stats
		WHERE target_type = $1 AND target_id = $2
		ORDER BY freelancer_id
	`

	var stats []domain.CandidateStats
	if err := d.db.SelectContext(ctx, &stats, query, ref.Type, ref.ID); err != nil {
		return nil, fmt.Errorf("failed to fetch candidate stats: %w", err)
	}

	d.logger.Debug("Candidate stats fetched",
		slog.String("target", ref.String()),
		slog.Int("candidates", len(stats)),
	)

	return stats, nil
}

// Targets reads the denormalized value fields and queue settings from
// the parent project/gig records. This is the only place the engine
// branches on the target type.
type Targets struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewTargets creates a Targets store over the shared marketplace database
func NewTargets(db *sqlx.DB, logger *slog.Logger) *Targets {
	return &Targets{
		db:     db,
		logger: logger,
	}
}

// GetTarget returns the target's monetary value and currency.
func (t *Targets) GetTarget(ctx context.Context, ref domain.TargetRef) (*domain.Target, error) {
	var query string
	switch ref.Type {
	case domain.TargetTypeProject:
		query = `SELECT budget, currency FROM projects WHERE id = $1`
	case domain.TargetTypeGig:
		query = `SELECT price, currency FROM gigs WHERE id = $1`
	default:
		return nil, fmt.Errorf("unknown target type %q", ref.Type)
	}

	var row struct {
		Value    decimal.Decimal `db:"value"`
		Currency string          `db:"currency"`
	}
	if err := t.db.QueryRowxContext(ctx, query, ref.ID).Scan(&row.Value, &row.Currency); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("target %s not found", ref.String())
		}
		return nil, fmt.Errorf("failed to fetch target: %w", err)
	}

	return &domain.Target{
		Ref:      ref,
		Value:    row.Value,
		Currency: row.Currency,
	}, nil
}

// GetSettings returns the target's queue settings from the parent
// record's assignment_settings column. A NULL column yields zero
// settings; the engine applies its defaults.
func (t *Targets) GetSettings(ctx context.Context, ref domain.TargetRef) (domain.Settings, error) {
	var query string
	switch ref.Type {
	case domain.TargetTypeProject:
		query = `SELECT assignment_settings FROM projects WHERE id = $1`
	case domain.TargetTypeGig:
		query = `SELECT assignment_settings FROM gigs WHERE id = $1`
	default:
		return domain.Settings{}, fmt.Errorf("unknown target type %q", ref.Type)
	}

	var raw []byte
	if err := t.db.QueryRowxContext(ctx, query, ref.ID).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Settings{}, fmt.Errorf("target %s not found", ref.String())
		}
		return domain.Settings{}, fmt.Errorf("failed to fetch settings: %w", err)
	}

	var settings domain.Settings
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &settings); err != nil {
			return domain.Settings{}, fmt.Errorf("failed to parse settings: %w", err)
		}
	}

	return settings, nil
}
