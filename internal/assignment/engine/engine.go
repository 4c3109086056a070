// Package engine implements the fairness-aware auto-assignment queue:
// queue generation, the offer lifecycle state machine, and the audit
// trail around both. All state-mutating operations are safe under
// arbitrary interleaving for the same target; different targets never
// contend.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/gigdesk/assignq/internal/assignment/domain"
	"github.com/gigdesk/assignq/internal/notify"
)

// Default values applied when per-target settings leave a field unset.
const (
	DefaultQueueLimit = 5
	DefaultOfferTTL   = 60 * time.Minute
)

// Store is the persistence contract for queue entries, responses, and
// assignment events. Each method is a single atomic unit: the audit
// event it carries commits with the state change or not at all.
type Store interface {
	// ReplaceQueue supersedes every live entry of the prior generation
	// and inserts the new one, all-or-nothing. The event's type is
	// stamped inside the same transaction (queue_generated on the first
	// generation, queue_regenerated after) unless the caller fixed it,
	// e.g. to queue_exhausted for an empty generation.
	ReplaceQueue(ctx context.Context, ref domain.TargetRef, entries []domain.QueueEntry, event domain.AssignmentEvent) (generation int64, regenerated bool, err error)

	// RecordEvent appends a standalone audit event (queue_failed).
	RecordEvent(ctx context.Context, event domain.AssignmentEvent) error

	GetEntry(ctx context.Context, entryID string) (*domain.QueueEntry, error)
	ListQueue(ctx context.Context, ref domain.TargetRef) ([]domain.QueueEntry, error)
	ListEvents(ctx context.Context, ref domain.TargetRef, limit int) ([]domain.AssignmentEvent, error)

	// ResolveEntry records the response and advances the entry, guarded
	// by status = notified; a lost race returns ErrStaleOffer. Accepting
	// supersedes all live siblings in the same transaction.
	ResolveEntry(ctx context.Context, entryID string, response domain.Response, status string, now time.Time) (*domain.QueueEntry, error)

	// PromoteNextPending moves the lowest-bucket pending entry of the
	// generation to notified with a fresh deadline. Returns nil when no
	// pending entry remains.
	PromoteNextPending(ctx context.Context, ref domain.TargetRef, generation int64, now time.Time, expiresIn time.Duration) (*domain.QueueEntry, error)

	// ExpireDue transitions every overdue notified entry to expired,
	// across all targets, and returns the entries it transitioned.
	ExpireDue(ctx context.Context, now time.Time) ([]domain.QueueEntry, error)

	// MarkExhausted flags the generation exhausted and appends the event
	// in one transaction. It is once-only: a generation already flagged
	// reports false and writes nothing, so concurrent sweeps produce a
	// single queue_exhausted event.
	MarkExhausted(ctx context.Context, ref domain.TargetRef, generation int64, event domain.AssignmentEvent) (bool, error)
}

// TalentDirectory supplies candidate stats for a target's eligible
// freelancer pool.
type TalentDirectory interface {
	CandidateStats(ctx context.Context, ref domain.TargetRef) ([]domain.CandidateStats, error)
}

// TargetStore supplies target value fields and per-target settings.
type TargetStore interface {
	GetTarget(ctx context.Context, ref domain.TargetRef) (*domain.Target, error)
	GetSettings(ctx context.Context, ref domain.TargetRef) (domain.Settings, error)
}

// Config holds engine dependencies
type Config struct {
	Store      Store
	Directory  TalentDirectory
	Targets    TargetStore
	Dispatcher notify.Dispatcher
	Logger     *slog.Logger

	// DefaultOfferTTL backs reap-driven promotions when the settings
	// fetch fails mid-sweep; the promotion proceeds instead of dropping.
	DefaultOfferTTL time.Duration

	// DefaultQueueLimit applies when a target's settings leave the
	// queue size unset.
	DefaultQueueLimit int
}

// Engine combines the queue generator and the offer lifecycle manager.
type Engine struct {
	store        Store
	directory    TalentDirectory
	targets      TargetStore
	dispatcher   notify.Dispatcher
	logger       *slog.Logger
	defaultTTL   time.Duration
	defaultLimit int
	now          func() time.Time
}

// New creates an Engine
func New(cfg *Config) *Engine {
	dispatcher := cfg.Dispatcher
	if dispatcher == nil {
		dispatcher = notify.Nop{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	defaultTTL := cfg.DefaultOfferTTL
	if defaultTTL <= 0 {
		defaultTTL = DefaultOfferTTL
	}

	defaultLimit := cfg.DefaultQueueLimit
	if defaultLimit <= 0 {
		defaultLimit = DefaultQueueLimit
	}

	return &Engine{
		store:        cfg.Store,
		directory:    cfg.Directory,
		targets:      cfg.Targets,
		dispatcher:   dispatcher,
		logger:       logger,
		defaultTTL:   defaultTTL,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// normalizeSettings fills unset settings fields with engine defaults.
func (e *Engine) normalizeSettings(s domain.Settings) domain.Settings {
	if s.Limit <= 0 {
		s.Limit = e.defaultLimit
	}
	if s.ExpiresInMinutes <= 0 {
		s.ExpiresInMinutes = int(e.defaultTTL / time.Minute)
	}
	return s
}

// notifyEntry hands the entry to the dispatcher. Fire-and-forget:
// failures are logged and the transition stands.
func (e *Engine) notifyEntry(ctx context.Context, entry *domain.QueueEntry) {
	n := notify.OfferNotification{
		QueueEntryID:   entry.ID,
		TargetType:     entry.TargetType,
		TargetID:       entry.TargetID,
		FreelancerID:   entry.FreelancerID,
		PriorityBucket: entry.PriorityBucket,
		ExpiresAt:      entry.ExpiresAt,
		ProjectValue:   entry.ProjectValue,
		Currency:       entry.Currency,
		NotifiedAt:     entry.UpdatedAt,
	}
	if entry.NotifiedAt != nil {
		n.NotifiedAt = *entry.NotifiedAt
	}

	if err := e.dispatcher.Dispatch(ctx, n); err != nil {
		e.logger.Warn("Offer notification dispatch failed",
			slog.String("queue_entry_id", entry.ID),
			slog.String("freelancer_id", entry.FreelancerID),
			slog.Any("error", err),
		)
	}
}
