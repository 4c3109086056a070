package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gigdesk/assignq/internal/assignment/domain"
	"github.com/gigdesk/assignq/internal/assignment/fairness"
	"github.com/gigdesk/assignq/internal/assignment/scoring"
	"github.com/gigdesk/assignq/internal/metrics"
)

// GenerationSummary describes the outcome of one generate call.
type GenerationSummary struct {
	Ref             domain.TargetRef `json:"target"`
	Generation      int64            `json:"generation"`
	EventType       string           `json:"event_type"`
	QueueSize       int              `json:"queue_size"`
	Notified        int              `json:"notified"`
	Overflow        []string         `json:"overflow,omitempty"`
	NewcomerMissing bool             `json:"newcomer_missing,omitempty"`
}

// Generate builds a fresh queue for the target, atomically replacing
// any prior generation, and emits exactly one assignment event. Two
// rapid calls for the same target are safe: the later generation
// supersedes the earlier one with no orphaned live entries.
func (e *Engine) Generate(ctx context.Context, ref domain.TargetRef, actorID *string) (*GenerationSummary, error) {
	start := e.now()

	settings, err := e.targets.GetSettings(ctx, ref)
	if err != nil {
		return nil, e.generationFailed(ctx, ref, actorID, "settings", err)
	}
	settings = e.normalizeSettings(settings)

	target, err := e.targets.GetTarget(ctx, ref)
	if err != nil {
		return nil, e.generationFailed(ctx, ref, actorID, "target", err)
	}

	stats, err := e.directory.CandidateStats(ctx, ref)
	if err != nil {
		return nil, e.generationFailed(ctx, ref, actorID, "candidate_stats", err)
	}

	scored := scoring.Rank(settings.Weights, stats)
	result := fairness.Evaluate(settings.Fairness, settings.Limit, scored)

	now := e.now()
	entries := buildEntries(ref, target, result.Ranked, now, settings.ExpiresIn())

	overflow := make([]string, 0, len(result.Overflow))
	for _, c := range result.Overflow {
		overflow = append(overflow, c.Stats.FreelancerID)
	}

	payload := domain.Metadata{
		"settings":   settings,
		"queue_size": len(entries),
		"candidates": len(stats),
	}
	if len(overflow) > 0 {
		payload["overflow"] = overflow
	}
	if result.NewcomerMissing {
		payload["newcomer_missing"] = true
	}

	event := domain.AssignmentEvent{
		ID:         uuid.New().String(),
		TargetType: ref.Type,
		TargetID:   ref.ID,
		ActorID:    actorID,
		Payload:    payload,
		CreatedAt:  now,
	}
	if len(entries) == 0 {
		// No eligible candidates is a business outcome, not a fault.
		event.EventType = domain.EventQueueExhausted
		payload["reason"] = "no eligible candidates after fairness evaluation"
	}

	generation, regenerated, err := e.store.ReplaceQueue(ctx, ref, entries, event)
	if err != nil {
		return nil, err
	}

	eventType := event.EventType
	if eventType == "" {
		eventType = domain.EventQueueGenerated
		if regenerated {
			eventType = domain.EventQueueRegenerated
		}
	}

	summary := &GenerationSummary{
		Ref:             ref,
		Generation:      generation,
		EventType:       eventType,
		QueueSize:       len(entries),
		Overflow:        overflow,
		NewcomerMissing: result.NewcomerMissing,
	}

	for i := range entries {
		if entries[i].Status == domain.EntryStatusNotified {
			summary.Notified++
			entries[i].Generation = generation
			e.notifyEntry(ctx, &entries[i])
		}
	}

	metrics.QueueGenerations.WithLabelValues(eventType).Inc()
	metrics.GenerationDuration.Observe(e.now().Sub(start).Seconds())

	e.logger.Info("Assignment queue generated",
		slog.String("target", ref.String()),
		slog.Int64("generation", generation),
		slog.String("event_type", eventType),
		slog.Int("queue_size", len(entries)),
		slog.Int("overflow", len(overflow)),
	)

	return summary, nil
}

// generationFailed records a queue_failed audit event and wraps the
// upstream error. The event is the only write: the queue itself is
// untouched.
func (e *Engine) generationFailed(ctx context.Context, ref domain.TargetRef, actorID *string, op string, cause error) error {
	event := domain.AssignmentEvent{
		ID:         uuid.New().String(),
		TargetType: ref.Type,
		TargetID:   ref.ID,
		ActorID:    actorID,
		EventType:  domain.EventQueueFailed,
		Payload: domain.Metadata{
			"operation": op,
			"reason":    cause.Error(),
		},
		CreatedAt: e.now(),
	}

	if err := e.store.RecordEvent(ctx, event); err != nil {
		e.logger.Error("Failed to record queue_failed event",
			slog.String("target", ref.String()),
			slog.Any("error", err),
		)
	}

	metrics.QueueGenerations.WithLabelValues(domain.EventQueueFailed).Inc()

	return domain.NewUpstreamError(op, cause)
}

// buildEntries turns the fairness result into queue entries. The
// bucket-1 entry starts notified with its expiry stamped; everything
// else starts pending.
func buildEntries(ref domain.TargetRef, target *domain.Target, ranked []fairness.Ranked, now time.Time, expiresIn time.Duration) []domain.QueueEntry {
	entries := make([]domain.QueueEntry, 0, len(ranked))

	for _, r := range ranked {
		entry := domain.QueueEntry{
			ID:             uuid.New().String(),
			TargetType:     ref.Type,
			TargetID:       ref.ID,
			FreelancerID:   r.Stats.FreelancerID,
			Score:          r.Score,
			PriorityBucket: r.PriorityBucket,
			Status:         domain.EntryStatusPending,
			ProjectValue:   target.Value,
			Currency:       target.Currency,
			Metadata: domain.Metadata{
				domain.MetaKeyScoreBreakdown: r.Breakdown,
				domain.MetaKeyFairness:       r.Annotations,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}

		if r.PriorityBucket == 1 {
			notifiedAt := now
			expiresAt := now.Add(expiresIn)
			entry.Status = domain.EntryStatusNotified
			entry.NotifiedAt = &notifiedAt
			entry.ExpiresAt = &expiresAt
		}

		entries = append(entries, entry)
	}

	return entries
}
