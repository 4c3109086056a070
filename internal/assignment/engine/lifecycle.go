package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gigdesk/assignq/internal/assignment/domain"
	"github.com/gigdesk/assignq/internal/metrics"
)

// RespondInput carries a freelancer's (or operator's) decision on a
// notified queue entry.
type RespondInput struct {
	Status      string
	ActorID     string
	ReasonCode  string
	ReasonLabel string
	Notes       string
}

// ReapSummary describes one expiry sweep.
type ReapSummary struct {
	Expired   int `json:"expired"`
	Promoted  int `json:"promoted"`
	Exhausted int `json:"exhausted"`
}

// Respond records the decision and drives the entry's transition.
// Only an entry in notified status can be resolved; anything else
// returns ErrStaleOffer, and of two concurrent accepts exactly one
// wins. A declined active offer cascades to the next pending entry.
func (e *Engine) Respond(ctx context.Context, entryID string, in RespondInput) (*domain.QueueEntry, error) {
	status, ok := domain.ParseResponseStatus(in.Status)
	if !ok {
		return nil, domain.ErrInvalidResponse
	}

	entry, err := e.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	now := e.now()
	response := domain.Response{
		ID:           uuid.New().String(),
		QueueEntryID: entryID,
		FreelancerID: entry.FreelancerID,
		Status:       status,
		RespondedBy:  in.ActorID,
		ReasonCode:   in.ReasonCode,
		ReasonLabel:  in.ReasonLabel,
		Notes:        in.Notes,
		Metadata:     domain.Metadata{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if entry.NotifiedAt != nil {
		response.Metadata[domain.MetaKeyResponseLatencyS] = now.Sub(*entry.NotifiedAt).Seconds()
	}

	resolved, err := e.store.ResolveEntry(ctx, entryID, response, status, now)
	if err != nil {
		return nil, err
	}

	metrics.OfferTransitions.WithLabelValues(status).Inc()

	e.logger.Info("Queue entry resolved",
		slog.String("queue_entry_id", entryID),
		slog.String("target", resolved.Ref().String()),
		slog.String("status", status),
		slog.String("responded_by", in.ActorID),
	)

	if status == domain.ResponseStatusDeclined {
		e.cascade(ctx, resolved.Ref(), resolved.Generation)
	}

	return resolved, nil
}

// ReapExpired sweeps every overdue notified entry to expired and
// cascades each affected target. It is safe to run concurrently with
// responses and with itself: every transition is a conditional update
// on the current status.
func (e *Engine) ReapExpired(ctx context.Context, now time.Time) (*ReapSummary, error) {
	expired, err := e.store.ExpireDue(ctx, now)
	if err != nil {
		return nil, err
	}

	summary := &ReapSummary{Expired: len(expired)}
	if len(expired) == 0 {
		return summary, nil
	}

	metrics.ReapedEntries.Add(float64(len(expired)))

	// One cascade per target generation; a sweep may expire several
	// entries of the same target only across generations.
	type genKey struct {
		ref domain.TargetRef
		gen int64
	}
	seen := make(map[genKey]struct{})

	for i := range expired {
		entry := &expired[i]
		metrics.OfferTransitions.WithLabelValues(domain.EntryStatusExpired).Inc()

		key := genKey{ref: entry.Ref(), gen: entry.Generation}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		promoted, exhausted := e.cascade(ctx, entry.Ref(), entry.Generation)
		if promoted {
			summary.Promoted++
		}
		if exhausted {
			summary.Exhausted++
		}
	}

	e.logger.Info("Expiry sweep completed",
		slog.Int("expired", summary.Expired),
		slog.Int("promoted", summary.Promoted),
		slog.Int("exhausted", summary.Exhausted),
	)

	return summary, nil
}

// Queue returns the target's entries for the current generation.
func (e *Engine) Queue(ctx context.Context, ref domain.TargetRef) ([]domain.QueueEntry, error) {
	return e.store.ListQueue(ctx, ref)
}

// Events returns the target's most recent assignment events.
func (e *Engine) Events(ctx context.Context, ref domain.TargetRef, limit int) ([]domain.AssignmentEvent, error) {
	return e.store.ListEvents(ctx, ref, limit)
}

// cascade promotes the next pending entry after the active offer
// resolved without an assignee, or marks the generation exhausted when
// none remains. Exhaustion is an event for an external trigger to act
// on; the engine never regenerates on its own.
func (e *Engine) cascade(ctx context.Context, ref domain.TargetRef, generation int64) (promoted, exhausted bool) {
	expiresIn := e.defaultTTL
	if settings, err := e.targets.GetSettings(ctx, ref); err == nil {
		expiresIn = e.normalizeSettings(settings).ExpiresIn()
	} else {
		e.logger.Warn("Settings fetch failed during cascade, using default offer TTL",
			slog.String("target", ref.String()),
			slog.Any("error", err),
		)
	}

	next, err := e.store.PromoteNextPending(ctx, ref, generation, e.now(), expiresIn)
	if err != nil {
		e.logger.Error("Failed to promote next pending entry",
			slog.String("target", ref.String()),
			slog.Int64("generation", generation),
			slog.Any("error", err),
		)
		return false, false
	}

	if next != nil {
		metrics.OfferTransitions.WithLabelValues(domain.EntryStatusNotified).Inc()
		e.logger.Info("Promoted next queue entry",
			slog.String("queue_entry_id", next.ID),
			slog.String("target", ref.String()),
			slog.Int("priority_bucket", next.PriorityBucket),
		)
		e.notifyEntry(ctx, next)
		return true, false
	}

	event := domain.AssignmentEvent{
		ID:         uuid.New().String(),
		TargetType: ref.Type,
		TargetID:   ref.ID,
		EventType:  domain.EventQueueExhausted,
		Payload: domain.Metadata{
			"generation": generation,
			"reason":     "no pending entries remain",
		},
		CreatedAt: e.now(),
	}

	marked, err := e.store.MarkExhausted(ctx, ref, generation, event)
	if err != nil {
		e.logger.Error("Failed to mark generation exhausted",
			slog.String("target", ref.String()),
			slog.Int64("generation", generation),
			slog.Any("error", err),
		)
		return false, false
	}

	if marked {
		metrics.QueueGenerations.WithLabelValues(domain.EventQueueExhausted).Inc()
		e.logger.Warn("Assignment queue exhausted",
			slog.String("target", ref.String()),
			slog.Int64("generation", generation),
		)
	}

	return false, marked
}
