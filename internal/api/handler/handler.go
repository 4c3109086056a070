package handler

import (
	"context"
	"log/slog"
	"time"

	"github.com/gigdesk/assignq/internal/assignment/domain"
	"github.com/gigdesk/assignq/internal/assignment/engine"
)

// AssignmentService is the slice of the engine the HTTP surface
// drives.
type AssignmentService interface {
	Generate(ctx context.Context, ref domain.TargetRef, actorID *string) (*engine.GenerationSummary, error)
	Respond(ctx context.Context, entryID string, in engine.RespondInput) (*domain.QueueEntry, error)
	ReapExpired(ctx context.Context, now time.Time) (*engine.ReapSummary, error)
	Queue(ctx context.Context, ref domain.TargetRef) ([]domain.QueueEntry, error)
	Events(ctx context.Context, ref domain.TargetRef, limit int) ([]domain.AssignmentEvent, error)
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger  *slog.Logger
	Service AssignmentService
}

// QueueHandler handles assignment queue HTTP requests
type QueueHandler struct {
	logger  *slog.Logger
	service AssignmentService
}

// NewQueueHandler creates a new QueueHandler instance
func NewQueueHandler(deps *Dependencies) *QueueHandler {
	return &QueueHandler{
		logger:  deps.Logger,
		service: deps.Service,
	}
}
