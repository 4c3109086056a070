package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gigdesk/assignq/internal/api/dto"
	"github.com/gigdesk/assignq/internal/assignment/domain"
	"github.com/gigdesk/assignq/internal/assignment/engine"
)

// Generate handles POST /api/v1/targets/:target_type/:target_id/queue/generate
// Builds a fresh assignment queue for the target, replacing any prior one
func (h *QueueHandler) Generate(c *gin.Context) {
	ref, ok := h.targetRef(c)
	if !ok {
		return
	}

	var actorID *string
	if actor := c.GetHeader("X-Actor-ID"); actor != "" {
		actorID = &actor
	}

	summary, err := h.service.Generate(c.Request.Context(), ref, actorID)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetQueue handles GET /api/v1/targets/:target_type/:target_id/queue
// Returns the current generation's entries for display
func (h *QueueHandler) GetQueue(c *gin.Context) {
	ref, ok := h.targetRef(c)
	if !ok {
		return
	}

	entries, err := h.service.Queue(c.Request.Context(), ref)
	if err != nil {
		h.renderError(c, err)
		return
	}

	resp := dto.QueueResponse{
		TargetType: string(ref.Type),
		TargetID:   ref.ID,
		Entries:    make([]dto.QueueEntryDTO, 0, len(entries)),
	}
	for i := range entries {
		resp.Entries = append(resp.Entries, toEntryDTO(&entries[i]))
	}

	c.JSON(http.StatusOK, resp)
}

// ListEvents handles GET /api/v1/targets/:target_type/:target_id/events
// Returns the target's audit trail, newest first
func (h *QueueHandler) ListEvents(c *gin.Context) {
	ref, ok := h.targetRef(c)
	if !ok {
		return
	}

	var req dto.ListEventsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	events, err := h.service.Events(c.Request.Context(), ref, req.Limit)
	if err != nil {
		h.renderError(c, err)
		return
	}

	resp := dto.EventsResponse{
		TargetType: string(ref.Type),
		TargetID:   ref.ID,
		Events:     make([]dto.AssignmentEventDTO, 0, len(events)),
	}
	for i := range events {
		e := &events[i]
		resp.Events = append(resp.Events, dto.AssignmentEventDTO{
			ID:        e.ID,
			ActorID:   e.ActorID,
			EventType: e.EventType,
			Payload:   e.Payload,
			CreatedAt: e.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, resp)
}

// Respond handles POST /api/v1/queue-entries/:entry_id/response
// Records a freelancer's or operator's decision on a notified offer
func (h *QueueHandler) Respond(c *gin.Context) {
	entryID := c.Param("entry_id")
	if _, err := uuid.Parse(entryID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "entry_id must be a valid UUID"})
		return
	}

	var req dto.RespondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if _, ok := domain.ParseResponseStatus(req.Status); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be accepted or declined"})
		return
	}

	entry, err := h.service.Respond(c.Request.Context(), entryID, engine.RespondInput{
		Status:      req.Status,
		ActorID:     req.ActorID,
		ReasonCode:  req.ReasonCode,
		ReasonLabel: req.ReasonLabel,
		Notes:       req.Notes,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, toEntryDTO(entry))
}

// Reap handles POST /api/v1/queue/reap
// Sweep entry point for the external scheduler
func (h *QueueHandler) Reap(c *gin.Context) {
	// An empty or absent body is fine; the sweep defaults to the
	// server clock.
	var req dto.ReapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Now = nil
	}

	now := time.Now()
	if req.Now != nil {
		now = *req.Now
	}

	summary, err := h.service.ReapExpired(c.Request.Context(), now)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// targetRef parses and validates the target path parameters.
func (h *QueueHandler) targetRef(c *gin.Context) (domain.TargetRef, bool) {
	targetType, err := domain.ParseTargetType(c.Param("target_type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return domain.TargetRef{}, false
	}

	targetID := c.Param("target_id")
	if targetID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target_id is required"})
		return domain.TargetRef{}, false
	}

	return domain.TargetRef{Type: targetType, ID: targetID}, true
}

// renderError translates engine errors into HTTP responses.
func (h *QueueHandler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidResponse):
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be accepted or declined"})
	case errors.Is(err, domain.ErrEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Queue entry not found"})
	case errors.Is(err, domain.ErrStaleOffer):
		c.JSON(http.StatusConflict, gin.H{"error": "This offer is no longer available"})
	case errors.Is(err, domain.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Concurrent update, please retry"})
	case domain.IsUpstream(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Candidate data unavailable, try again"})
	default:
		h.logger.Error("Request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func toEntryDTO(e *domain.QueueEntry) dto.QueueEntryDTO {
	return dto.QueueEntryDTO{
		ID:             e.ID,
		TargetType:     string(e.TargetType),
		TargetID:       e.TargetID,
		FreelancerID:   e.FreelancerID,
		Generation:     e.Generation,
		Score:          e.Score,
		PriorityBucket: e.PriorityBucket,
		Status:         e.Status,
		NotifiedAt:     e.NotifiedAt,
		ExpiresAt:      e.ExpiresAt,
		ResolvedAt:     e.ResolvedAt,
		ProjectValue:   e.ProjectValue.String(),
		Currency:       e.Currency,
		Metadata:       e.Metadata,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}
