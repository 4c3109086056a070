package dto

import "time"

type RespondRequest struct {
	Status      string `json:"status" binding:"required"`
	ActorID     string `json:"actor_id" binding:"required"`
	ReasonCode  string `json:"reason_code"`
	ReasonLabel string `json:"reason_label"`
	Notes       string `json:"notes"`
}

type ReapRequest struct {
	Now *time.Time `json:"now"`
}

type QueueEntryDTO struct {
	ID             string                 `json:"id"`
	TargetType     string                 `json:"target_type"`
	TargetID       string                 `json:"target_id"`
	FreelancerID   string                 `json:"freelancer_id"`
	Generation     int64                  `json:"generation"`
	Score          float64                `json:"score"`
	PriorityBucket int                    `json:"priority_bucket"`
	Status         string                 `json:"status"`
	NotifiedAt     *time.Time             `json:"notified_at,omitempty"`
	ExpiresAt      *time.Time             `json:"expires_at,omitempty"`
	ResolvedAt     *time.Time             `json:"resolved_at,omitempty"`
	ProjectValue   string                 `json:"project_value"`
	Currency       string                 `json:"currency"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

type QueueResponse struct {
	TargetType string          `json:"target_type"`
	TargetID   string          `json:"target_id"`
	Entries    []QueueEntryDTO `json:"entries"`
}

type AssignmentEventDTO struct {
	ID        string                 `json:"id"`
	ActorID   *string                `json:"actor_id,omitempty"`
	EventType string                 `json:"event_type"`
	Payload   map[string]interface{} `json:"payload"`
	CreatedAt time.Time              `json:"created_at"`
}

type EventsResponse struct {
	TargetType string               `json:"target_type"`
	TargetID   string               `json:"target_id"`
	Events     []AssignmentEventDTO `json:"events"`
}

type ListEventsRequest struct {
	Limit int `form:"limit"`
}
