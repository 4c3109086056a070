// Package notify delivers offer notifications to the external
// notification service. Dispatch is fire-and-forget: the lifecycle
// transition that triggered it never waits on or fails with delivery.
package notify

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gigdesk/assignq/internal/assignment/domain"
)

// OfferNotification is the message published when a queue entry
// transitions to notified.
type OfferNotification struct {
	QueueEntryID   string            `json:"queue_entry_id"`
	TargetType     domain.TargetType `json:"target_type"`
	TargetID       string            `json:"target_id"`
	FreelancerID   string            `json:"freelancer_id"`
	PriorityBucket int               `json:"priority_bucket"`
	ExpiresAt      *time.Time        `json:"expires_at,omitempty"`
	ProjectValue   decimal.Decimal   `json:"project_value"`
	Currency       string            `json:"currency"`
	NotifiedAt     time.Time         `json:"notified_at"`
}

// Dispatcher hands an offer notification to the delivery transport.
type Dispatcher interface {
	Dispatch(ctx context.Context, n OfferNotification) error
}

// Nop is a Dispatcher that drops every notification. Used in tests
// and deployments without a broker.
type Nop struct{}

func (Nop) Dispatch(ctx context.Context, n OfferNotification) error {
	return nil
}
