package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Queue entry status constants
const (
	EntryStatusPending  = "pending"
	EntryStatusNotified = "notified"
	EntryStatusAccepted = "accepted"
	EntryStatusDeclined = "declined"
	EntryStatusExpired  = "expired"
)

// Metadata outcome annotations. Superseded entries keep a terminal
// status; the outcome lives in metadata, not in a new status value.
const (
	OutcomeSuperseded       = "superseded"
	MetaKeyOutcome          = "outcome"
	MetaKeySupersededBy     = "superseded_by"
	MetaKeyScoreBreakdown   = "score_breakdown"
	MetaKeyFairness         = "fairness"
	MetaKeyResponseLatencyS = "response_latency_seconds"
)

// Metadata is a JSONB column holding the scoring breakdown and
// fairness annotations for an entry.
type Metadata map[string]interface{}

// Value implements driver.Valuer for JSONB storage
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB storage
func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	raw, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("metadata: unsupported scan type %T", src)
	}
	return json.Unmarshal(raw, m)
}

// QueueEntry is one freelancer's ranked offer slot for a target.
//
// At most one entry per (target, freelancer) is live (pending or
// notified) at a time, and the bucket-1 entry of the current
// generation is the active offer.
type QueueEntry struct {
	ID             string          `db:"id"`
	TargetType     TargetType      `db:"target_type"`
	TargetID       string          `db:"target_id"`
	FreelancerID   string          `db:"freelancer_id"`
	Generation     int64           `db:"generation"`
	Score          float64         `db:"score"`
	PriorityBucket int             `db:"priority_bucket"`
	Status         string          `db:"status"`
	NotifiedAt     *time.Time      `db:"notified_at"`
	ExpiresAt      *time.Time      `db:"expires_at"`
	ResolvedAt     *time.Time      `db:"resolved_at"`
	ProjectValue   decimal.Decimal `db:"project_value"`
	Currency       string          `db:"currency"`
	Metadata       Metadata        `db:"metadata"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// Live reports whether the entry still occupies a queue slot.
func (e *QueueEntry) Live() bool {
	return e.Status == EntryStatusPending || e.Status == EntryStatusNotified
}

// Ref returns the target reference the entry belongs to.
func (e *QueueEntry) Ref() TargetRef {
	return TargetRef{Type: e.TargetType, ID: e.TargetID}
}
