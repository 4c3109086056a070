package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TargetType discriminates the kind of entity an assignment queue serves.
type TargetType string

const (
	TargetTypeProject TargetType = "project"
	TargetTypeGig     TargetType = "gig"
)

// ParseTargetType validates a raw target type string
func ParseTargetType(raw string) (TargetType, error) {
	switch TargetType(raw) {
	case TargetTypeProject, TargetTypeGig:
		return TargetType(raw), nil
	default:
		return "", fmt.Errorf("unknown target type %q", raw)
	}
}

// TargetRef identifies the project or gig a queue belongs to.
// Scoring and fairness never branch on the type; only collaborator
// lookups do.
type TargetRef struct {
	Type TargetType `db:"target_type" json:"target_type"`
	ID   string     `db:"target_id" json:"target_id"`
}

func (r TargetRef) String() string {
	return string(r.Type) + ":" + r.ID
}

// Target carries the denormalized value fields the engine needs for
// scoring metadata and audit payloads. The full record is owned by the
// project/gig service.
type Target struct {
	Ref      TargetRef
	Value    decimal.Decimal
	Currency string
}
