package domain

import "time"

// Weights holds the per-factor scoring weights. Weights need not sum
// to one; the scorer normalizes by the sum of weights backed by an
// actually-present factor.
type Weights struct {
	Recency           float64 `json:"recency" yaml:"recency"`
	Rating            float64 `json:"rating" yaml:"rating"`
	CompletionRecency float64 `json:"completion_recency" yaml:"completion_recency"`
	CompletionQuality float64 `json:"completion_quality" yaml:"completion_quality"`
	EarningsBalance   float64 `json:"earnings_balance" yaml:"earnings_balance"`
	Inclusion         float64 `json:"inclusion" yaml:"inclusion"`
}

// FairnessRules holds the equitable-distribution constraints applied
// after scoring. Zero values disable the corresponding cap.
type FairnessRules struct {
	EnsureNewcomer            bool `json:"ensure_newcomer" yaml:"ensure_newcomer"`
	MaxAssignments            int  `json:"max_assignments" yaml:"max_assignments"`
	MaxAssignmentsForPriority int  `json:"max_assignments_for_priority" yaml:"max_assignments_for_priority"`
}

// Settings is the per-target queue configuration. It is owned by the
// target's parent record and read-only for the engine; it is threaded
// through every call rather than held as shared state.
type Settings struct {
	Limit            int           `json:"limit" yaml:"limit"`
	ExpiresInMinutes int           `json:"expires_in_minutes" yaml:"expires_in_minutes"`
	Weights          Weights       `json:"weights" yaml:"weights"`
	Fairness         FairnessRules `json:"fairness" yaml:"fairness"`
}

// ExpiresIn returns the offer TTL as a duration.
func (s Settings) ExpiresIn() time.Duration {
	return time.Duration(s.ExpiresInMinutes) * time.Minute
}

// CandidateStats is one eligible freelancer's signal set as supplied
// by the talent directory. Optional factors are pointers: a nil factor
// drops out of scoring entirely instead of counting as zero.
type CandidateStats struct {
	FreelancerID          string   `db:"freelancer_id"`
	RecencyScore          *float64 `db:"recency_score"`
	Rating                *float64 `db:"rating"`
	CompletionRecencyDays *float64 `db:"completion_recency_days"`
	CompletionQuality     *float64 `db:"completion_quality"`
	EarningsBalance       *float64 `db:"earnings_balance"`
	RecentAssignmentCount int      `db:"recent_assignment_count"`
	IsNewcomer            bool     `db:"is_newcomer"`
}

// Newcomer reports whether the candidate qualifies for the inclusion
// guarantee: an explicit flag or a clean recent-assignment history.
func (c CandidateStats) Newcomer() bool {
	return c.IsNewcomer || c.RecentAssignmentCount == 0
}
