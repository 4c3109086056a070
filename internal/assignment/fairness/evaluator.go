// Package fairness applies equitable-distribution rules to a scored
// candidate pool and assigns priority buckets. Like scoring it is
// pure and deterministic.
package fairness

import (
	"github.com/gigdesk/assignq/internal/assignment/domain"
	"github.com/gigdesk/assignq/internal/assignment/scoring"
)

// Annotation keys recorded in entry metadata.
const (
	AnnotationPriorityCapped   = "priority_capped"
	AnnotationNewcomerPromoted = "newcomer_promoted"
	AnnotationAssignmentCount  = "recent_assignment_count"
)

// Ranked is a candidate that survived the fairness pass, with its
// final bucket. Buckets are rank positions: bucket 1 is the active
// offer, bucket n the last queued fallback.
type Ranked struct {
	scoring.Candidate
	PriorityBucket int
	Annotations    map[string]interface{}
}

// Result is the fairness-adjusted queue. An empty Ranked slice is a
// valid business outcome (pool exhausted), not an error.
type Result struct {
	Ranked   []Ranked
	Overflow []scoring.Candidate

	// NewcomerMissing is set when the newcomer guarantee was requested
	// but the eligible pool contains no newcomer at all. The generator
	// annotates the audit payload with it so the outcome is never
	// silent.
	NewcomerMissing bool
}

// Evaluate filters capped candidates, enforces the priority cap and
// the newcomer guarantee, truncates to the live-offer limit, and
// assigns contiguous priority buckets starting at 1.
func Evaluate(rules domain.FairnessRules, limit int, scored []scoring.Candidate) Result {
	eligible := make([]Ranked, 0, len(scored))

	// Rule 1: assignment cap excludes the candidate from the whole
	// generation.
	for _, c := range scored {
		if rules.MaxAssignments > 0 && c.Stats.RecentAssignmentCount >= rules.MaxAssignments {
			continue
		}
		eligible = append(eligible, Ranked{
			Candidate:   c,
			Annotations: map[string]interface{}{AnnotationAssignmentCount: c.Stats.RecentAssignmentCount},
		})
	}

	applyPriorityCap(rules, eligible)

	result := Result{}
	if rules.EnsureNewcomer {
		result.NewcomerMissing = !ensureNewcomer(eligible)
	}

	if limit > 0 && len(eligible) > limit {
		for _, r := range eligible[limit:] {
			result.Overflow = append(result.Overflow, r.Candidate)
		}
		eligible = eligible[:limit]
	}

	for i := range eligible {
		eligible[i].PriorityBucket = i + 1
	}
	result.Ranked = eligible

	return result
}

// applyPriorityCap moves the best candidate below the priority cap to
// the front; capped candidates ahead of it each slip one bucket. When
// every eligible candidate is capped the order stands, since the cap
// demotes rather than excludes.
func applyPriorityCap(rules domain.FairnessRules, eligible []Ranked) {
	if rules.MaxAssignmentsForPriority <= 0 || len(eligible) == 0 {
		return
	}

	capped := func(r Ranked) bool {
		return r.Stats.RecentAssignmentCount >= rules.MaxAssignmentsForPriority
	}

	if !capped(eligible[0]) {
		return
	}

	lead := -1
	for i, r := range eligible {
		if !capped(r) {
			lead = i
			break
		}
	}
	if lead < 0 {
		return
	}

	for _, r := range eligible[:lead] {
		r.Annotations[AnnotationPriorityCapped] = true
	}
	promote(eligible, lead)
}

// ensureNewcomer guarantees the active offer goes to a newcomer when
// one exists anywhere in the eligible pool. Returns false when the
// pool has no newcomer to promote.
func ensureNewcomer(eligible []Ranked) bool {
	if len(eligible) == 0 {
		return false
	}
	if eligible[0].Stats.Newcomer() {
		return true
	}

	for i, r := range eligible {
		if r.Stats.Newcomer() {
			eligible[i].Annotations[AnnotationNewcomerPromoted] = true
			promote(eligible, i)
			return true
		}
	}
	return false
}

// promote moves eligible[i] to the front, shifting the candidates it
// passes down one position.
func promote(eligible []Ranked, i int) {
	moved := eligible[i]
	copy(eligible[1:i+1], eligible[:i])
	eligible[0] = moved
}
