// Package scoring computes normalized multi-factor scores for the
// candidates of an assignment queue. It is pure: no I/O, no clocks,
// deterministic output for identical input.
package scoring

import (
	"math"
	"sort"

	"github.com/gigdesk/assignq/internal/assignment/domain"
)

// Factor keys used in the score breakdown recorded for audit.
const (
	FactorRecency           = "recency"
	FactorRating            = "rating"
	FactorCompletionRecency = "completion_recency"
	FactorCompletionQuality = "completion_quality"
	FactorEarningsBalance   = "earnings_balance"
	FactorInclusion         = "inclusion"
)

// completionDecayDays controls the exponential decay applied to
// days-since-last-completion: a completion 30 days ago contributes
// roughly 0.37.
const completionDecayDays = 30.0

// Candidate is a scored queue candidate with its per-factor breakdown.
type Candidate struct {
	Stats     domain.CandidateStats
	Score     float64
	Breakdown map[string]float64
}

// Rank scores every candidate and returns them ordered by score
// descending, ties broken by freelancer ID ascending so regeneration
// with identical input is byte-for-byte reproducible. Candidates with
// no usable factor at all are dropped.
func Rank(weights domain.Weights, stats []domain.CandidateStats) []Candidate {
	ranked := make([]Candidate, 0, len(stats))

	for _, s := range stats {
		c, ok := score(weights, s)
		if !ok {
			continue
		}
		ranked = append(ranked, c)
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Stats.FreelancerID < ranked[j].Stats.FreelancerID
	})

	return ranked
}

// score computes the weighted sum of the normalized factors that are
// actually present: a missing factor is excluded from both numerator
// and denominator instead of dragging the score toward zero. The
// second return value is false when no factor contributed.
func score(weights domain.Weights, s domain.CandidateStats) (Candidate, bool) {
	breakdown := make(map[string]float64)

	var sum, weightSum float64

	add := func(factor string, weight float64, value *float64) {
		if weight <= 0 || value == nil {
			return
		}
		breakdown[factor] = *value
		sum += weight * *value
		weightSum += weight
	}

	add(FactorRecency, weights.Recency, normalizeRecency(s.RecencyScore))
	add(FactorRating, weights.Rating, normalizeRating(s.Rating))
	add(FactorCompletionRecency, weights.CompletionRecency, normalizeCompletionRecency(s.CompletionRecencyDays))
	add(FactorCompletionQuality, weights.CompletionQuality, normalizeQuality(s.CompletionQuality))
	add(FactorEarningsBalance, weights.EarningsBalance, normalizeEarningsBalance(s.EarningsBalance))
	add(FactorInclusion, weights.Inclusion, inclusionFactor(s))

	if weightSum == 0 {
		return Candidate{}, false
	}

	return Candidate{
		Stats:     s,
		Score:     sum / weightSum,
		Breakdown: breakdown,
	}, true
}

// normalizeRecency treats the directory's activity score as already
// normalized and only clamps it.
func normalizeRecency(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return ptr(clamp01(*v))
}

// normalizeRating uses the rating as a direct fraction.
func normalizeRating(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return ptr(clamp01(*v))
}

// normalizeCompletionRecency decays days-since-last-completion
// exponentially, so recent completions score near 1.
func normalizeCompletionRecency(days *float64) *float64 {
	if days == nil {
		return nil
	}
	d := math.Max(0, *days)
	return ptr(math.Exp(-d / completionDecayDays))
}

func normalizeQuality(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return ptr(clamp01(*v))
}

// normalizeEarningsBalance inverts the earnings-concentration
// indicator so freelancers who earned the least recently score
// highest.
func normalizeEarningsBalance(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return ptr(1 / (1 + math.Max(0, *v)))
}

// inclusionFactor is flag-derived and therefore always present when
// the inclusion weight is set.
func inclusionFactor(s domain.CandidateStats) *float64 {
	if s.Newcomer() {
		return ptr(1.0)
	}
	return ptr(0.0)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func ptr(v float64) *float64 { return &v }
