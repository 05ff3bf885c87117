package engine

import "math"

// Category bands an estimated admission probability into advisory guidance.
type Category string

const (
	CategoryAggressive Category = "aggressive"
	CategoryBalanced   Category = "balanced"
	CategorySafe       Category = "safe"
)

// Exclusion reasons set by the post-classification safety filter.
const (
	ExclusionFarBelowAverage = "too-far-below-average"
	ExclusionTooConservative = "too-conservative"
	ExclusionImplausible     = "statistically-implausible"
)

// ClassificationResult is the derived verdict for one candidate against one
// group. Excluded results are still returned in full: the engine classifies,
// the caller decides what to surface.
type ClassificationResult struct {
	Probability      float64  `json:"probability"`
	Category         Category `json:"category"`
	SafetyMargin     int      `json:"safety_margin"`
	Trend            Trend    `json:"trend"`
	InsufficientData bool     `json:"insufficient_data"`
	Excluded         bool     `json:"excluded"`
	ExclusionReason  string   `json:"exclusion_reason,omitempty"`
}

// Classify estimates the candidate's admission probability against a group's
// statistics. candidateRank <= 0 means no rank was supplied. The function is
// pure and total: any finite inputs produce a result, including the common
// case of a group with no linked history, which yields the neutral
// insufficient-data verdict rather than fabricated confidence.
func (e *Engine) Classify(candidateScore float64, candidateRank int64, stats GroupStatistics) ClassificationResult {
	if stats.YearsAvailable == 0 {
		return ClassificationResult{
			Probability:      0.5,
			Category:         CategoryBalanced,
			Trend:            TrendUnknown,
			InsufficientData: true,
		}
	}

	satisfied := 0
	for _, rec := range stats.Records {
		if rec.MinScore.Valid && candidateScore >= float64(rec.MinScore.Int64) {
			satisfied++
		}
	}
	probability := float64(satisfied) / float64(stats.YearsAvailable)

	rankFactor := 1.0
	if candidateRank > 0 && stats.HasAvgMinRank {
		// A smaller rank number out-performs history.
		if stats.AvgMinRank-float64(candidateRank) > 0 {
			rankFactor = e.config.RankBoost
		} else {
			rankFactor = e.config.RankPenalty
		}
	}
	probability = clamp(probability*rankFactor, 0, 1)

	result := ClassificationResult{
		Probability: probability,
		Category:    e.categorize(probability),
		Trend:       stats.Trend,
	}

	if stats.HasAvgMinScore {
		result.SafetyMargin = int(math.Round(candidateScore - stats.AvgMinScore))
		e.applyExclusions(&result)
	}
	return result
}

// categorize maps a probability onto its band. Bands are left-closed and
// right-open: exactly 0.35 is balanced, exactly 0.90 is safe.
func (e *Engine) categorize(probability float64) Category {
	switch {
	case probability < e.config.AggressiveBelow:
		return CategoryAggressive
	case probability < e.config.SafeAtOrAbove:
		return CategoryBalanced
	default:
		return CategorySafe
	}
}

// applyExclusions runs the safety filter. It only flags; probability and
// category are left untouched.
func (e *Engine) applyExclusions(result *ClassificationResult) {
	switch {
	case result.SafetyMargin <= e.config.ExcludeBelowMargin:
		result.Excluded = true
		result.ExclusionReason = ExclusionFarBelowAverage
	case result.SafetyMargin >= e.config.ConservativeMargin && result.Category == CategorySafe:
		result.Excluded = true
		result.ExclusionReason = ExclusionTooConservative
	case result.Probability < e.config.ImplausibleProbability && result.SafetyMargin <= e.config.ImplausibleMargin:
		result.Excluded = true
		result.ExclusionReason = ExclusionImplausible
	}
}

func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
