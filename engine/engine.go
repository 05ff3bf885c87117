// Package engine reconciles current-cycle quota records and historical score
// records into canonical admission groups, and classifies a candidate's
// admission chances against a group's multi-year cutoff history.
//
// All transformations here are pure and in-memory; persistence lives in the
// store package. The intended pipeline is:
//
//	quota records -> ResolveGroups -> registry -> LinkHistory -> Aggregate -> Classify
package engine

import (
	"github.com/nonsonwune/admitmatch/models"
)

// Constants for configuration defaults
const (
	DefaultMaxYears    = 5
	DefaultWorkerCount = 4
)

// Config carries the tunable heuristics of the engine. The numeric defaults
// are business heuristics, not derived invariants; callers may override any
// of them. Zero values are replaced by the defaults in New.
type Config struct {
	// MaxYears is the size of the per-group history window (K).
	MaxYears int
	// TrendTolerance is the minimum score movement between the earliest and
	// latest windowed year before a trend counts as rising or falling.
	TrendTolerance float64
	// RankBoost multiplies the base probability when the candidate's rank
	// out-performs the historical average; RankPenalty applies otherwise.
	RankBoost   float64
	RankPenalty float64
	// AggressiveBelow and SafeAtOrAbove are the category band edges:
	// p < AggressiveBelow -> aggressive; p >= SafeAtOrAbove -> safe.
	AggressiveBelow float64
	SafeAtOrAbove   float64
	// Exclusion thresholds, applied after classification.
	ExcludeBelowMargin     int
	ConservativeMargin     int
	ImplausibleProbability float64
	ImplausibleMargin      int
	// WorkerCount bounds the linker's parallelism.
	WorkerCount int
}

// DefaultConfig returns the configuration observed in production use.
func DefaultConfig() Config {
	return Config{
		MaxYears:               DefaultMaxYears,
		TrendTolerance:         2,
		RankBoost:              1.2,
		RankPenalty:            0.8,
		AggressiveBelow:        0.35,
		SafeAtOrAbove:          0.90,
		ExcludeBelowMargin:     -20,
		ConservativeMargin:     15,
		ImplausibleProbability: 0.05,
		ImplausibleMargin:      -15,
		WorkerCount:            DefaultWorkerCount,
	}
}

// Engine evaluates admission groups under one Config. It holds no mutable
// state and is safe for concurrent use.
type Engine struct {
	config Config
}

// New returns an Engine for the given config. Unset numeric fields fall back
// to their defaults so partial configs stay usable.
func New(config Config) *Engine {
	def := DefaultConfig()
	if config.MaxYears <= 0 {
		config.MaxYears = def.MaxYears
	}
	if config.TrendTolerance <= 0 {
		config.TrendTolerance = def.TrendTolerance
	}
	if config.RankBoost <= 0 {
		config.RankBoost = def.RankBoost
	}
	if config.RankPenalty <= 0 {
		config.RankPenalty = def.RankPenalty
	}
	if config.AggressiveBelow <= 0 {
		config.AggressiveBelow = def.AggressiveBelow
	}
	if config.SafeAtOrAbove <= 0 {
		config.SafeAtOrAbove = def.SafeAtOrAbove
	}
	if config.ExcludeBelowMargin == 0 {
		config.ExcludeBelowMargin = def.ExcludeBelowMargin
	}
	if config.ConservativeMargin == 0 {
		config.ConservativeMargin = def.ConservativeMargin
	}
	if config.ImplausibleProbability <= 0 {
		config.ImplausibleProbability = def.ImplausibleProbability
	}
	if config.ImplausibleMargin == 0 {
		config.ImplausibleMargin = def.ImplausibleMargin
	}
	if config.WorkerCount <= 0 {
		config.WorkerCount = def.WorkerCount
	}
	return &Engine{config: config}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// ResolveGroups derives the canonical admission groups for one cycle from its
// quota records. existingIDs maps natural keys to ids persisted by a previous
// run; matching groups keep their id so reruns never duplicate.
func (e *Engine) ResolveGroups(records []models.QuotaRecord, existingIDs map[GroupKey]string) ResolveResult {
	return BuildRegistry(records, existingIDs).Result()
}

// ClassifyCandidate aggregates a group's linked history and classifies the
// candidate against it. rank <= 0 means no rank was supplied. A group with no
// usable history yields the insufficient-data result, never an error.
func (e *Engine) ClassifyCandidate(candidateScore float64, candidateRank int64, groupID string, history []models.ScoreRecord) ClassificationResult {
	stats := e.Aggregate(groupID, history)
	return e.Classify(candidateScore, candidateRank, stats)
}
