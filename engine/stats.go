package engine

import (
	"sort"

	"github.com/nonsonwune/admitmatch/models"
)

// Trend describes the direction of a group's cutoff line over its windowed
// history.
type Trend string

const (
	TrendRising  Trend = "rising"
	TrendFalling Trend = "falling"
	TrendStable  Trend = "stable"
	TrendUnknown Trend = "unknown"
)

// GroupStatistics is the derived, never-persisted summary of a group's
// linked history. YearsAvailable counts every windowed record, including
// ones whose minScore is null; the averages only cover non-null values.
type GroupStatistics struct {
	GroupID        string               `json:"group_id"`
	Records        []models.ScoreRecord `json:"records"`
	AvgMinScore    float64              `json:"avg_min_score"`
	HasAvgMinScore bool                 `json:"has_avg_min_score"`
	AvgMinRank     float64              `json:"avg_min_rank"`
	HasAvgMinRank  bool                 `json:"has_avg_min_rank"`
	YearsAvailable int                  `json:"years_available"`
	Trend          Trend                `json:"trend"`
}

// Aggregate computes the statistics for one group from its linked score
// records. It selects the most recent MaxYears distinct years (records with
// a non-positive year never qualify) and reports a zero-year statistics
// value, not an error, when nothing usable is linked.
func (e *Engine) Aggregate(groupID string, records []models.ScoreRecord) GroupStatistics {
	stats := GroupStatistics{GroupID: groupID, Trend: TrendUnknown}

	selected := make([]models.ScoreRecord, 0, len(records))
	for _, rec := range records {
		if rec.Year > 0 {
			selected = append(selected, rec)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Year > selected[j].Year
	})

	// One record per year, newest first, capped at the window size.
	window := selected[:0]
	seenYears := make(map[int]bool)
	for _, rec := range selected {
		if seenYears[rec.Year] {
			continue
		}
		seenYears[rec.Year] = true
		window = append(window, rec)
		if len(window) == e.config.MaxYears {
			break
		}
	}

	stats.Records = window
	stats.YearsAvailable = len(window)
	if len(window) == 0 {
		return stats
	}

	var scoreSum, rankSum float64
	var scoreCount, rankCount int
	for _, rec := range window {
		if rec.MinScore.Valid {
			scoreSum += float64(rec.MinScore.Int64)
			scoreCount++
		}
		if rec.MinRank.Valid {
			rankSum += float64(rec.MinRank.Int64)
			rankCount++
		}
	}
	if scoreCount > 0 {
		stats.AvgMinScore = scoreSum / float64(scoreCount)
		stats.HasAvgMinScore = true
	}
	if rankCount > 0 {
		stats.AvgMinRank = rankSum / float64(rankCount)
		stats.HasAvgMinRank = true
	}

	stats.Trend = e.trend(window)
	return stats
}

// trend compares the minScore of the latest and earliest scored years in the
// window. With fewer than two non-null observations there is no direction to
// report and the trend stays unknown.
func (e *Engine) trend(window []models.ScoreRecord) Trend {
	var latest, earliest *models.ScoreRecord
	for i := range window {
		if !window[i].MinScore.Valid {
			continue
		}
		if latest == nil {
			latest = &window[i]
		}
		earliest = &window[i]
	}
	if latest == nil || latest == earliest {
		return TrendUnknown
	}

	diff := float64(latest.MinScore.Int64 - earliest.MinScore.Int64)
	switch {
	case diff > e.config.TrendTolerance:
		return TrendRising
	case diff < -e.config.TrendTolerance:
		return TrendFalling
	default:
		return TrendStable
	}
}
