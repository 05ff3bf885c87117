package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonsonwune/admitmatch/models"
)

func TestAggregateWindowsMostRecentYears(t *testing.T) {
	eng := New(DefaultConfig())
	records := []models.ScoreRecord{
		scoredYear(2017, 580),
		scoredYear(2019, 590),
		scoredYear(2023, 610),
		scoredYear(2020, 595),
		scoredYear(2021, 600),
		scoredYear(2022, 605),
		scoredYear(2018, 585),
	}

	stats := eng.Aggregate("g1", records)
	require.Equal(t, 5, stats.YearsAvailable)
	require.Len(t, stats.Records, 5)
	assert.Equal(t, 2023, stats.Records[0].Year)
	assert.Equal(t, 2019, stats.Records[4].Year)
}

func TestAggregateAveragesSkipNullsButCountYears(t *testing.T) {
	eng := New(DefaultConfig())
	nullYear := scoreRecord(2022, "C1", "01", "", "JS", "physics")
	records := []models.ScoreRecord{
		scoredYear(2023, 600),
		nullYear,
		scoredYear(2021, 610),
	}

	stats := eng.Aggregate("g1", records)
	assert.Equal(t, 3, stats.YearsAvailable)
	require.True(t, stats.HasAvgMinScore)
	assert.InDelta(t, 605, stats.AvgMinScore, 1e-9)
}

func TestAggregateAvgMinRank(t *testing.T) {
	eng := New(DefaultConfig())
	withRank := scoredYear(2023, 600)
	withRank.MinRank = ni(12000)
	withoutRank := scoredYear(2022, 605)
	alsoRanked := scoredYear(2021, 610)
	alsoRanked.MinRank = ni(10000)

	stats := eng.Aggregate("g1", []models.ScoreRecord{withRank, withoutRank, alsoRanked})
	require.True(t, stats.HasAvgMinRank)
	assert.InDelta(t, 11000, stats.AvgMinRank, 1e-9)
}

func TestAggregateTrend(t *testing.T) {
	eng := New(DefaultConfig())
	tests := []struct {
		name   string
		scores map[int]int64
		want   Trend
	}{
		{
			name:   "rising beyond tolerance",
			scores: map[int]int64{2021: 600, 2022: 604, 2023: 610},
			want:   TrendRising,
		},
		{
			name:   "falling beyond tolerance",
			scores: map[int]int64{2021: 610, 2022: 606, 2023: 601},
			want:   TrendFalling,
		},
		{
			name:   "within tolerance is stable",
			scores: map[int]int64{2021: 600, 2023: 602},
			want:   TrendStable,
		},
		{
			name:   "exactly at tolerance is stable",
			scores: map[int]int64{2021: 602, 2023: 600},
			want:   TrendStable,
		},
		{
			name:   "single year has no direction",
			scores: map[int]int64{2023: 600},
			want:   TrendUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var records []models.ScoreRecord
			for year, score := range tt.scores {
				records = append(records, scoredYear(year, score))
			}
			stats := eng.Aggregate("g1", records)
			assert.Equal(t, tt.want, stats.Trend)
		})
	}
}

func TestAggregateTrendIgnoresNullEndpoints(t *testing.T) {
	eng := New(DefaultConfig())
	nullLatest := scoreRecord(2023, "C1", "01", "", "JS", "physics")
	records := []models.ScoreRecord{
		nullLatest,
		scoredYear(2022, 610),
		scoredYear(2020, 600),
	}

	// 2022 vs 2020 are the usable endpoints.
	stats := eng.Aggregate("g1", records)
	assert.Equal(t, TrendRising, stats.Trend)
}

func TestAggregateEmptyHistory(t *testing.T) {
	eng := New(DefaultConfig())
	stats := eng.Aggregate("g1", nil)
	assert.Equal(t, 0, stats.YearsAvailable)
	assert.False(t, stats.HasAvgMinScore)
	assert.False(t, stats.HasAvgMinRank)
	assert.Equal(t, TrendUnknown, stats.Trend)
}

func TestAggregateDropsInvalidYears(t *testing.T) {
	eng := New(DefaultConfig())
	invalid := scoredYear(0, 600)
	stats := eng.Aggregate("g1", []models.ScoreRecord{invalid})
	assert.Equal(t, 0, stats.YearsAvailable)
}

func TestAggregateDeduplicatesYears(t *testing.T) {
	eng := New(DefaultConfig())
	records := []models.ScoreRecord{
		scoredYear(2023, 600),
		scoredYear(2023, 650),
		scoredYear(2022, 610),
	}

	stats := eng.Aggregate("g1", records)
	assert.Equal(t, 2, stats.YearsAvailable)
	assert.InDelta(t, 605, stats.AvgMinScore, 1e-9)
}

func TestAggregateRespectsConfiguredWindow(t *testing.T) {
	eng := New(Config{MaxYears: 2})
	records := []models.ScoreRecord{
		scoredYear(2021, 590),
		scoredYear(2022, 600),
		scoredYear(2023, 610),
	}

	stats := eng.Aggregate("g1", records)
	assert.Equal(t, 2, stats.YearsAvailable)
	assert.InDelta(t, 605, stats.AvgMinScore, 1e-9)
}
