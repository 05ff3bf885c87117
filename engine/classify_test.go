package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonsonwune/admitmatch/models"
)

func statsFor(t *testing.T, eng *Engine, records []models.ScoreRecord) GroupStatistics {
	t.Helper()
	return eng.Aggregate("g1", records)
}

func threeYearHistory() []models.ScoreRecord {
	return []models.ScoreRecord{
		scoredYear(2021, 600),
		scoredYear(2022, 610),
		scoredYear(2023, 605),
	}
}

func TestClassifyNoDataSafety(t *testing.T) {
	eng := New(DefaultConfig())
	result := eng.Classify(650, 0, statsFor(t, eng, nil))

	assert.InDelta(t, 0.5, result.Probability, 1e-9)
	assert.Equal(t, CategoryBalanced, result.Category)
	assert.Equal(t, TrendUnknown, result.Trend)
	assert.True(t, result.InsufficientData)
	assert.False(t, result.Excluded)
}

func TestClassifyAllYearsSatisfied(t *testing.T) {
	eng := New(DefaultConfig())
	result := eng.Classify(612, 0, statsFor(t, eng, threeYearHistory()))

	assert.InDelta(t, 1.0, result.Probability, 1e-9)
	assert.Equal(t, CategorySafe, result.Category)
	// avg(600, 610, 605) = 605
	assert.Equal(t, 7, result.SafetyMargin)
	assert.False(t, result.Excluded)
}

func TestClassifyNoYearsSatisfied(t *testing.T) {
	eng := New(DefaultConfig())
	result := eng.Classify(590, 0, statsFor(t, eng, threeYearHistory()))

	assert.InDelta(t, 0.0, result.Probability, 1e-9)
	assert.Equal(t, CategoryAggressive, result.Category)
	assert.Equal(t, -15, result.SafetyMargin)
	require.True(t, result.Excluded)
	assert.Equal(t, ExclusionImplausible, result.ExclusionReason)
}

func TestClassifyBandBoundaries(t *testing.T) {
	// 20 years, 7 satisfied: probability lands exactly on 0.35.
	var lowBand []models.ScoreRecord
	for i := 0; i < 20; i++ {
		year := 2004 + i
		if i < 7 {
			lowBand = append(lowBand, scoredYear(year, 600))
		} else {
			lowBand = append(lowBand, scoredYear(year, 604))
		}
	}
	wideEng := New(Config{MaxYears: 20})
	result := wideEng.Classify(600, 0, statsFor(t, wideEng, lowBand))
	require.InDelta(t, 0.35, result.Probability, 1e-9)
	assert.Equal(t, CategoryBalanced, result.Category, "0.35 is balanced, not aggressive")

	// 10 years, 9 satisfied: probability lands exactly on 0.90.
	var highBand []models.ScoreRecord
	for i := 0; i < 10; i++ {
		year := 2014 + i
		if i < 9 {
			highBand = append(highBand, scoredYear(year, 600))
		} else {
			highBand = append(highBand, scoredYear(year, 620))
		}
	}
	tenEng := New(Config{MaxYears: 10})
	result = tenEng.Classify(610, 0, statsFor(t, tenEng, highBand))
	require.InDelta(t, 0.90, result.Probability, 1e-9)
	assert.Equal(t, CategorySafe, result.Category, "0.90 is safe, not balanced")
}

func TestClassifyMonotonicInScore(t *testing.T) {
	eng := New(DefaultConfig())
	stats := statsFor(t, eng, []models.ScoreRecord{
		scoredYear(2019, 580),
		scoredYear(2020, 595),
		scoredYear(2021, 600),
		scoredYear(2022, 610),
		scoredYear(2023, 605),
	})

	previous := -1.0
	for score := 550.0; score <= 700; score++ {
		probability := eng.Classify(score, 0, stats).Probability
		assert.GreaterOrEqual(t, probability, previous, "score %.0f", score)
		previous = probability
	}
}

func TestClassifyRankFactor(t *testing.T) {
	eng := New(DefaultConfig())

	ranked := func(year int, minScore, minRank int64) models.ScoreRecord {
		rec := scoredYear(year, minScore)
		rec.MinRank = ni(minRank)
		return rec
	}
	stats := statsFor(t, eng, []models.ScoreRecord{
		ranked(2021, 600, 9000),
		ranked(2022, 605, 11000),
		scoredYear(2023, 615),
	})
	// base = 2/3 at score 610; avgMinRank = 10000

	boosted := eng.Classify(610, 5000, stats)
	assert.InDelta(t, 2.0/3.0*1.2, boosted.Probability, 1e-9)

	penalized := eng.Classify(610, 20000, stats)
	assert.InDelta(t, 2.0/3.0*0.8, penalized.Probability, 1e-9)

	// Rank equal to the historical average is not an out-performance.
	equal := eng.Classify(610, 10000, stats)
	assert.InDelta(t, 2.0/3.0*0.8, equal.Probability, 1e-9)

	neutral := eng.Classify(610, 0, stats)
	assert.InDelta(t, 2.0/3.0, neutral.Probability, 1e-9)
}

func TestClassifyRankFactorWithoutRankData(t *testing.T) {
	eng := New(DefaultConfig())
	stats := statsFor(t, eng, threeYearHistory())

	// Rank supplied but no historical minRank: factor stays 1.
	result := eng.Classify(606, 5000, stats)
	assert.InDelta(t, 2.0/3.0, result.Probability, 1e-9)
}

func TestClassifyProbabilityClamped(t *testing.T) {
	eng := New(DefaultConfig())
	ranked := func(year int, minScore, minRank int64) models.ScoreRecord {
		rec := scoredYear(year, minScore)
		rec.MinRank = ni(minRank)
		return rec
	}
	stats := statsFor(t, eng, []models.ScoreRecord{
		ranked(2022, 600, 10000),
		ranked(2023, 605, 10000),
	})

	// base 1.0 boosted by 1.2 must clamp back to 1.0.
	result := eng.Classify(650, 500, stats)
	assert.InDelta(t, 1.0, result.Probability, 1e-9)
	assert.Equal(t, CategorySafe, result.Category)
}

func TestClassifyExclusionTooConservative(t *testing.T) {
	eng := New(DefaultConfig())
	stats := statsFor(t, eng, []models.ScoreRecord{
		scoredYear(2021, 600),
		scoredYear(2022, 600),
		scoredYear(2023, 600),
	})

	result := eng.Classify(620, 0, stats)
	assert.InDelta(t, 1.0, result.Probability, 1e-9)
	assert.Equal(t, CategorySafe, result.Category)
	assert.Equal(t, 20, result.SafetyMargin)
	require.True(t, result.Excluded)
	assert.Equal(t, ExclusionTooConservative, result.ExclusionReason)
}

func TestClassifyExclusionFarBelowAverage(t *testing.T) {
	eng := New(DefaultConfig())
	stats := statsFor(t, eng, []models.ScoreRecord{
		scoredYear(2021, 600),
		scoredYear(2022, 600),
		scoredYear(2023, 600),
	})

	result := eng.Classify(575, 0, stats)
	assert.Equal(t, -25, result.SafetyMargin)
	require.True(t, result.Excluded)
	assert.Equal(t, ExclusionFarBelowAverage, result.ExclusionReason)
	// The filter flags; it does not reclassify.
	assert.Equal(t, CategoryAggressive, result.Category)
	assert.InDelta(t, 0.0, result.Probability, 1e-9)
}

func TestClassifyMarginInsideBandsNotExcluded(t *testing.T) {
	eng := New(DefaultConfig())
	stats := statsFor(t, eng, threeYearHistory())

	result := eng.Classify(615, 0, stats)
	assert.Equal(t, 10, result.SafetyMargin)
	assert.False(t, result.Excluded)
}

func TestClassifyAllNullScoresStillTotal(t *testing.T) {
	eng := New(DefaultConfig())
	nullOnly := []models.ScoreRecord{
		scoreRecord(2022, "C1", "01", "", "JS", "physics"),
		scoreRecord(2023, "C1", "01", "", "JS", "physics"),
	}
	stats := statsFor(t, eng, nullOnly)
	require.Equal(t, 2, stats.YearsAvailable)
	require.False(t, stats.HasAvgMinScore)

	// No average to measure a margin against; classification still returns.
	result := eng.Classify(600, 0, stats)
	assert.InDelta(t, 0.0, result.Probability, 1e-9)
	assert.Equal(t, CategoryAggressive, result.Category)
	assert.Equal(t, 0, result.SafetyMargin)
	assert.False(t, result.Excluded)
}
