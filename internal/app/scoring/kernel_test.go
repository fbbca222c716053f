package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate_CleanFinish(t *testing.T) {
	stats, err := Calculate(6, 0, 2150)
	require.NoError(t, err)
	assert.InDelta(t, 167.44, stats.Cpm, 0.1)
	assert.InDelta(t, 33.49, stats.Wpm, 0.1)
	assert.Equal(t, 1.0, stats.Accuracy)
	assert.Equal(t, 83, stats.Score)
}

func TestCalculate_DegenerateElapsed(t *testing.T) {
	stats, err := Calculate(3, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, Stats{Cpm: 0, Wpm: 0, Accuracy: 1, Score: 0}, stats)

	stats, err = Calculate(3, 2, -5)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.Accuracy)
}

func TestCalculate_NegativeInputsFail(t *testing.T) {
	_, err := Calculate(-1, 0, 1000)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Calculate(0, -1, 1000)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestCalculate_AccuracyBounds(t *testing.T) {
	for c := 0; c <= 20; c++ {
		for m := 0; m <= 20; m++ {
			stats, err := Calculate(c, m, 5000)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, stats.Accuracy, 0.0)
			assert.LessOrEqual(t, stats.Accuracy, 1.0)
		}
	}
}

func TestCalculate_ScoreMonotonicInCorrectness(t *testing.T) {
	prev := -1
	for c := 0; c <= 50; c++ {
		stats, err := Calculate(c, 2, 10000)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, stats.Score, prev)
		prev = stats.Score
	}
}

func TestCompare_MissingReportedForcesMismatch(t *testing.T) {
	authoritative := Stats{Cpm: 100, Wpm: 20, Accuracy: 1, Score: 50}
	cmp := Compare(Stats{}, authoritative, false, DefaultTolerances)
	assert.False(t, cmp.OK)
	assert.True(t, math.IsInf(cmp.CpmDelta, 1))
}

func TestCompare_WithinTolerance(t *testing.T) {
	authoritative := Stats{Cpm: 120, Wpm: 24, Accuracy: 1, Score: 60}
	reported := Stats{Cpm: 121, Wpm: 24.5, Accuracy: 0.99, Score: 61}
	cmp := Compare(reported, authoritative, true, RelaxedTolerances)
	assert.True(t, cmp.OK)
}

func TestCompare_S3MetricMismatch(t *testing.T) {
	authoritative := Stats{Cpm: 120, Wpm: 24, Accuracy: 1, Score: 60}
	reported := Stats{Cpm: 50, Wpm: 10, Accuracy: 0.5, Score: 10}
	cmp := Compare(reported, authoritative, true, RelaxedTolerances)
	assert.False(t, cmp.OK)
}
