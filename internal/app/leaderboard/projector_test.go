package leaderboard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLeaderboard_S5Ordering(t *testing.T) {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	sessions := []Session{
		{SessionID: "s1", UserID: "u1", Score: 500, Accuracy: 0.95, Cpm: 400, EndedAt: base.Add(60 * time.Minute)},
		{SessionID: "s2", UserID: "u2", Score: 520, Accuracy: 0.92, Cpm: 390, EndedAt: base.Add(50 * time.Minute)},
		{SessionID: "s3", UserID: "u3", Score: 500, Accuracy: 0.97, Cpm: 410, EndedAt: base.Add(55 * time.Minute)},
	}

	ranked, summary := BuildLeaderboard(sessions)
	require.Len(t, ranked, 3)

	assert.Equal(t, "s2", ranked[0].SessionID)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, "s3", ranked[1].SessionID)
	assert.Equal(t, 2, ranked[1].Rank)
	assert.Equal(t, "s1", ranked[2].SessionID)
	assert.Equal(t, 3, ranked[2].Rank)
	assert.Equal(t, 3, summary.Total)

	personal := ExtractPersonalRank(ranked, "u3")
	require.NotNil(t, personal)
	assert.Equal(t, 2, personal.Rank)
}

func TestBuildLeaderboard_FullTupleTies(t *testing.T) {
	now := time.Now()
	sessions := []Session{
		{SessionID: "a", UserID: "u1", Score: 100, Accuracy: 1, Cpm: 200, EndedAt: now},
		{SessionID: "b", UserID: "u2", Score: 100, Accuracy: 1, Cpm: 200, EndedAt: now},
		{SessionID: "c", UserID: "u3", Score: 90, Accuracy: 1, Cpm: 200, EndedAt: now},
	}
	ranked, _ := BuildLeaderboard(sessions)
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 1, ranked[1].Rank)
	assert.Equal(t, 3, ranked[2].Rank) // next distinct row takes positional rank 3, not 2
}

func TestBuildLeaderboard_RankNonDecreasing(t *testing.T) {
	now := time.Now()
	sessions := []Session{
		{SessionID: "a", Score: 300, EndedAt: now},
		{SessionID: "b", Score: 200, EndedAt: now},
		{SessionID: "c", Score: 100, EndedAt: now},
	}
	ranked, _ := BuildLeaderboard(sessions)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i].Rank, ranked[i-1].Rank)
	}
}

func TestExtractPersonalRank_NotFound(t *testing.T) {
	ranked, _ := BuildLeaderboard(nil)
	assert.Nil(t, ExtractPersonalRank(ranked, "nobody"))
}

func TestBuildLeaderboard_TopCappedAtTen(t *testing.T) {
	sessions := make([]Session, 15)
	now := time.Now()
	for i := range sessions {
		sessions[i] = Session{SessionID: string(rune('a' + i)), Score: 100 - i, EndedAt: now}
	}
	_, summary := BuildLeaderboard(sessions)
	assert.Len(t, summary.Top, 10)
	assert.Equal(t, 15, summary.Total)
}
