// Package leaderboard is the pure ranking projector (C5): it sorts
// finished sessions by the contest's total order and assigns standard
// competition ranks honoring full-tuple ties.
package leaderboard

import (
	"sort"
	"time"
)

// Session is the minimal shape C5 needs to rank an entry; the typing
// store's session rows are adapted into this before projection.
type Session struct {
	SessionID string
	UserID    string
	Username  string
	Score     int
	Accuracy  float64
	Cpm       float64
	EndedAt   time.Time
}

// Ranked decorates a Session with its assigned rank.
type Ranked struct {
	Session
	Rank int
}

// Summary is the trimmed view handed to transport: the top 10 plus a total
// count of the full input.
type Summary struct {
	Top   []Ranked
	Total int
}

// less implements the leaderboard total order: score desc, accuracy desc,
// cpm desc, endedAt asc.
func less(a, b Session) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Accuracy != b.Accuracy {
		return a.Accuracy > b.Accuracy
	}
	if a.Cpm != b.Cpm {
		return a.Cpm > b.Cpm
	}
	return a.EndedAt.Before(b.EndedAt)
}

func tied(a, b Session) bool {
	return a.Score == b.Score && a.Accuracy == b.Accuracy && a.Cpm == b.Cpm && a.EndedAt.Equal(b.EndedAt)
}

// BuildLeaderboard sorts sessions by the total order and assigns standard
// competition ranks (1,2,2,4): two rows share a rank iff all four ordering
// keys are pairwise equal; otherwise the next row takes the positional
// rank.
func BuildLeaderboard(sessions []Session) ([]Ranked, Summary) {
	sorted := make([]Session, len(sessions))
	copy(sorted, sessions)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })

	ranked := make([]Ranked, len(sorted))
	for i, s := range sorted {
		rank := i + 1
		if i > 0 && tied(sorted[i-1], s) {
			rank = ranked[i-1].Rank
		}
		ranked[i] = Ranked{Session: s, Rank: rank}
	}

	top := ranked
	if len(top) > 10 {
		top = top[:10]
	}

	return ranked, Summary{Top: top, Total: len(ranked)}
}

// ExtractPersonalRank returns the first ranked row belonging to userID, or
// nil if that user has no finished session in the ranked list. Callers
// wanting only a best-per-user view must deduplicate upstream.
func ExtractPersonalRank(ranked []Ranked, userID string) *Ranked {
	for _, r := range ranked {
		if r.UserID == userID {
			rCopy := r
			return &rCopy
		}
	}
	return nil
}
