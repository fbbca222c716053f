package model

import "time"

// Entry is the per-(user,contest) aggregate: one row, created lazily on
// first join or first start-session, never deleted outside contest
// deletion.
type Entry struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	ContestID     string     `json:"contest_id"`
	AttemptsUsed  int        `json:"attempts_used"`
	BestScore     *int       `json:"best_score,omitempty"`
	BestCpm       *float64   `json:"best_cpm,omitempty"`
	BestAccuracy  *float64   `json:"best_accuracy,omitempty"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
