package model

import "time"

type ReviewJobStatus string

const (
	ReviewStatusQueued     ReviewJobStatus = "queued"
	ReviewStatusProcessing ReviewJobStatus = "processing"
	ReviewStatusFlagged    ReviewJobStatus = "flagged"
	ReviewStatusDismissed  ReviewJobStatus = "dismissed"
	ReviewStatusFailed     ReviewJobStatus = "failed"
)

// ReviewJob is an asynchronous anti-cheat review task, enqueued whenever a
// finished session carries a non-disqualifying but suspicious issue (e.g.
// LOW_VARIANCE_TYPING, ERROR_COUNT_MISMATCH) or was disqualified outright.
// It is not part of the core's transactional boundary: it is created in
// the same transaction as the session update but processed out-of-band
// by a worker pulling off a Redis-backed queue.
type ReviewJob struct {
	ID           string          `json:"id"`
	SessionID    string          `json:"session_id"`
	Reason       string          `json:"reason"` // comma-joined issue codes
	Status       ReviewJobStatus `json:"status"`
	Attempts     int             `json:"attempts"`
	LastError    *string         `json:"last_error,omitempty"`
	ReviewedByID *string         `json:"reviewed_by_id,omitempty"`
	ReviewedAt   *time.Time      `json:"reviewed_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
