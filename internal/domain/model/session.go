package model

import "time"

type SessionStatus string

const (
	SessionRunning  SessionStatus = "running"
	SessionFinished SessionStatus = "finished"
	SessionExpired  SessionStatus = "expired"
	SessionDQ       SessionStatus = "dq"
)

// Session is a single typing attempt. It transitions running -> {finished,
// expired, dq} and is terminal once non-running.
type Session struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	ContestID     string        `json:"contest_id"`
	PromptID      string        `json:"prompt_id"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       *time.Time    `json:"ended_at,omitempty"`
	Status        SessionStatus `json:"status"`
	Cpm           *float64      `json:"cpm,omitempty"`
	Wpm           *float64      `json:"wpm,omitempty"`
	Accuracy      *float64      `json:"accuracy,omitempty"`
	Errors        *int          `json:"errors,omitempty"`
	Score         *int          `json:"score,omitempty"`
	DefocusCount  int           `json:"defocus_count"`
	PasteBlocked  bool          `json:"paste_blocked"`
	AnomalyScore  *float64      `json:"anomaly_score,omitempty"`
	DQReason      *string       `json:"dq_reason,omitempty"`

	// Joined for display, not persisted columns of this table.
	Username     *string `json:"username,omitempty"`
	DisplayText  *string `json:"display_text,omitempty"`
}

// Keystroke is a bounded child row of a Session, replaced as a unit on
// finish. At most 2,000 rows per session.
type Keystroke struct {
	SessionID string `json:"session_id"`
	Idx       int    `json:"idx"`
	TMs       int64  `json:"t_ms"`
	Key       string `json:"key"`
	OK        bool   `json:"ok"`
}

// RefreshToken is the auth collaborator entity; the core never inspects it
// beyond what AuthService needs to rotate/revoke sessions.
type RefreshToken struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TokenHash string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
	CreatedAt time.Time `json:"created_at"`
}
