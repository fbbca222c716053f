package model

import "time"

type ContestVisibility string
type LeaderboardVisibility string
type ContestLanguage string

const (
	VisibilityPublic  ContestVisibility = "public"
	VisibilityPrivate ContestVisibility = "private"

	LeaderboardDuring LeaderboardVisibility = "during"
	LeaderboardAfter  LeaderboardVisibility = "after"
	LeaderboardHidden LeaderboardVisibility = "hidden"

	LanguageRomaji  ContestLanguage = "romaji"
	LanguageEnglish ContestLanguage = "english"
	LanguageKana    ContestLanguage = "kana"
)

// ContestStatus is derived at read time by policy.Status; it is never
// persisted as a column.
type ContestStatus string

const (
	ContestScheduled ContestStatus = "scheduled"
	ContestRunning   ContestStatus = "running"
	ContestFinished  ContestStatus = "finished"
)

type Contest struct {
	ID                    string                `json:"id"`
	Title                 string                `json:"title"`
	Slug                  string                `json:"slug"`
	Description           *string               `json:"description,omitempty"`
	Visibility            ContestVisibility     `json:"visibility"`
	JoinCode              *string               `json:"join_code,omitempty"`
	StartsAt              time.Time             `json:"starts_at"`
	EndsAt                time.Time             `json:"ends_at"`
	Timezone              string                `json:"timezone"`
	TimeLimitSec          int                   `json:"time_limit_sec"`
	AllowBackspace        bool                  `json:"allow_backspace"`
	LeaderboardVisibility LeaderboardVisibility `json:"leaderboard_visibility"`
	Language              ContestLanguage       `json:"language"`
	MaxAttempts           int                   `json:"max_attempts"`
	CreatedByID           string                `json:"created_by_id"`
	CreatedByUsername     *string               `json:"created_by_username,omitempty"`
	CreatedAt             time.Time             `json:"created_at"`
	UpdatedAt             time.Time             `json:"updated_at"`
}
