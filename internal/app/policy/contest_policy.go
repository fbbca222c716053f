// Package policy holds pure predicates over a Contest record and the
// current time: status, leaderboard visibility, start-validation, join-code
// requirement, and remaining attempts. None of it touches storage.
package policy

import (
	"time"

	"github.com/Latte72R/typing-backend/internal/domain/model"
)

// Status derives the contest's lifecycle phase at time now. It is never
// persisted as a column.
func Status(contest *model.Contest, now time.Time) model.ContestStatus {
	if now.Before(contest.StartsAt) {
		return model.ContestScheduled
	}
	if !now.Before(contest.EndsAt) {
		return model.ContestFinished
	}
	return model.ContestRunning
}

// LeaderboardVisible reports whether the leaderboard may be shown at time
// now, per the contest's LeaderboardVisibility setting.
func LeaderboardVisible(contest *model.Contest, now time.Time) bool {
	switch contest.LeaderboardVisibility {
	case model.LeaderboardDuring:
		return Status(contest, now) == model.ContestRunning
	case model.LeaderboardAfter:
		return Status(contest, now) == model.ContestFinished
	default: // model.LeaderboardHidden, or an unrecognized value
		return false
	}
}

// StartValidationReason names why a session may not be started; the zero
// value means "may start".
type StartValidationReason string

const (
	ReasonNone               StartValidationReason = ""
	ReasonContestNotRunning  StartValidationReason = "CONTEST_NOT_RUNNING"
	ReasonEntryMissing       StartValidationReason = "ENTRY_MISSING"
	ReasonAttemptsExhausted  StartValidationReason = "ATTEMPTS_EXHAUSTED"
)

// ValidateSessionStart decides whether a participant may begin a new
// session right now. entry may be nil to represent "has not joined".
//
// The maxAttempts cap is enforced (see DESIGN.md Open Question decision 1):
// once entry.AttemptsUsed >= contest.MaxAttempts, starting fails. A
// MaxAttempts of zero or less means the contest has no cap.
func ValidateSessionStart(contest *model.Contest, entry *model.Entry, now time.Time) StartValidationReason {
	if Status(contest, now) != model.ContestRunning {
		return ReasonContestNotRunning
	}
	if entry == nil {
		return ReasonEntryMissing
	}
	if contest.MaxAttempts > 0 && entry.AttemptsUsed >= contest.MaxAttempts {
		return ReasonAttemptsExhausted
	}
	return ReasonNone
}

// RequiresJoinCode reports whether joining this contest requires a code.
func RequiresJoinCode(contest *model.Contest) bool {
	return contest.Visibility == model.VisibilityPrivate
}

// RemainingAttempts reports how many attempts are left for entry (nil
// meaning "has not joined yet", in which case the full cap remains).
func RemainingAttempts(contest *model.Contest, entry *model.Entry) int {
	if entry == nil {
		return contest.MaxAttempts
	}
	remaining := contest.MaxAttempts - entry.AttemptsUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
