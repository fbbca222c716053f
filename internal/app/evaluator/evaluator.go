// Package evaluator composes the scoring kernel (C1) and keylog replay (C3),
// under the contest's backspace and time-limit settings, into a single
// verdict for a finished attempt. It
// is pure: it raises no domain errors, only issues recorded on the result.
package evaluator

import (
	"time"

	"github.com/Latte72R/typing-backend/internal/app/replay"
	"github.com/Latte72R/typing-backend/internal/app/scoring"
	"github.com/Latte72R/typing-backend/internal/domain/model"
)

const (
	IssueEntryNotFound      = "ENTRY_NOT_FOUND"
	IssueMetricMismatch     = "METRIC_MISMATCH"
	IssueErrorCountMismatch = "ERROR_COUNT_MISMATCH"
	IssuePromptNotCompleted = "PROMPT_NOT_COMPLETED"
	IssueBackspaceForbidden = "BACKSPACE_FORBIDDEN"
	IssueTimeLimitExceeded  = "TIME_LIMIT_EXCEEDED"
	IssueLowVarianceTyping  = "LOW_VARIANCE_TYPING"
)

// disqualifying is the set of issues that force status=dq regardless of
// completion. Disqualification always takes priority over expiry.
var disqualifying = map[string]bool{
	IssueMetricMismatch:          true,
	replay.IssueKeyLimitExceeded: true,
	IssueBackspaceForbidden:      true,
}

// ClientFlags are operational telemetry copied through verbatim; never
// trusted for scoring or anti-cheat decisions.
type ClientFlags struct {
	Defocus      int
	PasteBlocked bool
	AnomalyScore *float64
}

// Payload is the finish-session request body.
type Payload struct {
	Cpm      float64
	Wpm      float64
	Accuracy float64
	Score    int
	Errors   *int
	Keylog   []replay.Keystroke
	Flags    ClientFlags
}

// Verdict is the outcome of evaluating a finish-session request.
type Verdict struct {
	Status     model.SessionStatus
	Stats      scoring.Stats
	Issues     []string
	Interval   replay.Interval
	Flags      ClientFlags
	DurationMs float64
	Correct    int
	Mistakes   int
}

// Evaluate runs the full C4 algorithm. now is unused directly (the caller
// has already established elapsed time via the replay's DurationMs) but is
// accepted for symmetry with the other pure components and potential
// future needs (e.g. server-side staleness checks).
func Evaluate(contest *model.Contest, prompt *model.Prompt, payload Payload, entry *model.Entry, now time.Time) Verdict {
	var issues []string
	if entry == nil {
		issues = append(issues, IssueEntryNotFound)
	}

	replayResult := replay.Replay(prompt.TypingTarget, payload.Keylog, contest.AllowBackspace)
	issues = append(issues, replayResult.Issues...)

	elapsedMs := replayResult.DurationMs
	if elapsedMs < 1 {
		elapsedMs = 1
	}
	authoritative, _ := scoring.Calculate(replayResult.Correct, replayResult.Mistakes, elapsedMs)

	reported := scoring.Stats{Cpm: payload.Cpm, Wpm: payload.Wpm, Accuracy: payload.Accuracy, Score: payload.Score}
	cmp := scoring.Compare(reported, authoritative, true, scoring.RelaxedTolerances)
	if !cmp.OK {
		issues = append(issues, IssueMetricMismatch)
	}

	if payload.Errors != nil {
		diff := *payload.Errors - replayResult.Mistakes
		if diff < 0 {
			diff = -diff
		}
		if diff > 1 {
			issues = append(issues, IssueErrorCountMismatch)
		}
	}

	targetLen := len([]rune(prompt.TypingTarget))
	if !replayResult.Completed && targetLen > 0 {
		issues = append(issues, IssuePromptNotCompleted)
	}

	if replayResult.ForbiddenBackspaceCount > 0 {
		issues = append(issues, IssueBackspaceForbidden)
	}

	if replayResult.DurationMs > float64(contest.TimeLimitSec)*1000+1000 {
		issues = append(issues, IssueTimeLimitExceeded)
	}

	interval := replay.ComputeInterval(payload.Keylog)
	if interval.Cv != 0 && interval.Cv < 0.1 && interval.Count > 10 {
		issues = append(issues, IssueLowVarianceTyping)
	}

	status := model.SessionFinished
	for _, issue := range issues {
		if disqualifying[issue] {
			status = model.SessionDQ
			break
		}
	}
	if status != model.SessionDQ && !replayResult.Completed {
		status = model.SessionExpired
	}

	return Verdict{
		Status:     status,
		Stats:      authoritative,
		Issues:     issues,
		Interval:   interval,
		Flags:      payload.Flags,
		DurationMs: replayResult.DurationMs,
		Correct:    replayResult.Correct,
		Mistakes:   replayResult.Mistakes,
	}
}
