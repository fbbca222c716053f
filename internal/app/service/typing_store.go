package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Latte72R/typing-backend/internal/app/evaluator"
	"github.com/Latte72R/typing-backend/internal/app/leaderboard"
	"github.com/Latte72R/typing-backend/internal/app/policy"
	"github.com/Latte72R/typing-backend/internal/app/realtime"
	"github.com/Latte72R/typing-backend/internal/app/replay"
	"github.com/Latte72R/typing-backend/internal/common"
	"github.com/Latte72R/typing-backend/internal/domain/model"
	"github.com/Latte72R/typing-backend/internal/domain/repository"
	"github.com/Latte72R/typing-backend/internal/platform/config"
	"github.com/Latte72R/typing-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// reviewWorthy are the non-disqualifying issues that still warrant a
// human anti-cheat look; disqualifying issues always do too.
var reviewWorthy = map[string]bool{
	evaluator.IssueErrorCountMismatch: true,
	evaluator.IssueLowVarianceTyping:  true,
}

// TypingStore is C6: the stateful orchestrator binding the pure scoring,
// policy, replay, evaluator, and leaderboard components to the
// transactional persistence layer. Every operation here maps its domain
// errors to exactly NOT_FOUND, VALIDATION, or CONFLICT; anything else
// propagates as an internal error.
type TypingStore struct {
	db         *sql.DB
	contests   repository.ContestRepository
	prompts    repository.PromptRepository
	entries    repository.EntryRepository
	sessions   repository.SessionRepository
	reviewJobs repository.ReviewJobRepository
	publisher  realtime.Publisher
	rdb        *redis.Client
	logger     *zap.Logger
}

func NewTypingStore(
	db *sql.DB,
	contests repository.ContestRepository,
	prompts repository.PromptRepository,
	entries repository.EntryRepository,
	sessions repository.SessionRepository,
	reviewJobs repository.ReviewJobRepository,
	publisher realtime.Publisher,
	rdb *redis.Client,
	logger *zap.Logger,
) *TypingStore {
	return &TypingStore{
		db:         db,
		contests:   contests,
		prompts:    prompts,
		entries:    entries,
		sessions:   sessions,
		reviewJobs: reviewJobs,
		publisher:  publisher,
		rdb:        rdb,
		logger:     logger,
	}
}

// PromptView is the trimmed prompt shape returned to a session starter:
// never the full Prompt record, since tags/activity are admin concerns.
type PromptView struct {
	ID           string `json:"id"`
	DisplayText  string `json:"display_text"`
	TypingTarget string `json:"typing_target"`
}

type StartSessionResult struct {
	SessionID         string    `json:"session_id"`
	Prompt            PromptView `json:"prompt"`
	StartedAt         time.Time `json:"started_at"`
	AttemptsUsed      int       `json:"attempts_used"`
	AttemptsRemaining int       `json:"attempts_remaining"`
}

// StartSession implements startSession(contestId, userId, now).
func (s *TypingStore) StartSession(ctx context.Context, contestID, userID string, now time.Time) (*StartSessionResult, error) {
	contest, err := s.contests.FindByID(ctx, contestID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("TypingStore.StartSession load contest: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("TypingStore.StartSession begin tx: %w", err)
	}
	defer tx.Rollback()

	entry, err := s.entries.FindForUpdate(ctx, tx, userID, contestID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("TypingStore.StartSession load entry: %w", err)
	}
	if entry == nil {
		entry = &model.Entry{ID: uuid.NewString(), UserID: userID, ContestID: contestID}
		if err := s.entries.Create(ctx, tx, entry); err != nil {
			return nil, fmt.Errorf("TypingStore.StartSession create entry: %w", err)
		}
	}

	if reason := policy.ValidateSessionStart(contest, entry, now); reason != policy.ReasonNone {
		return nil, common.Errorf("%s: %w", reason, common.ErrValidation)
	}

	prompts, err := s.prompts.ListOrderedForContest(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("TypingStore.StartSession list prompts: %w", err)
	}
	if len(prompts) == 0 {
		return nil, common.ErrNotFound
	}

	// Cyclic rotation by attemptsUsed, preferred over always-first per
	// the fairness tradeoff recorded in DESIGN.md's Open Question
	// decisions.
	prompt := prompts[entry.AttemptsUsed%len(prompts)]

	session := &model.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		ContestID: contestID,
		PromptID:  prompt.ID,
		StartedAt: now,
		Status:    model.SessionRunning,
	}
	if err := s.sessions.Create(ctx, tx, session); err != nil {
		return nil, fmt.Errorf("TypingStore.StartSession create session: %w", err)
	}

	if err := s.entries.IncrementAttempts(ctx, tx, entry.ID, now); err != nil {
		return nil, fmt.Errorf("TypingStore.StartSession increment attempts: %w", err)
	}
	entry.AttemptsUsed++

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("TypingStore.StartSession commit: %w", err)
	}
	metrics.SessionsStarted.Inc()

	return &StartSessionResult{
		SessionID: session.ID,
		Prompt: PromptView{
			ID:           prompt.ID,
			DisplayText:  prompt.DisplayText,
			TypingTarget: prompt.TypingTarget,
		},
		StartedAt:         now,
		AttemptsUsed:      entry.AttemptsUsed,
		AttemptsRemaining: policy.RemainingAttempts(contest, entry),
	}, nil
}

// FinishPayload is the transport-facing shape of the finish-session
// request body; handlers decode into this directly.
type FinishPayload struct {
	Cpm         float64            `json:"cpm" validate:"gte=0"`
	Wpm         float64            `json:"wpm" validate:"gte=0"`
	Accuracy    float64            `json:"accuracy" validate:"gte=0,lte=1"`
	Score       int                `json:"score" validate:"gte=0"`
	Errors      *int               `json:"errors,omitempty" validate:"omitempty,gte=0"`
	Keylog      []replay.Keystroke `json:"keylog,omitempty" validate:"max=2000,dive"`
	ClientFlags *FinishClientFlags `json:"client_flags,omitempty"`
}

type FinishClientFlags struct {
	Defocus      int      `json:"defocus,omitempty"`
	PasteBlocked bool     `json:"paste_blocked,omitempty"`
	AnomalyScore *float64 `json:"anomaly_score,omitempty"`
}

// FinishResult is the FinishResult return value of finishSession.
type FinishResult struct {
	Status       model.SessionStatus `json:"status"`
	Stats        StatsView           `json:"stats"`
	Issues       []string            `json:"issues"`
	Anomaly      replay.Interval     `json:"anomaly"`
	BestUpdated  bool                `json:"best_updated"`
	AttemptsUsed int                 `json:"attempts_used"`
}

type StatsView struct {
	Cpm      float64 `json:"cpm"`
	Wpm      float64 `json:"wpm"`
	Accuracy float64 `json:"accuracy"`
	Score    int     `json:"score"`
}

// FinishSession implements finishSession(sessionId, userId, payload, now).
func (s *TypingStore) FinishSession(ctx context.Context, sessionID, userID string, payload FinishPayload, now time.Time) (*FinishResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("TypingStore.FinishSession begin tx: %w", err)
	}
	defer tx.Rollback()

	session, err := s.sessions.FindForUpdate(ctx, tx, sessionID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("TypingStore.FinishSession load session: %w", err)
	}
	if session.UserID != userID {
		return nil, common.ErrNotFound
	}
	if session.Status != model.SessionRunning {
		return nil, common.Errorf("session already terminalized: %w", common.ErrConflict)
	}

	contest, err := s.contests.FindByID(ctx, session.ContestID)
	if err != nil {
		return nil, fmt.Errorf("TypingStore.FinishSession load contest: %w", err)
	}
	prompt, err := s.prompts.FindByID(ctx, session.PromptID)
	if err != nil {
		return nil, fmt.Errorf("TypingStore.FinishSession load prompt: %w", err)
	}
	entry, err := s.entries.FindForUpdate(ctx, tx, userID, session.ContestID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("TypingStore.FinishSession load entry: %w", err)
	}

	var flags evaluator.ClientFlags
	if payload.ClientFlags != nil {
		flags = evaluator.ClientFlags{
			Defocus:      payload.ClientFlags.Defocus,
			PasteBlocked: payload.ClientFlags.PasteBlocked,
			AnomalyScore: payload.ClientFlags.AnomalyScore,
		}
	}

	verdict := evaluator.Evaluate(contest, prompt, evaluator.Payload{
		Cpm:      payload.Cpm,
		Wpm:      payload.Wpm,
		Accuracy: payload.Accuracy,
		Score:    payload.Score,
		Errors:   payload.Errors,
		Keylog:   payload.Keylog,
		Flags:    flags,
	}, entry, now)

	session.Status = verdict.Status
	session.EndedAt = &now
	session.Cpm = &verdict.Stats.Cpm
	session.Wpm = &verdict.Stats.Wpm
	session.Accuracy = &verdict.Stats.Accuracy
	session.Score = &verdict.Stats.Score
	errorsCount := verdict.Mistakes
	session.Errors = &errorsCount
	session.DefocusCount = verdict.Flags.Defocus
	session.PasteBlocked = verdict.Flags.PasteBlocked
	session.AnomalyScore = verdict.Flags.AnomalyScore
	if verdict.Status == model.SessionDQ {
		reason := strings.Join(verdict.Issues, ",")
		session.DQReason = &reason
	}

	if err := s.sessions.UpdateOnFinish(ctx, tx, session); err != nil {
		return nil, fmt.Errorf("TypingStore.FinishSession update session: %w", err)
	}

	keystrokes := make([]model.Keystroke, len(payload.Keylog))
	for i, k := range payload.Keylog {
		ok := k.OK != nil && *k.OK
		if k.OK == nil {
			ok = len([]rune(k.K)) == 1
		}
		keystrokes[i] = model.Keystroke{
			SessionID: sessionID,
			Idx:       i,
			TMs:       int64(k.T),
			Key:       k.K,
			OK:        ok,
		}
	}
	if err := s.sessions.ReplaceKeystrokes(ctx, tx, sessionID, keystrokes); err != nil {
		return nil, fmt.Errorf("TypingStore.FinishSession replace keystrokes: %w", err)
	}

	if err := s.entries.TouchLastAttempt(ctx, tx, entry.ID, now); err != nil {
		return nil, fmt.Errorf("TypingStore.FinishSession touch entry: %w", err)
	}

	bestUpdated := false
	if verdict.Status == model.SessionFinished && isBetter(entry, verdict.Stats.Score, verdict.Stats.Accuracy, verdict.Stats.Cpm) {
		if err := s.entries.UpdateBest(ctx, tx, entry.ID, verdict.Stats.Score, verdict.Stats.Cpm, verdict.Stats.Accuracy); err != nil {
			return nil, fmt.Errorf("TypingStore.FinishSession update best: %w", err)
		}
		bestUpdated = true
	}

	reviewJobID := ""
	if needsReview(verdict.Status, verdict.Issues) {
		job := &model.ReviewJob{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			Reason:    strings.Join(verdict.Issues, ","),
			Status:    model.ReviewStatusQueued,
		}
		if err := s.reviewJobs.CreateJob(ctx, tx, job); err != nil {
			return nil, fmt.Errorf("TypingStore.FinishSession create review job: %w", err)
		}
		reviewJobID = job.ID
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("TypingStore.FinishSession commit: %w", err)
	}
	metrics.ObserveSessionFinished(string(verdict.Status))

	// Real-time publish and queue hand-off both happen strictly after
	// commit and are best-effort: a failure here must never be mistaken
	// for a failed finish.
	s.publishLeaderboard(context.Background(), session.ContestID)
	if reviewJobID != "" {
		s.enqueueReviewJob(context.Background(), reviewJobID)
	}

	return &FinishResult{
		Status: verdict.Status,
		Stats: StatsView{
			Cpm:      verdict.Stats.Cpm,
			Wpm:      verdict.Stats.Wpm,
			Accuracy: verdict.Stats.Accuracy,
			Score:    verdict.Stats.Score,
		},
		Issues:       verdict.Issues,
		Anomaly:      verdict.Interval,
		BestUpdated:  bestUpdated,
		AttemptsUsed: entry.AttemptsUsed,
	}, nil
}

// isBetter implements isBetter(existing, candidate): lexicographic
// (score desc, accuracy desc, cpm desc); nulls in existing count as -inf.
func isBetter(entry *model.Entry, score int, accuracy, cpm float64) bool {
	if entry.BestScore == nil {
		return true
	}
	if score != *entry.BestScore {
		return score > *entry.BestScore
	}
	if entry.BestAccuracy == nil || accuracy != *entry.BestAccuracy {
		return entry.BestAccuracy == nil || accuracy > *entry.BestAccuracy
	}
	if entry.BestCpm == nil || cpm != *entry.BestCpm {
		return entry.BestCpm == nil || cpm > *entry.BestCpm
	}
	return false
}

// needsReview reports whether a finished attempt's issues are worth a
// human anti-cheat look: every disqualification, plus the subset of
// non-disqualifying issues in reviewWorthy.
func needsReview(status model.SessionStatus, issues []string) bool {
	if status == model.SessionDQ {
		return true
	}
	for _, issue := range issues {
		if reviewWorthy[issue] {
			return true
		}
	}
	return false
}

func (s *TypingStore) enqueueReviewJob(ctx context.Context, jobID string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.AppConfig.ReviewQueueName, jobID).Err(); err != nil {
		s.logger.Warn("failed to enqueue review job", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (s *TypingStore) publishLeaderboard(ctx context.Context, contestID string) {
	if s.publisher == nil {
		return
	}
	_, summary, err := s.GetLeaderboard(ctx, contestID, 100)
	if err != nil {
		s.logger.Warn("failed to rebuild leaderboard for publish", zap.String("contest_id", contestID), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, contestID, summary); err != nil {
		metrics.LeaderboardPublishFailures.Inc()
		s.logger.Warn("failed to publish leaderboard snapshot", zap.String("contest_id", contestID), zap.Error(err))
	}
}

// GetLeaderboard implements getLeaderboard(contestId, limit).
func (s *TypingStore) GetLeaderboard(ctx context.Context, contestID string, limit int) ([]leaderboard.Ranked, leaderboard.Summary, error) {
	timer := prometheus.NewTimer(metrics.LeaderboardReadDuration)
	defer timer.ObserveDuration()

	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	if _, err := s.contests.FindByID(ctx, contestID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, leaderboard.Summary{}, common.ErrNotFound
		}
		return nil, leaderboard.Summary{}, fmt.Errorf("TypingStore.GetLeaderboard load contest: %w", err)
	}

	sessions, err := s.sessions.ListFinishedForContest(ctx, contestID, limit)
	if err != nil {
		return nil, leaderboard.Summary{}, fmt.Errorf("TypingStore.GetLeaderboard list sessions: %w", err)
	}

	rows := make([]leaderboard.Session, len(sessions))
	for i, sess := range sessions {
		username := ""
		if sess.Username != nil {
			username = *sess.Username
		}
		score, accuracy, cpm := 0, 0.0, 0.0
		if sess.Score != nil {
			score = *sess.Score
		}
		if sess.Accuracy != nil {
			accuracy = *sess.Accuracy
		}
		if sess.Cpm != nil {
			cpm = *sess.Cpm
		}
		endedAt := sess.StartedAt
		if sess.EndedAt != nil {
			endedAt = *sess.EndedAt
		}
		rows[i] = leaderboard.Session{
			SessionID: sess.ID,
			UserID:    sess.UserID,
			Username:  username,
			Score:     score,
			Accuracy:  accuracy,
			Cpm:       cpm,
			EndedAt:   endedAt,
		}
	}

	ranked, summary := leaderboard.BuildLeaderboard(rows)
	return ranked, summary, nil
}
