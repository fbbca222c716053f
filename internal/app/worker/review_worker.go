// Package worker runs background consumers against the Redis-backed job
// queue: currently just the anti-cheat review worker.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/Latte72R/typing-backend/internal/domain/model"
	"github.com/Latte72R/typing-backend/internal/domain/repository"
	"github.com/Latte72R/typing-backend/internal/platform/config"
	"github.com/Latte72R/typing-backend/internal/platform/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// anomalyFlagThreshold is the anomaly score at or above which a queued
// session is auto-flagged rather than dismissed. A session below it is
// dismissed unless it was disqualified, which is always flagged.
const anomalyFlagThreshold = 0.8

// ReviewWorker drains session IDs suspected of cheating from a Redis list
// queue and resolves their ReviewJob, one at a time across the whole
// deployment: only one worker instance holds the distributed lock at a
// time, matching the low-contention, simplicity-first posture favored for
// this kind of singleton background job.
type ReviewWorker struct {
	rdb         *redis.Client
	jobRepo     repository.ReviewJobRepository
	sessionRepo repository.SessionRepository
	logger      *zap.Logger
}

func NewReviewWorker(rdb *redis.Client, jobRepo repository.ReviewJobRepository, sessionRepo repository.SessionRepository, logger *zap.Logger) *ReviewWorker {
	return &ReviewWorker{rdb: rdb, jobRepo: jobRepo, sessionRepo: sessionRepo, logger: logger}
}

func (w *ReviewWorker) Start(ctx context.Context) {
	w.logger.Info("review worker started", zap.String("queue", config.AppConfig.ReviewQueueName))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("review worker stopping")
			return
		default:
			result, err := w.rdb.BRPop(ctx, 5*time.Second, config.AppConfig.ReviewQueueName).Result()
			if err != nil {
				if errors.Is(err, redis.Nil) {
					continue // timed out, nothing queued
				}
				if errors.Is(err, context.Canceled) {
					return
				}
				w.logger.Error("BRPop on review queue failed", zap.Error(err))
				time.Sleep(5 * time.Second)
				continue
			}
			if len(result) < 2 || result[1] == "" {
				continue
			}
			w.processWithLock(ctx, result[1])
		}
	}
}

func (w *ReviewWorker) processWithLock(ctx context.Context, jobID string) {
	lockValue := uuid.NewString()
	lockTTL := time.Duration(config.AppConfig.ReviewLockTTLSeconds) * time.Second

	ok, err := w.rdb.SetNX(ctx, config.AppConfig.ReviewLockKey, lockValue, lockTTL).Result()
	if err != nil {
		w.logger.Error("failed to acquire review lock", zap.String("job_id", jobID), zap.Error(err))
		w.requeue(ctx, jobID)
		return
	}
	if !ok {
		w.requeue(ctx, jobID)
		return
	}

	defer func() {
		script := redis.NewScript(`
			if redis.call("get", KEYS[1]) == ARGV[1] then
				return redis.call("del", KEYS[1])
			else
				return 0
			end
		`)
		if _, err := script.Run(ctx, w.rdb, []string{config.AppConfig.ReviewLockKey}, lockValue).Result(); err != nil {
			w.logger.Error("failed to release review lock", zap.String("job_id", jobID), zap.Error(err))
		}
	}()

	w.resolve(ctx, jobID)
}

func (w *ReviewWorker) requeue(ctx context.Context, jobID string) {
	if err := w.rdb.RPush(ctx, config.AppConfig.ReviewQueueName, jobID).Err(); err != nil {
		w.logger.Error("failed to requeue review job", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (w *ReviewWorker) resolve(ctx context.Context, jobID string) {
	if err := w.jobRepo.IncrementJobAttempts(ctx, nil, jobID); err != nil {
		w.logger.Error("failed to record review attempt", zap.String("job_id", jobID), zap.Error(err))
	}

	job, err := w.jobRepo.GetJobByID(ctx, jobID)
	if err != nil {
		w.logger.Error("failed to load review job", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	session, err := w.sessionRepo.FindByID(ctx, job.SessionID)
	if err != nil {
		msg := err.Error()
		w.jobRepo.UpdateJobStatus(ctx, nil, job.ID, model.ReviewStatusFailed, &msg)
		return
	}

	status := model.ReviewStatusDismissed
	if session.AnomalyScore != nil && *session.AnomalyScore >= anomalyFlagThreshold {
		status = model.ReviewStatusFlagged
	}
	if session.Status == model.SessionDQ {
		status = model.ReviewStatusFlagged
	}

	if err := w.jobRepo.UpdateJobStatus(ctx, nil, job.ID, status, nil); err != nil {
		w.logger.Error("failed to resolve review job", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	metrics.ObserveReviewJobResolved(string(status))
	w.logger.Info("resolved review job", zap.String("job_id", jobID), zap.String("status", string(status)))
}
