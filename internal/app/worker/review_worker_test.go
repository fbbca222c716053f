package worker

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/Latte72R/typing-backend/internal/common"
	"github.com/Latte72R/typing-backend/internal/domain/model"
	"github.com/Latte72R/typing-backend/internal/platform/config"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReviewJobRepo struct {
	mu        sync.Mutex
	byID      map[string]*model.ReviewJob
	attempts  map[string]int
}

func newFakeReviewJobRepo() *fakeReviewJobRepo {
	return &fakeReviewJobRepo{byID: map[string]*model.ReviewJob{}, attempts: map[string]int{}}
}

func (r *fakeReviewJobRepo) CreateJob(ctx context.Context, tx *sql.Tx, job *model.ReviewJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *job
	r.byID[job.ID] = &cp
	return nil
}

func (r *fakeReviewJobRepo) GetJobByID(ctx context.Context, id string) (*model.ReviewJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (r *fakeReviewJobRepo) UpdateJobStatus(ctx context.Context, tx *sql.Tx, jobID string, status model.ReviewJobStatus, lastError *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.byID[jobID]
	if !ok {
		return common.ErrNotFound
	}
	j.Status = status
	j.LastError = lastError
	return nil
}

func (r *fakeReviewJobRepo) IncrementJobAttempts(ctx context.Context, tx *sql.Tx, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[jobID]++
	return nil
}

func (r *fakeReviewJobRepo) status(id string) model.ReviewJobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id].Status
}

type fakeSessionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byID: map[string]*model.Session{}}
}

func (r *fakeSessionRepo) Create(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	return nil
}
func (r *fakeSessionRepo) FindForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Session, error) {
	return r.FindByID(ctx, id)
}
func (r *fakeSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *s
	return &cp, nil
}
func (r *fakeSessionRepo) UpdateOnFinish(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	return nil
}
func (r *fakeSessionRepo) ReplaceKeystrokes(ctx context.Context, tx *sql.Tx, sessionID string, keystrokes []model.Keystroke) error {
	return nil
}
func (r *fakeSessionRepo) ListFinishedForContest(ctx context.Context, contestID string, limit int) ([]model.Session, error) {
	return nil, nil
}

func setupReviewWorker(t *testing.T) (*ReviewWorker, *redis.Client, *fakeReviewJobRepo, *fakeSessionRepo) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	config.AppConfig = &config.Config{
		ReviewQueueName:      "session_review_queue",
		ReviewLockKey:        "session_review_lock",
		ReviewLockTTLSeconds: 5,
	}

	jobRepo := newFakeReviewJobRepo()
	sessionRepo := newFakeSessionRepo()
	worker := NewReviewWorker(rdb, jobRepo, sessionRepo, zap.NewNop())
	return worker, rdb, jobRepo, sessionRepo
}

func TestResolveDismissesCleanSession(t *testing.T) {
	worker, _, jobRepo, sessionRepo := setupReviewWorker(t)

	sessionRepo.byID["sess-1"] = &model.Session{ID: "sess-1", Status: model.SessionFinished}
	jobRepo.byID["job-1"] = &model.ReviewJob{ID: "job-1", SessionID: "sess-1", Status: model.ReviewStatusQueued}

	worker.resolve(context.Background(), "job-1")

	require.Equal(t, model.ReviewStatusDismissed, jobRepo.status("job-1"))
	require.Equal(t, 1, jobRepo.attempts["job-1"])
}

func TestResolveFlagsDisqualifiedSession(t *testing.T) {
	worker, _, jobRepo, sessionRepo := setupReviewWorker(t)

	sessionRepo.byID["sess-2"] = &model.Session{ID: "sess-2", Status: model.SessionDQ}
	jobRepo.byID["job-2"] = &model.ReviewJob{ID: "job-2", SessionID: "sess-2", Status: model.ReviewStatusQueued}

	worker.resolve(context.Background(), "job-2")

	require.Equal(t, model.ReviewStatusFlagged, jobRepo.status("job-2"))
}

func TestResolveFlagsHighAnomalyScore(t *testing.T) {
	worker, _, jobRepo, sessionRepo := setupReviewWorker(t)

	score := 0.95
	sessionRepo.byID["sess-3"] = &model.Session{ID: "sess-3", Status: model.SessionFinished, AnomalyScore: &score}
	jobRepo.byID["job-3"] = &model.ReviewJob{ID: "job-3", SessionID: "sess-3", Status: model.ReviewStatusQueued}

	worker.resolve(context.Background(), "job-3")

	require.Equal(t, model.ReviewStatusFlagged, jobRepo.status("job-3"))
}

func TestProcessWithLockSkipsWhenAlreadyLocked(t *testing.T) {
	worker, rdb, jobRepo, sessionRepo := setupReviewWorker(t)
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, config.AppConfig.ReviewLockKey, "someone-else", time.Minute).Err())

	sessionRepo.byID["sess-4"] = &model.Session{ID: "sess-4", Status: model.SessionFinished}
	jobRepo.byID["job-4"] = &model.ReviewJob{ID: "job-4", SessionID: "sess-4", Status: model.ReviewStatusQueued}

	worker.processWithLock(ctx, "job-4")

	// Lock was held, so the job must have been requeued rather than resolved.
	require.Equal(t, model.ReviewStatusQueued, jobRepo.status("job-4"))
	length, err := rdb.LLen(ctx, config.AppConfig.ReviewQueueName).Result()
	require.NoError(t, err)
	require.Equal(t, int64(1), length)
}
