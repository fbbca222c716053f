package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
	"time"

	"github.com/Latte72R/typing-backend/internal/common"
	"github.com/Latte72R/typing-backend/internal/domain/model"
)

// noopDriver backs an *sql.DB whose only job in these tests is to hand out
// transactions for TypingStore to Commit/Rollback: every actual read/write
// goes through the fake repositories below, never through the tx itself.
type noopDriver struct{}

type noopConn struct{}
type noopTx struct{}
type noopStmt struct{}

func (noopDriver) Open(name string) (driver.Conn, error) { return noopConn{}, nil }

func (noopConn) Prepare(query string) (driver.Stmt, error) { return noopStmt{}, nil }
func (noopConn) Close() error                              { return nil }
func (noopConn) Begin() (driver.Tx, error)                 { return noopTx{}, nil }

func (noopTx) Commit() error   { return nil }
func (noopTx) Rollback() error { return nil }

func (noopStmt) Close() error                                    { return nil }
func (noopStmt) NumInput() int                                   { return -1 }
func (noopStmt) Exec(args []driver.Value) (driver.Result, error) { return driver.RowsAffected(0), nil }
func (noopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nil, sql.ErrNoRows }

var registerOnce sync.Once

func newFakeDB() *sql.DB {
	registerOnce.Do(func() {
		sql.Register("typingbackend_noop", noopDriver{})
	})
	db, err := sql.Open("typingbackend_noop", "")
	if err != nil {
		panic(err)
	}
	return db
}

// fakeContestRepo, fakePromptRepo, fakeEntryRepo, fakeSessionRepo,
// fakeReviewJobRepo are minimal in-memory stand-ins for the pg*Repository
// implementations, letting the stateful services be exercised without a
// live Postgres connection.

type fakeContestRepo struct {
	mu       sync.Mutex
	byID     map[string]*model.Contest
	bySlug   map[string]*model.Contest
}

func newFakeContestRepo() *fakeContestRepo {
	return &fakeContestRepo{byID: map[string]*model.Contest{}, bySlug: map[string]*model.Contest{}}
}

func (r *fakeContestRepo) Create(ctx context.Context, tx *sql.Tx, contest *model.Contest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *contest
	r.byID[contest.ID] = &c
	r.bySlug[contest.Slug] = &c
	return nil
}

func (r *fakeContestRepo) Update(ctx context.Context, tx *sql.Tx, contest *model.Contest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[contest.ID]; !ok {
		return common.ErrNotFound
	}
	c := *contest
	r.byID[contest.ID] = &c
	r.bySlug[contest.Slug] = &c
	return nil
}

func (r *fakeContestRepo) FindByID(ctx context.Context, id string) (*model.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeContestRepo) FindBySlug(ctx context.Context, slug string) (*model.Contest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.bySlug[slug]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeContestRepo) List(ctx context.Context, limit, offset int) ([]model.Contest, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]model.Contest, 0, len(r.byID))
	for _, c := range r.byID {
		all = append(all, *c)
	}
	total := len(all)
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

type fakePromptRepo struct {
	mu      sync.Mutex
	byID    map[string]*model.Prompt
	ordered map[string][]string // contestID -> ordered promptIDs
}

func newFakePromptRepo() *fakePromptRepo {
	return &fakePromptRepo{byID: map[string]*model.Prompt{}, ordered: map[string][]string{}}
}

func (r *fakePromptRepo) Create(ctx context.Context, tx *sql.Tx, prompt *model.Prompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := *prompt
	r.byID[prompt.ID] = &p
	return nil
}

func (r *fakePromptRepo) FindByID(ctx context.Context, id string) (*model.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakePromptRepo) ReplaceContestPrompts(ctx context.Context, tx *sql.Tx, contestID string, promptIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]string, len(promptIDs))
	copy(cp, promptIDs)
	r.ordered[contestID] = cp
	return nil
}

func (r *fakePromptRepo) ListOrderedForContest(ctx context.Context, contestID string) ([]model.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := r.ordered[contestID]
	out := make([]model.Prompt, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeEntryRepo struct {
	mu    sync.Mutex
	key   map[string]*model.Entry // userID|contestID -> entry
	id    map[string]*model.Entry
	locks map[string]*sync.Mutex // entryID -> row lock, emulating SELECT ... FOR UPDATE
}

func newFakeEntryRepo() *fakeEntryRepo {
	return &fakeEntryRepo{
		key:   map[string]*model.Entry{},
		id:    map[string]*model.Entry{},
		locks: map[string]*sync.Mutex{},
	}
}

func entryKey(userID, contestID string) string { return userID + "|" + contestID }

// rowLock returns the per-entry mutex backing FindForUpdate's row lock,
// creating it on first use.
func (r *fakeEntryRepo) rowLock(entryID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[entryID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[entryID] = l
	}
	return l
}

// Create takes the new entry's row lock, as an INSERT holds its row until
// commit; the creating transaction releases it via IncrementAttempts.
func (r *fakeEntryRepo) Create(ctx context.Context, tx *sql.Tx, entry *model.Entry) error {
	r.rowLock(entry.ID).Lock()
	r.mu.Lock()
	defer r.mu.Unlock()
	e := *entry
	r.key[entryKey(entry.UserID, entry.ContestID)] = &e
	r.id[entry.ID] = &e
	return nil
}

// FindForUpdate blocks on the entry's row lock until the holder of a prior
// lock releases it via IncrementAttempts or TouchLastAttempt, the same way
// a real FOR UPDATE blocks concurrent transactions on that row.
func (r *fakeEntryRepo) FindForUpdate(ctx context.Context, tx *sql.Tx, userID, contestID string) (*model.Entry, error) {
	r.mu.Lock()
	e, ok := r.key[entryKey(userID, contestID)]
	r.mu.Unlock()
	if !ok {
		return nil, common.ErrNotFound
	}

	r.rowLock(e.ID).Lock()

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	return &cp, nil
}

func (r *fakeEntryRepo) IncrementAttempts(ctx context.Context, tx *sql.Tx, entryID string, lastAttemptAt time.Time) error {
	defer r.rowLock(entryID).Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.id[entryID]
	if !ok {
		return common.ErrNotFound
	}
	e.AttemptsUsed++
	e.LastAttemptAt = &lastAttemptAt
	return nil
}

func (r *fakeEntryRepo) TouchLastAttempt(ctx context.Context, tx *sql.Tx, entryID string, lastAttemptAt time.Time) error {
	defer r.rowLock(entryID).Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.id[entryID]
	if !ok {
		return common.ErrNotFound
	}
	e.LastAttemptAt = &lastAttemptAt
	return nil
}

func (r *fakeEntryRepo) UpdateBest(ctx context.Context, tx *sql.Tx, entryID string, bestScore int, bestCpm, bestAccuracy float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.id[entryID]
	if !ok {
		return common.ErrNotFound
	}
	e.BestScore = &bestScore
	e.BestCpm = &bestCpm
	e.BestAccuracy = &bestAccuracy
	return nil
}

type fakeSessionRepo struct {
	mu  sync.Mutex
	byID map[string]*model.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byID: map[string]*model.Session{}}
}

func (r *fakeSessionRepo) Create(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byID[s.ID] = &cp
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
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.byID[s.ID] = &cp
	return nil
}

func (r *fakeSessionRepo) ReplaceKeystrokes(ctx context.Context, tx *sql.Tx, sessionID string, keystrokes []model.Keystroke) error {
	return nil
}

func (r *fakeSessionRepo) ListFinishedForContest(ctx context.Context, contestID string, limit int) ([]model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Session{}
	for _, s := range r.byID {
		if s.ContestID == contestID && s.Status == model.SessionFinished {
			out = append(out, *s)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

type fakeReviewJobRepo struct {
	mu   sync.Mutex
	byID map[string]*model.ReviewJob
}

func newFakeReviewJobRepo() *fakeReviewJobRepo {
	return &fakeReviewJobRepo{byID: map[string]*model.ReviewJob{}}
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
	j, ok := r.byID[jobID]
	if !ok {
		return common.ErrNotFound
	}
	j.Attempts++
	return nil
}

type fakeUserRepo struct {
	mu         sync.Mutex
	byID       map[string]*model.User
	byEmail    map[string]*model.User
	byUsername map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:       map[string]*model.User{},
		byEmail:    map[string]*model.User{},
		byUsername: map[string]*model.User{},
	}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return common.ErrConflict
	}
	cp := *user
	r.byID[user.ID] = &cp
	r.byEmail[user.Email] = &cp
	r.byUsername[user.Username] = &cp
	return nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byEmail[email]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byUsername[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type fakeRefreshTokenRepo struct {
	mu        sync.Mutex
	byID      map[string]*model.RefreshToken
	byHash    map[string]*model.RefreshToken
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{byID: map[string]*model.RefreshToken{}, byHash: map[string]*model.RefreshToken{}}
}

func (r *fakeRefreshTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *token
	r.byID[token.ID] = &cp
	r.byHash[token.TokenHash] = &cp
	return nil
}

func (r *fakeRefreshTokenRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byHash[tokenHash]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeRefreshTokenRepo) Revoke(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	t.Revoked = true
	return nil
}

func (r *fakeRefreshTokenRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.byID {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}
