package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Latte72R/typing-backend/internal/common"
	"github.com/Latte72R/typing-backend/internal/domain/model"
)

type EntryRepository interface {
	Create(ctx context.Context, tx *sql.Tx, entry *model.Entry) error

	// FindForUpdate loads the (userId, contestId) entry row with a
	// row-level lock (SELECT ... FOR UPDATE on the entry row), serializing
	// concurrent start-session calls for the same user/contest pair. Must
	// be called within a transaction.
	// Returns common.ErrNotFound if no entry exists yet.
	FindForUpdate(ctx context.Context, tx *sql.Tx, userID, contestID string) (*model.Entry, error)

	// IncrementAttempts is an atomic read-modify-write: callers must have
	// already locked the row via FindForUpdate within the same transaction.
	IncrementAttempts(ctx context.Context, tx *sql.Tx, entryID string, lastAttemptAt time.Time) error

	// TouchLastAttempt updates last_attempt_at only, without touching
	// attempts_used. Callers must already hold the row lock via
	// FindForUpdate within the same transaction.
	TouchLastAttempt(ctx context.Context, tx *sql.Tx, entryID string, lastAttemptAt time.Time) error

	UpdateBest(ctx context.Context, tx *sql.Tx, entryID string, bestScore int, bestCpm, bestAccuracy float64) error
}

type pgEntryRepository struct {
	db *sql.DB
}

func NewPgEntryRepository(db *sql.DB) EntryRepository {
	return &pgEntryRepository{db: db}
}

func (r *pgEntryRepository) Create(ctx context.Context, tx *sql.Tx, e *model.Entry) error {
	query := `INSERT INTO entries (id, user_id, contest_id, attempts_used)
	          VALUES ($1, $2, $3, $4)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, e.ID, e.UserID, e.ContestID, e.AttemptsUsed)
	} else {
		_, err = r.db.ExecContext(ctx, query, e.ID, e.UserID, e.ContestID, e.AttemptsUsed)
	}
	if err != nil {
		return fmt.Errorf("pgEntryRepository.Create: %w", err)
	}
	return nil
}

func (r *pgEntryRepository) FindForUpdate(ctx context.Context, tx *sql.Tx, userID, contestID string) (*model.Entry, error) {
	if tx == nil {
		return nil, fmt.Errorf("pgEntryRepository.FindForUpdate: requires a transaction")
	}
	query := `SELECT id, user_id, contest_id, attempts_used, best_score, best_cpm, best_accuracy,
	          last_attempt_at, created_at, updated_at
	          FROM entries WHERE user_id = $1 AND contest_id = $2 FOR UPDATE`
	e := &model.Entry{}
	err := tx.QueryRowContext(ctx, query, userID, contestID).Scan(
		&e.ID, &e.UserID, &e.ContestID, &e.AttemptsUsed, &e.BestScore, &e.BestCpm, &e.BestAccuracy,
		&e.LastAttemptAt, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgEntryRepository.FindForUpdate: %w", err)
	}
	return e, nil
}

func (r *pgEntryRepository) IncrementAttempts(ctx context.Context, tx *sql.Tx, entryID string, lastAttemptAt time.Time) error {
	if tx == nil {
		return fmt.Errorf("pgEntryRepository.IncrementAttempts: requires a transaction")
	}
	query := `UPDATE entries SET attempts_used = attempts_used + 1, last_attempt_at = $1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, lastAttemptAt, entryID); err != nil {
		return fmt.Errorf("pgEntryRepository.IncrementAttempts: %w", err)
	}
	return nil
}

func (r *pgEntryRepository) TouchLastAttempt(ctx context.Context, tx *sql.Tx, entryID string, lastAttemptAt time.Time) error {
	if tx == nil {
		return fmt.Errorf("pgEntryRepository.TouchLastAttempt: requires a transaction")
	}
	query := `UPDATE entries SET last_attempt_at = $1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $2`
	if _, err := tx.ExecContext(ctx, query, lastAttemptAt, entryID); err != nil {
		return fmt.Errorf("pgEntryRepository.TouchLastAttempt: %w", err)
	}
	return nil
}

func (r *pgEntryRepository) UpdateBest(ctx context.Context, tx *sql.Tx, entryID string, bestScore int, bestCpm, bestAccuracy float64) error {
	if tx == nil {
		return fmt.Errorf("pgEntryRepository.UpdateBest: requires a transaction")
	}
	query := `UPDATE entries SET best_score = $1, best_cpm = $2, best_accuracy = $3, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $4`
	if _, err := tx.ExecContext(ctx, query, bestScore, bestCpm, bestAccuracy, entryID); err != nil {
		return fmt.Errorf("pgEntryRepository.UpdateBest: %w", err)
	}
	return nil
}
