package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Latte72R/typing-backend/internal/common"
	"github.com/Latte72R/typing-backend/internal/domain/model"
)

type ReviewJobRepository interface {
	CreateJob(ctx context.Context, tx *sql.Tx, job *model.ReviewJob) error
	GetJobByID(ctx context.Context, id string) (*model.ReviewJob, error)
	UpdateJobStatus(ctx context.Context, tx *sql.Tx, jobID string, status model.ReviewJobStatus, lastError *string) error
	IncrementJobAttempts(ctx context.Context, tx *sql.Tx, jobID string) error
}

type pgReviewJobRepository struct {
	db *sql.DB
}

func NewPgReviewJobRepository(db *sql.DB) ReviewJobRepository {
	return &pgReviewJobRepository{db: db}
}

func (r *pgReviewJobRepository) CreateJob(ctx context.Context, tx *sql.Tx, job *model.ReviewJob) error {
	query := `INSERT INTO review_jobs (id, session_id, reason, status)
	          VALUES ($1, $2, $3, $4)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, job.ID, job.SessionID, job.Reason, job.Status)
	} else {
		_, err = r.db.ExecContext(ctx, query, job.ID, job.SessionID, job.Reason, job.Status)
	}
	if err != nil {
		return fmt.Errorf("pgReviewJobRepository.CreateJob: %w", err)
	}
	return nil
}

func (r *pgReviewJobRepository) GetJobByID(ctx context.Context, id string) (*model.ReviewJob, error) {
	query := `SELECT id, session_id, reason, status, attempts, last_error, reviewed_by, reviewed_at, created_at, updated_at
	          FROM review_jobs WHERE id = $1`
	job := &model.ReviewJob{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&job.ID, &job.SessionID, &job.Reason, &job.Status, &job.Attempts, &job.LastError,
		&job.ReviewedByID, &job.ReviewedAt, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgReviewJobRepository.GetJobByID: %w", err)
	}
	return job, nil
}

func (r *pgReviewJobRepository) UpdateJobStatus(ctx context.Context, tx *sql.Tx, jobID string, status model.ReviewJobStatus, lastError *string) error {
	query := `UPDATE review_jobs SET status = $1, last_error = $2, updated_at = CURRENT_TIMESTAMP WHERE id = $3`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, status, lastError, jobID)
	} else {
		_, err = r.db.ExecContext(ctx, query, status, lastError, jobID)
	}
	if err != nil {
		return fmt.Errorf("pgReviewJobRepository.UpdateJobStatus: %w", err)
	}
	return nil
}

func (r *pgReviewJobRepository) IncrementJobAttempts(ctx context.Context, tx *sql.Tx, jobID string) error {
	query := `UPDATE review_jobs SET attempts = attempts + 1, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, jobID)
	} else {
		_, err = r.db.ExecContext(ctx, query, jobID)
	}
	if err != nil {
		return fmt.Errorf("pgReviewJobRepository.IncrementJobAttempts: %w", err)
	}
	return nil
}
