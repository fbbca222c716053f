package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Latte72R/typing-backend/internal/common"
	"github.com/Latte72R/typing-backend/internal/domain/model"
	"github.com/jackc/pgx/v5/pgconn"
)

type ContestRepository interface {
	Create(ctx context.Context, tx *sql.Tx, contest *model.Contest) error
	Update(ctx context.Context, tx *sql.Tx, contest *model.Contest) error
	FindByID(ctx context.Context, id string) (*model.Contest, error)
	FindBySlug(ctx context.Context, slug string) (*model.Contest, error)
	List(ctx context.Context, limit, offset int) ([]model.Contest, int, error)
}

type pgContestRepository struct {
	db *sql.DB
}

func NewPgContestRepository(db *sql.DB) ContestRepository {
	return &pgContestRepository{db: db}
}

func (r *pgContestRepository) Create(ctx context.Context, tx *sql.Tx, c *model.Contest) error {
	query := `INSERT INTO contests
	          (id, title, slug, description, visibility, join_code, starts_at, ends_at, timezone,
	           time_limit_sec, allow_backspace, leaderboard_visibility, language, max_attempts, created_by)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	args := []interface{}{
		c.ID, c.Title, c.Slug, c.Description, c.Visibility, c.JoinCode, c.StartsAt, c.EndsAt, c.Timezone,
		c.TimeLimitSec, c.AllowBackspace, c.LeaderboardVisibility, c.Language, c.MaxAttempts, c.CreatedByID,
	}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("contest with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgContestRepository.Create: %w", err)
	}
	return nil
}

func (r *pgContestRepository) Update(ctx context.Context, tx *sql.Tx, c *model.Contest) error {
	query := `UPDATE contests SET
	          title = $1, description = $2, visibility = $3, join_code = $4, starts_at = $5, ends_at = $6,
	          timezone = $7, time_limit_sec = $8, allow_backspace = $9, leaderboard_visibility = $10,
	          language = $11, max_attempts = $12, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $13`
	args := []interface{}{
		c.Title, c.Description, c.Visibility, c.JoinCode, c.StartsAt, c.EndsAt, c.Timezone,
		c.TimeLimitSec, c.AllowBackspace, c.LeaderboardVisibility, c.Language, c.MaxAttempts, c.ID,
	}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("pgContestRepository.Update: %w", err)
	}
	return nil
}

func (r *pgContestRepository) FindByID(ctx context.Context, id string) (*model.Contest, error) {
	query := `SELECT c.id, c.title, c.slug, c.description, c.visibility, c.join_code, c.starts_at, c.ends_at,
	          c.timezone, c.time_limit_sec, c.allow_backspace, c.leaderboard_visibility, c.language,
	          c.max_attempts, c.created_by, u.username, c.created_at, c.updated_at
	          FROM contests c LEFT JOIN users u ON c.created_by = u.id
	          WHERE c.id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *pgContestRepository) FindBySlug(ctx context.Context, slug string) (*model.Contest, error) {
	query := `SELECT c.id, c.title, c.slug, c.description, c.visibility, c.join_code, c.starts_at, c.ends_at,
	          c.timezone, c.time_limit_sec, c.allow_backspace, c.leaderboard_visibility, c.language,
	          c.max_attempts, c.created_by, u.username, c.created_at, c.updated_at
	          FROM contests c LEFT JOIN users u ON c.created_by = u.id
	          WHERE c.slug = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, slug))
}

func (r *pgContestRepository) scanOne(row *sql.Row) (*model.Contest, error) {
	c := &model.Contest{}
	err := row.Scan(
		&c.ID, &c.Title, &c.Slug, &c.Description, &c.Visibility, &c.JoinCode, &c.StartsAt, &c.EndsAt,
		&c.Timezone, &c.TimeLimitSec, &c.AllowBackspace, &c.LeaderboardVisibility, &c.Language,
		&c.MaxAttempts, &c.CreatedByID, &c.CreatedByUsername, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.scanOne: %w", err)
	}
	return c, nil
}

func (r *pgContestRepository) List(ctx context.Context, limit, offset int) ([]model.Contest, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contests`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgContestRepository.List count: %w", err)
	}

	query := `SELECT id, title, slug, description, visibility, join_code, starts_at, ends_at, timezone,
	          time_limit_sec, allow_backspace, leaderboard_visibility, language, max_attempts, created_by,
	          created_at, updated_at
	          FROM contests ORDER BY starts_at DESC LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("pgContestRepository.List query: %w", err)
	}
	defer rows.Close()

	contests := []model.Contest{}
	for rows.Next() {
		var c model.Contest
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Slug, &c.Description, &c.Visibility, &c.JoinCode, &c.StartsAt, &c.EndsAt,
			&c.Timezone, &c.TimeLimitSec, &c.AllowBackspace, &c.LeaderboardVisibility, &c.Language,
			&c.MaxAttempts, &c.CreatedByID, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("pgContestRepository.List scan: %w", err)
		}
		contests = append(contests, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgContestRepository.List rows.Err: %w", err)
	}
	return contests, total, nil
}
