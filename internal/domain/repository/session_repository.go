package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Latte72R/typing-backend/internal/common"
	"github.com/Latte72R/typing-backend/internal/domain/model"
)

type SessionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, session *model.Session) error

	// FindForUpdate locks the session row; the finishSession transaction
	// must hold this lock for its duration.
	FindForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Session, error)
	FindByID(ctx context.Context, id string) (*model.Session, error)

	UpdateOnFinish(ctx context.Context, tx *sql.Tx, session *model.Session) error

	// ReplaceKeystrokes atomically replaces the keystroke rows for a
	// session.
	ReplaceKeystrokes(ctx context.Context, tx *sql.Tx, sessionID string, keystrokes []model.Keystroke) error

	// ListFinishedForContest backs getLeaderboard: read-only,
	// ordered by the leaderboard total order, up to limit.
	ListFinishedForContest(ctx context.Context, contestID string, limit int) ([]model.Session, error)
}

type pgSessionRepository struct {
	db *sql.DB
}

func NewPgSessionRepository(db *sql.DB) SessionRepository {
	return &pgSessionRepository{db: db}
}

func (r *pgSessionRepository) Create(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	query := `INSERT INTO sessions (id, user_id, contest_id, prompt_id, started_at, status, defocus_count, paste_blocked)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	args := []interface{}{s.ID, s.UserID, s.ContestID, s.PromptID, s.StartedAt, s.Status, s.DefocusCount, s.PasteBlocked}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("pgSessionRepository.Create: %w", err)
	}
	return nil
}

func (r *pgSessionRepository) FindForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.Session, error) {
	if tx == nil {
		return nil, fmt.Errorf("pgSessionRepository.FindForUpdate: requires a transaction")
	}
	query := `SELECT id, user_id, contest_id, prompt_id, started_at, ended_at, status, cpm, wpm, accuracy,
	          errors, score, defocus_count, paste_blocked, anomaly_score, dq_reason
	          FROM sessions WHERE id = $1 FOR UPDATE`
	return r.scanOne(tx.QueryRowContext(ctx, query, id))
}

func (r *pgSessionRepository) FindByID(ctx context.Context, id string) (*model.Session, error) {
	query := `SELECT id, user_id, contest_id, prompt_id, started_at, ended_at, status, cpm, wpm, accuracy,
	          errors, score, defocus_count, paste_blocked, anomaly_score, dq_reason
	          FROM sessions WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *pgSessionRepository) scanOne(row *sql.Row) (*model.Session, error) {
	s := &model.Session{}
	err := row.Scan(
		&s.ID, &s.UserID, &s.ContestID, &s.PromptID, &s.StartedAt, &s.EndedAt, &s.Status, &s.Cpm, &s.Wpm,
		&s.Accuracy, &s.Errors, &s.Score, &s.DefocusCount, &s.PasteBlocked, &s.AnomalyScore, &s.DQReason,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSessionRepository.scanOne: %w", err)
	}
	return s, nil
}

func (r *pgSessionRepository) UpdateOnFinish(ctx context.Context, tx *sql.Tx, s *model.Session) error {
	if tx == nil {
		return fmt.Errorf("pgSessionRepository.UpdateOnFinish: requires a transaction")
	}
	query := `UPDATE sessions SET
	          status = $1, ended_at = $2, cpm = $3, wpm = $4, accuracy = $5, errors = $6, score = $7,
	          defocus_count = $8, paste_blocked = $9, anomaly_score = $10, dq_reason = $11
	          WHERE id = $12`
	args := []interface{}{
		s.Status, s.EndedAt, s.Cpm, s.Wpm, s.Accuracy, s.Errors, s.Score,
		s.DefocusCount, s.PasteBlocked, s.AnomalyScore, s.DQReason, s.ID,
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("pgSessionRepository.UpdateOnFinish: %w", err)
	}
	return nil
}

func (r *pgSessionRepository) ReplaceKeystrokes(ctx context.Context, tx *sql.Tx, sessionID string, keystrokes []model.Keystroke) error {
	if tx == nil {
		return fmt.Errorf("pgSessionRepository.ReplaceKeystrokes: requires a transaction")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keystrokes WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("pgSessionRepository.ReplaceKeystrokes delete: %w", err)
	}
	if len(keystrokes) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO keystrokes (session_id, idx, t_ms, key, ok) VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return fmt.Errorf("pgSessionRepository.ReplaceKeystrokes prepare: %w", err)
	}
	defer stmt.Close()

	for _, k := range keystrokes {
		if _, err := stmt.ExecContext(ctx, sessionID, k.Idx, k.TMs, k.Key, k.OK); err != nil {
			return fmt.Errorf("pgSessionRepository.ReplaceKeystrokes insert idx %d: %w", k.Idx, err)
		}
	}
	return nil
}

func (r *pgSessionRepository) ListFinishedForContest(ctx context.Context, contestID string, limit int) ([]model.Session, error) {
	query := `SELECT s.id, s.user_id, u.username, s.contest_id, s.prompt_id, s.started_at, s.ended_at,
	          s.status, s.cpm, s.wpm, s.accuracy, s.errors, s.score, s.defocus_count, s.paste_blocked,
	          s.anomaly_score, s.dq_reason
	          FROM sessions s JOIN users u ON u.id = s.user_id
	          WHERE s.contest_id = $1 AND s.status = $2
	          ORDER BY s.score DESC, s.accuracy DESC, s.cpm DESC, s.ended_at ASC
	          LIMIT $3`
	rows, err := r.db.QueryContext(ctx, query, contestID, model.SessionFinished, limit)
	if err != nil {
		return nil, fmt.Errorf("pgSessionRepository.ListFinishedForContest: %w", err)
	}
	defer rows.Close()

	var sessions []model.Session
	for rows.Next() {
		var s model.Session
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.Username, &s.ContestID, &s.PromptID, &s.StartedAt, &s.EndedAt,
			&s.Status, &s.Cpm, &s.Wpm, &s.Accuracy, &s.Errors, &s.Score, &s.DefocusCount, &s.PasteBlocked,
			&s.AnomalyScore, &s.DQReason,
		); err != nil {
			return nil, fmt.Errorf("pgSessionRepository.ListFinishedForContest scan: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSessionRepository.ListFinishedForContest rows.Err: %w", err)
	}
	return sessions, nil
}
