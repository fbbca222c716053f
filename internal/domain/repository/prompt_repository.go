package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Latte72R/typing-backend/internal/common"
	"github.com/Latte72R/typing-backend/internal/domain/model"
)

type PromptRepository interface {
	Create(ctx context.Context, tx *sql.Tx, prompt *model.Prompt) error
	FindByID(ctx context.Context, id string) (*model.Prompt, error)

	// ReplaceContestPrompts atomically replaces the whole ordered prompt
	// set for a contest; the whole set is replaced by the admin rather
	// than edited incrementally.
	ReplaceContestPrompts(ctx context.Context, tx *sql.Tx, contestID string, promptIDs []string) error

	// ListOrderedForContest returns the contest's prompt pool in
	// orderIndex order, for C6's prompt-selection step.
	ListOrderedForContest(ctx context.Context, contestID string) ([]model.Prompt, error)
}

type pgPromptRepository struct {
	db *sql.DB
}

func NewPgPromptRepository(db *sql.DB) PromptRepository {
	return &pgPromptRepository{db: db}
}

func (r *pgPromptRepository) Create(ctx context.Context, tx *sql.Tx, p *model.Prompt) error {
	query := `INSERT INTO prompts (id, language, display_text, typing_target, tags, is_active)
	          VALUES ($1, $2, $3, $4, $5, $6)`
	args := []interface{}{p.ID, p.Language, p.DisplayText, p.TypingTarget, strings.Join(p.Tags, ","), p.IsActive}

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, args...)
	} else {
		_, err = r.db.ExecContext(ctx, query, args...)
	}
	if err != nil {
		return fmt.Errorf("pgPromptRepository.Create: %w", err)
	}
	return nil
}

func (r *pgPromptRepository) FindByID(ctx context.Context, id string) (*model.Prompt, error) {
	query := `SELECT id, language, display_text, typing_target, tags, is_active, created_at
	          FROM prompts WHERE id = $1`
	p := &model.Prompt{}
	var tags string
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.Language, &p.DisplayText, &p.TypingTarget, &tags, &p.IsActive, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgPromptRepository.FindByID: %w", err)
	}
	if tags != "" {
		p.Tags = strings.Split(tags, ",")
	}
	return p, nil
}

func (r *pgPromptRepository) ReplaceContestPrompts(ctx context.Context, tx *sql.Tx, contestID string, promptIDs []string) error {
	if tx == nil {
		return fmt.Errorf("pgPromptRepository.ReplaceContestPrompts: requires a transaction")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM contest_prompts WHERE contest_id = $1`, contestID); err != nil {
		return fmt.Errorf("pgPromptRepository.ReplaceContestPrompts delete: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO contest_prompts (contest_id, prompt_id, order_index) VALUES ($1, $2, $3)`)
	if err != nil {
		return fmt.Errorf("pgPromptRepository.ReplaceContestPrompts prepare: %w", err)
	}
	defer stmt.Close()

	for i, promptID := range promptIDs {
		if _, err := stmt.ExecContext(ctx, contestID, promptID, i); err != nil {
			return fmt.Errorf("pgPromptRepository.ReplaceContestPrompts insert %s: %w", promptID, err)
		}
	}
	return nil
}

func (r *pgPromptRepository) ListOrderedForContest(ctx context.Context, contestID string) ([]model.Prompt, error) {
	query := `SELECT p.id, p.language, p.display_text, p.typing_target, p.tags, p.is_active, p.created_at
	          FROM contest_prompts cp
	          JOIN prompts p ON p.id = cp.prompt_id
	          WHERE cp.contest_id = $1
	          ORDER BY cp.order_index ASC`
	rows, err := r.db.QueryContext(ctx, query, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgPromptRepository.ListOrderedForContest: %w", err)
	}
	defer rows.Close()

	var prompts []model.Prompt
	for rows.Next() {
		var p model.Prompt
		var tags string
		if err := rows.Scan(&p.ID, &p.Language, &p.DisplayText, &p.TypingTarget, &tags, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("pgPromptRepository.ListOrderedForContest scan: %w", err)
		}
		if tags != "" {
			p.Tags = strings.Split(tags, ",")
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgPromptRepository.ListOrderedForContest rows.Err: %w", err)
	}
	return prompts, nil
}
