package service

import (
	"context"
	"database/sql"

	"github.com/Latte72R/typing-backend/internal/common"
	"github.com/Latte72R/typing-backend/internal/domain/model"
	"github.com/Latte72R/typing-backend/internal/domain/repository"

	"github.com/google/uuid"
)

// PromptService is the admin CRUD surface over prompts and the per-contest
// ordered prompt set C6 draws from.
type PromptService struct {
	promptRepo repository.PromptRepository
	db         *sql.DB
}

func NewPromptService(promptRepo repository.PromptRepository, db *sql.DB) *PromptService {
	return &PromptService{promptRepo: promptRepo, db: db}
}

type CreatePromptRequest struct {
	Language     string   `json:"language"`
	DisplayText  string   `json:"display_text"`
	TypingTarget string   `json:"typing_target"`
	Tags         []string `json:"tags,omitempty"`
}

func (s *PromptService) CreatePrompt(ctx context.Context, req CreatePromptRequest) (*model.Prompt, error) {
	if req.DisplayText == "" || req.TypingTarget == "" {
		return nil, common.Errorf("displayText and typingTarget are required: %w", common.ErrValidation)
	}

	prompt := &model.Prompt{
		ID:           uuid.NewString(),
		Language:     req.Language,
		DisplayText:  req.DisplayText,
		TypingTarget: req.TypingTarget,
		Tags:         req.Tags,
		IsActive:     true,
	}
	if err := s.promptRepo.Create(ctx, nil, prompt); err != nil {
		return nil, common.Errorf("failed to create prompt: %w", err)
	}
	return prompt, nil
}

func (s *PromptService) GetPrompt(ctx context.Context, id string) (*model.Prompt, error) {
	return s.promptRepo.FindByID(ctx, id)
}

// SetContestPrompts replaces the contest's ordered prompt pool as a whole,
// in the order the slice is given. Must name at least one prompt.
func (s *PromptService) SetContestPrompts(ctx context.Context, contestID string, promptIDs []string) error {
	if len(promptIDs) == 0 {
		return common.Errorf("a contest needs at least one prompt: %w", common.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.promptRepo.ReplaceContestPrompts(ctx, tx, contestID, promptIDs); err != nil {
		return common.Errorf("failed to replace contest prompts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PromptService) ListContestPrompts(ctx context.Context, contestID string) ([]model.Prompt, error) {
	return s.promptRepo.ListOrderedForContest(ctx, contestID)
}
