package service

import (
	"context"
	"time"

	"github.com/Latte72R/typing-backend/internal/common"
	"github.com/Latte72R/typing-backend/internal/domain/model"
	"github.com/Latte72R/typing-backend/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ContestService is the admin-facing CRUD surface over contests. It is not
// part of the core (C1-C6); it enforces the cross-field invariants the
// core assumes already hold by the time a Contest reaches policy or C6.
type ContestService struct {
	contestRepo repository.ContestRepository
}

func NewContestService(contestRepo repository.ContestRepository) *ContestService {
	return &ContestService{contestRepo: contestRepo}
}

type CreateContestRequest struct {
	Title                 string                       `json:"title"`
	Description           *string                      `json:"description,omitempty"`
	Visibility            model.ContestVisibility      `json:"visibility"`
	JoinCode              *string                      `json:"join_code,omitempty"`
	StartsAt              time.Time                    `json:"starts_at"`
	EndsAt                time.Time                    `json:"ends_at"`
	Timezone              string                       `json:"timezone"`
	TimeLimitSec          int                          `json:"time_limit_sec"`
	AllowBackspace        bool                         `json:"allow_backspace"`
	LeaderboardVisibility model.LeaderboardVisibility  `json:"leaderboard_visibility"`
	Language              model.ContestLanguage        `json:"language"`
	MaxAttempts           int                          `json:"max_attempts"`
}

func (s *ContestService) CreateContest(ctx context.Context, createdByID string, req CreateContestRequest) (*model.Contest, error) {
	if req.Title == "" {
		return nil, common.Errorf("title is required: %w", common.ErrValidation)
	}
	if !req.StartsAt.Before(req.EndsAt) {
		return nil, common.Errorf("startsAt must precede endsAt: %w", common.ErrValidation)
	}
	if req.Visibility == model.VisibilityPrivate && (req.JoinCode == nil || *req.JoinCode == "") {
		return nil, common.Errorf("private contests require a join code: %w", common.ErrValidation)
	}
	if req.TimeLimitSec <= 0 {
		req.TimeLimitSec = 60
	}
	if req.Timezone == "" {
		req.Timezone = "UTC"
	}
	if req.LeaderboardVisibility == "" {
		req.LeaderboardVisibility = model.LeaderboardAfter
	}
	if req.Language == "" {
		req.Language = model.LanguageEnglish
	}

	contest := &model.Contest{
		ID:                    uuid.NewString(),
		Title:                 req.Title,
		Slug:                  slug.Make(req.Title),
		Description:           req.Description,
		Visibility:            req.Visibility,
		JoinCode:              req.JoinCode,
		StartsAt:              req.StartsAt,
		EndsAt:                req.EndsAt,
		Timezone:              req.Timezone,
		TimeLimitSec:          req.TimeLimitSec,
		AllowBackspace:        req.AllowBackspace,
		LeaderboardVisibility: req.LeaderboardVisibility,
		Language:              req.Language,
		MaxAttempts:           req.MaxAttempts,
		CreatedByID:           createdByID,
	}

	if err := s.contestRepo.Create(ctx, nil, contest); err != nil {
		return nil, common.Errorf("failed to create contest: %w", err)
	}
	return contest, nil
}

type UpdateContestRequest struct {
	Title                 *string                      `json:"title,omitempty"`
	Description           *string                      `json:"description,omitempty"`
	Visibility            *model.ContestVisibility     `json:"visibility,omitempty"`
	JoinCode              *string                      `json:"join_code,omitempty"`
	StartsAt              *time.Time                   `json:"starts_at,omitempty"`
	EndsAt                *time.Time                   `json:"ends_at,omitempty"`
	Timezone              *string                      `json:"timezone,omitempty"`
	TimeLimitSec          *int                         `json:"time_limit_sec,omitempty"`
	AllowBackspace        *bool                        `json:"allow_backspace,omitempty"`
	LeaderboardVisibility *model.LeaderboardVisibility `json:"leaderboard_visibility,omitempty"`
	Language              *model.ContestLanguage       `json:"language,omitempty"`
	MaxAttempts           *int                         `json:"max_attempts,omitempty"`
}

func (s *ContestService) UpdateContest(ctx context.Context, contestID string, req UpdateContestRequest) (*model.Contest, error) {
	contest, err := s.contestRepo.FindByID(ctx, contestID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		contest.Title = *req.Title
	}
	if req.Description != nil {
		contest.Description = req.Description
	}
	if req.Visibility != nil {
		contest.Visibility = *req.Visibility
	}
	if req.JoinCode != nil {
		contest.JoinCode = req.JoinCode
	}
	if req.StartsAt != nil {
		contest.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		contest.EndsAt = *req.EndsAt
	}
	if req.Timezone != nil {
		contest.Timezone = *req.Timezone
	}
	if req.TimeLimitSec != nil {
		contest.TimeLimitSec = *req.TimeLimitSec
	}
	if req.AllowBackspace != nil {
		contest.AllowBackspace = *req.AllowBackspace
	}
	if req.LeaderboardVisibility != nil {
		contest.LeaderboardVisibility = *req.LeaderboardVisibility
	}
	if req.Language != nil {
		contest.Language = *req.Language
	}
	if req.MaxAttempts != nil {
		contest.MaxAttempts = *req.MaxAttempts
	}

	if !contest.StartsAt.Before(contest.EndsAt) {
		return nil, common.Errorf("startsAt must precede endsAt: %w", common.ErrValidation)
	}
	if contest.Visibility == model.VisibilityPrivate && (contest.JoinCode == nil || *contest.JoinCode == "") {
		return nil, common.Errorf("private contests require a join code: %w", common.ErrValidation)
	}

	if err := s.contestRepo.Update(ctx, nil, contest); err != nil {
		return nil, common.Errorf("failed to update contest: %w", err)
	}
	return contest, nil
}

func (s *ContestService) GetContest(ctx context.Context, id string) (*model.Contest, error) {
	return s.contestRepo.FindByID(ctx, id)
}

func (s *ContestService) GetContestBySlug(ctx context.Context, slug string) (*model.Contest, error) {
	return s.contestRepo.FindBySlug(ctx, slug)
}

func (s *ContestService) ListContests(ctx context.Context, limit, offset int) ([]model.Contest, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.contestRepo.List(ctx, limit, offset)
}

// ValidateJoinCode is the join-time check deliberately kept out of
// StartSession: the join endpoint owns join-code verification, not
// session creation.
func (s *ContestService) ValidateJoinCode(contest *model.Contest, providedCode string) error {
	if contest.Visibility != model.VisibilityPrivate {
		return nil
	}
	if contest.JoinCode == nil || providedCode != *contest.JoinCode {
		return common.Errorf("invalid join code: %w", common.ErrValidation)
	}
	return nil
}
