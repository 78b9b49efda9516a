package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"promptmatch-backend/internal/models"
	"promptmatch-backend/internal/repository"

	"github.com/google/uuid"
)

const (
	dayLayout         = "2006-01-02"
	maxResponseLength = 500
	maxQuestionLength = 500
)

// PromptService handles the daily prompt and the answers to it
type PromptService struct {
	prompts PromptStore
	now     func() time.Time
}

// NewPromptService creates a new prompt service
func NewPromptService(prompts PromptStore) *PromptService {
	return &PromptService{
		prompts: prompts,
		now:     time.Now,
	}
}

// TodayPrompt is today's question with the requester's answer, if any
type TodayPrompt struct {
	Prompt   *models.Prompt         `json:"prompt"`
	Response *models.PromptResponse `json:"response,omitempty"`
}

// AnswerRequest represents a request to answer today's prompt
type AnswerRequest struct {
	Content string `json:"content"`
}

// Today returns the prompt of the current UTC day
func (s *PromptService) Today(ctx context.Context, userID string) (*TodayPrompt, error) {
	prompt, err := s.today(ctx)
	if err != nil {
		return nil, err
	}

	result := &TodayPrompt{Prompt: prompt}
	resp, err := s.prompts.GetResponse(ctx, userID, prompt.ID)
	switch {
	case err == nil:
		result.Response = resp
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to get prompt response: %w", err)
	}
	return result, nil
}

// Answer stores the answer of userID to today's prompt, replacing an earlier one
func (s *PromptService) Answer(ctx context.Context, userID, content string) (*models.PromptResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: response is empty", ErrValidation)
	}
	if utf8.RuneCountInString(content) > maxResponseLength {
		return nil, fmt.Errorf("%w: response is limited to %d characters", ErrValidation, maxResponseLength)
	}

	prompt, err := s.today(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	resp := &models.PromptResponse{
		ID:        uuid.New().String(),
		UserID:    userID,
		PromptID:  prompt.ID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.prompts.UpsertResponse(ctx, resp); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: account %s", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("failed to save prompt response: %w", err)
	}
	return resp, nil
}

// SetPrompt sets the question of day, formatted YYYY-MM-DD
func (s *PromptService) SetPrompt(ctx context.Context, day, question string) (*models.Prompt, error) {
	if _, err := time.Parse(dayLayout, day); err != nil {
		return nil, fmt.Errorf("%w: day must be formatted YYYY-MM-DD", ErrValidation)
	}
	question = strings.TrimSpace(question)
	if question == "" || utf8.RuneCountInString(question) > maxQuestionLength {
		return nil, fmt.Errorf("%w: question must be 1 to %d characters", ErrValidation, maxQuestionLength)
	}

	prompt := &models.Prompt{
		ID:        uuid.New().String(),
		Day:       day,
		Question:  question,
		CreatedAt: s.now(),
	}
	if err := s.prompts.Upsert(ctx, prompt); err != nil {
		return nil, fmt.Errorf("failed to save prompt: %w", err)
	}
	return prompt, nil
}

func (s *PromptService) today(ctx context.Context) (*models.Prompt, error) {
	day := s.now().UTC().Format(dayLayout)
	prompt, err := s.prompts.GetByDay(ctx, day)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: no prompt for %s", ErrNotFound, day)
		}
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return prompt, nil
}
