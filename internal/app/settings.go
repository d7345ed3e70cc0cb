package app

import (
	"context"
	"errors"
	"fmt"

	"quizdesk/internal/domain"
)

// SettingsService resolves the quiz configuration. The row is read on every call.
type SettingsService struct {
	repo SettingsRepository
}

func NewSettingsService(repo SettingsRepository) *SettingsService {
	return &SettingsService{repo: repo}
}

// Get returns the stored settings, creating the default row on first use.
func (s *SettingsService) Get(ctx context.Context) (domain.Settings, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Settings{}, err
	}
	return s.repo.EnsureSettings(ctx, domain.DefaultSettings())
}

// Update applies an admin patch on top of the current settings.
func (s *SettingsService) Update(ctx context.Context, patch domain.SettingsPatch) (domain.Settings, error) {
	if patch.NumQuestions != nil {
		n := *patch.NumQuestions
		if n < domain.MinNumQuestions || n > domain.MaxNumQuestions {
			return domain.Settings{}, domain.Invalid(fmt.Sprintf(
				"num_questions must be an integer between %d and %d", domain.MinNumQuestions, domain.MaxNumQuestions))
		}
	}

	current, err := s.Get(ctx)
	if err != nil {
		return domain.Settings{}, err
	}
	if patch.NumQuestions != nil {
		current.NumQuestions = *patch.NumQuestions
	}
	if patch.Randomize != nil {
		current.Randomize = *patch.Randomize
	}
	return s.repo.SaveSettings(ctx, current)
}
