package app

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"quizdesk/internal/domain"
	"quizdesk/internal/logging"

	"github.com/google/uuid"
)

// CatalogService holds the admin authoring use cases for questions, choices and groups.
type CatalogService struct {
	questions QuestionRepository
	choices   ChoiceRepository
	groups    GroupRepository
	cache     ChoiceCache
	log       *logging.Logger
	now       func() time.Time
	newID     func() string
}

// NewCatalogService wires the admin use cases. cache may be nil when choices are not cached.
func NewCatalogService(questions QuestionRepository, choices ChoiceRepository, groups GroupRepository, cache ChoiceCache, log *logging.Logger) *CatalogService {
	if log == nil {
		log = logging.Nop()
	}
	return &CatalogService{
		questions: questions,
		choices:   choices,
		groups:    groups,
		cache:     cache,
		log:       log,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// NewCatalogServiceWithClock is test-only for deterministic created_at ordering.
func NewCatalogServiceWithClock(questions QuestionRepository, choices ChoiceRepository, groups GroupRepository, cache ChoiceCache, now func() time.Time) *CatalogService {
	s := NewCatalogService(questions, choices, groups, cache, nil)
	s.now = now
	return s
}

func (s *CatalogService) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	return s.questions.ListQuestions(ctx)
}

func (s *CatalogService) GetQuestion(ctx context.Context, rawID string) (domain.Question, error) {
	id, err := parseID("question id", rawID)
	if err != nil {
		return domain.Question{}, err
	}
	return s.questions.GetQuestion(ctx, id)
}

func (s *CatalogService) CreateQuestion(ctx context.Context, prompt string) (domain.Question, error) {
	prompt, err := validatePrompt(prompt)
	if err != nil {
		return domain.Question{}, err
	}
	q := domain.Question{ID: s.newID(), Prompt: prompt, CreatedAt: s.now().UTC()}
	if err := s.questions.CreateQuestion(ctx, q); err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

// UpdateQuestion changes the prompt; an unchanged prompt is returned without a write.
func (s *CatalogService) UpdateQuestion(ctx context.Context, rawID, prompt string) (domain.Question, error) {
	id, err := parseID("question id", rawID)
	if err != nil {
		return domain.Question{}, err
	}
	prompt, err = validatePrompt(prompt)
	if err != nil {
		return domain.Question{}, err
	}
	existing, err := s.questions.GetQuestion(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	if existing.Prompt == prompt {
		return existing, nil
	}
	return s.questions.UpdateQuestionPrompt(ctx, id, prompt)
}

// DeleteQuestion removes the question together with its choices and links.
func (s *CatalogService) DeleteQuestion(ctx context.Context, rawID string) error {
	id, err := parseID("question id", rawID)
	if err != nil {
		return err
	}
	if err := s.questions.DeleteQuestion(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx, id)
}

func (s *CatalogService) ListChoices(ctx context.Context, rawQuestionID string) ([]domain.Choice, error) {
	questionID, err := parseID("question id", rawQuestionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.questions.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	return s.choices.ListChoices(ctx, questionID)
}

func (s *CatalogService) CreateChoice(ctx context.Context, rawQuestionID, label string, isCorrect bool) (domain.Choice, error) {
	questionID, err := parseID("question id", rawQuestionID)
	if err != nil {
		return domain.Choice{}, err
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return domain.Choice{}, domain.Invalid("label is required")
	}
	if _, err := s.questions.GetQuestion(ctx, questionID); err != nil {
		return domain.Choice{}, err
	}
	c := domain.Choice{ID: s.newID(), QuestionID: questionID, Label: label, IsCorrect: isCorrect}
	if err := s.choices.CreateChoice(ctx, c); err != nil {
		return domain.Choice{}, err
	}
	if err := s.invalidate(ctx, questionID); err != nil {
		return domain.Choice{}, err
	}
	return c, nil
}

// UpdateChoice renames a choice and/or toggles its correctness.
func (s *CatalogService) UpdateChoice(ctx context.Context, rawChoiceID string, patch domain.ChoicePatch) (domain.Choice, error) {
	choiceID, err := parseID("choice id", rawChoiceID)
	if err != nil {
		return domain.Choice{}, err
	}
	if patch.Label == nil && patch.IsCorrect == nil {
		return domain.Choice{}, domain.Invalid("nothing to update")
	}
	if patch.Label != nil {
		label := strings.TrimSpace(*patch.Label)
		if label == "" {
			return domain.Choice{}, domain.Invalid("label cannot be empty")
		}
		patch.Label = &label
	}
	updated, err := s.choices.UpdateChoice(ctx, choiceID, patch)
	if err != nil {
		return domain.Choice{}, err
	}
	if err := s.invalidate(ctx, updated.QuestionID); err != nil {
		return domain.Choice{}, err
	}
	return updated, nil
}

func (s *CatalogService) DeleteChoice(ctx context.Context, rawChoiceID string) error {
	choiceID, err := parseID("choice id", rawChoiceID)
	if err != nil {
		return err
	}
	existing, err := s.choices.GetChoice(ctx, choiceID)
	if err != nil {
		return err
	}
	if err := s.choices.DeleteChoice(ctx, choiceID); err != nil {
		return err
	}
	return s.invalidate(ctx, existing.QuestionID)
}

func (s *CatalogService) ListGroups(ctx context.Context) ([]domain.Group, error) {
	return s.groups.ListGroups(ctx)
}

func (s *CatalogService) CreateGroup(ctx context.Context, name string) (domain.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Group{}, domain.Invalid("name is required")
	}
	g := domain.Group{ID: s.newID(), Name: name, CreatedAt: s.now().UTC()}
	if err := s.groups.CreateGroup(ctx, g); err != nil {
		return domain.Group{}, err
	}
	return g, nil
}

func (s *CatalogService) DeleteGroup(ctx context.Context, rawID string) error {
	id, err := parseID("group id", rawID)
	if err != nil {
		return err
	}
	return s.groups.DeleteGroup(ctx, id)
}

func (s *CatalogService) QuestionGroups(ctx context.Context, rawQuestionID string) ([]domain.Group, error) {
	questionID, err := parseID("question id", rawQuestionID)
	if err != nil {
		return nil, err
	}
	return s.groups.GroupsForQuestion(ctx, questionID)
}

// LinkGroup tags a question with a group. Linking twice is not an error.
func (s *CatalogService) LinkGroup(ctx context.Context, rawQuestionID, rawGroupID string) error {
	questionID, groupID, err := parseLink(rawQuestionID, rawGroupID)
	if err != nil {
		return err
	}
	return s.groups.LinkQuestionGroup(ctx, questionID, groupID)
}

// UnlinkGroup removes a tag. Removing a missing link is not an error.
func (s *CatalogService) UnlinkGroup(ctx context.Context, rawQuestionID, rawGroupID string) error {
	questionID, groupID, err := parseLink(rawQuestionID, rawGroupID)
	if err != nil {
		return err
	}
	return s.groups.UnlinkQuestionGroup(ctx, questionID, groupID)
}

// invalidate returns cache failures as ErrStorage; the store write has already happened.
func (s *CatalogService) invalidate(ctx context.Context, questionID string) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, questionID); err != nil {
		s.log.Error("choice cache invalidation failed", "question_id", questionID, "error", err)
		return domain.Storage("invalidate cached choices", err)
	}
	return nil
}

func parseLink(rawQuestionID, rawGroupID string) (string, string, error) {
	if strings.TrimSpace(rawQuestionID) == "" || strings.TrimSpace(rawGroupID) == "" {
		return "", "", domain.Invalid("question_id and group_id required")
	}
	questionID, err := parseID("question_id", rawQuestionID)
	if err != nil {
		return "", "", err
	}
	groupID, err := parseID("group_id", rawGroupID)
	if err != nil {
		return "", "", err
	}
	return questionID, groupID, nil
}

func validatePrompt(raw string) (string, error) {
	prompt := strings.TrimSpace(raw)
	if prompt == "" {
		return "", domain.Invalid("prompt is required")
	}
	if utf8.RuneCountInString(prompt) > domain.MaxPromptLength {
		return "", domain.Invalid("prompt too long")
	}
	return prompt, nil
}
