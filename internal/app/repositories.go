package app

import (
	"context"
	"time"

	"quizdesk/internal/domain"
)

// SettingsRepository persists the singleton quiz configuration.
type SettingsRepository interface {
	// GetSettings returns domain.ErrNotFound when no row exists yet.
	GetSettings(ctx context.Context) (domain.Settings, error)
	// EnsureSettings inserts defaults unless a row exists and returns the stored row.
	EnsureSettings(ctx context.Context, defaults domain.Settings) (domain.Settings, error)
	SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error)
}

// QuestionRepository reads and writes questions and their group links.
type QuestionRepository interface {
	// QuestionIDs returns every question id ordered by created_at ascending.
	QuestionIDs(ctx context.Context) ([]string, error)
	// QuestionIDsInGroups returns the deduplicated ids linked to any of the groups.
	QuestionIDsInGroups(ctx context.Context, groupIDs []string) ([]string, error)
	QuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error)
	// ListQuestions returns every question, newest first.
	ListQuestions(ctx context.Context) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id string) (domain.Question, error)
	CreateQuestion(ctx context.Context, q domain.Question) error
	UpdateQuestionPrompt(ctx context.Context, id, prompt string) (domain.Question, error)
	DeleteQuestion(ctx context.Context, id string) error
}

// ChoiceRepository reads and writes choices.
type ChoiceRepository interface {
	ChoiceSource
	// ListChoices returns the choices of one question ordered by label.
	ListChoices(ctx context.Context, questionID string) ([]domain.Choice, error)
	GetChoice(ctx context.Context, id string) (domain.Choice, error)
	CreateChoice(ctx context.Context, c domain.Choice) error
	UpdateChoice(ctx context.Context, id string, patch domain.ChoicePatch) (domain.Choice, error)
	DeleteChoice(ctx context.Context, id string) error
}

// ChoiceSource loads the choices of several questions in one call.
type ChoiceSource interface {
	ChoicesForQuestions(ctx context.Context, questionIDs []string) ([]domain.Choice, error)
}

// ChoiceCache is a ChoiceSource that can drop the cached choices of a question.
type ChoiceCache interface {
	ChoiceSource
	Invalidate(ctx context.Context, questionID string) error
}

// GroupRepository reads and writes groups and question-group links.
type GroupRepository interface {
	// ListGroups returns every group ordered by name.
	ListGroups(ctx context.Context) ([]domain.Group, error)
	CreateGroup(ctx context.Context, g domain.Group) error
	DeleteGroup(ctx context.Context, id string) error
	// GroupsForQuestion returns the groups a question is linked to, ordered by name.
	GroupsForQuestion(ctx context.Context, questionID string) ([]domain.Group, error)
	// LinkQuestionGroup is a no-op when the link already exists.
	LinkQuestionGroup(ctx context.Context, questionID, groupID string) error
	// UnlinkQuestionGroup is a no-op when the link does not exist.
	UnlinkQuestionGroup(ctx context.Context, questionID, groupID string) error
}

// AttemptRepository persists attempts and their answers.
type AttemptRepository interface {
	// CreateAttempt stores the attempt and its question set in one transaction.
	CreateAttempt(ctx context.Context, attempt domain.Attempt, questionIDs []string) error
	GetAttempt(ctx context.Context, id string) (domain.Attempt, error)
	AttemptHasQuestion(ctx context.Context, attemptID, questionID string) (bool, error)
	AnswerExists(ctx context.Context, attemptID, questionID string) (bool, error)
	// RecordAnswer inserts the answer and, when it is correct, atomically increments
	// the attempt score. A second answer for the same pair fails with
	// domain.ErrAlreadyAnswered and changes nothing. It returns the resulting score.
	RecordAnswer(ctx context.Context, answer domain.AttemptAnswer) (int, error)
	// ListAnswers returns the answers of an attempt in recording order.
	ListAnswers(ctx context.Context, attemptID string) ([]domain.AttemptAnswer, error)
	// TopAttempts orders by score desc, created_at asc.
	TopAttempts(ctx context.Context, limit int) ([]domain.Attempt, error)
}

// AdminSessionStore keeps admin login sessions.
type AdminSessionStore interface {
	Save(ctx context.Context, token string, session domain.AdminSession, ttl time.Duration) error
	// Get returns domain.ErrUnauthorized for unknown or expired tokens.
	Get(ctx context.Context, token string) (domain.AdminSession, error)
	Delete(ctx context.Context, token string) error
}

// Store bundles the repositories backed by one content store.
type Store interface {
	SettingsRepository
	QuestionRepository
	ChoiceRepository
	GroupRepository
	AttemptRepository
}
