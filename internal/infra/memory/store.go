package memory

import (
	"context"
	"sort"
	"sync"

	"quizdesk/internal/domain"
)

// Store is an in-process content store with the same guarantees as the Postgres
// one: unique answers per (attempt, question), atomic score increments and
// cascading deletes. Useful for tests and single-process demos.
type Store struct {
	mu sync.RWMutex

	settings         *domain.Settings
	questions        map[string]domain.Question
	choices          map[string]domain.Choice
	groups           map[string]domain.Group
	links            map[link]struct{}
	attempts         map[string]domain.Attempt
	attemptQuestions map[string]map[string]int
	answers          map[string][]domain.AttemptAnswer
}

type link struct {
	questionID string
	groupID    string
}

func NewStore() *Store {
	return &Store{
		questions:        make(map[string]domain.Question),
		choices:          make(map[string]domain.Choice),
		groups:           make(map[string]domain.Group),
		links:            make(map[link]struct{}),
		attempts:         make(map[string]domain.Attempt),
		attemptQuestions: make(map[string]map[string]int),
		answers:          make(map[string][]domain.AttemptAnswer),
	}
}

// Settings

func (s *Store) GetSettings(_ context.Context) (domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return domain.Settings{}, domain.NotFound("settings")
	}
	return *s.settings, nil
}

func (s *Store) EnsureSettings(_ context.Context, defaults domain.Settings) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		stored := defaults
		s.settings = &stored
	}
	return *s.settings, nil
}

func (s *Store) SaveSettings(_ context.Context, settings domain.Settings) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := settings
	s.settings = &stored
	return stored, nil
}

// Questions

func (s *Store) QuestionIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	questions := s.sortedQuestionsLocked()
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids, nil
}

func (s *Store) QuestionIDsInGroups(_ context.Context, groupIDs []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]struct{}, len(groupIDs))
	for _, id := range groupIDs {
		wanted[id] = struct{}{}
	}
	seen := make(map[string]struct{})
	ids := make([]string, 0)
	for l := range s.links {
		if _, ok := wanted[l.groupID]; !ok {
			continue
		}
		if _, ok := seen[l.questionID]; ok {
			continue
		}
		seen[l.questionID] = struct{}{}
		ids = append(ids, l.questionID)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) QuestionsByIDs(_ context.Context, ids []string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if q, ok := s.questions[id]; ok {
			out = append(out, q)
		}
	}
	return out, nil
}

func (s *Store) ListQuestions(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	questions := s.sortedQuestionsLocked()
	for i, j := 0, len(questions)-1; i < j; i, j = i+1, j-1 {
		questions[i], questions[j] = questions[j], questions[i]
	}
	return questions, nil
}

func (s *Store) GetQuestion(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.NotFound("question")
	}
	return q, nil
}

func (s *Store) CreateQuestion(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions[q.ID] = q
	return nil
}

func (s *Store) UpdateQuestionPrompt(_ context.Context, id, prompt string) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, domain.NotFound("question")
	}
	q.Prompt = prompt
	s.questions[id] = q
	return q, nil
}

func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.NotFound("question")
	}
	delete(s.questions, id)
	for cid, c := range s.choices {
		if c.QuestionID == id {
			delete(s.choices, cid)
		}
	}
	for l := range s.links {
		if l.questionID == id {
			delete(s.links, l)
		}
	}
	for attemptID, set := range s.attemptQuestions {
		delete(set, id)
		kept := s.answers[attemptID][:0]
		for _, a := range s.answers[attemptID] {
			if a.QuestionID != id {
				kept = append(kept, a)
			}
		}
		s.answers[attemptID] = kept
	}
	return nil
}

func (s *Store) sortedQuestionsLocked() []domain.Question {
	out := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Choices

func (s *Store) ChoicesForQuestions(_ context.Context, questionIDs []string) ([]domain.Choice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]struct{}, len(questionIDs))
	for _, id := range questionIDs {
		wanted[id] = struct{}{}
	}
	out := make([]domain.Choice, 0)
	for _, c := range s.choices {
		if _, ok := wanted[c.QuestionID]; ok {
			out = append(out, c)
		}
	}
	sortChoices(out)
	return out, nil
}

func (s *Store) ListChoices(_ context.Context, questionID string) ([]domain.Choice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Choice, 0)
	for _, c := range s.choices {
		if c.QuestionID == questionID {
			out = append(out, c)
		}
	}
	sortChoices(out)
	return out, nil
}

func (s *Store) GetChoice(_ context.Context, id string) (domain.Choice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.choices[id]
	if !ok {
		return domain.Choice{}, domain.NotFound("choice")
	}
	return c, nil
}

func (s *Store) CreateChoice(_ context.Context, c domain.Choice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[c.QuestionID]; !ok {
		return domain.NotFound("question")
	}
	s.choices[c.ID] = c
	return nil
}

func (s *Store) UpdateChoice(_ context.Context, id string, patch domain.ChoicePatch) (domain.Choice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.choices[id]
	if !ok {
		return domain.Choice{}, domain.NotFound("choice")
	}
	if patch.Label != nil {
		c.Label = *patch.Label
	}
	if patch.IsCorrect != nil {
		c.IsCorrect = *patch.IsCorrect
	}
	s.choices[id] = c
	return c, nil
}

func (s *Store) DeleteChoice(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.choices[id]; !ok {
		return domain.NotFound("choice")
	}
	delete(s.choices, id)
	return nil
}

func sortChoices(choices []domain.Choice) {
	sort.Slice(choices, func(i, j int) bool {
		if choices[i].Label != choices[j].Label {
			return choices[i].Label < choices[j].Label
		}
		return choices[i].ID < choices[j].ID
	})
}

// Groups

func (s *Store) ListGroups(_ context.Context) ([]domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Group, 0, len(s.groups))
	for _, g := range s.groups {
		out = append(out, g)
	}
	sortGroups(out)
	return out, nil
}

func (s *Store) CreateGroup(_ context.Context, g domain.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.groups[g.ID] = g
	return nil
}

func (s *Store) DeleteGroup(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.groups[id]; !ok {
		return domain.NotFound("group")
	}
	delete(s.groups, id)
	for l := range s.links {
		if l.groupID == id {
			delete(s.links, l)
		}
	}
	return nil
}

func (s *Store) GroupsForQuestion(_ context.Context, questionID string) ([]domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Group, 0)
	for l := range s.links {
		if l.questionID != questionID {
			continue
		}
		if g, ok := s.groups[l.groupID]; ok {
			out = append(out, g)
		}
	}
	sortGroups(out)
	return out, nil
}

func (s *Store) LinkQuestionGroup(_ context.Context, questionID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[questionID]; !ok {
		return domain.NotFound("question")
	}
	if _, ok := s.groups[groupID]; !ok {
		return domain.NotFound("group")
	}
	s.links[link{questionID: questionID, groupID: groupID}] = struct{}{}
	return nil
}

func (s *Store) UnlinkQuestionGroup(_ context.Context, questionID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, link{questionID: questionID, groupID: groupID})
	return nil
}

func sortGroups(groups []domain.Group) {
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Name != groups[j].Name {
			return groups[i].Name < groups[j].Name
		}
		return groups[i].ID < groups[j].ID
	})
}

// Attempts

func (s *Store) CreateAttempt(_ context.Context, attempt domain.Attempt, questionIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range questionIDs {
		if _, ok := s.questions[id]; !ok {
			return domain.NotFound("question")
		}
	}
	set := make(map[string]int, len(questionIDs))
	for i, id := range questionIDs {
		set[id] = i
	}
	s.attempts[attempt.ID] = attempt
	s.attemptQuestions[attempt.ID] = set
	return nil
}

func (s *Store) GetAttempt(_ context.Context, id string) (domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[id]
	if !ok {
		return domain.Attempt{}, domain.NotFound("attempt")
	}
	return a, nil
}

func (s *Store) AttemptHasQuestion(_ context.Context, attemptID, questionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.attemptQuestions[attemptID][questionID]
	return ok, nil
}

func (s *Store) AnswerExists(_ context.Context, attemptID, questionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.answeredLocked(attemptID, questionID), nil
}

func (s *Store) RecordAnswer(_ context.Context, answer domain.AttemptAnswer) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	attempt, ok := s.attempts[answer.AttemptID]
	if !ok {
		return 0, domain.NotFound("attempt")
	}
	if s.answeredLocked(answer.AttemptID, answer.QuestionID) {
		return 0, domain.ErrAlreadyAnswered
	}
	stored := answer
	stored.SelectedChoiceIDs = append([]string(nil), answer.SelectedChoiceIDs...)
	s.answers[answer.AttemptID] = append(s.answers[answer.AttemptID], stored)

	if answer.IsCorrect && attempt.Score < attempt.Total {
		attempt.Score++
		s.attempts[attempt.ID] = attempt
	}
	return attempt.Score, nil
}

func (s *Store) answeredLocked(attemptID, questionID string) bool {
	for _, a := range s.answers[attemptID] {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

func (s *Store) ListAnswers(_ context.Context, attemptID string) ([]domain.AttemptAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AttemptAnswer, 0, len(s.answers[attemptID]))
	for _, a := range s.answers[attemptID] {
		a.SelectedChoiceIDs = append([]string(nil), a.SelectedChoiceIDs...)
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) TopAttempts(_ context.Context, limit int) ([]domain.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Attempt, 0, len(s.attempts))
	for _, a := range s.attempts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
