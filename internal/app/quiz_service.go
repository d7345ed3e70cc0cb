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

const (
	DefaultLeaderboardLimit = 20
	MaxLeaderboardLimit     = 100
)

// Observer receives quiz events for instrumentation.
type Observer interface {
	AttemptStarted(total int)
	AnswerGraded(correct bool)
}

type nopObserver struct{}

func (nopObserver) AttemptStarted(int) {}
func (nopObserver) AnswerGraded(bool)  {}

// QuizService contains the quiz-taking use cases: start, answer, results, leaderboard.
type QuizService struct {
	settings  *SettingsService
	questions QuestionRepository
	choices   ChoiceSource
	attempts  AttemptRepository

	hub      *LeaderboardHub
	observer Observer
	log      *logging.Logger
	shuffler Shuffler
	policy   ResultsPolicy
	now      func() time.Time
	newID    func() string
}

// Option customizes a QuizService.
type Option func(*QuizService)

// WithShuffler replaces the random source, mainly for deterministic tests.
func WithShuffler(s Shuffler) Option { return func(q *QuizService) { q.shuffler = s } }

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option { return func(q *QuizService) { q.now = now } }

// WithIDGenerator replaces uuid.NewString for attempt and answer ids.
func WithIDGenerator(gen func() string) Option { return func(q *QuizService) { q.newID = gen } }

// WithResultsPolicy selects how Results decides which answers were missed.
func WithResultsPolicy(p ResultsPolicy) Option { return func(q *QuizService) { q.policy = p } }

// WithLeaderboardHub enables live leaderboard updates through Subscribe.
func WithLeaderboardHub(h *LeaderboardHub) Option { return func(q *QuizService) { q.hub = h } }

// WithObserver receives attempt and grading events, e.g. for metrics.
func WithObserver(o Observer) Option { return func(q *QuizService) { q.observer = o } }

// WithLogger sets the logger used for non-fatal failures.
func WithLogger(l *logging.Logger) Option { return func(q *QuizService) { q.log = l } }

// NewQuizService wires the quiz use cases. choices is usually a ChoiceCache in
// front of the store.
func NewQuizService(settings *SettingsService, questions QuestionRepository, choices ChoiceSource, attempts AttemptRepository, opts ...Option) *QuizService {
	s := &QuizService{
		settings:  settings,
		questions: questions,
		choices:   choices,
		attempts:  attempts,
		observer:  nopObserver{},
		log:       logging.Nop(),
		shuffler:  newTimeSeededShuffler(),
		policy:    ResultsAgainstCurrentChoices,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start assembles a question set and creates the attempt that will accumulate the score.
func (s *QuizService) Start(ctx context.Context, req domain.StartRequest) (domain.StartedQuiz, error) {
	playerName := strings.TrimSpace(req.PlayerName)
	if playerName == "" {
		return domain.StartedQuiz{}, domain.Invalid("player_name is required")
	}
	if utf8.RuneCountInString(playerName) > domain.MaxPlayerNameLength {
		return domain.StartedQuiz{}, domain.Invalid("player_name is too long")
	}
	groupIDs := make([]string, 0, len(req.GroupIDs))
	for _, raw := range req.GroupIDs {
		id, err := parseID("group_ids", raw)
		if err != nil {
			return domain.StartedQuiz{}, err
		}
		groupIDs = append(groupIDs, id)
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		return domain.StartedQuiz{}, err
	}

	picked, err := selectQuestions(ctx, s.questions, s.shuffler, settings, dedupe(groupIDs))
	if err != nil {
		return domain.StartedQuiz{}, err
	}

	ids := questionIDs(picked)
	choices, err := s.choices.ChoicesForQuestions(ctx, ids)
	if err != nil {
		return domain.StartedQuiz{}, err
	}
	clientQuestions := sanitizeChoices(picked, choices, s.shuffler)

	attempt := domain.Attempt{
		ID:         s.newID(),
		PlayerName: playerName,
		Score:      0,
		Total:      len(clientQuestions),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.attempts.CreateAttempt(ctx, attempt, ids); err != nil {
		return domain.StartedQuiz{}, err
	}
	s.observer.AttemptStarted(attempt.Total)
	s.publishLeaderboard(ctx)

	return domain.StartedQuiz{
		AttemptID: attempt.ID,
		Total:     attempt.Total,
		Questions: clientQuestions,
	}, nil
}

// SubmitAnswer grades one answer. Each (attempt, question) pair is graded at most once.
func (s *QuizService) SubmitAnswer(ctx context.Context, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	if strings.TrimSpace(sub.AttemptID) == "" || strings.TrimSpace(sub.QuestionID) == "" {
		return domain.AnswerResult{}, domain.Invalid("attempt_id and question_id are required")
	}
	attemptID, err := parseID("attempt_id", sub.AttemptID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	questionID, err := parseID("question_id", sub.QuestionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if len(sub.SelectedChoiceIDs) == 0 {
		return domain.AnswerResult{}, domain.Invalid("selected_choice_ids must be a non-empty array")
	}
	selected := make([]string, 0, len(sub.SelectedChoiceIDs))
	for _, raw := range sub.SelectedChoiceIDs {
		id, err := parseID("selected_choice_ids", raw)
		if err != nil {
			return domain.AnswerResult{}, err
		}
		selected = append(selected, id)
	}
	selected = dedupe(selected)

	if _, err := s.attempts.GetAttempt(ctx, attemptID); err != nil {
		return domain.AnswerResult{}, err
	}
	inAttempt, err := s.attempts.AttemptHasQuestion(ctx, attemptID, questionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if !inAttempt {
		return domain.AnswerResult{}, domain.NotFound("question is not part of this attempt")
	}

	// Early rejection only; RecordAnswer is what guarantees a single answer.
	answered, err := s.attempts.AnswerExists(ctx, attemptID, questionID)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if answered {
		return domain.AnswerResult{}, domain.ErrAlreadyAnswered
	}

	choices, err := s.choices.ChoicesForQuestions(ctx, []string{questionID})
	if err != nil {
		return domain.AnswerResult{}, err
	}
	correct := GradeExactSet(correctSet(choices), toSet(selected))

	score, err := s.attempts.RecordAnswer(ctx, domain.AttemptAnswer{
		ID:                s.newID(),
		AttemptID:         attemptID,
		QuestionID:        questionID,
		SelectedChoiceIDs: selected,
		IsCorrect:         correct,
		CreatedAt:         s.now().UTC(),
	})
	if err != nil {
		return domain.AnswerResult{}, err
	}

	s.observer.AnswerGraded(correct)
	if correct {
		s.publishLeaderboard(ctx)
	}
	return domain.AnswerResult{Correct: correct, Score: score}, nil
}

// Results rebuilds the missed-question review of an attempt from its recorded answers.
func (s *QuizService) Results(ctx context.Context, rawAttemptID string) (domain.AttemptResults, error) {
	attemptID, err := parseID("attempt id", rawAttemptID)
	if err != nil {
		return domain.AttemptResults{}, err
	}
	if _, err := s.attempts.GetAttempt(ctx, attemptID); err != nil {
		return domain.AttemptResults{}, err
	}

	results := domain.AttemptResults{RunID: attemptID, Incorrect: []domain.MissedQuestion{}}

	answers, err := s.attempts.ListAnswers(ctx, attemptID)
	if err != nil {
		return domain.AttemptResults{}, err
	}

	order := make([]string, 0, len(answers))
	selected := make(map[string]map[string]struct{}, len(answers))
	recordedCorrect := make(map[string]bool, len(answers))
	for _, a := range answers {
		set, ok := selected[a.QuestionID]
		if !ok {
			set = make(map[string]struct{})
			selected[a.QuestionID] = set
			order = append(order, a.QuestionID)
			recordedCorrect[a.QuestionID] = true
		}
		for _, id := range a.SelectedChoiceIDs {
			set[id] = struct{}{}
		}
		recordedCorrect[a.QuestionID] = recordedCorrect[a.QuestionID] && a.IsCorrect
	}
	if len(order) == 0 {
		return results, nil
	}

	questions, err := s.questions.QuestionsByIDs(ctx, order)
	if err != nil {
		return domain.AttemptResults{}, err
	}
	byID := make(map[string]domain.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	choices, err := s.choices.ChoicesForQuestions(ctx, order)
	if err != nil {
		return domain.AttemptResults{}, err
	}
	choicesByQuestion := make(map[string][]domain.Choice, len(order))
	for _, c := range choices {
		choicesByQuestion[c.QuestionID] = append(choicesByQuestion[c.QuestionID], c)
	}

	for _, qid := range order {
		q, ok := byID[qid]
		if !ok {
			continue
		}
		current := choicesByQuestion[qid]
		if !s.policy.missed(selected[qid], recordedCorrect[qid], current) {
			continue
		}
		results.Incorrect = append(results.Incorrect, domain.MissedQuestion{
			QuestionID:     q.ID,
			Prompt:         q.Prompt,
			CorrectChoices: correctChoices(current),
		})
	}
	return results, nil
}

// Leaderboard returns the best attempts. limit is clamped to 1..MaxLeaderboardLimit.
func (s *QuizService) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	attempts, err := s.attempts.TopAttempts(ctx, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.LeaderboardEntry, 0, len(attempts))
	for _, a := range attempts {
		entries = append(entries, domain.LeaderboardEntry{
			ID:         a.ID,
			PlayerName: a.PlayerName,
			Score:      a.Score,
			Total:      a.Total,
			CreatedAt:  a.CreatedAt,
		})
	}
	return entries, nil
}

// LeaderboardSnapshot wraps the default-sized leaderboard for live subscribers.
func (s *QuizService) LeaderboardSnapshot(ctx context.Context) (domain.Leaderboard, error) {
	entries, err := s.Leaderboard(ctx, DefaultLeaderboardLimit)
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return domain.Leaderboard{Entries: entries, UpdatedAt: s.now().UTC()}, nil
}

// Subscribe returns live leaderboard updates. The caller must invoke cancel.
func (s *QuizService) Subscribe() (<-chan domain.Leaderboard, func(), error) {
	if s.hub == nil {
		return nil, nil, domain.NotFound("live leaderboard is disabled")
	}
	ch, cancel := s.hub.Subscribe()
	return ch, cancel, nil
}

func (s *QuizService) publishLeaderboard(ctx context.Context) {
	if s.hub == nil || !s.hub.HasSubscribers() {
		return
	}
	lb, err := s.LeaderboardSnapshot(ctx)
	if err != nil {
		s.log.Warn("leaderboard refresh failed", "error", err)
		return
	}
	s.hub.Broadcast(lb)
}

// parseID trims raw and requires a UUID, returning its canonical form.
func parseID(field, raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", domain.Invalid(field + " is required")
	}
	id, err := uuid.Parse(trimmed)
	if err != nil {
		return "", domain.Invalid(field + " must be a valid id")
	}
	return id.String(), nil
}
