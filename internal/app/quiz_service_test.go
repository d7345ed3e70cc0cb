package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
	"quizdesk/internal/infra/memory"

	"github.com/google/uuid"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	store     *memory.Store
	cache     *memory.ChoiceCache
	settings  *app.SettingsService
	catalog   *app.CatalogService
	questions []domain.Question
	// choices[i] lists the choices of questions[i]; the first one is correct.
	choices [][]domain.Choice
}

// newHarness seeds n questions created one second apart, each with a correct
// and a wrong choice.
func newHarness(t *testing.T, n int) *harness {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	h := &harness{
		store:    store,
		cache:    memory.NewChoiceCache(store, time.Minute),
		settings: app.NewSettingsService(store),
	}
	h.catalog = app.NewCatalogService(store, store, store, h.cache, nil)
	for i := 0; i < n; i++ {
		q := domain.Question{ID: uuid.NewString(), Prompt: "question", CreatedAt: baseTime.Add(time.Duration(i) * time.Second)}
		if err := store.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("create question: %v", err)
		}
		list := []domain.Choice{
			{ID: uuid.NewString(), QuestionID: q.ID, Label: "right", IsCorrect: true},
			{ID: uuid.NewString(), QuestionID: q.ID, Label: "wrong"},
		}
		for _, c := range list {
			if err := store.CreateChoice(ctx, c); err != nil {
				t.Fatalf("create choice: %v", err)
			}
		}
		h.questions = append(h.questions, q)
		h.choices = append(h.choices, list)
	}
	return h
}

func (h *harness) service(opts ...app.Option) *app.QuizService {
	return app.NewQuizService(h.settings, h.store, h.cache, h.store, opts...)
}

func (h *harness) configure(t *testing.T, num int, randomize bool) {
	t.Helper()
	if _, err := h.settings.Update(context.Background(), domain.SettingsPatch{NumQuestions: &num, Randomize: &randomize}); err != nil {
		t.Fatalf("update settings: %v", err)
	}
}

func (h *harness) indexOf(questionID string) int {
	for i, q := range h.questions {
		if q.ID == questionID {
			return i
		}
	}
	return -1
}

func TestStartReturnsConfiguredNumberOfQuestions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 5)
	service := h.service()

	h.configure(t, 3, true)
	started, err := service.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(started.Questions) != 3 || started.Total != 3 {
		t.Fatalf("expected 3 questions, got %d (total %d)", len(started.Questions), started.Total)
	}
	seen := map[string]bool{}
	for _, q := range started.Questions {
		if seen[q.ID] {
			t.Fatalf("question %s served twice", q.ID)
		}
		seen[q.ID] = true
		if len(q.Choices) != 2 {
			t.Fatalf("expected 2 choices, got %d", len(q.Choices))
		}
	}

	// More configured than available: the quiz is just shorter.
	h.configure(t, 10, true)
	started, err = service.Start(ctx, domain.StartRequest{PlayerName: "Bob"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Total != 5 {
		t.Fatalf("expected all 5 questions, got %d", started.Total)
	}

	attempt, err := h.store.GetAttempt(ctx, started.AttemptID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if attempt.Score != 0 || attempt.Total != 5 || attempt.PlayerName != "Bob" {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
}

func TestStartWithoutQuestionsCreatesNoAttempt(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	service := h.service()

	_, err := service.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
	if !errors.Is(err, domain.ErrNoQuestionsAvailable) {
		t.Fatalf("expected no questions error, got %v", err)
	}
	top, _ := h.store.TopAttempts(ctx, 10)
	if len(top) != 0 {
		t.Fatalf("expected no attempt, got %d", len(top))
	}

	// An unknown group yields an empty pool too.
	h = newHarness(t, 2)
	_, err = h.service().Start(ctx, domain.StartRequest{PlayerName: "Alice", GroupIDs: []string{uuid.NewString()}})
	if !errors.Is(err, domain.ErrNoQuestionsAvailable) {
		t.Fatalf("expected no questions error for empty group, got %v", err)
	}
}

func TestStartSequentialOrdersByCreation(t *testing.T) {
	h := newHarness(t, 4)
	h.configure(t, 3, false)

	started, err := h.service().Start(context.Background(), domain.StartRequest{PlayerName: "Alice"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	for i, q := range started.Questions {
		if q.ID != h.questions[i].ID {
			t.Fatalf("position %d: expected %s, got %s", i, h.questions[i].ID, q.ID)
		}
	}
}

func TestStartRandomizesOrder(t *testing.T) {
	h := newHarness(t, 8)
	h.configure(t, 8, true)
	service := h.service(app.WithShuffler(app.NewShuffler(42)))

	orders := map[string]struct{}{}
	for i := 0; i < 10; i++ {
		started, err := service.Start(context.Background(), domain.StartRequest{PlayerName: "Alice"})
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		ids := make([]string, len(started.Questions))
		for j, q := range started.Questions {
			ids[j] = q.ID
		}
		orders[strings.Join(ids, ",")] = struct{}{}
	}
	if len(orders) < 2 {
		t.Fatalf("expected varying question order across attempts")
	}
}

func TestStartFiltersByGroup(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 4)
	group, err := h.catalog.CreateGroup(ctx, "picked")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	for _, q := range h.questions[:2] {
		if err := h.catalog.LinkGroup(ctx, q.ID, group.ID); err != nil {
			t.Fatalf("link: %v", err)
		}
	}

	started, err := h.service().Start(ctx, domain.StartRequest{PlayerName: "Alice", GroupIDs: []string{group.ID, group.ID}})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Total != 2 {
		t.Fatalf("expected 2 grouped questions, got %d", started.Total)
	}
	for _, q := range started.Questions {
		if idx := h.indexOf(q.ID); idx != 0 && idx != 1 {
			t.Fatalf("question %s is not in the group", q.ID)
		}
	}
}

func TestStartHidesCorrectness(t *testing.T) {
	h := newHarness(t, 3)
	started, err := h.service().Start(context.Background(), domain.StartRequest{PlayerName: "Alice"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	raw, err := json.Marshal(started)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "correct") {
		t.Fatalf("start payload leaks correctness: %s", raw)
	}
}

func TestStartValidation(t *testing.T) {
	h := newHarness(t, 1)
	service := h.service()
	cases := []domain.StartRequest{
		{PlayerName: ""},
		{PlayerName: "   "},
		{PlayerName: strings.Repeat("x", domain.MaxPlayerNameLength+1)},
		{PlayerName: "Alice", GroupIDs: []string{"not-a-uuid"}},
	}
	for _, req := range cases {
		if _, err := service.Start(context.Background(), req); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}
}

func TestSubmitGradesExactSet(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	q, err := h.catalog.CreateQuestion(ctx, "Pick the even numbers")
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	a, _ := h.catalog.CreateChoice(ctx, q.ID, "2", true)
	b, _ := h.catalog.CreateChoice(ctx, q.ID, "4", true)
	c, _ := h.catalog.CreateChoice(ctx, q.ID, "5", false)
	service := h.service()

	cases := []struct {
		selected []string
		correct  bool
	}{
		{[]string{a.ID, b.ID}, true},
		{[]string{b.ID, a.ID, a.ID}, true},
		{[]string{a.ID}, false},
		{[]string{a.ID, b.ID, c.ID}, false},
	}
	for _, tc := range cases {
		started, err := service.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		res, err := service.SubmitAnswer(ctx, domain.AnswerSubmission{
			AttemptID:         started.AttemptID,
			QuestionID:        q.ID,
			SelectedChoiceIDs: tc.selected,
		})
		if err != nil {
			t.Fatalf("submit %v: %v", tc.selected, err)
		}
		if res.Correct != tc.correct {
			t.Fatalf("selection %v: expected correct=%v", tc.selected, tc.correct)
		}
		wantScore := 0
		if tc.correct {
			wantScore = 1
		}
		if res.Score != wantScore {
			t.Fatalf("selection %v: expected score %d, got %d", tc.selected, wantScore, res.Score)
		}
	}

	started, _ := service.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
	_, err = service.SubmitAnswer(ctx, domain.AnswerSubmission{
		AttemptID:         started.AttemptID,
		QuestionID:        q.ID,
		SelectedChoiceIDs: []string{},
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for empty selection, got %v", err)
	}
	answered, _ := h.store.AnswerExists(ctx, started.AttemptID, q.ID)
	if answered {
		t.Fatalf("rejected submission must not record an answer")
	}
}

func TestSubmitRejectsDuplicateAnswer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 2)
	service := h.service()

	started, err := service.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	q := started.Questions[0]
	right := h.choices[h.indexOf(q.ID)][0]

	sub := domain.AnswerSubmission{AttemptID: started.AttemptID, QuestionID: q.ID, SelectedChoiceIDs: []string{right.ID}}
	res, err := service.SubmitAnswer(ctx, sub)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !res.Correct || res.Score != 1 {
		t.Fatalf("unexpected result %+v", res)
	}

	if _, err := service.SubmitAnswer(ctx, sub); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict on duplicate, got %v", err)
	}
	attempt, _ := h.store.GetAttempt(ctx, started.AttemptID)
	if attempt.Score != 1 {
		t.Fatalf("duplicate must not change score, got %d", attempt.Score)
	}
}

func TestConcurrentDuplicateSubmissionsRecordOnce(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	service := h.service()

	started, err := service.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	sub := domain.AnswerSubmission{
		AttemptID:         started.AttemptID,
		QuestionID:        h.questions[0].ID,
		SelectedChoiceIDs: []string{h.choices[0][0].ID},
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.SubmitAnswer(ctx, sub)
			if err != nil && !errors.Is(err, domain.ErrConflict) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one accepted submission, got %d", successes)
	}
	answers, _ := h.store.ListAnswers(ctx, started.AttemptID)
	if len(answers) != 1 {
		t.Fatalf("expected one recorded answer, got %d", len(answers))
	}
	attempt, _ := h.store.GetAttempt(ctx, started.AttemptID)
	if attempt.Score != 1 {
		t.Fatalf("expected score 1, got %d", attempt.Score)
	}
}

func TestSubmitRejectsQuestionOutsideAttempt(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 3)
	h.configure(t, 1, false)
	service := h.service()

	started, err := service.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	outside := h.questions[2]
	_, err = service.SubmitAnswer(ctx, domain.AnswerSubmission{
		AttemptID:         started.AttemptID,
		QuestionID:        outside.ID,
		SelectedChoiceIDs: []string{h.choices[2][0].ID},
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	attempt, _ := h.store.GetAttempt(ctx, started.AttemptID)
	if attempt.Score != 0 {
		t.Fatalf("score must stay 0, got %d", attempt.Score)
	}
}

func TestSubmitValidation(t *testing.T) {
	h := newHarness(t, 1)
	service := h.service()
	id := uuid.NewString()
	cases := []domain.AnswerSubmission{
		{QuestionID: id, SelectedChoiceIDs: []string{id}},
		{AttemptID: id, SelectedChoiceIDs: []string{id}},
		{AttemptID: "nope", QuestionID: id, SelectedChoiceIDs: []string{id}},
		{AttemptID: id, QuestionID: id, SelectedChoiceIDs: []string{"nope"}},
		{AttemptID: id, QuestionID: id},
	}
	for _, sub := range cases {
		if _, err := service.SubmitAnswer(context.Background(), sub); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", sub, err)
		}
	}
}

func TestScoreIsMonotonicAndBounded(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 4)
	service := h.service()

	started, err := service.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	last := 0
	for i, q := range started.Questions {
		idx := h.indexOf(q.ID)
		pick := h.choices[idx][i%2]
		res, err := service.SubmitAnswer(ctx, domain.AnswerSubmission{
			AttemptID: started.AttemptID, QuestionID: q.ID, SelectedChoiceIDs: []string{pick.ID},
		})
		if err != nil {
			t.Fatalf("submit: %v", err)
		}
		if res.Score < last || res.Score > started.Total {
			t.Fatalf("score went from %d to %d (total %d)", last, res.Score, started.Total)
		}
		last = res.Score
	}
	if last != 2 {
		t.Fatalf("expected 2 correct answers, got %d", last)
	}
}

func TestResultsListMissedQuestions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 3)
	h.configure(t, 3, false)
	service := h.service()

	started, err := service.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	// Right, wrong, wrong.
	for i, q := range started.Questions {
		pick := h.choices[i][1]
		if i == 0 {
			pick = h.choices[i][0]
		}
		if _, err := service.SubmitAnswer(ctx, domain.AnswerSubmission{
			AttemptID: started.AttemptID, QuestionID: q.ID, SelectedChoiceIDs: []string{pick.ID},
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}

	results, err := service.Results(ctx, started.AttemptID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.RunID != started.AttemptID {
		t.Fatalf("unexpected run id %s", results.RunID)
	}
	if len(results.Incorrect) != 2 {
		t.Fatalf("expected 2 missed questions, got %+v", results.Incorrect)
	}
	for i, missed := range results.Incorrect {
		want := h.questions[i+1]
		if missed.QuestionID != want.ID {
			t.Fatalf("missed[%d]: expected %s, got %s", i, want.ID, missed.QuestionID)
		}
		if len(missed.CorrectChoices) != 1 || missed.CorrectChoices[0].ID != h.choices[i+1][0].ID {
			t.Fatalf("missed[%d]: unexpected correct choices %+v", i, missed.CorrectChoices)
		}
	}
}

func TestResultsPerfectAndUnansweredAreEmpty(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 2)
	service := h.service()

	started, err := service.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	results, err := service.Results(ctx, started.AttemptID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.Incorrect == nil || len(results.Incorrect) != 0 {
		t.Fatalf("expected empty list before answering, got %#v", results.Incorrect)
	}

	for _, q := range started.Questions {
		right := h.choices[h.indexOf(q.ID)][0]
		if _, err := service.SubmitAnswer(ctx, domain.AnswerSubmission{
			AttemptID: started.AttemptID, QuestionID: q.ID, SelectedChoiceIDs: []string{right.ID},
		}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	results, err = service.Results(ctx, started.AttemptID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(results.Incorrect) != 0 {
		t.Fatalf("expected no missed questions on a perfect run, got %+v", results.Incorrect)
	}

	if _, err := service.Results(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown attempt, got %v", err)
	}
	if _, err := service.Results(ctx, "garbage"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for malformed id, got %v", err)
	}
}

func TestResultsPolicyAfterCorrectnessEdit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	current := h.service()
	recorded := h.service(app.WithResultsPolicy(app.ResultsAsRecorded))

	started, err := current.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	q := h.questions[0]
	right, wrong := h.choices[0][0], h.choices[0][1]
	if _, err := current.SubmitAnswer(ctx, domain.AnswerSubmission{
		AttemptID: started.AttemptID, QuestionID: q.ID, SelectedChoiceIDs: []string{right.ID},
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// The admin swaps which choice is correct after the answer was graded.
	no, yes := false, true
	if _, err := h.catalog.UpdateChoice(ctx, right.ID, domain.ChoicePatch{IsCorrect: &no}); err != nil {
		t.Fatalf("update choice: %v", err)
	}
	if _, err := h.catalog.UpdateChoice(ctx, wrong.ID, domain.ChoicePatch{IsCorrect: &yes}); err != nil {
		t.Fatalf("update choice: %v", err)
	}

	res, err := current.Results(ctx, started.AttemptID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(res.Incorrect) != 1 || res.Incorrect[0].CorrectChoices[0].ID != wrong.ID {
		t.Fatalf("current policy: expected the question to be missed now, got %+v", res.Incorrect)
	}

	res, err = recorded.Results(ctx, started.AttemptID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(res.Incorrect) != 0 {
		t.Fatalf("recorded policy: expected the original verdict, got %+v", res.Incorrect)
	}
}

func TestResultsSkipUnconfiguredQuestions(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 0)
	q, _ := h.catalog.CreateQuestion(ctx, "Nothing is right")
	only, _ := h.catalog.CreateChoice(ctx, q.ID, "maybe", false)
	service := h.service()

	started, err := service.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	res, err := service.SubmitAnswer(ctx, domain.AnswerSubmission{
		AttemptID: started.AttemptID, QuestionID: q.ID, SelectedChoiceIDs: []string{only.ID},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Correct {
		t.Fatalf("a question without correct choices is never answered correctly")
	}
	results, _ := service.Results(ctx, started.AttemptID)
	if len(results.Incorrect) != 0 {
		t.Fatalf("unconfigured question must not be listed, got %+v", results.Incorrect)
	}
}

func TestLeaderboardOrderingAndLimit(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 2)
	now := baseTime
	service := h.service(app.WithClock(func() time.Time { return now }))

	play := func(name string, correct int) string {
		started, err := service.Start(ctx, domain.StartRequest{PlayerName: name})
		if err != nil {
			t.Fatalf("start: %v", err)
		}
		for i, q := range started.Questions {
			pick := h.choices[h.indexOf(q.ID)][1]
			if i < correct {
				pick = h.choices[h.indexOf(q.ID)][0]
			}
			if _, err := service.SubmitAnswer(ctx, domain.AnswerSubmission{
				AttemptID: started.AttemptID, QuestionID: q.ID, SelectedChoiceIDs: []string{pick.ID},
			}); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
		now = now.Add(time.Minute)
		return started.AttemptID
	}

	early := play("Early", 2)
	low := play("Low", 0)
	late := play("Late", 2)

	entries, err := service.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	want := []string{early, late, low}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, id := range want {
		if entries[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s (%s)", i, id, entries[i].ID, entries[i].PlayerName)
		}
	}

	entries, _ = service.Leaderboard(ctx, 0)
	if len(entries) != 1 {
		t.Fatalf("limit below 1 clamps to 1, got %d", len(entries))
	}
	entries, _ = service.Leaderboard(ctx, 1000)
	if len(entries) != 3 {
		t.Fatalf("expected all entries under the max limit, got %d", len(entries))
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	service := h.service(app.WithLeaderboardHub(app.NewLeaderboardHub()))

	ch, cancel, err := service.Subscribe()
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	started, err := service.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	update := <-ch
	if len(update.Entries) != 1 || update.Entries[0].Score != 0 {
		t.Fatalf("expected new attempt with score 0, got %+v", update.Entries)
	}

	if _, err := service.SubmitAnswer(ctx, domain.AnswerSubmission{
		AttemptID:         started.AttemptID,
		QuestionID:        h.questions[0].ID,
		SelectedChoiceIDs: []string{h.choices[0][0].ID},
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	update = <-ch
	if len(update.Entries) != 1 || update.Entries[0].Score != 1 {
		t.Fatalf("expected updated score 1, got %+v", update.Entries)
	}
}

func TestSubscribeWithoutHub(t *testing.T) {
	h := newHarness(t, 1)
	if _, _, err := h.service().Subscribe(); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found without hub, got %v", err)
	}
}

type countingObserver struct {
	mu       sync.Mutex
	started  int
	correct  int
	answered int
}

func (o *countingObserver) AttemptStarted(int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *countingObserver) AnswerGraded(correct bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.answered++
	if correct {
		o.correct++
	}
}

func TestObserverSeesQuizEvents(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, 1)
	obs := &countingObserver{}
	service := h.service(app.WithObserver(obs))

	started, err := service.Start(ctx, domain.StartRequest{PlayerName: "Alice"})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	sub := domain.AnswerSubmission{
		AttemptID: started.AttemptID, QuestionID: h.questions[0].ID, SelectedChoiceIDs: []string{h.choices[0][0].ID},
	}
	_, _ = service.SubmitAnswer(ctx, sub)
	_, _ = service.SubmitAnswer(ctx, sub)

	if obs.started != 1 || obs.answered != 1 || obs.correct != 1 {
		t.Fatalf("unexpected observer counts %+v", obs)
	}
}
