package redis

import (
	"context"
	"sync"
	"testing"
	"time"

	"quizdesk/internal/domain"
	"quizdesk/internal/infra/memory"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestChoiceCacheCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingSource{store: seededStore(t)}
	cache := NewChoiceCache(newClient(mr), source, time.Minute)

	choices, err := cache.ChoicesForQuestions(context.Background(), []string{"q1"})
	if err != nil {
		t.Fatalf("choices: %v", err)
	}
	if len(choices) != 2 {
		t.Fatalf("expected 2 choices, got %d", len(choices))
	}
	if source.calls != 1 {
		t.Fatalf("expected source called once, got %d", source.calls)
	}
	if !mr.Exists("quiz:question:q1:choices") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("quiz:question:q1:choices"); ttl < time.Minute || ttl > time.Minute+6*time.Second {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	// Second call should hit cache, source not incremented.
	again, err := cache.ChoicesForQuestions(context.Background(), []string{"q1"})
	if err != nil {
		t.Fatalf("choices 2: %v", err)
	}
	if source.calls != 1 {
		t.Fatalf("expected cache hit, source calls=%d", source.calls)
	}
	if len(again) != 2 || again[1].IsCorrect != choices[1].IsCorrect {
		t.Fatalf("cached choices differ: %+v vs %+v", again, choices)
	}
}

func TestChoiceCacheInvalidateDeletesKey(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := seededStore(t)
	source := &countingSource{store: store}
	cache := NewChoiceCache(newClient(mr), source, time.Minute)
	ctx := context.Background()

	if _, err := cache.ChoicesForQuestions(ctx, []string{"q1", "q2"}); err != nil {
		t.Fatalf("choices: %v", err)
	}
	if err := cache.Invalidate(ctx, "q1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if mr.Exists("quiz:question:q1:choices") {
		t.Fatalf("expected key removed")
	}
	if !mr.Exists("quiz:question:q2:choices") {
		t.Fatalf("expected other question to stay cached")
	}

	if _, err := cache.ChoicesForQuestions(ctx, []string{"q1", "q2"}); err != nil {
		t.Fatalf("choices: %v", err)
	}
	if source.calls != 2 {
		t.Fatalf("expected one reload, source calls=%d", source.calls)
	}
}

func TestChoiceCacheFallsBackWhenRedisIsDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	client := newClient(mr)
	mr.Close()

	cache := NewChoiceCache(client, &countingSource{store: seededStore(t)}, time.Minute)
	choices, err := cache.ChoicesForQuestions(context.Background(), []string{"q1"})
	if err != nil {
		t.Fatalf("expected store fallback, got %v", err)
	}
	if len(choices) != 2 {
		t.Fatalf("expected 2 choices, got %d", len(choices))
	}
}

func TestChoiceCacheFillDoesNotOutliveInvalidate(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := seededStore(t)
	source := newGatedSource(store)
	client := newClient(mr)
	cache := NewChoiceCache(client, source, time.Hour)

	done := make(chan error, 1)
	go func() {
		_, err := cache.ChoicesForQuestions(ctx, []string{"q1"})
		done <- err
	}()

	// The fill has read the old correctness and is about to write it back.
	<-source.loaded
	yes := true
	if _, err := store.UpdateChoice(ctx, "o1", domain.ChoicePatch{IsCorrect: &yes}); err != nil {
		t.Fatalf("update choice: %v", err)
	}
	if err := cache.Invalidate(ctx, "q1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	close(source.release)
	if err := <-done; err != nil {
		t.Fatalf("choices: %v", err)
	}

	if mr.Exists("quiz:question:q1:choices") {
		t.Fatalf("fill started before invalidate must not write back")
	}
	fresh := NewChoiceCache(client, &countingSource{store: store}, time.Hour)
	choices, err := fresh.ChoicesForQuestions(ctx, []string{"q1"})
	if err != nil {
		t.Fatalf("choices: %v", err)
	}
	for _, c := range choices {
		if c.ID == "o1" && !c.IsCorrect {
			t.Fatalf("stale correctness served after invalidate")
		}
	}
	if !mr.Exists("quiz:question:q1:choices") {
		t.Fatalf("expected the next fill to be cached")
	}
}

func TestChoiceCacheDisabledPassesThrough(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := &countingSource{store: seededStore(t)}
	cache := NewChoiceCache(newClient(mr), source, 0)

	for i := 0; i < 2; i++ {
		if _, err := cache.ChoicesForQuestions(context.Background(), []string{"q1"}); err != nil {
			t.Fatalf("choices: %v", err)
		}
	}
	if source.calls != 2 {
		t.Fatalf("expected every call to hit the source, got %d", source.calls)
	}
	if mr.Exists("quiz:question:q1:choices") {
		t.Fatalf("disabled cache must not write to redis")
	}
}

func TestChoiceCacheFillSurvivesCanceledCaller(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	source := newGatedSource(seededStore(t))
	cache := NewChoiceCache(newClient(mr), source, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := cache.ChoicesForQuestions(ctx, []string{"q1"})
		done <- err
	}()

	<-source.loaded
	cancel()
	close(source.release)
	if err := <-done; err != nil {
		t.Fatalf("shared fill failed with the caller's context: %v", err)
	}
	if !mr.Exists("quiz:question:q1:choices") {
		t.Fatalf("expected the fill to be written back")
	}
}

// gatedSource blocks after loading until release is closed, then reports the
// context error the fill observed.
type gatedSource struct {
	store   *memory.Store
	loaded  chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedSource(store *memory.Store) *gatedSource {
	return &gatedSource{store: store, loaded: make(chan struct{}), release: make(chan struct{})}
}

func (s *gatedSource) ChoicesForQuestions(ctx context.Context, ids []string) ([]domain.Choice, error) {
	choices, err := s.store.ChoicesForQuestions(ctx, ids)
	s.once.Do(func() { close(s.loaded) })
	<-s.release
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	return choices, err
}

type countingSource struct {
	store *memory.Store
	mu    sync.Mutex
	calls int
}

func (s *countingSource) ChoicesForQuestions(ctx context.Context, ids []string) ([]domain.Choice, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.store.ChoicesForQuestions(ctx, ids)
}

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	for _, q := range []domain.Question{
		{ID: "q1", Prompt: "What is 2 + 2?", CreatedAt: time.Now()},
		{ID: "q2", Prompt: "Capital of France?", CreatedAt: time.Now()},
	} {
		if err := store.CreateQuestion(ctx, q); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
	for _, c := range []domain.Choice{
		{ID: "o1", QuestionID: "q1", Label: "3"},
		{ID: "o2", QuestionID: "q1", Label: "4", IsCorrect: true},
		{ID: "o3", QuestionID: "q2", Label: "Paris", IsCorrect: true},
	} {
		if err := store.CreateChoice(ctx, c); err != nil {
			t.Fatalf("create choice: %v", err)
		}
	}
	return store
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
