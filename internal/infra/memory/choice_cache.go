package memory

import (
	"context"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"

	"golang.org/x/sync/singleflight"
)

// fillTimeout bounds a shared fill once it no longer follows the caller's context.
const fillTimeout = 5 * time.Second

// ChoiceCache caches each question's choices with a TTL to avoid repeated DB hits.
type ChoiceCache struct {
	source app.ChoiceSource
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu         sync.RWMutex
	rnd        *rand.Rand
	cache      map[string]cachedChoices
	generation map[string]uint64
}

type cachedChoices struct {
	choices   []domain.Choice
	expiresAt time.Time
}

// NewChoiceCache wraps source. A non-positive ttl disables caching.
func NewChoiceCache(source app.ChoiceSource, ttl time.Duration) *ChoiceCache {
	return &ChoiceCache{
		source:     source,
		ttl:        ttl,
		clock:      time.Now,
		rnd:        rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:      make(map[string]cachedChoices),
		generation: make(map[string]uint64),
	}
}

func (c *ChoiceCache) ChoicesForQuestions(ctx context.Context, questionIDs []string) ([]domain.Choice, error) {
	if c.ttl <= 0 {
		return c.source.ChoicesForQuestions(ctx, questionIDs)
	}

	hits, misses := c.lookup(questionIDs)
	if len(misses) > 0 {
		sort.Strings(misses)
		loaded, err, _ := c.sf.Do(strings.Join(misses, ","), func() (interface{}, error) {
			fillCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fillTimeout)
			defer cancel()
			return c.fill(fillCtx, misses)
		})
		if err != nil {
			return nil, err
		}
		for qid, choices := range loaded.(map[string][]domain.Choice) {
			hits[qid] = choices
		}
	}

	out := make([]domain.Choice, 0)
	seen := make(map[string]struct{}, len(questionIDs))
	for _, qid := range questionIDs {
		if _, dup := seen[qid]; dup {
			continue
		}
		seen[qid] = struct{}{}
		out = append(out, hits[qid]...)
	}
	return out, nil
}

// Invalidate drops the cached choices of one question. A fill that started
// before the call will not store its result.
func (c *ChoiceCache) Invalidate(_ context.Context, questionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, questionID)
	c.generation[questionID]++
	return nil
}

func (c *ChoiceCache) lookup(questionIDs []string) (map[string][]domain.Choice, []string) {
	now := c.clock()
	hits := make(map[string][]domain.Choice, len(questionIDs))
	var misses []string

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, qid := range questionIDs {
		if _, done := hits[qid]; done {
			continue
		}
		if entry, ok := c.cache[qid]; ok && entry.expiresAt.After(now) {
			hits[qid] = entry.choices
			continue
		}
		if !contains(misses, qid) {
			misses = append(misses, qid)
		}
	}
	return hits, misses
}

func (c *ChoiceCache) fill(ctx context.Context, questionIDs []string) (map[string][]domain.Choice, error) {
	// Re-check in case another goroutine filled some of them.
	hits, misses := c.lookup(questionIDs)
	if len(misses) == 0 {
		return hits, nil
	}

	c.mu.RLock()
	gens := make(map[string]uint64, len(misses))
	for _, qid := range misses {
		gens[qid] = c.generation[qid]
	}
	c.mu.RUnlock()

	choices, err := c.source.ChoicesForQuestions(ctx, misses)
	if err != nil {
		return nil, err
	}
	loaded := make(map[string][]domain.Choice, len(misses))
	for _, qid := range misses {
		loaded[qid] = []domain.Choice{}
	}
	for _, ch := range choices {
		loaded[ch.QuestionID] = append(loaded[ch.QuestionID], ch)
	}

	now := c.clock()
	c.mu.Lock()
	for qid, list := range loaded {
		if c.generation[qid] != gens[qid] {
			continue
		}
		c.cache[qid] = cachedChoices{choices: list, expiresAt: now.Add(c.ttlWithJitterLocked())}
	}
	c.mu.Unlock()

	for qid, list := range loaded {
		hits[qid] = list
	}
	return hits, nil
}

func (c *ChoiceCache) ttlWithJitterLocked() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
