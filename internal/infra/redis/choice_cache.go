package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// fillTimeout bounds a shared fill once it no longer follows the caller's context.
const fillTimeout = 5 * time.Second

// setIfGeneration writes KEYS[1] only while KEYS[2] still holds the generation
// the fill started with (a missing key counts as "0").
var setIfGeneration = redis.NewScript(`
local gen = redis.call('GET', KEYS[2])
if not gen then gen = '0' end
if gen ~= ARGV[1] then return 0 end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// ChoiceCache caches each question's choices in Redis and falls back to the
// content store on a miss.
// Choices are stored as a JSON array: SET quiz:question:{questionID}:choices [...]
// Invalidate bumps quiz:question:{questionID}:choices:gen so that fills started
// before it do not write back.
type ChoiceCache struct {
	client *redis.Client
	source app.ChoiceSource
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewChoiceCache wraps source. A non-positive ttl disables caching.
func NewChoiceCache(client *redis.Client, source app.ChoiceSource, ttl time.Duration) *ChoiceCache {
	return &ChoiceCache{
		client: client,
		source: source,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ChoiceCache) ChoicesForQuestions(ctx context.Context, questionIDs []string) ([]domain.Choice, error) {
	if c.ttl <= 0 {
		return c.source.ChoicesForQuestions(ctx, questionIDs)
	}
	ids := unique(questionIDs)
	if len(ids) == 0 {
		return []domain.Choice{}, nil
	}

	hits, misses := c.lookup(ctx, ids)
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
	for _, qid := range ids {
		out = append(out, hits[qid]...)
	}
	return out, nil
}

// Invalidate deletes the cached choices of one question and bumps its generation.
func (c *ChoiceCache) Invalidate(ctx context.Context, questionID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, c.genKey(questionID))
		pipe.Del(ctx, c.key(questionID))
		return nil
	})
	return err
}

// lookup treats any Redis failure as a miss so the store stays the source of truth.
func (c *ChoiceCache) lookup(ctx context.Context, ids []string) (map[string][]domain.Choice, []string) {
	hits := make(map[string][]domain.Choice, len(ids))
	keys := make([]string, len(ids))
	for i, qid := range ids {
		keys[i] = c.key(qid)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return hits, append([]string(nil), ids...)
	}

	var misses []string
	for i, qid := range ids {
		raw, ok := values[i].(string)
		if !ok {
			misses = append(misses, qid)
			continue
		}
		var choices []domain.Choice
		if err := json.Unmarshal([]byte(raw), &choices); err != nil {
			misses = append(misses, qid)
			continue
		}
		hits[qid] = choices
	}
	return hits, misses
}

func (c *ChoiceCache) fill(ctx context.Context, ids []string) (map[string][]domain.Choice, error) {
	// Re-check cache in case another goroutine filled it.
	hits, misses := c.lookup(ctx, ids)
	if len(misses) == 0 {
		return hits, nil
	}

	// Read before the source so an Invalidate in between is detected on write-back.
	gens, genErr := c.generations(ctx, misses)

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

	for qid, list := range loaded {
		hits[qid] = list
	}
	if genErr != nil {
		return hits, nil
	}

	pipe := c.client.Pipeline()
	for qid, list := range loaded {
		payload, err := json.Marshal(list)
		if err != nil {
			return nil, err
		}
		setIfGeneration.Eval(ctx, pipe,
			[]string{c.key(qid), c.genKey(qid)},
			gens[qid], string(payload), ttlMillis(c.ttlWithJitter()))
	}
	// best-effort write-back
	_, _ = pipe.Exec(ctx)
	return hits, nil
}

func (c *ChoiceCache) generations(ctx context.Context, ids []string) (map[string]string, error) {
	keys := make([]string, len(ids))
	for i, qid := range ids {
		keys[i] = c.genKey(qid)
	}
	values, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	gens := make(map[string]string, len(ids))
	for i, qid := range ids {
		gen, ok := values[i].(string)
		if !ok {
			gen = "0"
		}
		gens[qid] = gen
	}
	return gens, nil
}

func (c *ChoiceCache) key(questionID string) string {
	return "quiz:question:" + questionID + ":choices"
}

func (c *ChoiceCache) genKey(questionID string) string {
	return c.key(questionID) + ":gen"
}

func (c *ChoiceCache) ttlWithJitter() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func ttlMillis(d time.Duration) int64 {
	if ms := d.Milliseconds(); ms > 0 {
		return ms
	}
	return 1
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
