package app

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"quizdesk/internal/domain"
)

// Shuffler permutes n elements in place. Implementations must be safe for concurrent use.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewShuffler returns a Fisher-Yates shuffler seeded with seed.
func NewShuffler(seed int64) Shuffler {
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

func newTimeSeededShuffler() Shuffler {
	return NewShuffler(time.Now().UnixNano())
}

func (r *lockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rnd.Shuffle(n, swap)
}

// selectQuestions builds the candidate pool, orders it per settings and truncates it.
func selectQuestions(ctx context.Context, repo QuestionRepository, shuffler Shuffler, settings domain.Settings, groupIDs []string) ([]domain.Question, error) {
	var (
		candidateIDs []string
		err          error
	)
	if len(groupIDs) > 0 {
		candidateIDs, err = repo.QuestionIDsInGroups(ctx, groupIDs)
	} else {
		candidateIDs, err = repo.QuestionIDs(ctx)
	}
	if err != nil {
		return nil, err
	}
	candidateIDs = dedupe(candidateIDs)
	if len(candidateIDs) == 0 {
		return nil, domain.ErrNoQuestionsAvailable
	}

	questions, err := repo.QuestionsByIDs(ctx, candidateIDs)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, domain.ErrNoQuestionsAvailable
	}

	if settings.Randomize {
		shuffler.Shuffle(len(questions), func(i, j int) {
			questions[i], questions[j] = questions[j], questions[i]
		})
	} else {
		sortByCreatedAt(questions)
	}

	n := settings.NumQuestions
	if n <= 0 {
		n = domain.DefaultNumQuestions
	}
	if n < len(questions) {
		questions = questions[:n]
	}
	return questions, nil
}

func sortByCreatedAt(questions []domain.Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		if !questions[i].CreatedAt.Equal(questions[j].CreatedAt) {
			return questions[i].CreatedAt.Before(questions[j].CreatedAt)
		}
		return questions[i].ID < questions[j].ID
	})
}

// sanitizeChoices groups choices by question, shuffles each list independently and
// drops correctness flags.
func sanitizeChoices(questions []domain.Question, choices []domain.Choice, shuffler Shuffler) []domain.QuizQuestion {
	byQuestion := make(map[string][]domain.PublicChoice, len(questions))
	for _, c := range choices {
		byQuestion[c.QuestionID] = append(byQuestion[c.QuestionID], domain.PublicChoice{ID: c.ID, Label: c.Label})
	}

	out := make([]domain.QuizQuestion, 0, len(questions))
	for _, q := range questions {
		list := byQuestion[q.ID]
		if list == nil {
			list = []domain.PublicChoice{}
		}
		shuffler.Shuffle(len(list), func(i, j int) {
			list[i], list[j] = list[j], list[i]
		})
		out = append(out, domain.QuizQuestion{ID: q.ID, Prompt: q.Prompt, Choices: list})
	}
	return out
}

func dedupe(ids []string) []string {
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

func questionIDs(questions []domain.Question) []string {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return ids
}
