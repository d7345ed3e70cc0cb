package cli

import (
	"context"
	"time"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"

	"github.com/google/uuid"
)

type sampleQuestion struct {
	prompt  string
	group   string
	choices []domain.Choice
}

// seedSampleCatalog fills an empty in-memory store so the service is usable
// without Postgres. Configure a database for real content.
func seedSampleCatalog(ctx context.Context, store app.Store) error {
	samples := []sampleQuestion{
		{
			prompt: "What is 2 + 2?",
			group:  "math",
			choices: []domain.Choice{
				{Label: "3"},
				{Label: "4", IsCorrect: true},
				{Label: "5"},
			},
		},
		{
			prompt: "Which of these are prime numbers?",
			group:  "math",
			choices: []domain.Choice{
				{Label: "2", IsCorrect: true},
				{Label: "9"},
				{Label: "11", IsCorrect: true},
			},
		},
		{
			prompt: "What is the capital of France?",
			group:  "geography",
			choices: []domain.Choice{
				{Label: "Berlin"},
				{Label: "Madrid"},
				{Label: "Paris", IsCorrect: true},
			},
		},
		{
			prompt: "Which of these are oceans?",
			group:  "geography",
			choices: []domain.Choice{
				{Label: "Atlantic", IsCorrect: true},
				{Label: "Caspian"},
				{Label: "Pacific", IsCorrect: true},
			},
		},
	}

	base := time.Now().UTC()
	groups := map[string]string{}
	for i, sample := range samples {
		groupID, ok := groups[sample.group]
		if !ok {
			groupID = uuid.NewString()
			if err := store.CreateGroup(ctx, domain.Group{ID: groupID, Name: sample.group, CreatedAt: base}); err != nil {
				return err
			}
			groups[sample.group] = groupID
		}

		q := domain.Question{ID: uuid.NewString(), Prompt: sample.prompt, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := store.CreateQuestion(ctx, q); err != nil {
			return err
		}
		for _, c := range sample.choices {
			c.ID = uuid.NewString()
			c.QuestionID = q.ID
			if err := store.CreateChoice(ctx, c); err != nil {
				return err
			}
		}
		if err := store.LinkQuestionGroup(ctx, q.ID, groupID); err != nil {
			return err
		}
	}
	return nil
}
