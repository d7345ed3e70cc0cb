package postgres

import (
	"context"
	"errors"

	"quizdesk/internal/domain"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const foreignKeyViolation = "23503"

// Store implements the app repositories on Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping is used by the health check.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Settings

func (s *Store) GetSettings(ctx context.Context) (domain.Settings, error) {
	var st domain.Settings
	err := s.pool.QueryRow(ctx,
		`SELECT num_questions, randomize FROM quiz_settings WHERE id = 1`,
	).Scan(&st.NumQuestions, &st.Randomize)
	if err != nil {
		return domain.Settings{}, translate("load settings", "settings", err)
	}
	return st, nil
}

func (s *Store) EnsureSettings(ctx context.Context, defaults domain.Settings) (domain.Settings, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_settings (id, num_questions, randomize) VALUES (1, $1, $2)
		 ON CONFLICT (id) DO NOTHING`,
		defaults.NumQuestions, defaults.Randomize)
	if err != nil {
		return domain.Settings{}, domain.Storage("ensure settings", err)
	}
	return s.GetSettings(ctx)
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	var st domain.Settings
	err := s.pool.QueryRow(ctx,
		`INSERT INTO quiz_settings (id, num_questions, randomize, updated_at) VALUES (1, $1, $2, now())
		 ON CONFLICT (id) DO UPDATE
		 SET num_questions = EXCLUDED.num_questions, randomize = EXCLUDED.randomize, updated_at = now()
		 RETURNING num_questions, randomize`,
		settings.NumQuestions, settings.Randomize,
	).Scan(&st.NumQuestions, &st.Randomize)
	if err != nil {
		return domain.Settings{}, domain.Storage("save settings", err)
	}
	return st, nil
}

// Questions

func (s *Store) QuestionIDs(ctx context.Context) ([]string, error) {
	return s.queryIDs(ctx, "list question ids",
		`SELECT id FROM questions ORDER BY created_at, id`)
}

func (s *Store) QuestionIDsInGroups(ctx context.Context, groupIDs []string) ([]string, error) {
	return s.queryIDs(ctx, "list question ids by group",
		`SELECT DISTINCT question_id FROM question_groups
		 WHERE group_id = ANY($1::text[]::uuid[])
		 ORDER BY question_id`, groupIDs)
}

func (s *Store) QuestionsByIDs(ctx context.Context, ids []string) ([]domain.Question, error) {
	return s.queryQuestions(ctx, "load questions",
		`SELECT id, prompt, created_at FROM questions
		 WHERE id = ANY($1::text[]::uuid[])
		 ORDER BY created_at, id`, ids)
}

func (s *Store) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	return s.queryQuestions(ctx, "list questions",
		`SELECT id, prompt, created_at FROM questions ORDER BY created_at DESC, id DESC`)
}

func (s *Store) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	var q domain.Question
	err := s.pool.QueryRow(ctx,
		`SELECT id, prompt, created_at FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.Prompt, &q.CreatedAt)
	if err != nil {
		return domain.Question{}, translate("load question", "question", err)
	}
	return q, nil
}

func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO questions (id, prompt, created_at) VALUES ($1, $2, $3)`,
		q.ID, q.Prompt, q.CreatedAt)
	if err != nil {
		return domain.Storage("create question", err)
	}
	return nil
}

func (s *Store) UpdateQuestionPrompt(ctx context.Context, id, prompt string) (domain.Question, error) {
	var q domain.Question
	err := s.pool.QueryRow(ctx,
		`UPDATE questions SET prompt = $2 WHERE id = $1 RETURNING id, prompt, created_at`,
		id, prompt,
	).Scan(&q.ID, &q.Prompt, &q.CreatedAt)
	if err != nil {
		return domain.Question{}, translate("update question", "question", err)
	}
	return q, nil
}

// DeleteQuestion relies on ON DELETE CASCADE for choices, links and answers.
func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete question", "question",
		`DELETE FROM questions WHERE id = $1`, id)
}

// Choices

func (s *Store) ChoicesForQuestions(ctx context.Context, questionIDs []string) ([]domain.Choice, error) {
	return s.queryChoices(ctx, "load choices",
		`SELECT id, question_id, label, is_correct FROM choices
		 WHERE question_id = ANY($1::text[]::uuid[])
		 ORDER BY label, id`, questionIDs)
}

func (s *Store) ListChoices(ctx context.Context, questionID string) ([]domain.Choice, error) {
	return s.queryChoices(ctx, "list choices",
		`SELECT id, question_id, label, is_correct FROM choices
		 WHERE question_id = $1 ORDER BY label, id`, questionID)
}

func (s *Store) GetChoice(ctx context.Context, id string) (domain.Choice, error) {
	var c domain.Choice
	err := s.pool.QueryRow(ctx,
		`SELECT id, question_id, label, is_correct FROM choices WHERE id = $1`, id,
	).Scan(&c.ID, &c.QuestionID, &c.Label, &c.IsCorrect)
	if err != nil {
		return domain.Choice{}, translate("load choice", "choice", err)
	}
	return c, nil
}

func (s *Store) CreateChoice(ctx context.Context, c domain.Choice) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO choices (id, question_id, label, is_correct) VALUES ($1, $2, $3, $4)`,
		c.ID, c.QuestionID, c.Label, c.IsCorrect)
	if err != nil {
		return translate("create choice", "question", err)
	}
	return nil
}

func (s *Store) UpdateChoice(ctx context.Context, id string, patch domain.ChoicePatch) (domain.Choice, error) {
	var c domain.Choice
	err := s.pool.QueryRow(ctx,
		`UPDATE choices
		 SET label = COALESCE($2, label), is_correct = COALESCE($3, is_correct)
		 WHERE id = $1
		 RETURNING id, question_id, label, is_correct`,
		id, patch.Label, patch.IsCorrect,
	).Scan(&c.ID, &c.QuestionID, &c.Label, &c.IsCorrect)
	if err != nil {
		return domain.Choice{}, translate("update choice", "choice", err)
	}
	return c, nil
}

func (s *Store) DeleteChoice(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete choice", "choice",
		`DELETE FROM choices WHERE id = $1`, id)
}

// Groups

func (s *Store) ListGroups(ctx context.Context) ([]domain.Group, error) {
	return s.queryGroups(ctx, "list groups",
		`SELECT id, name, created_at FROM quiz_groups ORDER BY name, id`)
}

func (s *Store) CreateGroup(ctx context.Context, g domain.Group) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_groups (id, name, created_at) VALUES ($1, $2, $3)`,
		g.ID, g.Name, g.CreatedAt)
	if err != nil {
		return domain.Storage("create group", err)
	}
	return nil
}

func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	return s.execOne(ctx, "delete group", "group",
		`DELETE FROM quiz_groups WHERE id = $1`, id)
}

func (s *Store) GroupsForQuestion(ctx context.Context, questionID string) ([]domain.Group, error) {
	return s.queryGroups(ctx, "list question groups",
		`SELECT g.id, g.name, g.created_at
		 FROM quiz_groups g JOIN question_groups qg ON qg.group_id = g.id
		 WHERE qg.question_id = $1
		 ORDER BY g.name, g.id`, questionID)
}

func (s *Store) LinkQuestionGroup(ctx context.Context, questionID, groupID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO question_groups (question_id, group_id) VALUES ($1, $2)
		 ON CONFLICT DO NOTHING`,
		questionID, groupID)
	if err != nil {
		return translate("link question group", "question or group", err)
	}
	return nil
}

func (s *Store) UnlinkQuestionGroup(ctx context.Context, questionID, groupID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM question_groups WHERE question_id = $1 AND group_id = $2`,
		questionID, groupID)
	if err != nil {
		return domain.Storage("unlink question group", err)
	}
	return nil
}

// Attempts

func (s *Store) CreateAttempt(ctx context.Context, attempt domain.Attempt, questionIDs []string) error {
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO attempts (id, player_name, score, total, created_at) VALUES ($1, $2, $3, $4, $5)`,
			attempt.ID, attempt.PlayerName, attempt.Score, attempt.Total, attempt.CreatedAt,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO attempt_questions (attempt_id, question_id, position)
			 SELECT $1, q.id, q.ord - 1
			 FROM unnest($2::text[]::uuid[]) WITH ORDINALITY AS q(id, ord)`,
			attempt.ID, questionIDs)
		return err
	})
	if err != nil {
		return translate("create attempt", "question", err)
	}
	return nil
}

func (s *Store) GetAttempt(ctx context.Context, id string) (domain.Attempt, error) {
	var a domain.Attempt
	err := s.pool.QueryRow(ctx,
		`SELECT id, player_name, score, total, created_at FROM attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.PlayerName, &a.Score, &a.Total, &a.CreatedAt)
	if err != nil {
		return domain.Attempt{}, translate("load attempt", "attempt", err)
	}
	return a, nil
}

func (s *Store) AttemptHasQuestion(ctx context.Context, attemptID, questionID string) (bool, error) {
	return s.exists(ctx, "check attempt question",
		`SELECT EXISTS (SELECT 1 FROM attempt_questions WHERE attempt_id = $1 AND question_id = $2)`,
		attemptID, questionID)
}

func (s *Store) AnswerExists(ctx context.Context, attemptID, questionID string) (bool, error) {
	return s.exists(ctx, "check answer",
		`SELECT EXISTS (SELECT 1 FROM attempt_answers WHERE attempt_id = $1 AND question_id = $2)`,
		attemptID, questionID)
}

// RecordAnswer lets the (attempt_id, question_id) unique constraint decide which
// of several concurrent submissions wins; the score update shares its transaction.
func (s *Store) RecordAnswer(ctx context.Context, answer domain.AttemptAnswer) (int, error) {
	var score int
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO attempt_answers (id, attempt_id, question_id, selected_choice_ids, is_correct, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (attempt_id, question_id) DO NOTHING`,
			answer.ID, answer.AttemptID, answer.QuestionID, answer.SelectedChoiceIDs, answer.IsCorrect, answer.CreatedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrAlreadyAnswered
		}

		if answer.IsCorrect {
			err = tx.QueryRow(ctx,
				`UPDATE attempts SET score = score + 1 WHERE id = $1 AND score < total RETURNING score`,
				answer.AttemptID,
			).Scan(&score)
			if err == nil {
				return nil
			}
			if !errors.Is(err, pgx.ErrNoRows) {
				return err
			}
		}
		return tx.QueryRow(ctx, `SELECT score FROM attempts WHERE id = $1`, answer.AttemptID).Scan(&score)
	})
	if errors.Is(err, domain.ErrAlreadyAnswered) {
		return 0, err
	}
	if err != nil {
		return 0, translate("record answer", "attempt", err)
	}
	return score, nil
}

func (s *Store) ListAnswers(ctx context.Context, attemptID string) ([]domain.AttemptAnswer, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, attempt_id, question_id, selected_choice_ids, is_correct, created_at
		 FROM attempt_answers WHERE attempt_id = $1
		 ORDER BY created_at, id`, attemptID)
	if err != nil {
		return nil, domain.Storage("list answers", err)
	}
	defer rows.Close()

	answers := make([]domain.AttemptAnswer, 0)
	for rows.Next() {
		var a domain.AttemptAnswer
		if err := rows.Scan(&a.ID, &a.AttemptID, &a.QuestionID, &a.SelectedChoiceIDs, &a.IsCorrect, &a.CreatedAt); err != nil {
			return nil, domain.Storage("scan answer", err)
		}
		answers = append(answers, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("list answers", err)
	}
	return answers, nil
}

func (s *Store) TopAttempts(ctx context.Context, limit int) ([]domain.Attempt, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, player_name, score, total, created_at FROM attempts
		 ORDER BY score DESC, created_at ASC, id ASC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, domain.Storage("list top attempts", err)
	}
	defer rows.Close()

	attempts := make([]domain.Attempt, 0, limit)
	for rows.Next() {
		var a domain.Attempt
		if err := rows.Scan(&a.ID, &a.PlayerName, &a.Score, &a.Total, &a.CreatedAt); err != nil {
			return nil, domain.Storage("scan attempt", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage("list top attempts", err)
	}
	return attempts, nil
}

// helpers

func (s *Store) queryIDs(ctx context.Context, op, sql string, args ...interface{}) ([]string, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.Storage(op, err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, domain.Storage(op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage(op, err)
	}
	return ids, nil
}

func (s *Store) queryQuestions(ctx context.Context, op, sql string, args ...interface{}) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.Storage(op, err)
	}
	defer rows.Close()

	questions := make([]domain.Question, 0)
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Prompt, &q.CreatedAt); err != nil {
			return nil, domain.Storage(op, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage(op, err)
	}
	return questions, nil
}

func (s *Store) queryChoices(ctx context.Context, op, sql string, args ...interface{}) ([]domain.Choice, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.Storage(op, err)
	}
	defer rows.Close()

	choices := make([]domain.Choice, 0)
	for rows.Next() {
		var c domain.Choice
		if err := rows.Scan(&c.ID, &c.QuestionID, &c.Label, &c.IsCorrect); err != nil {
			return nil, domain.Storage(op, err)
		}
		choices = append(choices, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage(op, err)
	}
	return choices, nil
}

func (s *Store) queryGroups(ctx context.Context, op, sql string, args ...interface{}) ([]domain.Group, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, domain.Storage(op, err)
	}
	defer rows.Close()

	groups := make([]domain.Group, 0)
	for rows.Next() {
		var g domain.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.CreatedAt); err != nil {
			return nil, domain.Storage(op, err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Storage(op, err)
	}
	return groups, nil
}

func (s *Store) exists(ctx context.Context, op, sql string, args ...interface{}) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&ok); err != nil {
		return false, domain.Storage(op, err)
	}
	return ok, nil
}

// execOne runs a statement that must touch exactly one row.
func (s *Store) execOne(ctx context.Context, op, what, sql string, args ...interface{}) error {
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return domain.Storage(op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound(what)
	}
	return nil
}

// translate maps missing rows and foreign key violations to domain.ErrNotFound.
func translate(op, what string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFound(what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return domain.NotFound(what)
	}
	return domain.Storage(op, err)
}
