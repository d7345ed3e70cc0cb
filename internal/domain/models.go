package domain

import "time"

const (
	// DefaultNumQuestions is used until an admin configures the quiz length.
	DefaultNumQuestions = 10
	// MinNumQuestions and MaxNumQuestions bound Settings.NumQuestions.
	MinNumQuestions = 1
	MaxNumQuestions = 200
	// MaxPromptLength is measured in characters, not bytes.
	MaxPromptLength = 2000
	// MaxPlayerNameLength is measured in characters, not bytes.
	MaxPlayerNameLength = 100
)

// Question is an authored quiz prompt. Choices belong to it.
type Question struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	CreatedAt time.Time `json:"created_at"`
}

// Choice is one selectable answer. Several choices of a question may be correct.
type Choice struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Label      string `json:"label"`
	IsCorrect  bool   `json:"is_correct"`
}

// Group is a free-standing tag used to filter the candidate pool.
type Group struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Settings is the singleton quiz configuration.
type Settings struct {
	NumQuestions int  `json:"num_questions"`
	Randomize    bool `json:"randomize"`
}

// DefaultSettings returns the configuration used before an admin saves one.
func DefaultSettings() Settings {
	return Settings{NumQuestions: DefaultNumQuestions, Randomize: true}
}

// SettingsPatch carries an admin update; nil fields are left unchanged.
type SettingsPatch struct {
	NumQuestions *int  `json:"num_questions"`
	Randomize    *bool `json:"randomize"`
}

// Attempt is one quiz run. Total is fixed when the attempt is created.
type Attempt struct {
	ID         string    `json:"id"`
	PlayerName string    `json:"player_name"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	CreatedAt  time.Time `json:"created_at"`
}

// AttemptAnswer records the single graded answer for an (attempt, question) pair.
type AttemptAnswer struct {
	ID                string    `json:"id"`
	AttemptID         string    `json:"attempt_id"`
	QuestionID        string    `json:"question_id"`
	SelectedChoiceIDs []string  `json:"selected_choice_ids"`
	IsCorrect         bool      `json:"is_correct"`
	CreatedAt         time.Time `json:"created_at"`
}

// ChoicePatch carries an admin edit of a choice; nil fields are left unchanged.
type ChoicePatch struct {
	Label     *string `json:"label"`
	IsCorrect *bool   `json:"is_correct"`
}

// PublicChoice is the sanitized form of a Choice sent to quiz takers.
type PublicChoice struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// QuizQuestion is a question as served to a quiz taker.
type QuizQuestion struct {
	ID      string         `json:"id"`
	Prompt  string         `json:"prompt"`
	Choices []PublicChoice `json:"choices"`
}

// StartRequest asks for a new attempt, optionally restricted to some groups.
type StartRequest struct {
	PlayerName string   `json:"player_name"`
	GroupIDs   []string `json:"group_ids"`
}

// StartedQuiz is returned once an attempt has been created.
type StartedQuiz struct {
	AttemptID string         `json:"attempt_id"`
	Total     int            `json:"total"`
	Questions []QuizQuestion `json:"questions"`
}

// AnswerSubmission models one answer sent by a quiz taker.
type AnswerSubmission struct {
	AttemptID         string   `json:"attempt_id"`
	QuestionID        string   `json:"question_id"`
	SelectedChoiceIDs []string `json:"selected_choice_ids"`
}

// AnswerResult summarizes the outcome of a submission.
type AnswerResult struct {
	Correct bool `json:"correct"`
	Score   int  `json:"score"`
}

// MissedQuestion lists the currently correct choices of a question the player got wrong.
type MissedQuestion struct {
	QuestionID     string         `json:"questionId"`
	Prompt         string         `json:"prompt"`
	CorrectChoices []PublicChoice `json:"correctChoices"`
}

// AttemptResults is the post-quiz review of an attempt.
type AttemptResults struct {
	RunID     string           `json:"runId"`
	Incorrect []MissedQuestion `json:"incorrect"`
}

// LeaderboardEntry is one ranked attempt.
type LeaderboardEntry struct {
	ID         string    `json:"id"`
	PlayerName string    `json:"player_name"`
	Score      int       `json:"score"`
	Total      int       `json:"total"`
	CreatedAt  time.Time `json:"created_at"`
}

// Leaderboard captures the ordered scoreboard at a point in time.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// AdminSession is the capability granted by a successful admin login.
type AdminSession struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}
