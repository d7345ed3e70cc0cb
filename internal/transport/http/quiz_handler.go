package http

import (
	"net/http"
	"strconv"
	"strings"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
	"quizdesk/internal/logging"

	"github.com/gin-gonic/gin"
)

// QuizHandler serves the public quiz-taking API.
type QuizHandler struct {
	quiz    *app.QuizService
	catalog *app.CatalogService
	log     *logging.Logger
}

func NewQuizHandler(quiz *app.QuizService, catalog *app.CatalogService, log *logging.Logger) *QuizHandler {
	return &QuizHandler{quiz: quiz, catalog: catalog, log: log}
}

// Start handles POST /quiz/start.
func (h *QuizHandler) Start(c *gin.Context) {
	var req domain.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be a JSON object with player_name")
		return
	}
	started, err := h.quiz.Start(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, started)
}

// Answer handles POST /quiz/answer.
func (h *QuizHandler) Answer(c *gin.Context) {
	var req domain.AnswerSubmission
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be a JSON object with attempt_id, question_id and selected_choice_ids")
		return
	}
	result, err := h.quiz.SubmitAnswer(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Results handles GET /quiz/results/:attemptId.
func (h *QuizHandler) Results(c *gin.Context) {
	results, err := h.quiz.Results(c.Request.Context(), c.Param("attemptId"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, results)
}

// Leaderboard handles GET /leaderboard?limit=N.
func (h *QuizHandler) Leaderboard(c *gin.Context) {
	limit := app.DefaultLeaderboardLimit
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "limit must be an integer")
			return
		}
		limit = n
	}
	entries, err := h.quiz.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Groups handles GET /groups so players can pick a subset before starting.
func (h *QuizHandler) Groups(c *gin.Context) {
	groups, err := h.catalog.ListGroups(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}
