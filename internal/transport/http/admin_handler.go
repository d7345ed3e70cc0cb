package http

import (
	"net/http"
	"strings"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
	"quizdesk/internal/logging"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the authenticated authoring API.
type AdminHandler struct {
	catalog      *app.CatalogService
	settings     *app.SettingsService
	auth         *app.AuthService
	log          *logging.Logger
	cookieSecure bool
}

func NewAdminHandler(catalog *app.CatalogService, settings *app.SettingsService, auth *app.AuthService, log *logging.Logger, cookieSecure bool) *AdminHandler {
	return &AdminHandler{catalog: catalog, settings: settings, auth: auth, log: log, cookieSecure: cookieSecure}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
	Email string `json:"email"`
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type createChoiceRequest struct {
	Label     string `json:"label"`
	IsCorrect bool   `json:"is_correct"`
}

type linkGroupRequest struct {
	GroupID string `json:"group_id"`
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type questionDetail struct {
	domain.Question
	Choices []domain.Choice `json:"choices"`
	Groups  []domain.Group  `json:"groups"`
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be a JSON object with email and password")
		return
	}
	token, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if statusFor(err) == http.StatusUnauthorized {
			h.log.Warn("admin login rejected", "client_ip", c.ClientIP())
		}
		writeError(c, h.log, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(adminCookieName, token, int(h.auth.SessionTTL().Seconds()), "/", "", h.cookieSecure, true)
	c.JSON(http.StatusOK, loginResponse{Token: token, Email: strings.ToLower(strings.TrimSpace(req.Email))})
}

// Logout is safe to call without a session.
func (h *AdminHandler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), adminToken(c)); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(adminCookieName, "", -1, "/", "", h.cookieSecure, true)
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) Me(c *gin.Context) {
	session, _ := c.Get(adminSessionKey)
	c.JSON(http.StatusOK, session)
}

func (h *AdminHandler) ListQuestions(c *gin.Context) {
	questions, err := h.catalog.ListQuestions(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, questions)
}

func (h *AdminHandler) CreateQuestion(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be a JSON object with prompt")
		return
	}
	q, err := h.catalog.CreateQuestion(c.Request.Context(), req.Prompt)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

func (h *AdminHandler) GetQuestion(c *gin.Context) {
	ctx := c.Request.Context()
	q, err := h.catalog.GetQuestion(ctx, c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	choices, err := h.catalog.ListChoices(ctx, q.ID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	groups, err := h.catalog.QuestionGroups(ctx, q.ID)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, questionDetail{Question: q, Choices: choices, Groups: groups})
}

func (h *AdminHandler) UpdateQuestion(c *gin.Context) {
	var req promptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be a JSON object with prompt")
		return
	}
	q, err := h.catalog.UpdateQuestion(c.Request.Context(), c.Param("id"), req.Prompt)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

func (h *AdminHandler) DeleteQuestion(c *gin.Context) {
	if err := h.catalog.DeleteQuestion(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ListChoices(c *gin.Context) {
	choices, err := h.catalog.ListChoices(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, choices)
}

func (h *AdminHandler) CreateChoice(c *gin.Context) {
	var req createChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be a JSON object with label and is_correct")
		return
	}
	choice, err := h.catalog.CreateChoice(c.Request.Context(), c.Param("id"), req.Label, req.IsCorrect)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, choice)
}

func (h *AdminHandler) UpdateChoice(c *gin.Context) {
	var patch domain.ChoicePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "request body must be a JSON object with label and/or is_correct")
		return
	}
	choice, err := h.catalog.UpdateChoice(c.Request.Context(), c.Param("choiceId"), patch)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, choice)
}

func (h *AdminHandler) DeleteChoice(c *gin.Context) {
	if err := h.catalog.DeleteChoice(c.Request.Context(), c.Param("choiceId")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) QuestionGroups(c *gin.Context) {
	groups, err := h.catalog.QuestionGroups(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *AdminHandler) LinkGroup(c *gin.Context) {
	var req linkGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be a JSON object with group_id")
		return
	}
	if err := h.catalog.LinkGroup(c.Request.Context(), c.Param("id"), req.GroupID); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) UnlinkGroup(c *gin.Context) {
	if err := h.catalog.UnlinkGroup(c.Request.Context(), c.Param("id"), c.Param("groupId")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) ListGroups(c *gin.Context) {
	groups, err := h.catalog.ListGroups(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

func (h *AdminHandler) CreateGroup(c *gin.Context) {
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request body must be a JSON object with name")
		return
	}
	g, err := h.catalog.CreateGroup(c.Request.Context(), req.Name)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (h *AdminHandler) DeleteGroup(c *gin.Context) {
	if err := h.catalog.DeleteGroup(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AdminHandler) GetSettings(c *gin.Context) {
	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var patch domain.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "num_questions must be an integer and randomize a boolean")
		return
	}
	settings, err := h.settings.Update(c.Request.Context(), patch)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
