package http

import (
	"context"
	"net/http"
	"time"

	"quizdesk/internal/app"
	"quizdesk/internal/logging"
	"quizdesk/internal/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterDeps is everything the HTTP layer needs.
type RouterDeps struct {
	Quiz     *app.QuizService
	Catalog  *app.CatalogService
	Settings *app.SettingsService
	Auth     *app.AuthService
	Log      *logging.Logger

	AllowedOrigins []string
	CookieSecure   bool
	// Health is optional; nil means the process is healthy while it serves.
	Health Pinger
}

// NewRouter builds the gin engine with every public and admin route.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Log == nil {
		deps.Log = logging.Nop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(deps.Log))
	r.Use(metrics.Middleware())
	r.Use(cors.New(corsConfig(deps.AllowedOrigins)))

	quiz := NewQuizHandler(deps.Quiz, deps.Catalog, deps.Log)
	admin := NewAdminHandler(deps.Catalog, deps.Settings, deps.Auth, deps.Log, deps.CookieSecure)
	ws := NewWSHandler(deps.Quiz, deps.Log, originChecker(deps.AllowedOrigins))

	r.GET("/healthz", healthHandler(deps.Health))
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/quiz/start", quiz.Start)
	r.POST("/quiz/answer", quiz.Answer)
	r.GET("/quiz/results/:attemptId", quiz.Results)
	r.GET("/leaderboard", quiz.Leaderboard)
	r.GET("/leaderboard/ws", ws.ServeWS)
	r.GET("/groups", quiz.Groups)

	r.POST("/admin/login", admin.Login)
	r.POST("/admin/logout", admin.Logout)

	secured := r.Group("/admin")
	secured.Use(RequireAdmin(deps.Auth))
	{
		secured.GET("/me", admin.Me)

		secured.GET("/questions", admin.ListQuestions)
		secured.POST("/questions", admin.CreateQuestion)
		secured.GET("/questions/:id", admin.GetQuestion)
		secured.PATCH("/questions/:id", admin.UpdateQuestion)
		secured.DELETE("/questions/:id", admin.DeleteQuestion)

		secured.GET("/questions/:id/choices", admin.ListChoices)
		secured.POST("/questions/:id/choices", admin.CreateChoice)
		secured.PATCH("/choices/:choiceId", admin.UpdateChoice)
		secured.DELETE("/choices/:choiceId", admin.DeleteChoice)

		secured.GET("/questions/:id/groups", admin.QuestionGroups)
		secured.POST("/questions/:id/groups", admin.LinkGroup)
		secured.DELETE("/questions/:id/groups/:groupId", admin.UnlinkGroup)

		secured.GET("/groups", admin.ListGroups)
		secured.POST("/groups", admin.CreateGroup)
		secured.DELETE("/groups/:id", admin.DeleteGroup)

		secured.GET("/settings", admin.GetSettings)
		secured.POST("/settings", admin.UpdateSettings)
	}

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowOriginFunc = func(string) bool { return true }
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// originChecker mirrors the CORS allow-list for websocket upgrades.
func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

func healthHandler(p Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "store unavailable"})
				return
			}
		}
		c.String(http.StatusOK, "ok")
	}
}
