package http

import (
	"net/http"
	"strings"
	"time"

	"quizdesk/internal/app"
	"quizdesk/internal/domain"
	"quizdesk/internal/logging"

	"github.com/gin-gonic/gin"
)

const (
	adminCookieName = "quiz_admin"
	adminSessionKey = "admin_session"
	adminTokenKey   = "admin_token"
)

// RequestLogger logs one line per request, at a level that follows the status.
func RequestLogger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request", kv...)
		case status >= http.StatusBadRequest:
			log.Warn("request", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}

// RequireAdmin rejects requests without a live admin session. The token comes
// from the quiz_admin cookie or an Authorization: Bearer header.
func RequireAdmin(auth *app.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := adminToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: domain.ErrUnauthorized.Error()})
			return
		}
		session, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(statusFor(err), ErrorResponse{Error: err.Error()})
			return
		}
		c.Set(adminSessionKey, session)
		c.Set(adminTokenKey, token)
		c.Next()
	}
}

func adminToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	if cookie, err := c.Cookie(adminCookieName); err == nil {
		return cookie
	}
	return ""
}
