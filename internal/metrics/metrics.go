package metrics

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	httpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "quiz_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	attemptsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_attempts_started_total",
			Help: "Total number of quiz attempts started",
		},
	)

	questionsServed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quiz_questions_served_total",
			Help: "Total number of questions handed out to attempts",
		},
	)

	answersGraded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quiz_answers_graded_total",
			Help: "Total number of graded answers",
		},
		[]string{"result"}, // correct/incorrect
	)
)

// Observer feeds quiz events into the process-wide collectors. It implements app.Observer.
type Observer struct{}

func (Observer) AttemptStarted(total int) {
	attemptsStarted.Inc()
	questionsServed.Add(float64(total))
}

func (Observer) AnswerGraded(correct bool) {
	result := "incorrect"
	if correct {
		result = "correct"
	}
	answersGraded.WithLabelValues(result).Inc()
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		timer := prometheus.NewTimer(httpDuration.WithLabelValues(route, c.Request.Method))
		c.Next()
		timer.ObserveDuration()
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
