package http

import (
	"encoding/json"
	"net/http"

	"quizdesk/internal/app"
	"quizdesk/internal/logging"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler streams leaderboard snapshots to live viewers.
type WSHandler struct {
	service  *app.QuizService
	log      *logging.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *logging.Logger, checkOrigin func(r *http.Request) bool) *WSHandler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades GET /leaderboard/ws. The client gets the current leaderboard
// first, then every refresh. Sending {"type":"refresh"} requests a fresh snapshot.
func (h *WSHandler) ServeWS(c *gin.Context) {
	updates, cancel, err := h.service.Subscribe()
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	defer cancel()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", "error", err)
				// Keep draining so producers never block on a dead socket.
				for range send {
				}
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "leaderboard", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	h.sendSnapshot(c, send)

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "refresh":
			h.sendSnapshot(c, send)
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) sendSnapshot(c *gin.Context, send chan<- outboundMessage[any]) {
	lb, err := h.service.LeaderboardSnapshot(c.Request.Context())
	if err != nil {
		h.log.Error("leaderboard snapshot failed", "error", err)
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "leaderboard unavailable"}}
		return
	}
	send <- outboundMessage[any]{Type: "leaderboard", Payload: lb}
}
