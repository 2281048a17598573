package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/ytfetch-go/internal/app"
	"github.com/yourusername/ytfetch-go/internal/domain"
	"go.uber.org/zap"
)

const (
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local tool, any origin
	},
}

// EventsHandler streams hub envelopes to WebSocket clients
type EventsHandler struct {
	hub    *app.EventHub
	logger *zap.Logger
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(hub *app.EventHub, logger *zap.Logger) *EventsHandler {
	return &EventsHandler{
		hub:    hub,
		logger: logger,
	}
}

// HandleWebSocket handles GET /api/v1/events. The optional "job" query
// parameter restricts the stream to that job's events.
func (h *EventsHandler) HandleWebSocket(c *gin.Context) {
	jobID := c.Query("job")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.hub.Subscribe(0)
	defer h.hub.Unsubscribe(sub)

	h.logger.Info("Event stream client connected",
		zap.String("job", jobID),
		zap.String("remote_addr", c.Request.RemoteAddr))

	// reads only detect the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			if !matchesJob(env, jobID) {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(env); err != nil {
				h.logger.Debug("Event stream write failed", zap.Error(err))
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}

		case <-done:
			return
		}
	}
}

func matchesJob(env app.Envelope, jobID string) bool {
	if jobID == "" {
		return true
	}
	ev, ok := env.Payload.(domain.JobEvent)
	return ok && ev.JobID == jobID
}
