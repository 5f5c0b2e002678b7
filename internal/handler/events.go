package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"predmarket/internal/events"
)

// EventsHandler streams change notifications to clients over SSE and
// websocket, both fed from the same hub.
type EventsHandler struct {
	Hub       *events.Hub
	Logger    *zap.Logger
	Heartbeat time.Duration
}

func (h *EventsHandler) Register(r *gin.Engine) {
	r.GET("/api/events", h.sse)
	r.GET("/api/events/ws", h.ws)
}

// @Summary Server-sent events stream
// @Tags events
// @Produce text/event-stream
// @Router /api/events [get]
func (h *EventsHandler) sse(c *gin.Context) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.Flush()

	id, ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(id)

	heartbeat := h.Heartbeat
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Writer.WriteString(": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		case ev, ok := <-ch:
			if !ok {
				return
			}
			c.SSEvent(ev.Name, ev.Payload)
			c.Writer.Flush()
		}
	}
}

// @Summary Websocket events stream
// @Tags events
// @Router /api/events/ws [get]
func (h *EventsHandler) ws(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket accept failed", zap.Error(err))
		}
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	id, ch := h.Hub.Subscribe()
	defer h.Hub.Unsubscribe(id)

	// Writer-only connection: CloseRead keeps control frames serviced and
	// cancels the context as soon as the client goes away.
	ctx := conn.CloseRead(c.Request.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
				return
			}
		}
	}
}
