package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"moi-note/internal/access"
	"moi-note/internal/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // API is token authenticated, CORS is open as well
	},
}

// StreamMessage is one frame of the live entry stream.
type StreamMessage struct {
	Type    string          `json:"type"`
	Entries []EntryResponse `json:"entries,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

// streamEntries pushes a snapshot of the entry list after every change until the
// client goes away or the session stops passing the guard.
func (h *Handler) streamEntries(c *gin.Context) {
	gate := gateOf(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sub, err := h.entries.Subscribe(ctx)
	if err != nil {
		h.logger.WithError(err).Error("subscribe to entries")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(writeWait))
		return
	}
	defer sub.Close()

	sessionChanged := make(chan struct{}, 1)
	unsubscribe := gate.Subscribe(func(*domain.Session) {
		select {
		case sessionChanged <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	go h.readStream(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case entries, ok := <-sub.C:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(StreamMessage{Type: "entries", Entries: entriesToResponse(entries)}); err != nil {
				h.logger.WithError(err).Debug("write entry snapshot")
				return
			}
		case <-sessionChanged:
			decision, _, err := h.decide(c, access.PathEntry)
			if err != nil || decision.Outcome != access.Allow {
				h.closeStream(conn, "session ended")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// readStream drains client frames so pongs and close frames are processed.
func (h *Handler) readStream(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.WithError(err).Debug("websocket closed")
			}
			return
		}
	}
}

func (h *Handler) closeStream(conn *websocket.Conn, reason string) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteJSON(StreamMessage{Type: "closed", Reason: reason})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(writeWait))
}
