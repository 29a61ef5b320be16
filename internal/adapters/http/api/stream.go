package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/ringside/internal/adapters/broadcast"
	"github.com/okian/ringside/pkg/logger"
)

const (
	writeWait    = 10 * time.Second
	maxReadBytes = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// StreamHandler pushes live round cards for one bout over a WebSocket.
type StreamHandler struct {
	deps         Dependencies
	logger       logger.Logger
	pingInterval time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps Dependencies, l logger.Logger, pingInterval time.Duration) *StreamHandler {
	return &StreamHandler{deps: deps, logger: l, pingInterval: pingInterval}
}

// HandleStream handles GET /bouts/{bout}/stream. The subscription is taken before the
// upgrade so a closed or unknown bout still gets a plain HTTP error.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	bout := r.PathValue("bout")
	sub, err := h.deps.Subscribe(r.Context(), bout)
	if err != nil {
		fail(w, err)
		return
	}
	defer sub.Close()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.String("bout_id", bout), logger.Error(err))
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go h.drain(conn, done)

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case u, ok := <-sub.Updates():
			if !ok {
				h.closeWith(conn, sub)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(u); err != nil {
				h.logger.Debug(r.Context(), "stream write failed", logger.String("bout_id", bout), logger.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// drain reads and discards client frames so control frames are processed. It closes done when the peer goes away.
func (h *StreamHandler) drain(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxReadBytes)
	deadline := func() { _ = conn.SetReadDeadline(time.Now().Add(2 * h.pingInterval)) }
	deadline()
	conn.SetPongHandler(func(string) error { deadline(); return nil })
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *StreamHandler) closeWith(conn *websocket.Conn, sub *broadcast.Subscription) {
	code, reason := websocket.CloseNormalClosure, "bout closed"
	if err := sub.Err(); errors.Is(err, broadcast.ErrSlowSubscriber) {
		code, reason = websocket.ClosePolicyViolation, err.Error()
	}
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
}
