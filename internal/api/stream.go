package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"forex-autotrader/internal/logger"
	"forex-autotrader/internal/types"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub fans appended decisions out to websocket subscribers. Slow clients are
// dropped rather than allowed to back-pressure the supervisor.
type Hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]chan types.Decision
}

func NewHub() *Hub {
	return &Hub{conns: map[*websocket.Conn]chan types.Decision{}}
}

// Broadcast delivers a decision to every subscriber without blocking.
func (h *Hub) Broadcast(d types.Decision) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.conns {
		select {
		case ch <- d:
		default:
			close(ch)
			delete(h.conns, conn)
		}
	}
}

func (h *Hub) handle(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn(c.Request.Context(), "Websocket upgrade failed", "error", err)
		return
	}

	ch := make(chan types.Decision, 64)
	h.mu.Lock()
	h.conns[conn] = ch
	h.mu.Unlock()

	go h.discardReads(conn)

	for d := range ch {
		if err := conn.WriteJSON(d); err != nil {
			break
		}
	}
	h.drop(conn)
}

// discardReads drains the client side so close frames are processed.
func (h *Hub) discardReads(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.drop(conn)
			return
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	if ch, ok := h.conns[conn]; ok {
		close(ch)
		delete(h.conns, conn)
	}
	h.mu.Unlock()
	_ = conn.Close()
}

// Close tears down all subscriber connections.
func (h *Hub) Close(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.conns {
		close(ch)
		_ = conn.Close()
		delete(h.conns, conn)
	}
}
