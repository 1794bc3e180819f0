package api

import (
	"changeimpact/internal/core/ports"
	"changeimpact/internal/shared/observability"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	sendBuffer = 64
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts pipeline envelopes to every connected WebSocket client. A
// client whose buffer is full misses envelopes; it is never disconnected for
// that or for pipeline errors.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*subscriber
	closed  bool
}

var _ ports.Publisher = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{clients: make(map[string]*subscriber)}
}

func (h *Hub) Publish(env ports.Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		slog.Error("failed to encode envelope", "type", env.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
			observability.SubscriberDropsTotal.Inc()
			slog.Debug("subscriber buffer full, envelope skipped", "client", c.id, "type", env.Type)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}
	observability.SubscribersGauge.Set(0)
}

func (h *Hub) register(c *subscriber) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	observability.SubscribersGauge.Set(float64(len(h.clients)))
	return true
}

func (h *Hub) unregister(c *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	close(c.send)
	observability.SubscribersGauge.Set(float64(len(h.clients)))
}

// Serve upgrades the request and streams envelopes until the client leaves.
func (h *Hub) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("failed to upgrade websocket", "error", err)
		return
	}
	sub := &subscriber{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(sub) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	slog.Info("subscriber connected", "client", sub.id)

	go h.writeLoop(sub)
	h.readLoop(sub)
}

// readLoop discards client messages and returns when the connection drops.
func (h *Hub) readLoop(sub *subscriber) {
	defer func() {
		h.unregister(sub)
		_ = sub.conn.Close()
		slog.Info("subscriber disconnected", "client", sub.id)
	}()
	sub.conn.SetReadLimit(4096)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				slog.Debug("subscriber write failed", "client", sub.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
