// Package notify pushes swap notifications to connected websocket clients,
// optionally relaying them between instances through Redis.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/slotswap/internal/auth"
	"github.com/Shivanand-hulikatti/slotswap/internal/model"
	"github.com/Shivanand-hulikatti/slotswap/internal/service"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 16
)

var _ service.Notifier = (*Hub)(nil)

// Hub tracks websocket connections per user and delivers envelopes to every
// connection of the recipient. A user may be connected from several tabs.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *slog.Logger
	now      func() time.Time
}

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// NewHub constructs a Hub. checkOrigin may be nil to accept any origin.
func NewHub(log *slog.Logger, checkOrigin func(*http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		clients:  make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		log:      log,
		now:      time.Now,
	}
}

// NewEnvelope wraps payload for recipient.
func NewEnvelope(recipient string, kind model.NotificationKind, payload any, now time.Time) (model.Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return model.Envelope{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return model.Envelope{Recipient: recipient, Type: kind, Data: data, SentAt: now.UTC()}, nil
}

// Notify delivers to the local connections of userID. A user with no open
// connection simply misses the notification.
func (h *Hub) Notify(_ context.Context, userID string, kind model.NotificationKind, payload any) error {
	env, err := NewEnvelope(userID, kind, payload, h.now())
	if err != nil {
		return err
	}
	h.Deliver(env)
	return nil
}

// Deliver writes env to every connection of its recipient and returns how
// many connections it was queued on. Connections too slow to keep up are
// dropped.
func (h *Hub) Deliver(env model.Envelope) int {
	msg, err := json.Marshal(env)
	if err != nil {
		h.log.Error("failed to marshal envelope", "error", err)
		return 0
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delivered := 0
	for c := range h.clients[env.Recipient] {
		select {
		case c.send <- msg:
			delivered++
		default:
			h.log.Warn("dropping slow websocket client", "user_id", c.userID)
			h.removeLocked(c)
		}
	}
	return delivered
}

// Connected returns the number of open connections for userID.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// ServeHTTP upgrades an authenticated request to a websocket. It must sit
// behind auth.Middleware.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthenticated", http.StatusUnauthorized)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade error", "error", err)
		return
	}

	c := &client{userID: userID, conn: conn, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][c] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("websocket connected", "user_id", userID)

	go h.writePump(c)
	go h.readPump(c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for c := range set {
			h.removeLocked(c)
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *client) {
	set := h.clients[c.userID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	c.close()
}

// readPump only drains control frames; clients never send data.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
		h.log.Debug("websocket disconnected", "user_id", c.userID)
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Warn("websocket write error", "user_id", c.userID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
