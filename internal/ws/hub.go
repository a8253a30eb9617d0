package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"admin-actions/internal/control"

	"github.com/gorilla/websocket"
)

const (
	MessageControl = "control"
	MessageFields  = "fields"

	pingEvery   = 20 * time.Second
	writeWait   = 10 * time.Second
	pongTimeout = 60 * time.Second
)

// Message is one push to connected dashboards.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// FieldsUpdate is the payload of a fields message.
type FieldsUpdate struct {
	PostID string            `json:"post_id"`
	Fields map[string]string `json:"fields"`
}

// Hub fans control and field updates out to every connected dashboard.
type Hub struct {
	upgrader websocket.Upgrader
	log      *slog.Logger

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub returns a hub. checkOrigin may be nil to accept same-origin
// requests only.
func NewHub(log *slog.Logger, checkOrigin func(r *http.Request) bool) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
		log:      log,
		clients:  make(map[*websocket.Conn]struct{}),
	}
}

// Broadcast writes m to every client and returns how many received it.
// Clients that fail the write are dropped.
func (h *Hub) Broadcast(m Message) int {
	b, err := json.Marshal(m)
	if err != nil {
		h.log.Error("ws marshal failed", "type", m.Type, "err", err)
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.clients {
		_ = c.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
			h.log.Warn("ws write failed", "err", err)
			_ = c.Close()
			delete(h.clients, c)
			continue
		}
		n++
	}
	return n
}

// ControlChanged pushes a control view. It satisfies control.Listener.
func (h *Hub) ControlChanged(v control.View) {
	h.Broadcast(Message{Type: MessageControl, Data: v})
}

// FieldsReplaced pushes the refreshed status fields of a post.
func (h *Hub) FieldsReplaced(postID string, fields map[string]string) {
	h.Broadcast(Message{Type: MessageFields, Data: FieldsUpdate{PostID: postID, Fields: fields}})
}

func (h *Hub) ClientsCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and keeps the connection until the
// client goes away. Incoming messages are read and discarded.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "err", err)
		return
	}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()
	h.log.Info("ws connected", "clients", total)

	done := make(chan struct{})
	go func() {
		t := time.NewTicker(pingEvery)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if err := c.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
					return
				}
			case <-done:
				return
			}
		}
	}()

	c.SetReadLimit(1024)
	_ = c.SetReadDeadline(time.Now().Add(pongTimeout))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}

	close(done)
	h.mu.Lock()
	delete(h.clients, c)
	total = len(h.clients)
	h.mu.Unlock()
	_ = c.Close()
	h.log.Info("ws disconnected", "clients", total)
}
