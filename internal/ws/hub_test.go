package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"admin-actions/internal/control"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	deadline := time.Now().Add(2 * time.Second)
	for h.ClientsCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return c
}

func TestHub_PushesControlViews(t *testing.T) {
	h := NewHub(nil, nil)
	c := dial(t, h)

	h.ControlChanged(control.View{ID: "exotel_call_button:42", State: control.State{Phase: control.PhaseBusy, Label: "Calling..."}})

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m struct {
		Type string       `json:"type"`
		Data control.View `json:"data"`
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != MessageControl || m.Data.ID != "exotel_call_button:42" || m.Data.State.Label != "Calling..." {
		t.Fatalf("unexpected message: %s", raw)
	}
}

func TestHub_PushesFields(t *testing.T) {
	h := NewHub(nil, nil)
	c := dial(t, h)

	if n := h.Broadcast(Message{Type: MessageFields, Data: FieldsUpdate{PostID: "42", Fields: map[string]string{"a": "b"}}}); n != 1 {
		t.Fatalf("expected 1 receiver, got %d", n)
	}
	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := c.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(raw), `"post_id":"42"`) {
		t.Fatalf("unexpected message: %s", raw)
	}
}

func TestHub_RejectsNonUpgrade(t *testing.T) {
	h := NewHub(nil, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
