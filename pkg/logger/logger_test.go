package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestFrom_FallsBackToDefault(t *testing.T) {
	if From(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger")
	}
}

func TestNewWithWriter_DebugInLocal(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter("local", &buf)
	l.Debug("hello")
	if buf.Len() == 0 {
		t.Fatalf("expected debug output in local env")
	}

	buf.Reset()
	NewWithWriter("production", &buf).Debug("hello")
	if buf.Len() != 0 {
		t.Fatalf("expected no debug output in production")
	}
}

func TestMiddleware_PropagatesRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	l := NewWithWriter("local", &buf)

	r := gin.New()
	r.Use(Middleware(l))
	r.GET("/x", func(c *gin.Context) {
		From(c.Request.Context()).Info("inside")
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "rid-1")
	r.ServeHTTP(w, req)

	if got := w.Header().Get(headerRequestID); got != "rid-1" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	dec := json.NewDecoder(&buf)
	seen := 0
	for dec.More() {
		var line map[string]any
		if err := dec.Decode(&line); err != nil {
			t.Fatalf("decode log line: %v", err)
		}
		if line["request_id"] == "rid-1" {
			seen++
		}
	}
	if seen != 2 {
		t.Fatalf("expected 2 log lines with request id, got %d", seen)
	}
}
