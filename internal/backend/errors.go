package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrUnexpectedResponse = errors.New("backend: unexpected response")
	ErrMissingCallStatus  = errors.New("backend: call status missing in response")
	ErrNoCSRFToken        = errors.New("backend: csrf token not found")
)

// HTTPError is a non-2xx response. Body is the server text, unmodified.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.StatusCode, e.Message())
}

// Message is the text shown to the user for this failure.
func (e *HTTPError) Message() string {
	if strings.TrimSpace(e.Body) != "" {
		return e.Body
	}
	if t := http.StatusText(e.StatusCode); t != "" {
		return t
	}
	return fmt.Sprintf("status %d", e.StatusCode)
}

// UserMessage extracts the user-facing text of err: the server text for
// HTTP errors, the error string otherwise.
func UserMessage(err error) string {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Message()
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
