package backend

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

const csrfFieldName = "csrfmiddlewaretoken"

// TokenSource yields the CSRF token sent with state-changing requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a token configured up front.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) {
	if strings.TrimSpace(string(t)) == "" {
		return "", ErrNoCSRFToken
	}
	return string(t), nil
}

// FormTokenSource reads the token from the hidden csrfmiddlewaretoken input
// of an admin page. The first token found is reused; Client should carry a
// cookie jar so the matching csrftoken cookie is sent back.
type FormTokenSource struct {
	Client  *http.Client
	PageURL string

	mu    sync.Mutex
	token string
}

func (s *FormTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}

	hc := s.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.PageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend: fetch csrf page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	tok, err := findFormToken(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", err
	}
	s.token = tok
	return tok, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (s *FormTokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

func findFormToken(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return "", ErrNoCSRFToken
			}
			return "", fmt.Errorf("backend: parse csrf page: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			t := z.Token()
			if t.Data != "input" {
				continue
			}
			var name, value string
			for _, a := range t.Attr {
				switch a.Key {
				case "name":
					name = a.Val
				case "value":
					value = a.Val
				}
			}
			if name == csrfFieldName && value != "" {
				return value, nil
			}
		}
	}
}
