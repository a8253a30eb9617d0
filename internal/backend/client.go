package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"admin-actions/internal/action"
	"admin-actions/internal/calls"
	"admin-actions/pkg/logger"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	HeaderCSRF = "X-CSRFToken"

	defaultPaymentsPath = "/api/payments"
	maxBodyBytes        = 1 << 20
)

// Config locates the backend endpoints. Per-control URLs (progress check,
// call trigger, status poll) may be absolute or relative to BaseURL.
type Config struct {
	BaseURL      string
	PaymentsPath string
}

// Client performs the outbound calls of the admin controls. It is created
// once and injected into the panels; nothing reaches it through globals.
type Client struct {
	base         *url.URL
	paymentsPath string
	http         *http.Client
	tokens       TokenSource
}

// NewHTTPClient returns an http.Client with an instrumented transport and
// no overall timeout: a remote action runs until the backend answers.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

func NewClient(cfg Config, hc *http.Client, tokens TokenSource) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("backend: base url is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if hc == nil {
		hc = NewHTTPClient()
	}
	if tokens == nil {
		return nil, errors.New("backend: csrf token source is required")
	}
	pp := strings.TrimRight(cfg.PaymentsPath, "/")
	if pp == "" {
		pp = defaultPaymentsPath
	}
	return &Client{base: base, paymentsPath: pp, http: hc, tokens: tokens}, nil
}

// CallResult is the parsed answer of the call trigger endpoint.
type CallResult struct {
	// Status is the provider's reported call status, shown verbatim.
	Status string
}

// Snapshot maps status field names to display values.
type Snapshot map[string]string

// CallInProgress asks the progress-check endpoint whether a call is
// already running.
func (c *Client) CallInProgress(ctx context.Context, progressURL string) (bool, error) {
	body, err := c.get(ctx, progressURL, nil)
	if err != nil {
		return false, err
	}
	return parseProgress(body)
}

// TriggerCall asks the backend to place a call and returns the status the
// provider reported under Call.Status.
func (c *Client) TriggerCall(ctx context.Context, triggerURL string, p action.CallParams) (CallResult, error) {
	q := url.Values{}
	q.Set("submission_type", p.SubmissionType)
	q.Set("post_id", p.PostID)
	q.Set("from", p.From)
	q.Set("to", p.To)
	q.Set("caller_id", p.CallerID)

	body, err := c.get(ctx, triggerURL, q)
	if err != nil {
		return CallResult{}, err
	}
	status, err := parseCallStatus(body)
	if err != nil {
		return CallResult{}, err
	}
	return CallResult{Status: status}, nil
}

// PollStatus fetches the displayed status fields of one record.
func (c *Client) PollStatus(ctx context.Context, statusURL string) (Snapshot, error) {
	body, err := c.get(ctx, statusURL, nil)
	if err != nil {
		return nil, err
	}
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: status poll: %v", ErrUnexpectedResponse, err)
	}
	out := make(Snapshot, len(raw))
	for k, v := range raw {
		out[k] = displayValue(v)
	}
	return out, nil
}

func (c *Client) SendPaymentLink(ctx context.Context, p action.LinkParams) error {
	form := url.Values{}
	form.Set("phone_number", p.PhoneNumber)
	form.Set("amount", strconv.FormatFloat(p.Amount, 'f', -1, 64))
	form.Set("property_id", p.PropertyID)
	_, err := c.postForm(ctx, c.paymentsPath+"/send/", form)
	return err
}

func (c *Client) ResendPaymentLink(ctx context.Context, linkID string) error {
	_, err := c.postForm(ctx, c.paymentsPath+"/"+url.PathEscape(linkID)+"/resend/", nil)
	return err
}

func (c *Client) CancelPaymentLink(ctx context.Context, linkID string) error {
	_, err := c.postForm(ctx, c.paymentsPath+"/"+url.PathEscape(linkID)+"/cancel/", nil)
	return err
}

func (c *Client) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("backend: parse url %q: %w", ref, err)
	}
	return c.base.ResolveReference(u), nil
}

func (c *Client) get(ctx context.Context, ref string, q url.Values) ([]byte, error) {
	u, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}
	if len(q) > 0 {
		merged := u.Query()
		for k, vs := range q {
			for _, v := range vs {
				merged.Add(k, v)
			}
		}
		u.RawQuery = merged.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) postForm(ctx context.Context, ref string, form url.Values) ([]byte, error) {
	u, err := c.resolve(ref)
	if err != nil {
		return nil, err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderCSRF, token)

	body, err := c.do(req)
	var he *HTTPError
	if errors.As(err, &he) && he.StatusCode == http.StatusForbidden {
		// A rejected token is refetched on the next click.
		if inv, ok := c.tokens.(interface{ Invalidate() }); ok {
			inv.Invalidate()
		}
	}
	return body, err
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	log := logger.From(req.Context())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("backend: read body: %w", err)
	}
	log.Debug("backend call", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func parseProgress(body []byte) (bool, error) {
	trimmed := bytes.TrimSpace(body)
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		// Plain text answers are accepted too.
		v = string(trimmed)
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case nil:
		return false, nil
	case string:
		// Any enumerated state other than the in-progress ones means the
		// line is free.
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "1", "yes", strings.ToLower(calls.StatusInProgress):
			return true, nil
		}
		return false, nil
	}
	return false, fmt.Errorf("%w: progress check: %q", ErrUnexpectedResponse, string(trimmed))
}

type triggerPayload struct {
	Call struct {
		Status string `json:"Status"`
	} `json:"Call"`
}

func parseCallStatus(body []byte) (string, error) {
	trimmed := bytes.TrimSpace(body)
	// The trigger endpoint may answer with a JSON string holding the payload.
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return "", fmt.Errorf("%w: call trigger: %v", ErrUnexpectedResponse, err)
		}
		trimmed = []byte(inner)
	}
	var p triggerPayload
	if err := json.Unmarshal(trimmed, &p); err != nil {
		return "", fmt.Errorf("%w: call trigger: %v", ErrUnexpectedResponse, err)
	}
	if p.Call.Status == "" {
		return "", ErrMissingCallStatus
	}
	return p.Call.Status, nil
}

func displayValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
