// Package api is the HTTP client for the events REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/eventhub/internal/log"
	"github.com/Shivanand-hulikatti/eventhub/internal/model"
)

// maxErrorBody caps how much of an error response is read for its message.
const maxErrorBody = 64 << 10

// TokenSource supplies the bearer token for outgoing requests. An empty
// token means the request is sent without an Authorization header.
type TokenSource interface {
	Token() string
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

// Token implements TokenSource.
func (f TokenFunc) Token() string { return f() }

// Client issues requests against the events backend.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	log     *log.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets a per-request timeout. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			hc := *c.http
			hc.Timeout = d
			c.http = &hc
		}
	}
}

// WithTokenSource attaches credentials to every request.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New constructs a Client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		tokens:  TokenFunc(func() string { return "" }),
		log:     log.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListEvents handles GET /events.
func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	var events []model.Event
	if err := c.do(ctx, http.MethodGet, "/events", nil, &events); err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.Event{}
	}
	return events, nil
}

// GetEvent handles GET /events/{id}.
func (c *Client) GetEvent(ctx context.Context, id model.ID) (*model.Event, error) {
	var e model.Event
	if err := c.do(ctx, http.MethodGet, eventPath(id), nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// CreateEvent handles POST /events. The returned event is nil when the
// backend answers without a body.
func (c *Client) CreateEvent(ctx context.Context, in model.EventInput) (*model.Event, error) {
	var e *model.Event
	if err := c.do(ctx, http.MethodPost, "/events", in, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// UpdateEvent handles PUT /events/{id}.
func (c *Client) UpdateEvent(ctx context.Context, id model.ID, in model.EventInput) (*model.Event, error) {
	var e *model.Event
	if err := c.do(ctx, http.MethodPut, eventPath(id), in, &e); err != nil {
		return nil, err
	}
	return e, nil
}

// DeleteEvent handles DELETE /events/{id}.
func (c *Client) DeleteEvent(ctx context.Context, id model.ID) error {
	return c.do(ctx, http.MethodDelete, eventPath(id), nil, nil)
}

// CheckSubscription handles GET /events/{id}/subscriptions/check.
func (c *Client) CheckSubscription(ctx context.Context, id model.ID) (bool, error) {
	var st model.SubscriptionStatus
	if err := c.do(ctx, http.MethodGet, eventPath(id)+"/subscriptions/check", nil, &st); err != nil {
		return false, err
	}
	return st.IsSubscribed, nil
}

// Subscribe handles POST /events/{id}/subscriptions.
func (c *Client) Subscribe(ctx context.Context, id model.ID) error {
	return c.do(ctx, http.MethodPost, eventPath(id)+"/subscriptions", nil, nil)
}

// Unsubscribe handles DELETE /events/{id}/subscriptions.
func (c *Client) Unsubscribe(ctx context.Context, id model.ID) error {
	return c.do(ctx, http.MethodDelete, eventPath(id)+"/subscriptions", nil, nil)
}

func eventPath(id model.ID) string {
	return "/events/" + url.PathEscape(string(id))
}

// do sends one request. body, if non-nil, is JSON encoded; out, if non-nil,
// receives the decoded JSON response. An empty response body leaves out untouched.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)
	if tok := c.tokens.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("api request failed", err, "method", method, "path", path, "request_id", reqID)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", reqID,
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Message: readMessage(resp.Body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// readMessage pulls a human readable message out of an error body. JSON
// envelopes with "message" or "error" are preferred; short plain text is
// used as is.
func readMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(b) == 0 {
		return ""
	}
	var env model.ErrorResponse
	if json.Unmarshal(b, &env) == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
		return ""
	}
	text := strings.TrimSpace(string(b))
	if len(text) > 200 || strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}
