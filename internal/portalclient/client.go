package portalclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/lbogdanov/nixieclock/internal/logging"
	"github.com/lbogdanov/nixieclock/internal/store"
	"github.com/lbogdanov/nixieclock/internal/version"
)

const (
	// DefaultBaseURL is the portal address on the clock's own access point
	DefaultBaseURL = "http://192.168.4.1"

	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 1 * time.Second

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 10 * time.Second
)

// Client talks to the /settings endpoint of a clock in configuration mode.
//
// Every request counts as portal activity on the clock and pushes its idle
// deadline back.
type Client struct {
	// BaseURL is the portal root (e.g., "http://192.168.4.1")
	BaseURL string

	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts, doubled after
	// each failure up to MaxRetryDelay
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	Clock clockwork.Clock
}

// NewClient creates a portal client for baseURL
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		HTTPClient:    &http.Client{Timeout: DefaultTimeout},
		MaxRetries:    DefaultMaxRetries,
		RetryDelay:    DefaultRetryDelay,
		MaxRetryDelay: DefaultMaxRetryDelay,
		Clock:         clockwork.NewRealClock(),
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// GetSettings fetches the stored settings. ok is false when the clock has
// none yet.
func (c *Client) GetSettings(ctx context.Context) (rec store.Record, ok bool, err error) {
	err = c.retry(ctx, "GET /settings", func() error {
		var attemptErr error
		rec, ok, attemptErr = c.getSettings(ctx)
		return attemptErr
	})
	return rec, ok, err
}

func (c *Client) getSettings(ctx context.Context) (store.Record, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/settings", nil)
	if err != nil {
		return store.Record{}, false, &PortalError{Type: ErrTypeNetwork, Message: "failed to create GET request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return store.Record{}, false, err
	}

	var fields map[string]string
	if err := json.Unmarshal(body, &fields); err != nil {
		return store.Record{}, false, &PortalError{Type: ErrTypeParse, Message: "failed to parse settings", Err: err}
	}
	if len(fields) == 0 {
		return store.Record{}, false, nil
	}

	var rec store.Record
	for _, field := range store.Schema {
		rec.Set(field, fields[field])
	}
	return rec, true, nil
}

// PostSettings replaces the stored settings.
func (c *Client) PostSettings(ctx context.Context, rec store.Record) error {
	if err := rec.Validate(); err != nil {
		return &PortalError{Type: ErrTypeRejected, Message: "settings not sent", Err: err}
	}
	return c.retry(ctx, "POST /settings", func() error {
		return c.postSettings(ctx, rec)
	})
}

func (c *Client) postSettings(ctx context.Context, rec store.Record) error {
	form := url.Values{}
	for field, value := range rec.Fields() {
		form.Set(field, value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/settings", strings.NewReader(form.Encode()))
	if err != nil {
		return &PortalError{Type: ErrTypeNetwork, Message: "failed to create POST request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	_, err = c.do(req)
	return err
}

// Mismatches compares want against what the clock reports back.
func (c *Client) Mismatches(ctx context.Context, want store.Record) ([]string, error) {
	got, ok, err := c.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve settings for verification: %w", err)
	}
	if !ok {
		return []string{"no settings stored"}, nil
	}

	var mismatches []string
	for _, field := range store.Schema {
		if g, w := got.Get(field), want.Get(field); g != w {
			mismatches = append(mismatches, fmt.Sprintf("%s: expected %q, got %q", field, w, g))
		}
	}
	return mismatches, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, classifyNetworkError(req.Method+" request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyNetworkError("failed to read response body", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusBadRequest:
		return nil, &PortalError{Type: ErrTypeRejected, Message: strings.TrimSpace(string(body)), StatusCode: resp.StatusCode}
	default:
		return nil, &PortalError{
			Type:       ErrTypeHTTP,
			Message:    fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
			StatusCode: resp.StatusCode,
		}
	}
}

// retry runs attempt until it succeeds, fails with a non-retryable error,
// or MaxRetries is exhausted, backing off exponentially in between.
func (c *Client) retry(ctx context.Context, op string, attempt func() error) error {
	clock := c.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var lastErr error
	delay := c.RetryDelay
	for i := 0; i <= c.MaxRetries; i++ {
		if i > 0 {
			logging.Debug("Retrying portal request",
				zap.String("op", op),
				zap.Int("attempt", i+1),
				zap.Duration("delay", delay),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clock.After(delay):
			}
			delay *= 2
			if c.MaxRetryDelay > 0 && delay > c.MaxRetryDelay {
				delay = c.MaxRetryDelay
			}
		}

		lastErr = attempt()
		if lastErr == nil || !IsRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
