// Package client talks to the advice gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"strategist/pkg/advice"
)

const (
	StrategyPath      = "/api/strategy"
	UnlockPath        = "/api/unlock"
	DefaultTimeout    = 15 * time.Second
	DefaultRetries    = 2
	DefaultRetryDelay = 1500 * time.Millisecond
)

// Client fetches advice from the gateway. It is safe for concurrent use.
type Client struct {
	baseURL    string
	http       *http.Client
	timeout    time.Duration
	retries    int
	retryDelay time.Duration
	log        *slog.Logger

	mu    sync.Mutex
	token string

	// sleep waits between attempts; replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithTimeout bounds every single attempt.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithRetries sets how many extra attempts follow an overload signal.
// Zero disables retrying.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.retries = n
	}
}

func WithRetryDelay(d time.Duration) Option { return func(c *Client) { c.retryDelay = d } }

// WithToken authenticates with a session token from Unlock instead of
// relying on the password alone.
func WithToken(token string) Option { return func(c *Client) { c.token = token } }

func WithLogger(l *slog.Logger) Option { return func(c *Client) { c.log = l } }

// New builds a client for the gateway at baseURL, e.g. "http://localhost:8888".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{},
		timeout:    DefaultTimeout,
		retries:    DefaultRetries,
		retryDelay: DefaultRetryDelay,
		log:        slog.Default(),
		sleep:      sleepContext,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// FetchAdvice validates the query locally, then asks the gateway. Only an
// overload signal is retried; every other failure surfaces immediately.
func (c *Client) FetchAdvice(ctx context.Context, query, password string) (*advice.StrategyAdvice, error) {
	req := advice.Request{Query: query, Password: password}
	if c.Token() != "" && password == "" {
		// the token stands in for the password
		if strings.TrimSpace(query) == "" {
			return nil, advice.ErrEmptyQuery
		}
	} else if err := req.Validate(); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		result, err := c.attempt(ctx, payload)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, advice.ErrUpstreamOverloaded) || attempt >= c.retries {
			return nil, err
		}
		c.log.Warn("strategist overloaded, retrying", "attempt", attempt+1, "of", c.retries, "delay", c.retryDelay)
		if err := c.sleep(ctx, c.retryDelay); err != nil {
			return nil, err
		}
	}
}

func (c *Client) attempt(ctx context.Context, payload []byte) (*advice.StrategyAdvice, error) {
	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodPost, c.baseURL+StrategyPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, actx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.transportError(ctx, actx, err)
	}
	if renewed := resp.Header.Get("X-New-Token"); renewed != "" {
		c.setToken(renewed)
		c.log.Debug("gateway renewed session token")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, data)
	}

	var result advice.StrategyAdvice
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", advice.ErrUpstream, err)
	}
	return &result, nil
}

// Token returns the session token currently in use, if any.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

func (c *Client) setToken(t string) {
	c.mu.Lock()
	c.token = t
	c.mu.Unlock()
}

// transportError tells our own attempt timeout apart from the caller
// giving up.
func (c *Client) transportError(parent, attempt context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(attempt.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: no response within %s", advice.ErrTimeout, c.timeout)
	}
	return fmt.Errorf("%w: %v", advice.ErrNetwork, err)
}

type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func statusError(status int, body []byte) error {
	var env errorEnvelope
	_ = json.Unmarshal(body, &env)
	msg := env.Error
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = fmt.Sprintf("Server error: %d", status)
	}

	var kind error
	switch status {
	case http.StatusUnauthorized:
		kind = advice.ErrUnauthorized
	case http.StatusBadRequest:
		kind = advice.ErrBadRequest
	case http.StatusMethodNotAllowed:
		kind = advice.ErrMethodNotAllowed
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		kind = advice.ErrUpstreamOverloaded
	default:
		switch {
		case env.Code != "":
			kind = advice.FromCode(env.Code)
		case strings.Contains(msg, "API Key"), strings.Contains(msg, "API_KEY"):
			kind = advice.ErrConfiguration
		default:
			kind = advice.ErrUpstream
		}
	}
	return fmt.Errorf("%w: %s", kind, msg)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
