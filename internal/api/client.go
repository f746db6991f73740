// Package api is the HTTP client for the facility backend.
//
// Client implements the user and service request repositories the effects
// layer depends on. Every call goes through do, which:
//   - waits on the outbound rate limiter
//   - attaches the bearer token from the configured oauth2.TokenSource
//   - retries 429 with exponential backoff, and transport errors and 5xx
//     for idempotent methods or when the request never left the client
//   - converts the final outcome into *Error
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/roach88/fmdesk/internal/obs"
)

// DefaultMaxRetries is the number of retries after the first attempt.
const DefaultMaxRetries = 3

// maxErrorBody caps how much of an error response is kept in *Error.
const maxErrorBody = 4 << 10

// Client talks to the facility API under baseURL + "/api/v1".
type Client struct {
	baseURL    string
	hc         *http.Client
	tokens     oauth2.TokenSource
	limiter    *rate.Limiter
	metrics    *obs.Metrics
	maxRetries uint64
	newBackOff func() backoff.BackOff
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// WithTokenSource authenticates every request with a bearer token.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithRateLimit caps outbound requests per second. Zero disables the limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithMetrics records request counts and latency.
func WithMetrics(m *obs.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRetry sets the retry budget and the first backoff interval.
func WithRetry(maxRetries uint64, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.newBackOff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = initial
			b.MaxInterval = 16 * initial
			b.MaxElapsedTime = 0
			return b
		}
	}
}

// New creates a Client. baseURL is the API origin, e.g. https://fm.example.com.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("api: base URL must be provided")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		hc:         &http.Client{Timeout: 30 * time.Second},
		maxRetries: DefaultMaxRetries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxElapsedTime = 0
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// do sends one logical request and returns the response body.
// in, when non-nil, is JSON-encoded as the request body.
func (c *Client) do(ctx context.Context, method, path string, in any) ([]byte, error) {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
	}

	route := obs.CanonicalPath(path)
	start := time.Now()
	var (
		body   []byte
		status int
	)

	attempt := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(&Error{Method: method, Path: path, Err: err})
			}
		}

		req, err := c.newRequest(ctx, method, path, payload)
		if err != nil {
			return backoff.Permanent(err)
		}
		var sent atomic.Bool
		req = req.WithContext(httptrace.WithClientTrace(req.Context(), &httptrace.ClientTrace{
			WroteRequest: func(httptrace.WroteRequestInfo) { sent.Store(true) },
		}))

		slog.Debug("api request", "method", method, "path", path)
		res, err := c.hc.Do(req)
		if err != nil {
			status = 0
			apiErr := &Error{Method: method, Path: path, Err: err}
			if ctx.Err() != nil || (sent.Load() && !idempotent(method)) {
				return backoff.Permanent(apiErr)
			}
			return apiErr
		}
		defer res.Body.Close()

		status = res.StatusCode
		data, err := io.ReadAll(res.Body)
		if err != nil {
			apiErr := &Error{Method: method, Path: path, Status: status, Err: err}
			if !idempotent(method) {
				return backoff.Permanent(apiErr)
			}
			return apiErr
		}

		if status >= 200 && status < 300 {
			body = data
			return nil
		}

		apiErr := &Error{Method: method, Path: path, Status: status, Body: truncate(data)}
		if status == http.StatusTooManyRequests || (apiErr.Retryable() && idempotent(method)) {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), c.maxRetries), ctx)
	err := backoff.RetryNotify(attempt, bo, func(err error, wait time.Duration) {
		slog.Warn("api request failed, retrying", "method", method, "path", path, "wait", wait, "error", err)
		c.metrics.ClientRetry(route)
	})
	c.metrics.ClientRequest(method, route, status, time.Since(start))
	if err != nil {
		return nil, err
	}
	return body, nil
}

// idempotent reports whether sending method twice has the same effect as
// sending it once. A POST the server may already have applied is not resent.
func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return nil, &Error{Method: method, Path: path, Status: http.StatusUnauthorized, Err: fmt.Errorf("access token: %w", err)}
		}
		tok.SetAuthHeader(req)
	}
	return req, nil
}

func truncate(b []byte) string {
	if len(b) > maxErrorBody {
		b = b[:maxErrorBody]
	}
	return strings.TrimSpace(string(b))
}
