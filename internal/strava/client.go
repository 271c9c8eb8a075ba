// ABOUTME: Bearer-authenticated HTTP client for the Strava v3 API.
// ABOUTME: Retries 429 responses with exponential backoff; everything else fails fast.
package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// DefaultAPIBase is the production Strava API root.
const DefaultAPIBase = "https://www.strava.com/api/v3"

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = time.Second
	maxErrorBody          = 512
)

// Client talks to the Strava API. It holds no per-call state and is safe for
// concurrent use.
type Client struct {
	baseURL    string
	tokens     oauth2.TokenSource
	httpClient *http.Client
	logger     zerolog.Logger

	maxRetries     uint64
	initialBackoff time.Duration
	now            func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, e.g. for a test server.
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithRetry sets the rate-limit retry budget and first backoff interval.
// Intervals double after each retry.
func WithRetry(maxRetries int, initial time.Duration) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = uint64(maxRetries)
		}
		if initial > 0 {
			c.initialBackoff = initial
		}
	}
}

// WithClock overrides the clock used to reject future timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a Strava client that authenticates with tokens.
func NewClient(tokens oauth2.TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL:        DefaultAPIBase,
		tokens:         tokens,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         zerolog.Nop(),
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newBackOff builds the deterministic schedule initial, 2*initial, 4*initial, ...
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initialBackoff
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxInterval = c.initialBackoff << 10
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, c.maxRetries), ctx)
}

// getJSON performs a GET and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	attempt := 0
	operation := func() error {
		attempt++
		return c.get(ctx, path, params, out)
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn().
			Str("path", path).
			Int("attempt", attempt).
			Dur("wait", wait).
			Msg("strava rate limited, backing off")
	}

	err := backoff.RetryNotify(operation, c.newBackOff(ctx), notify)
	if err != nil {
		c.logger.Debug().Err(err).Str("path", path).Int("attempts", attempt).Msg("strava request failed")
	}
	return err
}

// get performs one attempt. Only rate-limit errors are returned unwrapped so
// the backoff policy retries them; everything else is permanent.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if c.tokens == nil {
		return backoff.Permanent(fmt.Errorf("%w: no credentials configured", ErrUnauthorized))
	}
	token, err := c.tokens.Token()
	if err != nil {
		return backoff.Permanent(fmt.Errorf("%w: obtain token: %v", ErrUnauthorized, err))
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("%w: GET %s: %w", ErrUpstreamStatus, path, err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: GET %s -> %s", ErrRateLimited, path, resp.Status)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return backoff.Permanent(fmt.Errorf("%w: GET %s -> %s", ErrUnauthorized, path, resp.Status))
	case resp.StatusCode == http.StatusNotFound:
		return backoff.Permanent(fmt.Errorf("%w: GET %s", ErrNotFound, path))
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return backoff.Permanent(fmt.Errorf("%w: GET %s -> %s: %s", ErrUpstreamStatus, path, resp.Status, string(body)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("%w: GET %s: read body: %w", ErrUpstreamStatus, path, err))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return backoff.Permanent(fmt.Errorf("%w: GET %s: %v", ErrUpstreamData, path, err))
	}
	return nil
}
