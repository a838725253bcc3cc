// Package apiclient is an authenticated HTTP client for the application
// tracker API. Every call is retried with linear backoff and re-reads the
// bearer token before each attempt.
package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const maxErrorBody = 4 << 10

// RetryPolicy bounds the attempts of a single call. The wait before retry n+1
// is BaseDelay*n.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultRetryPolicy is used when no policy is configured.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: 300 * time.Millisecond}

// Delay returns the wait after the given failed attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay * time.Duration(attempt)
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// TokenProvider supplies the current bearer token. ok is false when the
// caller is signed out.
type TokenProvider interface {
	CurrentBearerToken(ctx context.Context) (token string, ok bool)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, bool)

func (f TokenFunc) CurrentBearerToken(ctx context.Context) (string, bool) { return f(ctx) }

// Request describes one logical call. Body is sent verbatim on every attempt.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
	// IdempotencyKey, when set, is sent on every attempt so the server can
	// collapse retried writes.
	IdempotencyKey string
}

// Response is a successful (2xx) reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithSleep replaces the backoff wait. Intended for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// Client calls the tracker API on behalf of the signed-in principal.
type Client struct {
	baseURL string
	tokens  TokenProvider
	http    *http.Client
	policy  RetryPolicy
	log     zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func New(baseURL string, tokens TokenProvider, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		http:    &http.Client{Timeout: 30 * time.Second},
		policy:  DefaultRetryPolicy,
		log:     zerolog.Nop(),
		sleep:   sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the retry policy used by the typed calls.
func (c *Client) Policy() RetryPolicy { return c.policy }

// Do performs req, retrying any network error or non-2xx status until policy
// is exhausted. The error is always a *TransportFailure describing the last
// attempt. Cancelling ctx stops further attempts.
func (c *Client) Do(ctx context.Context, req *Request, policy RetryPolicy) (*Response, error) {
	maxAttempts := policy.attempts()
	var last *TransportFailure

	for attempt := 1; ; attempt++ {
		resp, failure := c.attempt(ctx, req)
		if failure == nil {
			return resp, nil
		}
		failure.Attempts = attempt
		last = failure

		if attempt >= maxAttempts {
			break
		}

		delay := policy.Delay(attempt)
		c.log.Debug().
			Str("method", req.Method).
			Str("path", req.Path).
			Int("attempt", attempt).
			Str("status", failure.Status()).
			Dur("backoff", delay).
			Msg("request failed, retrying")

		if err := c.sleep(ctx, delay); err != nil {
			break
		}
	}

	c.log.Warn().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("attempts", last.Attempts).
		Str("status", last.Status()).
		Msg("request failed")
	return nil, last
}

func (c *Client) attempt(ctx context.Context, req *Request) (*Response, *TransportFailure) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, &TransportFailure{Kind: KindNetwork, Cause: fmt.Errorf("build request: %w", err)}
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}
	if c.tokens != nil {
		if token, ok := c.tokens.CurrentBearerToken(ctx); ok {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &TransportFailure{Kind: KindNetwork, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &TransportFailure{
			Kind:       KindHTTP,
			HTTPStatus: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportFailure{Kind: KindNetwork, Cause: fmt.Errorf("read body: %w", err)}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
