// Package transport issues authenticated HTTP requests to the GitHub
// API: bearer credential attachment, bounded retry with exponential
// backoff on transient failures, and rate-limit accounting after every
// response.
package transport

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hubview/hubview/pkg/config"
	"github.com/hubview/hubview/pkg/metrics"
	"github.com/hubview/hubview/pkg/rate"
)

// TokenSource is the external credential collaborator. The token is
// opaque to the transport.
type TokenSource interface {
	CurrentToken() string
}

// Request is an outbound API request. Header carries conditional
// validators and content negotiation; the transport adds credential
// and Accept defaults.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// RawResponse is the undecoded result of a transport call.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Transporter is what the response cache consumes.
type Transporter interface {
	Do(ctx context.Context, req *Request) (*RawResponse, error)
}

// Client is the production Transporter.
type Client struct {
	cfg    config.Transport
	http   *http.Client
	tokens TokenSource
	limits *rate.LimitState
	pacer  *rate.Pacer
	meter  metrics.Meter
}

func New(ctx context.Context, cfg config.Transport, tokens TokenSource, limits *rate.LimitState, meter metrics.Meter) *Client {
	var pacer *rate.Pacer
	if cfg.PaceRPS > 0 {
		pacer = rate.NewPacer(ctx, cfg.PaceRPS, cfg.PaceRPS)
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{},
		tokens: tokens,
		limits: limits,
		pacer:  pacer,
		meter:  meter,
	}
}

// Do performs the request. Failure modes: *AuthError on 401/403 (no
// retry), *RateLimitedError on 429 or an exhausted budget, and
// *NetworkError once the retry ceiling is hit. Every response, success
// or failure, feeds the shared rate-limit state.
func (c *Client) Do(ctx context.Context, req *Request) (*RawResponse, error) {
	if resume, exhausted := c.limits.ResumeAfter(time.Now()); exhausted {
		c.meter.RateLimited()
		return nil, &RateLimitedError{ResumeAfter: resume}
	}
	if c.pacer != nil && !c.pacer.Take(ctx) {
		return nil, &NetworkError{URL: req.URL, Err: ctx.Err()}
	}

	timer := c.meter.NewFetchTimer(req.Method)
	defer c.meter.FlushFetchTimer(timer)

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			c.meter.TransportRetry()
			select {
			case <-ctx.Done():
				return nil, &NetworkError{URL: req.URL, Err: ctx.Err()}
			case <-time.After(c.backoff(attempt)):
			}
		}

		resp, retryable, err := c.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, &NetworkError{URL: req.URL, Err: lastErr}
}

// attempt runs a single HTTP exchange under the per-request timeout.
// retryable is true only for transient network failures and retryable
// server statuses.
func (c *Client) attempt(ctx context.Context, req *Request) (resp *RawResponse, retryable bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, false, &NetworkError{URL: req.URL, Err: err}
	}
	for name, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(name, v)
		}
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/vnd.github+json")
	}
	httpReq.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if token := c.tokens.CurrentToken(); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.meter.TransportRequest(req.Method, "error")
		return nil, true, err
	}
	defer func() { _ = httpResp.Body.Close() }()

	// Success or failure, the budget headers are authoritative.
	c.limits.Update(httpResp.Header, time.Now())
	c.meter.TransportRequest(req.Method, strconv.Itoa(httpResp.StatusCode))

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized:
		return nil, false, &AuthError{StatusCode: httpResp.StatusCode, URL: req.URL}
	case httpResp.StatusCode == http.StatusForbidden:
		// A 403 with a drained budget is rate limiting, not a
		// credential problem.
		if resume, exhausted := c.limits.ResumeAfter(time.Now()); exhausted {
			c.meter.RateLimited()
			return nil, false, &RateLimitedError{ResumeAfter: resume}
		}
		return nil, false, &AuthError{StatusCode: httpResp.StatusCode, URL: req.URL}
	case httpResp.StatusCode == http.StatusTooManyRequests:
		c.meter.RateLimited()
		resume, _ := c.limits.ResumeAfter(time.Now())
		if resume <= 0 {
			resume = time.Minute
		}
		return nil, false, &RateLimitedError{ResumeAfter: resume}
	case httpResp.StatusCode == http.StatusBadGateway,
		httpResp.StatusCode == http.StatusServiceUnavailable,
		httpResp.StatusCode == http.StatusGatewayTimeout:
		return nil, true, errStatus(httpResp.StatusCode)
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, true, err
	}
	return &RawResponse{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       raw,
	}, false, nil
}

func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.BackoffBase << (attempt - 1)
	jitter := time.Duration(rand.Int63n(int64(c.cfg.BackoffBase)))
	log.Debug().Msgf("[transport] retry %d in %s", attempt, d+jitter)
	return d + jitter
}

type errStatus int

func (e errStatus) Error() string {
	return "upstream status " + strconv.Itoa(int(e))
}
