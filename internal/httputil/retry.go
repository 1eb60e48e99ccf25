// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the external API clients.
package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrRetriesExhausted is returned when every attempt allowed by a Policy
// failed with a retryable condition.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Policy bounds the retry loop of Do. Zero fields take the defaults.
type Policy struct {
	// MaxAttempts is the total number of requests sent, including the first (default 3).
	MaxAttempts int

	// RateLimitCooldown is slept after an HTTP 429 response (default 60s).
	RateLimitCooldown time.Duration

	// RetryDelay is slept after a transport error or 5xx response (default 5s).
	RetryDelay time.Duration
}

// DefaultPolicy matches the Semantic Scholar contract: three attempts, a
// one-minute cooldown on 429 and a five-second pause on transient failures.
var DefaultPolicy = Policy{
	MaxAttempts:       3,
	RateLimitCooldown: 60 * time.Second,
	RetryDelay:        5 * time.Second,
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.RateLimitCooldown <= 0 {
		p.RateLimitCooldown = DefaultPolicy.RateLimitCooldown
	}
	if p.RetryDelay <= 0 {
		p.RetryDelay = DefaultPolicy.RetryDelay
	}
	return p
}

// Do executes req and retries on HTTP 429, HTTP 5xx, and transport errors.
// A 429 waits the fixed RateLimitCooldown; other failures wait RetryDelay.
//
// Requests with a body must set GetBody (http.NewRequest does for bytes,
// strings and byte readers) so every attempt resends it.
//
// Any other status (including 4xx) is returned to the caller unchanged. When
// all attempts fail the returned error wraps ErrRetriesExhausted and the last
// cause. Context cancellation during a wait returns ctx.Err().
func Do(ctx context.Context, client *http.Client, req *http.Request, p Policy) (*http.Response, error) {
	p = p.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, fmt.Errorf("rewinding request body: %w", err)
			}
			attemptReq.Body = body
		}
		resp, err := client.Do(attemptReq)

		var wait time.Duration
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			wait = p.RetryDelay
		case resp.StatusCode == http.StatusTooManyRequests:
			drain(resp)
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			wait = p.RateLimitCooldown
		case resp.StatusCode >= http.StatusInternalServerError:
			drain(resp)
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			wait = p.RetryDelay
		default:
			return resp, nil
		}

		if attempt == p.MaxAttempts {
			break
		}
		slog.Debug("retrying request", "url", req.URL.Redacted(), "attempt", attempt, "wait", wait, "error", lastErr)
		if err := Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%s %s: %w after %d attempts: %v",
		req.Method, req.URL.Redacted(), ErrRetriesExhausted, p.MaxAttempts, lastErr)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
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

func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
