package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/apimgr/idealista/src/model"
)

// Default retry policy values.
const (
	DefaultMaxAttempts   = 3
	DefaultBaseDelay     = 1 * time.Second
	DefaultMaxDelay      = 30 * time.Second
	DefaultRetryAfterMax = 2 * time.Minute
)

// SleepFunc waits for d or until ctx is done. Tests inject a recorder.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryPolicy bounds the retry loop of a single logical request.
// MaxAttempts is the total attempt count, so MaxAttempts=3 means at most
// three HTTP calls.
type RetryPolicy struct {
	MaxAttempts   int
	BaseDelay     time.Duration // first backoff delay, doubled per attempt
	MaxDelay      time.Duration // backoff cap
	RetryAfterMax time.Duration // cap on honoring a Retry-After header
	Sleep         SleepFunc     // nil means a real context-aware sleep
}

// DefaultRetryPolicy returns the standard policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   DefaultMaxAttempts,
		BaseDelay:     DefaultBaseDelay,
		MaxDelay:      DefaultMaxDelay,
		RetryAfterMax: DefaultRetryAfterMax,
	}
}

// WithAttempts returns a copy of the policy with MaxAttempts replaced.
func (p RetryPolicy) WithAttempts(n int) RetryPolicy {
	p.MaxAttempts = n
	return p
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

func (p RetryPolicy) baseDelay() time.Duration {
	if p.BaseDelay <= 0 {
		return DefaultBaseDelay
	}
	return p.BaseDelay
}

func (p RetryPolicy) maxDelay() time.Duration {
	if p.MaxDelay <= 0 {
		return DefaultMaxDelay
	}
	return p.MaxDelay
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

const maxErrorBody = 500

// execute performs one logical HTTP call under the client's retry policy.
// The request is rebuilt per attempt via build, since bodies are one-shot
// readers. Responses are classified:
//
//	2xx                    success, body returned
//	401                    auth error, surfaced immediately for re-auth
//	429, 5xx, network      retryable with exponential backoff; a parseable
//	                       Retry-After header overrides the backoff delay
//	other 4xx              fatal, no retry
func (c *Client) execute(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	policy := c.policy
	attempts := policy.attempts()
	delay := policy.baseDelay()

	var lastErr *model.RequestError

	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		elapsed := time.Since(start)

		if err != nil {
			lastErr = &model.RequestError{
				Attempts: attempt,
				URL:      req.URL.String(),
				Kind:     model.ErrTransient,
				Err:      err,
			}
			c.logger.Warn("http request failed",
				"method", req.Method, "url", req.URL.String(),
				"attempt", attempt, "duration_ms", elapsed.Milliseconds(), "error", err)
			if attempt < attempts {
				if err := policy.sleep(ctx, delay); err != nil {
					return nil, err
				}
				delay = nextDelay(delay, policy.maxDelay())
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		c.logger.Debug("http request",
			"method", req.Method, "url", req.URL.String(),
			"status", resp.StatusCode, "attempt", attempt,
			"duration_ms", elapsed.Milliseconds())

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if readErr != nil {
				lastErr = &model.RequestError{
					Status:   resp.StatusCode,
					Attempts: attempt,
					URL:      req.URL.String(),
					Kind:     model.ErrTransient,
					Err:      readErr,
				}
				break
			}
			return body, nil

		case resp.StatusCode == http.StatusUnauthorized:
			return nil, &model.RequestError{
				Status:   resp.StatusCode,
				Attempts: attempt,
				URL:      req.URL.String(),
				Body:     truncate(body, maxErrorBody),
				Kind:     model.ErrAuth,
			}

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			kind := model.ErrTransient
			if resp.StatusCode == http.StatusTooManyRequests {
				kind = model.ErrRateLimited
			}
			lastErr = &model.RequestError{
				Status:   resp.StatusCode,
				Attempts: attempt,
				URL:      req.URL.String(),
				Body:     truncate(body, maxErrorBody),
				Kind:     kind,
			}
			c.logger.Warn("http request retryable failure",
				"method", req.Method, "url", req.URL.String(),
				"status", resp.StatusCode, "attempt", attempt)
			if attempt < attempts {
				wait := delay
				if ra := retryAfter(resp.Header, policy.retryAfterMax()); ra > 0 {
					wait = ra
				}
				if err := policy.sleep(ctx, wait); err != nil {
					return nil, err
				}
				delay = nextDelay(delay, policy.maxDelay())
			}
			continue

		default:
			return nil, &model.RequestError{
				Status:   resp.StatusCode,
				Attempts: attempt,
				URL:      req.URL.String(),
				Body:     truncate(body, maxErrorBody),
				Kind:     model.ErrFatalRequest,
			}
		}

		// Body read failed on a 2xx; retry like a network error.
		if attempt < attempts {
			if err := policy.sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay = nextDelay(delay, policy.maxDelay())
		}
	}

	return nil, lastErr
}

func (p RetryPolicy) retryAfterMax() time.Duration {
	if p.RetryAfterMax <= 0 {
		return DefaultRetryAfterMax
	}
	return p.RetryAfterMax
}

func nextDelay(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}

// retryAfter parses an integer-seconds Retry-After header, capped at max.
// Unparseable or absent values return 0.
func retryAfter(h http.Header, max time.Duration) time.Duration {
	v := h.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > max {
		return max
	}
	return d
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}
