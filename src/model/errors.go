// Package model defines the core data structures and errors shared by the
// client, cache, and stats packages.
package model

import (
	"errors"
	"fmt"
)

// Error kinds. Each failure class carries a distinct, stable message so
// scripts can branch on it.
var (
	// ErrAuth marks bad or expired credentials. Never recovered by retry.
	ErrAuth = errors.New("authentication failed")

	// ErrRateLimited marks a 429 that survived the retry budget.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrTransient marks timeouts, 5xx responses, and connection failures
	// that survived the retry budget.
	ErrTransient = errors.New("transient request failure")

	// ErrFatalRequest marks a non-retryable 4xx (other than 401/429).
	ErrFatalRequest = errors.New("request rejected")

	// ErrMissingCredentials is returned when neither the environment nor the
	// config file provide an API key pair.
	ErrMissingCredentials = errors.New("missing credentials: set IDEALISTA_API_KEY and IDEALISTA_API_SECRET or run 'idealista config set'")

	// ErrInvalidQuery marks a search query that fails validation.
	ErrInvalidQuery = errors.New("invalid search query")
)

// RequestError describes a failed HTTP call, tagged with the attempt count
// that observed it.
type RequestError struct {
	Status   int    // HTTP status, 0 for network errors
	Attempts int    // attempts made when the error surfaced
	URL      string
	Body     string // truncated response body, may be empty
	Kind     error  // one of the error kinds above
	Err      error  // underlying transport error, if any
}

func (e *RequestError) Error() string {
	msg := e.Kind.Error()
	if e.Status > 0 {
		msg = fmt.Sprintf("%s: HTTP %d calling %s", msg, e.Status, e.URL)
	} else if e.URL != "" {
		msg = fmt.Sprintf("%s: calling %s", msg, e.URL)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Attempts > 1 {
		msg = fmt.Sprintf("%s (after %d attempts)", msg, e.Attempts)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	return msg
}

// Is reports whether target matches this error's kind, so callers can use
// errors.Is(err, model.ErrRateLimited) and friends.
func (e *RequestError) Is(target error) bool {
	return target == e.Kind
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
