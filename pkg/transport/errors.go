package transport

import (
	"fmt"
	"time"
)

// NetworkError is a transient failure: the request may succeed if
// retried later. The transport has already exhausted its own retry
// budget by the time one surfaces.
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network failure on %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthError means the current token was rejected (401/403). It is
// fatal for the token and never retried automatically.
type AuthError struct {
	StatusCode int
	URL        string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication rejected (%d) on %s", e.StatusCode, e.URL)
}

// RateLimitedError means the request budget is exhausted. ResumeAfter
// is how long the caller should wait before trying again; whether to
// wait is a caller decision.
type RateLimitedError struct {
	ResumeAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, resume after %s", e.ResumeAfter)
}
