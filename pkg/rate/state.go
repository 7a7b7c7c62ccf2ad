// Package rate tracks the GitHub rate-limit budget and paces outbound
// requests. LimitState is the process-wide view of the remote budget,
// fed from response headers; Pacer is a local token bucket smoothing
// request bursts.
package rate

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Snapshot is an immutable view of the rate-limit state.
type Snapshot struct {
	Limit     int
	Remaining int
	Reset     time.Time
	// RetryAfter is the explicit server-dictated resume point from a
	// Retry-After header; zero when none was seen.
	RetryAfter time.Time
}

// LimitState is the shared rate-limit handle updated after every
// transport call and consulted before issuing new ones. Updates are
// serialized under the mutex (single writer at a time); readers take
// snapshots.
type LimitState struct {
	mu   sync.Mutex
	snap Snapshot
}

func NewLimitState() *LimitState {
	return &LimitState{snap: Snapshot{Remaining: -1}}
}

// Update absorbs the rate-limit headers of one response. Missing
// headers leave the corresponding fields untouched, so an unrelated
// endpoint cannot erase a known budget.
func (s *LimitState) Update(header http.Header, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := header.Get("X-RateLimit-Limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.snap.Limit = n
		}
	}
	if v := header.Get("X-RateLimit-Remaining"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			s.snap.Remaining = n
		}
	}
	if v := header.Get("X-RateLimit-Reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil {
			s.snap.Reset = time.Unix(unix, 0)
		}
	}
	if v := header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			s.snap.RetryAfter = now.Add(time.Duration(secs) * time.Second)
		}
	}
}

// Snapshot returns the current state.
func (s *LimitState) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// ResumeAfter reports how long callers must hold off before the next
// request, and whether they must hold off at all. The budget counts as
// exhausted when the server said Retry-After, or when Remaining hit
// zero and the reset point is still ahead.
func (s *LimitState) ResumeAfter(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.snap.RetryAfter.IsZero() && now.Before(s.snap.RetryAfter) {
		return s.snap.RetryAfter.Sub(now), true
	}
	if s.snap.Remaining == 0 && now.Before(s.snap.Reset) {
		return s.snap.Reset.Sub(now), true
	}
	return 0, false
}
