// Package ratelimit models the per-window request quota reported by the wiki API.
package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"
)

// Response headers carrying the rate-limit window.
const (
	HeaderRemaining = "X-RateLimit-Remaining"
	HeaderReset     = "X-RateLimit-Reset"
	HeaderLimit     = "X-RateLimit-Limit"
)

// ErrRateLimited matches every ExceededError.
var ErrRateLimited = errors.New("rate limit exceeded")

// Snapshot is the rate-limit state attached to a single API response.
type Snapshot struct {
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// ParseHeaders extracts a Snapshot from response headers.
// Missing or malformed values leave the corresponding field zero.
func ParseHeaders(h http.Header) Snapshot {
	var s Snapshot
	if v, err := strconv.Atoi(h.Get(HeaderRemaining)); err == nil {
		s.Remaining = v
	}
	if v, err := strconv.Atoi(h.Get(HeaderLimit)); err == nil {
		s.Limit = v
	}
	if v, err := strconv.ParseFloat(h.Get(HeaderReset), 64); err == nil && v > 0 {
		sec, frac := math.Modf(v)
		s.ResetAt = time.Unix(int64(sec), int64(frac*float64(time.Second)))
	}
	return s
}

// HasWindow reports whether the snapshot carries a reset time.
func (s Snapshot) HasWindow() bool {
	return !s.ResetAt.IsZero()
}

// Wait spreads the remaining budget evenly over the time left in the window:
// ceil((reset - now) / remaining) seconds. Remaining is floored at 1. A window
// that already reset, or a snapshot without one, yields zero.
func (s Snapshot) Wait(now time.Time) time.Duration {
	if !s.HasWindow() {
		return 0
	}
	left := s.ResetAt.Sub(now).Seconds()
	if left <= 0 {
		return 0
	}
	remaining := s.Remaining
	if remaining < 1 {
		remaining = 1
	}
	return time.Duration(math.Ceil(left/float64(remaining))) * time.Second
}

// String implements fmt.Stringer.
func (s Snapshot) String() string {
	return fmt.Sprintf("remaining %d / %d", s.Remaining, s.Limit)
}

// ExceededError is returned when the API answers 429 Too Many Requests.
type ExceededError struct {
	Snapshot Snapshot
	Message  string
}

// Error implements error.
func (e *ExceededError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (%s): %s", ErrRateLimited, e.Snapshot, e.Message)
	}
	return fmt.Sprintf("%s (%s)", ErrRateLimited, e.Snapshot)
}

// Is lets errors.Is match ErrRateLimited.
func (e *ExceededError) Is(target error) bool {
	return target == ErrRateLimited
}
