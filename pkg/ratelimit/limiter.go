package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for request pacing
type Limiter interface {
	// Allow reports whether a request may proceed now, consuming the grant if so
	Allow() bool
	// Wait blocks until the next grant or until ctx is done
	Wait(ctx context.Context) error
	// Reset forgets the previous grant
	Reset()
}

// Interval enforces a minimum spacing between grants across all callers.
// It is a token bucket of burst 1, so two grants are never closer than
// 1/rps however many goroutines call Wait.
type Interval struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	rps     float64
}

// NewInterval creates a limiter granting at most rps requests per second.
// A non-positive rps disables pacing.
func NewInterval(rps float64) *Interval {
	return &Interval{limiter: newRateLimiter(rps), rps: rps}
}

func newRateLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func (l *Interval) current() *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.limiter
}

// Allow checks if a request can proceed without waiting
func (l *Interval) Allow() bool {
	return l.current().Allow()
}

// Wait blocks until the minimum interval since the previous grant has elapsed
func (l *Interval) Wait(ctx context.Context) error {
	return l.current().Wait(ctx)
}

// Reset lets the next request through immediately
func (l *Interval) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiter = newRateLimiter(l.rps)
}

// MinInterval returns the enforced spacing, zero when pacing is disabled
func (l *Interval) MinInterval() time.Duration {
	if l.rps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / l.rps)
}
