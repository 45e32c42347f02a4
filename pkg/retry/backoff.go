package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy maps a 1-based attempt number to the delay taken after it
type BackoffStrategy interface {
	NextDelay(attempt int) time.Duration
}

// BackoffFunc adapts a plain function to BackoffStrategy
type BackoffFunc func(attempt int) time.Duration

// NextDelay calls f
func (f BackoffFunc) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f(attempt)
}

// Constant waits d after every attempt
func Constant(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff grows as Base * Multiplier^(attempt-1), capped at Max
// when Max is positive. Jitter spreads each delay by up to ±Jitter of itself.
type ExponentialBackoff struct {
	Base       time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// Doubling is an ExponentialBackoff without jitter that doubles from base
// and stops at limit
func Doubling(base, limit time.Duration) *ExponentialBackoff {
	return &ExponentialBackoff{Base: base, Max: limit, Multiplier: 2}
}

// NextDelay returns the delay after attempt
func (b *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 || b.Base <= 0 {
		return 0
	}

	m := b.Multiplier
	if m <= 0 {
		m = 2
	}
	d := float64(b.Base) * math.Pow(m, float64(attempt-1))
	if b.Max > 0 {
		d = math.Min(d, float64(b.Max))
	}
	if b.Jitter > 0 {
		d += d * b.Jitter * (2*rand.Float64() - 1)
	}
	return time.Duration(math.Max(d, 0))
}

// Wait sleeps for delay unless ctx ends first. A non-positive delay only
// reports whether ctx is already done.
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
