package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "ksscraper/pkg/errors"
	"ksscraper/pkg/logger"
)

// Config controls Do
type Config struct {
	// Attempts bounds the number of calls; zero or less means no bound
	Attempts int
	Backoff  BackoffStrategy
	// RetryIf reports whether err is worth another attempt. Defaults to
	// Retryable.
	RetryIf func(error) bool
	// OnRetry runs before each wait
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// Retryable retries anything except cancellation and typed errors of a
// non-retryable kind
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return errs.IsRetryable(e.Type)
	}
	return true
}

// Do calls op until it succeeds, RetryIf rejects its error or the attempts
// run out. op receives the 1-based attempt number. No delay follows the
// final attempt, and a cancelled ctx ends the loop with ctx.Err() wrapped.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context, attempt int) error) error {
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = Retryable
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var lastErr error
	attempt := 0
	for cfg.Attempts <= 0 || attempt < cfg.Attempts {
		attempt++
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			if attempt > 1 {
				log.DebugWithFields("Succeeded after retry", map[string]interface{}{"attempt": attempt})
			}
			return nil
		}
		if !retryIf(lastErr) {
			return lastErr
		}
		if attempt == cfg.Attempts {
			break
		}

		var delay time.Duration
		if cfg.Backoff != nil {
			delay = cfg.Backoff.NextDelay(attempt)
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, lastErr, delay)
		}
		log.WithError(lastErr).WithFields(map[string]interface{}{
			"attempt":  attempt,
			"attempts": cfg.Attempts,
			"wait":     delay,
		}).Debug("Retrying")

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", attempt, lastErr)
}

// DoValue is Do for operations that produce a value
func DoValue[T any](ctx context.Context, cfg Config, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var out T
	err := Do(ctx, cfg, func(ctx context.Context, attempt int) error {
		v, err := op(ctx, attempt)
		if err == nil {
			out = v
		}
		return err
	})
	return out, err
}
