// Package retry provides backoff strategies, a generic retry loop and the
// status-code policy used by the Kickstarter fetch layer.
//
// StatusPolicy.Decide is a pure function from one attempt's outcome to a
// Decision (Succeed, Retry with a delay, or Fail with a typed error), so the
// fetch loop never inspects error types to decide whether to retry:
//
//	policy := retry.DefaultStatusPolicy()
//	for attempt := 0; attempt < maxAttempts; attempt++ {
//		status, err := send()
//		d := policy.Decide(attempt, maxAttempts, retry.Attempt{Status: status, Err: err})
//		switch d.Verdict {
//		case retry.Succeed:
//			return nil
//		case retry.Fail:
//			return d.Err
//		}
//		if err := retry.Wait(ctx, d.Delay); err != nil {
//			return err
//		}
//	}
//
// Do runs an arbitrary operation under a Config with a BackoffStrategy and is
// used where the retry condition is not an HTTP status, such as obtaining an
// anti-forgery token.
package retry
