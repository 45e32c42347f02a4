// Package ratelimit paces outgoing requests.
//
// Interval grants at most one request per 1/rps seconds across every caller
// sharing the instance. It is built on golang.org/x/time/rate with a burst of
// one, which makes the wait-then-stamp sequence atomic under concurrency.
//
//	limiter := ratelimit.NewInterval(cfg.Scraping.RateLimitRPS)
//	if err := limiter.Wait(ctx); err != nil {
//		return err // context cancelled
//	}
//
// Every fetch attempt, retries included, takes one grant.
package ratelimit
