// Package kickstarter provides a client for Kickstarter's undocumented web
// endpoints.
//
// This package includes:
//   - discovery pages (/discover/advanced.json) and project JSON, fetched
//     through the status-code retry policy of package retry
//   - HTML pages with a single-shot browser fallback
//   - the GraphQL project query, bound to a session cookie jar and token
//   - creator profile join dates
//
// Every attempt, retries included, waits for the shared rate limiter.
//
// Example usage:
//
//	client := kickstarter.NewClient(kickstarter.BaseURL, 30*time.Second, log,
//		kickstarter.WithLimiter(ratelimit.NewInterval(1)),
//		kickstarter.WithMaxRetries(3),
//	)
//	page, err := client.Discover(ctx, kickstarter.DiscoverQuery{Term: "AI", State: "live", Page: 1})
//	if err != nil {
//		switch errs.TypeOf(err) {
//		case errs.ErrorTypeBlocked:
//			// retries exhausted
//		case errs.ErrorTypeClient:
//			// non-retryable status
//		}
//	}
package kickstarter
