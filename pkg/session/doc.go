// Package session manages the anonymous browsing session required by the
// GraphQL endpoint: a cookie jar plus the csrf token scraped from a page
// loaded with that jar.
//
// Rotation decides when to replace the session: every N successes, after a
// short run of failures (refresh then retry the record once), and after a
// long run of failures (pause, refresh, reset).
package session
