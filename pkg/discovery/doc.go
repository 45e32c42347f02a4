// Package discovery paginates the search endpoint for one search key
// (term, state and optional category) and feeds every page into a
// deduplicating store.
package discovery
