package kickstarter

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// BaseURL is the default site root
	BaseURL = "https://www.kickstarter.com"

	// DiscoverEndpoint is the search endpoint returning JSON pages
	DiscoverEndpoint = "/discover/advanced.json"

	// ProjectEndpoint is the project JSON pattern, keyed by slug
	ProjectEndpoint = "/projects/%s.json"

	// GraphEndpoint is the GraphQL endpoint
	GraphEndpoint = "/graph"

	// ProfileEndpoint is the creator profile page pattern
	ProfileEndpoint = "/profile/%s"

	// StateAll disables the state filter
	StateAll = "all"
)

// DiscoverQuery holds the parameters of one discovery page request
type DiscoverQuery struct {
	Term       string
	CategoryID int
	State      string
	Sort       string
	Page       int
	PerPage    int
}

// Values encodes the query. Sort and page are always sent; term,
// category and state only when set, and state "all" is omitted.
func (q DiscoverQuery) Values() url.Values {
	params := url.Values{}
	sort := q.Sort
	if sort == "" {
		sort = "newest"
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	params.Set("sort", sort)
	params.Set("page", strconv.Itoa(page))
	if q.Term != "" {
		params.Set("term", q.Term)
	}
	if q.CategoryID > 0 {
		params.Set("category_id", strconv.Itoa(q.CategoryID))
	}
	if q.State != "" && q.State != StateAll {
		params.Set("state", q.State)
	}
	if q.PerPage > 0 {
		params.Set("per_page", strconv.Itoa(q.PerPage))
	}
	return params
}

// DiscoverURL builds the discovery URL for a query
func DiscoverURL(base string, q DiscoverQuery) string {
	return fmt.Sprintf("%s%s?%s", strings.TrimRight(base, "/"), DiscoverEndpoint, q.Values().Encode())
}

// ProjectURL builds the project JSON URL for a slug
func ProjectURL(base, slug string) string {
	return strings.TrimRight(base, "/") + fmt.Sprintf(ProjectEndpoint, url.PathEscape(slug))
}

// ProjectPageURL builds the public project page URL, used to seed sessions
func ProjectPageURL(base, slug string) string {
	return strings.TrimRight(base, "/") + "/projects/" + url.PathEscape(slug)
}

// GraphURL builds the GraphQL URL
func GraphURL(base string) string {
	return strings.TrimRight(base, "/") + GraphEndpoint
}

// ProfileURL builds a creator profile URL
func ProfileURL(base, creatorSlug string) string {
	if creatorSlug == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + fmt.Sprintf(ProfileEndpoint, url.PathEscape(creatorSlug))
}
