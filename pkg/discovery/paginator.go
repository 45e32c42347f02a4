package discovery

import (
	"context"
	"fmt"
	"time"

	"ksscraper/pkg/kickstarter"
	"ksscraper/pkg/logger"
	"ksscraper/pkg/models"
	"ksscraper/pkg/retry"
)

// DefaultMaxFailures is the number of consecutive failed fetches after
// which a search key is abandoned for this run
const DefaultMaxFailures = 3

// Stop reasons reported in Result
const (
	StopEmptyPage = "empty_page"
	StopNoMore    = "has_more_false"
	StopTotalHits = "total_hits_reached"
	StopMaxPages  = "max_pages"
	StopFailures  = "consecutive_failures"
)

// Discoverer fetches one discovery page
type Discoverer interface {
	Discover(ctx context.Context, q kickstarter.DiscoverQuery) (*kickstarter.DiscoverResponse, error)
}

// Sink receives the records of each page
type Sink interface {
	AddMany(records []models.RawRecord) (int, error)
}

// Progress records the last page reached per key
type Progress interface {
	SetLastPage(key string, page int) error
}

// Result summarizes one pagination run
type Result struct {
	Key           string
	Pages         int
	Fetched       int
	Added         int
	ReportedTotal int
	Complete      bool
	StopReason    string
}

// Paginator walks the pages of a search key into a sink
type Paginator struct {
	client      Discoverer
	sink        Sink
	progress    Progress
	logger      logger.Logger
	pageDelay   time.Duration
	perPage     int
	sort        string
	maxFailures int
}

// Option configures a Paginator
type Option func(*Paginator)

// WithProgress records the last page reached of every key
func WithProgress(p Progress) Option {
	return func(pg *Paginator) { pg.progress = p }
}

// WithPageDelay sets the pause after every page except the last, and
// before retrying a failed page
func WithPageDelay(d time.Duration) Option {
	return func(pg *Paginator) { pg.pageDelay = d }
}

// WithPerPage sets the requested page size; 0 leaves it to the server
func WithPerPage(n int) Option {
	return func(pg *Paginator) { pg.perPage = n }
}

// WithSort sets the sort order
func WithSort(sort string) Option {
	return func(pg *Paginator) { pg.sort = sort }
}

// WithMaxFailures sets how many consecutive failures abandon a key
func WithMaxFailures(n int) Option {
	return func(pg *Paginator) {
		if n > 0 {
			pg.maxFailures = n
		}
	}
}

// NewPaginator creates a Paginator
func NewPaginator(client Discoverer, sink Sink, log logger.Logger, opts ...Option) *Paginator {
	if log == nil {
		log = logger.GetLogger()
	}
	p := &Paginator{
		client:      client,
		sink:        sink,
		logger:      log,
		sort:        "newest",
		maxFailures: DefaultMaxFailures,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Paginate fetches pages of key from page 1 until the result set is
// exhausted or maxPages (0 for no limit) pages were stored. The stop
// checks run in order: empty page, has_more false, running total at or
// above total_hits, page limit.
//
// A failed fetch is retried on the same page after the page delay. After
// maxFailures consecutive failures the key is abandoned: the result is
// not Complete and an error is returned. Cancellation returns ctx.Err()
// with the progress made so far.
func (p *Paginator) Paginate(ctx context.Context, key models.SearchKey, maxPages int) (Result, error) {
	res := Result{Key: key.String()}
	log := p.logger.WithField("key", res.Key)

	page := 1
	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		resp, err := p.client.Discover(ctx, kickstarter.DiscoverQuery{
			Term:       key.Term,
			CategoryID: key.CategoryID,
			State:      key.State,
			Sort:       p.sort,
			Page:       page,
			PerPage:    p.perPage,
		})
		if err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			failures++
			log.WithError(err).WithFields(map[string]interface{}{
				"page":     page,
				"failures": failures,
			}).Warn("Discovery page failed")

			if failures >= p.maxFailures {
				res.StopReason = StopFailures
				return res, fmt.Errorf("search key %s abandoned after %d consecutive failures: %w", res.Key, failures, err)
			}
			if err := retry.Wait(ctx, p.pageDelay); err != nil {
				return res, err
			}
			continue
		}
		failures = 0

		if len(resp.Projects) == 0 {
			res.Complete = true
			res.StopReason = StopEmptyPage
			break
		}

		added, err := p.sink.AddMany(resp.Projects)
		if err != nil {
			return res, fmt.Errorf("failed to store page %d of %s: %w", page, res.Key, err)
		}
		res.Pages = page
		res.Fetched += len(resp.Projects)
		res.Added += added
		res.ReportedTotal = resp.TotalHits
		logger.LogPageProgress(log, res.Key, page, added, res.Fetched, resp.TotalHits)

		if p.progress != nil {
			if err := p.progress.SetLastPage(res.Key, page); err != nil {
				log.WithError(err).Warn("Failed to record last page")
			}
		}

		if stop := stopReason(resp, res.Fetched, page, maxPages); stop != "" {
			res.Complete = true
			res.StopReason = stop
			break
		}

		if err := retry.Wait(ctx, p.pageDelay); err != nil {
			return res, err
		}
		page++
	}

	log.InfoWithFields("Search key finished", map[string]interface{}{
		"pages":       res.Pages,
		"fetched":     res.Fetched,
		"added":       res.Added,
		"stop_reason": res.StopReason,
	})
	return res, nil
}

func stopReason(resp *kickstarter.DiscoverResponse, fetched, page, maxPages int) string {
	switch {
	case resp.HasMore != nil && !*resp.HasMore:
		return StopNoMore
	case resp.TotalHits > 0 && fetched >= resp.TotalHits:
		return StopTotalHits
	case maxPages > 0 && page >= maxPages:
		return StopMaxPages
	}
	return ""
}
