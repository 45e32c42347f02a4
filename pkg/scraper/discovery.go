package scraper

import (
	"context"

	"ksscraper/pkg/config"
	"ksscraper/pkg/discovery"
	"ksscraper/pkg/models"
)

// DiscoveryResult counts the outcome of a discovery run
type DiscoveryResult struct {
	Keys      int
	Skipped   int
	Completed int
	Abandoned int
	Added     int
}

// SearchKeys expands the search config into keys: every term in every
// state, once across all categories and once per configured category id
func SearchKeys(cfg config.SearchConfig) []models.SearchKey {
	var keys []models.SearchKey
	for _, term := range cfg.Terms {
		for _, state := range cfg.States {
			if cfg.SearchAllCategories || len(cfg.CategoryIDs) == 0 {
				keys = append(keys, models.SearchKey{Term: term, State: state})
			}
			for _, id := range cfg.CategoryIDs {
				keys = append(keys, models.SearchKey{Term: term, State: state, CategoryID: id})
			}
		}
	}
	return keys
}

// RunDiscovery paginates every search key the checkpoint does not list as
// done. A key is marked done only when its pagination completed; an
// abandoned key is logged and retried on the next run.
func (s *Scraper) RunDiscovery(ctx context.Context) (DiscoveryResult, error) {
	store, err := s.discoveryStore()
	if err != nil {
		return DiscoveryResult{}, err
	}

	keys := SearchKeys(s.config.Search)
	res := DiscoveryResult{Keys: len(keys)}

	s.logger.InfoWithFields("Starting discovery", map[string]interface{}{
		"keys":      len(keys),
		"completed": len(s.checkpointMgr.CompletedKeys()),
		"stored":    store.Count(),
	})

	paginator := discovery.NewPaginator(s.client, store, s.logger,
		discovery.WithProgress(s.checkpointMgr),
		discovery.WithPageDelay(s.config.Scraping.PageDelay),
		discovery.WithPerPage(s.config.Search.PerPage),
		discovery.WithSort(s.config.Search.Sort),
	)

	for _, key := range keys {
		token := key.String()
		if s.checkpointMgr.IsDone(token) {
			res.Skipped++
			s.logger.DebugWithFields("Search key already done", map[string]interface{}{"key": token})
			continue
		}

		pr, err := paginator.Paginate(ctx, key, s.config.Search.MaxPages)
		res.Added += pr.Added
		if err != nil {
			if ctx.Err() != nil {
				s.logDiscoveryResult("Discovery interrupted", res, store.Count())
				return res, ctx.Err()
			}
			res.Abandoned++
			s.logger.WithError(err).WithField("key", token).Error("Search key abandoned")
			continue
		}

		if pr.Complete {
			if err := s.checkpointMgr.MarkDone(token); err != nil {
				s.logger.WithError(err).WithField("key", token).Error("Failed to save checkpoint")
				return res, err
			}
			res.Completed++
		}
	}

	s.logDiscoveryResult("Discovery finished", res, store.Count())
	return res, nil
}

func (s *Scraper) logDiscoveryResult(msg string, res DiscoveryResult, stored int) {
	s.logger.InfoWithFields(msg, map[string]interface{}{
		"keys":      res.Keys,
		"skipped":   res.Skipped,
		"completed": res.Completed,
		"abandoned": res.Abandoned,
		"added":     res.Added,
		"stored":    stored,
	})
}
