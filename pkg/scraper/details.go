package scraper

import (
	"context"
	"fmt"
	"time"

	"dario.cat/mergo"
	"ksscraper/pkg/config"
	errs "ksscraper/pkg/errors"
	"ksscraper/pkg/kickstarter"
	"ksscraper/pkg/models"
	"ksscraper/pkg/parser"
	"ksscraper/pkg/relevance"
	"ksscraper/pkg/retry"
	"ksscraper/pkg/session"
	"ksscraper/pkg/storage"
)

// DetailResult counts the outcome of a detail run
type DetailResult struct {
	Pending  int
	Enriched int
	Failed   int
	// Interrupted is set when the run stopped on cancellation
	Interrupted bool
}

// RunDetails enriches every discovery record that has no detail record.
// With rescrape the detail log is backed up and emptied first. Failing to
// obtain a session aborts the run; a failed record is skipped and retried
// on the next run. Cancellation stops at the record boundary and returns
// ctx.Err() with the counts reached so far.
func (s *Scraper) RunDetails(ctx context.Context, rescrape bool) (DetailResult, error) {
	if rescrape {
		if err := s.resetDetails(); err != nil {
			return DetailResult{}, err
		}
	}

	disc, err := s.discoveryStore()
	if err != nil {
		return DetailResult{}, err
	}
	details, err := s.detailStore()
	if err != nil {
		return DetailResult{}, err
	}

	records, err := disc.LoadAll()
	if err != nil {
		return DetailResult{}, fmt.Errorf("failed to load discovery records: %w", err)
	}
	pending := s.pendingDetails(records, details)
	res := DetailResult{Pending: len(pending)}

	s.logger.InfoWithFields("Starting detail enrichment", map[string]interface{}{
		"mode":     detailMode(s.config),
		"pending":  len(pending),
		"stored":   details.Count(),
		"rescrape": rescrape,
	})
	if len(pending) == 0 {
		return res, nil
	}

	if detailMode(s.config) == config.DetailModeJSON {
		err = s.runJSONDetails(ctx, pending, details, &res)
	} else {
		err = s.runGraphDetails(ctx, pending, details, &res)
	}

	fields := map[string]interface{}{
		"pending":  res.Pending,
		"enriched": res.Enriched,
		"failed":   res.Failed,
		"stored":   details.Count(),
	}
	if err != nil && ctx.Err() != nil {
		res.Interrupted = true
		s.logger.WarnWithFields("Detail enrichment interrupted", fields)
		return res, ctx.Err()
	}
	if err != nil {
		s.logger.WithError(err).WithFields(fields).Error("Detail enrichment aborted")
		return res, err
	}
	s.logger.InfoWithFields("Detail enrichment finished", fields)
	return res, nil
}

// pendingDetails returns the records without a detail record, in log order.
// With only_relevant set, records scoring below the threshold on name and
// blurb alone are left out.
func (s *Scraper) pendingDetails(records []models.RawRecord, details *storage.Store) []models.RawRecord {
	var out []models.RawRecord
	for _, rec := range records {
		id, ok := rec.ID()
		if !ok || details.Has(id) {
			continue
		}
		if s.config.Detail.OnlyRelevant {
			score := relevance.Score(rec.String("name"), rec.String("blurb"), "")
			if score < s.config.Filtering.MinRelevanceScore {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

// runJSONDetails merges each project JSON document into its discovery
// record. The detail values win.
func (s *Scraper) runJSONDetails(ctx context.Context, pending []models.RawRecord, details *storage.Store, res *DetailResult) error {
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		slug := rec.Slug()
		log := s.logger.WithField("slug", slug)
		detail, err := s.client.GetProject(ctx, slug)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.Failed++
			log.WithError(err).Warn("Project detail fetch failed")
			continue
		}

		merged := models.RawRecord{}
		for k, v := range rec {
			merged[k] = v
		}
		if err := mergo.Merge(&merged, detail, mergo.WithOverride); err != nil {
			res.Failed++
			log.WithError(err).Warn("Project detail merge failed")
			continue
		}

		if _, err := details.Add(merged); err != nil {
			return fmt.Errorf("failed to store detail for %s: %w", slug, err)
		}
		res.Enriched++

		if err := retry.Wait(ctx, s.config.Detail.RecordDelay); err != nil {
			return err
		}
	}
	return nil
}

// runGraphDetails fetches detail records through GraphQL with a rotating
// session. Consecutive failures escalate per session.Rotation.
func (s *Scraper) runGraphDetails(ctx context.Context, pending []models.RawRecord, details *storage.Store, res *DetailResult) error {
	seed := kickstarter.ProjectPageURL(s.client.BaseURL(), pending[0].Slug())
	sess, err := s.sessions.Establish(ctx, seed)
	if err != nil {
		return fmt.Errorf("failed to establish session: %w", err)
	}

	rot := session.NewRotation(s.config.Detail.CSRFRefreshInterval)
	refresh := func(rec models.RawRecord) error {
		seed := kickstarter.ProjectPageURL(s.client.BaseURL(), rec.Slug())
		next, err := s.sessions.Refresh(ctx, seed)
		if err != nil {
			return fmt.Errorf("failed to refresh session: %w", err)
		}
		sess = next
		rot.Refreshed()
		return nil
	}

	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		if rot.RefreshDue() {
			s.logger.Info("Refreshing session")
			if err := refresh(rec); err != nil {
				return err
			}
		}

		record, err := s.enrich(ctx, sess, rec)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}

			action := rot.Failure()
			log := s.logger.WithError(err).WithFields(map[string]interface{}{
				"slug":        rec.Slug(),
				"consecutive": rot.Consecutive(),
				"action":      action.String(),
			})
			if action == session.Skip {
				res.Failed++
				log.Warn("Detail fetch failed")
				continue
			}

			wait := s.failureBackoff(rot.Consecutive())
			log.WithField("wait", wait).Warn("Detail fetch failed, refreshing session")
			if err := retry.Wait(ctx, wait); err != nil {
				return err
			}
			if err := refresh(rec); err != nil {
				return err
			}
			if err := retry.Wait(ctx, s.config.Detail.RefreshSettle); err != nil {
				return err
			}

			record, err = s.enrich(ctx, sess, rec)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				res.Failed++
				s.logger.WithError(err).WithField("slug", rec.Slug()).Warn("Detail retry failed")

				if action == session.Cooldown {
					s.logger.WarnWithFields("Cooling down after repeated failures", map[string]interface{}{
						"pause":       s.config.Detail.HardBlockPause,
						"consecutive": rot.Consecutive(),
					})
					if err := retry.Wait(ctx, s.config.Detail.HardBlockPause); err != nil {
						return err
					}
					if err := refresh(rec); err != nil {
						return err
					}
					rot.CooledDown()
				}
				continue
			}
		}

		if _, err := details.Add(record); err != nil {
			return fmt.Errorf("failed to store detail for %s: %w", rec.Slug(), err)
		}
		rot.Success()
		res.Enriched++

		if err := retry.Wait(ctx, s.config.Detail.RecordDelay); err != nil {
			return err
		}
	}
	return nil
}

// enrich builds the detail record of one project: the GraphQL node, then
// the creator join date from the profile page
func (s *Scraper) enrich(ctx context.Context, sess *session.Session, rec models.RawRecord) (models.RawRecord, error) {
	slug := rec.Slug()
	if slug == "" {
		return nil, errs.New(errs.ErrorTypeMalformed, 0, "record has no slug")
	}

	g, err := s.client.PostGraphQL(ctx, sess, slug)
	if err != nil {
		return nil, err
	}

	joinedAt := ""
	if creator := creatorSlug(rec, g); creator != "" {
		if err := retry.Wait(ctx, s.config.Detail.CreatorDelay); err != nil {
			return nil, err
		}
		joinedAt, err = s.client.CreatorJoinedAt(ctx, sess, creator)
		if err != nil {
			return nil, err
		}
	}

	record, err := models.ToRecord(parser.BuildDetail(rec, g, joinedAt))
	if err != nil {
		return nil, errs.Wrap(errs.ErrorTypeMalformed, 0, "detail record did not encode", err)
	}
	return record, nil
}

func creatorSlug(rec models.RawRecord, g *models.GraphProject) string {
	if g.Creator != nil && g.Creator.Slug != "" {
		return g.Creator.Slug
	}
	if c := rec.Map("creator"); c != nil {
		return c.String("slug")
	}
	return ""
}

// failureBackoff is failure_backoff doubled per consecutive failure after
// the first, capped at max_failure_backoff
func (s *Scraper) failureBackoff(consecutive int) time.Duration {
	return retry.Doubling(s.config.Detail.FailureBackoff, s.config.Detail.MaxFailureBackoff).NextDelay(consecutive)
}
