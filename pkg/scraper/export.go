package scraper

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"ksscraper/pkg/export"
	"ksscraper/pkg/models"
	"ksscraper/pkg/parser"
	"ksscraper/pkg/relevance"
)

// Export file names inside the export directory
const (
	RelevantCSVFile = "kickstarter_ai_projects.csv"
	AllCSVFile      = "kickstarter_all_scraped.csv"
	RelevantDBFile  = "kickstarter_ai_projects.db"
)

// ExportResult describes a finished export
type ExportResult struct {
	Total    int
	Relevant int
	Files    []string
}

// Projects merges the discovery and detail stores into scored projects, in
// discovery order. Records that do not parse are logged and left out.
func (s *Scraper) Projects() ([]*models.Project, error) {
	disc, err := s.discoveryStore()
	if err != nil {
		return nil, err
	}
	details, err := s.detailStore()
	if err != nil {
		return nil, err
	}

	records, err := disc.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load discovery records: %w", err)
	}
	detailRecords, err := details.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load detail records: %w", err)
	}

	byID := make(map[int64]models.RawRecord, len(detailRecords))
	for _, rec := range detailRecords {
		if id, ok := rec.ID(); ok {
			byID[id] = rec
		}
	}

	scrapedAt := s.now().UTC()
	projects := make([]*models.Project, 0, len(records))
	skipped := 0
	for _, rec := range records {
		p, err := s.mergeProject(rec, byID, scrapedAt)
		if err != nil {
			skipped++
			s.logger.WithError(err).Debug("Skipping unparseable record")
			continue
		}
		score := relevance.Score(p.Name, p.Blurb, p.Description)
		p.AIRelevanceScore = &score
		projects = append(projects, p)
	}

	if skipped > 0 {
		s.logger.WarnWithFields("Skipped unparseable records", map[string]interface{}{
			"skipped": skipped,
		})
	}
	return projects, nil
}

// mergeProject parses one discovery record together with its detail
// record, if any. A merged project JSON record replaces the discovery
// record; a GraphQL detail record is applied on top of it.
func (s *Scraper) mergeProject(rec models.RawRecord, byID map[int64]models.RawRecord, scrapedAt time.Time) (*models.Project, error) {
	id, _ := rec.ID()
	detail, ok := byID[id]
	if ok && !parser.IsDetailRecord(detail) {
		return parser.ParseProject(detail, scrapedAt)
	}

	p, err := parser.ParseProject(rec, scrapedAt)
	if err != nil {
		return nil, err
	}
	if ok {
		d, err := parser.DecodeDetail(detail)
		if err != nil {
			s.logger.WithError(err).WithField("id", id).Warn("Ignoring unreadable detail record")
			return p, nil
		}
		parser.ApplyDetail(p, d)
	}
	return p, nil
}

// Relevant returns the projects whose score reaches min_relevance_score
func (s *Scraper) Relevant(projects []*models.Project) []*models.Project {
	var out []*models.Project
	for _, p := range projects {
		if p.AIRelevanceScore != nil && *p.AIRelevanceScore >= s.config.Filtering.MinRelevanceScore {
			out = append(out, p)
		}
	}
	return out
}

// Export writes the relevant projects as CSV and SQLite and every project
// as CSV into the export directory
func (s *Scraper) Export(ctx context.Context) (ExportResult, error) {
	projects, err := s.Projects()
	if err != nil {
		return ExportResult{}, err
	}
	relevant := s.Relevant(projects)
	res := ExportResult{Total: len(projects), Relevant: len(relevant)}

	dir := s.config.Output.ExportDir
	includeText := s.config.Output.IncludeText

	relevantCSV := filepath.Join(dir, RelevantCSVFile)
	if err := export.ExportCSV(relevantCSV, relevant, includeText); err != nil {
		return res, fmt.Errorf("failed to export %s: %w", relevantCSV, err)
	}
	res.Files = append(res.Files, relevantCSV)

	allCSV := filepath.Join(dir, AllCSVFile)
	if err := export.ExportCSV(allCSV, projects, includeText); err != nil {
		return res, fmt.Errorf("failed to export %s: %w", allCSV, err)
	}
	res.Files = append(res.Files, allCSV)

	db := filepath.Join(dir, RelevantDBFile)
	if err := export.ExportSQLite(ctx, db, relevant); err != nil {
		return res, fmt.Errorf("failed to export %s: %w", db, err)
	}
	res.Files = append(res.Files, db)

	s.logger.InfoWithFields("Export finished", map[string]interface{}{
		"total":     res.Total,
		"relevant":  res.Relevant,
		"min_score": s.config.Filtering.MinRelevanceScore,
		"dir":       dir,
	})
	return res, nil
}

// Stats summarizes the merged projects
func (s *Scraper) Stats() (export.Summary, error) {
	projects, err := s.Projects()
	if err != nil {
		return export.Summary{}, err
	}
	return export.Summarize(projects, s.config.Filtering.MinRelevanceScore), nil
}
