package export

import (
	"sort"
	"time"

	"ksscraper/pkg/models"
)

// Summary aggregates a set of projects
type Summary struct {
	Total      int
	ByState    map[string]int
	PledgedUSD float64
	Backers    int64
	Categories int
	Relevant   int
	// FirstLaunch and LastLaunch are nil when no project has a launch date
	FirstLaunch *time.Time
	LastLaunch  *time.Time
}

// Summarize computes the summary. Projects whose relevance score reaches
// minScore are counted as relevant.
func Summarize(projects []*models.Project, minScore float64) Summary {
	s := Summary{ByState: make(map[string]int)}
	categories := make(map[string]struct{})

	for _, p := range projects {
		s.Total++
		s.ByState[p.State]++
		s.Backers += p.BackersCount
		if p.USDPledged != nil {
			s.PledgedUSD += *p.USDPledged
		}
		if p.CategoryName != "" {
			categories[p.CategoryName] = struct{}{}
		}
		if p.AIRelevanceScore != nil && *p.AIRelevanceScore >= minScore {
			s.Relevant++
		}
		if t := p.LaunchedAt; t != nil {
			if s.FirstLaunch == nil || t.Before(*s.FirstLaunch) {
				s.FirstLaunch = t
			}
			if s.LastLaunch == nil || t.After(*s.LastLaunch) {
				s.LastLaunch = t
			}
		}
	}
	s.Categories = len(categories)
	return s
}

// States returns the state names sorted by count, largest first
func (s Summary) States() []string {
	out := make([]string, 0, len(s.ByState))
	for state := range s.ByState {
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool {
		if s.ByState[out[i]] != s.ByState[out[j]] {
			return s.ByState[out[i]] > s.ByState[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}
