package export

import (
	"math"
	"strconv"
	"strings"
	"time"

	"ksscraper/pkg/models"
)

// SQL column affinities
const (
	sqlText    = "TEXT"
	sqlInteger = "INTEGER"
	sqlReal    = "REAL"
)

// Column is one flattened project field
type Column struct {
	Name string
	// Text marks long free-text columns left out unless requested
	Text bool
	kind string
	get  func(p *models.Project) interface{}
}

func col(name, kind string, get func(p *models.Project) interface{}) Column {
	return Column{Name: name, kind: kind, get: get}
}

func textCol(name string, get func(p *models.Project) interface{}) Column {
	return Column{Name: name, kind: sqlText, get: get, Text: true}
}

var allColumns = []Column{
	col("id", sqlInteger, func(p *models.Project) interface{} { return p.ID }),
	col("slug", sqlText, func(p *models.Project) interface{} { return p.Slug }),
	col("url", sqlText, func(p *models.Project) interface{} { return p.URL }),
	col("name", sqlText, func(p *models.Project) interface{} { return p.Name }),
	col("blurb", sqlText, func(p *models.Project) interface{} { return p.Blurb }),
	col("category_name", sqlText, func(p *models.Project) interface{} { return p.CategoryName }),
	col("category_slug", sqlText, func(p *models.Project) interface{} { return p.CategorySlug }),
	col("category_parent", sqlText, func(p *models.Project) interface{} { return p.CategoryParent }),
	col("subcategory_name", sqlText, func(p *models.Project) interface{} { return p.SubcategoryName }),
	col("goal", sqlReal, func(p *models.Project) interface{} { return p.Goal }),
	col("pledged", sqlReal, func(p *models.Project) interface{} { return p.Pledged }),
	col("currency", sqlText, func(p *models.Project) interface{} { return p.Currency }),
	col("usd_pledged", sqlReal, func(p *models.Project) interface{} { return floatOrNil(p.USDPledged) }),
	col("fx_rate", sqlReal, func(p *models.Project) interface{} { return floatOrNil(p.FXRate) }),
	col("backers_count", sqlInteger, func(p *models.Project) interface{} { return p.BackersCount }),
	col("state", sqlText, func(p *models.Project) interface{} { return p.State }),
	col("percent_funded", sqlReal, func(p *models.Project) interface{} { return p.PercentFunded }),
	col("launched_at", sqlText, func(p *models.Project) interface{} { return timeOrNil(p.LaunchedAt) }),
	col("deadline", sqlText, func(p *models.Project) interface{} { return timeOrNil(p.Deadline) }),
	col("created_at", sqlText, func(p *models.Project) interface{} { return timeOrNil(p.CreatedAt) }),
	col("state_changed_at", sqlText, func(p *models.Project) interface{} { return timeOrNil(p.StateChangedAt) }),
	col("country", sqlText, func(p *models.Project) interface{} { return p.Country }),
	textCol("description", func(p *models.Project) interface{} { return p.Description }),
	col("description_word_count", sqlInteger, func(p *models.Project) interface{} { return intOrNil(p.DescriptionWordCount) }),
	textCol("risks_and_challenges", func(p *models.Project) interface{} { return p.RisksAndChallenges }),
	col("image_url", sqlText, func(p *models.Project) interface{} { return p.ImageURL }),
	col("video_url", sqlText, func(p *models.Project) interface{} { return p.VideoURL }),
	col("has_video", sqlInteger, func(p *models.Project) interface{} { return p.HasVideo }),
	col("comments_count", sqlInteger, func(p *models.Project) interface{} { return int64OrNil(p.CommentsCount) }),
	col("updates_count", sqlInteger, func(p *models.Project) interface{} { return int64OrNil(p.UpdatesCount) }),
	col("watches_count", sqlInteger, func(p *models.Project) interface{} { return int64OrNil(p.WatchesCount) }),
	col("faq_count", sqlInteger, func(p *models.Project) interface{} { return int64OrNil(p.FAQCount) }),
	col("duration", sqlInteger, func(p *models.Project) interface{} { return int64OrNil(p.Duration) }),
	col("campaign_word_count", sqlInteger, func(p *models.Project) interface{} { return intOrNil(p.CampaignWordCount) }),
	col("campaign_ai_mentions", sqlInteger, func(p *models.Project) interface{} { return intOrNil(p.CampaignAIMentions) }),
	col("is_staff_pick", sqlInteger, func(p *models.Project) interface{} { return p.IsStaffPick }),
	col("is_project_we_love", sqlInteger, func(p *models.Project) interface{} { return p.IsProjectWeLove }),
	col("spotlight", sqlInteger, func(p *models.Project) interface{} { return p.Spotlight }),
	col("scraped_at", sqlText, func(p *models.Project) interface{} { return timeOrNil(&p.ScrapedAt) }),
	col("ai_relevance_score", sqlReal, func(p *models.Project) interface{} { return floatOrNil(p.AIRelevanceScore) }),

	col("location_name", sqlText, func(p *models.Project) interface{} { return location(p.Location).Name }),
	col("location_city", sqlText, func(p *models.Project) interface{} { return location(p.Location).City }),
	col("location_state", sqlText, func(p *models.Project) interface{} { return location(p.Location).State }),
	col("location_country", sqlText, func(p *models.Project) interface{} { return location(p.Location).Country }),

	col("creator_id", sqlInteger, func(p *models.Project) interface{} {
		if p.Creator == nil {
			return nil
		}
		return p.Creator.ID
	}),
	col("creator_name", sqlText, func(p *models.Project) interface{} { return creator(p).Name }),
	col("creator_slug", sqlText, func(p *models.Project) interface{} { return creator(p).Slug }),
	col("creator_projects_count", sqlInteger, func(p *models.Project) interface{} { return int64OrNil(creator(p).CreatedProjectsCount) }),
	col("creator_backed_count", sqlInteger, func(p *models.Project) interface{} { return int64OrNil(creator(p).BackedProjectsCount) }),
	col("creator_biography", sqlText, func(p *models.Project) interface{} { return creator(p).Biography }),
	col("creator_websites", sqlText, func(p *models.Project) interface{} { return strings.Join(creator(p).Websites, "; ") }),
	col("creator_joined_at", sqlText, func(p *models.Project) interface{} { return creator(p).JoinedAt }),
	col("creator_location_name", sqlText, func(p *models.Project) interface{} { return location(creator(p).Location).Name }),
	col("creator_location_state", sqlText, func(p *models.Project) interface{} { return location(creator(p).Location).State }),
	col("creator_location_country", sqlText, func(p *models.Project) interface{} { return location(creator(p).Location).Country }),

	col("reward_count", sqlInteger, func(p *models.Project) interface{} { return len(p.Rewards) }),
	col("reward_min_pledge", sqlReal, func(p *models.Project) interface{} { return rewardPledge(p, math.Min) }),
	col("reward_max_pledge", sqlReal, func(p *models.Project) interface{} { return rewardPledge(p, math.Max) }),
	col("reward_total_backers", sqlInteger, func(p *models.Project) interface{} {
		var total int64
		for _, r := range p.Rewards {
			total += r.BackersCount
		}
		return total
	}),
}

// Columns returns the export columns in order. Long text columns are
// included only when includeText is set.
func Columns(includeText bool) []Column {
	out := make([]Column, 0, len(allColumns))
	for _, c := range allColumns {
		if c.Text && !includeText {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Value returns the column value of p; nil means missing
func (c Column) Value(p *models.Project) interface{} {
	v := c.get(p)
	if s, ok := v.(string); ok && s == "" {
		return nil
	}
	return v
}

// Flatten maps every column name to its value for one project
func Flatten(p *models.Project, includeText bool) map[string]interface{} {
	cols := Columns(includeText)
	out := make(map[string]interface{}, len(cols))
	for _, c := range cols {
		out[c.Name] = c.Value(p)
	}
	return out
}

// formatValue renders a column value as a CSV cell
func formatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}

var emptyCreator = &models.Creator{}

func creator(p *models.Project) *models.Creator {
	if p.Creator == nil {
		return emptyCreator
	}
	return p.Creator
}

func location(l *models.Location) *models.Location {
	if l == nil {
		return &models.Location{}
	}
	return l
}

func rewardPledge(p *models.Project, pick func(a, b float64) float64) interface{} {
	if len(p.Rewards) == 0 {
		return nil
	}
	v := p.Rewards[0].MinimumPledge
	for _, r := range p.Rewards[1:] {
		v = pick(v, r.MinimumPledge)
	}
	return v
}

func floatOrNil(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}

func intOrNil(n *int) interface{} {
	if n == nil {
		return nil
	}
	return *n
}

func int64OrNil(n *int64) interface{} {
	if n == nil {
		return nil
	}
	return *n
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
