package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"ksscraper/pkg/models"
)

// BuildDetail assembles the detail record of a project from its discovery
// record, the GraphQL project node and the creator join date
func BuildDetail(base models.RawRecord, g *models.GraphProject, joinedAt string) models.ProjectDetail {
	id, _ := base.ID()
	d := models.ProjectDetail{
		ID:   id,
		Slug: base.Slug(),
		Name: base.String("name"),
		URL:  ProjectURL(base),

		BackersCount:   g.BackersCount,
		State:          g.State,
		LaunchedAt:     g.LaunchedAt,
		DeadlineAt:     g.DeadlineAt,
		StateChangedAt: g.StateChangedAt,
		Duration:       g.Duration,

		CreatorJoinedAt: joinedAt,

		CommentsCount:   g.CommentsCount,
		WatchesCount:    g.WatchesCount,
		IsProjectWeLove: g.IsProjectWeLove,

		CampaignStoryHTML: g.Story,
		Risks:             g.Risks,

		CreatorWebsites: []string{},
		FAQs:            []models.FAQ{},
		Rewards:         []models.DetailReward{},
	}

	if g.Goal != nil {
		d.Goal = moneyAmount(g.Goal)
		d.GoalCurrency = g.Goal.Currency
	}
	if g.Pledged != nil {
		d.Pledged = moneyAmount(g.Pledged)
		d.PledgedCurrency = g.Pledged.Currency
	}

	if loc := g.Location; loc != nil {
		d.LocationName = loc.DisplayableName
		d.LocationCity = loc.Name
		d.LocationState = loc.State
		d.LocationCountry = loc.Country
		d.LocationCountryName = loc.CountryName
	}

	if c := g.Creator; c != nil {
		d.CreatorID = c.ID
		d.CreatorName = c.Name
		d.CreatorSlug = c.Slug
		d.CreatorURL = c.URL
		d.CreatorBiography = c.Biography
		d.CreatorBackedCount = c.BackingsCount
		for _, w := range c.Websites {
			d.CreatorWebsites = append(d.CreatorWebsites, w.URL)
		}
		if c.LaunchedProjects != nil {
			n := c.LaunchedProjects.TotalCount
			d.CreatorProjectsCount = &n
		}
		if loc := c.Location; loc != nil {
			d.CreatorLocationName = loc.DisplayableName
			d.CreatorLocationState = loc.State
			d.CreatorLocationCountry = loc.Country
			d.CreatorLocationCountryName = loc.CountryName
		}
	}

	if g.Posts != nil {
		d.UpdatesCount = g.Posts.TotalCount
	}
	if g.FAQs != nil {
		d.FAQs = append(d.FAQs, g.FAQs.Nodes...)
	}
	if g.Rewards != nil {
		for _, r := range g.Rewards.Nodes {
			reward := models.DetailReward{
				Name:        r.Name,
				Description: r.Description,
				Backers:     r.BackersCount,
				Delivery:    r.EstimatedDeliveryOn,
			}
			if r.Amount != nil {
				reward.Amount = r.Amount.Amount.String()
				reward.Currency = r.Amount.Currency
			}
			d.Rewards = append(d.Rewards, reward)
		}
	}
	d.FAQCount = len(d.FAQs)
	d.RewardCount = len(d.Rewards)

	d.VideoURL = g.VideoSrc()
	d.HasVideo = d.VideoURL != ""

	d.CampaignStoryText = CleanHTML(g.Story)
	d.CampaignWordCount = WordCount(d.CampaignStoryText)
	d.CampaignAIMentions = CountAIMentions(d.CampaignStoryText)

	return d
}

func moneyAmount(m *models.GraphMoney) *float64 {
	if m.Amount == "" {
		return nil
	}
	f, err := m.Amount.Float64()
	if err != nil {
		return nil
	}
	return &f
}

// IsDetailRecord reports whether a stored record is a GraphQL detail
// record rather than a merged project JSON record
func IsDetailRecord(rec models.RawRecord) bool {
	_, ok := rec["campaign_story_text"]
	return ok
}

// DecodeDetail converts a stored detail record back to its typed form
func DecodeDetail(rec models.RawRecord) (*models.ProjectDetail, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode detail record: %w", err)
	}
	var d models.ProjectDetail
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to decode detail record: %w", err)
	}
	return &d, nil
}

// ApplyDetail copies the detail fields onto a parsed project. Values
// from the detail record are newer and win where both are present.
func ApplyDetail(p *models.Project, d *models.ProjectDetail) {
	if d == nil {
		return
	}

	if d.CampaignStoryText != "" {
		p.Description = d.CampaignStoryText
		n := d.CampaignWordCount
		p.DescriptionWordCount = &n
	}
	if d.Risks != "" {
		p.RisksAndChallenges = d.Risks
	}
	if d.State != "" {
		p.State = strings.ToLower(d.State)
	}
	if d.BackersCount > 0 {
		p.BackersCount = d.BackersCount
	}
	if d.Pledged != nil && (p.Currency == "" || d.PledgedCurrency == p.Currency) {
		p.Pledged = *d.Pledged
		if p.Goal > 0 {
			p.PercentFunded = p.Pledged / p.Goal * 100
		}
	}

	comments, updates, watches := d.CommentsCount, d.UpdatesCount, d.WatchesCount
	faqs := int64(d.FAQCount)
	p.CommentsCount = &comments
	p.UpdatesCount = &updates
	p.WatchesCount = &watches
	p.FAQCount = &faqs
	if d.Duration != nil {
		days := *d.Duration
		p.Duration = &days
	}

	words, mentions := d.CampaignWordCount, d.CampaignAIMentions
	p.CampaignWordCount = &words
	p.CampaignAIMentions = &mentions

	if d.HasVideo {
		p.HasVideo = true
		p.VideoURL = d.VideoURL
	}
	p.IsProjectWeLove = p.IsProjectWeLove || d.IsProjectWeLove

	if p.Location == nil && (d.LocationName != "" || d.LocationCountry != "") {
		p.Location = &models.Location{
			Name:    d.LocationName,
			City:    d.LocationCity,
			State:   d.LocationState,
			Country: d.LocationCountry,
		}
	}

	applyCreator(p, d)

	if len(p.Rewards) == 0 && len(d.Rewards) > 0 {
		for _, r := range d.Rewards {
			amount, _ := strconv.ParseFloat(r.Amount, 64)
			p.Rewards = append(p.Rewards, models.Reward{
				Title:             r.Name,
				Description:       r.Description,
				MinimumPledge:     amount,
				Currency:          r.Currency,
				BackersCount:      r.Backers,
				EstimatedDelivery: r.Delivery,
			})
		}
		p.RewardCount = len(p.Rewards)
	}
}

func applyCreator(p *models.Project, d *models.ProjectDetail) {
	if p.Creator == nil {
		if d.CreatorName == "" && d.CreatorSlug == "" {
			return
		}
		p.Creator = &models.Creator{Name: d.CreatorName, Slug: d.CreatorSlug}
	}
	c := p.Creator

	if c.Slug == "" {
		c.Slug = d.CreatorSlug
	}
	if c.URL == "" {
		c.URL = d.CreatorURL
	}
	if d.CreatorBiography != "" {
		c.Biography = d.CreatorBiography
	}
	if len(d.CreatorWebsites) > 0 {
		c.Websites = append([]string(nil), d.CreatorWebsites...)
	}
	if d.CreatorJoinedAt != "" {
		c.JoinedAt = d.CreatorJoinedAt
	}
	if d.CreatorBackedCount != nil {
		n := *d.CreatorBackedCount
		c.BackedProjectsCount = &n
	}
	if d.CreatorProjectsCount != nil {
		n := *d.CreatorProjectsCount
		c.CreatedProjectsCount = &n
	}
	if c.Location == nil && (d.CreatorLocationName != "" || d.CreatorLocationCountry != "") {
		c.Location = &models.Location{
			Name:    d.CreatorLocationName,
			State:   d.CreatorLocationState,
			Country: d.CreatorLocationCountry,
		}
	}
}
