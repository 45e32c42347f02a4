package parser

import (
	"strings"
	"time"

	errs "ksscraper/pkg/errors"
	"ksscraper/pkg/models"
)

// ParseProject maps a discovery or project JSON record to a Project. Only
// the id is required; every other field falls back to its zero value.
func ParseProject(raw models.RawRecord, scrapedAt time.Time) (*models.Project, error) {
	id, ok := raw.ID()
	if !ok {
		return nil, errs.New(errs.ErrorTypeMalformed, 0, "project record has no integer id")
	}
	if scrapedAt.IsZero() {
		scrapedAt = time.Now().UTC()
	}

	category := raw.Map("category")
	parent := category.String("parent_name")
	if parent == "" {
		parent = category.Map("parent").String("name")
	}

	goal, _ := raw.Float("goal")
	pledged, _ := raw.Float("pledged")
	percent := 0.0
	if goal > 0 {
		percent = pledged / goal * 100
	}

	state := raw.String("state")
	if state == "" {
		state = "unknown"
	}

	p := &models.Project{
		ID:             id,
		Slug:           raw.Slug(),
		URL:            ProjectURL(raw),
		Name:           raw.String("name"),
		Blurb:          raw.String("blurb"),
		CategoryName:   category.String("name"),
		CategorySlug:   category.String("slug"),
		CategoryParent: parent,

		Goal:          goal,
		Pledged:       pledged,
		Currency:      raw.String("currency"),
		USDPledged:    usdPledged(raw),
		FXRate:        floatPtr(raw, "fx_rate"),
		State:         state,
		PercentFunded: percent,

		LaunchedAt:     timestamp(raw, "launched_at"),
		Deadline:       timestamp(raw, "deadline"),
		CreatedAt:      timestamp(raw, "created_at"),
		StateChangedAt: timestamp(raw, "state_changed_at"),

		Country:  raw.String("country"),
		Location: parseLocation(raw.Map("location")),

		Description:        raw.String("description"),
		RisksAndChallenges: raw.String("risks"),

		CommentsCount: intPtr(raw, "comments_count"),
		UpdatesCount:  intPtr(raw, "updates_count"),

		Creator: parseCreator(raw.Map("creator")),

		IsStaffPick:     raw.Bool("staff_pick"),
		IsProjectWeLove: raw.Bool("is_project_we_love"),
		Spotlight:       raw.Bool("spotlight"),

		ScrapedAt: scrapedAt,
	}
	if parent != "" {
		p.SubcategoryName = p.CategoryName
	}
	if backers, ok := raw.Int("backers_count"); ok {
		p.BackersCount = backers
	}
	if p.Description != "" {
		n := len(strings.Fields(p.Description))
		p.DescriptionWordCount = &n
	}

	p.HasVideo, p.VideoURL = parseVideo(raw)

	photo := raw.Map("photo")
	p.ImageURL = firstNonEmpty(photo.String("full"), photo.String("med"), photo.String("1024x576"))

	p.Rewards = parseRewards(raw)
	p.RewardCount = len(p.Rewards)

	return p, nil
}

// ProjectURL returns the public project URL of a record
func ProjectURL(raw models.RawRecord) string {
	if u := raw.Map("urls").Map("web").String("project"); u != "" {
		return u
	}
	return raw.String("url")
}

func parseLocation(data models.RawRecord) *models.Location {
	if len(data) == 0 {
		return nil
	}
	return &models.Location{
		Name:        firstNonEmpty(data.String("displayable_name"), data.String("name")),
		City:        data.String("city"),
		State:       data.String("state"),
		Country:     data.String("country"),
		CountryCode: firstNonEmpty(data.String("short_name"), data.String("country")),
	}
}

func parseCreator(data models.RawRecord) *models.Creator {
	if len(data) == 0 {
		return nil
	}
	id, _ := data.ID()
	name := data.String("name")
	if name == "" {
		name = "Unknown"
	}

	c := &models.Creator{
		ID:                   id,
		Name:                 name,
		Slug:                 data.Slug(),
		URL:                  data.Map("urls").Map("web").String("user"),
		AvatarURL:            data.Map("avatar").String("medium"),
		Location:             parseLocation(data.Map("location")),
		CreatedProjectsCount: intPtr(data, "created_projects_count"),
		BackedProjectsCount:  intPtr(data, "backed_projects_count"),
	}
	if v, ok := data["is_registered"].(bool); ok {
		c.IsVerified = &v
	}
	return c
}

// parseRewards accepts both a bare list and the {"rewards": [...]} wrapper
func parseRewards(raw models.RawRecord) []models.Reward {
	var items []interface{}
	switch v := raw["rewards"].(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		items, _ = v["rewards"].([]interface{})
	}

	var out []models.Reward
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		data := models.RawRecord(m)
		id, _ := data.ID()
		minimum, _ := data.Float("minimum")
		backers, _ := data.Int("backers_count")
		limit := intPtr(data, "limit")

		out = append(out, models.Reward{
			ID:                id,
			Title:             data.String("title"),
			Description:       data.String("description"),
			MinimumPledge:     minimum,
			Currency:          data.String("currency"),
			BackersCount:      backers,
			EstimatedDelivery: deliveryString(data["estimated_delivery"]),
			Limited:           limit != nil && *limit > 0,
			Limit:             limit,
			Remaining:         intPtr(data, "remaining"),
			ShippingType:      data.String("shipping_type"),
		})
	}
	return out
}

func deliveryString(v interface{}) string {
	switch d := v.(type) {
	case string:
		return d
	case nil:
		return ""
	}
	if t := toTime(v); t != nil {
		return t.Format("2006-01-02")
	}
	return ""
}

func parseVideo(raw models.RawRecord) (bool, string) {
	switch v := raw["video"].(type) {
	case nil:
		return false, ""
	case map[string]interface{}:
		video := models.RawRecord(v)
		return len(video) > 0, firstNonEmpty(video.String("high"), video.String("base"))
	default:
		return raw.Bool("video"), ""
	}
}

func usdPledged(raw models.RawRecord) *float64 {
	if v := floatPtr(raw, "usd_pledged"); v != nil {
		return v
	}
	if v, ok := raw.Float("converted_pledged_amount"); ok && v != 0 {
		return &v
	}
	return nil
}

func timestamp(raw models.RawRecord, key string) *time.Time {
	return toTime(raw[key])
}

func toTime(v interface{}) *time.Time {
	ts, ok := models.RawRecord{"v": v}.Int("v")
	if !ok || ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

func floatPtr(raw models.RawRecord, key string) *float64 {
	if v, ok := raw.Float(key); ok {
		return &v
	}
	return nil
}

func intPtr(raw models.RawRecord, key string) *int64 {
	if v, ok := raw.Int(key); ok {
		return &v
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
