package parser

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ksscraper/pkg/models"
)

const sampleProject = `{
  "id": 123456,
  "slug": "ai-robot-companion",
  "name": "AI Robot Companion - Your Personal AI Assistant",
  "blurb": "A machine learning powered robot that understands you",
  "goal": 50000,
  "pledged": 75000,
  "currency": "USD",
  "usd_pledged": "75000.0",
  "backers_count": 500,
  "state": "successful",
  "launched_at": 1700000000,
  "deadline": 1703000000,
  "created_at": 1699000000,
  "country": "US",
  "staff_pick": true,
  "category": {"name": "Robots", "slug": "technology/robots", "parent_name": "Technology"},
  "creator": {
    "id": 789,
    "name": "Jane Doe",
    "slug": "janedoe",
    "is_registered": true,
    "urls": {"web": {"user": "https://www.kickstarter.com/profile/janedoe"}},
    "location": {"displayable_name": "San Francisco, CA", "name": "San Francisco", "state": "CA", "country": "US"}
  },
  "photo": {"full": "https://example.com/photo.jpg"},
  "video": {"high": "https://example.com/video.mp4", "base": "https://example.com/video_base.mp4"},
  "location": {"displayable_name": "San Francisco, CA", "name": "San Francisco", "state": "CA", "country": "US", "short_name": "San Francisco, CA"},
  "comments_count": 42,
  "updates_count": 10,
  "rewards": {"rewards": [
    {"id": 1, "title": "Early bird", "minimum": 99, "currency": "USD", "backers_count": 120, "limit": 200, "remaining": 80, "estimated_delivery": 1710000000},
    {"id": 2, "title": "Standard", "minimum": 149, "currency": "USD", "backers_count": 300}
  ]},
  "urls": {"web": {"project": "https://www.kickstarter.com/projects/janedoe/ai-robot-companion"}}
}`

func decodeRecord(t *testing.T, s string) models.RawRecord {
	t.Helper()
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var rec models.RawRecord
	require.NoError(t, dec.Decode(&rec))
	return rec
}

func TestParseProject(t *testing.T) {
	scraped := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p, err := ParseProject(decodeRecord(t, sampleProject), scraped)
	require.NoError(t, err)

	assert.Equal(t, int64(123456), p.ID)
	assert.Equal(t, "ai-robot-companion", p.Slug)
	assert.Equal(t, "https://www.kickstarter.com/projects/janedoe/ai-robot-companion", p.URL)
	assert.Equal(t, 50000.0, p.Goal)
	assert.Equal(t, 75000.0, p.Pledged)
	assert.Equal(t, 150.0, p.PercentFunded)
	require.NotNil(t, p.USDPledged)
	assert.Equal(t, 75000.0, *p.USDPledged)
	assert.Equal(t, int64(500), p.BackersCount)
	assert.Equal(t, "successful", p.State)
	assert.True(t, p.IsStaffPick)
	assert.False(t, p.Spotlight)
	assert.Equal(t, scraped, p.ScrapedAt)

	assert.Equal(t, "Robots", p.CategoryName)
	assert.Equal(t, "Technology", p.CategoryParent)
	assert.Equal(t, "Robots", p.SubcategoryName)

	require.NotNil(t, p.LaunchedAt)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *p.LaunchedAt)
	assert.Nil(t, p.StateChangedAt)

	require.NotNil(t, p.Location)
	assert.Equal(t, "San Francisco, CA", p.Location.Name)
	assert.Equal(t, "CA", p.Location.State)

	require.NotNil(t, p.Creator)
	assert.Equal(t, int64(789), p.Creator.ID)
	assert.Equal(t, "Jane Doe", p.Creator.Name)
	assert.Equal(t, "https://www.kickstarter.com/profile/janedoe", p.Creator.URL)
	require.NotNil(t, p.Creator.IsVerified)
	assert.True(t, *p.Creator.IsVerified)
	require.NotNil(t, p.Creator.Location)
	assert.Equal(t, "San Francisco, CA", p.Creator.Location.Name)

	assert.True(t, p.HasVideo)
	assert.Equal(t, "https://example.com/video.mp4", p.VideoURL)
	assert.Equal(t, "https://example.com/photo.jpg", p.ImageURL)

	require.NotNil(t, p.CommentsCount)
	assert.Equal(t, int64(42), *p.CommentsCount)

	require.Len(t, p.Rewards, 2)
	assert.Equal(t, 2, p.RewardCount)
	assert.Equal(t, 99.0, p.Rewards[0].MinimumPledge)
	assert.True(t, p.Rewards[0].Limited)
	assert.Equal(t, "2024-03-09", p.Rewards[0].EstimatedDelivery)
	assert.False(t, p.Rewards[1].Limited)
}

func TestParseProjectMinimal(t *testing.T) {
	p, err := ParseProject(models.RawRecord{"id": json.Number("5")}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, int64(5), p.ID)
	assert.Equal(t, "unknown", p.State)
	assert.Zero(t, p.PercentFunded, "zero goal does not divide")
	assert.Nil(t, p.Creator)
	assert.Nil(t, p.Location)
	assert.False(t, p.HasVideo)
	assert.Empty(t, p.Rewards)
	assert.False(t, p.ScrapedAt.IsZero())
}

func TestParseProjectWithoutID(t *testing.T) {
	_, err := ParseProject(models.RawRecord{"name": "nameless"}, time.Now())
	assert.Error(t, err)
}

func TestParseProjectRewardList(t *testing.T) {
	rec := decodeRecord(t, `{"id": 1, "rewards": [{"id": 9, "minimum": 5}, "junk"], "description": "one two three", "converted_pledged_amount": 12.5}`)
	p, err := ParseProject(rec, time.Now())
	require.NoError(t, err)

	require.Len(t, p.Rewards, 1)
	assert.Equal(t, int64(9), p.Rewards[0].ID)
	require.NotNil(t, p.DescriptionWordCount)
	assert.Equal(t, 3, *p.DescriptionWordCount)
	require.NotNil(t, p.USDPledged)
	assert.Equal(t, 12.5, *p.USDPledged)
}

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"adjacent blocks", "<p>Meet</p><p>Robo</p>", "Meet Robo"},
		{"entities", "<p>Fish &amp; chips&nbsp;now</p>", "Fish & chips now"},
		{"whitespace", "  <div>\n\tAI\n\n<b>helper</b> </div>", "AI helper"},
		{"scripts dropped", "<p>Hi</p><script>alert(1)</script>", "Hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanHTML(tt.in))
		})
	}
}

func TestCountAIMentions(t *testing.T) {
	assert.Zero(t, CountAIMentions(""))
	assert.Equal(t, 2, CountAIMentions("AI for everyone. Our AI learns."))
	assert.Zero(t, CountAIMentions("said the aide in Spain"), "lower case ai is not counted")
	assert.Equal(t, 3, CountAIMentions("Artificial Intelligence meets artificial intelligence and AI"))
}

func TestBuildDetail(t *testing.T) {
	base := decodeRecord(t, sampleProject)
	launched := int64(1700000000)
	duration := int64(30)
	backings := int64(12)

	var g models.GraphProject
	require.NoError(t, json.Unmarshal([]byte(`{
		"story": "<p>Our <b>AI</b> companion uses artificial intelligence.</p>",
		"risks": "Supply chain",
		"backersCount": 510,
		"goal": {"amount": "50000.0", "currency": "USD", "symbol": "$"},
		"pledged": {"amount": "76000.5", "currency": "USD", "symbol": "$"},
		"state": "SUCCESSFUL",
		"location": {"displayableName": "San Francisco, CA", "name": "San Francisco", "country": "US", "countryName": "United States", "state": "CA"},
		"creator": {
			"id": "VXNlci03ODk=",
			"name": "Jane Doe",
			"slug": "janedoe",
			"biography": "Robots all day",
			"websites": [{"url": "https://jane.example"}],
			"launchedProjects": {"totalCount": 3}
		},
		"commentsCount": 44,
		"posts": {"totalCount": 11},
		"watchesCount": 900,
		"video": {"videoSources": {"high": {"src": "https://v.example/high.mp4"}}},
		"isProjectWeLove": true,
		"faqs": {"nodes": [{"question": "Ships to EU?", "answer": "Yes"}]},
		"rewards": {"nodes": [{"name": "Early", "description": "One robot", "amount": {"amount": "99.0", "currency": "USD"}, "backersCount": 120, "estimatedDeliveryOn": "2024-03-01"}]}
	}`), &g))
	g.LaunchedAt = &launched
	g.Duration = &duration
	g.Creator.BackingsCount = &backings

	d := BuildDetail(base, &g, "2015-06-01")

	assert.Equal(t, int64(123456), d.ID)
	assert.Equal(t, "ai-robot-companion", d.Slug)
	assert.Equal(t, "AI Robot Companion - Your Personal AI Assistant", d.Name)
	assert.Equal(t, "https://www.kickstarter.com/projects/janedoe/ai-robot-companion", d.URL)
	assert.Equal(t, int64(510), d.BackersCount)
	require.NotNil(t, d.Pledged)
	assert.Equal(t, 76000.5, *d.Pledged)
	assert.Equal(t, "USD", d.PledgedCurrency)
	assert.Equal(t, &launched, d.LaunchedAt)
	assert.Equal(t, "United States", d.LocationCountryName)

	assert.Equal(t, "VXNlci03ODk=", d.CreatorID)
	assert.Equal(t, []string{"https://jane.example"}, d.CreatorWebsites)
	require.NotNil(t, d.CreatorProjectsCount)
	assert.Equal(t, int64(3), *d.CreatorProjectsCount)
	assert.Equal(t, "2015-06-01", d.CreatorJoinedAt)

	assert.Equal(t, int64(11), d.UpdatesCount)
	assert.Equal(t, 1, d.FAQCount)
	assert.Equal(t, 1, d.RewardCount)
	assert.Equal(t, "99.0", d.Rewards[0].Amount)
	assert.True(t, d.HasVideo)
	assert.Equal(t, "https://v.example/high.mp4", d.VideoURL)
	assert.True(t, d.IsProjectWeLove)

	assert.Equal(t, "Our AI companion uses artificial intelligence.", d.CampaignStoryText)
	assert.Equal(t, 6, d.CampaignWordCount)
	assert.Equal(t, 2, d.CampaignAIMentions)
}

func TestBuildDetailEmptyNode(t *testing.T) {
	d := BuildDetail(models.RawRecord{"id": 1, "slug": "x"}, &models.GraphProject{}, "")

	assert.Equal(t, int64(1), d.ID)
	assert.False(t, d.HasVideo)
	assert.Nil(t, d.Goal)
	assert.NotNil(t, d.FAQs, "lists encode as [] rather than null")
	assert.NotNil(t, d.Rewards)
	assert.NotNil(t, d.CreatorWebsites)
	assert.Zero(t, d.CampaignWordCount)
}

func TestDetailRecordRoundTrip(t *testing.T) {
	pledged := 10.0
	d := models.ProjectDetail{ID: 7, Slug: "x", Pledged: &pledged, CampaignStoryText: "AI", FAQs: []models.FAQ{{Question: "q", Answer: "a"}}}

	rec, err := models.ToRecord(d)
	require.NoError(t, err)
	assert.True(t, IsDetailRecord(rec))
	assert.False(t, IsDetailRecord(models.RawRecord{"id": 7, "description": "x"}))

	back, err := DecodeDetail(rec)
	require.NoError(t, err)
	assert.Equal(t, d.ID, back.ID)
	assert.Equal(t, 10.0, *back.Pledged)
	assert.Equal(t, d.FAQs, back.FAQs)
}

func TestApplyDetail(t *testing.T) {
	p, err := ParseProject(decodeRecord(t, sampleProject), time.Now())
	require.NoError(t, err)

	pledged := 76000.0
	duration := int64(30)
	backed := int64(12)
	d := &models.ProjectDetail{
		State:              "SUCCESSFUL",
		BackersCount:       510,
		Pledged:            &pledged,
		PledgedCurrency:    "USD",
		Duration:           &duration,
		CommentsCount:      44,
		UpdatesCount:       11,
		WatchesCount:       900,
		FAQCount:           2,
		CampaignStoryText:  "Our AI companion",
		CampaignWordCount:  3,
		CampaignAIMentions: 1,
		Risks:              "Supply chain",
		IsProjectWeLove:    true,
		CreatorBiography:   "Robots all day",
		CreatorWebsites:    []string{"https://jane.example"},
		CreatorJoinedAt:    "2015-06-01",
		CreatorBackedCount: &backed,
	}

	ApplyDetail(p, d)

	assert.Equal(t, "Our AI companion", p.Description)
	assert.Equal(t, 3, *p.DescriptionWordCount)
	assert.Equal(t, "Supply chain", p.RisksAndChallenges)
	assert.Equal(t, "successful", p.State)
	assert.Equal(t, int64(510), p.BackersCount)
	assert.Equal(t, 76000.0, p.Pledged)
	assert.InDelta(t, 152.0, p.PercentFunded, 1e-9)
	assert.Equal(t, int64(900), *p.WatchesCount)
	assert.Equal(t, int64(2), *p.FAQCount)
	assert.Equal(t, int64(30), *p.Duration)
	assert.Equal(t, 1, *p.CampaignAIMentions)
	assert.True(t, p.IsProjectWeLove)
	assert.Equal(t, "Robots all day", p.Creator.Biography)
	assert.Equal(t, []string{"https://jane.example"}, p.Creator.Websites)
	assert.Equal(t, "2015-06-01", p.Creator.JoinedAt)
	assert.Equal(t, int64(12), *p.Creator.BackedProjectsCount)
	assert.Len(t, p.Rewards, 2, "discovery rewards are kept")
}

func TestApplyDetailFillsMissingParts(t *testing.T) {
	p := &models.Project{ID: 1, Currency: "EUR", Pledged: 5}
	pledged := 9.0
	d := &models.ProjectDetail{
		Pledged:         &pledged,
		PledgedCurrency: "USD",
		CreatorName:     "Bob",
		CreatorSlug:     "bob",
		LocationName:    "Berlin, Germany",
		LocationCountry: "DE",
		Rewards:         []models.DetailReward{{Name: "Tier", Amount: "25.0", Currency: "EUR", Backers: 4}},
	}

	ApplyDetail(p, d)

	assert.Equal(t, 5.0, p.Pledged, "pledged in another currency is ignored")
	require.NotNil(t, p.Creator)
	assert.Equal(t, "bob", p.Creator.Slug)
	require.NotNil(t, p.Location)
	assert.Equal(t, "DE", p.Location.Country)
	require.Len(t, p.Rewards, 1)
	assert.Equal(t, 25.0, p.Rewards[0].MinimumPledge)
	assert.Equal(t, 1, p.RewardCount)

	ApplyDetail(p, nil)
}
