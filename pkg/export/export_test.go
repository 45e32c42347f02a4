package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"ksscraper/pkg/models"
)

func ptr[T any](v T) *T { return &v }

func sampleProjects() []*models.Project {
	launched := time.Date(2023, 11, 14, 22, 13, 20, 0, time.UTC)
	later := launched.AddDate(0, 2, 0)
	return []*models.Project{
		{
			ID:               1,
			Slug:             "robo",
			Name:             "Robo, the helper",
			Blurb:            "An AI robot",
			CategoryName:     "Robots",
			Goal:             1000,
			Pledged:          1500,
			USDPledged:       ptr(1500.0),
			BackersCount:     30,
			State:            "successful",
			PercentFunded:    150,
			LaunchedAt:       &launched,
			Description:      "Line one\nline \"two\"",
			HasVideo:         true,
			AIRelevanceScore: ptr(0.9),
			Location:         &models.Location{Name: "Austin, TX", Country: "US"},
			Creator: &models.Creator{
				ID:       77,
				Name:     "Jane",
				Websites: []string{"https://a.example", "https://b.example"},
				JoinedAt: "2015-06-01",
			},
			Rewards: []models.Reward{
				{MinimumPledge: 25, BackersCount: 10},
				{MinimumPledge: 5, BackersCount: 15},
				{MinimumPledge: 100, BackersCount: 2},
			},
		},
		{
			ID:               2,
			Name:             "Wallet",
			CategoryName:     "Accessories",
			State:            "live",
			BackersCount:     3,
			LaunchedAt:       &later,
			AIRelevanceScore: ptr(0.0),
		},
	}
}

func TestColumns(t *testing.T) {
	withText := Columns(true)
	without := Columns(false)
	assert.Len(t, withText, len(without)+2)

	names := make(map[string]bool)
	for _, c := range without {
		names[c.Name] = true
	}
	assert.False(t, names["description"])
	assert.False(t, names["risks_and_challenges"])
	assert.True(t, names["creator_websites"])
	assert.True(t, names["reward_total_backers"])
}

func TestFlatten(t *testing.T) {
	flat := Flatten(sampleProjects()[0], false)

	assert.Equal(t, int64(1), flat["id"])
	assert.Equal(t, "Jane", flat["creator_name"])
	assert.Equal(t, "https://a.example; https://b.example", flat["creator_websites"])
	assert.Equal(t, "Austin, TX", flat["location_name"])
	assert.Equal(t, 3, flat["reward_count"])
	assert.Equal(t, 5.0, flat["reward_min_pledge"])
	assert.Equal(t, 100.0, flat["reward_max_pledge"])
	assert.Equal(t, int64(27), flat["reward_total_backers"])
	assert.Equal(t, "2023-11-14T22:13:20Z", flat["launched_at"])
	assert.NotContains(t, flat, "description")

	empty := Flatten(sampleProjects()[1], true)
	assert.Nil(t, empty["creator_id"])
	assert.Nil(t, empty["creator_name"])
	assert.Nil(t, empty["reward_min_pledge"])
	assert.Nil(t, empty["usd_pledged"])
	assert.Nil(t, empty["description"])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleProjects(), true))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	header := rows[0]
	index := make(map[string]int)
	for i, name := range header {
		index[name] = i
	}

	first := rows[1]
	assert.Equal(t, "1", first[index["id"]])
	assert.Equal(t, "Robo, the helper", first[index["name"]])
	assert.Equal(t, "Line one\nline \"two\"", first[index["description"]])
	assert.Equal(t, "true", first[index["has_video"]])
	assert.Equal(t, "0.9", first[index["ai_relevance_score"]])
	assert.Equal(t, "1500", first[index["usd_pledged"]])

	second := rows[2]
	assert.Equal(t, "", second[index["creator_name"]])
	assert.Equal(t, "0", second[index["reward_count"]])
}

func TestExportCSVWithoutText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exports", "all.csv")
	require.NoError(t, ExportCSV(path, sampleProjects(), false))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	assert.NotContains(t, rows[0], "description")
}

func TestExportSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "projects.db")

	require.NoError(t, ExportSQLite(ctx, path, sampleProjects()))
	// a second export replaces the table
	require.NoError(t, ExportSQLite(ctx, path, sampleProjects()))

	db, err := OpenDB(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&count))
	assert.Equal(t, 2, count)

	var name, websites string
	var pledged float64
	var hasVideo int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT name, usd_pledged, has_video, creator_websites FROM projects WHERE id = ?`, 1,
	).Scan(&name, &pledged, &hasVideo, &websites))
	assert.Equal(t, "Robo, the helper", name)
	assert.Equal(t, 1500.0, pledged)
	assert.Equal(t, 1, hasVideo)
	assert.Equal(t, "https://a.example; https://b.example", websites)

	var creator *string
	require.NoError(t, db.QueryRowContext(ctx, `SELECT creator_name FROM projects WHERE id = 2`).Scan(&creator))
	assert.Nil(t, creator)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleProjects(), 0.2)

	assert.Equal(t, 2, s.Total)
	assert.Equal(t, map[string]int{"successful": 1, "live": 1}, s.ByState)
	assert.Equal(t, 1500.0, s.PledgedUSD)
	assert.Equal(t, int64(33), s.Backers)
	assert.Equal(t, 2, s.Categories)
	assert.Equal(t, 1, s.Relevant)
	require.NotNil(t, s.FirstLaunch)
	require.NotNil(t, s.LastLaunch)
	assert.True(t, s.FirstLaunch.Before(*s.LastLaunch))
	assert.Equal(t, []string{"live", "successful"}, s.States())
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, 0.2)
	assert.Zero(t, s.Total)
	assert.Nil(t, s.FirstLaunch)
	assert.Empty(t, s.States())
}
