package ui

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"ksscraper/pkg/export"
)

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetNoColor(true)
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetQuietMode(false)
		SetNoColor(false)
	})
	return &buf
}

func TestPrintHelpers(t *testing.T) {
	buf := capture(t)

	PrintInfo("Keys", "16")
	PrintSuccess("done")
	PrintError("failed", "boom")

	assert.Equal(t, "Keys: 16\ndone\nfailed: boom\n", buf.String())
}

func TestQuietModeKeepsErrors(t *testing.T) {
	buf := capture(t)
	SetQuietMode(true)

	PrintLogo()
	PrintInfo("Keys", "16")
	PrintWarning("careful")
	PrintHighlight("hello")
	PrintError("failed")

	assert.Equal(t, "failed\n", buf.String())
}

func TestColors(t *testing.T) {
	SetNoColor(false)
	assert.Equal(t, "\033[32mok\033[0m", Green("ok"))
	SetNoColor(true)
	defer SetNoColor(false)
	assert.Equal(t, "ok", Green("ok"))
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	first := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	RenderSummary(&buf, export.Summary{
		Total:       12,
		ByState:     map[string]int{"live": 5, "successful": 7},
		PledgedUSD:  1234.5,
		Backers:     321,
		Categories:  3,
		Relevant:    9,
		FirstLaunch: &first,
		LastLaunch:  &last,
	})

	out := buf.String()
	assert.Contains(t, out, "Projects")
	assert.Contains(t, out, "1234.50")
	assert.Contains(t, out, "2023-01-02 to 2024-06-30")
	assert.Contains(t, out, "successful")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("successful")), bytes.Index(buf.Bytes(), []byte("live ")))
}

func TestRenderCounts(t *testing.T) {
	var buf bytes.Buffer
	RenderCounts(&buf, "Discovery", [][2]interface{}{{"Added", 25}, {"Skipped", 0}})

	assert.Contains(t, buf.String(), "Discovery")
	assert.Contains(t, buf.String(), "Added")
	assert.Contains(t, buf.String(), "25")
}
