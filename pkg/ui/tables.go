package ui

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"ksscraper/pkg/export"
)

// NewTable returns a rounded table writer mirrored to w
func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// RenderSummary prints the stats of a record set
func RenderSummary(w io.Writer, s export.Summary) {
	t := NewTable(w)
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRow(table.Row{"Projects", s.Total})
	t.AppendRow(table.Row{"AI relevant", s.Relevant})
	t.AppendRow(table.Row{"Pledged (USD)", fmt.Sprintf("%.2f", s.PledgedUSD)})
	t.AppendRow(table.Row{"Backers", s.Backers})
	t.AppendRow(table.Row{"Categories", s.Categories})

	launched := "-"
	if s.FirstLaunch != nil && s.LastLaunch != nil {
		launched = s.FirstLaunch.Format("2006-01-02") + " to " + s.LastLaunch.Format("2006-01-02")
	}
	t.AppendRow(table.Row{"Launched", launched})
	t.Render()

	if len(s.ByState) == 0 {
		return
	}
	states := NewTable(w)
	states.AppendHeader(table.Row{"State", "Projects"})
	for _, state := range s.States() {
		states.AppendRow(table.Row{state, s.ByState[state]})
	}
	states.Render()
}

// RenderCounts prints name/value pairs under a title
func RenderCounts(w io.Writer, title string, rows [][2]interface{}) {
	t := NewTable(w)
	t.SetTitle(title)
	for _, r := range rows {
		t.AppendRow(table.Row{r[0], r[1]})
	}
	t.Render()
}
