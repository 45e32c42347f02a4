package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"ksscraper/pkg/models"
	"ksscraper/pkg/storage"
)

// WriteCSV writes a header row and one row per project
func WriteCSV(w io.Writer, projects []*models.Project, includeText bool) error {
	cols := Columns(includeText)
	cw := csv.NewWriter(w)

	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	row := make([]string, len(cols))
	for _, p := range projects {
		for i, c := range cols {
			row[i] = formatValue(c.Value(p))
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row for %d: %w", p.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportCSV replaces the file at path with a CSV of projects
func ExportCSV(path string, projects []*models.Project, includeText bool) error {
	return storage.WriteFileAtomic(path, func(w io.Writer) error {
		return WriteCSV(w, projects, includeText)
	})
}
