// package formatter renders releases into the QR factory CSV layout and
// into plain listings for the terminal.
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/discx/internal/models"
)

// ExportFilename is the download name for an export generated at now.
func ExportFilename(now time.Time) string {
	return "discogs_collection_" + now.Format("20060102_150405") + ".csv"
}

// WriteCSV writes rows with standard CSV quoting.
func WriteCSV(w io.Writer, rows [][]string) error {
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// WriteExportFile writes data to dir/name, creating dir when needed, and
// returns the full path.
func WriteExportFile(dir, name string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write CSV file: %w", err)
	}
	return path, nil
}

// ReleasesToCSV lists releases with a fixed column set for spreadsheets.
func ReleasesToCSV(releases []models.Release) ([]byte, error) {
	var buf bytes.Buffer

	rows := [][]string{{"ID", "Artist", "Title", "Year", "Format", "Label", "URL"}}
	for _, r := range releases {
		rows = append(rows, []string{
			fmt.Sprint(r.ID), r.ArtistName(), r.Title, yearString(r.Year), r.FormatName(), r.LabelName(), r.URL,
		})
	}

	if err := WriteCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReleasesToMarkdown renders a folder listing as a Markdown table.
func ReleasesToMarkdown(folder string, releases []models.Release) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", folder)
	fmt.Fprintf(&buf, "**Releases**: %d\n\n", len(releases))
	buf.WriteString("| # | ID | Artist | Title | Year | Format |\n")
	buf.WriteString("|---|---|---|---|---|---|\n")
	for i, r := range releases {
		fmt.Fprintf(&buf, "| %d | %d | %s | %s | %s | %s |\n", i, r.ID, r.ArtistName(), r.Title, yearString(r.Year), r.FormatName())
	}
	return buf.Bytes()
}

// ReleasesToText renders a folder listing as numbered lines.
func ReleasesToText(folder string, releases []models.Release) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Folder: %s\n", folder)
	fmt.Fprintf(&buf, "Releases: %d\n\n", len(releases))
	for i, r := range releases {
		fmt.Fprintf(&buf, "%d. [%d] %s\n", i, r.ID, r)
	}
	return buf.Bytes()
}

func yearString(y int) string {
	if y <= 0 {
		return ""
	}
	return fmt.Sprint(y)
}
