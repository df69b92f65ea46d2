package formatter

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
)

//go:embed qrfactory_template.csv
var defaultTemplate []byte

const (
	TokenArtist = "{artist}"
	TokenTitle  = "{title}"
	TokenYear   = "{year}"
	TokenURL    = "{url}"

	utf8BOM = "\ufeff"
)

// requiredTokens must appear somewhere in the format row.
var requiredTokens = []string{TokenArtist, TokenTitle, TokenURL}

// Template is a two-row CSV: column names and, aligned with them, the
// format row whose cells are copied or filled per release.
type Template struct {
	Header []string
	Format []string
}

// ParseTemplate reads the header and format rows from r. Rows after the
// second are ignored. The format row is padded with empty cells or
// truncated to the header width.
func ParseTemplate(r io.Reader) (*Template, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: template is empty", shared.ErrTemplate)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading header row: %v", shared.ErrTemplate, err)
	}

	format, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: template must contain a header row and a format row", shared.ErrTemplate)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading format row: %v", shared.ErrTemplate, err)
	}

	header[0] = strings.TrimPrefix(header[0], utf8BOM)

	aligned := make([]string, len(header))
	copy(aligned, format)

	return &Template{Header: header, Format: aligned}, nil
}

// LoadTemplate parses the template file at path.
func LoadTemplate(path string) (*Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: template file not found: %v", shared.ErrTemplate, err)
	}
	defer f.Close()

	return ParseTemplate(f)
}

// DefaultTemplate returns the bundled QR factory template.
func DefaultTemplate() *Template {
	t, err := ParseTemplate(bytes.NewReader(defaultTemplate))
	if err != nil {
		panic(fmt.Sprintf("failed to parse embedded template: %v", err))
	}
	return t
}

// CreateTemplateFile writes the bundled template to path.
func CreateTemplateFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("template file already exists at %s", path)
	}

	if err := os.WriteFile(path, defaultTemplate, 0644); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}
	return nil
}

// Validate checks that the format row mentions every required token.
func (t *Template) Validate() error {
	joined := strings.Join(t.Format, ",")
	for _, token := range requiredTokens {
		if !strings.Contains(joined, token) {
			return fmt.Errorf("%w: format row must contain the %s placeholder", shared.ErrTemplate, token)
		}
	}
	return nil
}

// Row fills one output row for rec. Artist, Title and URL columns take
// the record value; every other column is the format cell with tokens
// replaced.
func (t *Template) Row(rec models.ExtractedRecord) []string {
	year := ""
	if rec.Year != nil {
		year = strconv.Itoa(*rec.Year)
	}

	replacer := strings.NewReplacer(
		TokenArtist, rec.Artist,
		TokenTitle, rec.Title,
		TokenYear, year,
		TokenURL, rec.URL,
	)

	row := make([]string, len(t.Header))
	for i, column := range t.Header {
		switch column {
		case "Artist":
			row[i] = rec.Artist
		case "Title":
			row[i] = rec.Title
		case "URL":
			row[i] = rec.URL
		default:
			row[i] = replacer.Replace(t.Format[i])
		}
	}
	return row
}

// Render returns the header followed by one row per record, in order.
func (t *Template) Render(records []models.ExtractedRecord) [][]string {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, append([]string(nil), t.Header...))
	for _, rec := range records {
		rows = append(rows, t.Row(rec))
	}
	return rows
}

// Generate validates the template, extracts the records and writes the
// CSV to w. Nothing is written when validation or extraction fails.
func (t *Template) Generate(w io.Writer, records []models.Record) (int, error) {
	if err := t.Validate(); err != nil {
		return 0, err
	}

	extracted, err := ExtractRecords(records)
	if err != nil {
		return 0, err
	}

	if err := WriteCSV(w, t.Render(extracted)); err != nil {
		return 0, err
	}
	return len(extracted), nil
}
