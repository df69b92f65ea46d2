package formatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
)

var requiredFields = []string{"artist", "title", "url"}

// MissingFieldsError reports the required keys absent from a record.
type MissingFieldsError struct {
	Index  int
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("release entry %d missing required fields: [%s]", e.Index, strings.Join(e.Fields, ", "))
}

func (e *MissingFieldsError) Unwrap() error {
	return shared.ErrValidation
}

// ExtractRecords keeps artist, title, url and year from each record. The
// first record lacking any required key fails the whole batch. Present
// keys with nil values become empty strings.
func ExtractRecords(records []models.Record) ([]models.ExtractedRecord, error) {
	out := make([]models.ExtractedRecord, 0, len(records))

	for i, rec := range records {
		var missing []string
		for _, field := range requiredFields {
			if _, ok := rec[field]; !ok {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			return nil, &MissingFieldsError{Index: i, Fields: missing}
		}

		extracted := models.ExtractedRecord{
			Artist: stringValue(rec["artist"]),
			Title:  stringValue(rec["title"]),
			URL:    stringValue(rec["url"]),
		}
		if y, ok := rec["year"]; ok {
			extracted.Year = yearValue(y)
		}
		out = append(out, extracted)
	}
	return out, nil
}

func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case *string:
		if s == nil {
			return ""
		}
		return *s
	default:
		return fmt.Sprint(s)
	}
}

// yearValue coerces the numeric shapes a year arrives in (Go ints, JSON
// floats, numeric strings) to an int.
func yearValue(v any) *int {
	var y int
	switch n := v.(type) {
	case int:
		y = n
	case int64:
		y = int(n)
	case *int:
		if n == nil {
			return nil
		}
		y = *n
	case float64:
		if n != math.Trunc(n) {
			return nil
		}
		y = int(n)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil
		}
		y = parsed
	default:
		return nil
	}
	return &y
}
