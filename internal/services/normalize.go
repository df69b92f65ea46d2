package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/discx/internal/discogs"
	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
)

// CanonicalURL drops the slug Discogs appends to release URLs:
// ".../release/249504-Rick-Astley-Never-Gonna" becomes ".../release/249504".
func CanonicalURL(raw string) string {
	slash := strings.LastIndex(raw, "/")
	if hyphen := strings.Index(raw[slash+1:], "-"); hyphen >= 0 {
		return raw[:slash+1+hyphen]
	}
	return raw
}

func firstArtist(artists []discogs.Artist) *string {
	if len(artists) == 0 {
		return nil
	}
	name := artists[0].Name
	return &name
}

func firstLabel(labels []discogs.Label) *string {
	if len(labels) == 0 {
		return nil
	}
	name := labels[0].Name
	return &name
}

func firstFormat(formats []discogs.Format) *string {
	if len(formats) == 0 {
		return nil
	}
	name := formats[0].Name
	return &name
}

func parseDateAdded(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// releaseFromItem flattens a folder entry.
func releaseFromItem(item discogs.CollectionItem) models.Release {
	bi := item.BasicInformation

	var title string
	if bi.Title != nil {
		title = *bi.Title
	}

	id := bi.ID
	if id == 0 {
		id = item.ID
	}

	return models.Release{
		ID:        id,
		Title:     title,
		Artist:    firstArtist(bi.Artists),
		Year:      bi.Year,
		Format:    firstFormat(bi.Formats),
		Label:     firstLabel(bi.Labels),
		URL:       CanonicalURL(bi.URI),
		DateAdded: parseDateAdded(item.DateAdded),
	}
}

// releaseFromDetail flattens a full release. A payload without title or
// artists keys is rejected; an empty artist list is fine.
func releaseFromDetail(r *discogs.Release) (models.Release, error) {
	var missing []string
	if r.Title == nil {
		missing = append(missing, "title")
	}
	if r.Artists == nil {
		missing = append(missing, "artists")
	}
	if len(missing) > 0 {
		return models.Release{}, fmt.Errorf("%w: release %d is missing %s", shared.ErrDataShape, r.ID, strings.Join(missing, ", "))
	}

	return models.Release{
		ID:     r.ID,
		Title:  *r.Title,
		Artist: firstArtist(r.Artists),
		Year:   r.Year,
		Format: firstFormat(r.Formats),
		Label:  firstLabel(r.Labels),
		URL:    CanonicalURL(r.URI),
	}, nil
}
