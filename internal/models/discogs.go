package models

import (
	"fmt"
	"strings"
	"time"
)

// Credentials holds the consumer pair issued to the application and the
// optional token pair issued to the user.
type Credentials struct {
	ConsumerKey      string `json:"consumer_key"`
	ConsumerSecret   string `json:"consumer_secret"`
	OAuthToken       string `json:"oauth_token,omitempty"`
	OAuthTokenSecret string `json:"oauth_token_secret,omitempty"`
}

// HasConsumer reports whether both consumer values are present and not
// blank.
func (c Credentials) HasConsumer() bool {
	return strings.TrimSpace(c.ConsumerKey) != "" && strings.TrimSpace(c.ConsumerSecret) != ""
}

// HasToken reports whether both token values are present.
func (c Credentials) HasToken() bool {
	return c.OAuthToken != "" && c.OAuthTokenSecret != ""
}

// WithoutToken returns a copy with the token pair cleared.
func (c Credentials) WithoutToken() Credentials {
	c.OAuthToken = ""
	c.OAuthTokenSecret = ""
	return c
}

// PendingAuth is the state that must survive between starting and
// completing an authorization. Callers store it wherever the flow keeps
// state (a browser session or a local variable in the CLI).
type PendingAuth struct {
	ConsumerKey        string `json:"consumer_key"`
	ConsumerSecret     string `json:"consumer_secret"`
	RequestToken       string `json:"request_token"`
	RequestTokenSecret string `json:"request_token_secret"`
}

// IsZero reports whether no authorization is in flight.
func (p PendingAuth) IsZero() bool {
	return p.RequestToken == "" && p.RequestTokenSecret == ""
}

// Identity is the user the token pair belongs to.
type Identity struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Folder is a named grouping of releases in a user's collection.
type Folder struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Release is a flattened view of a Discogs release. Artist, Format and
// Label hold the first entry of the upstream list, or nil when it is empty.
type Release struct {
	ID        int        `json:"id"`
	Title     string     `json:"title"`
	Artist    *string    `json:"artist"`
	Year      int        `json:"year"`
	Format    *string    `json:"format"`
	Label     *string    `json:"label"`
	URL       string     `json:"url"`
	DateAdded *time.Time `json:"date_added,omitempty"`
}

// ArtistName returns the artist or an empty string.
func (r Release) ArtistName() string {
	return deref(r.Artist)
}

// FormatName returns the format or an empty string.
func (r Release) FormatName() string {
	return deref(r.Format)
}

// LabelName returns the label or an empty string.
func (r Release) LabelName() string {
	return deref(r.Label)
}

// String renders "Artist - Title (Year)" for listings.
func (r Release) String() string {
	s := r.Title
	if a := r.ArtistName(); a != "" {
		s = a + " - " + s
	}
	if r.Year > 0 {
		s = fmt.Sprintf("%s (%d)", s, r.Year)
	}
	return s
}

// Record converts the release into row template engine input. Nil
// pointers are stored as nil values so the keys are still present. Discogs
// reports an unknown year as 0; that key is left out.
func (r Release) Record() Record {
	rec := Record{
		"id":    r.ID,
		"title": r.Title,
		"url":   r.URL,
	}
	if r.Year > 0 {
		rec["year"] = r.Year
	}
	rec["artist"] = ptrValue(r.Artist)
	rec["format"] = ptrValue(r.Format)
	rec["label"] = ptrValue(r.Label)
	return rec
}

// Record is a generic release map. Keys may be absent; values may be nil.
type Record map[string]any

// ExtractedRecord holds the fields the row template engine substitutes.
type ExtractedRecord struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Year   *int   `json:"year,omitempty"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptrValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
