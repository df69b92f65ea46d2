package discogs

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrAPIRequest   = errors.New("discogs: API request failed")
	ErrNotFound     = errors.New("discogs: resource not found")
	ErrUnauthorized = errors.New("discogs: unauthorized")
	ErrRateLimited  = errors.New("discogs: rate limited")
)

// APIError is a non-2xx response from the Discogs API.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("discogs: %s returned HTTP %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("discogs: %s returned HTTP %d: %s", e.Path, e.StatusCode, e.Message)
}

// Unwrap maps the status code to a sentinel for errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return ErrAPIRequest
	}
}
