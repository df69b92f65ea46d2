package models

import (
	"fmt"
	"time"
)

// FlashLevel categorizes a one-shot message shown on the next page render.
type FlashLevel string

const (
	FlashInfo    FlashLevel = "info"
	FlashSuccess FlashLevel = "success"
	FlashError   FlashLevel = "error"
)

// Flash is a message queued for the next page render.
type Flash struct {
	Level   FlashLevel `json:"level"`
	Message string     `json:"message"`
}

// SessionData is the per-browser state of the web application.
type SessionData struct {
	Credentials Credentials       `json:"credentials"`
	Pending     PendingAuth       `json:"pending"`
	Username    string            `json:"username,omitempty"`
	FolderID    int               `json:"folder_id,omitempty"`
	SelectedIDs []int             `json:"selected_ids,omitempty"`
	Preview     []ExtractedRecord `json:"preview,omitempty"`
	Skipped     []int             `json:"skipped,omitempty"`
	Flashes     []Flash           `json:"flashes,omitempty"`
}

// WebSession is a persisted browser session keyed by a random id.
type WebSession struct {
	ID        string      `json:"id"`
	Data      SessionData `json:"data"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (s *WebSession) GetID() string           { return s.ID }
func (s *WebSession) GetCreatedAt() time.Time { return s.CreatedAt }

// Validate checks required fields.
func (s *WebSession) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session id is required")
	}
	if s.ExpiresAt.IsZero() {
		return fmt.Errorf("session expiry is required")
	}
	return nil
}

// Expired reports whether the session is past its expiry at now.
func (s *WebSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AddFlash queues a message.
func (s *WebSession) AddFlash(level FlashLevel, msg string) {
	s.Data.Flashes = append(s.Data.Flashes, Flash{Level: level, Message: msg})
}

// PopFlashes returns and clears the queued messages.
func (s *WebSession) PopFlashes() []Flash {
	f := s.Data.Flashes
	s.Data.Flashes = nil
	return f
}

// Clear drops everything except queued flashes.
func (s *WebSession) Clear() {
	s.Data = SessionData{Flashes: s.Data.Flashes}
}
