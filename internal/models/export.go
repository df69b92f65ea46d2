package models

import (
	"fmt"
	"time"
)

// ExportEntry records one generated CSV.
type ExportEntry struct {
	ID           string    `json:"id"`
	Sequence     int       `json:"sequence"`
	Filename     string    `json:"filename"`
	Username     string    `json:"username"`
	FolderID     *int      `json:"folder_id,omitempty"`
	ReleaseIDs   []int     `json:"release_ids"`
	RowCount     int       `json:"row_count"`
	SkippedCount int       `json:"skipped_count"`
	ArchiveKey   string    `json:"archive_key,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func (e *ExportEntry) GetID() string           { return e.ID }
func (e *ExportEntry) GetCreatedAt() time.Time { return e.CreatedAt }

// Validate checks required fields.
func (e *ExportEntry) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("export id is required")
	}
	if e.Filename == "" {
		return fmt.Errorf("export filename is required")
	}
	return nil
}
