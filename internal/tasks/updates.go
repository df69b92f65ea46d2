package tasks

import (
	"fmt"

	"github.com/desertthunder/discx/internal/models"
)

// ProgressUpdate represents a progress event during an export.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	PhaseFetchReleases Phase = iota
	PhaseExtractFields
	PhaseRenderRows
	PhaseWriteFile
	PhaseArchiveExport
	PhaseRecordHistory
)

func (p Phase) String() string {
	switch p {
	case PhaseFetchReleases:
		return "fetch_releases"
	case PhaseExtractFields:
		return "extract_fields"
	case PhaseRenderRows:
		return "render_rows"
	case PhaseWriteFile:
		return "write_file"
	case PhaseArchiveExport:
		return "archive_export"
	case PhaseRecordHistory:
		return "record_history"
	default:
		return ""
	}
}

func fetchingReleasesUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFetchReleases,
		Total:   total,
		Message: fmt.Sprintf("Fetching %d releases from Discogs...", total),
	}
}

func releaseFetchedUpdate(step, total int, r models.Release) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFetchReleases,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, r),
		Data:    r,
	}
}

func releaseFailedUpdate(step, total, id int, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFetchReleases,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ release %d: %v", step, total, id, err),
	}
}

func extractedUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseExtractFields,
		Step:    count,
		Total:   count,
		Message: fmt.Sprintf("Prepared %d rows", count),
	}
}

func renderedUpdate(rows int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseRenderRows,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Rendered %d rows with the label template", rows),
	}
}

func writtenUpdate(path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseWriteFile,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Wrote %s", path),
		Data:    path,
	}
}

func archivedUpdate(key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseArchiveExport,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Archived as %s", key),
		Data:    key,
	}
}

func archiveFailedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseArchiveExport,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✗ archive upload failed: %v", err),
	}
}

func recordedUpdate(entry *models.ExportEntry) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseRecordHistory,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Recorded export #%d", entry.Sequence),
		Data:    entry,
	}
}
