package tasks

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/discx/internal/formatter"
	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
)

// TemplateProvider yields the label template to render with.
// [formatter.TemplateSource] satisfies it.
type TemplateProvider interface {
	Current() (*formatter.Template, error)
}

// StaticTemplate serves a template loaded once.
type StaticTemplate struct{ Template *formatter.Template }

func (s StaticTemplate) Current() (*formatter.Template, error) {
	if s.Template == nil {
		return formatter.DefaultTemplate(), nil
	}
	return s.Template, nil
}

// ExportRecorder stores export history. repositories.ExportRepository
// satisfies it.
type ExportRecorder interface {
	Record(ctx context.Context, entry *models.ExportEntry) error
}

// Archiver keeps a remote copy of a generated file and returns its key.
type Archiver interface {
	Archive(ctx context.Context, filename string, data []byte, at time.Time) (string, error)
}

// PreviewResult is the set of rows an export would produce.
type PreviewResult struct {
	Records  []models.ExtractedRecord
	Releases []models.Release
	Skipped  []int
}

// ExportRequest describes one export.
type ExportRequest struct {
	Username   string
	FolderID   *int
	ReleaseIDs []int
	OutputDir  string // Empty keeps the CSV in memory only
}

// ExportResult is the outcome of [Exporter.Publish].
type ExportResult struct {
	Filename string
	Path     string
	Data     []byte
	Rows     int
	Skipped  []int
	Entry    *models.ExportEntry
}

// Exporter fetches releases and renders them with the label template.
type Exporter struct {
	fetcher   ReleaseFetcher
	templates TemplateProvider
	opts      ExportOpts
	recorder  ExportRecorder
	archiver  Archiver
	logger    *log.Logger
	now       func() time.Time
}

// ExporterOption configures an [Exporter].
type ExporterOption func(*Exporter)

// WithRecorder stores every published export.
func WithRecorder(r ExportRecorder) ExporterOption {
	return func(e *Exporter) { e.recorder = r }
}

// WithArchiver uploads every published export.
func WithArchiver(a Archiver) ExporterOption {
	return func(e *Exporter) { e.archiver = a }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ExporterOption {
	return func(e *Exporter) { e.now = now }
}

// NewExporter creates an exporter. A nil templates provider uses the
// bundled template.
func NewExporter(fetcher ReleaseFetcher, templates TemplateProvider, opts ExportOpts, logger *log.Logger, options ...ExporterOption) *Exporter {
	if templates == nil {
		templates = StaticTemplate{}
	}
	if logger == nil {
		logger = log.Default()
	}
	e := &Exporter{
		fetcher:   fetcher,
		templates: templates,
		opts:      opts,
		logger:    shared.WithLogger(logger, "component", "export"),
		now:       time.Now,
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Preview fetches ids and extracts the row fields in selection order.
func (e *Exporter) Preview(ctx context.Context, ids []int, prog chan<- ProgressUpdate) (*PreviewResult, error) {
	fetched, err := FetchReleases(ctx, e.fetcher, ids, e.opts, prog, e.logger)
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(fetched.Releases))
	for _, r := range fetched.Releases {
		records = append(records, r.Record())
	}
	extracted, err := formatter.ExtractRecords(records)
	if err != nil {
		return nil, err
	}
	sendProgress(prog, extractedUpdate(len(extracted)))

	return &PreviewResult{
		Records:  extracted,
		Releases: fetched.Releases,
		Skipped:  fetched.SkippedIDs(),
	}, nil
}

// Render writes records as CSV with the current template.
func (e *Exporter) Render(records []models.ExtractedRecord) ([]byte, error) {
	tmpl, err := e.templates.Current()
	if err != nil {
		return nil, err
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := formatter.WriteCSV(&buf, tmpl.Render(records)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Publish renders preview and hands the CSV to the configured sinks.
// Archive and history failures are logged and do not fail the export.
func (e *Exporter) Publish(ctx context.Context, req ExportRequest, preview *PreviewResult, prog chan<- ProgressUpdate) (*ExportResult, error) {
	if preview == nil || len(preview.Records) == 0 {
		return nil, fmt.Errorf("%w: nothing to export", shared.ErrValidation)
	}

	data, err := e.Render(preview.Records)
	if err != nil {
		return nil, err
	}
	sendProgress(prog, renderedUpdate(len(preview.Records)))

	now := e.now()
	result := &ExportResult{
		Filename: formatter.ExportFilename(now),
		Data:     data,
		Rows:     len(preview.Records),
		Skipped:  preview.Skipped,
	}

	if req.OutputDir != "" {
		path, err := formatter.WriteExportFile(req.OutputDir, result.Filename, data)
		if err != nil {
			return nil, err
		}
		result.Path = path
		sendProgress(prog, writtenUpdate(path))
	}

	entry := &models.ExportEntry{
		ID:           shared.GenerateID(),
		Filename:     result.Filename,
		Username:     req.Username,
		FolderID:     req.FolderID,
		ReleaseIDs:   req.ReleaseIDs,
		RowCount:     result.Rows,
		SkippedCount: len(preview.Skipped),
		CreatedAt:    now.UTC(),
	}

	if e.archiver != nil {
		key, err := e.archiver.Archive(ctx, result.Filename, data, now)
		if err != nil {
			e.logger.Warn("archive upload failed", "file", result.Filename, "error", err)
			sendProgress(prog, archiveFailedUpdate(err))
		} else {
			entry.ArchiveKey = key
			sendProgress(prog, archivedUpdate(key))
		}
	}

	if e.recorder != nil {
		if err := e.recorder.Record(ctx, entry); err != nil {
			e.logger.Warn("failed to record export history", "file", result.Filename, "error", err)
		} else {
			sendProgress(prog, recordedUpdate(entry))
		}
	}
	result.Entry = entry

	e.logger.Info("export generated", "file", result.Filename, "rows", result.Rows, "skipped", len(result.Skipped))
	return result, nil
}

// Export runs [Exporter.Preview] then [Exporter.Publish].
func (e *Exporter) Export(ctx context.Context, req ExportRequest, prog chan<- ProgressUpdate) (*ExportResult, error) {
	preview, err := e.Preview(ctx, req.ReleaseIDs, prog)
	if err != nil {
		return nil, err
	}
	return e.Publish(ctx, req, preview, prog)
}
