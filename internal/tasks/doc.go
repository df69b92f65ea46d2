// Package tasks turns a selection of Discogs releases into a label CSV with
// real-time progress reporting.
//
// # Core Operations
//
// The [Exporter] runs the export in stages:
//
//  1. [FetchReleases] : Fetch each selected release
//     - Bounded fan-out (errgroup) paced by a rate limiter
//     - Results keep the selection order
//     - A release that fails to load is logged and skipped
//
//  2. [Exporter.Preview] : Extract artist, title, url and year rows
//
//  3. [Exporter.Publish] : Render, write, archive and record
//     - Rows are rendered with the current label template
//     - The file is written when an output directory is set
//     - An optional [Archiver] uploads a copy; failures are only logged
//     - An optional [ExportRecorder] stores the export history entry
//
// # Progress Reporting
//
// All operations accept a nil or buffered channel for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
package tasks
