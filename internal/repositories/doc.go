// Package repositories implements SQLite persistence for web sessions and
// export history.
//
// Key Implementations:
//   - [SessionRepository] : Browser sessions with JSON payloads and expiry
//   - [ExportRepository] : Generated CSV history ordered by sequence
//
// Sequence numbers provide stable, human-readable ordering (e.g., export #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments named counters in the sequences table.
package repositories
