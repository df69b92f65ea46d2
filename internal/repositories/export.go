package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/discx/internal/models"
	"github.com/desertthunder/discx/internal/shared"
)

const exportColumns = `id, sequence, filename, username, folder_id, release_ids, row_count, skipped_count, archive_key, created_at`

// ExportRepository implements [models.Repository] for [models.ExportEntry].
type ExportRepository struct {
	db *sql.DB
}

// NewExportRepository creates a new [ExportRepository] with the given database connection
func NewExportRepository(db *sql.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create inserts a new export entry with a generated sequence. A missing ID
// or creation time is filled in.
func (r *ExportRepository) Create(ctx context.Context, e *models.ExportEntry) error {
	if e.ID == "" {
		e.ID = shared.GenerateID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrValidation, err)
	}

	ids := e.ReleaseIDs
	if ids == nil {
		ids = []int{}
	}
	releaseIDs, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode release ids: %w", err)
	}

	var folderID any
	if e.FolderID != nil {
		folderID = *e.FolderID
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := NextSequence(ctx, tx, "exports")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO exports (`+exportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, sequence, e.Filename, e.Username, folderID, string(releaseIDs),
		e.RowCount, e.SkippedCount, e.ArchiveKey, e.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert export: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit export: %w", err)
	}
	e.Sequence = sequence
	return nil
}

// Record is [ExportRepository.Create] under the name the export task uses.
func (r *ExportRepository) Record(ctx context.Context, e *models.ExportEntry) error {
	return r.Create(ctx, e)
}

// Get retrieves an export entry by ID
func (r *ExportRepository) Get(ctx context.Context, id string) (*models.ExportEntry, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+exportColumns+" FROM exports WHERE id = ?", id)
	e, err := scanExport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: export %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns the most recent exports first. A limit of zero or less
// returns all of them.
func (r *ExportRepository) List(ctx context.Context, limit int) ([]*models.ExportEntry, error) {
	query := "SELECT " + exportColumns + " FROM exports ORDER BY sequence DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query exports: %w", err)
	}
	defer rows.Close()

	entries := []*models.ExportEntry{}
	for rows.Next() {
		e, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Delete removes an export entry by ID
func (r *ExportRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM exports WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete export: %w", err)
	}
	return affectedOne(result, fmt.Errorf("%w: export %s", shared.ErrNotFound, id))
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExport(row scanner) (*models.ExportEntry, error) {
	var (
		e          models.ExportEntry
		folderID   sql.NullInt64
		releaseIDs string
	)

	err := row.Scan(&e.ID, &e.Sequence, &e.Filename, &e.Username, &folderID, &releaseIDs,
		&e.RowCount, &e.SkippedCount, &e.ArchiveKey, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan export: %w", err)
	}

	if folderID.Valid {
		id := int(folderID.Int64)
		e.FolderID = &id
	}
	if err := json.Unmarshal([]byte(releaseIDs), &e.ReleaseIDs); err != nil {
		return nil, fmt.Errorf("%w: export %s has unreadable release ids: %v", shared.ErrDataShape, e.ID, err)
	}
	return &e, nil
}
