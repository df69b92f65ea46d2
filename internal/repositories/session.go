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

// SessionRepository implements [models.Repository] for [models.WebSession].
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session. A missing ID is generated.
func (r *SessionRepository) Create(ctx context.Context, s *models.WebSession) error {
	if s.ID == "" {
		s.ID = shared.GenerateID()
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrValidation, err)
	}

	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now

	data, err := json.Marshal(s.Data)
	if err != nil {
		return fmt.Errorf("failed to encode session data: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, data, created_at, updated_at, expires_at) VALUES (?, ?, ?, ?, ?)
	`, s.ID, string(data), s.CreatedAt, s.UpdatedAt, s.ExpiresAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Get retrieves a session by ID. Expired sessions are still returned;
// callers decide with [models.WebSession.Expired].
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.WebSession, error) {
	var (
		s    models.WebSession
		data string
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, data, created_at, updated_at, expires_at
		FROM sessions
		WHERE id = ?
	`, id).Scan(&s.ID, &data, &s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: session %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if err := json.Unmarshal([]byte(data), &s.Data); err != nil {
		return nil, fmt.Errorf("%w: session %s has unreadable data: %v", shared.ErrDataShape, id, err)
	}
	return &s, nil
}

// Save writes the session data and expiry back.
func (r *SessionRepository) Save(ctx context.Context, s *models.WebSession) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrValidation, err)
	}

	data, err := json.Marshal(s.Data)
	if err != nil {
		return fmt.Errorf("failed to encode session data: %w", err)
	}
	s.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET data = ?, updated_at = ?, expires_at = ?
		WHERE id = ?
	`, string(data), s.UpdatedAt, s.ExpiresAt.UTC(), s.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return affectedOne(result, fmt.Errorf("%w: session %s", shared.ErrNotFound, s.ID))
}

// Delete removes a session by ID
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return affectedOne(result, fmt.Errorf("%w: session %s", shared.ErrNotFound, id))
}

// DeleteExpired removes sessions whose expiry is at or before now and
// returns how many were removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}
