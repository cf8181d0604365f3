package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/ytdash/internal/models"
	"github.com/desertthunder/ytdash/internal/shared"
)

// SessionRepository stores sessions in SQLite.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session, assigning its ID and sequence.
func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	sequence, err := NextSequence(ctx, r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if s.ID == "" {
		s.ID = shared.GenerateID()
	}
	s.Sequence = sequence

	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sessions (
			id, sequence, subject, email, provider_token, refresh_token, token_type,
			token_expiry, created_at, updated_at, expires_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.Sequence, s.Subject, s.Email, s.ProviderToken, s.RefreshToken, s.TokenType,
		nullTime(s.TokenExpiry), s.CreatedAt.UTC(), s.UpdatedAt.UTC(), s.ExpiresAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a live session by ID.
//
// Sessions past their expiry are reported as [shared.ErrSessionNotFound].
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, sequence, subject, email, provider_token, refresh_token, token_type,
			token_expiry, created_at, updated_at, expires_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`

	var (
		s           models.Session
		tokenExpiry sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, id, time.Now().UTC()).Scan(
		&s.ID, &s.Sequence, &s.Subject, &s.Email, &s.ProviderToken, &s.RefreshToken, &s.TokenType,
		&tokenExpiry, &s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if tokenExpiry.Valid {
		s.TokenExpiry = tokenExpiry.Time
	}

	return &s, nil
}

// Update writes the token fields of an existing session.
func (r *SessionRepository) Update(ctx context.Context, s *models.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	s.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE sessions
		SET email = ?, provider_token = ?, refresh_token = ?, token_type = ?, token_expiry = ?,
			updated_at = ?, expires_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		s.Email, s.ProviderToken, s.RefreshToken, s.TokenType, nullTime(s.TokenExpiry),
		s.UpdatedAt, s.ExpiresAt.UTC(), s.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, s.ID)
	}

	return nil
}

// Delete removes a session by ID. Deleting an unknown session is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose lifetime ended before now and returns how many were removed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// ListBySubject returns the live sessions of one Google account, oldest first.
func (r *SessionRepository) ListBySubject(ctx context.Context, subject string) ([]*models.Session, error) {
	query := `
		SELECT id, sequence, subject, email, provider_token, refresh_token, token_type,
			token_expiry, created_at, updated_at, expires_at
		FROM sessions
		WHERE subject = ? AND expires_at > ?
		ORDER BY sequence ASC
	`

	rows, err := r.db.QueryContext(ctx, query, subject, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var (
			s           models.Session
			tokenExpiry sql.NullTime
		)
		err := rows.Scan(
			&s.ID, &s.Sequence, &s.Subject, &s.Email, &s.ProviderToken, &s.RefreshToken, &s.TokenType,
			&tokenExpiry, &s.CreatedAt, &s.UpdatedAt, &s.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if tokenExpiry.Valid {
			s.TokenExpiry = tokenExpiry.Time
		}
		sessions = append(sessions, &s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
