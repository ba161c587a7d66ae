package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_session_store.go -package=mocks study-assistant/internal/storage SessionStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a record is not found.
	ErrNotFound = errors.New("record not found")
)

// SessionStore defines the interface for session storage operations.
type SessionStore interface {
	// Create inserts a new session.
	Create(ctx context.Context, session *SessionRecord) error
	// Get gets a session by ID. Returns ErrNotFound if not found.
	Get(ctx context.Context, id string) (*SessionRecord, error)
	// Touch updates the last activity time of a session.
	Touch(ctx context.Context, id string, at time.Time) error
	// Delete removes a session together with its documents and chunks.
	Delete(ctx context.Context, id string) error
	// ListIDs returns the IDs of every stored session.
	ListIDs(ctx context.Context) ([]string, error)
}

// SessionRepo provides methods for session operations.
// It implements the SessionStore interface.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo creates a new SessionRepo.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create inserts a new session. Zero timestamps default to now.
func (r *SessionRepo) Create(ctx context.Context, session *SessionRecord) error {
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastActiveAt.IsZero() {
		session.LastActiveAt = session.CreatedAt
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO sessions (id, created_at, last_active_at) VALUES (?, ?, ?)",
		session.ID, session.CreatedAt, session.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Get gets a session by ID. Returns ErrNotFound if not found.
func (r *SessionRepo) Get(ctx context.Context, id string) (*SessionRecord, error) {
	var s SessionRecord
	err := r.db.QueryRowContext(ctx,
		"SELECT id, created_at, last_active_at FROM sessions WHERE id = ?",
		id,
	).Scan(&s.ID, &s.CreatedAt, &s.LastActiveAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}
	return &s, nil
}

// Touch updates the last activity time of a session. Returns ErrNotFound if not found.
func (r *SessionRepo) Touch(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, "UPDATE sessions SET last_active_at = ? WHERE id = ?", at, id)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a session; documents and chunks cascade. Deleting an unknown session is a no-op.
func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// ListIDs returns the IDs of every stored session, oldest first.
func (r *SessionRepo) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM sessions ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return ids, nil
}
