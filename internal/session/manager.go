// Package session keeps one retrieval index per study session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"study-assistant/internal/contextutil"
	"study-assistant/internal/retrieval"
	"study-assistant/internal/storage"
	"study-assistant/internal/vectorstore"
)

// ErrNotFound is returned for unknown or evicted sessions.
var ErrNotFound = errors.New("session not found")

// Namespace returns the vector store namespace holding a session's vectors.
func Namespace(sessionID string) string {
	return "session-" + sessionID
}

// Session is a study session and its private index.
type Session struct {
	ID        string
	CreatedAt time.Time

	index *retrieval.Index

	// mu serialises index mutations and queries of this session.
	mu     sync.Mutex
	closed bool

	activeMu   sync.Mutex
	lastActive time.Time
}

// Index returns the session's retrieval index.
func (s *Session) Index() *retrieval.Index {
	return s.index
}

// Lock acquires exclusive use of the session index. It fails with ErrNotFound
// once the session has been deleted or evicted, and the lock is not held then.
func (s *Session) Lock() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, s.ID)
	}
	return nil
}

// Unlock releases the session index.
func (s *Session) Unlock() { s.mu.Unlock() }

// LastActive returns the time of the last lookup of the session.
func (s *Session) LastActive() time.Time {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	return s.lastActive
}

func (s *Session) touch(at time.Time) {
	s.activeMu.Lock()
	s.lastActive = at
	s.activeMu.Unlock()
}

// Config holds the collaborators every session index is built from.
type Config struct {
	Embedder retrieval.Embedder
	Vectors  vectorstore.VectorStore
	Splitter retrieval.Splitter
}

// Manager creates, looks up and evicts sessions. Indexes live in memory only;
// the session catalog records which sessions exist so stale ones can be purged.
type Manager struct {
	cfg   Config
	store storage.SessionStore
	now   func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates a session manager.
func NewManager(cfg Config, store storage.SessionStore) (*Manager, error) {
	if cfg.Embedder == nil || cfg.Vectors == nil {
		return nil, fmt.Errorf("embedder and vector store are required")
	}
	if store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if err := cfg.Splitter.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		cfg:      cfg,
		store:    store,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}, nil
}

// Create starts a new session with an empty index.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	logger := contextutil.LoggerFromContext(ctx)

	id := uuid.New().String()
	index, err := retrieval.NewIndex(Namespace(id), m.cfg.Embedder, m.cfg.Vectors, m.cfg.Splitter)
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	now := m.now().UTC()
	if err := m.store.Create(ctx, &storage.SessionRecord{ID: id, CreatedAt: now, LastActiveAt: now}); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s := &Session{ID: id, CreatedAt: now, index: index, lastActive: now}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	logger.InfoContext(ctx, "session created", "session_id", id)
	return s, nil
}

// Get returns a live session and marks it active.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	now := m.now().UTC()
	s.touch(now)
	if err := m.store.Touch(ctx, id, now); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to record session activity", "session_id", id, "error", err)
	}
	return s, nil
}

// Delete drops a session, its vectors and its catalog entries. Unknown IDs are ErrNotFound.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return m.release(ctx, s)
}

func (m *Manager) release(ctx context.Context, s *Session) error {
	s.mu.Lock()
	s.closed = true
	err := s.index.Clear(ctx)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to clear index of session %s: %w", s.ID, err)
	}
	if err := m.store.Delete(ctx, s.ID); err != nil {
		return fmt.Errorf("failed to delete session %s: %w", s.ID, err)
	}
	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "session deleted", "session_id", s.ID)
	return nil
}

// EvictIdle deletes sessions that have not been used for longer than ttl and returns their IDs.
func (m *Manager) EvictIdle(ctx context.Context, ttl time.Duration) []string {
	cutoff := m.now().UTC().Add(-ttl)

	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	evicted := make([]string, 0, len(idle))
	for _, s := range idle {
		if err := m.release(ctx, s); err != nil {
			contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to release idle session", "session_id", s.ID, "error", err)
		}
		evicted = append(evicted, s.ID)
	}
	return evicted
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// PurgeStored removes catalog entries and vectors of sessions left over from a previous run.
// Indexes are not persisted, so those sessions can no longer be served.
func (m *Manager) PurgeStored(ctx context.Context) (int, error) {
	ids, err := m.store.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list stored sessions: %w", err)
	}

	purged := 0
	for _, id := range ids {
		m.mu.RLock()
		_, live := m.sessions[id]
		m.mu.RUnlock()
		if live {
			continue
		}
		if err := m.cfg.Vectors.DeleteNamespace(ctx, Namespace(id)); err != nil {
			return purged, fmt.Errorf("failed to drop vectors of session %s: %w", id, err)
		}
		if err := m.store.Delete(ctx, id); err != nil {
			return purged, fmt.Errorf("failed to delete session %s: %w", id, err)
		}
		purged++
	}
	return purged, nil
}

// RunJanitor evicts idle sessions every interval until ctx is cancelled.
func (m *Manager) RunJanitor(ctx context.Context, interval, ttl time.Duration) {
	logger := contextutil.LoggerFromContext(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if evicted := m.EvictIdle(ctx, ttl); len(evicted) > 0 {
				logger.InfoContext(ctx, "evicted idle sessions", "count", len(evicted))
			}
		}
	}
}
