package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"study-assistant/internal/llm"
	"study-assistant/internal/retrieval"
	"study-assistant/internal/storage"
	"study-assistant/internal/storage/mocks"
	"study-assistant/internal/vectorstore"
)

func newTestManager(t *testing.T, store storage.SessionStore) (*Manager, *vectorstore.MemoryStore) {
	t.Helper()
	embedder, err := llm.NewHashEmbedder(64)
	if err != nil {
		t.Fatalf("NewHashEmbedder() error = %v", err)
	}
	vectors := vectorstore.NewMemoryStore()
	m, err := NewManager(Config{
		Embedder: embedder,
		Vectors:  vectors,
		Splitter: retrieval.Splitter{Size: 100, Overlap: 10},
	}, store)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m, vectors
}

func TestNewManager_Validation(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	embedder, _ := llm.NewHashEmbedder(8)

	tests := []struct {
		name  string
		cfg   Config
		store storage.SessionStore
	}{
		{"missing embedder", Config{Vectors: vectorstore.NewMemoryStore(), Splitter: retrieval.Splitter{Size: 10}}, store},
		{"missing vectors", Config{Embedder: embedder, Splitter: retrieval.Splitter{Size: 10}}, store},
		{"missing store", Config{Embedder: embedder, Vectors: vectorstore.NewMemoryStore(), Splitter: retrieval.Splitter{Size: 10}}, nil},
		{"bad splitter", Config{Embedder: embedder, Vectors: vectorstore.NewMemoryStore(), Splitter: retrieval.Splitter{Size: 10, Overlap: 10}}, store},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewManager(tt.cfg, tt.store); err == nil {
				t.Error("NewManager() expected error")
			}
		})
	}
}

func TestManager_CreateGetDelete(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	m, vectors := newTestManager(t, store)
	ctx := context.Background()

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s, err := m.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.ID == "" || s.Index() == nil {
		t.Fatalf("Create() = %+v, want id and index", s)
	}
	if s.Index().Namespace() != Namespace(s.ID) {
		t.Errorf("index namespace = %q, want %q", s.Index().Namespace(), Namespace(s.ID))
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}

	store.EXPECT().Touch(gomock.Any(), s.ID, gomock.Any()).Return(nil)
	got, err := m.Get(ctx, s.ID)
	if err != nil || got != s {
		t.Fatalf("Get() = %v, %v; want created session", got, err)
	}

	if _, err := s.Index().Ingest(ctx, retrieval.Document{ID: "d", Text: "Mitochondria produce ATP."}); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if vectors.Count(Namespace(s.ID)) != 1 {
		t.Fatalf("vector count = %d, want 1", vectors.Count(Namespace(s.ID)))
	}

	store.EXPECT().Delete(gomock.Any(), s.ID).Return(nil)
	if err := m.Delete(ctx, s.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if vectors.Count(Namespace(s.ID)) != 0 {
		t.Error("Delete() left vectors behind")
	}
	if _, err := m.Get(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := m.Delete(ctx, s.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete() twice error = %v, want ErrNotFound", err)
	}
}

func TestManager_CreateStoreError(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	m, _ := newTestManager(t, store)

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	if _, err := m.Create(context.Background()); err == nil {
		t.Fatal("Create() expected error")
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d, want 0", m.Len())
	}
}

func TestManager_GetTouchFailureIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	m, _ := newTestManager(t, store)
	ctx := context.Background()

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s, _ := m.Create(ctx)

	store.EXPECT().Touch(gomock.Any(), s.ID, gomock.Any()).Return(errors.New("locked"))
	if _, err := m.Get(ctx, s.ID); err != nil {
		t.Errorf("Get() error = %v, want nil", err)
	}
}

func TestManager_EvictIdle(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	m, _ := newTestManager(t, store)
	ctx := context.Background()

	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	idle, _ := m.Create(ctx)
	active, _ := m.Create(ctx)

	clock = clock.Add(90 * time.Minute)
	store.EXPECT().Touch(gomock.Any(), active.ID, clock).Return(nil)
	if _, err := m.Get(ctx, active.ID); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	clock = clock.Add(time.Hour)
	store.EXPECT().Delete(gomock.Any(), idle.ID).Return(nil)
	evicted := m.EvictIdle(ctx, 2*time.Hour)
	if len(evicted) != 1 || evicted[0] != idle.ID {
		t.Errorf("EvictIdle() = %v, want [%s]", evicted, idle.ID)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
	if _, err := m.Get(ctx, idle.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(evicted) error = %v, want ErrNotFound", err)
	}
}

func TestManager_LockAfterEviction(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	m, vectors := newTestManager(t, store)
	ctx := context.Background()

	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return clock }

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	created, _ := m.Create(ctx)

	store.EXPECT().Touch(gomock.Any(), created.ID, gomock.Any()).Return(nil)
	s, err := m.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	clock = clock.Add(3 * time.Hour)
	store.EXPECT().Delete(gomock.Any(), s.ID).Return(nil)
	if evicted := m.EvictIdle(ctx, time.Hour); len(evicted) != 1 {
		t.Fatalf("EvictIdle() = %v, want one session", evicted)
	}

	if err := s.Lock(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Lock() on evicted session error = %v, want ErrNotFound", err)
	}
	if vectors.Count(Namespace(s.ID)) != 0 {
		t.Errorf("vector count = %d, want 0", vectors.Count(Namespace(s.ID)))
	}
}

func TestManager_PurgeStored(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockSessionStore(ctrl)
	m, vectors := newTestManager(t, store)
	ctx := context.Background()

	store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	live, _ := m.Create(ctx)

	_ = vectors.Upsert(ctx, Namespace("stale"), []vectorstore.Point{{ID: "p", Vec: []float32{1}}})

	store.EXPECT().ListIDs(gomock.Any()).Return([]string{"stale", live.ID}, nil)
	store.EXPECT().Delete(gomock.Any(), "stale").Return(nil)

	purged, err := m.PurgeStored(ctx)
	if err != nil {
		t.Fatalf("PurgeStored() error = %v", err)
	}
	if purged != 1 {
		t.Errorf("PurgeStored() = %d, want 1", purged)
	}
	if vectors.Count(Namespace("stale")) != 0 {
		t.Error("PurgeStored() left stale vectors")
	}
}

func TestManager_RunJanitorStops(t *testing.T) {
	ctrl := gomock.NewController(t)
	m, _ := newTestManager(t, mocks.NewMockSessionStore(ctrl))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunJanitor(ctx, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunJanitor() did not stop after cancel")
	}
}
