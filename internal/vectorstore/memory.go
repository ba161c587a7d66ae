package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"study-assistant/internal/contextutil"
)

// MemoryStore implements VectorStore in process memory.
// Points keep their upsert order inside a namespace; an upsert of an existing ID moves the
// point to the end, so equal scores are always returned in upsert order.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string][]Point
}

// NewMemoryStore creates an empty in-memory vector store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		namespaces: make(map[string][]Point),
	}
}

// Upsert inserts or updates points in the namespace.
func (s *MemoryStore) Upsert(ctx context.Context, namespace string, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p.ID == "" {
			return fmt.Errorf("point ID cannot be empty")
		}
		replaced[p.ID] = struct{}{}
	}

	existing := s.namespaces[namespace]
	kept := make([]Point, 0, len(existing)+len(points))
	for _, p := range existing {
		if _, ok := replaced[p.ID]; !ok {
			kept = append(kept, p)
		}
	}
	for _, p := range points {
		vec := make([]float32, len(p.Vec))
		copy(vec, p.Vec)
		kept = append(kept, Point{ID: p.ID, Vec: vec, Meta: p.Meta})
	}
	s.namespaces[namespace] = kept

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "upserted points", "namespace", namespace, "count", len(points))
	return nil
}

// Search performs an exhaustive cosine similarity search over the namespace.
func (s *MemoryStore) Search(ctx context.Context, namespace string, query []float32, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be greater than 0")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	points := s.namespaces[namespace]
	results := make([]SearchResult, 0, len(points))
	for _, p := range points {
		if len(p.Vec) != len(query) {
			return nil, fmt.Errorf("vector size mismatch for point %s: expected %d, got %d", p.ID, len(query), len(p.Vec))
		}
		results = append(results, SearchResult{
			PointID: p.ID,
			Score:   float32(CosineSimilarity(query, p.Vec)),
			Meta:    p.Meta,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "search completed", "namespace", namespace, "k", k, "results", len(results))
	return results, nil
}

// Delete removes points by their IDs. Unknown IDs are ignored.
func (s *MemoryStore) Delete(ctx context.Context, namespace string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	existing := s.namespaces[namespace]
	kept := existing[:0]
	for _, p := range existing {
		if _, ok := drop[p.ID]; !ok {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		delete(s.namespaces, namespace)
	} else {
		s.namespaces[namespace] = kept
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "deleted points", "namespace", namespace, "count", len(ids))
	return nil
}

// DeleteNamespace removes every point of the namespace.
func (s *MemoryStore) DeleteNamespace(ctx context.Context, namespace string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.namespaces, namespace)
	return nil
}

// Healthy always succeeds for the in-memory store.
func (s *MemoryStore) Healthy(ctx context.Context) error {
	return nil
}

// Count returns the number of points stored in the namespace.
func (s *MemoryStore) Count(namespace string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[namespace])
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Zero-length or zero-norm vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
