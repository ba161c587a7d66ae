package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_vector_store.go -package=mocks study-assistant/internal/vectorstore VectorStore

import "context"

// Point represents a vector point with metadata.
type Point struct {
	ID   string
	Vec  []float32
	Meta map[string]any
}

// SearchResult represents a search result from vector search.
type SearchResult struct {
	PointID string
	Score   float32
	Meta    map[string]any
}

// VectorStore defines the interface for vector storage operations.
// Every operation is scoped to a namespace; points never leak across namespaces.
type VectorStore interface {
	// Upsert inserts or updates points in the namespace.
	Upsert(ctx context.Context, namespace string, points []Point) error

	// Search returns at most k points of the namespace ordered by descending cosine similarity.
	Search(ctx context.Context, namespace string, query []float32, k int) ([]SearchResult, error)

	// Delete removes points by their IDs.
	Delete(ctx context.Context, namespace string, ids []string) error

	// DeleteNamespace removes every point of the namespace.
	DeleteNamespace(ctx context.Context, namespace string) error

	// Healthy reports whether the backend is reachable.
	Healthy(ctx context.Context) error
}
