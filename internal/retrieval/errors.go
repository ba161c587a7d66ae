package retrieval

import "errors"

var (
	// ErrInvalidDocument is returned when a document is empty or of an unsupported kind.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrEmptyIndex is returned when querying an index that holds no chunks.
	ErrEmptyIndex = errors.New("index is empty")

	// ErrEmbeddingService is returned when the embedding collaborator fails or returns
	// vectors that do not fit the index.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrInvalidK is returned when k is not a positive integer.
	ErrInvalidK = errors.New("k must be a positive integer")

	// ErrEmptyQuery is returned when the query text is blank.
	ErrEmptyQuery = errors.New("query text cannot be empty")

	// ErrVectorStore is returned when the vector store rejects a write, delete or search.
	ErrVectorStore = errors.New("vector store error")

	// ErrInvalidOptions is returned for an unusable chunking configuration.
	ErrInvalidOptions = errors.New("invalid chunking options")
)
