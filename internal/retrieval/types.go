package retrieval

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks study-assistant/internal/retrieval Embedder

import (
	"context"
	"time"
)

// Embedder turns texts into fixed-length vectors, one per input, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// PageSpan maps a page of the source file to a rune range of Document.Text.
type PageSpan struct {
	Page  int
	Start int
	End   int
}

// Document is uploaded content owned by one session.
type Document struct {
	ID         string
	SessionID  string
	Filename   string
	Kind       string
	Text       string
	Pages      []PageSpan
	UploadedAt time.Time
}

// PageAt returns the page containing the rune offset, or 0 when the document has no pages.
func (d Document) PageAt(offset int) int {
	for _, p := range d.Pages {
		if offset >= p.Start && offset < p.End {
			return p.Page
		}
	}
	return 0
}

// Chunk is a contiguous span of a document's text.
type Chunk struct {
	ID         string
	DocumentID string
	Filename   string
	Index      int
	Text       string
	Start      int // rune offset, inclusive
	End        int // rune offset, exclusive
	Page       int
	Seq        uint64
}

// Result pairs a chunk with its relevance to a query.
type Result struct {
	Chunk Chunk
	Score float32
}

// DocumentInfo summarises an indexed document.
type DocumentInfo struct {
	ID         string
	Filename   string
	Kind       string
	Chunks     int
	Runes      int
	UploadedAt time.Time
}

// IndexStats reports the size of an index.
type IndexStats struct {
	Documents int
	Chunks    int
	Vectors   int
	Dimension int
}
