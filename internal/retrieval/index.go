package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"study-assistant/internal/contextutil"
	"study-assistant/internal/vectorstore"
)

type indexedDocument struct {
	doc      Document
	chunkIDs []string
}

// Index is the retrieval index of one session. It owns the chunks of every ingested
// document and keeps exactly one vector per chunk in the vector store namespace.
type Index struct {
	namespace string
	embedder  Embedder
	store     vectorstore.VectorStore
	splitter  Splitter

	mu     sync.RWMutex
	docs   map[string]*indexedDocument
	order  []string
	chunks map[string]Chunk
	seq    uint64
	dim    int
}

// NewIndex creates an empty index writing its vectors under namespace.
func NewIndex(namespace string, embedder Embedder, store vectorstore.VectorStore, splitter Splitter) (*Index, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}
	if embedder == nil || store == nil {
		return nil, fmt.Errorf("embedder and vector store are required")
	}
	if err := splitter.Validate(); err != nil {
		return nil, err
	}
	return &Index{
		namespace: namespace,
		embedder:  embedder,
		store:     store,
		splitter:  splitter,
		docs:      make(map[string]*indexedDocument),
		chunks:    make(map[string]Chunk),
	}, nil
}

// Namespace returns the vector store namespace of the index.
func (idx *Index) Namespace() string {
	return idx.namespace
}

// Splitter returns the chunking configuration of the index.
func (idx *Index) Splitter() Splitter {
	return idx.splitter
}

// ChunkID derives the stable identifier of the i-th chunk of a document.
func ChunkID(namespace, documentID string, i int) string {
	name := namespace + "/" + documentID + "/" + strconv.Itoa(i)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

// Ingest splits, embeds and indexes a document. Ingesting an ID that is already indexed
// replaces the previous version. On error the index is left as it was.
func (idx *Index) Ingest(ctx context.Context, doc Document) ([]Chunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if strings.TrimSpace(doc.Text) == "" {
		return nil, fmt.Errorf("%w: document %q has no text content", ErrInvalidDocument, doc.Filename)
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}

	texts, spans := idx.splitter.SplitText(doc.Text)

	vectors, err := idx.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed document", "document_id", doc.ID, "chunks", len(texts), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingService, err)
	}
	dim, err := checkVectors(vectors, len(texts))
	if err != nil {
		return nil, err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	previous := idx.docs[doc.ID]
	remaining := len(idx.chunks)
	if previous != nil {
		remaining -= len(previous.chunkIDs)
	}
	if remaining > 0 && dim != idx.dim {
		return nil, fmt.Errorf("%w: vector dimension %d does not match index dimension %d", ErrEmbeddingService, dim, idx.dim)
	}

	chunks := make([]Chunk, len(texts))
	points := make([]vectorstore.Point, len(texts))
	newIDs := make(map[string]struct{}, len(texts))
	for i, text := range texts {
		c := Chunk{
			ID:         ChunkID(idx.namespace, doc.ID, i),
			DocumentID: doc.ID,
			Filename:   doc.Filename,
			Index:      i,
			Text:       text,
			Start:      spans[i].Start,
			End:        spans[i].End,
			Page:       doc.PageAt(spans[i].Start),
			Seq:        idx.seq + uint64(i) + 1,
		}
		chunks[i] = c
		newIDs[c.ID] = struct{}{}
		points[i] = vectorstore.Point{
			ID:  c.ID,
			Vec: vectors[i],
			Meta: map[string]any{
				"document_id": c.DocumentID,
				"chunk_index": c.Index,
				"seq":         int64(c.Seq),
				"page":        c.Page,
			},
		}
	}

	if err := idx.store.Upsert(ctx, idx.namespace, points); err != nil {
		logger.ErrorContext(ctx, "failed to store chunk vectors", "document_id", doc.ID, "error", err)
		return nil, fmt.Errorf("%w: failed to store chunk vectors: %w", ErrVectorStore, err)
	}

	if previous != nil {
		var stale []string
		for _, id := range previous.chunkIDs {
			if _, ok := newIDs[id]; !ok {
				stale = append(stale, id)
			}
			delete(idx.chunks, id)
		}
		if len(stale) > 0 {
			if err := idx.store.Delete(ctx, idx.namespace, stale); err != nil {
				// Query skips vectors without a chunk, so leftovers only cost space.
				logger.WarnContext(ctx, "failed to delete replaced chunk vectors", "document_id", doc.ID, "count", len(stale), "error", err)
			}
		}
		idx.dropFromOrder(doc.ID)
	}

	ids := make([]string, len(chunks))
	for i, c := range chunks {
		idx.chunks[c.ID] = c
		ids[i] = c.ID
	}
	idx.docs[doc.ID] = &indexedDocument{doc: doc, chunkIDs: ids}
	idx.order = append(idx.order, doc.ID)
	idx.seq += uint64(len(chunks))
	idx.dim = dim

	logger.InfoContext(ctx, "document indexed", "document_id", doc.ID, "filename", doc.Filename, "chunks", len(chunks), "replaced", previous != nil)
	return chunks, nil
}

// Remove deletes every chunk of the document and returns how many were removed.
// Removing an unknown document is a no-op.
func (idx *Index) Remove(ctx context.Context, documentID string) (int, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	entry, ok := idx.docs[documentID]
	if !ok {
		return 0, nil
	}

	if err := idx.store.Delete(ctx, idx.namespace, entry.chunkIDs); err != nil {
		return 0, fmt.Errorf("%w: failed to delete chunk vectors: %w", ErrVectorStore, err)
	}

	for _, id := range entry.chunkIDs {
		delete(idx.chunks, id)
	}
	delete(idx.docs, documentID)
	idx.dropFromOrder(documentID)
	if len(idx.chunks) == 0 {
		idx.dim = 0
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "document removed", "document_id", documentID, "chunks", len(entry.chunkIDs))
	return len(entry.chunkIDs), nil
}

// Query returns up to k chunks ordered by descending cosine similarity to text.
// Equal scores keep insertion order.
func (idx *Index) Query(ctx context.Context, text string, k int) ([]Result, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyQuery
	}

	idx.mu.RLock()
	empty := len(idx.chunks) == 0
	idx.mu.RUnlock()
	if empty {
		return nil, ErrEmptyIndex
	}

	vectors, err := idx.embedder.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingService, err)
	}
	dim, err := checkVectors(vectors, 1)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.chunks) == 0 {
		return nil, ErrEmptyIndex
	}
	if dim != idx.dim {
		return nil, fmt.Errorf("%w: query vector dimension %d does not match index dimension %d", ErrEmbeddingService, dim, idx.dim)
	}

	// One extra hit shows whether a score tie crosses the k boundary. The store cuts
	// before insertion order is applied, so a tie needs every candidate.
	total := len(idx.chunks)
	hits, err := idx.store.Search(ctx, idx.namespace, vectors[0], min(k+1, total))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to search chunk vectors: %w", ErrVectorStore, err)
	}
	if len(hits) > k && len(hits) < total && hits[k].Score == hits[k-1].Score {
		hits, err = idx.store.Search(ctx, idx.namespace, vectors[0], total)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to search chunk vectors: %w", ErrVectorStore, err)
		}
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		c, ok := idx.chunks[hit.PointID]
		if !ok {
			continue
		}
		results = append(results, Result{Chunk: c, Score: hit.Score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Seq < results[j].Chunk.Seq
	})
	if len(results) > k {
		results = results[:k]
	}

	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "index queried", "k", k, "results", len(results))
	return results, nil
}

// Clear drops every document and vector of the index.
func (idx *Index) Clear(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.store.DeleteNamespace(ctx, idx.namespace); err != nil {
		return fmt.Errorf("%w: failed to clear index: %w", ErrVectorStore, err)
	}
	idx.docs = make(map[string]*indexedDocument)
	idx.chunks = make(map[string]Chunk)
	idx.order = nil
	idx.dim = 0
	return nil
}

// Stats returns document, chunk and vector counts.
func (idx *Index) Stats() IndexStats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return IndexStats{
		Documents: len(idx.docs),
		Chunks:    len(idx.chunks),
		Vectors:   len(idx.chunks),
		Dimension: idx.dim,
	}
}

// Document returns the indexed document with the given ID.
func (idx *Index) Document(id string) (Document, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entry, ok := idx.docs[id]
	if !ok {
		return Document{}, false
	}
	return entry.doc, true
}

// Documents lists indexed documents in ingestion order.
func (idx *Index) Documents() []DocumentInfo {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	infos := make([]DocumentInfo, 0, len(idx.order))
	for _, id := range idx.order {
		entry := idx.docs[id]
		infos = append(infos, DocumentInfo{
			ID:         entry.doc.ID,
			Filename:   entry.doc.Filename,
			Kind:       entry.doc.Kind,
			Chunks:     len(entry.chunkIDs),
			Runes:      len([]rune(entry.doc.Text)),
			UploadedAt: entry.doc.UploadedAt,
		})
	}
	return infos
}

// Chunks returns the chunks of a document in text order.
func (idx *Index) Chunks(documentID string) []Chunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	entry, ok := idx.docs[documentID]
	if !ok {
		return nil
	}
	out := make([]Chunk, 0, len(entry.chunkIDs))
	for _, id := range entry.chunkIDs {
		out = append(out, idx.chunks[id])
	}
	return out
}

func (idx *Index) dropFromOrder(documentID string) {
	for i, id := range idx.order {
		if id == documentID {
			idx.order = append(idx.order[:i], idx.order[i+1:]...)
			return
		}
	}
}

// checkVectors verifies the embedder returned want vectors of one non-zero dimension.
func checkVectors(vectors [][]float32, want int) (int, error) {
	if len(vectors) != want {
		return 0, fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingService, want, len(vectors))
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, fmt.Errorf("%w: empty embedding vector", ErrEmbeddingService)
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has dimension %d, expected %d", ErrEmbeddingService, i, len(v), dim)
		}
	}
	return dim, nil
}
