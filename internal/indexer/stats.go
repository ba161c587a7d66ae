package indexer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"

	"study-assistant/internal/retrieval"
	"study-assistant/internal/textutil"
)

// ChunkerVersion is the version identifier for the chunker implementation.
// Update this when chunking logic changes significantly.
const ChunkerVersion = "v2.0-runes"

// CoverageStats contains statistics about the documents indexed for a session.
type CoverageStats struct {
	// DocsProcessed is the number of documents in the session catalog.
	DocsProcessed int `json:"docs_processed"`
	// DocsWith0Chunks is the number of catalogued documents that produced no chunks.
	DocsWith0Chunks int `json:"docs_with_0_chunks"`
	// ChunksEmbedded is the number of catalogued chunks.
	ChunksEmbedded int `json:"chunks_embedded"`
	// Vectors is the number of vectors held by the live index.
	Vectors int `json:"vectors"`
	// Dimension is the embedding dimension of the live index, 0 when empty.
	Dimension int `json:"dimension"`
	// ChunkTokenStats contains statistics about token counts per chunk.
	ChunkTokenStats ChunkTokenStats `json:"chunk_token_stats"`
	// ChunkerVersion is the version of the chunker used.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is a hash identifying the index build (chunker + embedding model + params).
	IndexVersion string `json:"index_version"`
}

// ChunkTokenStats contains statistics about token counts in chunks.
type ChunkTokenStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// CoverageStats computes coverage statistics for a session from its catalog and live index.
func (p *Pipeline) CoverageStats(ctx context.Context, sessionID string, index *retrieval.Index, embeddingModelName string) (*CoverageStats, error) {
	docs, err := p.documents.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	texts, err := p.chunks.ListTextsBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}

	stats := &CoverageStats{
		DocsProcessed:  len(docs),
		ChunksEmbedded: len(texts),
		ChunkerVersion: ChunkerVersion,
	}
	for _, d := range docs {
		if d.ChunkCount == 0 {
			stats.DocsWith0Chunks++
		}
	}

	indexStats := index.Stats()
	stats.Vectors = indexStats.Vectors
	stats.Dimension = indexStats.Dimension

	tokenCounts := make([]int, 0, len(texts))
	for _, text := range texts {
		tokenCounts = append(tokenCounts, max(1, textutil.EstimateTokens(text)))
	}
	stats.ChunkTokenStats = computeTokenStats(tokenCounts)
	stats.IndexVersion = IndexVersion(embeddingModelName, index.Splitter())

	return stats, nil
}

// IndexVersion hashes the chunker version, embedding model and chunking parameters.
func IndexVersion(embeddingModelName string, splitter retrieval.Splitter) string {
	input := fmt.Sprintf("%s|%s|chunkSize=%d|chunkOverlap=%d",
		ChunkerVersion, embeddingModelName, splitter.Size, splitter.Overlap)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16] // 16 hex chars = 64 bits
}

// computeTokenStats computes min, max, mean, and p95 from token counts.
func computeTokenStats(tokenCounts []int) ChunkTokenStats {
	if len(tokenCounts) == 0 {
		return ChunkTokenStats{}
	}

	sorted := make([]int, len(tokenCounts))
	copy(sorted, tokenCounts)
	sort.Ints(sorted)

	sum := 0
	for _, count := range sorted {
		sum += count
	}
	mean := float64(sum) / float64(len(sorted))

	p95Index := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	p95Index = max(0, min(p95Index, len(sorted)-1))

	return ChunkTokenStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
