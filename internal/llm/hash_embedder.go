package llm

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"

	"study-assistant/internal/textutil"
)

// bigramWeight scales adjacent-word features relative to single words.
const bigramWeight = 0.5

// HashEmbedder embeds text offline by hashing words and word pairs into a fixed number of
// signed buckets. Vectors are L2-normalised, so cosine similarity reflects shared vocabulary.
type HashEmbedder struct {
	Dim int
}

// NewHashEmbedder creates a feature-hashing embedder producing dim-sized vectors.
func NewHashEmbedder(dim int) (*HashEmbedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", dim)
	}
	return &HashEmbedder{Dim: dim}, nil
}

// EmbedTexts implements retrieval.Embedder.
func (e *HashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("empty input array")
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(text)
	}
	return out, nil
}

func (e *HashEmbedder) embed(text string) []float32 {
	vec := make([]float64, e.Dim)

	terms := textutil.FilterStopwords(textutil.Tokenize(text))
	for i, term := range terms {
		term = stem(term)
		terms[i] = term
		e.add(vec, term, 1)
		if i > 0 {
			e.add(vec, terms[i-1]+" "+term, bigramWeight)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, e.Dim)
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func (e *HashEmbedder) add(vec []float64, feature string, weight float64) {
	h := xxhash.Sum64String(feature)
	bucket := h % uint64(e.Dim)
	if h>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}

// stem folds simple English plurals so "cells" and "cell" share a bucket.
func stem(term string) string {
	switch {
	case len(term) > 4 && strings.HasSuffix(term, "ies"):
		return term[:len(term)-3] + "y"
	case len(term) > 3 && strings.HasSuffix(term, "s") && !strings.HasSuffix(term, "ss") && !strings.HasSuffix(term, "us"):
		return term[:len(term)-1]
	default:
		return term
	}
}
