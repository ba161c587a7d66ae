package rag

import (
	"path/filepath"
	"strings"

	"study-assistant/internal/textutil"
)

const (
	lexicalLengthScale = float32(10.0)
	maxLexicalScore    = float32(0.4)
	filenameMatchBonus = float32(0.1)
)

// lexicalScore computes a lightweight lexical relevance score for a chunk relative to a query.
// The score is normalized to remain in a predictable range so it can be compared with vector scores.
func lexicalScore(query, chunkText, filename string) float32 {
	queryTokens := textutil.FilterStopwords(textutil.Tokenize(query))
	if len(queryTokens) == 0 {
		return 0
	}

	chunkTokens := textutil.Tokenize(chunkText)
	if len(chunkTokens) == 0 {
		return 0
	}

	chunkFreq := make(map[string]int, len(chunkTokens))
	for _, token := range chunkTokens {
		chunkFreq[token]++
	}

	var rawMatches int
	for _, token := range queryTokens {
		rawMatches += chunkFreq[token]
	}

	score := (float32(rawMatches) / (1 + float32(len(chunkTokens)))) * lexicalLengthScale

	if filename != "" {
		name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
		nameSet := make(map[string]struct{})
		for _, token := range textutil.Tokenize(name) {
			nameSet[token] = struct{}{}
		}
		var nameMatches int
		for _, token := range queryTokens {
			if _, ok := nameSet[token]; ok {
				nameMatches++
			}
		}
		score += float32(nameMatches) * filenameMatchBonus
	}

	return min(score, maxLexicalScore)
}
