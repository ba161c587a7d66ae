package rag

// AskRequest represents a RAG query request.
type AskRequest struct {
	// Question is the user's question to answer.
	Question string `json:"question"`
	// K is the number of chunks placed in the prompt.
	K int `json:"k"`
	// Debug enables debug mode, returning detailed retrieval information.
	Debug bool `json:"debug,omitempty"`
}

// Reference represents a chunk that was used in the answer.
type Reference struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Page       int     `json:"page,omitempty"` // 1-based PDF page, 0 when the document has no pages
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// AskResponse represents the response from a RAG query.
type AskResponse struct {
	// Answer is the generated answer from the LLM.
	Answer string `json:"answer"`
	// Sources are human readable citations such as "notes.pdf (Page 2)", in relevance order.
	Sources []string `json:"sources"`
	// References are the chunks that were used to generate the answer.
	References []Reference `json:"references"`
	// Debug contains debug information when debug mode is enabled.
	Debug *DebugInfo `json:"debug,omitempty"`
}

// DebugInfo contains detailed retrieval information for debugging and evaluation.
type DebugInfo struct {
	// RetrievedChunks contains all retrieved chunks with scores and ranks.
	RetrievedChunks []RetrievedChunk `json:"retrieved_chunks"`
	// PromptRunes is the length of the user prompt sent to the LLM.
	PromptRunes int `json:"prompt_runes"`
}

// RetrievedChunk represents a retrieved chunk with scoring information.
type RetrievedChunk struct {
	ChunkID  string `json:"chunk_id"`
	Filename string `json:"filename"`
	Page     int    `json:"page,omitempty"`
	// ScoreVector is the cosine similarity between question and chunk.
	ScoreVector float64 `json:"score_vector"`
	// ScoreLexical is the keyword overlap score. It is reported only and does not affect ranking.
	ScoreLexical float64 `json:"score_lexical"`
	// Text is the chunk text, truncated for display.
	Text string `json:"text"`
	// Rank is the rank of this chunk in the retrieval results (1-based).
	Rank int `json:"rank"`
}
