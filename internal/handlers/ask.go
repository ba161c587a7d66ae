package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"study-assistant/internal/contextutil"
	"study-assistant/internal/rag"
	"study-assistant/internal/service"
)

// AskHandler handles HTTP requests for RAG questions.
type AskHandler struct {
	studyService service.StudyService
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(studyService service.StudyService) *AskHandler {
	return &AskHandler{studyService: studyService}
}

// AskRequest represents the HTTP request payload for RAG questions.
// This mirrors the rag.AskRequest but is defined here for HTTP layer separation.
//
// swagger:model AskRequest
type AskRequest struct {
	Question string `json:"question"`
	K        int    `json:"k,omitempty"`
}

// AskResponse represents the HTTP response payload for RAG questions.
//
// swagger:model AskResponse
type AskResponse struct {
	// The generated answer
	Answer string `json:"answer"`

	// Citations such as "notes.pdf (Page 2)", one per retrieved chunk in relevance order
	Sources []string `json:"sources"`

	// Chunks that were placed in the prompt
	References []ReferenceResponse `json:"references"`

	// Debug contains retrieval details when debug mode is enabled (via ?debug=true query parameter).
	Debug *rag.DebugInfo `json:"debug,omitempty"`
}

// ReferenceResponse represents a reference in the HTTP response.
//
// swagger:model ReferenceResponse
type ReferenceResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Page       int     `json:"page,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float32 `json:"score"`
}

// StreamEvent is one Server-Sent Event of a streamed answer. Deltas carry only Delta;
// the closing event carries the sources and references.
//
// swagger:model StreamEvent
type StreamEvent struct {
	Delta      string              `json:"delta,omitempty"`
	Sources    []string            `json:"sources,omitempty"`
	References []ReferenceResponse `json:"references,omitempty"`
	Error      string              `json:"error,omitempty"`
}

func toAskResponse(resp rag.AskResponse) AskResponse {
	references := make([]ReferenceResponse, len(resp.References))
	for i, ref := range resp.References {
		references[i] = ReferenceResponse{
			ChunkID:    ref.ChunkID,
			DocumentID: ref.DocumentID,
			Filename:   ref.Filename,
			Page:       ref.Page,
			ChunkIndex: ref.ChunkIndex,
			Score:      ref.Score,
		}
	}
	sources := resp.Sources
	if sources == nil {
		sources = []string{}
	}
	return AskResponse{
		Answer:     resp.Answer,
		Sources:    sources,
		References: references,
		Debug:      resp.Debug,
	}
}

func boolParam(r *http.Request, name string) bool {
	v := r.URL.Query().Get(name)
	return strings.EqualFold(v, "true") || v == "1"
}

// ServeHTTP answers a question from the session's documents.
//
// swagger:route POST /api/v1/sessions/{sessionID}/ask askQuestion
//
// # Ask a question using RAG
//
// Retrieves the chunks most similar to the question and generates an answer from them.
// Use `stream=true` to receive the answer as Server-Sent Events and `debug=true` to include
// the retrieved chunks with their scores.
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// - text/event-stream
// parameters:
//   - in: body
//     name: body
//     required: true
//     schema:
//     "$ref": "#/definitions/AskRequest"
//   - in: query
//     name: debug
//     type: boolean
//     required: false
//   - in: query
//     name: stream
//     type: boolean
//     required: false
//
// responses:
//
//	'200':
//	  description: Successful response with answer and sources
//	  schema:
//	    "$ref": "#/definitions/AskResponse"
//	'400':
//	  description: Empty question or invalid k
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'404':
//	  description: Session not found
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'409':
//	  description: No documents in the session
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: External service error (LLM or embedding service unavailable)
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'503':
//	  description: Vector store unavailable or answering disabled
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	ragReq := rag.AskRequest{
		Question: req.Question,
		K:        req.K,
		Debug:    boolParam(r, "debug"),
	}

	if boolParam(r, "stream") {
		h.handleStreamingAsk(w, ctx, sessionID, ragReq)
		return
	}

	resp, err := h.studyService.Ask(ctx, sessionID, ragReq)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to answer question")
		return
	}
	writeJSON(ctx, w, http.StatusOK, toAskResponse(resp))
}

// handleStreamingAsk streams the answer using Server-Sent Events. Headers are sent with the
// first delta, so failures during retrieval still get a regular error response.
func (h *AskHandler) handleStreamingAsk(w http.ResponseWriter, ctx context.Context, sessionID string, req rag.AskRequest) {
	logger := contextutil.LoggerFromContext(ctx)

	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.ErrorContext(ctx, "streaming not supported by response writer")
		writeError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	started := false
	send := func(ev StreamEvent) error {
		if !started {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	resp, err := h.studyService.StreamAsk(ctx, sessionID, req, func(chunk string) error {
		return send(StreamEvent{Delta: chunk})
	})
	if err != nil {
		if !started {
			handleServiceError(w, ctx, err, "Failed to answer question")
			return
		}
		logger.ErrorContext(ctx, "error streaming answer", "error", err)
		_, msg := statusFor(err)
		if msg == "" {
			msg = "Failed to answer question"
		}
		_ = send(StreamEvent{Error: msg})
		return
	}

	final := toAskResponse(resp)
	if err := send(StreamEvent{Sources: final.Sources, References: final.References}); err != nil {
		logger.WarnContext(ctx, "failed to send sources", "error", err)
		return
	}
	_, _ = fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}
