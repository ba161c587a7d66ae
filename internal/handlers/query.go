package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"study-assistant/internal/contextutil"
	"study-assistant/internal/service"
)

// QueryHandler handles retrieval-only requests.
type QueryHandler struct {
	studyService service.StudyService
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(studyService service.StudyService) *QueryHandler {
	return &QueryHandler{studyService: studyService}
}

// QueryRequest represents the HTTP request payload for retrieval.
//
// swagger:model QueryRequest
type QueryRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
}

// QueryResultResponse is a retrieved chunk.
//
// swagger:model QueryResultResponse
type QueryResultResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Source     string  `json:"source"`
	Page       int     `json:"page,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Text       string  `json:"text"`
	Score      float32 `json:"score"`
}

// QueryResponse lists retrieved chunks by descending similarity.
//
// swagger:model QueryResponse
type QueryResponse struct {
	Results []QueryResultResponse `json:"results"`
}

// ServeHTTP returns the chunks of a session most similar to the query.
//
// swagger:route POST /api/v1/sessions/{sessionID}/query queryChunks
//
// # Retrieve relevant chunks
//
// ---
// consumes:
// - application/json
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Retrieved chunks
//	  schema:
//	    "$ref": "#/definitions/QueryResponse"
//	'400':
//	  description: Empty query or invalid k
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'409':
//	  description: No documents in the session
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	results, err := h.studyService.Query(ctx, chi.URLParam(r, "sessionID"), service.QueryRequest{Text: req.Query, K: req.K})
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to query documents")
		return
	}

	resp := QueryResponse{Results: make([]QueryResultResponse, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, QueryResultResponse{
			ChunkID:    res.ChunkID,
			DocumentID: res.DocumentID,
			Filename:   res.Filename,
			Source:     res.Source,
			Page:       res.Page,
			ChunkIndex: res.ChunkIndex,
			Text:       res.Text,
			Score:      res.Score,
		})
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}
