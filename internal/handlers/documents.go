package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"study-assistant/internal/contextutil"
	"study-assistant/internal/service"
)

// uploadOverhead is the allowance for multipart headers or the JSON envelope on top of the
// content size limit.
const uploadOverhead = 64 << 10

// DocumentHandler handles document uploads, listing and removal.
type DocumentHandler struct {
	studyService   service.StudyService
	maxUploadBytes int64
}

// NewDocumentHandler creates a new DocumentHandler. maxUploadBytes caps the body size of uploads.
func NewDocumentHandler(studyService service.StudyService, maxUploadBytes int64) *DocumentHandler {
	return &DocumentHandler{
		studyService:   studyService,
		maxUploadBytes: maxUploadBytes,
	}
}

// UploadRequest is the JSON form of an upload, for text and markdown content.
//
// swagger:model UploadRequest
type UploadRequest struct {
	Filename string `json:"filename"`
	Kind     string `json:"kind,omitempty"`
	Content  string `json:"content"`
}

// DocumentResponse describes a document of a session.
//
// swagger:model DocumentResponse
type DocumentResponse struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title,omitempty"`
	Chunks     int       `json:"chunks"`
	Runes      int       `json:"runes"`
	Duplicate  bool      `json:"duplicate,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// ListDocumentsResponse lists the documents of a session.
//
// swagger:model ListDocumentsResponse
type ListDocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
}

// RemoveDocumentResponse reports how many chunks a removal dropped.
//
// swagger:model RemoveDocumentResponse
type RemoveDocumentResponse struct {
	Removed int `json:"removed"`
}

func toDocumentResponse(d service.DocumentInfo) DocumentResponse {
	return DocumentResponse{
		ID:         d.ID,
		Filename:   d.Filename,
		Kind:       d.Kind,
		Title:      d.Title,
		Chunks:     d.Chunks,
		Runes:      d.Runes,
		Duplicate:  d.Duplicate,
		UploadedAt: d.UploadedAt,
	}
}

// List returns the documents of a session in upload order.
//
// swagger:route GET /api/v1/sessions/{sessionID}/documents listDocuments
//
// # List documents
//
// ---
// produces:
// - application/json
// responses:
//
//	'200':
//	  description: Documents of the session
//	  schema:
//	    "$ref": "#/definitions/ListDocumentsResponse"
//	'404':
//	  description: Session not found
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.studyService.ListDocuments(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to list documents")
		return
	}

	resp := ListDocumentsResponse{Documents: make([]DocumentResponse, 0, len(docs))}
	for _, d := range docs {
		resp.Documents = append(resp.Documents, toDocumentResponse(d))
	}
	writeJSON(ctx, w, http.StatusOK, resp)
}

// Upload ingests a document into a session.
//
// Accepts either a multipart form with a "file" field (plain text, markdown or PDF)
// or a JSON body with the filename and the text content.
//
// swagger:route POST /api/v1/sessions/{sessionID}/documents uploadDocument
//
// # Upload a document
//
// ---
// consumes:
// - multipart/form-data
// - application/json
// produces:
// - application/json
// responses:
//
//	'201':
//	  description: Document indexed
//	  schema:
//	    "$ref": "#/definitions/DocumentResponse"
//	'200':
//	  description: Identical document already indexed in this session
//	  schema:
//	    "$ref": "#/definitions/DocumentResponse"
//	'400':
//	  description: Unsupported or empty document
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'413':
//	  description: Document too large
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
//	'502':
//	  description: Embedding service error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	req, err := h.readUpload(w, r)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			logger.WarnContext(ctx, "upload too large", "limit", maxBytesErr.Limit)
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Upload exceeds %d bytes", h.maxUploadBytes))
			return
		}
		logger.WarnContext(ctx, "invalid upload", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}

	doc, err := h.studyService.IngestDocument(ctx, chi.URLParam(r, "sessionID"), req)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to ingest document")
		return
	}

	status := http.StatusCreated
	if doc.Duplicate {
		status = http.StatusOK
	}
	writeJSON(ctx, w, status, toDocumentResponse(doc))
}

func (h *DocumentHandler) readUpload(w http.ResponseWriter, r *http.Request) (service.IngestRequest, error) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+uploadOverhead)
	}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return service.IngestRequest{}, err
		}
		defer func() {
			_ = file.Close()
		}()

		data, err := io.ReadAll(file)
		if err != nil {
			return service.IngestRequest{}, err
		}
		return service.IngestRequest{
			Filename:    header.Filename,
			Kind:        r.FormValue("kind"),
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		}, nil
	}

	var body UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return service.IngestRequest{}, err
	}
	return service.IngestRequest{
		Filename: body.Filename,
		Kind:     body.Kind,
		Data:     []byte(body.Content),
	}, nil
}

// Delete removes a document and its chunks from a session.
func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	removed, err := h.studyService.RemoveDocument(ctx, chi.URLParam(r, "sessionID"), chi.URLParam(r, "documentID"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to remove document")
		return
	}
	writeJSON(ctx, w, http.StatusOK, RemoveDocumentResponse{Removed: removed})
}
