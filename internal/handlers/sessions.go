package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"study-assistant/internal/contextutil"
	"study-assistant/internal/service"
)

// SessionHandler handles session lifecycle requests.
type SessionHandler struct {
	studyService service.StudyService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(studyService service.StudyService) *SessionHandler {
	return &SessionHandler{studyService: studyService}
}

// SessionResponse describes a created session.
//
// swagger:model SessionResponse
type SessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Create starts a new study session.
//
// swagger:route POST /api/v1/sessions createSession
//
// # Create a session
//
// ---
// produces:
// - application/json
// responses:
//
//	'201':
//	  description: Session created
//	  schema:
//	    "$ref": "#/definitions/SessionResponse"
//	'500':
//	  description: Internal server error
//	  schema:
//	    "$ref": "#/definitions/ErrorResponse"
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	info, err := h.studyService.CreateSession(ctx)
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to create session")
		return
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "session created", "session_id", info.ID)
	writeJSON(ctx, w, http.StatusCreated, SessionResponse{ID: info.ID, CreatedAt: info.CreatedAt})
}

// Delete drops a session together with its documents.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.studyService.DeleteSession(ctx, chi.URLParam(r, "sessionID")); err != nil {
		handleServiceError(w, ctx, err, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
