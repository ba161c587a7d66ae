package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"study-assistant/internal/service"
)

// StatsHandler serves indexing coverage statistics of a session.
type StatsHandler struct {
	studyService service.StudyService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(studyService service.StudyService) *StatsHandler {
	return &StatsHandler{studyService: studyService}
}

// ServeHTTP writes the session's coverage statistics as JSON.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.studyService.Stats(ctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		handleServiceError(w, ctx, err, "Failed to compute stats")
		return
	}
	writeJSON(ctx, w, http.StatusOK, stats)
}
