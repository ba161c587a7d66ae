package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"study-assistant/internal/handlers"
	"study-assistant/internal/service"
	"study-assistant/internal/vectorstore"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	StudyService   service.StudyService
	VectorStore    vectorstore.VectorStore
	Sessions       handlers.SessionCounter
	LLMEnabled     bool
	MaxUploadBytes int64
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	healthHandler := handlers.NewHealthHandler(deps.VectorStore, deps.Sessions, deps.LLMEnabled)
	sessionHandler := handlers.NewSessionHandler(deps.StudyService)
	documentHandler := handlers.NewDocumentHandler(deps.StudyService, deps.MaxUploadBytes)
	queryHandler := handlers.NewQueryHandler(deps.StudyService)
	askHandler := handlers.NewAskHandler(deps.StudyService)
	statsHandler := handlers.NewStatsHandler(deps.StudyService)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)

		r.Route("/v1/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.Create)

			r.Route("/{sessionID}", func(r chi.Router) {
				r.Delete("/", sessionHandler.Delete)
				r.Get("/documents", documentHandler.List)
				r.Post("/documents", documentHandler.Upload)
				r.Delete("/documents/{documentID}", documentHandler.Delete)
				r.Method(http.MethodPost, "/query", queryHandler)
				r.Method(http.MethodPost, "/ask", askHandler)
				r.Method(http.MethodGet, "/stats", statsHandler)
			})
		})
	})

	return r
}
