package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/secmon-lab/riskledger/pkg/domain/model"
	"github.com/secmon-lab/riskledger/pkg/usecase"
	"github.com/secmon-lab/riskledger/pkg/utils/metrics"
)

type Server struct {
	router            *chi.Mux
	uc                *usecase.UseCases
	workspaceRegistry *model.WorkspaceRegistry
	metrics           *metrics.Metrics
}

type Options func(*Server)

// WithWorkspaceRegistry restricts /api/ws/{workspaceID} to registered workspaces
func WithWorkspaceRegistry(registry *model.WorkspaceRegistry) Options {
	return func(s *Server) {
		s.workspaceRegistry = registry
	}
}

// WithMetrics records request durations and serves /metrics
func WithMetrics(m *metrics.Metrics) Options {
	return func(s *Server) {
		s.metrics = m
	}
}

func New(uc *usecase.UseCases, opts ...Options) *Server {
	r := chi.NewRouter()

	s := &Server{
		router: r,
		uc:     uc,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(accessLogger(s.metrics))
	r.Use(middleware.Recoverer)

	r.Get("/health", healthHandler)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	if s.workspaceRegistry != nil {
		r.Get("/api/workspaces", workspacesHandler(s.workspaceRegistry))
	}

	h := &riskHandler{uc: uc}
	r.Route("/api/ws/{workspaceID}", func(r chi.Router) {
		r.Use(actorMiddleware(s.workspaceRegistry))

		r.Route("/risks", func(r chi.Router) {
			r.Get("/", h.list)
			r.Post("/", h.create)
			r.Get("/matrix", h.matrix)
			r.Get("/overdue", h.overdue)

			r.Route("/{riskID}", func(r chi.Router) {
				r.Get("/", h.get)
				r.Patch("/", h.update)
				r.Delete("/", h.delete)

				r.Post("/treatments", h.addTreatment)
				r.Patch("/treatments", h.updateTreatmentStatus)
				r.Delete("/treatments", h.removeTreatment)

				r.Get("/history", h.listReviews)
				r.Post("/history", h.recordReview)

				r.Get("/audit", h.listAudit)
			})
		})
	})

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// workspacesHandler returns a handler that serves the workspace list as JSON
func workspacesHandler(registry *model.WorkspaceRegistry) http.HandlerFunc {
	type workspaceResponse struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	type response struct {
		Workspaces []workspaceResponse `json:"workspaces"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		workspaces := registry.Workspaces()
		resp := response{
			Workspaces: make([]workspaceResponse, len(workspaces)),
		}
		for i, ws := range workspaces {
			resp.Workspaces[i] = workspaceResponse{
				ID:   ws.ID,
				Name: ws.Name,
			}
		}
		writeJSON(r.Context(), w, http.StatusOK, resp)
	}
}
