package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mathcast/mathcast/internal/config"
	"github.com/mathcast/mathcast/internal/pipeline"
	"github.com/mathcast/mathcast/internal/speech"
	"github.com/mathcast/mathcast/internal/workspace"
)

// Server is the HTTP API server for mathcast.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	ws           *workspace.Manager
	stats        *speech.SynthStats
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(orch *pipeline.Orchestrator, ws *workspace.Manager, stats *speech.SynthStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		ws:           ws,
		stats:        stats,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// API endpoints, key-protected when a key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}

		r.Post("/api/upload", s.handleUpload)
		r.Post("/api/process/{jobID}", s.handleProcess)
		r.Get("/api/process/{jobID}/status", s.handleStatus)
		r.Get("/api/download/{jobID}/{asset}", s.handleDownload)

		r.Get("/api/jobs", s.handleListJobs)
		r.Delete("/api/jobs/{jobID}", s.handleDeleteJob)
		r.Post("/api/jobs/{jobID}/cancel", s.handleCancelJob)

		r.Get("/api/stats/speech", s.handleSpeechStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
