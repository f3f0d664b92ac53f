package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/pdfsift/internal/artifacts"
	"github.com/dgallion1/pdfsift/internal/config"
	"github.com/dgallion1/pdfsift/internal/pipeline"
	"github.com/dgallion1/pdfsift/internal/summarize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the HTTP API server for pdfsift.
type Server struct {
	router     chi.Router
	supervisor *pipeline.Supervisor
	store      *artifacts.Store
	gemini     *summarize.Client
	log        *slog.Logger
	cfg        config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(sup *pipeline.Supervisor, store *artifacts.Store, gemini *summarize.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		supervisor: sup,
		store:      store,
		gemini:     gemini,
		log:        log,
		cfg:        cfg,
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
	r.Handle("/static/*", http.StripPrefix("/static/",
		http.FileServer(http.Dir(s.store.Dir()))))

	// API endpoints, key-protected when a key is configured.
	r.Group(func(r chi.Router) {
		if s.cfg.PDFSiftAPIKey != "" {
			r.Use(AuthMiddleware(s.cfg.PDFSiftAPIKey, s.log))
		}

		r.Post("/api/pdf/search", s.handleSearch)
		r.Post("/api/pdf/summarize", s.handleSummarize)
		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
