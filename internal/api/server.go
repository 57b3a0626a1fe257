package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/slidenotes/internal/config"
	"github.com/dgallion1/slidenotes/internal/enrich"
	"github.com/dgallion1/slidenotes/internal/notecache"
	"github.com/dgallion1/slidenotes/internal/slides"
)

// Processor turns a deck file into study notes.
type Processor interface {
	Run(ctx context.Context, path string) (slides.ProcessResponse, error)
}

// Server is the HTTP API server for slidenotes.
type Server struct {
	router    chi.Router
	processor Processor
	cache     *notecache.Cache
	stats     *enrich.LLMStats
	fetch     *http.Client
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server. cache and stats may be nil.
func NewServer(proc Processor, cache *notecache.Cache, stats *enrich.LLMStats, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		processor: proc,
		cache:     cache,
		stats:     stats,
		fetch:     &http.Client{Timeout: cfg.FetchTimeout},
		log:       log,
		cfg:       cfg,
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
	r.Use(CORS(s.cfg.CORSOrigins))

	r.Get("/health", s.handleHealth)

	r.Post("/ppt/process", s.handleProcess)
	r.Get("/ppt/notes/{documentID}", s.handleNotes)
	r.Get("/api/stats/llm", s.handleLLMStats)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
