package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tomcrane/mets-parser/internal/config"
	"github.com/tomcrane/mets-parser/internal/inventory"
	"github.com/tomcrane/mets-parser/internal/mets"
	"github.com/tomcrane/mets-parser/internal/pathstore"
	"github.com/tomcrane/mets-parser/internal/pipeline"
)

// Server is the HTTP API server for the METS parser.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	parser       *mets.Parser
	inventory    *inventory.Store  // nil when INVENTORY_DB is unset
	pathstore    *pathstore.Client // nil when PATHSTORE_URL is unset
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. inv and ps may be nil.
func NewServer(orch *pipeline.Orchestrator, parser *mets.Parser, inv *inventory.Store, ps *pathstore.Client, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		parser:       parser,
		inventory:    inv,
		pathstore:    ps,
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

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/parse", s.handleParse)

		r.Post("/api/ingest", s.handleIngest)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Get("/api/ingest/{jobID}/result", s.handleIngestResult)

		r.Get("/api/stats", s.handleStats)

		r.Get("/api/documents", s.handleListDocuments)
		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Get("/api/documents/{docID}/files", s.handleListFiles)
		r.Delete("/api/documents/{docID}", s.handleDeleteDocument)
		r.Get("/api/digests/{digest}", s.handleFindDigest)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
