// Package server provides the HTTP API for Kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/models"
	"go.uber.org/zap"
)

// Answerer answers a question from the ingested document.
type Answerer interface {
	Generate(ctx context.Context, question string) (*models.StructuredAnswer, error)
}

// Ingester ingests a document file.
type Ingester interface {
	Ingest(ctx context.Context, path string) (*models.IngestResult, error)
}

// Catalog reports on and searches the stored chunks.
type Catalog interface {
	Stats(ctx context.Context) (*models.Status, error)
	Lookup(ctx context.Context, q *models.LookupQuery, fuzziness int) (*models.LookupResponse, error)
}

// Server is the HTTP server for the Kotae API.
type Server struct {
	answerer Answerer
	ingester Ingester
	catalog  Catalog
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	answerer Answerer,
	ingester Ingester,
	catalog Catalog,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		answerer: answerer,
		ingester: ingester,
		catalog:  catalog,
		config:   cfg,
		logger:   logger,
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/", s.handleIndex)
	r.Post("/ask", s.handleAsk)
	r.Post("/init_db", s.handleInitDB)
	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/lookup", s.handleLookup)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
