// Package server exposes additive search and label scans over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/additivelens/additivelens/internal/catalog"
	"github.com/additivelens/additivelens/internal/model"
	"github.com/additivelens/additivelens/internal/worker"
)

const (
	// maxSearchBody bounds a /v1/search request body
	maxSearchBody = 1 << 20
	// multipartOverhead is allowed on top of the image limit for form framing
	multipartOverhead = 1 << 20
	// limiterIdle is how long an inactive client keeps its rate limit state
	limiterIdle     = 10 * time.Minute
	shutdownTimeout = 30 * time.Second
)

// Catalog is the catalog cache as seen by the admin endpoints
type Catalog interface {
	Stats() catalog.Stats
	Reload(ctx context.Context) (*catalog.Snapshot, error)
}

// Scanner runs OCR plus search on one image
type Scanner interface {
	ScanImage(ctx context.Context, data []byte, mimeType string) *model.ScanReport
	Provider() string
}

// Deps are the collaborators the handlers call
type Deps struct {
	Searcher      worker.Searcher
	Scanner       Scanner
	Catalog       Catalog
	Limiter       *worker.Limiter // Keyed by client address, nil disables
	MaxImageBytes int64
	Version       string
	Logger        *slog.Logger
}

// Server represents the HTTP API server
type Server struct {
	cfg        model.ServerConfig
	deps       Deps
	router     *mux.Router
	httpServer *http.Server
	logger     *slog.Logger
	started    time.Time
}

// New creates a server and registers its routes
func New(cfg model.ServerConfig, deps Deps) (*Server, error) {
	if deps.Searcher == nil {
		return nil, errors.New("server requires a searcher")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	s := &Server{
		cfg:     cfg,
		deps:    deps,
		logger:  deps.Logger.With("system", "http"),
		started: time.Now(),
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/search", s.handleSearch).Methods("POST")
	api.HandleFunc("/scan", s.handleScan).Methods("POST")
	api.HandleFunc("/catalog/stats", s.handleCatalogStats).Methods("GET")
	api.HandleFunc("/catalog/reload", s.handleCatalogReload).Methods("POST")

	s.router.Use(RequestID())
	s.router.Use(Logger(s.logger))
	if s.deps.Limiter != nil {
		api.Use(RateLimit(s.deps.Limiter))
	}
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	if s.deps.Limiter != nil {
		go s.pruneLimiter(ctx)
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// pruneLimiter drops rate limit state for clients that went quiet
func (s *Server) pruneLimiter(ctx context.Context) {
	ticker := time.NewTicker(limiterIdle)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.deps.Limiter.Prune(limiterIdle); n > 0 {
				s.logger.Debug("pruned idle clients", "count", n)
			}
		}
	}
}
