// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes the paper store, PRISMA flow statistics, and the
// acquisition pipeline over a small JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pdiddy/litreview/internal/acquire"
	"github.com/pdiddy/litreview/pkg/types"
)

const shutdownTimeout = 10 * time.Second

// PaperStore is the read side of the paper store used by the API.
type PaperStore interface {
	acquire.Lookup
	ListByStatus(ctx context.Context, status types.PaperStatus) ([]*types.Paper, error)
	All(ctx context.Context) ([]*types.Paper, error)
	CountByStatus(ctx context.Context) (map[types.PaperStatus]int, error)
}

// Ingester runs one ingestion pass over a directory.
type Ingester interface {
	Ingest(ctx context.Context, dir string) acquire.IngestResult
}

// Server is the HTTP API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	store      PaperStore
	ingester   Ingester
	pdfDir     string
	gatherer   prometheus.Gatherer
	logger     zerolog.Logger
}

// New creates a Server. pdfDir is the directory POST /acquisition/ingest
// scans; gatherer backs GET /metrics.
func New(cfg types.ServerConfig, st PaperStore, ing Ingester, pdfDir string, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	s := &Server{
		store:    st,
		ingester: ing,
		pdfDir:   pdfDir,
		gatherer: gatherer,
		logger:   logger.With().Str("component", "http-server").Logger(),
	}
	s.router = s.buildRouter()
	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthHandler)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/papers", func(r chi.Router) {
		r.Get("/", s.listPapers)
		r.Get("/{paperID}", s.getPaper)
	})
	r.Get("/flow", s.flowStats)

	r.Route("/acquisition", func(r chi.Router) {
		r.Get("/list", s.acquisitionList)
		r.Get("/stats", s.acquisitionStats)
		r.Post("/ingest", s.ingest)
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	s.logger.Info().Str("address", ln.Addr().String()).Msg("HTTP server starting")

	errc := make(chan error, 1)
	go func() { errc <- s.httpServer.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Str("request_id", middleware.GetReqID(r.Context())).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
