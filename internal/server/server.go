// Package server exposes the registry and the execution engine over HTTP.
//
//	GET /api/endpoints                         endpoint directory, passwords redacted
//	GET /api/queries                           registry search
//	GET /api/sparql/{namespace}/{name}         rendered SPARQL as text/plain
//	GET /api/query/{namespace}/{name}.{format} execute and format the rows
//	GET /metrics                               Prometheus metrics
//	GET /healthz                               registry liveness
//
// Query parameters domain, endpoint, limit, merger and strict steer the
// execution; every other parameter binds a {{ placeholder }}.
package server

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/nqm/internal/auth"
	"github.com/roach88/nqm/internal/endpoint"
	"github.com/roach88/nqm/internal/engine"
	"github.com/roach88/nqm/internal/model"
	"github.com/roach88/nqm/internal/store"
)

// Registry is the read side of the registry the server uses directly.
type Registry interface {
	Search(ctx context.Context, f store.Filter) iter.Seq2[model.NamedQuery, error]
	Ping(ctx context.Context) error
}

// OrcidHeader carries the caller's ORCID iD, set by the fronting proxy
// after authentication.
const OrcidHeader = "X-Orcid"

// Options configures a Server. Engine, Endpoints and Registry are required.
type Options struct {
	Engine    *engine.Engine
	Endpoints *endpoint.Directory
	Registry  Registry
	// Rights grants enrichment; nil grants nothing.
	Rights   *auth.Authorization
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
	// Context tags the stats of executions served here.
	Context string
}

// Server is the HTTP API.
type Server struct {
	opts   Options
	router *chi.Mux
}

// New creates a Server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Engine == nil || opts.Endpoints == nil || opts.Registry == nil {
		return nil, errors.New("server: engine, endpoints and registry are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Context == "" {
		opts.Context = "api"
	}

	s := &Server{opts: opts, router: chi.NewRouter()}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.logRequests)
	s.routes(s.router)
	return s, nil
}

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/endpoints", s.handleEndpoints)
		r.Get("/queries", s.handleQueries)
		r.Get("/sparql/{namespace}/{name}", s.handleSPARQL)
		r.Get("/query/{namespace}/{file}", s.handleQuery)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.opts.Logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.opts.Logger.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
