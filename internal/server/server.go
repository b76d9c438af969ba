// Package server exposes a recipe graph analysis over HTTP.
//
// The server loads records once, builds the graph and runs both detection
// methods. The resulting snapshot is read by every request and replaced
// as a whole by POST /api/refresh.
//
//	GET  /healthz
//	GET  /api/graph
//	GET  /api/communities?method=modularity|common
//	GET  /api/common-ingredients
//	GET  /api/layers
//	GET  /api/render.svg?method=modularity|common
//	POST /api/refresh
//	GET  /metrics
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/recipegraph/pkg/cache"
	rgerrors "github.com/matzehuels/recipegraph/pkg/errors"
	"github.com/matzehuels/recipegraph/pkg/graph"
	"github.com/matzehuels/recipegraph/pkg/observability"
	"github.com/matzehuels/recipegraph/pkg/overlap"
	"github.com/matzehuels/recipegraph/pkg/pipeline"
)

// Config holds the listener settings.
type Config struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Server serves one analyzed snapshot of the recipe graph.
type Server struct {
	runner  *pipeline.Runner
	opts    pipeline.Options
	logger  *log.Logger
	metrics http.Handler

	mu   sync.RWMutex
	snap *snapshot
}

// snapshot is the immutable result of one load. Requests only read it.
type snapshot struct {
	id        string
	loadedAt  time.Time
	graph     *graph.Graph
	graphHash string
	report    graph.Report
	overlap   overlap.Result
	// detections holds one result per method; errs holds methods that
	// could not run on this graph (e.g. EMPTY_GRAPH for modularity).
	detections map[string]*pipeline.Detection
	errs       map[string]error
}

// New creates a server. opts names the record source and the render
// defaults; its Method is ignored. metrics may be nil.
func New(runner *pipeline.Runner, opts pipeline.Options, logger *log.Logger, metrics http.Handler) *Server {
	if logger == nil {
		logger = log.Default()
	}
	opts.Logger = logger
	return &Server{
		runner:  runner,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// Refresh reloads the records and replaces the snapshot. On failure the
// previous snapshot stays in place.
func (s *Server) Refresh(ctx context.Context) error {
	start := time.Now()
	records, skipped, err := s.runner.Load(ctx, s.opts)
	if err != nil {
		return err
	}
	g, report := s.runner.Build(ctx, records)
	report.Skipped = append(skipped, report.Skipped...)

	snap := &snapshot{
		id:         uuid.NewString(),
		loadedAt:   time.Now(),
		graph:      g,
		report:     report,
		overlap:    overlap.Compute(g),
		detections: make(map[string]*pipeline.Detection),
		errs:       make(map[string]error),
	}
	logger := s.logger.With("snapshot", snap.id[:8])
	pipeline.LogReport(logger, report)

	if data, err := graph.Marshal(g); err == nil {
		snap.graphHash = cache.Hash(data)
	}
	for _, method := range []string{pipeline.MethodModularity, pipeline.MethodCommon} {
		opts := s.opts
		opts.Method = method
		det, _, err := s.runner.DetectWithCacheInfo(ctx, g, snap.graphHash, opts)
		if err != nil {
			if !rgerrors.Is(err, rgerrors.ErrCodeEmptyGraph) {
				return err
			}
			logger.Warn("detection unavailable", "method", method, "err", rgerrors.UserMessage(err))
			snap.errs[method] = err
			continue
		}
		snap.detections[method] = det
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	logger.Info("snapshot ready",
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount(),
		"skipped", len(report.Skipped),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *Server) snapshot() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Handler returns the HTTP handler with all routes registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(observeResponses)

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/graph", s.handleGraph)
		r.Get("/communities", s.handleCommunities)
		r.Get("/common-ingredients", s.handleCommonIngredients)
		r.Get("/layers", s.handleLayers)
		r.Get("/render.svg", s.handleRender)
		r.Post("/refresh", s.handleRefresh)
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg Config) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return rgerrors.Resource(err, "listen on %s", cfg.Addr)
	case <-ctx.Done():
	}

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return rgerrors.Resource(err, "shutdown")
	}
	return nil
}

// logRequests logs one line per request at debug level, and failures at warn.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		keyvals := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimiddleware.GetReqID(r.Context()),
		}
		if ww.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request failed", keyvals...)
			return
		}
		s.logger.Debug("request", keyvals...)
	})
}

// observeResponses reports every response to the server hooks, labeled by
// route pattern rather than raw path.
func observeResponses(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.Server().OnResponse(r.Context(), r.Method, route, status, time.Since(start))
	})
}
