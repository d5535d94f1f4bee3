// Package server exposes the composition pipeline as an HTTP API.
//
// Endpoints:
//
//   - POST /analyze  — multipart "file"; returns transcript, features,
//     controls, and the generation prompt as JSON.
//   - POST /generate — form prompt plus musical parameters; returns WAV.
//   - POST /mix      — multipart "file_dialogue" and "file_bg" plus ducking
//     parameters; returns the ducked WAV mix.
//   - POST /compose  — multipart "file"; full analyze→generate→mix in one
//     call; returns WAV.
//   - GET  /jobs, /jobs/{id} — recorded pipeline invocations (when a job
//     store is configured).
//   - GET  /healthz, /readyz, /metrics.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sonicmuse/sonicmuse/internal/compose"
	"github.com/sonicmuse/sonicmuse/internal/health"
	"github.com/sonicmuse/sonicmuse/internal/jobstore"
	"github.com/sonicmuse/sonicmuse/internal/observe"
	"github.com/sonicmuse/sonicmuse/pkg/mix"
)

// Config holds the server's own settings.
type Config struct {
	// ListenAddr is the host:port to bind.
	ListenAddr string

	// MixParams are the defaults applied when a request omits ducking
	// parameters.
	MixParams mix.Params

	// RetainJobs caps how many job records are kept; older records are
	// pruned after each save. Zero disables pruning.
	RetainJobs int
}

// Server serves the HTTP API. Construct with [New].
type Server struct {
	cfg      Config
	pipeline *compose.Pipeline
	store    jobstore.Store
	health   *health.Handler
	metrics  *observe.Metrics

	httpSrv *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithStore enables job recording and the /jobs endpoints.
func WithStore(s jobstore.Store) Option {
	return func(srv *Server) { srv.store = s }
}

// WithHealth sets the health handler serving /healthz and /readyz. Without
// one, a checker-less handler is used.
func WithHealth(h *health.Handler) Option {
	return func(srv *Server) { srv.health = h }
}

// WithMetrics enables the observability middleware and /metrics endpoint.
func WithMetrics(m *observe.Metrics) Option {
	return func(srv *Server) { srv.metrics = m }
}

// New creates a Server around the pipeline.
func New(cfg Config, pipeline *compose.Pipeline, opts ...Option) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: pipeline,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.health == nil {
		s.health = health.New()
	}
	return s
}

// Handler builds the full route table, wrapped in the observability
// middleware when metrics are configured.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("POST /mix", s.handleMix)
	mux.HandleFunc("POST /compose", s.handleCompose)

	if s.store != nil {
		mux.HandleFunc("GET /jobs", s.handleJobs)
		mux.HandleFunc("GET /jobs/{id}", s.handleJob)
	}

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	if s.metrics != nil {
		return observe.Middleware(s.metrics)(mux)
	}
	return mux
}

// Start begins serving and blocks until the listener fails or [Server.Shutdown]
// is called.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("http server listening", "addr", s.cfg.ListenAddr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
