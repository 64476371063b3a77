// Package api exposes the collector over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Sternrassler/activity-collector/pkg/collector"
	"github.com/Sternrassler/activity-collector/pkg/jobs"
	"github.com/Sternrassler/activity-collector/pkg/metrics"
	"github.com/Sternrassler/activity-collector/pkg/ratelimit"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxBodyBytes bounds the POST /collect payload.
const maxBodyBytes = 1 << 20

// JobRunner starts and reports collection jobs.
type JobRunner interface {
	Start(ctx context.Context, users []string, consumer collector.Consumer) (jobs.Job, error)
	Job(ctx context.Context, id string) (jobs.Job, error)
}

// QuotaReader reports the last observed GitHub quota.
type QuotaReader interface {
	GetState(ctx context.Context) (*ratelimit.QuotaState, error)
}

// Config holds the server dependencies.
type Config struct {
	Jobs JobRunner

	// Quota is optional; without it GET /quota answers 404.
	Quota QuotaReader

	// Consumer receives every result of every job.
	Consumer collector.Consumer

	// Ready reports whether backing services are reachable. Optional.
	Ready func(ctx context.Context) error

	// Logger defaults to the global logger.
	Logger *zerolog.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	jobs     JobRunner
	quota    QuotaReader
	consumer collector.Consumer
	ready    func(ctx context.Context) error
	logger   zerolog.Logger
}

// NewServer creates a server.
func NewServer(cfg Config) *Server {
	logger := log.With().Str("component", "api").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Server{
		jobs:     cfg.Jobs,
		quota:    cfg.Quota,
		consumer: cfg.Consumer,
		ready:    cfg.Ready,
		logger:   logger,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Post("/collect", s.handleCollect)
		r.Get("/jobs/{id}", s.handleGetJob)
		r.Get("/quota", s.handleQuota)
	})

	return r
}
