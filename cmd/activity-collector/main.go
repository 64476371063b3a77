package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/activity-collector/internal/api"
	"github.com/Sternrassler/activity-collector/internal/config"
	"github.com/Sternrassler/activity-collector/pkg/collector"
	"github.com/Sternrassler/activity-collector/pkg/jobs"
	"github.com/Sternrassler/activity-collector/pkg/logging"
	"github.com/Sternrassler/activity-collector/pkg/publish"
	"github.com/Sternrassler/activity-collector/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := logging.Setup(cfg.Logging())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error().Err(err).Msg("Server failed")
		os.Exit(1)
	}
}

// app is the wired service.
type app struct {
	handler    http.Handler
	collector  *collector.Collector
	cancelJobs context.CancelFunc
	closers    []func() error
	logger     zerolog.Logger
}

// newApp wires stores, publisher, collector and router from cfg.
func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{logger: logger}

	var (
		store      jobs.Store = jobs.NewMemoryStore()
		redisReady func(ctx context.Context) error
		rc         *redis.Client
	)
	if cfg.RedisAddr != "" {
		rc = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, rc.Close)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rc.Ping(ctx).Err(); err != nil {
			a.close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")

		store = jobs.NewRedisStore(rc, cfg.JobTTL)
		redisReady = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}

	tracker := ratelimit.NewTracker(rc, logging.NewLogger("quota-tracker"))

	var consumer collector.Consumer = collector.NewLogConsumer(logging.NewLogger("activity"))
	if len(cfg.KafkaBrokers) > 0 {
		pub, err := publish.New(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("create publisher: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		consumer = collector.Chain(consumer, pub)
		logger.Info().
			Strs("brokers", cfg.KafkaBrokers).
			Str("topic", cfg.KafkaTopic).
			Msg("Publishing page summaries to Kafka")
	}

	ccfg, err := cfg.Collector()
	if err != nil {
		a.close()
		return nil, err
	}

	jobCtx, cancelJobs := context.WithCancel(context.Background())
	a.cancelJobs = cancelJobs

	c, err := collector.New(ccfg,
		collector.WithQuota(tracker),
		collector.WithStore(store),
		collector.WithLogger(logging.NewLogger("collector")),
		collector.WithBaseContext(jobCtx),
	)
	if err != nil {
		cancelJobs()
		a.close()
		return nil, err
	}
	a.collector = c

	apiLogger := logging.NewLogger("api")
	a.handler = api.NewServer(api.Config{
		Jobs:     c,
		Quota:    tracker,
		Consumer: consumer,
		Ready:    redisReady,
		Logger:   &apiLogger,
	}).Routes()

	return a, nil
}

// shutdown cancels running jobs, waits for them to record their final
// state, then releases connections.
func (a *app) shutdown() {
	a.cancelJobs()
	a.collector.Wait()
	a.close()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}

// run serves until ctx is cancelled, then shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.shutdown()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("github_url", cfg.GitHubURL).
			Int("max_parallelism", cfg.MaxParallelism).
			Str("pacing", cfg.Pacing).
			Msg("Starting activity collector")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
