package balancer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/Sternrassler/activity-collector/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// Prometheus metrics for the worker pool.
var (
	poolBusyWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collector_pool_busy_workers",
		Help: "Workers currently draining a seed",
	})

	poolPagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_pool_pages_total",
		Help: "Total pages accepted by the pool sink",
	})

	poolSeedFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_pool_seed_failures_total",
		Help: "Total seeds whose cursor chain ended with an error",
	})

	poolSeedDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collector_pool_seed_duration_seconds",
		Help:    "Time a worker spent draining one seed",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
	})
)

// ErrNoSource is returned by New without a source constructor.
var ErrNoSource = errors.New("source constructor is required")

// Source produces the pages of one seed. Each worker owns its own Source.
type Source[T any] interface {
	Pages(ctx context.Context, seed string) iter.Seq2[pagination.Page[T], error]
}

// Result is one item of the merged output: a page, or the failure that ended a seed.
type Result[T any] struct {
	Seed   string
	Worker int
	Page   pagination.Page[T]
	Err    error
}

// Failed reports whether the result is a seed-scoped failure.
func (r Result[T]) Failed() bool {
	return r.Err != nil
}

// Sink consumes merged results. Accept is never called concurrently; a
// returned error aborts the run.
type Sink[T any] interface {
	Accept(ctx context.Context, r Result[T]) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc[T any] func(ctx context.Context, r Result[T]) error

// Accept calls f.
func (f SinkFunc[T]) Accept(ctx context.Context, r Result[T]) error {
	return f(ctx, r)
}

// Config holds pool configuration.
type Config struct {
	// Workers is the number of concurrent workers (>= 1).
	Workers int

	// Logger defaults to the global logger.
	Logger *zerolog.Logger
}

// Stats summarizes one Run.
type Stats struct {
	Seeds    int           `json:"seeds"`
	Pages    int           `json:"pages"`
	Records  int           `json:"records"`
	Failures int           `json:"failures"`
	Duration time.Duration `json:"duration"`
}

// Pool is a balanced fan-out/fan-in worker pool.
type Pool[T any] struct {
	workers   int
	newSource func(workerID int) Source[T]
	logger    zerolog.Logger
}

// New creates a pool. newSource is called once per worker and Run.
func New[T any](cfg Config, newSource func(workerID int) Source[T]) (*Pool[T], error) {
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be >= 1 (got %d)", cfg.Workers)
	}
	if newSource == nil {
		return nil, ErrNoSource
	}

	logger := log.With().Str("component", "balancer").Logger()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Pool[T]{
		workers:   cfg.Workers,
		newSource: newSource,
		logger:    logger,
	}, nil
}

// Workers returns the configured worker count.
func (p *Pool[T]) Workers() int {
	return p.workers
}

// delivery carries a result to the merge loop together with the channel the
// merge loop signals once the sink has accepted it.
type delivery[T any] struct {
	result   Result[T]
	accepted chan<- struct{}
}

// Run drains every seed through the workers and hands each result to sink.
// It returns when all seeds are done, the sink fails, or ctx is cancelled;
// in every case all worker goroutines have exited.
func (p *Pool[T]) Run(ctx context.Context, seeds iter.Seq[string], sink Sink[T]) (Stats, error) {
	start := time.Now()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	intake := make(chan string)
	results := make(chan delivery[T])

	var ready sync.WaitGroup
	ready.Add(p.workers)

	var workers conc.WaitGroup
	for id := 0; id < p.workers; id++ {
		src := p.newSource(id)
		workers.Go(func() {
			p.worker(runCtx, id, src, intake, results, &ready)
		})
	}

	dispatched := make(chan int, 1)
	go func() {
		defer close(intake)
		ready.Wait()

		n := 0
		for seed := range seeds {
			select {
			case intake <- seed:
				n++
			case <-runCtx.Done():
				dispatched <- n
				return
			}
		}
		dispatched <- n
	}()

	var workerPanic error
	go func() {
		if rec := workers.WaitAndRecover(); rec != nil {
			workerPanic = fmt.Errorf("worker panic: %v", rec.Value)
		}
		close(results)
	}()

	p.logger.Info().
		Int("workers", p.workers).
		Msg("Starting balanced fetch")

	var stats Stats
	var sinkErr error
	for d := range results {
		if sinkErr == nil && runCtx.Err() == nil {
			if d.result.Failed() {
				stats.Failures++
			} else {
				stats.Pages++
				stats.Records += d.result.Page.Len()
			}

			if err := sink.Accept(runCtx, d.result); err != nil {
				sinkErr = err
				cancel()
			} else if !d.result.Failed() {
				poolPagesTotal.Inc()
			}
		}
		// Buffered, so this never blocks even if the worker already left.
		d.accepted <- struct{}{}
	}

	cancel()
	stats.Seeds = <-dispatched
	stats.Duration = time.Since(start)

	logEvent := p.logger.Info()
	var err error
	switch {
	case workerPanic != nil:
		err = workerPanic
	case sinkErr != nil:
		err = fmt.Errorf("sink: %w", sinkErr)
	case ctx.Err() != nil:
		err = ctx.Err()
	}
	if err != nil {
		logEvent = p.logger.Warn().Err(err)
	}
	logEvent.
		Int("seeds", stats.Seeds).
		Int("pages", stats.Pages).
		Int("records", stats.Records).
		Int("failures", stats.Failures).
		Dur("duration", stats.Duration).
		Msg("Balanced fetch finished")

	return stats, err
}

// worker pulls seeds until the intake closes or ctx is done.
func (p *Pool[T]) worker(ctx context.Context, id int, src Source[T], intake <-chan string, results chan<- delivery[T], ready *sync.WaitGroup) {
	ready.Done()

	accepted := make(chan struct{}, 1)
	seedsProcessed := 0

	for {
		var seed string
		var ok bool
		select {
		case <-ctx.Done():
			p.logger.Debug().
				Int("worker_id", id).
				Int("seeds_processed", seedsProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		case seed, ok = <-intake:
		}
		if !ok {
			p.logger.Debug().
				Int("worker_id", id).
				Int("seeds_processed", seedsProcessed).
				Msg("Worker completed")
			return
		}

		if !p.drain(ctx, id, src, seed, results, accepted) {
			return
		}
		seedsProcessed++
	}
}

// drain runs one seed's cursor chain to the end. It reports false if the
// worker must stop.
func (p *Pool[T]) drain(ctx context.Context, id int, src Source[T], seed string, results chan<- delivery[T], accepted chan struct{}) bool {
	start := time.Now()
	poolBusyWorkers.Inc()
	defer poolBusyWorkers.Dec()

	pages := 0
	for page, err := range src.Pages(ctx, seed) {
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			poolSeedFailuresTotal.Inc()
			p.logger.Warn().
				Err(err).
				Int("worker_id", id).
				Str("seed", seed).
				Str("url", page.URL).
				Int("pages", pages).
				Msg("Seed failed")
		}

		select {
		case results <- delivery[T]{
			result:   Result[T]{Seed: seed, Worker: id, Page: page, Err: err},
			accepted: accepted,
		}:
		case <-ctx.Done():
			return false
		}

		select {
		case <-accepted:
		case <-ctx.Done():
			return false
		}
		pages++
	}

	poolSeedDuration.Observe(time.Since(start).Seconds())
	p.logger.Debug().
		Int("worker_id", id).
		Str("seed", seed).
		Int("pages", pages).
		Dur("duration", time.Since(start)).
		Msg("Seed drained")

	return ctx.Err() == nil
}
