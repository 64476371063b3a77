package collector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Sternrassler/activity-collector/pkg/activity"
	"github.com/Sternrassler/activity-collector/pkg/balancer"
	"github.com/Sternrassler/activity-collector/pkg/client"
	"github.com/Sternrassler/activity-collector/pkg/jobs"
	"github.com/Sternrassler/activity-collector/pkg/pagination"
	"github.com/Sternrassler/activity-collector/pkg/ratelimit"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
)

// Batch-scoped errors. They are returned before any request is made.
var (
	ErrEmptyBatch  = errors.New("batch contains no users")
	ErrInvalidUser = errors.New("user name must not be blank")
)

// Defaults match GitHub's public events feed.
const (
	DefaultBaseURL        = "https://api.github.com"
	DefaultPageSize       = 10
	DefaultStartPage      = 1
	DefaultMaxParallelism = 2
)

// Config holds the collector configuration.
type Config struct {
	// BaseURL of the GitHub REST API.
	BaseURL string

	// UserAgent is sent with every request (required by GitHub).
	UserAgent string

	// Token is an optional static credential.
	Token string

	// PageSize and StartPage are baked into every seed URL.
	PageSize  int
	StartPage int

	// MaxParallelism caps the number of workers.
	MaxParallelism int

	// Pacing builds one pacer per worker. Nil disables pacing.
	Pacing ratelimit.PacerFactory

	// LenientDecode treats undecodable bodies as empty pages.
	LenientDecode bool

	// RequestTimeout bounds one upstream request.
	RequestTimeout time.Duration
}

// DefaultConfig returns the configuration used against api.github.com:
// two workers, each spacing its requests one second apart.
func DefaultConfig() Config {
	return Config{
		BaseURL:        DefaultBaseURL,
		UserAgent:      client.DefaultUserAgent,
		PageSize:       DefaultPageSize,
		StartPage:      DefaultStartPage,
		MaxParallelism: DefaultMaxParallelism,
		Pacing: func() ratelimit.Pacer {
			return ratelimit.FixedInterval(ratelimit.DefaultInterval)
		},
		RequestTimeout: 30 * time.Second,
	}
}

func (c Config) validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("base url must be absolute (got %q)", c.BaseURL)
	}
	if c.UserAgent == "" {
		return client.ErrUserAgentRequired
	}
	if c.PageSize < 1 {
		return fmt.Errorf("page size must be >= 1 (got %d)", c.PageSize)
	}
	if c.StartPage < 1 {
		return fmt.Errorf("start page must be >= 1 (got %d)", c.StartPage)
	}
	if c.MaxParallelism < 1 {
		return fmt.Errorf("max parallelism must be >= 1 (got %d)", c.MaxParallelism)
	}
	return nil
}

// Summary reports one synchronous run.
type Summary struct {
	balancer.Stats
	Users   int `json:"users"`
	Workers int `json:"workers"`
}

// Option configures a Collector.
type Option func(*Collector)

// WithQuota hands every response's headers to obs.
func WithQuota(obs client.QuotaObserver) Option {
	return func(c *Collector) { c.quota = obs }
}

// WithStore sets the job store used by Start. Defaults to a MemoryStore.
func WithStore(store jobs.Store) Option {
	return func(c *Collector) { c.store = store }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Collector) { c.logger = logger }
}

// WithBaseContext sets the context background jobs run under. Cancelling it
// cancels every running job.
func WithBaseContext(ctx context.Context) Option {
	return func(c *Collector) { c.baseCtx = ctx }
}

// Collector runs batches of users through the balanced pool.
type Collector struct {
	cfg     Config
	quota   client.QuotaObserver
	store   jobs.Store
	logger  zerolog.Logger
	baseCtx context.Context
	running conc.WaitGroup
}

// New creates a collector.
func New(cfg Config, opts ...Option) (*Collector, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid collector config: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	c := &Collector{
		cfg:     cfg,
		logger:  log.With().Str("component", "collector").Logger(),
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = jobs.NewMemoryStore()
	}
	return c, nil
}

// SeedURL returns the first-page URL of user's public events feed.
func (c *Collector) SeedURL(user string) string {
	return fmt.Sprintf("%s/users/%s/events?per_page=%d&page=%d",
		c.cfg.BaseURL, url.PathEscape(user), c.cfg.PageSize, c.cfg.StartPage)
}

// Seeds maps users to seed URLs, preserving order.
func (c *Collector) Seeds(users []string) []string {
	seeds := make([]string, len(users))
	for i, u := range users {
		seeds[i] = c.SeedURL(u)
	}
	return seeds
}

// Parallelism returns the worker count for a batch of n seeds.
func (c *Collector) Parallelism(n int) int {
	return min(c.cfg.MaxParallelism, n)
}

// normalize trims user names and rejects empty or blank batches.
func normalize(users []string) ([]string, error) {
	if len(users) == 0 {
		return nil, ErrEmptyBatch
	}
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = strings.TrimSpace(u)
		if out[i] == "" {
			return nil, fmt.Errorf("%w (position %d)", ErrInvalidUser, i)
		}
	}
	return out, nil
}

// Run drains the events of every user and blocks until the batch is done.
// Seed failures are delivered to consumer and counted in the summary; only
// batch-scoped problems, a consumer error or cancellation are returned.
func (c *Collector) Run(ctx context.Context, users []string, consumer Consumer) (Summary, error) {
	users, err := normalize(users)
	if err != nil {
		return Summary{}, err
	}
	return c.run(ctx, users, consumer)
}

func (c *Collector) run(ctx context.Context, users []string, consumer Consumer) (Summary, error) {
	seeds := c.Seeds(users)
	workers := c.Parallelism(len(seeds))

	clients := make([]*client.Client, workers)
	for i := range clients {
		cl, err := client.New(client.Config{
			UserAgent: c.cfg.UserAgent,
			Token:     c.cfg.Token,
			Timeout:   c.cfg.RequestTimeout,
			Quota:     c.quota,
		})
		if err != nil {
			return Summary{}, fmt.Errorf("create client: %w", err)
		}
		clients[i] = cl
	}

	pool, err := balancer.New(balancer.Config{Workers: workers, Logger: &c.logger},
		func(id int) balancer.Source[activity.Event] {
			var pacer ratelimit.Pacer
			if c.cfg.Pacing != nil {
				pacer = c.cfg.Pacing()
			}
			logger := c.logger.With().Int("worker_id", id).Logger()
			return pagination.NewFetcher[activity.Event](clients[id], pacer, pagination.FetcherOptions{
				LenientDecode: c.cfg.LenientDecode,
				Logger:        &logger,
			})
		})
	if err != nil {
		return Summary{}, fmt.Errorf("create pool: %w", err)
	}

	if consumer == nil {
		consumer = Discard
	}
	sink := balancer.SinkFunc[activity.Event](consumer.Consume)

	stats, err := pool.Run(ctx, slices.Values(seeds), sink)
	return Summary{Stats: stats, Users: len(users), Workers: workers}, err
}

// Start validates the batch, saves a queued job and runs the batch in the
// background. The returned job is the queued snapshot; query Job for progress.
func (c *Collector) Start(ctx context.Context, users []string, consumer Consumer) (jobs.Job, error) {
	users, err := normalize(users)
	if err != nil {
		return jobs.Job{}, err
	}

	job := jobs.New(users)
	if err := c.store.Save(ctx, job); err != nil {
		return jobs.Job{}, fmt.Errorf("save job: %w", err)
	}

	c.logger.Info().
		Str("job_id", job.ID).
		Int("users", len(users)).
		Msg("Job queued")

	c.running.Go(func() {
		c.runJob(job.Clone(), consumer)
	})
	return job, nil
}

// Job returns the current state of a job.
func (c *Collector) Job(ctx context.Context, id string) (jobs.Job, error) {
	return c.store.Get(ctx, id)
}

// Wait blocks until every background job has finished.
func (c *Collector) Wait() {
	if rec := c.running.WaitAndRecover(); rec != nil {
		c.logger.Error().
			Str("panic", fmt.Sprint(rec.Value)).
			Msg("Background job panicked")
	}
}

func (c *Collector) runJob(job jobs.Job, consumer Consumer) {
	ctx := jobs.WithID(c.baseCtx, job.ID)
	logger := c.logger.With().Str("job_id", job.ID).Logger()

	// Job records must still be written once the base context is cancelled.
	saveCtx := context.WithoutCancel(ctx)
	save := func() {
		sctx, cancel := context.WithTimeout(saveCtx, 5*time.Second)
		defer cancel()
		if err := c.store.Save(sctx, job); err != nil {
			logger.Warn().Err(err).Msg("Failed to save job")
		}
	}

	job.MarkRunning(time.Now().UTC())
	save()
	logger.Info().Msg("Job started")

	progress := ConsumerFunc(func(ctx context.Context, r balancer.Result[activity.Event]) error {
		if r.Failed() {
			job.RecordFailure(jobs.SeedFailure{
				Seed:       r.Seed,
				URL:        r.Page.URL,
				ErrorClass: string(client.ClassOf(r.Err)),
				Error:      r.Err.Error(),
			})
		} else {
			job.RecordPage(activity.Tally(r.Page.Records))
		}
		save()
		return nil
	})

	summary, err := c.run(ctx, job.Users, Chain(progress, consumer))

	status := jobs.StatusCompleted
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = jobs.StatusCancelled
	default:
		status = jobs.StatusFailed
	}
	job.Finish(status, time.Now().UTC(), err)
	save()
	jobs.ObserveFinished(job)

	event := logger.Info()
	if err != nil {
		event = logger.Warn().Err(err)
	}
	event.
		Str("status", string(status)).
		Int("pages", summary.Pages).
		Int("records", summary.Records).
		Int("failures", summary.Failures).
		Dur("duration", summary.Duration).
		Msg("Job finished")
}
