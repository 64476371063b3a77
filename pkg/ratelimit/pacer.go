package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var pacingWaitSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "github_pacing_wait_seconds",
	Help:    "Time a worker spent waiting for its pacer before issuing a request",
	Buckets: []float64{0, 0.1, 0.25, 0.5, 1, 2, 5},
}, []string{"strategy"})

// Pacing strategies accepted by NewPacerFactory.
const (
	StrategyFixed       = "fixed"
	StrategyTokenBucket = "token-bucket"
	StrategyNone        = "none"
)

// DefaultInterval is the minimum spacing between two requests of one worker.
const DefaultInterval = 1 * time.Second

// Pacer gates the start of each request issued by one worker.
// Wait blocks until the next request may start or ctx is done.
type Pacer interface {
	Wait(ctx context.Context) error
}

// PacerFactory creates the pacer owned by a single worker.
// Pacers are never shared between workers.
type PacerFactory func() Pacer

// FixedInterval returns a pacer that keeps at least interval between the
// starts of two consecutive requests. The first request never waits.
func FixedInterval(interval time.Duration) Pacer {
	return &fixedInterval{interval: interval}
}

type fixedInterval struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

func (p *fixedInterval) Wait(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	if !p.last.IsZero() {
		if wait := p.interval - time.Since(p.last); wait > 0 {
			pacingWaitSeconds.WithLabelValues(StrategyFixed).Observe(wait.Seconds())

			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	p.last = time.Now()
	return nil
}

// TokenBucket returns a pacer allowing bursts of up to burst requests and a
// sustained rate of r requests per second.
func TokenBucket(r rate.Limit, burst int) Pacer {
	if burst < 1 {
		burst = 1
	}
	return &tokenBucket{limiter: rate.NewLimiter(r, burst)}
}

type tokenBucket struct {
	limiter *rate.Limiter
}

func (p *tokenBucket) Wait(ctx context.Context) error {
	start := time.Now()
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	pacingWaitSeconds.WithLabelValues(StrategyTokenBucket).Observe(time.Since(start).Seconds())
	return nil
}

// Unpaced returns a pacer that only honours cancellation.
func Unpaced() Pacer {
	return unpaced{}
}

type unpaced struct{}

func (unpaced) Wait(ctx context.Context) error {
	return ctx.Err()
}

// NewPacerFactory builds a PacerFactory for a configured strategy.
// For token-bucket, interval is the sustained spacing (rate = 1/interval).
func NewPacerFactory(strategy string, interval time.Duration, burst int) (PacerFactory, error) {
	switch strategy {
	case StrategyFixed, "":
		if interval <= 0 {
			interval = DefaultInterval
		}
		return func() Pacer { return FixedInterval(interval) }, nil
	case StrategyTokenBucket:
		if interval <= 0 {
			return nil, fmt.Errorf("token-bucket pacing requires a positive interval (got %v)", interval)
		}
		return func() Pacer { return TokenBucket(rate.Every(interval), burst) }, nil
	case StrategyNone:
		return Unpaced, nil
	default:
		return nil, fmt.Errorf("unknown pacing strategy %q", strategy)
	}
}
