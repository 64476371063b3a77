package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	githubQuotaRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "github_quota_remaining",
		Help: "Requests remaining in the current GitHub API rate limit window",
	})

	githubQuotaLowTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "github_quota_low_total",
		Help: "Total number of responses observed with a quota below the warning threshold",
	})
)

// ErrNoState is returned by GetState before any quota headers were observed.
var ErrNoState = errors.New("no quota state observed")

// Tracker records the GitHub quota reported by responses.
// With a Redis client the state is shared by all collector instances.
type Tracker struct {
	redis  *redis.Client
	logger zerolog.Logger

	mu    sync.RWMutex
	state *QuotaState
}

// NewTracker creates a new quota tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:  redisClient,
		logger: logger,
	}
}

// GetState returns the most recent quota state, preferring Redis when configured.
func (t *Tracker) GetState(ctx context.Context) (*QuotaState, error) {
	if t.redis != nil {
		state, err := t.getRedisState(ctx)
		if err == nil {
			return state, nil
		}
		if !errors.Is(err, ErrNoState) {
			return nil, err
		}
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.state == nil {
		return nil, ErrNoState
	}
	state := *t.state
	return &state, nil
}

func (t *Tracker) getRedisState(ctx context.Context) (*QuotaState, error) {
	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Int()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoState
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	limit, err := t.redis.Get(ctx, RedisKeyLimit).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get limit: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, RedisKeyResetTimestamp).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &QuotaState{
		Limit:      limit,
		Remaining:  remaining,
		ResetAt:    time.Unix(resetTimestamp, 0),
		LastUpdate: lastUpdate,
	}
	state.UpdateHealth()
	return state, nil
}

// UpdateFromHeaders parses the GitHub X-RateLimit-* headers and records the state.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get("X-RateLimit-Remaining")
	if remainStr == "" {
		// Not every response carries quota headers (e.g. test servers, proxies).
		return nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
	}

	resetStr := headers.Get("X-RateLimit-Reset")
	if resetStr == "" {
		return fmt.Errorf("X-RateLimit-Reset header missing")
	}
	resetEpoch, err := strconv.ParseInt(resetStr, 10, 64)
	if err != nil {
		return fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
	}

	limit := 0
	if limitStr := headers.Get("X-RateLimit-Limit"); limitStr != "" {
		if limit, err = strconv.Atoi(limitStr); err != nil {
			return fmt.Errorf("parse X-RateLimit-Limit header: %w", err)
		}
	}

	now := time.Now()
	state := &QuotaState{
		Limit:      limit,
		Remaining:  remain,
		ResetAt:    time.Unix(resetEpoch, 0),
		LastUpdate: now,
	}
	state.UpdateHealth()

	t.mu.Lock()
	t.state = state
	t.mu.Unlock()

	if t.redis != nil {
		lastUpdateJSON, err := json.Marshal(state.LastUpdate)
		if err != nil {
			return fmt.Errorf("marshal last update: %w", err)
		}

		pipe := t.redis.Pipeline()
		pipe.Set(ctx, RedisKeyLimit, limit, 0)
		pipe.Set(ctx, RedisKeyRemaining, remain, 0)
		pipe.Set(ctx, RedisKeyResetTimestamp, resetEpoch, 0)
		pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("store quota state in redis: %w", err)
		}
	}

	githubQuotaRemaining.Set(float64(remain))

	if !state.IsHealthy {
		githubQuotaLowTotal.Inc()
		t.logger.Warn().
			Int("remaining", remain).
			Int("limit", limit).
			Time("reset_at", state.ResetAt).
			Msg("GitHub quota low")
		return nil
	}

	t.logger.Debug().
		Int("remaining", remain).
		Int("limit", limit).
		Time("reset_at", state.ResetAt).
		Msg("GitHub quota state updated")
	return nil
}
