package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore persists jobs in Redis as JSON.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed store. Records expire ttl after their
// last save; a ttl of zero keeps them forever.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{
		redis: redisClient,
		ttl:   ttl,
	}
}

// Save writes the job and refreshes its TTL.
func (s *RedisStore) Save(ctx context.Context, job Job) error {
	if job.ID == "" {
		StoreErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("%w: empty id", ErrInvalidJob)
	}

	data, err := json.Marshal(job)
	if err != nil {
		StoreErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("marshal job: %w", err)
	}

	if err := s.redis.Set(ctx, Key(job.ID), data, s.ttl).Err(); err != nil {
		StoreErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get loads a job. Returns ErrNotFound if the key doesn't exist or expired.
func (s *RedisStore) Get(ctx context.Context, id string) (Job, error) {
	data, err := s.redis.Get(ctx, Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			StoreMisses.Inc()
			return Job{}, ErrNotFound
		}
		StoreErrors.WithLabelValues("get").Inc()
		return Job{}, fmt.Errorf("redis get: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		StoreErrors.WithLabelValues("get").Inc()
		return Job{}, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return job, nil
}

// Delete removes a job record.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.redis.Del(ctx, Key(id)).Err(); err != nil {
		StoreErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
