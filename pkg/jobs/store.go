package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrNotFound indicates the job ID is unknown or has expired
	ErrNotFound = errors.New("job not found")

	// ErrInvalidJob indicates a stored job record could not be decoded
	ErrInvalidJob = errors.New("invalid job record")
)

// Store persists jobs.
type Store interface {
	Save(ctx context.Context, job Job) error
	Get(ctx context.Context, id string) (Job, error)
}

// MemoryStore keeps jobs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]Job
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]Job)}
}

// Save stores a copy of job, replacing any previous version.
func (s *MemoryStore) Save(_ context.Context, job Job) error {
	if job.ID == "" {
		StoreErrors.WithLabelValues("save").Inc()
		return fmt.Errorf("%w: empty id", ErrInvalidJob)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Get returns a copy of the job with the given ID.
func (s *MemoryStore) Get(_ context.Context, id string) (Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		StoreMisses.Inc()
		return Job{}, ErrNotFound
	}
	return job.Clone(), nil
}

// Len returns the number of stored jobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
