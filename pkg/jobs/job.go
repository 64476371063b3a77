package jobs

import (
	"maps"
	"slices"
	"time"

	"github.com/Sternrassler/activity-collector/pkg/activity"
	"github.com/google/uuid"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transitions can happen.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// SeedFailure records the error that ended one user's cursor chain.
type SeedFailure struct {
	Seed       string `json:"seed"`
	URL        string `json:"url,omitempty"`
	ErrorClass string `json:"error_class,omitempty"`
	Error      string `json:"error"`
}

// Job is one collection run over a batch of users.
type Job struct {
	ID         string              `json:"id"`
	Status     Status              `json:"status"`
	Users      []string            `json:"users"`
	CreatedAt  time.Time           `json:"created_at"`
	StartedAt  *time.Time          `json:"started_at,omitempty"`
	FinishedAt *time.Time          `json:"finished_at,omitempty"`
	Pages      int                 `json:"pages"`
	Records    int                 `json:"records"`
	TypeCounts activity.TypeCounts `json:"type_counts"`
	Failures   []SeedFailure       `json:"failures,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// New returns a queued job with a fresh ID.
func New(users []string) Job {
	return Job{
		ID:         uuid.NewString(),
		Status:     StatusQueued,
		Users:      slices.Clone(users),
		CreatedAt:  time.Now().UTC(),
		TypeCounts: activity.TypeCounts{},
	}
}

// MarkRunning moves the job to running.
func (j *Job) MarkRunning(now time.Time) {
	j.Status = StatusRunning
	j.StartedAt = &now
}

// RecordPage adds one delivered page to the progress counters.
func (j *Job) RecordPage(counts activity.TypeCounts) {
	j.Pages++
	j.Records += counts.Total()
	if j.TypeCounts == nil {
		j.TypeCounts = activity.TypeCounts{}
	}
	j.TypeCounts.Add(counts)
}

// RecordFailure appends a seed-scoped failure. The job itself keeps running.
func (j *Job) RecordFailure(f SeedFailure) {
	j.Failures = append(j.Failures, f)
}

// Finish moves the job to a terminal status. A non-nil err is kept as the
// job's batch-level error.
func (j *Job) Finish(status Status, now time.Time, err error) {
	j.Status = status
	j.FinishedAt = &now
	if err != nil {
		j.Error = err.Error()
	}
}

// Duration returns the time between start and finish, or zero if the job
// has not finished.
func (j Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

// Clone returns a deep copy, so stored jobs never alias a caller's job.
func (j Job) Clone() Job {
	c := j
	c.Users = slices.Clone(j.Users)
	c.Failures = slices.Clone(j.Failures)
	if j.TypeCounts != nil {
		c.TypeCounts = maps.Clone(j.TypeCounts)
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return c
}
