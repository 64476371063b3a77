// Package ratelimit paces the requests of a single worker and keeps track of
// the GitHub API quota reported through the X-RateLimit-* response headers.
//
// Quota tracking is observational: it feeds metrics, logs and the /quota
// endpoint but never delays a request. Request spacing is the job of a Pacer.
package ratelimit

import (
	"time"
)

// Redis keys for quota state storage.
const (
	RedisKeyLimit          = "github:quota:limit"
	RedisKeyRemaining      = "github:quota:remaining"
	RedisKeyResetTimestamp = "github:quota:reset_timestamp"
	RedisKeyLastUpdate     = "github:quota:last_update"
)

// QuotaThresholdWarning marks the quota as low when fewer requests remain.
// Anonymous clients get 60 requests per hour.
const QuotaThresholdWarning = 10

// QuotaState represents the last observed GitHub API quota.
type QuotaState struct {
	// Limit is the request budget of the current window (X-RateLimit-Limit).
	Limit int `json:"limit"`

	// Remaining is the number of requests left in the window (X-RateLimit-Remaining).
	Remaining int `json:"remaining"`

	// ResetAt is when the window resets (X-RateLimit-Reset, epoch seconds).
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was observed.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true while Remaining >= QuotaThresholdWarning.
	IsHealthy bool `json:"is_healthy"`
}

// IsStale returns true if the state is older than maxAge.
func (s *QuotaState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsExhausted returns true if no requests remain before the reset.
func (s *QuotaState) IsExhausted() bool {
	return s.Remaining <= 0 && s.TimeUntilReset() > 0
}

// TimeUntilReset returns the duration until the window resets.
// Returns 0 if the reset time has already passed.
func (s *QuotaState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates the IsHealthy field based on Remaining.
func (s *QuotaState) UpdateHealth() {
	s.IsHealthy = s.Remaining >= QuotaThresholdWarning
}
