package ratelimit

import (
	"testing"
	"time"
)

func TestQuotaState_IsStale(t *testing.T) {
	tests := []struct {
		name     string
		state    *QuotaState
		maxAge   time.Duration
		expected bool
	}{
		{
			name:     "fresh state",
			state:    &QuotaState{LastUpdate: time.Now()},
			maxAge:   5 * time.Minute,
			expected: false,
		},
		{
			name:     "stale state",
			state:    &QuotaState{LastUpdate: time.Now().Add(-10 * time.Minute)},
			maxAge:   5 * time.Minute,
			expected: true,
		},
		{
			name:     "just under max age",
			state:    &QuotaState{LastUpdate: time.Now().Add(-4 * time.Minute)},
			maxAge:   5 * time.Minute,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsStale(tt.maxAge); got != tt.expected {
				t.Errorf("IsStale() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestQuotaState_IsExhausted(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		resetAt   time.Time
		expected  bool
	}{
		{name: "requests left", remaining: 30, resetAt: time.Now().Add(time.Hour), expected: false},
		{name: "none left before reset", remaining: 0, resetAt: time.Now().Add(time.Hour), expected: true},
		{name: "none left but window reset", remaining: 0, resetAt: time.Now().Add(-time.Minute), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &QuotaState{Remaining: tt.remaining, ResetAt: tt.resetAt}
			if got := s.IsExhausted(); got != tt.expected {
				t.Errorf("IsExhausted() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestQuotaState_TimeUntilReset(t *testing.T) {
	future := &QuotaState{ResetAt: time.Now().Add(30 * time.Second)}
	if d := future.TimeUntilReset(); d <= 0 || d > 30*time.Second {
		t.Errorf("TimeUntilReset() = %v, want (0, 30s]", d)
	}

	past := &QuotaState{ResetAt: time.Now().Add(-time.Minute)}
	if d := past.TimeUntilReset(); d != 0 {
		t.Errorf("TimeUntilReset() = %v, want 0 for a past reset", d)
	}
}

func TestQuotaState_UpdateHealth(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		expected  bool
	}{
		{name: "well above threshold", remaining: 50, expected: true},
		{name: "at threshold", remaining: QuotaThresholdWarning, expected: true},
		{name: "just below threshold", remaining: QuotaThresholdWarning - 1, expected: false},
		{name: "exhausted", remaining: 0, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &QuotaState{Remaining: tt.remaining}
			s.UpdateHealth()
			if s.IsHealthy != tt.expected {
				t.Errorf("IsHealthy = %v, want %v", s.IsHealthy, tt.expected)
			}
		})
	}
}
