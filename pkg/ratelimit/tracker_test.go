package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTracker_GetState_Empty(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop())

	_, err := tracker.GetState(context.Background())
	if !errors.Is(err, ErrNoState) {
		t.Errorf("GetState() error = %v, want ErrNoState", err)
	}
}

func TestTracker_UpdateFromHeaders(t *testing.T) {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	reset := time.Now().Add(30 * time.Minute).Unix()

	tests := []struct {
		name            string
		headers         map[string]string
		shouldError     bool
		expectState     bool
		expectedRemain  int
		expectedHealthy bool
	}{
		{
			name: "healthy state",
			headers: map[string]string{
				"X-RateLimit-Limit":     "60",
				"X-RateLimit-Remaining": "59",
				"X-RateLimit-Reset":     strconv.FormatInt(reset, 10),
			},
			expectState:     true,
			expectedRemain:  59,
			expectedHealthy: true,
		},
		{
			name: "low quota",
			headers: map[string]string{
				"X-RateLimit-Limit":     "60",
				"X-RateLimit-Remaining": "3",
				"X-RateLimit-Reset":     strconv.FormatInt(reset, 10),
			},
			expectState:     true,
			expectedRemain:  3,
			expectedHealthy: false,
		},
		{
			name:        "missing headers",
			headers:     map[string]string{},
			shouldError: false,
			expectState: false,
		},
		{
			name: "invalid remaining header",
			headers: map[string]string{
				"X-RateLimit-Remaining": "lots",
				"X-RateLimit-Reset":     strconv.FormatInt(reset, 10),
			},
			shouldError: true,
		},
		{
			name: "missing reset header",
			headers: map[string]string{
				"X-RateLimit-Remaining": "10",
			},
			shouldError: true,
		},
		{
			name: "invalid limit header",
			headers: map[string]string{
				"X-RateLimit-Limit":     "sixty",
				"X-RateLimit-Remaining": "10",
				"X-RateLimit-Reset":     strconv.FormatInt(reset, 10),
			},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewTracker(nil, logger)
			headers := http.Header{}
			for k, v := range tt.headers {
				headers.Set(k, v)
			}

			err := tracker.UpdateFromHeaders(context.Background(), headers)
			if tt.shouldError {
				if err == nil {
					t.Error("Expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}

			state, err := tracker.GetState(context.Background())
			if !tt.expectState {
				if !errors.Is(err, ErrNoState) {
					t.Errorf("GetState() error = %v, want ErrNoState", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetState() error = %v", err)
			}
			if state.Remaining != tt.expectedRemain {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.expectedRemain)
			}
			if state.IsHealthy != tt.expectedHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.expectedHealthy)
			}
			if state.ResetAt.Unix() != reset {
				t.Errorf("ResetAt = %d, want %d", state.ResetAt.Unix(), reset)
			}
		})
	}
}

func TestQuotaState(t *testing.T) {
	tests := []struct {
		name          string
		state         QuotaState
		exhausted     bool
		stale         bool
		resetPositive bool
	}{
		{
			name:          "exhausted before reset",
			state:         QuotaState{Remaining: 0, ResetAt: time.Now().Add(time.Minute), LastUpdate: time.Now()},
			exhausted:     true,
			resetPositive: true,
		},
		{
			name:  "zero remaining after reset",
			state: QuotaState{Remaining: 0, ResetAt: time.Now().Add(-time.Minute), LastUpdate: time.Now()},
		},
		{
			name:          "stale state",
			state:         QuotaState{Remaining: 50, ResetAt: time.Now().Add(time.Minute), LastUpdate: time.Now().Add(-time.Hour)},
			stale:         true,
			resetPositive: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsExhausted(); got != tt.exhausted {
				t.Errorf("IsExhausted() = %v, want %v", got, tt.exhausted)
			}
			if got := tt.state.IsStale(10 * time.Minute); got != tt.stale {
				t.Errorf("IsStale() = %v, want %v", got, tt.stale)
			}
			if got := tt.state.TimeUntilReset() > 0; got != tt.resetPositive {
				t.Errorf("TimeUntilReset() > 0 = %v, want %v", got, tt.resetPositive)
			}
		})
	}
}
