package client

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		expected string
	}{
		{
			name: "error with wrapped error",
			apiError: &APIError{
				URL:        "https://api.github.com/users/octocat/events",
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        io.ErrUnexpectedEOF,
			},
			expected: "github network error (status 0) for https://api.github.com/users/octocat/events: request failed: unexpected EOF",
		},
		{
			name: "error without wrapped error",
			apiError: &APIError{
				URL:        "https://api.github.com/users/ghost/events",
				StatusCode: 404,
				ErrorClass: ErrorClassClient,
				Message:    "404 Not Found",
			},
			expected: "github client error (status 404) for https://api.github.com/users/ghost/events: 404 Not Found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.apiError.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAPIError_Unwrap(t *testing.T) {
	apiErr := &APIError{ErrorClass: ErrorClassNetwork, Err: io.EOF}

	if !errors.Is(apiErr, io.EOF) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestClassOf(t *testing.T) {
	wrapped := fmt.Errorf("fetch page: %w", &APIError{StatusCode: 502, ErrorClass: ErrorClassServer})

	if got := ClassOf(wrapped); got != ErrorClassServer {
		t.Errorf("ClassOf() = %q, want %q", got, ErrorClassServer)
	}
	if got := ClassOf(io.EOF); got != "" {
		t.Errorf("ClassOf(non-api error) = %q, want empty", got)
	}
}
