// Package client provides the GitHub REST API HTTP client used by the page
// fetchers: identifying headers, optional token credential, error
// classification and request metrics.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream client operations.
var (
	githubRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_requests_total",
		Help: "Total GitHub API requests by route and status",
	}, []string{"route", "status"})

	githubRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "github_request_duration_seconds",
		Help:    "GitHub API request duration in seconds by route",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route"})

	githubErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "github_errors_total",
		Help: "Total GitHub API errors by class",
	}, []string{"class"})
)

// DefaultUserAgent identifies the collector to GitHub.
const DefaultUserAgent = "github-useractivity-client"

// QuotaObserver receives the response headers of every upstream call.
// It is used for observability only and must not block.
type QuotaObserver interface {
	UpdateFromHeaders(ctx context.Context, headers http.Header) error
}

// Config holds the client configuration.
type Config struct {
	// User-Agent header (REQUIRED by GitHub)
	UserAgent string

	// Token is an optional static credential sent as "Authorization: token <Token>".
	// Unauthenticated requests are allowed.
	Token string

	// Timeout bounds a single request including reading the body.
	Timeout time.Duration

	// Quota is notified of X-RateLimit-* headers. Optional.
	Quota QuotaObserver
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(token string) Config {
	return Config{
		UserAgent: DefaultUserAgent,
		Token:     token,
		Timeout:   30 * time.Second,
	}
}

// Client is the GitHub API client. Each pool worker owns one.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new GitHub API client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, ErrUserAgentRequired
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "github-client").Logger(),
	}, nil
}

// Do performs an HTTP request with the identifying headers attached.
// Any non-2xx response is returned as an *APIError with its body closed.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	route := routeLabel(req.URL.Path)

	startTime := time.Now()
	defer func() {
		githubRequestDuration.WithLabelValues(route).Observe(time.Since(startTime).Seconds())
	}()

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.config.Token != "" {
		req.Header.Set("Authorization", "token "+c.config.Token)
	}

	c.logger.Debug().
		Str("url", req.URL.String()).
		Str("method", req.Method).
		Msg("Executing GitHub request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errClass := c.classifyError(nil, err)
		githubErrorsTotal.WithLabelValues(string(errClass)).Inc()
		githubRequestsTotal.WithLabelValues(route, "network_error").Inc()
		c.logger.Warn().Err(err).Str("url", req.URL.String()).Msg("HTTP request failed")
		return nil, &APIError{
			URL:        req.URL.String(),
			ErrorClass: errClass,
			Message:    "request failed",
			Err:        err,
		}
	}

	if c.config.Quota != nil {
		if err := c.config.Quota.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update quota from headers")
		}
	}

	githubRequestsTotal.WithLabelValues(route, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errClass := c.classifyError(resp, nil)
		githubErrorsTotal.WithLabelValues(string(errClass)).Inc()

		c.logger.Warn().
			Str("url", req.URL.String()).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("GitHub request error")

		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()

		return nil, &APIError{
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    resp.Status,
		}
	}

	return resp, nil
}

// classifyError categorizes an error for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0":
		return ErrorClassRateLimit
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return ErrorClassClient
	case resp.StatusCode >= 500:
		return ErrorClassServer
	default:
		// 1xx/3xx that survived redirect handling
		return ErrorClassClient
	}
}

// Get performs a GET request against an absolute URL (a seed or a cursor).
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// routeLabel collapses per-user paths so metric cardinality stays bounded:
// /users/octocat/events -> /users/{user}/events
func routeLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) >= 2 && segments[0] == "users" {
		segments[1] = "{user}"
	}
	return "/" + strings.Join(segments, "/")
}
