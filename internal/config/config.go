// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/Sternrassler/activity-collector/pkg/collector"
	"github.com/Sternrassler/activity-collector/pkg/logging"
	"github.com/Sternrassler/activity-collector/pkg/ratelimit"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// GitHub upstream
	GitHubToken    string        `env:"GITHUB_API_TOKEN"`
	GitHubURL      string        `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`
	UserAgent      string        `env:"USER_AGENT" envDefault:"github-useractivity-client"`
	PageSize       int           `env:"PAGE_SIZE" envDefault:"10"`
	StartPage      int           `env:"START_PAGE" envDefault:"1"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	LenientDecode  bool          `env:"LENIENT_DECODE" envDefault:"false"`

	// Pool and pacing
	MaxParallelism  int           `env:"MAX_PARALLELISM" envDefault:"2"`
	Pacing          string        `env:"PACING" envDefault:"fixed"`
	RequestInterval time.Duration `env:"REQUEST_INTERVAL" envDefault:"1s"`
	PacingBurst     int           `env:"PACING_BURST" envDefault:"1"`

	// Job store; empty REDIS_ADDR keeps jobs in memory
	RedisAddr string        `env:"REDIS_ADDR"`
	JobTTL    time.Duration `env:"JOB_TTL" envDefault:"24h"`

	// Kafka publishing; empty KAFKA_BROKERS disables it
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"github-activity"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`
}

// Load reads the given .env files (default ".env"), then the environment.
// Missing .env files are ignored; variables already set in the environment win.
func Load(dotenvFiles ...string) (*Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load dotenv: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	cfg.KafkaBrokers = slices.DeleteFunc(cfg.KafkaBrokers, func(b string) bool {
		return strings.TrimSpace(b) == ""
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	u, err := url.Parse(c.GitHubURL)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("GITHUB_API_URL must be an absolute URL (got %q)", c.GitHubURL)
	}
	if c.UserAgent == "" {
		return errors.New("USER_AGENT must not be empty")
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("PAGE_SIZE must be between 1 and 100 (got %d)", c.PageSize)
	}
	if c.StartPage < 1 {
		return fmt.Errorf("START_PAGE must be >= 1 (got %d)", c.StartPage)
	}
	if c.MaxParallelism < 1 {
		return fmt.Errorf("MAX_PARALLELISM must be >= 1 (got %d)", c.MaxParallelism)
	}
	if _, err := c.PacerFactory(); err != nil {
		return fmt.Errorf("PACING: %w", err)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// PacerFactory builds the per-worker pacer for the configured strategy.
func (c *Config) PacerFactory() (ratelimit.PacerFactory, error) {
	return ratelimit.NewPacerFactory(c.Pacing, c.RequestInterval, c.PacingBurst)
}

// Collector returns the pipeline configuration.
func (c *Config) Collector() (collector.Config, error) {
	pacing, err := c.PacerFactory()
	if err != nil {
		return collector.Config{}, err
	}
	return collector.Config{
		BaseURL:        c.GitHubURL,
		UserAgent:      c.UserAgent,
		Token:          c.GitHubToken,
		PageSize:       c.PageSize,
		StartPage:      c.StartPage,
		MaxParallelism: c.MaxParallelism,
		Pacing:         pacing,
		LenientDecode:  c.LenientDecode,
		RequestTimeout: c.RequestTimeout,
	}, nil
}

// Logging returns the logger configuration. Call after Validate.
func (c *Config) Logging() logging.Config {
	level, _ := logging.ParseLevel(c.LogLevel)
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Pretty = c.LogPretty
	return cfg
}
