// Package config loads catalog-browse settings from defaults, an optional
// YAML file and CATALOG_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Sternrassler/compass-catalog-client/pkg/catalog"
	"github.com/Sternrassler/compass-catalog-client/pkg/client"
	"github.com/Sternrassler/compass-catalog-client/pkg/logging"
	"github.com/Sternrassler/compass-catalog-client/pkg/pagination"
	"github.com/Sternrassler/compass-catalog-client/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvAPIURL      = "CATALOG_API_URL"
	EnvRedisURL    = "CATALOG_REDIS_URL"
	EnvLogLevel    = "CATALOG_LOG_LEVEL"
	EnvMetricsAddr = "CATALOG_METRICS_ADDR"
	EnvUserAgent   = "CATALOG_USER_AGENT"
)

// APIConfig configures the catalog API client.
type APIConfig struct {
	URL               string        `yaml:"url"`
	UserAgent         string        `yaml:"user_agent"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxRetries        int           `yaml:"max_retries"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	DefaultRetryAfter time.Duration `yaml:"default_retry_after"`
}

// RedisConfig enables the page cache and the shared cooldown.
// An empty URL disables both.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// MetricsConfig configures the Prometheus endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the complete catalog-browse configuration.
type Config struct {
	API        APIConfig         `yaml:"api"`
	Redis      RedisConfig       `yaml:"redis"`
	Log        logging.Config    `yaml:"log"`
	Metrics    MetricsConfig     `yaml:"metrics"`
	Solutions  pagination.Config `yaml:"solutions"`
	Categories pagination.Config `yaml:"categories"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		API: APIConfig{
			URL:               "http://localhost:8000",
			UserAgent:         "catalog-browse/1.0",
			Timeout:           10 * time.Second,
			MaxRetries:        3,
			InitialBackoff:    500 * time.Millisecond,
			MaxBackoff:        5 * time.Second,
			DefaultRetryAfter: ratelimit.DefaultRetryAfter,
		},
		Log:        logging.Config{Level: logging.LevelInfo},
		Solutions:  catalog.SolutionCatalogConfig(),
		Categories: catalog.CategoryListConfig(),
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIURL); ok {
		c.API.URL = v
	}
	if v, ok := lookup(EnvRedisURL); ok {
		c.Redis.URL = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = logging.LogLevel(v)
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		c.Metrics.Addr = v
	}
	if v, ok := lookup(EnvUserAgent); ok {
		c.API.UserAgent = v
	}
}

// Validate checks every section and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.API.URL) == "" {
		errs = append(errs, errors.New("api.url is required"))
	}
	if strings.TrimSpace(c.API.UserAgent) == "" {
		errs = append(errs, errors.New("api.user_agent is required"))
	}
	if c.API.MaxRetries < 1 {
		errs = append(errs, fmt.Errorf("api.max_retries must be >= 1 (got %d)", c.API.MaxRetries))
	}
	if c.Redis.URL != "" {
		if _, err := redis.ParseURL(c.Redis.URL); err != nil {
			errs = append(errs, fmt.Errorf("redis.url: %w", err))
		}
	}
	if _, err := logging.ParseLevel(string(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if err := c.Solutions.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("solutions: %w", err))
	}
	if err := c.Categories.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("categories: %w", err))
	}

	return errors.Join(errs...)
}

// RedisClient opens the configured Redis, or returns nil when disabled.
func (c *Config) RedisClient() (*redis.Client, error) {
	if c.Redis.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

// ClientConfig maps the api section onto a client configuration.
func (c *Config) ClientConfig(redisClient *redis.Client) client.Config {
	cfg := client.DefaultConfig(c.API.URL, c.API.UserAgent)
	cfg.Redis = redisClient
	cfg.Timeout = c.API.Timeout
	cfg.MaxRetries = c.API.MaxRetries
	cfg.InitialBackoff = c.API.InitialBackoff
	cfg.MaxBackoff = c.API.MaxBackoff
	cfg.DefaultRetryAfter = c.API.DefaultRetryAfter
	return cfg
}
