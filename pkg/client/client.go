// Package client provides the catalog API HTTP client with rate limit
// cooldowns, session-scoped caching, retries and error classification.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/compass-catalog-client/pkg/cache"
	"github.com/Sternrassler/compass-catalog-client/pkg/query"
	"github.com/Sternrassler/compass-catalog-client/pkg/ratelimit"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for catalog client operations.
var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total catalog API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	catalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Catalog API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	catalogErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_errors_total",
		Help: "Total catalog API errors by class",
	}, []string{"class"})
)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 4 << 10

// Client is the catalog API client.
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	rateLimiter *ratelimit.Tracker
	cache       *cache.Manager
	retry       RetryConfig
	config      Config
	logger      zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:8000".
	BaseURL string

	// UserAgent identifies the caller.
	UserAgent string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// Redis enables the response cache and shares the rate limit cooldown.
	// Optional: without it nothing is cached and the cooldown is process local.
	Redis *redis.Client

	// SessionID namespaces cache entries. Generated when empty.
	SessionID string

	// Retry
	MaxRetries     int // attempts including the first
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// DefaultRetryAfter is the cooldown after a 429 without Retry-After.
	DefaultRetryAfter time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	retry := DefaultRetryConfig()
	return Config{
		BaseURL:           baseURL,
		UserAgent:         userAgent,
		Timeout:           10 * time.Second,
		MaxRetries:        retry.MaxAttempts,
		InitialBackoff:    retry.InitialBackoff,
		MaxBackoff:        retry.MaxBackoff,
		DefaultRetryAfter: ratelimit.DefaultRetryAfter,
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxRetries < 1 {
		return nil, fmt.Errorf("max_retries must be >= 1 (got %d)", cfg.MaxRetries)
	}

	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must be >= 0 (got %s)", cfg.Timeout)
	}

	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}

	logger := log.With().
		Str("component", "catalog-client").
		Str("session", cfg.SessionID).
		Logger()

	c := &Client{
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		baseURL:     base,
		rateLimiter: ratelimit.NewTracker(cfg.Redis, cfg.DefaultRetryAfter, logger),
		retry: RetryConfig{
			MaxAttempts:       cfg.MaxRetries,
			InitialBackoff:    cfg.InitialBackoff,
			MaxBackoff:        cfg.MaxBackoff,
			BackoffMultiplier: 2.0,
		},
		config: cfg,
		logger: logger,
	}
	if cfg.Redis != nil {
		c.cache = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// Do performs an HTTP request with rate limiting, caching, and error handling.
// Any status other than 200 and 304 is returned as an *APIError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		catalogRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check Rate Limit
	if err := c.checkCooldown(ctx, endpoint); err != nil {
		return nil, err
	}

	// Step 2: Check Cache
	cacheKey := cache.CacheKey{
		Session:     c.config.SessionID,
		Endpoint:    endpoint,
		QueryParams: req.URL.Query(),
	}

	var cachedEntry *cache.CacheEntry
	if c.cache != nil {
		var err error
		cachedEntry, err = c.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
	}

	// Step 3: Make Conditional Request if cache hit
	if cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 4: Set headers
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 5: Execute HTTP Request with Retry Logic
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("query", req.URL.RawQuery).
		Msg("Executing catalog request")

	var resp *http.Response
	attempt := 0
	retryErr := retryWithBackoff(ctx, c.retry, func() (ErrorClass, error) {
		// A 503 with Retry-After starts a cooldown that later attempts must honour.
		attempt++
		if attempt > 1 {
			if err := c.checkCooldown(ctx, endpoint); err != nil {
				return ErrorClassRateLimit, err
			}
		}

		var reqErr error
		resp, reqErr = c.httpClient.Do(req)
		if reqErr != nil {
			if ctx.Err() != nil {
				return "", fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
			}
			c.logger.Warn().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			catalogErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			catalogRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return ErrorClassNetwork, &APIError{
				ErrorClass: ErrorClassNetwork,
				Message:    "request failed",
				Err:        reqErr,
			}
		}

		if err := c.rateLimiter.UpdateFromResponse(ctx, resp.StatusCode, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update rate limit from response")
		}

		if resp.StatusCode < 400 {
			return "", nil
		}

		errClass := classifyStatus(resp.StatusCode)
		catalogErrorsTotal.WithLabelValues(string(errClass)).Inc()
		catalogRequestsTotal.WithLabelValues(endpoint, fmt.Sprint(resp.StatusCode)).Inc()

		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Catalog request error")

		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    errorMessage(resp),
		}
		if errClass == ErrorClassRateLimit {
			apiErr.Err = ErrRateLimited
		}
		resp.Body.Close()
		resp = nil
		return errClass, apiErr
	})

	if retryErr != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, retryErr
	}

	// Step 6: Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified {
		resp.Body.Close()
		catalogRequestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		if cachedEntry == nil {
			catalogErrorsTotal.WithLabelValues(string(ErrorClassMalformed)).Inc()
			return nil, &APIError{
				StatusCode: http.StatusNotModified,
				ErrorClass: ErrorClassMalformed,
				Message:    "not modified without a cached entry",
				Err:        ErrMalformedResponse,
			}
		}

		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		if err := c.cache.UpdateTTL(ctx, cacheKey, cache.ExpiresFrom(resp.Header)); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}
		return cache.EntryToResponse(cachedEntry, req), nil
	}

	catalogRequestsTotal.WithLabelValues(endpoint, fmt.Sprint(resp.StatusCode)).Inc()

	// Step 7: Update Cache on success
	if c.cache != nil && resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if entry.TTL() > 0 {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// checkCooldown fails with ErrRateLimited while the tracker reports a cooldown.
func (c *Client) checkCooldown(ctx context.Context, endpoint string) error {
	allowed, wait, err := c.rateLimiter.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Rate limit check failed")
		return fmt.Errorf("rate limit check: %w", err)
	}
	if allowed {
		return nil
	}

	c.logger.Warn().
		Str("endpoint", endpoint).
		Dur("wait", wait).
		Msg("Request blocked by rate limit cooldown")
	catalogRequestsTotal.WithLabelValues(endpoint, "rate_limited").Inc()
	catalogErrorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
	return &APIError{
		StatusCode: http.StatusTooManyRequests,
		ErrorClass: ErrorClassRateLimit,
		Message:    fmt.Sprintf("cooling down for %s", wait.Round(time.Millisecond)),
		Err:        ErrRateLimited,
	}
}

// errorMessage extracts a readable message from an error response.
// JSON bodies with a "detail" or "message" field yield that field.
func errorMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if s, ok := payload.Detail.(string); ok && s != "" {
			return s
		}
		if payload.Message != "" {
			return payload.Message
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		return text
	}
	return resp.Status
}

// URL resolves endpoint and params against the base URL.
func (c *Client) URL(endpoint string, params url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(endpoint, "/")
	u.RawQuery = params.Encode()
	return u.String()
}

// Get performs a GET request to a catalog endpoint.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(endpoint, params), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Envelope is the catalog API list response.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Total   *int            `json:"total"`
	Skip    int             `json:"skip"`
	Limit   int             `json:"limit"`
	Message string          `json:"message,omitempty"`
}

// FetchPage requests one page of a collection and validates its envelope.
func (c *Client) FetchPage(ctx context.Context, endpoint string, req query.Request) (*Envelope, error) {
	resp, err := c.Get(ctx, endpoint, req.Values())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, c.malformed(endpoint, "decode envelope", err)
	}

	if !env.Success {
		catalogErrorsTotal.WithLabelValues(string(ErrorClassServer)).Inc()
		msg := env.Message
		if msg == "" {
			msg = "request was not successful"
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassServer,
			Message:    msg,
		}
	}

	switch {
	case env.Total == nil:
		return nil, c.malformed(endpoint, "missing total", nil)
	case *env.Total < 0:
		return nil, c.malformed(endpoint, fmt.Sprintf("negative total %d", *env.Total), nil)
	case len(env.Data) == 0 || string(env.Data) == "null":
		env.Data = json.RawMessage("[]")
	}

	return &env, nil
}

func (c *Client) malformed(endpoint, msg string, err error) error {
	catalogErrorsTotal.WithLabelValues(string(ErrorClassMalformed)).Inc()
	c.logger.Warn().
		Err(err).
		Str("endpoint", endpoint).
		Str("reason", msg).
		Msg("Malformed catalog response")

	wrapped := ErrMalformedResponse
	if err != nil {
		wrapped = fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return &APIError{
		StatusCode: http.StatusOK,
		ErrorClass: ErrorClassMalformed,
		Message:    msg,
		Err:        wrapped,
	}
}

// Close removes the session's cache entries.
func (c *Client) Close() error {
	if c.cache == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	removed, err := c.cache.PurgeSession(ctx, c.config.SessionID)
	if err != nil {
		return fmt.Errorf("purge session cache: %w", err)
	}
	c.logger.Debug().Int("entries", removed).Msg("Session cache purged")
	return nil
}

// SessionID returns the cache namespace of this client.
func (c *Client) SessionID() string {
	return c.config.SessionID
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// GetCache returns the cache manager, nil without Redis.
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}

// RateLimiter returns the cooldown tracker.
func (c *Client) RateLimiter() *ratelimit.Tracker {
	return c.rateLimiter
}
