package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	rateLimitCooldownsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_rate_limit_cooldowns_total",
		Help: "Total number of cooldowns started by throttling answers",
	}, []string{"status"})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_rate_limit_blocks_total",
		Help: "Total number of requests refused during a cooldown",
	})

	rateLimitCooldownSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_rate_limit_cooldown_seconds",
		Help: "Length of the most recent cooldown in seconds",
	})
)

// Tracker records cooldowns and gates requests.
// Without a Redis client the state lives in process memory.
type Tracker struct {
	redis             *redis.Client
	logger            zerolog.Logger
	defaultRetryAfter time.Duration

	mu    sync.Mutex
	local RateLimitState
}

// NewTracker creates a new rate limit tracker. redisClient may be nil.
// A non-positive defaultRetryAfter selects DefaultRetryAfter.
func NewTracker(redisClient *redis.Client, defaultRetryAfter time.Duration, logger zerolog.Logger) *Tracker {
	if defaultRetryAfter <= 0 {
		defaultRetryAfter = DefaultRetryAfter
	}
	return &Tracker{
		redis:             redisClient,
		logger:            logger,
		defaultRetryAfter: defaultRetryAfter,
	}
}

// GetState returns the current cooldown state.
// Returns a zero state when no cooldown was ever recorded.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		state := t.local
		return &state, nil
	}

	data, err := t.redis.Get(ctx, RedisKeyCooldown).Bytes()
	if errors.Is(err, redis.Nil) {
		return &RateLimitState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cooldown: %w", err)
	}

	var state RateLimitState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse cooldown: %w", err)
	}
	return &state, nil
}

// UpdateFromResponse starts a cooldown when the answer is 429, or 503 with a
// Retry-After header. Other answers leave the state untouched.
// An existing longer cooldown is never shortened.
func (t *Tracker) UpdateFromResponse(ctx context.Context, statusCode int, headers http.Header) error {
	retryAfter, hasHeader := ParseRetryAfter(headers.Get("Retry-After"), time.Now())

	switch {
	case statusCode == http.StatusTooManyRequests:
		if !hasHeader {
			retryAfter = t.defaultRetryAfter
		}
	case statusCode == http.StatusServiceUnavailable && hasHeader:
	default:
		return nil
	}

	now := time.Now()
	state := RateLimitState{
		CooldownUntil: now.Add(retryAfter),
		LastUpdate:    now,
		LastStatus:    statusCode,
	}

	current, err := t.GetState(ctx)
	if err != nil {
		return err
	}
	if current.CooldownUntil.After(state.CooldownUntil) {
		return nil
	}

	if err := t.store(ctx, state, retryAfter); err != nil {
		return err
	}

	rateLimitCooldownsTotal.WithLabelValues(strconv.Itoa(statusCode)).Inc()
	rateLimitCooldownSeconds.Set(retryAfter.Seconds())

	t.logger.Warn().
		Int("status", statusCode).
		Dur("retry_after", retryAfter).
		Time("cooldown_until", state.CooldownUntil).
		Msg("Catalog API throttled - cooling down")

	return nil
}

func (t *Tracker) store(ctx context.Context, state RateLimitState, ttl time.Duration) error {
	if t.redis == nil {
		t.mu.Lock()
		t.local = state
		t.mu.Unlock()
		return nil
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal cooldown: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Millisecond
	}
	if err := t.redis.Set(ctx, RedisKeyCooldown, data, ttl).Err(); err != nil {
		return fmt.Errorf("store cooldown in redis: %w", err)
	}
	return nil
}

// ShouldAllowRequest reports whether a request may be sent now.
// It returns false with the remaining wait while a cooldown is active.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, time.Duration, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, 0, fmt.Errorf("get rate limit state: %w", err)
	}

	if state.IsCoolingDown() {
		wait := state.TimeUntilReset()

		t.logger.Debug().
			Dur("wait_duration", wait).
			Msg("Catalog API cooldown active - refusing request")

		rateLimitBlocksTotal.Inc()
		return false, wait, nil
	}

	return true, 0, nil
}

// ParseRetryAfter parses a Retry-After value given either as delay seconds
// or as an HTTP date. ok is false when the value is empty or malformed.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}

	at, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	if d := at.Sub(now); d > 0 {
		return d, true
	}
	return 0, true
}
