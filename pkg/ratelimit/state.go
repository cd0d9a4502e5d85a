// Package ratelimit tracks catalog API rate limit cooldowns and gates requests.
// A 429 Too Many Requests or 503 Service Unavailable answer starts a cooldown
// taken from its Retry-After header; requests issued before the cooldown ends
// are refused without reaching the API.
package ratelimit

import (
	"time"
)

// RedisKeyCooldown stores the shared cooldown state.
// The key expires together with the cooldown.
const RedisKeyCooldown = "catalog:rate_limit:cooldown"

// DefaultRetryAfter is the cooldown applied when a throttling answer carries
// no usable Retry-After header.
const DefaultRetryAfter = 5 * time.Second

// RateLimitState is the current cooldown.
// With Redis configured it is shared across all client instances.
type RateLimitState struct {
	// CooldownUntil is when requests may resume. Zero means no cooldown.
	CooldownUntil time.Time `json:"cooldown_until"`

	// LastUpdate is when the state was last written.
	LastUpdate time.Time `json:"last_update"`

	// LastStatus is the HTTP status that started the cooldown.
	LastStatus int `json:"last_status,omitempty"`
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// IsCoolingDown reports whether requests are currently refused.
func (s *RateLimitState) IsCoolingDown() bool {
	return time.Now().Before(s.CooldownUntil)
}

// TimeUntilReset returns the duration until the cooldown ends.
// Returns 0 if the cooldown has already passed.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.CooldownUntil)
	if duration < 0 {
		return 0
	}
	return duration
}
