// Package ratelimit keeps Manifold API traffic inside the per-IP request
// budget (500 requests per minute). Requests are counted in fixed one-minute
// windows stored in Redis, so every client instance behind the same IP
// shares one budget.
package ratelimit

import (
	"time"
)

// Redis key prefix for request window counters.
const RedisKeyWindowPrefix = "manifold:rate_limit:window:"

// DefaultRequestsPerMinute is the documented Manifold budget per IP.
const DefaultRequestsPerMinute = 500

// Thresholds on remaining requests in the current window.
const (
	// RemainingThresholdCritical blocks requests when fewer remain.
	RemainingThresholdCritical = 10

	// RemainingThresholdWarning throttles requests when fewer remain.
	RemainingThresholdWarning = 50

	// RemainingThresholdHealthy marks the budget as healthy at or above this value.
	RemainingThresholdHealthy = 100
)

// RateLimitState is the request budget of the current window.
type RateLimitState struct {
	// Limit is the number of requests allowed per window.
	Limit int `json:"limit"`

	// Used is the number of requests recorded in the current window.
	Used int `json:"used"`

	// ResetAt is when the current window ends.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when this state was read from Redis.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when Remaining() >= RemainingThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// Remaining returns the requests left in the window, never negative.
func (s *RateLimitState) Remaining() int {
	if s.Used >= s.Limit {
		return 0
	}
	return s.Limit - s.Used
}

// IsStale returns true if the state is older than maxAge.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *RateLimitState) NeedsCriticalBlock() bool {
	return s.Remaining() < RemainingThresholdCritical
}

// NeedsThrottling returns true if requests should be slowed down.
func (s *RateLimitState) NeedsThrottling() bool {
	return s.Remaining() < RemainingThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the window ends, or 0.
func (s *RateLimitState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates IsHealthy from the remaining budget.
func (s *RateLimitState) UpdateHealth() {
	s.IsHealthy = s.Remaining() >= RemainingThresholdHealthy
}
