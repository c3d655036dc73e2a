package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for request budget tracking.
var (
	requestsRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "manifold_requests_remaining",
		Help: "Number of requests remaining in the current Manifold rate limit window",
	})

	rateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "manifold_rate_limit_blocks_total",
		Help: "Total number of requests blocked because the request budget is nearly exhausted",
	})

	rateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "manifold_rate_limit_throttles_total",
		Help: "Total number of requests throttled because the request budget is low",
	})
)

// Window is the length of one budget window.
const Window = time.Minute

// Tracker counts requests against the shared budget and gates new ones.
type Tracker struct {
	redis         *redis.Client
	limit         int
	throttleDelay time.Duration
	logger        zerolog.Logger
}

// NewTracker creates a new rate limit tracker. A non-positive limit uses
// DefaultRequestsPerMinute.
func NewTracker(redisClient *redis.Client, limit int, logger zerolog.Logger) *Tracker {
	if limit <= 0 {
		limit = DefaultRequestsPerMinute
	}
	return &Tracker{
		redis:         redisClient,
		limit:         limit,
		throttleDelay: 1 * time.Second,
		logger:        logger,
	}
}

// Limit returns the configured requests per window.
func (t *Tracker) Limit() int {
	return t.limit
}

// windowKey returns the Redis key and end time of the window containing now.
func windowKey(now time.Time) (string, time.Time) {
	start := now.Truncate(Window)
	return RedisKeyWindowPrefix + strconv.FormatInt(start.Unix(), 10), start.Add(Window)
}

// GetState retrieves the budget of the current window from Redis.
// An absent counter means no requests were made in this window.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	now := time.Now()
	key, resetAt := windowKey(now)

	used, err := t.redis.Get(ctx, key).Int()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get request count: %w", err)
	}

	state := &RateLimitState{
		Limit:      t.limit,
		Used:       used,
		ResetAt:    resetAt,
		LastUpdate: now,
	}
	state.UpdateHealth()

	return state, nil
}

// Record counts one request in the current window and returns the new state.
func (t *Tracker) Record(ctx context.Context) (*RateLimitState, error) {
	now := time.Now()
	key, resetAt := windowKey(now)

	// Counter and expiry are set atomically
	pipe := t.redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, 2*Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("record request in redis: %w", err)
	}

	state := &RateLimitState{
		Limit:      t.limit,
		Used:       int(incr.Val()),
		ResetAt:    resetAt,
		LastUpdate: now,
	}
	state.UpdateHealth()

	requestsRemaining.Set(float64(state.Remaining()))

	return state, nil
}

// ShouldAllowRequest checks the budget and records the request if allowed.
// Returns false if the budget is critically low. Sleeps (respecting ctx)
// before allowing a request when the budget is in the warning band.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get rate limit state: %w", err)
	}

	// Critical: Block request
	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("requests_remaining", state.Remaining()).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Manifold request budget critical - blocking request")

		rateLimitBlocksTotal.Inc()
		return false, nil
	}

	// Warning: Apply throttling
	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("requests_remaining", state.Remaining()).
			Msg("Manifold request budget low - throttling request")

		rateLimitThrottlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	recorded, err := t.Record(ctx)
	if err != nil {
		return false, err
	}

	t.logger.Debug().
		Int("requests_used", recorded.Used).
		Int("requests_remaining", recorded.Remaining()).
		Msg("Request budget updated")

	return true, nil
}
