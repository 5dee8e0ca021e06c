package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

var (
	fairUseRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pokeapi_fair_use_remaining",
		Help: "Last advertised PokéAPI request budget (-1 when unknown)",
	})

	fairUseBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokeapi_fair_use_blocks_total",
		Help: "Total number of requests blocked during a fair-use cool-down",
	})

	fairUseThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokeapi_fair_use_throttles_total",
		Help: "Total number of requests delayed because the budget was low",
	})

	fairUseCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pokeapi_fair_use_cooldowns_total",
		Help: "Total number of 429 responses that started a cool-down",
	})
)

// ThrottleDelay is how long a throttled request waits before proceeding.
const ThrottleDelay = 1 * time.Second

// Tracker gates requests on the shared fair-use state.
type Tracker struct {
	redis         *redis.Client
	logger        zerolog.Logger
	throttleDelay time.Duration
}

// NewTracker creates a new fair-use tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:         redisClient,
		logger:        logger,
		throttleDelay: ThrottleDelay,
	}
}

// GetState reads the fair-use state from Redis. Missing keys yield a state
// with an unknown budget and no cool-down.
func (t *Tracker) GetState(ctx context.Context) (*FairUseState, error) {
	state := &FairUseState{Remaining: RemainingUnknown}

	remaining, err := t.redis.Get(ctx, RedisKeyRemaining).Int()
	switch {
	case err == nil:
		state.Remaining = remaining
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	blockedUntil, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	switch {
	case err == nil:
		state.BlockedUntil = time.Unix(blockedUntil, 0)
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get blocked until: %w", err)
	}

	lastUpdate, err := t.redis.Get(ctx, RedisKeyLastUpdate).Int64()
	switch {
	case err == nil:
		state.LastUpdate = time.Unix(lastUpdate, 0)
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("get last update: %w", err)
	}

	return state, nil
}

// ParseResponse derives fair-use state from a response. ok is false when the
// response carries nothing the gate cares about.
func ParseResponse(statusCode int, headers http.Header, now time.Time) (state *FairUseState, ok bool, err error) {
	state = &FairUseState{Remaining: RemainingUnknown, LastUpdate: now}

	if v := headers.Get("X-RateLimit-Remaining"); v != "" {
		remaining, err := strconv.Atoi(v)
		if err != nil {
			return nil, false, fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
		}
		state.Remaining = remaining
		ok = true
	}

	if statusCode == http.StatusTooManyRequests {
		state.BlockedUntil = now.Add(retryAfter(headers.Get("Retry-After"), now))
		ok = true
	}

	return state, ok, nil
}

// retryAfter accepts delta-seconds or an HTTP date.
func retryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return DefaultCooldown
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return DefaultCooldown
}

// UpdateFromResponse records the fair-use information of a response.
func (t *Tracker) UpdateFromResponse(ctx context.Context, statusCode int, headers http.Header) error {
	state, ok, err := ParseResponse(statusCode, headers, time.Now())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	pipe := t.redis.Pipeline()
	if state.Remaining != RemainingUnknown {
		pipe.Set(ctx, RedisKeyRemaining, state.Remaining, 0)
	}
	if !state.BlockedUntil.IsZero() {
		pipe.Set(ctx, RedisKeyBlockedUntil, state.BlockedUntil.Unix(), time.Until(state.BlockedUntil)+time.Second)
	}
	pipe.Set(ctx, RedisKeyLastUpdate, state.LastUpdate.Unix(), 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store fair-use state in redis: %w", err)
	}

	fairUseRemaining.Set(float64(state.Remaining))

	switch {
	case state.NeedsBlock():
		fairUseCooldownsTotal.Inc()
		t.logger.Error().
			Time("blocked_until", state.BlockedUntil).
			Msg("PokéAPI fair-use limit hit - pausing requests")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("PokéAPI budget low - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Msg("Fair-use state updated")
	}

	return nil
}

// ShouldAllowRequest returns false during a cool-down. A low budget delays
// the request by the throttle delay, or until ctx is done.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get fair-use state: %w", err)
	}

	if state.NeedsBlock() {
		t.logger.Warn().
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Fair-use cool-down active - blocking request")
		fairUseBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("Fair-use budget low - throttling request")
		fairUseThrottlesTotal.Inc()

		timer := time.NewTimer(t.throttleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}

// Reset clears the shared state.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.redis.Del(ctx, RedisKeyRemaining, RedisKeyBlockedUntil, RedisKeyLastUpdate).Err(); err != nil {
		return fmt.Errorf("reset fair-use state: %w", err)
	}
	return nil
}
