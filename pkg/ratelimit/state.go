// Package ratelimit implements the PokéAPI fair-use gate. PokéAPI answers
// abusive clients with 429 Too Many Requests; the gate records the cool-down
// (Retry-After) and any X-RateLimit-Remaining budget in Redis so every client
// instance sharing that Redis backs off together.
package ratelimit

import (
	"time"
)

// Redis keys for fair-use state storage.
const (
	RedisKeyRemaining    = "pokeapi:fair_use:remaining"
	RedisKeyBlockedUntil = "pokeapi:fair_use:blocked_until"
	RedisKeyLastUpdate   = "pokeapi:fair_use:last_update"
)

// DefaultCooldown applies to a 429 without a usable Retry-After header.
const DefaultCooldown = 60 * time.Second

// RemainingThresholdWarning throttles requests when the advertised budget
// drops below this value.
const RemainingThresholdWarning = 10

// RemainingUnknown marks a state without an advertised budget.
const RemainingUnknown = -1

// FairUseState is the shared fair-use state.
type FairUseState struct {
	// Remaining is the advertised request budget, or RemainingUnknown.
	Remaining int `json:"remaining"`

	// BlockedUntil is the end of the current cool-down. Zero means none.
	BlockedUntil time.Time `json:"blocked_until"`

	// LastUpdate is when this state was last written.
	LastUpdate time.Time `json:"last_update"`
}

// IsStale returns true if the state is older than maxAge.
func (s *FairUseState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsBlock returns true while a cool-down is active.
func (s *FairUseState) NeedsBlock() bool {
	return time.Now().Before(s.BlockedUntil)
}

// NeedsThrottling returns true when the advertised budget is low but no
// cool-down is active.
func (s *FairUseState) NeedsThrottling() bool {
	return s.Remaining != RemainingUnknown &&
		s.Remaining < RemainingThresholdWarning &&
		!s.NeedsBlock()
}

// TimeUntilReset returns the remaining cool-down, or 0.
func (s *FairUseState) TimeUntilReset() time.Duration {
	d := time.Until(s.BlockedUntil)
	if d < 0 {
		return 0
	}
	return d
}
