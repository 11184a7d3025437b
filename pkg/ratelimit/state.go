// Package ratelimit paces Notion API requests and honors 429 cooldowns.
//
// Notion allows an average of about three requests per second per
// integration and answers bursts with 429 plus a Retry-After header. The
// Tracker combines a local token bucket with a cooldown that, when Redis is
// configured, is shared by every exporter process using the same integration.
package ratelimit

import (
	"time"
)

// Redis keys for shared rate limit state.
const (
	RedisKeyCooldownUntil = "notion:rate_limit:cooldown_until"
	RedisKeyLastUpdate    = "notion:rate_limit:last_update"
)

const (
	// DefaultRequestsPerSecond is Notion's documented average request rate.
	DefaultRequestsPerSecond = 3.0

	// DefaultBurst allows short bursts above the average rate.
	DefaultBurst = 3

	// DefaultCooldown is used for a 429 without a usable Retry-After header.
	DefaultCooldown = 1 * time.Second

	// MaxCooldown bounds any server-requested wait.
	MaxCooldown = 60 * time.Second
)

// CooldownState represents the current 429 cooldown.
type CooldownState struct {
	// Until is when requests may resume. Zero means no cooldown.
	Until time.Time `json:"until"`

	// LastUpdate is when the state was last changed.
	LastUpdate time.Time `json:"last_update"`
}

// Active reports whether requests must still wait.
func (s *CooldownState) Active() bool {
	return time.Now().Before(s.Until)
}

// Remaining returns the time left in the cooldown, or 0.
func (s *CooldownState) Remaining() time.Duration {
	d := time.Until(s.Until)
	if d < 0 {
		return 0
	}
	return d
}

// Extend moves Until forward to until; it never shortens a cooldown.
func (s *CooldownState) Extend(until time.Time) bool {
	if !until.After(s.Until) {
		return false
	}
	s.Until = until
	s.LastUpdate = time.Now()
	return true
}
