package ratelimit

import (
	"context"
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
	"golang.org/x/time/rate"
)

// Prometheus metrics for rate limit tracking.
var (
	notionCooldownsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notion_rate_limit_cooldowns_total",
		Help: "Total number of 429 responses that started or extended a cooldown",
	})

	notionRateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "notion_rate_limit_wait_seconds",
		Help:    "Time requests spent waiting for pacing or cooldown",
		Buckets: []float64{0.01, 0.05, 0.1, 0.3, 1, 3, 10, 60},
	})
)

// Tracker paces requests and holds the 429 cooldown.
type Tracker struct {
	redis   *redis.Client // optional
	limiter *rate.Limiter
	logger  zerolog.Logger

	mu    sync.Mutex
	local CooldownState
}

// NewTracker creates a tracker. redisClient may be nil, in which case the
// cooldown is process-local. A non-positive rps disables pacing.
func NewTracker(redisClient *redis.Client, rps float64, logger zerolog.Logger) *Tracker {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Tracker{
		redis:   redisClient,
		limiter: rate.NewLimiter(limit, DefaultBurst),
		logger:  logger,
	}
}

// GetState returns the effective cooldown: the later of the local and the
// shared one.
func (t *Tracker) GetState(ctx context.Context) (*CooldownState, error) {
	t.mu.Lock()
	state := t.local
	t.mu.Unlock()

	if t.redis == nil {
		return &state, nil
	}

	untilMs, err := t.redis.Get(ctx, RedisKeyCooldownUntil).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return &state, fmt.Errorf("get cooldown: %w", err)
	}
	if err == nil {
		state.Extend(time.UnixMilli(untilMs))
	}
	return &state, nil
}

// Wait blocks until the cooldown has passed and a pacing token is available.
func (t *Tracker) Wait(ctx context.Context) error {
	start := time.Now()
	defer func() {
		notionRateLimitWaitSeconds.Observe(time.Since(start).Seconds())
	}()

	state, err := t.GetState(ctx)
	if err != nil {
		// Shared state unreadable: fall back to the local view
		t.logger.Warn().Err(err).Msg("Rate limit state unavailable, using local cooldown")
	}
	if remaining := state.Remaining(); remaining > 0 {
		t.logger.Debug().Dur("wait", remaining).Msg("Waiting for Notion rate limit cooldown")
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return t.limiter.Wait(ctx)
}

// Observe inspects a response and starts a cooldown on 429.
func (t *Tracker) Observe(ctx context.Context, status int, headers http.Header) error {
	if status != http.StatusTooManyRequests {
		return nil
	}

	cooldown := ParseRetryAfter(headers.Get("Retry-After"))
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}
	if cooldown > MaxCooldown {
		cooldown = MaxCooldown
	}
	until := time.Now().Add(cooldown)

	t.mu.Lock()
	extended := t.local.Extend(until)
	t.mu.Unlock()
	if !extended {
		return nil
	}

	notionCooldownsTotal.Inc()
	t.logger.Warn().
		Dur("cooldown", cooldown).
		Time("until", until).
		Msg("Notion rate limited - cooling down")

	if t.redis == nil {
		return nil
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyCooldownUntil, until.UnixMilli(), cooldown)
	pipe.Set(ctx, RedisKeyLastUpdate, time.Now().UnixMilli(), cooldown)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store cooldown in redis: %w", err)
	}
	return nil
}

// ParseRetryAfter parses a Retry-After header given in (possibly fractional)
// seconds. It returns 0 for empty or invalid values.
func ParseRetryAfter(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
