package client

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig holds the configuration for retry logic.
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int `yaml:"max_retries"`

	// BaseDelay is the backoff before the first retry.
	BaseDelay time.Duration `yaml:"base_delay"`

	// MaxDelay caps the exponential backoff (before jitter).
	MaxDelay time.Duration `yaml:"max_delay"`

	// Jitter is the maximum extra delay as a fraction of the backoff.
	Jitter float64 `yaml:"jitter"`

	// Retryable selects the failures worth retrying. Nil means IsRetryable.
	Retryable func(error) bool `yaml:"-"`
}

// DefaultRetryConfig returns the default retry configuration: 5 tries,
// 300ms base delay doubling up to 3s, up to 20% jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 4,
		BaseDelay:  300 * time.Millisecond,
		MaxDelay:   3 * time.Second,
		Jitter:     0.2,
		Retryable:  IsRetryable,
	}
}

// Backoff returns the delay before retry number attempt (0-based), without
// jitter: min(MaxDelay, BaseDelay * 2^attempt).
func (cfg RetryConfig) Backoff(attempt int) time.Duration {
	if cfg.BaseDelay <= 0 {
		return 0
	}
	delay := cfg.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if cfg.MaxDelay > 0 && delay >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return delay
}

// delayFor computes the wait before retry attempt, honoring a server
// Retry-After (capped at MaxDelay) and adding jitter.
func (cfg RetryConfig) delayFor(attempt int, err error) time.Duration {
	delay := cfg.Backoff(attempt)
	if retryAfter := retryAfterOf(err); retryAfter > 0 {
		delay = retryAfter
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	if cfg.Jitter > 0 {
		delay += time.Duration(float64(delay) * cfg.Jitter * rand.Float64())
	}
	return delay
}

// Retry runs fn until it succeeds, fails with a non-retryable error, or the
// retry budget is spent. The error returned is always fn's last error,
// unwrapped, so callers classify failures exactly as without retry.
// Context cancellation during a backoff returns ctx.Err().
func Retry[T any](ctx context.Context, cfg RetryConfig, op string, fn func(context.Context) (T, error)) (T, error) {
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			if attempt > 0 {
				log.Debug().
					Str("op", op).
					Int("attempt", attempt+1).
					Msg("Request succeeded after retry")
			}
			return result, nil
		}

		class := string(ClassOf(err))
		if !retryable(err) {
			return result, err
		}
		if attempt >= cfg.MaxRetries {
			notionRetryExhaustedTotal.WithLabelValues(class).Inc()
			log.Warn().
				Err(err).
				Str("op", op).
				Str("error_class", class).
				Int("attempts", attempt+1).
				Msg("Retry attempts exhausted")
			return result, err
		}

		delay := cfg.delayFor(attempt, err)
		notionRetriesTotal.WithLabelValues(class).Inc()
		notionRetryBackoffSeconds.WithLabelValues(class).Observe(delay.Seconds())

		log.Debug().
			Str("op", op).
			Str("error_class", class).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Msg("Retrying request after backoff")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			var zero T
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// retryingClient decorates a RemoteClient with Retry on every call.
type retryingClient struct {
	next RemoteClient
	cfg  RetryConfig
}

// WithRetry wraps next so every call is retried per cfg. Inputs and outputs
// are unchanged; only latency and failure timing differ.
func WithRetry(next RemoteClient, cfg RetryConfig) RemoteClient {
	return &retryingClient{next: next, cfg: cfg}
}

func (r *retryingClient) QueryDatabase(ctx context.Context, databaseID string, req QueryRequest) (*QueryResponse, error) {
	return Retry(ctx, r.cfg, "query_database", func(ctx context.Context) (*QueryResponse, error) {
		return r.next.QueryDatabase(ctx, databaseID, req)
	})
}

func (r *retryingClient) RetrieveDatabase(ctx context.Context, databaseID string) (*Database, error) {
	return Retry(ctx, r.cfg, "retrieve_database", func(ctx context.Context) (*Database, error) {
		return r.next.RetrieveDatabase(ctx, databaseID)
	})
}

func (r *retryingClient) RetrievePage(ctx context.Context, pageID string) (*Page, error) {
	return Retry(ctx, r.cfg, "retrieve_page", func(ctx context.Context) (*Page, error) {
		return r.next.RetrievePage(ctx, pageID)
	})
}

func (r *retryingClient) ListBlockChildren(ctx context.Context, blockID, cursor string) (*BlockList, error) {
	return Retry(ctx, r.cfg, "list_block_children", func(ctx context.Context) (*BlockList, error) {
		return r.next.ListBlockChildren(ctx, blockID, cursor)
	})
}
