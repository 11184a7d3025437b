package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrMiss is returned by Get when no live entry exists for a key.
	ErrMiss = errors.New("cache miss")

	// ErrCorrupt is returned by Get when the stored value cannot be decoded.
	// The value is deleted.
	ErrCorrupt = errors.New("corrupt cache entry")
)

var (
	lookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notion_cache_lookups_total",
		Help: "Response cache lookups by result (hit, miss, error)",
	}, []string{"result"})

	writtenBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notion_cache_written_bytes_total",
		Help: "Bytes of Notion response bodies written to the cache",
	})

	purgedKeysTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notion_cache_purged_keys_total",
		Help: "Cache keys removed by Purge",
	})
)

// Entry is one cached response body.
type Entry struct {
	Body     json.RawMessage `json:"body"`
	StoredAt time.Time       `json:"stored_at"`
}

// Age returns how long ago the entry was stored.
func (e *Entry) Age() time.Duration {
	return time.Since(e.StoredAt)
}

// Store is a Redis-backed response cache. Expiry is left to Redis TTLs.
type Store struct {
	redis *redis.Client
}

// NewStore creates a store on rdb, which must not be nil.
func NewStore(rdb *redis.Client) *Store {
	if rdb == nil {
		panic("cache: redis client cannot be nil")
	}
	return &Store{redis: rdb}
}

// Get returns the entry stored under key, or ErrMiss.
func (s *Store) Get(ctx context.Context, key Key) (*Entry, error) {
	data, err := s.redis.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		lookupsTotal.WithLabelValues("miss").Inc()
		return nil, ErrMiss
	}
	if err != nil {
		lookupsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil || len(entry.Body) == 0 {
		lookupsTotal.WithLabelValues("error").Inc()
		_ = s.redis.Del(ctx, key.String()).Err()
		if err == nil {
			err = errors.New("empty body")
		}
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	lookupsTotal.WithLabelValues("hit").Inc()
	return &entry, nil
}

// Put stores body under key for ttl. A non-positive ttl stores nothing.
// body must be valid JSON.
func (s *Store) Put(ctx context.Context, key Key, body []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if !json.Valid(body) {
		return fmt.Errorf("cache put %s: body is not valid JSON", key)
	}

	data, err := json.Marshal(Entry{Body: body, StoredAt: time.Now()})
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := s.redis.Set(ctx, key.String(), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}

	writtenBytesTotal.Add(float64(len(body)))
	return nil
}

// Purge deletes every entry of scope and returns the number of keys
// removed.
func (s *Store) Purge(ctx context.Context, scope string) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	pattern := scopePrefix(scope) + "*"
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return removed, fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := s.redis.Del(ctx, keys...).Result()
			if err != nil {
				return removed, fmt.Errorf("redis del: %w", err)
			}
			removed += int(n)
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	purgedKeysTotal.Add(float64(removed))
	return removed, nil
}
