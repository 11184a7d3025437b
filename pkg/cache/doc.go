// Package cache stores Notion GET response bodies in Redis.
//
// Notion responses carry no Expires or ETag headers, so every body lives
// for the TTL the caller passes to Put (client.Config.CacheTTL). Database
// queries are POST requests and never reach the cache.
//
// Keys are namespaced by a scope derived from the integration token, so two
// integrations sharing one Redis never see each other's responses, and
// Purge can drop everything one integration cached:
//
//	notion:<scope>:<path>[?<sorted query>]
//
// # Usage
//
//	store := cache.NewStore(redisClient)
//	key := cache.Key{Scope: cache.ScopeForToken(token), Path: "/v1/pages/" + id}
//
//	entry, err := store.Get(ctx, key)
//	if errors.Is(err, cache.ErrMiss) {
//		// fetch from Notion, then:
//		_ = store.Put(ctx, key, body, 10*time.Minute)
//	}
//
// # Metrics
//
//   - notion_cache_lookups_total{result} - hit, miss or error
//   - notion_cache_written_bytes_total - bytes stored
//   - notion_cache_purged_keys_total - keys removed by Purge
package cache
