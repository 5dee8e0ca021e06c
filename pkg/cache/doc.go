// Package cache provides an optional Redis-backed revalidation cache for
// PokéAPI GET responses.
//
// Freshness comes from the upstream (Expires, then Cache-Control max-age,
// then DefaultTTL). An entry with an ETag or Last-Modified stays in Redis
// RetainFor past that point; one without a validator is dropped once it
// goes stale. A cached entry is never served blindly: the transport sends
// If-None-Match / If-Modified-Since and reuses the stored body when the
// upstream answers 304 Not Modified.
//
// # Basic Usage
//
//	redisClient := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	manager := cache.NewManager(redisClient)
//
//	key := cache.CacheKey{
//		Endpoint:    "pokeapi.co/api/v2/pokemon",
//		QueryParams: url.Values{"limit": []string{"25"}, "offset": []string{"0"}},
//	}
//
//	entry, err := manager.Get(ctx, key)
//	if errors.Is(err, cache.ErrCacheMiss) {
//		// fetch from the upstream, then:
//		_ = manager.Set(ctx, key, cache.NewEntry(status, header, body))
//	}
//
// # Metrics
//
//   - pokeapi_cache_hits_total{layer="redis"}
//   - pokeapi_cache_misses_total
//   - pokeapi_cache_size_bytes{layer="redis"}
//   - pokeapi_cache_not_modified_total
//   - pokeapi_cache_conditional_requests_total
//   - pokeapi_cache_errors_total{operation}
package cache
