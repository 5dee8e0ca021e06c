package cache

import (
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix namespaces every cache key in Redis.
const KeyPrefix = "pokeapi"

// CacheKey identifies a cached response.
type CacheKey struct {
	// Endpoint is host plus path, e.g. "pokeapi.co/api/v2/pokemon/pikachu".
	Endpoint string

	// QueryParams are the request query parameters.
	QueryParams url.Values
}

// String generates a deterministic cache key string.
//
//	pokeapi:pokeapi.co/api/v2/pokemon:limit=25:offset=50
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	endpoint := strings.ToLower(strings.Trim(k.Endpoint, "/"))
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			values := append([]string(nil), k.QueryParams[key]...)
			sort.Strings(values)
			parts = append(parts, key+"="+strings.Join(values, ","))
		}
	}

	return strings.Join(parts, ":")
}

// KeyFor builds the key of a request URL.
func KeyFor(u *url.URL) CacheKey {
	return CacheKey{
		Endpoint:    u.Host + u.Path,
		QueryParams: u.Query(),
	}
}
