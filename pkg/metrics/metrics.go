// Package metrics exposes the Prometheus metrics of the client.
// Metrics are defined in the packages that record them (transport, cache,
// ratelimit, request, aggregate) and registered via promauto; this package
// serves them and documents them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer every package's metrics land in.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer Handler serves from.
var Gatherer = prometheus.DefaultGatherer

// Handler serves all registered metrics in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Transport Metrics (pkg/transport):
//   - pokeapi_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//     (status is also "blocked", "cancelled" or "network_error")
//   - pokeapi_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - pokeapi_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Cache Metrics (pkg/cache):
//   - pokeapi_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - pokeapi_cache_misses_total (Counter): Cache misses
//   - pokeapi_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - pokeapi_cache_not_modified_total (Counter): 304 Not Modified responses served from cache
//   - pokeapi_cache_conditional_requests_total (Counter): Requests sent with If-None-Match / If-Modified-Since
//   - pokeapi_cache_errors_total{operation} (Counter): Cache operation errors
//
// Fair-Use Metrics (pkg/ratelimit):
//   - pokeapi_fair_use_remaining (Gauge): Last reported X-RateLimit-Remaining
//   - pokeapi_fair_use_blocks_total (Counter): Requests held back during a cool-down
//   - pokeapi_fair_use_throttles_total (Counter): Requests delayed because the budget is low
//   - pokeapi_fair_use_cooldowns_total (Counter): 429 responses that started a cool-down
//
// Executor Metrics (pkg/request):
//   - pokedex_executions_total{result} (Counter): Calls by result (success, error, cancelled)
//   - pokedex_supersessions_total (Counter): In-flight calls cancelled by a newer call
//
// Aggregation Metrics (pkg/aggregate):
//   - pokedex_enrichment_placeholders_total (Counter): List items replaced by placeholders
//   - pokedex_color_fallbacks_total{reason} (Counter): Default colours used (no_image, extract_failed)
//   - pokedex_chain_failures_total{step} (Counter): Fatal detail chain failures by step
//
// Example Prometheus Queries:
//
//   # Placeholder ratio of gallery items
//   rate(pokedex_enrichment_placeholders_total[5m]) /
//   rate(pokeapi_requests_total{endpoint="pokemon"}[5m])
//
//   # Supersession rate (users clicking faster than the API answers)
//   rate(pokedex_supersessions_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(pokeapi_request_duration_seconds_bucket[5m]))
//
//   # Revalidation hit rate
//   rate(pokeapi_cache_not_modified_total[5m]) / rate(pokeapi_cache_conditional_requests_total[5m])
