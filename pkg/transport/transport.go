// Package transport performs PokéAPI HTTP calls: base URL resolution,
// default headers, JSON request bodies, cooperative cancellation through
// context, post-response hooks, optional revalidation caching and the
// fair-use gate.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/pokedex-client/pkg/cache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public PokéAPI v2 root.
const DefaultBaseURL = "https://pokeapi.co/api/v2/"

// Request describes one call. URL may be absolute or relative to the base URL.
type Request struct {
	URL     string
	Method  string
	Body    any
	Query   url.Values
	Headers http.Header
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	FromCache  bool
}

// Doer performs requests. *Transport is the production implementation.
type Doer interface {
	Do(ctx context.Context, req Request) (*Response, error)
}

// ResponseCache stores GET responses for revalidation. *cache.Manager
// implements it.
type ResponseCache interface {
	Get(ctx context.Context, key cache.CacheKey) (*cache.CacheEntry, error)
	Set(ctx context.Context, key cache.CacheKey, entry *cache.CacheEntry) error
	UpdateTTL(ctx context.Context, key cache.CacheKey, newExpires time.Time) error
}

// Gate decides whether requests may be sent. *ratelimit.Tracker implements it.
type Gate interface {
	ShouldAllowRequest(ctx context.Context) (bool, error)
	UpdateFromResponse(ctx context.Context, statusCode int, headers http.Header) error
}

// Config holds the transport configuration. It is built once at start-up
// and never mutated afterwards.
type Config struct {
	// BaseURL that relative request URLs resolve against.
	BaseURL string

	// UserAgent sent with every request.
	UserAgent string

	// Headers sent with every request; per-request headers win.
	Headers http.Header

	// Timeout bounds each HTTP exchange.
	Timeout time.Duration

	// Hooks run after every received response.
	Hooks []Hook

	// Cache enables conditional GET revalidation when non-nil.
	Cache ResponseCache

	// Gate enables the fair-use gate when non-nil.
	Gate Gate

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// DefaultConfig returns a configuration for the public PokéAPI.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Headers: http.Header{
			"Accept":       []string{"application/json"},
			"Content-Type": []string{"application/json"},
		},
		Timeout: 30 * time.Second,
	}
}

// Transport is the HTTP transport for PokéAPI calls.
type Transport struct {
	httpClient *http.Client
	baseURL    *url.URL
	userAgent  string
	headers    http.Header
	hooks      []Hook
	cache      ResponseCache
	gate       Gate
	logger     zerolog.Logger
}

// New creates a transport.
func New(cfg Config) (*Transport, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := log.With().Str("component", "pokeapi-transport").Logger()

	hooks := append([]Hook(nil), cfg.Hooks...)
	if cfg.Gate != nil {
		hooks = append(hooks, GateHook(cfg.Gate, logger))
	}

	return &Transport{
		httpClient: httpClient,
		baseURL:    base,
		userAgent:  cfg.UserAgent,
		headers:    cfg.Headers.Clone(),
		hooks:      hooks,
		cache:      cfg.Cache,
		gate:       cfg.Gate,
		logger:     logger,
	}, nil
}

// BaseURL returns the resolved base URL.
func (t *Transport) BaseURL() string {
	return t.baseURL.String()
}

// Do performs the request. Non-2xx responses return *APIError carrying the
// status and body; transport failures return *APIError of class network;
// a cancelled ctx returns an error wrapping ctx.Err().
func (t *Transport) Do(ctx context.Context, r Request) (*Response, error) {
	u, err := t.resolve(r.URL, r.Query)
	if err != nil {
		return nil, err
	}
	endpoint := endpointLabel(u, t.baseURL)

	method := strings.ToUpper(r.Method)
	if method == "" {
		method = http.MethodGet
	}

	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	if t.gate != nil {
		allowed, err := t.gate.ShouldAllowRequest(ctx)
		switch {
		case ctx.Err() != nil:
			return nil, fmt.Errorf("%s %s: %w", method, u.Redacted(), ctx.Err())
		case err != nil:
			t.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Fair-use check failed, sending anyway")
		case !allowed:
			requestsTotal.WithLabelValues(endpoint, "blocked").Inc()
			errorsTotal.WithLabelValues(string(ErrorClassRateLimit)).Inc()
			return nil, &APIError{
				Class:   ErrorClassRateLimit,
				Message: "fair-use cool-down active",
				Err:     ErrBlocked,
			}
		}
	}

	body, err := encodeBody(r.Body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for key, values := range t.headers {
		req.Header[key] = append([]string(nil), values...)
	}
	for key, values := range r.Headers {
		req.Header.Del(key)
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	var (
		cacheKey    cache.CacheKey
		cachedEntry *cache.CacheEntry
	)
	if t.cache != nil && method == http.MethodGet {
		cacheKey = cache.KeyFor(u)
		cachedEntry, err = t.cache.Get(ctx, cacheKey)
		if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
			t.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		if cache.ShouldMakeConditionalRequest(cachedEntry) {
			cache.AddConditionalHeaders(req, cachedEntry)
			cache.ConditionalRequestsSent.Inc()
			t.logger.Debug().
				Str("endpoint", endpoint).
				Str("etag", cachedEntry.ETag).
				Msg("Making conditional request")
		}
	}

	t.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Msg("Executing PokéAPI request")

	httpResp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, t.transportFailure(ctx, method, u, endpoint, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, t.transportFailure(ctx, method, u, endpoint, err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       data,
	}
	for _, hook := range t.hooks {
		hook(ctx, req, resp)
	}
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNotModified && cachedEntry != nil {
		cache.NotModifiedResponses.Inc()
		t.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")

		if err := t.cache.UpdateTTL(ctx, cacheKey, cache.ExpiresFrom(httpResp.Header)); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to update cache TTL")
		}
		return &Response{
			StatusCode: cachedEntry.StatusCode,
			Header:     cachedEntry.Headers,
			Body:       cachedEntry.Data,
			FromCache:  true,
		}, nil
	}

	if resp.StatusCode >= 400 {
		class := Classify(resp.StatusCode, nil)
		errorsTotal.WithLabelValues(string(class)).Inc()
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Class:      class,
			Message:    http.StatusText(resp.StatusCode),
			Body:       data,
		}
	}

	if t.cache != nil && method == http.MethodGet && resp.StatusCode == http.StatusOK {
		entry := cache.NewEntry(resp.StatusCode, resp.Header, data)
		if err := t.cache.Set(ctx, cacheKey, entry); err != nil {
			t.logger.Warn().Err(err).Msg("Failed to cache response")
		} else {
			t.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Bool("revalidatable", cache.ShouldMakeConditionalRequest(entry)).
				Msg("Cached response")
		}
	}

	return resp, nil
}

func (t *Transport) transportFailure(ctx context.Context, method string, u *url.URL, endpoint string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		requestsTotal.WithLabelValues(endpoint, "cancelled").Inc()
		return fmt.Errorf("%s %s: %w", method, u.Redacted(), ctxErr)
	}

	errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
	requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
	t.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")

	return &APIError{
		Class:   ErrorClassNetwork,
		Message: method + " " + u.Redacted(),
		Err:     err,
	}
}

// resolve joins a request URL with the base URL the way an API client joins
// paths: "/pokemon/1" and "pokemon/1" both land under the base path.
// Absolute URLs are used as-is. query values replace same-named ones.
func (t *Transport) resolve(raw string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse request url %q: %w", raw, err)
	}

	var u *url.URL
	if ref.IsAbs() {
		u = ref
	} else {
		ref.Path = strings.TrimPrefix(ref.Path, "/")
		u = t.baseURL.ResolveReference(ref)
	}

	if len(query) > 0 {
		q := u.Query()
		for key, values := range query {
			q[key] = append([]string(nil), values...)
		}
		u.RawQuery = q.Encode()
	}

	return u, nil
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return bytes.NewReader(data), nil
	}
}

// endpointLabel keeps metric cardinality low: the first path segment below
// the base path ("pokemon", "pokemon-species", "evolution-chain").
func endpointLabel(u, base *url.URL) string {
	if u.Host != base.Host {
		return u.Host
	}
	rest := strings.TrimPrefix(u.Path, base.Path)
	rest = strings.Trim(rest, "/")
	if rest == "" {
		return "/"
	}
	if i := strings.Index(rest, "/"); i >= 0 {
		return rest[:i]
	}
	return rest
}
