// Package client wires a loaded configuration into a ready PokéAPI client:
// transport, optional Redis revalidation cache and fair-use gate, the detail
// chain loader, the gallery enricher and the favourites set.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/Sternrassler/pokedex-client/pkg/aggregate"
	"github.com/Sternrassler/pokedex-client/pkg/cache"
	"github.com/Sternrassler/pokedex-client/pkg/color"
	"github.com/Sternrassler/pokedex-client/pkg/config"
	"github.com/Sternrassler/pokedex-client/pkg/logging"
	"github.com/Sternrassler/pokedex-client/pkg/pagination"
	"github.com/Sternrassler/pokedex-client/pkg/pokeapi"
	"github.com/Sternrassler/pokedex-client/pkg/ratelimit"
	"github.com/Sternrassler/pokedex-client/pkg/transport"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ErrClosed is returned by operations on a closed client.
var ErrClosed = errors.New("client closed")

// Client is the PokéAPI client used by the CLI and the HTTP front end.
type Client struct {
	cfg       config.Config
	transport *transport.Transport
	images    *transport.Transport
	redis     *redis.Client
	ownsRedis bool
	favorites *aggregate.Favorites
	details   *aggregate.DetailLoader
	gallery   *aggregate.Enricher
	logger    zerolog.Logger

	// The loader and the enricher supersede concurrent calls; the facade
	// serves independent callers, so calls queue instead.
	detailMu  sync.Mutex
	galleryMu sync.Mutex
	closeMu   sync.Mutex
	closed    bool
}

// Option customises New.
type Option func(*options)

type options struct {
	redis      *redis.Client
	httpClient *http.Client
}

// WithRedis uses an existing Redis client instead of dialling cfg.Redis.Addr.
// The caller keeps ownership; Close does not close it.
func WithRedis(rdb *redis.Client) Option {
	return func(o *options) { o.redis = rdb }
}

// WithHTTPClient overrides the HTTP client of both transports.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New creates a client from cfg. cfg is copied and validated.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	c := *cfg
	if err := config.Validate(&c); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := logging.NewLogger("pokedex-client")

	tcfg := transport.DefaultConfig(c.UserAgent)
	tcfg.BaseURL = c.BaseURL
	tcfg.Timeout = c.Timeout
	tcfg.HTTPClient = o.httpClient
	tcfg.Hooks = []transport.Hook{transport.StatusLogger(logger)}

	rdb, ownsRedis := o.redis, false
	if rdb == nil && c.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		ownsRedis = true
	}
	if rdb != nil {
		tcfg.Cache = cache.NewManager(rdb)
		tcfg.Gate = ratelimit.NewTracker(rdb, logging.NewLogger("fair-use"))
	}

	api, err := transport.New(tcfg)
	if err != nil {
		if ownsRedis {
			_ = rdb.Close()
		}
		return nil, fmt.Errorf("create transport: %w", err)
	}

	// Sprites live outside the API and are neither cached nor gated.
	icfg := transport.DefaultConfig(c.UserAgent)
	icfg.BaseURL = c.BaseURL
	icfg.Timeout = c.Timeout
	icfg.HTTPClient = o.httpClient
	icfg.Headers = nil
	images, err := transport.New(icfg)
	if err != nil {
		if ownsRedis {
			_ = rdb.Close()
		}
		return nil, fmt.Errorf("create image transport: %w", err)
	}

	favorites := aggregate.NewFavorites()

	client := &Client{
		cfg:       c,
		transport: api,
		images:    images,
		redis:     rdb,
		ownsRedis: ownsRedis,
		favorites: favorites,
		details: aggregate.NewDetailLoader(api,
			aggregate.WithExtractor(color.NewHTTPExtractor(images)),
			aggregate.WithDefaultColors(color.Pair{Background: c.Colors.Background, Text: c.Colors.Text}),
		),
		gallery: aggregate.NewEnricher(api,
			aggregate.WithPageSize(c.PageSize),
			aggregate.WithMaxConcurrency(c.MaxConcurrency),
			aggregate.WithFavorites(favorites),
		),
		logger: logger,
	}

	logger.Info().
		Str("base_url", api.BaseURL()).
		Bool("redis", rdb != nil).
		Int("page_size", c.PageSize).
		Msg("PokéAPI client ready")

	return client, nil
}

// Config returns the configuration the client was built with.
func (c *Client) Config() config.Config {
	return c.cfg
}

// Doer returns the API transport for callers that drive their own executors.
func (c *Client) Doer() transport.Doer {
	return c.transport
}

// Detail loads the detail view of subject (a name or an id). A blank subject
// returns (nil, nil). A call superseded by a newer one returns a Detail with
// Cancelled set.
func (c *Client) Detail(ctx context.Context, subject string) (*aggregate.Detail, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	c.detailMu.Lock()
	defer c.detailMu.Unlock()
	return c.details.Load(ctx, strings.ToLower(strings.TrimSpace(subject)))
}

// Page loads gallery page n (1-based).
func (c *Client) Page(ctx context.Context, n int) (*aggregate.Page, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	c.galleryMu.Lock()
	defer c.galleryMu.Unlock()
	return c.gallery.Page(ctx, n)
}

// ToggleFavorite flips id in the favourites set and reports whether it is
// now a favourite.
func (c *Client) ToggleFavorite(id int) bool {
	return c.favorites.Toggle(id)
}

// Favorites returns the favourite ids in ascending order.
func (c *Client) Favorites() []int {
	return c.favorites.IDs()
}

// AllNames walks every window of the pokemon list endpoint in parallel and
// returns the entries in list order. Partial results are returned together
// with the error of the first failed window.
func (c *Client) AllNames(ctx context.Context) ([]pokeapi.NamedResource, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}

	fetcher := pagination.NewBatchFetcher(pagination.NewTransportFetcher(c.transport), pagination.Config{
		MaxConcurrency: c.cfg.MaxConcurrency,
		Timeout:        c.cfg.Timeout,
	})
	pages, fetchErr := fetcher.FetchAllPages(ctx, pokeapi.PokemonListPath)

	numbers := make([]int, 0, len(pages))
	for n := range pages {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	var names []pokeapi.NamedResource
	for _, n := range numbers {
		var list pokeapi.PokemonList
		if err := json.Unmarshal(pages[n], &list); err != nil {
			return names, fmt.Errorf("decode page %d: %w", n, err)
		}
		names = append(names, list.Results...)
	}
	return names, fetchErr
}

// Ping checks the Redis connection when one is configured.
func (c *Client) Ping(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close cancels in-flight work and releases resources. It is idempotent.
func (c *Client) Close() error {
	c.closeMu.Lock()
	if c.closed {
		c.closeMu.Unlock()
		return nil
	}
	c.closed = true
	c.closeMu.Unlock()

	c.details.Close()
	c.gallery.Close()

	if c.ownsRedis && c.redis != nil {
		if err := c.redis.Close(); err != nil {
			return fmt.Errorf("close redis: %w", err)
		}
	}
	c.logger.Debug().Msg("PokéAPI client closed")
	return nil
}

func (c *Client) isClosed() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return c.closed
}
