package aggregate

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/Sternrassler/pokedex-client/pkg/pagination"
	"github.com/Sternrassler/pokedex-client/pkg/pokeapi"
	"github.com/Sternrassler/pokedex-client/pkg/request"
	"github.com/Sternrassler/pokedex-client/pkg/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MovesPerCard is the number of move names shown on a card.
const MovesPerCard = 3

// Item is one enriched list entry. Placeholder items stand in for entries
// whose detail fetch failed.
type Item[T any] struct {
	Identity    string `json:"identity"`
	Payload     T      `json:"payload"`
	Placeholder bool   `json:"placeholder,omitempty"`
}

// Card is the gallery representation of a Pokémon.
type Card struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	ImageURL    string         `json:"image_url"`
	Moves       []string       `json:"moves"`
	Stats       map[string]int `json:"stats"`
	Types       []string       `json:"types"`
	Abilities   []string       `json:"abilities"`
	IsFavorite  bool           `json:"is_favorite"`
}

// Page is one enriched gallery page.
type Page struct {
	Number    int          `json:"page"`
	Offset    int          `json:"offset"`
	Total     int          `json:"total"`
	HasNext   bool         `json:"has_next"`
	Items     []Item[Card] `json:"items"`
	Cancelled bool         `json:"cancelled,omitempty"`
}

// Describe formats the card description from base stats. Missing stats
// read as 0.
func Describe(stats map[string]int) string {
	return fmt.Sprintf("This Pokémon has %d HP, %d attack and %d defense.",
		stats["hp"], stats["attack"], stats["defense"])
}

// NewCard builds a card from a full Pokémon record.
func NewCard(p *pokeapi.Pokemon, listedName string) Card {
	stats := p.StatMap()
	name := listedName
	if name == "" {
		name = p.Name
	}
	return Card{
		ID:          p.ID,
		Name:        name,
		Description: Describe(stats),
		ImageURL:    pokeapi.ArtworkURL(strconv.Itoa(p.ID)),
		Moves:       p.MoveNames(MovesPerCard),
		Stats:       stats,
		Types:       p.TypeNames(),
		Abilities:   p.AbilityNames(),
	}
}

// PlaceholderCard stands in for an entry at position identity whose detail
// fetch failed.
func PlaceholderCard(identity int, name string) Card {
	return Card{
		ID:          identity,
		Name:        name,
		Description: "Description of " + name,
		ImageURL:    pokeapi.ArtworkURL(strconv.Itoa(identity)),
		Moves:       []string{},
		Stats:       map[string]int{},
		Types:       []string{},
		Abilities:   []string{},
	}
}

// Gather runs fn for every input concurrently, at most limit at a time
// (limit <= 0 means unbounded), and returns the results in input order.
// An error from fn is replaced by fallback's item; it never aborts the
// other calls.
func Gather[In, Out any](
	ctx context.Context,
	inputs []In,
	limit int,
	fn func(ctx context.Context, index int, in In) (Item[Out], error),
	fallback func(index int, in In, err error) Item[Out],
) []Item[Out] {
	out := make([]Item[Out], len(inputs))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, in := range inputs {
		g.Go(func() error {
			item, err := fn(ctx, i, in)
			if err != nil {
				item = fallback(i, in, err)
			}
			out[i] = item
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Enricher builds gallery pages: one list call, then one detail call per
// listed entry. Starting a page cancels the page still in progress.
type Enricher struct {
	doer           transport.Doer
	list           *request.Executor[pokeapi.PokemonList]
	pages          pagination.Pager
	maxConcurrency int
	favorites      *Favorites
	logger         zerolog.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
}

// EnricherOption configures an Enricher.
type EnricherOption func(*Enricher)

// WithPageSize overrides pagination.DefaultPageSize.
func WithPageSize(size int) EnricherOption {
	return func(e *Enricher) {
		if size > 0 {
			e.pages = pagination.NewPager(size)
		}
	}
}

// WithMaxConcurrency bounds concurrent detail calls; 0 means unbounded.
func WithMaxConcurrency(n int) EnricherOption {
	return func(e *Enricher) { e.maxConcurrency = n }
}

// WithFavorites marks cards found in f.
func WithFavorites(f *Favorites) EnricherOption {
	return func(e *Enricher) { e.favorites = f }
}

// NewEnricher creates an enricher that fetches through doer.
func NewEnricher(doer transport.Doer, opts ...EnricherOption) *Enricher {
	logger := log.With().Str("component", "enricher").Logger()
	e := &Enricher{
		doer:   doer,
		list:   request.New[pokeapi.PokemonList](doer, request.Binding{Manual: true}, request.WithLogger(logger), request.WithName("list")),
		pages:  pagination.NewPager(pagination.DefaultPageSize),
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PageSize returns the number of entries per page.
func (e *Enricher) PageSize() int {
	return e.pages.Size
}

// Page loads and enriches page number (1-based; values below 1 read as 1).
// Only a failed list call is an error; a superseded or cancelled page is
// returned with Cancelled set.
func (e *Enricher) Page(ctx context.Context, number int) (*Page, error) {
	window := e.pages.Window(number)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.generation++
	gen := e.generation
	e.cancel = cancel
	e.mu.Unlock()

	cancelled := &Page{Number: window.Page, Offset: window.Offset, Cancelled: true}

	listed := e.list.Execute(ctx, request.Binding{Target: pokeapi.ListPath(window.Limit, window.Offset)})
	if listed.Cancelled {
		return cancelled, nil
	}
	if listed.Payload == nil {
		err := chainError(StepList, strconv.Itoa(window.Page), listed)
		e.logger.Error().
			Int("page", window.Page).
			Int("status", err.StatusCode).
			Msg(err.Message)
		return nil, err
	}

	items := e.Enrich(ctx, listed.Payload.Results, window.Offset)

	e.mu.Lock()
	defer e.mu.Unlock()
	if gen != e.generation || ctx.Err() != nil {
		return cancelled, nil
	}
	e.cancel = nil

	return &Page{
		Number:  window.Page,
		Offset:  window.Offset,
		Total:   listed.Payload.Count,
		HasNext: listed.Payload.Next != nil,
		Items:   items,
	}, nil
}

// Enrich fetches every entry's record concurrently. Entry i of a list
// starting at offset that cannot be fetched becomes a placeholder with
// identity offset+i+1. The result has the input's length and order.
func (e *Enricher) Enrich(ctx context.Context, entries []pokeapi.NamedResource, offset int) []Item[Card] {
	items := Gather(ctx, entries, e.maxConcurrency,
		func(ctx context.Context, _ int, entry pokeapi.NamedResource) (Item[Card], error) {
			out := request.Fetch[pokeapi.Pokemon](ctx, e.doer, request.Binding{Target: entry.URL},
				request.WithLogger(e.logger))
			if out.Payload == nil {
				if out.Cancelled {
					return Item[Card]{}, context.Canceled
				}
				return Item[Card]{}, chainError(StepPokemon, entry.Name, out)
			}
			card := NewCard(out.Payload, entry.Name)
			return Item[Card]{Identity: strconv.Itoa(card.ID), Payload: card}, nil
		},
		func(index int, entry pokeapi.NamedResource, err error) Item[Card] {
			identity := offset + index + 1
			if ctx.Err() == nil {
				placeholdersTotal.Inc()
				e.logger.Warn().
					Err(err).
					Str("name", entry.Name).
					Int("identity", identity).
					Msg("Detail fetch failed, using placeholder")
			}
			return Item[Card]{
				Identity:    strconv.Itoa(identity),
				Payload:     PlaceholderCard(identity, entry.Name),
				Placeholder: true,
			}
		},
	)

	if e.favorites != nil {
		e.favorites.Mark(items)
	}
	return items
}

// Close cancels the page in progress.
func (e *Enricher) Close() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.generation++
	e.mu.Unlock()
	e.list.Close()
}
