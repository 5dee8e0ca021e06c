// Package aggregate assembles views from several PokéAPI calls: a detail
// view from three dependent calls, and a gallery page whose items are
// enriched by independent calls that may fail one by one.
package aggregate

import (
	"context"
	"strings"
	"sync"

	"github.com/Sternrassler/pokedex-client/pkg/color"
	"github.com/Sternrassler/pokedex-client/pkg/pokeapi"
	"github.com/Sternrassler/pokedex-client/pkg/request"
	"github.com/Sternrassler/pokedex-client/pkg/transport"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Detail is the assembled detail view of one Pokémon.
type Detail struct {
	Subject   string                  `json:"subject"`
	Pokemon   *pokeapi.Pokemon        `json:"pokemon,omitempty"`
	Species   *pokeapi.Species        `json:"species,omitempty"`
	Chain     *pokeapi.EvolutionChain `json:"-"`
	Evolution []EvolutionStage        `json:"evolution,omitempty"`

	FlavorText string     `json:"flavor_text,omitempty"`
	Genus      string     `json:"genus,omitempty"`
	ImageURL   string     `json:"image_url,omitempty"`
	Height     string     `json:"height,omitempty"`
	Weight     string     `json:"weight,omitempty"`
	Colors     color.Pair `json:"colors"`

	// Cancelled is set when a newer Load or the caller's context ended
	// this one. A cancelled detail carries no data.
	Cancelled bool `json:"cancelled,omitempty"`
}

func (d *Detail) clone() *Detail {
	if d == nil {
		return nil
	}
	cp := *d
	cp.Evolution = append([]EvolutionStage(nil), d.Evolution...)
	return &cp
}

// DetailLoader runs the pokemon -> species -> evolution chain sequence.
// Only the latest Load may change its state: starting a Load cancels the
// previous one.
type DetailLoader struct {
	pokemon   *request.Executor[pokeapi.Pokemon]
	species   *request.Executor[pokeapi.Species]
	evolution *request.Executor[pokeapi.EvolutionChain]
	extractor color.Extractor
	defaults  color.Pair
	logger    zerolog.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc
	state      *Detail
}

// DetailOption configures a DetailLoader.
type DetailOption func(*DetailLoader)

// WithExtractor enables colour derivation.
func WithExtractor(ex color.Extractor) DetailOption {
	return func(l *DetailLoader) { l.extractor = ex }
}

// WithDefaultColors sets the pair used when no colour can be derived.
func WithDefaultColors(p color.Pair) DetailOption {
	return func(l *DetailLoader) { l.defaults = p }
}

// NewDetailLoader creates a loader that fetches through doer.
func NewDetailLoader(doer transport.Doer, opts ...DetailOption) *DetailLoader {
	logger := log.With().Str("component", "detail-loader").Logger()
	l := &DetailLoader{
		pokemon:   request.New[pokeapi.Pokemon](doer, request.Binding{Manual: true}, request.WithLogger(logger), request.WithName("pokemon")),
		species:   request.New[pokeapi.Species](doer, request.Binding{Manual: true}, request.WithLogger(logger), request.WithName("species")),
		evolution: request.New[pokeapi.EvolutionChain](doer, request.Binding{Manual: true}, request.WithLogger(logger), request.WithName("evolution-chain")),
		defaults:  color.DefaultPair,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load assembles the detail view for subject (name or id, any case).
//
// A blank subject does nothing and returns (nil, nil). A fatal step
// failure returns *ChainError and leaves no partial state. Cancellation
// returns a Detail with Cancelled set and a nil error. Colour derivation
// never fails the chain.
func (l *DetailLoader) Load(ctx context.Context, subject string) (*Detail, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	if l.cancel != nil {
		l.cancel()
	}
	l.generation++
	gen := l.generation
	l.cancel = cancel
	l.state = &Detail{Subject: subject}
	l.mu.Unlock()

	logger := l.logger.With().Str("subject", subject).Logger()

	// 1. Pokémon record
	primary := l.pokemon.Execute(ctx, request.Binding{Target: pokeapi.PokemonPath(subject)})
	if primary.Cancelled {
		return l.cancelled(gen, subject), nil
	}
	if primary.Payload == nil {
		return l.fail(gen, logger, chainError(StepPokemon, subject, primary))
	}
	p := primary.Payload
	if !l.update(gen, func(d *Detail) {
		d.Pokemon = p
		d.ImageURL = p.ImageURL()
		d.Height = p.HeightMeters()
		d.Weight = p.WeightKilograms()
	}) {
		return l.cancelled(gen, subject), nil
	}

	// 2. Species
	speciesURL := p.SpeciesURL()
	if speciesURL == "" {
		return l.fail(gen, logger, &ChainError{
			Step:    StepSpecies,
			Subject: subject,
			Message: "record has no species reference",
			Kind:    request.FailureUnknown,
		})
	}
	secondary := l.species.Execute(ctx, request.Binding{Target: speciesURL})
	if secondary.Cancelled {
		return l.cancelled(gen, subject), nil
	}
	if secondary.Payload == nil {
		return l.fail(gen, logger, chainError(StepSpecies, subject, secondary))
	}
	s := secondary.Payload
	if !l.update(gen, func(d *Detail) {
		d.Species = s
		d.FlavorText = s.EnglishFlavorText()
		d.Genus = s.EnglishGenus()
	}) {
		return l.cancelled(gen, subject), nil
	}

	// 3. Evolution chain, only when referenced
	if chainURL := s.EvolutionChainURL(); chainURL != "" {
		tertiary := l.evolution.Execute(ctx, request.Binding{Target: chainURL})
		if tertiary.Cancelled {
			return l.cancelled(gen, subject), nil
		}
		if tertiary.Payload == nil {
			return l.fail(gen, logger, chainError(StepEvolution, subject, tertiary))
		}
		chain := tertiary.Payload
		if !l.update(gen, func(d *Detail) {
			d.Chain = chain
			d.Evolution = FlattenEvolution(chain.Chain, p.Name)
		}) {
			return l.cancelled(gen, subject), nil
		}
	} else {
		logger.Debug().Msg("Species has no evolution chain, skipping")
	}

	// 4. Colours, best effort
	colors, ok := l.deriveColors(ctx, logger, p.ColorImageURL())
	if !ok {
		return l.cancelled(gen, subject), nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		return &Detail{Subject: subject, Cancelled: true}, nil
	}
	l.state.Colors = colors
	l.cancel = nil

	logger.Debug().
		Int("id", p.ID).
		Int("evolution_stages", len(l.state.Evolution)).
		Msg("Detail assembled")

	return l.state.clone(), nil
}

func (l *DetailLoader) deriveColors(ctx context.Context, logger zerolog.Logger, imageURL string) (color.Pair, bool) {
	switch {
	case l.extractor == nil:
		return l.defaults, true
	case imageURL == "":
		colorFallbacksTotal.WithLabelValues("no_image").Inc()
		return l.defaults, true
	}

	sample, err := l.extractor.Extract(ctx, imageURL)
	if err != nil {
		if ctx.Err() != nil {
			return color.Pair{}, false
		}
		colorFallbacksTotal.WithLabelValues("extract_failed").Inc()
		logger.Warn().Err(err).Str("image", imageURL).Msg("Could not extract dominant colour, using defaults")
		return l.defaults, true
	}
	return sample.Pair(), true
}

// update applies fn to the partial state if gen is still current.
func (l *DetailLoader) update(gen uint64, fn func(*Detail)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		return false
	}
	fn(l.state)
	return true
}

func (l *DetailLoader) fail(gen uint64, logger zerolog.Logger, err *ChainError) (*Detail, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.generation {
		return &Detail{Subject: err.Subject, Cancelled: true}, nil
	}
	l.state = nil
	l.cancel = nil

	chainFailuresTotal.WithLabelValues(string(err.Step)).Inc()
	logger.Error().
		Str("step", string(err.Step)).
		Int("status", err.StatusCode).
		Msg(err.Message)
	return nil, err
}

func (l *DetailLoader) cancelled(gen uint64, subject string) *Detail {
	l.mu.Lock()
	defer l.mu.Unlock()

	if gen == l.generation {
		l.state = nil
		l.cancel = nil
	}
	l.logger.Debug().Str("subject", subject).Msg("Detail load cancelled")
	return &Detail{Subject: subject, Cancelled: true}
}

// State returns a copy of the current partial or complete detail, or nil
// when nothing is loaded.
func (l *DetailLoader) State() *Detail {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.clone()
}

// Cancel aborts the running Load, if any, and clears the state.
func (l *DetailLoader) Cancel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.generation++
	l.state = nil
}

// Close cancels the running Load and releases the executors.
func (l *DetailLoader) Close() {
	l.Cancel()
	l.pokemon.Close()
	l.species.Close()
	l.evolution.Close()
}
