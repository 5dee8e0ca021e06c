package aggregate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/pokedex-client/internal/testutil"
	"github.com/Sternrassler/pokedex-client/pkg/color"
	"github.com/Sternrassler/pokedex-client/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	mu     sync.Mutex
	sample color.Sample
	err    error
	urls   []string
}

func (f *fakeExtractor) Extract(_ context.Context, imageURL string) (color.Sample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, imageURL)
	return f.sample, f.err
}

func newTransport(t *testing.T, mock *testutil.MockPokeAPI) *transport.Transport {
	t.Helper()
	cfg := transport.DefaultConfig("pokedex-test/1.0")
	cfg.BaseURL = mock.BaseURL()
	tr, err := transport.New(cfg)
	require.NoError(t, err)
	return tr
}

func TestDetailLoader_FullChain(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.AddBulbasaurLine()

	ex := &fakeExtractor{sample: color.NewSample(120, 200, 80, 255)}
	loader := NewDetailLoader(newTransport(t, mock), WithExtractor(ex))
	defer loader.Close()

	d, err := loader.Load(context.Background(), " Ivysaur ")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.False(t, d.Cancelled)

	assert.Equal(t, "Ivysaur", d.Subject)
	require.NotNil(t, d.Pokemon)
	assert.Equal(t, 2, d.Pokemon.ID)
	require.NotNil(t, d.Species)
	require.NotNil(t, d.Chain)

	assert.Equal(t, "A strange seed was planted on its back at birth.", d.FlavorText)
	assert.Equal(t, "Seed Pokémon", d.Genus)
	assert.Equal(t, "0.7 m", d.Height)
	assert.Equal(t, "6.9 kg", d.Weight)
	assert.Equal(t, "https://raw.githubusercontent.com/PokeAPI/sprites/master/sprites/pokemon/other/official-artwork/2.png", d.ImageURL)

	require.Len(t, d.Evolution, 3)
	assert.Equal(t, EvolutionStage{Name: "bulbasaur", ID: "1", ImageURL: d.Evolution[0].ImageURL, Trigger: BaseForm}, d.Evolution[0])
	assert.Equal(t, "Lvl 16", d.Evolution[1].Trigger)
	assert.True(t, d.Evolution[1].IsCurrent)
	assert.Equal(t, "Lvl 32", d.Evolution[2].Trigger)

	assert.Equal(t, color.Pair{Background: "rgba(120,200,80,1)", Text: color.TextOnLight}, d.Colors)
	assert.Equal(t, []string{d.ImageURL}, ex.urls)

	state := loader.State()
	require.NotNil(t, state)
	assert.Equal(t, d.Evolution, state.Evolution)
}

// A failing species fetch leaves no partial state behind.
func TestDetailLoader_SecondaryFailureClearsState(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.AddBulbasaurLine()
	mock.SetResponse("pokemon-species/1", testutil.NewServerErrorResponse())

	loader := NewDetailLoader(newTransport(t, mock))
	defer loader.Close()

	d, err := loader.Load(context.Background(), "bulbasaur")
	assert.Nil(t, d)

	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, StepSpecies, chainErr.Step)
	assert.Equal(t, "bulbasaur", chainErr.Subject)
	assert.Equal(t, 500, chainErr.StatusCode)
	assert.Equal(t, "Internal server error", chainErr.Message)
	assert.False(t, errors.Is(err, ErrNotFound))

	assert.Nil(t, loader.State(), "primary, secondary and tertiary must all be absent")
	assert.Zero(t, mock.PathCount("evolution-chain/1"))
}

func TestDetailLoader_PrimaryNotFound(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()

	loader := NewDetailLoader(newTransport(t, mock))
	defer loader.Close()

	d, err := loader.Load(context.Background(), "MissingNo")
	assert.Nil(t, d)
	assert.ErrorIs(t, err, ErrNotFound)

	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, StepPokemon, chainErr.Step)
	assert.Equal(t, 1, mock.PathCount("pokemon/missingno"))
	assert.Nil(t, loader.State())
}

func TestDetailLoader_TertiaryFailure(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.AddBulbasaurLine()
	mock.SetResponse("evolution-chain/1", testutil.NewNotFoundResponse())

	loader := NewDetailLoader(newTransport(t, mock))
	defer loader.Close()

	d, err := loader.Load(context.Background(), "venusaur")
	assert.Nil(t, d)

	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, StepEvolution, chainErr.Step)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, loader.State())
}

// A species without an evolution chain reference skips the third step.
func TestDetailLoader_NoEvolutionChain(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.AddPokemon(mock.Pokemon(4, "charmander", 39, 52, 43, "scratch"))
	mock.AddSpecies(mock.Species(4, "charmander", 0))

	loader := NewDetailLoader(newTransport(t, mock))
	defer loader.Close()

	d, err := loader.Load(context.Background(), "charmander")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Nil(t, d.Chain)
	assert.Nil(t, d.Evolution)
	assert.NotNil(t, d.Species)
	assert.Equal(t, color.DefaultPair, d.Colors)
	assert.Equal(t, 2, mock.RequestCount())
}

func TestDetailLoader_ColorFallbacks(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.AddBulbasaurLine()

	noSprites := mock.Pokemon(10, "nosprite", 1, 1, 1)
	noSprites.Sprites.Other = nil
	mock.AddPokemon(noSprites)
	mock.AddSpecies(mock.Species(10, "nosprite", 0))

	defaults := color.Pair{Background: "#cccccc", Text: "#111111"}
	ex := &fakeExtractor{err: errors.New("decode image: unknown format")}
	loader := NewDetailLoader(newTransport(t, mock), WithExtractor(ex), WithDefaultColors(defaults))
	defer loader.Close()

	d, err := loader.Load(context.Background(), "bulbasaur")
	require.NoError(t, err, "colour failure must not fail the chain")
	assert.Equal(t, defaults, d.Colors)
	assert.NotNil(t, d.Chain)

	d, err = loader.Load(context.Background(), "nosprite")
	require.NoError(t, err)
	assert.Equal(t, defaults, d.Colors)
	assert.Empty(t, d.ImageURL)
	assert.Len(t, ex.urls, 1, "no image means no extraction attempt")
}

func TestDetailLoader_BlankSubject(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()

	loader := NewDetailLoader(newTransport(t, mock))
	defer loader.Close()

	d, err := loader.Load(context.Background(), "   ")
	assert.NoError(t, err)
	assert.Nil(t, d)
	assert.Zero(t, mock.RequestCount())
}

func TestDetailLoader_CancelIsSilent(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.AddBulbasaurLine()
	release := mock.Block("pokemon-species/1", testutil.NewOKResponse(`{}`))
	defer release()

	loader := NewDetailLoader(newTransport(t, mock))
	defer loader.Close()

	type result struct {
		d   *Detail
		err error
	}
	done := make(chan result, 1)
	go func() {
		d, err := loader.Load(context.Background(), "bulbasaur")
		done <- result{d, err}
	}()

	require.Eventually(t, func() bool { return mock.PathCount("pokemon-species/1") == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NotNil(t, loader.State())
	assert.NotNil(t, loader.State().Pokemon, "primary is visible while species loads")

	loader.Cancel()
	r := <-done

	assert.NoError(t, r.err)
	require.NotNil(t, r.d)
	assert.True(t, r.d.Cancelled)
	assert.Nil(t, r.d.Pokemon)
	assert.Nil(t, loader.State())
}

func TestDetailLoader_Supersession(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.AddBulbasaurLine()
	release := mock.Block("pokemon/bulbasaur", testutil.NewOKResponse(`{}`))
	defer release()

	loader := NewDetailLoader(newTransport(t, mock))
	defer loader.Close()

	first := make(chan *Detail, 1)
	go func() {
		d, _ := loader.Load(context.Background(), "bulbasaur")
		first <- d
	}()
	require.Eventually(t, func() bool { return mock.PathCount("pokemon/bulbasaur") == 1 }, 2*time.Second, 5*time.Millisecond)

	second, err := loader.Load(context.Background(), "ivysaur")
	require.NoError(t, err)
	assert.Equal(t, "ivysaur", second.Pokemon.Name)

	old := <-first
	require.NotNil(t, old)
	assert.True(t, old.Cancelled)

	state := loader.State()
	require.NotNil(t, state)
	assert.Equal(t, "ivysaur", state.Pokemon.Name)
}

func TestChainError_Error(t *testing.T) {
	err := &ChainError{Step: StepSpecies, Subject: "mew", Message: "boom", StatusCode: 502}
	assert.Equal(t, `species fetch for "mew" failed (status 502): boom`, err.Error())
	assert.NotErrorIs(t, err, ErrNotFound)

	err = &ChainError{Step: StepPokemon, Subject: "mew", Message: "offline"}
	assert.Equal(t, `pokemon fetch for "mew" failed: offline`, err.Error())
}

func TestDetailLoader_ConcurrentLoadsLeaveOneSurvivor(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.AddBulbasaurLine()

	loader := NewDetailLoader(newTransport(t, mock), WithExtractor(&fakeExtractor{sample: color.NewSample(1, 2, 3, 255)}))
	defer loader.Close()

	subjects := []string{"bulbasaur", "ivysaur"}
	for round := 0; round < 200; round++ {
		details := make([]*Detail, len(subjects))
		var wg sync.WaitGroup
		for i, subject := range subjects {
			wg.Add(1)
			go func(i int, subject string) {
				defer wg.Done()
				d, err := loader.Load(context.Background(), subject)
				assert.NoError(t, err)
				details[i] = d
			}(i, subject)
		}
		wg.Wait()

		require.NotNil(t, details[0])
		require.NotNil(t, details[1])
		require.False(t, details[0].Cancelled && details[1].Cancelled, "round %d: both loads cancelled", round)
	}
}
