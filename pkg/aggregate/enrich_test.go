package aggregate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/pokedex-client/internal/testutil"
	"github.com/Sternrassler/pokedex-client/pkg/pokeapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrich_OrderPreservedWithPlaceholder(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.AddPokemon(mock.Pokemon(1, "bulbasaur", 45, 49, 49, "razor-wind", "swords-dance", "cut", "bind"))
	mock.SetResponse("pokemon/ivysaur", testutil.NewServerErrorResponse())
	mock.AddPokemon(mock.Pokemon(3, "venusaur", 80, 82, 83, "swords-dance"))

	enricher := NewEnricher(newTransport(t, mock))
	defer enricher.Close()

	entries := []pokeapi.NamedResource{
		{Name: "bulbasaur", URL: mock.PokemonURL("bulbasaur")},
		{Name: "ivysaur", URL: mock.PokemonURL("ivysaur")},
		{Name: "venusaur", URL: mock.PokemonURL("venusaur")},
	}

	items := enricher.Enrich(context.Background(), entries, 0)
	require.Len(t, items, 3)

	assert.False(t, items[0].Placeholder)
	assert.Equal(t, "1", items[0].Identity)
	assert.Equal(t, "bulbasaur", items[0].Payload.Name)
	assert.Equal(t, "This Pokémon has 45 HP, 49 attack and 49 defense.", items[0].Payload.Description)
	assert.Equal(t, []string{"razor-wind", "swords-dance", "cut"}, items[0].Payload.Moves)
	assert.Equal(t, pokeapi.ArtworkURL("1"), items[0].Payload.ImageURL)
	assert.Equal(t, map[string]int{"hp": 45, "attack": 49, "defense": 49}, items[0].Payload.Stats)

	assert.True(t, items[1].Placeholder)
	assert.Equal(t, "2", items[1].Identity)
	assert.Equal(t, "ivysaur", items[1].Payload.Name)
	assert.Equal(t, "Description of ivysaur", items[1].Payload.Description)
	assert.Empty(t, items[1].Payload.Moves)
	assert.Equal(t, pokeapi.ArtworkURL("2"), items[1].Payload.ImageURL)

	assert.False(t, items[2].Placeholder)
	assert.Equal(t, "venusaur", items[2].Payload.Name)
	assert.Equal(t, []string{"swords-dance"}, items[2].Payload.Moves)
}

// The placeholder identity is the item's position in the whole list.
func TestEnricher_PlaceholderIdentityUsesOffset(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()

	names := make([]string, 60)
	for i := range names {
		names[i] = fmt.Sprintf("mon-%02d", i+1)
		if i+1 != 33 {
			mock.AddPokemon(mock.Pokemon(i+1, names[i], 10, 20, 30))
		}
	}
	mock.SetList(names)
	mock.SetResponse("pokemon/mon-33", testutil.NewServerErrorResponse())

	enricher := NewEnricher(newTransport(t, mock), WithMaxConcurrency(5))
	defer enricher.Close()

	page, err := enricher.Page(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, page)

	assert.Equal(t, 2, page.Number)
	assert.Equal(t, 25, page.Offset)
	assert.Equal(t, 60, page.Total)
	assert.True(t, page.HasNext)
	require.Len(t, page.Items, 25)

	placeholder := page.Items[7]
	assert.True(t, placeholder.Placeholder)
	assert.Equal(t, "33", placeholder.Identity)
	assert.Equal(t, 33, placeholder.Payload.ID)
	assert.Equal(t, pokeapi.ArtworkURL("33"), placeholder.Payload.ImageURL)

	for i, it := range page.Items {
		assert.Equal(t, fmt.Sprint(25+i+1), it.Identity, "item %d", i)
		if i != 7 {
			assert.False(t, it.Placeholder, "item %d", i)
		}
	}
	assert.Equal(t, 1, mock.PathCount("pokemon"))
}

func TestEnricher_ListFailureIsFatal(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetResponse("pokemon", testutil.MockResponse{StatusCode: 400, Body: `{"errors":["bad param"]}`})

	enricher := NewEnricher(newTransport(t, mock))
	defer enricher.Close()

	page, err := enricher.Page(context.Background(), 1)
	assert.Nil(t, page)

	var chainErr *ChainError
	require.ErrorAs(t, err, &chainErr)
	assert.Equal(t, StepList, chainErr.Step)
	assert.Equal(t, `["bad param"]`, chainErr.Message)
}

func TestEnricher_LastPageAndFavorites(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetList([]string{"bulbasaur", "ivysaur", "venusaur"})
	mock.AddBulbasaurLine()

	favorites := NewFavorites()
	favorites.Toggle(2)

	enricher := NewEnricher(newTransport(t, mock), WithPageSize(2), WithFavorites(favorites))
	defer enricher.Close()
	assert.Equal(t, 2, enricher.PageSize())

	page, err := enricher.Page(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Number)
	assert.True(t, page.HasNext)
	require.Len(t, page.Items, 2)
	assert.False(t, page.Items[0].Payload.IsFavorite)
	assert.True(t, page.Items[1].Payload.IsFavorite)

	page, err = enricher.Page(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, page.HasNext)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "venusaur", page.Items[0].Payload.Name)
}

func TestEnricher_SupersededPageIsCancelled(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetList([]string{"bulbasaur", "ivysaur", "venusaur"})
	mock.AddBulbasaurLine()
	release := mock.Block("pokemon/bulbasaur", testutil.NewOKResponse(`{}`))
	defer release()

	enricher := NewEnricher(newTransport(t, mock), WithPageSize(1))
	defer enricher.Close()

	first := make(chan *Page, 1)
	go func() {
		p, _ := enricher.Page(context.Background(), 1)
		first <- p
	}()
	require.Eventually(t, func() bool { return mock.PathCount("pokemon/bulbasaur") == 1 }, 2*time.Second, 5*time.Millisecond)

	second, err := enricher.Page(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, second.Cancelled)
	assert.Equal(t, "ivysaur", second.Items[0].Payload.Name)

	old := <-first
	require.NotNil(t, old)
	assert.True(t, old.Cancelled)
	assert.Empty(t, old.Items)
}

func TestGather(t *testing.T) {
	var running, peak int32
	inputs := []int{1, 2, 3, 4, 5, 6, 7, 8}

	out := Gather(context.Background(), inputs, 3,
		func(_ context.Context, _ int, in int) (Item[int], error) {
			n := atomic.AddInt32(&running, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(time.Duration(9-in) * time.Millisecond)
			atomic.AddInt32(&running, -1)
			if in%4 == 0 {
				return Item[int]{}, errors.New("unlucky")
			}
			return Item[int]{Identity: fmt.Sprint(in), Payload: in * 10}, nil
		},
		func(index int, in int, _ error) Item[int] {
			return Item[int]{Identity: fmt.Sprint(index + 1), Placeholder: true}
		},
	)

	require.Len(t, out, len(inputs))
	for i, in := range inputs {
		assert.Equal(t, fmt.Sprint(in), out[i].Identity)
		assert.Equal(t, in%4 == 0, out[i].Placeholder)
		if !out[i].Placeholder {
			assert.Equal(t, in*10, out[i].Payload)
		}
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestFavorites(t *testing.T) {
	f := NewFavorites()
	assert.True(t, f.Toggle(25))
	assert.True(t, f.Toggle(1))
	assert.True(t, f.Contains(25))
	assert.Equal(t, []int{1, 25}, f.IDs())

	assert.False(t, f.Toggle(25))
	assert.False(t, f.Contains(25))
	assert.Equal(t, []int{1}, f.IDs())
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "This Pokémon has 35 HP, 55 attack and 40 defense.",
		Describe(map[string]int{"hp": 35, "attack": 55, "defense": 40, "speed": 90}))
	assert.Equal(t, "This Pokémon has 0 HP, 0 attack and 0 defense.", Describe(nil))
}

// Two pages requested at once: whichever call supersedes the other must
// still complete, however the calls interleave.
func TestEnricher_ConcurrentPagesLeaveOneSurvivor(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()
	mock.SetList([]string{"bulbasaur", "ivysaur", "venusaur"})
	mock.AddBulbasaurLine()

	enricher := NewEnricher(newTransport(t, mock), WithPageSize(1))
	defer enricher.Close()

	for round := 0; round < 200; round++ {
		pages := make([]*Page, 2)
		var wg sync.WaitGroup
		for i := range pages {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				p, err := enricher.Page(context.Background(), i+1)
				assert.NoError(t, err)
				pages[i] = p
			}(i)
		}
		wg.Wait()

		require.NotNil(t, pages[0])
		require.NotNil(t, pages[1])
		require.False(t, pages[0].Cancelled && pages[1].Cancelled, "round %d: both pages cancelled", round)
	}
}
