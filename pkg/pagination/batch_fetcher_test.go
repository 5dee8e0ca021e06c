package pagination

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Sternrassler/pokedex-client/internal/testutil"
	"github.com/Sternrassler/pokedex-client/pkg/pokeapi"
	"github.com/Sternrassler/pokedex-client/pkg/transport"
)

type fakeFetcher struct {
	mu       sync.Mutex
	total    int
	failPage int
	windows  []Window
}

func (f *fakeFetcher) FetchPage(_ context.Context, _ string, w Window) ([]byte, int, error) {
	f.mu.Lock()
	f.windows = append(f.windows, w)
	f.mu.Unlock()

	if w.Page == f.failPage {
		return nil, 0, errors.New("boom")
	}
	return []byte(fmt.Sprintf("offset=%d", w.Offset)), f.total, nil
}

func TestBatchFetcher_AllPages(t *testing.T) {
	fake := &fakeFetcher{total: 95}
	bf := NewBatchFetcher(fake, Config{PageSize: 20, MaxConcurrency: 3})

	results, err := bf.FetchAllPages(context.Background(), "pokemon")
	if err != nil {
		t.Fatalf("FetchAllPages() error = %v", err)
	}
	if len(results) != 5 {
		t.Fatalf("got %d pages, want 5", len(results))
	}
	for page := 1; page <= 5; page++ {
		want := fmt.Sprintf("offset=%d", (page-1)*20)
		if string(results[page]) != want {
			t.Errorf("page %d = %q, want %q", page, results[page], want)
		}
	}
}

func TestBatchFetcher_SinglePage(t *testing.T) {
	fake := &fakeFetcher{total: 7}
	bf := NewBatchFetcher(fake, Config{PageSize: 20})

	results, err := bf.FetchAllPages(context.Background(), "pokemon")
	if err != nil {
		t.Fatalf("FetchAllPages() error = %v", err)
	}
	if len(results) != 1 || len(fake.windows) != 1 {
		t.Errorf("expected exactly one fetch, got %d results / %d calls", len(results), len(fake.windows))
	}
}

func TestBatchFetcher_FirstPageError(t *testing.T) {
	fake := &fakeFetcher{total: 100, failPage: 1}
	bf := NewBatchFetcher(fake, DefaultConfig())

	results, err := bf.FetchAllPages(context.Background(), "pokemon")
	if err == nil {
		t.Fatal("expected error")
	}
	if results != nil {
		t.Errorf("expected nil results, got %d", len(results))
	}
}

func TestBatchFetcher_PartialResults(t *testing.T) {
	fake := &fakeFetcher{total: 60, failPage: 2}
	bf := NewBatchFetcher(fake, Config{PageSize: 20, MaxConcurrency: 1})

	results, err := bf.FetchAllPages(context.Background(), "pokemon")
	if err == nil {
		t.Fatal("expected error for failed page")
	}
	if _, ok := results[1]; !ok {
		t.Error("first page missing from partial results")
	}
	if _, ok := results[2]; ok {
		t.Error("failed page must not be in results")
	}
}

func TestTransportFetcher_WithMockAPI(t *testing.T) {
	mock := testutil.NewMockPokeAPI()
	defer mock.Close()

	names := make([]string, 53)
	for i := range names {
		names[i] = fmt.Sprintf("mon-%02d", i+1)
	}
	mock.SetList(names)

	cfg := transport.DefaultConfig("pokedex-test/1.0")
	cfg.BaseURL = mock.BaseURL()
	tr, err := transport.New(cfg)
	if err != nil {
		t.Fatal(err)
	}

	bf := NewBatchFetcher(NewTransportFetcher(tr), Config{PageSize: 10, MaxConcurrency: 2})
	results, err := bf.FetchAllPages(context.Background(), "pokemon")
	if err != nil {
		t.Fatalf("FetchAllPages() error = %v", err)
	}
	if len(results) != 6 {
		t.Fatalf("got %d pages, want 6", len(results))
	}

	var seen []string
	for page := 1; page <= 6; page++ {
		var list pokeapi.PokemonList
		if err := json.Unmarshal(results[page], &list); err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		for _, r := range list.Results {
			seen = append(seen, r.Name)
		}
	}
	if len(seen) != 53 || seen[0] != "mon-01" || seen[52] != "mon-53" {
		t.Errorf("unexpected names: %d entries", len(seen))
	}
}
