// Package testutil provides a mock PokéAPI server and fixtures for tests.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/pokedex-client/pkg/pokeapi"
)

// APIPrefix is the path prefix of the mock API.
const APIPrefix = "/api/v2"

// MockResponse defines the behavior for a mock endpoint response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockPokeAPI is a configurable mock PokéAPI server.
type MockPokeAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc
	list     []string

	requestCount     int
	conditionalCount int
	paths            map[string]int
	lastHeader       http.Header
}

// NewMockPokeAPI starts a mock server.
func NewMockPokeAPI() *MockPokeAPI {
	mock := &MockPokeAPI{
		handlers: make(map[string]http.HandlerFunc),
		paths:    make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := normalize(r.URL.Path)

		mock.mu.Lock()
		mock.requestCount++
		mock.paths[path]++
		mock.lastHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.conditionalCount++
		}
		handler, exists := mock.handlers[path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		if path == APIPrefix+"/pokemon" {
			mock.listHandler(w, r)
			return
		}

		writeJSON(w, http.StatusNotFound, `{"detail":"Not found."}`)
	}))

	return mock
}

// URL returns the server root.
func (m *MockPokeAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the API root, the value a transport should use.
func (m *MockPokeAPI) BaseURL() string {
	return m.server.URL + APIPrefix + "/"
}

// Close shuts down the mock server.
func (m *MockPokeAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockPokeAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount = 0
	m.conditionalCount = 0
	m.paths = make(map[string]int)
	m.lastHeader = nil
}

// SetHandler sets a custom handler for a path below APIPrefix.
func (m *MockPokeAPI) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[normalize(APIPrefix+"/"+strings.TrimPrefix(path, "/"))] = handler
}

// SetResponse configures a canned response for a path below APIPrefix.
// A delay is cut short when the client goes away.
func (m *MockPokeAPI) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			select {
			case <-time.After(resp.Delay):
			case <-r.Context().Done():
				return
			}
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		writeJSON(w, resp.StatusCode, resp.Body)
	})
}

// SetJSON serves v as a 200 JSON document.
func (m *MockPokeAPI) SetJSON(path string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshal fixture for %s: %v", path, err))
	}
	m.SetResponse(path, NewOKResponse(string(data)))
}

// Block makes path hang until the returned release func is called or the
// client cancels. It then answers with resp.
func (m *MockPokeAPI) Block(path string, resp MockResponse) (release func()) {
	ch := make(chan struct{})
	var once sync.Once
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ch:
		case <-r.Context().Done():
			return
		}
		writeJSON(w, resp.StatusCode, resp.Body)
	})
	return func() { once.Do(func() { close(ch) }) }
}

// SetList configures the names served by the /pokemon listing.
func (m *MockPokeAPI) SetList(names []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.list = append([]string(nil), names...)
}

// AddPokemon serves p under its name and id.
func (m *MockPokeAPI) AddPokemon(p pokeapi.Pokemon) {
	m.SetJSON("pokemon/"+p.Name, p)
	m.SetJSON("pokemon/"+strconv.Itoa(p.ID), p)
}

// AddSpecies serves s under its id.
func (m *MockPokeAPI) AddSpecies(s pokeapi.Species) {
	m.SetJSON("pokemon-species/"+strconv.Itoa(s.ID), s)
}

// AddEvolutionChain serves c under its id.
func (m *MockPokeAPI) AddEvolutionChain(c pokeapi.EvolutionChain) {
	m.SetJSON("evolution-chain/"+strconv.Itoa(c.ID), c)
}

// PokemonURL is the absolute URL of a Pokémon record.
func (m *MockPokeAPI) PokemonURL(name string) string {
	return m.BaseURL() + "pokemon/" + name + "/"
}

// SpeciesURL is the absolute URL of a species record.
func (m *MockPokeAPI) SpeciesURL(id int) string {
	return fmt.Sprintf("%spokemon-species/%d/", m.BaseURL(), id)
}

// ChainURL is the absolute URL of an evolution chain record.
func (m *MockPokeAPI) ChainURL(id int) string {
	return fmt.Sprintf("%sevolution-chain/%d/", m.BaseURL(), id)
}

// RequestCount returns the number of requests made to the server.
func (m *MockPokeAPI) RequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.requestCount
}

// ConditionalCount returns the number of conditional requests.
func (m *MockPokeAPI) ConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.conditionalCount
}

// PathCount returns how often a path below APIPrefix was requested.
func (m *MockPokeAPI) PathCount(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paths[normalize(APIPrefix+"/"+strings.TrimPrefix(path, "/"))]
}

// LastRequestHeader returns the headers of the most recent request.
func (m *MockPokeAPI) LastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastHeader.Clone()
}

func (m *MockPokeAPI) listHandler(w http.ResponseWriter, r *http.Request) {
	m.mu.RLock()
	names := m.list
	m.mu.RUnlock()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	page := pokeapi.PokemonList{Count: len(names), Results: []pokeapi.NamedResource{}}
	for i := offset; i < len(names) && i < offset+limit; i++ {
		page.Results = append(page.Results, pokeapi.NamedResource{
			Name: names[i],
			URL:  m.PokemonURL(names[i]),
		})
	}
	if offset+limit < len(names) {
		next := fmt.Sprintf("%spokemon?offset=%d&limit=%d", m.BaseURL(), offset+limit, limit)
		page.Next = &next
	}

	data, _ := json.Marshal(page)
	writeJSON(w, http.StatusOK, string(data))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(status)
	if body != "" {
		_, _ = w.Write([]byte(body))
	}
}

func normalize(path string) string {
	if len(path) > 1 {
		return strings.TrimRight(path, "/")
	}
	return path
}

// NewOKResponse creates a 200 response with cache validators.
func NewOKResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"ETag":          `"fixture-etag"`,
			"Cache-Control": "public, max-age=86400",
		},
	}
}

// NewNotFoundResponse mimics PokéAPI's 404 body.
func NewNotFoundResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusNotFound, Body: `{"detail":"Not found."}`}
}

// NewServerErrorResponse creates a 500 response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{StatusCode: http.StatusInternalServerError, Body: `{"message":"Internal server error"}`}
}

// NewTooManyRequestsResponse creates a 429 with Retry-After.
func NewTooManyRequestsResponse(retryAfter int) MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message":"Too many requests"}`,
		Headers:    map[string]string{"Retry-After": strconv.Itoa(retryAfter)},
	}
}

// NewConditionalHandler answers 304 when the client presents etag.
func NewConditionalHandler(etag, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		writeJSON(w, http.StatusOK, body)
	}
}
