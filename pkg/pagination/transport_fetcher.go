package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Sternrassler/pokedex-client/pkg/transport"
)

// TransportFetcher implements PageFetcher for PokéAPI list endpoints, which
// accept limit/offset and report the total as "count".
type TransportFetcher struct {
	doer transport.Doer
}

// NewTransportFetcher creates a fetcher that uses doer.
func NewTransportFetcher(doer transport.Doer) *TransportFetcher {
	return &TransportFetcher{doer: doer}
}

// FetchPage implements PageFetcher.
func (f *TransportFetcher) FetchPage(ctx context.Context, endpoint string, window Window) ([]byte, int, error) {
	resp, err := f.doer.Do(ctx, transport.Request{
		URL: endpoint,
		Query: url.Values{
			"limit":  {strconv.Itoa(window.Limit)},
			"offset": {strconv.Itoa(window.Offset)},
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("fetch %s page %d: %w", endpoint, window.Page, err)
	}

	var envelope struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, 0, fmt.Errorf("decode %s page %d: %w", endpoint, window.Page, err)
	}
	return resp.Body, envelope.Count, nil
}
