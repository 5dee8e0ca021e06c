// Package pagination covers the limit/offset paging of PokéAPI list
// endpoints.
//
// Pager turns a 1-based page number into a limit/offset window. BatchFetcher
// walks every window of an endpoint with a worker pool: it fetches the first
// window to learn the total count, then distributes the remaining windows
// across workers.
//
// Example usage:
//
//	fetcher := pagination.NewBatchFetcher(pagination.NewTransportFetcher(tr), pagination.DefaultConfig())
//	pages, err := fetcher.FetchAllPages(ctx, "pokemon")
//
// The batch fetcher:
//   - Fetches the first window to determine the total count
//   - Spawns a worker pool (default 4 workers)
//   - Collects results with progress logging
//   - Returns partial data together with an error when a window fails
package pagination
