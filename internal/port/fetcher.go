package port

import "context"

// Fetcher resolves URL-sourced ingestion input. Failures surface as
// *domain.FetchError carrying the origin status code.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
