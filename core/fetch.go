package core

import "context"

// Fetcher retrieves a byte range of a remote resource.
//
// Fetch returns exactly the bytes in [off, off+length) or an error. It must
// not retry. Implementations must be safe for concurrent calls.
type Fetcher interface {
	Fetch(ctx context.Context, url string, off, length int64) ([]byte, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, url string, off, length int64) ([]byte, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string, off, length int64) ([]byte, error) {
	return f(ctx, url, off, length)
}
