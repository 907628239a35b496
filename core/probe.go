package core

import "context"

// Probe reports whether url serves a binary container over range requests.
//
// It fetches the first four bytes and compares them with [Magic]. A server
// that ignores ranges, answers with an error, or returns anything else makes
// Probe return false. Probe never returns an error.
func Probe(ctx context.Context, f Fetcher, url string) bool {
	b, err := f.Fetch(ctx, url, 0, int64(len(Magic)))
	if err != nil {
		return false
	}
	return string(b) == Magic
}
