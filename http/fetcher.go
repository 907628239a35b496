// Package http provides a range fetcher backed by HTTP range requests.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"strconv"
	"strings"
	"sync"
)

var (
	// ErrRangeUnsupported is returned when the server ignores the Range header.
	ErrRangeUnsupported = errors.New("http: range requests not supported")

	// ErrShortRead is returned when the server returns fewer bytes than requested.
	ErrShortRead = errors.New("http: short range response")

	// ErrRangeMismatch is returned when Content-Range does not match the
	// requested range.
	ErrRangeMismatch = errors.New("http: range response does not match request")
)

// Fetcher retrieves byte ranges with HTTP range requests.
//
// A Fetcher carries a default header set that is sent with every request.
// Each fetch takes exclusive ownership of that set, adds the Range header,
// snapshots it into the outgoing request and restores the prior set before
// releasing it. Fetches never retry.
type Fetcher struct {
	client *nethttp.Client
	logger *slog.Logger

	mu      sync.Mutex
	headers nethttp.Header
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithHeaders sets the default headers sent with each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(f *Fetcher) {
		if headers == nil {
			return
		}
		f.headers = headers.Clone()
	}
}

// WithHeader sets a single default header.
func WithHeader(key, value string) Option {
	return func(f *Fetcher) {
		if f.headers == nil {
			f.headers = make(nethttp.Header)
		}
		f.headers.Set(key, value)
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  nethttp.DefaultClient,
		headers: make(nethttp.Header),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = nethttp.DefaultClient
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	return f
}

// Headers returns a copy of the default header set.
func (f *Fetcher) Headers() nethttp.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers.Clone()
}

// SetHeaders replaces the default header set.
func (f *Fetcher) SetHeaders(headers nethttp.Header) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if headers == nil {
		headers = make(nethttp.Header)
	}
	f.headers = headers.Clone()
}

// Fetch returns the bytes in [off, off+length) of the resource at url.
func (f *Fetcher) Fetch(ctx context.Context, url string, off, length int64) ([]byte, error) {
	if off < 0 {
		return nil, fmt.Errorf("fetch %d: negative offset", off)
	}
	if length < 0 {
		return nil, fmt.Errorf("fetch length %d: negative length", length)
	}
	if length == 0 {
		return []byte{}, nil
	}

	end := off + length - 1
	req, err := f.newRangeRequest(ctx, url, off, end)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("range request failed",
			slog.String("url", url),
			slog.Int64("offset", off),
			slog.Any("error", err))
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	f.logger.Debug("range response",
		slog.String("url", url),
		slog.Int64("offset", off),
		slog.Int64("length", length),
		slog.Int("status", resp.StatusCode))

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		// ok
	case nethttp.StatusOK:
		return nil, ErrRangeUnsupported
	default:
		return nil, fmt.Errorf("range request failed: %s", resp.Status)
	}

	if crange := resp.Header.Get("Content-Range"); crange != "" {
		first, last, err := parseContentRange(crange)
		if err != nil {
			return nil, err
		}
		if first != off || last != end {
			return nil, fmt.Errorf("%w: got bytes %d-%d, want %d-%d", ErrRangeMismatch, first, last, off, end)
		}
	}
	if resp.ContentLength >= 0 && resp.ContentLength != length {
		return nil, fmt.Errorf("%w: content length %d, want %d", ErrShortRead, resp.ContentLength, length)
	}

	// length can come from remote metadata; never allocate it up front.
	buf, err := io.ReadAll(io.LimitReader(resp.Body, length))
	if err != nil {
		return nil, err
	}
	if int64(len(buf)) != length {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShortRead, len(buf), length)
	}
	return buf, nil
}

// newRangeRequest builds a GET for bytes off..end. The default header set is
// held for the duration of the build and restored before returning, on every
// path.
func (f *Fetcher) newRangeRequest(ctx context.Context, url string, off, end int64) (*nethttp.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	prior := f.headers
	f.headers = prior.Clone()
	defer func() { f.headers = prior }()
	f.headers.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))

	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range f.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	return req, nil
}

// parseContentRange returns the first and last byte positions of a
// "bytes first-last/size" Content-Range value.
func parseContentRange(value string) (int64, int64, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "bytes ") {
		return 0, 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	span, _, ok := strings.Cut(strings.TrimPrefix(value, "bytes "), "/")
	if !ok {
		return 0, 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	firstText, lastText, ok := strings.Cut(span, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	first, err := strconv.ParseInt(strings.TrimSpace(firstText), 10, 64)
	if err != nil || first < 0 {
		return 0, 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	last, err := strconv.ParseInt(strings.TrimSpace(lastText), 10, 64)
	if err != nil || last < first {
		return 0, 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	return first, last, nil
}
