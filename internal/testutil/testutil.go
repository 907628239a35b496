// Package testutil builds synthetic containers and in-memory fetchers for tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/meigma/glbrange/core"
)

// Chunk is one chunk written by BuildGLB.
type Chunk struct {
	Type    core.ChunkType
	Payload []byte
}

// BuildGLB encodes a container with the given version and chunks. Payloads
// are written as-is, without alignment padding.
func BuildGLB(version uint32, chunks ...Chunk) []byte {
	total := core.HeaderSize
	for _, c := range chunks {
		total += core.ChunkHeaderSize + len(c.Payload)
	}
	b := make([]byte, 0, total)
	b = core.AppendHeader(b, core.Header{Magic: core.Magic, Version: version, Length: uint32(total)})
	for _, c := range chunks {
		b = core.AppendChunkHeader(b, core.ChunkHeader{Length: uint32(len(c.Payload)), Type: c.Type})
		b = append(b, c.Payload...)
	}
	return b
}

// JSONChunk returns a JSON chunk holding doc.
func JSONChunk(doc string) Chunk {
	return Chunk{Type: core.ChunkJSON, Payload: []byte(doc)}
}

// BINChunk returns a BIN chunk holding payload.
func BINChunk(payload []byte) Chunk {
	return Chunk{Type: core.ChunkBIN, Payload: payload}
}

// FetchCall records one call to a MemoryFetcher.
type FetchCall struct {
	URL    string
	Offset int64
	Length int64
}

// MemoryFetcher serves ranges of in-memory resources keyed by URL.
type MemoryFetcher struct {
	mu    sync.Mutex
	data  map[string][]byte
	calls []FetchCall
	err   error
}

// NewMemoryFetcher returns a fetcher serving data at url.
func NewMemoryFetcher(url string, data []byte) *MemoryFetcher {
	return &MemoryFetcher{data: map[string][]byte{url: data}}
}

// ErrOutOfRange is returned when a fetch extends past the end of a resource.
var ErrOutOfRange = errors.New("testutil: range out of bounds")

// ErrNotFound is returned for unknown URLs.
var ErrNotFound = errors.New("testutil: not found")

// Fetch implements core.Fetcher.
func (m *MemoryFetcher) Fetch(_ context.Context, url string, off, length int64) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, FetchCall{URL: url, Offset: off, Length: length})
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.data[url]
	if !ok {
		return nil, ErrNotFound
	}
	if off < 0 || length < 0 || off+length > int64(len(data)) {
		return nil, ErrOutOfRange
	}
	out := make([]byte, length)
	copy(out, data[off:off+length])
	return out, nil
}

// FailWith makes every subsequent fetch return err. A nil err clears it.
func (m *MemoryFetcher) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the fetches made so far.
func (m *MemoryFetcher) Calls() []FetchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FetchCall(nil), m.calls...)
}

// ServeGLB starts a range-capable HTTP server for data and returns its URL.
func ServeGLB(tb testing.TB, data []byte) string {
	tb.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "asset.glb", time.Time{}, bytes.NewReader(data))
	}))
	tb.Cleanup(server.Close)
	return server.URL + "/asset.glb"
}

// ServeWithoutRanges starts a server that always returns the full body.
func ServeWithoutRanges(tb testing.TB, data []byte) string {
	tb.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.Copy(w, bytes.NewReader(data))
	}))
	tb.Cleanup(server.Close)
	return server.URL + "/asset.glb"
}
