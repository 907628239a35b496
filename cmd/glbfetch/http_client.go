package main

import (
	"bytes"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// serveLocal serves the file at path over a range-capable test server.
func serveLocal(path string) (string, func(), error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.ServeContent(w, r, "asset.glb", time.Time{}, bytes.NewReader(data))
	}))
	return server.URL + "/asset.glb", server.Close, nil
}

// meteredTransport counts range requests and body bytes, and can simulate a
// slow link. All responses share one link: concurrent buffer view fetches
// split the configured bandwidth instead of each getting the full rate.
type meteredTransport struct {
	base           nethttp.RoundTripper
	latency        time.Duration
	bytesPerSecond int64

	requests atomic.Int64
	bytes    atomic.Int64

	mu       sync.Mutex
	linkFree time.Time
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func newMeteredTransport(cfg config) *meteredTransport {
	base := nethttp.DefaultTransport
	if t, ok := base.(*nethttp.Transport); ok {
		base = t.Clone()
	}
	return &meteredTransport{
		base:           base,
		latency:        cfg.latency,
		bytesPerSecond: cfg.bytesPerSecond,
	}
}

func (m *meteredTransport) client(timeout time.Duration) *nethttp.Client {
	return &nethttp.Client{Transport: m, Timeout: timeout}
}

func (m *meteredTransport) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	m.requests.Add(1)
	if m.latency > 0 {
		select {
		case <-time.After(m.latency):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}
	resp, err := m.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Body != nil {
		resp.Body = &meteredBody{ReadCloser: resp.Body, t: m}
	}
	return resp, nil
}

// reserve books n bytes on the simulated link and returns how long the
// caller must wait for them to have "arrived".
func (m *meteredTransport) reserve(n int) time.Duration {
	if m.bytesPerSecond <= 0 || n <= 0 {
		return 0
	}
	cost := time.Duration(float64(n) / float64(m.bytesPerSecond) * float64(time.Second))
	now := time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.linkFree.Before(now) {
		m.linkFree = now
	}
	m.linkFree = m.linkFree.Add(cost)
	return m.linkFree.Sub(now)
}

type meteredBody struct {
	io.ReadCloser
	t *meteredTransport
}

func (b *meteredBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.t.bytes.Add(int64(n))
	if wait := b.t.reserve(n); wait > 0 {
		time.Sleep(wait)
	}
	return n, err
}

// parseHeader parses a "Key: Value" flag value.
func parseHeader(value string) (string, string, error) {
	key, val, ok := strings.Cut(value, ":")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", "", fmt.Errorf("invalid header %q, want \"Key: Value\"", value)
	}
	return key, strings.TrimSpace(val), nil
}

// rateUnits maps size suffixes, longest first, to their byte multiplier.
var rateUnits = []struct {
	suffix string
	scale  int64
}{
	{"kb", 1 << 10},
	{"mb", 1 << 20},
	{"k", 1 << 10},
	{"m", 1 << 20},
}

// parseRate parses a bandwidth such as "512", "64k", "10MBps" or "2MB/s".
func parseRate(value string) (int64, error) {
	text := strings.ToLower(strings.TrimSpace(value))
	for _, per := range []string{"bps", "/s"} {
		text = strings.TrimSuffix(text, per)
	}

	scale := int64(1)
	for _, u := range rateUnits {
		if strings.HasSuffix(text, u.suffix) {
			text, scale = strings.TrimSuffix(text, u.suffix), u.scale
			break
		}
	}

	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid rate %q", value)
	}
	return n * scale, nil
}
