// Command glbfetch inspects a remote GLB asset with HTTP range requests.
//
// It probes the URL, walks the chunk table, and optionally fetches buffer
// views, printing a sha256 digest for each one and the number of bytes
// transferred compared with the container size.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/glbrange/core"
	glbhttp "github.com/meigma/glbrange/http"
)

type config struct {
	url            string
	local          string
	views          string
	concurrency    int
	latency        time.Duration
	bytesPerSecond int64
	timeout        time.Duration
	headers        headerFlags
	printJSON      bool
	verbose        bool
}

type headerFlags []string

func (h *headerFlags) String() string {
	return strings.Join(*h, ", ")
}

func (h *headerFlags) Set(value string) error {
	if _, _, err := parseHeader(value); err != nil {
		return err
	}
	*h = append(*h, value)
	return nil
}

func main() {
	cfg := parseFlags()

	if cfg.local != "" {
		url, cleanup, err := serveLocal(cfg.local)
		if err != nil {
			log.Fatal(err)
		}
		defer cleanup()
		cfg.url = url
	}

	if err := run(context.Background(), cfg, os.Stdout); err != nil {
		log.Fatal(err) //nolint:gocritic // exitAfterDefer is intentional - cleanup is best-effort
	}
}

func parseFlags() config {
	var cfg config
	var bps string
	flag.StringVar(&cfg.url, "url", "", "GLB URL")
	flag.StringVar(&cfg.local, "local", "", "serve a local GLB file and fetch it over HTTP")
	flag.StringVar(&cfg.views, "views", "", "buffer views to fetch: \"all\" or a comma-separated list of indexes")
	flag.IntVar(&cfg.concurrency, "concurrency", 4, "concurrent buffer view fetches")
	flag.DurationVar(&cfg.latency, "latency", 0, "per-request latency to simulate")
	flag.StringVar(&bps, "bps", "", "bytes/sec throttle to simulate (e.g. 10MBps)")
	flag.DurationVar(&cfg.timeout, "timeout", 30*time.Second, "per-request timeout")
	flag.Var(&cfg.headers, "header", "default request header \"Key: Value\" (repeatable)")
	flag.BoolVar(&cfg.printJSON, "json", false, "print the JSON chunk")
	flag.BoolVar(&cfg.verbose, "v", false, "log each range request")
	flag.Parse()
	if bps != "" {
		v, err := parseRate(bps)
		if err != nil {
			log.Fatalf("bps: %v", err)
		}
		cfg.bytesPerSecond = v
	}
	if cfg.url == "" && cfg.local == "" {
		log.Fatal("one of -url or -local is required")
	}
	return cfg
}

//nolint:gocritic // hugeParam acceptable for config struct in CLI tool
func run(ctx context.Context, cfg config, w io.Writer) error {
	logger := slog.New(slog.DiscardHandler)
	if cfg.verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	headers := make(nethttp.Header)
	for _, h := range cfg.headers {
		key, value, err := parseHeader(h)
		if err != nil {
			return err
		}
		headers.Add(key, value)
	}

	transport := newMeteredTransport(cfg)
	fetcher := glbhttp.NewFetcher(
		glbhttp.WithClient(transport.client(cfg.timeout)),
		glbhttp.WithHeaders(headers),
		glbhttp.WithLogger(logger),
	)

	start := time.Now()
	if !core.Probe(ctx, fetcher, cfg.url) {
		return fmt.Errorf("%s: not a GLB served with range support", cfg.url)
	}
	content, err := core.LoadContainer(ctx, fetcher, cfg.url)
	if err != nil {
		return err
	}

	doc := content.Document
	fmt.Fprintf(w, "url=%s version=%d length=%d json=%d\n",
		cfg.url, content.Header.Version, content.Header.Length, len(content.JSON))
	if content.HasBinChunk {
		fmt.Fprintf(w, "bin_offset=%d bin_length=%d\n", content.BinChunkOffset, content.BinChunkLength)
	}
	fmt.Fprintf(w, "buffers=%d buffer_views=%d extensions=%s\n",
		len(doc.Buffers), len(doc.BufferViews), strings.Join(doc.ExtensionsUsed, ","))
	if cfg.printJSON {
		fmt.Fprintf(w, "%s\n", content.JSON)
	}

	indices, err := parseViews(cfg.views, len(doc.BufferViews))
	if err != nil {
		return err
	}
	r := core.NewResolver(fetcher, cfg.url, content, nil)
	var fetchable []int
	for _, i := range indices {
		off, length, err := r.Range(i)
		switch {
		case errors.Is(err, core.ErrNotApplicable):
			fmt.Fprintf(w, "view %d not applicable: %v\n", i, err)
		case err != nil:
			return err
		default:
			fmt.Fprintf(w, "view %d offset=%d length=%d\n", i, off, length)
			fetchable = append(fetchable, i)
		}
	}
	results, err := r.ResolveBufferViews(ctx, fetchable, cfg.concurrency)
	if err != nil {
		return err
	}
	for i, b := range results {
		fmt.Fprintf(w, "view %d digest=%s\n", fetchable[i], digest.FromBytes(b))
	}

	transferred := transport.bytes.Load()
	fmt.Fprintf(w, "requests=%d transferred=%d elapsed=%s ratio=%.2f%%\n",
		transport.requests.Load(),
		transferred,
		time.Since(start).Round(time.Millisecond),
		100*float64(transferred)/float64(max(content.Header.Length, 1)),
	)
	return nil
}

// parseViews expands a -views value into buffer view indexes.
func parseViews(value string, count int) ([]int, error) {
	value = strings.TrimSpace(value)
	switch value {
	case "":
		return nil, nil
	case "all":
		out := make([]int, count)
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	var out []int
	for _, part := range strings.Split(value, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || i < 0 || i >= count {
			return nil, fmt.Errorf("invalid buffer view %q (document has %d)", part, count)
		}
		out = append(out, i)
	}
	return out, nil
}
