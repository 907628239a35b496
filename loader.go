package glbrange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/meigma/glbrange/core"
	glbhttp "github.com/meigma/glbrange/http"
)

// Asset is whatever the metadata parser or full loader produces.
type Asset any

// Content is the result of walking a container's chunk table.
type Content = core.Content

// Document holds the tables of a container's JSON chunk.
type Document = core.Document

// BufferViewSource supplies buffer view bytes to a metadata parser.
//
// ResolveBufferView returns ErrNotApplicable when the view must be loaded
// by the parser's own means.
type BufferViewSource interface {
	ResolveBufferView(ctx context.Context, index int) ([]byte, error)
}

// Parser interprets a container's JSON document.
//
// resourcePath is the base for resolving relative URIs in the document.
// views serves buffer views stored in the container's BIN chunk. The parser
// may keep views for the lifetime of the returned asset.
type Parser interface {
	Parse(ctx context.Context, content *Content, resourcePath string, views BufferViewSource) (Asset, error)
}

// ParserFunc adapts a function to the Parser interface.
type ParserFunc func(ctx context.Context, content *Content, resourcePath string, views BufferViewSource) (Asset, error)

// Parse calls f.
func (f ParserFunc) Parse(ctx context.Context, content *Content, resourcePath string, views BufferViewSource) (Asset, error) {
	return f(ctx, content, resourcePath, views)
}

// FullLoader downloads and parses an asset without range requests.
type FullLoader interface {
	Load(ctx context.Context, url string, progress ProgressFunc) (Asset, error)
}

// FullLoaderFunc adapts a function to the FullLoader interface.
type FullLoaderFunc func(ctx context.Context, url string, progress ProgressFunc) (Asset, error)

// Load calls f.
func (f FullLoaderFunc) Load(ctx context.Context, url string, progress ProgressFunc) (Asset, error) {
	return f(ctx, url, progress)
}

// Loader loads GLB assets with HTTP range requests, fetching only the header,
// the chunk table and the JSON chunk up front.
//
// Load is the single fallback point: when the probe fails, the container
// cannot be walked or the parser rejects the document, the asset is handed
// to the configured FullLoader. Buffer view transport failures never fall
// back, whether they occur during or after the parse.
type Loader struct {
	fetcher      core.Fetcher
	parser       Parser
	full         FullLoader
	path         string
	resourcePath string
	progress     ProgressFunc
	logger       *slog.Logger
}

// New creates a Loader with the given options. A Parser is required.
func New(opts ...Option) (*Loader, error) {
	l := &Loader{}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	if l.parser == nil {
		return nil, ErrNoParser
	}
	if l.fetcher == nil {
		l.fetcher = glbhttp.NewFetcher(glbhttp.WithLogger(l.log()))
	}
	return l, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (l *Loader) log() *slog.Logger {
	if l.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.logger
}

func (l *Loader) emit(stage ProgressStage, url string, err error) {
	if l.progress != nil {
		l.progress(ProgressEvent{Stage: stage, URL: url, Err: err})
	}
}

// AssetURL returns url with the configured path prefix applied.
func (l *Loader) AssetURL(url string) string {
	return l.path + url
}

// Probe reports whether url serves a container with range support.
func (l *Loader) Probe(ctx context.Context, url string) bool {
	return core.Probe(ctx, l.fetcher, l.AssetURL(url))
}

// LoadContainer walks the chunk table of url. Errors are returned as-is;
// LoadContainer never falls back.
func (l *Loader) LoadContainer(ctx context.Context, url string) (*Content, error) {
	return core.LoadContainer(ctx, l.fetcher, l.AssetURL(url))
}

// Load loads the asset at url.
func (l *Loader) Load(ctx context.Context, url string) (Asset, error) {
	assetURL := l.AssetURL(url)
	log := l.log().With(slog.String("url", assetURL))

	l.emit(StageProbing, assetURL, nil)
	if !core.Probe(ctx, l.fetcher, assetURL) {
		return l.fallback(ctx, assetURL, ErrNotRangeable)
	}

	l.emit(StageLoadingContainer, assetURL, nil)
	content, err := core.LoadContainer(ctx, l.fetcher, assetURL)
	if err != nil {
		return l.fallback(ctx, assetURL, err)
	}
	log.Debug("container loaded",
		slog.Int("json_bytes", len(content.JSON)),
		slog.Bool("bin_chunk", content.HasBinChunk),
		slog.Int64("bin_chunk_offset", content.BinChunkOffset))

	l.emit(StageParsing, assetURL, nil)
	resolver := core.NewResolver(l.fetcher, assetURL, content, nil)
	asset, err := l.parser.Parse(ctx, content, l.resourceBase(assetURL), resolver)
	if err != nil {
		// Metadata is committed to ranged retrieval once views are being
		// fetched, so buffer view transport failures surface directly.
		if errors.Is(err, core.ErrTransport) {
			return nil, fmt.Errorf("load %s: %w", assetURL, err)
		}
		return l.fallback(ctx, assetURL, fmt.Errorf("parse: %w", err))
	}

	l.emit(StageDone, assetURL, nil)
	return asset, nil
}

func (l *Loader) fallback(ctx context.Context, url string, cause error) (Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w: %w", url, err, cause)
	}
	if l.full == nil {
		return nil, fmt.Errorf("load %s: %w: %w", url, ErrNoFallback, cause)
	}

	l.log().Info("falling back to full download",
		slog.String("url", url),
		slog.Any("error", cause))
	l.emit(StageFallback, url, cause)
	return l.full.Load(ctx, url, l.progress)
}

// resourceBase returns the base for relative URIs: the configured resource
// path, else the configured path prefix, else url up to its last slash.
func (l *Loader) resourceBase(url string) string {
	if l.resourcePath != "" {
		return l.resourcePath
	}
	if l.path != "" {
		return l.path
	}
	return URLBase(url)
}

// URLBase returns url up to and including its last slash, or "./" if url
// has none.
func URLBase(url string) string {
	i := strings.LastIndex(url, "/")
	if i < 0 {
		return "./"
	}
	return url[:i+1]
}
