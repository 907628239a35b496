package glbrange

import (
	"errors"
	"log/slog"

	"github.com/meigma/glbrange/core"
)

// Option configures a Loader.
type Option func(*Loader) error

// WithFetcher sets the range fetcher. The default is an http.Fetcher using
// http.DefaultClient.
func WithFetcher(f core.Fetcher) Option {
	return func(l *Loader) error {
		if f == nil {
			return errors.New("glbrange: nil fetcher")
		}
		l.fetcher = f
		return nil
	}
}

// WithParser sets the metadata parser.
func WithParser(p Parser) Option {
	return func(l *Loader) error {
		l.parser = p
		return nil
	}
}

// WithFullLoader sets the loader used when range loading is not possible.
func WithFullLoader(f FullLoader) Option {
	return func(l *Loader) error {
		l.full = f
		return nil
	}
}

// WithPath sets a prefix prepended to every URL passed to Load.
func WithPath(path string) Option {
	return func(l *Loader) error {
		l.path = path
		return nil
	}
}

// WithResourcePath sets the base passed to the parser for relative URIs.
func WithResourcePath(path string) Option {
	return func(l *Loader) error {
		l.resourcePath = path
		return nil
	}
}

// WithProgress sets a callback for load progress.
func WithProgress(fn ProgressFunc) Option {
	return func(l *Loader) error {
		l.progress = fn
		return nil
	}
}

// WithLogger sets the logger for load diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		l.logger = logger
		return nil
	}
}
