package core

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Resolver serves buffer views from the BIN chunk of a loaded container.
//
// A Resolver holds no bytes. Every call issues a fresh range fetch, so it is
// safe for concurrent use.
type Resolver struct {
	fetcher        Fetcher
	url            string
	doc            *Document
	binChunkOffset int64
	binChunkLength int64
	hasBinChunk    bool
}

// NewResolver returns a Resolver for the container at url. doc is the
// metadata parser's view of the JSON chunk.
func NewResolver(f Fetcher, url string, content *Content, doc *Document) *Resolver {
	if doc == nil {
		doc = content.Document
	}
	return &Resolver{
		fetcher:        f,
		url:            url,
		doc:            doc,
		binChunkOffset: content.BinChunkOffset,
		binChunkLength: content.BinChunkLength,
		hasBinChunk:    content.HasBinChunk,
	}
}

// URL returns the container URL the resolver fetches from.
func (r *Resolver) URL() string {
	return r.url
}

// BinChunkOffset returns the absolute offset of the BIN chunk payload.
func (r *Resolver) BinChunkOffset() int64 {
	return r.binChunkOffset
}

// Range returns the absolute file range of buffer view index.
//
// It returns ErrNotApplicable if the view does not live in the container's
// BIN chunk: its buffer is not index 0, the buffer has a URI or a
// non-default storage type, or the container has no BIN chunk. A view
// that reaches outside the BIN chunk is ErrMalformedContainer.
func (r *Resolver) Range(index int) (off, length int64, err error) {
	if index < 0 || index >= len(r.doc.BufferViews) {
		return 0, 0, fmt.Errorf("%w: buffer view %d of %d", ErrBufferViewNotFound, index, len(r.doc.BufferViews))
	}
	view := r.doc.BufferViews[index]
	if view.Buffer != 0 {
		return 0, 0, fmt.Errorf("%w: buffer %d is not the BIN chunk", ErrNotApplicable, view.Buffer)
	}
	if len(r.doc.Buffers) == 0 {
		return 0, 0, fmt.Errorf("%w: buffer 0 of 0", ErrBufferViewNotFound)
	}
	buf := r.doc.Buffers[0]
	switch {
	case buf.URI != nil:
		return 0, 0, fmt.Errorf("%w: buffer 0 has uri", ErrNotApplicable)
	case !buf.DefaultStorage():
		return 0, 0, fmt.Errorf("%w: buffer 0 has storage type %q", ErrNotApplicable, buf.Type)
	case !r.hasBinChunk:
		return 0, 0, fmt.Errorf("%w: container has no BIN chunk", ErrNotApplicable)
	}
	if view.ByteOffset < 0 || view.ByteLength < 0 ||
		view.ByteOffset > r.binChunkLength || view.ByteLength > r.binChunkLength-view.ByteOffset {
		return 0, 0, fmt.Errorf("%w: buffer view %d spans %d+%d outside BIN chunk of %d bytes",
			ErrMalformedContainer, index, view.ByteOffset, view.ByteLength, r.binChunkLength)
	}
	return r.binChunkOffset + view.ByteOffset, view.ByteLength, nil
}

// ResolveBufferView fetches the bytes of buffer view index.
//
// ErrNotApplicable is returned, without a fetch, when the view must be
// resolved by other means. Fetch failures are wrapped in ErrTransport.
func (r *Resolver) ResolveBufferView(ctx context.Context, index int) ([]byte, error) {
	off, length, err := r.Range(index)
	if err != nil {
		return nil, err
	}
	b, err := r.fetcher.Fetch(ctx, r.url, off, length)
	if err != nil {
		return nil, transportError(fmt.Sprintf("fetch buffer view %d", index), err)
	}
	return b, nil
}

// ResolveBufferViews fetches several buffer views with at most concurrency
// fetches in flight. Results are returned in the order of indices. The first
// error cancels the remaining fetches.
func (r *Resolver) ResolveBufferViews(ctx context.Context, indices []int, concurrency int) ([][]byte, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	out := make([][]byte, len(indices))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)
	for i, index := range indices {
		eg.Go(func() error {
			b, err := r.ResolveBufferView(ctx, index)
			if err != nil {
				return err
			}
			out[i] = b
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
