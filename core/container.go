package core

import (
	"context"
	"fmt"
)

// Content is the result of walking a container's chunk table.
type Content struct {
	// Header is the decoded container header.
	Header Header

	// JSON is the raw JSON chunk payload.
	JSON []byte

	// Document holds the tables decoded from JSON.
	Document *Document

	// BinChunkOffset is the absolute file offset of the BIN chunk payload.
	// It is only meaningful when HasBinChunk is true.
	BinChunkOffset int64

	// BinChunkLength is the declared length of the BIN chunk payload.
	BinChunkLength int64

	// HasBinChunk reports whether the container carries a BIN chunk.
	HasBinChunk bool
}

// LoadContainer walks the chunk table of the container at url.
//
// Only the header, each chunk header and the JSON chunk payload are fetched.
// The BIN chunk is located but never read. Chunks are walked one at a time
// because every offset depends on the previous chunk's length.
func LoadContainer(ctx context.Context, f Fetcher, url string) (*Content, error) {
	b, err := f.Fetch(ctx, url, 0, HeaderSize)
	if err != nil {
		return nil, transportError("fetch header", err)
	}
	header, err := ParseHeader(b)
	if err != nil {
		return nil, err
	}
	if header.Magic != Magic {
		return nil, fmt.Errorf("%w: magic %q, want %q", ErrMalformedContainer, header.Magic, Magic)
	}
	if header.Version < MinVersion {
		return nil, fmt.Errorf("%w: version %d is a legacy container", ErrUnsupportedVersion, header.Version)
	}
	total := int64(header.Length)
	if total < HeaderSize {
		return nil, fmt.Errorf("%w: total length %d is shorter than the header", ErrMalformedContainer, total)
	}

	content := &Content{Header: header}
	offset := int64(HeaderSize)
	for offset < total {
		if offset+ChunkHeaderSize > total {
			return nil, fmt.Errorf("%w: chunk header at %d overruns total length %d", ErrMalformedContainer, offset, total)
		}
		b, err := f.Fetch(ctx, url, offset, ChunkHeaderSize)
		if err != nil {
			return nil, transportError(fmt.Sprintf("fetch chunk header at %d", offset), err)
		}
		chunk, err := ParseChunkHeader(b)
		if err != nil {
			return nil, err
		}
		offset += ChunkHeaderSize

		length := int64(chunk.Length)
		if offset+length > total {
			return nil, fmt.Errorf("%w: %s chunk at %d with length %d overruns total length %d",
				ErrMalformedContainer, chunk.Type, offset, length, total)
		}

		switch chunk.Type {
		case ChunkJSON:
			if content.JSON != nil {
				return nil, fmt.Errorf("%w: second JSON chunk at %d", ErrMalformedContainer, offset)
			}
			data, err := f.Fetch(ctx, url, offset, length)
			if err != nil {
				return nil, transportError("fetch JSON chunk", err)
			}
			if data == nil {
				data = []byte{}
			}
			content.JSON = data
		case ChunkBIN:
			if content.HasBinChunk {
				return nil, fmt.Errorf("%w: second BIN chunk at %d", ErrMalformedContainer, offset)
			}
			content.BinChunkOffset = offset
			content.BinChunkLength = length
			content.HasBinChunk = true
		}
		// Unknown chunk types are skipped.

		offset += length
	}

	if content.JSON == nil {
		return nil, fmt.Errorf("%w: no JSON chunk", ErrMalformedContainer)
	}
	doc, err := ParseDocument(content.JSON)
	if err != nil {
		return nil, err
	}
	if ext := doc.compressionExtension(); ext != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, ext)
	}
	content.Document = doc
	return content, nil
}
