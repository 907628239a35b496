package core

import (
	"encoding/json"
	"fmt"
	"slices"
)

// CompressionExtensions lists extensions whose buffer views address a
// compressed stream rather than raw payload bytes.
var CompressionExtensions = []string{
	"EXT_meshopt_compression",
	"KHR_meshopt_compression",
}

// Document holds the parts of the JSON chunk this package inspects. The
// scene graph is left to the metadata parser.
type Document struct {
	ExtensionsUsed []string     `json:"extensionsUsed,omitempty"`
	Buffers        []Buffer     `json:"buffers,omitempty"`
	BufferViews    []BufferView `json:"bufferViews,omitempty"`
}

// Buffer describes a glTF buffer.
type Buffer struct {
	// URI is nil for the buffer stored in the container's BIN chunk.
	URI        *string `json:"uri,omitempty"`
	ByteLength int64   `json:"byteLength"`
	// Type is a storage hint. Empty and "arraybuffer" are the default.
	Type string `json:"type,omitempty"`
}

// BufferView describes a slice of a buffer. Absent offsets and lengths
// decode as zero.
type BufferView struct {
	Buffer     int   `json:"buffer"`
	ByteOffset int64 `json:"byteOffset,omitempty"`
	ByteLength int64 `json:"byteLength"`
	ByteStride int   `json:"byteStride,omitempty"`
}

// ParseDocument decodes the tables of a JSON chunk.
func ParseDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode JSON chunk: %w", ErrMalformedContainer, err)
	}
	return &doc, nil
}

// UsesExtension reports whether name appears in extensionsUsed.
func (d *Document) UsesExtension(name string) bool {
	return slices.Contains(d.ExtensionsUsed, name)
}

// compressionExtension returns the first compression extension the document
// declares, or "".
func (d *Document) compressionExtension() string {
	for _, ext := range CompressionExtensions {
		if d.UsesExtension(ext) {
			return ext
		}
	}
	return ""
}

// DefaultStorage reports whether the buffer uses the default in-memory storage type.
func (b Buffer) DefaultStorage() bool {
	return b.Type == "" || b.Type == "arraybuffer"
}
