package core

import (
	"encoding/binary"
	"fmt"
)

// Binary container layout.
// See https://registry.khronos.org/glTF/specs/2.0/glTF-2.0.html#glb-file-format-specification
const (
	// Magic is the 4-byte tag at offset 0 of every container.
	Magic = "glTF"

	// HeaderSize is the size of the container header in bytes.
	HeaderSize = 12

	// ChunkHeaderSize is the size of the length and type prefix of each chunk.
	ChunkHeaderSize = 8

	// MinVersion is the lowest container version this package can walk.
	MinVersion = 2
)

// ChunkType identifies the payload of a chunk.
type ChunkType uint32

// Chunk types defined by the container format.
const (
	// ChunkJSON holds the UTF-8 JSON document.
	ChunkJSON ChunkType = 0x4E4F534A

	// ChunkBIN holds the binary payload referenced by buffer 0.
	ChunkBIN ChunkType = 0x004E4942
)

// String returns the ASCII tag of known chunk types.
func (t ChunkType) String() string {
	switch t {
	case ChunkJSON:
		return "JSON"
	case ChunkBIN:
		return "BIN"
	default:
		return fmt.Sprintf("0x%08X", uint32(t))
	}
}

// Header is the fixed container header.
type Header struct {
	Magic   string
	Version uint32
	// Length is the total byte length of the container, header included.
	Length uint32
}

// ChunkHeader is the prefix written before every chunk payload.
type ChunkHeader struct {
	Length uint32
	Type   ChunkType
}

// ParseHeader decodes a container header. The magic is not validated.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: header is %d bytes, want %d", ErrMalformedContainer, len(b), HeaderSize)
	}
	return Header{
		Magic:   string(b[0:4]),
		Version: binary.LittleEndian.Uint32(b[4:8]),
		Length:  binary.LittleEndian.Uint32(b[8:12]),
	}, nil
}

// ParseChunkHeader decodes the length and type prefix of a chunk.
func ParseChunkHeader(b []byte) (ChunkHeader, error) {
	if len(b) < ChunkHeaderSize {
		return ChunkHeader{}, fmt.Errorf("%w: chunk header is %d bytes, want %d", ErrMalformedContainer, len(b), ChunkHeaderSize)
	}
	return ChunkHeader{
		Length: binary.LittleEndian.Uint32(b[0:4]),
		Type:   ChunkType(binary.LittleEndian.Uint32(b[4:8])),
	}, nil
}

// AppendHeader appends the encoded header to b.
func AppendHeader(b []byte, h Header) []byte {
	b = append(b, h.Magic...)
	b = binary.LittleEndian.AppendUint32(b, h.Version)
	return binary.LittleEndian.AppendUint32(b, h.Length)
}

// AppendChunkHeader appends the encoded chunk header to b.
func AppendChunkHeader(b []byte, h ChunkHeader) []byte {
	b = binary.LittleEndian.AppendUint32(b, h.Length)
	return binary.LittleEndian.AppendUint32(b, uint32(h.Type))
}
