package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for container loading and buffer view resolution.
var (
	// ErrUnsupportedVersion is returned when the container predates version 2.
	ErrUnsupportedVersion = errors.New("glb: unsupported container version")

	// ErrUnsupportedExtension is returned when the JSON chunk declares a
	// payload compression extension that changes the meaning of buffer views.
	ErrUnsupportedExtension = errors.New("glb: unsupported extension")

	// ErrMalformedContainer is returned when the chunk table is inconsistent
	// with the container header.
	ErrMalformedContainer = errors.New("glb: malformed container")

	// ErrTransport wraps any failure of the underlying range fetch.
	ErrTransport = errors.New("glb: transport error")

	// ErrNotApplicable signals that a buffer view cannot be served from the
	// container's binary chunk and must be resolved by other means.
	ErrNotApplicable = errors.New("glb: buffer view not applicable")

	// ErrBufferViewNotFound is returned when a buffer view or its buffer index
	// is outside the document's tables.
	ErrBufferViewNotFound = errors.New("glb: buffer view not found")
)

// transportError wraps a fetch failure so that both ErrTransport and the
// original cause match with errors.Is.
func transportError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}
