package glbrange

import (
	"errors"

	"github.com/meigma/glbrange/core"
)

// Errors re-exported from core.
var (
	// ErrUnsupportedVersion is returned when the container predates version 2.
	ErrUnsupportedVersion = core.ErrUnsupportedVersion

	// ErrUnsupportedExtension is returned when the document declares a payload
	// compression extension.
	ErrUnsupportedExtension = core.ErrUnsupportedExtension

	// ErrMalformedContainer is returned when the chunk table is inconsistent.
	ErrMalformedContainer = core.ErrMalformedContainer

	// ErrTransport wraps any failure of the underlying range fetch.
	ErrTransport = core.ErrTransport

	// ErrNotApplicable signals that a buffer view must be resolved by other means.
	ErrNotApplicable = core.ErrNotApplicable

	// ErrBufferViewNotFound is returned for buffer view indexes outside the document.
	ErrBufferViewNotFound = core.ErrBufferViewNotFound
)

var (
	// ErrNotRangeable is returned when a probe finds no container served with
	// range support.
	ErrNotRangeable = errors.New("glbrange: resource is not a range-served container")

	// ErrNoFallback wraps a load failure when no full loader is configured.
	ErrNoFallback = errors.New("glbrange: no full loader configured")

	// ErrNoParser is returned by New when no metadata parser is configured.
	ErrNoParser = errors.New("glbrange: no metadata parser configured")
)
