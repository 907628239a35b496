// Package core walks binary glTF (GLB) containers over byte-range fetches.
//
// A container is a 12-byte header followed by length-prefixed chunks:
//   - JSON chunk: the glTF document, fetched in full by [LoadContainer]
//   - BIN chunk: the binary payload, located but never fetched up front
//
// [Probe] checks with a single 4-byte fetch whether a resource is a container
// served with range support. [LoadContainer] walks the chunk table and
// returns the JSON document plus the absolute offset of the BIN payload.
// A [Resolver] then fetches individual buffer views on demand.
package core
