// Package glbrange loads binary glTF (GLB) assets over HTTP range requests.
//
// Instead of downloading the whole file, a [Loader] fetches the 12-byte
// header, walks the chunk table and downloads only the JSON chunk. Buffer
// views stored in the BIN chunk are fetched later, one range request each,
// when the metadata parser asks for them.
//
// # Quick Start
//
//	l, err := glbrange.New(
//	    glbrange.WithParser(parser),
//	    glbrange.WithFullLoader(fullLoader),
//	)
//	if err != nil {
//	    return err
//	}
//	asset, err := l.Load(ctx, "https://assets.example/scene.glb")
//
// # Fallback
//
// Load falls back to the [FullLoader] when the server does not honor range
// requests, the resource is not a GLB, the container is a legacy version,
// uses a payload compression extension, or the parser rejects it. This is
// the only place a fallback happens: [core.LoadContainer] and the buffer
// view resolver always return their errors.
//
// For lower-level access use the [core] and [http] subpackages directly.
package glbrange
