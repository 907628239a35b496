package glbrange_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/glbrange"
	"github.com/meigma/glbrange/core"
	"github.com/meigma/glbrange/internal/testutil"
)

const sceneJSON = `{"asset":{"version":"2.0"},"buffers":[{"byteLength":8}],"bufferViews":[{"buffer":0,"byteOffset":2,"byteLength":4}]}`

var payload = []byte("01234567")

// recordingParser resolves every buffer view during Parse and returns them
// as the asset.
type recordingParser struct {
	resourcePath string
	err          error
}

func (p *recordingParser) Parse(ctx context.Context, content *glbrange.Content, resourcePath string, views glbrange.BufferViewSource) (glbrange.Asset, error) {
	p.resourcePath = resourcePath
	if p.err != nil {
		return nil, p.err
	}
	var out [][]byte
	for i := range content.Document.BufferViews {
		b, err := views.ResolveBufferView(ctx, i)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

type fullLoaderStub struct {
	calls []string
}

func (f *fullLoaderStub) Load(_ context.Context, url string, _ glbrange.ProgressFunc) (glbrange.Asset, error) {
	f.calls = append(f.calls, url)
	return "full:" + url, nil
}

type progressLog struct {
	mu     sync.Mutex
	events []glbrange.ProgressEvent
}

func (p *progressLog) record(e glbrange.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *progressLog) stages() []glbrange.ProgressStage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]glbrange.ProgressStage, len(p.events))
	for i, e := range p.events {
		out[i] = e.Stage
	}
	return out
}

func TestLoaderLoadRanged(t *testing.T) {
	data := testutil.BuildGLB(2, testutil.JSONChunk(sceneJSON), testutil.BINChunk(payload))
	url := testutil.ServeGLB(t, data)

	parser := &recordingParser{}
	full := &fullLoaderStub{}
	progress := &progressLog{}
	l, err := glbrange.New(
		glbrange.WithParser(parser),
		glbrange.WithFullLoader(full),
		glbrange.WithProgress(progress.record),
	)
	require.NoError(t, err)

	asset, err := l.Load(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{payload[2:6]}, asset)
	assert.Empty(t, full.calls)
	assert.Equal(t, strings.TrimSuffix(url, "asset.glb"), parser.resourcePath)
	assert.Equal(t, []glbrange.ProgressStage{
		glbrange.StageProbing,
		glbrange.StageLoadingContainer,
		glbrange.StageParsing,
		glbrange.StageDone,
	}, progress.stages())
}

func TestLoaderFallback(t *testing.T) {
	cases := []struct {
		name      string
		data      []byte
		serve     func(testing.TB, []byte) string
		parserErr error
		wantCause error
	}{
		{
			name:      "ranges unsupported",
			data:      testutil.BuildGLB(2, testutil.JSONChunk(sceneJSON), testutil.BINChunk(payload)),
			serve:     testutil.ServeWithoutRanges,
			wantCause: glbrange.ErrNotRangeable,
		},
		{
			name:      "not a glb",
			data:      []byte(sceneJSON),
			serve:     testutil.ServeGLB,
			wantCause: glbrange.ErrNotRangeable,
		},
		{
			name:      "legacy version",
			data:      testutil.BuildGLB(1, testutil.JSONChunk(sceneJSON)),
			serve:     testutil.ServeGLB,
			wantCause: glbrange.ErrUnsupportedVersion,
		},
		{
			name:      "compression extension",
			data:      testutil.BuildGLB(2, testutil.JSONChunk(`{"asset":{"version":"2.0"},"extensionsUsed":["EXT_meshopt_compression"]}`)),
			serve:     testutil.ServeGLB,
			wantCause: glbrange.ErrUnsupportedExtension,
		},
		{
			name:      "parser rejects document",
			data:      testutil.BuildGLB(2, testutil.JSONChunk(sceneJSON), testutil.BINChunk(payload)),
			serve:     testutil.ServeGLB,
			parserErr: errors.New("missing scene"),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			url := tc.serve(t, tc.data)
			full := &fullLoaderStub{}
			progress := &progressLog{}
			l, err := glbrange.New(
				glbrange.WithParser(&recordingParser{err: tc.parserErr}),
				glbrange.WithFullLoader(full),
				glbrange.WithProgress(progress.record),
			)
			require.NoError(t, err)

			asset, err := l.Load(context.Background(), url)
			require.NoError(t, err)
			assert.Equal(t, "full:"+url, asset)
			assert.Equal(t, []string{url}, full.calls)

			var fallback *glbrange.ProgressEvent
			for _, e := range progress.events {
				if e.Stage == glbrange.StageFallback {
					fallback = &e
				}
			}
			require.NotNil(t, fallback)
			if tc.wantCause != nil {
				assert.ErrorIs(t, fallback.Err, tc.wantCause)
			}
			if tc.parserErr != nil {
				assert.ErrorIs(t, fallback.Err, tc.parserErr)
			}
		})
	}
}

func TestLoaderNoFallback(t *testing.T) {
	url := testutil.ServeGLB(t, testutil.BuildGLB(1, testutil.JSONChunk(sceneJSON)))
	l, err := glbrange.New(glbrange.WithParser(&recordingParser{}))
	require.NoError(t, err)

	_, err = l.Load(context.Background(), url)
	require.ErrorIs(t, err, glbrange.ErrNoFallback)
	require.ErrorIs(t, err, glbrange.ErrUnsupportedVersion)
}

func TestLoaderBufferViewFailureDoesNotFallBack(t *testing.T) {
	data := testutil.BuildGLB(2, testutil.JSONChunk(sceneJSON), testutil.BINChunk(payload))
	const url = "https://assets.example/scene.glb"
	f := testutil.NewMemoryFetcher(url, data)

	full := &fullLoaderStub{}
	parser := glbrange.ParserFunc(func(ctx context.Context, content *glbrange.Content, _ string, views glbrange.BufferViewSource) (glbrange.Asset, error) {
		f.FailWith(errors.New("connection reset"))
		_, err := views.ResolveBufferView(ctx, 0)
		return nil, fmt.Errorf("decode mesh: %w", err)
	})
	l, err := glbrange.New(
		glbrange.WithFetcher(f),
		glbrange.WithParser(parser),
		glbrange.WithFullLoader(full),
	)
	require.NoError(t, err)

	_, err = l.Load(context.Background(), url)
	require.ErrorIs(t, err, glbrange.ErrTransport)
	assert.Empty(t, full.calls)
}

func TestLoaderPaths(t *testing.T) {
	data := testutil.BuildGLB(2, testutil.JSONChunk(sceneJSON), testutil.BINChunk(payload))
	const base = "https://cdn.example/models/"
	f := testutil.NewMemoryFetcher(base+"robot.glb", data)

	cases := []struct {
		name string
		opts []glbrange.Option
		url  string
		want string
	}{
		{name: "url base", url: base + "robot.glb", want: base},
		{name: "path prefix", opts: []glbrange.Option{glbrange.WithPath(base)}, url: "robot.glb", want: base},
		{
			name: "resource path",
			opts: []glbrange.Option{glbrange.WithPath(base), glbrange.WithResourcePath("https://textures.example/")},
			url:  "robot.glb",
			want: "https://textures.example/",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			parser := &recordingParser{}
			opts := append([]glbrange.Option{glbrange.WithFetcher(f), glbrange.WithParser(parser)}, tc.opts...)
			l, err := glbrange.New(opts...)
			require.NoError(t, err)

			_, err = l.Load(context.Background(), tc.url)
			require.NoError(t, err)
			assert.Equal(t, tc.want, parser.resourcePath)
		})
	}
}

func TestLoaderCanceledContextDoesNotFallBack(t *testing.T) {
	url := testutil.ServeGLB(t, testutil.BuildGLB(2, testutil.JSONChunk(sceneJSON)))
	full := &fullLoaderStub{}
	l, err := glbrange.New(glbrange.WithParser(&recordingParser{}), glbrange.WithFullLoader(full))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Load(ctx, url)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, glbrange.ErrNotRangeable)
	assert.Empty(t, full.calls)
}

func TestLoaderCanceledDuringWalk(t *testing.T) {
	data := testutil.BuildGLB(2, testutil.JSONChunk(sceneJSON), testutil.BINChunk(payload))
	const url = "https://assets.example/scene.glb"
	mem := testutil.NewMemoryFetcher(url, data)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	// Cancel after the probe succeeds so the walk sees a dead context.
	fetcher := core.FetcherFunc(func(fctx context.Context, u string, off, length int64) ([]byte, error) {
		calls++
		if calls > 1 {
			cancel()
			return nil, fctx.Err()
		}
		return mem.Fetch(fctx, u, off, length)
	})

	full := &fullLoaderStub{}
	l, err := glbrange.New(
		glbrange.WithFetcher(fetcher),
		glbrange.WithParser(&recordingParser{}),
		glbrange.WithFullLoader(full),
	)
	require.NoError(t, err)

	_, err = l.Load(ctx, url)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, glbrange.ErrTransport)
	assert.Empty(t, full.calls)
}

func TestNewRequiresParser(t *testing.T) {
	_, err := glbrange.New()
	require.ErrorIs(t, err, glbrange.ErrNoParser)

	_, err = glbrange.New(glbrange.WithParser(&recordingParser{}), glbrange.WithFetcher(nil))
	require.Error(t, err)
}

func TestURLBase(t *testing.T) {
	assert.Equal(t, "https://a.example/m/", glbrange.URLBase("https://a.example/m/x.glb"))
	assert.Equal(t, "./", glbrange.URLBase("x.glb"))
}
