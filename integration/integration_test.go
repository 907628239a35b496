//go:build integration

package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/glbrange"
	"github.com/meigma/glbrange/core"
)

func TestRangeLoadFromNginx(t *testing.T) {
	base := getServer(t)

	var views [][]byte
	parser := glbrange.ParserFunc(func(ctx context.Context, content *glbrange.Content, resourcePath string, src glbrange.BufferViewSource) (glbrange.Asset, error) {
		assert.Equal(t, base, resourcePath)
		for i := range content.Document.BufferViews {
			b, err := src.ResolveBufferView(ctx, i)
			if err != nil {
				return nil, err
			}
			views = append(views, b)
		}
		return content, nil
	})

	l, err := glbrange.New(glbrange.WithParser(parser), glbrange.WithPath(base))
	require.NoError(t, err)

	asset, err := l.Load(context.Background(), "scene.glb")
	require.NoError(t, err)

	content, ok := asset.(*glbrange.Content)
	require.True(t, ok)
	assert.Equal(t, int64(core.HeaderSize+2*core.ChunkHeaderSize+len(sceneJSON)), content.BinChunkOffset)

	want := payload()
	require.Len(t, views, 2)
	assert.Equal(t, want[:1024], views[0])
	assert.Equal(t, want[1024:], views[1])
}

func TestLegacyFallsBackFromNginx(t *testing.T) {
	base := getServer(t)

	var fellBack string
	full := glbrange.FullLoaderFunc(func(_ context.Context, url string, _ glbrange.ProgressFunc) (glbrange.Asset, error) {
		fellBack = url
		return nil, nil
	})
	parser := glbrange.ParserFunc(func(context.Context, *glbrange.Content, string, glbrange.BufferViewSource) (glbrange.Asset, error) {
		t.Fatal("parser must not run for a legacy container")
		return nil, nil
	})

	l, err := glbrange.New(glbrange.WithParser(parser), glbrange.WithFullLoader(full), glbrange.WithPath(base))
	require.NoError(t, err)

	_, err = l.Load(context.Background(), "legacy.glb")
	require.NoError(t, err)
	assert.Equal(t, base+"legacy.glb", fellBack)
}

func TestMissingAssetDoesNotProbe(t *testing.T) {
	base := getServer(t)

	l, err := glbrange.New(glbrange.WithParser(glbrange.ParserFunc(
		func(context.Context, *glbrange.Content, string, glbrange.BufferViewSource) (glbrange.Asset, error) {
			return nil, nil
		})))
	require.NoError(t, err)
	assert.False(t, l.Probe(context.Background(), base+"missing.glb"))
}
