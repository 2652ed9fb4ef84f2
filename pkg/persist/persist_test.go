// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

func sampleStore() *graph.Store {
	s := graph.NewStore()
	s.Merge(graph.SubGraph{
		Nodes: []graph.Node{
			{ID: "a.go:Foo:1", Name: "Foo", Kind: graph.KindFunction, FilePath: "a.go", Line: 1},
		},
		Edges: []graph.Edge{{FromID: "a.go:Foo:1", ToName: "Bar"}},
	})
	s.ReindexAll()
	return s
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	codecs := map[string]Codec{"raw": CodecRaw, "gzip": CodecGzip, "zstd": CodecZstd, "lz4": CodecLZ4}
	for name, codec := range codecs {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "graph.bin")

			require.NoError(t, Save(path, sampleStore(), nil, codec))

			loaded, err := Load(path)
			require.NoError(t, err)
			loaded.EnsureIndices()

			assert.Equal(t, graph.Stats{Nodes: 1, Edges: 1}, loaded.Stats())
			n, ok := loaded.NodeByID("a.go:Foo:1")
			require.True(t, ok)
			assert.Equal(t, "Foo", n.Name)
		})
	}
}

func TestLoadManifest_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.bin")

	manifest := map[string]any{"a.go": map[string]any{"size": float64(123), "mtime": float64(456)}}
	require.NoError(t, Save(path, sampleStore(), manifest, CodecZstd))

	raw, err := LoadManifest(path)
	require.NoError(t, err)
	require.NotNil(t, raw)
	assert.Contains(t, string(raw), "a.go")
}

func TestLoadManifest_NoneEmbedded(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.bin")
	require.NoError(t, Save(path, sampleStore(), nil, CodecZstd))

	raw, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestLoad_UsesSidecarIndicesOnValidHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.bin")
	require.NoError(t, Save(path, sampleStore(), nil, CodecZstd))
	require.NoError(t, ValidateSidecar(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, graph.Stats{Nodes: 1, Edges: 1}, loaded.Stats())
	n, ok := loaded.NodeByID("a.go:Foo:1")
	require.True(t, ok)
	assert.Equal(t, "Foo", n.Name)
	callers := loaded.IncomingEdgesByName("Bar")
	require.Len(t, callers, 1)
	assert.Equal(t, "a.go:Foo:1", callers[0].FromID)
}

func TestLoad_FallsBackWhenSidecarMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.bin")
	require.NoError(t, Save(path, sampleStore(), nil, CodecZstd))
	require.NoError(t, os.Remove(sidecarPath(path)))

	loaded, err := Load(path)
	require.NoError(t, err)
	loaded.EnsureIndices()
	assert.Equal(t, graph.Stats{Nodes: 1, Edges: 1}, loaded.Stats())
}

func TestValidateSidecar_DetectsStaleness(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.bin")
	require.NoError(t, Save(path, sampleStore(), nil, CodecZstd))
	assert.NoError(t, ValidateSidecar(path))

	// Overwrite the sidecar directly with a hash that won't match the
	// container's actual payload.
	require.NoError(t, writeSidecar(path, []byte("not the real payload"), sampleStore()))

	err := ValidateSidecar(path)
	var stale *CacheStale
	assert.ErrorAs(t, err, &stale)
}
