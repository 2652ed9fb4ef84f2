// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/codenav/pkg/analyze"
	"github.com/shaharia-lab/codenav/pkg/discover"
	"github.com/shaharia-lab/codenav/pkg/graph"
	"github.com/shaharia-lab/codenav/pkg/persist"
	"github.com/shaharia-lab/codenav/pkg/query"
	"github.com/shaharia-lab/codenav/pkg/traverse"
)

// indexDir walks and dispatches every file under dir into a fresh,
// fully-indexed Store, the same discover.Walk -> discover.Dispatch pipeline
// `codenav index` runs.
func indexDir(t *testing.T, dir string) *graph.Store {
	t.Helper()
	files, err := discover.Walk(discover.Options{Root: dir})
	require.NoError(t, err)

	store := graph.NewStore()
	res := discover.Dispatch(context.Background(), files, store, nil)
	require.Empty(t, res.ParseErrors)
	store.EnsureIndices()
	return store
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

// TestEndToEnd_TwoFileChain covers scenario 1: a call chain split across two
// files must produce one edge per call and resolve callers/trace/path
// consistently with the merged graph.
func TestEndToEnd_TwoFileChain(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package sample\n\nfunc foo() { bar() }\n")
	writeFile(t, dir, "b.go", "package sample\n\nfunc bar() { baz() }\nfunc baz() {}\n")

	store := indexDir(t, dir)
	stats := store.Stats()
	assert.Equal(t, 3, stats.Nodes)
	assert.Equal(t, 2, stats.Edges)

	callers := traverse.Callers(store, "bar")
	require.Len(t, callers, 1)
	assert.Equal(t, "foo", callers[0].Name)

	fooNodes, err := query.Run(store, query.Filter{NameExact: "foo"})
	require.NoError(t, err)
	require.Len(t, fooNodes, 1)

	nodes, state, _ := traverse.Downstream(store, fooNodes[0].ID, 2, nil)
	require.Equal(t, traverse.Exhausted, state)
	names := map[string]bool{}
	for _, n := range nodes {
		names[n.Name] = true
	}
	assert.True(t, names["bar"])
	assert.True(t, names["baz"])

	path, state, _ := traverse.ShortestPath(store, fooNodes[0].ID, "baz", nil)
	require.Equal(t, traverse.Found, state)
	require.Len(t, path, 3)
	assert.Equal(t, "foo", path[0].Name)
	assert.Equal(t, "bar", path[1].Name)
	assert.Equal(t, "baz", path[2].Name)
}

// TestEndToEnd_NameCollision covers scenario 2: two files each define a
// function with the same name; both must surface as distinct candidates for
// query and as independent traversal starts.
func TestEndToEnd_NameCollision(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package sample\n\nfunc process() {}\n")
	writeFile(t, dir, "b.go", "package sample\n\nfunc process() {}\nfunc caller() { process() }\n")

	store := indexDir(t, dir)
	matches, err := query.Run(store, query.Filter{NameExact: "process"})
	require.NoError(t, err)
	assert.Len(t, matches, 2)

	callers := traverse.Callers(store, "process")
	require.Len(t, callers, 1)
	assert.Equal(t, "caller", callers[0].Name)
}

// TestEndToEnd_Cycle covers scenario 3: a 3-node cycle a -> b -> c -> a must
// be traced without infinite recursion and detected as a single SCC.
func TestEndToEnd_Cycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cycle.go", `package sample

func a() { b() }
func b() { c() }
func c() { a() }
`)

	store := indexDir(t, dir)
	aNodes, err := query.Run(store, query.Filter{NameExact: "a"})
	require.NoError(t, err)
	require.Len(t, aNodes, 1)

	nodes, state, _ := traverse.Downstream(store, aNodes[0].ID, 10, nil)
	require.Equal(t, traverse.Exhausted, state)
	seen := map[string]int{}
	for _, n := range nodes {
		seen[n.Name]++
	}
	assert.LessOrEqual(t, seen["b"], 1)
	assert.LessOrEqual(t, seen["c"], 1)

	cycles := analyze.CircularDependencies(store)
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0].NodeIDs, 3)
}

// TestEndToEnd_UnreachablePath covers scenario 4: a path query between two
// nodes with no connecting call must report Exhausted with no crash and no
// result, not an error.
func TestEndToEnd_UnreachablePath(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "main.go", "package sample\n\nfunc main() {}\nfunc isolated() {}\n")

	store := indexDir(t, dir)
	mainNodes, err := query.Run(store, query.Filter{NameExact: "main"})
	require.NoError(t, err)
	require.Len(t, mainNodes, 1)

	path, state, _ := traverse.ShortestPath(store, mainNodes[0].ID, "isolated", nil)
	assert.Equal(t, traverse.Exhausted, state)
	assert.Empty(t, path)
}

// TestEndToEnd_IncrementalReindex covers scenario 5: an incremental walk
// after editing one file must return only that file, and a full re-index of
// the final tree must carry the edited file's new call edge.
func TestEndToEnd_IncrementalReindex(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package sample\n\nfunc foo() {}\n")
	writeFile(t, dir, "b.go", "package sample\n\nfunc bar() {}\n")
	writeFile(t, dir, "c.go", "package sample\n\nfunc baz() {}\n")

	first, err := discover.Walk(discover.Options{Root: dir})
	require.NoError(t, err)
	require.Len(t, first, 3)
	manifest := discover.BuildManifest(first)

	// Edit one file; its content and mtime change, the other two are
	// untouched.
	writeFile(t, dir, "a.go", "package sample\n\nfunc foo() { bar() }\n")

	second, err := discover.Walk(discover.Options{Root: dir, Incremental: true, PriorManifest: manifest})
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "a.go", second[0].Path)

	// A full re-index of the final tree must show foo's new call to bar.
	fullFiles, err := discover.Walk(discover.Options{Root: dir})
	require.NoError(t, err)
	full := graph.NewStore()
	discover.Dispatch(context.Background(), fullFiles, full, nil)
	full.EnsureIndices()

	fooNodes := full.NodesByName("foo")
	require.Len(t, fooNodes, 1)
	outgoing := full.OutgoingEdges(fooNodes[0].ID)
	require.Len(t, outgoing, 1)
	assert.Equal(t, "bar", outgoing[0].ToName)
}

// TestEndToEnd_CodecInterop covers scenario 6: a graph saved under any
// supported codec reads back identically under the current reader.
func TestEndToEnd_CodecInterop(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", "package sample\n\nfunc foo() { bar() }\nfunc bar() {}\n")
	store := indexDir(t, dir)

	codecs := []persist.Codec{persist.CodecRaw, persist.CodecGzip, persist.CodecZstd, persist.CodecLZ4}
	var want *graph.Stats
	for _, codec := range codecs {
		path := filepath.Join(t.TempDir(), "codenav.bin")
		require.NoError(t, persist.Save(path, store, nil, codec))

		loaded, err := persist.Load(path)
		require.NoError(t, err)
		loaded.EnsureIndices()

		stats := loaded.Stats()
		if want == nil {
			want = &stats
		}
		assert.Equal(t, *want, stats)

		fooNodes := loaded.NodesByName("foo")
		require.Len(t, fooNodes, 1)
		assert.Len(t, loaded.OutgoingEdges(fooNodes[0].ID), 1)
	}
}
