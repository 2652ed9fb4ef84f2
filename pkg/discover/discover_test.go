// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package discover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

func writeTempGoFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestWalk_FiltersByExtensionAndExclude(t *testing.T) {
	dir := t.TempDir()
	writeTempGoFile(t, dir, "main.go", "package main\nfunc main() {}\n")
	writeTempGoFile(t, dir, "main_test.go", "package main\nfunc TestX(t *testing.T) {}\n")
	writeTempGoFile(t, dir, "notes.txt", "hello")

	files, err := Walk(Options{Root: dir})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Path)
}

func TestWalk_ExcludeGlobMatchesNestedDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "vendor", "nested", "deep"), 0o755))
	writeTempGoFile(t, dir, "main.go", "package main\n")
	writeTempGoFile(t, filepath.Join(dir, "vendor"), "lib.go", "package vendor\n")
	writeTempGoFile(t, filepath.Join(dir, "vendor", "nested", "deep"), "lib2.go", "package vendor\n")

	files, err := Walk(Options{Root: dir, ExcludeGlobs: []string{"vendor/**"}})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Path)
}

func TestWalk_IncludeTests(t *testing.T) {
	dir := t.TempDir()
	writeTempGoFile(t, dir, "main.go", "package main\n")
	writeTempGoFile(t, dir, "main_test.go", "package main\n")

	files, err := Walk(Options{Root: dir, IncludeTests: true})
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestWalk_IncrementalSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	writeTempGoFile(t, dir, "main.go", "package main\n")

	first, err := Walk(Options{Root: dir})
	require.NoError(t, err)
	require.Len(t, first, 1)

	manifest := BuildManifest(first)
	second, err := Walk(Options{Root: dir, Incremental: true, PriorManifest: manifest})
	require.NoError(t, err)
	assert.Len(t, second, 0)
}

func TestBatch_SplitsIntoFixedSizeGroups(t *testing.T) {
	files := make([]FileInfo, 250)
	batches := Batch(files)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 100)
	assert.Len(t, batches[2], 50)
}

func TestDispatch_MergesIntoStore(t *testing.T) {
	dir := t.TempDir()
	path := writeTempGoFile(t, dir, "a.go", "package a\nfunc Foo() { Bar() }\nfunc Bar() {}\n")

	files, err := Walk(Options{Root: dir})
	require.NoError(t, err)
	require.Len(t, files, 1)
	files[0].FullPath = path

	store := graph.NewStore()
	res := Dispatch(context.Background(), files, store, nil)
	assert.Equal(t, 1, res.FilesProcessed)
	assert.Empty(t, res.ParseErrors)

	store.EnsureIndices()
	assert.NotEmpty(t, store.NodesByName("Foo"))
	assert.NotEmpty(t, store.NodesByName("Bar"))
}
