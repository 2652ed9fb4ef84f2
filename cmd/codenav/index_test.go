// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shaharia-lab/codenav/pkg/graph"
	"github.com/shaharia-lab/codenav/pkg/persist"
)

func TestCodecFromName(t *testing.T) {
	tests := []struct {
		name string
		want persist.Codec
	}{
		{"gzip", persist.CodecGzip},
		{"lz4", persist.CodecLZ4},
		{"raw", persist.CodecRaw},
		{"zstd", persist.CodecZstd},
		{"", persist.CodecZstd},
		{"unknown", persist.CodecZstd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codecFromName(tt.name))
		})
	}
}

func TestCountResolved(t *testing.T) {
	store := graph.NewStore()
	store.Merge(graph.SubGraph{
		Nodes: []graph.Node{
			{ID: "a.go:Foo:1", Name: "Foo", Kind: graph.KindFunction, FilePath: "a.go", Line: 1},
			{ID: "a.go:Bar:5", Name: "Bar", Kind: graph.KindFunction, FilePath: "a.go", Line: 5},
		},
		Edges: []graph.Edge{
			{FromID: "a.go:Foo:1", ToName: "Bar", CalleeID: "a.go:Bar:5"},
			{FromID: "a.go:Foo:1", ToName: "external.Unresolved"},
		},
	})
	store.ReindexAll()

	assert.Equal(t, 1, countResolved(store))
}
