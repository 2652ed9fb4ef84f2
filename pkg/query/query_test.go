// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

// largeStore builds a store with n nodes, one of which is uniquely named
// "Target" and the rest named "Noisy0".."NoisyN" so a name-exact lookup
// against it hits the by_name index directly while a name-wildcard lookup
// must fall back to a full scan-and-match.
func largeStore(n int) *graph.Store {
	s := graph.NewStore()
	nodes := make([]graph.Node, 0, n)
	for i := 0; i < n; i++ {
		nodes = append(nodes, graph.Node{
			ID:       fmt.Sprintf("f.go:Noisy%d:%d", i, i),
			Name:     fmt.Sprintf("Noisy%d", i),
			Kind:     graph.KindFunction,
			FilePath: "f.go",
		})
	}
	nodes = append(nodes, graph.Node{ID: "f.go:Target:999999", Name: "Target", Kind: graph.KindFunction, FilePath: "f.go"})
	s.Merge(graph.SubGraph{Nodes: nodes})
	s.ReindexAll()
	return s
}

func buildStore() *graph.Store {
	s := graph.NewStore()
	s.Merge(graph.SubGraph{Nodes: []graph.Node{
		{ID: "a.go:HandleGet:1", Name: "HandleGet", Kind: graph.KindFunction, FilePath: "a.go", Package: "http", Exported: true},
		{ID: "a.go:HandlePost:2", Name: "HandlePost", Kind: graph.KindFunction, FilePath: "a.go", Package: "http", Exported: true},
		{ID: "b.go:helper:1", Name: "helper", Kind: graph.KindFunction, FilePath: "b.go", Package: "http", Exported: false},
		{ID: "c.go:Worker:1", Name: "Worker", Kind: graph.KindClass, FilePath: "c.go", Package: "worker", Exported: true},
	}})
	s.ReindexAll()
	return s
}

func TestRun_NameExact(t *testing.T) {
	nodes, err := Run(buildStore(), Filter{NameExact: "HandleGet"})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "HandleGet", nodes[0].Name)
}

func TestRun_NameWildcard(t *testing.T) {
	nodes, err := Run(buildStore(), Filter{NameWildcard: "Handle*"})
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestRun_KindAndExported(t *testing.T) {
	nodes, err := Run(buildStore(), Filter{Kind: graph.KindFunction, ExportedOnly: true})
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestRun_FileGlob(t *testing.T) {
	nodes, err := Run(buildStore(), Filter{FilePattern: "a.go"})
	require.NoError(t, err)
	assert.Len(t, nodes, 2)
}

func TestRun_InvalidGlobReturnsQueryError(t *testing.T) {
	_, err := Run(buildStore(), Filter{NameWildcard: "["})
	require.Error(t, err)
	var qerr *QueryError
	assert.ErrorAs(t, err, &qerr)
}

// TestRun_NameExactBeatsNameWildcardOnLargeFixture validates the
// selectivity-ordering contract: a name-exact lookup goes straight to the
// by_name index and must stay faster than a name-wildcard scan over the
// same large candidate set, where every node has to be glob-matched.
func TestRun_NameExactBeatsNameWildcardOnLargeFixture(t *testing.T) {
	store := largeStore(20000)

	start := time.Now()
	exact, err := Run(store, Filter{NameExact: "Target"})
	exactElapsed := time.Since(start)
	require.NoError(t, err)
	require.Len(t, exact, 1)

	start = time.Now()
	wildcard, err := Run(store, Filter{NameWildcard: "Target"})
	wildcardElapsed := time.Since(start)
	require.NoError(t, err)
	require.Len(t, wildcard, 1)

	assert.Less(t, exactElapsed, wildcardElapsed,
		"name-exact (%s) should beat name-wildcard (%s) on a %d-node store", exactElapsed, wildcardElapsed, 20000)
}

func BenchmarkRun_NameExact(b *testing.B) {
	store := largeStore(20000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Run(store, Filter{NameExact: "Target"})
	}
}

func BenchmarkRun_NameWildcard(b *testing.B) {
	store := largeStore(20000)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Run(store, Filter{NameWildcard: "Target"})
	}
}
