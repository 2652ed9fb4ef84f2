// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package traverse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

// chain builds A -> B -> C -> D.
func chainStore() *graph.Store {
	s := graph.NewStore()
	s.Merge(graph.SubGraph{
		Nodes: []graph.Node{
			{ID: "f.go:A:1", Name: "A"},
			{ID: "f.go:B:2", Name: "B"},
			{ID: "f.go:C:3", Name: "C"},
			{ID: "f.go:D:4", Name: "D"},
		},
		Edges: []graph.Edge{
			{FromID: "f.go:A:1", ToName: "B", CalleeID: "f.go:B:2"},
			{FromID: "f.go:B:2", ToName: "C", CalleeID: "f.go:C:3"},
			{FromID: "f.go:C:3", ToName: "D", CalleeID: "f.go:D:4"},
		},
	})
	s.ReindexAll()
	return s
}

func TestDownstream_ReachesWithinDepth(t *testing.T) {
	s := chainStore()
	nodes, state, _ := Downstream(s, "f.go:A:1", 2, nil)
	assert.Equal(t, DepthExceeded, state) // D exists one hop past the bound
	names := nodeNames(nodes)
	assert.Contains(t, names, "B")
	assert.Contains(t, names, "C")
	assert.NotContains(t, names, "D")
}

func TestDownstream_FullyExhaustedWhenDepthCoversWholeGraph(t *testing.T) {
	s := chainStore()
	nodes, state, _ := Downstream(s, "f.go:A:1", 10, nil)
	assert.Equal(t, Exhausted, state)
	assert.Contains(t, nodeNames(nodes), "D")
}

func TestDownstream_Cancelled(t *testing.T) {
	s := chainStore()
	c := NewCancel()
	c.Set()
	_, state, _ := Downstream(s, "f.go:A:1", 5, c)
	assert.Equal(t, Cancelled, state)
}

func TestCallers_ReverseLookup(t *testing.T) {
	s := chainStore()
	callers := Callers(s, "C")
	require.Len(t, callers, 1)
	assert.Equal(t, "B", callers[0].Name)
}

func TestShortestPath_FindsChain(t *testing.T) {
	s := chainStore()
	path, state, _ := ShortestPath(s, "f.go:A:1", "D", nil)
	require.Equal(t, Found, state)
	names := nodeNames(path)
	assert.Equal(t, []string{"A", "B", "C", "D"}, names)
}

// TestShortestPath_NameCollisionNeedsMultiStart reproduces the case
// `codenav path` must handle: two unrelated definitions share the name
// "Dup", only one of which has any path to the target. A caller that tries
// just the first match (in ID order) misses the reachable one.
func TestShortestPath_NameCollisionNeedsMultiStart(t *testing.T) {
	s := graph.NewStore()
	s.Merge(graph.SubGraph{
		Nodes: []graph.Node{
			{ID: "a.go:Dup:1", Name: "Dup"},
			{ID: "b.go:Dup:1", Name: "Dup"},
			{ID: "b.go:Target:2", Name: "Target"},
		},
		Edges: []graph.Edge{
			{FromID: "b.go:Dup:1", ToName: "Target", CalleeID: "b.go:Target:2"},
		},
	})
	s.ReindexAll()

	// The lexicographically-first match has no path at all.
	_, state, _ := ShortestPath(s, "a.go:Dup:1", "Target", nil)
	assert.Equal(t, Exhausted, state)

	// The second match does — a caller must try every start in the name's
	// by_name set, not just the first.
	path, state, _ := ShortestPath(s, "b.go:Dup:1", "Target", nil)
	require.Equal(t, Found, state)
	assert.Equal(t, []string{"Dup", "Target"}, nodeNames(path))
}

func TestShortestPath_NotFound(t *testing.T) {
	s := chainStore()
	_, state, _ := ShortestPath(s, "f.go:D:4", "A", nil)
	assert.Equal(t, Exhausted, state)
}

func TestKPaths_FindsAtLeastOnePath(t *testing.T) {
	s := chainStore()
	paths, state, _ := KPaths(s, "f.go:A:1", "D", 5, 3, nil)
	require.Equal(t, Found, state)
	require.NotEmpty(t, paths)
	assert.Equal(t, "D", paths[0][len(paths[0])-1].Name)
}

func nodeNames(nodes []graph.Node) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return names
}
