// Copyright 2025 KrakLabs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package traverse implements the call-graph traversal operations: bounded
// downstream trace, O(1) reverse-caller lookup, BFS shortest path, and
// bounded DFS k-paths, all sharing one cooperative-cancellation contract.
package traverse

import (
	"sort"
	"sync/atomic"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

// maxNodesExplored bounds every traversal so a pathological or cyclic graph
// can't turn a trace into an unbounded scan.
const maxNodesExplored = 5000

// State is the traversal state machine's current phase.
type State string

const (
	Idle          State = "idle"
	Running       State = "running"
	Found         State = "found"
	Exhausted     State = "exhausted"
	DepthExceeded State = "depth_exceeded"
	Cancelled     State = "cancelled"
)

// TraversalLimit reports that a traversal stopped because it hit
// maxNodesExplored or a caller-supplied depth bound without finding
// anything further.
type TraversalLimit struct {
	Msg string
}

func (e *TraversalLimit) Error() string { return "traverse: " + e.Msg }

// Stats reports how much work a traversal did.
type Stats struct {
	NodesVisited   int
	EdgesTraversed int
}

// Cancel is a cooperative cancellation flag checked at every node visit.
// The zero value is "not cancelled"; callers share one Cancel across a
// traversal call and a separate goroutine (or a context-linked watcher)
// to let the caller interrupt it mid-flight.
type Cancel struct {
	flag atomic.Bool
}

func (c *Cancel) Set()        { c.flag.Store(true) }
func (c *Cancel) IsSet() bool { return c.flag.Load() }

// NewCancel returns a fresh, unset Cancel flag.
func NewCancel() *Cancel { return &Cancel{} }

// Downstream performs a bounded DFS from start, returning every node
// reachable within maxDepth hops. State is Exhausted when the search
// finished on its own, DepthExceeded when maxDepth was hit at the frontier
// or the maxNodesExplored budget ran out, Cancelled when cancel fired
// mid-search.
func Downstream(store *graph.Store, start string, maxDepth int, cancel *Cancel) ([]graph.Node, State, Stats) {
	store.EnsureIndices()

	visited := map[string]bool{start: true}
	var result []graph.Node
	stats := Stats{}
	hitDepthLimit := false

	var dfs func(id string, depth int) State
	dfs = func(id string, depth int) State {
		if cancel != nil && cancel.IsSet() {
			return Cancelled
		}
		if stats.NodesVisited >= maxNodesExplored {
			hitDepthLimit = true
			return Exhausted
		}
		if depth > maxDepth {
			hitDepthLimit = true
			return Exhausted
		}
		stats.NodesVisited++

		for _, e := range store.OutgoingEdges(id) {
			stats.EdgesTraversed++
			calleeID := e.CalleeID
			if calleeID == "" {
				continue // name-only edge with no resolved node to descend into
			}
			if depth+1 > maxDepth {
				hitDepthLimit = true
				continue
			}
			if visited[calleeID] {
				continue
			}
			visited[calleeID] = true
			if n, ok := store.NodeByID(calleeID); ok {
				result = append(result, n)
			}
			if st := dfs(calleeID, depth+1); st == Cancelled {
				return Cancelled
			}
		}
		return Exhausted
	}

	st := dfs(start, 0)
	if st == Cancelled {
		return result, Cancelled, stats
	}
	if hitDepthLimit {
		return result, DepthExceeded, stats
	}
	return result, Exhausted, stats
}

// Callers returns every node with an edge naming target — an O(1) reverse
// lookup via the store's incoming-edge index.
func Callers(store *graph.Store, targetName string) []graph.Node {
	store.EnsureIndices()
	var out []graph.Node
	seen := map[string]bool{}
	for _, e := range store.IncomingEdgesByName(targetName) {
		if seen[e.FromID] {
			continue
		}
		seen[e.FromID] = true
		if n, ok := store.NodeByID(e.FromID); ok {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ShortestPath runs BFS from sourceID to a node named targetName, breaking
// ties between equally-short paths by lexicographically smallest node ID at
// each step, for deterministic output.
func ShortestPath(store *graph.Store, sourceID, targetName string, cancel *Cancel) ([]graph.Node, State, Stats) {
	store.EnsureIndices()

	type frontierEntry struct {
		id   string
		path []string
	}

	visited := map[string]bool{sourceID: true}
	queue := []frontierEntry{{id: sourceID, path: []string{sourceID}}}
	stats := Stats{}

	for len(queue) > 0 {
		if cancel != nil && cancel.IsSet() {
			return nil, Cancelled, stats
		}
		if stats.NodesVisited >= maxNodesExplored {
			return nil, Exhausted, stats
		}

		cur := queue[0]
		queue = queue[1:]
		stats.NodesVisited++

		edges := store.OutgoingEdges(cur.id)
		next := make([]string, 0, len(edges))
		nextByID := map[string]bool{}
		for _, e := range edges {
			stats.EdgesTraversed++
			if e.ToName == targetName {
				return resolvePath(store, cur.path, e), Found, stats
			}
			if e.CalleeID != "" && !visited[e.CalleeID] && !nextByID[e.CalleeID] {
				next = append(next, e.CalleeID)
				nextByID[e.CalleeID] = true
			}
		}
		sort.Strings(next)
		for _, id := range next {
			visited[id] = true
			queue = append(queue, frontierEntry{id: id, path: append(append([]string{}, cur.path...), id)})
		}
	}
	return nil, Exhausted, stats
}

func resolvePath(store *graph.Store, pathIDs []string, finalEdge graph.Edge) []graph.Node {
	out := make([]graph.Node, 0, len(pathIDs)+1)
	for _, id := range pathIDs {
		if n, ok := store.NodeByID(id); ok {
			out = append(out, n)
		}
	}
	if finalEdge.CalleeID != "" {
		if n, ok := store.NodeByID(finalEdge.CalleeID); ok {
			out = append(out, n)
			return out
		}
	}
	out = append(out, graph.Node{Name: finalEdge.ToName})
	return out
}

// KPaths performs a bounded DFS enumerating up to maxPaths distinct simple
// paths (no repeated node) from sourceID to a node named targetName, each
// no longer than maxDepth hops. Paths are found in lexicographic-tie-break
// order for determinism.
func KPaths(store *graph.Store, sourceID, targetName string, maxDepth, maxPaths int, cancel *Cancel) ([][]graph.Node, State, Stats) {
	store.EnsureIndices()

	var paths [][]graph.Node
	stats := Stats{}
	visiting := map[string]bool{sourceID: true}
	state := Exhausted

	var dfs func(id string, path []graph.Node, depth int) bool // returns true to stop
	dfs = func(id string, path []graph.Node, depth int) bool {
		if cancel != nil && cancel.IsSet() {
			state = Cancelled
			return true
		}
		if len(paths) >= maxPaths {
			return true
		}
		if stats.NodesVisited >= maxNodesExplored {
			state = Exhausted
			return true
		}
		stats.NodesVisited++
		if depth >= maxDepth {
			state = DepthExceeded
			return false
		}

		edges := store.OutgoingEdges(id)
		sort.Slice(edges, func(i, j int) bool {
			if edges[i].CalleeID != edges[j].CalleeID {
				return edges[i].CalleeID < edges[j].CalleeID
			}
			return edges[i].ToName < edges[j].ToName
		})

		for _, e := range edges {
			stats.EdgesTraversed++
			if e.ToName == targetName {
				state = Found
				found := append(append([]graph.Node{}, path...), graph.Node{Name: targetName, ID: e.CalleeID})
				paths = append(paths, found)
				if len(paths) >= maxPaths {
					return true
				}
				continue
			}
			if e.CalleeID == "" || visiting[e.CalleeID] {
				continue
			}
			n, ok := store.NodeByID(e.CalleeID)
			if !ok {
				continue
			}
			visiting[e.CalleeID] = true
			stop := dfs(e.CalleeID, append(path, n), depth+1)
			delete(visiting, e.CalleeID)
			if stop {
				return true
			}
		}
		return false
	}

	var start graph.Node
	if n, ok := store.NodeByID(sourceID); ok {
		start = n
	}
	dfs(sourceID, []graph.Node{start}, 0)

	return paths, state, stats
}
