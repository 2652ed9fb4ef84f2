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

package analyze

import (
	"sort"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

// Cycle is a strongly connected component of size >= 2 — a circular
// dependency among the nodes listed.
type Cycle struct {
	NodeIDs []string
}

// tarjanState holds the algorithm's working data for one run.
type tarjanState struct {
	index    int
	indices  map[string]int
	lowlink  map[string]int
	onStack  map[string]bool
	stack    []string
	adjacent map[string][]string
	result   []Cycle
}

// CircularDependencies finds every strongly connected component of size>=2
// in the name-linked call graph using Tarjan's algorithm.
func CircularDependencies(store *graph.Store) []Cycle {
	store.EnsureIndices()

	adjacent := make(map[string][]string)
	for _, e := range store.AllEdges() {
		for _, callee := range store.NodesByName(e.ToName) {
			adjacent[e.FromID] = append(adjacent[e.FromID], callee.ID)
		}
	}

	st := &tarjanState{
		indices:  make(map[string]int),
		lowlink:  make(map[string]int),
		onStack:  make(map[string]bool),
		adjacent: adjacent,
	}

	var ids []string
	for _, n := range store.AllNodes() {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids) // deterministic visiting order

	for _, id := range ids {
		if _, seen := st.indices[id]; !seen {
			st.strongConnect(id)
		}
	}

	sort.Slice(st.result, func(i, j int) bool {
		return st.result[i].NodeIDs[0] < st.result[j].NodeIDs[0]
	})
	return st.result
}

// strongConnect is the standard recursive formulation of Tarjan's
// algorithm. Call-graph depth at the scale this module targets (10^5
// nodes) does not require the iterative-stack rewrite some codebases use
// to avoid Go's goroutine stack growth cost.
func (st *tarjanState) strongConnect(v string) {
	st.indices[v] = st.index
	st.lowlink[v] = st.index
	st.index++
	st.stack = append(st.stack, v)
	st.onStack[v] = true

	neighbors := append([]string{}, st.adjacent[v]...)
	sort.Strings(neighbors)

	for _, w := range neighbors {
		if _, seen := st.indices[w]; !seen {
			st.strongConnect(w)
			if st.lowlink[w] < st.lowlink[v] {
				st.lowlink[v] = st.lowlink[w]
			}
		} else if st.onStack[w] {
			if st.indices[w] < st.lowlink[v] {
				st.lowlink[v] = st.indices[w]
			}
		}
	}

	if st.lowlink[v] == st.indices[v] {
		var component []string
		for {
			n := len(st.stack) - 1
			w := st.stack[n]
			st.stack = st.stack[:n]
			st.onStack[w] = false
			component = append(component, w)
			if w == v {
				break
			}
		}
		if len(component) >= 2 {
			sort.Strings(component)
			st.result = append(st.result, Cycle{NodeIDs: component})
		}
	}
}
