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

// Package analyze computes call-graph metrics: fan-in/fan-out complexity,
// callee hotspots, pairwise coupling, circular-dependency detection via
// Tarjan's SCC algorithm, and a cyclomatic-complexity estimate.
package analyze

import (
	"fmt"
	"sort"

	"github.com/shaharia-lab/codenav/pkg/graph"
	"github.com/shaharia-lab/codenav/pkg/query"
)

// Complexity reports fan-in/fan-out and the cyclomatic estimate for one
// node.
type Complexity struct {
	NodeID             string
	Name               string
	FanIn              int
	FanOut             int
	CyclomaticEstimate int
}

// NodeComplexity computes Complexity for every node in the store.
func NodeComplexity(store *graph.Store) []Complexity {
	store.EnsureIndices()
	nodes := store.AllNodes()
	out := make([]Complexity, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Complexity{
			NodeID:             n.ID,
			Name:               n.Name,
			FanOut:             len(store.OutgoingEdges(n.ID)),
			FanIn:              len(store.IncomingEdgesByName(n.Name)),
			CyclomaticEstimate: n.BranchCount + 1,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].NodeID < out[j].NodeID })
	return out
}

// Hotspot is a callee name ranked by how many distinct call sites target
// it.
type Hotspot struct {
	Name      string
	CallCount int
}

// Hotspots returns the top N callee names by incoming call-site count.
func Hotspots(store *graph.Store, topN int) []Hotspot {
	store.EnsureIndices()
	counts := make(map[string]int)
	for _, e := range store.AllEdges() {
		counts[e.ToName]++
	}
	hotspots := make([]Hotspot, 0, len(counts))
	for name, count := range counts {
		hotspots = append(hotspots, Hotspot{Name: name, CallCount: count})
	}
	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].CallCount != hotspots[j].CallCount {
			return hotspots[i].CallCount > hotspots[j].CallCount
		}
		return hotspots[i].Name < hotspots[j].Name
	})
	if topN > 0 && len(hotspots) > topN {
		hotspots = hotspots[:topN]
	}
	return hotspots
}

// CouplingPair reports two nodes that call into an overlapping set of
// callee names above a threshold.
type CouplingPair struct {
	NodeA         string
	NodeB         string
	SharedCallees int
	CouplingScore float64 // SharedCallees / min(|callees(A)|, |callees(B)|)
}

// maxCouplingNodes is the Open-Question-decided bail-out for the O(N^2)
// coupling analysis (see DESIGN.md).
const maxCouplingNodes = 20000

// Coupling computes pairwise callee-set overlap for every pair of nodes
// whose shared-callee count meets threshold. It refuses to run above
// maxCouplingNodes nodes unless force is true.
func Coupling(store *graph.Store, threshold int, force bool) ([]CouplingPair, error) {
	store.EnsureIndices()
	nodes := store.AllNodes()
	if len(nodes) > maxCouplingNodes && !force {
		return nil, &query.QueryError{Msg: fmt.Sprintf(
			"coupling analysis over %d nodes requires --force (got %d)", maxCouplingNodes, len(nodes))}
	}

	calleeSets := make([]map[string]bool, len(nodes))
	for i, n := range nodes {
		set := make(map[string]bool)
		for _, e := range store.OutgoingEdges(n.ID) {
			set[e.ToName] = true
		}
		calleeSets[i] = set
	}

	var pairs []CouplingPair
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			shared := 0
			for name := range calleeSets[i] {
				if calleeSets[j][name] {
					shared++
				}
			}
			if shared < threshold {
				continue
			}
			minSize := len(calleeSets[i])
			if len(calleeSets[j]) < minSize {
				minSize = len(calleeSets[j])
			}
			score := 0.0
			if minSize > 0 {
				score = float64(shared) / float64(minSize)
			}
			pairs = append(pairs, CouplingPair{
				NodeA: nodes[i].ID, NodeB: nodes[j].ID,
				SharedCallees: shared, CouplingScore: score,
			})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].SharedCallees != pairs[j].SharedCallees {
			return pairs[i].SharedCallees > pairs[j].SharedCallees
		}
		return pairs[i].NodeA < pairs[j].NodeA
	})
	return pairs, nil
}
