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

package graph

import (
	"sort"
	"sync"
)

// SubGraph is the output of extracting a single file or batch of files,
// ready to be merged into a Store.
type SubGraph struct {
	Nodes []Node
	Edges []Edge
}

// Store holds the full node/edge set plus five lookup indices:
//
//   - nodeByID:  id -> slot in nodes
//   - byName:    name -> slots in nodes
//   - byKind:    kind -> slots in nodes
//   - outgoing:  from_id -> slots in edges
//   - incoming:  callee name -> slots in edges (reverse lookup)
//
// Merge, MergeBulk, RemoveFile, ReindexAll and EnsureIndices take the
// exclusive lock; every query and traversal operation takes a shared read
// lock after EnsureIndices has run.
type Store struct {
	mu sync.RWMutex

	nodes []Node
	edges []Edge

	nodeByID map[string]int32
	byName   map[string][]int32
	byKind   map[NodeKind][]int32
	outgoing map[string][]int32 // keyed by Edge.FromID
	incoming map[string][]int32 // keyed by Edge.ToName

	dirty bool
}

// NewStore returns an empty, ready-to-use Store.
func NewStore() *Store {
	return &Store{
		nodeByID: make(map[string]int32),
		byName:   make(map[string][]int32),
		byKind:   make(map[NodeKind][]int32),
		outgoing: make(map[string][]int32),
		incoming: make(map[string][]int32),
	}
}

// Merge appends a SubGraph's nodes and edges into the store and, on the
// default path, updates the five node/edge indices incrementally rather
// than deferring to a full rebuild — this is the path discover.Dispatch
// takes once per extracted file, and it must keep indices hot rather than
// making every query pay for a stale-on-every-merge dirty flag. A node
// whose ID already exists is replaced in place (a changed file's
// re-index); since the replacement may carry a different name or kind
// than what it's replacing, that case falls back to marking the store
// dirty so the next read repairs the indices with a full rebuild instead
// of leaving a stale by_name/by_type entry behind.
func (s *Store) Merge(sg SubGraph) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for _, n := range sg.Nodes {
		if slot, ok := s.nodeByID[n.ID]; ok {
			s.nodes[slot] = n
			replaced = true
			continue
		}
		idx := int32(len(s.nodes))
		s.nodes = append(s.nodes, n)
		if !s.dirty {
			s.nodeByID[n.ID] = idx
			s.insertByNameLocked(n.Name, idx)
			s.byKind[n.Kind] = append(s.byKind[n.Kind], idx)
		}
	}

	edgeStart := len(s.edges)
	s.edges = append(s.edges, sg.Edges...)
	if !s.dirty {
		for i := edgeStart; i < len(s.edges); i++ {
			idx := int32(i)
			e := s.edges[i]
			s.outgoing[e.FromID] = append(s.outgoing[e.FromID], idx)
			s.incoming[e.ToName] = append(s.incoming[e.ToName], idx)
		}
	}

	if replaced {
		s.dirty = true
	}
}

// MergeBulk appends a SubGraph's nodes and edges without maintaining
// indices incrementally, deferring all index construction to the next
// EnsureIndices or ReindexAll call. This is the bulk-append path the data
// model reserves dirty-bit deferral for: Persistence's Load reads an
// entire graph back in one shot, where building indices entry-by-entry
// during the merge would be pure overhead before the first read ever
// happens.
func (s *Store) MergeBulk(sg SubGraph) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range sg.Nodes {
		if slot, ok := s.nodeByID[n.ID]; ok {
			s.nodes[slot] = n
		} else {
			s.nodes = append(s.nodes, n)
		}
	}
	s.edges = append(s.edges, sg.Edges...)
	s.dirty = true
}

// insertByNameLocked adds idx to byName[name], keeping the slice ordered
// by node ID the same way reindexAllLocked leaves it — callers read
// by_name results assuming that order.
func (s *Store) insertByNameLocked(name string, idx int32) {
	slice := append(s.byName[name], idx)
	sort.Slice(slice, func(i, j int) bool {
		return s.nodes[slice[i]].ID < s.nodes[slice[j]].ID
	})
	s.byName[name] = slice
}

// RemoveFile drops every node defined in filePath and every edge whose
// source node was in filePath. Used by incremental indexing for a
// previously-seen file that changed or no longer exists.
func (s *Store) RemoveFile(filePath string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := make(map[string]bool)
	kept := s.nodes[:0]
	for _, n := range s.nodes {
		if n.FilePath == filePath {
			removed[n.ID] = true
			continue
		}
		kept = append(kept, n)
	}
	s.nodes = kept

	keptEdges := s.edges[:0]
	for _, e := range s.edges {
		if removed[e.FromID] {
			continue
		}
		keptEdges = append(keptEdges, e)
	}
	s.edges = keptEdges
	s.dirty = true
}

// EnsureIndices rebuilds the five indices if the store has been mutated
// since the last rebuild. Safe to call before every read; it is a no-op
// when the store is clean.
func (s *Store) EnsureIndices() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureIndicesLocked()
}

func (s *Store) ensureIndicesLocked() {
	if !s.dirty {
		return
	}
	s.reindexAllLocked()
	s.dirty = false
}

// ReindexAll unconditionally rebuilds every index from nodes/edges. It
// produces index content identical (after per-key sort) to the lazy
// incremental path — this equivalence is property P4's contract.
func (s *Store) ReindexAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reindexAllLocked()
	s.dirty = false
}

func (s *Store) reindexAllLocked() {
	s.nodeByID = make(map[string]int32, len(s.nodes))
	s.byName = make(map[string][]int32)
	s.byKind = make(map[NodeKind][]int32)
	s.outgoing = make(map[string][]int32)
	s.incoming = make(map[string][]int32)

	for i, n := range s.nodes {
		idx := int32(i)
		s.nodeByID[n.ID] = idx
		s.byName[n.Name] = append(s.byName[n.Name], idx)
		s.byKind[n.Kind] = append(s.byKind[n.Kind], idx)
	}
	for i, e := range s.edges {
		idx := int32(i)
		s.outgoing[e.FromID] = append(s.outgoing[e.FromID], idx)
		s.incoming[e.ToName] = append(s.incoming[e.ToName], idx)
	}

	for k := range s.byName {
		sort.Slice(s.byName[k], func(i, j int) bool {
			return s.nodes[s.byName[k][i]].ID < s.nodes[s.byName[k][j]].ID
		})
	}
}

// Indices is a snapshot of the store's five lookup indices, exported so
// persist can serialize them into the sidecar cache and restore them
// directly on a cache hit instead of rebuilding from nodes/edges.
type Indices struct {
	NodeByID map[string]int32
	ByName   map[string][]int32
	ByKind   map[NodeKind][]int32
	Outgoing map[string][]int32
	Incoming map[string][]int32
}

// Indices returns a snapshot of the store's current indices. The store must
// be clean (EnsureIndices/ReindexAll called since the last mutation) for the
// snapshot to be complete.
func (s *Store) Indices() Indices {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Indices{
		NodeByID: s.nodeByID,
		ByName:   s.byName,
		ByKind:   s.byKind,
		Outgoing: s.outgoing,
		Incoming: s.incoming,
	}
}

// NewStoreFromIndices builds a Store directly from a previously-serialized
// snapshot, skipping reindexAllLocked entirely. This is the fast path a
// valid sidecar cache hit takes: nodes and edges are still read back from
// the container payload, but the five index maps are deserialized rather
// than recomputed.
func NewStoreFromIndices(nodes []Node, edges []Edge, idx Indices) *Store {
	return &Store{
		nodes:    nodes,
		edges:    edges,
		nodeByID: idx.NodeByID,
		byName:   idx.ByName,
		byKind:   idx.ByKind,
		outgoing: idx.Outgoing,
		incoming: idx.Incoming,
		dirty:    false,
	}
}

// --- read accessors; callers must have called EnsureIndices first. ---

// NodeByID returns the node with the given ID.
func (s *Store) NodeByID(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.nodeByID[id]
	if !ok {
		return Node{}, false
	}
	return s.nodes[idx], true
}

// NodesByName returns all nodes with an exact name match.
func (s *Store) NodesByName(name string) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idxs := s.byName[name]
	out := make([]Node, len(idxs))
	for i, idx := range idxs {
		out[i] = s.nodes[idx]
	}
	return out
}

// NodesByKind returns all nodes of the given kind.
func (s *Store) NodesByKind(kind NodeKind) []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idxs := s.byKind[kind]
	out := make([]Node, len(idxs))
	for i, idx := range idxs {
		out[i] = s.nodes[idx]
	}
	return out
}

// AllNodes returns a copy of every node in the store.
func (s *Store) AllNodes() []Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Node, len(s.nodes))
	copy(out, s.nodes)
	return out
}

// AllEdges returns a copy of every edge in the store.
func (s *Store) AllEdges() []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out
}

// OutgoingEdges returns every edge whose FromID matches id (callees of id).
func (s *Store) OutgoingEdges(id string) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idxs := s.outgoing[id]
	out := make([]Edge, len(idxs))
	for i, idx := range idxs {
		out[i] = s.edges[idx]
	}
	return out
}

// IncomingEdgesByName returns every edge whose ToName matches name
// (callers of name) — an O(1) reverse lookup.
func (s *Store) IncomingEdgesByName(name string) []Edge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idxs := s.incoming[name]
	out := make([]Edge, len(idxs))
	for i, idx := range idxs {
		out[i] = s.edges[idx]
	}
	return out
}

// Stats reports coarse store size, used by the CLI's `status`-style output.
type Stats struct {
	Nodes int
	Edges int
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{Nodes: len(s.nodes), Edges: len(s.edges)}
}
