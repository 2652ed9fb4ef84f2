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

// Package query implements filtered lookups over a graph.Store: exact name,
// wildcard name, kind, file, and package filters composed with a fixed
// selectivity ordering so the cheapest filter always narrows first.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shaharia-lab/codenav/pkg/globmatch"
	"github.com/shaharia-lab/codenav/pkg/graph"
)

// Filter is the set of optional predicates a query can apply. Empty fields
// are ignored.
type Filter struct {
	NameExact    string
	NameWildcard string // glob pattern, e.g. "Handle*"
	Kind         graph.NodeKind
	FilePattern  string // glob pattern against Node.FilePath
	Package      string
	ExportedOnly bool
}

// QueryError reports a malformed filter (e.g. an invalid glob pattern).
type QueryError struct {
	Msg string
}

func (e *QueryError) Error() string { return "query: " + e.Msg }

// Run applies f against store, in selectivity order: name-exact, then kind,
// then file-glob, then name-wildcard — each stage narrows the candidate set
// the next stage scans.
func Run(store *graph.Store, f Filter) ([]graph.Node, error) {
	store.EnsureIndices()

	var candidates []graph.Node
	switch {
	case f.NameExact != "":
		candidates = store.NodesByName(f.NameExact)
	case f.Kind != "":
		candidates = store.NodesByKind(f.Kind)
	default:
		candidates = store.AllNodes()
	}

	if f.NameExact != "" && f.Kind != "" {
		candidates = filterByKind(candidates, f.Kind)
	}

	if f.FilePattern != "" {
		var err error
		candidates, err = filterByFileGlob(candidates, f.FilePattern)
		if err != nil {
			return nil, err
		}
	}

	if f.NameWildcard != "" {
		var err error
		candidates, err = filterByNameGlob(candidates, f.NameWildcard)
		if err != nil {
			return nil, err
		}
	}

	if f.Package != "" {
		candidates = filterByPackage(candidates, f.Package)
	}

	if f.ExportedOnly {
		candidates = filterExported(candidates)
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].ID < candidates[j].ID })
	return candidates, nil
}

func filterByKind(nodes []graph.Node, kind graph.NodeKind) []graph.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func filterByFileGlob(nodes []graph.Node, pattern string) ([]graph.Node, error) {
	if err := globmatch.Validate(pattern); err != nil {
		return nil, &QueryError{Msg: fmt.Sprintf("invalid file pattern %q: %v", pattern, err)}
	}
	out := nodes[:0:0]
	for _, n := range nodes {
		if globmatch.Match(n.FilePath, pattern) {
			out = append(out, n)
		}
	}
	return out, nil
}

func filterByNameGlob(nodes []graph.Node, pattern string) ([]graph.Node, error) {
	if err := globmatch.Validate(pattern); err != nil {
		return nil, &QueryError{Msg: fmt.Sprintf("invalid name pattern %q: %v", pattern, err)}
	}
	out := nodes[:0:0]
	for _, n := range nodes {
		if globmatch.Match(n.Name, pattern) {
			out = append(out, n)
		}
	}
	return out, nil
}

func filterByPackage(nodes []graph.Node, pkg string) []graph.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n.Package == pkg || strings.HasSuffix(n.Package, "/"+pkg) {
			out = append(out, n)
		}
	}
	return out
}

func filterExported(nodes []graph.Node) []graph.Node {
	out := nodes[:0:0]
	for _, n := range nodes {
		if n.Exported {
			out = append(out, n)
		}
	}
	return out
}
