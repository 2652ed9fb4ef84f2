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

package main

import (
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/shaharia-lab/codenav/internal/errors"
	cnmetrics "github.com/shaharia-lab/codenav/internal/metrics"
	"github.com/shaharia-lab/codenav/internal/output"
	"github.com/shaharia-lab/codenav/pkg/graph"
	"github.com/shaharia-lab/codenav/pkg/query"
	"github.com/shaharia-lab/codenav/pkg/traverse"
)

// runTrace executes the 'trace' command: a bounded downstream callee trace
// from every node matching the given name.
func runTrace(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("trace", flag.ExitOnError)
	depth := fs.Int("depth", 5, "Maximum hops to descend")
	failOnEmpty := fs.Bool("fail-on-empty", false, "Exit non-zero if nothing is reachable")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: codenav trace <name> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitUsage)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(errors.ExitUsage)
	}
	name := fs.Arg(0)

	store := loadStoreOrFatal(globals)
	starts, err := query.Run(store, query.Filter{NameExact: name})
	if err != nil || len(starts) == 0 {
		errors.FatalError(errors.NewQueryError(
			fmt.Sprintf("No node named %q", name), "", "Check spelling or run codenav query --name-wildcard"), globals.JSON)
	}

	type traceResult struct {
		Start string       `json:"start"`
		State string       `json:"state"`
		Nodes []graph.Node `json:"nodes"`
	}
	var results []traceResult
	total := 0
	for _, s := range starts {
		nodes, state, stats := traverse.Downstream(store, s.ID, *depth, nil)
		total += stats.NodesVisited
		results = append(results, traceResult{Start: s.ID, State: string(state), Nodes: nodes})
	}
	cnmetrics.RecordTraversal(total)

	empty := true
	for _, r := range results {
		if len(r.Nodes) > 0 {
			empty = false
		}
	}
	if empty && *failOnEmpty {
		errors.FatalError(errors.NewQueryError("Trace reached no callees", "", ""), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(results)
		return
	}
	for _, r := range results {
		fmt.Printf("%s (%s):\n", r.Start, r.State)
		for _, n := range r.Nodes {
			fmt.Printf("  %s\t%s:%d\n", n.Name, n.FilePath, n.Line)
		}
	}
}

// runCallers executes the 'callers' command: O(1) reverse lookup of who
// calls a given name.
func runCallers(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("callers", flag.ExitOnError)
	failOnEmpty := fs.Bool("fail-on-empty", false, "Exit non-zero if there are no callers")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: codenav callers <name> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitUsage)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(errors.ExitUsage)
	}
	name := fs.Arg(0)

	store := loadStoreOrFatal(globals)
	start := time.Now()
	callers := traverse.Callers(store, name)
	cnmetrics.RecordTraversal(len(callers))
	cnmetrics.ObserveTraversalDuration(time.Since(start).Seconds())

	if len(callers) == 0 && *failOnEmpty {
		errors.FatalError(errors.NewQueryError(
			fmt.Sprintf("No callers of %q", name), "", ""), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(callers)
		return
	}
	for _, n := range callers {
		fmt.Printf("%s\t%s:%d\n", n.Name, n.FilePath, n.Line)
	}
}

// runPath executes the 'path' command: shortest call path between two
// names.
func runPath(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("path", flag.ExitOnError)
	to := fs.String("to", "", "Target name (required)")
	kPaths := fs.Int("k", 0, "Enumerate up to k simple paths instead of just the shortest")
	maxDepth := fs.Int("depth", 20, "Maximum hops when enumerating k paths")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: codenav path <from> --to <name> [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitUsage)
	}
	if fs.NArg() != 1 || *to == "" {
		fs.Usage()
		os.Exit(errors.ExitUsage)
	}
	from := fs.Arg(0)

	store := loadStoreOrFatal(globals)
	starts, err := query.Run(store, query.Filter{NameExact: from})
	if err != nil || len(starts) == 0 {
		errors.FatalError(errors.NewQueryError(
			fmt.Sprintf("No node named %q", from), "", ""), globals.JSON)
	}

	if *kPaths > 0 {
		var allPaths [][]graph.Node
		seen := make(map[string]bool)
		total := 0
		bestState := traverse.Exhausted
		for _, s := range starts {
			paths, state, stats := traverse.KPaths(store, s.ID, *to, *maxDepth, *kPaths, nil)
			total += stats.NodesVisited
			if state == traverse.Found {
				bestState = traverse.Found
			}
			for _, p := range paths {
				key := pathKey(p)
				if seen[key] {
					continue
				}
				seen[key] = true
				allPaths = append(allPaths, p)
			}
		}
		if len(allPaths) > *kPaths {
			allPaths = allPaths[:*kPaths]
		}
		cnmetrics.RecordTraversal(total)
		if globals.JSON {
			_ = output.JSON(map[string]any{"state": bestState, "paths": allPaths})
			return
		}
		fmt.Printf("state: %s\n", bestState)
		for i, p := range allPaths {
			fmt.Printf("path %d:\n", i+1)
			for _, n := range p {
				fmt.Printf("  %s\n", n.Name)
			}
		}
		return
	}

	// Start set per the name-linked traversal contract: try every node
	// matching `from` and keep the shortest path found across all of them,
	// the way runTrace fans out over every matching start rather than
	// picking one arbitrarily.
	var best []graph.Node
	bestState := traverse.Exhausted
	total := 0
	for _, s := range starts {
		path, state, stats := traverse.ShortestPath(store, s.ID, *to, nil)
		total += stats.NodesVisited
		if state == traverse.Found && (best == nil || len(path) < len(best)) {
			best = path
			bestState = state
		}
	}
	cnmetrics.RecordTraversal(total)
	if bestState != traverse.Found {
		return
	}
	if globals.JSON {
		_ = output.JSON(best)
		return
	}
	for _, n := range best {
		fmt.Printf("%s\n", n.Name)
	}
}

// pathKey builds a dedup key for a node path so the same sequence of IDs
// found from two different start candidates is only reported once.
func pathKey(path []graph.Node) string {
	var b []byte
	for _, n := range path {
		b = append(b, n.ID...)
		b = append(b, '|')
	}
	return string(b)
}
