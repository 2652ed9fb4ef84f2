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
	"io"
	"os"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/shaharia-lab/codenav/internal/config"
	"github.com/shaharia-lab/codenav/internal/errors"
	cnmetrics "github.com/shaharia-lab/codenav/internal/metrics"
	"github.com/shaharia-lab/codenav/internal/output"
	"github.com/shaharia-lab/codenav/pkg/graph"
	"github.com/shaharia-lab/codenav/pkg/persist"
	"github.com/shaharia-lab/codenav/pkg/query"
)

// runQuery executes the 'query' CLI command: filter the persisted graph by
// name, kind, file pattern, package, or export status.
func runQuery(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	name := fs.String("name", "", "Exact name match")
	nameWildcard := fs.String("name-wildcard", "", "Glob pattern against name, e.g. 'Handle*'")
	kind := fs.String("kind", "", "function | method | class | interface")
	filePattern := fs.String("file", "", "Glob pattern against file path")
	pkg := fs.String("package", "", "Exact or path-suffix package match")
	exportedOnly := fs.Bool("exported", false, "Only exported/public definitions")
	failOnEmpty := fs.Bool("fail-on-empty", false, "Exit non-zero if the query matches nothing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codenav query [options]

Filters the persisted graph's nodes. Predicates are applied in selectivity
order: name-exact, kind, file-glob, name-wildcard, package, exported-only.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitUsage)
	}

	store := loadStoreOrFatal(globals)

	start := time.Now()
	nodes, err := query.Run(store, query.Filter{
		NameExact:    *name,
		NameWildcard: *nameWildcard,
		Kind:         graph.NodeKind(*kind),
		FilePattern:  *filePattern,
		Package:      *pkg,
		ExportedOnly: *exportedOnly,
	})
	if err != nil {
		errors.FatalError(errors.NewUsageError("Invalid query filter", err.Error(), "Check glob syntax"), globals.JSON)
	}
	cnmetrics.RecordQuery()
	cnmetrics.ObserveQueryDuration(time.Since(start).Seconds())

	if len(nodes) == 0 && *failOnEmpty {
		errors.FatalError(errors.NewQueryError(
			"Query matched no nodes", "", "Broaden the filter or re-run codenav index"), globals.JSON)
	}

	if globals.JSON {
		_ = output.JSON(nodes)
		return
	}
	printNodeTable(os.Stdout, nodes)
}

func printNodeTable(w io.Writer, nodes []graph.Node) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tFILE\tLINE\tEXPORTED")
	for _, n := range nodes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%v\n", n.Name, n.Kind, n.FilePath, n.Line, n.Exported)
	}
	_ = tw.Flush()
}

// loadStoreOrFatal loads the configured graph container, exiting with a
// format error and a suggestion to re-index on failure.
func loadStoreOrFatal(globals GlobalFlags) *graph.Store {
	cfgPath := resolveConfigPath(globals.Config)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		errors.FatalError(errors.NewUsageError(
			"Cannot load configuration", err.Error(), "Run: codenav init"), globals.JSON)
	}

	if verr := persist.ValidateSidecar(cfg.Graph.Path); verr != nil {
		cnmetrics.RecordCacheStale()
	}

	store, err := persist.Load(cfg.Graph.Path)
	if err != nil {
		errors.FatalError(errors.NewFormatError(
			"Cannot load graph", err.Error(), "Run: codenav index", err), globals.JSON)
	}
	return store
}
