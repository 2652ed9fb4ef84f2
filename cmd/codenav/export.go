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
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/shaharia-lab/codenav/internal/errors"
	"github.com/shaharia-lab/codenav/pkg/graph"
)

// runExport executes the 'export' command: render the persisted graph as
// GraphML, Graphviz DOT, or a pair of CSV files, for consumption by
// external visualization tools. It is a thin presentation adapter over the
// store's public query surface; no new graph semantics live here.
func runExport(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "dot", "graphml | dot | csv")
	out := fs.String("out", "", "Output path (CSV: prefix for _nodes.csv/_edges.csv; default stdout otherwise)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: codenav export [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitUsage)
	}

	store := loadStoreOrFatal(globals)
	nodes := store.AllNodes()
	edges := store.AllEdges()

	switch *format {
	case "graphml":
		w := openOutOrStdout(*out, globals)
		defer closeIfFile(w)
		if err := writeGraphML(w, nodes, edges); err != nil {
			errors.FatalError(errors.NewFormatError("Cannot write GraphML", err.Error(), "", err), globals.JSON)
		}
	case "dot":
		w := openOutOrStdout(*out, globals)
		defer closeIfFile(w)
		writeDOT(w, nodes, edges)
	case "csv":
		prefix := *out
		if prefix == "" {
			prefix = "codenav-export"
		}
		if err := writeCSV(prefix, nodes, edges); err != nil {
			errors.FatalError(errors.NewFormatError("Cannot write CSV export", err.Error(), "", err), globals.JSON)
		}
	default:
		errors.FatalError(errors.NewUsageError(
			fmt.Sprintf("Unknown export format %q", *format), "", "Use graphml, dot, or csv"), globals.JSON)
	}
}

func openOutOrStdout(path string, globals GlobalFlags) io.Writer {
	if path == "" {
		return os.Stdout
	}
	f, err := os.Create(path)
	if err != nil {
		errors.FatalError(errors.NewFormatError("Cannot create output file", err.Error(), "", err), globals.JSON)
	}
	return f
}

func closeIfFile(w io.Writer) {
	if f, ok := w.(*os.File); ok && f != os.Stdout {
		_ = f.Close()
	}
}

type graphmlDoc struct {
	XMLName xml.Name     `xml:"graphml"`
	Graph   graphmlGraph `xml:"graph"`
}

type graphmlGraph struct {
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlNode struct {
	ID   string `xml:"id,attr"`
	Data string `xml:"data"`
}

type graphmlEdge struct {
	Source string `xml:"source,attr"`
	Target string `xml:"target,attr"`
}

func writeGraphML(w io.Writer, nodes []graph.Node, edges []graph.Edge) error {
	doc := graphmlDoc{Graph: graphmlGraph{EdgeDefault: "directed"}}
	for _, n := range nodes {
		doc.Graph.Nodes = append(doc.Graph.Nodes, graphmlNode{ID: n.ID, Data: n.Name})
	}
	for _, e := range edges {
		if e.CalleeID == "" {
			continue // GraphML edges require a resolved target
		}
		doc.Graph.Edges = append(doc.Graph.Edges, graphmlEdge{Source: e.FromID, Target: e.CalleeID})
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func writeDOT(w io.Writer, nodes []graph.Node, edges []graph.Edge) {
	fmt.Fprintln(w, "digraph codenav {")
	for _, n := range nodes {
		fmt.Fprintf(w, "  %q [label=%q, shape=box];\n", n.ID, n.Name)
	}
	for _, e := range edges {
		if e.CalleeID == "" {
			continue
		}
		fmt.Fprintf(w, "  %q -> %q;\n", e.FromID, e.CalleeID)
	}
	fmt.Fprintln(w, "}")
}

func writeCSV(prefix string, nodes []graph.Node, edges []graph.Edge) error {
	nf, err := os.Create(prefix + "_nodes.csv")
	if err != nil {
		return err
	}
	defer nf.Close()
	nw := csv.NewWriter(nf)
	_ = nw.Write([]string{"id", "name", "kind", "file_path", "line", "package", "exported"})
	for _, n := range nodes {
		_ = nw.Write([]string{n.ID, n.Name, string(n.Kind), n.FilePath, fmt.Sprint(n.Line), n.Package, fmt.Sprint(n.Exported)})
	}
	nw.Flush()
	if err := nw.Error(); err != nil {
		return err
	}

	ef, err := os.Create(prefix + "_edges.csv")
	if err != nil {
		return err
	}
	defer ef.Close()
	ew := csv.NewWriter(ef)
	_ = ew.Write([]string{"from_id", "to_name", "callee_id", "kind", "line"})
	for _, e := range edges {
		_ = ew.Write([]string{e.FromID, e.ToName, e.CalleeID, string(e.Kind), fmt.Sprint(e.Line)})
	}
	ew.Flush()
	return ew.Error()
}
