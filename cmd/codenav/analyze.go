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
	"text/tabwriter"

	flag "github.com/spf13/pflag"

	"github.com/shaharia-lab/codenav/internal/errors"
	"github.com/shaharia-lab/codenav/internal/output"
	"github.com/shaharia-lab/codenav/pkg/analyze"
)

// runAnalyze executes the 'analyze' command's four sub-reports:
// complexity, hotspots, coupling, cycles.
func runAnalyze(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	top := fs.Int("top", 20, "Row limit for complexity and hotspots reports")
	threshold := fs.Int("threshold", 3, "Minimum shared callees for a coupling pair")
	force := fs.Bool("force", false, "Run coupling analysis even above the node-count guard")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codenav analyze <report> [options]

Reports:
  complexity   fan-in/fan-out and cyclomatic estimate per node
  hotspots     callee names ranked by incoming call-site count
  coupling     pairs of nodes with overlapping callee sets
  cycles       strongly connected components (circular dependencies)

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitUsage)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(errors.ExitUsage)
	}
	report := fs.Arg(0)

	store := loadStoreOrFatal(globals)

	switch report {
	case "complexity":
		rows := analyze.NodeComplexity(store)
		if len(rows) > *top {
			rows = rows[:*top]
		}
		if globals.JSON {
			_ = output.JSON(rows)
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tFAN-IN\tFAN-OUT\tCYCLOMATIC")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", r.Name, r.FanIn, r.FanOut, r.CyclomaticEstimate)
		}
		_ = w.Flush()

	case "hotspots":
		rows := analyze.Hotspots(store, *top)
		if globals.JSON {
			_ = output.JSON(rows)
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tCALL-COUNT")
		for _, r := range rows {
			fmt.Fprintf(w, "%s\t%d\n", r.Name, r.CallCount)
		}
		_ = w.Flush()

	case "coupling":
		pairs, err := analyze.Coupling(store, *threshold, *force)
		if err != nil {
			errors.FatalError(errors.NewUsageError(
				"Coupling analysis refused", err.Error(), "Re-run with --force"), globals.JSON)
		}
		if globals.JSON {
			_ = output.JSON(pairs)
			return
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NODE-A\tNODE-B\tSHARED\tSCORE")
		for _, p := range pairs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n", p.NodeA, p.NodeB, p.SharedCallees, p.CouplingScore)
		}
		_ = w.Flush()

	case "cycles":
		cycles := analyze.CircularDependencies(store)
		if globals.JSON {
			_ = output.JSON(cycles)
			return
		}
		if len(cycles) == 0 {
			fmt.Println("No circular dependencies found.")
			return
		}
		for i, c := range cycles {
			fmt.Printf("cycle %d: %v\n", i+1, c.NodeIDs)
		}

	default:
		fmt.Fprintf(os.Stderr, "Unknown report %q\n", report)
		fs.Usage()
		os.Exit(errors.ExitUsage)
	}
}
