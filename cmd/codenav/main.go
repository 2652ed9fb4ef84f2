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

// Package main implements the codenav CLI for building and querying a
// persistent, incremental call-graph over a multi-language repository.
//
// Usage:
//
//	codenav init                        Create .codenav.yml configuration
//	codenav index [--incremental]       Parse the repository into a graph
//	codenav [--json] query <filters>    Filter nodes by name/kind/file/package
//	codenav trace <name> [--depth N]    Downstream callees of a function
//	codenav callers <name>              Reverse lookup: who calls this
//	codenav path <from> --to <name>     Shortest call path between two names
//	codenav analyze <report>            complexity | hotspots | coupling | cycles
//	codenav export --format graphml|dot|csv
package main

import (
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/shaharia-lab/codenav/internal/errors"
	"github.com/shaharia-lab/codenav/internal/ui"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds flags accepted before the subcommand name and shared by
// every subcommand.
type GlobalFlags struct {
	JSON    bool
	Quiet   bool
	NoColor bool
	Verbose int
	Config  string
}

func main() {
	var globals GlobalFlags
	var showVersion bool

	fs := flag.NewFlagSet("codenav", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.BoolVar(&showVersion, "version", false, "Show version and exit")
	fs.BoolVar(&globals.JSON, "json", false, "Output machine-readable JSON")
	fs.BoolVarP(&globals.Quiet, "quiet", "q", false, "Suppress progress output")
	fs.BoolVar(&globals.NoColor, "no-color", false, "Disable colored output")
	fs.CountVarP(&globals.Verbose, "verbose", "v", "Increase log verbosity (repeatable)")
	fs.StringVarP(&globals.Config, "config", "c", "", "Path to .codenav.yml (default: ./.codenav.yml)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `codenav - persistent multi-language call-graph CLI

Usage:
  codenav <command> [options]

Commands:
  init          Create .codenav.yml configuration
  index         Discover, parse, and persist the call graph
  query         Filter nodes by name/kind/file/package
  trace         Downstream callees of a function, bounded by depth
  callers       Reverse lookup: who calls this name
  path          Shortest call path between two nodes
  analyze       complexity | hotspots | coupling | cycles reports
  export        Render the graph as graphml, dot, or csv

Global Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  codenav init
  codenav index --incremental
  codenav query --kind function --name-wildcard 'Handle*'
  codenav trace ProcessOrder --depth 3
  codenav path ProcessOrder --to SaveRecord
  codenav analyze hotspots --top 20
`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(errors.ExitUsage)
	}

	ui.InitColors(globals.NoColor)

	if showVersion {
		fmt.Printf("codenav version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		return
	}

	args := fs.Args()
	if len(args) == 0 {
		fs.Usage()
		os.Exit(errors.ExitUsage)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs)
	case "index":
		runIndex(cmdArgs, globals)
	case "query":
		runQuery(cmdArgs, globals)
	case "trace":
		runTrace(cmdArgs, globals)
	case "callers":
		runCallers(cmdArgs, globals)
	case "path":
		runPath(cmdArgs, globals)
	case "analyze":
		runAnalyze(cmdArgs, globals)
	case "export":
		runExport(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		fs.Usage()
		os.Exit(errors.ExitUsage)
	}
}

// resolveConfigPath returns the explicit --config path, or the default
// ./.codenav.yml relative to the current directory.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	cwd, err := os.Getwd()
	if err != nil {
		return ".codenav.yml"
	}
	return filepath.Join(cwd, ".codenav.yml")
}
