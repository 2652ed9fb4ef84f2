// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/shaharia-lab/codenav/internal/config"
	"github.com/shaharia-lab/codenav/internal/errors"
	cnmetrics "github.com/shaharia-lab/codenav/internal/metrics"
	"github.com/shaharia-lab/codenav/internal/ui"
	"github.com/shaharia-lab/codenav/pkg/discover"
	"github.com/shaharia-lab/codenav/pkg/graph"
	"github.com/shaharia-lab/codenav/pkg/persist"
)

// runIndex executes the 'index' CLI command: walk the repository, extract
// definitions and calls for every recognized source file, and persist the
// merged graph.
//
// Flags:
//   - --incremental: skip files unchanged since the last index (size+mtime)
//   - --metrics-addr: HTTP listen address for Prometheus metrics
func runIndex(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	incremental := fs.Bool("incremental", false, "Skip files unchanged since the last index")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: codenav index [options]

Discovers source files under the configured root, extracts definitions and
call edges, and persists the merged graph to the configured container path.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(errors.ExitUsage)
	}

	cfgPath := resolveConfigPath(globals.Config)
	cfg, err := config.Load(cfgPath)
	if err != nil {
		errors.FatalError(errors.NewUsageError(
			"Cannot load configuration", err.Error(), "Run: codenav init"), globals.JSON)
	}

	logLevel := slog.LevelWarn
	if globals.Verbose >= 1 {
		logLevel = slog.LevelInfo
	}
	if globals.Verbose >= 2 {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", cnmetrics.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("index.shutdown.signal")
		cancel()
	}()

	var priorManifest discover.Manifest
	var store *graph.Store
	if *incremental {
		if s, err := persist.Load(cfg.Graph.Path); err == nil {
			store = s
			if raw, mErr := persist.LoadManifest(cfg.Graph.Path); mErr == nil && raw != nil {
				_ = json.Unmarshal(raw, &priorManifest)
			}
		} else {
			cnmetrics.RecordCacheStale()
		}
	}
	if store == nil {
		store = graph.NewStore()
	}

	walkOpts := discover.Options{
		Root:          cfg.Root,
		ExcludeGlobs:  cfg.Index.Excludes,
		IncludeTests:  cfg.Index.IncludeTest,
		MaxFileSize:   cfg.Index.MaxFileSize,
		PriorManifest: priorManifest,
		Incremental:   *incremental,
		Logger:        logger,
	}

	start := time.Now()
	files, err := discover.Walk(walkOpts)
	if err != nil {
		errors.FatalError(errors.NewParseError(
			"Repository walk failed", err.Error(), "Check the root path in .codenav.yml", err), globals.JSON)
	}

	if *incremental {
		for _, f := range files {
			store.RemoveFile(f.Path)
		}
		for path := range priorManifest {
			if _, err := os.Stat(filepath.Join(cfg.Root, filepath.FromSlash(path))); err != nil {
				store.RemoveFile(path)
				delete(priorManifest, path)
			}
		}
	}

	progressCfg := NewProgressConfig(globals)
	bar := NewProgressBar(progressCfg, int64(len(files)), "indexing")

	for _, batch := range discover.Batch(files) {
		result := discover.Dispatch(ctx, batch, store, logger)
		addIfNotNil(bar, len(batch))
		for range result.ParseErrors {
			cnmetrics.RecordParseError()
		}
		for i := 0; i < result.FilesProcessed; i++ {
			cnmetrics.RecordFileIndexed()
		}
	}
	store.ReindexAll()

	allManifest := discover.BuildManifest(files)
	if *incremental {
		for path, entry := range priorManifest {
			if _, ok := allManifest[path]; !ok {
				allManifest[path] = entry
			}
		}
	}

	if err := persist.Save(cfg.Graph.Path, store, allManifest, codecFromName(cfg.Graph.Codec)); err != nil {
		errors.FatalError(errors.NewFormatError(
			"Cannot persist graph", err.Error(), "Check the graph.path directory permissions in .codenav.yml", err), globals.JSON)
	}

	stats := store.Stats()
	cnmetrics.RecordNodesIndexed(stats.Nodes)
	cnmetrics.RecordEdgesIndexed(stats.Edges, countResolved(store))
	cnmetrics.ObserveIndexDuration(time.Since(start).Seconds())

	if globals.JSON {
		_ = json.NewEncoder(os.Stdout).Encode(map[string]any{
			"files_walked": len(files),
			"nodes":        stats.Nodes,
			"edges":        stats.Edges,
			"duration_ms":  time.Since(start).Milliseconds(),
		})
		return
	}
	ui.Success(fmt.Sprintf("Indexed %d files: %d nodes, %d edges (%s)",
		len(files), stats.Nodes, stats.Edges, time.Since(start).Round(time.Millisecond)))
}

func codecFromName(name string) persist.Codec {
	switch name {
	case "gzip":
		return persist.CodecGzip
	case "lz4":
		return persist.CodecLZ4
	case "raw":
		return persist.CodecRaw
	default:
		return persist.CodecZstd
	}
}

func countResolved(store *graph.Store) int {
	resolved := 0
	for _, e := range store.AllEdges() {
		if e.CalleeID != "" {
			resolved++
		}
	}
	return resolved
}
