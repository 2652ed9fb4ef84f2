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

// Package discover walks a source tree, classifies files by language,
// applies include/exclude filters, batches the result, and dispatches
// parsing across a worker pool that merges into a graph.Store.
package discover

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/shaharia-lab/codenav/pkg/extract"
	"github.com/shaharia-lab/codenav/pkg/globmatch"
	"github.com/shaharia-lab/codenav/pkg/graph"
)

// FileInfo describes one discovered source file.
type FileInfo struct {
	Path     string // relative to the walk root, slash-separated
	FullPath string
	Size     int64
	ModTime  int64 // unix seconds
	Language extract.Language
}

// Options controls a walk.
type Options struct {
	Root          string
	ExcludeGlobs  []string
	IncludeTests  bool // when false, test files are excluded
	MaxFileSize   int64
	PriorManifest Manifest // for --incremental: files unchanged since are skipped
	Incremental   bool
	Logger        *slog.Logger
}

// testFilePatterns reuses the same glob-exclude mechanism as general
// excludes, applied here specifically to the --include-tests flag.
var testFilePatterns = []string{
	"*_test.go", "*.test.ts", "*.test.tsx", "*.test.js", "*.test.jsx",
	"*.spec.ts", "*.spec.tsx", "*.spec.js", "test_*.py", "*_test.py",
}

// Walk discovers every candidate source file under opts.Root, in
// deterministic path order.
func Walk(opts Options) ([]FileInfo, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("discover.walk.start", "root", opts.Root)

	var files []FileInfo
	err := filepath.WalkDir(opts.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if shouldSkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(opts.Root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		lang, ok := extract.LanguageForExt(filepath.Ext(path))
		if !ok {
			return nil
		}
		if !opts.IncludeTests && matchesAny(testFilePatterns, filepath.Base(path)) {
			return nil
		}
		if matchesAny(opts.ExcludeGlobs, rel) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			logger.Warn("discover.walk.skip_large_file", "path", rel, "size", info.Size())
			return nil
		}

		fi := FileInfo{
			Path:     rel,
			FullPath: path,
			Size:     info.Size(),
			ModTime:  info.ModTime().Unix(),
			Language: lang,
		}

		if opts.Incremental {
			if entry, ok := opts.PriorManifest[rel]; ok && entry.Size == fi.Size && entry.ModTime == fi.ModTime {
				return nil // unchanged since last index
			}
		}

		files = append(files, fi)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("discover.walk.complete", "files", len(files))
	return files, nil
}

func shouldSkipDir(name string) bool {
	switch name {
	case ".git", "node_modules", "vendor", ".venv", "__pycache__", "dist", "build":
		return true
	default:
		return false
	}
}

func matchesAny(globs []string, candidate string) bool {
	for _, g := range globs {
		if globmatch.Match(candidate, g) {
			return true
		}
		if globmatch.Match(filepath.Base(candidate), g) {
			return true
		}
	}
	return false
}

// batchSize bounds how many files are dispatched to the worker pool per
// round, keeping memory bounded without starving parallelism.
const batchSize = 100

// Batch splits files into fixed-size batches for worker dispatch.
func Batch(files []FileInfo) [][]FileInfo {
	var batches [][]FileInfo
	for i := 0; i < len(files); i += batchSize {
		end := i + batchSize
		if end > len(files) {
			end = len(files)
		}
		batches = append(batches, files[i:end])
	}
	return batches
}

// Result aggregates what a dispatch run produced.
type Result struct {
	FilesProcessed int
	ParseErrors    []error
}

// readFile is overridable in tests.
var readFile = func(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Dispatch runs extraction for every file across a worker pool capped at
// runtime.NumCPU() (ceiling 8), merging each file's SubGraph into store as
// it completes. Merge
// itself is internally mutex-guarded (graph.Store.Merge), so workers never
// block each other except during the brief append.
func Dispatch(ctx context.Context, files []FileInfo, store *graph.Store, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > 8 {
		numWorkers = 8
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	if len(files) < 10 {
		numWorkers = 1
	}

	jobs := make(chan FileInfo, len(files))
	for _, f := range files {
		jobs <- f
	}
	close(jobs)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		errs      []error
		processed int32
	)

	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each worker keeps its own per-language extractor instances
			// so tree-sitter parsers are never shared across goroutines.
			workerExtractors := make(map[extract.Language]extract.Extractor)
			for f := range jobs {
				select {
				case <-ctx.Done():
					return
				default:
				}

				e, ok := workerExtractors[f.Language]
				if !ok {
					var err error
					e, err = extract.ForLanguage(f.Language)
					if err != nil {
						mu.Lock()
						errs = append(errs, err)
						mu.Unlock()
						continue
					}
					workerExtractors[f.Language] = e
				}

				content, err := readFile(f.FullPath)
				if err != nil {
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					continue
				}

				sg, err := e.Extract(f.Path, content)
				if err != nil {
					logger.Warn("discover.extract.error", "path", f.Path, "error", err)
					mu.Lock()
					errs = append(errs, err)
					mu.Unlock()
					continue
				}

				store.Merge(sg)
				atomic.AddInt32(&processed, 1)
			}
		}()
	}

	wg.Wait()
	return Result{FilesProcessed: int(processed), ParseErrors: errs}
}
