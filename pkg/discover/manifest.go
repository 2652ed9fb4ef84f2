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

package discover

// ManifestEntry is the per-file checkpoint used by --incremental: a file is
// reparsed only when its size or modification time has changed since the
// manifest was captured.
type ManifestEntry struct {
	Size    int64 `json:"size"`
	ModTime int64 `json:"mod_time"`
}

// Manifest maps a relative file path to its last-indexed (size, mtime).
type Manifest map[string]ManifestEntry

// BuildManifest captures a fresh manifest from the files just walked, to be
// persisted alongside the graph for the next incremental run.
func BuildManifest(files []FileInfo) Manifest {
	m := make(Manifest, len(files))
	for _, f := range files {
		m[f.Path] = ManifestEntry{Size: f.Size, ModTime: f.ModTime}
	}
	return m
}
