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

// Package config loads and saves codenav's per-repository configuration
// file, .codenav.yml, created by `codenav init`. The index command reads
// its root, graph and index walk settings; the other subcommands read only
// graph.path. index.incremental and the metrics block are not read by any
// subcommand, which take --incremental and --metrics-addr from flags alone.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file's name, resolved relative to the
// repository root.
const FileName = ".codenav.yml"

// GraphConfig configures where the persisted graph container lives and
// which codec compresses it.
type GraphConfig struct {
	Path  string `yaml:"path"`
	Codec string `yaml:"codec"` // raw, gzip, zstd, lz4
}

// IndexConfig configures the discovery/extraction pass.
type IndexConfig struct {
	Excludes    []string `yaml:"excludes"`
	IncludeTest bool     `yaml:"include_test"`
	MaxFileSize int64    `yaml:"max_file_size_bytes"`
	Incremental bool     `yaml:"incremental"`
}

// MetricsConfig configures the optional Prometheus exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Config is the full shape of .codenav.yml.
type Config struct {
	ProjectID string        `yaml:"project_id"`
	Root      string        `yaml:"root"`
	Graph     GraphConfig   `yaml:"graph"`
	Index     IndexConfig   `yaml:"index"`
	Metrics   MetricsConfig `yaml:"metrics"`
}

// Default returns the configuration created by `codenav init` absent any
// user overrides.
func Default(projectID string) *Config {
	return &Config{
		ProjectID: projectID,
		Root:      ".",
		Graph: GraphConfig{
			Path:  filepath.Join(".codenav", "graph.bin"),
			Codec: "zstd",
		},
		Index: IndexConfig{
			Excludes:    []string{"vendor/**", "node_modules/**", "dist/**", "build/**"},
			IncludeTest: false,
			MaxFileSize: 2 << 20, // 2 MiB
			Incremental: true,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9090",
		},
	}
}

// Path returns the configuration file path for a repository rooted at dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("config: create directory for %s: %w", path, err)
	}
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}
