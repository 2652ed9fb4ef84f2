// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)

	cfg := Default("myproject")
	cfg.Index.Excludes = append(cfg.Index.Excludes, "testdata/**")

	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "myproject", loaded.ProjectID)
	assert.Equal(t, "zstd", loaded.Graph.Codec)
	assert.Contains(t, loaded.Index.Excludes, "testdata/**")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
