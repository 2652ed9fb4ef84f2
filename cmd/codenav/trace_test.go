// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

func TestPathKey_DistinguishesDistinctPaths(t *testing.T) {
	p1 := []graph.Node{{ID: "a"}, {ID: "b"}}
	p2 := []graph.Node{{ID: "a"}, {ID: "c"}}
	assert.NotEqual(t, pathKey(p1), pathKey(p2))
}

func TestPathKey_SamePathSameKey(t *testing.T) {
	p1 := []graph.Node{{ID: "a"}, {ID: "b"}}
	p2 := []graph.Node{{ID: "a"}, {ID: "b"}}
	assert.Equal(t, pathKey(p1), pathKey(p2))
}
