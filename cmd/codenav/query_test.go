// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

func TestPrintNodeTable(t *testing.T) {
	nodes := []graph.Node{
		{Name: "Foo", Kind: graph.KindFunction, FilePath: "a.go", Line: 10, Exported: true},
		{Name: "bar", Kind: graph.KindMethod, FilePath: "b.go", Line: 4, Exported: false},
	}

	var buf bytes.Buffer
	printNodeTable(&buf, nodes)

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "Foo")
	assert.Contains(t, out, "a.go")
	assert.Contains(t, out, "bar")
}

func TestPrintNodeTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	printNodeTable(&buf, nil)
	assert.Contains(t, buf.String(), "NAME\tKIND\tFILE\tLINE\tEXPORTED")
}
