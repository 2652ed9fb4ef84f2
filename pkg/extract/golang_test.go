// Copyright 2025 KrakLabs
// SPDX-License-Identifier: Apache-2.0

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

const goSample = `package sample

func helper(x int) int {
	return x * 2
}

func Process(x int) int {
	return helper(x) + 1
}

func Chain(x int) int {
	a := Process(x)
	b := helper(a)
	return b + Process(b)
}

type Worker struct{}

func (w *Worker) Run() int {
	return Process(1)
}
`

func TestGoExtractor_Definitions(t *testing.T) {
	e := NewGoExtractor()
	sg, err := e.Extract("sample.go", []byte(goSample))
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, n := range sg.Nodes {
		names[n.Name] = true
	}
	assert.True(t, names["helper"])
	assert.True(t, names["Process"])
	assert.True(t, names["Chain"])
	assert.True(t, names["Worker.Run"])
}

func TestGoExtractor_Calls(t *testing.T) {
	e := NewGoExtractor()
	sg, err := e.Extract("sample.go", []byte(goSample))
	require.NoError(t, err)

	var chainCallees []string
	for _, edge := range sg.Edges {
		if edge.FromID == findID(sg, "Chain") {
			chainCallees = append(chainCallees, edge.ToName)
		}
	}
	assert.Contains(t, chainCallees, "Process")
	assert.Contains(t, chainCallees, "helper")
}

func TestGoExtractor_ExportedFlag(t *testing.T) {
	e := NewGoExtractor()
	sg, err := e.Extract("sample.go", []byte(goSample))
	require.NoError(t, err)

	for _, n := range sg.Nodes {
		switch n.Name {
		case "Process", "Chain":
			assert.True(t, n.Exported, n.Name)
		case "helper":
			assert.False(t, n.Exported, n.Name)
		}
	}
}

const goHandlerSample = `package sample

import "net/http"

func ListItems(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("[]"))
}

func helper(x int) int {
	return x
}
`

func TestGoExtractor_HTTPHandlerSignatureIsHandlerKind(t *testing.T) {
	e := NewGoExtractor()
	sg, err := e.Extract("handlers.go", []byte(goHandlerSample))
	require.NoError(t, err)

	for _, n := range sg.Nodes {
		switch n.Name {
		case "ListItems":
			assert.Equal(t, graph.KindHandler, n.Kind)
		case "helper":
			assert.Equal(t, graph.KindFunction, n.Kind)
		}
	}
}

func TestGoExtractor_GarbageInputNeverPanics(t *testing.T) {
	e := NewGoExtractor()
	// tree-sitter is error-tolerant; even garbage input produces a
	// non-nil tree, so this only verifies Extract never panics on it.
	_, err := e.Extract("garbage.go", []byte("{{{{ not go at all"))
	assert.NoError(t, err)
}

func findID(sg graph.SubGraph, name string) string {
	for _, n := range sg.Nodes {
		if n.Name == name {
			return n.ID
		}
	}
	return ""
}
