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

// Package graph defines the node/edge data model and the in-memory indexed
// store that holds a codebase's call graph.
package graph

import (
	"fmt"
	"path/filepath"
)

// NodeKind classifies a definition node.
type NodeKind string

const (
	KindFunction  NodeKind = "function"
	KindMethod    NodeKind = "method"
	KindHandler   NodeKind = "handler"
	KindClass     NodeKind = "class"
	KindInterface NodeKind = "interface"
	KindModule    NodeKind = "module"
)

func (k NodeKind) String() string { return string(k) }

// EdgeKind classifies how a call edge was observed.
type EdgeKind string

const (
	// Direct is a plain, unqualified call to a name resolvable within the
	// same extraction pass (foo()).
	Direct EdgeKind = "direct"
	// Virtual is a method/selector call (obj.Method()) where the receiver's
	// concrete type is not resolved — the edge is name-linked only.
	Virtual EdgeKind = "virtual"
	// Dynamic is a call through a value (a function variable, callback, or
	// higher-order parameter) that can't be matched to a definition name
	// with any confidence beyond the literal identifier used at the call
	// site.
	Dynamic EdgeKind = "dynamic"
)

func (k EdgeKind) String() string { return string(k) }

// Node is a single definition: a function, method, HTTP handler, class,
// interface, or module.
type Node struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Kind      NodeKind `json:"kind"`
	FilePath  string   `json:"file_path"`
	Line      int      `json:"line"`
	EndLine   int      `json:"end_line,omitempty"`
	Package   string   `json:"package,omitempty"`
	Language  string   `json:"language"`
	Signature string   `json:"signature,omitempty"`

	// DocComment and Exported are display-only metadata; they never
	// participate in identity or traversal.
	DocComment string `json:"doc_comment,omitempty"`
	Exported   bool   `json:"exported"`

	// BranchCount is the number of branching constructs (if/for/switch
	// case/&&/||) counted during extraction, the input to analyze's
	// cyclomatic complexity estimate.
	BranchCount int `json:"branch_count"`
}

// Edge is a directed, name-linked call from one node to a callee name.
// CalleeID is populated only when the callee is defined in the same file
// as the caller; otherwise only ToName is set and the edge still counts for
// queries and analytics that operate on names.
type Edge struct {
	FromID   string   `json:"from_id"`
	ToName   string   `json:"to_name"`
	CalleeID string   `json:"callee_id,omitempty"`
	Kind     EdgeKind `json:"kind"`
	Line     int      `json:"line,omitempty"`
}

// BuildNodeID constructs the canonical identity key for a definition:
// "<normalized_file_path>:<name>:<line>". This is the sole identity
// canonicalizer; extractors must route every node through it so that merges
// across incremental re-index runs land on the same key.
func BuildNodeID(filePath, name string, line int) string {
	return fmt.Sprintf("%s:%s:%d", normalizePath(filePath), name, line)
}

// normalizePath makes a file path stable across platforms and across
// "./" vs bare relative forms, mirroring the canonicalization a persisted
// identity key needs to survive a re-index on a different OS.
func normalizePath(path string) string {
	if len(path) >= 2 && path[0:2] == "./" {
		path = path[2:]
	}
	path = filepath.Clean(path)
	path = filepath.ToSlash(path)
	return path
}
