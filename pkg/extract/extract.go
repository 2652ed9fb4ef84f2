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

// Package extract defines the language extractor contract and the
// tree-sitter-backed implementations for Go, TypeScript/TSX, JavaScript, and
// Python.
package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

// Language identifies a supported source language.
type Language string

const (
	Go         Language = "go"
	TypeScript Language = "typescript"
	JavaScript Language = "javascript"
	Python     Language = "python"
)

// LanguageForExt maps a file extension (including the leading dot) to a
// Language, or ("", false) when the extension isn't recognized.
func LanguageForExt(ext string) (Language, bool) {
	switch ext {
	case ".go":
		return Go, true
	case ".ts":
		return TypeScript, true
	case ".tsx":
		return TypeScript, true
	case ".js", ".jsx", ".mjs", ".cjs":
		return JavaScript, true
	case ".py":
		return Python, true
	default:
		return "", false
	}
}

// ParseError reports that a file could not be parsed at all (a nil parse
// tree). Syntax errors inside an otherwise-valid tree are not ParseErrors —
// tree-sitter is error-tolerant, so those are not reported and the
// extractor continues with whatever it could recover.
type ParseError struct {
	FilePath string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.FilePath, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extractor is the contract every language backend implements. Each call is
// independent, but an Extractor owns a single tree-sitter parser that every
// call on it reuses, so one instance must not be called from two goroutines
// at once; concurrent callers use one instance each.
type Extractor interface {
	// Extract parses content (the file's bytes) and returns the nodes and
	// name-linked edges it found. filePath is used only for ID
	// construction and error reporting; the extractor never touches disk.
	Extract(filePath string, content []byte) (graph.SubGraph, error)

	// Language reports which Language this extractor handles.
	Language() Language
}

// ForLanguage returns the built-in Extractor for lang.
func ForLanguage(lang Language) (Extractor, error) {
	switch lang {
	case Go:
		return NewGoExtractor(), nil
	case TypeScript, JavaScript:
		return NewTSExtractor(lang), nil
	case Python:
		return NewPythonExtractor(), nil
	default:
		return nil, fmt.Errorf("extract: unsupported language %q", lang)
	}
}

// ModuleName derives a file-level module's display name from its path: the
// base name with its extension stripped, the way Python and JS/TS module
// systems name a file as a module.
func ModuleName(filePath string) string {
	base := filepath.Base(filePath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// maxSignatureBytes bounds how much of a generic-heavy signature is kept.
const maxSignatureBytes = 2048

func truncateSignature(sig string) string {
	if len(sig) <= maxSignatureBytes {
		return sig
	}
	return sig[:maxSignatureBytes] + "..."
}
