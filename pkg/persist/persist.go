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

// Package persist implements the versioned framed binary container that
// stores a graph.Store on disk, plus the advisory sidecar index cache.
package persist

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

// magic identifies codenav's framed container format.
var magic = [8]byte{'C', 'O', 'D', 'E', 'N', 'A', 'V', 0x01}

// formatVersion is bumped whenever the payload's JSON shape changes in a
// way that isn't backward-compatible.
const formatVersion = 1

// Codec identifies the payload compression scheme, carried as a single tag
// byte in the frame header.
type Codec byte

const (
	CodecLZ4  Codec = 1 // see DESIGN.md: backed by klauspost/compress/s2, not a real LZ4 binding
	CodecZstd Codec = 2
	CodecGzip Codec = 3
	CodecRaw  Codec = 4
)

// FormatError reports a corrupt or unrecognized container.
type FormatError struct {
	Path string
	Err  error
}

func (e *FormatError) Error() string { return fmt.Sprintf("persist: %s: %v", e.Path, e.Err) }
func (e *FormatError) Unwrap() error { return e.Err }

// payload is the JSON document wrapped inside the frame.
type payload struct {
	Version  int          `json:"version"`
	Manifest interface{}  `json:"manifest,omitempty"`
	Nodes    []graph.Node `json:"nodes"`
	Edges    []graph.Edge `json:"edges"`
}

// Save writes store (plus an optional caller-supplied manifest, typically a
// discover.Manifest) to path as a framed container using codec.
func Save(path string, store *graph.Store, manifest interface{}, codec Codec) error {
	p := payload{
		Version:  formatVersion,
		Manifest: manifest,
		Nodes:    store.AllNodes(),
		Edges:    store.AllEdges(),
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return &FormatError{Path: path, Err: err}
	}

	compressed, err := compress(codec, raw)
	if err != nil {
		return &FormatError{Path: path, Err: err}
	}

	var buf bytes.Buffer
	buf.Write(magic[:])
	if err := binary.Write(&buf, binary.LittleEndian, uint32(formatVersion)); err != nil {
		return &FormatError{Path: path, Err: err}
	}
	buf.WriteByte(byte(codec))
	buf.Write(compressed)

	if err := atomicWrite(path, buf.Bytes()); err != nil {
		return &FormatError{Path: path, Err: err}
	}

	return writeSidecar(path, raw, store)
}

// Load reads and decodes a container written by Save. It also accepts two
// legacy formats for backward compatibility: raw gzip (no frame header) and
// plain JSON, detected by sniffing the first bytes.
//
// When a valid, non-stale sidecar sits next to path, its indices are
// deserialized directly and the full O(N) reindex is skipped entirely; any
// sidecar miss (absent, corrupt, version mismatch, stale hash, or a count
// mismatch against the container) falls back to the ordinary bulk-merge and
// full rebuild path.
func Load(path string) (*graph.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}

	raw, err := decodeContainer(path, data)
	if err != nil {
		return nil, err
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}

	if store, ok := loadSidecar(path, raw, p); ok {
		return store, nil
	}

	store := graph.NewStore()
	store.MergeBulk(graph.SubGraph{Nodes: p.Nodes, Edges: p.Edges})
	store.ReindexAll()
	return store, nil
}

// LoadManifest returns the raw JSON of the manifest embedded in the
// container at path, or nil if the container carries none. Callers
// unmarshal it into their own manifest type (typically discover.Manifest)
// to keep persist free of a dependency on discover.
func LoadManifest(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	raw, err := decodeContainer(path, data)
	if err != nil {
		return nil, err
	}
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &FormatError{Path: path, Err: err}
	}
	if p.Manifest == nil {
		return nil, nil
	}
	return json.Marshal(p.Manifest)
}

func decodeContainer(path string, data []byte) ([]byte, error) {
	switch {
	case len(data) >= 8 && bytes.Equal(data[:8], magic[:]):
		return decodeFramed(path, data)
	case len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b:
		return decompressGzip(data)
	case len(data) > 0 && (data[0] == '{' || isWhitespace(data[0])):
		return data, nil
	default:
		return nil, &FormatError{Path: path, Err: fmt.Errorf("unrecognized container format")}
	}
}

func decodeFramed(path string, data []byte) ([]byte, error) {
	if len(data) < 13 {
		return nil, &FormatError{Path: path, Err: fmt.Errorf("truncated header")}
	}
	version := binary.LittleEndian.Uint32(data[8:12])
	if version != formatVersion {
		return nil, &FormatError{Path: path, Err: fmt.Errorf("unsupported format version %d", version)}
	}
	codec := Codec(data[12])
	body := data[13:]
	return decompress(codec, body)
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func compress(codec Codec, raw []byte) ([]byte, error) {
	switch codec {
	case CodecRaw:
		return raw, nil
	case CodecGzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(raw); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CodecZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(raw, nil), nil
	case CodecLZ4:
		return s2.Encode(nil, raw), nil
	default:
		return nil, fmt.Errorf("unknown codec %d", codec)
	}
}

func decompress(codec Codec, body []byte) ([]byte, error) {
	switch codec {
	case CodecRaw:
		return body, nil
	case CodecGzip:
		return decompressGzip(body)
	case CodecZstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(body, nil)
	case CodecLZ4:
		return s2.Decode(nil, body)
	default:
		return nil, fmt.Errorf("unknown codec %d", codec)
	}
}

func decompressGzip(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// atomicWrite writes to a temp file in the same directory, then renames it
// into place, so a crash mid-write never leaves a half-written graph.bin
// behind.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// GraphHash computes the sidecar's stable 64-bit validation hash over the
// uncompressed JSON payload bytes.
func GraphHash(raw []byte) uint64 {
	return xxhash.Sum64(raw)
}
