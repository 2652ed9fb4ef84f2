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

package persist

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"os"

	"github.com/shaharia-lab/codenav/pkg/graph"
)

// sidecarSuffix names the advisory index-cache file next to graph.bin. It
// is safe to delete: losing it only means the next load falls back to
// rebuilding indices from the framed container, never a correctness issue.
const sidecarSuffix = ".idx"

// sidecarMagic and sidecarVersion identify the index-cache frame, mirroring
// the container's own magic+version header.
var sidecarMagic = [5]byte{'C', 'N', 'I', 'D', 'X'}

const sidecarVersion = 1

// sidecarHeaderLen is magic(5) + version(4) + graph_hash(8) + node_count(4)
// + edge_count(4) + codec(1), all little-endian.
const sidecarHeaderLen = 5 + 4 + 8 + 4 + 4 + 1

// sidecarIndices is the gob-encoded payload carried after the header: the
// store's five lookup indices, serialized directly so a cache hit can
// rebuild a Store without ever calling reindexAllLocked.
type sidecarIndices struct {
	NodeByID map[string]int32
	ByName   map[string][]int32
	ByKind   map[graph.NodeKind][]int32
	Outgoing map[string][]int32
	Incoming map[string][]int32
}

func sidecarPath(graphPath string) string {
	return graphPath + sidecarSuffix
}

// writeSidecar serializes store's current indices alongside the graph_hash
// of rawPayload (the uncompressed container JSON), so a later Load can
// validate the hash and deserialize the indices directly instead of
// re-parsing nodes/edges into fresh maps.
func writeSidecar(graphPath string, rawPayload []byte, store *graph.Store) error {
	idx := store.Indices()
	si := sidecarIndices{
		NodeByID: idx.NodeByID,
		ByName:   idx.ByName,
		ByKind:   idx.ByKind,
		Outgoing: idx.Outgoing,
		Incoming: idx.Incoming,
	}

	var gobBuf bytes.Buffer
	if err := gob.NewEncoder(&gobBuf).Encode(si); err != nil {
		return fmt.Errorf("persist: encode sidecar indices: %w", err)
	}
	compressed, err := compress(CodecZstd, gobBuf.Bytes())
	if err != nil {
		return fmt.Errorf("persist: compress sidecar indices: %w", err)
	}

	stats := store.Stats()

	var buf bytes.Buffer
	buf.Write(sidecarMagic[:])
	writeU32(&buf, sidecarVersion)
	writeU64(&buf, GraphHash(rawPayload))
	writeU32(&buf, uint32(stats.Nodes))
	writeU32(&buf, uint32(stats.Edges))
	buf.WriteByte(byte(CodecZstd))
	buf.Write(compressed)

	return atomicWrite(sidecarPath(graphPath), buf.Bytes())
}

// loadSidecar attempts to rebuild a Store directly from graphPath's sidecar
// and the already-decoded container payload raw, whose hash it checks
// against the sidecar's. It returns ok=false on any miss — missing file, bad
// magic/version, stale hash, node/edge count mismatch, or decode failure —
// in which case the caller falls back to the full parse-and-reindex path. A
// sidecar miss is never an error.
func loadSidecar(graphPath string, raw []byte, p payload) (*graph.Store, bool) {
	data, err := os.ReadFile(sidecarPath(graphPath))
	if err != nil || len(data) < sidecarHeaderLen {
		return nil, false
	}
	if !bytes.Equal(data[:5], sidecarMagic[:]) {
		return nil, false
	}
	off := 5
	version := binary.LittleEndian.Uint32(data[off : off+4])
	off += 4
	if version != sidecarVersion {
		return nil, false
	}
	hash := binary.LittleEndian.Uint64(data[off : off+8])
	off += 8
	if hash != GraphHash(raw) {
		return nil, false
	}
	nodeCount := binary.LittleEndian.Uint32(data[off : off+4])
	off += 4
	edgeCount := binary.LittleEndian.Uint32(data[off : off+4])
	off += 4
	if int(nodeCount) != len(p.Nodes) || int(edgeCount) != len(p.Edges) {
		return nil, false
	}
	codec := Codec(data[off])
	off++

	decompressed, err := decompress(codec, data[off:])
	if err != nil {
		return nil, false
	}
	var si sidecarIndices
	if err := gob.NewDecoder(bytes.NewReader(decompressed)).Decode(&si); err != nil {
		return nil, false
	}

	store := graph.NewStoreFromIndices(p.Nodes, p.Edges, graph.Indices{
		NodeByID: si.NodeByID,
		ByName:   si.ByName,
		ByKind:   si.ByKind,
		Outgoing: si.Outgoing,
		Incoming: si.Incoming,
	})
	return store, true
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// CacheStale reports that a sidecar is missing, unreadable, or no longer
// matches the container it's paired with.
type CacheStale struct {
	Path string
}

func (e *CacheStale) Error() string { return "persist: sidecar stale for " + e.Path }

// ValidateSidecar checks whether graphPath's sidecar header matches the
// container's current payload, without decoding the indices themselves. A
// missing sidecar is reported as *CacheStale, the same as a stale one.
func ValidateSidecar(graphPath string) error {
	data, err := os.ReadFile(graphPath)
	if err != nil {
		return err
	}
	raw, err := decodeContainer(graphPath, data)
	if err != nil {
		return err
	}

	scData, err := os.ReadFile(sidecarPath(graphPath))
	if err != nil || len(scData) < sidecarHeaderLen || !bytes.Equal(scData[:5], sidecarMagic[:]) {
		return &CacheStale{Path: graphPath}
	}
	version := binary.LittleEndian.Uint32(scData[5:9])
	if version != sidecarVersion {
		return &CacheStale{Path: graphPath}
	}
	hash := binary.LittleEndian.Uint64(scData[9:17])
	if hash != GraphHash(raw) {
		return &CacheStale{Path: graphPath}
	}
	return nil
}
