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

// Package metrics holds the Prometheus collectors that codenav's commands
// record into. Only the index command serves them over HTTP, when run with
// --metrics-addr.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type collectors struct {
	once sync.Once

	filesIndexed  prometheus.Counter
	filesSkipped  prometheus.Counter
	parseErrors   prometheus.Counter
	nodesIndexed  prometheus.Counter
	edgesIndexed  prometheus.Counter
	edgesResolved prometheus.Counter

	queryRequests     prometheus.Counter
	traversalRequests prometheus.Counter
	nodesVisited      prometheus.Counter
	cacheStaleHits    prometheus.Counter

	indexDuration     prometheus.Histogram
	queryDuration     prometheus.Histogram
	traversalDuration prometheus.Histogram
}

var m collectors

func (c *collectors) init() {
	c.once.Do(func() {
		c.filesIndexed = prometheus.NewCounter(prometheus.CounterOpts{Name: "codenav_files_indexed_total", Help: "Source files successfully parsed and merged into the graph"})
		c.filesSkipped = prometheus.NewCounter(prometheus.CounterOpts{Name: "codenav_files_skipped_total", Help: "Files skipped by exclude globs, size limit, or incremental manifest match"})
		c.parseErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "codenav_parse_errors_total", Help: "Files that failed extraction"})
		c.nodesIndexed = prometheus.NewCounter(prometheus.CounterOpts{Name: "codenav_nodes_indexed_total", Help: "Definitions (functions, methods, classes, interfaces) merged into the graph"})
		c.edgesIndexed = prometheus.NewCounter(prometheus.CounterOpts{Name: "codenav_edges_indexed_total", Help: "Call edges merged into the graph"})
		c.edgesResolved = prometheus.NewCounter(prometheus.CounterOpts{Name: "codenav_edges_resolved_total", Help: "Call edges whose callee resolved to a known node ID"})

		c.queryRequests = prometheus.NewCounter(prometheus.CounterOpts{Name: "codenav_query_requests_total", Help: "query subcommand invocations"})
		c.traversalRequests = prometheus.NewCounter(prometheus.CounterOpts{Name: "codenav_traversal_requests_total", Help: "trace/callers/path subcommand invocations"})
		c.nodesVisited = prometheus.NewCounter(prometheus.CounterOpts{Name: "codenav_traversal_nodes_visited_total", Help: "Nodes visited across all traversal operations"})
		c.cacheStaleHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "codenav_cache_stale_total", Help: "Loads that found a stale or missing sidecar index cache"})

		buckets := []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}
		c.indexDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codenav_index_seconds", Help: "Wall-clock duration of an index run", Buckets: buckets})
		c.queryDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codenav_query_seconds", Help: "Wall-clock duration of a query run", Buckets: buckets})
		c.traversalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "codenav_traversal_seconds", Help: "Wall-clock duration of a trace/callers/path run", Buckets: buckets})

		prometheus.MustRegister(
			c.filesIndexed, c.filesSkipped, c.parseErrors,
			c.nodesIndexed, c.edgesIndexed, c.edgesResolved,
			c.queryRequests, c.traversalRequests, c.nodesVisited, c.cacheStaleHits,
			c.indexDuration, c.queryDuration, c.traversalDuration,
		)
	})
}

// RecordFileIndexed increments the successfully-parsed file counter.
func RecordFileIndexed() { m.init(); m.filesIndexed.Inc() }

// RecordFileSkipped increments the skipped-file counter.
func RecordFileSkipped() { m.init(); m.filesSkipped.Inc() }

// RecordParseError increments the extraction-failure counter.
func RecordParseError() { m.init(); m.parseErrors.Inc() }

// RecordNodesIndexed adds n to the indexed-definitions counter.
func RecordNodesIndexed(n int) {
	m.init()
	m.nodesIndexed.Add(float64(n))
}

// RecordEdgesIndexed adds total edges and, separately, resolved edges (those
// whose CalleeID is non-empty).
func RecordEdgesIndexed(total, resolved int) {
	m.init()
	m.edgesIndexed.Add(float64(total))
	m.edgesResolved.Add(float64(resolved))
}

// RecordQuery increments the query-subcommand counter.
func RecordQuery() { m.init(); m.queryRequests.Inc() }

// RecordTraversal increments the traversal-subcommand counter and adds
// nodesVisited to the running total.
func RecordTraversal(nodesVisited int) {
	m.init()
	m.traversalRequests.Inc()
	m.nodesVisited.Add(float64(nodesVisited))
}

// RecordCacheStale increments the stale-sidecar counter.
func RecordCacheStale() { m.init(); m.cacheStaleHits.Inc() }

// ObserveIndexDuration records one index run's wall-clock duration in seconds.
func ObserveIndexDuration(seconds float64) { m.init(); m.indexDuration.Observe(seconds) }

// ObserveQueryDuration records one query run's wall-clock duration in seconds.
func ObserveQueryDuration(seconds float64) { m.init(); m.queryDuration.Observe(seconds) }

// ObserveTraversalDuration records one traversal run's wall-clock duration in seconds.
func ObserveTraversalDuration(seconds float64) { m.init(); m.traversalDuration.Observe(seconds) }

// Handler returns the Prometheus registry's default HTTP handler, for
// wiring into a --metrics-addr listener.
func Handler() http.Handler {
	m.init()
	return promhttp.Handler()
}
