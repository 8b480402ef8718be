/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics records the arrival/completion counters,
// interarrival/intercompletion histograms and connection-table gauge,
// and provides SelectStream, which prefers the lighter-loaded south
// stream from caller-supplied StreamLoad values (spec.md §4.15 "Metrics
// collaborator"). The connector holds a Collector but calls none of its
// Record/Set methods nor SelectStream.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is one node's metrics registry. It is safe for concurrent
// use: the vectors' own locking covers cross-goroutine access, and the
// per-stream load bookkeeping is guarded by an internal mutex.
type Collector struct {
	Registry *prometheus.Registry

	sessionArrivals   *prometheus.CounterVec
	sessionCompletion *prometheus.CounterVec
	streamInterarrive *prometheus.HistogramVec
	streamInterclose  *prometheus.HistogramVec
	tableSize         *prometheus.GaugeVec

	mu        sync.Mutex
	lastEvent map[string]time.Time // key: interface|stream
}

// New builds a Collector and registers its vectors on a fresh registry.
func New() *Collector {
	c := &Collector{
		Registry:  prometheus.NewRegistry(),
		lastEvent: make(map[string]time.Time),

		sessionArrivals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudbus_session_arrivals_total",
			Help: "Sessions accepted on a north interface.",
		}, []string{"interface"}),

		sessionCompletion: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudbus_session_completions_total",
			Help: "Sessions that reached CLOSED on a north interface.",
		}, []string{"interface"}),

		streamInterarrive: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloudbus_stream_interarrival_seconds",
			Help:    "Time between successive session arrivals routed to a south stream.",
			Buckets: prometheus.DefBuckets,
		}, []string{"interface", "stream"}),

		streamInterclose: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloudbus_stream_intercompletion_seconds",
			Help:    "Time between successive session completions on a south stream.",
			Buckets: prometheus.DefBuckets,
		}, []string{"interface", "stream"}),

		tableSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cloudbus_connection_table_size",
			Help: "Occupied slots in the connection table, by node role.",
		}, []string{"role"}),
	}

	c.Registry.MustRegister(c.sessionArrivals, c.sessionCompletion, c.streamInterarrive, c.streamInterclose, c.tableSize)
	return c
}

// RecordArrival counts a new session on iface and records the
// interarrival gap for the chosen south stream.
func (c *Collector) RecordArrival(ifaceName, stream string, now time.Time) {
	c.sessionArrivals.WithLabelValues(ifaceName).Inc()
	c.recordGap(c.streamInterarrive, ifaceName, stream, "a:"+ifaceName+"|"+stream, now)
}

// RecordCompletion counts a session reaching CLOSED on iface and records
// the intercompletion gap for its south stream.
func (c *Collector) RecordCompletion(ifaceName, stream string, now time.Time) {
	c.sessionCompletion.WithLabelValues(ifaceName).Inc()
	c.recordGap(c.streamInterclose, ifaceName, stream, "c:"+ifaceName+"|"+stream, now)
}

func (c *Collector) recordGap(hv *prometheus.HistogramVec, ifaceName, stream, key string, now time.Time) {
	c.mu.Lock()
	prev, ok := c.lastEvent[key]
	c.lastEvent[key] = now
	c.mu.Unlock()

	if ok {
		hv.WithLabelValues(ifaceName, stream).Observe(now.Sub(prev).Seconds())
	}
}

// SetTableSize publishes the connection table's occupied-slot count for
// a node role (controller/segment/proxy).
func (c *Collector) SetTableSize(role string, size int) {
	c.tableSize.WithLabelValues(role).Set(float64(size))
}

// StreamLoad is one south stream's current load signal for
// SelectStream: more in-flight sessions and a smaller interarrival gap
// average mean a stream is running hotter.
type StreamLoad struct {
	Stream       string
	InFlight     int
	AvgInterval  time.Duration
}

// SelectStream implements select_stream: pick the south stream with the
// fewest in-flight sessions, breaking ties by the larger average
// interarrival gap (a bigger gap means the stream has had more idle
// time, i.e. is less loaded) (spec.md §4.8 "load-aware south-stream
// selection").
func SelectStream(candidates []StreamLoad) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.InFlight < best.InFlight {
			best = c
			continue
		}
		if c.InFlight == best.InFlight && c.AvgInterval > best.AvgInterval {
			best = c
		}
	}

	return best.Stream, true
}
