// Copyright 2020-2023 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector adapts a Manager's statistics to the Prometheus client library,
// for callers embedding this module in a long-running service that already
// exposes a /metrics endpoint. It is optional: nothing in the core
// pipeline depends on it.
type Collector struct {
	mgr *Manager

	hits      *prometheus.Desc
	misses    *prometheus.Desc
	evictions *prometheus.Desc
	size      *prometheus.Desc
	entries   *prometheus.Desc
}

// NewCollector wraps mgr for registration with a prometheus.Registry.
func NewCollector(mgr *Manager) *Collector {
	labels := []string{"table"}
	return &Collector{
		mgr:       mgr,
		hits:      prometheus.NewDesc("protoschema_cache_hits_total", "Cache hits per table.", labels, nil),
		misses:    prometheus.NewDesc("protoschema_cache_misses_total", "Cache misses per table.", labels, nil),
		evictions: prometheus.NewDesc("protoschema_cache_evictions_total", "Cache evictions per table.", labels, nil),
		size:      prometheus.NewDesc("protoschema_cache_bytes", "Approximate bytes retained per table.", labels, nil),
		entries:   prometheus.NewDesc("protoschema_cache_entries", "Live entry count per table.", labels, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.evictions
	ch <- c.size
	ch <- c.entries
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.collectTable(ch, "ast", c.mgr.AST)
	c.collectTable(ch, "descriptor", c.mgr.Descriptor)
	c.collectTable(ch, "dependencies", c.mgr.Dependencies)
}

// tableStats is the minimal view of a Table[V] the collector needs,
// avoiding a second generic parameter on Collector itself.
type tableStats interface {
	Stats() Stats
	TotalSize() int
	Len() int
}

func (c *Collector) collectTable(ch chan<- prometheus.Metric, name string, t tableStats) {
	st := t.Stats()
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(st.Hits), name)
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(st.Misses), name)
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(st.Evictions), name)
	ch <- prometheus.MustNewConstMetric(c.size, prometheus.GaugeValue, float64(t.TotalSize()), name)
	ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(t.Len()), name)
}

var _ prometheus.Collector = (*Collector)(nil)
