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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableGetMissIncrementsMisses(t *testing.T) {
	tbl := NewTable[string](10, 0)
	_, ok := tbl.Get(Key{Path: "a", Hash: "h1"})
	assert.False(t, ok)
	assert.Equal(t, int64(1), tbl.Stats().Misses)
}

func TestTablePutThenGetHits(t *testing.T) {
	tbl := NewTable[string](10, 0)
	key := Key{Path: "a", Hash: "h1"}
	tbl.Put(key, "value", 5, time.Millisecond)
	v, ok := tbl.Get(key)
	require.True(t, ok)
	assert.Equal(t, "value", v)
	assert.Equal(t, int64(1), tbl.Stats().Hits)
}

func TestTableDifferentHashIsDifferentKey(t *testing.T) {
	tbl := NewTable[string](10, 0)
	tbl.Put(Key{Path: "a", Hash: "h1"}, "v1", 1, 0)
	_, ok := tbl.Get(Key{Path: "a", Hash: "h2"})
	assert.False(t, ok, "changing a file's content hash must invalidate the prior entry")
}

func TestTableTTLExpiration(t *testing.T) {
	tbl := NewTable[string](10, time.Millisecond)
	key := Key{Path: "a", Hash: "h1"}
	tbl.Put(key, "value", 1, 0)
	time.Sleep(5 * time.Millisecond)
	_, ok := tbl.Get(key)
	assert.False(t, ok, "entry must be treated as expired once older than the table TTL")
	assert.Equal(t, int64(1), tbl.Stats().Misses)
}

func TestTableSweepRemovesExpiredEntries(t *testing.T) {
	tbl := NewTable[string](10, time.Millisecond)
	tbl.Put(Key{Path: "a", Hash: "h1"}, "v", 1, 0)
	tbl.Put(Key{Path: "b", Hash: "h2"}, "v", 1, 0)
	time.Sleep(5 * time.Millisecond)
	removed := tbl.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, tbl.Len())
}

func TestTableSweepNoopWithoutTTL(t *testing.T) {
	tbl := NewTable[string](10, 0)
	tbl.Put(Key{Path: "a", Hash: "h1"}, "v", 1, 0)
	assert.Equal(t, 0, tbl.Sweep())
	assert.Equal(t, 1, tbl.Len())
}

func TestTableEvictionTracksLRU(t *testing.T) {
	tbl := NewTable[string](1, 0)
	tbl.Put(Key{Path: "a", Hash: "h1"}, "v1", 1, 0)
	tbl.Put(Key{Path: "b", Hash: "h2"}, "v2", 1, 0)
	assert.Equal(t, int64(1), tbl.Stats().Evictions)
	assert.Equal(t, 1, tbl.Len())
	_, ok := tbl.Get(Key{Path: "a", Hash: "h1"})
	assert.False(t, ok, "the least-recently-used entry must have been evicted")
}

func TestTableTotalSizeSumsLiveEntries(t *testing.T) {
	tbl := NewTable[string](10, 0)
	tbl.Put(Key{Path: "a", Hash: "h1"}, "v1", 10, 0)
	tbl.Put(Key{Path: "b", Hash: "h2"}, "v2", 20, 0)
	assert.Equal(t, 30, tbl.TotalSize())
}

func TestTableClearEmptiesWithoutResettingStats(t *testing.T) {
	tbl := NewTable[string](10, 0)
	tbl.Put(Key{Path: "a", Hash: "h1"}, "v", 1, 0)
	tbl.Get(Key{Path: "a", Hash: "h1"})
	tbl.Clear()
	assert.Equal(t, 0, tbl.Len())
	assert.Equal(t, int64(1), tbl.Stats().Hits, "Clear must not reset historical statistics")
}

func TestAverageProductionTime(t *testing.T) {
	tbl := NewTable[string](10, 0)
	tbl.Put(Key{Path: "a", Hash: "h1"}, "v1", 1, 10*time.Millisecond)
	tbl.Put(Key{Path: "b", Hash: "h2"}, "v2", 1, 30*time.Millisecond)
	assert.Equal(t, 20*time.Millisecond, tbl.Stats().AverageProductionTime())
}

func TestAverageProductionTimeZeroWhenEmpty(t *testing.T) {
	var s Stats
	assert.Equal(t, time.Duration(0), s.AverageProductionTime())
}

func TestManagerResetClearsAllThreeTables(t *testing.T) {
	mgr := NewManager(Config{})
	mgr.AST.Put(Key{Path: "a", Hash: "h"}, nil, 1, 0)
	mgr.Descriptor.Put(Key{Path: "a", Hash: "h"}, nil, 1, 0)
	mgr.Dependencies.Put(Key{Path: "a", Hash: "h"}, nil, 1, 0)
	mgr.Reset()
	assert.Equal(t, 0, mgr.AST.Len())
	assert.Equal(t, 0, mgr.Descriptor.Len())
	assert.Equal(t, 0, mgr.Dependencies.Len())
}

func TestManagerStatisticsAggregatesPerTable(t *testing.T) {
	mgr := NewManager(Config{})
	mgr.AST.Get(Key{Path: "missing"})
	stats := mgr.Statistics()
	assert.Equal(t, int64(1), stats.AST.Misses)
	assert.Equal(t, int64(0), stats.Descriptor.Misses)
}

func TestConfigDefaultMaxEntries(t *testing.T) {
	var c Config
	assert.Equal(t, 1024, c.maxEntries())
	c.MaxEntries = 5
	assert.Equal(t, 5, c.maxEntries())
}
