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

// Package cache implements the content-hash-keyed cache tables described in
// spec 4.5: an AST table, a descriptor table, and a dependency-resolution
// table, each with LRU eviction bounded by entry count and TTL-based
// expiration. This is component C5's caching half.
package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Key identifies one cache entry: an absolute file path paired with the
// content hash of its bytes at the time of production.
type Key struct {
	Path string
	Hash string
}

// entry wraps a stored value with the bookkeeping fields spec 3's "Cache
// entries" data model names: byte size, insertion/last-access timestamps,
// access count, and production cost.
type entry[V any] struct {
	value        V
	size         int
	insertedAt   time.Time
	lastAccess   time.Time
	accessCount  int64
	productionMs float64
}

// Stats mirrors spec 4.5's per-table statistics.
type Stats struct {
	Hits             int64
	Misses           int64
	Evictions        int64
	totalProductions int64
	totalProduceMs   float64
}

// AverageProductionTime returns the mean production cost, as a
// time.Duration, of entries inserted into the table so far.
func (s Stats) AverageProductionTime() time.Duration {
	if s.totalProductions == 0 {
		return 0
	}
	return time.Duration(s.totalProduceMs/float64(s.totalProductions)) * time.Millisecond
}

// Table is a single content-hash-keyed cache table, generic over its stored
// value type (AST, descriptor, or resolution result). It is safe for
// concurrent use by multiple readers and one writer discipline: every
// method takes the table's single mutex, matching spec 5's "single-writer /
// many-reader" requirement with the simplest correct implementation.
type Table[V any] struct {
	mu  sync.Mutex
	lru *lru.Cache[Key, *entry[V]]
	ttl time.Duration

	stats Stats
}

// NewTable constructs a table holding at most maxEntries items, each
// expiring ttl after insertion. ttl <= 0 disables expiration.
func NewTable[V any](maxEntries int, ttl time.Duration) *Table[V] {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	t := &Table[V]{ttl: ttl}
	c, err := lru.NewWithEvict[Key, *entry[V]](maxEntries, func(Key, *entry[V]) {
		t.stats.Evictions++
	})
	if err != nil {
		// Only returned for maxEntries <= 0, already guarded above.
		panic(err)
	}
	t.lru = c
	return t
}

// Get returns the cached value for key if present and not expired. A
// successful lookup bumps the entry's last-access time and access count and
// increments the hit counter; a miss (absent or expired) increments the
// miss counter.
func (t *Table[V]) Get(key Key) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.lru.Get(key)
	if !ok {
		t.stats.Misses++
		var zero V
		return zero, false
	}
	if t.ttl > 0 && time.Since(e.insertedAt) > t.ttl {
		t.lru.Remove(key)
		t.stats.Misses++
		var zero V
		return zero, false
	}
	e.lastAccess = time.Now()
	e.accessCount++
	t.stats.Hits++
	return e.value, true
}

// Put inserts or overwrites the entry for key, recording its size (bytes,
// as estimated by the caller) and production time.
func (t *Table[V]) Put(key Key, value V, size int, production time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.lru.Add(key, &entry[V]{
		value:        value,
		size:         size,
		insertedAt:   now,
		lastAccess:   now,
		productionMs: float64(production.Milliseconds()),
	})
	t.stats.totalProductions++
	t.stats.totalProduceMs += float64(production.Milliseconds())
}

// Sweep removes every entry older than the table's TTL. Callers may invoke
// this periodically instead of relying solely on lazy expiration at Get
// time.
func (t *Table[V]) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ttl <= 0 {
		return 0
	}
	removed := 0
	for _, key := range t.lru.Keys() {
		e, ok := t.lru.Peek(key)
		if !ok {
			continue
		}
		if time.Since(e.insertedAt) > t.ttl {
			t.lru.Remove(key)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of the table's hit/miss/eviction/production
// statistics.
func (t *Table[V]) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// TotalSize sums the recorded byte size of every live entry, an approximate
// memory-usage ceiling per spec 4.5.
func (t *Table[V]) TotalSize() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := 0
	for _, key := range t.lru.Keys() {
		if e, ok := t.lru.Peek(key); ok {
			total += e.size
		}
	}
	return total
}

// Len returns the number of live entries.
func (t *Table[V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lru.Len()
}

// Clear empties the table without resetting its statistics.
func (t *Table[V]) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lru.Purge()
}
