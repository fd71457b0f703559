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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorDescribeEmitsFiveDescs(t *testing.T) {
	mgr := NewManager(Config{})
	c := NewCollector(mgr)
	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)
	count := 0
	for range ch {
		count++
	}
	assert.Equal(t, 5, count)
}

func TestCollectorCollectEmitsPerTableMetrics(t *testing.T) {
	mgr := NewManager(Config{})
	mgr.AST.Put(Key{Path: "a", Hash: "h"}, nil, 7, 0)
	c := NewCollector(mgr)
	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)

	count := 0
	for range ch {
		count++
	}
	assert.Equal(t, 15, count, "5 metrics x 3 tables")
}

func TestCollectorRegistersCleanly(t *testing.T) {
	mgr := NewManager(Config{})
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(mgr)))
}
