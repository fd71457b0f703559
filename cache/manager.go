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
	"time"

	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoschema/protoschema/ast"
	"github.com/protoschema/protoschema/resolver"
)

// Config controls the three tables' capacity and TTL. A zero value yields
// workable defaults.
type Config struct {
	MaxEntries int
	TTL        time.Duration
}

func (c Config) maxEntries() int {
	if c.MaxEntries <= 0 {
		return 1024
	}
	return c.MaxEntries
}

// Manager owns the three disjoint cache tables named in spec 3: AST,
// descriptor, and dependency-resolution. It is the process-wide mutable
// state described in spec 5, and its Reset method is the "reset operation"
// named there.
type Manager struct {
	AST          *Table[*ast.File]
	Descriptor   *Table[*descriptorpb.FileDescriptorProto]
	Dependencies *Table[*resolver.Result]
}

// NewManager builds a Manager whose three tables share the given config.
func NewManager(cfg Config) *Manager {
	return &Manager{
		AST:          NewTable[*ast.File](cfg.maxEntries(), cfg.TTL),
		Descriptor:   NewTable[*descriptorpb.FileDescriptorProto](cfg.maxEntries(), cfg.TTL),
		Dependencies: NewTable[*resolver.Result](cfg.maxEntries(), cfg.TTL),
	}
}

// Reset clears every table. Per spec 5 this must quiesce in-flight readers
// first; since every table serializes reads and writes behind its own
// mutex, clearing each table in turn is sufficient — a Clear call blocks
// until any in-progress Get/Put on that table has returned.
func (m *Manager) Reset() {
	m.AST.Clear()
	m.Descriptor.Clear()
	m.Dependencies.Clear()
}

// Statistics is the public shape returned by cache_statistics().
type Statistics struct {
	AST          Stats
	Descriptor   Stats
	Dependencies Stats
}

func (m *Manager) Statistics() Statistics {
	return Statistics{
		AST:          m.AST.Stats(),
		Descriptor:   m.Descriptor.Stats(),
		Dependencies: m.Dependencies.Stats(),
	}
}
