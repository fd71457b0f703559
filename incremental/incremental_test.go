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

package incremental

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protoschema/protoschema/parser"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDetectChangesFirstScanReportsAllAsAdded(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.proto", `syntax = "proto3";`)
	writeFile(t, dir, "b.proto", `syntax = "proto3";`)

	d := NewDriver(0)
	cs, err := d.DetectChanges(dir, false)
	require.NoError(t, err)
	assert.Len(t, cs.Added, 2)
	assert.Empty(t, cs.Modified)
	assert.Empty(t, cs.Removed)
}

func TestDetectChangesSecondScanIsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.proto", `syntax = "proto3";`)

	d := NewDriver(0)
	_, err := d.DetectChanges(dir, false)
	require.NoError(t, err)

	cs, err := d.DetectChanges(dir, false)
	require.NoError(t, err)
	assert.Empty(t, cs.Added)
	assert.Empty(t, cs.Modified)
	assert.Empty(t, cs.Removed)
}

func TestDetectChangesModification(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.proto", `syntax = "proto3";`)

	d := NewDriver(0)
	_, err := d.DetectChanges(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`syntax = "proto3";
message M {}
`), 0o644))

	cs, err := d.DetectChanges(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, cs.Modified)
}

func TestDetectChangesRemoval(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.proto", `syntax = "proto3";`)

	d := NewDriver(0)
	_, err := d.DetectChanges(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.Remove(path))

	cs, err := d.DetectChanges(dir, false)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, cs.Removed)
	assert.Equal(t, 0, d.Tracked())
}

func TestDetectChangesAffectedViaImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "dep.proto", `syntax = "proto3";
message Dep {}
`)
	depPath := writeFile(t, dir, "entry.proto", `syntax = "proto3";
import "dep.proto";
`)
	_ = depPath

	d := NewDriver(0)
	_, err := d.DetectChanges(dir, false)
	require.NoError(t, err)

	depFile := filepath.Join(dir, "dep.proto")
	require.NoError(t, os.WriteFile(depFile, []byte(`syntax = "proto3";
message Dep { int32 x = 1; }
`), 0o644))

	cs, err := d.DetectChanges(dir, false)
	require.NoError(t, err)
	assert.Contains(t, cs.Modified, depFile)
	assert.Contains(t, cs.Affected, filepath.Join(dir, "entry.proto"))
}

func TestDetectChangesRecursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFile(t, sub, "nested.proto", `syntax = "proto3";`)

	d := NewDriver(0)
	cs, err := d.DetectChanges(dir, true)
	require.NoError(t, err)
	assert.Len(t, cs.Added, 1)

	csNonRecursive, err := NewDriver(0).DetectChanges(dir, false)
	require.NoError(t, err)
	assert.Empty(t, csNonRecursive.Added, "non-recursive scan must not descend into subdirectories")
}

func TestParseIncrementalParsesAddedModifiedAndAffected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.proto", `syntax = "proto3";
message M { int32 x = 1; }
`)
	writeFile(t, dir, "bad.proto", `syntax = "proto3";
message { }
`)

	d := NewDriver(2)
	cs, err := d.DetectChanges(dir, false)
	require.NoError(t, err)
	require.Len(t, cs.Added, 2)

	results, err := d.ParseIncremental(context.Background(), cs, parser.Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	var sawError, sawOK bool
	for _, r := range results {
		if r.Err != nil {
			sawError = true
		} else {
			sawOK = true
			require.NotNil(t, r.File)
		}
	}
	assert.True(t, sawError)
	assert.True(t, sawOK)
}

func TestForgetRemovesTrackedFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.proto", `syntax = "proto3";`)

	d := NewDriver(0)
	_, err := d.DetectChanges(dir, false)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Tracked())

	d.Forget(path)
	assert.Equal(t, 0, d.Tracked())
}

func TestNewDriverDefaultsWorkers(t *testing.T) {
	d := NewDriver(0)
	assert.Equal(t, DefaultWorkers, d.workers)
	d2 := NewDriver(7)
	assert.Equal(t, 7, d2.workers)
}
