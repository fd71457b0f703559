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

package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protoschema/protoschema/ast"
)

func TestContentHashDeterministic(t *testing.T) {
	a := ContentHash([]byte("hello"))
	b := ContentHash([]byte("hello"))
	c := ContentHash([]byte("world"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestCombinedHashOrderSensitive(t *testing.T) {
	h1 := CombinedHash([]string{"a", "b"})
	h2 := CombinedHash([]string{"b", "a"})
	assert.NotEqual(t, h1, h2)
	assert.Equal(t, h1, CombinedHash([]string{"a", "b"}))
}

func TestScanHeader(t *testing.T) {
	text := `// comment
syntax = "proto3";
package foo.bar;

import "a/b.proto";
import public "c/d.proto";
import weak "e/f.proto";
`
	syntax, pkg, imports := scanHeader(text)
	assert.Equal(t, "proto3", syntax)
	assert.Equal(t, "foo.bar", pkg)
	require.Len(t, imports, 3)
	assert.Equal(t, "a/b.proto", imports[0].Path)
	assert.Equal(t, ast.ImportPlain, imports[0].Modifier)
	assert.Equal(t, "c/d.proto", imports[1].Path)
	assert.Equal(t, ast.ImportPublic, imports[1].Modifier)
	assert.Equal(t, "e/f.proto", imports[2].Path)
	assert.Equal(t, ast.ImportWeak, imports[2].Modifier)
}

func TestScanHeaderIgnoresCommentedDeclarations(t *testing.T) {
	text := "// syntax = \"proto2\";\nsyntax = \"proto3\";\n"
	syntax, _, _ := scanHeader(text)
	assert.Equal(t, "proto3", syntax)
}

func TestIsWellKnown(t *testing.T) {
	assert.True(t, isWellKnown("google/protobuf/any.proto"))
	assert.True(t, isWellKnown("google/type/date.proto"))
	assert.True(t, isWellKnown("google/api/http.proto"))
	assert.False(t, isWellKnown("myapp/foo.proto"))
}

func TestResolveDirectOnly(t *testing.T) {
	store := MapStore{
		"/root/entry.proto": `syntax = "proto3";
import "dep.proto";
`,
		"/root/dep.proto": `syntax = "proto3";
message Dep {}
`,
	}
	res, err := Resolve("/root/entry.proto", Config{ImportRoots: []string{"/root"}, Recursive: false, ValidateSyntax: true}, store)
	require.NoError(t, err)
	require.Len(t, res.Dependencies, 1)
	assert.Equal(t, "dep.proto", res.Dependencies[0].ImportPath)
	require.Len(t, res.Ordered, 2)
	assert.Equal(t, "dep.proto", res.Ordered[0].ImportPath, "dependency must precede dependent in topological order")
}

func TestResolveWellKnownImportNotRead(t *testing.T) {
	store := MapStore{
		"/root/entry.proto": `syntax = "proto3";
import "google/protobuf/any.proto";
`,
	}
	res, err := Resolve("/root/entry.proto", Config{ImportRoots: []string{"/root"}, Recursive: true}, store)
	require.NoError(t, err)
	assert.Empty(t, res.Dependencies)
	assert.Equal(t, 1, res.Stats.WellKnownImports)
}

func TestResolveMissingImportFails(t *testing.T) {
	store := MapStore{
		"/root/entry.proto": `syntax = "proto3";
import "missing.proto";
`,
	}
	_, err := Resolve("/root/entry.proto", Config{ImportRoots: []string{"/root"}, Recursive: true}, store)
	require.Error(t, err)
	var notFound ImportNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestResolveAllowMissingImportsWarns(t *testing.T) {
	store := MapStore{
		"/root/entry.proto": `syntax = "proto3";
import "missing.proto";
`,
	}
	res, err := Resolve("/root/entry.proto", Config{ImportRoots: []string{"/root"}, Recursive: true, AllowMissingImports: true}, store)
	require.NoError(t, err)
	assert.Len(t, res.Warnings, 1)
}

func TestResolveDetectsCycle(t *testing.T) {
	store := MapStore{
		"/root/a.proto": `syntax = "proto3";
import "b.proto";
`,
		"/root/b.proto": `syntax = "proto3";
import "a.proto";
`,
	}
	_, err := Resolve("/root/a.proto", Config{ImportRoots: []string{"/root"}, Recursive: true, DetectCycles: true}, store)
	require.Error(t, err)
	var cycle CircularDependencyError
	require.ErrorAs(t, err, &cycle)
}

func TestResolveValidateSyntaxRejectsProto2(t *testing.T) {
	store := MapStore{
		"/root/entry.proto": `syntax = "proto2";
`,
	}
	_, err := Resolve("/root/entry.proto", Config{ImportRoots: []string{"/root"}, ValidateSyntax: true}, store)
	require.Error(t, err)
	var invalid InvalidSyntaxError
	require.ErrorAs(t, err, &invalid)
}

func TestResolveValidateSyntaxRequiresDeclaration(t *testing.T) {
	store := MapStore{
		"/root/entry.proto": `message Foo {}
`,
	}
	_, err := Resolve("/root/entry.proto", Config{ImportRoots: []string{"/root"}, ValidateSyntax: true}, store)
	require.Error(t, err)
	var missing MissingSyntaxError
	require.ErrorAs(t, err, &missing)
}

func TestResolveDirectoryNotFound(t *testing.T) {
	store := MapStore{"/root/entry.proto": `syntax = "proto3";`}
	_, err := Resolve("/root/entry.proto", Config{ImportRoots: []string{"/does/not/exist"}}, store)
	require.Error(t, err)
	var dirErr DirectoryNotFoundError
	require.ErrorAs(t, err, &dirErr)
}

func TestResolveTransitiveOrdering(t *testing.T) {
	store := MapStore{
		"/root/a.proto": `syntax = "proto3";
import "b.proto";
`,
		"/root/b.proto": `syntax = "proto3";
import "c.proto";
`,
		"/root/c.proto": `syntax = "proto3";
`,
	}
	res, err := Resolve("/root/a.proto", Config{ImportRoots: []string{"/root"}, Recursive: true}, store)
	require.NoError(t, err)
	require.Len(t, res.Ordered, 3)
	pos := map[string]int{}
	for i, f := range res.Ordered {
		pos[f.ImportPath] = i
	}
	assert.Less(t, pos["c.proto"], pos["b.proto"])
	assert.Less(t, pos["b.proto"], pos["a.proto"])
}
