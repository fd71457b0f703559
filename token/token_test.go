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

package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionString(t *testing.T) {
	p := Position{Filename: "a.proto", Line: 3, Col: 7}
	assert.Equal(t, "a.proto:3:7", p.String())
}

func TestPositionIsZero(t *testing.T) {
	assert.True(t, Position{}.IsZero())
	assert.False(t, Position{Filename: "a.proto", Line: 1, Col: 1}.IsZero())
}

func TestKeywordsClosedSet(t *testing.T) {
	for _, want := range []string{
		"syntax", "import", "weak", "public", "package", "option", "message",
		"enum", "service", "rpc", "returns", "stream", "repeated", "optional",
		"required", "reserved", "to", "map", "oneof", "extend", "extensions", "group",
	} {
		assert.True(t, Keywords[want], "expected %q to be a keyword", want)
	}
	assert.False(t, Keywords["Foo"])
}

func TestScalarTypesClosedSet(t *testing.T) {
	for _, want := range []string{
		"double", "float", "int32", "int64", "uint32", "uint64", "sint32",
		"sint64", "fixed32", "fixed64", "sfixed32", "sfixed64", "bool", "string", "bytes",
	} {
		assert.True(t, ScalarTypes[want])
	}
}

func TestMapKeyTypesExcludesFloatingAndBytes(t *testing.T) {
	assert.False(t, MapKeyTypes["float"])
	assert.False(t, MapKeyTypes["double"])
	assert.False(t, MapKeyTypes["bytes"])
	assert.True(t, MapKeyTypes["string"])
	assert.True(t, MapKeyTypes["int64"])
}

func TestTokenIsKeyword(t *testing.T) {
	tok := Token{Kind: Ident, Text: "message"}
	require.True(t, tok.IsKeyword("message"))
	require.False(t, tok.IsKeyword("enum"))

	ident := Token{Kind: Ident, Text: "stream"}
	assert.True(t, ident.IsKeyword("stream"), "context, not lexical form, decides keyword-ness; lexer always emits Ident")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "EOF", EOF.String())
	assert.Equal(t, "identifier", Ident.String())
	assert.Equal(t, "'{'", LBrace.String())
}
