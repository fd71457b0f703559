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

package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/protoschema/protoschema/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeBasicMessage(t *testing.T) {
	src := `syntax = "proto3";

message Foo {
  int32 id = 1;
}
`
	toks, err := Tokenize(src, "a.proto")
	require.NoError(t, err)
	require.NotEmpty(t, toks)
	assert.Equal(t, token.EOF, toks[len(toks)-1].Kind)

	var names []string
	for _, tok := range toks {
		if tok.Kind == token.Ident {
			names = append(names, tok.Text)
		}
	}
	assert.Contains(t, names, "message")
	assert.Contains(t, names, "Foo")
	assert.Contains(t, names, "int32")
}

func TestLineColumnTracking(t *testing.T) {
	toks, err := Tokenize("message Foo {\n  int32 a = 1;\n}\n", "a.proto")
	require.NoError(t, err)
	var aTok token.Token
	for _, tok := range toks {
		if tok.Kind == token.Ident && tok.Text == "a" {
			aTok = tok
		}
	}
	assert.Equal(t, 2, aTok.Pos.Line)
	assert.Equal(t, 9, aTok.Pos.Col)
}

func TestLineBreakCounting(t *testing.T) {
	// "\r\n" is one break; "\n\r" is two, per spec.
	toks, err := Tokenize("a\r\nb", "x")
	require.NoError(t, err)
	require.Len(t, toks, 3) // a, b, EOF
	assert.Equal(t, 1, toks[0].Pos.Line)
	assert.Equal(t, 2, toks[1].Pos.Line)

	toks2, err := Tokenize("a\n\rb", "x")
	require.NoError(t, err)
	require.Len(t, toks2, 3)
	assert.Equal(t, 1, toks2[0].Pos.Line)
	assert.Equal(t, 3, toks2[1].Pos.Line, "\\n\\r must count as two separate breaks")
}

func TestCommentAttachment(t *testing.T) {
	src := "// leading\nmessage Foo {} // trailing\n"
	toks, err := Tokenize(src, "a.proto")
	require.NoError(t, err)

	var messageTok, rbraceTok token.Token
	for _, tok := range toks {
		if tok.Kind == token.Ident && tok.Text == "message" {
			messageTok = tok
		}
		if tok.Kind == token.RBrace {
			rbraceTok = tok
		}
	}
	require.Len(t, messageTok.Leading, 1)
	assert.Equal(t, "// leading", messageTok.Leading[0].Text)
	require.NotNil(t, rbraceTok.Trailing)
	assert.Equal(t, "// trailing", rbraceTok.Trailing.Text)
}

func TestBlockComment(t *testing.T) {
	toks, err := Tokenize("/* a block\ncomment */ message", "a.proto")
	require.NoError(t, err)
	require.Len(t, toks[0].Leading, 1)
	assert.Contains(t, toks[0].Leading[0].Text, "block")
}

func TestNestedBlockCommentRejected(t *testing.T) {
	_, err := Tokenize("/* outer /* inner */ */", "a.proto")
	require.Error(t, err)
}

func TestUnterminatedBlockComment(t *testing.T) {
	_, err := Tokenize("/* never closes", "a.proto")
	require.Error(t, err)
}

func TestStringEscapes(t *testing.T) {
	toks, err := Tokenize(`"a\nb\tc\"d"`, "a.proto")
	require.NoError(t, err)
	assert.Equal(t, "a\nb\tc\"d", toks[0].Text)
}

func TestUnterminatedString(t *testing.T) {
	_, err := Tokenize(`"abc`, "a.proto")
	require.Error(t, err)
}

func TestStringRejectsEmbeddedNewline(t *testing.T) {
	_, err := Tokenize("\"abc\ndef\"", "a.proto")
	require.Error(t, err)
}

func TestNumberLiterals(t *testing.T) {
	cases := map[string]token.Kind{
		"123":    token.Int,
		"0x1F":   token.Int,
		"0755":   token.Int,
		"1.5":    token.Float,
		"1.":     token.Float,
		"1e10":   token.Float,
		"1.5e-3": token.Float,
	}
	for src, want := range cases {
		toks, err := Tokenize(src, "a.proto")
		require.NoError(t, err, src)
		assert.Equal(t, want, toks[0].Kind, src)
	}
}

func TestMalformedNumberRejected(t *testing.T) {
	for _, src := range []string{"1.2.3", "1e", "123abc"} {
		_, err := Tokenize(src, "a.proto")
		assert.Error(t, err, src)
	}
}

func TestPunctuation(t *testing.T) {
	toks, err := Tokenize("{}[]()<>,;=.:-", "a.proto")
	require.NoError(t, err)
	want := []token.Kind{
		token.LBrace, token.RBrace, token.LBracket, token.RBracket,
		token.LParen, token.RParen, token.LAngle, token.RAngle,
		token.Comma, token.Semicolon, token.Equals, token.Dot, token.Colon, token.Minus,
		token.EOF,
	}
	assert.Equal(t, want, kinds(toks))
}

func TestEOFAppearsExactlyOnce(t *testing.T) {
	toks, err := Tokenize("message Foo {}", "a.proto")
	require.NoError(t, err)
	count := 0
	for _, tok := range toks {
		if tok.Kind == token.EOF {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, token.EOF, toks[len(toks)-1].Kind)
}
