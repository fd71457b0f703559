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

// Package token defines the lexical tokens produced by the proto3 lexer.
package token

import "fmt"

// Kind identifies the lexical category of a Token. The set is closed: every
// lexeme the lexer can ever emit falls into exactly one of these kinds.
type Kind int

const (
	Invalid Kind = iota
	EOF

	Ident  // identifiers, and all keywords (see Keywords)
	Int    // decimal, octal or hex integer literal
	Float  // floating point literal
	String // quoted string literal

	// Structural punctuation.
	LBrace    // {
	RBrace    // }
	LBracket  // [
	RBracket  // ]
	LParen    // (
	RParen    // )
	LAngle    // <
	RAngle    // >
	Comma     // ,
	Semicolon // ;
	Equals    // =
	Dot       // .
	Colon     // :
	Minus     // -
)

func (k Kind) String() string {
	switch k {
	case EOF:
		return "EOF"
	case Ident:
		return "identifier"
	case Int:
		return "integer literal"
	case Float:
		return "float literal"
	case String:
		return "string literal"
	case LBrace:
		return "'{'"
	case RBrace:
		return "'}'"
	case LBracket:
		return "'['"
	case RBracket:
		return "']'"
	case LParen:
		return "'('"
	case RParen:
		return "')'"
	case LAngle:
		return "'<'"
	case RAngle:
		return "'>'"
	case Comma:
		return "','"
	case Semicolon:
		return "';'"
	case Equals:
		return "'='"
	case Dot:
		return "'.'"
	case Colon:
		return "':'"
	case Minus:
		return "'-'"
	default:
		return "invalid token"
	}
}

// Keywords is the closed set of proto3 reserved words, matched case-sensitively.
// A word token whose text is in this set is a keyword; all others are plain
// identifiers. This is intentionally a set rather than distinct Kind values
// per keyword: the parser decides what a keyword means in context (e.g.
// "stream" is only meaningful inside an rpc signature), so there is no value
// in forcing that decision into the lexer.
var Keywords = map[string]bool{
	"syntax": true, "import": true, "weak": true, "public": true,
	"package": true, "option": true, "message": true, "enum": true,
	"service": true, "rpc": true, "returns": true, "stream": true,
	"repeated": true, "optional": true, "required": true, "reserved": true,
	"to": true, "map": true, "oneof": true, "extend": true,
	"extensions": true, "group": true,

	"double": true, "float": true, "int32": true, "int64": true,
	"uint32": true, "uint64": true, "sint32": true, "sint64": true,
	"fixed32": true, "fixed64": true, "sfixed32": true, "sfixed64": true,
	"bool": true, "string": true, "bytes": true,
}

// ScalarTypes is the subset of Keywords naming proto3 scalar field types.
var ScalarTypes = map[string]bool{
	"double": true, "float": true, "int32": true, "int64": true,
	"uint32": true, "uint64": true, "sint32": true, "sint64": true,
	"fixed32": true, "fixed64": true, "sfixed32": true, "sfixed64": true,
	"bool": true, "string": true, "bytes": true,
}

// MapKeyTypes is the subset of ScalarTypes that proto3 allows as a map key.
var MapKeyTypes = map[string]bool{
	"int32": true, "int64": true, "uint32": true, "uint64": true,
	"sint32": true, "sint64": true, "fixed32": true, "fixed64": true,
	"sfixed32": true, "sfixed64": true, "bool": true, "string": true,
}

// Position is a 1-based source location, in code points.
type Position struct {
	Filename string
	Line     int
	Col      int
}

func (p Position) String() string {
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Col)
}

// IsZero reports whether the position was never set.
func (p Position) IsZero() bool {
	return p.Line == 0 && p.Col == 0
}

// Comment is a single leading or trailing comment attached to a token.
type Comment struct {
	Text string // text of the comment, including // or /* */ delimiters
	Pos  Position
}

// Token is a single lexeme together with its position and any comments
// the lexer attached to it.
type Token struct {
	Kind Kind
	Text string // source text of the lexeme; for string literals, the decoded value without quotes
	Pos  Position

	// Leading holds, in source order, every comment between the previous
	// token (other than that token's trailing comment) and this token; a
	// blank line does not detach a comment from the token that follows it.
	// Trailing holds a comment on the same source line, after this token,
	// before the next newline.
	Leading  []Comment
	Trailing *Comment
}

func (t Token) String() string {
	if t.Kind == EOF {
		return "EOF"
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

// IsKeyword reports whether t is a word token whose text is a reserved word.
func (t Token) IsKeyword(word string) bool {
	return t.Kind == Ident && t.Text == word
}
