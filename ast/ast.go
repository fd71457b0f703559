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

// Package ast defines the proto3 abstract syntax tree produced by the
// parser. Nodes are plain structs carrying a kind-specific payload rather
// than an inheritance hierarchy, so pattern matching over a node list (a
// message body, a file's declarations) stays a simple type switch.
package ast

import "github.com/protoschema/protoschema/token"

// File is the root AST node: the parsed form of a single .proto source file.
type File struct {
	Name string // virtual or file-system name, for diagnostics only

	Syntax    string // always "proto3" in a successfully parsed File
	SyntaxPos token.Position

	Package    string // dotted identifier, empty if no package declared
	PackagePos token.Position

	Imports  []*Import
	Options  []*Option
	Messages []*Message
	Enums    []*Enum
	Services []*Service
	Extends  []*Extend
}

// ImportModifier distinguishes plain/public/weak imports.
type ImportModifier int

const (
	ImportPlain ImportModifier = iota
	ImportPublic
	ImportWeak
)

type Import struct {
	Path     string
	Modifier ImportModifier
	Pos      token.Position
}

// Label is a field's cardinality.
type Label int

const (
	LabelSingular Label = iota
	LabelOptional
	LabelRepeated
)

// FieldType describes a field's declared type: exactly one of Scalar,
// TypeName, or IsMap is meaningful, mirroring the "scalar enum, named type
// reference, or map<K,V>" variant in the data model.
type FieldType struct {
	Scalar string // one of token.ScalarTypes, or "" if not a scalar

	// TypeName is a (possibly dotted, possibly leading-dot-qualified)
	// reference to a message or enum type. Empty if Scalar != "" or IsMap.
	TypeName string

	IsMap     bool
	KeyType   string     // always a scalar type name, only set if IsMap
	ValueType *FieldType // only set if IsMap; itself never IsMap
}

func (t FieldType) String() string {
	switch {
	case t.IsMap:
		return "map<" + t.KeyType + "," + t.ValueType.String() + ">"
	case t.Scalar != "":
		return t.Scalar
	default:
		return t.TypeName
	}
}

type Field struct {
	Name    string
	Number  int32
	Label   Label
	Type    FieldType
	Options []*Option

	Pos             token.Position
	LeadingComments []token.Comment
	TrailingComment *token.Comment
}

type Oneof struct {
	Name   string
	Fields []*Field
	Pos    token.Position
}

// ReservedRange is an inclusive numeric reserved range; Start == End for a
// single reserved number. End == MaxFieldNumber represents "N to max".
type ReservedRange struct {
	Start, End int32
	Pos        token.Position
}

// MaxFieldNumber is the largest field number proto3 permits (spec: 1 <= n <=
// 536,870,911).
const MaxFieldNumber int32 = 536870911

// FirstReservedFieldNumber and LastReservedFieldNumber bound the
// implementation-reserved range that ordinary fields may not use.
const (
	FirstReservedFieldNumber int32 = 19000
	LastReservedFieldNumber  int32 = 19999
)

type Message struct {
	Name string

	Fields         []*Field
	Oneofs         []*Oneof
	Nested         []*Message
	NestedEnums    []*Enum
	Options        []*Option
	ReservedRanges []ReservedRange
	ReservedNames  []string

	Pos             token.Position
	LeadingComments []token.Comment
}

type EnumValue struct {
	Name    string
	Number  int32
	Options []*Option
	Pos     token.Position
}

type Enum struct {
	Name    string
	Values  []*EnumValue
	Options []*Option

	Pos             token.Position
	LeadingComments []token.Comment
}

// AllowAlias reports whether this enum declares option allow_alias = true.
func (e *Enum) AllowAlias() bool {
	for _, o := range e.Options {
		if o.Name == "allow_alias" && o.Value != nil && o.Value.Kind == ValueBool {
			return o.Value.Bool
		}
	}
	return false
}

type Method struct {
	Name             string
	InputType        string
	OutputType       string
	ClientStreaming  bool
	ServerStreaming  bool
	Options          []*Option
	Pos              token.Position
	LeadingComments  []token.Comment
}

type Service struct {
	Name    string
	Methods []*Method
	Options []*Option

	Pos             token.Position
	LeadingComments []token.Comment
}

// Extend is an `extend <target> { ... }` block. In proto3 Target must name
// one of the seven well-known option messages (see WellKnownExtendTargets).
type Extend struct {
	Target string
	Fields []*Field
	Pos    token.Position
}

// WellKnownExtendTargets is the closed set of proto3-legal extend targets.
var WellKnownExtendTargets = map[string]bool{
	"google.protobuf.FileOptions":        true,
	"google.protobuf.MessageOptions":     true,
	"google.protobuf.FieldOptions":       true,
	"google.protobuf.EnumOptions":        true,
	"google.protobuf.EnumValueOptions":   true,
	"google.protobuf.ServiceOptions":     true,
	"google.protobuf.MethodOptions":      true,
}

// ValueKind discriminates the payload of an OptionValue.
type ValueKind int

const (
	ValueString ValueKind = iota
	ValueInt
	ValueFloat
	ValueBool
	ValueIdent // an enum constant or other bare identifier
	ValueMessage
	ValueList
)

// OptionValue is a tagged variant: exactly the field(s) matching Kind are
// meaningful.
type OptionValue struct {
	Kind ValueKind

	Str   string
	Int   int64
	Float float64
	Bool  bool
	Ident string

	// Message holds ordered key/value pairs for a brace-delimited message
	// literal (Kind == ValueMessage).
	Message []*MessageLiteralField

	// List holds the elements of a bracketed list (Kind == ValueList).
	List []*OptionValue

	Pos token.Position
}

// MessageLiteralField is one `name: value` or `name { ... }` entry inside an
// option message literal.
type MessageLiteralField struct {
	Name  string
	Value *OptionValue
	Pos   token.Position
}

// Option is `name = value`, where Name may be dotted and/or wrapped in
// parens for a custom option, e.g. "(my.custom_option).sub_field".
type Option struct {
	Name  string
	Value *OptionValue
	Pos   token.Position
}
