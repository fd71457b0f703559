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

// Package descriptor lowers a proto3 AST (together with its resolved
// dependency set) into the canonical Protocol Buffers FileDescriptorProto
// form, performing map-field desugaring and qualified type-name resolution
// along the way. This is component C4, DescriptorBuilder.
package descriptor

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoschema/protoschema/ast"
	"github.com/protoschema/protoschema/reporter"
	"github.com/protoschema/protoschema/token"
)

// UnsupportedOptionError is spec error kind UnsupportedOption.
type UnsupportedOptionError struct{ Name string }

func (e UnsupportedOptionError) Error() string { return fmt.Sprintf("unsupported option %q", e.Name) }

// InvalidOptionValueError is spec error kind InvalidOptionValue.
type InvalidOptionValueError struct{ Literal string }

func (e InvalidOptionValueError) Error() string { return fmt.Sprintf("invalid option value %q", e.Literal) }

// NestedMapNotAllowedError is spec error kind NestedMapNotAllowed.
type NestedMapNotAllowedError struct{ Field string }

func (e NestedMapNotAllowedError) Error() string {
	return fmt.Sprintf("map field %q may not appear inside a oneof or be declared repeated", e.Field)
}

// Dependency is everything the builder needs to know about one file in the
// resolved set in order to resolve type references into it: its package
// name and the set of fully-qualified message/enum names it declares.
type Dependency struct {
	ImportPath string
	Package    string
	Symbols    map[string]SymbolKind // fully-qualified dotted name -> kind
}

type SymbolKind int

const (
	SymbolMessage SymbolKind = iota
	SymbolEnum
)

// Builder lowers one file's AST into a FileDescriptorProto, given its
// resolved, already-built dependencies (for cross-file name resolution).
type Builder struct {
	h      *reporter.Handler
	file   *ast.File
	deps   []Dependency
	local  map[string]SymbolKind // fully-qualified names declared by `file` itself
}

// Build lowers file into a FileDescriptorProto. deps describes every
// directly or transitively imported file already built (or otherwise known,
// e.g. well-known types), used for cross-file symbol resolution.
func Build(file *ast.File, importPaths []string, deps []Dependency, h *reporter.Handler) *descriptorpb.FileDescriptorProto {
	b := &Builder{h: h, file: file, deps: deps, local: map[string]SymbolKind{}}
	b.collectLocalSymbols()

	fd := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(file.Name),
		Syntax:     proto.String("proto3"),
		Dependency: importPaths,
	}
	if file.Package != "" {
		fd.Package = proto.String(file.Package)
	}

	for _, m := range file.Messages {
		fd.MessageType = append(fd.MessageType, b.buildMessage(m, b.scopeFor(file.Package)))
	}
	for _, e := range file.Enums {
		fd.EnumType = append(fd.EnumType, b.buildEnum(e))
	}
	for _, s := range file.Services {
		fd.Service = append(fd.Service, b.buildService(s, b.scopeFor(file.Package)))
	}
	for _, ex := range file.Extends {
		fd.Extension = append(fd.Extension, b.buildExtendFields(ex, b.scopeFor(file.Package))...)
	}
	if opts := b.buildFileOptions(file.Options); opts != nil {
		fd.Options = opts
	}
	return fd
}

// scope is the lookup chain used for name resolution: innermost message
// scope first, then each enclosing message, then the file's package, then
// imported packages. It is just a list of dotted-name prefixes to try, in
// order, each with the reference appended.
type scope struct {
	prefixes []string // from innermost to outermost, "" for top-level file scope
}

func (b *Builder) scopeFor(pkg string) scope {
	if pkg == "" {
		return scope{prefixes: []string{""}}
	}
	return scope{prefixes: []string{"." + pkg}}
}

func (b *Builder) nestedScope(parent scope, messageName string) scope {
	prefixes := make([]string, 0, len(parent.prefixes)+1)
	base := parent.prefixes[0]
	prefixes = append(prefixes, base+"."+messageName)
	prefixes = append(prefixes, parent.prefixes...)
	return scope{prefixes: prefixes}
}

// collectLocalSymbols walks the file's declared messages/enums (recursively
// through nesting) and records their fully-qualified names.
func (b *Builder) collectLocalSymbols() {
	prefix := ""
	if b.file.Package != "" {
		prefix = "." + b.file.Package
	}
	var walkMsg func(m *ast.Message, p string)
	walkMsg = func(m *ast.Message, p string) {
		fq := p + "." + m.Name
		b.local[fq] = SymbolMessage
		for _, nm := range m.Nested {
			walkMsg(nm, fq)
		}
		for _, ne := range m.NestedEnums {
			b.local[fq+"."+ne.Name] = SymbolEnum
		}
	}
	for _, m := range b.file.Messages {
		walkMsg(m, prefix)
	}
	for _, e := range b.file.Enums {
		b.local[prefix+"."+e.Name] = SymbolEnum
	}
}

// resolveType implements spec 4.4's name-resolution rule: a reference
// beginning with '.' is already fully qualified; otherwise search outward
// from the most deeply enclosing scope, then the file's package, then
// imported files' packages.
func (b *Builder) resolveType(ref string, sc scope, container string) (string, SymbolKind, bool) {
	if strings.HasPrefix(ref, ".") {
		if kind, ok := b.lookupFQ(ref); ok {
			return ref, kind, true
		}
		_ = b.h.HandleError(reporter.Error(token.Position{}, reporter.UndefinedTypeError{Reference: ref, Container: container}))
		return "", 0, false
	}
	for _, prefix := range sc.prefixes {
		candidate := prefix + "." + ref
		if kind, ok := b.lookupFQ(candidate); ok {
			return candidate, kind, true
		}
	}
	for _, d := range b.deps {
		candidate := "." + ref
		if d.Package != "" {
			candidate = "." + d.Package + "." + ref
		}
		if kind, ok := b.lookupFQ(candidate); ok {
			return candidate, kind, true
		}
	}
	if kind, ok := b.lookupFQ("." + ref); ok {
		return "." + ref, kind, true
	}
	_ = b.h.HandleError(reporter.Error(token.Position{}, reporter.UndefinedTypeError{Reference: ref, Container: container}))
	return "", 0, false
}

func (b *Builder) lookupFQ(name string) (SymbolKind, bool) {
	if kind, ok := b.local[name]; ok {
		return kind, true
	}
	for _, d := range b.deps {
		if kind, ok := d.Symbols[name]; ok {
			return kind, true
		}
	}
	return 0, false
}

func nestedMapNotAllowedErr(f *ast.Field) reporter.ErrorWithPos {
	return reporter.Error(f.Pos, NestedMapNotAllowedError{Field: f.Name})
}

func unsupportedOptionErr(pos token.Position, name string) reporter.ErrorWithPos {
	return reporter.Error(pos, UnsupportedOptionError{Name: name})
}

func invalidOptionValueErr(pos token.Position, literal string) reporter.ErrorWithPos {
	return reporter.Error(pos, InvalidOptionValueError{Literal: literal})
}
