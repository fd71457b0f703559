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

// Package protoschema wires the five compiler components (dependency
// resolution, lexing, parsing, descriptor building, and the cache tables)
// into a single Compiler entry point. It deliberately
// does not expose the one-call convenience helpers (parse_string,
// parse_file, and friends); those are a thin façade external to this
// module.
package protoschema

import (
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoschema/protoschema/ast"
	"github.com/protoschema/protoschema/cache"
	"github.com/protoschema/protoschema/descriptor"
	"github.com/protoschema/protoschema/parser"
	"github.com/protoschema/protoschema/reporter"
	"github.com/protoschema/protoschema/resolver"
)

// Compiler handles compilation tasks, turning a proto3 entry file (plus its
// resolved imports) into either an AST or a fully lowered
// FileDescriptorProto. No field is required: the zero value is usable, and a
// nil Store reads files through resolver.OSStore.
type Compiler struct {
	// ImportRoots are searched in order to resolve import statements.
	ImportRoots []string
	// AllowMissingImports degrades a missing import to a warning rather
	// than aborting resolution.
	AllowMissingImports bool
	// ValidateSyntax requires every resolved file to declare syntax =
	// "proto3".
	ValidateSyntax bool
	// MaxErrors caps parser error accumulation (0 = unlimited).
	MaxErrors int
	// Reporter receives errors and warnings as they occur; nil uses the
	// default accumulate-everything behavior.
	Reporter reporter.Reporter
	// Store abstracts file-system access; nil uses resolver.OSStore.
	Store resolver.SourceStore
	// Cache, if non-nil, short-circuits resolution/parsing/building on a
	// content-hash hit and is populated on every miss.
	Cache *cache.Manager
}

// CompileResult is the outcome of compiling one entry file.
type CompileResult struct {
	Entry        *ast.File
	Dependencies map[string]*ast.File // by import path
	Descriptor   *descriptorpb.FileDescriptorProto
	Resolution   *resolver.Result
	Errors       []reporter.ErrorWithPos
}

func (r CompileResult) Err() error {
	if len(r.Errors) > 0 {
		return reporter.ErrInvalidSource
	}
	return nil
}

// CompileAST resolves entryPath's import graph and parses every file in it,
// without lowering to descriptors. This is the form most callers want when
// they only need syntax-level information (introspection helpers like
// syntax_of/package_of/message_names_of operate on this result).
func (c *Compiler) CompileAST(entryPath string) (CompileResult, error) {
	res, err := c.resolve(entryPath)
	if err != nil {
		return CompileResult{}, err
	}

	var errs []reporter.ErrorWithPos
	entryAST, entryErrs := c.parseOne(res.Entry.AbsPath, res.Entry.ImportPath, res.Entry.Text, res.Entry.ContentHash)
	errs = append(errs, entryErrs...)

	deps := map[string]*ast.File{}
	for _, d := range res.Dependencies {
		depAST, depErrs := c.parseOne(d.AbsPath, d.ImportPath, d.Text, d.ContentHash)
		errs = append(errs, depErrs...)
		if depAST != nil {
			deps[d.ImportPath] = depAST
		}
	}

	return CompileResult{Entry: entryAST, Dependencies: deps, Resolution: res, Errors: errs}, nil
}

// CompileDescriptor resolves, parses, and lowers entryPath (and everything
// it depends on) into a FileDescriptorProto, resolving cross-file type
// references against the already-built dependency descriptors.
func (c *Compiler) CompileDescriptor(entryPath string) (CompileResult, error) {
	astResult, err := c.CompileAST(entryPath)
	if err != nil {
		return CompileResult{}, err
	}
	if astResult.Err() != nil {
		return astResult, nil
	}

	h := reporter.NewHandler(c.Reporter, c.MaxErrors)

	// Build dependency descriptors in topological order so that each
	// file's Dependency list is available for name resolution when it is
	// itself depended upon.
	depDescs := map[string]descriptor.Dependency{}
	for _, sf := range astResult.Resolution.Ordered {
		if sf.IsEntry || sf.WellKnown {
			continue
		}
		depAST, ok := astResult.Dependencies[sf.ImportPath]
		if !ok {
			continue
		}
		depList := collectDeps(depAST, depDescs)
		fd := c.buildOne(depAST, depList, sf.AbsPath, sf.ContentHash, h)
		depDescs[sf.ImportPath] = descriptor.Dependency{
			ImportPath: sf.ImportPath,
			Package:    depAST.Package,
			Symbols:    symbolsOf(depAST, fd),
		}
	}

	depList := collectDeps(astResult.Entry, depDescs)
	fd := c.buildOne(astResult.Entry, depList, astResult.Resolution.Entry.AbsPath, astResult.Resolution.Entry.ContentHash, h)

	astResult.Descriptor = fd
	astResult.Errors = append(astResult.Errors, h.Errors()...)
	return astResult, nil
}

func collectDeps(file *ast.File, known map[string]descriptor.Dependency) []descriptor.Dependency {
	var out []descriptor.Dependency
	for _, imp := range file.Imports {
		if d, ok := known[imp.Path]; ok {
			out = append(out, d)
		}
	}
	return out
}

// symbolsOf derives the fully-qualified message/enum names a just-built
// file declares, for use as a dependency's Symbols table by files that
// import it.
func symbolsOf(file *ast.File, fd *descriptorpb.FileDescriptorProto) map[string]descriptor.SymbolKind {
	syms := map[string]descriptor.SymbolKind{}
	prefix := ""
	if file.Package != "" {
		prefix = "." + file.Package
	}
	var walk func(m *descriptorpb.DescriptorProto, p string)
	walk = func(m *descriptorpb.DescriptorProto, p string) {
		fq := p + "." + m.GetName()
		syms[fq] = descriptor.SymbolMessage
		for _, nm := range m.NestedType {
			if nm.GetOptions().GetMapEntry() {
				continue
			}
			walk(nm, fq)
		}
		for _, ne := range m.EnumType {
			syms[fq+"."+ne.GetName()] = descriptor.SymbolEnum
		}
	}
	for _, m := range fd.MessageType {
		walk(m, prefix)
	}
	for _, e := range fd.EnumType {
		syms[prefix+"."+e.GetName()] = descriptor.SymbolEnum
	}
	return syms
}

func (c *Compiler) resolve(entryPath string) (*resolver.Result, error) {
	cfg := resolver.Config{
		ImportRoots:         c.ImportRoots,
		AllowMissingImports: c.AllowMissingImports,
		Recursive:           true,
		ValidateSyntax:      c.ValidateSyntax,
		DetectCycles:        true,
	}
	if c.Cache != nil {
		store := c.Store
		if store == nil {
			store = resolver.OSStore{}
		}
		data, err := store.ReadFile(entryPath)
		if err != nil {
			return nil, err
		}
		key := cache.Key{Path: entryPath, Hash: resolver.ContentHash(data)}
		if cached, ok := c.Cache.Dependencies.Get(key); ok {
			return cached, nil
		}
		start := time.Now()
		res, err := resolver.Resolve(entryPath, cfg, c.Store)
		if err != nil {
			return nil, err
		}
		size := len(res.Entry.Text)
		for _, d := range res.Dependencies {
			size += len(d.Text)
		}
		c.Cache.Dependencies.Put(key, res, size, time.Since(start))
		return res, nil
	}
	return resolver.Resolve(entryPath, cfg, c.Store)
}

func (c *Compiler) parseOne(absPath, importPath, text, hash string) (*ast.File, []reporter.ErrorWithPos) {
	if c.Cache != nil {
		key := cache.Key{Path: absPath, Hash: hash}
		if cached, ok := c.Cache.AST.Get(key); ok {
			return cached, nil
		}
	}
	start := time.Now()
	result := parser.Parse(text, importPath, parser.Options{MaxErrors: c.MaxErrors, Lenient: true})
	if result.File != nil && c.Cache != nil {
		key := cache.Key{Path: absPath, Hash: hash}
		c.Cache.AST.Put(key, result.File, len(text), time.Since(start))
	}
	return result.File, result.Errors
}

func (c *Compiler) buildOne(file *ast.File, deps []descriptor.Dependency, absPath, hash string, h *reporter.Handler) *descriptorpb.FileDescriptorProto {
	if c.Cache != nil {
		key := cache.Key{Path: absPath, Hash: hash}
		if cached, ok := c.Cache.Descriptor.Get(key); ok {
			return cached
		}
	}
	start := time.Now()
	importPaths := make([]string, 0, len(file.Imports))
	for _, imp := range file.Imports {
		importPaths = append(importPaths, imp.Path)
	}
	fd := descriptor.Build(file, importPaths, deps, h)
	if c.Cache != nil {
		key := cache.Key{Path: absPath, Hash: hash}
		c.Cache.Descriptor.Put(key, fd, proto.Size(fd), time.Since(start))
	}
	return fd
}
