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

// Package resolver implements the DependencyResolver: it turns an entry
// file path plus a set of import roots into a topologically ordered set of
// resolved source files, per spec section 4.1.
package resolver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/protoschema/protoschema/ast"
)

// SourceStore abstracts file-system access so callers can resolve against an
// in-memory map of sources instead of the real file system (the only
// file-system collaborator named in spec section 1).
type SourceStore interface {
	Stat(path string) (os.FileInfo, error)
	ReadFile(path string) ([]byte, error)
	IsDir(path string) (bool, error)
}

// OSStore is the default SourceStore, backed directly by the os package.
type OSStore struct{}

func (OSStore) Stat(path string) (os.FileInfo, error)   { return os.Stat(path) }
func (OSStore) ReadFile(path string) ([]byte, error)     { return os.ReadFile(path) }
func (OSStore) IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

// MapStore resolves file contents from an in-memory map keyed by path,
// grounded on the teacher's SourceAccessorFromMap convenience.
type MapStore map[string]string

func (m MapStore) Stat(path string) (os.FileInfo, error) {
	if _, ok := m[path]; !ok {
		return nil, fs.ErrNotExist
	}
	return mapFileInfo{name: filepath.Base(path), size: int64(len(m[path]))}, nil
}

func (m MapStore) ReadFile(path string) ([]byte, error) {
	s, ok := m[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return []byte(s), nil
}

func (m MapStore) IsDir(path string) (bool, error) {
	prefix := strings.TrimSuffix(path, "/") + "/"
	for p := range m {
		if strings.HasPrefix(p, prefix) {
			return true, nil
		}
	}
	return false, nil
}

type mapFileInfo struct {
	name string
	size int64
}

func (i mapFileInfo) Name() string       { return i.name }
func (i mapFileInfo) Size() int64        { return i.size }
func (i mapFileInfo) Mode() os.FileMode  { return 0o444 }
func (i mapFileInfo) ModTime() time.Time { return time.Time{} }
func (i mapFileInfo) IsDir() bool        { return false }
func (i mapFileInfo) Sys() any           { return nil }

// WellKnownPrefixes is the set of import path prefixes treated as opaque
// placeholders, never read from disk or recursed into.
var WellKnownPrefixes = []string{"google/protobuf/", "google/type/", "google/api/"}

// WellKnownProtobufFiles is the canonical list of files under
// google/protobuf/ named in spec section 6.
var WellKnownProtobufFiles = []string{
	"any", "api", "duration", "empty", "field_mask", "source_context",
	"struct", "timestamp", "type", "wrappers",
}

func isWellKnown(importPath string) bool {
	for _, p := range WellKnownPrefixes {
		if strings.HasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

// Config controls a single resolution operation.
type Config struct {
	ImportRoots         []string
	AllowMissingImports bool
	Recursive           bool
	ValidateSyntax      bool
	DetectCycles        bool
	MaxDepth            int // 0 means a built-in default (100) applies
}

func (c Config) maxDepth() int {
	if c.MaxDepth <= 0 {
		return 100
	}
	return c.MaxDepth
}

// SourceFile is the resolved form of one .proto file (spec's "Source file
// (resolved)" data model entry).
type SourceFile struct {
	AbsPath     string
	ImportPath  string
	Text        string
	Imports     []ImportRef
	Syntax      string // "" if no syntax declaration was found
	Package     string
	ModTime     time.Time
	Size        int64
	IsEntry     bool
	WellKnown   bool
	ContentHash string
}

// ImportRef is one import line extracted from a file's header.
type ImportRef struct {
	Path     string
	Modifier ast.ImportModifier
}

// Stats summarizes one resolution operation.
type Stats struct {
	FilesRead        int
	WellKnownImports int
}

// Result is the output of Resolve.
type Result struct {
	Entry        *SourceFile
	Dependencies []*SourceFile
	Ordered      []*SourceFile // topological order, dependencies before dependents; the entry is always last
	Warnings     []string
	Stats        Stats
}

// Error kinds (spec section 7, Resolution category).
type DirectoryNotFoundError struct{ Path string }

func (e DirectoryNotFoundError) Error() string { return fmt.Sprintf("import root %q is not a directory", e.Path) }

type InvalidImportPathError struct {
	Value  string
	Reason string
}

func (e InvalidImportPathError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid import path %q: %s", e.Value, e.Reason)
	}
	return fmt.Sprintf("invalid import path %q", e.Value)
}

type ImportNotFoundError struct {
	Path         string
	SearchedRoots []string
}

func (e ImportNotFoundError) Error() string {
	return fmt.Sprintf("import %q not found (searched: %v)", e.Path, e.SearchedRoots)
}

type CircularDependencyError struct{ Chain []string }

func (e CircularDependencyError) Error() string {
	return fmt.Sprintf("circular import: %s", strings.Join(e.Chain, " -> "))
}

type MissingSyntaxError struct{ File string }

func (e MissingSyntaxError) Error() string { return fmt.Sprintf("%s: missing syntax declaration", e.File) }

type InvalidSyntaxError struct {
	File     string
	Declared string
}

func (e InvalidSyntaxError) Error() string {
	return fmt.Sprintf("%s: invalid syntax %q, expected \"proto3\"", e.File, e.Declared)
}

// ContentHash returns a deterministic digest of data: equal bytes always
// hash equal, per spec section 3/9.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CombinedHash hashes an ordered list of per-file hashes; order matters.
func CombinedHash(hashes []string) string {
	h := sha256.New()
	for _, s := range hashes {
		h.Write([]byte(s))
	}
	return hex.EncodeToString(h.Sum(nil))
}

var (
	syntaxRE  = regexp.MustCompile(`^\s*syntax\s*=\s*"([^"]*)"\s*;`)
	packageRE = regexp.MustCompile(`^\s*package\s+([A-Za-z_][A-Za-z0-9_.]*)\s*;`)
	importRE  = regexp.MustCompile(`^\s*import\s+(public\s+|weak\s+)?"([^"]*)"\s*;`)
)

// scanHeader performs the lightweight, comment-stripped line scan for
// syntax/package/import declarations described in spec 4.1 step 2. It never
// invokes the full lexer/parser.
func scanHeader(text string) (syntax, pkg string, imports []ImportRef) {
	stripped := stripComments(text)
	for _, line := range strings.Split(stripped, "\n") {
		if m := syntaxRE.FindStringSubmatch(line); m != nil && syntax == "" {
			syntax = m[1]
			continue
		}
		if m := packageRE.FindStringSubmatch(line); m != nil && pkg == "" {
			pkg = m[1]
			continue
		}
		if m := importRE.FindStringSubmatch(line); m != nil {
			mod := ast.ImportPlain
			switch strings.TrimSpace(m[1]) {
			case "public":
				mod = ast.ImportPublic
			case "weak":
				mod = ast.ImportWeak
			}
			imports = append(imports, ImportRef{Path: m[2], Modifier: mod})
		}
	}
	return
}

// stripComments removes // and /* */ comments (but not string-literal
// contents other than import paths, which this scan does not need to
// preserve precisely since it only pattern-matches whole lines).
func stripComments(text string) string {
	var b strings.Builder
	inBlock := false
	inString := false
	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if inBlock {
			if r == '*' && i+1 < len(runes) && runes[i+1] == '/' {
				inBlock = false
				i++
			}
			continue
		}
		if inString {
			b.WriteRune(r)
			if r == '\\' && i+1 < len(runes) {
				b.WriteRune(runes[i+1])
				i++
				continue
			}
			if r == '"' {
				inString = false
			}
			continue
		}
		if r == '"' {
			inString = true
			b.WriteRune(r)
			continue
		}
		if r == '/' && i+1 < len(runes) {
			if runes[i+1] == '/' {
				for i < len(runes) && runes[i] != '\n' {
					i++
				}
				b.WriteRune('\n')
				continue
			}
			if runes[i+1] == '*' {
				inBlock = true
				i++
				continue
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}
