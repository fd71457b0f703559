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
	"fmt"
	"os"
	"path/filepath"
)

// Resolve implements the five-step algorithm in spec 4.1: validate import
// roots, read and scan the entry file, resolve (and optionally recursively
// expand) its imports, then topologically order the result.
func Resolve(entryPath string, cfg Config, store SourceStore) (*Result, error) {
	if store == nil {
		store = OSStore{}
	}
	for _, root := range cfg.ImportRoots {
		isDir, err := store.IsDir(root)
		if err != nil || !isDir {
			return nil, DirectoryNotFoundError{Path: root}
		}
	}

	abs, err := filepath.Abs(entryPath)
	if err != nil {
		return nil, InvalidImportPathError{Value: entryPath, Reason: err.Error()}
	}

	res := &Result{}
	entry, err := readSourceFile(abs, filepath.Base(entryPath), store, true)
	if err != nil {
		return nil, err
	}
	res.Entry = entry
	res.Stats.FilesRead++

	byPath := map[string]*SourceFile{abs: entry}
	order := []string{abs}

	if cfg.Recursive {
		type frame struct {
			path  string
			stack []string // import chain from entry, for cycle reporting
		}
		queue := []frame{{path: abs, stack: []string{entry.ImportPath}}}
		depth := map[string]int{abs: 0}

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			curFile := byPath[cur.path]

			if depth[cur.path] >= cfg.maxDepth() {
				return nil, CircularDependencyError{Chain: append(append([]string{}, cur.stack...), "max depth reached")}
			}

			for _, imp := range curFile.Imports {
				if isWellKnown(imp.Path) {
					res.Stats.WellKnownImports++
					continue
				}
				resolvedAbs, found, werr := resolveImport(imp.Path, cfg.ImportRoots, store)
				if werr != nil {
					return nil, werr
				}
				if !found {
					if cfg.AllowMissingImports {
						res.Warnings = append(res.Warnings, fmt.Sprintf("import %q not found for %s", imp.Path, curFile.AbsPath))
						continue
					}
					return nil, ImportNotFoundError{Path: imp.Path, SearchedRoots: cfg.ImportRoots}
				}

				if cfg.DetectCycles {
					for _, s := range cur.stack {
						if s == resolvedAbs || s == imp.Path {
							chain := append(append([]string{}, cur.stack...), imp.Path)
							return nil, CircularDependencyError{Chain: chain}
						}
					}
				}

				if _, seen := byPath[resolvedAbs]; seen {
					continue
				}
				dep, rerr := readSourceFile(resolvedAbs, imp.Path, store, false)
				if rerr != nil {
					return nil, rerr
				}
				byPath[resolvedAbs] = dep
				order = append(order, resolvedAbs)
				res.Stats.FilesRead++
				depth[resolvedAbs] = depth[cur.path] + 1
				queue = append(queue, frame{path: resolvedAbs, stack: append(append([]string{}, cur.stack...), imp.Path)})
			}
		}
	} else {
		for _, imp := range entry.Imports {
			if isWellKnown(imp.Path) {
				res.Stats.WellKnownImports++
				continue
			}
			resolvedAbs, found, werr := resolveImport(imp.Path, cfg.ImportRoots, store)
			if werr != nil {
				return nil, werr
			}
			if !found {
				if cfg.AllowMissingImports {
					res.Warnings = append(res.Warnings, fmt.Sprintf("import %q not found for %s", imp.Path, entry.AbsPath))
					continue
				}
				return nil, ImportNotFoundError{Path: imp.Path, SearchedRoots: cfg.ImportRoots}
			}
			if _, seen := byPath[resolvedAbs]; !seen {
				dep, rerr := readSourceFile(resolvedAbs, imp.Path, store, false)
				if rerr != nil {
					return nil, rerr
				}
				byPath[resolvedAbs] = dep
				order = append(order, resolvedAbs)
				res.Stats.FilesRead++
			}
		}
	}

	for _, p := range order {
		if p != abs {
			res.Dependencies = append(res.Dependencies, byPath[p])
		}
	}

	sorted, err := topoSort(byPath, order)
	if err != nil {
		return nil, err
	}
	res.Ordered = sorted

	if cfg.ValidateSyntax {
		for _, f := range res.Ordered {
			if f.WellKnown {
				continue
			}
			if f.Syntax == "" {
				return nil, MissingSyntaxError{File: f.AbsPath}
			}
			if f.Syntax != "proto3" {
				return nil, InvalidSyntaxError{File: f.AbsPath, Declared: f.Syntax}
			}
		}
	}

	return res, nil
}

func readSourceFile(abs, importPath string, store SourceStore, isEntry bool) (*SourceFile, error) {
	info, err := store.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ImportNotFoundError{Path: importPath}
		}
		return nil, err
	}
	data, err := store.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	syntax, pkg, imports := scanHeader(string(data))
	return &SourceFile{
		AbsPath:     abs,
		ImportPath:  importPath,
		Text:        string(data),
		Imports:     imports,
		Syntax:      syntax,
		Package:     pkg,
		ModTime:     info.ModTime(),
		Size:        info.Size(),
		IsEntry:     isEntry,
		ContentHash: ContentHash(data),
	}, nil
}

// resolveImport tries each import root in order (first match wins), then
// the current working directory, per spec 4.1 step 3.
func resolveImport(importPath string, roots []string, store SourceStore) (string, bool, error) {
	for _, root := range roots {
		candidate := filepath.Join(root, importPath)
		if _, err := store.Stat(candidate); err == nil {
			abs, err := filepath.Abs(candidate)
			if err != nil {
				return "", false, err
			}
			return abs, true, nil
		}
	}
	if _, err := store.Stat(importPath); err == nil {
		abs, err := filepath.Abs(importPath)
		if err != nil {
			return "", false, err
		}
		return abs, true, nil
	}
	return "", false, nil
}

// topoSort performs a DFS with white/grey/black coloring over the import
// graph, producing dependencies-before-dependents order and detecting
// cycles the BFS expansion phase did not already catch (e.g. when
// DetectCycles was left off during expansion but a cycle is still present).
func topoSort(byPath map[string]*SourceFile, insertionOrder []string) ([]*SourceFile, error) {
	const (
		white = iota
		grey
		black
	)
	color := make(map[string]int, len(byPath))
	var result []*SourceFile
	var stack []string

	var visit func(path string) error
	visit = func(path string) error {
		switch color[path] {
		case black:
			return nil
		case grey:
			chain := append(append([]string{}, stack...), path)
			return CircularDependencyError{Chain: chain}
		}
		color[path] = grey
		stack = append(stack, path)
		f := byPath[path]
		for _, imp := range f.Imports {
			depPath := findResolvedPath(byPath, imp.Path)
			if depPath == "" {
				continue // well-known or missing-but-allowed import
			}
			if err := visit(depPath); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		color[path] = black
		result = append(result, f)
		return nil
	}

	for _, path := range insertionOrder {
		if err := visit(path); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func findResolvedPath(byPath map[string]*SourceFile, importPath string) string {
	for abs, f := range byPath {
		if f.ImportPath == importPath {
			return abs
		}
	}
	return ""
}
