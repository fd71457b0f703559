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

// Package main is a trivial ad hoc CLI over the protoschema compiler. It is
// not part of the core contract; the library is meant to be embedded.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/protoschema/protoschema"
)

var importRoots []string

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	root := &cobra.Command{
		Use:   "protoschema",
		Short: "Parse and lower proto3 schema files",
	}
	root.PersistentFlags().StringSliceVarP(&importRoots, "import-root", "I", nil, "import root directory (repeatable)")

	root.AddCommand(parseCmd(), descriptorCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file.proto>",
		Short: "Parse a file and print its package and top-level declarations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &protoschema.Compiler{ImportRoots: importRoots, ValidateSyntax: true}
			res, err := c.CompileAST(args[0])
			if err != nil {
				return err
			}
			if err := res.Err(); err != nil {
				for _, e := range res.Errors {
					fmt.Fprintln(os.Stderr, e)
				}
				return err
			}
			fmt.Printf("package: %s\n", res.Entry.Package)
			for _, m := range res.Entry.Messages {
				fmt.Printf("message %s (%d fields)\n", m.Name, len(m.Fields))
			}
			for _, e := range res.Entry.Enums {
				fmt.Printf("enum %s (%d values)\n", e.Name, len(e.Values))
			}
			for _, s := range res.Entry.Services {
				fmt.Printf("service %s (%d methods)\n", s.Name, len(s.Methods))
			}
			return nil
		},
	}
}

func descriptorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "descriptor <file.proto>",
		Short: "Lower a file to a FileDescriptorProto and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := &protoschema.Compiler{ImportRoots: importRoots, ValidateSyntax: true}
			res, err := c.CompileDescriptor(args[0])
			if err != nil {
				return err
			}
			if err := res.Err(); err != nil {
				for _, e := range res.Errors {
					fmt.Fprintln(os.Stderr, e)
				}
				return err
			}
			out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(res.Descriptor)
			if err != nil {
				return err
			}
			var pretty map[string]any
			if err := json.Unmarshal(out, &pretty); err == nil {
				out, _ = json.MarshalIndent(pretty, "", "  ")
			}
			fmt.Printf("%s: %s\n", filepath.Base(args[0]), out)
			return nil
		},
	}
}
