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

package parser

import (
	"github.com/protoschema/protoschema/ast"
	"github.com/protoschema/protoschema/reporter"
)

// checkMessageSemantics applies the local (single-message, single-file)
// invariants from the data model: unique field numbers (including across
// oneofs), unique field names, and no overlap with reserved numbers/names.
// It does not check nested messages/enums; those validate themselves as
// they are parsed.
func (p *parser) checkMessageSemantics(m *ast.Message) {
	allFields := make([]*ast.Field, 0, len(m.Fields))
	allFields = append(allFields, m.Fields...)
	for _, o := range m.Oneofs {
		allFields = append(allFields, o.Fields...)
	}

	byNumber := map[int32]*ast.Field{}
	byName := map[string]*ast.Field{}
	for _, f := range allFields {
		if _, ok := byNumber[f.Number]; ok {
			_ = p.h.HandleError(reporter.Error(f.Pos, reporter.DuplicateFieldNumberError{Number: f.Number, InMessage: m.Name}))
		} else {
			byNumber[f.Number] = f
		}
		if prev, ok := byName[f.Name]; ok {
			_ = p.h.HandleError(reporter.Error(f.Pos, reporter.AlreadyDefined(f.Name, prev.Pos)))
		} else {
			byName[f.Name] = f
		}
	}

	reservedNames := map[string]bool{}
	for _, n := range m.ReservedNames {
		reservedNames[n] = true
	}
	for _, f := range allFields {
		if reservedNames[f.Name] {
			p.errorf(f.Pos, "field %q uses a reserved name", f.Name)
		}
		for _, rng := range m.ReservedRanges {
			if f.Number >= rng.Start && f.Number <= rng.End {
				p.errorf(f.Pos, "field %q uses reserved number %d", f.Name, f.Number)
			}
		}
	}

	// Nested type names must be unique within the message's scope (its own
	// nested messages and nested enums share one namespace).
	names := map[string]bool{}
	for _, nm := range m.Nested {
		if names[nm.Name] {
			p.errorf(nm.Pos, "%q is already defined in message %q", nm.Name, m.Name)
		}
		names[nm.Name] = true
	}
	for _, ne := range m.NestedEnums {
		if names[ne.Name] {
			p.errorf(ne.Pos, "%q is already defined in message %q", ne.Name, m.Name)
		}
		names[ne.Name] = true
	}
}

// checkEnumSemantics applies the first-value-zero rule and duplicate-value
// detection described in the data model.
func (p *parser) checkEnumSemantics(e *ast.Enum) {
	if len(e.Values) == 0 {
		p.errorf(e.Pos, "enum %q must declare at least one value", e.Name)
		return
	}
	if e.Values[0].Number != 0 && !e.AllowAlias() {
		p.errorf(e.Values[0].Pos, "the first value of enum %q must be zero (or allow_alias must be set)", e.Name)
	}

	byNumber := map[int32]*ast.EnumValue{}
	byName := map[string]*ast.EnumValue{}
	allowAlias := e.AllowAlias()
	for _, v := range e.Values {
		if prev, ok := byNumber[v.Number]; ok && !allowAlias {
			p.errorf(v.Pos, "enum value %d is already in use by %q (set allow_alias=true to permit aliases)", v.Number, prev.Name)
		}
		byNumber[v.Number] = v
		if prev, ok := byName[v.Name]; ok {
			_ = p.h.HandleError(reporter.Error(v.Pos, reporter.AlreadyDefined(v.Name, prev.Pos)))
		} else {
			byName[v.Name] = v
		}
	}
}
