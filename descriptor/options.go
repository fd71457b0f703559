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

package descriptor

import (
	"strconv"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoschema/protoschema/ast"
)

// buildFileOptions lowers a file's `option` declarations, populating the
// strongly-typed fields this module recognizes and collecting everything
// else (including all custom, parenthesized options) as uninterpreted
// options, per spec 4.4's "Option lowering".
func (b *Builder) buildFileOptions(opts []*ast.Option) *descriptorpb.FileOptions {
	if len(opts) == 0 {
		return nil
	}
	out := &descriptorpb.FileOptions{}
	for _, o := range opts {
		switch o.Name {
		case "java_package":
			out.JavaPackage = proto.String(b.stringValue(o))
		case "java_outer_classname":
			out.JavaOuterClassname = proto.String(b.stringValue(o))
		case "java_multiple_files":
			out.JavaMultipleFiles = proto.Bool(b.boolValue(o))
		case "go_package":
			out.GoPackage = proto.String(b.stringValue(o))
		case "objc_class_prefix":
			out.ObjcClassPrefix = proto.String(b.stringValue(o))
		case "csharp_namespace":
			out.CsharpNamespace = proto.String(b.stringValue(o))
		case "deprecated":
			out.Deprecated = proto.Bool(b.boolValue(o))
		case "optimize_for":
			if v, ok := optimizeModes[o.Value.Ident]; ok {
				out.OptimizeFor = v.Enum()
			} else {
				_ = b.h.HandleError(invalidOptionValueErr(o.Pos, o.Value.Ident))
			}
		default:
			out.UninterpretedOption = append(out.UninterpretedOption, b.uninterpreted(o))
		}
	}
	return out
}

var optimizeModes = map[string]descriptorpb.FileOptions_OptimizeMode{
	"SPEED":        descriptorpb.FileOptions_SPEED,
	"CODE_SIZE":    descriptorpb.FileOptions_CODE_SIZE,
	"LITE_RUNTIME": descriptorpb.FileOptions_LITE_RUNTIME,
}

func (b *Builder) buildMessageOptions(opts []*ast.Option) *descriptorpb.MessageOptions {
	if len(opts) == 0 {
		return nil
	}
	out := &descriptorpb.MessageOptions{}
	for _, o := range opts {
		switch o.Name {
		case "deprecated":
			out.Deprecated = proto.Bool(b.boolValue(o))
		case "map_entry":
			// map_entry is synthesized by this builder, never set directly
			// from source; a user-supplied value here is not supported.
			_ = b.h.HandleError(unsupportedOptionErr(o.Pos, o.Name))
		default:
			out.UninterpretedOption = append(out.UninterpretedOption, b.uninterpreted(o))
		}
	}
	return out
}

func (b *Builder) buildFieldOptions(opts []*ast.Option) *descriptorpb.FieldOptions {
	if len(opts) == 0 {
		return nil
	}
	out := &descriptorpb.FieldOptions{}
	for _, o := range opts {
		switch o.Name {
		case "deprecated":
			out.Deprecated = proto.Bool(b.boolValue(o))
		case "packed":
			out.Packed = proto.Bool(b.boolValue(o))
		case "lazy":
			out.Lazy = proto.Bool(b.boolValue(o))
		case "jstype":
			if v, ok := jsTypes[o.Value.Ident]; ok {
				out.Jstype = v.Enum()
			} else {
				_ = b.h.HandleError(invalidOptionValueErr(o.Pos, o.Value.Ident))
			}
		default:
			out.UninterpretedOption = append(out.UninterpretedOption, b.uninterpreted(o))
		}
	}
	return out
}

var jsTypes = map[string]descriptorpb.FieldOptions_JSType{
	"JS_NORMAL": descriptorpb.FieldOptions_JS_NORMAL,
	"JS_STRING": descriptorpb.FieldOptions_JS_STRING,
	"JS_NUMBER": descriptorpb.FieldOptions_JS_NUMBER,
}

func (b *Builder) buildEnumOptions(opts []*ast.Option) *descriptorpb.EnumOptions {
	if len(opts) == 0 {
		return nil
	}
	out := &descriptorpb.EnumOptions{}
	for _, o := range opts {
		switch o.Name {
		case "allow_alias":
			out.AllowAlias = proto.Bool(b.boolValue(o))
		case "deprecated":
			out.Deprecated = proto.Bool(b.boolValue(o))
		default:
			out.UninterpretedOption = append(out.UninterpretedOption, b.uninterpreted(o))
		}
	}
	return out
}

func (b *Builder) stringValue(o *ast.Option) string {
	if o.Value == nil || o.Value.Kind != ast.ValueString {
		_ = b.h.HandleError(invalidOptionValueErr(o.Pos, o.Name))
		return ""
	}
	return o.Value.Str
}

func (b *Builder) boolValue(o *ast.Option) bool {
	if o.Value == nil || o.Value.Kind != ast.ValueBool {
		_ = b.h.HandleError(invalidOptionValueErr(o.Pos, o.Name))
		return false
	}
	return o.Value.Bool
}

// uninterpreted lowers any option (custom or merely unrecognized) into an
// UninterpretedOption record, preserving the parenthesized-name structure
// and the original literal's kind.
func (b *Builder) uninterpreted(o *ast.Option) *descriptorpb.UninterpretedOption {
	uo := &descriptorpb.UninterpretedOption{Name: parseNameParts(o.Name)}
	setUninterpretedValue(uo, o.Value)
	return uo
}

// parseNameParts splits an option name like "(my.custom).sub_field" into
// the sequence of NamePart records descriptorpb expects, marking each
// parenthesized segment as an extension.
func parseNameParts(name string) []*descriptorpb.UninterpretedOption_NamePart {
	var parts []*descriptorpb.UninterpretedOption_NamePart
	var segs []string
	depth, start := 0, 0
	for i, r := range name {
		switch {
		case r == '(':
			depth++
		case r == ')':
			depth--
		case r == '.' && depth == 0:
			segs = append(segs, name[start:i])
			start = i + 1
		}
	}
	for _, seg := range append(segs, name[start:]) {
		isExt := strings.HasPrefix(seg, "(") && strings.HasSuffix(seg, ")")
		clean := seg
		if isExt {
			clean = strings.TrimSuffix(strings.TrimPrefix(seg, "("), ")")
		}
		parts = append(parts, &descriptorpb.UninterpretedOption_NamePart{
			NamePart:    proto.String(clean),
			IsExtension: proto.Bool(isExt),
		})
	}
	return parts
}

func setUninterpretedValue(uo *descriptorpb.UninterpretedOption, v *ast.OptionValue) {
	if v == nil {
		return
	}
	switch v.Kind {
	case ast.ValueString:
		uo.StringValue = []byte(v.Str)
	case ast.ValueInt:
		if v.Int >= 0 {
			uo.PositiveIntValue = proto.Uint64(uint64(v.Int))
		} else {
			uo.NegativeIntValue = proto.Int64(v.Int)
		}
	case ast.ValueFloat:
		uo.DoubleValue = proto.Float64(v.Float)
	case ast.ValueBool:
		if v.Bool {
			uo.IdentifierValue = proto.String("true")
		} else {
			uo.IdentifierValue = proto.String("false")
		}
	case ast.ValueIdent:
		uo.IdentifierValue = proto.String(v.Ident)
	case ast.ValueMessage:
		uo.AggregateValue = proto.String(renderMessageLiteral(v.Message))
	case ast.ValueList:
		// UninterpretedOption has no native list representation; render as
		// an aggregate literal, matching how protoc itself treats a
		// top-level repeated custom option value.
		uo.AggregateValue = proto.String(renderListLiteral(v.List))
	}
}

func renderMessageLiteral(fields []*ast.MessageLiteralField) string {
	var b strings.Builder
	b.WriteString("{")
	for i, f := range fields {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(f.Name)
		b.WriteString(": ")
		b.WriteString(renderValue(f.Value))
	}
	b.WriteString("}")
	return b.String()
}

func renderListLiteral(vs []*ast.OptionValue) string {
	var b strings.Builder
	b.WriteString("[")
	for i, v := range vs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(renderValue(v))
	}
	b.WriteString("]")
	return b.String()
}

func renderValue(v *ast.OptionValue) string {
	if v == nil {
		return ""
	}
	switch v.Kind {
	case ast.ValueString:
		return `"` + v.Str + `"`
	case ast.ValueInt:
		return strconv.FormatInt(v.Int, 10)
	case ast.ValueFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case ast.ValueBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ast.ValueIdent:
		return v.Ident
	case ast.ValueMessage:
		return renderMessageLiteral(v.Message)
	case ast.ValueList:
		return renderListLiteral(v.List)
	}
	return ""
}
