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
	"strings"
	"unicode"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/protoschema/protoschema/ast"
)

var scalarToFieldType = map[string]descriptorpb.FieldDescriptorProto_Type{
	"double":   descriptorpb.FieldDescriptorProto_TYPE_DOUBLE,
	"float":    descriptorpb.FieldDescriptorProto_TYPE_FLOAT,
	"int32":    descriptorpb.FieldDescriptorProto_TYPE_INT32,
	"int64":    descriptorpb.FieldDescriptorProto_TYPE_INT64,
	"uint32":   descriptorpb.FieldDescriptorProto_TYPE_UINT32,
	"uint64":   descriptorpb.FieldDescriptorProto_TYPE_UINT64,
	"sint32":   descriptorpb.FieldDescriptorProto_TYPE_SINT32,
	"sint64":   descriptorpb.FieldDescriptorProto_TYPE_SINT64,
	"fixed32":  descriptorpb.FieldDescriptorProto_TYPE_FIXED32,
	"fixed64":  descriptorpb.FieldDescriptorProto_TYPE_FIXED64,
	"sfixed32": descriptorpb.FieldDescriptorProto_TYPE_SFIXED32,
	"sfixed64": descriptorpb.FieldDescriptorProto_TYPE_SFIXED64,
	"bool":     descriptorpb.FieldDescriptorProto_TYPE_BOOL,
	"string":   descriptorpb.FieldDescriptorProto_TYPE_STRING,
	"bytes":    descriptorpb.FieldDescriptorProto_TYPE_BYTES,
}

// buildMessage lowers one message, recursing into nested messages/enums and
// synthesizing a map-entry nested message for each map field.
func (b *Builder) buildMessage(m *ast.Message, parentScope scope) *descriptorpb.DescriptorProto {
	sc := b.nestedScope(parentScope, m.Name)
	dp := &descriptorpb.DescriptorProto{Name: proto.String(m.Name)}

	for _, f := range m.Fields {
		fdp, mapEntry := b.buildField(f, sc, m.Name, false)
		dp.Field = append(dp.Field, fdp)
		if mapEntry != nil {
			dp.NestedType = append(dp.NestedType, mapEntry)
		}
	}

	for i, o := range m.Oneofs {
		dp.OneofDecl = append(dp.OneofDecl, &descriptorpb.OneofDescriptorProto{Name: proto.String(o.Name)})
		for _, f := range o.Fields {
			fdp, _ := b.buildField(f, sc, m.Name, true)
			fdp.OneofIndex = proto.Int32(int32(i))
			dp.Field = append(dp.Field, fdp)
		}
	}

	for _, nm := range m.Nested {
		dp.NestedType = append(dp.NestedType, b.buildMessage(nm, sc))
	}
	for _, ne := range m.NestedEnums {
		dp.EnumType = append(dp.EnumType, b.buildEnum(ne))
	}
	for _, rng := range m.ReservedRanges {
		dp.ReservedRange = append(dp.ReservedRange, &descriptorpb.DescriptorProto_ReservedRange{
			Start: proto.Int32(rng.Start),
			End:   proto.Int32(rng.End + 1), // descriptorpb end is exclusive
		})
	}
	dp.ReservedName = append(dp.ReservedName, m.ReservedNames...)

	if opts := b.buildMessageOptions(m.Options); opts != nil {
		dp.Options = opts
	}
	return dp
}

// buildField lowers a single field. When the field is a map field it also
// returns the synthesized <PascalCase(name)>Entry nested message; the field
// itself is rewritten to be a repeated message field referencing that entry.
func (b *Builder) buildField(f *ast.Field, sc scope, container string, inOneof bool) (*descriptorpb.FieldDescriptorProto, *descriptorpb.DescriptorProto) {
	fdp := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(f.Name),
		Number: proto.Int32(f.Number),
		JsonName: proto.String(jsonName(f.Name)),
	}

	if f.Type.IsMap {
		if inOneof {
			_ = b.h.HandleError(nestedMapNotAllowedErr(f))
		}
		entryName := mapEntryName(f.Name)
		entry := b.buildMapEntry(entryName, f.Type, sc, container)
		fdp.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
		fdp.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
		fdp.TypeName = proto.String(sc.prefixes[0] + "." + entryName)
		if opts := b.buildFieldOptions(f.Options); opts != nil {
			fdp.Options = opts
		}
		return fdp, entry
	}

	switch f.Label {
	case ast.LabelRepeated:
		fdp.Label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum()
	default:
		fdp.Label = descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum()
		if f.Label == ast.LabelOptional {
			fdp.Proto3Optional = proto.Bool(true)
		}
	}

	if f.Type.Scalar != "" {
		fdp.Type = scalarToFieldType[f.Type.Scalar].Enum()
	} else {
		fq, kind, ok := b.resolveType(f.Type.TypeName, sc, container)
		if ok {
			fdp.TypeName = proto.String(fq)
			if kind == SymbolEnum {
				fdp.Type = descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum()
			} else {
				fdp.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
			}
		}
	}

	if opts := b.buildFieldOptions(f.Options); opts != nil {
		fdp.Options = opts
	}
	return fdp, nil
}

func (b *Builder) buildMapEntry(name string, t ast.FieldType, sc scope, container string) *descriptorpb.DescriptorProto {
	entry := &descriptorpb.DescriptorProto{
		Name: proto.String(name),
		Options: &descriptorpb.MessageOptions{
			MapEntry: proto.Bool(true),
		},
	}
	keyField := &descriptorpb.FieldDescriptorProto{
		Name:     proto.String("key"),
		Number:   proto.Int32(1),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		Type:     scalarToFieldType[t.KeyType].Enum(),
		JsonName: proto.String("key"),
	}
	valField := &descriptorpb.FieldDescriptorProto{
		Name:     proto.String("value"),
		Number:   proto.Int32(2),
		Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
		JsonName: proto.String("value"),
	}
	if t.ValueType.Scalar != "" {
		valField.Type = scalarToFieldType[t.ValueType.Scalar].Enum()
	} else {
		fq, kind, ok := b.resolveType(t.ValueType.TypeName, sc, container)
		if ok {
			valField.TypeName = proto.String(fq)
			if kind == SymbolEnum {
				valField.Type = descriptorpb.FieldDescriptorProto_TYPE_ENUM.Enum()
			} else {
				valField.Type = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum()
			}
		}
	}
	entry.Field = []*descriptorpb.FieldDescriptorProto{keyField, valField}
	return entry
}

func (b *Builder) buildEnum(e *ast.Enum) *descriptorpb.EnumDescriptorProto {
	edp := &descriptorpb.EnumDescriptorProto{Name: proto.String(e.Name)}
	for _, v := range e.Values {
		edp.Value = append(edp.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(v.Name),
			Number: proto.Int32(v.Number),
		})
	}
	if opts := b.buildEnumOptions(e.Options); opts != nil {
		edp.Options = opts
	}
	return edp
}

func (b *Builder) buildService(s *ast.Service, fileScope scope) *descriptorpb.ServiceDescriptorProto {
	sdp := &descriptorpb.ServiceDescriptorProto{Name: proto.String(s.Name)}
	for _, m := range s.Methods {
		inFQ, _, _ := b.resolveType(m.InputType, fileScope, s.Name)
		outFQ, _, _ := b.resolveType(m.OutputType, fileScope, s.Name)
		mdp := &descriptorpb.MethodDescriptorProto{
			Name:            proto.String(m.Name),
			InputType:       proto.String(inFQ),
			OutputType:      proto.String(outFQ),
			ClientStreaming: proto.Bool(m.ClientStreaming),
			ServerStreaming: proto.Bool(m.ServerStreaming),
		}
		sdp.Method = append(sdp.Method, mdp)
	}
	return sdp
}

// buildExtendFields lowers an extend block into a list of top-level
// extension FieldDescriptorProtos, each carrying its Extendee.
func (b *Builder) buildExtendFields(ex *ast.Extend, fileScope scope) []*descriptorpb.FieldDescriptorProto {
	target := ex.Target
	if !strings.HasPrefix(target, ".") {
		target = "." + target
	}
	if !ast.WellKnownExtendTargets[strings.TrimPrefix(target, ".")] {
		_ = b.h.HandleError(unsupportedOptionErr(ex.Pos, ex.Target))
		return nil
	}
	var out []*descriptorpb.FieldDescriptorProto
	for _, f := range ex.Fields {
		fdp, _ := b.buildField(f, fileScope, ex.Target, false)
		fdp.Extendee = proto.String(target)
		out = append(out, fdp)
	}
	return out
}

func mapEntryName(fieldName string) string {
	return pascalCase(fieldName) + "Entry"
}

func pascalCase(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}

// jsonName implements the standard lowerCamelCase derivation used for the
// canonical JSON mapping.
func jsonName(fieldName string) string {
	parts := strings.Split(fieldName, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(p)
			continue
		}
		r := []rune(p)
		r[0] = unicode.ToUpper(r[0])
		b.WriteString(string(r))
	}
	return b.String()
}
