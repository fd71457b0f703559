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

package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldTypeStringScalar(t *testing.T) {
	ft := FieldType{Scalar: "int32"}
	assert.Equal(t, "int32", ft.String())
}

func TestFieldTypeStringTypeName(t *testing.T) {
	ft := FieldType{TypeName: ".foo.Bar"}
	assert.Equal(t, ".foo.Bar", ft.String())
}

func TestFieldTypeStringMap(t *testing.T) {
	ft := FieldType{IsMap: true, KeyType: "string", ValueType: &FieldType{Scalar: "int32"}}
	assert.Equal(t, "map<string,int32>", ft.String())
}

func TestFieldTypeStringNestedMapValue(t *testing.T) {
	inner := FieldType{TypeName: "Inner"}
	ft := FieldType{IsMap: true, KeyType: "int64", ValueType: &inner}
	assert.Equal(t, "map<int64,Inner>", ft.String())
}

func TestEnumAllowAliasDefaultFalse(t *testing.T) {
	e := &Enum{Name: "E"}
	assert.False(t, e.AllowAlias())
}

func TestEnumAllowAliasTrue(t *testing.T) {
	e := &Enum{
		Name: "E",
		Options: []*Option{
			{Name: "allow_alias", Value: &OptionValue{Kind: ValueBool, Bool: true}},
		},
	}
	assert.True(t, e.AllowAlias())
}

func TestEnumAllowAliasIgnoresOtherOptions(t *testing.T) {
	e := &Enum{
		Options: []*Option{
			{Name: "deprecated", Value: &OptionValue{Kind: ValueBool, Bool: true}},
		},
	}
	assert.False(t, e.AllowAlias())
}

func TestEnumAllowAliasRequiresBoolKind(t *testing.T) {
	e := &Enum{
		Options: []*Option{
			{Name: "allow_alias", Value: &OptionValue{Kind: ValueIdent, Ident: "true"}},
		},
	}
	assert.False(t, e.AllowAlias(), "a non-bool value under the allow_alias name must not be honored")
}

func TestWellKnownExtendTargetsClosedSet(t *testing.T) {
	for _, name := range []string{
		"google.protobuf.FileOptions",
		"google.protobuf.MessageOptions",
		"google.protobuf.FieldOptions",
		"google.protobuf.EnumOptions",
		"google.protobuf.EnumValueOptions",
		"google.protobuf.ServiceOptions",
		"google.protobuf.MethodOptions",
	} {
		assert.True(t, WellKnownExtendTargets[name], name)
	}
	assert.False(t, WellKnownExtendTargets["google.protobuf.OneofOptions"])
	assert.Len(t, WellKnownExtendTargets, 7)
}

func TestImportModifierZeroValueIsPlain(t *testing.T) {
	var imp Import
	assert.Equal(t, ImportPlain, imp.Modifier)
}

func TestLabelZeroValueIsSingular(t *testing.T) {
	var f Field
	assert.Equal(t, LabelSingular, f.Label)
}

func TestMaxFieldNumberBounds(t *testing.T) {
	assert.Equal(t, int32(536870911), MaxFieldNumber)
	assert.True(t, FirstReservedFieldNumber < LastReservedFieldNumber)
	assert.Equal(t, int32(19000), FirstReservedFieldNumber)
	assert.Equal(t, int32(19999), LastReservedFieldNumber)
}
