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
	"strings"

	"github.com/protoschema/protoschema/ast"
	"github.com/protoschema/protoschema/token"
)

// --- Message ---

func (p *parser) parseMessage() *ast.Message {
	pos := p.cur().Pos
	p.advance()
	name, ok := p.expectIdentLike()
	if !ok {
		p.resync()
		return nil
	}
	if !validIdentName(name) {
		p.errorf(pos, "invalid message name %q", name)
	}
	m := &ast.Message{Name: name, Pos: pos}
	if _, ok := p.expect(token.LBrace); !ok {
		p.resync()
		return m
	}
	p.parseMessageBody(m)
	p.expect(token.RBrace)
	p.checkMessageSemantics(m)
	return m
}

func (p *parser) parseMessageBody(m *ast.Message) {
	for !p.is(token.RBrace) && !p.atEOF() && !p.aborted() {
		switch {
		case p.isKeyword("option"):
			if o := p.parseOption(); o != nil {
				m.Options = append(m.Options, o)
			}
		case p.isKeyword("message"):
			if nested := p.parseMessage(); nested != nil {
				m.Nested = append(m.Nested, nested)
			}
		case p.isKeyword("enum"):
			if nested := p.parseEnum(); nested != nil {
				m.NestedEnums = append(m.NestedEnums, nested)
			}
		case p.isKeyword("oneof"):
			if o := p.parseOneof(); o != nil {
				m.Oneofs = append(m.Oneofs, o)
			}
		case p.isKeyword("reserved"):
			p.parseReserved(m)
		case p.isKeyword("extensions"):
			// proto3 allows extension ranges only on extendable messages for
			// custom options; this system treats `extensions` declarations
			// as a no-op reservation (not part of spec scope beyond extend).
			p.resyncBody()
		case p.is(token.Semicolon):
			p.advance()
		case p.isKeyword("map"):
			if f := p.parseField(); f != nil {
				m.Fields = append(m.Fields, f)
			}
		case p.is(token.Ident) || p.is(token.Dot):
			if f := p.parseField(); f != nil {
				m.Fields = append(m.Fields, f)
			}
		default:
			p.errorf(p.cur().Pos, "unexpected token %s in message body", describeTok(p.cur()))
			p.resyncBody()
		}
	}
}

// --- Field ---

func (p *parser) parseField() *ast.Field {
	pos := p.cur().Pos
	leading := p.cur().Leading
	label := ast.LabelSingular
	switch {
	case p.tryConsumeKeyword("repeated"):
		label = ast.LabelRepeated
	case p.tryConsumeKeyword("optional"):
		label = ast.LabelOptional
	case p.isKeyword("required"):
		p.errorf(pos, "required fields are not allowed in proto3")
		p.advance()
	}

	ft, ok := p.parseFieldType()
	if !ok {
		p.resyncBody()
		return nil
	}
	if ft.IsMap && label == ast.LabelRepeated {
		p.errorf(pos, "map fields may not be declared repeated")
	}

	name, ok := p.expectIdentLike()
	if !ok {
		p.resyncBody()
		return nil
	}
	if !validIdentName(name) {
		p.errorf(pos, "invalid field name %q", name)
	}
	if _, ok := p.expect(token.Equals); !ok {
		p.resyncBody()
		return nil
	}
	numTok, ok := p.expect(token.Int)
	if !ok {
		p.resyncBody()
		return nil
	}
	num, err := parseIntLiteral(numTok.Text)
	if err != nil {
		p.errorf(numTok.Pos, "invalid field number %q", numTok.Text)
	}
	if !validFieldNumber(int32(num)) {
		p.errorf(numTok.Pos, "invalid field number %d", num)
	}

	f := &ast.Field{Name: name, Number: int32(num), Label: label, Type: ft, Pos: pos, LeadingComments: leading}
	f.Options = p.parseInlineOptions()
	p.tryConsume(token.Semicolon)
	return f
}

func validFieldNumber(n int32) bool {
	if n < 1 || n > ast.MaxFieldNumber {
		return false
	}
	if n >= ast.FirstReservedFieldNumber && n <= ast.LastReservedFieldNumber {
		return false
	}
	return true
}

// parseFieldType parses a scalar keyword, map<K,V>, or a (possibly dotted,
// possibly leading-dot) type reference.
func (p *parser) parseFieldType() (ast.FieldType, bool) {
	if p.isKeyword("map") {
		return p.parseMapType()
	}
	if p.is(token.Ident) && token.ScalarTypes[p.cur().Text] {
		t := p.advance()
		return ast.FieldType{Scalar: t.Text}, true
	}
	name, ok := p.parseTypeReference()
	if !ok {
		return ast.FieldType{}, false
	}
	return ast.FieldType{TypeName: name}, true
}

// parseTypeReference parses an optional leading '.' followed by a dotted
// identifier, preserving the leading dot to mark it as already fully
// qualified (spec §4.4).
func (p *parser) parseTypeReference() (string, bool) {
	prefix := ""
	if p.is(token.Dot) {
		p.advance()
		prefix = "."
	}
	name, ok := p.parseDottedIdent()
	if !ok {
		return "", false
	}
	return prefix + name, true
}

func (p *parser) parseMapType() (ast.FieldType, bool) {
	p.advance() // 'map'
	if _, ok := p.expect(token.LAngle); !ok {
		return ast.FieldType{}, false
	}
	keyPos := p.cur().Pos
	key, ok := p.expectIdentLike()
	if !ok {
		return ast.FieldType{}, false
	}
	if !token.MapKeyTypes[key] {
		p.errorf(keyPos, "invalid map key type %q", key)
	}
	if _, ok := p.expect(token.Comma); !ok {
		return ast.FieldType{}, false
	}
	valType, ok := p.parseFieldType()
	if !ok {
		return ast.FieldType{}, false
	}
	if valType.IsMap {
		p.errorf(keyPos, "map value type may not itself be a map")
	}
	if _, ok := p.expect(token.RAngle); !ok {
		return ast.FieldType{}, false
	}
	return ast.FieldType{IsMap: true, KeyType: key, ValueType: &valType}, true
}

// --- Oneof ---

func (p *parser) parseOneof() *ast.Oneof {
	pos := p.cur().Pos
	p.advance()
	name, ok := p.expectIdentLike()
	if !ok {
		p.resync()
		return nil
	}
	o := &ast.Oneof{Name: name, Pos: pos}
	if _, ok := p.expect(token.LBrace); !ok {
		p.resync()
		return o
	}
	for !p.is(token.RBrace) && !p.atEOF() {
		switch {
		case p.isKeyword("option"):
			// Options inside a oneof apply to the oneof declaration itself;
			// this system does not surface them separately from its fields,
			// so they are parsed and discarded (no OneofOptions in the data
			// model per spec §3).
			p.parseOption()
		case p.is(token.Semicolon):
			p.advance()
		default:
			f := p.parseField()
			if f == nil {
				continue
			}
			if f.Label == ast.LabelRepeated {
				p.errorf(f.Pos, "oneof fields may not be repeated")
			}
			if f.Type.IsMap {
				p.errorf(f.Pos, "oneof fields may not be maps")
			}
			o.Fields = append(o.Fields, f)
		}
	}
	p.expect(token.RBrace)
	return o
}

// --- Reserved ---

func (p *parser) parseReserved(m *ast.Message) {
	pos := p.cur().Pos
	p.advance()
	if p.is(token.String) {
		for {
			t, ok := p.expect(token.String)
			if !ok {
				break
			}
			m.ReservedNames = append(m.ReservedNames, t.Text)
			if !p.tryConsume(token.Comma) {
				break
			}
		}
	} else {
		for {
			rng, ok := p.parseReservedRange()
			if !ok {
				break
			}
			m.ReservedRanges = append(m.ReservedRanges, rng)
			if !p.tryConsume(token.Comma) {
				break
			}
		}
	}
	if len(m.ReservedNames) == 0 && len(m.ReservedRanges) == 0 {
		p.errorf(pos, "reserved statement has no names or numbers")
	}
	p.tryConsume(token.Semicolon)
}

func (p *parser) parseReservedRange() (ast.ReservedRange, bool) {
	pos := p.cur().Pos
	startTok, ok := p.expect(token.Int)
	if !ok {
		return ast.ReservedRange{}, false
	}
	start, _ := parseIntLiteral(startTok.Text)
	if p.tryConsumeKeyword("to") {
		if p.tryConsumeKeyword("max") {
			return ast.ReservedRange{Start: int32(start), End: ast.MaxFieldNumber, Pos: pos}, true
		}
		endTok, ok := p.expect(token.Int)
		if !ok {
			return ast.ReservedRange{}, false
		}
		end, _ := parseIntLiteral(endTok.Text)
		return ast.ReservedRange{Start: int32(start), End: int32(end), Pos: pos}, true
	}
	return ast.ReservedRange{Start: int32(start), End: int32(start), Pos: pos}, true
}

// --- Enum ---

func (p *parser) parseEnum() *ast.Enum {
	pos := p.cur().Pos
	p.advance()
	name, ok := p.expectIdentLike()
	if !ok {
		p.resync()
		return nil
	}
	if !validIdentName(name) {
		p.errorf(pos, "invalid enum name %q", name)
	}
	e := &ast.Enum{Name: name, Pos: pos}
	if _, ok := p.expect(token.LBrace); !ok {
		p.resync()
		return e
	}
	for !p.is(token.RBrace) && !p.atEOF() {
		switch {
		case p.isKeyword("option"):
			if o := p.parseOption(); o != nil {
				e.Options = append(e.Options, o)
			}
		case p.is(token.Semicolon):
			p.advance()
		case p.is(token.Ident):
			if v := p.parseEnumValue(); v != nil {
				e.Values = append(e.Values, v)
			}
		default:
			p.errorf(p.cur().Pos, "unexpected token %s in enum body", describeTok(p.cur()))
			p.resyncBody()
		}
	}
	p.expect(token.RBrace)
	p.checkEnumSemantics(e)
	return e
}

func (p *parser) parseEnumValue() *ast.EnumValue {
	pos := p.cur().Pos
	name, ok := p.expectIdentLike()
	if !ok {
		p.resyncBody()
		return nil
	}
	if !validIdentName(name) {
		p.errorf(pos, "invalid enum value name %q", name)
	}
	if _, ok := p.expect(token.Equals); !ok {
		p.resyncBody()
		return nil
	}
	neg := p.tryConsume(token.Minus)
	numTok, ok := p.expect(token.Int)
	if !ok {
		p.resyncBody()
		return nil
	}
	n, err := parseIntLiteral(numTok.Text)
	if err != nil {
		p.errorf(numTok.Pos, "invalid enum value number %q", numTok.Text)
	}
	if neg {
		n = -n
	}
	v := &ast.EnumValue{Name: name, Number: int32(n), Pos: pos}
	v.Options = p.parseInlineOptions()
	p.tryConsume(token.Semicolon)
	return v
}

// --- Service ---

func (p *parser) parseService() *ast.Service {
	pos := p.cur().Pos
	p.advance()
	name, ok := p.expectIdentLike()
	if !ok {
		p.resync()
		return nil
	}
	if !validIdentName(name) {
		p.errorf(pos, "invalid service name %q", name)
	}
	s := &ast.Service{Name: name, Pos: pos}
	if _, ok := p.expect(token.LBrace); !ok {
		p.resync()
		return s
	}
	for !p.is(token.RBrace) && !p.atEOF() {
		switch {
		case p.isKeyword("option"):
			if o := p.parseOption(); o != nil {
				s.Options = append(s.Options, o)
			}
		case p.isKeyword("rpc"):
			if m := p.parseMethod(); m != nil {
				s.Methods = append(s.Methods, m)
			}
		case p.is(token.Semicolon):
			p.advance()
		default:
			p.errorf(p.cur().Pos, "unexpected token %s in service body", describeTok(p.cur()))
			p.resyncBody()
		}
	}
	p.expect(token.RBrace)
	return s
}

func (p *parser) parseMethod() *ast.Method {
	pos := p.cur().Pos
	p.advance()
	name, ok := p.expectIdentLike()
	if !ok {
		p.resync()
		return nil
	}
	if !validIdentName(name) {
		p.errorf(pos, "invalid rpc name %q", name)
	}
	m := &ast.Method{Name: name, Pos: pos}
	if _, ok := p.expect(token.LParen); !ok {
		p.resync()
		return m
	}
	if p.tryConsumeKeyword("stream") {
		m.ClientStreaming = true
	}
	in, ok := p.parseTypeReference()
	if !ok {
		p.resync()
		return m
	}
	m.InputType = in
	if _, ok := p.expect(token.RParen); !ok {
		p.resync()
		return m
	}
	if !p.expectKeyword("returns") {
		p.resync()
		return m
	}
	if _, ok := p.expect(token.LParen); !ok {
		p.resync()
		return m
	}
	if p.tryConsumeKeyword("stream") {
		m.ServerStreaming = true
	}
	out, ok := p.parseTypeReference()
	if !ok {
		p.resync()
		return m
	}
	m.OutputType = out
	if _, ok := p.expect(token.RParen); !ok {
		p.resync()
		return m
	}
	if p.tryConsume(token.LBrace) {
		for !p.is(token.RBrace) && !p.atEOF() {
			if p.isKeyword("option") {
				if o := p.parseOption(); o != nil {
					m.Options = append(m.Options, o)
				}
			} else if p.is(token.Semicolon) {
				p.advance()
			} else {
				p.errorf(p.cur().Pos, "unexpected token %s in rpc body", describeTok(p.cur()))
				p.resyncBody()
			}
		}
		p.expect(token.RBrace)
	} else {
		p.tryConsume(token.Semicolon)
	}
	return m
}

// --- Extend ---

func (p *parser) parseExtend() *ast.Extend {
	pos := p.cur().Pos
	p.advance()
	target, ok := p.parseTypeReference()
	if !ok {
		p.resync()
		return nil
	}
	normalized := strings.TrimPrefix(target, ".")
	if !ast.WellKnownExtendTargets[normalized] {
		p.errorf(pos, "invalid extend target %q: proto3 only permits extending the well-known *Options messages", target)
	}
	e := &ast.Extend{Target: normalized, Pos: pos}
	if _, ok := p.expect(token.LBrace); !ok {
		p.resync()
		return e
	}
	for !p.is(token.RBrace) && !p.atEOF() {
		if p.is(token.Semicolon) {
			p.advance()
			continue
		}
		if f := p.parseField(); f != nil {
			e.Fields = append(e.Fields, f)
		}
	}
	p.expect(token.RBrace)
	return e
}
