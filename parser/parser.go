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

// Package parser is a predictive, recursive-descent parser that builds the
// proto3 AST from a token stream and applies the local semantic checks that
// do not require cross-file information (those live in the descriptor
// package, once a file's imports are resolved).
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/protoschema/protoschema/ast"
	"github.com/protoschema/protoschema/lexer"
	"github.com/protoschema/protoschema/reporter"
	"github.com/protoschema/protoschema/token"
)

// Options controls parsing behavior.
type Options struct {
	// MaxErrors caps the number of local semantic/syntax errors accumulated
	// before the parser gives up. 0 means unlimited.
	MaxErrors int
	// Lenient, when true, returns the best-effort AST alongside any
	// accumulated errors instead of discarding it. Strict mode (the
	// default) only ever returns an AST when there were zero errors.
	Lenient bool
}

// Result is the outcome of parsing one file.
type Result struct {
	File   *ast.File
	Errors []reporter.ErrorWithPos
}

// Err returns reporter.ErrInvalidSource if parsing produced any error, else nil.
func (r Result) Err() error {
	if len(r.Errors) > 0 {
		return reporter.ErrInvalidSource
	}
	return nil
}

// statementKeywords resynchronization stops skipping tokens at the start of
// one of these top-level keywords, or at a ';'.
var statementKeywords = map[string]bool{
	"message": true, "enum": true, "service": true, "rpc": true,
	"syntax": true, "package": true, "import": true, "option": true,
}

type parser struct {
	toks []token.Token
	pos  int
	name string

	h    *reporter.Handler
	opts Options
}

// Parse lexes and parses src (named filename for diagnostics) and returns
// the resulting AST and/or accumulated errors.
func Parse(src, filename string, opts Options) Result {
	toks, err := lexer.Tokenize(src, filename)
	if err != nil {
		h := reporter.NewHandler(nil, opts.MaxErrors)
		var lerr *lexer.Error
		if e, ok := err.(*lexer.Error); ok {
			lerr = e
		}
		pos := token.Position{Filename: filename, Line: 1, Col: 1}
		msg := err.Error()
		if lerr != nil {
			pos = lerr.Pos
			msg = lerr.Msg
		}
		_ = h.HandleError(reporter.Errorf(pos, "%s", msg))
		return Result{Errors: h.Errors()}
	}
	p := &parser{toks: toks, name: filename, h: reporter.NewHandler(nil, opts.MaxErrors), opts: opts}
	file := p.parseFile()
	errs := p.h.Errors()
	if len(errs) > 0 && !opts.Lenient {
		return Result{Errors: errs}
	}
	return Result{File: file, Errors: errs}
}

// --- token stream primitives ---

func (p *parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[p.pos]
}

func (p *parser) peekAt(offset int) token.Token {
	i := p.pos + offset
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *parser) atEOF() bool { return p.cur().Kind == token.EOF }

func (p *parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

// is reports whether the current token has the given kind.
func (p *parser) is(k token.Kind) bool { return p.cur().Kind == k }

// isKeyword reports whether the current token is the identifier `word`.
func (p *parser) isKeyword(word string) bool { return p.cur().IsKeyword(word) }

// tryConsumeKeyword advances and returns true if the current token is `word`.
func (p *parser) tryConsumeKeyword(word string) bool {
	if p.isKeyword(word) {
		p.advance()
		return true
	}
	return false
}

// tryConsume advances and returns true if the current token has kind k.
func (p *parser) tryConsume(k token.Kind) bool {
	if p.is(k) {
		p.advance()
		return true
	}
	return false
}

// expect consumes a token of kind k or records UnexpectedToken and returns ok=false.
func (p *parser) expect(k token.Kind) (token.Token, bool) {
	if p.is(k) {
		return p.advance(), true
	}
	p.errorf(p.cur().Pos, "expected %s, found %s", k, describeTok(p.cur()))
	return token.Token{}, false
}

func (p *parser) expectKeyword(word string) bool {
	if p.tryConsumeKeyword(word) {
		return true
	}
	p.errorf(p.cur().Pos, "expected keyword %q, found %s", word, describeTok(p.cur()))
	return false
}

func describeTok(t token.Token) string {
	if t.Kind == token.EOF {
		return "end of file"
	}
	return fmt.Sprintf("%q", t.Text)
}

// errorf records a local syntax/semantic error. Returns false always so
// callers can `return p.errorf(...)`-style bail out of a production; once
// maxErrors is hit, further productions should stop doing work, which
// p.aborted() reports.
func (p *parser) errorf(pos token.Position, format string, args ...interface{}) bool {
	_ = p.h.HandleErrorf(pos, format, args...)
	return false
}

func (p *parser) aborted() bool { return p.h.Aborted() }

// resync skips tokens until a statement-starting keyword, ';', '}', or EOF;
// a ';' is consumed, the others are left in place.
func (p *parser) resync() {
	for !p.atEOF() {
		if p.is(token.Semicolon) {
			p.advance()
			return
		}
		if p.is(token.Ident) && statementKeywords[p.cur().Text] {
			return
		}
		if p.is(token.RBrace) {
			return
		}
		p.advance()
	}
}

// resyncBody skips within a body until ';', '}', a statement keyword, or EOF.
func (p *parser) resyncBody() {
	for !p.atEOF() {
		if p.is(token.Semicolon) {
			p.advance()
			return
		}
		if p.is(token.RBrace) {
			return
		}
		if p.is(token.Ident) && statementKeywords[p.cur().Text] {
			return
		}
		p.advance()
	}
}

// --- File ---

func (p *parser) parseFile() *ast.File {
	f := &ast.File{Name: p.name, Syntax: "proto3"}

	if p.isKeyword("syntax") {
		pos := p.cur().Pos
		p.advance()
		if _, ok := p.expect(token.Equals); ok {
			if str, ok := p.expect(token.String); ok {
				f.SyntaxPos = pos
				if str.Text != "proto3" {
					p.errorf(str.Pos, "invalid syntax version %q: only \"proto3\" is supported", str.Text)
				} else {
					f.Syntax = "proto3"
				}
			}
		}
		p.tryConsume(token.Semicolon)
	} else {
		p.h.HandleWarning(reporter.Errorf(p.cur().Pos, "no syntax specified; assuming proto3"))
	}

	for !p.atEOF() && !p.aborted() {
		if p.parseFileElement(f) {
			continue
		}
		if p.atEOF() {
			break
		}
		p.errorf(p.cur().Pos, "unexpected token %s at top level", describeTok(p.cur()))
		p.resync()
	}
	return f
}

func (p *parser) parseFileElement(f *ast.File) bool {
	switch {
	case p.isKeyword("package"):
		p.parsePackage(f)
		return true
	case p.isKeyword("import"):
		if imp := p.parseImport(); imp != nil {
			f.Imports = append(f.Imports, imp)
		}
		return true
	case p.isKeyword("option"):
		if o := p.parseOption(); o != nil {
			f.Options = append(f.Options, o)
		}
		return true
	case p.isKeyword("message"):
		if m := p.parseMessage(); m != nil {
			f.Messages = append(f.Messages, m)
		}
		return true
	case p.isKeyword("enum"):
		if e := p.parseEnum(); e != nil {
			f.Enums = append(f.Enums, e)
		}
		return true
	case p.isKeyword("service"):
		if s := p.parseService(); s != nil {
			f.Services = append(f.Services, s)
		}
		return true
	case p.isKeyword("extend"):
		if e := p.parseExtend(); e != nil {
			f.Extends = append(f.Extends, e)
		}
		return true
	case p.is(token.Semicolon):
		p.advance()
		return true
	}
	return false
}

func (p *parser) parsePackage(f *ast.File) {
	pos := p.cur().Pos
	p.advance()
	name, ok := p.parseDottedIdent()
	if !ok {
		p.resync()
		return
	}
	if f.Package != "" {
		p.errorf(pos, "package name already declared")
	}
	if !validPackageName(name) {
		p.errorf(pos, "invalid package name %q", name)
	}
	f.Package = name
	f.PackagePos = pos
	p.tryConsume(token.Semicolon)
}

// parseDottedIdent parses ident ('.' ident)*, returning the joined text.
func (p *parser) parseDottedIdent() (string, bool) {
	first, ok := p.expectIdentLike()
	if !ok {
		return "", false
	}
	s := first
	for p.is(token.Dot) {
		p.advance()
		next, ok := p.expectIdentLike()
		if !ok {
			return s, false
		}
		s += "." + next
	}
	return s, true
}

// expectIdentLike consumes any word token (identifier or keyword used as a
// name, which proto3 permits in most contexts) as plain text.
func (p *parser) expectIdentLike() (string, bool) {
	if p.is(token.Ident) {
		t := p.advance()
		return t.Text, true
	}
	p.errorf(p.cur().Pos, "expected identifier, found %s", describeTok(p.cur()))
	return "", false
}

func (p *parser) parseImport() *ast.Import {
	pos := p.cur().Pos
	p.advance()
	mod := ast.ImportPlain
	if p.tryConsumeKeyword("public") {
		mod = ast.ImportPublic
	} else if p.tryConsumeKeyword("weak") {
		mod = ast.ImportWeak
	}
	str, ok := p.expect(token.String)
	if !ok {
		p.resync()
		return nil
	}
	p.tryConsume(token.Semicolon)
	return &ast.Import{Path: str.Text, Modifier: mod, Pos: pos}
}

// --- Options ---

func (p *parser) parseOption() *ast.Option {
	pos := p.cur().Pos
	p.advance()
	name, ok := p.parseOptionName()
	if !ok {
		p.resync()
		return nil
	}
	if _, ok := p.expect(token.Equals); !ok {
		p.resync()
		return nil
	}
	val := p.parseOptionValue()
	p.tryConsume(token.Semicolon)
	return &ast.Option{Name: name, Value: val, Pos: pos}
}

// parseOptionName parses a (possibly parenthesized, possibly dotted) option
// name, e.g. foo.bar or (my.custom_option).sub_field.
func (p *parser) parseOptionName() (string, bool) {
	var parts []string
	for {
		if p.is(token.LParen) {
			p.advance()
			inner, ok := p.parseDottedIdent()
			if !ok {
				return "", false
			}
			if _, ok := p.expect(token.RParen); !ok {
				return "", false
			}
			parts = append(parts, "("+inner+")")
		} else {
			id, ok := p.expectIdentLike()
			if !ok {
				return "", false
			}
			parts = append(parts, id)
		}
		if p.is(token.Dot) {
			p.advance()
			continue
		}
		break
	}
	return strings.Join(parts, "."), true
}

func (p *parser) parseOptionValue() *ast.OptionValue {
	pos := p.cur().Pos
	switch {
	case p.is(token.String):
		t := p.advance()
		// Adjacent string literal concatenation, as in C-like grammars.
		val := t.Text
		for p.is(token.String) {
			val += p.advance().Text
		}
		return &ast.OptionValue{Kind: ast.ValueString, Str: val, Pos: pos}
	case p.is(token.Minus) || p.is(token.Int) || p.is(token.Float):
		neg := false
		if p.is(token.Minus) {
			p.advance()
			neg = true
		}
		if p.is(token.Float) {
			t := p.advance()
			f, _ := strconv.ParseFloat(t.Text, 64)
			if neg {
				f = -f
			}
			return &ast.OptionValue{Kind: ast.ValueFloat, Float: f, Pos: pos}
		}
		t, ok := p.expect(token.Int)
		if !ok {
			return nil
		}
		n, err := parseIntLiteral(t.Text)
		if err != nil {
			p.errorf(t.Pos, "invalid integer literal %q", t.Text)
		}
		if neg {
			n = -n
		}
		return &ast.OptionValue{Kind: ast.ValueInt, Int: n, Pos: pos}
	case p.isKeyword("true"):
		p.advance()
		return &ast.OptionValue{Kind: ast.ValueBool, Bool: true, Pos: pos}
	case p.isKeyword("false"):
		p.advance()
		return &ast.OptionValue{Kind: ast.ValueBool, Bool: false, Pos: pos}
	case p.is(token.LBrace):
		return p.parseMessageLiteral()
	case p.is(token.LBracket):
		return p.parseListLiteral()
	case p.is(token.Ident):
		t := p.advance()
		return &ast.OptionValue{Kind: ast.ValueIdent, Ident: t.Text, Pos: pos}
	default:
		p.errorf(pos, "unexpected token %s in option value", describeTok(p.cur()))
		return nil
	}
}

func parseIntLiteral(text string) (int64, error) {
	base := 10
	switch {
	case strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X"):
		base = 16
		text = text[2:]
	case len(text) > 1 && text[0] == '0':
		base = 8
	}
	return strconv.ParseInt(text, base, 64)
}

func (p *parser) parseMessageLiteral() *ast.OptionValue {
	pos := p.cur().Pos
	p.advance() // '{'
	var fields []*ast.MessageLiteralField
	for !p.is(token.RBrace) && !p.atEOF() {
		fpos := p.cur().Pos
		name, ok := p.expectIdentLike()
		if !ok {
			p.resyncBody()
			continue
		}
		var val *ast.OptionValue
		if p.tryConsume(token.Colon) {
			val = p.parseOptionValue()
		} else if p.is(token.LBrace) {
			val = p.parseMessageLiteral()
		}
		fields = append(fields, &ast.MessageLiteralField{Name: name, Value: val, Pos: fpos})
		p.tryConsume(token.Comma)
		p.tryConsume(token.Semicolon)
	}
	p.expect(token.RBrace)
	return &ast.OptionValue{Kind: ast.ValueMessage, Message: fields, Pos: pos}
}

func (p *parser) parseListLiteral() *ast.OptionValue {
	pos := p.cur().Pos
	p.advance() // '['
	var vals []*ast.OptionValue
	for !p.is(token.RBracket) && !p.atEOF() {
		vals = append(vals, p.parseOptionValue())
		if !p.tryConsume(token.Comma) {
			break
		}
	}
	p.expect(token.RBracket)
	return &ast.OptionValue{Kind: ast.ValueList, List: vals, Pos: pos}
}

// parseInlineOptions parses "[ option, option, ... ]" as used after a field
// or enum value declaration, returning the options as a list.
func (p *parser) parseInlineOptions() []*ast.Option {
	if !p.tryConsume(token.LBracket) {
		return nil
	}
	var opts []*ast.Option
	for !p.is(token.RBracket) && !p.atEOF() {
		pos := p.cur().Pos
		name, ok := p.parseOptionName()
		if !ok {
			p.resyncBody()
			break
		}
		var val *ast.OptionValue
		if p.tryConsume(token.Equals) {
			val = p.parseOptionValue()
		}
		opts = append(opts, &ast.Option{Name: name, Value: val, Pos: pos})
		if !p.tryConsume(token.Comma) {
			break
		}
	}
	p.expect(token.RBracket)
	return opts
}

func validPackageName(name string) bool {
	for _, seg := range strings.Split(name, ".") {
		if !validIdentName(seg) {
			return false
		}
	}
	return name != ""
}

func validIdentName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}
