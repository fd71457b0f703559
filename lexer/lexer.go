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

// Package lexer turns proto3 source text into a token stream. It is
// deliberately independent of any particular io.Reader implementation: the
// streaming package supplies a bufio.Reader sized to amortize chunked reads
// for oversize files, but the lexer itself just consumes an io.RuneScanner.
package lexer

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/protoschema/protoschema/token"
)

// Error is the lexer's error type; every failure the lexer can produce is
// reported through one of these.
type Error struct {
	Pos token.Position
	Msg string
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Pos, e.Msg) }

func newError(pos token.Position, format string, args ...interface{}) error {
	return &Error{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// Lexer converts source text into tokens on demand. It fails fast: the first
// malformed construct aborts lexing with an error, per spec.
type Lexer struct {
	r        io.RuneScanner
	filename string

	line, col int // position of the next rune to be read
	offset    int

	lastToken *token.Token // last token returned by Lex, for trailing-comment attachment
}

// New creates a Lexer that reads from r. filename is used only to annotate
// positions in errors and tokens.
func New(r io.Reader, filename string) *Lexer {
	var rs io.RuneScanner
	if s, ok := r.(io.RuneScanner); ok {
		rs = s
	} else {
		rs = bufio.NewReader(r)
	}
	return &Lexer{r: rs, filename: filename, line: 1, col: 1}
}

// NewFromString is a convenience constructor over in-memory source text.
func NewFromString(src, filename string) *Lexer {
	return New(strings.NewReader(src), filename)
}

func (l *Lexer) pos() token.Position {
	return token.Position{Filename: l.filename, Line: l.line, Col: l.col}
}

func (l *Lexer) readRune() (rune, error) {
	r, _, err := l.r.ReadRune()
	if err != nil {
		return 0, err
	}
	l.offset++
	return r, nil
}

func (l *Lexer) unreadRune() {
	_ = l.r.UnreadRune()
	l.offset--
}

// advance consumes one rune and updates line/col bookkeeping. CR, LF, and
// CRLF each count as one line break; LFCR (an "\n\r" pair) counts as two,
// matching the spec's explicit rule.
func (l *Lexer) advance() (rune, bool) {
	r, err := l.readRune()
	if err != nil {
		return 0, false
	}
	switch r {
	case '\n':
		// A lone '\n' is one break. Unlike '\r', it never absorbs a
		// following rune: "\n\r" is two breaks, not one (only the
		// canonical "\r\n" pairing collapses to a single break).
		l.line++
		l.col = 1
	case '\r':
		l.line++
		l.col = 1
		if nr, err := l.readRune(); err == nil {
			if nr != '\n' {
				l.unreadRune()
			}
		}
	default:
		l.col++
	}
	return r, true
}

func (l *Lexer) peekRune() (rune, bool) {
	r, err := l.readRune()
	if err != nil {
		return 0, false
	}
	l.unreadRune()
	return r, true
}

// Tokenize runs Lex repeatedly and returns every token up to and including
// EOF, or the first error encountered.
func Tokenize(src, filename string) ([]token.Token, error) {
	lx := NewFromString(src, filename)
	var toks []token.Token
	for {
		prev := lx.lastToken
		tok, err := lx.Lex()
		if err != nil {
			return toks, err
		}
		if prev != nil && len(toks) > 0 {
			toks[len(toks)-1].Trailing = prev.Trailing
		}
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks, nil
		}
	}
}

// Lex returns the next token with the comments gathered before it as its
// leading comments. The first of those comments, when it starts on the same
// line as the previous token, is instead that token's trailing comment; it
// is only known once this token is lexed, so it is set on the lexer's copy
// of the previous token, and Tokenize copies it onto the previous token in
// its result.
func (l *Lexer) Lex() (token.Token, error) {
	leading, sameLineAsLast, err := l.skipSpaceAndComments()
	if err != nil {
		return token.Token{}, err
	}
	if len(leading) > 0 && sameLineAsLast && l.lastToken != nil && l.lastToken.Trailing == nil {
		// The first gathered comment is on the same source line as the
		// previous token with nothing else between them: it is that
		// token's trailing comment, not this token's leading comment.
		trailing := leading[0]
		l.lastToken.Trailing = &trailing
		leading = leading[1:]
	}

	startPos := l.pos()
	r, ok := l.peekRune()
	if !ok {
		tok := token.Token{Kind: token.EOF, Pos: startPos, Leading: leading}
		l.lastToken = &tok
		return tok, nil
	}

	var tok token.Token
	switch {
	case isIdentStart(r):
		tok, err = l.lexIdent(startPos)
	case r >= '0' && r <= '9':
		tok, err = l.lexNumber(startPos)
	case r == '"' || r == '\'':
		tok, err = l.lexString(startPos)
	default:
		tok, err = l.lexPunct(startPos)
	}
	if err != nil {
		return token.Token{}, err
	}
	tok.Leading = leading
	l.lastToken = &tok
	return tok, nil
}

// skipSpaceAndComments consumes whitespace and comments, returning any
// comments found (in source order) and whether the first of them began on
// the same line the lexer started on (used to classify it as trailing).
func (l *Lexer) skipSpaceAndComments() ([]token.Comment, bool, error) {
	var comments []token.Comment
	startLine := l.line
	first := true
	var firstSameLine bool

	for {
		r, ok := l.peekRune()
		if !ok {
			return comments, firstSameLine, nil
		}
		switch {
		case r == ' ' || r == '\t' || r == '\r' || r == '\n':
			l.advance()
			continue
		case r == '/':
			commentStartLine := l.line
			comment, isComment, err := l.tryLexComment()
			if err != nil {
				return comments, firstSameLine, err
			}
			if !isComment {
				return comments, firstSameLine, nil
			}
			if first {
				firstSameLine = commentStartLine == startLine
				first = false
			}
			comments = append(comments, comment)
			continue
		default:
			return comments, firstSameLine, nil
		}
	}
}

func (l *Lexer) tryLexComment() (token.Comment, bool, error) {
	pos := l.pos()
	l.advance() // consume first '/'
	r2, ok := l.peekRune()
	if !ok || (r2 != '/' && r2 != '*') {
		// A lone '/' is not part of the proto3 grammar; peekRune above did
		// not consume r2, so the reader position is already correct for
		// this to be reported as an unexpected character at pos.
		return token.Comment{}, false, newError(pos, "unexpected character %q", '/')
	}
	if r2 == '/' {
		l.advance() // consume second '/'
		var b strings.Builder
		b.WriteString("//")
		for {
			r, ok := l.peekRune()
			if !ok || r == '\n' || r == '\r' {
				break
			}
			l.advance()
			b.WriteRune(r)
		}
		return token.Comment{Text: b.String(), Pos: pos}, true, nil
	}
	// block comment
	l.advance() // consume '*'
	var b strings.Builder
	b.WriteString("/*")
	for {
		r, ok := l.advance()
		if !ok {
			return token.Comment{}, false, newError(l.pos(), "unterminated block comment")
		}
		b.WriteRune(r)
		if r == '/' {
			if nr, ok := l.peekRune(); ok && nr == '*' {
				return token.Comment{}, false, newError(l.pos(), "block comments may not be nested")
			}
		}
		if r == '*' {
			if nr, ok := l.peekRune(); ok && nr == '/' {
				l.advance()
				b.WriteRune('/')
				break
			}
		}
	}
	return token.Comment{Text: b.String(), Pos: pos}, true, nil
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentCont(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func (l *Lexer) lexIdent(pos token.Position) (token.Token, error) {
	var b strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok || !isIdentCont(r) {
			break
		}
		l.advance()
		b.WriteRune(r)
	}
	return token.Token{Kind: token.Ident, Text: b.String(), Pos: pos}, nil
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func (l *Lexer) lexNumber(pos token.Position) (token.Token, error) {
	var b strings.Builder
	first, _ := l.advance()
	b.WriteRune(first)

	if first == '0' {
		if r, ok := l.peekRune(); ok && (r == 'x' || r == 'X') {
			l.advance()
			b.WriteRune(r)
			start := b.Len()
			for {
				r, ok := l.peekRune()
				if !ok || !isHexDigit(r) {
					break
				}
				l.advance()
				b.WriteRune(r)
			}
			if b.Len() == start {
				return token.Token{}, newError(pos, "invalid hex literal %q", b.String())
			}
			if err := l.rejectTrailingIdentChars(pos, &b); err != nil {
				return token.Token{}, err
			}
			return token.Token{Kind: token.Int, Text: b.String(), Pos: pos}, nil
		}
	}

	for {
		r, ok := l.peekRune()
		if !ok || !isDigit(r) {
			break
		}
		l.advance()
		b.WriteRune(r)
	}

	isFloat := false
	if r, ok := l.peekRune(); ok && r == '.' {
		// Only consume the dot as part of the number if followed by a digit,
		// or if at least one digit preceded it (e.g. "1." is a valid float).
		isFloat = true
		l.advance()
		b.WriteRune(r)
		sawFracDigit := false
		for {
			r, ok := l.peekRune()
			if !ok || !isDigit(r) {
				break
			}
			l.advance()
			b.WriteRune(r)
			sawFracDigit = true
		}
		if r, ok := l.peekRune(); ok && r == '.' {
			return token.Token{}, newError(pos, "malformed number %q: multiple decimal points", b.String()+string(r))
		}
		_ = sawFracDigit
	}

	if r, ok := l.peekRune(); ok && (r == 'e' || r == 'E') {
		isFloat = true
		l.advance()
		b.WriteRune(r)
		if r2, ok := l.peekRune(); ok && (r2 == '+' || r2 == '-') {
			l.advance()
			b.WriteRune(r2)
		}
		sawExpDigit := false
		for {
			r, ok := l.peekRune()
			if !ok || !isDigit(r) {
				break
			}
			l.advance()
			b.WriteRune(r)
			sawExpDigit = true
		}
		if !sawExpDigit {
			return token.Token{}, newError(pos, "malformed number %q: incomplete exponent", b.String())
		}
	}

	if err := l.rejectTrailingIdentChars(pos, &b); err != nil {
		return token.Token{}, err
	}

	kind := token.Int
	if isFloat {
		kind = token.Float
	}
	return token.Token{Kind: kind, Text: b.String(), Pos: pos}, nil
}

// rejectTrailingIdentChars fails malformed numeric literals like "123abc".
func (l *Lexer) rejectTrailingIdentChars(pos token.Position, b *strings.Builder) error {
	if r, ok := l.peekRune(); ok && isIdentStart(r) {
		extra := string(r)
		l.advance()
		for {
			r, ok := l.peekRune()
			if !ok || !isIdentCont(r) {
				break
			}
			l.advance()
			extra += string(r)
		}
		return newError(pos, "malformed number %q: trailing characters %q", b.String(), extra)
	}
	return nil
}

func (l *Lexer) lexString(pos token.Position) (token.Token, error) {
	quote, _ := l.advance()
	var b strings.Builder
	for {
		r, ok := l.advance()
		if !ok {
			return token.Token{}, newError(pos, "unterminated string literal")
		}
		if r == '\n' || r == '\r' {
			return token.Token{}, newError(pos, "unterminated string literal (newline before closing quote)")
		}
		if r == quote {
			break
		}
		if r == '\\' {
			esc, ok := l.advance()
			if !ok {
				return token.Token{}, newError(pos, "unterminated string literal")
			}
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			case '\'':
				b.WriteByte('\'')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'u':
				var hex strings.Builder
				for i := 0; i < 4; i++ {
					hr, ok := l.advance()
					if !ok || !isHexDigit(hr) {
						return token.Token{}, newError(pos, "invalid \\u escape sequence")
					}
					hex.WriteRune(hr)
				}
				var code rune
				fmt.Sscanf(hex.String(), "%x", &code)
				b.WriteRune(code)
			default:
				return token.Token{}, newError(pos, "invalid escape sequence \\%c", esc)
			}
			continue
		}
		b.WriteRune(r)
	}
	return token.Token{Kind: token.String, Text: b.String(), Pos: pos}, nil
}

func (l *Lexer) lexPunct(pos token.Position) (token.Token, error) {
	r, _ := l.advance()
	var kind token.Kind
	switch r {
	case '{':
		kind = token.LBrace
	case '}':
		kind = token.RBrace
	case '[':
		kind = token.LBracket
	case ']':
		kind = token.RBracket
	case '(':
		kind = token.LParen
	case ')':
		kind = token.RParen
	case '<':
		kind = token.LAngle
	case '>':
		kind = token.RAngle
	case ',':
		kind = token.Comma
	case ';':
		kind = token.Semicolon
	case '=':
		kind = token.Equals
	case '.':
		kind = token.Dot
	case ':':
		kind = token.Colon
	case '-':
		kind = token.Minus
	default:
		return token.Token{}, newError(pos, "unexpected character %q", r)
	}
	return token.Token{Kind: kind, Text: string(r), Pos: pos}, nil
}
