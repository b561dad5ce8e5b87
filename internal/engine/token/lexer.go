package token

import (
	"bytes"
	"fmt"
	"strings"
)

// operators lists multi-character operators, longest first.
var operators = []string{
	"<<=", ">>=", "**=", "??=", "===", "!==", "<=>", "...", "?->",
	"::", "=>", "->", "==", "!=", "<>", "<=", ">=", "&&", "||", "??",
	"++", "--", "+=", "-=", "*=", "/=", ".=", "%=", "&=", "|=", "^=",
	"<<", ">>", "**",
}

var singles = map[byte]Kind{
	'(': LParen,
	')': RParen,
	'{': LBrace,
	'}': RBrace,
	'[': LBracket,
	']': RBracket,
	';': Semicolon,
	',': Comma,
	'=': Assign,
	'&': Ampersand,
	'?': Question,
	':': Colon,
}

// Lexer splits PHP source into tokens in the shape the parsers expect:
// names are separate Identifier and NsSeparator tokens, strings are
// single tokens, and every token carries the line it starts on.
type Lexer struct {
	src    []byte
	cur    int
	line   int
	inPHP  bool
	halted bool
	last   Kind
	tokens []Token
}

func NewLexer(src []byte) *Lexer {
	return &Lexer{src: src, line: 1}
}

func (l *Lexer) Scan() ([]Token, error) {
	for l.cur < len(l.src) {
		if !l.inPHP {
			l.scanInlineHTML()
			continue
		}
		if err := l.scanToken(); err != nil {
			return nil, err
		}
	}
	return l.tokens, nil
}

func (l *Lexer) emit(kind Kind, text string) {
	l.tokens = append(l.tokens, Token{Kind: kind, Text: text, Line: l.line})
	l.line += strings.Count(text, "\n")
	if !kind.IsInsignificant(true) {
		l.last = kind
	}
}

func (l *Lexer) peekN(n int) byte {
	if l.cur+n >= len(l.src) {
		return 0
	}
	return l.src[l.cur+n]
}

func (l *Lexer) err(msg string) error {
	return fmt.Errorf("line %d: %s", l.line, msg)
}

func (l *Lexer) scanInlineHTML() {
	rest := l.src[l.cur:]
	if l.halted {
		l.emit(InlineHTML, string(rest))
		l.cur = len(l.src)
		return
	}
	idx := bytes.Index(rest, []byte("<?"))
	for idx >= 0 {
		tail := rest[idx:]
		if bytes.HasPrefix(tail, []byte("<?=")) || isPHPOpen(tail) {
			break
		}
		next := bytes.Index(rest[idx+2:], []byte("<?"))
		if next < 0 {
			idx = -1
			break
		}
		idx += 2 + next
	}
	if idx < 0 {
		l.emit(InlineHTML, string(rest))
		l.cur = len(l.src)
		return
	}
	if idx > 0 {
		l.emit(InlineHTML, string(rest[:idx]))
		l.cur += idx
	}
	l.inPHP = true
	if bytes.HasPrefix(l.src[l.cur:], []byte("<?=")) {
		l.emit(OpenTagWithEcho, "<?=")
		l.cur += 3
		return
	}
	end := l.cur + 5
	if end < len(l.src) && l.src[end] == '\r' && end+1 < len(l.src) && l.src[end+1] == '\n' {
		end += 2
	} else if end < len(l.src) && isSpace(l.src[end]) {
		end++
	}
	l.emit(OpenTag, string(l.src[l.cur:end]))
	l.cur = end
}

func isPHPOpen(b []byte) bool {
	if len(b) < 5 || !strings.EqualFold(string(b[:5]), "<?php") {
		return false
	}
	return len(b) == 5 || isSpace(b[5])
}

func (l *Lexer) scanToken() error {
	c := l.src[l.cur]
	switch {
	case isSpace(c):
		start := l.cur
		for l.cur < len(l.src) && isSpace(l.src[l.cur]) {
			l.cur++
		}
		l.emit(Whitespace, string(l.src[start:l.cur]))
		return nil
	case c == '?' && l.peekN(1) == '>':
		end := l.cur + 2
		if end < len(l.src) && l.src[end] == '\n' {
			end++
		}
		l.emit(CloseTag, string(l.src[l.cur:end]))
		l.cur = end
		l.inPHP = false
		return nil
	case c == '#' && l.peekN(1) == '[':
		l.emit(Operator, "#[")
		l.cur += 2
		return nil
	case c == '#' || (c == '/' && l.peekN(1) == '/'):
		l.scanLineComment()
		return nil
	case c == '/' && l.peekN(1) == '*':
		l.scanBlockComment()
		return nil
	case c == '$' && isIdentStart(l.peekN(1)):
		start := l.cur
		l.cur++
		l.scanIdentifier()
		l.emit(Variable, string(l.src[start:l.cur]))
		return nil
	case isIdentStart(c):
		l.scanWord()
		return nil
	case c == '\\':
		l.emit(NsSeparator, "\\")
		l.cur++
		return nil
	case isDigit(c) || (c == '.' && isDigit(l.peekN(1))):
		l.scanNumber()
		return nil
	case c == '\'':
		return l.scanSingleQuoted()
	case c == '"' || c == '`':
		return l.scanDoubleQuoted(c)
	case c == '<' && l.peekN(1) == '<' && l.peekN(2) == '<':
		return l.scanHeredoc()
	}

	for _, op := range operators {
		if bytes.HasPrefix(l.src[l.cur:], []byte(op)) {
			kind := Operator
			switch op {
			case "::":
				kind = DoubleColon
			case "=>":
				kind = DoubleArrow
			case "...":
				kind = Ellipsis
			case "->", "?->":
				kind = ObjectOperator
			}
			l.emit(kind, op)
			l.cur += len(op)
			return nil
		}
	}
	if kind, ok := singles[c]; ok {
		l.emit(kind, string(c))
		l.cur++
		if l.halted && kind == Semicolon {
			l.inPHP = false
		}
		return nil
	}
	l.emit(Char, string(c))
	l.cur++
	return nil
}

func (l *Lexer) scanLineComment() {
	start := l.cur
	for l.cur < len(l.src) {
		if l.src[l.cur] == '\n' {
			l.cur++
			break
		}
		if l.src[l.cur] == '?' && l.peekN(1) == '>' {
			break
		}
		l.cur++
	}
	l.emit(Comment, string(l.src[start:l.cur]))
}

func (l *Lexer) scanBlockComment() {
	start := l.cur
	end := bytes.Index(l.src[l.cur+2:], []byte("*/"))
	if end < 0 {
		l.cur = len(l.src)
	} else {
		l.cur += 2 + end + 2
	}
	text := string(l.src[start:l.cur])
	kind := Comment
	if len(text) > 4 && strings.HasPrefix(text, "/**") && isSpace(text[3]) {
		kind = DocComment
	}
	l.emit(kind, text)
}

func (l *Lexer) scanIdentifier() {
	for l.cur < len(l.src) && isIdentPart(l.src[l.cur]) {
		l.cur++
	}
}

func (l *Lexer) scanWord() {
	start := l.cur
	l.scanIdentifier()
	word := string(l.src[start:l.cur])
	kind := Keyword(word)
	switch {
	case l.last == ObjectOperator:
		kind = Identifier
	case l.last == DoubleColon && kind != Class:
		kind = Identifier
	}
	l.emit(kind, word)
	if kind == HaltCompiler {
		l.halted = true
	}
}

func (l *Lexer) scanNumber() {
	start := l.cur
	kind := LNumber
	if l.src[l.cur] == '0' && (l.peekN(1) == 'x' || l.peekN(1) == 'X') {
		l.cur += 2
		for l.cur < len(l.src) && (isHex(l.src[l.cur]) || l.src[l.cur] == '_') {
			l.cur++
		}
		l.emit(kind, string(l.src[start:l.cur]))
		return
	}
	if l.src[l.cur] == '0' && (l.peekN(1) == 'b' || l.peekN(1) == 'B') {
		l.cur += 2
		for l.cur < len(l.src) && (l.src[l.cur] == '0' || l.src[l.cur] == '1' || l.src[l.cur] == '_') {
			l.cur++
		}
		l.emit(kind, string(l.src[start:l.cur]))
		return
	}
	l.scanDigits()
	if l.cur < len(l.src) && l.src[l.cur] == '.' && isDigit(l.peekN(1)) {
		kind = DNumber
		l.cur++
		l.scanDigits()
	}
	if l.cur < len(l.src) && (l.src[l.cur] == 'e' || l.src[l.cur] == 'E') {
		n := 1
		if l.peekN(1) == '+' || l.peekN(1) == '-' {
			n = 2
		}
		if isDigit(l.peekN(n)) {
			kind = DNumber
			l.cur += n
			l.scanDigits()
		}
	}
	l.emit(kind, string(l.src[start:l.cur]))
}

func (l *Lexer) scanDigits() {
	for l.cur < len(l.src) && (isDigit(l.src[l.cur]) || l.src[l.cur] == '_') {
		l.cur++
	}
}

func (l *Lexer) scanSingleQuoted() error {
	start := l.cur
	l.cur++
	for l.cur < len(l.src) {
		switch l.src[l.cur] {
		case '\\':
			l.cur += 2
			continue
		case '\'':
			l.cur++
			l.emit(ConstantString, string(l.src[start:l.cur]))
			return nil
		}
		l.cur++
	}
	return l.err("unterminated single-quoted string")
}

func (l *Lexer) scanDoubleQuoted(quote byte) error {
	start := l.cur
	l.cur++
	interpolated := quote == '`'
	for l.cur < len(l.src) {
		c := l.src[l.cur]
		switch {
		case c == '\\':
			l.cur += 2
			continue
		case c == quote:
			l.cur++
			kind := ConstantString
			if interpolated {
				kind = EncapsedString
			}
			l.emit(kind, string(l.src[start:l.cur]))
			return nil
		case c == '$' && (isIdentStart(l.peekN(1)) || l.peekN(1) == '{'):
			interpolated = true
		case c == '{' && l.peekN(1) == '$':
			interpolated = true
		}
		l.cur++
	}
	return l.err("unterminated double-quoted string")
}

func (l *Lexer) scanHeredoc() error {
	start := l.cur
	i := l.cur + 3
	for i < len(l.src) && (l.src[i] == ' ' || l.src[i] == '\t') {
		i++
	}
	quote := byte(0)
	if i < len(l.src) && (l.src[i] == '\'' || l.src[i] == '"') {
		quote = l.src[i]
		i++
	}
	labelStart := i
	for i < len(l.src) && isIdentPart(l.src[i]) {
		i++
	}
	label := string(l.src[labelStart:i])
	if label == "" {
		// Not a heredoc after all: "<<" followed by "<".
		l.emit(Operator, "<<")
		l.cur += 2
		return nil
	}
	if quote != 0 {
		if i >= len(l.src) || l.src[i] != quote {
			return l.err("malformed heredoc label")
		}
		i++
	}
	nl := bytes.IndexByte(l.src[i:], '\n')
	if nl < 0 {
		return l.err("unterminated heredoc")
	}
	i += nl + 1
	for i <= len(l.src) {
		lineEnd := bytes.IndexByte(l.src[i:], '\n')
		line := l.src[i:]
		if lineEnd >= 0 {
			line = l.src[i : i+lineEnd]
		}
		trimmed := bytes.TrimLeft(line, " \t")
		if bytes.HasPrefix(trimmed, []byte(label)) {
			rest := trimmed[len(label):]
			if len(rest) == 0 || !isIdentPart(rest[0]) {
				end := i + (len(line) - len(trimmed)) + len(label)
				l.emit(Heredoc, string(l.src[start:end]))
				l.cur = end
				return nil
			}
		}
		if lineEnd < 0 {
			break
		}
		i += lineEnd + 1
	}
	return l.err("unterminated heredoc " + label)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
