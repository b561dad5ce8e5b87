package token

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotBracket       = errors.New("current token is not an opening bracket")
	ErrUnmatchedBracket = errors.New("no matching closing bracket")
	ErrOutOfRange       = errors.New("position out of range")
)

// Cursor is the positioned, seekable view over a token sequence that the
// element parsers consume.
type Cursor interface {
	Filename() string
	Key() int
	Len() int
	Seek(pos int) error
	Valid() bool
	Next() bool
	Current() Token
	Type() Kind
	TypeAt(pos int) Kind
	TextAt(pos int) string
	SkipWhitespaces(skipDoc bool)
	SkipInsignificant(skipDoc bool)
	FindMatchingBracket() error
	Slice(start, end int) []Token
}

// Stream is the in-memory Cursor over one tokenized file.
type Stream struct {
	file   string
	tokens []Token
	pos    int
}

func NewStream(file string, tokens []Token) *Stream {
	return &Stream{file: file, tokens: tokens}
}

// Open tokenizes src and returns a stream positioned on the first token.
func Open(file string, src []byte) (*Stream, error) {
	tokens, err := NewLexer(src).Scan()
	if err != nil {
		return nil, fmt.Errorf("tokenize %s: %w", file, err)
	}
	return NewStream(file, tokens), nil
}

func (s *Stream) Filename() string { return s.file }
func (s *Stream) Key() int         { return s.pos }
func (s *Stream) Len() int         { return len(s.tokens) }
func (s *Stream) Valid() bool      { return s.pos >= 0 && s.pos < len(s.tokens) }

func (s *Stream) Seek(pos int) error {
	if pos < 0 || pos > len(s.tokens) {
		return fmt.Errorf("seek %d of %d: %w", pos, len(s.tokens), ErrOutOfRange)
	}
	s.pos = pos
	return nil
}

// Next advances one token and reports whether the cursor is still valid.
func (s *Stream) Next() bool {
	if s.pos < len(s.tokens) {
		s.pos++
	}
	return s.Valid()
}

func (s *Stream) Current() Token {
	if !s.Valid() {
		return Token{Kind: Invalid}
	}
	return s.tokens[s.pos]
}

func (s *Stream) Type() Kind {
	return s.TypeAt(s.pos)
}

// TypeAt peeks at an absolute position without moving the cursor.
func (s *Stream) TypeAt(pos int) Kind {
	if pos < 0 || pos >= len(s.tokens) {
		return Invalid
	}
	return s.tokens[pos].Kind
}

func (s *Stream) TextAt(pos int) string {
	if pos < 0 || pos >= len(s.tokens) {
		return ""
	}
	return s.tokens[pos].Text
}

// SkipWhitespaces moves past the current token and then past any
// whitespace and comments. Docblocks are skipped only when skipDoc is set.
func (s *Stream) SkipWhitespaces(skipDoc bool) {
	s.Next()
	s.SkipInsignificant(skipDoc)
}

// SkipInsignificant skips whitespace and comments starting at the current
// token.
func (s *Stream) SkipInsignificant(skipDoc bool) {
	for s.Valid() && s.tokens[s.pos].Kind.IsInsignificant(skipDoc) {
		s.pos++
	}
}

// FindMatchingBracket moves from an opening bracket to its closing pair.
func (s *Stream) FindMatchingBracket() error {
	open := s.Type()
	var closing Kind
	switch open {
	case LParen:
		closing = RParen
	case LBrace:
		closing = RBrace
	case LBracket:
		closing = RBracket
	default:
		return fmt.Errorf("%s at token %d: %w", open, s.pos, ErrNotBracket)
	}
	start := s.pos
	depth := 0
	for i := s.pos; i < len(s.tokens); i++ {
		switch s.tokens[i].Kind {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				s.pos = i
				return nil
			}
		}
	}
	return fmt.Errorf("%s at line %d: %w", open, s.tokens[start].Line, ErrUnmatchedBracket)
}

// Slice returns a copy of the tokens in [start, end].
func (s *Stream) Slice(start, end int) []Token {
	if start < 0 {
		start = 0
	}
	if end >= len(s.tokens) {
		end = len(s.tokens) - 1
	}
	if start > end {
		return nil
	}
	out := make([]Token, end-start+1)
	copy(out, s.tokens[start:end+1])
	return out
}

// Source concatenates the literal text of tokens.
func Source(tokens []Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.WriteString(t.Text)
	}
	return b.String()
}
