package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func significant(tokens []Token) []Token {
	var out []Token
	for _, tok := range tokens {
		if tok.Kind.IsInsignificant(false) || tok.Kind == OpenTag {
			continue
		}
		out = append(out, tok)
	}
	return out
}

func TestLexerKinds(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		kinds []Kind
	}{
		{
			name:  "namespace declaration",
			src:   `<?php namespace App\Mod;`,
			kinds: []Kind{Namespace, Identifier, NsSeparator, Identifier, Semicolon},
		},
		{
			name:  "class header",
			src:   `<?php abstract class Foo extends \Bar implements Baz {}`,
			kinds: []Kind{Abstract, Class, Identifier, Extends, NsSeparator, Identifier, Implements, Identifier, LBrace, RBrace},
		},
		{
			name:  "constant expression",
			src:   `<?php const A = self::B . 'x' . 0x1F . 1.5e3;`,
			kinds: []Kind{Const, Identifier, Assign, Identifier, DoubleColon, Identifier, Char, ConstantString, Char, LNumber, Char, DNumber, Semicolon},
		},
		{
			name:  "keywords after object operator are names",
			src:   `<?php $a->class; Foo::list(); Foo::class;`,
			kinds: []Kind{Variable, ObjectOperator, Identifier, Semicolon, Identifier, DoubleColon, Identifier, LParen, RParen, Semicolon, Identifier, DoubleColon, Class, Semicolon},
		},
		{
			name:  "magic constants",
			src:   `<?php __LINE__ . __CLASS__ . __namespace__;`,
			kinds: []Kind{LineC, Char, ClassC, Char, NsC, Semicolon},
		},
		{
			name:  "interpolated string",
			src:   `<?php "a $b" . "plain";`,
			kinds: []Kind{EncapsedString, Char, ConstantString, Semicolon},
		},
		{
			name:  "variadic by reference parameter",
			src:   `<?php function f(array &...$x) {}`,
			kinds: []Kind{Function, Identifier, LParen, Array, Ampersand, Ellipsis, Variable, RParen, LBrace, RBrace},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := NewLexer([]byte(tt.src)).Scan()
			require.NoError(t, err)
			var got []Kind
			for _, tok := range significant(tokens) {
				got = append(got, tok.Kind)
			}
			assert.Equal(t, tt.kinds, got)
		})
	}
}

func TestLexerCommentsAndDocblocks(t *testing.T) {
	src := "<?php\n/** Doc. */\n/**#@+\n * @var int\n */\n/**#@-*/\n// line\n# hash\n/* block */\n"
	tokens, err := NewLexer([]byte(src)).Scan()
	require.NoError(t, err)

	var kinds []Kind
	for _, tok := range tokens {
		if tok.Kind != Whitespace {
			kinds = append(kinds, tok.Kind)
		}
	}
	assert.Equal(t, []Kind{OpenTag, DocComment, Comment, Comment, Comment, Comment, Comment}, kinds)
}

func TestLexerLines(t *testing.T) {
	src := "<?php\n\nclass A\n{\n    public $x = <<<EOT\nline\nEOT;\n}\n"
	tokens, err := NewLexer([]byte(src)).Scan()
	require.NoError(t, err)

	lines := map[string]int{}
	for _, tok := range tokens {
		if tok.Kind != Whitespace {
			lines[tok.Text] = tok.Line
		}
	}
	assert.Equal(t, 3, lines["class"])
	assert.Equal(t, 5, lines["$x"])
	assert.Equal(t, 8, lines["}"])
	assert.Equal(t, 5, lines["<<<EOT\nline\nEOT"])
}

func TestLexerInlineHTML(t *testing.T) {
	tokens, err := NewLexer([]byte("<html><?php echo 1; ?>\n</html><?= 2 ?>")).Scan()
	require.NoError(t, err)
	require.NotEmpty(t, tokens)
	assert.Equal(t, InlineHTML, tokens[0].Kind)
	assert.Equal(t, OpenTag, tokens[1].Kind)

	var closeTags, echoTags int
	for _, tok := range tokens {
		switch tok.Kind {
		case CloseTag:
			closeTags++
		case OpenTagWithEcho:
			echoTags++
		}
	}
	assert.Equal(t, 2, closeTags)
	assert.Equal(t, 1, echoTags)
}

func TestLexerHaltCompiler(t *testing.T) {
	tokens, err := NewLexer([]byte("<?php __halt_compiler(); class Nope {}")).Scan()
	require.NoError(t, err)
	last := tokens[len(tokens)-1]
	assert.Equal(t, InlineHTML, last.Kind)
	assert.Equal(t, " class Nope {}", last.Text)
}

func TestLexerErrors(t *testing.T) {
	for _, src := range []string{"<?php 'open", "<?php \"open", "<?php <<<EOT\nnever closed\n"} {
		_, err := NewLexer([]byte(src)).Scan()
		assert.Error(t, err, src)
	}
}

func TestStreamNavigation(t *testing.T) {
	s, err := Open("a.php", []byte("<?php function f($a = array(1, (2)), $b) { if (1) { return; } } ;"))
	require.NoError(t, err)
	assert.Equal(t, "a.php", s.Filename())

	s.SkipWhitespaces(true)
	require.Equal(t, Function, s.Type())

	for s.Type() != LParen {
		s.Next()
	}
	open := s.Key()
	require.NoError(t, s.FindMatchingBracket())
	assert.Equal(t, RParen, s.Type())
	assert.Equal(t, "($a = array(1, (2)), $b)", Source(s.Slice(open, s.Key())))

	s.SkipWhitespaces(true)
	require.Equal(t, LBrace, s.Type())
	require.NoError(t, s.FindMatchingBracket())
	s.SkipWhitespaces(true)
	assert.Equal(t, Semicolon, s.Type())

	assert.ErrorIs(t, s.FindMatchingBracket(), ErrNotBracket)
	assert.ErrorIs(t, s.Seek(-1), ErrOutOfRange)
	assert.Equal(t, Invalid, s.TypeAt(s.Len()))
}

func TestStreamUnmatchedBracket(t *testing.T) {
	s, err := Open("b.php", []byte("<?php { { }"))
	require.NoError(t, err)
	s.SkipWhitespaces(true)
	assert.ErrorIs(t, s.FindMatchingBracket(), ErrUnmatchedBracket)
}
