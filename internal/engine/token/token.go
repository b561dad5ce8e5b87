// Package token defines the PHP token model, the seekable token cursor the
// element parsers walk, and the lexer that produces token sequences.
package token

import "strings"

type Kind int

const (
	Invalid Kind = iota
	InlineHTML
	OpenTag
	OpenTagWithEcho
	CloseTag
	Whitespace
	Comment
	DocComment
	Variable
	Identifier
	NsSeparator
	NameQualified
	NameFullyQualified
	LNumber
	DNumber
	ConstantString
	EncapsedString
	Heredoc
	DoubleColon
	DoubleArrow
	Ellipsis
	ObjectOperator
	Operator
	Char

	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semicolon
	Comma
	Assign
	Ampersand
	Question
	Colon

	// magic constants
	LineC
	FileC
	DirC
	ClassC
	TraitC
	MethodC
	FuncC
	NsC

	// keywords
	Abstract
	Array
	As
	Callable
	Class
	Const
	Extends
	Final
	Fn
	Function
	Global
	HaltCompiler
	Implements
	Insteadof
	Interface
	Namespace
	New
	Private
	Protected
	Public
	Static
	Trait
	Use
	Var
)

var kindNames = map[Kind]string{
	Invalid:            "INVALID",
	InlineHTML:         "T_INLINE_HTML",
	OpenTag:            "T_OPEN_TAG",
	OpenTagWithEcho:    "T_OPEN_TAG_WITH_ECHO",
	CloseTag:           "T_CLOSE_TAG",
	Whitespace:         "T_WHITESPACE",
	Comment:            "T_COMMENT",
	DocComment:         "T_DOC_COMMENT",
	Variable:           "T_VARIABLE",
	Identifier:         "T_STRING",
	NsSeparator:        "T_NS_SEPARATOR",
	NameQualified:      "T_NAME_QUALIFIED",
	NameFullyQualified: "T_NAME_FULLY_QUALIFIED",
	LNumber:            "T_LNUMBER",
	DNumber:            "T_DNUMBER",
	ConstantString:     "T_CONSTANT_ENCAPSED_STRING",
	EncapsedString:     "T_ENCAPSED_STRING",
	Heredoc:            "T_HEREDOC",
	DoubleColon:        "T_DOUBLE_COLON",
	DoubleArrow:        "T_DOUBLE_ARROW",
	Ellipsis:           "T_ELLIPSIS",
	ObjectOperator:     "T_OBJECT_OPERATOR",
	Operator:           "T_OPERATOR",
	Char:               "T_CHAR",
	LParen:             "(",
	RParen:             ")",
	LBrace:             "{",
	RBrace:             "}",
	LBracket:           "[",
	RBracket:           "]",
	Semicolon:          ";",
	Comma:              ",",
	Assign:             "=",
	Ampersand:          "&",
	Question:           "?",
	Colon:              ":",
	LineC:              "T_LINE",
	FileC:              "T_FILE",
	DirC:               "T_DIR",
	ClassC:             "T_CLASS_C",
	TraitC:             "T_TRAIT_C",
	MethodC:            "T_METHOD_C",
	FuncC:              "T_FUNC_C",
	NsC:                "T_NS_C",
	Abstract:           "T_ABSTRACT",
	Array:              "T_ARRAY",
	As:                 "T_AS",
	Callable:           "T_CALLABLE",
	Class:              "T_CLASS",
	Const:              "T_CONST",
	Extends:            "T_EXTENDS",
	Final:              "T_FINAL",
	Fn:                 "T_FN",
	Function:           "T_FUNCTION",
	Global:             "T_GLOBAL",
	HaltCompiler:       "T_HALT_COMPILER",
	Implements:         "T_IMPLEMENTS",
	Insteadof:          "T_INSTEADOF",
	Interface:          "T_INTERFACE",
	Namespace:          "T_NAMESPACE",
	New:                "T_NEW",
	Private:            "T_PRIVATE",
	Protected:          "T_PROTECTED",
	Public:             "T_PUBLIC",
	Static:             "T_STATIC",
	Trait:              "T_TRAIT",
	Use:                "T_USE",
	Var:                "T_VAR",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

var keywords = map[string]Kind{
	"abstract":        Abstract,
	"array":           Array,
	"as":              As,
	"callable":        Callable,
	"class":           Class,
	"const":           Const,
	"extends":         Extends,
	"final":           Final,
	"fn":              Fn,
	"function":        Function,
	"global":          Global,
	"__halt_compiler": HaltCompiler,
	"implements":      Implements,
	"insteadof":       Insteadof,
	"interface":       Interface,
	"namespace":       Namespace,
	"new":             New,
	"private":         Private,
	"protected":       Protected,
	"public":          Public,
	"static":          Static,
	"trait":           Trait,
	"use":             Use,
	"var":             Var,
	"__line__":        LineC,
	"__file__":        FileC,
	"__dir__":         DirC,
	"__class__":       ClassC,
	"__trait__":       TraitC,
	"__method__":      MethodC,
	"__function__":    FuncC,
	"__namespace__":   NsC,
}

// Keyword returns the keyword kind of word, or Identifier.
func Keyword(word string) Kind {
	if k, ok := keywords[strings.ToLower(word)]; ok {
		return k
	}
	return Identifier
}

// IsKeyword reports whether k is a reserved word. Reserved words are still
// valid member names after "function", "->" and "::".
func (k Kind) IsKeyword() bool {
	return k >= Abstract && k <= Var
}

func (k Kind) IsMagicConstant() bool {
	return k >= LineC && k <= NsC
}

// IsInsignificant reports whether k only separates significant tokens.
func (k Kind) IsInsignificant(skipDoc bool) bool {
	return k == Whitespace || k == Comment || (skipDoc && k == DocComment)
}

// IsName reports whether k can be part of a class, function or constant name.
func (k Kind) IsName() bool {
	return k == Identifier || k == NsSeparator || k == NameQualified || k == NameFullyQualified
}

type Token struct {
	Kind Kind
	Text string
	Line int
}

func (t Token) String() string {
	return t.Kind.String() + " " + t.Text
}
