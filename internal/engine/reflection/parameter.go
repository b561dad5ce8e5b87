package reflection

import (
	"strings"

	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/token"
	"phpmodel/internal/engine/value"
)

// scalar hints are kept verbatim instead of being resolved as class names.
var scalarHints = map[string]bool{
	"array": true, "callable": true, "bool": true, "int": true, "float": true,
	"string": true, "iterable": true, "object": true, "mixed": true,
	"void": true, "null": true, "never": true, "false": true, "true": true,
}

// Parameter is one parameter of a function or method.
type Parameter struct {
	id        uint64
	reg       *Registry
	ctx       *names
	file      string
	line      int
	name      string
	position  int
	typeHint  string
	classHint string
	nullable  bool
	byRef     bool
	variadic  bool
	optional  bool
	promoted  bool
	tokens    []token.Token
	hasValue  bool
	function  string
	class     string
	owner     classScope
}

func (p *Parameter) Name() string      { return p.name }
func (p *Parameter) Position() int     { return p.position }
func (p *Parameter) FileName() string  { return p.file }
func (p *Parameter) StartLine() int    { return p.line }
func (p *Parameter) IsTokenized() bool { return true }

// TypeHint is the declared type as written, for example "?Foo" or
// "int|string".
func (p *Parameter) TypeHint() string { return p.typeHint }

// DeclaringFunctionName is the function FQN, or the method name.
func (p *Parameter) DeclaringFunctionName() string { return p.function }
func (p *Parameter) DeclaringClassName() string    { return p.class }

func (p *Parameter) PrettyName() string {
	if p.class != "" {
		return p.class + "::" + p.function + "($" + p.name + ")"
	}
	return p.function + "($" + p.name + ")"
}

// ClassName resolves a class type hint. self and parent resolve against
// the declaring class. Scalar, array, callable and union hints have no
// class name.
func (p *Parameter) ClassName() string {
	switch strings.ToLower(p.classHint) {
	case "self", "static":
		return p.owner.class
	case "parent":
		return p.owner.parent
	}
	return p.classHint
}

// Class returns the class-like of the type hint, or nil.
func (p *Parameter) Class() ClassLike {
	name := p.ClassName()
	if name == "" {
		return nil
	}
	return p.reg.Class(name)
}

func (p *Parameter) bareHint() string {
	return strings.ToLower(strings.TrimPrefix(p.typeHint, "?"))
}

func (p *Parameter) IsArray() bool    { return p.bareHint() == "array" }
func (p *Parameter) IsCallable() bool { return p.bareHint() == "callable" }

// AllowsNull is true without a hint, with a nullable hint or with a null
// default.
func (p *Parameter) AllowsNull() bool {
	if p.typeHint == "" || p.nullable || p.bareHint() == "mixed" {
		return true
	}
	return p.hasValue && strings.EqualFold(p.DefaultValueDefinition(), "null")
}

// IsOptional is true when this and every later parameter has a default
// or is variadic.
func (p *Parameter) IsOptional() bool          { return p.optional }
func (p *Parameter) IsVariadic() bool          { return p.variadic }
func (p *Parameter) IsPassedByReference() bool { return p.byRef }
func (p *Parameter) CanBePassedByValue() bool  { return !p.byRef }
func (p *Parameter) IsPromoted() bool          { return p.promoted }

func (p *Parameter) IsDefaultValueAvailable() bool { return p.hasValue }

func (p *Parameter) DefaultValueDefinition() string {
	return strings.TrimSpace(token.Source(p.tokens))
}

// DefaultValue evaluates the default value.
func (p *Parameter) DefaultValue() (any, error) {
	if !p.hasValue {
		return nil, errors.NewRuntime(errors.CodeDoesNotExist, p.PrettyName(), "parameter has no default value")
	}
	res := memoized(p.reg, p.id, FieldDefault, func() (evaluated, bool) {
		v, complete := value.Evaluate(p.tokens, p.scope(), p.reg.lookup())
		return evaluated{v: v, complete: complete}, complete
	})
	return res.v, nil
}

func (p *Parameter) scope() value.Scope {
	s := value.Scope{File: p.file, Line: p.line, Function: p.function}
	if p.ctx != nil {
		s.Namespace = p.ctx.namespace
		s.Aliases = p.ctx.aliases
		s.ConstAliases = p.ctx.constAliases
	}
	p.owner.apply(&s)
	if p.class != "" {
		s.Method = p.class + "::" + p.function
	}
	return s
}

func (p *Parameter) String() string { return "parameter " + p.PrettyName() }

// parameterHint splits a raw type hint into nullability and the class name
// it names, if any.
func parameterHint(raw string, ctx *names) (nullable bool, class string) {
	if raw == "" {
		return false, ""
	}
	nullable = strings.HasPrefix(raw, "?")
	bare := strings.TrimPrefix(raw, "?")
	if strings.ContainsAny(bare, "|&()") {
		for _, part := range strings.FieldsFunc(bare, func(r rune) bool { return r == '|' || r == '&' || r == '(' || r == ')' }) {
			if strings.EqualFold(part, "null") {
				nullable = true
			}
		}
		return nullable, ""
	}
	switch lower := strings.ToLower(bare); {
	case scalarHints[lower]:
		return nullable || lower == "null", ""
	case lower == "self" || lower == "static" || lower == "parent":
		return nullable, lower
	}
	return nullable, ctx.resolveClass(bare)
}
