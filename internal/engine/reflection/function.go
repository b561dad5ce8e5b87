package reflection

import (
	"fmt"
	"strings"

	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/annotation"
	"phpmodel/internal/engine/resolver"
	"phpmodel/internal/engine/token"
	"phpmodel/internal/engine/value"
)

type staticVar struct {
	name   string
	tokens []token.Token
}

// functionBase is shared by functions and methods.
type functionBase struct {
	base
	params     []*Parameter
	byRef      bool
	returnType string
	statics    []staticVar
}

func (f *functionBase) Parameters() []*Parameter {
	return append([]*Parameter(nil), f.params...)
}

// Parameter finds a parameter by name, with or without the leading $.
func (f *functionBase) Parameter(name string) (*Parameter, error) {
	name = strings.TrimPrefix(name, "$")
	for _, p := range f.params {
		if p.name == name {
			return p, nil
		}
	}
	return nil, errors.NewRuntime(errors.CodeDoesNotExist, f.name,
		fmt.Sprintf("parameter $%s does not exist", name))
}

// ParameterAt finds a parameter by position.
func (f *functionBase) ParameterAt(position int) (*Parameter, error) {
	if position < 0 || position >= len(f.params) {
		return nil, errors.NewRuntime(errors.CodeDoesNotExist, f.name,
			fmt.Sprintf("there is no parameter at position %d", position))
	}
	return f.params[position], nil
}

func (f *functionBase) NumberOfParameters() int { return len(f.params) }

func (f *functionBase) NumberOfRequiredParameters() int {
	n := 0
	for _, p := range f.params {
		if !p.optional {
			n++
		}
	}
	return n
}

func (f *functionBase) ReturnsReference() bool { return f.byRef }
func (f *functionBase) ReturnType() string     { return f.returnType }

func (f *functionBase) IsVariadic() bool {
	for _, p := range f.params {
		if p.variadic {
			return true
		}
	}
	return false
}

func (f *functionBase) staticValues(scope value.Scope) map[string]any {
	out := make(map[string]any, len(f.statics))
	for _, s := range f.statics {
		if len(s.tokens) == 0 {
			out[s.name] = nil
			continue
		}
		v, _ := value.Evaluate(s.tokens, scope, f.reg.lookup())
		out[s.name] = v
	}
	return out
}

// Function is a top-level function.
type Function struct {
	functionBase
}

func (fn *Function) attach(r *Registry) {
	fn.reg = r
	for _, p := range fn.params {
		p.reg = r
	}
}

func (fn *Function) Name() string { return fn.name }

func (fn *Function) ShortName() string {
	_, short := resolver.Split(fn.name)
	return short
}

func (fn *Function) NamespaceName() string { return fn.namespace() }
func (fn *Function) IsClosure() bool       { return false }
func (fn *Function) PrettyName() string    { return fn.name + "()" }

func (fn *Function) scope() value.Scope {
	s := fn.base.scope()
	s.Function = fn.name
	return s
}

// StaticVariables evaluates the static variables declared in the body.
func (fn *Function) StaticVariables() map[string]any {
	return fn.staticValues(fn.scope())
}

// Annotations returns the docblock with templates and @copydoc applied.
// Functions have no ancestors to inherit from.
func (fn *Function) Annotations() *annotation.Set {
	if !fn.reg.enter(fn.id, FieldAnnotations) {
		return fn.ownAnnotations()
	}
	defer fn.reg.leave(fn.id, FieldAnnotations)
	return fn.reg.copyDoc(fn.ownAnnotations(), fn.ctx)
}

func (fn *Function) ShortDescription() string { return fn.Annotations().ShortDescription() }
func (fn *Function) LongDescription() string  { return fn.Annotations().LongDescription() }
func (fn *Function) IsDeprecated() bool       { return fn.Annotations().Deprecated() }

// Invoke always fails: analyzed code is never executed.
func (fn *Function) Invoke(args ...any) (any, error) {
	return nil, errors.NewRuntime(errors.CodeUnsupported, fn.PrettyName(),
		"functions parsed from source cannot be invoked")
}

func (fn *Function) String() string { return "function " + fn.PrettyName() }
