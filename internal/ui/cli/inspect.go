package cli

import (
	"fmt"
	"strings"

	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/reflection"
)

// resolveElement finds the element a PHP-style symbol names.
func resolveElement(reg *reflection.Registry, symbol string) (any, error) {
	name := strings.TrimPrefix(strings.TrimSpace(symbol), `\`)
	if name == "" {
		return nil, errors.NewRuntime(errors.CodeInvalidArgument, symbol, "empty symbol")
	}

	if className, member, ok := strings.Cut(name, "::"); ok {
		if !reg.HasClass(className) {
			return nil, errors.NewRuntime(errors.CodeDoesNotExist, className, "class does not exist")
		}
		c, ok := reg.Class(className).(*reflection.Class)
		if !ok {
			return reg.Class(className), nil
		}
		switch {
		case strings.HasPrefix(member, "$"):
			return c.Property(member)
		case strings.HasSuffix(member, "()"):
			return c.Method(strings.TrimSuffix(member, "()"))
		default:
			return c.Constant(member)
		}
	}

	if fn, ok := strings.CutSuffix(name, "()"); ok {
		if !reg.HasFunction(fn) {
			return nil, errors.NewRuntime(errors.CodeDoesNotExist, fn, "function does not exist")
		}
		return reg.Function(fn), nil
	}

	switch {
	case reg.HasClass(name):
		return reg.Class(name), nil
	case reg.HasFunction(name):
		return reg.Function(name), nil
	case reg.HasConstant(name):
		return reg.Constant(name), nil
	}
	return nil, errors.NewRuntime(errors.CodeDoesNotExist, name, "no class, function or constant with this name")
}

type fieldValue struct {
	Name  string
	Value any
}

// inspectFields reads one named field, or every field that applies to the
// element.
func inspectFields(element any, only string) ([]fieldValue, error) {
	if only != "" {
		f, err := reflection.ParseField(only)
		if err != nil {
			return nil, err
		}
		v, err := reflection.Lookup(element, f)
		if err != nil {
			return nil, err
		}
		return []fieldValue{{Name: f.String(), Value: v}}, nil
	}

	var out []fieldValue
	for _, f := range reflection.Fields() {
		v, err := reflection.Lookup(element, f)
		if errors.IsCode(err, errors.CodeUnsupported) {
			continue
		}
		if err != nil {
			// composition failures surface per field; keep the rest
			v = fmt.Sprintf("error: %v", err)
		}
		out = append(out, fieldValue{Name: f.String(), Value: v})
	}
	return out, nil
}
