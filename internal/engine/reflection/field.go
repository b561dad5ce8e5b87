package reflection

import (
	"fmt"
	"strings"

	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/value"
)

// Field names one queryable attribute of an element. It doubles as the
// memo-table key for lazily computed attributes.
type Field int

const (
	FieldName Field = iota
	FieldShortName
	FieldNamespace
	FieldFile
	FieldStartLine
	FieldEndLine
	FieldDocComment
	FieldKind
	FieldComplete
	FieldValid
	FieldModifiers
	FieldParent
	FieldInterfaces
	FieldTraits
	FieldMethods
	FieldProperties
	FieldConstants
	FieldParameters
	FieldValue
	FieldDefault
	FieldAnnotations
	FieldPrototype
	FieldDeclaringClass
	FieldDeclaringTrait
	FieldTypeHint
	FieldReturnType
)

var fieldNames = map[Field]string{
	FieldName:           "name",
	FieldShortName:      "short_name",
	FieldNamespace:      "namespace",
	FieldFile:           "file",
	FieldStartLine:      "start_line",
	FieldEndLine:        "end_line",
	FieldDocComment:     "doc_comment",
	FieldKind:           "kind",
	FieldComplete:       "complete",
	FieldValid:          "valid",
	FieldModifiers:      "modifiers",
	FieldParent:         "parent",
	FieldInterfaces:     "interfaces",
	FieldTraits:         "traits",
	FieldMethods:        "methods",
	FieldProperties:     "properties",
	FieldConstants:      "constants",
	FieldParameters:     "parameters",
	FieldValue:          "value",
	FieldDefault:        "default",
	FieldAnnotations:    "annotations",
	FieldPrototype:      "prototype",
	FieldDeclaringClass: "declaring_class",
	FieldDeclaringTrait: "declaring_trait",
	FieldTypeHint:       "type_hint",
	FieldReturnType:     "return_type",
}

func (f Field) String() string {
	if name, ok := fieldNames[f]; ok {
		return name
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// Fields lists every field in declaration order.
func Fields() []Field {
	out := make([]Field, 0, len(fieldNames))
	for f := FieldName; f <= FieldReturnType; f++ {
		out = append(out, f)
	}
	return out
}

// ParseField maps a field name such as "short_name" or "shortName" to its
// Field.
func ParseField(name string) (Field, error) {
	norm := strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(name, "_", ""), "-", ""))
	for f, n := range fieldNames {
		if strings.ReplaceAll(n, "_", "") == norm {
			return f, nil
		}
	}
	return 0, errors.NewRuntime(errors.CodeInvalidArgument, name, "unknown field")
}

// Lookup reads one field of an element. Lists of members are returned as
// their names. A field that does not apply to the element kind is an
// UNSUPPORTED RuntimeError.
func Lookup(element any, f Field) (any, error) {
	switch e := element.(type) {
	case *Class:
		return classField(e, f)
	case *Placeholder:
		return placeholderField(e, f)
	case *Method:
		return methodField(e, f)
	case *Function:
		return functionField(e, f)
	case *Property:
		return propertyField(e, f)
	case *Constant:
		return constantField(e, f)
	case *Parameter:
		return parameterField(e, f)
	case nil:
		return nil, errors.NewRuntime(errors.CodeInvalidArgument, "", "nil element")
	}
	return nil, errors.NewRuntime(errors.CodeInvalidArgument, fmt.Sprintf("%T", element), "not an element")
}

func unsupported(element string, f Field) error {
	return errors.NewRuntime(errors.CodeUnsupported, element, fmt.Sprintf("field %s does not apply", f))
}

// exportValue turns evaluated values into plain Go data.
func exportValue(v any) any {
	if value.IsNotResolved(v) {
		return fmt.Sprint(v)
	}
	return value.Native(v)
}

func classField(c *Class, f Field) (any, error) {
	switch f {
	case FieldName:
		return c.Name(), nil
	case FieldShortName:
		return c.ShortName(), nil
	case FieldNamespace:
		return c.NamespaceName(), nil
	case FieldFile:
		return c.FileName(), nil
	case FieldStartLine:
		return c.StartLine(), nil
	case FieldEndLine:
		return c.EndLine(), nil
	case FieldDocComment:
		return c.DocComment(), nil
	case FieldKind:
		return c.Kind().String(), nil
	case FieldComplete:
		return c.IsComplete(), nil
	case FieldValid:
		return c.IsValid(), nil
	case FieldModifiers:
		return c.Modifiers(), nil
	case FieldParent:
		return c.ParentClassName(), nil
	case FieldInterfaces:
		return c.InterfaceNames(), nil
	case FieldTraits:
		return c.TraitNames(), nil
	case FieldMethods:
		methods, err := c.Methods()
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(methods))
		for _, m := range methods {
			out = append(out, m.Name())
		}
		return out, nil
	case FieldProperties:
		props := c.Properties()
		out := make([]string, 0, len(props))
		for _, p := range props {
			out = append(out, p.Name())
		}
		return out, nil
	case FieldConstants:
		consts := c.Constants()
		out := make(map[string]any, len(consts))
		for _, k := range consts {
			out[k.Name()] = exportValue(k.Value())
		}
		return out, nil
	case FieldAnnotations:
		return c.Annotations().All(), nil
	case FieldParameters, FieldValue, FieldDefault, FieldPrototype,
		FieldDeclaringClass, FieldDeclaringTrait, FieldTypeHint, FieldReturnType:
		return nil, unsupported(c.Name(), f)
	}
	return nil, unsupported(c.Name(), f)
}

func placeholderField(p *Placeholder, f Field) (any, error) {
	switch f {
	case FieldName:
		return p.Name(), nil
	case FieldShortName:
		return p.ShortName(), nil
	case FieldNamespace:
		return p.NamespaceName(), nil
	case FieldFile:
		return p.FirstFile(), nil
	case FieldKind:
		return p.State().String() + " " + p.Kind().String(), nil
	case FieldComplete, FieldValid:
		return false, nil
	case FieldValue:
		return exportValue(p.Value()), nil
	}
	return nil, unsupported(p.Name(), f)
}

func parameterNames(params []*Parameter) []string {
	out := make([]string, 0, len(params))
	for _, p := range params {
		out = append(out, "$"+p.Name())
	}
	return out
}

func methodField(m *Method, f Field) (any, error) {
	switch f {
	case FieldName, FieldShortName:
		return m.Name(), nil
	case FieldNamespace:
		return m.NamespaceName(), nil
	case FieldFile:
		return m.FileName(), nil
	case FieldStartLine:
		return m.StartLine(), nil
	case FieldEndLine:
		return m.EndLine(), nil
	case FieldDocComment:
		return m.DocComment(), nil
	case FieldKind:
		return "method", nil
	case FieldModifiers:
		return m.Modifiers(), nil
	case FieldParameters:
		return parameterNames(m.params), nil
	case FieldAnnotations:
		return m.Annotations().All(), nil
	case FieldPrototype:
		proto, err := m.Prototype()
		if err != nil {
			return nil, err
		}
		return proto.PrettyName(), nil
	case FieldDeclaringClass:
		return m.DeclaringClassName(), nil
	case FieldDeclaringTrait:
		return m.DeclaringTraitName(), nil
	case FieldReturnType:
		return m.ReturnType(), nil
	}
	return nil, unsupported(m.PrettyName(), f)
}

func functionField(fn *Function, f Field) (any, error) {
	switch f {
	case FieldName:
		return fn.Name(), nil
	case FieldShortName:
		return fn.ShortName(), nil
	case FieldNamespace:
		return fn.NamespaceName(), nil
	case FieldFile:
		return fn.FileName(), nil
	case FieldStartLine:
		return fn.StartLine(), nil
	case FieldEndLine:
		return fn.EndLine(), nil
	case FieldDocComment:
		return fn.DocComment(), nil
	case FieldKind:
		return "function", nil
	case FieldParameters:
		return parameterNames(fn.params), nil
	case FieldAnnotations:
		return fn.Annotations().All(), nil
	case FieldReturnType:
		return fn.ReturnType(), nil
	}
	return nil, unsupported(fn.PrettyName(), f)
}

func propertyField(p *Property, f Field) (any, error) {
	switch f {
	case FieldName, FieldShortName:
		return p.Name(), nil
	case FieldNamespace:
		return p.namespace(), nil
	case FieldFile:
		return p.FileName(), nil
	case FieldStartLine:
		return p.StartLine(), nil
	case FieldEndLine:
		return p.EndLine(), nil
	case FieldDocComment:
		return p.DocComment(), nil
	case FieldKind:
		return "property", nil
	case FieldModifiers:
		return p.Modifiers(), nil
	case FieldDefault, FieldValue:
		return exportValue(p.DefaultValue()), nil
	case FieldAnnotations:
		return p.Annotations().All(), nil
	case FieldDeclaringClass:
		return p.DeclaringClassName(), nil
	case FieldDeclaringTrait:
		return p.DeclaringTraitName(), nil
	case FieldTypeHint:
		return p.TypeHint(), nil
	}
	return nil, unsupported(p.PrettyName(), f)
}

func constantField(k *Constant, f Field) (any, error) {
	switch f {
	case FieldName:
		return k.Name(), nil
	case FieldShortName:
		return k.ShortName(), nil
	case FieldNamespace:
		return k.NamespaceName(), nil
	case FieldFile:
		return k.FileName(), nil
	case FieldStartLine:
		return k.StartLine(), nil
	case FieldEndLine:
		return k.EndLine(), nil
	case FieldDocComment:
		return k.DocComment(), nil
	case FieldKind:
		return "constant", nil
	case FieldModifiers:
		return k.Modifiers(), nil
	case FieldValue, FieldDefault:
		return exportValue(k.Value()), nil
	case FieldAnnotations:
		return k.Annotations().All(), nil
	case FieldDeclaringClass:
		return k.DeclaringClassName(), nil
	}
	return nil, unsupported(k.PrettyName(), f)
}

func parameterField(p *Parameter, f Field) (any, error) {
	switch f {
	case FieldName, FieldShortName:
		return p.Name(), nil
	case FieldFile:
		return p.FileName(), nil
	case FieldStartLine:
		return p.StartLine(), nil
	case FieldKind:
		return "parameter", nil
	case FieldDefault, FieldValue:
		v, err := p.DefaultValue()
		if err != nil {
			return nil, err
		}
		return exportValue(v), nil
	case FieldDeclaringClass:
		return p.DeclaringClassName(), nil
	case FieldTypeHint:
		return p.TypeHint(), nil
	}
	return nil, unsupported(p.PrettyName(), f)
}
