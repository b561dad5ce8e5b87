package reflection

import (
	"strings"

	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/annotation"
	"phpmodel/internal/engine/token"
	"phpmodel/internal/engine/value"
)

// Property is a property declared in a class-like or imported from a
// trait.
type Property struct {
	base
	class      string
	trait      string
	owner      classScope
	modifiers  int
	typeHint   string
	tokens     []token.Token
	accessible bool
}

func (p *Property) Name() string               { return p.name }
func (p *Property) DeclaringClassName() string { return p.class }
func (p *Property) DeclaringClass() ClassLike  { return p.reg.Class(p.class) }
func (p *Property) DeclaringTraitName() string { return p.trait }
func (p *Property) PrettyName() string         { return p.class + "::$" + p.name }
func (p *Property) Modifiers() int             { return p.modifiers }
func (p *Property) TypeHint() string           { return p.typeHint }

func (p *Property) DeclaringTrait() ClassLike {
	if p.trait == "" {
		return nil
	}
	return p.reg.Class(p.trait)
}

func (p *Property) IsPublic() bool    { return p.modifiers&ModPublic != 0 }
func (p *Property) IsProtected() bool { return p.modifiers&ModProtected != 0 }
func (p *Property) IsPrivate() bool   { return p.modifiers&ModPrivate != 0 }
func (p *Property) IsStatic() bool    { return p.modifiers&ModStatic != 0 }
func (p *Property) IsReadonly() bool  { return p.modifiers&ModReadonly != 0 }

// IsDefault is true for every declared property.
func (p *Property) IsDefault() bool { return true }

func (p *Property) alias(into, trait *Class) *Property {
	a := *p
	a.id = nextID()
	a.reg = into.reg
	a.class = into.name
	a.trait = trait.name
	a.owner = classScope{class: into.name, parent: into.parent, trait: trait.name}
	return &a
}

func (p *Property) scope() value.Scope {
	s := p.base.scope()
	p.owner.apply(&s)
	return s
}

// DefaultValueDefinition is the source text of the default, or "".
func (p *Property) DefaultValueDefinition() string {
	return strings.TrimSpace(token.Source(p.tokens))
}

// DefaultValue evaluates the default. A property without one defaults
// to null.
func (p *Property) DefaultValue() any {
	if len(p.tokens) == 0 {
		return nil
	}
	type result struct{ v any }
	return memoized(p.reg, p.id, FieldDefault, func() (result, bool) {
		v, complete := value.Evaluate(p.tokens, p.scope(), p.reg.lookup())
		return result{v: v}, complete
	}).v
}

func (p *Property) SetAccessible(accessible bool) { p.accessible = accessible }

func (p *Property) IsAccessible() bool { return p.accessible || p.IsPublic() }

// StaticValue returns the value of a static property, which for code that
// never runs is its default.
func (p *Property) StaticValue() (any, error) {
	if !p.IsStatic() {
		return nil, errors.NewRuntime(errors.CodeInvalidArgument, p.PrettyName(), "property is not static")
	}
	if !p.IsAccessible() {
		return nil, errors.NewRuntime(errors.CodeNotAccessible, p.PrettyName(),
			"property is not public and was not made accessible")
	}
	return p.DefaultValue(), nil
}

// Annotations returns the docblock with templates, @copydoc and the parent
// property's annotations applied.
func (p *Property) Annotations() *annotation.Set {
	return memoized(p.reg, p.id, FieldAnnotations, func() (*annotation.Set, bool) {
		if !p.reg.enter(p.id, FieldAnnotations) {
			return p.ownAnnotations(), false
		}
		defer p.reg.leave(p.id, FieldAnnotations)

		own := p.reg.copyDoc(p.ownAnnotations(), p.ctx)
		class := p.reg.liveClass(p.class)
		if class == nil {
			return own, false
		}
		var ancestors []*annotation.Set
		if parent := p.reg.liveClass(class.parent); parent != nil {
			if pp, err := parent.Property(p.name); err == nil {
				ancestors = append(ancestors, pp.Annotations())
			}
		}
		return annotation.Inherit(own, annotation.Inheritance{
			Target:     annotation.TargetProperty,
			Documented: p.doc != "",
			Ancestors:  ancestors,
		}), class.IsComplete()
	}).Clone()
}

func (p *Property) ShortDescription() string { return p.Annotations().ShortDescription() }
func (p *Property) LongDescription() string  { return p.Annotations().LongDescription() }
func (p *Property) IsDeprecated() bool       { return p.Annotations().Deprecated() }

func (p *Property) String() string { return "property " + p.PrettyName() }
