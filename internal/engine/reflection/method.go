package reflection

import (
	"strings"

	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/annotation"
	"phpmodel/internal/engine/value"
)

// Method is a method declared in a class-like, or imported into one from
// a trait. Imported methods are copies whose declaring class is the
// importing class.
type Method struct {
	functionBase
	class             string
	trait             string
	owner             classScope
	modifiers         int
	originalName      string
	originalModifiers int
	accessible        bool
}

func (m *Method) attach(r *Registry) {
	m.reg = r
	for _, p := range m.params {
		p.reg = r
	}
}

func (m *Method) Name() string      { return m.name }
func (m *Method) ShortName() string { return m.name }

// DeclaringClassName is the class the method belongs to. For a trait
// method it is the importing class.
func (m *Method) DeclaringClassName() string { return m.class }

func (m *Method) DeclaringClass() ClassLike { return m.reg.Class(m.class) }

// DeclaringTraitName is the trait the method was imported from, or "".
func (m *Method) DeclaringTraitName() string { return m.trait }

func (m *Method) DeclaringTrait() ClassLike {
	if m.trait == "" {
		return nil
	}
	return m.reg.Class(m.trait)
}

// OriginalName is the name in the trait when an alias renamed the method.
func (m *Method) OriginalName() string { return m.originalName }

// OriginalModifiers are the trait modifiers when an alias changed the
// visibility.
func (m *Method) OriginalModifiers() int { return m.originalModifiers }

func (m *Method) PrettyName() string { return m.class + "::" + m.name + "()" }

func (m *Method) NamespaceName() string { return m.namespace() }

// alias copies a trait method into the importing class.
func (m *Method) alias(into, trait *Class, name string, access int) *Method {
	a := *m
	a.id = nextID()
	a.reg = into.reg
	a.class = into.name
	a.trait = trait.name
	a.owner = classScope{class: into.name, parent: into.parent, trait: trait.name}
	if name != m.name {
		a.originalName = m.name
		a.name = name
	}
	if access != 0 && access != m.modifiers&visibilityMask {
		a.originalModifiers = m.modifiers
		a.modifiers = m.modifiers&^visibilityMask | access
	}
	a.params = make([]*Parameter, len(m.params))
	for i, p := range m.params {
		cp := *p
		cp.id = nextID()
		cp.reg = into.reg
		cp.function = a.name
		cp.class = into.name
		cp.owner = a.owner
		a.params[i] = &cp
	}
	return &a
}

func (m *Method) IsPublic() bool    { return m.modifiers&ModPublic != 0 }
func (m *Method) IsProtected() bool { return m.modifiers&ModProtected != 0 }
func (m *Method) IsPrivate() bool   { return m.modifiers&ModPrivate != 0 }
func (m *Method) IsStatic() bool    { return m.modifiers&ModStatic != 0 }
func (m *Method) IsAbstract() bool  { return m.modifiers&ModAbstract != 0 }
func (m *Method) IsFinal() bool     { return m.modifiers&ModFinal != 0 }

func (m *Method) IsConstructor() bool { return m.Modifiers()&ModConstructor != 0 }
func (m *Method) IsDestructor() bool  { return m.Modifiers()&ModDestructor != 0 }

// declaredModifiers adds the flags that follow from the name alone.
func (m *Method) declaredModifiers(class *Class) int {
	mods := m.modifiers
	switch strings.ToLower(m.name) {
	case "__construct":
		mods |= ModConstructor
	case "__destruct":
		mods |= ModDestructor
	case "__clone":
		mods |= ModClone
	default:
		if class != nil && class.kind == KindClass && !class.InNamespace() &&
			strings.EqualFold(m.name, class.ShortName()) && !class.HasOwnMethod("__construct") {
			mods |= ModConstructor
		}
	}
	return mods
}

// Modifiers returns the declared modifiers plus the flags derived from
// the nearest ancestor method: implemented-abstract and access-changed.
func (m *Method) Modifiers() int {
	return memoized(m.reg, m.id, FieldModifiers, func() (int, bool) {
		class := m.reg.liveClass(m.class)
		mods := m.declaredModifiers(class)
		if class == nil {
			return mods, false
		}
		complete := class.IsComplete()

		if parent := m.reg.liveClass(class.parent); parent != nil {
			if pm, err := parent.Method(m.name); err == nil {
				pmods := pm.Modifiers()
				if pmods&ModAccessChanged == 0 && widens(mods, pmods) {
					mods |= ModAccessChanged
				}
				if pmods&ModAbstract != 0 && mods&ModAbstract == 0 {
					mods |= ModImplementsAbstract
				}
				return mods, complete
			}
		}
		if mods&ModAbstract == 0 {
			for _, name := range class.InterfaceNames() {
				if iface := m.reg.liveClass(name); iface != nil && iface.HasOwnMethod(m.name) {
					mods |= ModImplementsAbstract
					break
				}
			}
		}
		return mods, complete
	})
}

// widens reports whether visibility a is wider than visibility b.
func widens(a, b int) bool {
	return (a&ModPublic != 0 && b&ModPublic == 0) || (a&ModProtected != 0 && b&ModPrivate != 0)
}

type prototype struct {
	method *Method
	err    error
}

// Prototype returns the nearest ancestor or interface declaration this
// method overrides. When nothing matches and the class is not complete
// yet, the error wraps errors.ErrNotYetKnown and a later call may succeed.
func (m *Method) Prototype() (*Method, error) {
	res := memoized(m.reg, m.id, FieldPrototype, func() (prototype, bool) {
		return m.findPrototype(map[uint64]bool{m.id: true})
	})
	return res.method, res.err
}

func (m *Method) findPrototype(seen map[uint64]bool) (prototype, bool) {
	class := m.reg.liveClass(m.class)
	if class == nil {
		return prototype{err: m.notYetKnown()}, false
	}
	complete := class.IsComplete()

	if parent := m.reg.liveClass(class.parent); parent != nil {
		if pm, err := parent.Method(m.name); err == nil && !pm.IsPrivate() && !seen[pm.id] {
			seen[pm.id] = true
			if res, _ := pm.findPrototype(seen); res.err == nil {
				return res, complete
			}
			return prototype{method: pm}, complete
		}
	}
	for _, name := range class.interfaces {
		if iface := m.reg.liveClass(name); iface != nil {
			if im, err := iface.Method(m.name); err == nil {
				return prototype{method: im}, complete
			}
		}
	}
	if complete {
		return prototype{err: errors.NewRuntime(errors.CodeDoesNotExist, m.PrettyName(), "method has no prototype")}, true
	}
	return prototype{err: m.notYetKnown()}, false
}

func (m *Method) notYetKnown() error {
	return errors.NewRuntime(errors.CodeDoesNotExist, m.PrettyName(),
		"prototype depends on classes that are not registered yet").Wrapping(errors.ErrNotYetKnown)
}

func (m *Method) scope() value.Scope {
	s := m.base.scope()
	m.owner.apply(&s)
	s.Function = m.name
	s.Method = m.class + "::" + m.name
	return s
}

func (m *Method) StaticVariables() map[string]any {
	return m.staticValues(m.scope())
}

// Annotations returns the docblock with templates, @copydoc and ancestor
// inheritance applied. Ancestors are the same method in the parent class,
// then in each declared interface.
func (m *Method) Annotations() *annotation.Set {
	return memoized(m.reg, m.id, FieldAnnotations, func() (*annotation.Set, bool) {
		if !m.reg.enter(m.id, FieldAnnotations) {
			return m.ownAnnotations(), false
		}
		defer m.reg.leave(m.id, FieldAnnotations)

		own := m.reg.copyDoc(m.ownAnnotations(), m.ctx)
		class := m.reg.liveClass(m.class)
		if class == nil {
			return own, false
		}
		var ancestors []*annotation.Set
		if parent := m.reg.liveClass(class.parent); parent != nil {
			if pm, err := parent.Method(m.name); err == nil {
				ancestors = append(ancestors, pm.Annotations())
			}
		}
		for _, name := range class.interfaces {
			if iface := m.reg.liveClass(name); iface != nil {
				if im, err := iface.Method(m.name); err == nil {
					ancestors = append(ancestors, im.Annotations())
				}
			}
		}
		return annotation.Inherit(own, annotation.Inheritance{
			Target:     annotation.TargetMethod,
			Documented: m.doc != "",
			Params:     len(m.params),
			Ancestors:  ancestors,
		}), class.IsComplete()
	}).Clone()
}

func (m *Method) ShortDescription() string { return m.Annotations().ShortDescription() }
func (m *Method) LongDescription() string  { return m.Annotations().LongDescription() }
func (m *Method) IsDeprecated() bool       { return m.Annotations().Deprecated() }

func (m *Method) SetAccessible(accessible bool) { m.accessible = accessible }

// IsAccessible reports whether the method may be used from outside.
func (m *Method) IsAccessible() bool { return m.accessible || m.IsPublic() }

// Invoke always fails: analyzed code is never executed.
func (m *Method) Invoke(args ...any) (any, error) {
	if !m.IsAccessible() {
		return nil, errors.NewRuntime(errors.CodeNotAccessible, m.PrettyName(),
			"method is not public and was not made accessible")
	}
	return nil, errors.NewRuntime(errors.CodeUnsupported, m.PrettyName(),
		"methods parsed from source cannot be invoked")
}

func (m *Method) String() string { return "method " + m.PrettyName() }
