package reflection

import (
	"strings"

	"phpmodel/internal/engine/annotation"
	"phpmodel/internal/engine/resolver"
	"phpmodel/internal/engine/token"
	"phpmodel/internal/engine/value"
)

// Constant is a class constant or a top-level constant declared with
// const or define().
type Constant struct {
	base
	class     string
	owner     classScope
	modifiers int
	tokens    []token.Token
}

// Name is the short name of a class constant and the fully qualified name
// of a top-level one.
func (k *Constant) Name() string { return k.name }

func (k *Constant) ShortName() string {
	if k.class != "" {
		return k.name
	}
	_, short := resolver.Split(k.name)
	return short
}

func (k *Constant) NamespaceName() string {
	if k.class != "" {
		return k.namespace()
	}
	ns, _ := resolver.Split(k.name)
	return ns
}

func (k *Constant) DeclaringClassName() string { return k.class }

func (k *Constant) DeclaringClass() ClassLike {
	if k.class == "" {
		return nil
	}
	return k.reg.Class(k.class)
}

func (k *Constant) PrettyName() string {
	if k.class == "" {
		return k.name
	}
	return k.class + "::" + k.name
}

func (k *Constant) Modifiers() int    { return k.modifiers }
func (k *Constant) IsPublic() bool    { return k.modifiers&ModPublic != 0 }
func (k *Constant) IsProtected() bool { return k.modifiers&ModProtected != 0 }
func (k *Constant) IsPrivate() bool   { return k.modifiers&ModPrivate != 0 }
func (k *Constant) IsFinal() bool     { return k.modifiers&ModFinal != 0 }

func (k *Constant) ValueDefinition() string {
	return strings.TrimSpace(token.Source(k.tokens))
}

// Value evaluates the constant. References that cannot be resolved yield
// value.NotResolved in their place.
func (k *Constant) Value() any {
	v, _ := k.evaluate()
	return v
}

// IsValueComplete reports whether every symbol the value refers to is
// registered.
func (k *Constant) IsValueComplete() bool {
	_, complete := k.evaluate()
	return complete
}

type evaluated struct {
	v        any
	complete bool
}

func (k *Constant) evaluate() (any, bool) {
	res := memoized(k.reg, k.id, FieldValue, func() (evaluated, bool) {
		if !k.reg.enter(k.id, FieldValue) {
			// self-referencing constants never resolve
			return evaluated{v: value.NotResolved, complete: true}, false
		}
		defer k.reg.leave(k.id, FieldValue)
		v, complete := value.Evaluate(k.tokens, k.scope(), k.reg.lookup())
		return evaluated{v: v, complete: complete}, complete
	})
	return res.v, res.complete
}

func (k *Constant) scope() value.Scope {
	s := k.base.scope()
	k.owner.apply(&s)
	return s
}

// Annotations returns the docblock with templates and @copydoc applied.
func (k *Constant) Annotations() *annotation.Set {
	if !k.reg.enter(k.id, FieldAnnotations) {
		return k.ownAnnotations()
	}
	defer k.reg.leave(k.id, FieldAnnotations)
	return k.reg.copyDoc(k.ownAnnotations(), k.ctx)
}

func (k *Constant) ShortDescription() string { return k.Annotations().ShortDescription() }
func (k *Constant) LongDescription() string  { return k.Annotations().LongDescription() }
func (k *Constant) IsDeprecated() bool       { return k.Annotations().Deprecated() }

func (k *Constant) String() string { return "constant " + k.PrettyName() }
