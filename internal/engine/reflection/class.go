package reflection

import (
	"fmt"
	"strings"

	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/annotation"
	"phpmodel/internal/engine/resolver"
	"phpmodel/internal/engine/value"
)

// traitImport is one rule of a trait use block. A suppressing rule comes
// from insteadof; the others come from as.
type traitImport struct {
	newName  string
	access   int
	suppress bool
}

type traitAlias struct {
	alias  string
	trait  string
	method string
}

// Class is a class, interface or trait parsed from source. Relations to
// other class-likes are kept as names and resolved through the registry
// at query time.
type Class struct {
	base
	kind         ClassKind
	modifiers    int
	parent       string
	interfaces   []string
	traits       []string
	traitImports map[string][]traitImport
	traitAliases []traitAlias
	methods      []*Method
	properties   []*Property
	constants    []*Constant
}

func (c *Class) attach(r *Registry) {
	c.reg = r
	for _, m := range c.methods {
		m.attach(r)
	}
	for _, p := range c.properties {
		p.reg = r
	}
	for _, k := range c.constants {
		k.reg = r
	}
}

func (c *Class) Name() string { return c.name }

func (c *Class) ShortName() string {
	_, short := resolver.Split(c.name)
	return short
}

func (c *Class) NamespaceName() string { return c.namespace() }
func (c *Class) Kind() ClassKind       { return c.kind }
func (c *Class) IsInterface() bool     { return c.kind == KindInterface }
func (c *Class) IsTrait() bool         { return c.kind == KindTrait }
func (c *Class) InNamespace() bool     { return c.namespace() != "" }

func (c *Class) ParentClassName() string { return c.parent }

// ParentClass returns the parent class-like, or nil when there is none.
func (c *Class) ParentClass() ClassLike {
	if c.parent == "" {
		return nil
	}
	return c.reg.Class(c.parent)
}

// ParentClassNames walks the parent chain, nearest first.
func (c *Class) ParentClassNames() []string {
	var out []string
	seen := map[string]bool{resolver.Key(c.name): true}
	for cur := c; cur != nil && cur.parent != ""; {
		key := resolver.Key(cur.parent)
		if seen[key] {
			break
		}
		seen[key] = true
		out = append(out, cur.parent)
		cur = c.reg.liveClass(cur.parent)
	}
	return out
}

// OwnInterfaceNames returns the interfaces named in the declaration. For
// an interface these are the interfaces it extends.
func (c *Class) OwnInterfaceNames() []string {
	return append([]string(nil), c.interfaces...)
}

// InterfaceNames returns every interface the class-like implements,
// inherited ones included.
func (c *Class) InterfaceNames() []string {
	return c.interfaceNames(make(map[uint64]bool))
}

func (c *Class) interfaceNames(path map[uint64]bool) []string {
	if path[c.id] {
		return nil
	}
	path[c.id] = true
	defer delete(path, c.id)

	var out []string
	seen := make(map[string]bool)
	add := func(names ...string) {
		for _, n := range names {
			if k := resolver.Key(n); !seen[k] {
				seen[k] = true
				out = append(out, n)
			}
		}
	}
	if parent := c.reg.liveClass(c.parent); parent != nil {
		add(parent.interfaceNames(path)...)
	}
	for _, name := range c.interfaces {
		add(name)
		if iface := c.reg.liveClass(name); iface != nil {
			add(iface.interfaceNames(path)...)
		}
	}
	return out
}

func (c *Class) TraitNames() []string {
	return append([]string(nil), c.traits...)
}

// TraitAliases maps every alias introduced by a trait use block to the
// Trait::method it imports.
func (c *Class) TraitAliases() map[string]string {
	out := make(map[string]string, len(c.traitAliases))
	for _, a := range c.traitAliases {
		trait := a.trait
		if trait == "" {
			for _, name := range c.traits {
				if t := c.reg.liveClass(name); t != nil && t.HasMethod(a.method) {
					trait = t.name
					break
				}
			}
		}
		out[a.alias] = trait + "::" + a.method
	}
	return out
}

func (c *Class) dependencies() []string {
	deps := make([]string, 0, 1+len(c.interfaces)+len(c.traits))
	if c.parent != "" {
		deps = append(deps, c.parent)
	}
	deps = append(deps, c.interfaces...)
	return append(deps, c.traits...)
}

// IsComplete reports whether the parent, every interface and every trait
// is registered and complete itself.
func (c *Class) IsComplete() bool {
	return memoized(c.reg, c.id, FieldComplete, func() (bool, bool) {
		ok := c.complete(make(map[uint64]bool))
		return ok, ok
	})
}

func (c *Class) complete(seen map[uint64]bool) bool {
	if seen[c.id] {
		return true
	}
	seen[c.id] = true
	for _, name := range c.dependencies() {
		dep := c.reg.liveClass(name)
		if dep == nil || !dep.complete(seen) {
			return false
		}
	}
	return true
}

// IsValid is false when an ancestor is in conflict, has the wrong kind or
// the inheritance graph has a cycle through this class-like. Ancestors
// that are simply not defined do not make it invalid.
func (c *Class) IsValid() bool {
	return c.valid(make(map[uint64]bool))
}

func (c *Class) valid(path map[uint64]bool) bool {
	if path[c.id] {
		return false
	}
	path[c.id] = true
	defer delete(path, c.id)

	check := func(name string, want ClassKind) bool {
		switch dep := c.reg.Class(name).(type) {
		case *Placeholder:
			return !dep.IsConflict()
		case *Class:
			return dep.kind == want && dep.valid(path)
		}
		return true
	}
	if c.parent != "" && !check(c.parent, KindClass) {
		return false
	}
	for _, name := range c.interfaces {
		if !check(name, KindInterface) {
			return false
		}
	}
	for _, name := range c.traits {
		if !check(name, KindTrait) {
			return false
		}
	}
	return true
}

// Modifiers returns the class modifiers. Implicit abstractness depends on
// the composed method set, so the value is cached only once the class is
// complete.
func (c *Class) Modifiers() int {
	return memoized(c.reg, c.id, FieldModifiers, func() (int, bool) {
		mods := c.modifiers
		if mods&ModExplicitAbstract != 0 {
			methods, _ := c.Methods()
			for _, m := range methods {
				if m.IsAbstract() {
					mods |= ModImplicitAbstract
					break
				}
			}
		}
		if c.kind == KindClass && len(c.interfaces) > 0 {
			mods |= ModImplementsInterfaces
		}
		if c.kind == KindInterface && len(c.methods) > 0 {
			mods |= ModImplicitAbstract
		}
		return mods, c.IsComplete()
	})
}

func (c *Class) IsAbstract() bool {
	if c.modifiers&ModExplicitAbstract != 0 {
		return true
	}
	return c.kind == KindInterface && len(c.methods) > 0
}

func (c *Class) IsFinal() bool { return c.modifiers&ModFinalClass != 0 }

// IsInstantiable reports whether new could create an instance.
func (c *Class) IsInstantiable() bool {
	if c.kind != KindClass || c.IsAbstract() {
		return false
	}
	ctor := c.Constructor()
	return ctor == nil || ctor.IsPublic()
}

func (c *Class) IsCloneable() bool {
	if c.kind != KindClass || c.IsAbstract() {
		return false
	}
	m, err := c.Method("__clone")
	return err != nil || m.IsPublic()
}

// Constructor returns the constructor, inherited ones included, or nil.
func (c *Class) Constructor() *Method {
	methods, _ := c.Methods()
	for _, m := range methods {
		if m.IsConstructor() {
			return m
		}
	}
	return nil
}

func (c *Class) Destructor() *Method {
	m, err := c.Method("__destruct")
	if err != nil {
		return nil
	}
	return m
}

// IsSubclassOf reports whether name is an ancestor class or an
// implemented interface.
func (c *Class) IsSubclassOf(name string) bool {
	key := resolver.Key(name)
	if key == resolver.Key(c.name) {
		return false
	}
	for _, p := range c.ParentClassNames() {
		if resolver.Key(p) == key {
			return true
		}
	}
	return c.ImplementsInterface(name)
}

func (c *Class) ImplementsInterface(name string) bool {
	key := resolver.Key(name)
	for _, iface := range c.InterfaceNames() {
		if resolver.Key(iface) == key {
			return true
		}
	}
	return false
}

// DirectSubclasses lists registered classes whose parent is c.
func (c *Class) DirectSubclasses() []*Class {
	return c.subclasses(func(o *Class) bool {
		return o.parent != "" && resolver.Key(o.parent) == resolver.Key(c.name)
	})
}

// IndirectSubclasses lists registered descendants that do not extend c
// directly.
func (c *Class) IndirectSubclasses() []*Class {
	return c.subclasses(func(o *Class) bool {
		return o.kind == KindClass && resolver.Key(o.parent) != resolver.Key(c.name) && o.IsSubclassOf(c.name)
	})
}

// Implementers lists registered classes that implement the interface c.
func (c *Class) Implementers() []*Class {
	if c.kind != KindInterface {
		return nil
	}
	return c.subclasses(func(o *Class) bool {
		return o.kind == KindClass && o.ImplementsInterface(c.name)
	})
}

func (c *Class) subclasses(match func(*Class) bool) []*Class {
	if c.reg == nil {
		return nil
	}
	var out []*Class
	for _, cl := range c.reg.Classes() {
		if o, ok := cl.(*Class); ok && o != c && match(o) {
			out = append(out, o)
		}
	}
	return out
}

// memberScope is the evaluation scope of members declared in c.
func (c *Class) memberScope() classScope {
	s := classScope{class: c.name, parent: c.parent}
	if c.kind == KindTrait {
		s.trait = c.name
	}
	return s
}

// classScope is what self, parent and the class-related magic constants
// resolve to inside a member.
type classScope struct {
	class  string
	parent string
	trait  string
}

func (s classScope) apply(v *value.Scope) {
	v.Class = s.class
	v.Parent = s.parent
	v.Trait = s.trait
}

// Methods

func (c *Class) OwnMethods() []*Method {
	return append([]*Method(nil), c.methods...)
}

func (c *Class) HasOwnMethod(name string) bool {
	return c.ownMethod(name) != nil
}

func (c *Class) ownMethod(name string) *Method {
	for _, m := range c.methods {
		if strings.EqualFold(m.name, name) {
			return m
		}
	}
	return nil
}

type methodSet struct {
	list []*Method
	err  error
}

// Methods composes the method set: own methods, then trait imports, then
// the parent's methods, then the methods of the declared interfaces. The
// first layer to provide a name wins.
func (c *Class) Methods() ([]*Method, error) {
	return c.methodSet(make(map[uint64]bool))
}

func (c *Class) methodSet(path map[uint64]bool) ([]*Method, error) {
	if path[c.id] {
		return nil, nil
	}
	res := memoized(c.reg, c.id, FieldMethods, func() (methodSet, bool) {
		path[c.id] = true
		defer delete(path, c.id)
		list, err := c.composeMethods(path)
		return methodSet{list: list, err: err}, c.IsComplete()
	})
	return append([]*Method(nil), res.list...), res.err
}

func (c *Class) composeMethods(path map[uint64]bool) ([]*Method, error) {
	seen := make(map[string]bool)
	var out []*Method
	add := func(methods []*Method) {
		for _, m := range methods {
			if k := strings.ToLower(m.name); !seen[k] {
				seen[k] = true
				out = append(out, m)
			}
		}
	}

	add(c.methods)
	imported, err := c.traitMethods(path)
	if err != nil {
		return nil, err
	}
	add(imported)
	if parent := c.reg.liveClass(c.parent); parent != nil {
		inherited, err := parent.methodSet(path)
		if err != nil {
			return nil, err
		}
		add(inherited)
	}
	for _, name := range c.interfaces {
		if iface := c.reg.liveClass(name); iface != nil {
			inherited, err := iface.methodSet(path)
			if err != nil {
				return nil, err
			}
			add(inherited)
		}
	}
	return out, nil
}

// TraitMethods returns the methods imported from used traits after alias
// and insteadof rules are applied.
func (c *Class) TraitMethods() ([]*Method, error) {
	return c.traitMethods(make(map[uint64]bool))
}

func (c *Class) traitMethods(path map[uint64]bool) ([]*Method, error) {
	imported := make(map[string]*Method)
	var order []string

	put := func(m *Method, trait *Class, name string, access int) error {
		key := strings.ToLower(name)
		if c.ownMethod(name) != nil {
			return nil
		}
		alias := m.alias(c, trait, name, access)
		prev, ok := imported[key]
		switch {
		case !ok:
			imported[key] = alias
			order = append(order, key)
		case prev.IsAbstract():
			imported[key] = alias
		case alias.IsAbstract():
		default:
			return errors.NewParse(errors.CodeAlreadyExists, c.name,
				fmt.Sprintf("trait method %s was already imported from %s", name, prev.trait)).
				At(c.file, c.startPos, c.startLine).
				Wrapping(errors.ErrAlreadyImported)
		}
		return nil
	}

	for _, traitName := range c.traits {
		trait := c.reg.liveClass(traitName)
		if trait == nil {
			continue
		}
		methods, err := trait.methodSet(path)
		if err != nil {
			return nil, err
		}
		for _, m := range methods {
			rules := c.importRules(trait.name, m.name)
			suppressed := false
			for _, rule := range rules {
				if rule.suppress {
					suppressed = true
					continue
				}
				name := rule.newName
				if name == "" {
					name = m.name
					suppressed = true
				}
				if err := put(m, trait, name, rule.access); err != nil {
					return nil, err
				}
			}
			if !suppressed {
				if err := put(m, trait, m.name, 0); err != nil {
					return nil, err
				}
			}
		}
	}

	out := make([]*Method, 0, len(order))
	for _, key := range order {
		out = append(out, imported[key])
	}
	return out, nil
}

func ruleKey(trait, method string) string {
	if trait == "" {
		return strings.ToLower(method)
	}
	return resolver.Key(trait) + "::" + strings.ToLower(method)
}

// importRules returns the rules for Trait::method followed by the rules
// for the bare method name.
func (c *Class) importRules(trait, method string) []traitImport {
	rules := append([]traitImport(nil), c.traitImports[ruleKey(trait, method)]...)
	return append(rules, c.traitImports[ruleKey("", method)]...)
}

// Method finds a method in the composed set, case-insensitively.
func (c *Class) Method(name string) (*Method, error) {
	methods, err := c.Methods()
	if err != nil {
		return nil, err
	}
	for _, m := range methods {
		if strings.EqualFold(m.name, name) {
			return m, nil
		}
	}
	return nil, errors.NewRuntime(errors.CodeDoesNotExist, c.name,
		fmt.Sprintf("method %s does not exist", name))
}

func (c *Class) HasMethod(name string) bool {
	_, err := c.Method(name)
	return err == nil
}

// Properties

func (c *Class) OwnProperties() []*Property {
	return append([]*Property(nil), c.properties...)
}

func (c *Class) ownProperty(name string) *Property {
	name = strings.TrimPrefix(name, "$")
	for _, p := range c.properties {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Properties composes own, trait, then non-private parent properties.
func (c *Class) Properties() []*Property {
	return c.propertySet(make(map[uint64]bool))
}

func (c *Class) propertySet(path map[uint64]bool) []*Property {
	if path[c.id] {
		return nil
	}
	list := memoized(c.reg, c.id, FieldProperties, func() ([]*Property, bool) {
		path[c.id] = true
		defer delete(path, c.id)

		seen := make(map[string]bool)
		var out []*Property
		add := func(props []*Property) {
			for _, p := range props {
				if !seen[p.name] {
					seen[p.name] = true
					out = append(out, p)
				}
			}
		}
		add(c.properties)
		for _, name := range c.traits {
			if trait := c.reg.liveClass(name); trait != nil {
				for _, p := range trait.propertySet(path) {
					if !seen[p.name] {
						add([]*Property{p.alias(c, trait)})
					}
				}
			}
		}
		if parent := c.reg.liveClass(c.parent); parent != nil {
			for _, p := range parent.propertySet(path) {
				if !p.IsPrivate() {
					add([]*Property{p})
				}
			}
		}
		return out, c.IsComplete()
	})
	return append([]*Property(nil), list...)
}

// Property finds a property in the composed set. The name may carry the
// leading $.
func (c *Class) Property(name string) (*Property, error) {
	name = strings.TrimPrefix(name, "$")
	for _, p := range c.Properties() {
		if p.name == name {
			return p, nil
		}
	}
	return nil, errors.NewRuntime(errors.CodeDoesNotExist, c.name,
		fmt.Sprintf("property $%s does not exist", name))
}

func (c *Class) HasProperty(name string) bool {
	_, err := c.Property(name)
	return err == nil
}

func (c *Class) HasOwnProperty(name string) bool {
	return c.ownProperty(name) != nil
}

// Constants

func (c *Class) OwnConstants() []*Constant {
	return append([]*Constant(nil), c.constants...)
}

// Constants composes own, trait, parent, then interface constants.
func (c *Class) Constants() []*Constant {
	return c.constantSet(make(map[uint64]bool))
}

func (c *Class) constantSet(path map[uint64]bool) []*Constant {
	if path[c.id] {
		return nil
	}
	list := memoized(c.reg, c.id, FieldConstants, func() ([]*Constant, bool) {
		path[c.id] = true
		defer delete(path, c.id)

		seen := make(map[string]bool)
		var out []*Constant
		add := func(consts []*Constant) {
			for _, k := range consts {
				if !seen[k.name] {
					seen[k.name] = true
					out = append(out, k)
				}
			}
		}
		add(c.constants)
		for _, name := range c.traits {
			if trait := c.reg.liveClass(name); trait != nil {
				add(trait.constantSet(path))
			}
		}
		if parent := c.reg.liveClass(c.parent); parent != nil {
			add(parent.constantSet(path))
		}
		for _, name := range c.interfaces {
			if iface := c.reg.liveClass(name); iface != nil {
				add(iface.constantSet(path))
			}
		}
		return out, c.IsComplete()
	})
	return append([]*Constant(nil), list...)
}

func (c *Class) Constant(name string) (*Constant, error) {
	for _, k := range c.Constants() {
		if k.name == name {
			return k, nil
		}
	}
	return nil, errors.NewRuntime(errors.CodeDoesNotExist, c.name,
		fmt.Sprintf("constant %s does not exist", name))
}

func (c *Class) HasConstant(name string) bool {
	_, err := c.Constant(name)
	return err == nil
}

func (c *Class) HasOwnConstant(name string) bool {
	for _, k := range c.constants {
		if k.name == name {
			return true
		}
	}
	return false
}

// ConstantValue evaluates a composed constant.
func (c *Class) ConstantValue(name string) (any, error) {
	k, err := c.Constant(name)
	if err != nil {
		return nil, err
	}
	return k.Value(), nil
}

// Annotations

// Annotations returns the class annotations with templates, @copydoc and
// ancestor inheritance applied.
func (c *Class) Annotations() *annotation.Set {
	return memoized(c.reg, c.id, FieldAnnotations, func() (*annotation.Set, bool) {
		if !c.reg.enter(c.id, FieldAnnotations) {
			return c.ownAnnotations(), false
		}
		defer c.reg.leave(c.id, FieldAnnotations)

		own := c.reg.copyDoc(c.ownAnnotations(), c.ctx)
		var ancestors []*annotation.Set
		if parent := c.reg.liveClass(c.parent); parent != nil {
			ancestors = append(ancestors, parent.Annotations())
		}
		for _, name := range c.interfaces {
			if iface := c.reg.liveClass(name); iface != nil {
				ancestors = append(ancestors, iface.Annotations())
			}
		}
		return annotation.Inherit(own, annotation.Inheritance{
			Target:     annotation.TargetClass,
			Documented: c.doc != "",
			Ancestors:  ancestors,
		}), c.IsComplete()
	}).Clone()
}

func (c *Class) ShortDescription() string { return c.Annotations().ShortDescription() }
func (c *Class) LongDescription() string  { return c.Annotations().LongDescription() }
func (c *Class) IsDeprecated() bool       { return c.Annotations().Deprecated() }

func (c *Class) String() string {
	return c.kind.String() + " " + c.name
}
