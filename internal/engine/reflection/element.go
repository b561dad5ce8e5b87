// Package reflection builds a static reflection model of PHP source from
// its token stream: classes, interfaces, traits, functions, constants and
// their members, resolved lazily against a shared Registry.
package reflection

import (
	"sync/atomic"

	"phpmodel/internal/engine/annotation"
	"phpmodel/internal/engine/resolver"
	"phpmodel/internal/engine/value"
)

// Method and property modifiers.
const (
	ModStatic             = 0x01
	ModAbstract           = 0x02
	ModFinal              = 0x04
	ModImplementsAbstract = 0x08
	ModReadonly           = 0x80
	ModPublic             = 0x100
	ModProtected          = 0x200
	ModPrivate            = 0x400
	ModAccessChanged      = 0x800
	ModConstructor        = 0x2000
	ModDestructor         = 0x4000
	ModClone              = 0x8000

	visibilityMask = ModPublic | ModProtected | ModPrivate
)

// Class modifiers.
const (
	ModImplicitAbstract     = 0x10
	ModExplicitAbstract     = 0x20
	ModFinalClass           = 0x40
	ModImplementsInterfaces = 0x80000
)

// ClassKind tells a class, an interface and a trait apart.
type ClassKind int

const (
	KindClass ClassKind = iota
	KindInterface
	KindTrait
)

func (k ClassKind) String() string {
	switch k {
	case KindInterface:
		return "interface"
	case KindTrait:
		return "trait"
	}
	return "class"
}

var lastID atomic.Uint64

func nextID() uint64 { return lastID.Add(1) }

// names is the name-resolution context of one namespace block. Every
// element parsed inside the block shares it.
type names struct {
	namespace    string
	aliases      map[string]string
	funcAliases  map[string]string
	constAliases map[string]string
}

func newNames(namespace string) *names {
	return &names{
		namespace:    namespace,
		aliases:      make(map[string]string),
		funcAliases:  make(map[string]string),
		constAliases: make(map[string]string),
	}
}

func (n *names) resolveClass(raw string) string {
	return resolver.Resolve(raw, n.aliases, n.namespace)
}

// base carries what every parsed element has.
type base struct {
	id        uint64
	reg       *Registry
	ctx       *names
	name      string
	file      string
	startLine int
	endLine   int
	startPos  int
	endPos    int
	doc       string
	templates []string
}

func newBase(ctx *names, name, file string) base {
	return base{id: nextID(), ctx: ctx, name: name, file: file}
}

func (b *base) FileName() string   { return b.file }
func (b *base) StartLine() int     { return b.startLine }
func (b *base) EndLine() int       { return b.endLine }
func (b *base) StartPosition() int { return b.startPos }
func (b *base) EndPosition() int   { return b.endPos }
func (b *base) DocComment() string { return b.doc }

// IsTokenized is true for every element built from source.
func (b *base) IsTokenized() bool { return true }

func (b *base) namespace() string {
	if b.ctx == nil {
		return ""
	}
	return b.ctx.namespace
}

// ownAnnotations parses the element's docblock and folds in the templates
// that were active when it was declared.
func (b *base) ownAnnotations() *annotation.Set {
	return annotation.MergeTemplates(annotation.Parse(b.doc), b.doc, b.templates)
}

func (b *base) scope() value.Scope {
	s := value.Scope{File: b.file, Line: b.startLine}
	if b.ctx != nil {
		s.Namespace = b.ctx.namespace
		s.Aliases = b.ctx.aliases
		s.ConstAliases = b.ctx.constAliases
	}
	return s
}

// ClassLike is a class, interface or trait, or a placeholder standing in
// for one.
type ClassLike interface {
	Name() string
	ShortName() string
	NamespaceName() string
	FileName() string
	StartLine() int
	EndLine() int
	DocComment() string
	IsTokenized() bool
	IsComplete() bool
	IsValid() bool
	IsInterface() bool
	IsTrait() bool
	IsAbstract() bool
	IsFinal() bool
	Modifiers() int
	ParentClassName() string
	InterfaceNames() []string
	OwnInterfaceNames() []string
	TraitNames() []string
	Methods() ([]*Method, error)
	OwnMethods() []*Method
	Method(name string) (*Method, error)
	HasMethod(name string) bool
	HasOwnMethod(name string) bool
	Properties() []*Property
	OwnProperties() []*Property
	Property(name string) (*Property, error)
	HasProperty(name string) bool
	Constants() []*Constant
	OwnConstants() []*Constant
	Constant(name string) (*Constant, error)
	HasConstant(name string) bool
	Annotations() *annotation.Set
	IsSubclassOf(name string) bool
	ImplementsInterface(name string) bool
}

// FunctionLike is a top-level function or a placeholder standing in for
// one.
type FunctionLike interface {
	Name() string
	ShortName() string
	NamespaceName() string
	FileName() string
	StartLine() int
	EndLine() int
	DocComment() string
	IsTokenized() bool
	Parameters() []*Parameter
	NumberOfParameters() int
	NumberOfRequiredParameters() int
	ReturnsReference() bool
	Annotations() *annotation.Set
	IsDeprecated() bool
}

// ConstantLike is a top-level constant or a placeholder standing in for
// one.
type ConstantLike interface {
	Name() string
	ShortName() string
	NamespaceName() string
	FileName() string
	StartLine() int
	EndLine() int
	DocComment() string
	IsTokenized() bool
	Value() any
	ValueDefinition() string
	Annotations() *annotation.Set
}

var (
	_ ClassLike    = (*Class)(nil)
	_ ClassLike    = (*Placeholder)(nil)
	_ FunctionLike = (*Function)(nil)
	_ FunctionLike = (*Placeholder)(nil)
	_ ConstantLike = (*Constant)(nil)
	_ ConstantLike = (*Placeholder)(nil)
)
