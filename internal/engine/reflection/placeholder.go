package reflection

import (
	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/annotation"
	"phpmodel/internal/engine/resolver"
	"phpmodel/internal/engine/value"
)

// SymbolKind separates the three registry namespaces.
type SymbolKind int

const (
	SymbolClass SymbolKind = iota
	SymbolFunction
	SymbolConstant
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolConstant:
		return "constant"
	}
	return "class"
}

type PlaceholderState int

const (
	// Unresolved stands in for a name that is referenced but never defined.
	Unresolved PlaceholderState = iota
	// Conflict stands in for a name defined more than once.
	Conflict
)

func (s PlaceholderState) String() string {
	if s == Conflict {
		return "conflict"
	}
	return "unresolved"
}

// Placeholder is a registry entry without a usable definition. It answers
// every query with an empty or false default.
type Placeholder struct {
	kind      SymbolKind
	state     PlaceholderState
	name      string
	firstFile string
	reasons   []error
}

func (p *Placeholder) Kind() SymbolKind        { return p.kind }
func (p *Placeholder) State() PlaceholderState { return p.state }
func (p *Placeholder) IsConflict() bool        { return p.state == Conflict }

// Reasons lists why the name is in conflict, in registration order.
func (p *Placeholder) Reasons() []error { return append([]error(nil), p.reasons...) }

// FirstFile is the file of the definition registered first.
func (p *Placeholder) FirstFile() string { return p.firstFile }

func (p *Placeholder) Name() string { return p.name }

func (p *Placeholder) ShortName() string {
	_, short := resolver.Split(p.name)
	return short
}

func (p *Placeholder) NamespaceName() string {
	ns, _ := resolver.Split(p.name)
	return ns
}

func (p *Placeholder) FileName() string   { return p.firstFile }
func (p *Placeholder) StartLine() int     { return 0 }
func (p *Placeholder) EndLine() int       { return 0 }
func (p *Placeholder) DocComment() string { return "" }
func (p *Placeholder) IsTokenized() bool  { return false }

func (p *Placeholder) IsComplete() bool            { return false }
func (p *Placeholder) IsValid() bool               { return false }
func (p *Placeholder) IsInterface() bool           { return false }
func (p *Placeholder) IsTrait() bool               { return false }
func (p *Placeholder) IsAbstract() bool            { return false }
func (p *Placeholder) IsFinal() bool               { return false }
func (p *Placeholder) Modifiers() int              { return 0 }
func (p *Placeholder) ParentClassName() string     { return "" }
func (p *Placeholder) InterfaceNames() []string    { return nil }
func (p *Placeholder) OwnInterfaceNames() []string { return nil }
func (p *Placeholder) TraitNames() []string        { return nil }
func (p *Placeholder) Methods() ([]*Method, error) { return nil, nil }
func (p *Placeholder) OwnMethods() []*Method       { return nil }
func (p *Placeholder) HasMethod(string) bool       { return false }
func (p *Placeholder) HasOwnMethod(string) bool    { return false }
func (p *Placeholder) Properties() []*Property     { return nil }
func (p *Placeholder) OwnProperties() []*Property  { return nil }
func (p *Placeholder) HasProperty(string) bool     { return false }
func (p *Placeholder) Constants() []*Constant      { return nil }
func (p *Placeholder) OwnConstants() []*Constant   { return nil }
func (p *Placeholder) HasConstant(string) bool     { return false }
func (p *Placeholder) IsSubclassOf(string) bool    { return false }

func (p *Placeholder) ImplementsInterface(string) bool { return false }

func (p *Placeholder) Method(name string) (*Method, error) {
	return nil, p.missing("method " + name)
}

func (p *Placeholder) Property(name string) (*Property, error) {
	return nil, p.missing("property $" + name)
}

func (p *Placeholder) Constant(name string) (*Constant, error) {
	return nil, p.missing("constant " + name)
}

func (p *Placeholder) missing(what string) error {
	return errors.NewRuntime(errors.CodeDoesNotExist, p.name,
		"no "+what+" on "+p.state.String()+" "+p.kind.String())
}

func (p *Placeholder) Parameters() []*Parameter        { return nil }
func (p *Placeholder) NumberOfParameters() int         { return 0 }
func (p *Placeholder) NumberOfRequiredParameters() int { return 0 }
func (p *Placeholder) ReturnsReference() bool          { return false }
func (p *Placeholder) IsDeprecated() bool              { return false }
func (p *Placeholder) Value() any                      { return value.NotResolved }
func (p *Placeholder) ValueDefinition() string         { return "" }
func (p *Placeholder) Annotations() *annotation.Set    { return annotation.NewSet() }
