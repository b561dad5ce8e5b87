package reflection

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/resolver"
	"phpmodel/internal/engine/value"
)

type symbolKey struct {
	kind SymbolKind
	key  string
}

// slot holds exactly one of a live definition or a placeholder.
type slot struct {
	live        any
	placeholder *Placeholder
}

type memoKey struct {
	id    uint64
	field Field
}

// Registry is the shared cross-file symbol table. Entries live in an
// arena in registration order; the index maps a kind-qualified, normalized
// name to its arena slot. Registration is serialized; queries may run
// concurrently with each other but not with registration.
type Registry struct {
	mu         sync.RWMutex
	slots      []*slot
	index      map[symbolKey]int
	namespaces map[string]*Namespace
	files      map[string]*File
	fileOrder  []string

	memoMu  sync.Mutex
	memo    map[memoKey]any
	pending map[memoKey]bool
	// missed holds constant names that were looked up while undefined.
	// Defining one later invalidates values that fell back past it.
	missed map[symbolKey]bool
}

func NewRegistry() *Registry {
	return &Registry{
		index:      make(map[symbolKey]int),
		namespaces: make(map[string]*Namespace),
		files:      make(map[string]*File),
		memo:       make(map[memoKey]any),
		pending:    make(map[memoKey]bool),
		missed:     make(map[symbolKey]bool),
	}
}

func keyOf(kind SymbolKind, name string) symbolKey {
	if kind == SymbolConstant {
		return symbolKey{kind: kind, key: resolver.ConstantKey(name)}
	}
	return symbolKey{kind: kind, key: resolver.Key(name)}
}

// AddFile registers every declaration of a parsed file in discovery order.
func (r *Registry) AddFile(f *File) error {
	if f == nil {
		return errors.New(errors.CodeInvalidArgument, "nil file")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.files[f.Name]; ok {
		return errors.AddContext(errors.New(errors.CodeAlreadyExists, "file already registered"), errors.CtxPath, f.Name)
	}
	r.files[f.Name] = f
	r.fileOrder = append(r.fileOrder, f.Name)

	for _, block := range f.Blocks {
		r.registerNamespaceLocked(block)
		for _, c := range block.Classes {
			r.registerLocked(SymbolClass, c.name, c.file, c)
			c.attach(r)
		}
		for _, fn := range block.Functions {
			r.registerLocked(SymbolFunction, fn.name, fn.file, fn)
			fn.attach(r)
		}
		for _, c := range block.Constants {
			r.registerLocked(SymbolConstant, c.name, c.file, c)
			c.reg = r
		}
	}
	return nil
}

// RegisterClass registers a single class-like outside of a file pass.
func (r *Registry) RegisterClass(c *Class) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(SymbolClass, c.name, c.file, c)
	c.attach(r)
}

func (r *Registry) RegisterFunction(fn *Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(SymbolFunction, fn.name, fn.file, fn)
	fn.attach(r)
}

func (r *Registry) RegisterConstant(c *Constant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerLocked(SymbolConstant, c.name, c.file, c)
	c.reg = r
}

func (r *Registry) RegisterNamespace(block *NamespaceBlock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registerNamespaceLocked(block)
}

func (r *Registry) registerNamespaceLocked(block *NamespaceBlock) {
	key := resolver.Key(block.Name)
	ns, ok := r.namespaces[key]
	if !ok {
		ns = &Namespace{name: block.Name}
		r.namespaces[key] = ns
	}
	ns.blocks = append(ns.blocks, block)
}

func (r *Registry) registerLocked(kind SymbolKind, name, file string, def any) {
	key := keyOf(kind, name)
	idx, ok := r.index[key]
	if !ok {
		r.index[key] = len(r.slots)
		r.slots = append(r.slots, &slot{live: def})
		r.forgetMissLocked(key)
		return
	}

	s := r.slots[idx]
	switch {
	case s.placeholder != nil && s.placeholder.state == Unresolved:
		s.placeholder = nil
		s.live = def
		r.forgetMissLocked(key)
		return
	case s.placeholder == nil:
		s.placeholder = &Placeholder{
			kind:      kind,
			state:     Conflict,
			name:      name,
			firstFile: fileOf(s.live),
		}
		s.live = nil
	}
	s.placeholder.reasons = append(s.placeholder.reasons, errors.NewRuntime(errors.CodeAlreadyExists, name,
		fmt.Sprintf("%s already defined in %s, redefined in %s", kind, s.placeholder.firstFile, file)))

	// values frozen while the name was live are stale now
	r.memoMu.Lock()
	r.memo = make(map[memoKey]any)
	r.memoMu.Unlock()
}

// forgetMissLocked drops the memo when key was looked up before it was
// defined, since cached values may have resolved to a global fallback.
func (r *Registry) forgetMissLocked(key symbolKey) {
	r.memoMu.Lock()
	defer r.memoMu.Unlock()
	if !r.missed[key] {
		return
	}
	delete(r.missed, key)
	r.memo = make(map[memoKey]any)
}

func (r *Registry) recordMiss(kind SymbolKind, name string) {
	r.memoMu.Lock()
	r.missed[keyOf(kind, name)] = true
	r.memoMu.Unlock()
}

func fileOf(def any) string {
	switch d := def.(type) {
	case *Class:
		return d.file
	case *Function:
		return d.file
	case *Constant:
		return d.file
	}
	return ""
}

// entry returns the live definition or placeholder under name. Missing
// names get an unresolved placeholder so every later query sees the same
// entry.
func (r *Registry) entry(kind SymbolKind, name string) any {
	key := keyOf(kind, name)
	r.mu.RLock()
	if idx, ok := r.index[key]; ok {
		s := r.slots[idx]
		r.mu.RUnlock()
		if s.placeholder != nil {
			return s.placeholder
		}
		return s.live
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.index[key]; ok {
		s := r.slots[idx]
		if s.placeholder != nil {
			return s.placeholder
		}
		return s.live
	}
	p := &Placeholder{kind: kind, state: Unresolved, name: strings.TrimLeft(name, resolver.Separator)}
	r.index[key] = len(r.slots)
	r.slots = append(r.slots, &slot{placeholder: p})
	return p
}

// peek is entry without the placeholder insertion. It returns nil for
// names never seen.
func (r *Registry) peek(kind SymbolKind, name string) any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.index[keyOf(kind, name)]
	if !ok {
		return nil
	}
	if s := r.slots[idx]; s.placeholder != nil {
		return s.placeholder
	}
	return r.slots[idx].live
}

func (r *Registry) has(kind SymbolKind, name string) bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.index[keyOf(kind, name)]
	if !ok {
		return false
	}
	s := r.slots[idx]
	return s.placeholder == nil || s.placeholder.state == Conflict
}

// Class returns the class-like registered under name, or a placeholder.
func (r *Registry) Class(name string) ClassLike {
	if r == nil {
		return &Placeholder{kind: SymbolClass, name: name}
	}
	return r.entry(SymbolClass, name).(ClassLike)
}

// HasClass reports whether name has been defined at least once.
func (r *Registry) HasClass(name string) bool { return r.has(SymbolClass, name) }

func (r *Registry) Function(name string) FunctionLike {
	if r == nil {
		return &Placeholder{kind: SymbolFunction, name: name}
	}
	return r.entry(SymbolFunction, name).(FunctionLike)
}

func (r *Registry) HasFunction(name string) bool { return r.has(SymbolFunction, name) }

func (r *Registry) Constant(name string) ConstantLike {
	if r == nil {
		return &Placeholder{kind: SymbolConstant, name: name}
	}
	return r.entry(SymbolConstant, name).(ConstantLike)
}

func (r *Registry) HasConstant(name string) bool { return r.has(SymbolConstant, name) }

// liveClass returns the registered *Class under name, or nil.
func (r *Registry) liveClass(name string) *Class {
	if r == nil || name == "" {
		return nil
	}
	c, _ := r.Class(name).(*Class)
	return c
}

func (r *Registry) Namespace(name string) (*Namespace, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ns, ok := r.namespaces[resolver.Key(name)]
	if !ok {
		return nil, errors.NewRuntime(errors.CodeDoesNotExist, name, "namespace does not exist")
	}
	return ns, nil
}

func (r *Registry) HasNamespace(name string) bool {
	_, err := r.Namespace(name)
	return err == nil
}

// Namespaces returns every namespace sorted by name.
func (r *Registry) Namespaces() []*Namespace {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Namespace, 0, len(r.namespaces))
	for _, ns := range r.namespaces {
		out = append(out, ns)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// File returns a registered file by path.
func (r *Registry) File(path string) (*File, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.files[path]
	if !ok {
		return nil, errors.NewRuntime(errors.CodeDoesNotExist, path, "file was not processed")
	}
	return f, nil
}

func (r *Registry) Files() []*File {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*File, 0, len(r.fileOrder))
	for _, name := range r.fileOrder {
		out = append(out, r.files[name])
	}
	return out
}

func (r *Registry) collect(kind SymbolKind, unresolved bool) []any {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []any
	for _, s := range r.slots {
		switch {
		case s.live != nil:
			if !unresolved && kindOf(s.live) == kind {
				out = append(out, s.live)
			}
		case s.placeholder.kind != kind:
		case (s.placeholder.state == Unresolved) == unresolved:
			out = append(out, s.placeholder)
		}
	}
	return out
}

func kindOf(def any) SymbolKind {
	switch def.(type) {
	case *Function:
		return SymbolFunction
	case *Constant:
		return SymbolConstant
	}
	return SymbolClass
}

// Classes lists every defined class-like, including conflicts, in
// registration order.
func (r *Registry) Classes() []ClassLike {
	all := r.collect(SymbolClass, false)
	out := make([]ClassLike, 0, len(all))
	for _, c := range all {
		out = append(out, c.(ClassLike))
	}
	return out
}

func (r *Registry) Functions() []FunctionLike {
	all := r.collect(SymbolFunction, false)
	out := make([]FunctionLike, 0, len(all))
	for _, f := range all {
		out = append(out, f.(FunctionLike))
	}
	return out
}

func (r *Registry) Constants() []ConstantLike {
	all := r.collect(SymbolConstant, false)
	out := make([]ConstantLike, 0, len(all))
	for _, c := range all {
		out = append(out, c.(ConstantLike))
	}
	return out
}

// Conflicts lists every name defined more than once.
func (r *Registry) Conflicts() []*Placeholder {
	var out []*Placeholder
	for _, kind := range []SymbolKind{SymbolClass, SymbolFunction, SymbolConstant} {
		for _, e := range r.collect(kind, false) {
			if p, ok := e.(*Placeholder); ok {
				out = append(out, p)
			}
		}
	}
	return out
}

// Unresolved lists every name that was looked up but never defined.
func (r *Registry) Unresolved() []*Placeholder {
	var out []*Placeholder
	for _, kind := range []SymbolKind{SymbolClass, SymbolFunction, SymbolConstant} {
		for _, e := range r.collect(kind, true) {
			out = append(out, e.(*Placeholder))
		}
	}
	return out
}

// lookup adapts the registry for the value evaluator.
func (r *Registry) lookup() value.Lookup {
	if r == nil {
		return nil
	}
	return registryLookup{r: r}
}

type registryLookup struct {
	r *Registry
}

// Constant resolves a top-level constant. A name that is not defined yet
// is incomplete.
func (l registryLookup) Constant(fqn string) (any, bool) {
	c, ok := l.r.peek(SymbolConstant, fqn).(*Constant)
	if !ok {
		l.r.recordMiss(SymbolConstant, fqn)
		return value.NotResolved, false
	}
	return c.evaluate()
}

// ClassConstant resolves class::name, composed members included.
func (l registryLookup) ClassConstant(class, name string) (any, bool) {
	c := l.r.liveClass(class)
	if c == nil {
		return value.NotResolved, false
	}
	k, err := c.Constant(name)
	if err != nil {
		return value.NotResolved, c.IsComplete()
	}
	return k.evaluate()
}
