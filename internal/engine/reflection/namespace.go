package reflection

import (
	"sort"

	"phpmodel/internal/engine/resolver"
)

// File is one parsed source file.
type File struct {
	Name   string
	Blocks []*NamespaceBlock
}

// Classes returns every class-like declared in the file in source order.
func (f *File) Classes() []*Class {
	var out []*Class
	for _, b := range f.Blocks {
		out = append(out, b.Classes...)
	}
	return out
}

func (f *File) Functions() []*Function {
	var out []*Function
	for _, b := range f.Blocks {
		out = append(out, b.Functions...)
	}
	return out
}

func (f *File) Constants() []*Constant {
	var out []*Constant
	for _, b := range f.Blocks {
		out = append(out, b.Constants...)
	}
	return out
}

// NamespaceBlock is one namespace declaration in one file, braced or not.
// The global code of a file is a block with an empty name.
type NamespaceBlock struct {
	Name      string
	File      string
	StartLine int
	EndLine   int
	Classes   []*Class
	Functions []*Function
	Constants []*Constant

	ctx *names
}

// Aliases returns the class imports of the block, keyed by alias.
func (b *NamespaceBlock) Aliases() map[string]string {
	return copyMap(b.ctx.aliases)
}

func (b *NamespaceBlock) FunctionAliases() map[string]string {
	return copyMap(b.ctx.funcAliases)
}

func (b *NamespaceBlock) ConstantAliases() map[string]string {
	return copyMap(b.ctx.constAliases)
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Namespace aggregates every block of one namespace across files.
type Namespace struct {
	name   string
	blocks []*NamespaceBlock
}

func (n *Namespace) Name() string { return n.name }

func (n *Namespace) Blocks() []*NamespaceBlock {
	return append([]*NamespaceBlock(nil), n.blocks...)
}

// Files lists the files that contribute to the namespace.
func (n *Namespace) Files() []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range n.blocks {
		if !seen[b.File] {
			seen[b.File] = true
			out = append(out, b.File)
		}
	}
	sort.Strings(out)
	return out
}

// ClassNames returns the fully qualified names of the namespace's classes.
func (n *Namespace) ClassNames() []string {
	var out []string
	for _, b := range n.blocks {
		for _, c := range b.Classes {
			out = append(out, c.name)
		}
	}
	return out
}

func (n *Namespace) FunctionNames() []string {
	var out []string
	for _, b := range n.blocks {
		for _, f := range b.Functions {
			out = append(out, f.name)
		}
	}
	return out
}

func (n *Namespace) ConstantNames() []string {
	var out []string
	for _, b := range n.blocks {
		for _, c := range b.Constants {
			out = append(out, c.name)
		}
	}
	return out
}

// HasClass reports whether the namespace declares a class with the given
// short name.
func (n *Namespace) HasClass(short string) bool {
	want := resolver.Key(resolver.Join(n.name, short))
	for _, name := range n.ClassNames() {
		if resolver.Key(name) == want {
			return true
		}
	}
	return false
}
