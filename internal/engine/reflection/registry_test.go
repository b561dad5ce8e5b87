package reflection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phpmodel/internal/core/errors"
)

func TestDuplicateFunctionBecomesConflict(t *testing.T) {
	r := NewRegistry()
	load(t, r, "f1.php", `<?php
function f() {}
function g() {}
`)
	load(t, r, "f2.php", `<?php
function f() {}
function h() {}
`)

	p, ok := r.Function("f").(*Placeholder)
	require.True(t, ok, "a redefined function is replaced by a placeholder")
	assert.True(t, p.IsConflict())
	assert.Equal(t, Conflict, p.State())
	assert.Equal(t, "f1.php", p.FirstFile())
	require.Len(t, p.Reasons(), 1)
	assert.True(t, errors.IsCode(p.Reasons()[0], errors.CodeAlreadyExists))
	assert.True(t, r.HasFunction("f"), "a conflicting name still counts as defined")

	_, ok = r.Function("g").(*Function)
	assert.True(t, ok)
	_, ok = r.Function("h").(*Function)
	assert.True(t, ok)

	conflicts := r.Conflicts()
	require.Len(t, conflicts, 1)
	assert.Equal(t, "f", conflicts[0].Name())

	load(t, r, "f3.php", `<?php
function F() {}
`)
	assert.Len(t, p.Reasons(), 2, "each further definition adds a reason")
}

func TestDuplicateClassBecomesConflict(t *testing.T) {
	r := NewRegistry()
	load(t, r, "a.php", `<?php
class Dup {}
class Child extends Dup {}
`)
	child := mustClass(t, r, "Child")
	assert.True(t, child.IsValid())

	load(t, r, "b.php", `<?php
class dup {}
`)
	p, ok := r.Class("Dup").(*Placeholder)
	require.True(t, ok)
	assert.Equal(t, "a.php", p.FirstFile())
	assert.False(t, child.IsValid(), "a conflicting ancestor invalidates the class")

	_, err := p.Method("anything")
	assert.True(t, errors.IsCode(err, errors.CodeDoesNotExist))
	assert.Empty(t, p.Annotations().All())
}

func TestUnresolvedPlaceholder(t *testing.T) {
	r := NewRegistry()
	p, ok := r.Class(`App\Missing`).(*Placeholder)
	require.True(t, ok)
	assert.Equal(t, Unresolved, p.State())
	assert.Equal(t, "Missing", p.ShortName())
	assert.Equal(t, "App", p.NamespaceName())
	assert.False(t, p.IsTokenized())
	assert.False(t, r.HasClass(`App\Missing`))
	assert.Same(t, p, r.Class(`app\missing`), "lookups return the same placeholder")

	load(t, r, "missing.php", `<?php
namespace App;
class Missing {}
`)
	assert.True(t, r.HasClass(`App\Missing`))
	_, ok = r.Class(`App\Missing`).(*Class)
	assert.True(t, ok, "a definition replaces the placeholder")
	assert.Empty(t, r.Conflicts())
}

func TestConstantLookupDoesNotCreatePlaceholders(t *testing.T) {
	r := NewRegistry()
	load(t, r, "const.php", `<?php
const A = B + 1;
`)
	a, ok := r.Constant("A").(*Constant)
	require.True(t, ok)
	assert.False(t, a.IsValueComplete())
	assert.Empty(t, r.Unresolved())

	load(t, r, "b.php", `<?php
const B = 2;
`)
	assert.True(t, a.IsValueComplete())
	assert.Equal(t, int64(3), a.Value())
}

func TestSelfReferencingConstant(t *testing.T) {
	r := NewRegistry()
	load(t, r, "loop.php", `<?php
const X = Y;
const Y = X;
`)
	x, ok := r.Constant("X").(*Constant)
	require.True(t, ok)
	assert.NotPanics(t, func() { x.Value() })
}

func TestRegistryFiles(t *testing.T) {
	r := NewRegistry()
	load(t, r, "one.php", `<?php namespace A; class X {}`)
	load(t, r, "two.php", `<?php namespace A; function y() {}`)

	_, err := r.ParseSource("one.php", []byte(`<?php class Other {}`))
	assert.True(t, errors.IsCode(err, errors.CodeAlreadyExists))

	files := r.Files()
	require.Len(t, files, 2)
	assert.Equal(t, "one.php", files[0].Name)
	assert.Equal(t, "two.php", files[1].Name)

	_, err = r.File("three.php")
	assert.True(t, errors.IsCode(err, errors.CodeDoesNotExist))

	ns, err := r.Namespace("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"one.php", "two.php"}, ns.Files())
	assert.Equal(t, []string{`A\X`}, ns.ClassNames())
	assert.Equal(t, []string{`A\y`}, ns.FunctionNames())
	assert.True(t, ns.HasClass("x"))

	_, err = r.Namespace("Nope")
	assert.Error(t, err)
}

func TestRegisterOutsideFilePass(t *testing.T) {
	r := NewRegistry()
	f, err := r.ParseSource("seed.php", []byte(`<?php class Seed {} function seed() {}`))
	require.NoError(t, err)

	other := NewRegistry()
	other.RegisterClass(f.Classes()[0])
	other.RegisterFunction(f.Functions()[0])
	assert.True(t, other.HasClass("Seed"))
	assert.True(t, other.HasFunction("seed"))
}
