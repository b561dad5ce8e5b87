package reflection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phpmodel/internal/core/errors"
	"phpmodel/internal/engine/value"
)

func load(t *testing.T, r *Registry, path, src string) *File {
	t.Helper()
	f, err := r.ParseSource(path, []byte(src))
	require.NoError(t, err, "parse %s", path)
	return f
}

func mustClass(t *testing.T, r *Registry, name string) *Class {
	t.Helper()
	c, ok := r.Class(name).(*Class)
	require.True(t, ok, "class %s is not registered, got %T", name, r.Class(name))
	return c
}

func mustMethod(t *testing.T, c *Class, name string) *Method {
	t.Helper()
	m, err := c.Method(name)
	require.NoError(t, err)
	return m
}

func methodNames(methods []*Method) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		out = append(out, m.Name())
	}
	return out
}

func parseFailure(t *testing.T, src string) error {
	t.Helper()
	r := NewRegistry()
	_, err := r.ParseSource("bad.php", []byte(src))
	require.Error(t, err)
	assert.True(t, errors.IsParse(err), "expected a parse error, got %T: %v", err, err)
	assert.Empty(t, r.Files(), "a failed file registers nothing")
	return err
}

func TestParseNamespaceBlocks(t *testing.T) {
	r := NewRegistry()
	f := load(t, r, "ns.php", `<?php
namespace A;
class X {}
namespace B;
class Y {}
function helper() {}
`)
	require.Len(t, f.Blocks, 2)
	assert.Equal(t, "A", f.Blocks[0].Name)
	assert.Equal(t, "B", f.Blocks[1].Name)
	assert.Equal(t, 2, f.Blocks[0].StartLine)
	assert.Equal(t, 3, f.Blocks[0].EndLine)

	x := mustClass(t, r, `A\X`)
	assert.Equal(t, "X", x.ShortName())
	assert.Equal(t, "A", x.NamespaceName())
	assert.True(t, x.InNamespace())
	assert.True(t, r.HasClass(`b\y`), "class lookups are case-insensitive")
	assert.True(t, r.HasFunction(`B\helper`))
	assert.False(t, r.HasFunction("helper"))
	assert.True(t, r.HasNamespace("B"))
}

func TestParseBracedNamespaces(t *testing.T) {
	r := NewRegistry()
	f := load(t, r, "braced.php", `<?php
namespace A {
    class X {}
}
namespace {
    function g() {}
}
`)
	require.Len(t, f.Blocks, 2)
	assert.Equal(t, "A", f.Blocks[0].Name)
	assert.Equal(t, "", f.Blocks[1].Name)
	assert.True(t, r.HasClass(`A\X`))
	assert.True(t, r.HasFunction("g"))
}

func TestParseImports(t *testing.T) {
	r := NewRegistry()
	f := load(t, r, "uses.php", `<?php
namespace App\Mod;

use App\Foo;
use Other\Thing as T;
use function Lib\helper;
use const Lib\LIMIT;
use Grp\{Alpha, Beta as B2};

class X extends Foo implements T, Alpha {}
`)
	block := f.Blocks[0]
	assert.Equal(t, map[string]string{
		"Foo":   `App\Foo`,
		"T":     `Other\Thing`,
		"Alpha": `Grp\Alpha`,
		"B2":    `Grp\Beta`,
	}, block.Aliases())
	assert.Equal(t, map[string]string{"helper": `Lib\helper`}, block.FunctionAliases())
	assert.Equal(t, map[string]string{"LIMIT": `Lib\LIMIT`}, block.ConstantAliases())

	x := mustClass(t, r, `App\Mod\X`)
	assert.Equal(t, `App\Foo`, x.ParentClassName())
	assert.Equal(t, []string{`Other\Thing`, `Grp\Alpha`}, x.OwnInterfaceNames())
}

func TestParseDuplicateImportAlias(t *testing.T) {
	err := parseFailure(t, `<?php
use A\Foo;
use B\Foo;
`)
	assert.True(t, errors.IsCode(err, errors.CodeAlreadyExists))
}

func TestParseSkipsClosuresAndAnonymousClasses(t *testing.T) {
	r := NewRegistry()
	f := load(t, r, "skip.php", `<?php
$f = function ($x) use ($y) {
    function inner() {}
};
$o = new class {
    public function x() {}
};
$name = Foo::class;
$fn = fn($a) => $a;
function outer() {}
`)
	require.Len(t, f.Functions(), 1)
	assert.Equal(t, "outer", f.Functions()[0].Name())
	assert.Empty(t, f.Classes())
	assert.False(t, r.HasFunction("inner"))
	assert.False(t, r.HasFunction("x"))
}

func TestParseConditionalDeclarations(t *testing.T) {
	r := NewRegistry()
	load(t, r, "cond.php", `<?php
if (!function_exists('f')) {
    function f() {}
}
if (true) {
    class Late {}
}
`)
	assert.True(t, r.HasFunction("f"))
	assert.True(t, r.HasClass("Late"))
}

func TestParseHaltCompiler(t *testing.T) {
	r := NewRegistry()
	load(t, r, "halt.php", `<?php
function before() {}
__halt_compiler();
class After {}
`)
	assert.True(t, r.HasFunction("before"))
	assert.False(t, r.HasClass("After"))
}

func TestParseDefine(t *testing.T) {
	r := NewRegistry()
	load(t, r, "define.php", `<?php
namespace App;
define('GREETING', 'hi');
define('App\LEVEL', 2 + 3);
const LOCAL = GREETING . '!';
`)
	greeting, ok := r.Constant("GREETING").(*Constant)
	require.True(t, ok)
	assert.Equal(t, "hi", greeting.Value())

	level, ok := r.Constant(`App\LEVEL`).(*Constant)
	require.True(t, ok)
	assert.Equal(t, int64(5), level.Value())

	local, ok := r.Constant(`App\LOCAL`).(*Constant)
	require.True(t, ok)
	assert.Equal(t, "LOCAL", local.ShortName())
	assert.Equal(t, "App", local.NamespaceName())
	assert.Equal(t, "hi!", local.Value())
	assert.True(t, local.IsValueComplete())
}

func TestParseDocBeforeAttributes(t *testing.T) {
	r := NewRegistry()
	load(t, r, "attrs.php", `<?php
namespace App;

/** Doc for C. */
#[Entity]
#[Table('c')]
final class C {}

/** Doc for f. */
#[Pure] function f() {}

/** Doc for LIMIT. */
#[Deprecated]
const LIMIT = 3;

#[Entity]
class Plain {}
`)
	assert.Equal(t, "/** Doc for C. */", mustClass(t, r, `App\C`).DocComment())
	assert.Equal(t, "", mustClass(t, r, `App\Plain`).DocComment())

	fn, ok := r.Function(`App\f`).(*Function)
	require.True(t, ok)
	assert.Equal(t, "/** Doc for f. */", fn.DocComment())

	limit, ok := r.Constant(`App\LIMIT`).(*Constant)
	require.True(t, ok)
	assert.Equal(t, "/** Doc for LIMIT. */", limit.DocComment())
	assert.Equal(t, int64(3), limit.Value())
}

func TestParseClassMembers(t *testing.T) {
	r := NewRegistry()
	load(t, r, "members.php", `<?php
/** Doc for Shape. */
abstract class Shape
{
    const SIDES = 0;
    public static $count = 1, $other;
    $inherited;
    protected ?string $label = null;

    abstract public function area(): float;

    final protected static function &make(int $a, ?Shape $b = null, &$c = [], string ...$rest) {
        static $n = 0, $m;
        $g = function () { static $inner = 5; };
    }
}
`)
	c := mustClass(t, r, "Shape")
	assert.Equal(t, "/** Doc for Shape. */", c.DocComment())
	assert.Equal(t, 3, c.StartLine())
	assert.Equal(t, 16, c.EndLine())
	assert.True(t, c.IsAbstract())
	assert.False(t, c.IsInstantiable())
	assert.Equal(t, "Doc for Shape.", c.ShortDescription())

	count, err := c.Property("count")
	require.NoError(t, err)
	assert.True(t, count.IsStatic())
	assert.True(t, count.IsPublic())
	assert.Equal(t, int64(1), count.DefaultValue())

	inherited, err := c.Property("inherited")
	require.NoError(t, err)
	assert.True(t, inherited.IsStatic(), "modifiers carry over from the previous property")

	label, err := c.Property("label")
	require.NoError(t, err)
	assert.True(t, label.IsProtected())
	assert.Equal(t, "?string", label.TypeHint())
	assert.Nil(t, label.DefaultValue())

	area := mustMethod(t, c, "area")
	assert.True(t, area.IsAbstract())
	assert.Equal(t, "float", area.ReturnType())

	factory := mustMethod(t, c, "make")
	assert.True(t, factory.IsFinal())
	assert.True(t, factory.IsStatic())
	assert.True(t, factory.IsProtected())
	assert.True(t, factory.ReturnsReference())
	assert.Equal(t, 4, factory.NumberOfParameters())
	assert.Equal(t, 1, factory.NumberOfRequiredParameters())
	assert.True(t, factory.IsVariadic())

	params := factory.Parameters()
	assert.Equal(t, "int", params[0].TypeHint())
	assert.False(t, params[0].IsOptional())
	assert.Empty(t, params[0].ClassName())

	assert.Equal(t, "Shape", params[1].ClassName())
	assert.True(t, params[1].AllowsNull())
	assert.True(t, params[1].IsOptional())
	assert.Equal(t, "null", params[1].DefaultValueDefinition())

	assert.True(t, params[2].IsPassedByReference())
	def, err := params[2].DefaultValue()
	require.NoError(t, err)
	arr, ok := def.(*value.Array)
	require.True(t, ok)
	assert.Equal(t, 0, arr.Len())

	assert.True(t, params[3].IsVariadic())
	_, err = params[3].DefaultValue()
	assert.True(t, errors.IsCode(err, errors.CodeDoesNotExist))

	assert.Equal(t, map[string]any{"n": int64(0), "m": nil}, factory.StaticVariables())

	sides, err := c.ConstantValue("SIDES")
	require.NoError(t, err)
	assert.Equal(t, int64(0), sides)
}

func TestParsePromotedProperties(t *testing.T) {
	r := NewRegistry()
	load(t, r, "promoted.php", `<?php
class Point {
    public function __construct(private int $x = 0, protected readonly int $y = 0, $plain = 1) {}
}
`)
	c := mustClass(t, r, "Point")
	x, err := c.Property("x")
	require.NoError(t, err)
	assert.True(t, x.IsPrivate())
	y, err := c.Property("y")
	require.NoError(t, err)
	assert.True(t, y.IsReadonly())
	assert.False(t, c.HasProperty("plain"))

	ctor := c.Constructor()
	require.NotNil(t, ctor)
	assert.True(t, ctor.Parameters()[0].IsPromoted())
	assert.False(t, ctor.Parameters()[2].IsPromoted())
}

func TestParseTemplates(t *testing.T) {
	r := NewRegistry()
	load(t, r, "templates.php", `<?php
class Legacy {
    /**#@+
     * @access private
     */
    /** First. */
    var $a;
    /** Second. */
    var $b;
    /**#@-*/
    /** Third. */
    var $c;
}
`)
	c := mustClass(t, r, "Legacy")
	a, err := c.Property("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"private"}, a.Annotations().Get("access"))
	assert.Equal(t, "First.", a.ShortDescription())

	b, err := c.Property("b")
	require.NoError(t, err)
	assert.Equal(t, []string{"private"}, b.Annotations().Get("access"))

	third, err := c.Property("c")
	require.NoError(t, err)
	assert.False(t, third.Annotations().Has("access"))
	assert.Equal(t, "Third.", third.ShortDescription())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code errors.ErrorCode
	}{
		{"duplicate method", `<?php class A { function m() {} function M() {} }`, errors.CodeAlreadyExists},
		{"duplicate property", `<?php class A { public $p; public $p; }`, errors.CodeAlreadyExists},
		{"duplicate constant", `<?php class A { const X = 1, X = 2; }`, errors.CodeAlreadyExists},
		{"duplicate parameter", `<?php function f($a, $a) {}`, errors.CodeAlreadyExists},
		{"self extension", `<?php class A extends A {}`, errors.CodeInvalidParent},
		{"property without modifiers", `<?php class A { $p; }`, errors.CodeLogicalError},
		{"final interface", `<?php final interface I {}`, errors.CodeLogicalError},
		{"abstract final method", `<?php abstract class A { abstract final function m(); }`, errors.CodeLogicalError},
		{"two visibilities", `<?php class A { public private function m() {} }`, errors.CodeLogicalError},
		{"promotion outside constructor", `<?php class A { function m(private $x) {} }`, errors.CodeLogicalError},
		{"missing method name", `<?php class A { public function }`, errors.CodeUnexpectedToken},
		{"unterminated class", `<?php class A { public $p;`, errors.CodeUnexpectedToken},
		{"insteadof without trait", `<?php class A { use T, U { m insteadof U; } }`, errors.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := parseFailure(t, tt.src)
			assert.True(t, errors.IsCode(err, tt.code), "expected %s, got %v", tt.code, err)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	err := parseFailure(t, "<?php\n\nclass A extends A {}\n")
	var perr *errors.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "bad.php", perr.File)
	assert.Equal(t, 3, perr.Line)
}
