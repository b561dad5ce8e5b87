package reflection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inheritSource = `<?php
/**
 * Base summary.
 *
 * Base text.
 */
class Base {
    /**
     * Runs the job.
     *
     * Base text.
     *
     * @param int $a first
     * @param int $b second
     * @return bool
     * @throws RuntimeException
     */
    public function run($a, $b) {}

    /**
     * Parent only.
     * @return string
     */
    public function undocumented() {}

    /** @var int counter */
    protected $count;
}

/**
 * Child summary.
 *
 * {@inheritdoc}
 */
class Child extends Base {
    /**
     * Child run.
     *
     * {@inheritdoc}
     *
     * @param string $a overridden
     */
    public function run($a, $b) {}

    public function undocumented() {}

    /** Child count. */
    protected $count;
}
`

func TestInheritDocReplacesMarker(t *testing.T) {
	r := NewRegistry()
	load(t, r, "inherit.php", inheritSource)
	child := mustClass(t, r, "Child")

	assert.Equal(t, "Child summary.", child.ShortDescription())
	assert.Equal(t, "Base text.", child.LongDescription())

	run := mustMethod(t, child, "run")
	assert.Equal(t, "Child run.", run.ShortDescription())
	assert.Equal(t, "Base text.", run.LongDescription())
}

func TestInheritedTagsFillGaps(t *testing.T) {
	r := NewRegistry()
	load(t, r, "inherit.php", inheritSource)
	child := mustClass(t, r, "Child")

	run := mustMethod(t, child, "run")
	ann := run.Annotations()
	assert.Equal(t, []string{"string $a overridden", "int $b second"}, ann.Get("param"))
	assert.Equal(t, []string{"bool"}, ann.Get("return"))
	assert.Equal(t, []string{"RuntimeException"}, ann.Get("throws"))

	undocumented := mustMethod(t, child, "undocumented")
	assert.Equal(t, "Parent only.", undocumented.ShortDescription(), "a method without a docblock takes the parent's")
	assert.Equal(t, []string{"string"}, undocumented.Annotations().Get("return"))

	count, err := child.Property("count")
	require.NoError(t, err)
	assert.Equal(t, "Child count.", count.ShortDescription())
	assert.Equal(t, []string{"int counter"}, count.Annotations().Get("var"))
}

func TestAnnotationsAreCopies(t *testing.T) {
	r := NewRegistry()
	load(t, r, "inherit.php", inheritSource)
	child := mustClass(t, r, "Child")

	ann := child.Annotations()
	ann.SetShortDescription("changed")
	assert.Equal(t, "Child summary.", child.ShortDescription())
}

func TestInterfaceDocsAreInherited(t *testing.T) {
	r := NewRegistry()
	load(t, r, "iface.php", `<?php
interface Greeter {
    /**
     * Says hello.
     * @param string $name who
     */
    function greet($name);
}
class Impl implements Greeter {
    public function greet($name) {}
}
`)
	greet := mustMethod(t, mustClass(t, r, "Impl"), "greet")
	assert.Equal(t, "Says hello.", greet.ShortDescription())
	assert.Equal(t, []string{"string $name who"}, greet.Annotations().Get("param"))
}

func TestCopyDoc(t *testing.T) {
	r := NewRegistry()
	load(t, r, "copydoc.php", `<?php
namespace Lib;

/**
 * Original text.
 * @return string
 */
function orig() {}

/**
 * @copydoc orig()
 */
function copied() {}

class Source {
    /** Constant doc. */
    const LIMIT = 10;

    /**
     * Method doc.
     * @deprecated
     */
    public function old() {}
}

class Target {
    /** @copydoc Source::LIMIT */
    const LIMIT = 20;

    /** @copydoc Source::old() */
    public function replacement() {}
}
`)
	copied, ok := r.Function(`Lib\copied`).(*Function)
	require.True(t, ok)
	assert.Equal(t, "Original text.", copied.ShortDescription())
	assert.True(t, copied.Annotations().Has("return"))

	target := mustClass(t, r, `Lib\Target`)
	limit, err := target.Constant("LIMIT")
	require.NoError(t, err)
	assert.Equal(t, "Constant doc.", limit.ShortDescription())

	replacement := mustMethod(t, target, "replacement")
	assert.Equal(t, "Method doc.", replacement.ShortDescription())
	assert.True(t, replacement.IsDeprecated())
}

func TestCopyDocCycleTerminates(t *testing.T) {
	r := NewRegistry()
	load(t, r, "cycle.php", `<?php
/** @copydoc b() */
function a() {}
/** @copydoc a() */
function b() {}
`)
	a, ok := r.Function("a").(*Function)
	require.True(t, ok)
	assert.NotPanics(t, func() { a.Annotations() })
	assert.Empty(t, a.ShortDescription())
}
