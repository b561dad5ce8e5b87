package annotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const methodDoc = `/**
 * Loads a record.
 * Spans two lines.
 *
 * The long description
 *
 * keeps paragraphs.
 *
 * @param int $id Record id
 * continued here
 * @param bool $strict
 * @return Record
 * @throws NotFound when {@*} appears
 */`

func TestParse(t *testing.T) {
	s := Parse(methodDoc)

	assert.Equal(t, "Loads a record.\nSpans two lines.", s.ShortDescription())
	assert.Equal(t, "The long description\n\nkeeps paragraphs.", s.LongDescription())
	assert.Equal(t, []string{"param", "return", "throws"}, s.Names())
	assert.Equal(t, []string{"int $id Record id\ncontinued here", "bool $strict"}, s.Get("param"))
	assert.Equal(t, []string{"Record"}, s.Get("return"))
	assert.Equal(t, []string{"NotFound when */ appears"}, s.Get("throws"))
	assert.True(t, s.Has(ShortDescription))
	assert.Equal(t, []string{"Loads a record.\nSpans two lines."}, s.Get(ShortDescription))
}

func TestParseEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		short string
		long  string
		tags  map[string][]string
	}{
		{name: "empty", doc: ""},
		{name: "single line", doc: "/** Doc. */", short: "Doc."},
		{name: "only tags", doc: "/**\n * @var int\n */", tags: map[string][]string{"var": {"int"}}},
		{name: "template start", doc: "/**#@+\n * @access private\n */", tags: map[string][]string{"access": {"private"}}},
		{name: "template end", doc: TemplateEnd},
		{name: "tag without value", doc: "/** @deprecated */", tags: map[string][]string{"deprecated": {""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Parse(tt.doc)
			assert.Equal(t, tt.short, s.ShortDescription())
			assert.Equal(t, tt.long, s.LongDescription())
			for name, values := range tt.tags {
				assert.Equal(t, values, s.Get(name))
			}
			if tt.tags == nil {
				assert.Empty(t, s.Names())
			}
		})
	}
}

func TestStackAndTemplateMerge(t *testing.T) {
	outer := "/**#@+\n * Outer short.\n *\n * Outer long.\n * @var int\n * @since 1.0\n */"
	inner := "/**#@+\n * Inner short.\n *\n * Inner long.\n * @var string\n */"
	var stack Stack
	stack.Push(outer)
	stack.Push(inner)

	own := "/**\n * Own short.\n *\n * Own long.\n *\n * @var bool\n */"
	merged := MergeTemplates(Parse(own), own, stack.Active())

	assert.Equal(t, "Own short.", merged.ShortDescription())
	assert.Equal(t, "Outer long.\nInner long.\nOwn long.", merged.LongDescription())
	assert.Equal(t, []string{"int", "string", "bool"}, merged.Get("var"))
	assert.Equal(t, []string{"1.0"}, merged.Get("since"))

	stack.Pop()
	require.Len(t, stack.Active(), 1)
	stack.Pop()
	stack.Pop()
	assert.Nil(t, stack.Active())
}

func TestTemplateNotMergedIntoItself(t *testing.T) {
	tpl := "/**#@+\n * @var int\n */"
	merged := MergeTemplates(Parse(tpl), tpl, []string{tpl})
	assert.Equal(t, []string{"int"}, merged.Get("var"))
	assert.True(t, IsTemplateStart(tpl))
	assert.True(t, IsTemplateEnd(" /**#@-*/ "))
}

func TestInheritLongDescriptionMarker(t *testing.T) {
	parent := Parse("/**\n * Base short.\n *\n * Base text.\n */")
	child := Parse("/**\n * Child short.\n *\n * {@inheritdoc}\n */")

	out := Inherit(child, Inheritance{Target: TargetMethod, Documented: true, Ancestors: []*Set{parent}})
	assert.Equal(t, "Base text.", out.LongDescription())
	assert.Equal(t, "Child short.", out.ShortDescription())
}

func TestInheritMarkerWithoutAncestorIsRemoved(t *testing.T) {
	child := Parse("/**\n * {@InheritDoc} Own.\n */")
	out := Inherit(child, Inheritance{Target: TargetClass, Documented: true})
	assert.Equal(t, "Own.", out.ShortDescription())
}

func TestInheritWholeSet(t *testing.T) {
	empty := NewSet()
	parent := Parse("/** Parent. */")
	iface := Parse("/** Interface. */")

	out := Inherit(NewSet(), Inheritance{Target: TargetClass, Ancestors: []*Set{empty, parent, iface}})
	assert.Equal(t, "Parent.", out.ShortDescription())
}

func TestInheritMethodTags(t *testing.T) {
	parent := Parse("/**\n * @param int $a first\n * @param int $b second\n * @param int $c third\n * @return int\n * @throws E\n */")
	child := Parse("/**\n * Child.\n * @param int $a mine\n */")

	out := Inherit(child, Inheritance{Target: TargetMethod, Documented: true, Params: 2, Ancestors: []*Set{parent}})
	assert.Equal(t, []string{"int $a mine", "int $b second"}, out.Get("param"))
	assert.Equal(t, []string{"int"}, out.Get("return"))
	assert.Equal(t, []string{"E"}, out.Get("throws"))
}

func TestInheritPropertyVar(t *testing.T) {
	parent := Parse("/** @var string */")
	child := Parse("/** Child property. */")

	out := Inherit(child, Inheritance{Target: TargetProperty, Documented: true, Ancestors: []*Set{NewSet(), parent}})
	assert.Equal(t, []string{"string"}, out.Get("var"))
}

func TestCopyDocAndFillMissing(t *testing.T) {
	s := Parse("/**\n * @copydoc Foo::bar() extra\n * @return int\n */")
	assert.Equal(t, []string{"Foo::bar()"}, s.CopyDocTargets())

	src := Parse("/**\n * Source.\n * @return string\n * @since 2\n */")
	s.FillMissing(src)
	assert.Equal(t, "Source.", s.ShortDescription())
	assert.Equal(t, []string{"int"}, s.Get("return"))
	assert.Equal(t, []string{"2"}, s.Get("since"))

	s.Delete("copydoc")
	assert.False(t, s.Has("copydoc"))
	assert.False(t, s.Deprecated())
}
