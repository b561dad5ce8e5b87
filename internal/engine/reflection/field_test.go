package reflection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phpmodel/internal/core/errors"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		in       string
		expected Field
	}{
		{"name", FieldName},
		{"short_name", FieldShortName},
		{"shortName", FieldShortName},
		{"DOC-COMMENT", FieldDocComment},
		{"declaring_trait", FieldDeclaringTrait},
	}
	for _, tt := range tests {
		f, err := ParseField(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.expected, f, tt.in)
	}

	_, err := ParseField("colour")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))

	for _, f := range Fields() {
		parsed, err := ParseField(f.String())
		require.NoError(t, err)
		assert.Equal(t, f, parsed)
	}
}

func TestLookup(t *testing.T) {
	r := NewRegistry()
	load(t, r, "lookup.php", `<?php
namespace Shop;

/** A cart. */
final class Cart {
    const MAX = 3 * 4;
    const LABEL = MISSING_CONSTANT;
    public $items = [];

    public function add(Item $item, int $qty = 1): void {}
}
`)
	cart := mustClass(t, r, `Shop\Cart`)

	tests := []struct {
		field    Field
		expected any
	}{
		{FieldName, `Shop\Cart`},
		{FieldShortName, "Cart"},
		{FieldNamespace, "Shop"},
		{FieldFile, "lookup.php"},
		{FieldStartLine, 5},
		{FieldKind, "class"},
		{FieldComplete, true},
		{FieldMethods, []string{"add"}},
		{FieldProperties, []string{"items"}},
		{FieldConstants, map[string]any{"MAX": int64(12), "LABEL": "<not resolved>"}},
	}
	for _, tt := range tests {
		got, err := Lookup(cart, tt.field)
		require.NoError(t, err, tt.field.String())
		assert.Equal(t, tt.expected, got, tt.field.String())
	}

	mods, err := Lookup(cart, FieldModifiers)
	require.NoError(t, err)
	assert.NotZero(t, mods.(int)&ModFinalClass)

	ann, err := Lookup(cart, FieldAnnotations)
	require.NoError(t, err)
	assert.Contains(t, ann, " short_description")

	_, err = Lookup(cart, FieldPrototype)
	assert.True(t, errors.IsCode(err, errors.CodeUnsupported))

	add := mustMethod(t, cart, "add")
	params, err := Lookup(add, FieldParameters)
	require.NoError(t, err)
	assert.Equal(t, []string{"$item", "$qty"}, params)

	ret, err := Lookup(add, FieldReturnType)
	require.NoError(t, err)
	assert.Equal(t, "void", ret)

	qty, err := add.Parameter("qty")
	require.NoError(t, err)
	def, err := Lookup(qty, FieldDefault)
	require.NoError(t, err)
	assert.Equal(t, int64(1), def)

	item, err := add.Parameter("item")
	require.NoError(t, err)
	assert.Equal(t, `Shop\Item`, item.ClassName())
	_, err = Lookup(item, FieldDefault)
	assert.True(t, errors.IsCode(err, errors.CodeDoesNotExist))

	_, err = Lookup(nil, FieldName)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))
	_, err = Lookup("cart", FieldName)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidArgument))
}

func TestLookupPlaceholder(t *testing.T) {
	r := NewRegistry()
	p := r.Class(`Shop\Ghost`)
	kind, err := Lookup(p, FieldKind)
	require.NoError(t, err)
	assert.Equal(t, "unresolved class", kind)

	_, err = Lookup(p, FieldMethods)
	assert.True(t, errors.IsCode(err, errors.CodeUnsupported))
}
