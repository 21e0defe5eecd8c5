package viewmodel

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/query"
	"github.com/roach88/factview/internal/store"
	"github.com/roach88/factview/internal/testutil"
)

func declCodes(t *testing.T, err error) []string {
	t.Helper()
	require.Error(t, err)
	var codes []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var de *DeclarationError
		require.True(t, errors.As(e, &de), "unexpected error %v", e)
		codes = append(codes, de.Code)
	}
	return codes
}

func TestDefineRejectsMisuse(t *testing.T) {
	_, err := Define(
		Named("", HashField()),
		Named("a", HashField()),
		Named("a", HashField()),
		Named("b", nil),
		Named("c", Collection(liveItems, nil)),
		Named("d", Property(query.Query{}, FieldOf("x"), nil)),
		Named("e", Field(nil)),
		Named("f", MutableField(allNames, nil)),
		Named("g", Projection(nil)),
	)

	assert.Equal(t, []string{
		CodeEmptyName,
		CodeDuplicateName,
		CodeNilDeclaration,
		CodeNilMapping,
		CodeInvalidQuery,
		CodeNilSelector,
		CodeNilResolver,
		CodeNilMapping,
	}, declCodes(t, err))
}

func TestDeclarationErrorUnwrapsQueryError(t *testing.T) {
	_, err := Define(Named("name", Property(query.Successors("", "root"), FieldOf("value"), "")))

	var qe query.ValidationError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, query.CodeMissingType, qe.Code)
	assert.Contains(t, err.Error(), `D105: field "name"`)
}

func TestDefineValidatesOrderBy(t *testing.T) {
	m := MustDefine(Named("id", HashField()))
	_, err := Define(
		Named("a", Collection(liveItems, m, OrderBy(nil, Ascending[string]()))),
		Named("b", Collection(liveItems, m, OrderByProperty(query.Query{}, FieldOf("x"), "", nil))),
	)
	assert.Equal(t, []string{CodeNilSelector, CodeInvalidQuery}, declCodes(t, err))
}

func TestMustDefinePanics(t *testing.T) {
	assert.Panics(t, func() {
		MustDefine(Named("a", HashField()), Named("a", HashField()))
	})
}

func TestMappingField(t *testing.T) {
	m := rootMapping()

	d, ok := m.Field("items")
	require.True(t, ok)
	assert.Equal(t, KindCollection, d.Kind())
	assert.Equal(t, "collection", d.Kind().String())

	_, ok = m.Field("nope")
	assert.False(t, ok)

	kinds := map[string]Kind{}
	for _, name := range m.FieldNames() {
		d, _ := m.Field(name)
		kinds[name] = d.Kind()
	}
	assert.Equal(t, map[string]Kind{
		"identifier":        KindField,
		"name":              KindResolvedProperty,
		"nameWithConflicts": KindMutable,
		"items":             KindCollection,
		"recycleBin":        KindProjection,
	}, kinds)
}

func TestInitialItemsAtNestedPath(t *testing.T) {
	item := testutil.Item(testutil.Root("home"), "x")
	path := store.Path{{Collection: "items", Hash: item.Hash}}

	items := itemMapping().InitialItems(item, path)

	assert.Empty(t, items["subItems"])
	require.Len(t, items["madeUp"], 1)
	assert.Equal(t, store.Data{"key": item.Hash}, items["madeUp"][0].Data)
}

func TestComparers(t *testing.T) {
	keys := []any{"b", 3, "a", nil, "c"}

	asc := slices.Clone(keys)
	slices.SortStableFunc(asc, Ascending[string]())
	assert.Equal(t, []any{"a", "b", "c", 3, nil}, asc)

	desc := slices.Clone(keys)
	slices.SortStableFunc(desc, Descending[string]())
	assert.Equal(t, []any{"c", "b", "a", 3, nil}, desc)

	ints := []any{int64(2), int64(10), int64(1)}
	slices.SortStableFunc(ints, Descending[int64]())
	assert.Equal(t, []any{int64(10), int64(2), int64(1)}, ints)
}

func TestResolvers(t *testing.T) {
	root := testutil.Root("home")
	a := testutil.Name(root, "A")
	b := testutil.Name(root, "B")

	assert.Equal(t, "A, B", Join(FieldOf("value"), ", ")([]ir.Fact{a, b}))
	assert.Equal(t, "", Join(FieldOf("value"), ", ")(nil))
	assert.Equal(t, "B", Last(FieldOf("value"))([]ir.Fact{a, b}))
	assert.Nil(t, Last(FieldOf("value"))(nil))
}

func TestMutableIsPersistent(t *testing.T) {
	root := testutil.Root("home")
	a := testutil.Name(root, "A")
	b := testutil.Name(root, "B")
	join := Join(FieldOf("value"), "+")

	m0 := Mutable{}
	m1 := m0.with(a, join)
	m2 := m1.with(b, join)
	m3 := m2.with(a, join)
	m4 := m2.without(a.Hash, join)

	assert.Equal(t, 0, m0.Len())
	assert.Equal(t, "A", m1.Value)
	assert.Equal(t, "A+B", m2.Value)
	assert.Equal(t, m2, m3, "duplicate candidate is ignored")
	assert.Equal(t, "B", m4.Value)
	assert.Equal(t, 2, m2.Len(), "removal does not touch earlier revisions")
	assert.Equal(t, m4, m4.without("missing", join))
	assert.Equal(t, []ir.Fact{a, b}, Prior(m2))
}
