package viewmodel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factview/internal/factgraph"
	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/query"
	"github.com/roach88/factview/internal/store"
	"github.com/roach88/factview/internal/testutil"
)

// owner holds the current store the way an observer would.
type owner struct {
	s *store.Store
}

func (o *owner) mutate(t store.Transformer) {
	o.s = t(o.s)
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	graph *factgraph.Graph
	root  ir.Fact
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		graph: factgraph.NewGraph(factgraph.WithLogger(testutil.DiscardLogger())),
		root:  testutil.Root("home"),
	}
	f.save(f.root)
	return f
}

func (f *fixture) save(facts ...ir.Fact) {
	f.t.Helper()
	require.NoError(f.t, f.graph.Save(f.ctx, facts...))
}

// start builds the initial snapshot for m and opens its watches.
func (f *fixture) start(m *Mapping) *owner {
	f.t.Helper()
	o := &owner{s: m.Initial(f.root)}
	hs := m.CreateWatches(RootWatch(f.graph, f.root), o.mutate)
	f.t.Cleanup(func() {
		for _, h := range hs {
			h.Stop()
		}
	})
	for _, h := range hs {
		require.NoError(f.t, h.Load(f.ctx))
	}
	return o
}

var (
	allNames     = query.Successors(testutil.TypeName, "root")
	currentNames = query.Current(testutil.TypeName, "root")
	liveItems    = query.Successors(testutil.TypeItem, "root").
			Where(query.NotExists(testutil.TypeItemDeleted, "item"))
	deletedItems = query.Successors(testutil.TypeItem, "root").
			Where(query.Exists(testutil.TypeItemDeleted, "item"))
	subItems    = query.Successors(testutil.TypeSubItem, "item")
	subSubItems = query.Successors(testutil.TypeSubSubItem, "subItem")
)

func itemMapping() *Mapping {
	subSubItem := MustDefine(
		Named("id", Field(FieldOf("id"))),
	)
	subItem := MustDefine(
		Named("createdAt", Field(FieldOf("createdAt"))),
		Named("subSubItems", Collection(subSubItems, subSubItem)),
	)
	return MustDefine(
		Named("hash", HashField()),
		Named("createdAt", Field(FieldOf("createdAt"))),
		Named("subItems", Collection(subItems, subItem, OrderBy(FieldOf("createdAt"), Ascending[string]()))),
		Named("madeUp", Projection(MustDefine(Named("key", HashField())))),
	)
}

func rootMapping() *Mapping {
	return MustDefine(
		Named("identifier", Field(FieldOf("identifier"))),
		Named("name", ResolvedProperty(currentNames, Last(FieldOf("value")), "")),
		Named("nameWithConflicts", MutableField(currentNames, Join(FieldOf("value"), ", "))),
		Named("items", Collection(liveItems, itemMapping())),
		Named("recycleBin", Projection(MustDefine(
			Named("deletedItems", Collection(deletedItems, itemMapping())),
		))),
	)
}

func TestInitialState(t *testing.T) {
	m := rootMapping()
	root := testutil.Root("home")

	s := m.Initial(root)

	assert.Equal(t, "home", s.Data["identifier"])
	assert.Equal(t, Mutable{Value: ""}, s.Data["nameWithConflicts"])
	assert.NotContains(t, s.Data, "items")
	require.Contains(t, s.Items, "items")
	assert.Empty(t, s.Items["items"])
	require.Len(t, s.Items["recycleBin"], 1, "projection exists from the start")
	assert.Equal(t, "", s.Items["recycleBin"][0].Hash)

	v := m.Value(s)
	assert.Equal(t, "", v["name"])
	assert.Equal(t, []Value{}, v["items"])
	assert.Equal(t, Value{"deletedItems": []Value{}}, v["recycleBin"])
	assert.Equal(t, []string{"identifier", "name", "nameWithConflicts", "items", "recycleBin"}, m.FieldNames())
}

func TestPropertyLastWriterWins(t *testing.T) {
	f := newFixture(t)
	m := MustDefine(Named("name", Property(allNames, FieldOf("value"), "(none)")))
	o := f.start(m)
	assert.Equal(t, "(none)", m.Value(o.s)["name"])

	f1 := testutil.Name(f.root, "Home")
	f.save(f1)
	assert.Equal(t, "Home", m.Value(o.s)["name"])

	f.save(testutil.Name(f.root, "Away"))
	assert.Equal(t, "Away", m.Value(o.s)["name"], "F2 does not supersede F1 but still wins")
}

func TestPropertyIgnoresRemoval(t *testing.T) {
	f := newFixture(t)
	m := MustDefine(Named("name", Property(currentNames, FieldOf("value"), "")))
	o := f.start(m)

	home := testutil.Name(f.root, "Home")
	f.save(home)
	f.save(testutil.Name(f.root, "Modified", home))
	assert.Equal(t, "Modified", m.Value(o.s)["name"])
}

func TestMutableCandidateSet(t *testing.T) {
	f := newFixture(t)
	m := rootMapping()
	o := f.start(m)

	home := testutil.Name(f.root, "Home")
	f.save(home)
	mv := m.Value(o.s)["nameWithConflicts"].(Mutable)
	assert.Equal(t, "Home", mv.Value)
	assert.Equal(t, 1, mv.Len())

	modified := testutil.Name(f.root, "Modified")
	f.save(modified)
	mv = m.Value(o.s)["nameWithConflicts"].(Mutable)
	assert.Equal(t, "Home, Modified", mv.Value)
	assert.Equal(t, []string{home.Hash, modified.Hash}, mv.Hashes(), "arrival order")
	assert.Equal(t, "Modified", m.Value(o.s)["name"])

	// Resolving the conflict supersedes both candidates.
	merged := testutil.Name(f.root, "Merged", Prior(mv)...)
	assert.Len(t, merged.PredecessorHashes("prior"), 2)
	f.save(merged)
	mv = m.Value(o.s)["nameWithConflicts"].(Mutable)
	assert.Equal(t, "Merged", mv.Value)
	assert.Equal(t, 1, mv.Len())
}

func TestResolvedPropertySupersession(t *testing.T) {
	f := newFixture(t)
	m := MustDefine(Named("name", ResolvedProperty(currentNames, Join(FieldOf("value"), ", "), "(none)")))
	o := f.start(m)

	home := testutil.Name(f.root, "Home")
	f.save(home)
	assert.Equal(t, "Home", m.Value(o.s)["name"])

	f.save(testutil.Name(f.root, "Modified", home))
	assert.Equal(t, "Modified", m.Value(o.s)["name"])
}

func TestResolvedPropertyFallsBackToInitial(t *testing.T) {
	f := newFixture(t)
	item := testutil.Item(f.root, "i1")
	f.save(item)
	m := MustDefine(Named("items", Collection(liveItems, MustDefine(
		Named("latestSub", ResolvedProperty(subItems, Last(FieldOf("createdAt")), "none")),
	))))
	o := f.start(m)
	items := m.Value(o.s)["items"].([]Value)
	require.Len(t, items, 1)
	assert.Equal(t, "none", items[0]["latestSub"])

	f.save(testutil.SubItem(item, "s1"))
	assert.Equal(t, "s1", m.Value(o.s)["items"].([]Value)[0]["latestSub"])
}

func TestCollectionAddRemove(t *testing.T) {
	f := newFixture(t)
	m := rootMapping()
	o := f.start(m)
	assert.Empty(t, store.GetItems(o.s, nil, "items"))

	item := testutil.Item(f.root, "2020-01-01")
	f.save(item)
	items := store.GetItems(o.s, nil, "items")
	require.Len(t, items, 1)
	assert.Equal(t, item.Hash, items[0].Hash)
	assert.Equal(t, "2020-01-01", store.GetData(o.s, store.Path{{Collection: "items", Hash: item.Hash}})["createdAt"])

	f.save(testutil.ItemDeleted(item))
	assert.Empty(t, store.GetItems(o.s, nil, "items"))

	deleted := m.Value(o.s)["recycleBin"].(Value)["deletedItems"].([]Value)
	require.Len(t, deleted, 1)
	assert.Equal(t, item.Hash, deleted[0]["hash"])
}

func TestNestedCollectionsAndProjection(t *testing.T) {
	f := newFixture(t)
	m := rootMapping()
	item := testutil.Item(f.root, "2020-01-01")
	late := testutil.SubItem(item, "2020-03-01")
	f.save(item, late)
	o := f.start(m)

	early := testutil.SubItem(item, "2020-02-01")
	f.save(early, testutil.SubSubItem(early, "reindeer flotilla"))

	items := m.Value(o.s)["items"].([]Value)
	require.Len(t, items, 1)
	v := items[0]
	assert.Equal(t, Value{"key": item.Hash}, v["madeUp"])

	subs := v["subItems"].([]Value)
	require.Len(t, subs, 2)
	assert.Equal(t, "2020-02-01", subs[0]["createdAt"], "sorted by createdAt, not arrival")
	assert.Equal(t, "2020-03-01", subs[1]["createdAt"])
	assert.Equal(t, []Value{{"id": "reindeer flotilla"}}, subs[0]["subSubItems"])
	assert.Equal(t, []Value{}, subs[1]["subSubItems"])
}

func TestUntouchedSubtreesAreShared(t *testing.T) {
	f := newFixture(t)
	m := rootMapping()
	i1 := testutil.Item(f.root, "i1")
	i2 := testutil.Item(f.root, "i2")
	f.save(i1, i2)
	o := f.start(m)

	before := o.s
	f.save(testutil.SubItem(i1, "s1"))

	p1 := store.Path{{Collection: "items", Hash: i1.Hash}}
	p2 := store.Path{{Collection: "items", Hash: i2.Hash}}
	assert.NotSame(t, store.GetItem(before, p1), store.GetItem(o.s, p1))
	assert.Same(t, store.GetItem(before, p2), store.GetItem(o.s, p2))
	assert.Same(t, before.Items["recycleBin"][0], o.s.Items["recycleBin"][0])
}

func TestOrderByProperty(t *testing.T) {
	f := newFixture(t)
	a := testutil.Item(f.root, "a")
	b := testutil.Item(f.root, "b")
	f.save(a, b)

	m := MustDefine(Named("items", Collection(liveItems,
		MustDefine(Named("createdAt", Field(FieldOf("createdAt")))),
		OrderByProperty(subItems, FieldOf("createdAt"), "", Ascending[string]()),
	)))
	o := f.start(m)
	order := func() []any {
		var out []any
		for _, v := range m.Value(o.s)["items"].([]Value) {
			out = append(out, v["createdAt"])
		}
		return out
	}
	assert.Equal(t, []any{"a", "b"}, order(), "equal initial keys keep arrival order")

	f.save(testutil.SubItem(a, "z"))
	assert.Equal(t, []any{"b", "a"}, order())

	f.save(testutil.SubItem(b, "zz"))
	assert.Equal(t, []any{"a", "b"}, order())
}

func TestWithKey(t *testing.T) {
	f := newFixture(t)
	item := testutil.Item(f.root, "2020-01-01")
	f.save(item)

	m := MustDefine(Named("items", Collection(liveItems,
		MustDefine(Named("hash", HashField())),
		WithKey(func(fact ir.Fact) string { return fact.StringField("createdAt") }),
	)))
	o := f.start(m)

	node := store.GetItem(o.s, store.Path{{Collection: "items", Hash: "2020-01-01"}})
	require.NotNil(t, node)
	assert.Equal(t, item.Hash, node.Data["hash"])
}

func TestWithKeySharedByLiveResults(t *testing.T) {
	f := newFixture(t)
	first := testutil.Item(f.root, "2020-01-01")
	second := testutil.Item(f.root, "2020-01-02")
	f.save(first, second)

	m := MustDefine(Named("items", Collection(liveItems,
		MustDefine(Named("hash", HashField())),
		WithKey(func(fact ir.Fact) string { return fact.Type }),
	)))
	o := f.start(m)

	items := store.GetItems(o.s, nil, "items")
	require.Len(t, items, 1)
	assert.Equal(t, first.Hash, items[0].Data["hash"], "first result creates the node")

	f.save(testutil.ItemDeleted(first))
	require.Len(t, store.GetItems(o.s, nil, "items"), 1, "node stays while a result holds the key")

	f.save(testutil.ItemDeleted(second))
	assert.Empty(t, store.GetItems(o.s, nil, "items"))
}

func TestValueOfNilNode(t *testing.T) {
	assert.Nil(t, rootMapping().Value(nil))
}
