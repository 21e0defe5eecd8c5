package store

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intCmp(a, b any) int {
	return cmp.Compare(a.(int), b.(int))
}

// fixture builds:
//
//	root
//	  items: [a (1), b (2)]
//	    a.subItems: [a1]
//	  other: [x]
func fixture() *Store {
	a1 := NewItem("a1", nil, Data{"id": "a1"}, nil)
	a := NewItem("a", 1, Data{"name": "A"}, map[string][]*Store{"subItems": {a1}})
	b := NewItem("b", 2, Data{"name": "B"}, nil)
	x := NewItem("x", nil, Data{"name": "X"}, nil)
	return New(Data{"title": "root"}, map[string][]*Store{
		"items": {a, b},
		"other": {x},
	})
}

func TestNewDefaults(t *testing.T) {
	s := New(nil, nil)
	assert.NotNil(t, s.Data)
	assert.NotNil(t, s.Items)
	assert.Empty(t, s.Hash)
	assert.Nil(t, s.OrderBy)
}

func TestGetItem(t *testing.T) {
	s := fixture()

	assert.Same(t, s, GetItem(s, nil))
	assert.Equal(t, "a1", GetItem(s, Path{{"items", "a"}, {"subItems", "a1"}}).Hash)
	assert.Nil(t, GetItem(s, Path{{"items", "zzz"}}))
	assert.Nil(t, GetItem(s, Path{{"missing", "a"}}))
	assert.Nil(t, GetItem(nil, Path{{"items", "a"}}))
	assert.Nil(t, GetItem(nil, nil))
}

func TestGetData(t *testing.T) {
	s := fixture()

	assert.Equal(t, Data{"name": "B"}, GetData(s, Path{{"items", "b"}}))
	assert.Nil(t, GetData(s, Path{{"items", "gone"}}))
}

func TestGetItemsNeverNil(t *testing.T) {
	s := fixture()

	assert.Len(t, GetItems(s, nil, "items"), 2)
	for _, items := range [][]*Store{
		GetItems(s, nil, "absent"),
		GetItems(s, Path{{"items", "gone"}}, "subItems"),
		GetItems(nil, nil, "items"),
	} {
		require.NotNil(t, items)
		assert.Empty(t, items)
	}
}

func TestCombinePathDoesNotAlias(t *testing.T) {
	base := make(Path, 1, 4)
	base[0] = Step{"items", "a"}

	p1 := CombinePath(base, "subItems", "x")
	p2 := CombinePath(base, "subItems", "y")

	assert.Equal(t, Path{{"items", "a"}, {"subItems", "x"}}, p1)
	assert.Equal(t, Path{{"items", "a"}, {"subItems", "y"}}, p2)
	assert.Len(t, base, 1)
}

func TestPathParentAndString(t *testing.T) {
	p := Path{{"items", "0123456789abcdef"}, {"subItems", "b"}}

	parent, last, ok := p.Parent()
	require.True(t, ok)
	assert.Equal(t, Path{{"items", "0123456789abcdef"}}, parent)
	assert.Equal(t, Step{"subItems", "b"}, last)

	_, _, ok = Path(nil).Parent()
	assert.False(t, ok)

	assert.Equal(t, "/items[0123456789ab]/subItems[b]", p.String())
	assert.Equal(t, "/", Path{}.String())
}

func TestSetDataStructuralSharing(t *testing.T) {
	s := fixture()
	path := Path{{"items", "a"}, {"subItems", "a1"}}

	next := SetData(path, SetFieldValue("id", func(any) any { return "changed" }))(s)

	require.NotSame(t, s, next)
	assert.Equal(t, "changed", GetData(next, path)["id"])
	assert.Equal(t, "a1", GetData(s, path)["id"], "previous revision untouched")

	// Ancestors are new, everything off the path is shared.
	assert.NotSame(t, GetItem(s, Path{{"items", "a"}}), GetItem(next, Path{{"items", "a"}}))
	assert.Same(t, GetItem(s, Path{{"items", "b"}}), GetItem(next, Path{{"items", "b"}}))
	assert.Same(t, GetItem(s, Path{{"other", "x"}}), GetItem(next, Path{{"other", "x"}}))
	assert.Equal(t, s.Data, next.Data)
}

func TestSetFieldValueKeepsOtherFields(t *testing.T) {
	data := Data{"a": 1, "b": 2}
	next := SetFieldValue("b", func(old any) any { return old.(int) + 1 })(data)

	assert.Equal(t, Data{"a": 1, "b": 3}, next)
	assert.Equal(t, Data{"a": 1, "b": 2}, data)

	fromNil := SetFieldValue("x", func(old any) any {
		assert.Nil(t, old)
		return "set"
	})(nil)
	assert.Equal(t, Data{"x": "set"}, fromNil)
}

func TestUnresolvedPathIsNoOp(t *testing.T) {
	s := fixture()
	gone := Path{{"items", "gone"}}

	assert.Same(t, s, SetData(gone, func(Data) Data { return Data{} })(s))
	assert.Same(t, s, AddItem(gone, "subItems", NewItem("n", nil, nil, nil), nil)(s))
	assert.Same(t, s, RemoveItem(gone, "subItems", "a1")(s))
	assert.Same(t, s, SetOrderBy(Path{{"items", "a"}, {"subItems", "gone"}}, func(any) any { return 9 }, intCmp)(s))
	assert.Same(t, s, SetOrderBy(nil, func(any) any { return 9 }, intCmp)(s))
	assert.Nil(t, SetData(nil, func(Data) Data { return Data{} })(nil))
}

func TestAddItemRoundTrip(t *testing.T) {
	s := New(nil, nil)
	item := NewItem("n", nil, Data{"v": 1}, nil)

	next := AddItem(nil, "items", item, nil)(s)

	items := GetItems(next, nil, "items")
	require.Len(t, items, 1)
	assert.Same(t, item, items[0])
	assert.Empty(t, GetItems(s, nil, "items"), "input not mutated")
}

func TestAddItemDuplicateHashReplaces(t *testing.T) {
	s := fixture()
	replacement := NewItem("a", 5, Data{"name": "A2"}, nil)

	next := AddItem(nil, "items", replacement, intCmp)(s)

	items := GetItems(next, nil, "items")
	require.Len(t, items, 2)
	assert.Equal(t, []string{"b", "a"}, hashes(items))
	assert.Same(t, replacement, items[1])
}

func TestAddItemWithoutComparerAppends(t *testing.T) {
	s := fixture()

	next := AddItem(nil, "items", NewItem("c", 0, nil, nil), nil)(s)

	assert.Equal(t, []string{"a", "b", "c"}, hashes(GetItems(next, nil, "items")))
}

func TestAddItemStableTies(t *testing.T) {
	s := New(nil, nil)
	for _, h := range []string{"first", "second", "third"} {
		s = AddItem(nil, "items", NewItem(h, 1, nil, nil), intCmp)(s)
	}
	s = AddItem(nil, "items", NewItem("zero", 0, nil, nil), intCmp)(s)

	assert.Equal(t, []string{"zero", "first", "second", "third"}, hashes(GetItems(s, nil, "items")))
}

func TestAddItemDoesNotShareBackingArray(t *testing.T) {
	base := New(nil, nil)
	base = AddItem(nil, "items", NewItem("a", nil, nil, nil), nil)(base)

	left := AddItem(nil, "items", NewItem("l", nil, nil, nil), nil)(base)
	right := AddItem(nil, "items", NewItem("r", nil, nil, nil), nil)(base)

	assert.Equal(t, []string{"a", "l"}, hashes(GetItems(left, nil, "items")))
	assert.Equal(t, []string{"a", "r"}, hashes(GetItems(right, nil, "items")))
}

func TestRemoveItemIdempotent(t *testing.T) {
	s := fixture()

	once := RemoveItem(nil, "items", "a")(s)
	twice := RemoveItem(nil, "items", "a")(once)

	assert.Equal(t, []string{"b"}, hashes(GetItems(once, nil, "items")))
	assert.Same(t, once, twice)
	assert.Equal(t, []string{"a", "b"}, hashes(GetItems(s, nil, "items")))
	assert.Same(t, GetItem(s, Path{{"other", "x"}}), GetItem(once, Path{{"other", "x"}}))
}

func TestSetOrderByResorts(t *testing.T) {
	s := fixture()

	next := SetOrderBy(Path{{"items", "a"}}, func(old any) any {
		assert.Equal(t, 1, old)
		return 3
	}, intCmp)(s)

	items := GetItems(next, nil, "items")
	assert.Equal(t, []string{"b", "a"}, hashes(items))
	assert.Equal(t, 3, items[1].OrderBy)
	assert.Same(t, GetItem(s, Path{{"items", "b"}}), items[0])
	assert.Same(t, GetItem(s, Path{{"items", "a"}, {"subItems", "a1"}}), GetItem(next, Path{{"items", "a"}, {"subItems", "a1"}}))
	assert.Equal(t, 1, GetItem(s, Path{{"items", "a"}}).OrderBy, "previous revision untouched")
}

func TestSetOrderByNested(t *testing.T) {
	s := fixture()
	s = AddItem(Path{{"items", "a"}}, "subItems", NewItem("a0", nil, nil, nil), nil)(s)

	next := SetOrderBy(Path{{"items", "a"}, {"subItems", "a0"}}, func(any) any { return "zzz" }, nil)(s)

	assert.Equal(t, "zzz", GetItem(next, Path{{"items", "a"}, {"subItems", "a0"}}).OrderBy)
	assert.Equal(t, []string{"a1", "a0"}, hashes(GetItems(next, Path{{"items", "a"}}, "subItems")), "nil comparer keeps order")
}

func TestApply(t *testing.T) {
	s := Apply(New(nil, nil),
		AddItem(nil, "items", NewItem("a", nil, nil, nil), nil),
		AddItem(Path{{"items", "a"}}, "children", NewItem("c", nil, nil, nil), nil),
		SetData(Path{{"items", "a"}, {"children", "c"}}, SetFieldValue("v", func(any) any { return 1 })),
	)

	assert.Equal(t, 1, GetData(s, Path{{"items", "a"}, {"children", "c"}})["v"])
}

// TestRandomMutationsPreserveInvariants drives random mutation sequences
// and checks hash uniqueness, sort order and sharing of untouched subtrees
// after every step.
func TestRandomMutationsPreserveInvariants(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for run := 0; run < 50; run++ {
		s := New(nil, nil)
		for i := 0; i < 60; i++ {
			var t2 Transformer
			var touched string
			coll := []string{"left", "right"}[rng.IntN(2)]
			hash := fmt.Sprintf("h%d", rng.IntN(8))
			switch rng.IntN(3) {
			case 0:
				t2 = AddItem(nil, coll, NewItem(hash, rng.IntN(5), nil, nil), intCmp)
			case 1:
				t2 = RemoveItem(nil, coll, hash)
			default:
				t2 = SetOrderBy(Path{{coll, hash}}, func(any) any { return rng.IntN(5) }, intCmp)
			}
			touched = coll

			next := t2(s)

			for _, name := range []string{"left", "right"} {
				items := GetItems(next, nil, name)
				seen := map[string]bool{}
				for j, item := range items {
					require.False(t, seen[item.Hash], "duplicate hash %s", item.Hash)
					seen[item.Hash] = true
					if j > 0 {
						require.LessOrEqual(t, intCmp(items[j-1].OrderBy, item.OrderBy), 0)
					}
				}
				if name != touched {
					prev := GetItems(s, nil, name)
					require.Len(t, items, len(prev))
					for j := range items {
						require.Same(t, prev[j], items[j])
					}
				}
			}
			s = next
		}
	}
}

func hashes(items []*Store) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.Hash
	}
	return out
}
