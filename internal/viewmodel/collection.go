package viewmodel

import (
	"strings"
	"sync"

	"github.com/roach88/factview/internal/factgraph"
	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/query"
	"github.com/roach88/factview/internal/store"
)

// KeyFunc computes a child's identity within its collection.
type KeyFunc func(ir.Fact) string

// CollectionOption configures a Collection.
type CollectionOption func(*collectionDecl)

// WithKey sets how child hashes are computed. The default is the fact hash.
//
// Results that share a key share one child node: the first of them creates
// it, and it is removed when the last of them goes away.
func WithKey(key KeyFunc) CollectionOption {
	return func(d *collectionDecl) {
		d.key = key
	}
}

// OrderBy sorts the collection by sel(child fact) using cmp.
func OrderBy(sel Selector, cmp store.Comparer) CollectionOption {
	return func(d *collectionDecl) {
		d.order = &orderSpec{selector: sel, comparer: cmp}
	}
}

// OrderByProperty sorts the collection by a property of each child: the
// sort key starts at initial and follows sel of the latest result of q
// (rooted at the child). Every update re-sorts the collection.
func OrderByProperty(q query.Query, sel Selector, initial any, cmp store.Comparer) CollectionOption {
	return func(d *collectionDecl) {
		d.order = &orderSpec{query: &q, selector: sel, initial: initial, comparer: cmp}
	}
}

type orderSpec struct {
	query    *query.Query // nil: key computed from the child fact
	selector Selector
	initial  any
	comparer store.Comparer
}

func (o *orderSpec) initialKey(child ir.Fact) any {
	switch {
	case o == nil:
		return nil
	case o.query != nil:
		return o.initial
	default:
		return o.selector(child)
	}
}

func (o *orderSpec) cmp() store.Comparer {
	if o == nil {
		return nil
	}
	return o.comparer
}

type collectionDecl struct {
	query   query.Query
	mapping *Mapping
	key     KeyFunc
	order   *orderSpec
}

// Collection declares an ordered list of child nodes, one per live result
// of q. Each child is initialized from mapping and watched with mapping's
// own declarations, scoped to the child's path.
func Collection(q query.Query, mapping *Mapping, opts ...CollectionOption) Declaration {
	d := &collectionDecl{
		query:   q,
		mapping: mapping,
		key:     func(f ir.Fact) string { return f.Hash },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (*collectionDecl) Kind() Kind { return KindCollection }

func (*collectionDecl) initialFieldState(ir.Fact, store.Path, string) (any, bool) {
	return nil, false
}

func (*collectionDecl) initialFieldItems(ir.Fact, store.Path, string) ([]*store.Store, bool) {
	return []*store.Store{}, true
}

func (d *collectionDecl) createFieldWatches(begin BeginWatch, mutate Mutator, name string) []factgraph.Handle {
	live := newKeyCounts()
	h := begin(d.query, func(parent store.Path, child ir.Fact) WatchContext {
		hash := d.key(child)
		childPath := store.CombinePath(parent, name, hash)
		if live.acquire(childPath) {
			item := store.NewItem(
				hash,
				d.order.initialKey(child),
				d.mapping.InitialState(child, childPath),
				d.mapping.InitialItems(child, childPath),
			)
			mutate(store.AddItem(parent, name, item, d.order.cmp()))
		}
		return WatchContext{
			Path: childPath,
			Removed: func() {
				if live.release(childPath) {
					mutate(store.RemoveItem(parent, name, hash))
				}
			},
		}
	})
	if h == nil {
		return nil
	}

	// Nested watches belong to h and stop with it.
	nested := NestedWatch(h)
	d.mapping.CreateWatches(nested, mutate)
	if d.order != nil && d.order.query != nil {
		sel, cmp := d.order.selector, d.order.comparer
		nested(*d.order.query, func(itemPath store.Path, child ir.Fact) WatchContext {
			key := sel(child)
			mutate(store.SetOrderBy(itemPath, func(any) any { return key }, cmp))
			return at(itemPath)
		})
	}
	return []factgraph.Handle{h}
}

func (d *collectionDecl) fieldValue(node *store.Store, name string) any {
	items := node.Items[name]
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = d.mapping.Value(item)
	}
	return out
}

func (d *collectionDecl) validate(name string) []error {
	errs := validateQuery(name, d.query)
	if d.mapping == nil {
		errs = append(errs, declErr(CodeNilMapping, name, "collection mapping is required"))
	}
	if d.key == nil {
		errs = append(errs, declErr(CodeNilSelector, name, "key function is required"))
	}
	if d.order != nil {
		if d.order.selector == nil {
			errs = append(errs, declErr(CodeNilSelector, name, "order by selector is required"))
		}
		if d.order.query != nil {
			errs = append(errs, validateQuery(name, *d.order.query)...)
		}
	}
	return errs
}

// keyCounts counts the live results behind each child node of one
// collection watch.
type keyCounts struct {
	mu sync.Mutex
	n  map[string]int
}

func newKeyCounts() *keyCounts {
	return &keyCounts{n: make(map[string]int)}
}

// acquire reports whether path had no live result before this one.
func (k *keyCounts) acquire(path store.Path) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	id := pathID(path)
	k.n[id]++
	return k.n[id] == 1
}

// release reports whether the last live result behind path went away.
func (k *keyCounts) release(path store.Path) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	id := pathID(path)
	if k.n[id] == 0 {
		return false
	}
	k.n[id]--
	if k.n[id] > 0 {
		return false
	}
	delete(k.n, id)
	return true
}

func pathID(path store.Path) string {
	var b strings.Builder
	for _, step := range path {
		b.WriteString(step.Collection)
		b.WriteByte(0)
		b.WriteString(step.Hash)
		b.WriteByte(0)
	}
	return b.String()
}

type projectionDecl struct {
	mapping *Mapping
}

// Projection declares a single nested child node with hash "", created
// with its parent and never removed while the parent lives. Its
// declarations are rooted at the parent fact.
func Projection(mapping *Mapping) Declaration {
	return projectionDecl{mapping: mapping}
}

func (projectionDecl) Kind() Kind { return KindProjection }

func (projectionDecl) initialFieldState(ir.Fact, store.Path, string) (any, bool) {
	return nil, false
}

func (d projectionDecl) initialFieldItems(f ir.Fact, path store.Path, name string) ([]*store.Store, bool) {
	childPath := store.CombinePath(path, name, "")
	return []*store.Store{
		store.NewItem("", nil, d.mapping.InitialState(f, childPath), d.mapping.InitialItems(f, childPath)),
	}, true
}

func (d projectionDecl) createFieldWatches(begin BeginWatch, mutate Mutator, name string) []factgraph.Handle {
	scoped := func(q query.Query, added AddedFunc) factgraph.Handle {
		return begin(q, func(parent store.Path, child ir.Fact) WatchContext {
			return added(store.CombinePath(parent, name, ""), child)
		})
	}
	return d.mapping.CreateWatches(scoped, mutate)
}

func (d projectionDecl) fieldValue(node *store.Store, name string) any {
	items := node.Items[name]
	if len(items) == 0 {
		return nil
	}
	return d.mapping.Value(items[0])
}

func (d projectionDecl) validate(name string) []error {
	if d.mapping == nil {
		return []error{declErr(CodeNilMapping, name, "projection mapping is required")}
	}
	return nil
}
