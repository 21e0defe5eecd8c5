package viewmodel

import (
	"github.com/roach88/factview/internal/factgraph"
	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/query"
	"github.com/roach88/factview/internal/store"
)

// Kind identifies a declaration variant.
type Kind int

const (
	KindField Kind = iota
	KindProperty
	KindResolvedProperty
	KindMutable
	KindCollection
	KindProjection
)

func (k Kind) String() string {
	switch k {
	case KindField:
		return "field"
	case KindProperty:
		return "property"
	case KindResolvedProperty:
		return "resolved property"
	case KindMutable:
		return "mutable"
	case KindCollection:
		return "collection"
	case KindProjection:
		return "projection"
	default:
		return "unknown"
	}
}

// Declaration describes one field of a Mapping.
//
// This is a sealed interface: only the constructors in this package
// (Field, Property, ResolvedProperty, MutableField, Collection, Projection)
// produce Declarations.
type Declaration interface {
	Kind() Kind

	// initialFieldState returns the field's initial data value. ok is
	// false for fields that live in items rather than data.
	initialFieldState(f ir.Fact, path store.Path, name string) (value any, ok bool)

	// initialFieldItems returns the field's initial child nodes. ok is
	// false for fields that live in data.
	initialFieldItems(f ir.Fact, path store.Path, name string) (items []*store.Store, ok bool)

	createFieldWatches(begin BeginWatch, mutate Mutator, name string) []factgraph.Handle

	fieldValue(node *store.Store, name string) any

	validate(name string) []error
}

// WatchContext is the per-result context handed back to the fact graph
// when a result is added. Nested watches receive it as their parent, and
// Removed runs when the result goes away.
type WatchContext struct {
	Path    store.Path
	Removed func()
}

// AddedFunc handles a new result of q under the node at parent.
type AddedFunc func(parent store.Path, child ir.Fact) WatchContext

// BeginWatch opens a subscription for q whose results land under parent
// paths chosen by the caller. It may return nil when no subscription can be
// opened (for example after the owner stopped).
type BeginWatch func(q query.Query, added AddedFunc) factgraph.Handle

// Mutator applies a transformer to the current store.
type Mutator func(store.Transformer)

// RootWatch returns a BeginWatch that subscribes from root. Top-level
// results are placed under the root path.
func RootWatch(source factgraph.Source, root ir.Fact) BeginWatch {
	return func(q query.Query, added AddedFunc) factgraph.Handle {
		return source.Subscribe(root, q, func(_ any, child ir.Fact) any {
			return added(nil, child)
		}, removeContext)
	}
}

// NestedWatch returns a BeginWatch whose subscriptions run under each
// result of h, with that result's WatchContext as the parent.
func NestedWatch(h factgraph.Handle) BeginWatch {
	return func(q query.Query, added AddedFunc) factgraph.Handle {
		return h.Watch(q, func(parent any, child ir.Fact) any {
			wc, ok := parent.(WatchContext)
			if !ok {
				return nil
			}
			return added(wc.Path, child)
		}, removeContext)
	}
}

func removeContext(child any) {
	if wc, ok := child.(WatchContext); ok && wc.Removed != nil {
		wc.Removed()
	}
}

// at returns a context for results that do not create nodes of their own:
// nested watches stay scoped to path.
func at(path store.Path) WatchContext {
	return WatchContext{Path: path}
}
