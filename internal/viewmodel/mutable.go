package viewmodel

import (
	"maps"
	"slices"

	"github.com/roach88/factview/internal/factgraph"
	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/query"
	"github.com/roach88/factview/internal/store"
)

// Mutable is the value of a Mutable field: every live candidate fact and
// the resolver's fold over them.
//
// A Mutable is immutable; adding or removing a candidate yields a new one.
// Candidates must be treated as read-only.
type Mutable struct {
	Candidates map[string]ir.Fact
	Value      any

	order []string // candidate hashes in arrival order
}

// Facts returns the live candidates in arrival order.
func (m Mutable) Facts() []ir.Fact {
	out := make([]ir.Fact, 0, len(m.order))
	for _, h := range m.order {
		out = append(out, m.Candidates[h])
	}
	return out
}

// Len returns the number of live candidates.
func (m Mutable) Len() int {
	return len(m.order)
}

// Hashes returns the candidate hashes in arrival order.
func (m Mutable) Hashes() []string {
	return slices.Clone(m.order)
}

func (m Mutable) with(f ir.Fact, resolve Resolver) Mutable {
	if _, ok := m.Candidates[f.Hash]; ok {
		return m
	}
	next := Mutable{
		Candidates: maps.Clone(m.Candidates),
		order:      append(slices.Clone(m.order), f.Hash),
	}
	if next.Candidates == nil {
		next.Candidates = map[string]ir.Fact{}
	}
	next.Candidates[f.Hash] = f
	next.Value = resolve(next.Facts())
	return next
}

func (m Mutable) without(hash string, resolve Resolver) Mutable {
	if _, ok := m.Candidates[hash]; !ok {
		return m
	}
	next := Mutable{
		Candidates: maps.Clone(m.Candidates),
		order:      slices.DeleteFunc(slices.Clone(m.order), func(h string) bool { return h == hash }),
	}
	delete(next.Candidates, hash)
	next.Value = resolve(next.Facts())
	return next
}

// Prior returns the candidates of m, for use as the prior list of a fact
// that supersedes all of them.
//
//	ir.NewFact("Application.Name", fields, ir.P("root", root), ir.P("prior", viewmodel.Prior(m)...))
func Prior(m Mutable) []ir.Fact {
	return m.Facts()
}

type mutableDecl struct {
	query    query.Query
	resolver Resolver
}

// MutableField declares a field holding every live result of q together with
// resolver's fold over them. It exposes concurrent values to the caller
// instead of picking one arbitrarily.
func MutableField(q query.Query, resolver Resolver) Declaration {
	return mutableDecl{query: q, resolver: resolver}
}

func (mutableDecl) Kind() Kind { return KindMutable }

func (d mutableDecl) initialFieldState(ir.Fact, store.Path, string) (any, bool) {
	return Mutable{Value: d.resolver(nil)}, true
}

func (mutableDecl) initialFieldItems(ir.Fact, store.Path, string) ([]*store.Store, bool) {
	return nil, false
}

func (d mutableDecl) createFieldWatches(begin BeginWatch, mutate Mutator, name string) []factgraph.Handle {
	return watchCandidates(begin, mutate, name, d.query, d.resolver)
}

func (mutableDecl) fieldValue(node *store.Store, name string) any {
	m, _ := node.Data[name].(Mutable)
	return m
}

func (d mutableDecl) validate(name string) []error {
	errs := validateQuery(name, d.query)
	if d.resolver == nil {
		errs = append(errs, declErr(CodeNilResolver, name, "resolver is required"))
	}
	return errs
}

// watchCandidates keeps a Mutable in data[name] in step with the live
// results of q.
func watchCandidates(begin BeginWatch, mutate Mutator, name string, q query.Query, resolve Resolver) []factgraph.Handle {
	h := begin(q, func(parent store.Path, child ir.Fact) WatchContext {
		mutate(store.SetData(parent, store.SetFieldValue(name, func(old any) any {
			m, _ := old.(Mutable)
			return m.with(child, resolve)
		})))
		return WatchContext{
			Path: parent,
			Removed: func() {
				mutate(store.SetData(parent, store.SetFieldValue(name, func(old any) any {
					m, _ := old.(Mutable)
					return m.without(child.Hash, resolve)
				})))
			},
		}
	})
	return handles(h)
}
