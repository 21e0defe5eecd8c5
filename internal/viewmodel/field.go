package viewmodel

import (
	"fmt"
	"strings"

	"github.com/roach88/factview/internal/factgraph"
	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/query"
	"github.com/roach88/factview/internal/store"
)

// Selector computes a value from a fact.
type Selector func(ir.Fact) any

// FieldOf selects a named field of the fact as a plain Go value.
func FieldOf(name string) Selector {
	return func(f ir.Fact) any { return f.Field(name) }
}

// HashOf selects the fact's hash.
func HashOf(f ir.Fact) any {
	return f.Hash
}

type fieldDecl struct {
	selector Selector
}

// Field declares a value computed once from the parent fact.
func Field(selector Selector) Declaration {
	return fieldDecl{selector: selector}
}

// HashField declares a field holding the parent fact's hash.
func HashField() Declaration {
	return Field(HashOf)
}

func (fieldDecl) Kind() Kind { return KindField }

func (d fieldDecl) initialFieldState(f ir.Fact, _ store.Path, _ string) (any, bool) {
	return d.selector(f), true
}

func (fieldDecl) initialFieldItems(ir.Fact, store.Path, string) ([]*store.Store, bool) {
	return nil, false
}

func (fieldDecl) createFieldWatches(BeginWatch, Mutator, string) []factgraph.Handle {
	return nil
}

func (fieldDecl) fieldValue(node *store.Store, name string) any {
	return node.Data[name]
}

func (d fieldDecl) validate(name string) []error {
	if d.selector == nil {
		return []error{declErr(CodeNilSelector, name, "selector is required")}
	}
	return nil
}

type propertyDecl struct {
	query    query.Query
	selector Selector
	initial  any
}

// Property declares a value that follows the results of q: every arriving
// result overwrites the field with selector(result), so concurrent results
// are last-writer-wins. Removals leave the value as is. initial holds until
// the first result arrives.
func Property(q query.Query, selector Selector, initial any) Declaration {
	return propertyDecl{query: q, selector: selector, initial: initial}
}

func (propertyDecl) Kind() Kind { return KindProperty }

func (d propertyDecl) initialFieldState(ir.Fact, store.Path, string) (any, bool) {
	return d.initial, true
}

func (propertyDecl) initialFieldItems(ir.Fact, store.Path, string) ([]*store.Store, bool) {
	return nil, false
}

func (d propertyDecl) createFieldWatches(begin BeginWatch, mutate Mutator, name string) []factgraph.Handle {
	h := begin(d.query, func(parent store.Path, child ir.Fact) WatchContext {
		value := d.selector(child)
		mutate(store.SetData(parent, store.SetFieldValue(name, func(any) any { return value })))
		return at(parent)
	})
	return handles(h)
}

func (propertyDecl) fieldValue(node *store.Store, name string) any {
	return node.Data[name]
}

func (d propertyDecl) validate(name string) []error {
	errs := validateQuery(name, d.query)
	if d.selector == nil {
		errs = append(errs, declErr(CodeNilSelector, name, "selector is required"))
	}
	return errs
}

// Resolver folds the live candidates, in arrival order, into one value.
type Resolver func(candidates []ir.Fact) any

type resolvedPropertyDecl struct {
	query    query.Query
	resolver Resolver
	initial  any
}

// ResolvedProperty declares a value computed by folding every live result
// of q with resolver. Removals take the result out of the fold. initial is
// the value while no result is live.
func ResolvedProperty(q query.Query, resolver Resolver, initial any) Declaration {
	return resolvedPropertyDecl{query: q, resolver: resolver, initial: initial}
}

func (resolvedPropertyDecl) Kind() Kind { return KindResolvedProperty }

func (d resolvedPropertyDecl) initialFieldState(ir.Fact, store.Path, string) (any, bool) {
	return Mutable{}, true
}

func (resolvedPropertyDecl) initialFieldItems(ir.Fact, store.Path, string) ([]*store.Store, bool) {
	return nil, false
}

func (d resolvedPropertyDecl) createFieldWatches(begin BeginWatch, mutate Mutator, name string) []factgraph.Handle {
	return watchCandidates(begin, mutate, name, d.query, d.resolver)
}

func (d resolvedPropertyDecl) fieldValue(node *store.Store, name string) any {
	m, _ := node.Data[name].(Mutable)
	if m.Len() == 0 {
		return d.initial
	}
	return m.Value
}

func (d resolvedPropertyDecl) validate(name string) []error {
	errs := validateQuery(name, d.query)
	if d.resolver == nil {
		errs = append(errs, declErr(CodeNilResolver, name, "resolver is required"))
	}
	return errs
}

// Join returns a resolver that joins the string form of sel over the
// candidates with sep.
//
//	viewmodel.Join(viewmodel.FieldOf("value"), ", ")
func Join(sel Selector, sep string) Resolver {
	return func(candidates []ir.Fact) any {
		var b strings.Builder
		for i, c := range candidates {
			if i > 0 {
				b.WriteString(sep)
			}
			if v := sel(c); v != nil {
				fmt.Fprint(&b, v)
			}
		}
		return b.String()
	}
}

// Last returns a resolver yielding sel of the most recent candidate, or nil
// when there is none.
func Last(sel Selector) Resolver {
	return func(candidates []ir.Fact) any {
		if len(candidates) == 0 {
			return nil
		}
		return sel(candidates[len(candidates)-1])
	}
}

func handles(h factgraph.Handle) []factgraph.Handle {
	if h == nil {
		return nil
	}
	return []factgraph.Handle{h}
}
