package compiler

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"cuelang.org/go/cue"

	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/query"
	"github.com/roach88/factview/internal/store"
	"github.com/roach88/factview/internal/viewmodel"
)

// View is a compiled view declaration.
type View struct {
	Name    string
	Root    string
	Spec    *ViewSpec
	Mapping *viewmodel.Mapping
}

// CompileViews compiles every view under the top-level "view" struct of v.
// Parse errors stop at the first failing view; validation errors are
// collected for all views.
func CompileViews(v cue.Value) ([]*View, error) {
	viewsVal := v.LookupPath(cue.ParsePath("view"))
	if !viewsVal.Exists() {
		return nil, nil
	}
	iter, err := viewsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var views []*View
	var errs []error
	for iter.Next() {
		spec, err := CompileView(iter.Value())
		if err != nil {
			return nil, err
		}
		view, err := Build(spec)
		if err != nil {
			errs = append(errs, fmt.Errorf("view %s: %w", spec.Name, err))
			continue
		}
		views = append(views, view)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return views, nil
}

// Build validates spec and turns it into a mapping. Validation errors are
// returned joined, each one a ValidationError.
func Build(spec *ViewSpec) (*View, error) {
	if verrs := Validate(spec); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, e := range verrs {
			errs[i] = e
		}
		return nil, errors.Join(errs...)
	}
	m, err := buildMapping(spec.Fields)
	if err != nil {
		return nil, err
	}
	return &View{Name: spec.Name, Root: spec.Root, Spec: spec, Mapping: m}, nil
}

func buildMapping(fields []FieldSpec) (*viewmodel.Mapping, error) {
	named := make([]viewmodel.NamedField, 0, len(fields))
	for _, f := range fields {
		decl, err := buildDeclaration(f)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		named = append(named, viewmodel.Named(f.Name, decl))
	}
	return viewmodel.Define(named...)
}

func buildDeclaration(f FieldSpec) (viewmodel.Declaration, error) {
	sel := viewmodel.FieldOf(f.Select)

	switch f.Kind {
	case KindField:
		return viewmodel.Field(sel), nil

	case KindHash:
		return viewmodel.HashField(), nil

	case KindProperty, KindResolved, KindMutable:
		q, err := f.Query.toQuery()
		if err != nil {
			return nil, err
		}
		switch f.Kind {
		case KindProperty:
			return viewmodel.Property(q, sel, f.Initial), nil
		case KindResolved:
			return viewmodel.ResolvedProperty(q, resolver(f, "last"), f.Initial), nil
		default:
			return viewmodel.MutableField(q, resolver(f, "join")), nil
		}

	case KindCollection:
		q, err := f.Query.toQuery()
		if err != nil {
			return nil, err
		}
		inner, err := buildMapping(f.Fields)
		if err != nil {
			return nil, err
		}
		var opts []viewmodel.CollectionOption
		if f.Key != "" {
			key := f.Key
			opts = append(opts, viewmodel.WithKey(func(fact ir.Fact) string {
				return fmt.Sprint(fact.Field(key))
			}))
		}
		if f.OrderBy != nil {
			opt, err := f.OrderBy.option()
			if err != nil {
				return nil, err
			}
			opts = append(opts, opt)
		}
		return viewmodel.Collection(q, inner, opts...), nil

	case KindProjection:
		inner, err := buildMapping(f.Fields)
		if err != nil {
			return nil, err
		}
		return viewmodel.Projection(inner), nil
	}
	return nil, fmt.Errorf("unknown kind %q", f.Kind)
}

func resolver(f FieldSpec, fallback string) viewmodel.Resolver {
	name := f.Resolve
	if name == "" {
		name = fallback
	}
	sel := viewmodel.FieldOf(f.Select)
	if name == "join" {
		return viewmodel.Join(sel, f.Separator)
	}
	return viewmodel.Last(sel)
}

func (o *OrderSpec) option() (viewmodel.CollectionOption, error) {
	cmp := o.comparer()
	sel := viewmodel.FieldOf(o.Select)
	if o.Query == nil {
		return viewmodel.OrderBy(sel, cmp), nil
	}
	q, err := o.Query.toQuery()
	if err != nil {
		return nil, err
	}
	return viewmodel.OrderByProperty(q, sel, o.Initial, cmp), nil
}

func (o *OrderSpec) comparer() store.Comparer {
	desc := o.Direction == "desc"
	if o.KeyType == "int" {
		if desc {
			return viewmodel.Descending[int64]()
		}
		return viewmodel.Ascending[int64]()
	}
	if desc {
		return viewmodel.Descending[string]()
	}
	return viewmodel.Ascending[string]()
}

// toQuery converts the declarative form. Where entries are ANDed in key
// order.
func (qs *QuerySpec) toQuery() (query.Query, error) {
	q := query.Successors(qs.Type, qs.Role)
	if qs.Current {
		q = q.Where(query.NotExists(qs.Type, "prior"))
	}
	for _, c := range qs.Exists {
		q = q.Where(query.Exists(c.Type, c.Role))
	}
	for _, c := range qs.NotExists {
		q = q.Where(query.NotExists(c.Type, c.Role))
	}
	for _, name := range slices.Sorted(maps.Keys(qs.Where)) {
		val, err := ir.FromNative(qs.Where[name])
		if err != nil {
			return query.Query{}, fmt.Errorf("where %s: %w", name, err)
		}
		q = q.Matching(query.FieldEquals(name, val))
	}
	return q, nil
}
