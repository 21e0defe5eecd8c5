package viewmodel

import (
	"errors"
	"fmt"

	"github.com/roach88/factview/internal/factgraph"
	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/store"
)

// Value is the materialized view of one node: field name to value.
// Collections read as []Value, projections as Value (nil when absent) and
// mutable fields as Mutable.
type Value map[string]any

// NamedField pairs a field name with its declaration.
type NamedField struct {
	Name string
	Decl Declaration
}

// Named is shorthand for a NamedField.
func Named(name string, decl Declaration) NamedField {
	return NamedField{Name: name, Decl: decl}
}

// Mapping composes named field declarations. Fields are processed in
// declaration order.
type Mapping struct {
	fields []NamedField
	index  map[string]int
}

// Define builds a Mapping, validating every declaration. Problems are
// reported together as *DeclarationError values joined by errors.Join.
func Define(fields ...NamedField) (*Mapping, error) {
	m := &Mapping{index: make(map[string]int, len(fields))}
	var errs []error
	for _, f := range fields {
		switch {
		case f.Name == "":
			errs = append(errs, declErr(CodeEmptyName, "", "field name is required"))
			continue
		case f.Decl == nil:
			errs = append(errs, declErr(CodeNilDeclaration, f.Name, "declaration is required"))
			continue
		}
		if _, dup := m.index[f.Name]; dup {
			errs = append(errs, declErr(CodeDuplicateName, f.Name, "field declared more than once"))
			continue
		}
		errs = append(errs, f.Decl.validate(f.Name)...)
		m.index[f.Name] = len(m.fields)
		m.fields = append(m.fields, f)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

// MustDefine is like Define but panics on error.
func MustDefine(fields ...NamedField) *Mapping {
	m, err := Define(fields...)
	if err != nil {
		panic(fmt.Sprintf("viewmodel: %v", err))
	}
	return m
}

// FieldNames returns the field names in declaration order.
func (m *Mapping) FieldNames() []string {
	names := make([]string, len(m.fields))
	for i, f := range m.fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the declaration of a field.
func (m *Mapping) Field(name string) (Declaration, bool) {
	i, ok := m.index[name]
	if !ok {
		return nil, false
	}
	return m.fields[i].Decl, true
}

// InitialState computes the initial data of a node for fact f at path.
func (m *Mapping) InitialState(f ir.Fact, path store.Path) store.Data {
	data := make(store.Data, len(m.fields))
	for _, nf := range m.fields {
		if v, ok := nf.Decl.initialFieldState(f, path, nf.Name); ok {
			data[nf.Name] = v
		}
	}
	return data
}

// InitialItems computes the initial collections of a node for fact f at
// path. Projections are created here; collections start empty.
func (m *Mapping) InitialItems(f ir.Fact, path store.Path) map[string][]*store.Store {
	items := make(map[string][]*store.Store)
	for _, nf := range m.fields {
		if v, ok := nf.Decl.initialFieldItems(f, path, nf.Name); ok {
			items[nf.Name] = v
		}
	}
	return items
}

// Initial builds the root node for fact f.
func (m *Mapping) Initial(f ir.Fact) *store.Store {
	return store.New(m.InitialState(f, nil), m.InitialItems(f, nil))
}

// CreateWatches opens every field's subscriptions. Each field's callbacks
// are bound to its own name; the returned handles are those the caller
// must stop.
func (m *Mapping) CreateWatches(begin BeginWatch, mutate Mutator) []factgraph.Handle {
	var hs []factgraph.Handle
	for _, nf := range m.fields {
		hs = append(hs, nf.Decl.createFieldWatches(begin, mutate, nf.Name)...)
	}
	return hs
}

// Value reads every field out of node. A nil node reads as nil.
func (m *Mapping) Value(node *store.Store) Value {
	if node == nil {
		return nil
	}
	v := make(Value, len(m.fields))
	for _, nf := range m.fields {
		v[nf.Name] = nf.Decl.fieldValue(node, nf.Name)
	}
	return v
}
