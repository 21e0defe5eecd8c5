package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Field kinds accepted in a view declaration.
const (
	KindField      = "field"
	KindHash       = "hash"
	KindProperty   = "property"
	KindResolved   = "resolved"
	KindMutable    = "mutable"
	KindCollection = "collection"
	KindProjection = "projection"
)

// ViewSpec is a parsed view declaration, before validation.
type ViewSpec struct {
	Name   string
	Root   string // fact type of the root
	Fields []FieldSpec
	Pos    token.Pos
}

// FieldSpec declares one named field of a view or nested mapping.
type FieldSpec struct {
	Name      string
	Kind      string
	Select    string
	Query     *QuerySpec
	Initial   any
	Resolve   string // "last" or "join"
	Separator string
	OrderBy   *OrderSpec
	Key       string // collection key field; empty means the fact hash. Results with equal keys share one node.
	Fields    []FieldSpec
	Pos       token.Pos
}

// QuerySpec is the declarative form of a query.Query.
type QuerySpec struct {
	Type      string
	Role      string
	Current   bool
	Exists    []ConditionSpec
	NotExists []ConditionSpec
	Where     map[string]any
	Pos       token.Pos
}

// ConditionSpec names a successor type and role.
type ConditionSpec struct {
	Type string
	Role string
}

// OrderSpec orders a collection by a field of the child fact, or by a
// property of the child when Query is set.
type OrderSpec struct {
	Select    string
	Direction string // "asc" (default) or "desc"
	KeyType   string // "string" (default) or "int"
	Query     *QuerySpec
	Initial   any
	Pos       token.Pos
}

// CompileView parses a CUE value into a ViewSpec.
//
// The value is the view struct itself:
//
//	view: Home: {
//		root: "Application.Root"
//		fields: {
//			identifier: {kind: "field", select: "identifier"}
//			items: {
//				kind: "collection"
//				query: {type: "Application.Item", role: "root"}
//				fields: createdAt: {kind: "field", select: "createdAt"}
//			}
//		}
//	}
func CompileView(v cue.Value) (*ViewSpec, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	spec := &ViewSpec{Pos: v.Pos()}
	if sels := v.Path().Selectors(); len(sels) > 0 {
		spec.Name = sels[len(sels)-1].Unquoted()
	}

	root, err := optionalString(v, "root")
	if err != nil {
		return nil, err
	}
	spec.Root = root

	spec.Fields, err = parseFields(v, "fields")
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// parseFields reads a struct of field declarations in declaration order.
func parseFields(v cue.Value, prefix string) ([]FieldSpec, error) {
	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, nil
	}
	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []FieldSpec
	for iter.Next() {
		f, err := parseField(iter.Selector().Unquoted(), iter.Value(), prefix)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func parseField(name string, v cue.Value, prefix string) (FieldSpec, error) {
	path := prefix + "." + name
	f := FieldSpec{Name: name, Pos: v.Pos()}

	kind, err := optionalString(v, "kind")
	if err != nil {
		return f, err
	}
	if kind == "" {
		return f, &CompileError{Field: path + ".kind", Message: "kind is required", Pos: v.Pos()}
	}
	f.Kind = kind

	if f.Select, err = optionalString(v, "select"); err != nil {
		return f, err
	}
	if f.Resolve, err = optionalString(v, "resolve"); err != nil {
		return f, err
	}
	if f.Separator, err = optionalString(v, "separator"); err != nil {
		return f, err
	}
	if f.Key, err = optionalString(v, "key"); err != nil {
		return f, err
	}

	if initVal := v.LookupPath(cue.ParsePath("initial")); initVal.Exists() {
		if f.Initial, err = nativeValue(initVal, path+".initial"); err != nil {
			return f, err
		}
	}

	if qVal := v.LookupPath(cue.ParsePath("query")); qVal.Exists() {
		if f.Query, err = parseQuery(qVal, path+".query"); err != nil {
			return f, err
		}
	}

	if oVal := v.LookupPath(cue.ParsePath("order_by")); oVal.Exists() {
		if f.OrderBy, err = parseOrder(oVal, path+".order_by"); err != nil {
			return f, err
		}
	}

	if f.Fields, err = parseFields(v, path+".fields"); err != nil {
		return f, err
	}
	return f, nil
}

func parseQuery(v cue.Value, path string) (*QuerySpec, error) {
	q := &QuerySpec{Pos: v.Pos()}
	var err error
	if q.Type, err = optionalString(v, "type"); err != nil {
		return nil, err
	}
	if q.Role, err = optionalString(v, "role"); err != nil {
		return nil, err
	}

	if cur := v.LookupPath(cue.ParsePath("current")); cur.Exists() {
		b, err := cur.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		q.Current = b
	}

	if q.Exists, err = parseConditions(v, "exists"); err != nil {
		return nil, err
	}
	if q.NotExists, err = parseConditions(v, "not_exists"); err != nil {
		return nil, err
	}

	if w := v.LookupPath(cue.ParsePath("where")); w.Exists() {
		iter, err := w.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		q.Where = make(map[string]any)
		for iter.Next() {
			name := iter.Selector().Unquoted()
			val, err := nativeValue(iter.Value(), path+".where."+name)
			if err != nil {
				return nil, err
			}
			q.Where[name] = val
		}
	}
	return q, nil
}

func parseConditions(v cue.Value, label string) ([]ConditionSpec, error) {
	list := v.LookupPath(cue.ParsePath(label))
	if !list.Exists() {
		return nil, nil
	}
	iter, err := list.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var conds []ConditionSpec
	for iter.Next() {
		c := iter.Value()
		t, err := optionalString(c, "type")
		if err != nil {
			return nil, err
		}
		r, err := optionalString(c, "role")
		if err != nil {
			return nil, err
		}
		conds = append(conds, ConditionSpec{Type: t, Role: r})
	}
	return conds, nil
}

func parseOrder(v cue.Value, path string) (*OrderSpec, error) {
	o := &OrderSpec{Pos: v.Pos()}
	var err error
	if o.Select, err = optionalString(v, "select"); err != nil {
		return nil, err
	}
	if o.Direction, err = optionalString(v, "direction"); err != nil {
		return nil, err
	}
	if o.KeyType, err = optionalString(v, "key_type"); err != nil {
		return nil, err
	}
	if qVal := v.LookupPath(cue.ParsePath("query")); qVal.Exists() {
		if o.Query, err = parseQuery(qVal, path+".query"); err != nil {
			return nil, err
		}
	}
	if initVal := v.LookupPath(cue.ParsePath("initial")); initVal.Exists() {
		if o.Initial, err = nativeValue(initVal, path+".initial"); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func optionalString(v cue.Value, label string) (string, error) {
	val := v.LookupPath(cue.ParsePath(label))
	if !val.Exists() {
		return "", nil
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// nativeValue converts a concrete CUE value to the plain Go values used in
// facts: string, int64, bool, nil, []any and map[string]any. Floats are
// rejected, matching the fact value model.
func nativeValue(v cue.Value, path string) (any, error) {
	switch v.IncompleteKind() {
	case cue.NullKind:
		return nil, nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return s, nil
	case cue.IntKind:
		n, err := v.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return n, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return b, nil
	case cue.ListKind:
		iter, err := v.List()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := []any{}
		for i := 0; iter.Next(); i++ {
			elem, err := nativeValue(iter.Value(), fmt.Sprintf("%s[%d]", path, i))
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	case cue.StructKind:
		iter, err := v.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out := map[string]any{}
		for iter.Next() {
			name := iter.Selector().Unquoted()
			elem, err := nativeValue(iter.Value(), path+"."+name)
			if err != nil {
				return nil, err
			}
			out[name] = elem
		}
		return out, nil
	case cue.FloatKind, cue.NumberKind:
		return nil, &CompileError{
			Field:   path,
			Message: "float values are not allowed - use int instead",
			Pos:     v.Pos(),
		}
	default:
		return nil, &CompileError{
			Field:   path,
			Message: fmt.Sprintf("unsupported value kind: %v", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// CompileError is a parse error with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
