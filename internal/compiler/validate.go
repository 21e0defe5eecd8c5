package compiler

import (
	"errors"
	"fmt"
	"slices"

	"cuelang.org/go/cue/token"

	"github.com/roach88/factview/internal/query"
)

// Validation error codes (E100-E199)
const (
	ErrViewRootMissing   = "E101" // root fact type is required
	ErrNoFields          = "E102" // a view, collection or projection needs fields
	ErrUnknownKind       = "E103" // kind is not one of the known kinds
	ErrMissingSelect     = "E104" // kind needs a select field
	ErrMissingQuery      = "E105" // kind needs a query
	ErrInvalidQuery      = "E106" // query does not validate
	ErrInvalidResolver   = "E107" // resolve is unknown or not allowed here
	ErrInvalidOrderBy    = "E108" // order_by is malformed or not allowed here
	ErrUnexpectedSetting = "E109" // setting not allowed for the kind
	ErrInvalidValue      = "E110" // value kind not allowed (floats)
)

var knownKinds = []string{
	KindField, KindHash, KindProperty, KindResolved,
	KindMutable, KindCollection, KindProjection,
}

// ValidationError represents a view schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a parsed view against the schema rules.
// Returns all errors found (does not fail-fast).
func Validate(spec *ViewSpec) []ValidationError {
	v := &validator{}
	if spec.Root == "" {
		v.add(ErrViewRootMissing, "root", "root fact type is required", spec.Pos)
	}
	v.fields(spec.Fields, "fields", spec.Pos)
	return v.errs
}

type validator struct {
	errs []ValidationError
}

func (v *validator) add(code, field, msg string, pos token.Pos) {
	e := ValidationError{Field: field, Message: msg, Code: code}
	if pos.IsValid() {
		e.Line = pos.Line()
	}
	v.errs = append(v.errs, e)
}

func (v *validator) fields(fields []FieldSpec, path string, pos token.Pos) {
	if len(fields) == 0 {
		v.add(ErrNoFields, path, "at least one field is required", pos)
	}
	for _, f := range fields {
		v.field(f, path+"."+f.Name)
	}
}

func (v *validator) field(f FieldSpec, path string) {
	if !slices.Contains(knownKinds, f.Kind) {
		v.add(ErrUnknownKind, path+".kind",
			fmt.Sprintf("unknown kind %q, must be one of %v", f.Kind, knownKinds), f.Pos)
		return
	}

	needsSelect := f.Kind == KindField || f.Kind == KindProperty ||
		f.Kind == KindResolved || f.Kind == KindMutable
	if needsSelect && f.Select == "" {
		v.add(ErrMissingSelect, path+".select",
			fmt.Sprintf("%s fields need a select", f.Kind), f.Pos)
	}

	needsQuery := f.Kind == KindProperty || f.Kind == KindResolved ||
		f.Kind == KindMutable || f.Kind == KindCollection
	switch {
	case needsQuery && f.Query == nil:
		v.add(ErrMissingQuery, path+".query", fmt.Sprintf("%s fields need a query", f.Kind), f.Pos)
	case !needsQuery && f.Query != nil:
		v.add(ErrUnexpectedSetting, path+".query", fmt.Sprintf("%s fields take no query", f.Kind), f.Pos)
	case f.Query != nil:
		v.query(f.Query, path+".query")
	}

	switch f.Resolve {
	case "", "last", "join":
		if f.Resolve != "" && f.Kind != KindResolved && f.Kind != KindMutable {
			v.add(ErrInvalidResolver, path+".resolve",
				fmt.Sprintf("%s fields take no resolver", f.Kind), f.Pos)
		}
	default:
		v.add(ErrInvalidResolver, path+".resolve",
			fmt.Sprintf("unknown resolver %q, must be \"last\" or \"join\"", f.Resolve), f.Pos)
	}

	if f.OrderBy != nil {
		if f.Kind != KindCollection {
			v.add(ErrInvalidOrderBy, path+".order_by", "only collections can be ordered", f.OrderBy.Pos)
		} else {
			v.order(f.OrderBy, path+".order_by")
		}
	}

	if f.Key != "" && f.Kind != KindCollection {
		v.add(ErrUnexpectedSetting, path+".key", "only collections take a key", f.Pos)
	}
	if f.Initial != nil && f.Kind != KindProperty && f.Kind != KindResolved {
		v.add(ErrUnexpectedSetting, path+".initial",
			fmt.Sprintf("%s fields take no initial value", f.Kind), f.Pos)
	}

	nested := f.Kind == KindCollection || f.Kind == KindProjection
	switch {
	case nested:
		v.fields(f.Fields, path+".fields", f.Pos)
	case len(f.Fields) > 0:
		v.add(ErrUnexpectedSetting, path+".fields",
			fmt.Sprintf("%s fields take no nested fields", f.Kind), f.Pos)
	}
}

func (v *validator) query(qs *QuerySpec, path string) {
	q, err := qs.toQuery()
	if err == nil {
		err = query.Validate(q)
	}
	if err == nil {
		return
	}
	var qerrs []error
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		qerrs = j.Unwrap()
	} else {
		qerrs = []error{err}
	}
	for _, e := range qerrs {
		var ve query.ValidationError
		if errors.As(e, &ve) {
			v.add(ErrInvalidQuery, path, fmt.Sprintf("%s: %s", ve.Code, ve.Message), qs.Pos)
			continue
		}
		v.add(ErrInvalidQuery, path, e.Error(), qs.Pos)
	}
}

func (v *validator) order(o *OrderSpec, path string) {
	if o.Select == "" {
		v.add(ErrInvalidOrderBy, path+".select", "order_by needs a select", o.Pos)
	}
	switch o.Direction {
	case "", "asc", "desc":
	default:
		v.add(ErrInvalidOrderBy, path+".direction",
			fmt.Sprintf("invalid direction %q, must be \"asc\" or \"desc\"", o.Direction), o.Pos)
	}
	switch o.KeyType {
	case "", "string", "int":
	default:
		v.add(ErrInvalidOrderBy, path+".key_type",
			fmt.Sprintf("invalid key type %q, must be \"string\" or \"int\"", o.KeyType), o.Pos)
	}
	if o.Query != nil {
		v.query(o.Query, path+".query")
	} else if o.Initial != nil {
		v.add(ErrInvalidOrderBy, path+".initial", "initial needs a query", o.Pos)
	}
}
