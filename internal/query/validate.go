package query

import (
	"errors"
	"fmt"

	"github.com/roach88/factview/internal/ir"
)

// Validation error codes.
const (
	CodeMissingType          = "Q101"
	CodeMissingRole          = "Q102"
	CodeConditionMissingType = "Q103"
	CodeConditionMissingRole = "Q104"
	CodeFilterMissingField   = "Q105"
	CodeFilterNull           = "Q106"
	CodeUnknownPredicate     = "Q107"
)

// ValidationError reports a malformed query.
type ValidationError struct {
	Code    string
	Query   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (query %s)", e.Code, e.Message, e.Query)
}

// Validate checks that q is well formed. All problems are reported, joined
// with errors.Join.
func Validate(q Query) error {
	v := &validator{query: q.String()}
	if q.Type == "" {
		v.add(CodeMissingType, "successor type is required")
	}
	if q.Role == "" {
		v.add(CodeMissingRole, "predecessor role is required")
	}
	for i, c := range q.Conditions {
		if c.Type == "" {
			v.add(CodeConditionMissingType, fmt.Sprintf("condition %d: type is required", i))
		}
		if c.Role == "" {
			v.add(CodeConditionMissingRole, fmt.Sprintf("condition %d: role is required", i))
		}
	}
	if q.Filter != nil {
		v.predicate(q.Filter)
	}
	return errors.Join(v.errs...)
}

type validator struct {
	query string
	errs  []error
}

func (v *validator) add(code, msg string) {
	v.errs = append(v.errs, ValidationError{Code: code, Query: v.query, Message: msg})
}

func (v *validator) predicate(p Predicate) {
	switch pred := p.(type) {
	case Equals:
		if pred.Field == "" {
			v.add(CodeFilterMissingField, "filter field is required")
		}
		if _, isNull := pred.Value.(ir.IRNull); isNull || pred.Value == nil {
			v.add(CodeFilterNull, fmt.Sprintf("field %q compared to null", pred.Field))
		}
	case And:
		for _, sub := range pred.Predicates {
			v.predicate(sub)
		}
	default:
		v.add(CodeUnknownPredicate, fmt.Sprintf("unknown predicate type %T", p))
	}
}
