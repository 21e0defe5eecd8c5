package viewmodel

import (
	"fmt"

	"github.com/roach88/factview/internal/query"
)

// Declaration error codes.
const (
	CodeEmptyName      = "D101"
	CodeDuplicateName  = "D102"
	CodeNilDeclaration = "D103"
	CodeNilMapping     = "D104"
	CodeInvalidQuery   = "D105"
	CodeNilSelector    = "D106"
	CodeNilResolver    = "D107"
)

// DeclarationError reports a misconfigured mapping. These are programmer
// errors, detected by Define before any subscription starts.
type DeclarationError struct {
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *DeclarationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: field %q: %s", e.Code, e.Field, e.Message)
}

func (e *DeclarationError) Unwrap() error {
	return e.Err
}

func declErr(code, field, msg string) *DeclarationError {
	return &DeclarationError{Code: code, Field: field, Message: msg}
}

func validateQuery(field string, q query.Query) []error {
	if err := query.Validate(q); err != nil {
		return []error{&DeclarationError{
			Code:    CodeInvalidQuery,
			Field:   field,
			Message: fmt.Sprintf("invalid query %s", q),
			Err:     err,
		}}
	}
	return nil
}
