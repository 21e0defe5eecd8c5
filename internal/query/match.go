package query

import (
	"reflect"

	"github.com/roach88/factview/internal/ir"
)

// SuccessorLookup returns the facts of factType that list hash under role.
type SuccessorLookup func(hash, factType, role string) []ir.Fact

// Matches reports whether candidate is a result of q for the parent fact
// with hash parent. Conditions are evaluated through lookup.
func (q Query) Matches(parent string, candidate ir.Fact, lookup SuccessorLookup) bool {
	if candidate.Type != q.Type || !candidate.HasPredecessor(q.Role, parent) {
		return false
	}
	for _, c := range q.Conditions {
		found := len(lookup(candidate.Hash, c.Type, c.Role)) > 0
		if found != c.Exists {
			return false
		}
	}
	return q.Filter == nil || Eval(q.Filter, candidate.Fields)
}

// Eval evaluates p against fields.
func Eval(p Predicate, fields ir.IRObject) bool {
	switch pred := p.(type) {
	case nil:
		return true
	case Equals:
		v, ok := fields[pred.Field]
		if !ok {
			return false
		}
		return reflect.DeepEqual(v, pred.Value)
	case And:
		for _, sub := range pred.Predicates {
			if !Eval(sub, fields) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
