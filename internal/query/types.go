package query

import (
	"fmt"
	"strings"

	"github.com/roach88/factview/internal/ir"
)

// Query selects successors of a parent fact.
//
// A fact F matches when F.Type == Type, F lists the parent under Role, every
// Condition holds for F and Filter (if any) holds for F's fields.
type Query struct {
	Type       string
	Role       string
	Conditions []Condition
	Filter     Predicate
}

// Condition tests for successors of a candidate fact.
// Exists requires at least one fact of Type listing the candidate under
// Role; !Exists requires none.
type Condition struct {
	Exists bool
	Type   string
	Role   string
}

// Successors starts a query for facts of factType that list the parent
// under role.
func Successors(factType, role string) Query {
	return Query{Type: factType, Role: role}
}

// Exists builds a condition requiring a successor of factType via role.
func Exists(factType, role string) Condition {
	return Condition{Exists: true, Type: factType, Role: role}
}

// NotExists builds a condition requiring no successor of factType via role.
func NotExists(factType, role string) Condition {
	return Condition{Exists: false, Type: factType, Role: role}
}

// Where returns a copy of q with the conditions appended.
func (q Query) Where(conds ...Condition) Query {
	out := q
	out.Conditions = append(append([]Condition(nil), q.Conditions...), conds...)
	return out
}

// Matching returns a copy of q whose Filter also requires p.
func (q Query) Matching(p Predicate) Query {
	out := q
	switch {
	case q.Filter == nil:
		out.Filter = p
	case p == nil:
	default:
		out.Filter = And{Predicates: []Predicate{q.Filter, p}}
	}
	return out
}

// Current is shorthand for the supersession pattern: successors of
// factType via role that no fact of the same type lists as "prior".
func Current(factType, role string) Query {
	return Successors(factType, role).Where(NotExists(factType, "prior"))
}

// String renders the query for logs.
//
//	Application.Item<-root [!Application.ItemDeleted<-item]
func (q Query) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s<-%s", q.Type, q.Role)
	if len(q.Conditions) > 0 {
		parts := make([]string, len(q.Conditions))
		for i, c := range q.Conditions {
			prefix := ""
			if !c.Exists {
				prefix = "!"
			}
			parts[i] = fmt.Sprintf("%s%s<-%s", prefix, c.Type, c.Role)
		}
		fmt.Fprintf(&b, " [%s]", strings.Join(parts, " "))
	}
	if q.Filter != nil {
		fmt.Fprintf(&b, " {%s}", predicateString(q.Filter))
	}
	return b.String()
}

// Predicate filters candidate facts by their fields.
type Predicate interface {
	predicateNode()
}

// Equals holds when the named field equals Value.
// A missing field never equals anything, not even IRNull.
type Equals struct {
	Field string
	Value ir.IRValue
}

func (Equals) predicateNode() {}

// And holds when every predicate holds. An empty And always holds.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// FieldEquals is shorthand for an Equals predicate.
func FieldEquals(field string, value ir.IRValue) Predicate {
	return Equals{Field: field, Value: value}
}

func predicateString(p Predicate) string {
	switch pred := p.(type) {
	case Equals:
		b, err := ir.MarshalIRValue(pred.Value)
		if err != nil {
			return pred.Field + "=?"
		}
		return pred.Field + "=" + string(b)
	case And:
		parts := make([]string, len(pred.Predicates))
		for i, sub := range pred.Predicates {
			parts[i] = predicateString(sub)
		}
		return strings.Join(parts, " & ")
	default:
		return fmt.Sprintf("%T", p)
	}
}
