package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/query"
)

// Compile converts a structural query rooted at parent into parameterized
// SQL over the fact log schema (facts + edges).
//
// The statement selects hash, type, fields, predecessors and seq of every
// matching fact, ordered by arrival (seq). Values are always bound as
// parameters, never interpolated.
func Compile(parent string, q query.Query) (string, []any, error) {
	if err := query.Validate(q); err != nil {
		return "", nil, fmt.Errorf("compile %s: %w", q, err)
	}

	var b strings.Builder
	b.WriteString("SELECT f.hash, f.type, f.fields, f.predecessors, f.seq FROM facts f")
	b.WriteString(" JOIN edges e ON e.successor = f.hash")
	b.WriteString(" WHERE e.predecessor = ? AND e.role = ? AND f.type = ?")
	params := []any{parent, q.Role, q.Type}

	for i, c := range q.Conditions {
		op := "EXISTS"
		if !c.Exists {
			op = "NOT EXISTS"
		}
		fmt.Fprintf(&b, " AND %s (SELECT 1 FROM edges c%d JOIN facts s%d ON s%d.hash = c%d.successor"+
			" WHERE c%d.predecessor = f.hash AND c%d.role = ? AND s%d.type = ?)",
			op, i, i, i, i, i, i, i)
		params = append(params, c.Role, c.Type)
	}

	if q.Filter != nil {
		sql, fp, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, fmt.Errorf("compile filter: %w", err)
		}
		b.WriteString(" AND ")
		b.WriteString(sql)
		params = append(params, fp...)
	}

	b.WriteString(" ORDER BY f.seq ASC")
	return b.String(), params, nil
}

func compilePredicate(p query.Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case query.Equals:
		return compileEquals(pred)
	case query.And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil
		}
		parts := make([]string, 0, len(pred.Predicates))
		var params []any
		for _, sub := range pred.Predicates {
			sql, sp, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			params = append(params, sp...)
		}
		return "(" + strings.Join(parts, " AND ") + ")", params, nil
	default:
		return "", nil, fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileEquals matches on the JSON type as well as the value, so that
// IRInt(1) and IRBool(true) stay distinct.
func compileEquals(eq query.Equals) (string, []any, error) {
	path := jsonPath(eq.Field)
	switch val := eq.Value.(type) {
	case ir.IRString:
		return "(json_type(f.fields, ?) = 'text' AND json_extract(f.fields, ?) = ?)",
			[]any{path, path, string(val)}, nil
	case ir.IRInt:
		return "(json_type(f.fields, ?) = 'integer' AND json_extract(f.fields, ?) = ?)",
			[]any{path, path, int64(val)}, nil
	case ir.IRBool:
		return "json_type(f.fields, ?) = ?", []any{path, fmt.Sprint(bool(val))}, nil
	case ir.IRArray:
		return "", nil, fmt.Errorf("field %q: IRArray cannot be used as SQL parameter", eq.Field)
	case ir.IRObject:
		return "", nil, fmt.Errorf("field %q: IRObject cannot be used as SQL parameter", eq.Field)
	default:
		return "", nil, fmt.Errorf("field %q: unsupported IRValue type for SQL parameter: %T", eq.Field, eq.Value)
	}
}

// jsonPath quotes the field name so that dots and brackets in keys are
// taken literally.
func jsonPath(field string) string {
	return `$."` + strings.ReplaceAll(field, `"`, `\"`) + `"`
}
