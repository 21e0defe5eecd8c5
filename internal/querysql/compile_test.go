package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/query"
)

func TestCompile_Successors(t *testing.T) {
	sql, params, err := Compile("p1", query.Successors("Application.Item", "root"))
	require.NoError(t, err)

	assert.Equal(t, "SELECT f.hash, f.type, f.fields, f.predecessors, f.seq FROM facts f"+
		" JOIN edges e ON e.successor = f.hash"+
		" WHERE e.predecessor = ? AND e.role = ? AND f.type = ?"+
		" ORDER BY f.seq ASC", sql)
	assert.Equal(t, []any{"p1", "root", "Application.Item"}, params)
}

func TestCompile_Conditions(t *testing.T) {
	q := query.Successors("Application.Item", "root").
		Where(query.NotExists("Application.ItemDeleted", "item"), query.Exists("Application.SubItem", "item"))

	sql, params, err := Compile("p1", q)
	require.NoError(t, err)

	assert.Contains(t, sql, "AND NOT EXISTS (SELECT 1 FROM edges c0 JOIN facts s0 ON s0.hash = c0.successor"+
		" WHERE c0.predecessor = f.hash AND c0.role = ? AND s0.type = ?)")
	assert.Contains(t, sql, "AND EXISTS (SELECT 1 FROM edges c1 JOIN facts s1")
	assert.Equal(t, []any{
		"p1", "root", "Application.Item",
		"item", "Application.ItemDeleted",
		"item", "Application.SubItem",
	}, params)
}

func TestCompile_FilterIsParameterized(t *testing.T) {
	q := query.Successors("Application.SubSubItem", "subItem").Matching(query.And{Predicates: []query.Predicate{
		query.FieldEquals("id", ir.IRString("reindeer flotilla")),
		query.FieldEquals("rank", ir.IRInt(3)),
		query.FieldEquals("archived", ir.IRBool(false)),
	}})

	sql, params, err := Compile("p1", q)
	require.NoError(t, err)

	assert.NotContains(t, sql, "reindeer")
	assert.Contains(t, sql, "json_type(f.fields, ?) = 'text' AND json_extract(f.fields, ?) = ?")
	assert.Equal(t, []any{
		"p1", "subItem", "Application.SubSubItem",
		`$."id"`, `$."id"`, "reindeer flotilla",
		`$."rank"`, `$."rank"`, int64(3),
		`$."archived"`, "false",
	}, params)
}

func TestCompile_Errors(t *testing.T) {
	_, _, err := Compile("p1", query.Query{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), query.CodeMissingType)

	_, _, err = Compile("p1", query.Successors("A", "b").Matching(query.FieldEquals("tags", ir.IRArray{})))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IRArray")
}

func TestJSONPathQuotesKeys(t *testing.T) {
	assert.Equal(t, `$."a.b"`, jsonPath("a.b"))
	assert.Equal(t, `$."say \"hi\""`, jsonPath(`say "hi"`))
}
