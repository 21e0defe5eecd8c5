package factlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/query"
	"github.com/roach88/factview/internal/querysql"
)

// GetFact returns the fact stored under hash. The boolean is false when no
// such fact exists.
func (s *Store) GetFact(ctx context.Context, hash string) (ir.Fact, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, type, fields, predecessors, seq
		FROM facts
		WHERE hash = ?
	`, hash)

	f, _, err := scanFact(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Fact{}, false, nil
	}
	if err != nil {
		return ir.Fact{}, false, fmt.Errorf("get fact %s: %w", hash, err)
	}
	return f, true, nil
}

// Successors returns the results of q for the parent fact, in arrival order.
func (s *Store) Successors(ctx context.Context, parent string, q query.Query) ([]ir.Fact, error) {
	stmt, params, err := querysql.Compile(parent, q)
	if err != nil {
		return nil, err
	}
	return s.queryFacts(ctx, stmt, params...)
}

// ListFacts returns every stored fact in arrival order.
func (s *Store) ListFacts(ctx context.Context) ([]ir.Fact, error) {
	return s.queryFacts(ctx, `
		SELECT hash, type, fields, predecessors, seq
		FROM facts
		ORDER BY seq ASC
	`)
}

// LastSeq returns the highest stored seq, 0 when the log is empty.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM facts").Scan(&seq); err != nil {
		return 0, fmt.Errorf("last seq: %w", err)
	}
	return seq, nil
}

// Count returns the number of stored facts.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM facts").Scan(&n); err != nil {
		return 0, fmt.Errorf("count facts: %w", err)
	}
	return n, nil
}

func (s *Store) queryFacts(ctx context.Context, stmt string, params ...any) ([]ir.Fact, error) {
	rows, err := s.db.QueryContext(ctx, stmt, params...)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	var facts []ir.Fact
	for rows.Next() {
		f, _, err := scanFact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return facts, nil
}
