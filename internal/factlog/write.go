package factlog

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/factview/internal/ir"
)

// PutFact appends f to the log at seq. It reports whether the fact was new;
// writing a fact that is already stored is a no-op.
//
// seq must be greater than every stored seq; 0 takes the next one. Every
// predecessor must already be stored (enforced by foreign keys).
func (s *Store) PutFact(ctx context.Context, f ir.Fact, seq int64) (inserted bool, err error) {
	if f.Hash == "" {
		return false, fmt.Errorf("put fact: fact has no hash")
	}
	fieldsJSON, err := marshalFields(f.Fields)
	if err != nil {
		return false, fmt.Errorf("put fact %s: %w", f.Hash, err)
	}
	predsJSON, err := marshalPredecessors(f.Predecessors)
	if err != nil {
		return false, fmt.Errorf("put fact %s: %w", f.Hash, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("put fact %s: begin tx: %w", f.Hash, err)
	}
	defer tx.Rollback() // No-op if committed

	var exists bool
	if err := tx.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM facts WHERE hash = ?)", f.Hash,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("put fact %s: %w", f.Hash, err)
	}
	if exists {
		return false, nil
	}

	// NULL lets AUTOINCREMENT pick the next seq.
	var seqArg any
	if seq != 0 {
		var last int64
		if err := tx.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM facts").Scan(&last); err != nil {
			return false, fmt.Errorf("put fact %s: last seq: %w", f.Hash, err)
		}
		if seq <= last {
			return false, fmt.Errorf("put fact %s: seq %d is not after %d", f.Hash, seq, last)
		}
		seqArg = seq
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO facts (seq, hash, type, fields, predecessors)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, seqArg, f.Hash, f.Type, fieldsJSON, predsJSON)
	if err != nil {
		return false, fmt.Errorf("put fact %s: %w", f.Hash, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("put fact %s: rows affected: %w", f.Hash, err)
	}
	if n == 0 {
		return false, nil
	}

	roles := make([]string, 0, len(f.Predecessors))
	for role := range f.Predecessors {
		roles = append(roles, role)
	}
	slices.Sort(roles)
	for _, role := range roles {
		for _, pred := range f.Predecessors[role] {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO edges (successor, role, predecessor)
				VALUES (?, ?, ?)
				ON CONFLICT DO NOTHING
			`, f.Hash, role, pred); err != nil {
				return false, fmt.Errorf("put fact %s: edge %s -> %s: %w", f.Hash, role, pred, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("put fact %s: commit: %w", f.Hash, err)
	}
	return true, nil
}
