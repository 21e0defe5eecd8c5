package factlog

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/factview/internal/ir"
)

func marshalFields(fields ir.IRObject) (string, error) {
	if fields == nil {
		fields = ir.IRObject{}
	}
	b, err := ir.MarshalCanonical(fields)
	if err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	return string(b), nil
}

func unmarshalFields(data string) (ir.IRObject, error) {
	var fields ir.IRObject
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return fields, nil
}

func marshalPredecessors(preds map[string][]string) (string, error) {
	obj := make(ir.IRObject, len(preds))
	for role, hashes := range preds {
		arr := make(ir.IRArray, len(hashes))
		for i, h := range hashes {
			arr[i] = ir.IRString(h)
		}
		obj[role] = arr
	}
	b, err := ir.MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("marshal predecessors: %w", err)
	}
	return string(b), nil
}

func unmarshalPredecessors(data string) (map[string][]string, error) {
	var preds map[string][]string
	if err := json.Unmarshal([]byte(data), &preds); err != nil {
		return nil, fmt.Errorf("unmarshal predecessors: %w", err)
	}
	if preds == nil {
		preds = map[string][]string{}
	}
	return preds, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanFact reads (hash, type, fields, predecessors, seq) and verifies that
// the stored hash still matches the content.
func scanFact(row scanner) (ir.Fact, int64, error) {
	var hash, factType, fieldsJSON, predsJSON string
	var seq int64
	if err := row.Scan(&hash, &factType, &fieldsJSON, &predsJSON, &seq); err != nil {
		return ir.Fact{}, 0, err
	}

	fields, err := unmarshalFields(fieldsJSON)
	if err != nil {
		return ir.Fact{}, 0, fmt.Errorf("fact %s: %w", hash, err)
	}
	preds, err := unmarshalPredecessors(predsJSON)
	if err != nil {
		return ir.Fact{}, 0, fmt.Errorf("fact %s: %w", hash, err)
	}

	f, err := ir.NewFactFromHashes(factType, fields, preds)
	if err != nil {
		return ir.Fact{}, 0, err
	}
	if f.Hash != hash {
		return ir.Fact{}, 0, fmt.Errorf("fact %s: stored content hashes to %s", hash, f.Hash)
	}
	return f, seq, nil
}
