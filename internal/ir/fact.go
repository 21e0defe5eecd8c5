package ir

import (
	"fmt"
	"maps"
	"slices"
)

// Fact is an immutable unit of data in the fact graph.
//
// Fields and Predecessors must not be modified after construction: the
// Hash was computed from them. Build facts with NewFact.
type Fact struct {
	Hash         string              `json:"hash"`
	Type         string              `json:"type"`
	Fields       IRObject            `json:"fields"`
	Predecessors map[string][]string `json:"predecessors"` // role -> predecessor hashes
}

// Predecessor names one predecessor role and the facts it points at.
type Predecessor struct {
	Role  string
	Facts []Fact
}

// P is shorthand for a Predecessor entry.
//
//	ir.NewFact("Application.Name", fields, ir.P("root", root), ir.P("prior", first))
func P(role string, facts ...Fact) Predecessor {
	return Predecessor{Role: role, Facts: facts}
}

// NewFact builds a fact and computes its hash.
// A role may be listed with zero facts (e.g. an empty prior list); it is
// kept so that the role is part of the identity.
func NewFact(factType string, fields IRObject, preds ...Predecessor) (Fact, error) {
	if factType == "" {
		return Fact{}, fmt.Errorf("fact type is required")
	}
	if fields == nil {
		fields = IRObject{}
	}

	predecessors := make(map[string][]string, len(preds))
	for _, p := range preds {
		if p.Role == "" {
			return Fact{}, fmt.Errorf("fact %s: predecessor role is required", factType)
		}
		hashes := predecessors[p.Role]
		for _, f := range p.Facts {
			if f.Hash == "" {
				return Fact{}, fmt.Errorf("fact %s: predecessor in role %q has no hash", factType, p.Role)
			}
			hashes = append(hashes, f.Hash)
		}
		predecessors[p.Role] = hashes
	}
	return NewFactFromHashes(factType, fields, predecessors)
}

// NewFactFromHashes builds a fact whose predecessors are already known by
// hash, as when a fact is loaded from storage.
func NewFactFromHashes(factType string, fields IRObject, predecessors map[string][]string) (Fact, error) {
	normalized := make(map[string][]string, len(predecessors))
	for role, hashes := range predecessors {
		hs := append([]string{}, hashes...)
		slices.Sort(hs)
		normalized[role] = slices.Compact(hs)
	}
	if fields == nil {
		fields = IRObject{}
	}

	hash, err := FactHash(factType, fields, normalized)
	if err != nil {
		return Fact{}, fmt.Errorf("fact %s: %w", factType, err)
	}
	return Fact{
		Hash:         hash,
		Type:         factType,
		Fields:       maps.Clone(fields),
		Predecessors: normalized,
	}, nil
}

// MustNewFact is like NewFact but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustNewFact(factType string, fields IRObject, preds ...Predecessor) Fact {
	f, err := NewFact(factType, fields, preds...)
	if err != nil {
		panic(err)
	}
	return f
}

// Field returns the named field as a plain Go value (string, int64, bool,
// []any, map[string]any) or nil when absent.
func (f Fact) Field(name string) any {
	v, ok := f.Fields[name]
	if !ok {
		return nil
	}
	return Native(v)
}

// StringField returns the named field when it is a string, "" otherwise.
func (f Fact) StringField(name string) string {
	if s, ok := f.Fields[name].(IRString); ok {
		return string(s)
	}
	return ""
}

// IntField returns the named field when it is an integer, 0 otherwise.
func (f Fact) IntField(name string) int64 {
	if n, ok := f.Fields[name].(IRInt); ok {
		return int64(n)
	}
	return 0
}

// PredecessorHashes returns the hashes listed under role, sorted.
func (f Fact) PredecessorHashes(role string) []string {
	return f.Predecessors[role]
}

// HasPredecessor reports whether hash is listed under role.
func (f Fact) HasPredecessor(role, hash string) bool {
	_, found := slices.BinarySearch(f.Predecessors[role], hash)
	return found
}

// IsZero reports whether f is the zero Fact.
func (f Fact) IsZero() bool {
	return f.Hash == ""
}
