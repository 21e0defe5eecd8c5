package factgraph

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/query"
)

// MemorySource is an in-memory FactSource.
type MemorySource struct {
	mu         sync.RWMutex
	facts      map[string]ir.Fact
	seqs       map[string]int64
	successors map[string][]string // predecessor hash -> successor hashes, arrival order
	last       int64
}

// NewMemorySource creates an empty MemorySource.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		facts:      make(map[string]ir.Fact),
		seqs:       make(map[string]int64),
		successors: make(map[string][]string),
	}
}

// PutFact stores f at seq. It reports false when f was already stored.
func (m *MemorySource) PutFact(_ context.Context, f ir.Fact, seq int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.facts[f.Hash]; ok {
		return false, nil
	}
	switch {
	case seq == 0:
		seq = m.last + 1
	case seq <= m.last:
		return false, fmt.Errorf("put fact %s: seq %d is not after %d", f.Hash, seq, m.last)
	}
	m.facts[f.Hash] = f
	m.seqs[f.Hash] = seq
	m.last = seq

	seen := make(map[string]bool)
	for _, hashes := range f.Predecessors {
		for _, p := range hashes {
			if seen[p] {
				continue
			}
			seen[p] = true
			m.successors[p] = append(m.successors[p], f.Hash)
		}
	}
	return true, nil
}

// GetFact returns the fact stored under hash.
func (m *MemorySource) GetFact(_ context.Context, hash string) (ir.Fact, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.facts[hash]
	return f, ok, nil
}

// Seq returns the arrival seq of the fact stored under hash.
func (m *MemorySource) Seq(hash string) (int64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seq, ok := m.seqs[hash]
	return seq, ok
}

// LastSeq returns the highest seq stored, 0 when empty.
func (m *MemorySource) LastSeq(context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, nil
}

// Successors returns the results of q for parent in arrival order.
func (m *MemorySource) Successors(_ context.Context, parent string, q query.Query) ([]ir.Fact, error) {
	if err := query.Validate(q); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ir.Fact
	for _, h := range m.successors[parent] {
		f := m.facts[h]
		if q.Matches(parent, f, m.lookup) {
			out = append(out, f)
		}
	}
	return out, nil
}

// lookup must be called with m.mu held.
func (m *MemorySource) lookup(hash, factType, role string) []ir.Fact {
	var out []ir.Fact
	for _, h := range m.successors[hash] {
		f := m.facts[h]
		if f.Type == factType && f.HasPredecessor(role, hash) {
			out = append(out, f)
		}
	}
	return out
}
