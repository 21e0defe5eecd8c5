package store

import (
	"maps"
	"slices"
)

// Transformer produces a new revision of a node.
type Transformer func(*Store) *Store

// DataTransformer produces a new data map from the old one.
type DataTransformer func(Data) Data

// ValueTransformer produces a new value from the old one (nil when unset).
type ValueTransformer func(any) any

// Comparer orders two OrderBy keys, returning <0, 0 or >0.
type Comparer func(a, b any) int

// Apply folds ts over s in order.
func Apply(s *Store, ts ...Transformer) *Store {
	for _, t := range ts {
		s = t(s)
	}
	return s
}

// at lifts t, a transformer for the node at path, to a transformer for the
// root. The chain is built from the last step back to the first and runs
// root first; each level replaces only the child on the path. A level that
// cannot resolve its step, or whose child comes back unchanged, returns its
// input pointer.
func at(path Path, t Transformer) Transformer {
	for i := len(path) - 1; i >= 0; i-- {
		step, inner := path[i], t
		t = func(s *Store) *Store {
			if s == nil {
				return nil
			}
			items := s.Items[step.Collection]
			idx := indexOf(items, step.Hash)
			if idx < 0 {
				return s
			}
			child := inner(items[idx])
			if child == items[idx] {
				return s
			}
			next := slices.Clone(items)
			next[idx] = child
			return s.withItems(step.Collection, next)
		}
	}
	return func(s *Store) *Store {
		if s == nil {
			return nil
		}
		return t(s)
	}
}

// SetData replaces the data of the node at path with transform(old).
func SetData(path Path, transform DataTransformer) Transformer {
	return at(path, func(s *Store) *Store {
		return s.withData(transform(s.Data))
	})
}

// SetFieldValue is a DataTransformer that replaces one field with
// transform(old). Other fields are carried over.
func SetFieldValue(name string, transform ValueTransformer) DataTransformer {
	return func(data Data) Data {
		next := make(Data, len(data)+1)
		maps.Copy(next, data)
		next[name] = transform(data[name])
		return next
	}
}

// AddItem inserts item into the named collection of the node at path and,
// when cmp is non-nil, stably re-sorts the collection by OrderBy.
//
// An item whose hash is already present replaces the existing one, so
// hashes stay unique within the collection.
func AddItem(path Path, collection string, item *Store, cmp Comparer) Transformer {
	return at(path, func(s *Store) *Store {
		items := s.Items[collection]
		var next []*Store
		if idx := indexOf(items, item.Hash); idx >= 0 {
			next = slices.Clone(items)
			next[idx] = item
		} else {
			next = make([]*Store, len(items), len(items)+1)
			copy(next, items)
			next = append(next, item)
		}
		sortItems(next, cmp)
		return s.withItems(collection, next)
	})
}

// RemoveItem drops the item with hash from the named collection of the
// node at path. Removing an absent item returns the input unchanged.
func RemoveItem(path Path, collection, hash string) Transformer {
	return at(path, func(s *Store) *Store {
		items := s.Items[collection]
		idx := indexOf(items, hash)
		if idx < 0 {
			return s
		}
		return s.withItems(collection, slices.Delete(slices.Clone(items), idx, idx+1))
	})
}

// SetOrderBy updates the OrderBy key of the item at path and re-sorts its
// containing collection with cmp. path names the item itself; its
// container is found by dropping the last step. The root has no OrderBy,
// so an empty path is a no-op.
func SetOrderBy(path Path, transform ValueTransformer, cmp Comparer) Transformer {
	parent, last, ok := path.Parent()
	if !ok {
		return func(s *Store) *Store { return s }
	}
	return at(parent, func(s *Store) *Store {
		items := s.Items[last.Collection]
		idx := indexOf(items, last.Hash)
		if idx < 0 {
			return s
		}
		item := *items[idx]
		item.OrderBy = transform(item.OrderBy)
		next := slices.Clone(items)
		next[idx] = &item
		sortItems(next, cmp)
		return s.withItems(last.Collection, next)
	})
}

func sortItems(items []*Store, cmp Comparer) {
	if cmp == nil {
		return
	}
	slices.SortStableFunc(items, func(a, b *Store) int {
		return cmp(a.OrderBy, b.OrderBy)
	})
}
