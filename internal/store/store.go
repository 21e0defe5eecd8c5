package store

import (
	"maps"
	"slices"
)

// Data maps field names to values.
type Data map[string]any

// Store is one node of the view tree.
//
// The root has an empty Hash and nil OrderBy. Children carry the identity
// Hash they were added under (unique within their collection) and an
// opaque OrderBy key used only for sorting.
type Store struct {
	Hash    string
	OrderBy any
	Data    Data
	Items   map[string][]*Store
}

// New builds a root node. items must already hold unique hashes per
// collection.
func New(data Data, items map[string][]*Store) *Store {
	return NewItem("", nil, data, items)
}

// NewItem builds a child node.
func NewItem(hash string, orderBy any, data Data, items map[string][]*Store) *Store {
	if data == nil {
		data = Data{}
	}
	if items == nil {
		items = map[string][]*Store{}
	}
	return &Store{Hash: hash, OrderBy: orderBy, Data: data, Items: items}
}

// GetItem walks path from s. It returns nil when s is nil or any step's
// collection or hash is absent.
func GetItem(s *Store, path Path) *Store {
	node := s
	for _, step := range path {
		if node == nil {
			return nil
		}
		items := node.Items[step.Collection]
		i := indexOf(items, step.Hash)
		if i < 0 {
			return nil
		}
		node = items[i]
	}
	return node
}

// GetData returns the data of the node at path, or nil if the path does
// not resolve.
func GetData(s *Store, path Path) Data {
	node := GetItem(s, path)
	if node == nil {
		return nil
	}
	return node.Data
}

// GetItems returns the named collection of the node at path. Absent
// collections and unresolved paths yield an empty, non-nil slice.
func GetItems(s *Store, path Path, collection string) []*Store {
	node := GetItem(s, path)
	if node == nil {
		return []*Store{}
	}
	items := node.Items[collection]
	if items == nil {
		return []*Store{}
	}
	return items
}

func indexOf(items []*Store, hash string) int {
	return slices.IndexFunc(items, func(item *Store) bool {
		return item.Hash == hash
	})
}

// withItems returns a shallow copy of s with one collection replaced.
func (s *Store) withItems(collection string, items []*Store) *Store {
	next := *s
	next.Items = maps.Clone(s.Items)
	if next.Items == nil {
		next.Items = map[string][]*Store{}
	}
	next.Items[collection] = items
	return &next
}

// withData returns a shallow copy of s with data replaced.
func (s *Store) withData(data Data) *Store {
	next := *s
	next.Data = data
	return &next
}
