package viewmodel

import (
	"cmp"

	"github.com/roach88/factview/internal/store"
)

// Ascending orders keys of type K from smallest to largest. Keys that are
// not a K sort after every K, keeping their relative order.
func Ascending[K cmp.Ordered]() store.Comparer {
	return func(a, b any) int {
		ka, aok := a.(K)
		kb, bok := b.(K)
		switch {
		case aok && bok:
			return cmp.Compare(ka, kb)
		case aok:
			return -1
		case bok:
			return 1
		default:
			return 0
		}
	}
}

// Descending orders keys of type K from largest to smallest. Keys that are
// not a K still sort last.
func Descending[K cmp.Ordered]() store.Comparer {
	asc := Ascending[K]()
	return func(a, b any) int {
		_, aok := a.(K)
		_, bok := b.(K)
		if aok && bok {
			return -asc(a, b)
		}
		return asc(a, b)
	}
}
