package store

import (
	"strings"
)

// Step selects one child: the item with Hash in the named collection.
type Step struct {
	Collection string
	Hash       string
}

// Path addresses a node by walking steps from the root. The empty path is
// the root itself.
type Path []Step

// CombinePath returns path extended by one step. The result never shares
// a backing array with path.
func CombinePath(path Path, collection, hash string) Path {
	out := make(Path, len(path), len(path)+1)
	copy(out, path)
	return append(out, Step{Collection: collection, Hash: hash})
}

// Parent splits p into its container path and final step. ok is false for
// the root.
func (p Path) Parent() (parent Path, last Step, ok bool) {
	if len(p) == 0 {
		return nil, Step{}, false
	}
	return p[:len(p)-1:len(p)-1], p[len(p)-1], true
}

// String renders the path for logs, e.g. "/items[3f2a]/subItems[9bc1]".
// The root renders as "/".
func (p Path) String() string {
	if len(p) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, step := range p {
		b.WriteByte('/')
		b.WriteString(step.Collection)
		b.WriteByte('[')
		b.WriteString(shortHash(step.Hash))
		b.WriteByte(']')
	}
	return b.String()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
