// Package store holds the view tree: an immutable-per-revision tree of
// nodes, each with a flat data map and named, ordered child collections.
//
// Nodes are addressed by Path, a list of (collection, hash) steps walked
// down from the root. Mutators are path-scoped transformer builders: given
// a Path they return a Transformer that produces a new root in which only
// the nodes on that path are replaced. Every subtree off the path is shared
// by pointer with the previous revision, so callers can detect unchanged
// subtrees with ==.
//
// A Store must never be modified in place once published. Reads return the
// tree's own maps and slices; treat them as read-only.
//
// Unresolvable paths are not errors. A mutation whose path no longer
// resolves (the node was removed first) returns its input unchanged, and
// reads return nil or an empty slice.
package store
