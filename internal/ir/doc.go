// Package ir provides the fact model shared by every other package.
//
// A fact is an immutable, content-addressed record: a type name, a set of
// scalar fields and a set of predecessor references grouped by role. Its
// identity is a SHA-256 hash over the RFC 8785 canonical JSON encoding of
// those three parts, so two nodes that build the same fact agree on its
// hash without coordination.
//
// This package imports nothing internal. Constraints:
//   - no float values anywhere; use int64
//   - predecessor lists are sets (sorted, de-duplicated) before hashing
//   - hashes are lowercase hex, 64 characters
package ir
