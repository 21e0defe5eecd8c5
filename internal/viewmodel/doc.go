// Package viewmodel declares how facts project into a view tree.
//
// A Mapping is a named set of field declarations for one fact type. Each
// declaration contributes three things: the field's initial value computed
// synchronously from the parent fact, the subscriptions that keep it up to
// date, and how to read it back out of a store node.
//
// Declarations form a closed set:
//
//	Field             value computed from the parent fact
//	Property          last-writer-wins value of a query's results
//	ResolvedProperty  resolver folded over a query's live results
//	MutableField      every live candidate plus a resolved value
//	Collection        one child node per result, optionally sorted
//	Projection        exactly one child node, present from the start
//
// Collection and Projection wrap a nested Mapping, which is what makes the
// tree recursive.
//
// Subscription events arrive as (parent path, child fact) pairs through a
// BeginWatch and are turned into store transformers handed to a Mutator.
// The package never holds the current store itself.
package viewmodel
