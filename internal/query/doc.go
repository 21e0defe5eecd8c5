// Package query defines the structural queries ("prepositions") that select
// facts reachable from a parent fact.
//
// A Query names one hop through the fact graph: successors of the parent
// whose Type matches and which list the parent under Role. Conditions then
// filter those successors by the existence (or absence) of their own
// successors, and a Predicate filters by field values.
//
// The current-value pattern is expressed as a condition:
//
//	query.Successors("Application.Name", "root").
//		Where(query.NotExists("Application.Name", "prior"))
//
// selects the names of a root that no later name lists as its prior.
//
// Predicate is a sealed interface. Only types in this package implement it,
// which lets backends (the in-memory matcher and querysql) switch over it
// exhaustively.
package query
