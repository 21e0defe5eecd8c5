// Package factgraph is the subscription side of the fact graph.
//
// A Graph stores facts in a FactSource and keeps subscriptions up to
// date. Subscribe runs a structural query from a root fact and reports each
// result through an added callback; the value the callback returns is the
// result's context, handed back on removal and to nested watches as their
// parent. Handle.Watch opens a nested query under every result of its
// parent handle, including results that arrive later.
//
// # Delivery
//
// Events are delivered synchronously, with the graph locked:
//
//   - during Subscribe and Watch, for the initial backlog
//   - during Save, for every result set the new facts changed
//
// Within one result set, removals are delivered before additions and
// additions follow arrival order. A removed result's nested results are
// removed first, depth-first. Callbacks must not call back into the Graph
// or its handles.
//
// A stopped handle, and every handle nested under it, never calls back
// again.
package factgraph
