// Package factlog provides SQLite-backed durable storage for facts.
//
// The log is append-only. A fact is stored once, keyed by its content hash;
// writing the same fact again is a silent no-op. Edges to predecessors are
// stored in their own table so that successor queries compiled by querysql
// can walk the graph.
//
// # Ordering
//
// Every fact receives a seq when first written. All reads order by seq, so
// replaying the log delivers facts in their original arrival order.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON: an edge may only reference stored facts
package factlog
