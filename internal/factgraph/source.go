package factgraph

import (
	"context"

	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/query"
)

// AddedFunc is called when child becomes a result. parent is the context of
// the result the subscription is nested under (nil at the top level). The
// return value becomes child's context.
type AddedFunc func(parent any, child ir.Fact) any

// RemovedFunc is called with the context of a result that went away.
type RemovedFunc func(child any)

// Handle controls one subscription.
type Handle interface {
	// Watch opens q under every result of this subscription.
	Watch(q query.Query, added AddedFunc, removed RemovedFunc) Handle
	// Load waits until the initial backlog of this subscription and its
	// nested watches has been delivered, and reports any failure to
	// query it.
	Load(ctx context.Context) error
	// Stop ends this subscription and every nested one. It is idempotent.
	Stop()
}

// Source opens subscriptions.
type Source interface {
	Subscribe(root ir.Fact, q query.Query, added AddedFunc, removed RemovedFunc) Handle
}

// FactSource stores facts and answers successor queries in arrival order.
// Implemented by MemorySource and factlog.Store.
//
// Arrival order is the seq each fact was stored with. PutFact rejects a seq
// that is not greater than LastSeq; a seq of 0 takes the next one.
type FactSource interface {
	PutFact(ctx context.Context, f ir.Fact, seq int64) (bool, error)
	GetFact(ctx context.Context, hash string) (ir.Fact, bool, error)
	Successors(ctx context.Context, parent string, q query.Query) ([]ir.Fact, error)
	LastSeq(ctx context.Context) (int64, error)
}

// IDGenerator generates subscription IDs for log correlation.
type IDGenerator interface {
	Generate() string
}
