package factgraph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/query"
)

// Graph is a fact store with live subscriptions.
type Graph struct {
	mu     sync.Mutex
	facts  FactSource
	clock  Clock
	ids    IDGenerator
	logger *slog.Logger
	subs   []*subscription // top-level, in creation order
}

// Option configures a Graph.
type Option func(*Graph)

// WithFactSource sets where facts are stored. Default: a new MemorySource.
func WithFactSource(fs FactSource) Option {
	return func(g *Graph) {
		g.facts = fs
	}
}

// WithClock sets the arrival clock. Default: a SeqClock resuming after the
// fact source's LastSeq, read on the first Save.
func WithClock(c Clock) Option {
	return func(g *Graph) {
		g.clock = c
	}
}

// WithIDGenerator sets how subscription IDs are generated.
// Default: UUIDv7Generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(g *Graph) {
		g.ids = ids
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = l
	}
}

// NewGraph creates a Graph.
func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		ids:    UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.facts == nil {
		g.facts = NewMemorySource()
	}
	return g
}

// Fact returns the stored fact with hash.
func (g *Graph) Fact(ctx context.Context, hash string) (ir.Fact, bool, error) {
	return g.facts.GetFact(ctx, hash)
}

// Save stores facts in order and refreshes every live subscription.
//
// Each fact's predecessors must already be stored or appear earlier in the
// same call. Saving a fact twice is a no-op. On error, facts saved before
// the failing one stay saved and subscriptions are still refreshed.
func (g *Graph) Save(ctx context.Context, facts ...ir.Fact) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.seedClock(ctx); err != nil {
		return err
	}

	var saveErr error
	added := 0
	for _, f := range facts {
		ok, err := g.save(ctx, f)
		if err != nil {
			saveErr = err
			break
		}
		if ok {
			added++
		}
	}
	if added == 0 {
		return saveErr
	}

	var errs []error
	for _, s := range g.subs {
		for _, set := range slices.Clone(s.sets) {
			if err := g.refresh(ctx, s, set); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		g.logger.Error("subscription refresh failed", "error", errors.Join(errs...))
	}
	return errors.Join(append([]error{saveErr}, errs...)...)
}

// seedClock resumes arrival numbering after the source's last seq. Must be
// called with g.mu held.
func (g *Graph) seedClock(ctx context.Context) error {
	if g.clock != nil {
		return nil
	}
	last, err := g.facts.LastSeq(ctx)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	g.clock = NewClockAt(last)
	return nil
}

func (g *Graph) save(ctx context.Context, f ir.Fact) (bool, error) {
	if f.IsZero() {
		return false, fmt.Errorf("save: fact has no hash")
	}
	_, exists, err := g.facts.GetFact(ctx, f.Hash)
	if err != nil {
		return false, fmt.Errorf("save %s: %w", f.Hash, err)
	}
	if exists {
		return false, nil
	}
	for role, hashes := range f.Predecessors {
		for _, p := range hashes {
			_, ok, err := g.facts.GetFact(ctx, p)
			if err != nil {
				return false, fmt.Errorf("save %s: %w", f.Hash, err)
			}
			if !ok {
				return false, fmt.Errorf("save %s: predecessor %s (role %q) is unknown", f.Type, p, role)
			}
		}
	}

	seq := g.clock.Next()
	inserted, err := g.facts.PutFact(ctx, f, seq)
	if err != nil {
		return false, fmt.Errorf("save %s: %w", f.Hash, err)
	}
	if inserted {
		g.logger.Debug("fact saved", "type", f.Type, "hash", f.Hash, "seq", seq)
	}
	return inserted, nil
}

// Subscribe runs q from root and keeps its results up to date. The initial
// backlog is delivered before Subscribe returns.
func (g *Graph) Subscribe(root ir.Fact, q query.Query, added AddedFunc, removed RemovedFunc) Handle {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := g.newSubscription(nil, q, added, removed)
	g.subs = append(g.subs, s)
	g.logger.Debug("subscribe", "subscription", s.id, "root", root.Hash, "query", q.String())

	if err := query.Validate(q); err != nil {
		s.fail(err)
		return s
	}
	set := newResultSet(root, nil)
	s.sets = append(s.sets, set)
	s.fail(g.refresh(context.Background(), s, set))
	return s
}

func (g *Graph) newSubscription(parent *subscription, q query.Query, added AddedFunc, removed RemovedFunc) *subscription {
	return &subscription{
		g:       g,
		id:      g.ids.Generate(),
		parent:  parent,
		query:   q,
		added:   added,
		removed: removed,
	}
}

// refresh brings one result set up to date with the fact source: removed
// results first (latest first), then nested sets of surviving results,
// then new results in arrival order. Must be called with g.mu held.
func (g *Graph) refresh(ctx context.Context, s *subscription, set *resultSet) error {
	if s.stopped {
		return nil
	}
	current, err := g.facts.Successors(ctx, set.parent.Hash, s.query)
	if err != nil {
		g.logger.Error("query failed", "subscription", s.id, "query", s.query.String(), "error", err)
		return fmt.Errorf("subscription %s: %w", s.id, err)
	}

	live := make(map[string]bool, len(current))
	for _, f := range current {
		live[f.Hash] = true
	}
	for i := len(set.order) - 1; i >= 0; i-- {
		if h := set.order[i]; !live[h] {
			g.removeResult(s, set, h)
		}
	}

	var errs []error
	for _, h := range slices.Clone(set.order) {
		r := set.byHash[h]
		for _, c := range s.children {
			if cs := r.children[c]; cs != nil {
				errs = append(errs, g.refresh(ctx, c, cs))
			}
		}
	}
	for _, f := range current {
		if _, ok := set.byHash[f.Hash]; !ok {
			errs = append(errs, g.addResult(ctx, s, set, f))
		}
	}
	return errors.Join(errs...)
}

func (g *Graph) addResult(ctx context.Context, s *subscription, set *resultSet, f ir.Fact) error {
	g.logger.Debug("result added", "subscription", s.id, "type", f.Type, "hash", f.Hash)
	r := &result{fact: f, children: make(map[*subscription]*resultSet)}
	if s.added != nil {
		r.ctx = s.added(set.parentCtx, f)
	}
	set.order = append(set.order, f.Hash)
	set.byHash[f.Hash] = r

	var errs []error
	for _, c := range s.children {
		errs = append(errs, g.openNested(ctx, c, r))
	}
	return errors.Join(errs...)
}

// openNested starts nested subscription c under result r. A stopped c,
// such as one whose query failed validation, gets no result set.
func (g *Graph) openNested(ctx context.Context, c *subscription, r *result) error {
	if c.stopped {
		return nil
	}
	cs := newResultSet(r.fact, r.ctx)
	r.children[c] = cs
	c.sets = append(c.sets, cs)
	return g.refresh(ctx, c, cs)
}

func (g *Graph) removeResult(s *subscription, set *resultSet, hash string) {
	r, ok := set.byHash[hash]
	if !ok {
		return
	}
	for i := len(s.children) - 1; i >= 0; i-- {
		c := s.children[i]
		cs := r.children[c]
		if cs == nil {
			continue
		}
		for j := len(cs.order) - 1; j >= 0; j-- {
			g.removeResult(c, cs, cs.order[j])
		}
		c.sets = slices.DeleteFunc(c.sets, func(x *resultSet) bool { return x == cs })
	}

	delete(set.byHash, hash)
	set.order = slices.DeleteFunc(set.order, func(h string) bool { return h == hash })
	g.logger.Debug("result removed", "subscription", s.id, "hash", hash)
	if !s.stopped && s.removed != nil {
		s.removed(r.ctx)
	}
}

type resultSet struct {
	parent    ir.Fact
	parentCtx any
	order     []string
	byHash    map[string]*result
}

func newResultSet(parent ir.Fact, parentCtx any) *resultSet {
	return &resultSet{
		parent:    parent,
		parentCtx: parentCtx,
		byHash:    make(map[string]*result),
	}
}

type result struct {
	fact     ir.Fact
	ctx      any
	children map[*subscription]*resultSet
}
