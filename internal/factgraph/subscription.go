package factgraph

import (
	"context"
	"errors"
	"slices"

	"github.com/roach88/factview/internal/query"
)

// subscription implements Handle. All fields are guarded by g.mu.
type subscription struct {
	g        *Graph
	id       string
	parent   *subscription
	query    query.Query
	added    AddedFunc
	removed  RemovedFunc
	sets     []*resultSet // one per parent result; a single set at the top level
	children []*subscription
	stopped  bool
	err      error
}

func (s *subscription) fail(err error) {
	if err != nil && s.err == nil {
		s.err = err
	}
}

// Watch opens q under every current and future result of s.
func (s *subscription) Watch(q query.Query, added AddedFunc, removed RemovedFunc) Handle {
	g := s.g
	g.mu.Lock()
	defer g.mu.Unlock()

	c := g.newSubscription(s, q, added, removed)
	g.logger.Debug("watch", "subscription", c.id, "parent", s.id, "query", q.String())
	if s.stopped {
		c.stopped = true
		return c
	}
	if err := query.Validate(q); err != nil {
		c.fail(err)
		c.stopped = true
		s.children = append(s.children, c)
		return c
	}
	s.children = append(s.children, c)

	ctx := context.Background()
	for _, set := range slices.Clone(s.sets) {
		for _, h := range slices.Clone(set.order) {
			c.fail(g.openNested(ctx, c, set.byHash[h]))
		}
	}
	return c
}

// Load reports the first error met while delivering results to s or its
// nested watches. Delivery is synchronous, so there is nothing to wait for
// unless ctx is already done.
func (s *subscription) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.g.mu.Lock()
	defer s.g.mu.Unlock()
	return s.loadErr()
}

func (s *subscription) loadErr() error {
	errs := []error{s.err}
	for _, c := range s.children {
		errs = append(errs, c.loadErr())
	}
	return errors.Join(errs...)
}

// Stop ends s and its nested watches without delivering removals.
func (s *subscription) Stop() {
	g := s.g
	g.mu.Lock()
	defer g.mu.Unlock()

	if s.stopped {
		return
	}
	s.stop()
	if s.parent == nil {
		g.subs = slices.DeleteFunc(g.subs, func(x *subscription) bool { return x == s })
	} else {
		p := s.parent
		p.children = slices.DeleteFunc(p.children, func(x *subscription) bool { return x == s })
		for _, set := range p.sets {
			for _, r := range set.byHash {
				delete(r.children, s)
			}
		}
	}
	g.logger.Debug("subscription stopped", "subscription", s.id)
}

func (s *subscription) stop() {
	s.stopped = true
	s.sets = nil
	for _, c := range s.children {
		c.stop()
	}
}
