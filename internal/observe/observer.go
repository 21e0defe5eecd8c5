package observe

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/roach88/factview/internal/factgraph"
	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/store"
	"github.com/roach88/factview/internal/viewmodel"
)

// Listener is called with each new store revision. It runs on the
// delivering goroutine while the fact graph is locked, so it must not call
// back into the Observer's Start, Stop or Load, or into the graph.
type Listener func(*store.Store)

// Observer projects one root fact at a time through a mapping.
//
// Thread-safety model:
//   - every store mutation goes through apply, under mu
//   - events from an earlier Start are dropped by generation
//   - Start, Stop and Load are safe from any goroutine, but not from a
//     Listener
type Observer struct {
	source    factgraph.Source
	mapping   *viewmodel.Mapping
	logger    *slog.Logger
	metrics   *Metrics
	listeners []Listener

	mu         sync.Mutex
	generation uint64
	running    bool
	root       ir.Fact
	current    *store.Store
	handles    []factgraph.Handle
	opened     chan struct{} // closed once Start has set handles
}

// Option configures an Observer.
type Option func(*Observer)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Observer) {
		o.logger = l
	}
}

// WithMetrics records activity in m.
func WithMetrics(m *Metrics) Option {
	return func(o *Observer) {
		o.metrics = m
	}
}

// WithListener registers a listener for store revisions.
func WithListener(l Listener) Option {
	return func(o *Observer) {
		o.listeners = append(o.listeners, l)
	}
}

// New creates an Observer. It does nothing until Start.
func New(source factgraph.Source, mapping *viewmodel.Mapping, opts ...Option) *Observer {
	o := &Observer{
		source:  source,
		mapping: mapping,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start projects root. The initial snapshot is built synchronously, then
// the mapping's watches are opened. If the observer was already running,
// the previous tree and all of its subscriptions are discarded first.
func (o *Observer) Start(root ir.Fact) {
	o.Stop()

	o.mu.Lock()
	o.generation++
	gen := o.generation
	o.running = true
	o.root = root
	o.current = o.mapping.Initial(root)
	initial := o.current
	opened := make(chan struct{})
	o.opened = opened
	o.mu.Unlock()

	o.logger.Info("observer starting", "root", root.Hash, "type", root.Type, "generation", gen)
	o.notify(initial)

	hs := o.mapping.CreateWatches(viewmodel.RootWatch(o.source, root), o.mutator(gen))

	o.mu.Lock()
	close(opened)
	if o.generation != gen {
		// Stopped or restarted while the watches were opening.
		o.mu.Unlock()
		stopAll(hs)
		return
	}
	o.handles = hs
	o.mu.Unlock()
	o.metrics.started(len(hs))
}

// Stop ends every subscription and discards the tree. Events that arrive
// afterwards are ignored.
func (o *Observer) Stop() {
	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.generation++
	o.running = false
	hs := o.handles
	o.handles = nil
	o.current = nil
	root := o.root
	o.root = ir.Fact{}
	o.mu.Unlock()

	stopAll(hs)
	o.metrics.stopped(len(hs))
	o.logger.Info("observer stopped", "root", root.Hash)
}

// Load waits until every open subscription has delivered its initial
// backlog. Until then the store is provisional. Called while Start is
// still opening watches, it waits for them to open first.
func (o *Observer) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o.mu.Lock()
	opened := o.opened
	o.mu.Unlock()
	if opened != nil {
		select {
		case <-opened:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	o.mu.Lock()
	hs := append([]factgraph.Handle(nil), o.handles...)
	o.mu.Unlock()

	var errs []error
	for _, h := range hs {
		if err := h.Load(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (o *Observer) mutator(gen uint64) viewmodel.Mutator {
	return func(t store.Transformer) {
		o.apply(gen, t)
	}
}

// apply is the single entry point for store mutations.
func (o *Observer) apply(gen uint64, t store.Transformer) {
	o.mu.Lock()
	if gen != o.generation || !o.running {
		o.mu.Unlock()
		o.logger.Debug("stale event ignored", "generation", gen)
		o.metrics.mutation(outcomeStale)
		return
	}
	prev := o.current
	next := t(prev)
	o.current = next
	o.mu.Unlock()

	if next == prev {
		o.metrics.mutation(outcomeUnchanged)
		return
	}
	o.metrics.mutation(outcomeChanged)
	o.notify(next)
}

func (o *Observer) notify(s *store.Store) {
	for _, l := range o.listeners {
		l(s)
	}
}

// Store returns the current revision, or nil when not running.
func (o *Observer) Store() *store.Store {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Root returns the fact being projected.
func (o *Observer) Root() (ir.Fact, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.root, o.running
}

// Value materializes the whole tree.
func (o *Observer) Value() viewmodel.Value {
	return o.mapping.Value(o.Store())
}

// Data reads the data of one node without materializing the tree.
func (o *Observer) Data(path store.Path) store.Data {
	return store.GetData(o.Store(), path)
}

// Items reads one collection without materializing the tree.
func (o *Observer) Items(path store.Path, collection string) []*store.Store {
	return store.GetItems(o.Store(), path, collection)
}

func stopAll(hs []factgraph.Handle) {
	for _, h := range hs {
		h.Stop()
	}
}
