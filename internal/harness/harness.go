package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/factview/internal/compiler"
	"github.com/roach88/factview/internal/factgraph"
	"github.com/roach88/factview/internal/factlog"
	"github.com/roach88/factview/internal/ir"
	"github.com/roach88/factview/internal/observe"
	"github.com/roach88/factview/internal/testutil"
)

// Option configures a scenario run.
type Option func(*config)

type config struct {
	dbPath string
	logger *slog.Logger
}

// WithDatabase runs against a SQLite fact log at path instead of a private
// in-memory database. Facts already in the log stay visible to the view.
func WithDatabase(path string) Option {
	return func(c *config) {
		c.dbPath = path
	}
}

// WithLogger sets the logger handed to the fact graph and observer.
// Default: logs are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// Harness holds the state of one scenario run.
type Harness struct {
	graph    *factgraph.Graph
	observer *observe.Observer
	facts    map[string]ir.Fact // alias -> fact
	aliases  map[string]string  // hash -> alias
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Compile the view from the scenario's CUE specs
//  2. Open a fresh fact log and fact graph
//  3. Save the initial facts and start the view on the root
//  4. Run each step, snapshotting the view and checking its expectations
//  5. Check the final assertions
//
// Errors that stop execution (bad specs, unknown predecessors, storage
// failures) are returned; failed expectations are reported in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	cfg := &config{
		dbPath: ":memory:",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	view, err := LoadView(scenario.Specs, scenario.View)
	if err != nil {
		return nil, err
	}

	st, err := factlog.Open(cfg.dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open fact log: %w", err)
	}
	defer st.Close()

	graph := factgraph.NewGraph(
		factgraph.WithFactSource(st),
		factgraph.WithIDGenerator(testutil.NewSequentialIDs("sub")),
		factgraph.WithLogger(cfg.logger),
	)

	h := &Harness{
		graph:    graph,
		observer: observe.New(graph, view.Mapping, observe.WithLogger(cfg.logger)),
		facts:    make(map[string]ir.Fact),
		aliases:  make(map[string]string),
		logger:   cfg.logger,
	}
	defer h.observer.Stop()

	ctx := context.Background()
	result := NewResult()

	if err := h.save(ctx, scenario.Facts); err != nil {
		return nil, fmt.Errorf("failed to save facts: %w", err)
	}
	if err := h.start(ctx, scenario.Root); err != nil {
		return nil, err
	}
	result.AddSnapshot(0, "start "+scenario.Root, h.snapshot())

	for i, step := range scenario.Steps {
		label, err := h.executeStep(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		value := h.snapshot()
		result.AddSnapshot(i+1, label, value)
		for _, msg := range EvaluateAssertions(value, step.Expect, fmt.Sprintf("steps[%d].expect", i)) {
			result.AddError(msg)
		}
	}

	for _, msg := range EvaluateAssertions(result.Final(), scenario.Assertions, "assertions") {
		result.AddError(msg)
	}
	return result, nil
}

// LoadView compiles the CUE files and returns the named view. An empty
// name selects the only view.
func LoadView(specs []string, name string) (*compiler.View, error) {
	ctx := cuecontext.New()
	var unified cue.Value
	for i, path := range specs {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read spec: %w", err)
		}
		v := ctx.CompileBytes(data, cue.Filename(path))
		if i == 0 {
			unified = v
		} else {
			unified = unified.Unify(v)
		}
	}
	if err := unified.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile specs: %w", err)
	}

	views, err := compiler.CompileViews(unified)
	if err != nil {
		return nil, fmt.Errorf("failed to compile views: %w", err)
	}
	if name == "" {
		if len(views) != 1 {
			return nil, fmt.Errorf("specs declare %d views, name one with view:", len(views))
		}
		return views[0], nil
	}
	for _, v := range views {
		if v.Name == name {
			return v, nil
		}
	}
	return nil, fmt.Errorf("view %q not found in specs", name)
}

func (h *Harness) executeStep(ctx context.Context, step Step) (string, error) {
	switch {
	case len(step.Save) > 0:
		if err := h.save(ctx, step.Save); err != nil {
			return "", err
		}
		aliases := make([]string, len(step.Save))
		for i, f := range step.Save {
			aliases[i] = f.Alias
		}
		return "save " + strings.Join(aliases, ","), nil

	case step.Start != "":
		return "start " + step.Start, h.start(ctx, step.Start)

	case step.Stop:
		h.observer.Stop()
		return "stop", nil
	}
	return "", fmt.Errorf("empty step")
}

// save builds the facts, resolving predecessor aliases, and saves them in
// one call.
func (h *Harness) save(ctx context.Context, defs []FactDef) error {
	if len(defs) == 0 {
		return nil
	}
	facts := make([]ir.Fact, 0, len(defs))
	for _, def := range defs {
		f, err := h.buildFact(def)
		if err != nil {
			return fmt.Errorf("fact %s: %w", def.Alias, err)
		}
		h.facts[def.Alias] = f
		h.aliases[f.Hash] = def.Alias
		facts = append(facts, f)
	}
	if err := h.graph.Save(ctx, facts...); err != nil {
		return err
	}
	h.logger.Info("facts saved", "count", len(facts))
	return nil
}

func (h *Harness) buildFact(def FactDef) (ir.Fact, error) {
	fields := ir.IRObject{}
	if def.Fields != nil {
		v, err := ir.FromNative(def.Fields)
		if err != nil {
			return ir.Fact{}, fmt.Errorf("fields: %w", err)
		}
		fields = v.(ir.IRObject)
	}

	preds := make(map[string][]string, len(def.Predecessors))
	for role, aliases := range def.Predecessors {
		hashes := make([]string, 0, len(aliases))
		for _, alias := range aliases {
			p, ok := h.facts[alias]
			if !ok {
				return ir.Fact{}, fmt.Errorf("unknown predecessor alias %q", alias)
			}
			hashes = append(hashes, p.Hash)
		}
		preds[role] = hashes
	}
	return ir.NewFactFromHashes(def.Type, fields, preds)
}

func (h *Harness) start(ctx context.Context, alias string) error {
	root, ok := h.facts[alias]
	if !ok {
		return fmt.Errorf("unknown root alias %q", alias)
	}
	h.observer.Start(root)
	if err := h.observer.Load(ctx); err != nil {
		return fmt.Errorf("failed to load view: %w", err)
	}
	return nil
}

func (h *Harness) snapshot() any {
	v := h.observer.Value()
	if v == nil {
		return nil
	}
	return Normalize(v, h.aliases)
}
