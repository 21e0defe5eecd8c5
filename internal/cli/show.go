package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/factview/internal/factgraph"
	"github.com/roach88/factview/internal/factlog"
	"github.com/roach88/factview/internal/harness"
	"github.com/roach88/factview/internal/observe"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	View     string
	Root     string
}

// ShowResult is the JSON payload of the show command.
type ShowResult struct {
	View  string `json:"view"`
	Root  string `json:"root"`
	Facts int    `json:"facts"`
	Value any    `json:"value"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show <specs-dir>",
		Short: "Print the current view of a root fact",
		Long: `Project the facts in a SQLite fact log through a view and print it.

The root is given by fact hash. When the specs declare more than one view,
--view selects it.

Example:
  factview show --db ./facts.db --root 3f2a... ./views`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.defaultDB(""), "path to SQLite fact log (FACTVIEW_DB)")
	cmd.Flags().StringVar(&opts.View, "view", "", "view name")
	cmd.Flags().StringVar(&opts.Root, "root", "", "hash of the root fact (required)")
	_ = cmd.MarkFlagRequired("root")

	return cmd
}

func runShow(opts *ShowOptions, specsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)

	if opts.Database == "" {
		return outputCommandError(formatter, ErrCodeFactLog, "no fact log: pass --db or set FACTVIEW_DB")
	}

	loaded, errs := LoadSpecs(specsDir, LoadModeFailFast)
	if len(errs) > 0 {
		code, msg := ErrCodeGeneric, errs[0].Error()
		var loadErr *LoadError
		if errors.As(errs[0], &loadErr) {
			code, msg = loadErr.Code, loadErr.Message
		}
		return outputCommandError(formatter, code, msg)
	}
	view, err := loaded.View(opts.View)
	if err != nil {
		return outputCommandError(formatter, ErrCodeNotFound, err.Error())
	}

	st, err := factlog.Open(opts.Database)
	if err != nil {
		return outputCommandError(formatter, ErrCodeFactLog, err.Error())
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing fact log", "error", closeErr)
		}
	}()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	root, ok, err := st.GetFact(ctx, opts.Root)
	if err != nil {
		return outputCommandError(formatter, ErrCodeFactLog, err.Error())
	}
	if !ok {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("root fact %s not found", opts.Root))
	}
	if root.Type != view.Root {
		return outputCommandError(formatter, ErrCodeGeneric,
			fmt.Sprintf("root fact has type %s, view %s expects %s", root.Type, view.Name, view.Root))
	}
	count, err := st.Count(ctx)
	if err != nil {
		return outputCommandError(formatter, ErrCodeFactLog, err.Error())
	}

	reg := prometheus.NewRegistry()
	graph := factgraph.NewGraph(factgraph.WithFactSource(st), factgraph.WithLogger(logger))
	observer := observe.New(graph, view.Mapping,
		observe.WithLogger(logger),
		observe.WithMetrics(observe.NewMetrics(reg)),
	)
	observer.Start(root)
	defer observer.Stop()
	if err := observer.Load(ctx); err != nil {
		return outputCommandError(formatter, ErrCodeFactLog, err.Error())
	}

	logger.Debug("view loaded", "view", view.Name, "root", root.Hash, "facts", count)
	logMetrics(logger, reg)
	value := harness.Normalize(observer.Value(), nil)

	if formatter.JSON() {
		return formatter.Success(ShowResult{View: view.Name, Root: root.Hash, Facts: count, Value: value})
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render view", err)
	}
	formatter.Printf("%s %s\n%s\n", view.Name, root.Hash, data)
	return nil
}

// logMetrics writes every counter and gauge in reg at debug level.
func logMetrics(logger *slog.Logger, reg prometheus.Gatherer) {
	families, err := reg.Gather()
	if err != nil {
		logger.Warn("gather metrics", "error", err)
		return
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			attrs := []any{"metric", f.GetName()}
			for _, l := range m.GetLabel() {
				attrs = append(attrs, l.GetName(), l.GetValue())
			}
			switch {
			case m.GetCounter() != nil:
				attrs = append(attrs, "value", m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				attrs = append(attrs, "value", m.GetGauge().GetValue())
			}
			logger.Debug("observer metric", attrs...)
		}
	}
}
