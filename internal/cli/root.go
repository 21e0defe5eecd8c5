package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// DB is the fact log used when a command's --db flag is not given.
	DB string
}

// Version is the factview release version.
const Version = "0.1.0"

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the factview CLI.
func NewRootCommand() *cobra.Command {
	environment, envErr := LoadEnvironment()
	opts := &RootOptions{DB: environment.DB}

	cmd := &cobra.Command{
		Use:     "factview",
		Version: Version,
		Short:   "factview - view models over a fact graph",
		Long: `Declare view models in CUE and project facts into them.

A view is a tree of fields, properties, collections and projections, each
kept in sync with the fact graph through subscriptions.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if envErr != nil {
				return envErr
			}
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", environment.Verbose, "verbose output (FACTVIEW_VERBOSE)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", environment.Format, "output format (json|text) (FACTVIEW_FORMAT)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// logger returns a stderr logger at info level, or debug when verbose.
func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// defaultDB returns the FACTVIEW_DB fact log, or fallback when unset.
func (o *RootOptions) defaultDB(fallback string) string {
	if o.DB != "" {
		return o.DB
	}
	return fallback
}
