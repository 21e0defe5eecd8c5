package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/factview/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Scenario  string             `json:"scenario"`
	Pass      bool               `json:"pass"`
	Snapshots []harness.Snapshot `json:"snapshots"`
	Errors    []string           `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-file>",
		Short: "Run a scenario and print the view after each step",
		Long: `Run one scenario against its view and print every snapshot.

Facts are kept in an in-memory fact log unless --db names a SQLite file,
in which case facts from earlier runs are visible to the view.

Example:
  factview run ./scenarios/home_items.yaml
  factview run --db ./facts.db ./scenarios/home_items.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", rootOpts.defaultDB(":memory:"), "path to SQLite fact log (FACTVIEW_DB)")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return outputCommandError(formatter, ErrCodeNotFound, err.Error())
	}

	logger.Debug("running scenario", "name", scenario.Name, "db", opts.Database)
	result, err := harness.Run(scenario,
		harness.WithDatabase(opts.Database),
		harness.WithLogger(logger),
	)
	if err != nil {
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}

	run := RunResult{
		Scenario:  scenario.Name,
		Pass:      result.Pass,
		Snapshots: result.Snapshots,
		Errors:    result.Errors,
	}
	failure := NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed with %d error(s)", scenario.Name, len(result.Errors)))

	if formatter.JSON() {
		if !result.Pass {
			if err := formatter.Failure("E_SCENARIO_FAILED", failure.Message, run); err != nil {
				return err
			}
			return failure
		}
		return formatter.Success(run)
	}

	for _, snap := range result.Snapshots {
		data, err := json.MarshalIndent(snap.Value, "", "  ")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render snapshot", err)
		}
		formatter.Printf("[%d] %s\n%s\n\n", snap.Step, snap.Label, data)
	}
	if !result.Pass {
		formatter.Printf("✗ %s\n", scenario.Name)
		for _, e := range result.Errors {
			formatter.Printf("  %s\n", e)
		}
		return failure
	}
	formatter.Printf("✓ %s\n", scenario.Name)
	return nil
}
