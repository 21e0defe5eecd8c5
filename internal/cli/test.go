package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/factview/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run scenarios against their golden snapshots",
		Long: `Run every scenario file in a directory.

A scenario passes when its expectations and assertions hold and, if a
golden file exists at golden/<name>.golden next to the scenario, the
recorded snapshots match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  factview test ./scenarios
  factview test ./scenarios --filter "home_*"
  factview test ./scenarios --update`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return outputCommandError(formatter, ErrCodeNotFound, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return outputCommandError(formatter, ErrCodeScanError, fmt.Sprintf("failed to find scenarios: %v", err))
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(files)), Total: len(files)}
	if len(files) == 0 {
		if formatter.JSON() {
			return formatter.Success(result)
		}
		formatter.Printf("No scenarios found.\n")
		return nil
	}

	for _, file := range files {
		sr := runScenario(opts, file, cmd)
		if sr.Pass {
			result.Passed++
			formatter.Printf("✓ %s\n", sr.Name)
		} else {
			result.Failed++
			formatter.Printf("✗ %s\n", sr.Name)
			for _, e := range sr.Errors {
				formatter.Printf("  %s\n", e)
			}
		}
		result.Scenarios = append(result.Scenarios, sr)
	}

	failed := NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	if formatter.JSON() {
		if result.Failed > 0 {
			if err := formatter.Failure("E_TEST_FAILED", failed.Message, result); err != nil {
				return err
			}
			return failed
		}
		return formatter.Success(result)
	}

	formatter.Printf("\nTest Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	if result.Failed > 0 {
		return failed
	}
	formatter.Printf("✓ All scenarios passed\n")
	return nil
}

// findScenarioFiles finds all YAML scenario files in dir. Files under a
// golden directory are skipped.
func findScenarioFiles(dir, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != dir && info.Name() == "golden" {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if filter != "" {
			name := strings.TrimSuffix(filepath.Base(path), ext)
			if matched, _ := filepath.Match(filter, name); !matched {
				return nil
			}
		}
		files = append(files, path)
		return nil
	})
	return files, err
}

// runScenario executes one scenario file and checks it against its golden
// file.
func runScenario(opts *TestOptions, file string, cmd *cobra.Command) ScenarioResult {
	name := filepath.Base(file)
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)}}
	}
	name = scenario.Name

	result, err := harness.Run(scenario, harness.WithLogger(opts.logger(cmd)))
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("execution failed: %v", err)}}
	}

	data, err := harness.MarshalSnapshots(scenario.Name, result)
	if err != nil {
		return ScenarioResult{Name: name, Errors: []string{fmt.Sprintf("failed to marshal snapshots: %v", err)}}
	}

	goldenPath := goldenFilePath(file, scenario.Name)
	errs := append([]string{}, result.Errors...)
	if opts.Update {
		if err := writeGolden(goldenPath, data); err != nil {
			errs = append(errs, err.Error())
		}
	} else if err := compareGolden(goldenPath, data); err != nil {
		errs = append(errs, err.Error())
	}
	return ScenarioResult{Name: name, Pass: len(errs) == 0, Errors: errs}
}

// goldenFilePath returns the golden file of a scenario: golden/<name>.golden
// next to the scenario file.
func goldenFilePath(scenarioFile, name string) string {
	return filepath.Join(filepath.Dir(scenarioFile), "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareGolden reports a mismatch between data and the golden file. A
// missing golden file is not an error.
func compareGolden(path string, data []byte) error {
	golden, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(bytes.TrimSpace(golden), data) {
		return fmt.Errorf("snapshots do not match %s (run with --update to regenerate)", filepath.Base(path))
	}
	return nil
}
