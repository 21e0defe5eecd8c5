package cli

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"
	"github.com/spf13/cobra"

	"github.com/roach88/factview/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Views  []string                   `json:"views,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <specs-dir>",
		Short: "Validate view specs",
		Long: `Validate the CUE view specs in a directory.

Parses every view and checks it against the view schema, reporting all
errors found rather than stopping at the first one.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	value, fileCount, err := loadCUE(specsDir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputCommandError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputCommandError(formatter, ErrCodeGeneric, err.Error())
	}
	formatter.VerboseLog("Found %d CUE file(s) in %s", fileCount, specsDir)

	names, errs := validateAll(value, formatter)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, Views: names})
	}
	fmt.Fprintf(formatter.Writer, "✓ All specs valid (%d view(s))\n", len(names))
	return nil
}

// validateAll parses and validates every view in value. Parse errors of
// one view do not stop validation of the others.
func validateAll(value cue.Value, formatter *OutputFormatter) ([]string, []compiler.ValidationError) {
	viewsVal := value.LookupPath(cue.ParsePath("view"))
	if !viewsVal.Exists() {
		return nil, []compiler.ValidationError{{
			Field:   "view",
			Message: "no views found in specs",
			Code:    ErrCodeGeneric,
		}}
	}
	iter, err := viewsVal.Fields()
	if err != nil {
		return nil, []compiler.ValidationError{{
			Field:   "view",
			Message: err.Error(),
			Code:    ErrCodeGeneric,
		}}
	}

	var names []string
	var all []compiler.ValidationError
	for iter.Next() {
		name := iter.Selector().Unquoted()
		formatter.VerboseLog("Validating view: %s", name)
		names = append(names, name)

		spec, err := compiler.CompileView(iter.Value())
		if err != nil {
			all = append(all, compileValidationError(name, err))
			continue
		}
		for _, ve := range compiler.Validate(spec) {
			ve.Field = "view." + name + "." + ve.Field
			all = append(all, ve)
		}
	}
	if len(names) == 0 && len(all) == 0 {
		all = append(all, compiler.ValidationError{
			Field:   "view",
			Message: "no views found in specs",
			Code:    ErrCodeGeneric,
		})
	}
	return names, all
}

func compileValidationError(view string, err error) compiler.ValidationError {
	var cErr *compiler.CompileError
	if errors.As(err, &cErr) {
		line := 0
		if cErr.Pos.IsValid() {
			line = cErr.Pos.Line()
		}
		return compiler.ValidationError{
			Field:   "view." + view + "." + cErr.Field,
			Message: cErr.Message,
			Code:    MapFieldToErrorCode(cErr.Field),
			Line:    line,
		}
	}
	return compiler.ValidationError{
		Field:   "view." + view,
		Message: err.Error(),
		Code:    ErrCodeGeneric,
	}
}

// outputCommandError reports an error that kept the command from running.
func outputCommandError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	if formatter.JSON() {
		result := ValidationResult{Valid: false, Errors: errs}
		if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}
	return failure
}
