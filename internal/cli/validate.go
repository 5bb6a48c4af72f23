package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/builtingen/internal/compiler"
	"github.com/roach88/builtingen/internal/config"
)

// ValidationFinding is a validation error or warning with its source
// position, when known.
type ValidationFinding struct {
	compiler.ValidationError
	Position string `json:"position,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                `json:"valid"`
	Errors   []ValidationFinding `json:"errors,omitempty"`
	Warnings []ValidationFinding `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [specs-dir]",
		Short: "Validate builtin specs",
		Long: `Compile CUE builtin specs and check the resulting snapshot.

Reports every compile error and snapshot finding (duplicate ids or names,
unknown languages, records missing a field their category needs). Records
that match more than one category are reported as warnings.

Exit codes:
  0 - Specs valid (warnings allowed)
  1 - Compile or validation errors
  2 - Command error (missing directory, no CUE files, etc.)`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, specsArg(args), cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, specsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := loadConfig(opts, formatter, config.Overrides{Specs: specsDir})
	if err != nil {
		return err
	}

	result, loadErr := ValidateSpecsDir(cfg.Specs)
	if loadErr != nil {
		return loadFailure(formatter, []*LoadError{loadErr})
	}
	opts.Logger().Debug("validated specs",
		zap.String("specs", cfg.Specs),
		zap.Int("errors", len(result.Errors)),
		zap.Int("warnings", len(result.Warnings)),
	)

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

// ValidateSpecsDir compiles and validates all specs in a directory.
// A non-nil error means the directory could not be loaded at all.
func ValidateSpecsDir(specsDir string) (*ValidationResult, *LoadError) {
	loadResult, loadErrors := LoadSpecs(specsDir)
	if loadResult == nil {
		return nil, loadErrors[0]
	}

	result := &ValidationResult{}
	for _, le := range loadErrors {
		f := ValidationFinding{
			ValidationError: compiler.ValidationError{
				Field:    "specs",
				Message:  le.Message,
				Code:     le.Code,
				Severity: compiler.SeverityError,
			},
		}
		if le.Pos.IsValid() {
			f.Position = formatPos(le.Pos)
		}
		result.Errors = append(result.Errors, f)
	}

	if loadResult.Snapshot != nil {
		for _, ve := range compiler.Validate(loadResult.Snapshot) {
			f := ValidationFinding{ValidationError: ve}
			if ve.IsWarning() {
				result.Warnings = append(result.Warnings, f)
			} else {
				result.Errors = append(result.Errors, f)
			}
		}
	}

	result.Valid = len(result.Errors) == 0
	return result, nil
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result *ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "warning %s: %s: %s\n", w.Code, w.Field, w.Message)
	}
	fmt.Fprintln(formatter.Writer, "✓ All specs valid")
	return nil
}

// outputValidationErrors outputs validation errors and warnings.
func outputValidationErrors(formatter *OutputFormatter, result *ValidationResult) error {
	exitErr := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)))

	if formatter.JSON() {
		first := result.Errors[0]
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:     first.Code,
				Message:  first.Message,
				Position: first.Position,
			},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, e := range result.Errors {
		if e.Position != "" {
			fmt.Fprintln(formatter.Writer, e.Position)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", e.Code, e.Field, e.Message)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "warning %s: %s: %s\n", w.Code, w.Field, w.Message)
	}

	return exitErr
}
