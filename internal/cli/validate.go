package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/flakelab/internal/catalog"
	"github.com/roach88/flakelab/internal/flake"
)

// ValidationResult holds catalog validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Scenarios int               `json:"scenarios"`
	Errors    []ValidationIssue `json:"errors,omitempty"`
}

// ValidationIssue is one problem found in a catalog.
type ValidationIssue struct {
	Code    string `json:"code"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <catalog>",
		Short: "Validate a catalog without running it",
		Long: `Validate a YAML or CUE catalog: schema checks, kind-specific parameter
checks and name uniqueness. Nothing is executed.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, catalogPath string, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	reg, err := catalog.LoadFile(catalogPath)
	if err != nil {
		// An unreadable file is a command error, not a validation failure.
		if errors.Is(err, fs.ErrNotExist) {
			return commandError(formatter, ExitCommandError, "catalog not found", err)
		}
		return outputValidationFailure(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Scenarios: reg.Len()})
	}
	fmt.Fprintf(formatter.Writer, "✓ Catalog valid: %d scenario(s)\n", reg.Len())
	return nil
}

func outputValidationFailure(formatter *OutputFormatter, err error) error {
	issue := ValidationIssue{Code: errorCode(err), Message: err.Error()}
	var cfgErr *flake.ConfigurationError
	if errors.As(err, &cfgErr) {
		issue.Field = cfgErr.Field
	}
	result := ValidationResult{Valid: false, Errors: []ValidationIssue{issue}}

	if formatter.Format == "json" {
		if encErr := formatter.Failure(issue.Code, issue.Message, result); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintln(formatter.Writer, "✗ Validation failed")
		fmt.Fprintln(formatter.Writer)
		if issue.Field != "" {
			fmt.Fprintf(formatter.Writer, "field %s\n", issue.Field)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", issue.Code, issue.Message)
	}

	// Validation failures = exit code 1
	return WrapExitError(ExitFailure, "validation failed", err)
}
