package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flakelab/internal/catalog"
	"github.com/roach88/flakelab/internal/harness"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	HarnessFlags
	Tolerance float64
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify <catalog>",
		Short: "Check declared flake rates against empirical ones",
		Long: `Run every scenario in a catalog and check that its observed flake rate
lies within --tolerance standard errors of the declared expected_flake_rate.

Exits 1 if any scenario falls outside tolerance.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, args[0], cmd)
		},
	}

	opts.HarnessFlags.register(cmd)
	cmd.Flags().Float64Var(&opts.Tolerance, "tolerance", harness.DefaultTolerance, "allowed deviation in standard errors")

	return cmd
}

func runVerify(opts *VerifyOptions, catalogPath string, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	hopts, err := opts.options(cmd, opts.Config)
	if err != nil {
		return commandError(formatter, ExitCommandError, "invalid flags", err)
	}
	hopts.Logger = opts.Logger

	reg, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return commandError(formatter, ExitCommandError, "failed to load catalog", err)
	}

	result, err := harness.Verify(cmd.Context(), reg, hopts, opts.Tolerance)
	if err != nil {
		return commandError(formatter, ExitCommandError, "verification aborted", err)
	}

	if !result.OK() {
		message := fmt.Sprintf("%d of %d scenario(s) outside tolerance", result.Failed, result.TotalScenarios)
		if formatter.Format == "json" {
			if err := formatter.Failure(ErrCodeVerifyMismatch, message, result); err != nil {
				return err
			}
		} else {
			printChecks(formatter, result)
			fmt.Fprintf(formatter.Writer, "✗ %s\n", message)
		}
		return NewExitError(ExitFailure, message)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	printChecks(formatter, result)
	fmt.Fprintf(formatter.Writer, "✓ All %d scenario(s) match their declared flake rate\n", result.TotalScenarios)
	return nil
}

func printChecks(formatter *OutputFormatter, result *harness.ValidationResult) {
	checked := make(map[string]bool, len(result.Checks))
	for _, c := range result.Checks {
		checked[c.Scenario] = true
		mark := "✓"
		if !c.Pass {
			mark = "✗"
		}
		fmt.Fprintf(formatter.Writer, "%s %-24s expected=%.3f observed=%.3f allowed=±%.3f n=%d\n",
			mark, c.Scenario, c.Expected, c.Observed, c.Allowed, c.Samples)
	}
	// Scenarios that errored before producing a check.
	for _, f := range result.Failures {
		if checked[f.Scenario] {
			continue
		}
		fmt.Fprintf(formatter.Writer, "✗ %-24s %s\n", f.Scenario, f.Error)
	}
}
