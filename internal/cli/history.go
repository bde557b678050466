package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Scenario string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List stored runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "only list runs of this scenario")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	st, err := opts.openStore(opts.Database)
	if err != nil {
		return commandError(formatter, ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context(), opts.Scenario)
	if err != nil {
		return commandError(formatter, ExitCommandError, "failed to list runs", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No stored runs")
		return nil
	}
	for _, r := range runs {
		seed := "-"
		if r.Seed != nil {
			seed = fmt.Sprint(*r.Seed)
		}
		line := fmt.Sprintf("%s  %-24s %d/%d failed  seed=%s  %s",
			r.RunID, r.Scenario, r.Failures, r.Samples, seed, r.StartedAt.Format(time.RFC3339))
		if r.Truncated {
			line += fmt.Sprintf("  truncated (requested %d)", r.Requested)
		}
		fmt.Fprintln(formatter.Writer, line)
	}
	return nil
}
