package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flakelab/internal/classify"
	"github.com/roach88/flakelab/internal/flake"
	"github.com/roach88/flakelab/internal/store"
)

// ClassifyOptions holds flags for the classify command.
type ClassifyOptions struct {
	*RootOptions
	Database string
	Scenario string
}

// ClassifyReport is the stored-history verdict for one scenario.
type ClassifyReport struct {
	Scenario       string                      `json:"scenario"`
	Runs           int                         `json:"runs"`
	Classification *flake.ClassificationResult `json:"classification,omitempty"`
	Unclassified   string                      `json:"unclassified,omitempty"`
}

// NewClassifyCommand creates the classify command.
func NewClassifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ClassifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify scenarios from stored run history",
		Long: `Recompute the flakiness classification of stored scenarios, pooling the
outcomes of every persisted run.

Example:
  flakelab classify --db ./history.db
  flakelab classify --db ./history.db --scenario checkout-wait`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "classify only this scenario")

	return cmd
}

func runClassify(opts *ClassifyOptions, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	st, err := opts.openStore(opts.Database)
	if err != nil {
		return commandError(formatter, ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	scenarios := []string{opts.Scenario}
	if opts.Scenario == "" {
		scenarios, err = st.ListScenarios(ctx)
		if err != nil {
			return commandError(formatter, ExitCommandError, "failed to list scenarios", err)
		}
	}

	reports := make([]ClassifyReport, 0, len(scenarios))
	for _, name := range scenarios {
		sh, err := st.ReadScenario(ctx, name)
		if err != nil {
			return commandError(formatter, ExitCommandError, "failed to read history", err)
		}
		if sh.Runs == 0 {
			return commandError(formatter, ExitCommandError, "no stored history",
				fmt.Errorf("scenario %q: %w", name, store.ErrRunNotFound))
		}

		report := ClassifyReport{Scenario: name, Runs: sh.Runs}
		result, err := classify.Classify(name, sh.Outcomes,
			classify.WithRequested(sh.Requested),
			classify.WithTruncated(sh.Truncated),
		)
		if err != nil {
			report.Unclassified = err.Error()
		} else {
			report.Classification = &result
		}
		reports = append(reports, report)
	}

	if formatter.Format == "json" {
		return formatter.Success(reports)
	}
	if len(reports) == 0 {
		fmt.Fprintln(formatter.Writer, "No stored scenarios")
		return nil
	}
	for _, r := range reports {
		if r.Classification == nil {
			fmt.Fprintf(formatter.Writer, "%-24s unclassified (%s)\n", r.Scenario, r.Unclassified)
			continue
		}
		c := r.Classification
		fmt.Fprintf(formatter.Writer, "%-24s %-16s confidence=%.2f flake_rate=%.3f samples=%d runs=%d\n",
			r.Scenario, c.Kind, c.Confidence, c.ObservedFlakeRate, c.Samples, r.Runs)
	}
	return nil
}

// openStore opens the database named by the flag, or by config when the
// flag is empty.
func (o *RootOptions) openStore(flagPath string) (*store.Store, error) {
	path := flagPath
	if path == "" && o.Config != nil {
		path = o.Config.Store.Path
	}
	if path == "" {
		return nil, flake.Configf("db", path, "--db is required")
	}
	return store.Open(path)
}
