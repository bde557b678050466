package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/flakelab/internal/catalog"
	"github.com/roach88/flakelab/internal/classify"
	"github.com/roach88/flakelab/internal/config"
	"github.com/roach88/flakelab/internal/flake"
	"github.com/roach88/flakelab/internal/harness"
	"github.com/roach88/flakelab/internal/metrics"
	"github.com/roach88/flakelab/internal/source"
	"github.com/roach88/flakelab/internal/store"
)

// HarnessFlags are the harness settings shared by run and verify. Unset
// flags fall back to the loaded config.
type HarnessFlags struct {
	N           int
	Seed        int64
	Reset       bool
	Concurrency int
	Deadline    time.Duration
	Clock       string
}

func (f *HarnessFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.N, "n", 0, "repetitions per scenario (default from config)")
	cmd.Flags().Int64Var(&f.Seed, "seed", 0, "seed for reproducible runs (default: unseeded)")
	cmd.Flags().BoolVar(&f.Reset, "reset", false, "reset shared state before every repetition")
	cmd.Flags().IntVar(&f.Concurrency, "concurrency", 0, "repetitions in flight at once (default from config)")
	cmd.Flags().DurationVar(&f.Deadline, "deadline", 0, "per-scenario deadline on the harness clock (0 = none)")
	cmd.Flags().StringVar(&f.Clock, "clock", "", "timer provider (virtual|wall)")
}

// options merges the flags over cfg.
func (f *HarnessFlags) options(cmd *cobra.Command, cfg *config.Config) (harness.Options, error) {
	run := cfg.Run
	flags := cmd.Flags()
	if flags.Changed("n") {
		run.Runs = f.N
	}
	if flags.Changed("seed") {
		seed := f.Seed
		run.Seed = &seed
	}
	if flags.Changed("reset") {
		run.Reset = f.Reset
	}
	if flags.Changed("concurrency") {
		run.Concurrency = f.Concurrency
	}
	if flags.Changed("deadline") {
		run.Deadline = f.Deadline
	}
	if flags.Changed("clock") {
		run.Clock = f.Clock
	}

	opts := harness.Options{
		N:                     run.Runs,
		Seed:                  run.Seed,
		ResetStateBetweenRuns: run.Reset,
		Concurrency:           run.Concurrency,
		Deadline:              run.Deadline,
	}
	switch run.Clock {
	case config.ClockVirtual, "":
		// harness default
	case config.ClockWall:
		opts.Clock = source.WallClock{}
	default:
		return opts, flake.Configf("clock", run.Clock, "must be virtual or wall")
	}
	return opts, nil
}

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	HarnessFlags
	Filter     []string
	Database   string
	MetricsOut string
}

// RunReport is the result of running one scenario.
type RunReport struct {
	Scenario          string                      `json:"scenario"`
	Kind              flake.Kind                  `json:"kind"`
	RunID             string                      `json:"run_id"`
	ExpectedFlakeRate float64                     `json:"expected_flake_rate"`
	ObservedFlakeRate float64                     `json:"observed_flake_rate"`
	Samples           int                         `json:"samples"`
	Requested         int                         `json:"requested"`
	Truncated         bool                        `json:"truncated"`
	Classification    *flake.ClassificationResult `json:"classification,omitempty"`
	Unclassified      string                      `json:"unclassified,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <catalog>",
		Short: "Run catalog scenarios and classify their flakiness",
		Long: `Run every scenario in a catalog (YAML or CUE) N times, then print the
observed flake rate and the classifier's verdict for each.

Example:
  flakelab run --n 500 --seed 42 ./catalog.yaml
  flakelab run --filter checkout-wait --db ./history.db ./catalog.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	opts.HarnessFlags.register(cmd)
	cmd.Flags().StringSliceVar(&opts.Filter, "filter", nil, "only run the named scenarios")
	cmd.Flags().StringVar(&opts.Database, "db", "", "persist histories to this SQLite database")
	cmd.Flags().StringVar(&opts.MetricsOut, "metrics-out", "", "write Prometheus metrics to this file")

	return cmd
}

func runScenarios(opts *RunOptions, catalogPath string, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)
	logger := opts.Logger

	hopts, err := opts.options(cmd, opts.Config)
	if err != nil {
		return commandError(formatter, ExitCommandError, "invalid flags", err)
	}

	reg, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return commandError(formatter, ExitCommandError, "failed to load catalog", err)
	}
	descriptors, err := selectScenarios(reg, opts.Filter)
	if err != nil {
		return commandError(formatter, ExitCommandError, "invalid filter", err)
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.Config.Store.Path
	}
	var st *store.Store
	if dbPath != "" {
		st, err = store.Open(dbPath)
		if err != nil {
			return commandError(formatter, ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
	}

	collector := metrics.NewCollector()
	hopts.Observer = collector
	hopts.Logger = logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reports := make([]RunReport, 0, len(descriptors))
	for _, d := range descriptors {
		formatter.VerboseLog("Running %s (%s) x%d", d.Name(), d.Kind(), hopts.N)

		h, runErr := harness.Run(ctx, d, hopts)
		if runErr != nil && h == nil {
			return commandError(formatter, ExitCommandError, fmt.Sprintf("scenario %s", d.Name()), runErr)
		}

		report := RunReport{
			Scenario:          d.Name(),
			Kind:              d.Kind(),
			RunID:             h.RunID,
			ExpectedFlakeRate: d.ExpectedFlakeRate(),
			ObservedFlakeRate: h.FlakeRate(),
			Samples:           h.Len(),
			Requested:         h.Requested,
			Truncated:         h.Truncated,
		}
		if result, err := classify.ClassifyHistory(h); err != nil {
			report.Unclassified = err.Error()
		} else {
			collector.ObserveClassification(result)
			report.Classification = &result
		}
		reports = append(reports, report)

		if st != nil {
			if err := st.WriteHistory(context.WithoutCancel(ctx), h); err != nil {
				return commandError(formatter, ExitCommandError, "failed to persist history", err)
			}
			logger.Debug("history persisted", "scenario", d.Name(), "run_id", h.RunID)
		}

		if runErr != nil {
			return commandError(formatter, ExitCommandError, fmt.Sprintf("scenario %s", d.Name()), runErr)
		}
		if ctx.Err() != nil {
			logger.Info("interrupted, stopping", "completed", len(reports))
			break
		}
	}

	metricsOut := opts.MetricsOut
	if metricsOut == "" {
		metricsOut = opts.Config.Metrics.Path
	}
	if metricsOut != "" {
		if err := collector.Write(metricsOut); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write metrics", err)
		}
	}

	return outputRunReports(formatter, reports)
}

// selectScenarios returns the filtered descriptors in registry order, or
// every descriptor when filter is empty.
func selectScenarios(reg *catalog.Registry, filter []string) ([]*catalog.Descriptor, error) {
	if len(filter) == 0 {
		return reg.Descriptors(), nil
	}
	wanted := make(map[string]bool, len(filter))
	for _, name := range filter {
		d, err := reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		wanted[d.Name()] = true
	}
	var out []*catalog.Descriptor
	for _, d := range reg.Descriptors() {
		if wanted[d.Name()] {
			out = append(out, d)
		}
	}
	return out, nil
}

func outputRunReports(formatter *OutputFormatter, reports []RunReport) error {
	if formatter.Format == "json" {
		return formatter.Success(reports)
	}

	for _, r := range reports {
		line := fmt.Sprintf("%-24s %-16s flake_rate=%.3f expected=%.3f n=%d",
			r.Scenario, r.Kind, r.ObservedFlakeRate, r.ExpectedFlakeRate, r.Samples)
		if r.Truncated {
			line += fmt.Sprintf(" (truncated, requested %d)", r.Requested)
		}
		if r.Classification != nil {
			line += fmt.Sprintf(" classified=%s confidence=%.2f", r.Classification.Kind, r.Classification.Confidence)
		} else {
			line += " classified=none"
		}
		fmt.Fprintln(formatter.Writer, line)
	}
	return nil
}
