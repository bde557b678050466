package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flakelab/internal/catalog"
	"github.com/roach88/flakelab/internal/flake"
)

// ScenarioEntry describes one registered scenario.
type ScenarioEntry struct {
	Name              string     `json:"name"`
	Kind              flake.Kind `json:"kind"`
	ExpectedFlakeRate float64    `json:"expected_flake_rate"`
	Description       string     `json:"description,omitempty"`
	State             string     `json:"state,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <catalog>",
		Short:         "List the scenarios in a catalog",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, args[0], cmd)
		},
	}
}

func runList(opts *RootOptions, catalogPath string, cmd *cobra.Command) error {
	if err := opts.init(cmd); err != nil {
		return err
	}
	formatter := opts.formatter(cmd)

	reg, err := catalog.LoadFile(catalogPath)
	if err != nil {
		return commandError(formatter, ExitCommandError, "failed to load catalog", err)
	}

	entries := make([]ScenarioEntry, 0, reg.Len())
	for _, d := range reg.Descriptors() {
		entry := ScenarioEntry{
			Name:              d.Name(),
			Kind:              d.Kind(),
			ExpectedFlakeRate: d.ExpectedFlakeRate(),
			Description:       d.Description(),
		}
		if acc := d.State(); acc != nil {
			entry.State = acc.Name()
		}
		entries = append(entries, entry)
	}

	if formatter.Format == "json" {
		return formatter.Success(entries)
	}
	for _, e := range entries {
		line := fmt.Sprintf("%-24s %-16s %.3f", e.Name, e.Kind, e.ExpectedFlakeRate)
		if e.State != "" {
			line += "  state=" + e.State
		}
		if e.Description != "" {
			line += "  " + e.Description
		}
		fmt.Fprintln(formatter.Writer, line)
	}
	return nil
}
