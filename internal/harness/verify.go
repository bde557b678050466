package harness

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/flakelab/internal/catalog"
	"github.com/roach88/flakelab/internal/flake"
)

// DefaultTolerance is the number of standard errors an empirical flake
// rate may deviate from the declared rate.
const DefaultTolerance = 3.0

// ValidationResult summarizes a declared-versus-empirical check of a
// catalog.
type ValidationResult struct {
	TotalScenarios int               `json:"total_scenarios"`
	Passed         int               `json:"passed"`
	Failed         int               `json:"failed"`
	Checks         []ScenarioCheck   `json:"checks"`
	Failures       []ScenarioFailure `json:"failures,omitempty"`
}

// OK reports whether every scenario matched its declared rate.
func (r *ValidationResult) OK() bool {
	return r.Failed == 0
}

// ScenarioCheck is the comparison for one scenario.
type ScenarioCheck struct {
	Scenario  string     `json:"scenario"`
	Kind      flake.Kind `json:"kind"`
	Expected  float64    `json:"expected_flake_rate"`
	Observed  float64    `json:"observed_flake_rate"`
	Samples   int        `json:"samples"`
	Allowed   float64    `json:"allowed_deviation"`
	Truncated bool       `json:"truncated"`
	Pass      bool       `json:"pass"`
}

// ScenarioFailure describes why a scenario failed verification.
type ScenarioFailure struct {
	Scenario string `json:"scenario"`
	Error    string `json:"error"`
}

// Verify runs every scenario in reg and checks that its empirical flake
// rate lies within tolerance standard errors of the declared rate.
//
// A tolerance <= 0 uses DefaultTolerance. The allowed deviation never
// drops below one sample (1/n), so scenarios declared at exactly 0 or 1
// are not failed by the zero standard error at those rates.
//
// Configuration errors abort verification; everything else is reported
// per scenario in the result.
func Verify(ctx context.Context, reg *catalog.Registry, opts Options, tolerance float64) (*ValidationResult, error) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	result := &ValidationResult{Checks: []ScenarioCheck{}}

	for _, d := range reg.Descriptors() {
		result.TotalScenarios++

		if opts.ResetStateBetweenRuns {
			if acc := d.State(); acc != nil {
				acc.Reset()
			}
		}

		h, err := Run(ctx, d, opts)
		if err != nil {
			if flake.IsConfigurationError(err) {
				return result, err
			}
			result.Failed++
			result.Failures = append(result.Failures, ScenarioFailure{
				Scenario: d.Name(),
				Error:    fmt.Sprintf("scenario execution failed: %v", err),
			})
			continue
		}

		check := compare(d, h, tolerance)
		result.Checks = append(result.Checks, check)
		if check.Pass {
			result.Passed++
			continue
		}

		result.Failed++
		msg := fmt.Sprintf("observed flake rate %.4f outside %.4f ± %.4f", check.Observed, check.Expected, check.Allowed)
		if check.Samples == 0 {
			msg = "no repetitions completed"
		}
		result.Failures = append(result.Failures, ScenarioFailure{Scenario: d.Name(), Error: msg})
	}

	return result, nil
}

func compare(d *catalog.Descriptor, h *History, tolerance float64) ScenarioCheck {
	check := ScenarioCheck{
		Scenario:  d.Name(),
		Kind:      d.Kind(),
		Expected:  d.ExpectedFlakeRate(),
		Observed:  h.FlakeRate(),
		Samples:   h.Len(),
		Truncated: h.Truncated,
	}
	if check.Samples == 0 {
		return check
	}

	n := float64(check.Samples)
	p := check.Expected
	check.Allowed = math.Max(tolerance*math.Sqrt(p*(1-p)/n), 1/n)
	check.Pass = math.Abs(check.Observed-p) <= check.Allowed
	return check
}
