package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flakelab/internal/flake"
)

func runReports(t *testing.T, args ...string) []RunReport {
	t.Helper()
	cmd := NewRunCommand(newTestRootOptions("json"))
	out, err := execute(t, cmd, args...)
	require.NoError(t, err)

	var reports []RunReport
	assert.Equal(t, "ok", decodeData(t, out, &reports))
	return reports
}

func TestRunCommand_Text(t *testing.T) {
	cmd := NewRunCommand(newTestRootOptions("text"))
	out, err := execute(t, cmd, "--n", "50", "--seed", "42", testCatalog)
	require.NoError(t, err)

	assert.Contains(t, out, "checkout-wait")
	assert.Contains(t, out, "shuffled-fixture")
	assert.Contains(t, out, "leaky-cart")
	assert.Contains(t, out, "classified=")
	assert.Contains(t, out, "n=50")
}

func TestRunCommand_JSONReports(t *testing.T) {
	reports := runReports(t, "--n", "100", "--seed", "7", testCatalog)
	require.Len(t, reports, 3)

	byName := map[string]RunReport{}
	for _, r := range reports {
		byName[r.Scenario] = r
		assert.Equal(t, 100, r.Samples)
		assert.Equal(t, 100, r.Requested)
		assert.False(t, r.Truncated)
		assert.NotEmpty(t, r.RunID)
		require.NotNil(t, r.Classification, "%s should be classified", r.Scenario)
		assert.Equal(t, r.Scenario, r.Classification.Scenario)
	}

	assert.Equal(t, flake.KindTimingRace, byName["checkout-wait"].Classification.Kind)
	assert.Equal(t, flake.KindStatePollution, byName["leaky-cart"].Classification.Kind)
}

func TestRunCommand_SameSeedSameRates(t *testing.T) {
	first := runReports(t, "--n", "60", "--seed", "99", testCatalog)
	second := runReports(t, "--n", "60", "--seed", "99", testCatalog)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].Scenario, second[i].Scenario)
		assert.Equal(t, first[i].ObservedFlakeRate, second[i].ObservedFlakeRate)
		assert.NotEqual(t, first[i].RunID, second[i].RunID)
	}
}

func TestRunCommand_ResetIsolatesSharedState(t *testing.T) {
	polluted := runReports(t, "--n", "20", "--seed", "1", "--filter", "leaky-cart", testCatalog)
	require.Len(t, polluted, 1)
	// Only the first repetition sees a clean cart.
	assert.InDelta(t, 19.0/20.0, polluted[0].ObservedFlakeRate, 1e-9)

	isolated := runReports(t, "--n", "20", "--seed", "1", "--reset", "--filter", "leaky-cart", testCatalog)
	require.Len(t, isolated, 1)
	assert.Equal(t, 0.0, isolated[0].ObservedFlakeRate)
}

func TestRunCommand_ConfigDefaults(t *testing.T) {
	opts := newTestRootOptions("json")
	seed := int64(5)
	opts.Config.Run.Runs = 12
	opts.Config.Run.Seed = &seed

	cmd := NewRunCommand(opts)
	out, err := execute(t, cmd, "--filter", "shuffled-fixture", testCatalog)
	require.NoError(t, err)

	var reports []RunReport
	decodeData(t, out, &reports)
	require.Len(t, reports, 1)
	assert.Equal(t, 12, reports[0].Samples)

	// Flags win over config.
	cmd = NewRunCommand(opts)
	out, err = execute(t, cmd, "--n", "8", "--filter", "shuffled-fixture", testCatalog)
	require.NoError(t, err)
	decodeData(t, out, &reports)
	assert.Equal(t, 8, reports[0].Samples)
}

func TestRunCommand_TooFewSamplesIsUnclassified(t *testing.T) {
	reports := runReports(t, "--n", "3", "--seed", "1", "--filter", "shuffled-fixture", testCatalog)
	require.Len(t, reports, 1)
	assert.Nil(t, reports[0].Classification)
	assert.Contains(t, reports[0].Unclassified, "INSUFFICIENT_SAMPLES")
}

func TestRunCommand_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code string
	}{
		{"zero runs", []string{"--n", "0", testCatalog}, ErrCodeConfiguration},
		{"unknown scenario", []string{"--filter", "nope", testCatalog}, ErrCodeNotFound},
		{"bad clock", []string{"--clock", "sundial", testCatalog}, ErrCodeConfiguration},
		{"missing catalog", []string{filepath.Join("testdata", "missing.yaml")}, ErrCodeNotFound},
		{"invalid catalog", []string{invalidFile}, ErrCodeConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRunCommand(newTestRootOptions("text"))
			out, err := execute(t, cmd, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}

func TestRunCommand_MetricsOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flakelab.prom")
	runReports(t, "--n", "10", "--seed", "3", "--metrics-out", path, testCatalog)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "flakelab_repetitions_total")
	assert.Contains(t, text, `flakelab_runs_total{scenario="checkout-wait",truncated="false"} 1`)
	assert.Contains(t, text, "flakelab_classification_confidence")
}

func TestRunCommand_WallClockDeadlineTruncates(t *testing.T) {
	// checkout-wait sleeps 80-120ms per repetition on the wall clock.
	reports := runReports(t, "--n", "1000", "--seed", "1", "--clock", "wall",
		"--deadline", "300ms", "--filter", "checkout-wait", testCatalog)
	require.Len(t, reports, 1)
	assert.True(t, reports[0].Truncated)
	assert.Less(t, reports[0].Samples, 1000)
}
