package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flakelab/internal/flake"
	"github.com/roach88/flakelab/internal/harness"
)

func TestListCommand(t *testing.T) {
	cmd := NewListCommand(newTestRootOptions("json"))
	out, err := execute(t, cmd, testCatalog)
	require.NoError(t, err)

	var entries []ScenarioEntry
	assert.Equal(t, "ok", decodeData(t, out, &entries))
	require.Len(t, entries, 3)

	byName := map[string]ScenarioEntry{}
	for _, e := range entries {
		byName[e.Name] = e
	}
	assert.Equal(t, flake.KindTimingRace, byName["checkout-wait"].Kind)
	assert.Equal(t, 0.5, byName["checkout-wait"].ExpectedFlakeRate)
	assert.Equal(t, "cart", byName["leaky-cart"].State)
	assert.Empty(t, byName["shuffled-fixture"].State)
}

func TestListCommand_Text(t *testing.T) {
	cmd := NewListCommand(newTestRootOptions("text"))
	out, err := execute(t, cmd, testCatalog)
	require.NoError(t, err)
	assert.Contains(t, out, "checkout-wait")
	assert.Contains(t, out, "state=cart")
	assert.Contains(t, out, "async save")
}

func TestValidateCommand_Valid(t *testing.T) {
	cmd := NewValidateCommand(newTestRootOptions("text"))
	out, err := execute(t, cmd, testCatalog)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Catalog valid: 3 scenario(s)")

	cmd = NewValidateCommand(newTestRootOptions("json"))
	out, err = execute(t, cmd, testCatalog)
	require.NoError(t, err)

	var result ValidationResult
	assert.Equal(t, "ok", decodeData(t, out, &result))
	assert.True(t, result.Valid)
	assert.Equal(t, 3, result.Scenarios)
}

func TestValidateCommand_Invalid(t *testing.T) {
	cmd := NewValidateCommand(newTestRootOptions("json"))
	out, err := execute(t, cmd, invalidFile)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ValidationResult
	assert.Equal(t, "error", decodeData(t, out, &result))
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, ErrCodeConfiguration, result.Errors[0].Code)
}

func TestValidateCommand_MissingFile(t *testing.T) {
	cmd := NewValidateCommand(newTestRootOptions("text"))
	out, err := execute(t, cmd, filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error ["+ErrCodeNotFound+"]")
}

func TestVerifyCommand_Passes(t *testing.T) {
	cmd := NewVerifyCommand(newTestRootOptions("text"))
	out, err := execute(t, cmd, "--n", "400", "--seed", "42", "--reset", testCatalog)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ All 3 scenario(s) match their declared flake rate")
}

func TestVerifyCommand_PollutedStateFails(t *testing.T) {
	// Without --reset the shared cart leaks between repetitions.
	cmd := NewVerifyCommand(newTestRootOptions("json"))
	out, err := execute(t, cmd, "--n", "400", "--seed", "42", testCatalog)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result harness.ValidationResult
	assert.Equal(t, "error", decodeData(t, out, &result))
	assert.Equal(t, 3, result.TotalScenarios)
	assert.Equal(t, 1, result.Failed)
	for _, c := range result.Checks {
		assert.Equal(t, c.Scenario != "leaky-cart", c.Pass, c.Scenario)
	}
}

func TestVerifyCommand_WrongDeclaredRate(t *testing.T) {
	cmd := NewVerifyCommand(newTestRootOptions("text"))
	out, err := execute(t, cmd, "--n", "200", "--seed", "1", wrongRateFile)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ coin")
	assert.Contains(t, out, "1 of 1 scenario(s) outside tolerance")
}
