package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flakelab/internal/catalog"
	"github.com/roach88/flakelab/internal/flake"
	"github.com/roach88/flakelab/internal/source"
)

func TestVerify_DeclaredRates(t *testing.T) {
	reg := catalog.NewRegistry()
	_, err := reg.Register("honest", flake.KindRandomness, source.NewRandomness(0.7), 0.3)
	require.NoError(t, err)
	_, err = reg.Register("optimistic", flake.KindRandomness, source.NewRandomness(0.7), 0.05)
	require.NoError(t, err)
	_, err = reg.Register("stable", flake.KindRandomness, source.NewRandomness(1), 0)
	require.NoError(t, err)

	result, err := Verify(context.Background(), reg, Options{N: 1000, Seed: seedPtr(9)}, 0)
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalScenarios)
	assert.Equal(t, 2, result.Passed)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.OK())

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "optimistic", result.Failures[0].Scenario)

	require.Len(t, result.Checks, 3)
	assert.Equal(t, "honest", result.Checks[0].Scenario)
	assert.True(t, result.Checks[0].Pass)
	assert.Equal(t, 1000, result.Checks[0].Samples)
}

func TestVerify_ResetsSharedStateBetweenScenarios(t *testing.T) {
	reg := catalog.NewRegistry()
	acc := source.NewAccumulator("cache", 0)
	for _, name := range []string{"a", "b"} {
		_, err := reg.Register(name, flake.KindStatePollution, &source.StatePollution{
			State:                acc,
			Limit:                1,
			Increment:            1,
			PollutionProbability: 1,
		}, 0)
		require.NoError(t, err)
	}

	result, err := Verify(context.Background(), reg, Options{N: 50, ResetStateBetweenRuns: true}, 0)
	require.NoError(t, err)
	assert.True(t, result.OK(), "%+v", result.Failures)
}

func TestVerify_ConfigurationErrorAborts(t *testing.T) {
	reg := catalog.NewRegistry()
	_, err := reg.Register("bad", flake.KindRandomness, source.NewRandomness(2), 0.5)
	require.NoError(t, err)

	_, err = Verify(context.Background(), reg, Options{N: 10}, 0)
	require.Error(t, err)
	assert.True(t, flake.IsConfigurationError(err))
}
