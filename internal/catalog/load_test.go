package catalog

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flakelab/internal/flake"
	"github.com/roach88/flakelab/internal/source"
)

func writeCatalog(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	reg, err := LoadFile("testdata/catalog.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"checkout-wait",
		"date-format",
		"leaky-session",
		"modal-fade",
		"payment-gateway",
		"shuffled-fixture",
	}, reg.Names())

	d, err := reg.Lookup("checkout-wait")
	require.NoError(t, err)
	assert.Equal(t, flake.KindTimingRace, d.Kind())
	assert.Equal(t, 0.5, d.ExpectedFlakeRate())
	assert.Equal(t, "Assertion waits a fixed 100ms for an async save.", d.Description())

	race, ok := d.Source().(*source.TimingRace)
	require.True(t, ok)
	assert.Equal(t, 100.0, race.ThresholdMS)
	assert.Equal(t, source.Uniform{MinMS: 80, MaxMS: 120}, race.Duration)

	env, err := reg.Lookup("date-format")
	require.NoError(t, err)
	e := env.Source().(*source.Environment)
	require.Len(t, e.Matrix, 4)
	assert.Equal(t, "Asia/Tokyo", e.Matrix[3].Timezone)
	assert.Equal(t, "en-US", e.Assume.Locale)

	leaky, err := reg.Lookup("leaky-session")
	require.NoError(t, err)
	require.NotNil(t, leaky.State())
	assert.Equal(t, "session_cache", leaky.State().Name())
}

func TestLoadFile_CUE(t *testing.T) {
	reg, err := LoadFile("testdata/catalog.cue")
	require.NoError(t, err)

	assert.Equal(t, []string{"checkout-wait", "leaky-cart", "leaky-session"}, reg.Names())

	cart, err := reg.Lookup("leaky-cart")
	require.NoError(t, err)
	session, err := reg.Lookup("leaky-session")
	require.NoError(t, err)

	// Both scenarios reference the same declared accumulator.
	assert.Same(t, cart.State(), session.State())
	assert.Len(t, reg.Accumulators(), 1)

	race, err := reg.Lookup("checkout-wait")
	require.NoError(t, err)
	assert.Equal(t, source.Uniform{MinMS: 80, MaxMS: 120}, race.Source().(*source.TimingRace).Duration)
}

func TestLoadFile_YAMLUnknownField(t *testing.T) {
	path := writeCatalog(t, "typo.yaml", `
scenarios:
  - name: x
    kind: randomness
    expected_flake_rate: 0.5
    randomnes:
      pass_probability: 0.5
`)
	_, err := LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "randomnes")
}

func TestLoadFile_SchemaRejections(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown_kind", `
scenarios:
  - name: x
    kind: cosmic_ray
    expected_flake_rate: 0.5
`},
		{"missing_kind_section", `
scenarios:
  - name: x
    kind: randomness
    expected_flake_rate: 0.5
`},
		{"rate_out_of_range", `
scenarios:
  - name: x
    kind: randomness
    expected_flake_rate: 1.5
    randomness: {pass_probability: 0.5}
`},
		{"probability_out_of_range", `
scenarios:
  - name: x
    kind: randomness
    expected_flake_rate: 0.5
    randomness: {pass_probability: 2}
`},
		{"two_distributions", `
scenarios:
  - name: x
    kind: timing_race
    expected_flake_rate: 0.5
    timing_race:
      threshold_ms: 10
      duration:
        uniform: {min_ms: 1, max_ms: 2}
        normal: {mean_ms: 1, stddev_ms: 1}
`},
		{"frames_above_limit", `
scenarios:
  - name: x
    kind: dom_timing
    expected_flake_rate: 0.5
    dom_timing: {min_frames: 0, max_frames: 9223372036854775807, frame_ms: 16, check_after_ms: 64}
`},
		{"no_scenarios", `
scenarios: []
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeCatalog(t, "catalog.yaml", tt.content))
			require.Error(t, err)
			assert.True(t, flake.IsConfigurationError(err), "got %v", err)
		})
	}
}

func TestLoadFile_CUESchemaRejection(t *testing.T) {
	path := writeCatalog(t, "catalog.cue", `
scenario: x: {
	kind:                "randomness"
	expected_flake_rate: 0.5
	randomness: {pass_probability: 0.5, extra: true}
}
`)
	_, err := LoadFile(path)
	require.Error(t, err)
	assert.True(t, flake.IsConfigurationError(err))
}

func TestLoadFile_BuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, err error)
	}{
		{"undeclared_accumulator", `
scenarios:
  - name: x
    kind: state_pollution
    expected_flake_rate: 0
    state_pollution: {accumulator: nowhere, limit: 1, increment: 1}
`, func(t *testing.T, err error) { assert.True(t, flake.IsConfigurationError(err)) }},
		{"inverted_uniform", `
scenarios:
  - name: x
    kind: timing_race
    expected_flake_rate: 0.5
    timing_race:
      threshold_ms: 10
      duration: {uniform: {min_ms: 5, max_ms: 1}}
`, func(t *testing.T, err error) { assert.True(t, flake.IsConfigurationError(err)) }},
		{"bad_timezone", `
scenarios:
  - name: x
    kind: environment
    expected_flake_rate: 0.5
    environment:
      matrix: [{timezone: Mars/Olympus_Mons}]
`, func(t *testing.T, err error) { assert.True(t, flake.IsConfigurationError(err)) }},
		{"duplicate_scenario", `
scenarios:
  - name: x
    kind: randomness
    expected_flake_rate: 0.5
    randomness: {pass_probability: 0.5}
  - name: x
    kind: randomness
    expected_flake_rate: 0.5
    randomness: {pass_probability: 0.5}
`, func(t *testing.T, err error) { assert.True(t, flake.IsDuplicateName(err)) }},
		{"duplicate_accumulator", `
accumulators:
  - name: a
  - name: a
scenarios:
  - name: x
    kind: randomness
    expected_flake_rate: 0.5
    randomness: {pass_probability: 0.5}
`, func(t *testing.T, err error) { assert.True(t, flake.IsConfigurationError(err)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeCatalog(t, "catalog.yaml", tt.content))
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	_, err := LoadFile(writeCatalog(t, "catalog.toml", "x = 1"))
	require.Error(t, err)
	assert.True(t, flake.IsConfigurationError(err))
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestSchema_IsEmbedded(t *testing.T) {
	assert.Contains(t, string(Schema()), `"state_pollution"`)
}
