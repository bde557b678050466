package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flakelab/internal/flake"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("FLAKELAB_CONFIG", "")

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 100, cfg.Run.Runs)
	assert.Equal(t, ClockVirtual, cfg.Run.Clock)
	assert.Nil(t, cfg.Run.Seed)
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "flakelab.yaml"), "")
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.Run.Runs)
	require.NotNil(t, cfg.Run.Seed)
	assert.Equal(t, int64(42), *cfg.Run.Seed)
	assert.Equal(t, 4, cfg.Run.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Run.Deadline)
	assert.Equal(t, ClockWall, cfg.Run.Clock)
	assert.Equal(t, "history.db", cfg.Store.Path)
	assert.True(t, cfg.Logging.JSON)

	level, err := cfg.Logging.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_Precedence(t *testing.T) {
	// file < .env < process environment
	t.Setenv("FLAKELAB_CONCURRENCY", "8")

	cfg, err := Load(filepath.Join("testdata", "flakelab.yaml"), filepath.Join("testdata", "override.env"))
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Run.Runs)
	assert.Equal(t, "out/metrics.prom", cfg.Metrics.Path)
	assert.Equal(t, 8, cfg.Run.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Run.Deadline)

	t.Setenv("FLAKELAB_RUNS", "7")
	cfg, err = Load(filepath.Join("testdata", "flakelab.yaml"), filepath.Join("testdata", "override.env"))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Run.Runs)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{"runs not integer", "FLAKELAB_RUNS", "many", "FLAKELAB_RUNS"},
		{"runs zero", "FLAKELAB_RUNS", "0", "run.runs"},
		{"bad clock", "FLAKELAB_CLOCK", "sundial", "run.clock"},
		{"bad deadline", "FLAKELAB_DEADLINE", "soon", "FLAKELAB_DEADLINE"},
		{"negative deadline", "FLAKELAB_DEADLINE", "-1s", "run.deadline"},
		{"bad level", "FLAKELAB_LOG_LEVEL", "chatty", "logging.level"},
		{"bad reset", "FLAKELAB_RESET", "maybe", "FLAKELAB_RESET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load("", "")
			require.Error(t, err)
			assert.True(t, flake.IsConfigurationError(err))

			var cfgErr *flake.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
