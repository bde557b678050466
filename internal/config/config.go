// Package config loads flakelab settings from a YAML file, an optional
// .env file and FLAKELAB_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/flakelab/internal/flake"
)

// Clock names accepted by RunConfig.Clock.
const (
	ClockVirtual = "virtual"
	ClockWall    = "wall"
)

// Config captures the settings shared by the CLI commands.
type Config struct {
	Run     RunConfig     `yaml:"run"`
	Store   StoreConfig   `yaml:"store"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// RunConfig holds harness defaults.
type RunConfig struct {
	Runs        int           `yaml:"runs"`
	Seed        *int64        `yaml:"seed"`
	Concurrency int           `yaml:"concurrency"`
	Deadline    time.Duration `yaml:"deadline"`
	Reset       bool          `yaml:"reset"`
	Clock       string        `yaml:"clock"`
}

// StoreConfig locates the history database. Empty disables persistence.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig locates the Prometheus text file. Empty disables export.
type MetricsConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from defaults, the YAML file at path, the .env
// file at dotenv and the process environment. Empty paths are skipped.
// The .env file is read without modifying the process environment.
func Load(path, dotenv string) (*Config, error) {
	if path == "" {
		path = os.Getenv("FLAKELAB_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	env := map[string]string{}
	if dotenv != "" {
		vars, err := godotenv.Read(dotenv)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read env file: %w", err)
		}
		env = vars
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return env[key]
	}

	if err := applyEnvOverrides(&cfg, lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := defaultConfig()
	return &cfg
}

func defaultConfig() Config {
	return Config{
		Run: RunConfig{
			Runs:        100,
			Concurrency: 1,
			Clock:       ClockVirtual,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func applyEnvOverrides(cfg *Config, lookup func(string) string) error {
	if v := lookup("FLAKELAB_RUNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return flake.Configf("FLAKELAB_RUNS", v, "must be an integer")
		}
		cfg.Run.Runs = n
	}
	if v := lookup("FLAKELAB_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return flake.Configf("FLAKELAB_SEED", v, "must be an integer")
		}
		cfg.Run.Seed = &seed
	}
	if v := lookup("FLAKELAB_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return flake.Configf("FLAKELAB_CONCURRENCY", v, "must be an integer")
		}
		cfg.Run.Concurrency = n
	}
	if v := lookup("FLAKELAB_DEADLINE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return flake.Configf("FLAKELAB_DEADLINE", v, "must be a duration")
		}
		cfg.Run.Deadline = d
	}
	if v := lookup("FLAKELAB_RESET"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return flake.Configf("FLAKELAB_RESET", v, "must be a boolean")
		}
		cfg.Run.Reset = b
	}
	if v := lookup("FLAKELAB_CLOCK"); v != "" {
		cfg.Run.Clock = v
	}
	if v := lookup("FLAKELAB_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := lookup("FLAKELAB_METRICS_OUT"); v != "" {
		cfg.Metrics.Path = v
	}
	if v := lookup("FLAKELAB_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := lookup("FLAKELAB_LOG_JSON"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return flake.Configf("FLAKELAB_LOG_JSON", v, "must be a boolean")
		}
		cfg.Logging.JSON = b
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Run.Runs < 1 {
		return flake.Configf("run.runs", c.Run.Runs, "must be >= 1")
	}
	if c.Run.Concurrency < 1 {
		return flake.Configf("run.concurrency", c.Run.Concurrency, "must be >= 1")
	}
	if c.Run.Deadline < 0 {
		return flake.Configf("run.deadline", c.Run.Deadline, "must be non-negative")
	}
	if c.Run.Clock != ClockVirtual && c.Run.Clock != ClockWall {
		return flake.Configf("run.clock", c.Run.Clock, "must be virtual or wall")
	}
	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses Level.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, flake.Configf("logging.level", l.Level, "unknown log level")
	}
	return level, nil
}
