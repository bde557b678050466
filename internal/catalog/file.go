package catalog

import (
	"fmt"

	"github.com/roach88/flakelab/internal/flake"
	"github.com/roach88/flakelab/internal/source"
)

// File is the normalized form of a catalog document.
type File struct {
	// Accumulators declares shared state that state pollution scenarios
	// reference by name. Several scenarios may share one accumulator.
	Accumulators []AccumulatorSpec `yaml:"accumulators,omitempty" json:"accumulators,omitempty"`

	// Scenarios lists the flaky-test scenarios to register.
	Scenarios []ScenarioSpec `yaml:"scenarios" json:"scenarios"`
}

// AccumulatorSpec declares a named shared accumulator.
type AccumulatorSpec struct {
	Name    string `yaml:"name" json:"name"`
	Initial int64  `yaml:"initial,omitempty" json:"initial,omitempty"`
}

// ScenarioSpec declares one scenario. Exactly the section matching Kind
// is read; the schema requires it to be present.
type ScenarioSpec struct {
	Name              string  `yaml:"name" json:"name"`
	Description       string  `yaml:"description,omitempty" json:"description,omitempty"`
	Kind              string  `yaml:"kind" json:"kind"`
	ExpectedFlakeRate float64 `yaml:"expected_flake_rate" json:"expected_flake_rate"`

	TimingRace     *TimingRaceSpec     `yaml:"timing_race,omitempty" json:"timing_race,omitempty"`
	DomTiming      *DomTimingSpec      `yaml:"dom_timing,omitempty" json:"dom_timing,omitempty"`
	Randomness     *RandomnessSpec     `yaml:"randomness,omitempty" json:"randomness,omitempty"`
	Network        *NetworkSpec        `yaml:"network,omitempty" json:"network,omitempty"`
	StatePollution *StatePollutionSpec `yaml:"state_pollution,omitempty" json:"state_pollution,omitempty"`
	Environment    *EnvironmentSpec    `yaml:"environment,omitempty" json:"environment,omitempty"`
}

// DistributionSpec selects one duration distribution.
type DistributionSpec struct {
	Uniform *UniformSpec `yaml:"uniform,omitempty" json:"uniform,omitempty"`
	Normal  *NormalSpec  `yaml:"normal,omitempty" json:"normal,omitempty"`
}

// UniformSpec draws durations uniformly from [min_ms, max_ms].
type UniformSpec struct {
	MinMS float64 `yaml:"min_ms" json:"min_ms"`
	MaxMS float64 `yaml:"max_ms" json:"max_ms"`
}

// NormalSpec draws durations from a normal distribution truncated at zero.
type NormalSpec struct {
	MeanMS   float64 `yaml:"mean_ms" json:"mean_ms"`
	StdDevMS float64 `yaml:"stddev_ms" json:"stddev_ms"`
}

// TimingRaceSpec configures a source.TimingRace.
type TimingRaceSpec struct {
	ThresholdMS float64          `yaml:"threshold_ms" json:"threshold_ms"`
	Duration    DistributionSpec `yaml:"duration" json:"duration"`
}

// DomTimingSpec configures a source.DomTiming.
type DomTimingSpec struct {
	MinFrames    int     `yaml:"min_frames" json:"min_frames"`
	MaxFrames    int     `yaml:"max_frames" json:"max_frames"`
	FrameMS      float64 `yaml:"frame_ms" json:"frame_ms"`
	CheckAfterMS float64 `yaml:"check_after_ms" json:"check_after_ms"`
}

// RandomnessSpec configures a source.Randomness.
type RandomnessSpec struct {
	PassProbability float64 `yaml:"pass_probability" json:"pass_probability"`
}

// NetworkSpec configures a source.Network. A zero drop_probability never drops.
type NetworkSpec struct {
	Latency         DistributionSpec `yaml:"latency" json:"latency"`
	DropProbability float64          `yaml:"drop_probability,omitempty" json:"drop_probability,omitempty"`
	TimeoutMS       float64          `yaml:"timeout_ms" json:"timeout_ms"`
}

// StatePollutionSpec configures a source.StatePollution over a declared accumulator.
type StatePollutionSpec struct {
	Accumulator           string  `yaml:"accumulator" json:"accumulator"`
	Limit                 int64   `yaml:"limit" json:"limit"`
	Increment             int64   `yaml:"increment" json:"increment"`
	PollutionProbability  float64 `yaml:"pollution_probability,omitempty" json:"pollution_probability,omitempty"`
	InterleaveProbability float64 `yaml:"interleave_probability,omitempty" json:"interleave_probability,omitempty"`
}

// EnvironmentSpec configures a source.Environment: the run matrix and the facts the test assumes.
type EnvironmentSpec struct {
	Matrix []source.Facts `yaml:"matrix" json:"matrix"`
	Assume source.Facts   `yaml:"assume" json:"assume"`
}

// Build validates every scenario and registers it into a fresh registry.
// Errors name the offending scenario.
func Build(f *File) (*Registry, error) {
	accumulators := make(map[string]*source.Accumulator, len(f.Accumulators))
	for i, spec := range f.Accumulators {
		if spec.Name == "" {
			return nil, &flake.ConfigurationError{Field: fmt.Sprintf("accumulators[%d].name", i), Message: "is required"}
		}
		if _, exists := accumulators[spec.Name]; exists {
			return nil, flake.Configf(fmt.Sprintf("accumulators[%d].name", i), spec.Name, "declared more than once")
		}
		accumulators[spec.Name] = source.NewAccumulator(spec.Name, spec.Initial)
	}

	reg := NewRegistry()
	for _, spec := range f.Scenarios {
		kind, err := flake.ParseKind(spec.Kind)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", spec.Name, err)
		}
		src, err := buildSource(kind, spec, accumulators)
		if err != nil {
			return nil, fmt.Errorf("scenario %q: %w", spec.Name, err)
		}
		if err := src.Validate(); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", spec.Name, err)
		}
		if _, err := reg.Register(spec.Name, kind, src, spec.ExpectedFlakeRate, WithDescription(spec.Description)); err != nil {
			return nil, fmt.Errorf("scenario %q: %w", spec.Name, err)
		}
	}
	return reg, nil
}

func buildSource(kind flake.Kind, spec ScenarioSpec, accumulators map[string]*source.Accumulator) (source.Source, error) {
	missing := func() error {
		return &flake.ConfigurationError{Field: string(kind), Message: "section is required for this kind"}
	}

	switch kind {
	case flake.KindTimingRace:
		if spec.TimingRace == nil {
			return nil, missing()
		}
		dist, err := buildDistribution("timing_race.duration", spec.TimingRace.Duration)
		if err != nil {
			return nil, err
		}
		return source.NewTimingRace(spec.TimingRace.ThresholdMS, dist), nil

	case flake.KindDomTiming:
		if spec.DomTiming == nil {
			return nil, missing()
		}
		s := spec.DomTiming
		return &source.DomTiming{
			MinFrames:    s.MinFrames,
			MaxFrames:    s.MaxFrames,
			FrameMS:      s.FrameMS,
			CheckAfterMS: s.CheckAfterMS,
		}, nil

	case flake.KindRandomness:
		if spec.Randomness == nil {
			return nil, missing()
		}
		return source.NewRandomness(spec.Randomness.PassProbability), nil

	case flake.KindNetwork:
		if spec.Network == nil {
			return nil, missing()
		}
		dist, err := buildDistribution("network.latency", spec.Network.Latency)
		if err != nil {
			return nil, err
		}
		return &source.Network{
			Latency:         dist,
			DropProbability: spec.Network.DropProbability,
			TimeoutMS:       spec.Network.TimeoutMS,
		}, nil

	case flake.KindStatePollution:
		if spec.StatePollution == nil {
			return nil, missing()
		}
		s := spec.StatePollution
		acc, ok := accumulators[s.Accumulator]
		if !ok {
			return nil, flake.Configf("state_pollution.accumulator", s.Accumulator, "is not declared")
		}
		return &source.StatePollution{
			State:                 acc,
			Limit:                 s.Limit,
			Increment:             s.Increment,
			PollutionProbability:  s.PollutionProbability,
			InterleaveProbability: s.InterleaveProbability,
		}, nil

	case flake.KindEnvironment:
		if spec.Environment == nil {
			return nil, missing()
		}
		return &source.Environment{
			Matrix: spec.Environment.Matrix,
			Assume: spec.Environment.Assume,
		}, nil
	}
	return nil, flake.Configf("kind", kind, "unknown flakiness kind")
}

func buildDistribution(field string, spec DistributionSpec) (source.Distribution, error) {
	switch {
	case spec.Uniform != nil && spec.Normal != nil:
		return nil, &flake.ConfigurationError{Field: field, Message: "exactly one of uniform or normal is allowed"}
	case spec.Uniform != nil:
		return source.Uniform{MinMS: spec.Uniform.MinMS, MaxMS: spec.Uniform.MaxMS}, nil
	case spec.Normal != nil:
		return source.Normal{MeanMS: spec.Normal.MeanMS, StdDevMS: spec.Normal.StdDevMS}, nil
	}
	return nil, &flake.ConfigurationError{Field: field, Message: "distribution is required"}
}
