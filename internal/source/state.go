package source

import (
	"context"

	"github.com/roach88/flakelab/internal/flake"
)

// StatePollution reads a shared Accumulator and passes while the observed
// value stays below Limit. With PollutionProbability a run leaves residue
// behind by adding Increment, which later runs observe unless the harness
// resets the accumulator.
//
// Under concurrent execution, with InterleaveProbability the probe observes
// a racing peer's write (value + Increment) before its own read lands.
type StatePollution struct {
	State                 *Accumulator
	Limit                 int64
	Increment             int64
	PollutionProbability  float64
	InterleaveProbability float64
}

// Kind implements Source.
func (s *StatePollution) Kind() flake.Kind { return flake.KindStatePollution }

// StateHandle implements Stateful.
func (s *StatePollution) StateHandle() *Accumulator { return s.State }

// Validate implements Source.
func (s *StatePollution) Validate() error {
	if s.State == nil {
		return &flake.ConfigurationError{Field: "accumulator", Message: "is required"}
	}
	if err := probability("pollution_probability", s.PollutionProbability); err != nil {
		return err
	}
	return probability("interleave_probability", s.InterleaveProbability)
}

// Probe implements Source.
func (s *StatePollution) Probe(ctx context.Context, d Draw) (flake.Observation, error) {
	if err := s.Validate(); err != nil {
		return flake.Observation{}, err
	}
	if err := ctx.Err(); err != nil {
		return flake.Observation{}, err
	}
	d = d.withDefaults()

	// Both draws are always taken so the stream layout does not depend on
	// the execution mode.
	pollute := d.Entropy.Float64() < s.PollutionProbability
	interleaved := d.Entropy.Float64() < s.InterleaveProbability

	observed := s.State.Update(func(current int64) int64 {
		if pollute {
			return current + s.Increment
		}
		return current
	})
	if d.Concurrent && interleaved {
		observed += s.Increment
	}

	return flake.Observation{
		Pass:    observed < s.Limit,
		Metrics: flake.Metrics{StateBefore: flake.Ptr(observed)},
	}, nil
}
