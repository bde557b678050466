package source

import (
	"context"

	"github.com/roach88/flakelab/internal/flake"
)

// Randomness passes when a uniform draw falls below PassProbability.
type Randomness struct {
	PassProbability float64
}

// NewRandomness creates a randomness source passing with probability p.
func NewRandomness(p float64) *Randomness {
	return &Randomness{PassProbability: p}
}

// Kind implements Source.
func (r *Randomness) Kind() flake.Kind { return flake.KindRandomness }

// Validate implements Source.
func (r *Randomness) Validate() error {
	return probability("pass_probability", r.PassProbability)
}

// Probe implements Source.
func (r *Randomness) Probe(ctx context.Context, d Draw) (flake.Observation, error) {
	if err := r.Validate(); err != nil {
		return flake.Observation{}, err
	}
	if err := ctx.Err(); err != nil {
		return flake.Observation{}, err
	}
	d = d.withDefaults()

	u := d.Entropy.Float64()
	return flake.Observation{
		Pass:    u < r.PassProbability,
		Metrics: flake.Metrics{Sample: flake.Ptr(u)},
	}, nil
}
