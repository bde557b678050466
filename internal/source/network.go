package source

import (
	"context"
	"math"

	"github.com/roach88/flakelab/internal/flake"
)

// Network models a request racing a client timeout. A dropped request
// never answers; the client waits out the full timeout.
type Network struct {
	Latency         Distribution
	DropProbability float64
	TimeoutMS       float64
}

// Kind implements Source.
func (n *Network) Kind() flake.Kind { return flake.KindNetwork }

// Validate implements Source.
func (n *Network) Validate() error {
	if n.Latency == nil {
		return &flake.ConfigurationError{Field: "latency", Message: "distribution is required"}
	}
	if err := n.Latency.Validate("latency"); err != nil {
		return err
	}
	if err := probability("drop_probability", n.DropProbability); err != nil {
		return err
	}
	if err := finiteNonNegative("timeout_ms", n.TimeoutMS); err != nil {
		return err
	}
	if n.TimeoutMS == 0 {
		return flake.Configf("timeout_ms", n.TimeoutMS, "must be positive")
	}
	return nil
}

// Probe implements Source.
func (n *Network) Probe(ctx context.Context, d Draw) (flake.Observation, error) {
	if err := n.Validate(); err != nil {
		return flake.Observation{}, err
	}
	d = d.withDefaults()

	latency := n.Latency.DrawMS(d.Entropy)
	dropped := d.Entropy.Float64() < n.DropProbability

	wait := math.Min(latency, n.TimeoutMS)
	if dropped {
		wait = n.TimeoutMS
	}
	if err := d.Clock.Sleep(ctx, msToDuration(wait)); err != nil {
		return flake.Observation{}, err
	}

	return flake.Observation{
		Pass: !dropped && latency <= n.TimeoutMS,
		Metrics: flake.Metrics{
			LatencyMS: flake.Ptr(latency),
			Dropped:   flake.Ptr(dropped),
		},
	}, nil
}
