package source

import (
	"context"
	"fmt"

	"github.com/roach88/flakelab/internal/flake"
)

// Draw carries the injected providers for one probe.
type Draw struct {
	// Entropy supplies uniform values. Nil means ProcessEntropy.
	Entropy Entropy

	// Clock supplies time and suspension. Nil means WallClock.
	Clock Clock

	// Concurrent is true when the probe runs alongside other repetitions
	// of the same scenario.
	Concurrent bool
}

func (d Draw) withDefaults() Draw {
	if d.Entropy == nil {
		d.Entropy = ProcessEntropy()
	}
	if d.Clock == nil {
		d.Clock = WallClock{}
	}
	return d
}

// Source produces one pass/fail observation under a specific kind of
// nondeterminism.
type Source interface {
	// Kind returns the nondeterminism kind this source models.
	Kind() flake.Kind

	// Validate checks the source parameters and returns a
	// *flake.ConfigurationError if any is out of range.
	Validate() error

	// Probe executes one repetition. It validates the configuration first.
	Probe(ctx context.Context, d Draw) (flake.Observation, error)
}

// Stateful is implemented by sources that depend on a shared Accumulator.
type Stateful interface {
	StateHandle() *Accumulator
}

// SampleOptions configures Sample.
type SampleOptions struct {
	// Seed makes the sample reproducible. Nil draws from ProcessEntropy.
	Seed *int64

	// Clock is the timer provider. Nil uses a fresh VirtualClock at Epoch,
	// so seeded samples are identical including their timestamp.
	Clock Clock

	// Concurrent marks the sample as running alongside peers.
	Concurrent bool
}

// Sample probes src once and returns the outcome.
//
// With a seed the outcome is reproducible: same seed, same source, same
// RunOutcome. Scenario, Index and Seq are left for the caller to assign;
// ID is computed over the returned content.
func Sample(ctx context.Context, src Source, opts SampleOptions) (flake.RunOutcome, error) {
	if src == nil {
		return flake.RunOutcome{}, &flake.ConfigurationError{Field: "source", Message: "is required"}
	}

	clock := opts.Clock
	if clock == nil {
		clock = NewVirtualClock(Epoch)
	}

	var out flake.RunOutcome
	var entropy Entropy
	if opts.Seed != nil {
		entropy = NewSeededEntropy(*opts.Seed)
		out.Seed = *opts.Seed
		out.Seeded = true
	} else {
		entropy = ProcessEntropy()
	}

	obs, err := src.Probe(ctx, Draw{Entropy: entropy, Clock: clock, Concurrent: opts.Concurrent})
	if err != nil {
		return flake.RunOutcome{}, err
	}

	out.Pass = obs.Pass
	out.Metrics = obs.Metrics
	out.At = clock.Now()

	id, err := flake.OutcomeID(out)
	if err != nil {
		return flake.RunOutcome{}, fmt.Errorf("sample: %w", err)
	}
	out.ID = id
	return out, nil
}
