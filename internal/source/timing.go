package source

import (
	"context"
	"math"

	"github.com/roach88/flakelab/internal/flake"
)

// TimingRace models two competing completions: a fixed wait threshold and
// a variable-duration operation. The probe passes when the operation
// finishes within the threshold.
type TimingRace struct {
	ThresholdMS float64
	Duration    Distribution
}

// NewTimingRace creates a timing race between thresholdMS and duration.
func NewTimingRace(thresholdMS float64, duration Distribution) *TimingRace {
	return &TimingRace{ThresholdMS: thresholdMS, Duration: duration}
}

// Kind implements Source.
func (t *TimingRace) Kind() flake.Kind { return flake.KindTimingRace }

// Validate implements Source.
func (t *TimingRace) Validate() error {
	if err := finiteNonNegative("threshold_ms", t.ThresholdMS); err != nil {
		return err
	}
	if t.Duration == nil {
		return &flake.ConfigurationError{Field: "duration", Message: "distribution is required"}
	}
	return t.Duration.Validate("duration")
}

// Probe implements Source. It suspends for whichever completion comes
// first, then reports the race result.
func (t *TimingRace) Probe(ctx context.Context, d Draw) (flake.Observation, error) {
	if err := t.Validate(); err != nil {
		return flake.Observation{}, err
	}
	d = d.withDefaults()

	elapsed := t.Duration.DrawMS(d.Entropy)
	if err := d.Clock.Sleep(ctx, msToDuration(math.Min(elapsed, t.ThresholdMS))); err != nil {
		return flake.Observation{}, err
	}

	return flake.Observation{
		Pass: elapsed <= t.ThresholdMS,
		Metrics: flake.Metrics{
			ElapsedMS:   flake.Ptr(elapsed),
			ThresholdMS: flake.Ptr(t.ThresholdMS),
		},
	}, nil
}
