package source

import (
	"fmt"
	"math"

	"github.com/roach88/flakelab/internal/flake"
)

// Distribution draws non-negative durations in milliseconds.
type Distribution interface {
	// DrawMS draws one duration using e.
	DrawMS(e Entropy) float64

	// Validate checks the distribution parameters. field prefixes the
	// parameter name in the returned ConfigurationError.
	Validate(field string) error
}

// Uniform draws uniformly from [MinMS, MaxMS].
type Uniform struct {
	MinMS float64
	MaxMS float64
}

// DrawMS implements Distribution.
func (u Uniform) DrawMS(e Entropy) float64 {
	return u.MinMS + e.Float64()*(u.MaxMS-u.MinMS)
}

// Validate implements Distribution.
func (u Uniform) Validate(field string) error {
	if err := finiteNonNegative(field+".min_ms", u.MinMS); err != nil {
		return err
	}
	if err := finiteNonNegative(field+".max_ms", u.MaxMS); err != nil {
		return err
	}
	if u.MaxMS < u.MinMS {
		return flake.Configf(field, fmt.Sprintf("[%g,%g]", u.MinMS, u.MaxMS), "max_ms must be >= min_ms")
	}
	return nil
}

// Normal draws from a normal distribution truncated at zero.
type Normal struct {
	MeanMS   float64
	StdDevMS float64
}

// DrawMS implements Distribution using the Box-Muller transform.
// Always consumes exactly two uniform draws.
func (n Normal) DrawMS(e Entropy) float64 {
	u1 := e.Float64()
	u2 := e.Float64()
	if u1 < math.SmallestNonzeroFloat64 {
		u1 = math.SmallestNonzeroFloat64
	}
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	v := n.MeanMS + z*n.StdDevMS
	if v < 0 {
		return 0
	}
	return v
}

// Validate implements Distribution.
func (n Normal) Validate(field string) error {
	if err := finiteNonNegative(field+".mean_ms", n.MeanMS); err != nil {
		return err
	}
	return finiteNonNegative(field+".stddev_ms", n.StdDevMS)
}

func finiteNonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return flake.Configf(field, v, "must be finite")
	}
	if v < 0 {
		return flake.Configf(field, v, "must be non-negative")
	}
	return nil
}

func probability(field string, p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return flake.Configf(field, p, "must be within [0,1]")
	}
	return nil
}
