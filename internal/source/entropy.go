package source

import (
	"math/rand/v2"
)

// Entropy supplies uniform draws in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type Entropy interface {
	Float64() float64
}

// NewSeededEntropy returns a reproducible entropy stream for seed.
// The returned stream is not safe for concurrent use; give each
// repetition its own stream.
func NewSeededEntropy(seed int64) Entropy {
	s := uint64(seed)
	return rand.New(rand.NewPCG(s, s^0xda3e39cb94b95bdb))
}

// processEntropy draws from the runtime's randomly seeded global source.
type processEntropy struct{}

func (processEntropy) Float64() float64 {
	return rand.Float64()
}

// ProcessEntropy returns the process-wide entropy source used when no seed
// is supplied. Safe for concurrent use.
func ProcessEntropy() Entropy {
	return processEntropy{}
}

// DeriveSeed maps a base seed and a repetition index to an independent
// per-repetition seed (splitmix64 finalizer).
func DeriveSeed(base int64, index int) int64 {
	z := uint64(base) + uint64(index+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	z ^= z >> 31
	return int64(z)
}
