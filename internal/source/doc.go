// Package source implements the nondeterminism sources behind flaky
// scenarios.
//
// A Source produces one pass/fail Observation per Probe. Every source of
// nondeterminism is injected through a Draw: uniform values come from an
// Entropy, suspensions go through a Clock. Nothing reads ambient process
// state, so a seeded probe on a VirtualClock is fully reproducible.
//
// # Sources
//
//   - TimingRace: a fixed wait threshold races a variable-duration operation
//   - DomTiming: an assertion checks an element before rendering settles
//   - Randomness: a uniform draw is compared against a pass probability
//   - Network: request latency and drops race a client timeout
//   - StatePollution: the outcome depends on a shared, named Accumulator
//   - Environment: the outcome depends on injected machine facts
//
// # Reproducibility
//
// Sample with a seed is deterministic: the same seed and source yield an
// identical RunOutcome. Without a seed, Sample draws from ProcessEntropy.
// DeriveSeed spreads one base seed across repetitions so every repetition
// has its own independent, reproducible stream regardless of scheduling.
package source
