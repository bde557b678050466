// Package flake defines the shared vocabulary of flakelab: the taxonomy of
// nondeterminism kinds, the per-run observations a probe produces, the
// ordered run outcomes the harness records, and the classification result
// the classifier derives from them.
//
// # Kinds
//
// Every flaky scenario belongs to exactly one Kind:
//
//   - timing_race: a fixed wait races a variable-duration operation
//   - dom_timing: an assertion checks an element before rendering settles
//   - randomness: the outcome depends on a sampled random value
//   - network: request latency and drops decide the outcome
//   - state_pollution: the outcome depends on state left behind by earlier runs
//   - environment: the outcome depends on machine facts (locale, timezone, flags)
//
// # Identity
//
// Run outcomes are content-addressed: OutcomeID hashes the RFC 8785
// canonical JSON of the outcome with a domain prefix, so the same seeded
// run always produces the same identifier.
package flake
