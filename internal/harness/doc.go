// Package harness executes catalog scenarios repeatedly and records their
// run history.
//
// # Execution Model
//
// Run drives a descriptor's source N times. Every repetition is recorded,
// pass or fail; there is no short-circuit on failure. Outcomes are ordered
// by completion sequence, which for sequential execution matches the
// repetition index.
//
// With Options.Seed set, repetition i draws from DeriveSeed(seed, i), so a
// history is reproducible regardless of how repetitions are scheduled.
//
// # Shared State
//
// For state pollution scenarios the reset policy decides whether the
// shared accumulator is restored before each repetition. Without reset,
// residue carries over between repetitions and between successive Run
// calls on the same descriptor.
//
// # Deadlines
//
// Options.Deadline is measured on the injected clock from the start of the
// run. Repetitions that would start or complete past it are abandoned and
// the history is returned with Truncated set. Context cancellation is
// handled the same way. Truncation is a property of the result, not an
// error.
//
// # Deterministic Testing
//
// With a seed, a VirtualClock and a fixed run-ID generator, two runs of the
// same scenario produce byte-identical snapshots:
//
//	h, err := harness.Run(ctx, d, harness.Options{
//	    N:      100,
//	    Seed:   &seed,
//	    RunIDs: testutil.NewFixedRunIDGenerator("run-1"),
//	})
//	harness.AssertGolden(t, d.Name(), h)
package harness
