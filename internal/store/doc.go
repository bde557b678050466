// Package store provides SQLite-backed durable storage for flakelab run
// histories.
//
// The store is append-only:
//   - runs: one row per harness run (run ID, scenario, requested size,
//     seed, reset/concurrency flags, truncation, digest)
//   - outcomes: one row per recorded repetition, keyed by (run_id, seq)
//
// # Ordering
//
// Runs are ordered by their insertion sequence, outcomes by their
// completion seq within a run. Every query spells out its ORDER BY, so a
// scenario's full persisted history always reads back in the order it was
// produced. Timestamps are stored for reporting only and never used for
// ordering.
//
// # Idempotency
//
// Writing the same history twice is a no-op: runs conflict on their ID
// and outcomes on (run_id, seq).
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
