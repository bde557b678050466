// Package catalog holds the registry of flaky-test scenario descriptors.
//
// A Descriptor binds a unique name to a nondeterminism source, the kind of
// flakiness it models and the flake rate its author expects. Descriptors are
// immutable once registered.
//
// Catalogs can be declared in YAML or CUE files. Both formats are
// normalized to one JSON document, validated against an embedded JSON
// schema and then built into a fresh Registry:
//
//	accumulators:
//	  - name: session_cache
//	    initial: 0
//	scenarios:
//	  - name: checkout-wait
//	    kind: timing_race
//	    expected_flake_rate: 0.5
//	    timing_race:
//	      threshold_ms: 100
//	      duration: {uniform: {min_ms: 80, max_ms: 120}}
//
// The CUE form keys scenarios by name:
//
//	scenario: "checkout-wait": {
//		kind: "timing_race"
//		expected_flake_rate: 0.5
//		timing_race: {threshold_ms: 100, duration: uniform: {min_ms: 80, max_ms: 120}}
//	}
package catalog
