// Package classify labels a scenario's run history with a flakiness kind.
//
// Classification uses only outcome statistics: for every kind the
// classifier measures how strongly the metric that kind leaves behind
// explains pass/fail. The declared kind and the scenario name are never
// consulted, so a mislabelled catalog entry is caught rather than echoed.
//
// Signals:
//
//	timing_race      |r_pb(elapsed, pass)|
//	randomness       |r_pb(sample, pass)|
//	state_pollution  |r_pb(state before, pass)|, or supplied state deltas
//	environment      η(env fingerprint, pass), or supplied env facts
//	dom_timing       |r_pb(render frames, pass)|
//	network          max(|r_pb(latency, pass)|, |r_pb(dropped, pass)|)
//
// where r_pb is the point-biserial correlation and η the correlation ratio.
// Runs lacking a kind's metric are excluded from that kind's signal.
package classify
