package classify

import (
	"fmt"

	"github.com/roach88/flakelab/internal/flake"
	"github.com/roach88/flakelab/internal/harness"
)

// MinSamples is the smallest history the classifier accepts.
const MinSamples = 5

// Option customizes classification.
type Option func(*options)

type options struct {
	stateDeltas []float64
	envFacts    []string
	requested   int
	truncated   bool
}

// WithStateDeltas supplies the shared-state value each run observed, one
// per outcome, in place of the outcomes' own StateBefore metric.
func WithStateDeltas(deltas []float64) Option {
	return func(o *options) { o.stateDeltas = deltas }
}

// WithEnvFacts supplies an environment fingerprint per outcome in place
// of the outcomes' own Env metric.
func WithEnvFacts(facts []string) Option {
	return func(o *options) { o.envFacts = facts }
}

// WithRequested sets the sample size the caller asked for. When more than
// the number of outcomes, confidence is reduced accordingly.
func WithRequested(n int) Option {
	return func(o *options) { o.requested = n }
}

// WithTruncated marks the history as cut short.
func WithTruncated(truncated bool) Option {
	return func(o *options) { o.truncated = truncated }
}

// ClassifyHistory classifies a harness history, taking the requested
// sample size and truncation flag from it.
func ClassifyHistory(h *harness.History, opts ...Option) (flake.ClassificationResult, error) {
	base := []Option{WithRequested(h.Requested), WithTruncated(h.Truncated)}
	return Classify(h.Scenario, h.Outcomes, append(base, opts...)...)
}

// Classify assigns a flakiness kind to outcomes.
//
// Errors:
//   - *flake.InsufficientSamplesError if fewer than MinSamples outcomes
//   - *flake.ConfigurationError if a supplied sequence does not have one
//     entry per outcome
//
// The winner is the kind with the strongest signal. When every signal is
// zero (e.g. a scenario that never failed), the kind whose metric covers the
// most runs wins. Remaining ties follow flake.Precedence.
func Classify(scenario string, outcomes []flake.RunOutcome, opts ...Option) (flake.ClassificationResult, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if len(outcomes) < MinSamples {
		return flake.ClassificationResult{}, &flake.InsufficientSamplesError{Have: len(outcomes), Need: MinSamples}
	}
	if o.stateDeltas != nil && len(o.stateDeltas) != len(outcomes) {
		return flake.ClassificationResult{}, flake.Configf("state_deltas", len(o.stateDeltas),
			fmt.Sprintf("need one entry per outcome (%d)", len(outcomes)))
	}
	if o.envFacts != nil && len(o.envFacts) != len(outcomes) {
		return flake.ClassificationResult{}, flake.Configf("env_facts", len(o.envFacts),
			fmt.Sprintf("need one entry per outcome (%d)", len(outcomes)))
	}

	signals := make(map[flake.Kind]float64, len(flake.Precedence))
	coverage := make(map[flake.Kind]int, len(flake.Precedence))
	for _, kind := range flake.Precedence {
		signals[kind], coverage[kind] = measure(kind, outcomes, &o)
	}

	winner := pick(signals, coverage)

	denominator := len(outcomes)
	if o.requested > denominator {
		denominator = o.requested
	}

	return flake.ClassificationResult{
		Scenario:          scenario,
		Kind:              winner,
		ObservedFlakeRate: flake.FlakeRate(outcomes),
		Confidence:        float64(coverage[winner]) / float64(denominator),
		Samples:           len(outcomes),
		Requested:         o.requested,
		Truncated:         o.truncated || o.requested > len(outcomes),
		Signals:           signals,
	}, nil
}

// pick selects the kind with the highest signal, falling back to coverage
// when no signal is present. Iterating in precedence order and replacing
// only on a strict improvement resolves ties by precedence.
func pick(signals map[flake.Kind]float64, coverage map[flake.Kind]int) flake.Kind {
	winner := flake.Precedence[0]
	anySignal := false
	for _, kind := range flake.Precedence {
		if signals[kind] > 0 {
			anySignal = true
			break
		}
	}

	for _, kind := range flake.Precedence[1:] {
		if anySignal {
			if signals[kind] > signals[winner] {
				winner = kind
			}
			continue
		}
		if coverage[kind] > coverage[winner] {
			winner = kind
		}
	}
	return winner
}

// measure returns the signal for kind and how many runs carried its metric.
func measure(kind flake.Kind, outcomes []flake.RunOutcome, o *options) (float64, int) {
	switch kind {
	case flake.KindTimingRace:
		return continuous(outcomes, func(m flake.Metrics) *float64 { return m.ElapsedMS })

	case flake.KindRandomness:
		return continuous(outcomes, func(m flake.Metrics) *float64 { return m.Sample })

	case flake.KindDomTiming:
		return continuous(outcomes, func(m flake.Metrics) *float64 {
			if m.RenderFrames == nil {
				return nil
			}
			v := float64(*m.RenderFrames)
			return &v
		})

	case flake.KindStatePollution:
		if o.stateDeltas != nil {
			return pointBiserial(o.stateDeltas, passes(outcomes)), len(outcomes)
		}
		return continuous(outcomes, func(m flake.Metrics) *float64 {
			if m.StateBefore == nil {
				return nil
			}
			v := float64(*m.StateBefore)
			return &v
		})

	case flake.KindEnvironment:
		if o.envFacts != nil {
			return correlationRatio(o.envFacts, passes(outcomes)), len(outcomes)
		}
		var groups []string
		var pass []bool
		for _, out := range outcomes {
			if out.Metrics.Env == nil {
				continue
			}
			groups = append(groups, *out.Metrics.Env)
			pass = append(pass, out.Pass)
		}
		return correlationRatio(groups, pass), len(groups)

	case flake.KindNetwork:
		latency, latencyN := continuous(outcomes, func(m flake.Metrics) *float64 { return m.LatencyMS })
		dropped, droppedN := continuous(outcomes, func(m flake.Metrics) *float64 {
			if m.Dropped == nil {
				return nil
			}
			v := 0.0
			if *m.Dropped {
				v = 1
			}
			return &v
		})
		return max(latency, dropped), max(latencyN, droppedN)
	}
	return 0, 0
}

// continuous correlates the metric selected by get with pass over the runs
// that carry it.
func continuous(outcomes []flake.RunOutcome, get func(flake.Metrics) *float64) (float64, int) {
	xs := make([]float64, 0, len(outcomes))
	pass := make([]bool, 0, len(outcomes))
	for _, out := range outcomes {
		v := get(out.Metrics)
		if v == nil {
			continue
		}
		xs = append(xs, *v)
		pass = append(pass, out.Pass)
	}
	return pointBiserial(xs, pass), len(xs)
}

func passes(outcomes []flake.RunOutcome) []bool {
	out := make([]bool, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Pass
	}
	return out
}
