package flake

import "time"

// Metrics holds the optional per-run observations a probe attaches to its
// outcome. A nil field means the metric was not observed on that run.
//
// Durations are recorded in milliseconds so outcomes serialize to stable
// canonical JSON. StateBefore is encoded as a JSON string because canonical
// JSON numbers are IEEE doubles and lose integers above 2^53.
type Metrics struct {
	ElapsedMS    *float64 `json:"elapsed_ms,omitempty"`
	ThresholdMS  *float64 `json:"threshold_ms,omitempty"`
	Sample       *float64 `json:"sample,omitempty"`
	StateBefore  *int64   `json:"state_before,omitempty,string"`
	Env          *string  `json:"env,omitempty"`
	RenderFrames *int     `json:"render_frames,omitempty"`
	CheckAfterMS *float64 `json:"check_after_ms,omitempty"`
	LatencyMS    *float64 `json:"latency_ms,omitempty"`
	Dropped      *bool    `json:"dropped,omitempty"`
}

// Ptr returns a pointer to v. Used to populate optional Metrics fields.
func Ptr[T any](v T) *T {
	return &v
}

// Empty reports whether no metric was observed.
func (m Metrics) Empty() bool {
	return m.ElapsedMS == nil &&
		m.ThresholdMS == nil &&
		m.Sample == nil &&
		m.StateBefore == nil &&
		m.Env == nil &&
		m.RenderFrames == nil &&
		m.CheckAfterMS == nil &&
		m.LatencyMS == nil &&
		m.Dropped == nil
}

// Observation is the raw result of a single probe.
type Observation struct {
	Pass    bool    `json:"pass"`
	Metrics Metrics `json:"metrics"`
}

// RunOutcome is one recorded repetition of a scenario.
// Outcomes are produced by the harness and never mutated after being
// appended to a history.
type RunOutcome struct {
	// ID is the content address of the outcome (see OutcomeID).
	ID string `json:"id"`

	// Scenario is the registered scenario name.
	Scenario string `json:"scenario"`

	// Index is the repetition number within its run (0-based).
	Index int `json:"index"`

	// Seq is the completion order within its run (1-based).
	Seq int64 `json:"seq"`

	// Seed is the per-repetition seed. Zero with Seeded false means the
	// repetition drew from process-wide entropy. Encoded as a string so
	// canonical JSON keeps all 64 bits.
	Seed   int64 `json:"seed,string"`
	Seeded bool  `json:"seeded"`

	// At is the completion time reported by the injected clock.
	At time.Time `json:"at"`

	Pass    bool    `json:"pass"`
	Metrics Metrics `json:"metrics"`
}

// ClassificationResult is the classifier's verdict for one scenario.
type ClassificationResult struct {
	Scenario          string  `json:"scenario"`
	Kind              Kind    `json:"kind"`
	ObservedFlakeRate float64 `json:"observed_flake_rate"`

	// Confidence is the ratio of informative runs: runs carrying the metric
	// behind the assigned kind, over the requested sample size.
	Confidence float64 `json:"confidence"`

	Samples   int  `json:"samples"`
	Requested int  `json:"requested"`
	Truncated bool `json:"truncated"`

	// Signals holds the normalized signal strength computed for every kind.
	Signals map[Kind]float64 `json:"signals"`
}

// FlakeRate returns failed/total for the given outcomes, or 0 when empty.
func FlakeRate(outcomes []RunOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	failed := 0
	for _, o := range outcomes {
		if !o.Pass {
			failed++
		}
	}
	return float64(failed) / float64(len(outcomes))
}
