package harness

import (
	"time"

	"github.com/roach88/flakelab/internal/flake"
)

// History is the ordered record of one harness run of a scenario.
// Outcomes are sorted by completion sequence and never mutated after Run
// returns.
type History struct {
	RunID     string `json:"run_id"`
	Scenario  string `json:"scenario"`
	Requested int    `json:"requested"`

	// Seed is the base seed, nil for an unseeded run.
	Seed *int64 `json:"seed,omitempty"`

	Reset      bool `json:"reset"`
	Concurrent bool `json:"concurrent"`

	// Truncated is set when fewer than Requested repetitions completed
	// before the deadline or cancellation.
	Truncated bool `json:"truncated"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Outcomes []flake.RunOutcome `json:"outcomes"`
}

// Len returns the number of recorded outcomes.
func (h *History) Len() int {
	return len(h.Outcomes)
}

// Failures returns the number of failing outcomes.
func (h *History) Failures() int {
	n := 0
	for _, o := range h.Outcomes {
		if !o.Pass {
			n++
		}
	}
	return n
}

// FlakeRate returns the failure ratio over recorded outcomes.
func (h *History) FlakeRate() float64 {
	return flake.FlakeRate(h.Outcomes)
}

// Digest returns a content digest over the scenario and its ordered
// outcome IDs.
func (h *History) Digest() (string, error) {
	ids := make([]string, len(h.Outcomes))
	for i, o := range h.Outcomes {
		ids[i] = o.ID
	}
	return flake.HistoryDigest(h.Scenario, ids)
}
