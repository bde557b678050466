package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/flakelab/internal/flake"
)

// HistorySnapshot captures the deterministic content of a history.
// Wall-clock start and finish times are omitted; outcome timestamps come
// from the injected clock and are kept.
type HistorySnapshot struct {
	RunID     string             `json:"run_id"`
	Scenario  string             `json:"scenario"`
	Requested int                `json:"requested"`
	Seed      *int64             `json:"seed,omitempty,string"`
	Reset     bool               `json:"reset"`
	Truncated bool               `json:"truncated"`
	Digest    string             `json:"digest"`
	Outcomes  []flake.RunOutcome `json:"outcomes"`
}

// Snapshot renders h as canonical JSON (RFC 8785). Two histories with the
// same seed, clock and run ID produce byte-identical snapshots.
func Snapshot(h *History) ([]byte, error) {
	digest, err := h.Digest()
	if err != nil {
		return nil, err
	}
	outcomes := h.Outcomes
	if outcomes == nil {
		outcomes = []flake.RunOutcome{}
	}
	return flake.Canonical(HistorySnapshot{
		RunID:     h.RunID,
		Scenario:  h.Scenario,
		Requested: h.Requested,
		Seed:      h.Seed,
		Reset:     h.Reset,
		Truncated: h.Truncated,
		Digest:    digest,
		Outcomes:  outcomes,
	})
}

// AssertGolden compares the snapshot of h against a golden file.
// The golden file is stored in testdata/golden/{name}.golden unless opts
// override the fixture directory.
//
// To regenerate golden files, run:
//
//	go test ./... -update
func AssertGolden(t *testing.T, name string, h *History, opts ...goldie.Option) {
	t.Helper()

	data, err := Snapshot(h)
	if err != nil {
		t.Fatalf("snapshot history %q: %v", name, err)
	}

	g := goldie.New(t, append([]goldie.Option{
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	}, opts...)...)
	g.Assert(t, name, data)
}
