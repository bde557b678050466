package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/flakelab/internal/flake"
	"github.com/roach88/flakelab/internal/source"
)

// ScriptedSource replays a fixed sequence of observations, cycling when
// the script is exhausted. Each probe suspends on the clock for Step.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type ScriptedSource struct {
	kind   flake.Kind
	script []flake.Observation

	// Step is how long each probe suspends on the injected clock.
	Step time.Duration

	// Err, when set, is returned by every probe.
	Err error

	mu    sync.Mutex
	calls int
}

// NewScriptedSource creates a source of the given kind replaying script.
func NewScriptedSource(kind flake.Kind, script ...flake.Observation) *ScriptedSource {
	return &ScriptedSource{kind: kind, script: script}
}

// Kind implements source.Source.
func (s *ScriptedSource) Kind() flake.Kind { return s.kind }

// Validate implements source.Source.
func (s *ScriptedSource) Validate() error {
	if len(s.script) == 0 {
		return &flake.ConfigurationError{Field: "script", Message: "at least one observation is required"}
	}
	return nil
}

// Probe implements source.Source.
func (s *ScriptedSource) Probe(ctx context.Context, d source.Draw) (flake.Observation, error) {
	if err := s.Validate(); err != nil {
		return flake.Observation{}, err
	}
	if d.Clock != nil {
		if err := d.Clock.Sleep(ctx, s.Step); err != nil {
			return flake.Observation{}, err
		}
	}
	if s.Err != nil {
		return flake.Observation{}, s.Err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	obs := s.script[s.calls%len(s.script)]
	s.calls++
	return obs, nil
}

// Calls returns how many probes completed.
func (s *ScriptedSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Passes builds observations from a pass/fail pattern with no metrics.
func Passes(pattern ...bool) []flake.Observation {
	out := make([]flake.Observation, len(pattern))
	for i, pass := range pattern {
		out[i] = flake.Observation{Pass: pass}
	}
	return out
}
