package catalog

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/flakelab/internal/flake"
	"github.com/roach88/flakelab/internal/source"
)

// Descriptor is a registered scenario. Fields are fixed at registration.
type Descriptor struct {
	name              string
	kind              flake.Kind
	src               source.Source
	expectedFlakeRate float64
	description       string
}

// Name returns the NFC-normalized scenario name.
func (d *Descriptor) Name() string { return d.name }

// Kind returns the declared flakiness kind.
func (d *Descriptor) Kind() flake.Kind { return d.kind }

// Source returns the nondeterminism source the harness drives.
func (d *Descriptor) Source() source.Source { return d.src }

// ExpectedFlakeRate returns the declared failure ratio in [0,1].
func (d *Descriptor) ExpectedFlakeRate() float64 { return d.expectedFlakeRate }

// Description returns the free-form description, if any.
func (d *Descriptor) Description() string { return d.description }

// State returns the shared accumulator for state pollution scenarios,
// or nil for every other kind.
func (d *Descriptor) State() *source.Accumulator {
	if s, ok := d.src.(source.Stateful); ok {
		return s.StateHandle()
	}
	return nil
}

// Option customizes a descriptor at registration.
type Option func(*Descriptor)

// WithDescription attaches a human-readable description.
func WithDescription(text string) Option {
	return func(d *Descriptor) { d.description = text }
}

// NormalizeName returns the canonical form of a scenario name.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// Registry stores descriptors by unique name.
//
// Thread-safety: All methods are safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	byName       map[string]*Descriptor
	accumulators map[string]*source.Accumulator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:       make(map[string]*Descriptor),
		accumulators: make(map[string]*source.Accumulator),
	}
}

// Register adds a scenario and returns its descriptor.
//
// Errors:
//   - *flake.ConfigurationError for an empty name, a kind outside the
//     catalog, a source modelling a different kind, a rate outside [0,1],
//     or an accumulator whose name is held by a different accumulator
//   - *flake.DuplicateNameError if the normalized name is already taken
func (r *Registry) Register(name string, kind flake.Kind, src source.Source, expectedFlakeRate float64, opts ...Option) (*Descriptor, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, &flake.ConfigurationError{Field: "name", Message: "is required"}
	}
	if !kind.Valid() {
		return nil, flake.Configf("kind", kind, "unknown flakiness kind")
	}
	if src == nil {
		return nil, &flake.ConfigurationError{Field: "source", Message: "is required"}
	}
	if src.Kind() != kind {
		return nil, flake.Configf("kind", kind, fmt.Sprintf("source models %s", src.Kind()))
	}
	if math.IsNaN(expectedFlakeRate) || expectedFlakeRate < 0 || expectedFlakeRate > 1 {
		return nil, flake.Configf("expected_flake_rate", expectedFlakeRate, "must be within [0,1]")
	}

	d := &Descriptor{
		name:              normalized,
		kind:              kind,
		src:               src,
		expectedFlakeRate: expectedFlakeRate,
	}
	for _, opt := range opts {
		opt(d)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[normalized]; exists {
		return nil, &flake.DuplicateNameError{Name: normalized}
	}
	acc := d.State()
	if acc != nil {
		if held, ok := r.accumulators[acc.Name()]; ok && held != acc {
			return nil, flake.Configf("accumulator", acc.Name(), "name already bound to a different accumulator")
		}
	}
	r.byName[normalized] = d
	if acc != nil {
		r.accumulators[acc.Name()] = acc
	}
	return d, nil
}

// Lookup returns the descriptor registered under name.
// Returns *flake.NotFoundError if absent.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	normalized := NormalizeName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byName[normalized]
	if !ok {
		return nil, &flake.NotFoundError{Name: normalized}
	}
	return d, nil
}

// Names returns all registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns all descriptors sorted by name.
func (r *Registry) Descriptors() []*Descriptor {
	names := r.Names()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(names))
	for _, name := range names {
		if d, ok := r.byName[name]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Len returns the number of registered scenarios.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName)
}

// Accumulators returns the shared accumulators referenced by registered
// scenarios, sorted by name.
func (r *Registry) Accumulators() []*source.Accumulator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*source.Accumulator, 0, len(r.accumulators))
	for _, acc := range r.accumulators {
		out = append(out, acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
