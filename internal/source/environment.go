package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	_ "time/tzdata" // timezone validation must not depend on the host's zoneinfo

	"golang.org/x/text/language"

	"github.com/roach88/flakelab/internal/flake"
)

// Facts describes the environment a test observes.
type Facts struct {
	Locale   string          `yaml:"locale,omitempty" json:"locale,omitempty"`
	Timezone string          `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	Flags    map[string]bool `yaml:"flags,omitempty" json:"flags,omitempty"`
}

// Fingerprint renders the facts in a stable form, e.g.
// "locale=en-US;tz=UTC;flags=beta,!legacy".
func (f Facts) Fingerprint() string {
	locale := f.Locale
	if tag, err := language.Parse(f.Locale); err == nil && f.Locale != "" {
		locale = tag.String()
	}

	names := make([]string, 0, len(f.Flags))
	for name := range f.Flags {
		names = append(names, name)
	}
	sort.Strings(names)
	flags := make([]string, len(names))
	for i, name := range names {
		if f.Flags[name] {
			flags[i] = name
		} else {
			flags[i] = "!" + name
		}
	}

	return fmt.Sprintf("locale=%s;tz=%s;flags=%s", locale, f.Timezone, strings.Join(flags, ","))
}

// offsetReference is the instant at which timezone offsets are compared.
var offsetReference = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

// Environment models a test that silently assumes its machine's facts.
// Each repetition lands on one machine of Matrix (chosen by entropy, as a
// CI scheduler would) and passes only if that machine satisfies Assume.
//
// Facts are injected configuration; the probe never reads the host's
// locale, timezone or environment variables.
type Environment struct {
	Matrix []Facts
	Assume Facts
}

// Kind implements Source.
func (e *Environment) Kind() flake.Kind { return flake.KindEnvironment }

// Validate implements Source.
func (e *Environment) Validate() error {
	if len(e.Matrix) == 0 {
		return &flake.ConfigurationError{Field: "matrix", Message: "at least one environment is required"}
	}
	for i, facts := range e.Matrix {
		if err := validateFacts(fmt.Sprintf("matrix[%d]", i), facts); err != nil {
			return err
		}
	}
	return validateFacts("assume", e.Assume)
}

func validateFacts(field string, f Facts) error {
	if f.Locale != "" {
		if _, err := language.Parse(f.Locale); err != nil {
			return flake.Configf(field+".locale", f.Locale, "is not a valid BCP 47 tag")
		}
	}
	if f.Timezone != "" {
		if _, err := time.LoadLocation(f.Timezone); err != nil {
			return flake.Configf(field+".timezone", f.Timezone, "is not a known IANA timezone")
		}
	}
	return nil
}

// Probe implements Source.
func (e *Environment) Probe(ctx context.Context, d Draw) (flake.Observation, error) {
	if err := e.Validate(); err != nil {
		return flake.Observation{}, err
	}
	if err := ctx.Err(); err != nil {
		return flake.Observation{}, err
	}
	d = d.withDefaults()

	idx := int(d.Entropy.Float64() * float64(len(e.Matrix)))
	if idx >= len(e.Matrix) {
		idx = len(e.Matrix) - 1
	}
	machine := e.Matrix[idx]

	return flake.Observation{
		Pass:    satisfies(machine, e.Assume),
		Metrics: flake.Metrics{Env: flake.Ptr(machine.Fingerprint())},
	}, nil
}

// satisfies reports whether machine meets every fact in assume.
// Empty assumed fields match anything; missing flags read as false.
func satisfies(machine, assume Facts) bool {
	if assume.Locale != "" {
		want, _ := language.Parse(assume.Locale)
		got, err := language.Parse(machine.Locale)
		if err != nil || machine.Locale == "" || got.String() != want.String() {
			return false
		}
	}
	if assume.Timezone != "" {
		if machine.Timezone == "" || utcOffset(machine.Timezone) != utcOffset(assume.Timezone) {
			return false
		}
	}
	for name, want := range assume.Flags {
		if machine.Flags[name] != want {
			return false
		}
	}
	return true
}

func utcOffset(tz string) int {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return 0
	}
	_, offset := offsetReference.In(loc).Zone()
	return offset
}
