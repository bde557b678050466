package flake

import "strings"

// Kind is the taxonomic category explaining why a scenario is flaky.
type Kind string

const (
	KindTimingRace     Kind = "timing_race"
	KindDomTiming      Kind = "dom_timing"
	KindRandomness     Kind = "randomness"
	KindNetwork        Kind = "network"
	KindStatePollution Kind = "state_pollution"
	KindEnvironment    Kind = "environment"
)

// Precedence is the fixed tie-break order used by the classifier.
// Earlier kinds win ties.
var Precedence = []Kind{
	KindTimingRace,
	KindRandomness,
	KindStatePollution,
	KindEnvironment,
	KindDomTiming,
	KindNetwork,
}

// AllKinds returns every kind in precedence order.
func AllKinds() []Kind {
	out := make([]Kind, len(Precedence))
	copy(out, Precedence)
	return out
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	for _, known := range Precedence {
		if k == known {
			return true
		}
	}
	return false
}

// Rank returns the position of k in Precedence (lower wins), or
// len(Precedence) for unknown kinds.
func (k Kind) Rank() int {
	for i, known := range Precedence {
		if k == known {
			return i
		}
	}
	return len(Precedence)
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a textual kind into a Kind.
// Accepts both snake_case and hyphenated spellings, case-insensitively.
func ParseKind(s string) (Kind, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
	k := Kind(normalized)
	if !k.Valid() {
		return "", &ConfigurationError{
			Field:   "kind",
			Value:   s,
			Message: "unknown nondeterminism kind",
		}
	}
	return k, nil
}
