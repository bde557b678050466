package flake

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/gowebpki/jcs"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainOutcome = "flakelab/outcome/v1"
	DomainHistory = "flakelab/history/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Canonical marshals v to JSON and transforms it to RFC 8785 canonical form.
func Canonical(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return out, nil
}

// OutcomeID computes the content address of an outcome.
// The ID field itself and the wall-clock timestamp are excluded so the same
// seeded repetition yields the same ID on every machine.
func OutcomeID(o RunOutcome) (string, error) {
	obj := map[string]any{
		"scenario": o.Scenario,
		"index":    o.Index,
		"seq":      o.Seq,
		"seed":     strconv.FormatInt(o.Seed, 10),
		"seeded":   o.Seeded,
		"pass":     o.Pass,
		"metrics":  o.Metrics,
	}
	canonical, err := Canonical(obj)
	if err != nil {
		return "", fmt.Errorf("OutcomeID: %w", err)
	}
	return hashWithDomain(DomainOutcome, canonical), nil
}

// HistoryDigest computes a digest over an ordered sequence of outcome IDs.
func HistoryDigest(scenario string, outcomeIDs []string) (string, error) {
	canonical, err := Canonical(map[string]any{
		"scenario": scenario,
		"outcomes": outcomeIDs,
	})
	if err != nil {
		return "", fmt.Errorf("HistoryDigest: %w", err)
	}
	return hashWithDomain(DomainHistory, canonical), nil
}
