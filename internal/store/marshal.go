package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/flakelab/internal/flake"
)

// marshalMetrics converts Metrics to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON for deterministic serialization.
func marshalMetrics(m flake.Metrics) (string, error) {
	data, err := flake.Canonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal metrics: %w", err)
	}
	return string(data), nil
}

// unmarshalMetrics parses stored metrics JSON.
func unmarshalMetrics(data string) (flake.Metrics, error) {
	var m flake.Metrics
	if data == "" || data == "{}" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return flake.Metrics{}, fmt.Errorf("unmarshal metrics: %w", err)
	}
	return m, nil
}

// formatTime renders t for storage. Timestamps are informational only.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
