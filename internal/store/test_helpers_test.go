package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/flakelab/internal/catalog"
	"github.com/roach88/flakelab/internal/flake"
	"github.com/roach88/flakelab/internal/harness"
	"github.com/roach88/flakelab/internal/source"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestHistory runs a seeded network scenario, which records both
// float and bool metrics.
func createTestHistory(t *testing.T, name, runID string, seed int64, n int) *harness.History {
	t.Helper()
	d, err := catalog.NewRegistry().Register(name, flake.KindNetwork, &source.Network{
		Latency:         source.Normal{MeanMS: 100, StdDevMS: 40},
		DropProbability: 0.1,
		TimeoutMS:       150,
	}, 0.2)
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	h, err := harness.Run(context.Background(), d, harness.Options{
		N:      n,
		Seed:   &seed,
		RunIDs: harness.NewSequenceGenerator(runID),
	})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	return h
}
