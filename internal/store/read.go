package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/flakelab/internal/flake"
	"github.com/roach88/flakelab/internal/harness"
)

// ErrRunNotFound is returned when reading a run ID that was never stored.
var ErrRunNotFound = errors.New("run not found")

// RunSummary is the stored header of one harness run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	Scenario   string    `json:"scenario"`
	Requested  int       `json:"requested"`
	Seed       *int64    `json:"seed,omitempty"`
	Reset      bool      `json:"reset"`
	Concurrent bool      `json:"concurrent"`
	Truncated  bool      `json:"truncated"`
	Samples    int       `json:"samples"`
	Failures   int       `json:"failures"`
	Digest     string    `json:"digest"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ScenarioHistory is the full persisted history of one scenario across
// every stored run.
type ScenarioHistory struct {
	Scenario string
	Runs     int

	// Requested sums the requested sample size of every run.
	Requested int

	// Truncated is set if any run was truncated.
	Truncated bool

	// Outcomes are ordered by run insertion, then completion seq.
	Outcomes []flake.RunOutcome
}

const runColumns = `id, scenario, requested, seed, reset, concurrent, truncated, samples, failures, digest, started_at, finished_at`

// ListRuns returns run summaries in insertion order. An empty scenario
// lists every run.
//
// Returns an empty slice (not nil) if nothing is stored.
func (s *Store) ListRuns(ctx context.Context, scenario string) ([]RunSummary, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ListScenarios returns the distinct scenario names with stored runs,
// sorted by name.
func (s *Store) ListScenarios(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT scenario FROM runs
		ORDER BY scenario COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query scenarios: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan scenario: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scenarios: %w", err)
	}
	return names, nil
}

// ReadHistory reconstructs a stored run.
// Returns an error wrapping ErrRunNotFound if runID is unknown.
func (s *Store) ReadHistory(ctx context.Context, runID string) (*harness.History, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	summary, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("read history %q: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, err
	}

	outcomes, err := s.queryOutcomes(ctx, `
		SELECT o.id, o.scenario, o.idx, o.seq, o.seed, o.seeded, o.at, o.pass, o.metrics
		FROM outcomes o
		WHERE o.run_id = ?
		ORDER BY o.seq ASC
	`, runID)
	if err != nil {
		return nil, err
	}

	return &harness.History{
		RunID:      summary.RunID,
		Scenario:   summary.Scenario,
		Requested:  summary.Requested,
		Seed:       summary.Seed,
		Reset:      summary.Reset,
		Concurrent: summary.Concurrent,
		Truncated:  summary.Truncated,
		StartedAt:  summary.StartedAt,
		FinishedAt: summary.FinishedAt,
		Outcomes:   outcomes,
	}, nil
}

// ReadScenario returns every stored outcome of scenario across runs.
// A scenario without stored runs yields an empty history.
func (s *Store) ReadScenario(ctx context.Context, scenario string) (*ScenarioHistory, error) {
	runs, err := s.ListRuns(ctx, scenario)
	if err != nil {
		return nil, err
	}

	sh := &ScenarioHistory{Scenario: scenario, Runs: len(runs)}
	for _, r := range runs {
		sh.Requested += r.Requested
		sh.Truncated = sh.Truncated || r.Truncated
	}

	sh.Outcomes, err = s.queryOutcomes(ctx, `
		SELECT o.id, o.scenario, o.idx, o.seq, o.seed, o.seeded, o.at, o.pass, o.metrics
		FROM outcomes o
		JOIN runs r ON r.id = o.run_id
		WHERE r.scenario = ?
		ORDER BY r.seq ASC, o.seq ASC
	`, scenario)
	if err != nil {
		return nil, err
	}
	return sh, nil
}

func (s *Store) queryOutcomes(ctx context.Context, query string, args ...any) ([]flake.RunOutcome, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	outcomes := []flake.RunOutcome{}
	for rows.Next() {
		var (
			o       flake.RunOutcome
			seeded  int
			pass    int
			at      string
			metrics string
		)
		if err := rows.Scan(&o.ID, &o.Scenario, &o.Index, &o.Seq, &o.Seed, &seeded, &at, &pass, &metrics); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Seeded = seeded != 0
		o.Pass = pass != 0
		if o.At, err = parseTime(at); err != nil {
			return nil, err
		}
		if o.Metrics, err = unmarshalMetrics(metrics); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcomes: %w", err)
	}
	return outcomes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunSummary, error) {
	var (
		r                            RunSummary
		seed                         sql.NullInt64
		reset, concurrent, truncated int
		startedAt, finishedAt        string
	)
	err := row.Scan(&r.RunID, &r.Scenario, &r.Requested, &seed, &reset, &concurrent, &truncated,
		&r.Samples, &r.Failures, &r.Digest, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, err
	}
	if err != nil {
		return RunSummary{}, fmt.Errorf("scan run: %w", err)
	}

	if seed.Valid {
		v := seed.Int64
		r.Seed = &v
	}
	r.Reset = reset != 0
	r.Concurrent = concurrent != 0
	r.Truncated = truncated != 0
	if r.StartedAt, err = parseTime(startedAt); err != nil {
		return RunSummary{}, err
	}
	if r.FinishedAt, err = parseTime(finishedAt); err != nil {
		return RunSummary{}, err
	}
	return r, nil
}
