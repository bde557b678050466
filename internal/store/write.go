package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/flakelab/internal/harness"
)

// WriteHistory persists a run and its outcomes in one transaction.
// Uses ON CONFLICT DO NOTHING for idempotency - writing the same run ID
// twice leaves the first copy untouched.
func (s *Store) WriteHistory(ctx context.Context, h *harness.History) error {
	digest, err := h.Digest()
	if err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write history: begin: %w", err)
	}
	defer tx.Rollback()

	var seed sql.NullInt64
	if h.Seed != nil {
		seed = sql.NullInt64{Int64: *h.Seed, Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, scenario, requested, seed, reset, concurrent, truncated, samples, failures, digest, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		h.RunID,
		h.Scenario,
		h.Requested,
		seed,
		boolToInt(h.Reset),
		boolToInt(h.Concurrent),
		boolToInt(h.Truncated),
		h.Len(),
		h.Failures(),
		digest,
		formatTime(h.StartedAt),
		formatTime(h.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("write history: insert run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Run already stored.
		return tx.Commit()
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO outcomes
		(run_id, seq, id, scenario, idx, seed, seeded, at, pass, metrics)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write history: prepare: %w", err)
	}
	defer stmt.Close()

	for _, o := range h.Outcomes {
		metrics, err := marshalMetrics(o.Metrics)
		if err != nil {
			return fmt.Errorf("write history: outcome %d: %w", o.Seq, err)
		}
		_, err = stmt.ExecContext(ctx,
			h.RunID,
			o.Seq,
			o.ID,
			o.Scenario,
			o.Index,
			o.Seed,
			boolToInt(o.Seeded),
			formatTime(o.At),
			boolToInt(o.Pass),
			metrics,
		)
		if err != nil {
			return fmt.Errorf("write history: outcome %d: %w", o.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write history: commit: %w", err)
	}
	return nil
}
