package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/flakelab/internal/catalog"
	"github.com/roach88/flakelab/internal/flake"
	"github.com/roach88/flakelab/internal/source"
)

// Observer receives outcomes as they are recorded and each finished
// history. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveOutcome(o flake.RunOutcome)
	ObserveHistory(h *History)
}

// Options configures a harness run.
type Options struct {
	// N is the number of repetitions. Must be >= 1.
	N int

	// ResetStateBetweenRuns restores the scenario's shared accumulator
	// before every repetition. The reset and the sample run as one
	// exclusive section on the accumulator, so with Concurrency > 1
	// stateful repetitions are serialized and each observes the initial
	// value. Runs without reset that share the accumulator can still write
	// into it meanwhile.
	ResetStateBetweenRuns bool

	// Concurrency bounds how many repetitions run at once. Values <= 1
	// run sequentially.
	Concurrency int

	// Deadline bounds the run on the injected clock. Zero means none.
	Deadline time.Duration

	// Seed makes the run reproducible. Nil draws from process entropy.
	Seed *int64

	// Clock is the timer provider. Nil uses a VirtualClock at source.Epoch.
	Clock source.Clock

	// Logger receives run diagnostics. Nil discards them.
	Logger *slog.Logger

	// Observer is notified of every outcome and the finished history.
	Observer Observer

	// RunIDs generates the history's run ID. Nil uses UUIDv7Generator.
	RunIDs RunIDGenerator
}

func (o Options) withDefaults() Options {
	if o.Concurrency < 1 {
		o.Concurrency = 1
	}
	if o.Clock == nil {
		o.Clock = source.NewVirtualClock(source.Epoch)
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.RunIDs == nil {
		o.RunIDs = UUIDv7Generator{}
	}
	return o
}

func (o Options) validate() error {
	if o.N < 1 {
		return flake.Configf("n", o.N, "must be >= 1")
	}
	if o.Deadline < 0 {
		return flake.Configf("deadline", o.Deadline, "must be non-negative")
	}
	return nil
}

// Run executes the scenario described by d N times and returns its
// history.
//
// Configuration problems (N < 1, invalid source parameters) fail with a
// *flake.ConfigurationError before any repetition starts. A repetition
// failing its assertion is recorded, not returned as an error. If a probe
// itself errors, the remaining repetitions are cancelled and the partial
// history is returned together with the error.
func Run(ctx context.Context, d *catalog.Descriptor, opts Options) (*History, error) {
	if d == nil {
		return nil, &flake.ConfigurationError{Field: "descriptor", Message: "is required"}
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := d.Source().Validate(); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", d.Name(), err)
	}
	opts = opts.withDefaults()

	r := &runner{
		desc:  d,
		opts:  opts,
		start: opts.Clock.Now(),
	}
	if opts.Deadline > 0 {
		r.deadline = r.start.Add(opts.Deadline)
		// A wall clock suspends for real, so the deadline must interrupt
		// in-flight sleeps as well.
		if _, ok := opts.Clock.(source.WallClock); ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithDeadline(ctx, time.Now().Add(opts.Deadline))
			defer cancel()
		}
	}

	h := &History{
		RunID:      opts.RunIDs.Generate(),
		Scenario:   d.Name(),
		Requested:  opts.N,
		Seed:       opts.Seed,
		Reset:      opts.ResetStateBetweenRuns,
		Concurrent: opts.Concurrency > 1,
		StartedAt:  r.start,
	}

	opts.Logger.Debug("run started",
		"scenario", d.Name(),
		"run_id", h.RunID,
		"n", opts.N,
		"concurrency", opts.Concurrency,
		"reset", opts.ResetStateBetweenRuns,
	)

	runErr := r.execute(ctx)

	h.Outcomes = r.outcomes
	h.Truncated = r.truncated.Load() || len(h.Outcomes) < opts.N
	h.FinishedAt = opts.Clock.Now()

	if opts.Observer != nil {
		opts.Observer.ObserveHistory(h)
	}

	opts.Logger.Info("run finished",
		"scenario", d.Name(),
		"run_id", h.RunID,
		"samples", h.Len(),
		"failures", h.Failures(),
		"flake_rate", h.FlakeRate(),
		"truncated", h.Truncated,
	)

	if runErr != nil {
		return h, fmt.Errorf("scenario %q: %w", d.Name(), runErr)
	}
	return h, nil
}

type runner struct {
	desc     *catalog.Descriptor
	opts     Options
	start    time.Time
	deadline time.Time

	seq       seqCounter
	truncated atomic.Bool

	mu       sync.Mutex
	outcomes []flake.RunOutcome
}

func (r *runner) execute(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)

	for i := 0; i < r.opts.N; i++ {
		if gctx.Err() != nil || r.pastDeadline(r.opts.Clock.Now()) {
			r.truncated.Store(true)
			break
		}
		g.Go(func() error {
			return r.repetition(gctx, i)
		})
	}
	return g.Wait()
}

// pastDeadline reports whether t is beyond the run deadline.
func (r *runner) pastDeadline(t time.Time) bool {
	return !r.deadline.IsZero() && t.After(r.deadline)
}

func (r *runner) repetition(ctx context.Context, index int) error {
	// Re-check once scheduled: a concurrent peer may have used up the
	// remaining time while this repetition waited for a slot.
	if ctx.Err() != nil || r.pastDeadline(r.opts.Clock.Now()) {
		r.truncated.Store(true)
		return nil
	}

	sampleOpts := source.SampleOptions{
		Clock:      r.opts.Clock,
		Concurrent: r.opts.Concurrency > 1,
	}
	if r.opts.Seed != nil {
		seed := source.DeriveSeed(*r.opts.Seed, index)
		sampleOpts.Seed = &seed
	}

	out, err := r.sample(ctx, sampleOpts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			r.truncated.Store(true)
			return nil
		}
		return fmt.Errorf("repetition %d: %w", index, err)
	}
	if r.pastDeadline(out.At) {
		r.opts.Logger.Debug("repetition abandoned past deadline",
			"scenario", r.desc.Name(),
			"index", index,
		)
		r.truncated.Store(true)
		return nil
	}

	out.Scenario = r.desc.Name()
	out.Index = index

	r.mu.Lock()
	out.Seq = r.seq.next()
	id, err := flake.OutcomeID(out)
	if err != nil {
		r.mu.Unlock()
		return fmt.Errorf("repetition %d: %w", index, err)
	}
	out.ID = id
	r.outcomes = append(r.outcomes, out)
	r.mu.Unlock()

	r.opts.Logger.Debug("repetition recorded",
		"scenario", out.Scenario,
		"index", out.Index,
		"seq", out.Seq,
		"pass", out.Pass,
	)
	if r.opts.Observer != nil {
		r.opts.Observer.ObserveOutcome(out)
	}
	return nil
}

// sample runs one repetition of the scenario. With reset enabled on a
// stateful scenario, the reset and the sample form one exclusive section.
func (r *runner) sample(ctx context.Context, opts source.SampleOptions) (flake.RunOutcome, error) {
	acc := r.desc.State()
	if !r.opts.ResetStateBetweenRuns || acc == nil {
		return source.Sample(ctx, r.desc.Source(), opts)
	}

	var (
		out flake.RunOutcome
		err error
	)
	acc.Exclusive(func() {
		acc.Reset()
		out, err = source.Sample(ctx, r.desc.Source(), opts)
	})
	return out, err
}
