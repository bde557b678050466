package source

import (
	"context"
	"fmt"
	"math"

	"github.com/roach88/flakelab/internal/flake"
)

// MaxRenderFrames bounds DomTiming frame counts so the drawn span and the
// render duration stay representable.
const MaxRenderFrames = 1 << 20

// DomTiming models an assertion that inspects an element after a fixed
// delay while the element settles after a variable number of render
// frames.
type DomTiming struct {
	MinFrames    int
	MaxFrames    int
	FrameMS      float64
	CheckAfterMS float64
}

// Kind implements Source.
func (t *DomTiming) Kind() flake.Kind { return flake.KindDomTiming }

// Validate implements Source.
func (t *DomTiming) Validate() error {
	if t.MinFrames < 0 {
		return flake.Configf("min_frames", t.MinFrames, "must be non-negative")
	}
	if t.MaxFrames < t.MinFrames {
		return flake.Configf("max_frames", t.MaxFrames, "must be >= min_frames")
	}
	if t.MaxFrames > MaxRenderFrames {
		return flake.Configf("max_frames", t.MaxFrames, fmt.Sprintf("must be <= %d", MaxRenderFrames))
	}
	if err := finiteNonNegative("frame_ms", t.FrameMS); err != nil {
		return err
	}
	if t.FrameMS == 0 {
		return flake.Configf("frame_ms", t.FrameMS, "must be positive")
	}
	return finiteNonNegative("check_after_ms", t.CheckAfterMS)
}

// Probe implements Source.
func (t *DomTiming) Probe(ctx context.Context, d Draw) (flake.Observation, error) {
	if err := t.Validate(); err != nil {
		return flake.Observation{}, err
	}
	d = d.withDefaults()

	span := t.MaxFrames - t.MinFrames + 1
	frames := t.MinFrames + int(d.Entropy.Float64()*float64(span))
	if frames > t.MaxFrames {
		frames = t.MaxFrames
	}
	renderMS := float64(frames) * t.FrameMS

	if err := d.Clock.Sleep(ctx, msToDuration(math.Min(renderMS, t.CheckAfterMS))); err != nil {
		return flake.Observation{}, err
	}

	return flake.Observation{
		Pass: renderMS <= t.CheckAfterMS,
		Metrics: flake.Metrics{
			RenderFrames: flake.Ptr(frames),
			CheckAfterMS: flake.Ptr(t.CheckAfterMS),
		},
	}, nil
}
