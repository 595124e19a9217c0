package source

import (
	"context"

	"github.com/yoshikazusawa/Test-Harness/internal/stream"
)

// Detector is a strategy that can turn some raw sources into a stream.
//
// Score reports a confidence in [0.0, 1.0] that the detector is the right
// strategy for raw; 0 means it cannot handle it. The registry calls Score on
// every detector and asks the best one to MakeStream. Implementations must be
// safe for concurrent use once registered.
type Detector interface {
	// Name identifies the detector in diagnostics.
	Name() string
	// Score rates how well this detector can handle raw, given its derived meta.
	Score(raw RawSource, meta Meta) float64
	// MakeStream produces a stream for raw. opts carries the caller's spawn
	// preferences such as merge; detectors that do not spawn may ignore them.
	MakeStream(ctx context.Context, raw RawSource, opts stream.Options) (stream.Stream, error)
}
