package source

import (
	"context"
	"fmt"

	"github.com/yoshikazusawa/Test-Harness/internal/stream"
)

// ScoreRawText is reported for multi-line scalar sources.
const ScoreRawText = 0.9

// TextDetector treats a multi-line scalar as protocol output held in memory.
type TextDetector struct{}

// NewTextDetector creates the detector.
func NewTextDetector() *TextDetector { return &TextDetector{} }

// Name returns "text".
func (d *TextDetector) Name() string { return "text" }

// Score returns ScoreRawText for a scalar containing a newline and 0 otherwise.
func (d *TextDetector) Score(_ RawSource, meta Meta) float64 {
	if meta.IsScalar && meta.HasNewline {
		return ScoreRawText
	}
	return 0
}

// MakeStream serves the scalar's lines from memory.
func (d *TextDetector) MakeStream(_ context.Context, raw RawSource, _ stream.Options) (stream.Stream, error) {
	if raw.Kind() != KindScalar {
		return nil, fmt.Errorf("text source must be a scalar, got %s", raw.Kind())
	}
	return stream.NewTextStream(raw.Scalar()), nil
}
