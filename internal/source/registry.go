package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/yoshikazusawa/Test-Harness/internal/stream"
)

// ErrNoMatch is returned when no registered detector scores above zero.
var ErrNoMatch = errors.New("no matching source strategy")

// Candidate pairs a detector with the score it gave a raw source.
type Candidate struct {
	Detector Detector
	Score    float64
	// Order is the detector's registration position, starting at 0.
	Order int
}

// Registry holds detectors in registration order and arbitrates between them.
//
// Registration is expected during start-up; afterwards the registry is only
// read and is safe to share across goroutines. It does not de-duplicate, so
// callers must not register the same detector twice.
type Registry struct {
	mu        sync.RWMutex
	detectors []Detector
	logger    *log.Logger
}

// NewRegistry creates an empty registry. A nil logger uses the default logger.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{logger: logger}
}

// DefaultOptions configures the detectors installed by NewDefaultRegistry.
type DefaultOptions struct {
	// ExecutableExtensions are file extensions run as scripts. Nil uses .sh and .bat.
	ExecutableExtensions []string
	// FileExtensions are file extensions read as raw protocol output. Nil uses .tap.
	FileExtensions []string
	Logger         *log.Logger
}

// NewDefaultRegistry creates a registry with the executable, file and text
// detectors registered in that order.
func NewDefaultRegistry(opts DefaultOptions) *Registry {
	r := NewRegistry(opts.Logger)
	r.Register(NewExecutableDetector(opts.ExecutableExtensions...))
	r.Register(NewFileDetector(opts.FileExtensions...))
	r.Register(NewTextDetector())
	return r
}

// Register appends a detector. Earlier registrations win ties.
func (r *Registry) Register(d Detector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detectors = append(r.detectors, d)
}

// Detectors returns the registered detectors in registration order.
func (r *Registry) Detectors() []Detector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Detector(nil), r.detectors...)
}

// Detect computes meta for raw once and asks every detector for a score.
// Detectors scoring zero are left out; the rest are returned in registration
// order. Scores above 1 are clamped to 1, and negative or NaN scores count as zero.
func (r *Registry) Detect(raw RawSource) []Candidate {
	meta := ComputeMeta(raw)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []Candidate
	for i, d := range r.detectors {
		score := d.Score(raw, meta)
		switch {
		case math.IsNaN(score) || score <= 0:
			r.logger.Debug("detector declined source", "detector", d.Name(), "source", raw.String())
			continue
		case score > 1:
			r.logger.Debug("clamping out-of-range score", "detector", d.Name(), "score", score)
			score = 1
		}
		r.logger.Debug("detector scored source", "detector", d.Name(), "source", raw.String(), "score", score)
		candidates = append(candidates, Candidate{Detector: d, Score: score, Order: i})
	}
	return candidates
}

// Resolve picks the detector with the strictly highest score for raw. When
// several share the top score, the one registered first wins.
func (r *Registry) Resolve(raw RawSource) (Candidate, error) {
	if raw.Kind() == KindInvalid {
		return Candidate{}, fmt.Errorf("resolve source: %w", ErrUnsupportedShape)
	}

	candidates := r.Detect(raw)
	if len(candidates) == 0 {
		return Candidate{}, fmt.Errorf("%w for %s", ErrNoMatch, raw)
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	r.logger.Debug("resolved source", "source", raw.String(), "detector", best.Detector.Name(), "score", best.Score)
	return best, nil
}

// MakeStream resolves the detector for raw and asks it for a stream.
func (r *Registry) MakeStream(ctx context.Context, raw RawSource, opts stream.Options) (stream.Stream, error) {
	best, err := r.Resolve(raw)
	if err != nil {
		return nil, err
	}
	s, err := best.Detector.MakeStream(ctx, raw, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", best.Detector.Name(), err)
	}
	return s, nil
}
