package source

import (
	"context"
	"errors"
	"io"
	"math"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoshikazusawa/Test-Harness/internal/stream"
)

// MockDetector returns a fixed score and records how it was used.
type MockDetector struct {
	name  string
	score float64

	mu        sync.Mutex
	scored    int
	made      int
	lastMeta  Meta
	streamErr error
}

func (m *MockDetector) Name() string { return m.name }

func (m *MockDetector) Score(_ RawSource, meta Meta) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scored++
	m.lastMeta = meta
	return m.score
}

func (m *MockDetector) MakeStream(_ context.Context, _ RawSource, _ stream.Options) (stream.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.made++
	if m.streamErr != nil {
		return nil, m.streamErr
	}
	return stream.NewLineStream([]string{m.name}), nil
}

func newTestRegistry(detectors ...Detector) *Registry {
	r := NewRegistry(log.New(io.Discard))
	for _, d := range detectors {
		r.Register(d)
	}
	return r
}

func TestRegistry_ResolvePicksHighestScore(t *testing.T) {
	low := &MockDetector{name: "low", score: 0.3}
	high := &MockDetector{name: "high", score: 0.9}
	mid := &MockDetector{name: "mid", score: 0.5}
	r := newTestRegistry(low, high, mid)

	best, err := r.Resolve(FromScalar("anything"))
	require.NoError(t, err)
	assert.Same(t, high, best.Detector)
	assert.Equal(t, 0.9, best.Score)
	assert.Equal(t, 1, best.Order)
}

func TestRegistry_TieGoesToEarliestRegistration(t *testing.T) {
	a := &MockDetector{name: "a", score: 0.8}
	b := &MockDetector{name: "b", score: 0.8}
	r := newTestRegistry(&MockDetector{name: "weak", score: 0.1}, a, b)

	for i := 0; i < 20; i++ {
		best, err := r.Resolve(FromExec("x"))
		require.NoError(t, err)
		assert.Same(t, a, best.Detector)
	}
}

func TestRegistry_NoMatch(t *testing.T) {
	zero := &MockDetector{name: "zero", score: 0}
	negative := &MockDetector{name: "negative", score: -1}
	nan := &MockDetector{name: "nan", score: math.NaN()}
	r := newTestRegistry(zero, negative, nan)

	_, err := r.Resolve(FromScalar("whatever"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoMatch)
	assert.Contains(t, err.Error(), "no matching source strategy")

	for _, d := range []*MockDetector{zero, negative, nan} {
		assert.Equal(t, 1, d.scored, "%s must still be asked", d.name)
		assert.Equal(t, 0, d.made)
	}

	_, err = newTestRegistry().Resolve(FromScalar("x"))
	assert.ErrorIs(t, err, ErrNoMatch, "an empty registry never matches")
}

func TestRegistry_DetectExcludesZeroScores(t *testing.T) {
	r := newTestRegistry(
		&MockDetector{name: "zero", score: 0},
		&MockDetector{name: "half", score: 0.5},
		&MockDetector{name: "huge", score: 7},
	)

	candidates := r.Detect(FromExec("x"))
	require.Len(t, candidates, 2)
	assert.Equal(t, "half", candidates[0].Detector.Name())
	assert.Equal(t, 1, candidates[0].Order)
	assert.Equal(t, "huge", candidates[1].Detector.Name())
	assert.Equal(t, 1.0, candidates[1].Score, "scores above 1 are clamped")
}

func TestRegistry_MetaComputedOnceAndShared(t *testing.T) {
	a := &MockDetector{name: "a", score: 0.2}
	b := &MockDetector{name: "b", score: 0.4}
	r := newTestRegistry(a, b)

	r.Detect(FromExec("x"))
	assert.Equal(t, a.lastMeta, b.lastMeta)
	assert.True(t, a.lastMeta.IsMapping)
}

func TestRegistry_InvalidSource(t *testing.T) {
	d := &MockDetector{name: "any", score: 1}
	_, err := newTestRegistry(d).Resolve(RawSource{})
	assert.ErrorIs(t, err, ErrUnsupportedShape)
	assert.Equal(t, 0, d.scored)
}

func TestRegistry_MakeStream(t *testing.T) {
	loser := &MockDetector{name: "loser", score: 0.2}
	winner := &MockDetector{name: "winner", score: 0.6}
	r := newTestRegistry(loser, winner)

	s, err := r.MakeStream(context.Background(), FromScalar("x"), stream.Options{})
	require.NoError(t, err)
	res, err := stream.Collect(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []string{"winner"}, res.Lines)
	assert.Equal(t, 0, loser.made)
	assert.Equal(t, 1, winner.made)

	boom := errors.New("boom")
	failing := newTestRegistry(&MockDetector{name: "failing", score: 1, streamErr: boom})
	_, err = failing.MakeStream(context.Background(), FromScalar("x"), stream.Options{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
}

func TestRegistry_ConcurrentDetect(t *testing.T) {
	r := NewDefaultRegistry(DefaultOptions{Logger: log.New(io.Discard)})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			best, err := r.Resolve(FromExec("true"))
			assert.NoError(t, err)
			assert.Equal(t, "executable", best.Detector.Name())
		}()
	}
	wg.Wait()
}

func TestDefaultRegistry(t *testing.T) {
	dir := t.TempDir()
	tapFile := writeFile(t, dir, "results.TAP", "1..2\nok 1\nok 2\n", 0o644)
	r := NewDefaultRegistry(DefaultOptions{Logger: log.New(io.Discard)})

	names := make([]string, 0, 3)
	for _, d := range r.Detectors() {
		names = append(names, d.Name())
	}
	assert.Equal(t, []string{"executable", "file", "text"}, names)

	testCases := []struct {
		name     string
		raw      RawSource
		detector string
		lines    []string
	}{
		{"tap file", FromScalar(tapFile), "file", []string{"1..2", "ok 1", "ok 2"}},
		{"raw text", FromScalar("1..1\nok 1 - works\n"), "text", []string{"1..1", "ok 1 - works"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			best, err := r.Resolve(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.detector, best.Detector.Name())

			s, err := r.MakeStream(context.Background(), tc.raw, stream.Options{})
			require.NoError(t, err)
			res, err := stream.Collect(context.Background(), s)
			require.NoError(t, err)
			assert.Equal(t, tc.lines, res.Lines)
			assert.True(t, res.Status.Success())
		})
	}

	t.Run("exec mapping", func(t *testing.T) {
		best, err := r.Resolve(FromExec("false"))
		require.NoError(t, err)
		assert.Equal(t, "executable", best.Detector.Name())
		assert.Equal(t, ScoreExecMapping, best.Score)
	})

	t.Run("plain command sequence has no strategy", func(t *testing.T) {
		_, err := r.Resolve(FromCommand("printf", "ok\n"))
		assert.ErrorIs(t, err, ErrNoMatch)
	})

	t.Run("missing path has no strategy", func(t *testing.T) {
		_, err := r.Resolve(FromScalar(dir + "/nope.txt"))
		assert.ErrorIs(t, err, ErrNoMatch)
	})
}
