package source

import (
	"context"
	"fmt"
	"os"

	"github.com/yoshikazusawa/Test-Harness/internal/stream"
)

// ScoreProtocolFile is reported for files carrying recorded protocol output.
const ScoreProtocolFile = 0.9

// DefaultFileExtensions are the extensions of recorded protocol output files.
var DefaultFileExtensions = []string{".tap"}

// FileDetector reads previously recorded protocol output from a file.
type FileDetector struct {
	extensions map[string]struct{}
}

// NewFileDetector creates the detector. With no extensions it uses DefaultFileExtensions.
func NewFileDetector(extensions ...string) *FileDetector {
	if len(extensions) == 0 {
		extensions = DefaultFileExtensions
	}
	return &FileDetector{extensions: extensionSet(extensions)}
}

// Name returns "file".
func (d *FileDetector) Name() string { return "file" }

// Score returns ScoreProtocolFile for an existing file with one of the
// detector's extensions and 0 otherwise.
func (d *FileDetector) Score(_ RawSource, meta Meta) float64 {
	if !meta.IsFile {
		return 0
	}
	if _, ok := d.extensions[meta.Extension]; ok {
		return ScoreProtocolFile
	}
	return 0
}

// MakeStream opens the file named by the scalar source.
func (d *FileDetector) MakeStream(_ context.Context, raw RawSource, _ stream.Options) (stream.Stream, error) {
	if raw.Kind() != KindScalar {
		return nil, fmt.Errorf("file source must be a path, got %s", raw.Kind())
	}
	f, err := os.Open(raw.Scalar())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", raw.Scalar(), err)
	}
	return stream.NewReaderStream(f), nil
}
