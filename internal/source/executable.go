package source

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/yoshikazusawa/Test-Harness/internal/stream"
)

// Scores reported by ExecutableDetector. All stay below 1.0; an explicit exec
// mapping outranks any file guess.
const (
	ScoreExecMapping    = 0.99
	ScoreScriptExt      = 0.8
	ScoreExecutableFile = 0.7
)

// DefaultExecutableExtensions are the script extensions run as commands.
var DefaultExecutableExtensions = []string{".sh", ".bat"}

// ExecutableDetector runs scripts, executable files and explicit exec
// mappings as child processes.
type ExecutableDetector struct {
	extensions map[string]struct{}
}

// NewExecutableDetector creates the detector. With no extensions it uses
// DefaultExecutableExtensions. Extensions are matched case-insensitively.
func NewExecutableDetector(extensions ...string) *ExecutableDetector {
	if len(extensions) == 0 {
		extensions = DefaultExecutableExtensions
	}
	return &ExecutableDetector{extensions: extensionSet(extensions)}
}

// Name returns "executable".
func (d *ExecutableDetector) Name() string { return "executable" }

// Score rates raw using meta alone:
//
//	file with a script extension   0.8
//	file with an execute bit       0.7
//	mapping with an exec key       0.99
//	anything else                  0
func (d *ExecutableDetector) Score(_ RawSource, meta Meta) float64 {
	if meta.IsFile {
		if _, ok := d.extensions[meta.Extension]; ok {
			return ScoreScriptExt
		}
		if meta.IsExecutable {
			return ScoreExecutableFile
		}
	}
	if meta.IsMapping && meta.HasExecKey {
		return ScoreExecMapping
	}
	return 0
}

// MakeStream spawns the normalised command of raw. A scalar path without a
// directory names a file relative to the working directory, the same file
// Score was computed from, so it is never looked up on $PATH.
func (d *ExecutableDetector) MakeStream(ctx context.Context, raw RawSource, opts stream.Options) (stream.Stream, error) {
	command := raw.Command()
	if raw.Kind() == KindScalar && command[0] != "" && filepath.Base(command[0]) == command[0] {
		command[0] = "." + string(filepath.Separator) + command[0]
	}
	return stream.NewProcessStream(ctx, command, opts)
}

func extensionSet(extensions []string) map[string]struct{} {
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}
