package source

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/yoshikazusawa/Test-Harness/internal/stream"
)

// ErrUnsupportedShape is returned when a raw source is not a sequence of
// strings, a mapping with an `exec` key, or a scalar string.
var ErrUnsupportedShape = errors.New("argument must be a sequence or a mapping with an `exec` key")

// ExecKey is the mapping key that carries an explicit command.
const ExecKey = "exec"

// Kind identifies which shape a RawSource holds.
type Kind int

const (
	// KindInvalid is the zero Kind; a RawSource of this kind was never constructed.
	KindInvalid Kind = iota
	// KindCommand is a sequence of strings already forming a command.
	KindCommand
	// KindExec is a mapping whose `exec` key holds a sequence of strings.
	KindExec
	// KindScalar is a single value, usually a file path or raw protocol text.
	KindScalar
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindExec:
		return "exec"
	case KindScalar:
		return "scalar"
	default:
		return "invalid"
	}
}

// RawSource is the caller's unvalidated description of where test output
// comes from. Exactly one shape is active and it never changes after
// construction.
type RawSource struct {
	kind   Kind
	argv   stream.Command
	scalar string
}

// FromCommand builds a RawSource from an argv-style sequence.
func FromCommand(args ...string) RawSource {
	return RawSource{kind: KindCommand, argv: append(stream.Command(nil), args...)}
}

// FromExec builds a RawSource equivalent to the mapping {exec: args}.
func FromExec(args ...string) RawSource {
	return RawSource{kind: KindExec, argv: append(stream.Command(nil), args...)}
}

// FromScalar builds a RawSource from a single value such as a file path.
func FromScalar(value string) RawSource {
	return RawSource{kind: KindScalar, scalar: value}
}

// NewRawSource validates a generically decoded value (as produced by a YAML or
// JSON decoder) and returns the matching RawSource. Any other shape fails with
// ErrUnsupportedShape.
func NewRawSource(v any) (RawSource, error) {
	switch val := v.(type) {
	case RawSource:
		if val.kind == KindInvalid {
			return RawSource{}, fmt.Errorf("%w: got an unconstructed source", ErrUnsupportedShape)
		}
		return val, nil
	case string:
		return FromScalar(val), nil
	case []string:
		return FromCommand(val...), nil
	case stream.Command:
		return FromCommand(val...), nil
	case []any:
		args, err := stringSequence(val)
		if err != nil {
			return RawSource{}, err
		}
		return FromCommand(args...), nil
	case map[string]any:
		return fromMapping(val)
	case map[string][]string:
		args, ok := val[ExecKey]
		if !ok {
			return RawSource{}, fmt.Errorf("%w: mapping has no %q key", ErrUnsupportedShape, ExecKey)
		}
		return FromExec(args...), nil
	default:
		return RawSource{}, fmt.Errorf("%w: got %T", ErrUnsupportedShape, v)
	}
}

func fromMapping(m map[string]any) (RawSource, error) {
	exec, ok := m[ExecKey]
	if !ok {
		return RawSource{}, fmt.Errorf("%w: mapping has no %q key", ErrUnsupportedShape, ExecKey)
	}
	switch args := exec.(type) {
	case []string:
		return FromExec(args...), nil
	case []any:
		strs, err := stringSequence(args)
		if err != nil {
			return RawSource{}, err
		}
		return FromExec(strs...), nil
	default:
		return RawSource{}, fmt.Errorf("%w: %q must be a sequence of strings, got %T", ErrUnsupportedShape, ExecKey, exec)
	}
}

func stringSequence(items []any) ([]string, error) {
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: element %d is %T, not a string", ErrUnsupportedShape, i, item)
		}
		out[i] = s
	}
	return out, nil
}

// ParseRaw decodes a YAML (or JSON) document describing a raw source.
//
//	./t/basic.sh             -> scalar
//	[perl, t/basic.t]        -> command
//	{exec: [./run-tests]}    -> exec mapping
func ParseRaw(data []byte) (RawSource, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return RawSource{}, fmt.Errorf("failed to decode raw source: %w", err)
	}
	return NewRawSource(v)
}

// Kind reports the active shape.
func (r RawSource) Kind() Kind { return r.kind }

// Scalar returns the scalar value; it is empty unless Kind is KindScalar.
func (r RawSource) Scalar() string { return r.scalar }

// Command normalises the source into an argv. Sequence and exec sources are
// used verbatim; a scalar becomes a single-element command.
func (r RawSource) Command() stream.Command {
	switch r.kind {
	case KindCommand, KindExec:
		return append(stream.Command(nil), r.argv...)
	case KindScalar:
		return stream.Command{r.scalar}
	default:
		return nil
	}
}

func (r RawSource) String() string {
	switch r.kind {
	case KindCommand:
		return fmt.Sprintf("[%s]", r.argv)
	case KindExec:
		return fmt.Sprintf("{exec: [%s]}", r.argv)
	case KindScalar:
		return fmt.Sprintf("%q", r.scalar)
	default:
		return "<invalid source>"
	}
}
