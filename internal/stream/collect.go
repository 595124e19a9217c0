package stream

import (
	"context"
	"fmt"
)

// Result summarises a fully drained stream.
type Result struct {
	Lines  []string
	Status ExitStatus
	// Exited is false when collection stopped before a terminal status was known.
	Exited bool
}

// Collect reads every line from s until it is exhausted or ctx is cancelled,
// then closes s.
//
// If ctx is cancelled first, a stream implementing Terminator is terminated
// before being closed, and the lines read so far are returned together with
// the context error. The context is checked between lines, so a child that
// blocks without writing is only interrupted once ctx also reaches the child
// (ProcessStream is created with its own context for that purpose).
//
// A non-zero exit status is reported in the Result, never as an error.
func Collect(ctx context.Context, s Stream) (res Result, err error) {
	defer func() {
		if closeErr := s.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close stream: %w", closeErr)
		}
		res.Status, res.Exited = s.Status()
	}()

	for s.Next() {
		res.Lines = append(res.Lines, s.Line())

		select {
		case <-ctx.Done():
			if t, ok := s.(Terminator); ok {
				_ = t.Terminate()
			}
			return res, fmt.Errorf("stream collection cancelled: %w", ctx.Err())
		default:
		}
	}
	if err := s.Err(); err != nil {
		return res, fmt.Errorf("read stream: %w", err)
	}
	return res, nil
}
