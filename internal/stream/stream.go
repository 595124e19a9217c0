// Package stream provides pull-based line streams over test output sources.
//
// A Stream behaves like a bufio.Scanner: call Next until it returns false, read
// each line with Line, then inspect Err and Status. Every Stream must be closed;
// Close is idempotent and, for process-backed streams, guarantees the child is
// reaped exactly once.
package stream

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrEmptyCommand is returned when a process stream is requested for a command
	// with no executable.
	ErrEmptyCommand = errors.New("no command found")
	// ErrEmptyArgument is returned for a command with an empty argument.
	ErrEmptyArgument = errors.New("empty command argument")
	// ErrSpawn is the sentinel wrapped by SpawnError so callers can use errors.Is.
	ErrSpawn = errors.New("spawn failed")
)

type (
	// Stream is a live, pull-based sequence of output lines with a terminal status.
	Stream interface {
		// Next advances to the next line. It blocks until a line is available
		// and returns false once output is exhausted or a read error occurs.
		Next() bool
		// Line returns the line read by the last successful Next, without its
		// line terminator.
		Line() string
		// Err returns the first read error encountered, if any. End of output is
		// not an error.
		Err() error
		// Status reports the terminal exit status. The boolean is false until the
		// stream has been exhausted or closed.
		Status() (ExitStatus, bool)
		// Close releases every resource held by the stream. It is safe to call
		// more than once.
		Close() error
	}

	// Terminator is implemented by streams whose producer can be stopped early.
	Terminator interface {
		Terminate() error
	}

	// ExitCode represents a process exit status code.
	// The zero value means success; -1 means the process did not exit normally.
	ExitCode int

	// ExitStatus describes how a stream's producer finished.
	ExitStatus struct {
		// Code is the numeric exit code, or -1 when the process was signaled.
		Code ExitCode
		// Signaled is true when the process was terminated by a signal.
		Signaled bool
		// Signal names the terminating signal when Signaled is true.
		Signal string
	}

	// Command is an argv-style executable invocation. The first element is the
	// program, the rest are its arguments. It is never re-interpreted by a shell.
	Command []string

	// SpawnError is returned when the operating system refuses to create the
	// child process.
	SpawnError struct {
		Command Command
		Err     error
	}
)

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }

// Success reports whether the producer exited normally with code 0.
func (s ExitStatus) Success() bool {
	return !s.Signaled && s.Code.IsSuccess()
}

func (s ExitStatus) String() string {
	if s.Signaled {
		return "signal: " + s.Signal
	}
	return "exit status " + s.Code.String()
}

// Validate checks that the command names an executable and that none of its
// arguments is empty.
func (c Command) Validate() error {
	if len(c) == 0 || c[0] == "" {
		return ErrEmptyCommand
	}
	for i, arg := range c[1:] {
		if arg == "" {
			return fmt.Errorf("argument %d of %s: %w", i+1, c, ErrEmptyArgument)
		}
	}
	return nil
}

func (c Command) String() string {
	quoted := make([]string, len(c))
	for i, arg := range c {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'") {
			quoted[i] = strconv.Quote(arg)
			continue
		}
		quoted[i] = arg
	}
	return strings.Join(quoted, " ")
}

// Error implements the error interface.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Command, e.Err)
}

// Unwrap exposes both ErrSpawn and the underlying OS error.
func (e *SpawnError) Unwrap() []error { return []error{ErrSpawn, e.Err} }
