package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
)

// DefaultCloseGrace is how long Close waits for a child whose remaining output
// was abandoned before killing it.
const DefaultCloseGrace = 5 * time.Second

// Options controls how a ProcessStream spawns and tears down its child.
type Options struct {
	// Merge interleaves the child's stderr into the line sequence in OS delivery order.
	Merge bool
	// Dir is the child's working directory. Empty means the caller's directory.
	Dir string
	// Env is the child's environment. Nil inherits the caller's environment.
	Env []string
	// Stderr receives the child's error output when Merge is false.
	// Nil passes it through to the parent's stderr.
	Stderr io.Writer
	// CloseGrace bounds how long Close waits before killing a child that is
	// still running. Zero means DefaultCloseGrace.
	CloseGrace time.Duration
	// Logger receives lifecycle diagnostics. Nil uses the default logger.
	Logger *log.Logger
}

// ProcessStream spawns a Command and exposes its output as lines.
//
// The stream owns the child for its whole lifetime. The child is waited on
// exactly once: when output is exhausted, or from Close if the consumer stops
// early. No SIGCHLD handler is installed.
type ProcessStream struct {
	command Command
	merge   bool
	cmd     *exec.Cmd
	pipe    io.ReadCloser
	reader  *bufio.Reader
	cancel  context.CancelFunc
	grace   time.Duration
	logger  *log.Logger

	line string
	err  error
	done bool

	reapOnce sync.Once
	reaped   chan struct{}
	status   ExitStatus
	waitErr  error

	closeOnce sync.Once
	closeErr  error
}

// NewProcessStream starts command and returns a stream over its output.
// It fails with ErrEmptyCommand or ErrEmptyArgument before spawning anything
// when command is malformed,
// and with a *SpawnError when the OS cannot create the process. No partially
// initialised stream is ever returned.
func NewProcessStream(ctx context.Context, command Command, opts Options) (*ProcessStream, error) {
	if err := command.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	grace := opts.CloseGrace
	if grace <= 0 {
		grace = DefaultCloseGrace
	}

	// --- Prepare Command ---
	execCtx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(execCtx, command[0], command[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	cmd.WaitDelay = grace

	p := &ProcessStream{
		command: append(Command(nil), command...),
		merge:   opts.Merge,
		cmd:     cmd,
		cancel:  cancel,
		grace:   grace,
		logger:  logger,
		reaped:  make(chan struct{}),
	}

	// --- Start Command Execution ---
	var err error
	if opts.Merge {
		err = p.startMerged()
	} else {
		err = p.startSeparate(opts.Stderr)
	}
	if err != nil {
		cancel()
		return nil, &SpawnError{Command: p.command, Err: err}
	}

	p.reader = bufio.NewReader(p.pipe)
	logger.Debug("spawned child", "command", p.command.String(), "pid", cmd.Process.Pid, "merge", p.merge)
	return p, nil
}

// startMerged attaches one pipe to both stdout and stderr so the child's
// writes reach us in the order the kernel delivers them.
func (p *ProcessStream) startMerged() error {
	pr, pw, err := os.Pipe()
	if err != nil {
		return err
	}
	p.cmd.Stdout = pw
	p.cmd.Stderr = pw
	if err := p.cmd.Start(); err != nil {
		_ = pr.Close()
		_ = pw.Close()
		return err
	}
	// The child holds its own copy of the write end.
	_ = pw.Close()
	p.pipe = pr
	return nil
}

func (p *ProcessStream) startSeparate(stderr io.Writer) error {
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	p.cmd.Stderr = stderr
	if err := p.cmd.Start(); err != nil {
		return err
	}
	p.pipe = stdout
	return nil
}

// Next blocks until the child produces a complete line or its output ends.
// Reaching the end of output reaps the child.
func (p *ProcessStream) Next() bool {
	if p.done {
		return false
	}
	line, err := readLine(p.reader)
	if err != nil {
		p.done = true
		if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
			p.err = err
		}
		p.reap()
		if line == "" || p.err != nil {
			return false
		}
	}
	p.line = line
	return true
}

// Line returns the line read by the last successful Next.
func (p *ProcessStream) Line() string { return p.line }

// Err returns the first read error, or a wait error that prevented an exit
// status from being collected. A non-zero exit is not an error.
func (p *ProcessStream) Err() error {
	if p.err != nil {
		return p.err
	}
	return p.waitErr
}

// Status returns the child's exit status once it has been reaped.
func (p *ProcessStream) Status() (ExitStatus, bool) {
	select {
	case <-p.reaped:
		return p.status, true
	default:
		return ExitStatus{}, false
	}
}

// Pid returns the operating-system process id of the child.
func (p *ProcessStream) Pid() int { return p.cmd.Process.Pid }

// Command returns the argv the child was started with.
func (p *ProcessStream) Command() Command { return append(Command(nil), p.command...) }

// Terminate kills the child. It does not reap it; Next or Close does that.
// It is safe to call from another goroutine while Next is blocked.
func (p *ProcessStream) Terminate() error {
	select {
	case <-p.reaped:
		return nil
	default:
	}
	p.logger.Debug("terminating child", "pid", p.cmd.Process.Pid)
	p.cancel()
	return nil
}

// Close abandons any unread output and reaps the child. A child that keeps
// running for longer than the close grace after its output pipe was closed is
// killed first. Close is idempotent.
func (p *ProcessStream) Close() error {
	p.closeOnce.Do(func() {
		p.done = true
		if err := p.pipe.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			p.closeErr = err
		}

		go p.reap()
		timer := time.NewTimer(p.grace)
		defer timer.Stop()
		select {
		case <-p.reaped:
		case <-timer.C:
			p.logger.Debug("child still running after close grace, killing", "pid", p.cmd.Process.Pid, "grace", p.grace)
			p.cancel()
			<-p.reaped
		}
	})
	return p.closeErr
}

// reap waits for the child exactly once and records its exit status.
func (p *ProcessStream) reap() {
	p.reapOnce.Do(func() {
		defer close(p.reaped)
		err := p.cmd.Wait()
		state := p.cmd.ProcessState
		if state == nil {
			p.status = ExitStatus{Code: -1}
		} else {
			p.status = exitStatusFromState(state)
		}
		// A non-zero exit is reported through Status. Anything else, such as a
		// failed copy into Options.Stderr or exec.ErrWaitDelay, surfaces from Err.
		var exitErr *exec.ExitError
		if err != nil && !errors.As(err, &exitErr) {
			p.waitErr = fmt.Errorf("wait for %s: %w", p.command, err)
		}
		p.cancel()
		p.logger.Debug("reaped child", "pid", p.cmd.Process.Pid, "status", p.status.String())
	})
}

func exitStatusFromState(state *os.ProcessState) ExitStatus {
	status := ExitStatus{Code: ExitCode(state.ExitCode())}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		status.Signaled = true
		status.Signal = ws.Signal().String()
		status.Code = -1
	}
	return status
}
