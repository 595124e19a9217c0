package stream

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// readLine returns the next newline-delimited line from r with its terminator
// removed. A final line without a trailing newline is still returned together
// with io.EOF.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, err
}

// LineStream serves lines held in memory.
type LineStream struct {
	lines  []string
	pos    int
	line   string
	closed bool
}

// NewLineStream creates a stream over a copy of lines.
func NewLineStream(lines []string) *LineStream {
	return &LineStream{lines: append([]string(nil), lines...)}
}

// NewTextStream splits raw text on newlines. A trailing newline does not
// produce an empty final line.
func NewTextStream(text string) *LineStream {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return NewLineStream(nil)
	}
	return NewLineStream(strings.Split(text, "\n"))
}

// Next advances to the next held line.
func (s *LineStream) Next() bool {
	if s.closed || s.pos >= len(s.lines) {
		return false
	}
	s.line = s.lines[s.pos]
	s.pos++
	return true
}

// Line returns the current line.
func (s *LineStream) Line() string { return s.line }

// Err is always nil; held lines cannot fail to read.
func (s *LineStream) Err() error { return nil }

// Status reports success once every line has been consumed or the stream is closed.
func (s *LineStream) Status() (ExitStatus, bool) {
	return ExitStatus{}, s.closed || s.pos >= len(s.lines)
}

// Close discards the remaining lines.
func (s *LineStream) Close() error {
	s.closed = true
	return nil
}

// ReaderStream serves lines from an io.ReadCloser such as an open file.
type ReaderStream struct {
	rc       io.ReadCloser
	reader   *bufio.Reader
	line     string
	err      error
	done     bool
	closed   bool
	closeErr error
}

// NewReaderStream takes ownership of rc; Close closes it.
func NewReaderStream(rc io.ReadCloser) *ReaderStream {
	return &ReaderStream{rc: rc, reader: bufio.NewReader(rc)}
}

// Next reads the next line. It returns false at EOF or on a read error,
// which Err then reports.
func (s *ReaderStream) Next() bool {
	if s.done {
		return false
	}
	line, err := readLine(s.reader)
	if err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) {
			s.err = err
			return false
		}
		if line == "" {
			return false
		}
	}
	s.line = line
	return true
}

// Line returns the current line.
func (s *ReaderStream) Line() string { return s.line }

// Err returns the first read error other than io.EOF.
func (s *ReaderStream) Err() error { return s.err }

// Status reports success once the reader is exhausted or closed.
func (s *ReaderStream) Status() (ExitStatus, bool) {
	return ExitStatus{}, s.done || s.closed
}

// Close closes the underlying reader. Later calls return the first result.
func (s *ReaderStream) Close() error {
	if s.closed {
		return s.closeErr
	}
	s.closed = true
	s.done = true
	s.closeErr = s.rc.Close()
	return s.closeErr
}
