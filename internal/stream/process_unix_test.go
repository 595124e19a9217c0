//go:build unix

package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// assertReaped checks the process table: a zombie still answers signal 0,
// a reaped process does not.
func assertReaped(t *testing.T, pid int) {
	t.Helper()
	err := unix.Kill(pid, 0)
	assert.ErrorIs(t, err, unix.ESRCH, "pid %d is still in the process table", pid)
}

func TestProcessStream_NoZombieAfterDrain(t *testing.T) {
	requireTool(t, "printf")
	s, err := NewProcessStream(context.Background(), Command{"printf", "a\nb\n"}, quietOptions())
	require.NoError(t, err)
	pid := s.Pid()

	drain(t, s, 10*time.Second)
	assertReaped(t, pid)
	require.NoError(t, s.Close())
	assertReaped(t, pid)
}

func TestProcessStream_NoZombieAfterEarlyClose(t *testing.T) {
	requireTool(t, "sh")
	opts := quietOptions()
	opts.CloseGrace = 200 * time.Millisecond
	s, err := NewProcessStream(context.Background(), Command{"sh", "-c", "echo first; exec sleep 60"}, opts)
	require.NoError(t, err)
	pid := s.Pid()

	require.True(t, s.Next())
	require.NoError(t, s.Close())
	assertReaped(t, pid)
}
