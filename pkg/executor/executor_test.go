package executor

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	t.Parallel()
	skipWithoutShell(t)

	e := New()
	res, err := e.Run(context.Background(), "sh", []string{"-c", "echo out; echo err >&2; exit 3"}, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.False(t, res.TimedOut)
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestRunZeroExit(t *testing.T) {
	t.Parallel()
	skipWithoutShell(t)

	e := New()
	res, err := e.Run(context.Background(), "sh", []string{"-c", "true"}, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
}

func TestRunTimeoutKillsProcess(t *testing.T) {
	t.Parallel()
	skipWithoutShell(t)

	e := New()
	start := time.Now()
	res, err := e.Run(context.Background(), "sleep", []string{"30"}, 100*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, res.TimedOut)
	// The call must return shortly after expiry, i.e. the child was killed
	// rather than waited on for its full sleep.
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunExecutableNotFound(t *testing.T) {
	t.Parallel()

	e := New()
	_, err := e.Run(context.Background(), "definitely-not-a-real-binary-4a1b", nil, time.Second)
	require.ErrorIs(t, err, ErrExecutableNotFound)
}

func TestLookPathMissing(t *testing.T) {
	t.Parallel()

	e := New()
	_, err := e.LookPath("definitely-not-a-real-binary-4a1b")
	require.ErrorIs(t, err, ErrExecutableNotFound)
}

func TestRunArgumentVectorIsNotShellInterpreted(t *testing.T) {
	t.Parallel()
	skipWithoutShell(t)

	// A hostile package name must arrive as a single argv entry.
	e := New()
	res, err := e.Run(context.Background(), "echo", []string{"git; rm -rf /"}, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "git; rm -rf /\n", res.Stdout)
}
