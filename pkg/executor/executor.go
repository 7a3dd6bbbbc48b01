// Package executor runs external package-manager binaries with a bounded
// timeout and captures their outcome as a value. Exit-code semantics are left
// to the per-backend classifiers; the only condition reported as a Go error is
// the executable being absent from PATH.
package executor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"
)

// ErrExecutableNotFound is returned when the requested binary cannot be
// resolved on PATH. A nonzero exit from a resolved binary is not an error.
var ErrExecutableNotFound = errors.New("executable not found in PATH")

// CommandResult captures one finished (or timed-out) subprocess invocation.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	TimedOut bool
}

// Runner runs an executable with an argument vector. Implementations must
// never concatenate arguments into a shell string.
type Runner interface {
	Run(ctx context.Context, name string, args []string, timeout time.Duration) (*CommandResult, error)
	LookPath(name string) (string, error)
}

// Executor is the os/exec-backed Runner used in production.
type Executor struct{}

func New() *Executor {
	return &Executor{}
}

// LookPath resolves name on PATH.
func (e *Executor) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", ErrExecutableNotFound
	}
	return path, nil
}

// Run executes name with args and waits for completion or timeout expiry.
// On timeout the child process is killed and a result with TimedOut set is
// returned; no error escapes for a process that ran and exited nonzero.
func (e *Executor) Run(ctx context.Context, name string, args []string, timeout time.Duration) (*CommandResult, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Do not wait forever on a child that ignores the kill signal's
	// descendants holding the pipes open.
	cmd.WaitDelay = 5 * time.Second

	start := time.Now()
	err := cmd.Run()
	result := &CommandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		slog.Warn("executor: command timed out", "executable", name, "timeout", timeout)
		return result, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		case errors.Is(err, exec.ErrNotFound):
			return nil, ErrExecutableNotFound
		default:
			// Start failures other than lookup (permissions, bad binary).
			return nil, err
		}
	}

	// Arguments are deliberately absent from the log line: source management
	// commands can carry credentials in their argument vector.
	slog.Debug("executor: command finished",
		"executable", name,
		"exit_code", result.ExitCode,
		"duration", result.Duration)
	return result, nil
}
