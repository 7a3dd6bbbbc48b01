// Package backend defines the capability set every package-manager family
// implements. One concrete backend is selected per server at startup; the
// tool layer only ever sees this interface and the shared error taxonomy.
package backend

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/osbridge/pkgmgr-mcp/pkg/executor"
	"github.com/osbridge/pkgmgr-mcp/pkg/types"
)

// Backend is the capability set of one package-manager family.
type Backend interface {
	// Name is the family name, e.g. "chocolatey".
	Name() string
	// Available reports whether the executable resolved at construction time.
	Available() bool

	ListInstalled(ctx context.Context) ([]types.PackageInfo, error)
	Search(ctx context.Context, term string) ([]types.PackageInfo, error)
	Install(ctx context.Context, spec types.PackageSpec) (*types.OpResult, error)
	Uninstall(ctx context.Context, id string) (*types.OpResult, error)
	Upgrade(ctx context.Context, spec types.PackageSpec) (*types.OpResult, error)

	ListSources(ctx context.Context) ([]types.SourceSpec, error)
	AddSource(ctx context.Context, src types.SourceSpec) (*types.OpResult, error)
	RemoveSource(ctx context.Context, name string) (*types.OpResult, error)

	// InstallSelf bootstraps the backend executable itself. Idempotent:
	// an already-present backend yields a NoOp result.
	InstallSelf(ctx context.Context) (*types.OpResult, error)

	// SupportsSourceReplace reports whether adding a source under an
	// existing name is a documented idempotent replace for this family.
	SupportsSourceReplace() bool
}

// Base carries the construction-time context shared by every backend:
// the resolved executable path, the runner, and the per-command timeout.
// It holds no mutable state after construction.
type Base struct {
	Exe     string // bare executable name, used when resolution failed
	Path    string // resolved path, empty when the binary was absent at startup
	Runner  executor.Runner
	Timeout time.Duration
}

// NewBase resolves the executable once. A configured path takes precedence
// over PATH lookup so servers can target a binary outside PATH. A missing
// binary is not fatal here; every later invocation reports
// BACKEND_NOT_INSTALLED instead.
func NewBase(exe, configuredPath string, runner executor.Runner, timeout time.Duration) Base {
	if configuredPath != "" {
		return Base{Exe: exe, Path: configuredPath, Runner: runner, Timeout: timeout}
	}
	path, err := runner.LookPath(exe)
	if err != nil {
		slog.Warn("backend: executable not found at startup", "executable", exe)
		path = ""
	}
	return Base{Exe: exe, Path: path, Runner: runner, Timeout: timeout}
}

// Available reports whether the executable resolved at construction time.
func (b *Base) Available() bool { return b.Path != "" }

// Run invokes the backend executable with args. It maps the two
// backend-independent failure modes (binary missing, timeout) to the shared
// taxonomy; everything else is left to the family's classifier.
func (b *Base) Run(ctx context.Context, args []string, secrets ...string) (*executor.CommandResult, *types.MCPError) {
	exe := b.Path
	if exe == "" {
		exe = b.Exe
	}
	res, err := b.Runner.Run(ctx, exe, args, b.Timeout)
	if err != nil {
		if err == executor.ErrExecutableNotFound {
			return nil, &types.MCPError{
				Kind:    types.ErrKindBackendNotInstalled,
				Message: b.Exe + " is not installed or not available in PATH",
				Command: RedactCommand(b.Exe, args, secrets),
			}
		}
		return nil, &types.MCPError{
			Kind:    types.ErrKindBackendExecutionFailed,
			Message: "failed to start " + b.Exe,
			Detail:  err.Error(),
			Command: RedactCommand(b.Exe, args, secrets),
		}
	}
	if res.TimedOut {
		return nil, &types.MCPError{
			Kind:    types.ErrKindTimedOut,
			Message: b.Exe + " command did not finish within " + b.Timeout.String(),
			Command: RedactCommand(b.Exe, args, secrets),
		}
	}
	return res, nil
}

// RedactCommand renders a command line for error descriptors with every
// secret value replaced. Safe to embed in agent-facing messages.
func RedactCommand(exe string, args []string, secrets []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, exe)
	for _, a := range args {
		redacted := a
		for _, s := range secrets {
			if s != "" && a == s {
				redacted = "***"
				break
			}
		}
		parts = append(parts, redacted)
	}
	return strings.Join(parts, " ")
}

// ExcerptStderr trims stderr (falling back to stdout) to a short excerpt for
// BACKEND_EXECUTION_FAILED details.
func ExcerptStderr(res *executor.CommandResult) string {
	text := strings.TrimSpace(res.Stderr)
	if text == "" {
		text = strings.TrimSpace(res.Stdout)
	}
	const maxExcerpt = 400
	if len(text) > maxExcerpt {
		text = text[:maxExcerpt]
	}
	return text
}
